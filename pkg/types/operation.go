// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package types defines shared types used across skid packages.
package types

import "fmt"

// FieldName is the name of a file_operations member that dispatches device
// control calls.
type FieldName string

const (
	FieldUnlockedIoctl FieldName = "unlocked_ioctl"
	FieldCompatIoctl   FieldName = "compat_ioctl"
)

// IoctlFields is the closed set of recognized ioctl-like fields, in
// declaration order.
var IoctlFields = []FieldName{FieldUnlockedIoctl, FieldCompatIoctl}

// Token returns the designated-initializer form of the field, e.g.
// ".unlocked_ioctl".
func (f FieldName) Token() string {
	return "." + string(f)
}

// LookupIoctlField returns the recognized field whose initializer token is
// exactly tok.
func LookupIoctlField(tok string) (FieldName, bool) {
	for _, f := range IoctlFields {
		if tok == f.Token() {
			return f, true
		}
	}
	return "", false
}

// OperationRecord describes one ioctl-like function pointer assignment found
// inside a file_operations struct initializer. Records carry no reference to
// the document they came from.
type OperationRecord struct {
	FilePath         string `json:"file_path"`          // Source file containing the struct
	StructName       string `json:"struct_name"`        // Name of the file_operations variable
	StructLineNumber int    `json:"struct_line_number"` // Line of the struct declaration (1-based)
	FopType          string `json:"fop_type"`           // Field name without the leading '.'
	Function         string `json:"function"`           // Target symbol name
	RefID            string `json:"refid"`              // Cross-reference id, empty when the symbol was bare
}

// Location returns the struct declaration position as "file:line".
func (r OperationRecord) Location() string {
	return fmt.Sprintf("%s:%d", r.FilePath, r.StructLineNumber)
}
