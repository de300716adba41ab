// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package fops finds file_operations structs in doxygen XML and extracts
// their ioctl handler assignments.
//
// A qualifying member definition looks like this (redundant children
// removed):
//
//	<memberdef kind="variable" id="alim1535__wdt_8c_1a0c93..." static="yes">
//	  <type>const struct file_operations</type>
//	  <name>ali_fops</name>
//	  <initializer>= {
//	  .owner          = THIS_MODULE,
//	  .unlocked_ioctl = <ref refid="alim1535__wdt_8c_1a1838..." kindref="member">ali_ioctl</ref>,
//	  .compat_ioctl   = compat_ptr_ioctl,
//	}</initializer>
//	  <location file="drivers/watchdog/alim1535_wdt.c" line="314"/>
//	</memberdef>
package fops

import (
	"fmt"
	"strings"

	"github.com/petar-djukic/skid/internal/xmldoc"
)

const (
	memberKindVariable = "variable"
	operationsTypeName = "file_operations"
)

// requiredChildren must all appear among a memberdef's direct children.
var requiredChildren = []string{"type", "initializer"}

// IsOperationTable reports whether a memberdef node is a file_operations
// variable with an initializer. A nil node is a precondition violation.
//
// Every type node below the member must mention file_operations; the first
// type node that does not (or has no text) rejects the member, even when the
// offending node is nested inside another child.
func IsOperationTable(node *xmldoc.Node) (bool, error) {
	if node == nil {
		return false, fmt.Errorf("%w: nil member definition", xmldoc.ErrPrecondition)
	}

	if kind, _ := node.Attr("kind"); kind != memberKindVariable {
		return false, nil
	}

	for _, t := range node.Descendants("type") {
		text, ok := t.Text()
		if !ok || !strings.Contains(text, operationsTypeName) {
			return false, nil
		}
	}

	present := make(map[string]bool)
	for _, c := range node.Children() {
		present[c.Tag()] = true
	}
	for _, tag := range requiredChildren {
		if !present[tag] {
			return false, nil
		}
	}
	return true, nil
}
