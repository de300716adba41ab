// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package report prints recovered ioctl records as a terminal table or as a
// JSON document.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/petar-djukic/skid/pkg/types"
)

// Report is the JSON document written by the ir command.
type Report struct {
	Source   string                  `json:"source"`
	Revision *types.Revision         `json:"revision,omitempty"`
	XMLFiles int                     `json:"xml_files"`
	Records  []types.OperationRecord `json:"records"`
}

// Sort orders records by file, struct line, struct name and field, so
// output does not depend on worker scheduling.
func Sort(records []types.OperationRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		if a.StructLineNumber != b.StructLineNumber {
			return a.StructLineNumber < b.StructLineNumber
		}
		if a.StructName != b.StructName {
			return a.StructName < b.StructName
		}
		return a.FopType < b.FopType
	})
}

// Table writes one row per record.
func Table(w io.Writer, records []types.OperationRecord) {
	var data [][]string
	for _, r := range records {
		refID := r.RefID
		if refID == "" {
			refID = "-"
		}
		data = append(data, []string{r.FilePath, strconv.Itoa(r.StructLineNumber), r.StructName, r.FopType, r.Function, refID})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"FILE", "LINE", "STRUCT", "FIELD", "FUNCTION", "REFID"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
}

// JSON writes rep as indented JSON. A nil record list is written as [].
func JSON(w io.Writer, rep Report) error {
	if rep.Records == nil {
		rep.Records = []types.OperationRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}
