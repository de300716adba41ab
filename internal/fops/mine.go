// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package fops

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/petar-djukic/skid/internal/xmldoc"
	"github.com/petar-djukic/skid/pkg/types"
)

// ErrIncompleteMember is returned when a member definition lacks the name or
// location every record needs.
var ErrIncompleteMember = errors.New("incomplete member definition")

const (
	refIDAttr = `refid="`
	refClose  = "</ref>"
)

// MineStruct extracts one record per ioctl-like field assignment in the
// initializer of a file_operations member. Records follow initializer line
// order. A member without an initializer yields no records.
func MineStruct(node *xmldoc.Node) ([]types.OperationRecord, error) {
	if node == nil {
		return nil, fmt.Errorf("%w: nil member definition", xmldoc.ErrPrecondition)
	}

	file, line, err := memberLocation(node)
	if err != nil {
		return nil, err
	}
	name, err := memberName(node)
	if err != nil {
		return nil, err
	}

	var records []types.OperationRecord
	for _, l := range strings.Split(InitializerText(node, false), "\n") {
		field, clause, ok := fieldClause(l)
		if !ok {
			continue
		}
		rec := parseLine(clause, field, file, name, line)
		slog.Debug("found file_operations ioctl field", "struct", name, "field", rec.FopType, "location", rec.Location())
		records = append(records, rec)
	}
	return records, nil
}

// InitializerText rebuilds the body of every initializer below node. With
// strip set, cross-reference markup is removed and only text remains;
// otherwise child elements are re-serialized so refids survive.
func InitializerText(node *xmldoc.Node, strip bool) string {
	var b strings.Builder
	for _, init := range node.Descendants("initializer") {
		if strip {
			b.WriteString(init.FlatText())
			continue
		}
		b.WriteString(init.InnerMarkup())
	}
	return b.String()
}

func parseLine(line string, field types.FieldName, file, structName string, structLine int) types.OperationRecord {
	refID := ParseRefID(line)
	var function string
	if refID == "" {
		function = ParseBareSymbol(line)
	} else {
		function = ParseFunctionName(line)
	}
	return types.OperationRecord{
		FilePath:         file,
		StructName:       structName,
		StructLineNumber: structLine,
		FopType:          string(field),
		Function:         function,
		RefID:            refID,
	}
}

// ParseFieldName returns the recognized field designated on an initializer
// line, wherever it sits among the line's whitespace-separated words. A word
// matches when it is the field token, or the token glued to its assignment as
// in ".unlocked_ioctl=x,". It reports false for lines that assign no
// recognized field.
func ParseFieldName(line string) (types.FieldName, bool) {
	field, _, ok := fieldClause(line)
	return field, ok
}

// fieldClause finds the first recognized field word on the line and returns
// the assignment it starts, up to the next ','. Other fields sharing the line
// are left out of the clause.
func fieldClause(line string) (types.FieldName, string, bool) {
	start := -1
	check := func(end int) (types.FieldName, string, bool) {
		tok, _, _ := strings.Cut(line[start:end], "=")
		if f, ok := types.LookupIoctlField(tok); ok {
			clause, _, _ := strings.Cut(line[start:], ",")
			return f, clause, true
		}
		return "", "", false
	}
	for i, r := range line {
		switch {
		case !unicode.IsSpace(r):
			if start < 0 {
				start = i
			}
		case start >= 0:
			if f, clause, ok := check(i); ok {
				return f, clause, true
			}
			start = -1
		}
	}
	if start >= 0 {
		return check(len(line))
	}
	return "", "", false
}

// ParseRefID returns the value of the first refid="..." attribute on the
// line, or "" when there is none.
func ParseRefID(line string) string {
	_, rest, ok := strings.Cut(line, refIDAttr)
	if !ok {
		return ""
	}
	id, _, _ := strings.Cut(rest, `"`)
	return id
}

// ParseFunctionName returns the text wrapped by the line's <ref> element.
// It returns "" when the element is not closed.
func ParseFunctionName(line string) string {
	before, _, ok := strings.Cut(line, refClose)
	if !ok {
		return ""
	}
	i := strings.LastIndex(before, ">")
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(before[i+1:])
}

// ParseBareSymbol returns the symbol assigned without a cross-reference, as in
// ".compat_ioctl = compat_ptr_ioctl,". Of the words between the first '=' and
// the following ',' it picks the lexicographically greatest, which skips
// stray punctuation in front of identifiers.
func ParseBareSymbol(line string) string {
	_, rhs, ok := strings.Cut(line, "=")
	if !ok {
		return ""
	}
	value, _, _ := strings.Cut(rhs, ",")

	var best string
	for _, w := range strings.Fields(value) {
		if w > best {
			best = w
		}
	}
	return best
}

func memberLocation(node *xmldoc.Node) (string, int, error) {
	locs := node.Descendants("location")
	if len(locs) == 0 {
		return "", 0, fmt.Errorf("%w: no location", ErrIncompleteMember)
	}
	file, ok := locs[0].Attr("file")
	if !ok {
		return "", 0, fmt.Errorf("%w: location has no file", ErrIncompleteMember)
	}
	raw, _ := locs[0].Attr("line")
	line, err := strconv.Atoi(raw)
	if err != nil {
		return "", 0, fmt.Errorf("%w: bad line %q: %v", ErrIncompleteMember, raw, err)
	}
	return file, line, nil
}

func memberName(node *xmldoc.Node) (string, error) {
	n := node.Child("name")
	if n == nil {
		return "", fmt.Errorf("%w: no name", ErrIncompleteMember)
	}
	text, _ := n.Text()
	return strings.TrimSpace(text), nil
}
