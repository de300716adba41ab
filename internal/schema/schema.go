// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package schema checks doxygen XML output against the compound.xsd schema
// doxygen writes next to it. Doxygen does not always produce XML that
// conforms to its own schema, and such documents are dropped before mining.
package schema

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jacoelho/xsd"
	xsderrors "github.com/jacoelho/xsd/errors"

	"github.com/petar-djukic/skid/internal/workpool"
	"github.com/petar-djukic/skid/internal/xmldoc"
)

// Schema is a compiled XSD ruleset. It is read-only after Compile and safe
// to share between goroutines.
type Schema struct {
	Path string
	xsd  *xsd.Schema
}

// Compile loads and compiles the schema at path. A missing file is returned
// as the wrapped OS error; an empty or unparsable schema is ErrMalformed.
func Compile(path string) (*Schema, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	if info.Size() == 0 {
		logSchemaGuidance(path)
		return nil, fmt.Errorf("%w: schema %s is empty", xmldoc.ErrMalformed, path)
	}

	s, err := xsd.LoadFile(path)
	if err != nil {
		logSchemaGuidance(path)
		return nil, fmt.Errorf("%w: schema %s: %v", xmldoc.ErrMalformed, path, err)
	}
	slog.Debug("compiled XML schema", "path", path)
	return &Schema{Path: path, xsd: s}, nil
}

func logSchemaGuidance(path string) {
	slog.Warn("doxygen failed to make an XML schema; do you have space left on your device?", "path", path)
}

// Validate reports whether the document at path conforms to the schema.
// Non-conformance is logged and returned as false with a nil error. Bytes
// that are not well-formed XML are ErrMalformed. A nil schema is a
// precondition violation.
func (s *Schema) Validate(path string) (bool, error) {
	if s == nil || s.xsd == nil {
		return false, fmt.Errorf("%w: schema not compiled", xmldoc.ErrPrecondition)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := xmldoc.CheckWellFormed(data); err != nil {
		return false, fmt.Errorf("%w: %s: %v", xmldoc.ErrMalformed, path, err)
	}

	slog.Debug("validating", "file", path)
	err = s.xsd.Validate(bytes.NewReader(data))
	if err == nil {
		return true, nil
	}

	violations, ok := xsderrors.AsValidations(err)
	if !ok {
		return false, fmt.Errorf("validating %s: %w", path, err)
	}
	for _, v := range violations {
		if v.Code == string(xsderrors.ErrXMLParse) || v.Code == string(xsderrors.ErrNoRoot) {
			return false, fmt.Errorf("%w: %s: %s", xmldoc.ErrMalformed, path, v.Message)
		}
	}

	slog.Warn("validating schema failed, skipping this XML file", "file", path, "violations", len(violations))
	for _, v := range violations {
		slog.Warn("schema violation", "file", path, "code", v.Code, "line", v.Line, "path", v.Path, "message", v.Message)
	}
	return false, nil
}

// FilterValid keeps the documents that conform to s. Documents that fail to
// parse are logged and dropped. The result order is not guaranteed. A
// cancelled ctx returns ctx.Err() instead of a partial list.
func FilterValid(ctx context.Context, s *Schema, paths []string, obs workpool.Observer) ([]string, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: schema not compiled", xmldoc.ErrPrecondition)
	}

	type verdict struct {
		path string
		ok   bool
	}
	verdicts := workpool.Map(ctx, paths, 0, func(p string) verdict {
		ok, err := s.Validate(p)
		if err != nil {
			slog.Error("failed to parse, skipping this XML file", "file", p, "error", err)
		}
		return verdict{path: p, ok: ok}
	}, obs)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var valid []string
	for _, v := range verdicts {
		if v.ok {
			valid = append(valid, v.path)
		}
	}
	slog.Info("validated XML files against schema", "valid", len(valid), "total", len(paths))
	return valid, nil
}
