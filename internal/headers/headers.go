// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package headers pre-selects doxygen XML documents whose program listing
// includes a given header, e.g. linux/fs.h for character drivers.
package headers

import (
	"context"
	"log/slog"
	"strings"

	"github.com/petar-djukic/skid/internal/workpool"
	"github.com/petar-djukic/skid/internal/xmldoc"
)

// DefaultHeader declares struct file_operations.
const DefaultHeader = "linux/fs.h"

const preprocessorClass = "preprocessor"

// HasHeader reports whether any include directive in the document's program
// listing names header. A highlight token is an include directive when its
// leading text contains both "#" and "include" and its class is
// "preprocessor".
func HasHeader(doc *xmldoc.Document, header string) bool {
	for _, line := range doc.Nodes("codeline") {
		for _, hl := range line.Descendants("highlight") {
			if !isInclude(hl) {
				continue
			}
			if strings.Contains(hl.FlatText(), header) {
				return true
			}
		}
	}
	return false
}

func isInclude(hl *xmldoc.Node) bool {
	text, ok := hl.Text()
	if !ok || !strings.Contains(text, "#") || !strings.Contains(text, "include") {
		return false
	}
	class, _ := hl.Attr("class")
	return class == preprocessorClass
}

// FileHasHeader loads path and tests it with HasHeader. A document that
// cannot be loaded does not include anything.
func FileHasHeader(path, header string) bool {
	doc, err := xmldoc.Load(path)
	if err != nil {
		slog.Error("skipping XML document", "file", path, "error", err)
		return false
	}
	if !HasHeader(doc, header) {
		return false
	}
	slog.Debug("file includes header", "file", path, "header", header)
	return true
}

// FilterByHeader keeps the documents that include header. The result order is
// not guaranteed. A cancelled ctx returns ctx.Err() instead of a partial list.
func FilterByHeader(ctx context.Context, paths []string, header string, obs workpool.Observer) ([]string, error) {
	type verdict struct {
		path string
		keep bool
	}
	verdicts := workpool.Map(ctx, paths, 0, func(p string) verdict {
		return verdict{path: p, keep: FileHasHeader(p, header)}
	}, obs)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var keep []string
	for _, v := range verdicts {
		if v.keep {
			keep = append(keep, v.path)
		}
	}
	slog.Info("selected source files by header", "header", header, "kept", len(keep), "total", len(paths))
	return keep, nil
}
