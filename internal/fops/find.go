// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package fops

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/petar-djukic/skid/internal/workpool"
	"github.com/petar-djukic/skid/internal/xmldoc"
	"github.com/petar-djukic/skid/pkg/types"
)

// Options configures a batch search.
type Options struct {
	Workers  int               // Parallel documents (default runtime.NumCPU())
	Observer workpool.Observer // Progress observer (default none)
}

// Find searches every XML document for file_operations structs and returns
// their ioctl records. Records from one document keep initializer order;
// documents complete in any order. An empty path list is a precondition
// violation. Finding nothing is logged loudly but is not an error. If ctx is
// done before every document was searched, the partial result is dropped and
// ctx.Err() is returned.
func Find(ctx context.Context, paths []string, opts Options) ([]types.OperationRecord, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no XML documents to search", xmldoc.ErrPrecondition)
	}

	perDoc := workpool.Map(ctx, paths, opts.Workers, FindInFile, opts.Observer)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := []types.OperationRecord{}
	for _, recs := range perDoc {
		records = append(records, recs...)
	}

	slog.Debug("found ioctl file_operations handler function pointers", "count", len(records))
	logResults(records)
	return records, nil
}

// FindInFile returns the ioctl records of every file_operations struct in one
// XML document. A document that cannot be loaded is logged and yields nothing.
func FindInFile(path string) []types.OperationRecord {
	slog.Debug("finding structs", "file", path)
	doc, err := xmldoc.Load(path)
	if err != nil {
		slog.Error("skipping XML document", "file", path, "error", err)
		return nil
	}
	return FindInDocument(doc)
}

// FindInDocument returns the ioctl records of every file_operations struct in
// a parsed document.
func FindInDocument(doc *xmldoc.Document) []types.OperationRecord {
	var records []types.OperationRecord
	for _, member := range doc.Nodes("memberdef") {
		ok, err := IsOperationTable(member)
		if err != nil || !ok {
			continue
		}
		recs, err := MineStruct(member)
		if err != nil {
			id, _ := member.Attr("id")
			slog.Warn("skipping file_operations struct", "file", doc.Path, "id", id, "error", err)
			continue
		}
		records = append(records, recs...)
	}
	return records
}

func logResults(records []types.OperationRecord) {
	if len(records) == 0 {
		slog.Error("no file_operations structs could be found in the source code")
		return
	}
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	out, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return
	}
	slog.Debug("ioctl records", "records", string(out))
}
