// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package recovery implements the interface recovery pipeline: index the
// driver source with doxygen, narrow the XML it produces, and mine the
// remaining documents for ioctl handlers.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/petar-djukic/skid/internal/doxygen"
	"github.com/petar-djukic/skid/internal/fops"
	"github.com/petar-djukic/skid/internal/headers"
	"github.com/petar-djukic/skid/internal/provenance"
	"github.com/petar-djukic/skid/internal/schema"
	"github.com/petar-djukic/skid/internal/workpool"
	"github.com/petar-djukic/skid/pkg/types"
)

// ErrNoXMLFiles is returned when doxygen leaves no XML documents to mine.
var ErrNoXMLFiles = errors.New("no XML files produced by doxygen")

// Indexer produces doxygen output. *doxygen.Runner is the real one.
type Indexer interface {
	HasPriorOutput() (bool, error)
	Reset() error
	Run(ctx context.Context) error
}

// Result holds the outcome of a Runner.Run invocation.
type Result struct {
	Records   []types.OperationRecord
	XMLFiles  []string        // Documents produced by doxygen
	Mined     int             // Documents left after validation and header selection
	Revision  *types.Revision // Nil when the source is not in a git work tree
	Reindexed bool            // Doxygen ran rather than reusing prior output
}

// Deps holds injected dependencies and settings for the runner.
type Deps struct {
	SourceDir    string
	OutputDir    string
	ConfigPath   string
	WarnLog      string
	Overrides    string // Doxygen override file, empty for none
	Header       string // Keep only documents including this header; empty keeps all
	Validate     bool
	CheckInstall bool
	Workers      int
	Verbose      bool

	Tools   []doxygen.Tool // Checked when CheckInstall is set (default doxygen.DefaultTools())
	Indexer Indexer        // Fake for testing; default runs doxygen

	// Confirm is asked whether to discard prior doxygen output. Nil keeps it.
	Confirm func(question string) bool

	// Progress returns the observer for a named batch stage. Nil reports nothing.
	Progress func(title string) workpool.Observer
}

// Runner orchestrates interface recovery.
type Runner struct {
	deps Deps
}

// NewRunner creates a Runner with the given dependencies.
func NewRunner(deps Deps) *Runner {
	if deps.Indexer == nil {
		deps.Indexer = &doxygen.Runner{
			ConfigPath: deps.ConfigPath,
			OutputDir:  deps.OutputDir,
			WarnLog:    deps.WarnLog,
			Verbose:    deps.Verbose,
		}
	}
	if deps.Tools == nil {
		deps.Tools = doxygen.DefaultTools()
	}
	return &Runner{deps: deps}
}

// Run executes the pipeline: check tools, configure and run doxygen, list
// its XML, validate, select by header, mine, and stamp the source revision.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	result := &Result{}

	// Step 1: Toolchain.
	if r.deps.CheckInstall {
		if err := doxygen.CheckInstall(ctx, r.deps.Tools); err != nil {
			return result, err
		}
	}

	// Step 2: Doxygen configuration.
	if err := r.configure(); err != nil {
		return result, err
	}

	// Step 3: Index, unless prior output is kept.
	reindex, err := r.shouldIndex()
	if err != nil {
		return result, err
	}
	if reindex {
		if err := r.deps.Indexer.Run(ctx); err != nil {
			return result, fmt.Errorf("indexing source code: %w", err)
		}
		result.Reindexed = true
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	// Step 4: XML inventory.
	xmlDir := doxygen.XMLDir(r.deps.OutputDir)
	files, err := doxygen.XMLFiles(xmlDir)
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrNoXMLFiles, err)
	}
	if len(files) == 0 {
		return result, fmt.Errorf("%w: %s is empty", ErrNoXMLFiles, xmlDir)
	}
	result.XMLFiles = files
	slog.Info("found XML files", "count", len(files), "dir", xmlDir)

	// Step 5: Schema validation.
	if r.deps.Validate {
		s, err := schema.Compile(doxygen.SchemaPath(xmlDir))
		if err != nil {
			return result, fmt.Errorf("loading doxygen schema: %w", err)
		}
		files, err = schema.FilterValid(ctx, s, files, r.observer("Validating file schemas"))
		if err != nil {
			return result, err
		}
	}

	// Step 6: Header pre-selection.
	if r.deps.Header != "" && len(files) > 0 {
		title := fmt.Sprintf("Finding source files that include '%s'", r.deps.Header)
		files, err = headers.FilterByHeader(ctx, files, r.deps.Header, r.observer(title))
		if err != nil {
			return result, err
		}
	}
	result.Mined = len(files)

	// Step 7: Mining.
	if len(files) == 0 {
		slog.Error("no XML files left to search", "validated", r.deps.Validate, "header", r.deps.Header)
		result.Records = []types.OperationRecord{}
	} else {
		records, err := fops.Find(ctx, files, fops.Options{
			Workers:  r.deps.Workers,
			Observer: r.observer("Finding file_operations structs"),
		})
		if err != nil {
			return result, err
		}
		result.Records = records
	}

	// Step 8: Provenance.
	rev, err := provenance.Describe(r.deps.SourceDir)
	switch {
	case err == nil:
		result.Revision = &rev
	case errors.Is(err, provenance.ErrNoGit):
		slog.Debug("source is not in a git work tree", "source", r.deps.SourceDir)
	default:
		slog.Warn("could not describe source revision", "source", r.deps.SourceDir, "error", err)
	}

	return result, nil
}

func (r *Runner) configure() error {
	cfg := doxygen.DefaultConfig(r.deps.SourceDir, r.deps.OutputDir, r.deps.WarnLog)
	if r.deps.Overrides != "" {
		over, err := doxygen.LoadOverrides(r.deps.Overrides)
		if err != nil {
			return fmt.Errorf("failed to configure doxygen: %w", err)
		}
		slog.Info("setting doxygen user supplied configurations", "path", r.deps.Overrides, "count", len(over))
		cfg = doxygen.Merge(cfg, over)
	}
	if err := doxygen.WriteConfig(cfg, r.deps.ConfigPath); err != nil {
		return fmt.Errorf("failed to configure doxygen: %w", err)
	}
	return nil
}

// shouldIndex decides whether doxygen must run. Indexing a large tree is
// expensive, so prior output is reused unless Confirm asks to discard it.
func (r *Runner) shouldIndex() (bool, error) {
	prior, err := r.deps.Indexer.HasPriorOutput()
	if err != nil {
		return false, err
	}
	if !prior {
		return true, nil
	}

	slog.Warn("previous doxygen results found", "dir", r.deps.OutputDir)
	if r.deps.Confirm == nil || !r.deps.Confirm("Do you want to overwrite it") {
		slog.Info("using previous doxygen results")
		return false, nil
	}
	if err := r.deps.Indexer.Reset(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Runner) observer(title string) workpool.Observer {
	if r.deps.Progress == nil {
		return workpool.Nop{}
	}
	return r.deps.Progress(title)
}
