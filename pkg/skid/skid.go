// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package skid defines the public interface for skid, which recovers the
// ioctl handler tables of Linux device drivers from their C source.
package skid

import (
	"context"
	"errors"

	"github.com/petar-djukic/skid/pkg/types"
)

// ErrInvalidConfig is returned by New for an unusable Config.
var ErrInvalidConfig = errors.New("invalid config")

// Observer receives progress for one batch stage.
type Observer interface {
	Start(total int)
	Step()
	Finish()
}

// Config configures a Recoverer.
type Config struct {
	SourceDir     string // Driver source tree to index (required)
	DoxygenConfig string // Doxygen override file (JSON, YAML or TOML), empty for none
	OutputDir     string // Doxygen output directory (default /tmp/skid-doxygen)
	ConfigPath    string // Where the doxygen configuration is written (default /tmp/skid-doxyconf)
	WarnLog       string // Doxygen warning log (default /tmp/doxygen.log)
	Header        string // Only mine documents including this header, empty for all
	SkipValidate  bool   // Do not check XML against doxygen's schema
	SkipCheck     bool   // Do not check that doxygen and clang are installed
	Workers       int    // Parallel documents (default runtime.NumCPU())
	Verbose       bool   // Pass doxygen's output through

	// Confirm is asked whether to discard earlier doxygen output. Nil keeps it.
	Confirm func(question string) bool

	// Progress returns the observer for a named batch stage. Nil reports nothing.
	Progress func(title string) Observer
}

// Result holds the outcome of a Recover invocation.
type Result struct {
	Records   []types.OperationRecord // One per ioctl field assignment
	XMLFiles  int                     // Documents doxygen produced
	Mined     int                     // Documents searched after validation and header selection
	Revision  *types.Revision         // Source revision, nil outside git
	Reindexed bool                    // Doxygen ran rather than reusing prior output
}

// Recoverer recovers ioctl interfaces from a source tree.
type Recoverer interface {
	// Recover indexes the source, mines the XML and returns the records.
	Recover(ctx context.Context) (*Result, error)
}
