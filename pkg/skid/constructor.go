// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package skid

import (
	"context"
	"fmt"
	"os"

	"github.com/petar-djukic/skid/internal/doxygen"
	"github.com/petar-djukic/skid/internal/recovery"
	"github.com/petar-djukic/skid/internal/workpool"
)

// New validates the config and returns a ready-to-use Recoverer. It does not
// touch doxygen; that happens in Recover.
func New(cfg Config) (Recoverer, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	applyDefaults(&cfg)

	deps := recovery.Deps{
		SourceDir:    cfg.SourceDir,
		OutputDir:    cfg.OutputDir,
		ConfigPath:   cfg.ConfigPath,
		WarnLog:      cfg.WarnLog,
		Overrides:    cfg.DoxygenConfig,
		Header:       cfg.Header,
		Validate:     !cfg.SkipValidate,
		CheckInstall: !cfg.SkipCheck,
		Workers:      cfg.Workers,
		Verbose:      cfg.Verbose,
		Confirm:      cfg.Confirm,
	}
	if cfg.Progress != nil {
		deps.Progress = func(title string) workpool.Observer { return cfg.Progress(title) }
	}

	return &recovererAdapter{runner: recovery.NewRunner(deps)}, nil
}

// recovererAdapter adapts internal/recovery.Runner to the public Recoverer
// interface.
type recovererAdapter struct {
	runner *recovery.Runner
}

func (a *recovererAdapter) Recover(ctx context.Context) (*Result, error) {
	ir, err := a.runner.Run(ctx)
	if ir == nil {
		return &Result{}, err
	}
	return &Result{
		Records:   ir.Records,
		XMLFiles:  len(ir.XMLFiles),
		Mined:     ir.Mined,
		Revision:  ir.Revision,
		Reindexed: ir.Reindexed,
	}, err
}

// validateConfig checks that required fields are present.
func validateConfig(cfg Config) error {
	if cfg.SourceDir == "" {
		return fmt.Errorf("SourceDir is required")
	}
	if info, err := os.Stat(cfg.SourceDir); err != nil || !info.IsDir() {
		return fmt.Errorf("source directory %q does not exist or is not a directory", cfg.SourceDir)
	}
	if cfg.DoxygenConfig != "" {
		if info, err := os.Stat(cfg.DoxygenConfig); err != nil || info.IsDir() {
			return fmt.Errorf("doxygen config %q does not exist or is not a file", cfg.DoxygenConfig)
		}
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("Workers must not be negative, got %d", cfg.Workers)
	}
	return nil
}

// applyDefaults fills in zero-value fields with their defaults.
func applyDefaults(cfg *Config) {
	if cfg.OutputDir == "" {
		cfg.OutputDir = doxygen.DefaultOutputDir
	}
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = doxygen.DefaultConfigPath
	}
	if cfg.WarnLog == "" {
		cfg.WarnLog = doxygen.DefaultWarnLog
	}
}
