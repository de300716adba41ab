// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package doxygen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// ErrDoxygenFailed is returned when doxygen exits with a non-zero status.
var ErrDoxygenFailed = errors.New("doxygen failed")

const (
	xmlSubdir  = "xml"
	indexFile  = "index.xml"
	schemaFile = "compound.xsd"
)

// Runner invokes doxygen with a written configuration file.
type Runner struct {
	Binary     string    // Executable (default "doxygen")
	ConfigPath string    // Configuration written by WriteConfig
	OutputDir  string    // OUTPUT_DIRECTORY of that configuration
	WarnLog    string    // WARN_LOGFILE, named in failure hints
	Verbose    bool      // Pass doxygen's output through
	Stdout     io.Writer // Destination when verbose (default os.Stdout)
}

// HasPriorOutput reports whether the output directory already holds results
// from an earlier run.
func (r *Runner) HasPriorOutput() (bool, error) {
	entries, err := os.ReadDir(r.OutputDir)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading output directory: %w", err)
	}
	return len(entries) > 0, nil
}

// Reset deletes earlier results and recreates an empty output directory.
func (r *Runner) Reset() error {
	if err := os.RemoveAll(r.OutputDir); err != nil {
		return fmt.Errorf("deleting old results at %s: %w", r.OutputDir, err)
	}
	if err := os.MkdirAll(r.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	return nil
}

// Run indexes the source tree. Doxygen's standard output is discarded unless
// the runner is verbose; its standard error is kept for the failure message.
func (r *Runner) Run(ctx context.Context) error {
	binary := r.Binary
	if binary == "" {
		binary = "doxygen"
	}
	if _, err := os.Stat(r.ConfigPath); err != nil {
		return fmt.Errorf("doxygen config: %w", err)
	}

	slog.Debug("indexing source code with doxygen, this might take a while", "config", r.ConfigPath)

	cmd := exec.CommandContext(ctx, binary, r.ConfigPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if r.Verbose {
		out := r.Stdout
		if out == nil {
			out = os.Stdout
		}
		cmd.Stdout = out
		cmd.Stderr = io.MultiWriter(&stderr, out)
	}

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return fmt.Errorf("running %s: %w", binary, err)
		}
		slog.Info("try again with -v enabled or read the doxygen warning log", "log", r.WarnLog)
		return fmt.Errorf("%w: exit status %d: %s", ErrDoxygenFailed, exitErr.ExitCode(), lastLine(stderr.String()))
	}

	slog.Debug("doxygen has finished indexing source code")
	return nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// XMLDir returns the directory doxygen writes XML into under outputDir.
func XMLDir(outputDir string) string {
	return filepath.Join(outputDir, xmlSubdir)
}

// SchemaPath returns the compound schema doxygen writes next to its XML.
func SchemaPath(xmlDir string) string {
	return filepath.Join(xmlDir, schemaFile)
}

// XMLFiles lists the per-compound XML documents in xmlDir, sorted. The index
// document is excluded since it holds no member definitions.
func XMLFiles(xmlDir string) ([]string, error) {
	entries, err := os.ReadDir(xmlDir)
	if err != nil {
		return nil, fmt.Errorf("listing XML output: %w", err)
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".xml") || name == indexFile {
			continue
		}
		files = append(files, filepath.Join(xmlDir, name))
	}
	sort.Strings(files)
	return files, nil
}
