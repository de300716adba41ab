// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package doxygen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// ErrToolMissing is returned when a required executable cannot be run.
var ErrToolMissing = errors.New("required tool not found")

const checkTimeout = 30 * time.Second

// Tool is an executable skid depends on and how to read its version.
type Tool struct {
	Name    string
	Args    []string
	Version func(stdout, stderr string) string // "" when unknown
}

// DefaultTools returns doxygen and clang.
func DefaultTools() []Tool {
	return []Tool{
		{
			Name: "doxygen",
			Args: []string{"--version"},
			Version: func(stdout, _ string) string {
				return strings.TrimSpace(strings.SplitN(stdout, " ", 2)[0])
			},
		},
		{
			Name: "clang",
			Args: []string{"-v"},
			Version: func(_, stderr string) string {
				first, _, _ := strings.Cut(stderr, "\n")
				words := strings.Split(first, " ")
				if len(words) < 3 {
					return ""
				}
				return strings.TrimSpace(words[2])
			},
		},
	}
}

// CheckInstall logs the runtime environment and runs each tool once. It
// returns ErrToolMissing naming the first tool that fails to run.
func CheckInstall(ctx context.Context, tools []Tool) error {
	slog.Info("system configuration", "os", runtime.GOOS, "arch", runtime.GOARCH, "cpus", runtime.NumCPU(), "go", runtime.Version())

	for _, tool := range tools {
		stdout, stderr, err := runCommand(ctx, checkTimeout, tool.Name, tool.Args...)
		if err != nil {
			slog.Error(fmt.Sprintf("failed to find %s, is it installed?", tool.Name), "error", err)
			return fmt.Errorf("%w: %s", ErrToolMissing, tool.Name)
		}

		version := ""
		if tool.Version != nil {
			version = tool.Version(stdout, stderr)
		}
		if version == "" {
			slog.Warn("failed to get tool version", "tool", tool.Name)
			continue
		}
		slog.Info("found tool", "tool", tool.Name, "version", version)
	}
	return nil
}

// runCommand executes a command with a timeout and captures its output streams.
func runCommand(ctx context.Context, timeout time.Duration, name string, args ...string) (string, string, error) {
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}
