// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/petar-djukic/skid/internal/progress"
	"github.com/petar-djukic/skid/internal/report"
	"github.com/petar-djukic/skid/internal/workpool"
	"github.com/petar-djukic/skid/pkg/skid"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

// newIRCmd creates the "ir" (interface recovery) command.
func newIRCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ir",
		Aliases: []string{"interface-recovery"},
		Short:   "Recover ioctl handlers from driver source",
		Long:    "ir indexes the source tree with doxygen, drops XML that does not match doxygen's schema, and lists every unlocked_ioctl and compat_ioctl handler assigned in a file_operations struct.",
		RunE:    runIR,
	}

	cmd.Flags().StringP("source", "s", "", "Driver source directory (required)")
	cmd.Flags().String("doxyconf", "", "Doxygen override file (JSON, YAML or TOML)")
	cmd.Flags().BoolP("dont-validate", "d", false, "Skip XML schema validation")
	cmd.Flags().String("header", "", "Only search files that include this header, e.g. linux/fs.h")
	cmd.Flags().String("format", formatTable, "Output format: table or json")
	cmd.Flags().Bool("reuse", false, "Reuse prior doxygen output without asking")
	cmd.Flags().Bool("overwrite", false, "Discard prior doxygen output without asking")
	cmd.Flags().Bool("skip-check", false, "Do not check that doxygen and clang are installed")
	cmd.Flags().String("output-dir", "", "Doxygen output directory (default /tmp/skid-doxygen)")
	cmd.Flags().Int("workers", 0, "Documents searched in parallel (default: number of CPUs)")
	cmd.MarkFlagsMutuallyExclusive("reuse", "overwrite")

	for _, name := range []string{"source", "doxyconf", "dont-validate", "header", "format", "skip-check", "output-dir", "workers"} {
		viper.BindPFlag(name, cmd.Flags().Lookup(name))
	}

	return cmd
}

// runIR executes interface recovery and prints the records.
func runIR(cmd *cobra.Command, args []string) error {
	source := viper.GetString("source")
	if source == "" {
		return fmt.Errorf("--source is required")
	}
	format := viper.GetString("format")
	if format != formatTable && format != formatJSON {
		return fmt.Errorf("unknown format %q, want %s or %s", format, formatTable, formatJSON)
	}

	reuse, _ := cmd.Flags().GetBool("reuse")
	overwrite, _ := cmd.Flags().GetBool("overwrite")

	cfg := skid.Config{
		SourceDir:     source,
		DoxygenConfig: viper.GetString("doxyconf"),
		OutputDir:     viper.GetString("output-dir"),
		Header:        viper.GetString("header"),
		SkipValidate:  viper.GetBool("dont-validate"),
		SkipCheck:     viper.GetBool("skip-check"),
		Workers:       viper.GetInt("workers"),
		Verbose:       viper.GetBool("verbose"),
		Confirm:       confirmer(reuse, overwrite, os.Stdin, os.Stderr),
		Progress: func(title string) skid.Observer {
			if viper.GetBool("verbose") || viper.GetBool("quiet") {
				return workpool.Nop{}
			}
			return progress.For(os.Stderr, title)
		},
	}

	r, err := skid.New(cfg)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting interface recovery", "source", source)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	result, err := r.Recover(ctx)
	if err != nil {
		return err
	}

	report.Sort(result.Records)
	slog.Info("finished", "records", len(result.Records), "xml_files", result.XMLFiles, "searched", result.Mined)

	out := cmd.OutOrStdout()
	if format == formatJSON {
		return report.JSON(out, report.Report{
			Source:   source,
			Revision: result.Revision,
			XMLFiles: result.XMLFiles,
			Records:  result.Records,
		})
	}
	if result.Revision != nil {
		fmt.Fprintf(out, "source revision %s\n\n", result.Revision.Short())
	}
	report.Table(out, result.Records)
	return nil
}

// confirmer returns the question callback for prior doxygen output. Flags
// answer without asking; otherwise the user is prompted on in. An empty
// answer or end of input keeps the prior output.
func confirmer(reuse, overwrite bool, in io.Reader, out io.Writer) func(string) bool {
	switch {
	case reuse:
		return func(string) bool { return false }
	case overwrite:
		return func(string) bool { return true }
	}

	scanner := bufio.NewScanner(in)
	return func(question string) bool {
		for {
			fmt.Fprintf(out, "         : %s (y/N): ", question)
			if !scanner.Scan() {
				return false
			}
			answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
			switch {
			case answer == "" || strings.HasPrefix(answer, "n"):
				return false
			case strings.HasPrefix(answer, "y"):
				return true
			}
		}
	}
}
