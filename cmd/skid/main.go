// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Command skid recovers the ioctl interfaces of Linux device drivers from
// their source code.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/petar-djukic/skid/internal/logutil"
)

const (
	version        = "0.1.0"
	defaultLogFile = "/tmp/skid.log"
)

func main() {
	var logFile io.Closer

	rootCmd := &cobra.Command{
		Use:           "skid",
		Short:         "Recover device driver ioctl interfaces",
		Long:          "skid indexes kernel driver source with doxygen and lists the ioctl handlers assigned in file_operations structs.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			closer, err := setupLogging(os.Stderr, logOptions{
				Verbose: viper.GetBool("verbose"),
				Quiet:   viper.GetBool("quiet"),
				NoColor: viper.GetBool("no-color"),
				LogFile: viper.GetString("write-log"),
			})
			if err != nil {
				return err
			}
			logFile = closer
			return nil
		},
	}

	// Global flags.
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output and show doxygen's output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Only log warnings and errors")
	rootCmd.PersistentFlags().BoolP("no-color", "n", false, "Disable coloured log levels")
	rootCmd.PersistentFlags().StringP("write-log", "w", defaultLogFile, "Write a debug log to this file (empty to disable)")

	// Bind flags to viper.
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	viper.BindPFlag("no-color", rootCmd.PersistentFlags().Lookup("no-color"))
	viper.BindPFlag("write-log", rootCmd.PersistentFlags().Lookup("write-log"))

	// Env vars: SKID_SOURCE, SKID_VERBOSE, etc.
	viper.SetEnvPrefix("SKID")
	viper.AutomaticEnv()

	// Config file.
	viper.SetConfigName(".skid")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.ReadInConfig() // Ignore error; config file is optional.

	// Add commands.
	rootCmd.AddCommand(newIRCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newVersionCmd())

	err := rootCmd.Execute()
	if err != nil {
		slog.Error("skid failed", "error", err)
		if path := viper.GetString("write-log"); path != "" {
			slog.Warn("you can check the log file", "path", path)
		}
	}
	if logFile != nil {
		logFile.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}

type logOptions struct {
	Verbose bool
	Quiet   bool
	NoColor bool
	LogFile string
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// setupLogging installs the default logger: console records at INFO (DEBUG
// when verbose, WARN when quiet) and, unless disabled, every record in the
// log file. The returned closer closes that file.
func setupLogging(console io.Writer, opts logOptions) (io.Closer, error) {
	level := slog.LevelInfo
	switch {
	case opts.Verbose:
		level = slog.LevelDebug
	case opts.Quiet:
		level = slog.LevelWarn
	}
	colour := !opts.NoColor && !color.NoColor

	handlers := []slog.Handler{logutil.NewHandler(console, level, colour)}
	var closer io.Closer = nopCloser{}
	if opts.LogFile != "" {
		f, err := os.Create(opts.LogFile)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		handlers = append(handlers, logutil.NewHandler(f, slog.LevelDebug, false))
		closer = f
	}

	slog.SetDefault(slog.New(logutil.Fanout(handlers...)))
	return closer, nil
}

// newVersionCmd creates the "version" command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print skid version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "skid %s\n", version)
		},
	}
}
