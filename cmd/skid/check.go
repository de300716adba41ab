// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/petar-djukic/skid/internal/doxygen"
)

// newCheckCmd creates the "check" command.
func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that doxygen and clang are installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := doxygen.CheckInstall(cmd.Context(), doxygen.DefaultTools()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All required tools are installed.")
			return nil
		},
	}
}
