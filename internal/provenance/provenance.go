// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package provenance records which revision of a driver source tree a report
// was mined from.
package provenance

import (
	"errors"
	"fmt"

	gogit "github.com/go-git/go-git/v5"

	"github.com/petar-djukic/skid/pkg/types"
)

// ErrNoGit is returned when the directory is not inside a git work tree.
var ErrNoGit = errors.New("not a git repository")

// Describe opens the repository containing dir, searching parent
// directories, and reports its HEAD. Returns ErrNoGit if there is none.
func Describe(dir string) (types.Revision, error) {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return types.Revision{}, fmt.Errorf("%w: %v", ErrNoGit, err)
	}

	head, err := repo.Head()
	if err != nil {
		return types.Revision{}, fmt.Errorf("reading HEAD: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return types.Revision{}, fmt.Errorf("getting worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return types.Revision{}, fmt.Errorf("getting status: %w", err)
	}

	rev := types.Revision{
		Root:   wt.Filesystem.Root(),
		Commit: head.Hash().String(),
		Dirty:  !status.IsClean(),
	}
	if head.Name().IsBranch() {
		rev.Branch = head.Name().Short()
	}
	return rev, nil
}
