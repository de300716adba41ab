// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package types

const shortHashLen = 12

// Revision identifies the checked-out state of the source tree a report was
// mined from.
type Revision struct {
	Root   string `json:"root"`             // Work tree root
	Commit string `json:"commit"`           // HEAD commit hash
	Branch string `json:"branch,omitempty"` // Short branch name, empty when detached
	Dirty  bool   `json:"dirty"`            // Uncommitted changes present
}

// Short returns an abbreviated commit hash with a "-dirty" suffix when the
// work tree has changes.
func (r Revision) Short() string {
	s := r.Commit
	if len(s) > shortHashLen {
		s = s[:shortHashLen]
	}
	if r.Dirty {
		s += "-dirty"
	}
	return s
}
