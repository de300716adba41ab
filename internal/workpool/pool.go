// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package workpool fans independent units of work out over a bounded set of
// goroutines and reports completion to an injected observer.
package workpool

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Observer is told about progress. Step is called exactly once per completed
// unit, from whichever worker completed it.
type Observer interface {
	Start(total int)
	Step()
	Finish()
}

// Nop is an Observer that ignores every call.
type Nop struct{}

func (Nop) Start(int) {}
func (Nop) Step()     {}
func (Nop) Finish()   {}

// Map runs fn once per input using at most workers goroutines and returns the
// results in completion order. If workers <= 0 it defaults to
// runtime.NumCPU(). A nil observer is treated as Nop.
//
// Cancelling ctx stops the submission of inputs that have not started yet;
// units already running finish normally and their results are kept.
func Map[In, Out any](ctx context.Context, inputs []In, workers int, fn func(In) Out, obs Observer) []Out {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if obs == nil {
		obs = Nop{}
	}

	obs.Start(len(inputs))
	defer obs.Finish()

	var (
		mu      sync.Mutex
		results = make([]Out, 0, len(inputs))
	)

	var g errgroup.Group
	g.SetLimit(workers)

	for _, in := range inputs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			out := fn(in)
			mu.Lock()
			results = append(results, out)
			mu.Unlock()
			obs.Step()
			return nil
		})
	}

	// Workers never return errors; Wait only joins them.
	_ = g.Wait()
	return results
}
