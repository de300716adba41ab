// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package progress renders a single-line progress bar for batch stages. A Bar
// implements workpool.Observer, so the pool reports completions without
// knowing how they are displayed.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/petar-djukic/skid/internal/workpool"
)

const (
	defaultTermWidth = 80
	titleWidth       = 75
	titlePrefix      = "---------> "
	minBarWidth      = 10
)

// FormatTitle pads a stage title with dashes so consecutive stages line up.
func FormatTitle(title string) string {
	if n := titleWidth - len(title); n > 0 {
		title += strings.Repeat("-", n)
	}
	return titlePrefix + title
}

// Bar draws "title ▕████    ▏ n/total (elapsed)" on one line, redrawing it in
// place after every step.
type Bar struct {
	mu      sync.Mutex
	w       io.Writer
	title   string
	width   int
	total   int
	done    int
	started time.Time
}

// NewBar returns a bar writing to w. The width follows the terminal when w is
// one and defaults to 80 columns otherwise.
func NewBar(w io.Writer, title string) *Bar {
	width := defaultTermWidth
	if f, ok := w.(*os.File); ok {
		if tw, _, err := term.GetSize(int(f.Fd())); err == nil && tw > 0 {
			width = tw
		}
	}
	return &Bar{w: w, title: FormatTitle(title), width: width}
}

// For returns a Bar when w is a terminal and a no-op observer otherwise, so
// redirected output and log files stay free of carriage returns.
func For(w io.Writer, title string) workpool.Observer {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return workpool.Nop{}
	}
	return NewBar(w, title)
}

func (b *Bar) Start(total int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.total = total
	b.done = 0
	b.started = time.Now()
	b.render()
}

func (b *Bar) Step() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done < b.total {
		b.done++
	}
	b.render()
}

func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.render()
	fmt.Fprintln(b.w)
}

func (b *Bar) render() {
	fmt.Fprint(b.w, "\r", b.String())
}

// String renders the bar without a leading carriage return. Callers must
// hold b.mu or own b exclusively.
func (b *Bar) String() string {
	var pre, mid, suf strings.Builder

	pre.WriteString(b.title)
	pre.WriteString(" ")

	fmt.Fprintf(&suf, " %d/%d", b.done, b.total)
	if !b.started.IsZero() {
		fmt.Fprintf(&suf, " (%s)", time.Since(b.started).Round(time.Second))
	}

	// 2 boundary characters; padded titles are wider than narrow terminals
	f := max(b.width-len(pre.String())-len(suf.String())-2, minBarWidth)
	n := 0
	if b.total > 0 {
		n = f * b.done / b.total
	}
	mid.WriteString("▕")
	mid.WriteString(strings.Repeat("█", n))
	mid.WriteString(strings.Repeat(" ", f-n))
	mid.WriteString("▏")

	return pre.String() + mid.String() + suf.String()
}
