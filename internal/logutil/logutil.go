// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package logutil builds the slog handlers used by the skid CLI: a text
// handler for the terminal with optional level colours, and a fan-out handler
// that also writes everything to a log file.
package logutil

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// NewHandler returns a text handler writing records at or above level to w.
// Source locations are shortened to the file's base name. With colour set,
// each line is coloured by its level whether or not w is a terminal.
func NewHandler(w io.Writer, level slog.Level, colour bool) slog.Handler {
	if !colour {
		return newTextHandler(w, level)
	}
	var mu sync.Mutex
	h := &colourHandler{}
	for i, lvl := range colourLevels {
		h.byLevel[i] = newTextHandler(&colourWriter{mu: &mu, w: w, c: levelColour(lvl)}, level)
	}
	return h
}

// NewLogger wraps NewHandler in a logger.
func NewLogger(w io.Writer, level slog.Level, colour bool) *slog.Logger {
	return slog.New(NewHandler(w, level, colour))
}

func newTextHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			if attr.Key == slog.SourceKey {
				if source, ok := attr.Value.Any().(*slog.Source); ok {
					source.File = filepath.Base(source.File)
				}
			}
			return attr
		},
	})
}

var colourLevels = [...]slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError}

func levelColour(l slog.Level) *color.Color {
	var c *color.Color
	switch l {
	case slog.LevelError:
		c = color.New(color.FgRed, color.Bold)
	case slog.LevelWarn:
		c = color.New(color.FgYellow)
	case slog.LevelInfo:
		c = color.New(color.FgGreen)
	default:
		c = color.New(color.FgBlue)
	}
	c.EnableColor()
	return c
}

// colourHandler routes each record to the text handler whose writer carries
// the record level's colour.
type colourHandler struct {
	byLevel [len(colourLevels)]slog.Handler
}

func (h *colourHandler) pick(l slog.Level) slog.Handler {
	for i := len(colourLevels) - 1; i > 0; i-- {
		if l >= colourLevels[i] {
			return h.byLevel[i]
		}
	}
	return h.byLevel[0]
}

func (h *colourHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.pick(l).Enabled(ctx, l)
}

func (h *colourHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.pick(r.Level).Handle(ctx, r)
}

func (h *colourHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := &colourHandler{}
	for i, inner := range h.byLevel {
		out.byLevel[i] = inner.WithAttrs(attrs)
	}
	return out
}

func (h *colourHandler) WithGroup(name string) slog.Handler {
	out := &colourHandler{}
	for i, inner := range h.byLevel {
		out.byLevel[i] = inner.WithGroup(name)
	}
	return out
}

// colourWriter colours whole lines. The text handler emits one line per
// Write; the shared mutex keeps lines from different levels apart.
type colourWriter struct {
	mu *sync.Mutex
	w  io.Writer
	c  *color.Color
}

func (cw *colourWriter) Write(p []byte) (int, error) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	line := strings.TrimSuffix(string(p), "\n")
	if _, err := io.WriteString(cw.w, cw.c.Sprint(line)+"\n"); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Fanout returns a handler that passes every record to each of handlers that
// is enabled for its level.
func Fanout(handlers ...slog.Handler) slog.Handler {
	return fanout(handlers)
}

type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
