// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package diag provides a diagnostics context passed explicitly to the
// preprocessing and evaluation passes: a structured logger with a
// verbosity level, named timers, and named counters.
package diag

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/gx-org/weakform/base/ordered"
)

// Verbosity controls how much is logged.
type Verbosity int

const (
	// Silent logs nothing.
	Silent Verbosity = iota
	// Low logs one line per pass.
	Low
	// Medium logs one line per node.
	Medium
	// High logs sparsity tables and numerical results.
	High
)

type timer struct {
	calls int
	total time.Duration
}

// Context collects diagnostics. A nil *Context is valid and discards everything.
type Context struct {
	logger    *slog.Logger
	verbosity Verbosity
	timers    *ordered.Map[string, *timer]
	counters  *ordered.Map[string, int]
}

// New returns a diagnostics context logging to logger up to the given verbosity.
func New(logger *slog.Logger, verbosity Verbosity) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{
		logger:    logger,
		verbosity: verbosity,
		timers:    ordered.NewMap[string, *timer](),
		counters:  ordered.NewMap[string, int](),
	}
}

// Discard returns a context which does not log but still records timers and counters.
func Discard() *Context {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), Silent)
}

// OrDiscard returns ctx or a discarding context if ctx is nil.
func OrDiscard(ctx *Context) *Context {
	if ctx == nil {
		return Discard()
	}
	return ctx
}

// Enabled returns true if messages at the given verbosity are logged.
func (ctx *Context) Enabled(v Verbosity) bool {
	return ctx != nil && v != Silent && v <= ctx.verbosity
}

// Log a message with structured attributes at the given verbosity.
func (ctx *Context) Log(v Verbosity, msg string, args ...any) {
	if !ctx.Enabled(v) {
		return
	}
	ctx.logger.Log(context.Background(), slog.LevelDebug, msg, append(args, "verbosity", int(v))...)
}

// Logger returns the underlying logger.
func (ctx *Context) Logger() *slog.Logger {
	return ctx.logger
}

// Time starts a timer and returns the function stopping it.
//
//	defer ctx.Time("preprocess")()
func (ctx *Context) Time(name string) func() {
	if ctx == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		t, ok := ctx.timers.Load(name)
		if !ok {
			t = &timer{}
			ctx.timers.Store(name, t)
		}
		t.calls++
		t.total += time.Since(start)
	}
}

// Count increments a named counter.
func (ctx *Context) Count(name string) {
	if ctx == nil {
		return
	}
	n, _ := ctx.counters.Load(name)
	ctx.counters.Store(name, n+1)
}

// Counter returns the value of a named counter.
func (ctx *Context) Counter(name string) int {
	if ctx == nil {
		return 0
	}
	n, _ := ctx.counters.Load(name)
	return n
}

// Report writes all timers and counters.
func (ctx *Context) Report(w io.Writer) {
	if ctx == nil {
		return
	}
	for name, t := range ctx.timers.Iter() {
		fmt.Fprintf(w, "timer %s: %d calls, %s\n", name, t.calls, t.total)
	}
	names := slices.Sorted(ctx.counters.Keys())
	for _, name := range names {
		n, _ := ctx.counters.Load(name)
		fmt.Fprintf(w, "counter %s: %d\n", name, n)
	}
}

func (ctx *Context) String() string {
	var b strings.Builder
	ctx.Report(&b)
	return b.String()
}
