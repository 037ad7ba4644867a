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

package diag_test

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/gx-org/weakform/base/diag"
)

func TestLog(t *testing.T) {
	var out strings.Builder
	logger := slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := diag.New(logger, diag.Low)
	ctx.Log(diag.Low, "preprocess", "expr", "u*u")
	ctx.Log(diag.High, "table", "entries", 3)
	got := out.String()
	if !strings.Contains(got, "msg=preprocess") || !strings.Contains(got, "expr=u*u") {
		t.Errorf("missing low verbosity message in:\n%s", got)
	}
	if strings.Contains(got, "table") {
		t.Errorf("high verbosity message logged at low verbosity:\n%s", got)
	}
}

func TestCountersAndTimers(t *testing.T) {
	ctx := diag.Discard()
	ctx.Count("b")
	ctx.Count("a")
	ctx.Count("b")
	stop := ctx.Time("pass")
	stop()
	if got, want := ctx.Counter("b"), 2; got != want {
		t.Errorf("got counter %d but want %d", got, want)
	}
	report := ctx.String()
	if !strings.Contains(report, "timer pass: 1 calls") {
		t.Errorf("missing timer in report:\n%s", report)
	}
	if !strings.Contains(report, "counter a: 1\ncounter b: 2\n") {
		t.Errorf("counters not sorted in report:\n%s", report)
	}
}

func TestNil(t *testing.T) {
	var ctx *diag.Context
	ctx.Count("a")
	ctx.Time("pass")()
	ctx.Log(diag.High, "ignored")
	if ctx.Counter("a") != 0 || ctx.Enabled(diag.Low) {
		t.Errorf("nil context recorded diagnostics")
	}
	if diag.OrDiscard(ctx) == nil {
		t.Errorf("OrDiscard returned nil")
	}
}
