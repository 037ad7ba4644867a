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

package fmterr_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/gx-org/weakform/build/fmterr"
)

func TestIsKind(t *testing.T) {
	err := fmterr.Errorf(fmterr.DuplicateFunction, "function %s declared twice", "u")
	if !fmterr.IsKind(err, fmterr.DuplicateFunction) {
		t.Errorf("%v is not a duplicate function error", err)
	}
	if fmterr.IsKind(err, fmterr.SizeMismatch) {
		t.Errorf("%v is a size mismatch error", err)
	}
	wrapped := fmterr.ToStackTraceError(fmterr.PrefixWith("setup: ")(err))
	if !fmterr.IsKind(wrapped, fmterr.DuplicateFunction) {
		t.Errorf("kind lost after wrapping: %v", wrapped)
	}
	if got, want := wrapped.Error(), "setup: duplicate function: function u declared twice"; got != want {
		t.Errorf("got %q but want %q", got, want)
	}
	if fmterr.IsKind(nil, fmterr.Internal) {
		t.Errorf("nil error has a kind")
	}
}

func TestAppender(t *testing.T) {
	var app fmterr.Appender
	if !app.Empty() {
		t.Errorf("new appender is not empty")
	}
	app.Appendf(fmterr.DuplicateFunction, "v declared twice")
	app.Push(fmterr.PrefixWith("unknowns: "))
	app.Appendf(fmterr.SizeMismatch, "2 unknowns but 1 evaluation point")
	if err := app.Err(); !fmterr.IsKind(err, fmterr.Internal) {
		t.Errorf("fetching errors with a non-empty stack: got %v", err)
	}
	app.Pop()
	errs := app.Errors()
	if len(errs) != 2 {
		t.Fatalf("got %d errors but want 2: %v", len(errs), errs)
	}
	if !strings.HasPrefix(errs[1].Error(), "unknowns: ") {
		t.Errorf("context not applied: %q", errs[1].Error())
	}
	err := app.Err()
	for _, kind := range []fmterr.Kind{fmterr.DuplicateFunction, fmterr.SizeMismatch} {
		if !fmterr.IsKind(err, kind) {
			t.Errorf("%v does not contain a %s error", err, kind)
		}
	}
	verbose := fmt.Sprintf("%+v", fmterr.ToStackTraceError(err))
	if !strings.Contains(verbose, "Error generated at:") {
		t.Errorf("verbose formatting has no stack trace:\n%s", verbose)
	}
}
