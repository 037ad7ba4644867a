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

package kernels_test

import (
	"go/token"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/weakform/build/fmterr"
	"github.com/gx-org/weakform/interp/kernels"
)

func values(x kernels.Operand) []float64 {
	if x.IsAtomic() {
		return []float64{x.Atom()}
	}
	return x.Vector().Flat()
}

func TestBinaryOp(t *testing.T) {
	vec := func() kernels.Operand { return kernels.Vec(kernels.VectorOf(1, 2, 3)) }
	atom := kernels.Atom(2)
	tests := []struct {
		op   token.Token
		x, y kernels.Operand
		want []float64
	}{
		{op: token.ADD, x: atom, y: atom, want: []float64{4}},
		{op: token.SUB, x: atom, y: kernels.Atom(3), want: []float64{-1}},
		{op: token.MUL, x: atom, y: atom, want: []float64{4}},
		{op: token.ADD, x: atom, y: vec(), want: []float64{3, 4, 5}},
		{op: token.SUB, x: atom, y: vec(), want: []float64{1, 0, -1}},
		{op: token.MUL, x: atom, y: vec(), want: []float64{2, 4, 6}},
		{op: token.ADD, x: vec(), y: atom, want: []float64{3, 4, 5}},
		{op: token.SUB, x: vec(), y: atom, want: []float64{-1, 0, 1}},
		{op: token.MUL, x: vec(), y: atom, want: []float64{2, 4, 6}},
		{op: token.ADD, x: vec(), y: vec(), want: []float64{2, 4, 6}},
		{op: token.SUB, x: vec(), y: vec(), want: []float64{0, 0, 0}},
		{op: token.MUL, x: vec(), y: vec(), want: []float64{1, 4, 9}},
	}
	for i, test := range tests {
		kernel, shape, err := kernels.BinaryOp(test.op, test.x.Shape(), test.y.Shape())
		if err != nil {
			t.Errorf("test %d: %v", i, err)
			continue
		}
		out := kernels.NewVector(3)
		got := kernel(test.x, test.y, out)
		if !cmp.Equal(values(got), test.want) {
			t.Errorf("test %d: %s %s %s = %v but want %v", i, test.x, test.op, test.y, values(got), test.want)
		}
		if got.IsAtomic() != (len(shape.AxisLengths) == 0) {
			t.Errorf("test %d: result %s does not match shape %s", i, got, shape)
		}
	}
	if _, _, err := kernels.BinaryOp(token.QUO, atom.Shape(), atom.Shape()); !fmterr.IsKind(err, fmterr.Internal) {
		t.Errorf("got error %v for an unsupported operator", err)
	}
	short := kernels.Vec(kernels.VectorOf(1, 2))
	if _, _, err := kernels.BinaryOp(token.ADD, short.Shape(), vec().Shape()); !fmterr.IsKind(err, fmterr.SizeMismatch) {
		t.Errorf("got error %v for vectors of different sizes", err)
	}
}

func TestAccumulate(t *testing.T) {
	dst := kernels.VectorOf(1, 1)
	kernels.Accumulate(dst, 2, kernels.Atom(3))
	kernels.Accumulate(dst, -1, kernels.Vec(kernels.VectorOf(1, 2)))
	kernels.MulInPlace(dst, kernels.Vec(kernels.VectorOf(2, 0.5)))
	kernels.MulInPlace(dst, kernels.Atom(-1))
	if got, want := dst.Flat(), []float64{-12, -2.5}; !cmp.Equal(got, want) {
		t.Errorf("got %v but want %v", got, want)
	}
}

func TestPool(t *testing.T) {
	pool := kernels.NewPool(4, 1)
	v1 := pool.Pop()
	v1.Fill(3)
	v2 := pool.Pop()
	if got, want := pool.Outstanding(), 2; got != want {
		t.Errorf("got %d outstanding vectors but want %d", got, want)
	}
	if got, want := pool.Allocated(), 2; got != want {
		t.Errorf("got %d allocated vectors but want %d", got, want)
	}
	if err := pool.ReleaseAll([]*kernels.Vector{v1, nil, v2}); err != nil {
		t.Fatal(err)
	}
	if err := pool.Release(v1); !fmterr.IsKind(err, fmterr.Internal) {
		t.Errorf("got error %v when releasing a vector twice", err)
	}
	if err := pool.Release(kernels.NewVector(4)); !fmterr.IsKind(err, fmterr.Internal) {
		t.Errorf("got error %v when releasing a foreign vector", err)
	}
	v3 := pool.Pop()
	if got, want := v3.Flat(), []float64{0, 0, 0, 0}; !cmp.Equal(got, want) {
		t.Errorf("recycled vector not zeroed: got %v", got)
	}
	if pool.Outstanding() != 1 || pool.Allocated() != 2 {
		t.Errorf("got %d outstanding and %d allocated vectors but want 1 and 2", pool.Outstanding(), pool.Allocated())
	}
	if got, want := v3.String(), "[4]float64{0, 0, 0, 0}"; got != want {
		t.Errorf("got %q but want %q", got, want)
	}
}

func TestChop(t *testing.T) {
	xs := []float64{1e-15, -1e-15, 1, -1e-13}
	kernels.ChopAll(xs, 1e-14)
	if want := []float64{0, 0, 1, -1e-13}; !cmp.Equal(xs, want) {
		t.Errorf("got %v but want %v", xs, want)
	}
	if got := kernels.Chop(float32(1e-7), 1e-6); got != 0 {
		t.Errorf("got %g but want 0", got)
	}
}
