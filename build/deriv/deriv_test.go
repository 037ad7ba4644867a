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

package deriv_test

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/weakform/build/deriv"
)

var (
	dx = deriv.Spatial(0)
	dy = deriv.Spatial(1)
	du = deriv.Functional(1, deriv.MultiIndex{})
	dv = deriv.Functional(2, deriv.MultiIndex{})
	// Derivative with respect to du/dx.
	dux = deriv.Functional(1, deriv.MultiIndex{1, 0, 0})
)

func TestCompare(t *testing.T) {
	ordered := []deriv.Derivative{dx, dy, du, dux, dv}
	for i := range ordered {
		for j := range ordered {
			got := deriv.Compare(ordered[i], ordered[j])
			want := 0
			switch {
			case i < j:
				want = -1
			case i > j:
				want = 1
			}
			if got != want {
				t.Errorf("Compare(%s, %s) = %d but want %d", ordered[i], ordered[j], got, want)
			}
		}
	}
	if got := du.WrtMultiIndex(deriv.MultiIndex{}.Plus(0)); got != dux {
		t.Errorf("got %s but want %s", got, dux)
	}
	if got := dx.WrtMultiIndex(deriv.MultiIndex{1}); got != dx {
		t.Errorf("spatial derivative changed by WrtMultiIndex: got %s", got)
	}
}

func TestMultipleDerivCanonical(t *testing.T) {
	a := deriv.New(dv, du, dx, du)
	b := deriv.New(du, dx, du, dv)
	if !a.Equal(b) {
		t.Errorf("%s != %s", a, b)
	}
	if a.Key() != b.Key() {
		t.Errorf("keys differ: %q != %q", a.Key(), b.Key())
	}
	if got, want := a.Order(), 4; got != want {
		t.Errorf("order: got %d but want %d", got, want)
	}
	if got, want := a.FunctionalOrder(), 3; got != want {
		t.Errorf("functional order: got %d but want %d", got, want)
	}
	if got, want := a.SpatialIndex(), (deriv.MultiIndex{1, 0, 0}); got != want {
		t.Errorf("spatial index: got %s but want %s", got, want)
	}
	if !cmp.Equal(a.With(dy), deriv.New(dx, dy, du, du, dv)) {
		t.Errorf("With: got %s", a.With(dy))
	}
	if !deriv.New().IsZeroth() {
		t.Errorf("empty multiple derivative is not the zeroth derivative")
	}
}

func multisetUnion(l, r deriv.MultipleDeriv) deriv.MultipleDeriv {
	return l.Union(r)
}

func TestProductRulePermutations(t *testing.T) {
	tests := []deriv.MultipleDeriv{
		deriv.New(),
		deriv.New(du),
		deriv.New(du, dv),
		deriv.New(du, du),
		deriv.New(dx, du, du),
		deriv.New(dx, dy, du, dv),
	}
	for _, m := range tests {
		left, right := m.ProductRulePermutations()
		want := 1 << m.Order()
		if len(left) != want || len(right) != want {
			t.Errorf("%s: got %d,%d pairs but want %d", m, len(left), len(right), want)
			continue
		}
		for i := range left {
			if got := multisetUnion(left[i], right[i]); !got.Equal(m) {
				t.Errorf("%s: pair %d: %s U %s = %s", m, i, left[i], right[i], got)
			}
		}
		// All-right and all-left are always present.
		if !left[0].IsZeroth() || !right[0].Equal(m) {
			t.Errorf("%s: first pair is (%s, %s)", m, left[0], right[0])
		}
		if !left[want-1].Equal(m) || !right[want-1].IsZeroth() {
			t.Errorf("%s: last pair is (%s, %s)", m, left[want-1], right[want-1])
		}
	}
}

func TestProductRuleKeepsDuplicates(t *testing.T) {
	left, _ := deriv.New(du, du).ProductRulePermutations()
	count := 0
	for _, l := range left {
		if l.Equal(deriv.New(du)) {
			count++
		}
	}
	if count != 2 {
		t.Errorf("got %d pairs with a single du on the left but want 2", count)
	}
}

func TestPartitions(t *testing.T) {
	tests := []struct {
		m    deriv.MultipleDeriv
		want int
	}{
		{m: deriv.New(), want: 1},
		{m: deriv.New(du), want: 1},
		{m: deriv.New(du, dv), want: 2},
		{m: deriv.New(du, du, dv), want: 5},
		{m: deriv.New(dx, du, du, dv), want: 15},
	}
	for _, test := range tests {
		partitions := test.m.Partitions()
		if len(partitions) != test.want {
			t.Errorf("%s: got %d partitions but want %d", test.m, len(partitions), test.want)
		}
		for _, p := range partitions {
			union := deriv.New()
			for _, block := range p {
				if block.IsZeroth() {
					t.Errorf("%s: empty block in partition %v", test.m, p)
				}
				union = union.Union(block)
			}
			if !union.Equal(test.m) {
				t.Errorf("%s: partition %v does not cover the derivative", test.m, p)
			}
		}
	}
}

func TestSetIncreasingOrder(t *testing.T) {
	set := deriv.NewSet(
		deriv.New(du, dv),
		deriv.New(dv),
		deriv.New(du, du, dv),
		deriv.New(),
		deriv.New(du),
		deriv.New(du, dv),
	)
	if got, want := set.Size(), 5; got != want {
		t.Fatalf("set size: got %d but want %d", got, want)
	}
	prev := -1
	for m := range set.All() {
		if m.Order() < prev {
			t.Errorf("derivative %s of order %d after a derivative of order %d", m, m.Order(), prev)
		}
		prev = m.Order()
	}
	sorted := set.Sorted()
	if !slices.IsSortedFunc(sorted, deriv.CompareMultiple) {
		t.Errorf("set not sorted: %v", sorted)
	}
	if got, want := len(set.OfOrder(1)), 2; got != want {
		t.Errorf("derivatives of order 1: got %d but want %d", got, want)
	}
	if got, want := set.MaxOrder(), 3; got != want {
		t.Errorf("max order: got %d but want %d", got, want)
	}
	union := set.Union(deriv.NewSet(deriv.New(dx)))
	if !union.Has(deriv.New(dx)) || union.Size() != 6 {
		t.Errorf("incorrect union %s", union)
	}
	if set.Has(deriv.New(dx)) {
		t.Errorf("union modified its receiver")
	}
	if got, want := deriv.NewSet(deriv.New(), deriv.New(du)).String(), "{{}, {D[f1]}}"; got != want {
		t.Errorf("got %q but want %q", got, want)
	}
}

func TestNilSet(t *testing.T) {
	var set *deriv.Set
	if got := set.Size(); got != 0 {
		t.Errorf("size: got %d but want 0", got)
	}
	if set.Has(deriv.New()) {
		t.Errorf("nil set has the zeroth derivative")
	}
	if got := set.MaxOrder(); got != -1 {
		t.Errorf("max order: got %d but want -1", got)
	}
	if !set.Equal(nil) || !set.Equal(deriv.NewSet()) || !deriv.NewSet().Equal(set) {
		t.Errorf("nil set not equal to an empty set")
	}
	if set.Equal(deriv.NewSet(deriv.New())) || deriv.NewSet(deriv.New()).Equal(set) {
		t.Errorf("nil set equal to a non-empty set")
	}
}
