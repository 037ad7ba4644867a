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

package deriv

import (
	"cmp"
	"iter"
	"slices"
	"strings"
)

// MultipleDeriv is a mixed derivative operator represented as a multiset of
// first-order derivatives. The empty multiset is the zeroth derivative.
//
// A MultipleDeriv is a value: methods never modify the receiver.
type MultipleDeriv struct {
	// elems is always sorted.
	elems []Derivative
}

// New returns the multiple derivative made of the given first-order derivatives.
func New(ds ...Derivative) MultipleDeriv {
	elems := slices.Clone(ds)
	slices.SortFunc(elems, Compare)
	return MultipleDeriv{elems: elems}
}

// Order of the derivative, that is the cardinality of the multiset.
func (m MultipleDeriv) Order() int {
	return len(m.elems)
}

// IsZeroth returns true for the zeroth derivative.
func (m MultipleDeriv) IsZeroth() bool {
	return len(m.elems) == 0
}

// FunctionalOrder returns the number of functional derivatives in the multiset.
func (m MultipleDeriv) FunctionalOrder() int {
	n := 0
	for _, d := range m.elems {
		if d.IsFunctional() {
			n++
		}
	}
	return n
}

// SpatialIndex returns the spatial derivatives of the multiset as a multi-index.
func (m MultipleDeriv) SpatialIndex() MultiIndex {
	var mi MultiIndex
	for _, d := range m.elems {
		if d.IsSpatial() {
			mi[d.dir]++
		}
	}
	return mi
}

// FunctionalParts returns the functional derivatives of the multiset.
func (m MultipleDeriv) FunctionalParts() []Derivative {
	var fs []Derivative
	for _, d := range m.elems {
		if d.IsFunctional() {
			fs = append(fs, d)
		}
	}
	return fs
}

// At returns the i-th element in the canonical order.
func (m MultipleDeriv) At(i int) Derivative {
	return m.elems[i]
}

// All iterates over the elements in canonical order.
func (m MultipleDeriv) All() iter.Seq[Derivative] {
	return slices.Values(m.elems)
}

// Elems returns a copy of the elements in canonical order.
func (m MultipleDeriv) Elems() []Derivative {
	return slices.Clone(m.elems)
}

// With returns the multiset with d added.
func (m MultipleDeriv) With(d Derivative) MultipleDeriv {
	elems := make([]Derivative, 0, len(m.elems)+1)
	elems = append(elems, m.elems...)
	pos, _ := slices.BinarySearchFunc(elems, d, Compare)
	elems = slices.Insert(elems, pos, d)
	return MultipleDeriv{elems: elems}
}

// Union returns the multiset union (sum) of m and other.
func (m MultipleDeriv) Union(other MultipleDeriv) MultipleDeriv {
	elems := make([]Derivative, 0, len(m.elems)+len(other.elems))
	elems = append(elems, m.elems...)
	elems = append(elems, other.elems...)
	slices.SortFunc(elems, Compare)
	return MultipleDeriv{elems: elems}
}

// Contains returns true if d is an element of the multiset.
func (m MultipleDeriv) Contains(d Derivative) bool {
	_, found := slices.BinarySearchFunc(m.elems, d, Compare)
	return found
}

// Equal returns true if both multisets have the same elements with the same multiplicities.
func (m MultipleDeriv) Equal(other MultipleDeriv) bool {
	return slices.Equal(m.elems, other.elems)
}

// Key returns a string uniquely identifying the multiset.
func (m MultipleDeriv) Key() string {
	return m.String()
}

// CompareMultiple orders multiple derivatives by increasing order and then
// lexicographically over their sorted elements. Higher order derivatives
// are always sorted after all lower order ones.
func CompareMultiple(a, b MultipleDeriv) int {
	if c := cmp.Compare(a.Order(), b.Order()); c != 0 {
		return c
	}
	return slices.CompareFunc(a.elems, b.elems, Compare)
}

// ProductRulePermutations returns the 2^N pairs of derivatives to apply to
// the left and right operands of a product when differentiating it with m
// (generalized Leibniz rule). Element j of m goes to left[i] if the j-th bit
// of i is set and to right[i] otherwise. Pairs coming from repeated elements
// are not deduplicated.
func (m MultipleDeriv) ProductRulePermutations() (left, right []MultipleDeriv) {
	n := m.Order()
	num := 1 << n
	left = make([]MultipleDeriv, num)
	right = make([]MultipleDeriv, num)
	for i := range num {
		var l, r []Derivative
		for j, d := range m.elems {
			if i&(1<<j) != 0 {
				l = append(l, d)
			} else {
				r = append(r, d)
			}
		}
		// m.elems is sorted so l and r are sorted too.
		left[i] = MultipleDeriv{elems: l}
		right[i] = MultipleDeriv{elems: r}
	}
	return left, right
}

func (m MultipleDeriv) String() string {
	ss := make([]string, len(m.elems))
	for i, d := range m.elems {
		ss[i] = d.String()
	}
	return "{" + strings.Join(ss, ", ") + "}"
}
