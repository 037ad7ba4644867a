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
	"iter"
	"slices"
	"strings"

	gxiter "github.com/gx-org/weakform/base/iter"
)

// Set is a set of multiple derivatives. Iteration always follows the
// increasing order of differentiation (see CompareMultiple).
type Set struct {
	m map[string]MultipleDeriv
}

// NewSet returns a new set containing the given derivatives.
func NewSet(ms ...MultipleDeriv) *Set {
	s := &Set{m: make(map[string]MultipleDeriv, len(ms))}
	for _, m := range ms {
		s.Put(m)
	}
	return s
}

// Put adds a derivative to the set.
func (s *Set) Put(m MultipleDeriv) {
	if s.m == nil {
		s.m = make(map[string]MultipleDeriv)
	}
	s.m[m.Key()] = m
}

// Has returns true if m is in the set.
func (s *Set) Has(m MultipleDeriv) bool {
	if s == nil {
		return false
	}
	_, ok := s.m[m.Key()]
	return ok
}

// Size returns the number of derivatives in the set.
func (s *Set) Size() int {
	if s == nil {
		return 0
	}
	return len(s.m)
}

// Sorted returns the derivatives of the set in increasing order.
func (s *Set) Sorted() []MultipleDeriv {
	if s == nil {
		return nil
	}
	ms := make([]MultipleDeriv, 0, len(s.m))
	for _, m := range s.m {
		ms = append(ms, m)
	}
	slices.SortFunc(ms, CompareMultiple)
	return ms
}

// All iterates over the derivatives in increasing order.
func (s *Set) All() iter.Seq[MultipleDeriv] {
	return slices.Values(s.Sorted())
}

// OfOrder returns the derivatives of a given order, in increasing order.
func (s *Set) OfOrder(order int) []MultipleDeriv {
	return slices.Collect(gxiter.Filter(func(m MultipleDeriv) bool {
		return m.Order() == order
	}, s.Sorted()))
}

// MaxOrder returns the highest order of the derivatives in the set, or -1
// if the set is empty.
func (s *Set) MaxOrder() int {
	maxOrder := -1
	if s == nil {
		return maxOrder
	}
	for _, m := range s.m {
		maxOrder = max(maxOrder, m.Order())
	}
	return maxOrder
}

// Union returns a new set with the derivatives of s and others.
func (s *Set) Union(others ...*Set) *Set {
	r := NewSet(s.Sorted()...)
	for m := range gxiter.All(mapSorted(others)...) {
		r.Put(m)
	}
	return r
}

func mapSorted(sets []*Set) [][]MultipleDeriv {
	all := make([][]MultipleDeriv, len(sets))
	for i, set := range sets {
		all[i] = set.Sorted()
	}
	return all
}

// Equal returns true if both sets contain the same derivatives.
func (s *Set) Equal(other *Set) bool {
	if s.Size() != other.Size() {
		return false
	}
	if s.Size() == 0 {
		return true
	}
	for k := range s.m {
		if _, ok := other.m[k]; !ok {
			return false
		}
	}
	return true
}

func (s *Set) String() string {
	sorted := s.Sorted()
	ss := make([]string, len(sorted))
	for i, m := range sorted {
		ss[i] = m.String()
	}
	return "{" + strings.Join(ss, ", ") + "}"
}
