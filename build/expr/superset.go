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

package expr

import (
	"slices"
	"strconv"

	gxfmt "github.com/gx-org/weakform/base/fmt"
	"github.com/gx-org/weakform/build/deriv"
	"github.com/gx-org/weakform/build/fmterr"
)

// Class of a derivative of an expression.
// Classes are ordered: the join of two classes is their maximum.
type Class int

const (
	// ZeroClass is a structurally zero derivative.
	ZeroClass Class = iota
	// ConstantClass is a nonzero derivative constant in space.
	ConstantClass
	// VariableClass is a nonzero derivative varying in space.
	VariableClass
)

// IsNonzero returns true if the class is not ZeroClass.
func (c Class) IsNonzero() bool {
	return c != ZeroClass
}

// Join returns the class of the sum of derivatives of classes c and other.
func (c Class) Join(other Class) Class {
	return max(c, other)
}

func (c Class) String() string {
	switch c {
	case ZeroClass:
		return "0"
	case ConstantClass:
		return "C"
	case VariableClass:
		return "V"
	}
	return "Class(" + strconv.Itoa(int(c)) + ")"
}

// Nonzeros are the nonzero derivatives of an expression up to a given order.
type Nonzeros struct {
	// W contains all nonzero derivatives.
	W *deriv.Set
	// V contains the nonzero derivatives varying in space.
	V *deriv.Set
	// C contains the nonzero derivatives constant in space.
	C *deriv.Set
}

// NewNonzeros returns empty sets of nonzero derivatives.
func NewNonzeros() *Nonzeros {
	return &Nonzeros{W: deriv.NewSet(), V: deriv.NewSet(), C: deriv.NewSet()}
}

// Put adds a derivative to the sets given its class.
func (nz *Nonzeros) Put(m deriv.MultipleDeriv, c Class) {
	switch c {
	case ConstantClass:
		nz.C.Put(m)
	case VariableClass:
		nz.V.Put(m)
	default:
		return
	}
	nz.W.Put(m)
}

// Entry of a sparsity superset.
type Entry struct {
	Deriv deriv.MultipleDeriv
	Class Class
	// Index of the entry among the constant results if the entry is
	// constant, among the vector results otherwise.
	Index int
}

// IsConstant returns true if the value of the entry is a scalar.
// A zeroth derivative structurally zero is stored as the constant 0.
func (e Entry) IsConstant() bool {
	return e.Class != VariableClass
}

// Superset is the sparsity pattern of an expression in an evaluation
// context: the derivatives computed when the expression is evaluated,
// whether each of them is spatially constant, and where its value is
// stored in the results. A superset is immutable.
type Superset struct {
	set          *deriv.Set
	entries      []Entry
	byKey        map[string]int
	numConstants int
	numVectors   int
}

// NewSuperset returns the superset of the given derivatives and classes.
// Only the zeroth derivative can be of class ZeroClass.
func NewSuperset(derivs []deriv.MultipleDeriv, classes []Class) (*Superset, error) {
	if len(derivs) != len(classes) {
		return nil, fmterr.Internalf("%d derivatives but %d classes", len(derivs), len(classes))
	}
	order := make([]int, len(derivs))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(i, j int) int {
		return deriv.CompareMultiple(derivs[i], derivs[j])
	})
	ss := &Superset{
		set:   deriv.NewSet(),
		byKey: make(map[string]int, len(derivs)),
	}
	for _, i := range order {
		m, c := derivs[i], classes[i]
		if ss.set.Has(m) {
			return nil, fmterr.Errorf(fmterr.MalformedSparsity, "derivative %s appears twice", m)
		}
		if c == ZeroClass && !m.IsZeroth() {
			return nil, fmterr.Errorf(fmterr.MalformedSparsity, "structurally zero derivative %s in sparsity table", m)
		}
		entry := Entry{Deriv: m, Class: c}
		if entry.IsConstant() {
			entry.Index = ss.numConstants
			ss.numConstants++
		} else {
			entry.Index = ss.numVectors
			ss.numVectors++
		}
		ss.set.Put(m)
		ss.byKey[m.Key()] = len(ss.entries)
		ss.entries = append(ss.entries, entry)
	}
	return ss, nil
}

// Set returns the derivatives of the superset.
func (ss *Superset) Set() *deriv.Set {
	return ss.set
}

// Len returns the number of entries.
func (ss *Superset) Len() int {
	return len(ss.entries)
}

// Entry returns the i-th entry in increasing order of derivatives.
func (ss *Superset) Entry(i int) Entry {
	return ss.entries[i]
}

// Entries returns all the entries in increasing order of derivatives.
func (ss *Superset) Entries() []Entry {
	return slices.Clone(ss.entries)
}

// Lookup returns the entry of a derivative.
func (ss *Superset) Lookup(m deriv.MultipleDeriv) (Entry, bool) {
	i, ok := ss.byKey[m.Key()]
	if !ok {
		return Entry{}, false
	}
	return ss.entries[i], true
}

// NumConstants returns the number of constant entries.
func (ss *Superset) NumConstants() int {
	return ss.numConstants
}

// NumVectors returns the number of spatially varying entries.
func (ss *Superset) NumVectors() int {
	return ss.numVectors
}

// String returns the sparsity table.
func (ss *Superset) String() string {
	rows := make([][]string, len(ss.entries))
	for i, entry := range ss.entries {
		rows[i] = []string{entry.Deriv.String(), entry.Class.String(), strconv.Itoa(entry.Index)}
	}
	return gxfmt.Table(rows)
}
