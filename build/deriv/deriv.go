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

// Package deriv defines first-order derivatives, multiple derivatives
// represented as multisets of first-order derivatives, and sets of
// multiple derivatives.
package deriv

import (
	"cmp"
	"fmt"
	"strings"
)

// MaxDim is the maximum number of spatial dimensions.
const MaxDim = 3

// MultiIndex counts the number of spatial derivatives taken in each direction.
type MultiIndex [MaxDim]int

// Order returns the total number of spatial derivatives.
func (mi MultiIndex) Order() int {
	order := 0
	for _, n := range mi {
		order += n
	}
	return order
}

// Plus returns a copy of the multi-index with one more derivative in direction dir.
func (mi MultiIndex) Plus(dir int) MultiIndex {
	checkDirection(dir)
	mi[dir]++
	return mi
}

// IsZero returns true if no spatial derivative has been taken.
func (mi MultiIndex) IsZero() bool {
	return mi == MultiIndex{}
}

// Add returns the sum of two multi-indices.
func (mi MultiIndex) Add(other MultiIndex) MultiIndex {
	for i := range mi {
		mi[i] += other[i]
	}
	return mi
}

// CompareMultiIndex compares two multi-indices lexicographically.
func CompareMultiIndex(a, b MultiIndex) int {
	for i := range a {
		if c := cmp.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}

func (mi MultiIndex) String() string {
	ss := make([]string, len(mi))
	for i, n := range mi {
		ss[i] = fmt.Sprint(n)
	}
	return "(" + strings.Join(ss, ",") + ")"
}

// FuncID identifies a function element (test, unknown, discrete, or parameter).
type FuncID int

// Kind of a first-order derivative.
type Kind int

const (
	// SpatialKind is a partial derivative with respect to a coordinate.
	SpatialKind Kind = iota
	// FunctionalKind is a derivative with respect to a (spatial derivative of a) function.
	FunctionalKind
)

// Derivative is a single first-order derivative. The zero value is the
// spatial derivative in direction 0.
type Derivative struct {
	kind Kind
	dir  int
	fid  FuncID
	mi   MultiIndex
}

func checkDirection(dir int) {
	if dir < 0 || dir >= MaxDim {
		panic(fmt.Sprintf("invalid spatial direction %d: must be in [0, %d)", dir, MaxDim))
	}
}

// Spatial returns the partial derivative in direction dir.
func Spatial(dir int) Derivative {
	checkDirection(dir)
	return Derivative{kind: SpatialKind, dir: dir}
}

// Functional returns the derivative with respect to D_mi f where f is the
// function identified by fid.
func Functional(fid FuncID, mi MultiIndex) Derivative {
	return Derivative{kind: FunctionalKind, fid: fid, mi: mi}
}

// Kind returns the kind of derivative.
func (d Derivative) Kind() Kind {
	return d.kind
}

// IsSpatial returns true for a spatial partial derivative.
func (d Derivative) IsSpatial() bool {
	return d.kind == SpatialKind
}

// IsFunctional returns true for a functional derivative.
func (d Derivative) IsFunctional() bool {
	return d.kind == FunctionalKind
}

// Direction of a spatial derivative.
func (d Derivative) Direction() int {
	return d.dir
}

// FuncID of a functional derivative.
func (d Derivative) FuncID() FuncID {
	return d.fid
}

// MultiIndex of a functional derivative.
func (d Derivative) MultiIndex() MultiIndex {
	return d.mi
}

// WrtMultiIndex returns the functional derivative with respect to the
// function differentiated further by mi. Spatial derivatives are returned
// unchanged.
func (d Derivative) WrtMultiIndex(mi MultiIndex) Derivative {
	if d.kind != FunctionalKind {
		return d
	}
	return Functional(d.fid, d.mi.Add(mi))
}

// Compare orders derivatives: spatial before functional, then by direction
// or by function and multi-index.
func Compare(a, b Derivative) int {
	if c := cmp.Compare(a.kind, b.kind); c != 0 {
		return c
	}
	if a.kind == SpatialKind {
		return cmp.Compare(a.dir, b.dir)
	}
	if c := cmp.Compare(a.fid, b.fid); c != 0 {
		return c
	}
	return CompareMultiIndex(a.mi, b.mi)
}

// Less returns true if a is ordered before b.
func Less(a, b Derivative) bool {
	return Compare(a, b) < 0
}

var axisNames = [MaxDim]string{"x", "y", "z"}

func (d Derivative) String() string {
	if d.kind == SpatialKind {
		return "D[" + axisNames[d.dir] + "]"
	}
	if d.mi.IsZero() {
		return fmt.Sprintf("D[f%d]", d.fid)
	}
	return fmt.Sprintf("D[f%d%s]", d.fid, d.mi)
}
