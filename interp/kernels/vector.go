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

// Package kernels implements the numerical kernels of the evaluators:
// vectors of values at quadrature points, a pool of vectors, and the
// arithmetic between constants and vectors.
package kernels

import (
	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/backend/shape"
	"github.com/gx-org/weakform/fmt/fmtarray"
	"golang.org/x/exp/constraints"
)

// Vector stores one value per quadrature point.
type Vector struct {
	shape  shape.Shape
	values []float64

	pool *Pool
	// inPool is true while the vector is available in its pool.
	inPool bool
}

// NewVector returns a vector of n zeros not attached to any pool.
func NewVector(n int) *Vector {
	return newVector(nil, n)
}

// VectorOf returns a vector with the given values.
func VectorOf(values ...float64) *Vector {
	v := NewVector(len(values))
	copy(v.values, values)
	return v
}

func newVector(pool *Pool, n int) *Vector {
	return &Vector{
		shape: shape.Shape{
			DType:       dtype.Generic[float64](),
			AxisLengths: []int{n},
		},
		values: make([]float64, n),
		pool:   pool,
	}
}

// Shape of the vector.
func (v *Vector) Shape() *shape.Shape {
	return &v.shape
}

// Len returns the number of values in the vector.
func (v *Vector) Len() int {
	return v.shape.Size()
}

// Flat values of the vector.
func (v *Vector) Flat() []float64 {
	return v.values
}

// Fill sets all the values of the vector to x.
func (v *Vector) Fill(x float64) {
	for i := range v.values {
		v.values[i] = x
	}
}

// String representation of the vector.
func (v *Vector) String() string {
	return fmtarray.SprintShort(v.values, v.shape.AxisLengths, 8)
}

// Chop returns 0 if |x| < tol, x otherwise.
func Chop[T constraints.Float](x, tol T) T {
	if x < tol && x > -tol {
		return 0
	}
	return x
}

// ChopAll chops all the values of xs in place.
func ChopAll[T constraints.Float](xs []T, tol T) {
	for i, x := range xs {
		xs[i] = Chop(x, tol)
	}
}
