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
	"fmt"
	"math"
	"sync/atomic"
)

// ChopTolerance is the magnitude under which values are considered to be zero
// when classifying constants.
const ChopTolerance = 1e-14

// Chop returns 0 if |x| is below ChopTolerance, x otherwise.
func Chop(x float64) float64 {
	if math.Abs(x) < ChopTolerance {
		return 0
	}
	return x
}

var nextContextID atomic.Int64

// ContextKey identifies interchangeable evaluation contexts.
type ContextKey struct {
	Region       string
	Quadrature   string
	MaxDiffOrder int
}

// EvalContext is the context in which an expression is evaluated:
// a region of the mesh, a quadrature rule, and the maximum order of
// differentiation required. Contexts are immutable. Two contexts with the
// same region, quadrature, and maximum order are interchangeable.
type EvalContext struct {
	key ContextKey
	id  int64
}

// NewEvalContext returns a new evaluation context.
func NewEvalContext(region, quadrature string, maxDiffOrder int) EvalContext {
	return EvalContext{
		key: ContextKey{
			Region:       region,
			Quadrature:   quadrature,
			MaxDiffOrder: maxDiffOrder,
		},
		id: nextContextID.Add(1),
	}
}

// Key returns the key used to cache results for the context.
func (ctx EvalContext) Key() ContextKey {
	return ctx.key
}

// ID returns a process-unique identifier of the context.
// The identifier does not take part in the identity of the context.
func (ctx EvalContext) ID() int64 {
	return ctx.id
}

// Region returns the name of the region.
func (ctx EvalContext) Region() string {
	return ctx.key.Region
}

// Quadrature returns the name of the quadrature rule.
func (ctx EvalContext) Quadrature() string {
	return ctx.key.Quadrature
}

// MaxDiffOrder returns the maximum order of differentiation.
func (ctx EvalContext) MaxDiffOrder() int {
	return ctx.key.MaxDiffOrder
}

// WithMaxDiffOrder returns a context on the same region and quadrature
// with a different maximum order of differentiation.
func (ctx EvalContext) WithMaxDiffOrder(order int) EvalContext {
	return NewEvalContext(ctx.key.Region, ctx.key.Quadrature, order)
}

func (ctx EvalContext) String() string {
	return fmt.Sprintf("EvalContext{region: %s, quadrature: %s, maxDiffOrder: %d}", ctx.key.Region, ctx.key.Quadrature, ctx.key.MaxDiffOrder)
}
