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

package evaluator

import (
	gxfmt "github.com/gx-org/weakform/base/fmt"
	"github.com/gx-org/weakform/build/deriv"
	"github.com/gx-org/weakform/build/expr"
	"github.com/gx-org/weakform/interp/kernels"
)

// Results are the values of the entries of a superset.
type Results struct {
	a         *expr.Arena
	ss        *expr.Superset
	constants []float64
	vectors   []*kernels.Vector
	pool      *kernels.Pool
}

func newResults(a *expr.Arena, ss *expr.Superset, pool *kernels.Pool) *Results {
	return &Results{
		a:         a,
		ss:        ss,
		constants: make([]float64, ss.NumConstants()),
		vectors:   make([]*kernels.Vector, ss.NumVectors()),
		pool:      pool,
	}
}

// Superset returns the superset of the results.
func (r *Results) Superset() *expr.Superset {
	return r.ss
}

func (r *Results) operand(entry expr.Entry) kernels.Operand {
	if entry.IsConstant() {
		return kernels.Atom(r.constants[entry.Index])
	}
	return kernels.Vec(r.vectors[entry.Index])
}

// Value returns the value of a derivative, or false if the derivative is
// not in the superset.
func (r *Results) Value(m deriv.MultipleDeriv) (kernels.Operand, bool) {
	entry, ok := r.ss.Lookup(m)
	if !ok {
		return kernels.Operand{}, false
	}
	return r.operand(entry), true
}

// take removes a vector from the results. The caller becomes its owner.
func (r *Results) take(entry expr.Entry) *kernels.Vector {
	v := r.vectors[entry.Index]
	r.vectors[entry.Index] = nil
	return v
}

// Release returns all the vectors of the results to the pool.
func (r *Results) Release() error {
	err := r.pool.ReleaseAll(r.vectors)
	clear(r.vectors)
	return err
}

// String returns the table of the derivatives and their values.
func (r *Results) String() string {
	rows := make([][]string, r.ss.Len())
	for i, entry := range r.ss.Entries() {
		val := "<released>"
		if entry.IsConstant() || r.vectors[entry.Index] != nil {
			val = r.operand(entry).String()
		}
		rows[i] = []string{r.a.MultipleDerivString(entry.Deriv), entry.Class.String(), val}
	}
	return gxfmt.Table(rows)
}
