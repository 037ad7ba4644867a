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
	"github.com/gx-org/weakform/build/deriv"
	"github.com/gx-org/weakform/build/expr"
	"github.com/gx-org/weakform/build/fmterr"
	"github.com/gx-org/weakform/interp/kernels"
)

// diffOpEvaluator evaluates D[dir](x) by renaming the derivatives of x.
type diffOpEvaluator struct {
	operation
	// args maps entries of the node to entries of its argument.
	args []expr.Entry
}

var _ Evaluator = (*diffOpEvaluator)(nil)

func newDiffOp(op operation) (*diffOpEvaluator, error) {
	ev := &diffOpEvaluator{operation: op}
	dir := op.a.Node(op.id).Direction()
	argSS := op.children[0].Superset()
	for _, entry := range op.ss.Entries() {
		if !entry.Class.IsNonzero() {
			ev.args = append(ev.args, expr.Entry{Class: expr.ZeroClass, Index: -1})
			continue
		}
		m := entry.Deriv.With(deriv.Spatial(dir))
		arg, ok := argSS.Lookup(m)
		if !ok || arg.Class != entry.Class {
			return nil, fmterr.Internalf("derivative %s of %s requires derivative %s of its argument which has not been computed", op.a.MultipleDerivString(entry.Deriv), op.a.String(op.id), op.a.MultipleDerivString(m))
		}
		ev.args = append(ev.args, arg)
	}
	return ev, nil
}

func (ev *diffOpEvaluator) Eval(mgr *Manager, constants []float64, vectors []*kernels.Vector) error {
	results, err := ev.evalChildren(mgr)
	if err != nil {
		return err
	}
	res := results[0]
	for i, entry := range ev.ss.Entries() {
		arg := ev.args[i]
		switch {
		case arg.Index < 0:
			constants[entry.Index] = 0
		case entry.IsConstant():
			constants[entry.Index] = res.constants[arg.Index]
		default:
			// Vectors of the argument are moved, not copied.
			vectors[entry.Index] = res.take(arg)
		}
	}
	return res.Release()
}
