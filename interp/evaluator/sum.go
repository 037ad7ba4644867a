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
	"go/token"

	"github.com/gx-org/weakform/build/expr"
	"github.com/gx-org/weakform/build/fmterr"
	"github.com/gx-org/weakform/interp/kernels"
	"go.uber.org/multierr"
)

// operation is the part common to the evaluators of nodes with children.
type operation struct {
	node
	children []Evaluator
}

// evalChildren evaluates all the children of a node. Results of the
// children are released by the caller.
func (op *operation) evalChildren(mgr *Manager) ([]*Results, error) {
	results := make([]*Results, len(op.children))
	for i, child := range op.children {
		res, err := mgr.evalResults(op.a, child)
		if err != nil {
			releaseAll(results)
			return nil, err
		}
		results[i] = res
	}
	return results, nil
}

func releaseAll(results []*Results) error {
	var err error
	for _, res := range results {
		if res != nil {
			err = multierr.Append(err, res.Release())
		}
	}
	return err
}

// lookupNonzero returns the entry of a derivative in the superset of a
// child, or false if the derivative is zero.
func lookupNonzero(ss *expr.Superset, entry expr.Entry) (expr.Entry, bool) {
	ce, ok := ss.Lookup(entry.Deriv)
	if !ok || !ce.Class.IsNonzero() {
		return expr.Entry{}, false
	}
	return ce, true
}

type sumTerm struct {
	child int
	entry expr.Entry
	sign  float64
}

type sumEntry struct {
	entry expr.Entry
	terms []sumTerm
}

type sumEvaluator struct {
	operation
	entries []sumEntry
}

var _ Evaluator = (*sumEvaluator)(nil)

func newSum(op operation) (*sumEvaluator, error) {
	ev := &sumEvaluator{operation: op}
	sum := op.a.Node(op.id)
	for _, entry := range op.ss.Entries() {
		se := sumEntry{entry: entry}
		if entry.Class.IsNonzero() {
			for i, child := range op.children {
				ce, ok := lookupNonzero(child.Superset(), entry)
				if !ok {
					continue
				}
				if entry.IsConstant() && !ce.IsConstant() {
					return nil, fmterr.Internalf("constant derivative %s of %s has a variable term", op.a.MultipleDerivString(entry.Deriv), op.a.String(op.id))
				}
				se.terms = append(se.terms, sumTerm{child: i, entry: ce, sign: float64(sum.Sign(i))})
			}
		}
		ev.entries = append(ev.entries, se)
	}
	return ev, nil
}

func (ev *sumEvaluator) Eval(mgr *Manager, constants []float64, vectors []*kernels.Vector) error {
	results, err := ev.evalChildren(mgr)
	if err != nil {
		return err
	}
	for _, se := range ev.entries {
		if se.entry.IsConstant() {
			var c float64
			for _, term := range se.terms {
				c += term.sign * results[term.child].constants[term.entry.Index]
			}
			constants[se.entry.Index] = kernels.Chop(c, expr.ChopTolerance)
			continue
		}
		out := mgr.pool.Pop()
		vectors[se.entry.Index] = out
		if err := sumTerms(out, se.terms, results); err != nil {
			return multierr.Append(err, releaseAll(results))
		}
	}
	return releaseAll(results)
}

// sumTerms writes the signed sum of the terms in out. Round-off residues
// are set to zero.
func sumTerms(out *kernels.Vector, terms []sumTerm, results []*Results) error {
	acc := kernels.Atom(0)
	for _, term := range terms {
		op := token.ADD
		if term.sign < 0 {
			op = token.SUB
		}
		x := results[term.child].operand(term.entry)
		f, _, err := kernels.BinaryOp(op, acc.Shape(), x.Shape())
		if err != nil {
			return err
		}
		acc = f(acc, x, out)
	}
	if acc.IsAtomic() {
		out.Fill(acc.Atom())
	}
	kernels.ChopAll(out.Flat(), expr.ChopTolerance)
	return nil
}
