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

package sparsity

import (
	"github.com/gx-org/weakform/base/diag"
	"github.com/gx-org/weakform/build/deriv"
	"github.com/gx-org/weakform/build/expr"
	"github.com/gx-org/weakform/build/fmterr"
	"github.com/gx-org/weakform/internal/exprdeps"
)

// Find returns the nonzero derivatives of an expression up to a given
// order. Candidates are all the multisets of the functional derivatives the
// expression depends on.
func (an *Analyzer) Find(id expr.ID, ctx expr.EvalContext, order int) (*expr.Nonzeros, error) {
	if !an.a.Valid(id) {
		return nil, fmterr.Internalf("node %d does not belong to the arena", id)
	}
	if order < 0 {
		return nil, fmterr.Errorf(fmterr.InvalidOrder, "cannot find derivatives of negative order %d", order)
	}
	memo := an.a.Memo(id, ctx)
	if nz, ok := memo.Nonzeros[order]; ok {
		return nz, nil
	}
	nz := expr.NewNonzeros()
	alphabet := exprdeps.Functional(an.a, id)
	var err error
	forEachMultiset(alphabet, min(order, ctx.MaxDiffOrder()), func(m deriv.MultipleDeriv) bool {
		var c expr.Class
		if c, err = an.Classify(id, ctx, m); err != nil {
			return false
		}
		nz.Put(m, c)
		return true
	})
	if err != nil {
		return nil, err
	}
	memo.Nonzeros[order] = nz
	return nz, nil
}

// forEachMultiset calls f for every multiset of at most maxSize elements of alphabet.
func forEachMultiset(alphabet []deriv.Derivative, maxSize int, f func(deriv.MultipleDeriv) bool) {
	var elems []deriv.Derivative
	var rec func(start int) bool
	rec = func(start int) bool {
		if !f(deriv.New(elems...)) {
			return false
		}
		if len(elems) == maxSize {
			return true
		}
		for i := start; i < len(alphabet); i++ {
			elems = append(elems, alphabet[i])
			ok := rec(i)
			elems = elems[:len(elems)-1]
			if !ok {
				return false
			}
		}
		return true
	}
	rec(0)
}

// Superset returns the sparsity superset of an expression. If no superset
// has been computed yet, it is computed for all the nonzero derivatives up
// to the maximum order of the context.
func (an *Analyzer) Superset(id expr.ID, ctx expr.EvalContext) (*expr.Superset, error) {
	if !an.a.Valid(id) {
		return nil, fmterr.Internalf("node %d does not belong to the arena", id)
	}
	if ss := an.a.Memo(id, ctx).Superset; ss != nil {
		return ss, nil
	}
	nz, err := an.Find(id, ctx, ctx.MaxDiffOrder())
	if err != nil {
		return nil, err
	}
	return an.FindSuperset(id, ctx, nz.W.Union(deriv.NewSet(deriv.New())))
}

// FindSuperset computes the superset of an expression given the derivatives
// required by its user, and the supersets of all its descendants given the
// derivatives required to compute it. Required derivatives which are zero
// are dropped, except for the zeroth derivative which is always kept.
// An existing superset is returned unchanged: call Reset to recompute it.
func (an *Analyzer) FindSuperset(id expr.ID, ctx expr.EvalContext, required *deriv.Set) (*expr.Superset, error) {
	if !an.a.Valid(id) {
		return nil, fmterr.Internalf("node %d does not belong to the arena", id)
	}
	defer an.diag.Time("sparsity.superset")()
	return an.findSuperset(id, ctx, required)
}

func (an *Analyzer) findSuperset(id expr.ID, ctx expr.EvalContext, required *deriv.Set) (*expr.Superset, error) {
	memo := an.a.Memo(id, ctx)
	if memo.Superset != nil {
		return memo.Superset, nil
	}
	var derivs []deriv.MultipleDeriv
	var classes []expr.Class
	for m := range required.All() {
		c, err := an.Classify(id, ctx, m)
		if err != nil {
			return nil, err
		}
		if !c.IsNonzero() && !m.IsZeroth() {
			continue
		}
		derivs = append(derivs, m)
		classes = append(classes, c)
	}
	ss, err := expr.NewSuperset(derivs, classes)
	if err != nil {
		return nil, err
	}
	if err := an.pushRequirements(id, ctx, ss); err != nil {
		return nil, err
	}
	memo.Superset = ss
	if an.diag.Enabled(diag.High) {
		an.diag.Log(diag.High, "superset", "expr", an.a.String(id), "ctx", ctx.String(), "table", ss.String())
	} else {
		an.diag.Log(diag.Medium, "superset", "expr", an.a.String(id), "entries", ss.Len())
	}
	return ss, nil
}

// pushRequirements computes the supersets of the children of a node given
// the derivatives the node needs to compute its superset.
func (an *Analyzer) pushRequirements(id expr.ID, ctx expr.EvalContext, ss *expr.Superset) error {
	n := an.a.Node(id)
	if n.Kind().IsLeaf() {
		return nil
	}
	reqs := make([]*deriv.Set, n.NumChildren())
	for i := range reqs {
		reqs[i] = deriv.NewSet()
	}
	for _, entry := range ss.Entries() {
		if !entry.Class.IsNonzero() {
			continue
		}
		m := entry.Deriv
		switch n.Kind() {
		case expr.SumKind:
			for _, req := range reqs {
				req.Put(m)
			}
		case expr.ProductKind:
			if err := an.forEachNonzeroPair(n, ctx, m, func(l, r deriv.MultipleDeriv, _, _ expr.Class) {
				reqs[0].Put(l)
				reqs[1].Put(r)
			}); err != nil {
				return err
			}
		case expr.DiffOpKind:
			reqs[0].Put(m.With(deriv.Spatial(n.Direction())))
		case expr.NonlinearKind:
			reqs[0].Put(deriv.New())
			partitions, err := an.nonzeroPartitions(n.Child(0), ctx, m)
			if err != nil {
				return err
			}
			for _, partition := range partitions {
				for _, block := range partition {
					reqs[0].Put(block)
				}
			}
		default:
			return fmterr.Internalf("cannot push derivative requirements through %s node %s", n.Kind(), an.a.String(id))
		}
	}
	if n.Kind() == expr.NonlinearKind {
		// The value of the argument is always required to evaluate f.
		reqs[0].Put(deriv.New())
	}
	for i, child := range n.Children() {
		if _, err := an.findSuperset(child, ctx, reqs[i]); err != nil {
			return err
		}
	}
	return nil
}

// Reset drops the supersets and evaluators of an expression and of all its
// descendants in a context. Classifications are kept.
func (an *Analyzer) Reset(id expr.ID, ctx expr.EvalContext) {
	for node := range an.a.PostOrder(id) {
		if !an.a.HasMemo(node, ctx) {
			continue
		}
		memo := an.a.Memo(node, ctx)
		memo.Superset = nil
		memo.Evaluator = nil
	}
}
