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
)

// productTerm is coef times the product of a derivative of the left factor
// and a derivative of the right factor.
type productTerm struct {
	left, right expr.Entry
	coef        float64
}

// productEntry lists the terms of the product rule for one derivative,
// grouped by whether the factors are constant (c) or vectors (v). Terms
// of a group are distinct: duplicated pairs increase the coefficient.
type productEntry struct {
	entry          expr.Entry
	cc, cv, vc, vv []productTerm
}

type productEvaluator struct {
	operation
	entries []productEntry
}

var _ Evaluator = (*productEvaluator)(nil)

func addProductTerm(terms []productTerm, left, right expr.Entry) []productTerm {
	for i, term := range terms {
		if term.left.Index == left.Index && term.right.Index == right.Index {
			terms[i].coef++
			return terms
		}
	}
	return append(terms, productTerm{left: left, right: right, coef: 1})
}

func newProduct(op operation) (*productEvaluator, error) {
	ev := &productEvaluator{operation: op}
	leftSS, rightSS := op.children[0].Superset(), op.children[1].Superset()
	for _, entry := range op.ss.Entries() {
		pe := productEntry{entry: entry}
		if !entry.Class.IsNonzero() {
			ev.entries = append(ev.entries, pe)
			continue
		}
		lefts, rights := entry.Deriv.ProductRulePermutations()
		for i := range lefts {
			le, ok := leftSS.Lookup(lefts[i])
			if !ok || !le.Class.IsNonzero() {
				continue
			}
			re, ok := rightSS.Lookup(rights[i])
			if !ok || !re.Class.IsNonzero() {
				continue
			}
			switch {
			case le.IsConstant() && re.IsConstant():
				pe.cc = addProductTerm(pe.cc, le, re)
			case le.IsConstant():
				pe.cv = addProductTerm(pe.cv, le, re)
			case re.IsConstant():
				pe.vc = addProductTerm(pe.vc, le, re)
			default:
				pe.vv = addProductTerm(pe.vv, le, re)
			}
		}
		if entry.IsConstant() && len(pe.cv)+len(pe.vc)+len(pe.vv) > 0 {
			return nil, fmterr.Internalf("constant derivative %s of %s has a variable term", op.a.MultipleDerivString(entry.Deriv), op.a.String(op.id))
		}
		ev.entries = append(ev.entries, pe)
	}
	return ev, nil
}

func (ev *productEvaluator) Eval(mgr *Manager, constants []float64, vectors []*kernels.Vector) error {
	results, err := ev.evalChildren(mgr)
	if err != nil {
		return err
	}
	left, right := results[0], results[1]
	for _, pe := range ev.entries {
		var c float64
		for _, term := range pe.cc {
			c += term.coef * left.constants[term.left.Index] * right.constants[term.right.Index]
		}
		if pe.entry.IsConstant() {
			constants[pe.entry.Index] = kernels.Chop(c, expr.ChopTolerance)
			continue
		}
		out := mgr.pool.Pop()
		vectors[pe.entry.Index] = out
		kernels.Accumulate(out, 1, kernels.Atom(c))
		for _, terms := range [][]productTerm{pe.cv, pe.vc, pe.vv} {
			if err := ev.accumulate(mgr, out, left, right, terms); err != nil {
				releaseAll(results)
				return err
			}
		}
	}
	return releaseAll(results)
}

func (ev *productEvaluator) accumulate(mgr *Manager, out *kernels.Vector, left, right *Results, terms []productTerm) error {
	if len(terms) == 0 {
		return nil
	}
	tmp := mgr.pool.Pop()
	for _, term := range terms {
		x, y := left.operand(term.left), right.operand(term.right)
		mul, _, err := kernels.BinaryOp(token.MUL, x.Shape(), y.Shape())
		if err != nil {
			mgr.pool.Release(tmp)
			return err
		}
		kernels.Accumulate(out, term.coef, mul(x, y, tmp))
	}
	return mgr.pool.Release(tmp)
}
