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

// Package sparsity computes which derivatives of an expression are
// structurally nonzero and which of them are constant in space.
package sparsity

import (
	"github.com/gx-org/weakform/base/diag"
	"github.com/gx-org/weakform/build/deriv"
	"github.com/gx-org/weakform/build/expr"
	"github.com/gx-org/weakform/build/fmterr"
)

// ClassifyCounter is the diagnostics counter incremented each time a
// (node, context, derivative) triple is classified without using the cache.
const ClassifyCounter = "sparsity.classify"

// Analyzer computes the sparsity of expressions of an arena.
// Results are cached in the memo of each node.
type Analyzer struct {
	a    *expr.Arena
	diag *diag.Context
}

// New returns a new analyzer for the expressions of an arena.
func New(a *expr.Arena, dg *diag.Context) *Analyzer {
	return &Analyzer{a: a, diag: diag.OrDiscard(dg)}
}

// Arena returns the arena of the analyzer.
func (an *Analyzer) Arena() *expr.Arena {
	return an.a
}

// HasNonzeroDeriv returns true if the derivative m of the expression is structurally nonzero.
func (an *Analyzer) HasNonzeroDeriv(id expr.ID, ctx expr.EvalContext, m deriv.MultipleDeriv) (bool, error) {
	c, err := an.Classify(id, ctx, m)
	if err != nil {
		return false, err
	}
	return c.IsNonzero(), nil
}

// Classify returns the class of the derivative m of an expression in a context.
// Derivatives with a functional order above the maximum order of the
// context are zero.
func (an *Analyzer) Classify(id expr.ID, ctx expr.EvalContext, m deriv.MultipleDeriv) (expr.Class, error) {
	if !an.a.Valid(id) {
		return expr.ZeroClass, fmterr.Internalf("node %d does not belong to the arena", id)
	}
	if m.FunctionalOrder() > ctx.MaxDiffOrder() {
		return expr.ZeroClass, nil
	}
	memo := an.a.Memo(id, ctx)
	if c, ok := memo.Classes[m.Key()]; ok {
		return c, nil
	}
	an.diag.Count(ClassifyCounter)
	c, err := an.classify(id, ctx, m)
	if err != nil {
		return expr.ZeroClass, err
	}
	memo.Classes[m.Key()] = c
	return c, nil
}

func (an *Analyzer) classify(id expr.ID, ctx expr.EvalContext, m deriv.MultipleDeriv) (expr.Class, error) {
	n := an.a.Node(id)
	switch n.Kind() {
	case expr.ConstantKind:
		return classifyConstant(n, m), nil
	case expr.ParameterKind:
		return an.classifyParameter(n, ctx, m)
	case expr.CoordinateKind:
		return classifyCoordinate(n, m), nil
	case expr.CellDiameterKind, expr.CellVectorKind:
		if m.IsZeroth() {
			return expr.VariableClass, nil
		}
		return expr.ZeroClass, nil
	case expr.DiscreteKind:
		return classifyDiscrete(n, m), nil
	case expr.TestKind, expr.UnknownKind:
		return an.classifySymbolic(n, ctx, m)
	case expr.SumKind:
		return an.classifySum(n, ctx, m)
	case expr.ProductKind:
		return an.classifyProduct(n, ctx, m)
	case expr.DiffOpKind:
		return an.Classify(n.Child(0), ctx, m.With(deriv.Spatial(n.Direction())))
	case expr.NonlinearKind:
		return an.classifyNonlinear(n, ctx, m)
	case expr.ListKind:
		return expr.ZeroClass, fmterr.Errorf(fmterr.TypeCast, "cannot compute the derivatives of %s: a list is not a scalar expression", an.a.String(id))
	default:
		return expr.ZeroClass, fmterr.Internalf("cannot classify the derivatives of %s node %s", n.Kind(), an.a.String(id))
	}
}

func classifyConstant(n *expr.Node, m deriv.MultipleDeriv) expr.Class {
	if m.IsZeroth() && expr.Chop(n.Value()) != 0 {
		return expr.ConstantClass
	}
	return expr.ZeroClass
}

func (an *Analyzer) classifyParameter(n *expr.Node, ctx expr.EvalContext, m deriv.MultipleDeriv) (expr.Class, error) {
	if m.IsZeroth() {
		subst := an.a.SubstitutionOf(n.FuncID())
		switch subst.Kind {
		case expr.ZeroSubst:
			return expr.ZeroClass, nil
		case expr.PointSubst:
			return an.Classify(subst.Point, ctx, m)
		}
		return expr.ConstantClass, nil
	}
	if m.Order() == 1 && m.At(0) == deriv.Functional(n.FuncID(), deriv.MultiIndex{}) {
		return expr.ConstantClass, nil
	}
	return expr.ZeroClass, nil
}

// Coordinates are affine: only the first derivative along their own direction is nonzero.
func classifyCoordinate(n *expr.Node, m deriv.MultipleDeriv) expr.Class {
	switch {
	case m.IsZeroth():
		return expr.VariableClass
	case m.Order() == 1 && m.At(0) == deriv.Spatial(n.Direction()):
		return expr.ConstantClass
	}
	return expr.ZeroClass
}

// Discrete functions are polynomials of a given order inside each cell.
func classifyDiscrete(n *expr.Node, m deriv.MultipleDeriv) expr.Class {
	if m.FunctionalOrder() > 0 {
		return expr.ZeroClass
	}
	if m.SpatialIndex().Order() > n.BasisOrder() {
		return expr.ZeroClass
	}
	return expr.VariableClass
}

func (an *Analyzer) classifySymbolic(n *expr.Node, ctx expr.EvalContext, m deriv.MultipleDeriv) (expr.Class, error) {
	functional := m.FunctionalParts()
	switch len(functional) {
	case 0:
		subst := an.a.SubstitutionOf(n.FuncID())
		switch subst.Kind {
		case expr.ZeroSubst:
			return expr.ZeroClass, nil
		case expr.PointSubst:
			return an.Classify(subst.Point, ctx, m)
		}
		return expr.VariableClass, nil
	case 1:
		d := functional[0]
		if d.FuncID() == n.FuncID() && d.MultiIndex() == m.SpatialIndex() {
			return expr.VariableClass, nil
		}
	}
	return expr.ZeroClass, nil
}

func (an *Analyzer) classifySum(n *expr.Node, ctx expr.EvalContext, m deriv.MultipleDeriv) (expr.Class, error) {
	class := expr.ZeroClass
	for _, child := range n.Children() {
		c, err := an.Classify(child, ctx, m)
		if err != nil {
			return expr.ZeroClass, err
		}
		class = class.Join(c)
	}
	return class, nil
}

func (an *Analyzer) classifyProduct(n *expr.Node, ctx expr.EvalContext, m deriv.MultipleDeriv) (expr.Class, error) {
	class := expr.ZeroClass
	err := an.forEachNonzeroPair(n, ctx, m, func(_, _ deriv.MultipleDeriv, cl, cr expr.Class) {
		class = class.Join(cl.Join(cr))
	})
	return class, err
}

// forEachNonzeroPair calls f for each product rule pair (l, r) of m such
// that the derivative l of the left factor and r of the right factor are
// both nonzero.
func (an *Analyzer) forEachNonzeroPair(n *expr.Node, ctx expr.EvalContext, m deriv.MultipleDeriv, f func(l, r deriv.MultipleDeriv, cl, cr expr.Class)) error {
	lefts, rights := m.ProductRulePermutations()
	for i := range lefts {
		cl, err := an.Classify(n.Child(0), ctx, lefts[i])
		if err != nil {
			return err
		}
		if !cl.IsNonzero() {
			continue
		}
		cr, err := an.Classify(n.Child(1), ctx, rights[i])
		if err != nil {
			return err
		}
		if !cr.IsNonzero() {
			continue
		}
		f(lefts[i], rights[i], cl, cr)
	}
	return nil
}

func (an *Analyzer) classifyNonlinear(n *expr.Node, ctx expr.EvalContext, m deriv.MultipleDeriv) (expr.Class, error) {
	arg := n.Child(0)
	if m.IsZeroth() {
		c, err := an.Classify(arg, ctx, m)
		if err != nil {
			return expr.ZeroClass, err
		}
		if c.IsNonzero() {
			return c, nil
		}
		// The argument is zero: f(0) is a constant.
		var f0 [1]float64
		if err := n.Functor().Eval(0, f0[:]); err != nil || expr.Chop(f0[0]) != 0 {
			return expr.ConstantClass, nil
		}
		return expr.ZeroClass, nil
	}
	nonzero, err := an.nonzeroPartitions(arg, ctx, m)
	if err != nil {
		return expr.ZeroClass, err
	}
	if len(nonzero) > 0 {
		return expr.VariableClass, nil
	}
	return expr.ZeroClass, nil
}

// nonzeroPartitions returns the partitions of m of which all blocks are
// nonzero derivatives of the argument of a nonlinear operator.
func (an *Analyzer) nonzeroPartitions(arg expr.ID, ctx expr.EvalContext, m deriv.MultipleDeriv) ([][]deriv.MultipleDeriv, error) {
	var nonzero [][]deriv.MultipleDeriv
	for _, partition := range m.Partitions() {
		allNonzero := true
		for _, block := range partition {
			c, err := an.Classify(arg, ctx, block)
			if err != nil {
				return nil, err
			}
			if !c.IsNonzero() {
				allNonzero = false
				break
			}
		}
		if allNonzero {
			nonzero = append(nonzero, partition)
		}
	}
	return nonzero, nil
}
