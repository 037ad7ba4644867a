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

// node is the part common to all evaluators.
type node struct {
	a  *expr.Arena
	id expr.ID
	ss *expr.Superset
}

func (n *node) Superset() *expr.Superset {
	return n.ss
}

func (n *node) String() string {
	return n.a.String(n.id)
}

// invalidOrder returns the error reported when a derivative cannot be
// computed by the evaluator of a node.
func (n *node) invalidOrder(m deriv.MultipleDeriv) error {
	return fmterr.Errorf(fmterr.InvalidOrder, "derivative %s cannot be evaluated for %s node %s", n.a.MultipleDerivString(m), n.a.Kind(n.id), n.a.String(n.id))
}

func (n *node) checkMaxEntries(maxEntries int) error {
	if n.ss.Len() <= maxEntries {
		return nil
	}
	return fmterr.Errorf(fmterr.MalformedSparsity, "%s node %s has %d derivatives but at most %d can be nonzero:\n%s", n.a.Kind(n.id), n.a.String(n.id), n.ss.Len(), maxEntries, n.ss.String())
}

// constEntry is a spatially constant entry with a precomputed value.
type constEntry struct {
	index int
	value float64
}

type constantEvaluator struct {
	node
	values []constEntry
}

var _ Evaluator = (*constantEvaluator)(nil)

// newConstantEvaluator returns the evaluator of a node of which all the
// derivatives are spatially constant and known after preprocessing.
// valueOf returns the value of a nonzero derivative.
func newConstantEvaluator(n node, maxEntries int, valueOf func(m deriv.MultipleDeriv) (float64, bool)) (*constantEvaluator, error) {
	if err := n.checkMaxEntries(maxEntries); err != nil {
		return nil, err
	}
	ev := &constantEvaluator{node: n}
	for _, entry := range n.ss.Entries() {
		if !entry.Class.IsNonzero() {
			ev.values = append(ev.values, constEntry{index: entry.Index})
			continue
		}
		if !entry.IsConstant() {
			return nil, fmterr.Internalf("%s node %s has a variable derivative %s", n.a.Kind(n.id), n.a.String(n.id), n.a.MultipleDerivString(entry.Deriv))
		}
		v, ok := valueOf(entry.Deriv)
		if !ok {
			return nil, n.invalidOrder(entry.Deriv)
		}
		ev.values = append(ev.values, constEntry{index: entry.Index, value: v})
	}
	return ev, nil
}

func (ev *constantEvaluator) Eval(mgr *Manager, constants []float64, vectors []*kernels.Vector) error {
	for _, c := range ev.values {
		constants[c.index] = c.value
	}
	return nil
}

func newConstant(n node) (Evaluator, error) {
	value := n.a.Node(n.id).Value()
	return newConstantEvaluator(n, 1, func(m deriv.MultipleDeriv) (float64, bool) {
		return value, m.IsZeroth()
	})
}

func newParameter(n node) (Evaluator, error) {
	param := n.a.Node(n.id)
	value := param.Value()
	subst := n.a.SubstitutionOf(param.FuncID())
	switch subst.Kind {
	case expr.ZeroSubst:
		value = 0
	case expr.PointSubst:
		if n.a.Kind(subst.Point) != expr.ConstantKind {
			return nil, fmterr.Errorf(fmterr.TypeCast, "parameter %s evaluated at %s which is not a constant", param.Name(), n.a.String(subst.Point))
		}
		value = n.a.Node(subst.Point).Value()
	}
	dp := deriv.Functional(param.FuncID(), deriv.MultiIndex{})
	return newConstantEvaluator(n, 2, func(m deriv.MultipleDeriv) (float64, bool) {
		switch {
		case m.IsZeroth():
			return value, true
		case m.Order() == 1 && m.At(0) == dp:
			return 1, true
		}
		return 0, false
	})
}

// vectorEntry is a variable entry computed by fill.
type vectorEntry struct {
	index int
	fill  func(mgr *Manager, out []float64) error
}

// leafEvaluator evaluates leaves with both constant and variable derivatives.
type leafEvaluator struct {
	constantEvaluator
	vectors []vectorEntry
}

var _ Evaluator = (*leafEvaluator)(nil)

func (ev *leafEvaluator) Eval(mgr *Manager, constants []float64, vectors []*kernels.Vector) error {
	if err := ev.constantEvaluator.Eval(mgr, constants, vectors); err != nil {
		return err
	}
	for _, entry := range ev.vectors {
		out := mgr.pool.Pop()
		vectors[entry.index] = out
		if err := entry.fill(mgr, out.Flat()); err != nil {
			return err
		}
	}
	return nil
}

// newLeafEvaluator returns the evaluator of a leaf. valueOf returns the
// value of a constant derivative and fillOf the function computing a
// variable derivative.
func newLeafEvaluator(n node, maxEntries int, valueOf func(deriv.MultipleDeriv) (float64, bool), fillOf func(deriv.MultipleDeriv) (func(*Manager, []float64) error, bool)) (*leafEvaluator, error) {
	if err := n.checkMaxEntries(maxEntries); err != nil {
		return nil, err
	}
	ev := &leafEvaluator{constantEvaluator: constantEvaluator{node: n}}
	for _, entry := range n.ss.Entries() {
		switch {
		case !entry.Class.IsNonzero():
			ev.values = append(ev.values, constEntry{index: entry.Index})
		case entry.IsConstant():
			v, ok := valueOf(entry.Deriv)
			if !ok {
				return nil, n.invalidOrder(entry.Deriv)
			}
			ev.values = append(ev.values, constEntry{index: entry.Index, value: v})
		default:
			fill, ok := fillOf(entry.Deriv)
			if !ok {
				return nil, n.invalidOrder(entry.Deriv)
			}
			ev.vectors = append(ev.vectors, vectorEntry{index: entry.Index, fill: fill})
		}
	}
	return ev, nil
}

func noConstant(deriv.MultipleDeriv) (float64, bool) {
	return 0, false
}

func newCoordinate(n node) (Evaluator, error) {
	dir := n.a.Node(n.id).Direction()
	return newLeafEvaluator(n, 2,
		func(m deriv.MultipleDeriv) (float64, bool) {
			return 1, m.Order() == 1 && m.At(0) == deriv.Spatial(dir)
		},
		func(m deriv.MultipleDeriv) (func(*Manager, []float64) error, bool) {
			return func(mgr *Manager, out []float64) error {
				return mgr.med.EvalCoordinate(dir, out)
			}, m.IsZeroth()
		})
}

func newCellDiameter(n node) (Evaluator, error) {
	return newLeafEvaluator(n, 1, noConstant,
		func(m deriv.MultipleDeriv) (func(*Manager, []float64) error, bool) {
			return func(mgr *Manager, out []float64) error {
				return mgr.med.EvalCellDiameter(out)
			}, m.IsZeroth()
		})
}

func newCellVector(n node) (Evaluator, error) {
	dir := n.a.Node(n.id).Direction()
	return newLeafEvaluator(n, 1, noConstant,
		func(m deriv.MultipleDeriv) (func(*Manager, []float64) error, bool) {
			return func(mgr *Manager, out []float64) error {
				return mgr.med.EvalCellVector(dir, out)
			}, m.IsZeroth()
		})
}

// discreteFill returns the function evaluating a spatial derivative of a
// discrete function.
func discreteFill(a *expr.Arena, id expr.ID, mi deriv.MultiIndex) func(*Manager, []float64) error {
	return func(mgr *Manager, out []float64) error {
		return mgr.med.EvalDiscreteFunction(a, id, mi, out)
	}
}

func newDiscrete(n node) (Evaluator, error) {
	return newLeafEvaluator(n, n.ss.Len(), noConstant,
		func(m deriv.MultipleDeriv) (func(*Manager, []float64) error, bool) {
			if m.FunctionalOrder() > 0 {
				return nil, false
			}
			return discreteFill(n.a, n.id, m.SpatialIndex()), true
		})
}

func fillOnes(_ *Manager, out []float64) error {
	for i := range out {
		out[i] = 1
	}
	return nil
}

// newSymbolic returns the evaluator of a test or unknown function. Spatial
// derivatives are the derivatives of its evaluation point. The functional
// derivative with respect to itself is one.
func newSymbolic(n node) (Evaluator, error) {
	fun := n.a.Node(n.id)
	subst := n.a.SubstitutionOf(fun.FuncID())
	isSelf := func(m deriv.MultipleDeriv) bool {
		parts := m.FunctionalParts()
		return len(parts) == 1 && parts[0].FuncID() == fun.FuncID() && parts[0].MultiIndex() == m.SpatialIndex()
	}
	for _, entry := range n.ss.Entries() {
		if entry.Class.IsNonzero() && entry.Deriv.FunctionalOrder() == 0 && subst.Kind != expr.PointSubst {
			return nil, fmterr.Errorf(fmterr.TypeCast, "%s %s has no evaluation point", fun.Kind(), fun.Name())
		}
	}
	pointKind := expr.InvalidKind
	if subst.Kind == expr.PointSubst {
		pointKind = n.a.Kind(subst.Point)
	}
	valueOf := noConstant
	if pointKind == expr.ConstantKind {
		value := n.a.Node(subst.Point).Value()
		valueOf = func(m deriv.MultipleDeriv) (float64, bool) {
			return value, m.IsZeroth()
		}
	}
	return newLeafEvaluator(n, n.ss.Len(), valueOf,
		func(m deriv.MultipleDeriv) (func(*Manager, []float64) error, bool) {
			if isSelf(m) {
				return fillOnes, true
			}
			if m.FunctionalOrder() > 0 || pointKind != expr.DiscreteKind {
				return nil, false
			}
			return discreteFill(n.a, subst.Point, m.SpatialIndex()), true
		})
}
