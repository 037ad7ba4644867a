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
	"github.com/gx-org/weakform/base/diag"
	"github.com/gx-org/weakform/build/expr"
	"github.com/gx-org/weakform/build/fmterr"
	"github.com/gx-org/weakform/build/sparsity"
)

// Factory builds the evaluators of expressions once their sparsity
// supersets are known.
type Factory struct {
	diag *diag.Context
}

// NewFactory returns a new evaluator factory.
func NewFactory(dg *diag.Context) *Factory {
	return &Factory{diag: diag.OrDiscard(dg)}
}

// SetupEval builds the evaluators of an expression and all its descendants
// in a context. Evaluators are stored in the memo of each node.
func (f *Factory) SetupEval(an *sparsity.Analyzer, root expr.ID, ctx expr.EvalContext) error {
	defer f.diag.Time("evaluator.setup")()
	a := an.Arena()
	for id := range a.PostOrder(root) {
		memo := a.Memo(id, ctx)
		if memo.Evaluator != nil {
			continue
		}
		ss, err := an.Superset(id, ctx)
		if err != nil {
			return err
		}
		ev, err := f.build(node{a: a, id: id, ss: ss}, ctx)
		if err != nil {
			return err
		}
		memo.Evaluator = ev
		f.diag.Log(diag.Medium, "evaluator", "expr", a.String(id), "entries", ss.Len())
	}
	return nil
}

func (f *Factory) build(n node, ctx expr.EvalContext) (Evaluator, error) {
	switch n.a.Kind(n.id) {
	case expr.ConstantKind:
		return newConstant(n)
	case expr.ParameterKind:
		return newParameter(n)
	case expr.CoordinateKind:
		return newCoordinate(n)
	case expr.CellDiameterKind:
		return newCellDiameter(n)
	case expr.CellVectorKind:
		return newCellVector(n)
	case expr.DiscreteKind:
		return newDiscrete(n)
	case expr.TestKind, expr.UnknownKind:
		return newSymbolic(n)
	}
	op, err := newOperation(n, ctx)
	if err != nil {
		return nil, err
	}
	switch kind := n.a.Kind(n.id); kind {
	case expr.SumKind:
		return newSum(op)
	case expr.ProductKind:
		return newProduct(op)
	case expr.DiffOpKind:
		return newDiffOp(op)
	case expr.NonlinearKind:
		return newNonlinear(op)
	default:
		return nil, fmterr.Internalf("cannot build an evaluator for %s node %s", kind, n.a.String(n.id))
	}
}

func newOperation(n node, ctx expr.EvalContext) (operation, error) {
	op := operation{node: n}
	for _, child := range n.a.Node(n.id).Children() {
		ev, err := evaluatorOf(n.a, child, ctx)
		if err != nil {
			return operation{}, err
		}
		op.children = append(op.children, ev)
	}
	return op, nil
}

func evaluatorOf(a *expr.Arena, id expr.ID, ctx expr.EvalContext) (Evaluator, error) {
	if !a.HasMemo(id, ctx) {
		return nil, fmterr.Internalf("no evaluator for %s in %s", a.String(id), ctx)
	}
	ev, ok := a.Memo(id, ctx).Evaluator.(Evaluator)
	if !ok {
		return nil, fmterr.Internalf("no evaluator for %s in %s", a.String(id), ctx)
	}
	return ev, nil
}

// Evaluate evaluates an expression of which the evaluator has been built in
// the context of the manager. The caller must release the results.
func Evaluate(mgr *Manager, a *expr.Arena, id expr.ID) (*Results, error) {
	defer mgr.diag.Time("evaluate")()
	ev, err := evaluatorOf(a, id, mgr.ctx)
	if err != nil {
		return nil, fmterr.ToStackTraceError(err)
	}
	res, err := mgr.evalResults(a, ev)
	if err != nil {
		return nil, fmterr.ToStackTraceError(err)
	}
	if mgr.diag.Enabled(diag.High) {
		mgr.diag.Log(diag.High, "results", "expr", a.String(id), "table", res.String())
	}
	return res, nil
}
