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

// Package preproc prepares expressions for evaluation.
//
// Given an expression and the roles of the functions it depends on, the
// preprocessor substitutes the functions for evaluation, identifies the
// derivatives the caller needs, computes the sparsity supersets of the
// expression tree, and builds the numerical evaluators.
package preproc

import (
	"github.com/gx-org/weakform/base/diag"
	"github.com/gx-org/weakform/build/deriv"
	"github.com/gx-org/weakform/build/expr"
	"github.com/gx-org/weakform/build/fmterr"
	"github.com/gx-org/weakform/build/sparsity"
	"github.com/gx-org/weakform/internal/exprdeps"
)

// EvaluatorFactory builds the evaluators of an expression tree once its
// supersets have been computed.
type EvaluatorFactory interface {
	SetupEval(an *sparsity.Analyzer, root expr.ID, ctx expr.EvalContext) error
}

// Option configures a preprocessor.
type Option func(*Preprocessor)

// WithDiag sets the diagnostics context.
func WithDiag(dg *diag.Context) Option {
	return func(p *Preprocessor) {
		p.diag = dg
	}
}

// WithProbeOrder sets the maximum differentiation order used to identify
// the nonzero derivatives of an expression.
func WithProbeOrder(order int) Option {
	return func(p *Preprocessor) {
		p.probeOrder = order
	}
}

// Preprocessor prepares the expressions of an arena for evaluation.
type Preprocessor struct {
	a          *expr.Arena
	an         *sparsity.Analyzer
	diag       *diag.Context
	probeOrder int
}

// New returns a preprocessor for the expressions of an arena.
func New(a *expr.Arena, opts ...Option) *Preprocessor {
	p := &Preprocessor{a: a, probeOrder: 2}
	for _, opt := range opts {
		opt(p)
	}
	p.diag = diag.OrDiscard(p.diag)
	p.an = sparsity.New(a, p.diag)
	return p
}

// Analyzer returns the sparsity analyzer used by the preprocessor.
func (p *Preprocessor) Analyzer() *sparsity.Analyzer {
	return p.an
}

func (p *Preprocessor) probe() expr.EvalContext {
	return expr.NewEvalContext("probe", "probe", p.probeOrder)
}

// prepare checks the expression and the declared lists, installs the
// substitutions, and checks that all the functions the expression depends
// on have been declared.
func (p *Preprocessor) prepare(root expr.ID, decls ...*declaration) (*declarations, error) {
	if err := p.a.Err(); err != nil {
		return nil, err
	}
	if !p.a.Valid(root) {
		return nil, fmterr.Errorf(fmterr.TypeCast, "expression %d is not a node of the arena", root)
	}
	ds, err := newDeclarations(p.a, decls...)
	if err != nil {
		return nil, err
	}
	if ds.install() {
		p.diag.Log(diag.Medium, "substitutions changed: caches reset", "lists", ds.listNames())
	}
	app := &fmterr.Appender{}
	for _, d := range exprdeps.Functional(p.a, root) {
		if _, ok := ds.byFID[d.FuncID()]; ok {
			continue
		}
		app.Appendf(fmterr.UndeclaredFunction, "derivative %s of %s does not appear in any of the lists: %s", p.a.DerivString(d), p.a.String(root), ds.listNames())
	}
	if app.Empty() {
		return ds, nil
	}
	p.diag.Log(diag.Low, "undeclared functions", "expr", p.a.String(root), "count", len(app.Errors()))
	return ds, app.Err()
}

// nonzeroDerivs returns the zeroth derivative, the first derivatives
// with respect to the functions of the first role which are nonzero, and
// the nonzero mixed derivatives with respect to functions of the first
// role and functions of the second role.
func (p *Preprocessor) nonzeroDerivs(root expr.ID, ds *declarations, first, second role, mixed bool) (*deriv.Set, error) {
	ctx := p.probe()
	nonzero := deriv.NewSet(deriv.New())
	var firsts, seconds []deriv.Derivative
	for _, d := range exprdeps.Functional(p.a, root) {
		if ds.has(d.FuncID(), first) {
			firsts = append(firsts, d)
		}
		if mixed && ds.has(d.FuncID(), second) {
			seconds = append(seconds, d)
		}
	}
	put := func(m deriv.MultipleDeriv) error {
		ok, err := p.an.HasNonzeroDeriv(root, ctx, m)
		if err != nil {
			return err
		}
		if ok {
			nonzero.Put(m)
		}
		return nil
	}
	for _, df := range firsts {
		if err := put(deriv.New(df)); err != nil {
			return nil, err
		}
		for _, dsec := range seconds {
			if err := put(deriv.New(df, dsec)); err != nil {
				return nil, err
			}
		}
	}
	return nonzero, nil
}

// IdentifyNonzeroDerivs substitutes tests by zero and unknowns by their
// evaluation points and returns the derivatives of expr which are nonzero
// and needed to assemble a linear system: the zeroth derivative, the first
// derivatives with respect to test functions, and the mixed second
// derivatives with respect to a test and an unknown function.
func (p *Preprocessor) IdentifyNonzeroDerivs(root expr.ID, tests, unks, unkEvalPts []expr.ID) (*deriv.Set, error) {
	defer p.diag.Time("preprocess")()
	ds, err := p.prepare(root,
		&declaration{role: testRole, funcs: tests},
		&declaration{role: unknownRole, funcs: unks, evalPts: unkEvalPts},
	)
	if err != nil {
		return nil, fmterr.ToStackTraceError(err)
	}
	set, err := p.nonzeroDerivs(root, ds, testRole, unknownRole, true)
	if err != nil {
		return nil, fmterr.ToStackTraceError(err)
	}
	p.diag.Log(diag.Low, "nonzero derivatives", "expr", p.a.String(root), "derivs", p.a.SetString(set))
	return set, nil
}

// setup computes the supersets of the expression tree for the required
// derivatives and builds the evaluators if a factory is given.
func (p *Preprocessor) setup(root expr.ID, required *deriv.Set, ctx expr.EvalContext, factory EvaluatorFactory) error {
	p.an.Reset(root, ctx)
	ss, err := p.an.FindSuperset(root, ctx, required)
	if err != nil {
		return err
	}
	p.diag.Log(diag.Medium, "top-level superset", "expr", p.a.String(root), "ctx", ctx.String(), "entries", ss.Len())
	if factory == nil {
		return nil
	}
	defer p.diag.Time("setup eval")()
	return factory.SetupEval(p.an, root, ctx)
}

// SetupExpr identifies the nonzero derivatives of an expression (see
// IdentifyNonzeroDerivs), recomputes the supersets of the expression tree
// in the evaluation context for these derivatives, and builds the evaluators
// with the factory. The factory can be nil.
func (p *Preprocessor) SetupExpr(root expr.ID, tests, unks, unkEvalPts []expr.ID, ctx expr.EvalContext, factory EvaluatorFactory) (*deriv.Set, error) {
	derivs, err := p.IdentifyNonzeroDerivs(root, tests, unks, unkEvalPts)
	if err != nil {
		return nil, err
	}
	if err := p.setup(root, derivs, ctx, factory); err != nil {
		return nil, fmterr.ToStackTraceError(err)
	}
	return derivs, nil
}

// SetupVariations prepares an expression for the computation of its
// first and second variations: variations and unknowns are substituted by
// their evaluation points. The required derivatives are the zeroth
// derivative, the first derivatives with respect to the variations, and
// the mixed derivatives with respect to a variation and an unknown.
func (p *Preprocessor) SetupVariations(root expr.ID, vars, varEvalPts, unks, unkEvalPts []expr.ID, ctx expr.EvalContext, factory EvaluatorFactory) (*deriv.Set, error) {
	defer p.diag.Time("preprocess")()
	ds, err := p.prepare(root,
		&declaration{role: variationRole, funcs: vars, evalPts: varEvalPts},
		&declaration{role: unknownRole, funcs: unks, evalPts: unkEvalPts},
	)
	if err != nil {
		return nil, fmterr.ToStackTraceError(err)
	}
	derivs, err := p.nonzeroDerivs(root, ds, variationRole, unknownRole, true)
	if err != nil {
		return nil, fmterr.ToStackTraceError(err)
	}
	if err := p.setup(root, derivs, ctx, factory); err != nil {
		return nil, fmterr.ToStackTraceError(err)
	}
	return derivs, nil
}

// SetupGradient prepares an expression for the computation of its gradient
// with respect to the variations. Fixed functions are substituted by their
// evaluation point and never differentiated.
func (p *Preprocessor) SetupGradient(root expr.ID, vars, varEvalPts, fixed, fixedEvalPts []expr.ID, ctx expr.EvalContext, factory EvaluatorFactory) (*deriv.Set, error) {
	defer p.diag.Time("preprocess")()
	ds, err := p.prepare(root,
		&declaration{role: variationRole, funcs: vars, evalPts: varEvalPts},
		&declaration{role: fixedRole, funcs: fixed, evalPts: fixedEvalPts},
	)
	if err != nil {
		return nil, fmterr.ToStackTraceError(err)
	}
	derivs, err := p.nonzeroDerivs(root, ds, variationRole, fixedRole, false)
	if err != nil {
		return nil, fmterr.ToStackTraceError(err)
	}
	if err := p.setup(root, derivs, ctx, factory); err != nil {
		return nil, fmterr.ToStackTraceError(err)
	}
	return derivs, nil
}

// SetupFunctional prepares an expression for the computation of its value only.
func (p *Preprocessor) SetupFunctional(root expr.ID, fixed, fixedEvalPts []expr.ID, ctx expr.EvalContext, factory EvaluatorFactory) (*deriv.Set, error) {
	defer p.diag.Time("preprocess")()
	if _, err := p.prepare(root, &declaration{role: fixedRole, funcs: fixed, evalPts: fixedEvalPts}); err != nil {
		return nil, fmterr.ToStackTraceError(err)
	}
	derivs := deriv.NewSet(deriv.New())
	if err := p.setup(root, derivs, ctx, factory); err != nil {
		return nil, fmterr.ToStackTraceError(err)
	}
	return derivs, nil
}
