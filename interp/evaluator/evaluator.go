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

// Package evaluator evaluates the nonzero derivatives of expressions at
// quadrature points.
//
// One evaluator is built per node and evaluation context once the sparsity
// supersets of the expression tree are known. Evaluators compute the
// entries of their superset: spatially constant entries as scalars, and the
// other entries as vectors taken from the pool of the manager.
package evaluator

import (
	"github.com/gx-org/weakform/base/diag"
	"github.com/gx-org/weakform/build/expr"
	"github.com/gx-org/weakform/interp/kernels"
	"github.com/gx-org/weakform/interp/mediator"
)

type (
	// Evaluator computes the entries of the superset of a node.
	Evaluator interface {
		expr.Evaluator

		// Eval writes the value of the constant entries of the superset into
		// constants, and the value of the other entries into vectors.
		// Vectors are popped from the pool of the manager and owned by the
		// caller, which must release them.
		Eval(mgr *Manager, constants []float64, vectors []*kernels.Vector) error
	}

	// Manager provides evaluators with the mediator and the pool of vectors.
	Manager struct {
		ctx  expr.EvalContext
		med  mediator.Mediator
		pool *kernels.Pool
		diag *diag.Context
	}

	// Option configures a manager.
	Option func(*Manager)
)

// WithDiag sets the diagnostics context of a manager.
func WithDiag(dg *diag.Context) Option {
	return func(mgr *Manager) {
		mgr.diag = dg
	}
}

// WithPoolCapacity preallocates vectors in the pool of the manager.
func WithPoolCapacity(capacity int) Option {
	return func(mgr *Manager) {
		mgr.pool = kernels.NewPool(mgr.med.NumPoints(), capacity)
	}
}

// NewManager returns a manager evaluating expressions in a context at the
// quadrature points of a mediator.
func NewManager(ctx expr.EvalContext, med mediator.Mediator, opts ...Option) *Manager {
	mgr := &Manager{ctx: ctx, med: med}
	for _, opt := range opts {
		opt(mgr)
	}
	if mgr.pool == nil {
		mgr.pool = kernels.NewPool(med.NumPoints(), 0)
	}
	mgr.diag = diag.OrDiscard(mgr.diag)
	return mgr
}

// Context returns the evaluation context.
func (mgr *Manager) Context() expr.EvalContext {
	return mgr.ctx
}

// Mediator returns the mediator evaluating leaves.
func (mgr *Manager) Mediator() mediator.Mediator {
	return mgr.med
}

// Pool returns the pool of vectors.
func (mgr *Manager) Pool() *kernels.Pool {
	return mgr.pool
}

// Diag returns the diagnostics context.
func (mgr *Manager) Diag() *diag.Context {
	return mgr.diag
}

// evalResults evaluates an evaluator into new results.
func (mgr *Manager) evalResults(a *expr.Arena, ev Evaluator) (*Results, error) {
	res := newResults(a, ev.Superset(), mgr.pool)
	if err := ev.Eval(mgr, res.constants, res.vectors); err != nil {
		res.Release()
		return nil, err
	}
	return res, nil
}
