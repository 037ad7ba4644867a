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
	"go.uber.org/multierr"
)

// nonlinearEntry computes one derivative of f(x) with the chain rule.
// Each partition lists the derivatives of x multiplied by f^(k)(x) where k
// is the number of blocks of the partition.
type nonlinearEntry struct {
	entry      expr.Entry
	partitions [][]expr.Entry
}

type nonlinearEvaluator struct {
	operation
	functor expr.Functor
	arg     expr.Entry
	// maxOrder is the highest derivative of f required.
	maxOrder int
	entries  []nonlinearEntry
}

var _ Evaluator = (*nonlinearEvaluator)(nil)

func newNonlinear(op operation) (*nonlinearEvaluator, error) {
	ev := &nonlinearEvaluator{
		operation: op,
		functor:   op.a.Node(op.id).Functor(),
	}
	argSS := op.children[0].Superset()
	var ok bool
	if ev.arg, ok = argSS.Lookup(deriv.New()); !ok {
		return nil, fmterr.Internalf("the value of the argument of %s has not been computed", op.a.String(op.id))
	}
	for _, entry := range op.ss.Entries() {
		ne := nonlinearEntry{entry: entry}
		if entry.Class.IsNonzero() && !entry.Deriv.IsZeroth() {
			for _, partition := range entry.Deriv.Partitions() {
				blocks, ok := lookupBlocks(argSS, partition)
				if !ok {
					continue
				}
				ne.partitions = append(ne.partitions, blocks)
				ev.maxOrder = max(ev.maxOrder, len(blocks))
			}
			if len(ne.partitions) == 0 {
				return nil, fmterr.Internalf("derivative %s of %s has no nonzero term", op.a.MultipleDerivString(entry.Deriv), op.a.String(op.id))
			}
		}
		ev.entries = append(ev.entries, ne)
	}
	return ev, nil
}

func (ev *nonlinearEvaluator) Eval(mgr *Manager, constants []float64, vectors []*kernels.Vector) error {
	results, err := ev.evalChildren(mgr)
	if err != nil {
		return err
	}
	res := results[0]
	fk, err := ev.evalDerivatives(mgr, res.operand(ev.arg))
	if err != nil {
		res.Release()
		return err
	}
	for _, ne := range ev.entries {
		switch {
		case !ne.entry.Class.IsNonzero():
			constants[ne.entry.Index] = 0
		case ne.entry.Deriv.IsZeroth() && ne.entry.IsConstant():
			if !fk[0].IsAtomic() {
				err = fmterr.Internalf("constant value of %s computed from a variable argument", ev.String())
			}
			constants[ne.entry.Index] = kernels.Chop(fk[0].Atom(), expr.ChopTolerance)
		default:
			out := mgr.pool.Pop()
			vectors[ne.entry.Index] = out
			if ne.entry.Deriv.IsZeroth() {
				kernels.Accumulate(out, 1, fk[0])
				continue
			}
			ev.chainRule(mgr, out, res, fk, ne.partitions)
		}
	}
	return multierr.Combine(err, releaseOperands(mgr.pool, fk), res.Release())
}

// evalDerivatives evaluates f and its derivatives up to the maximum order
// required at the value of the argument.
func (ev *nonlinearEvaluator) evalDerivatives(mgr *Manager, x kernels.Operand) ([]kernels.Operand, error) {
	buf := make([]float64, ev.maxOrder+1)
	fk := make([]kernels.Operand, len(buf))
	if x.IsAtomic() {
		if err := ev.functor.Eval(x.Atom(), buf); err != nil {
			return nil, err
		}
		for k, v := range buf {
			fk[k] = kernels.Atom(v)
		}
		return fk, nil
	}
	vecs := make([]*kernels.Vector, len(buf))
	for k := range vecs {
		vecs[k] = mgr.pool.Pop()
		fk[k] = kernels.Vec(vecs[k])
	}
	for p, xp := range x.Vector().Flat() {
		if err := ev.functor.Eval(xp, buf); err != nil {
			releaseOperands(mgr.pool, fk)
			return nil, err
		}
		for k, v := range buf {
			vecs[k].Flat()[p] = v
		}
	}
	return fk, nil
}

// chainRule accumulates the sum over partitions P of f^(|P|)(x) times the
// product of the derivatives of x of the blocks of P.
func (ev *nonlinearEvaluator) chainRule(mgr *Manager, out *kernels.Vector, res *Results, fk []kernels.Operand, partitions [][]expr.Entry) {
	tmp := mgr.pool.Pop()
	for _, blocks := range partitions {
		tmp.Fill(0)
		kernels.Accumulate(tmp, 1, fk[len(blocks)])
		for _, block := range blocks {
			kernels.MulInPlace(tmp, res.operand(block))
		}
		kernels.Accumulate(out, 1, kernels.Vec(tmp))
	}
	mgr.pool.Release(tmp)
}

func lookupBlocks(ss *expr.Superset, partition []deriv.MultipleDeriv) ([]expr.Entry, bool) {
	blocks := make([]expr.Entry, len(partition))
	for i, block := range partition {
		entry, ok := ss.Lookup(block)
		if !ok || !entry.Class.IsNonzero() {
			return nil, false
		}
		blocks[i] = entry
	}
	return blocks, true
}

func releaseOperands(pool *kernels.Pool, ops []kernels.Operand) error {
	var err error
	for _, op := range ops {
		if !op.IsAtomic() {
			err = multierr.Append(err, pool.Release(op.Vector()))
		}
	}
	return err
}
