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

package preproc_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/gx-org/weakform/base/diag"
	"github.com/gx-org/weakform/build/deriv"
	"github.com/gx-org/weakform/build/expr"
	"github.com/gx-org/weakform/build/expr/exprtest"
	"github.com/gx-org/weakform/build/fmterr"
	"github.com/gx-org/weakform/build/preproc"
	"github.com/gx-org/weakform/build/sparsity"
)

var ctx = expr.NewEvalContext("interior", "gauss2", 2)

func checkSet(t *testing.T, a *expr.Arena, got, want *deriv.Set) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("got derivatives %s but want %s", a.SetString(got), a.SetString(want))
	}
}

func TestIdentifyReaction(t *testing.T) {
	p := exprtest.Reaction()
	pp := preproc.New(p.Arena)
	got, err := pp.IdentifyNonzeroDerivs(p.Root, nil, p.Unknowns, p.EvalPts)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	checkSet(t, p.Arena, got, deriv.NewSet(deriv.New()))
}

func TestSetupVariationsReaction(t *testing.T) {
	p := exprtest.Reaction()
	a := p.Arena
	pp := preproc.New(a)
	got, err := pp.SetupVariations(p.Root, p.Unknowns, p.EvalPts, p.Unknowns, p.EvalPts, ctx, nil)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	du := exprtest.D(a, p.Unknowns[0])
	want := deriv.NewSet(deriv.New(), deriv.New(du), deriv.New(du, du))
	checkSet(t, a, got, want)
	ss := a.Memo(p.Root, ctx).Superset
	if ss == nil {
		t.Fatalf("top-level superset not computed")
	}
	checkSet(t, a, ss.Set(), want)
	if entry, ok := ss.Lookup(deriv.New(du, du)); !ok || entry.Class != expr.VariableClass {
		t.Errorf("got entry %v for %s", entry, a.MultipleDerivString(deriv.New(du, du)))
	}
}

func TestSetupExprPoisson(t *testing.T) {
	p := exprtest.Poisson(2)
	a := p.Arena
	v, u := p.Tests[0], p.Unknowns[0]
	vf, uf := exprtest.FuncID(a, v), exprtest.FuncID(a, u)
	vx := deriv.Functional(vf, deriv.MultiIndex{1, 0, 0})
	vy := deriv.Functional(vf, deriv.MultiIndex{0, 1, 0})
	ux := deriv.Functional(uf, deriv.MultiIndex{1, 0, 0})
	uy := deriv.Functional(uf, deriv.MultiIndex{0, 1, 0})
	dg := diag.Discard()
	pp := preproc.New(a, preproc.WithDiag(dg))
	got, err := pp.SetupExpr(p.Root, p.Tests, p.Unknowns, p.EvalPts, ctx, nil)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	want := deriv.NewSet(
		deriv.New(),
		deriv.New(vx),
		deriv.New(vy),
		deriv.New(exprtest.D(a, v)),
		deriv.New(vx, ux),
		deriv.New(vy, uy),
	)
	checkSet(t, a, got, want)
	ss := a.Memo(p.Root, ctx).Superset
	if ss == nil {
		t.Fatalf("top-level superset not computed")
	}
	zeroth, ok := ss.Lookup(deriv.New())
	if !ok {
		t.Fatalf("zeroth derivative missing from superset:\n%s", ss)
	}
	if zeroth.Class != expr.ZeroClass {
		t.Errorf("zeroth derivative of %s with zero test functions: got class %s but want %s", a.String(p.Root), zeroth.Class, expr.ZeroClass)
	}
	if !strings.Contains(dg.String(), "timer preprocess: 1 calls") {
		t.Errorf("preprocess timer missing from report:\n%s", dg)
	}
}

func TestIdentifyDiffOfProduct(t *testing.T) {
	a := expr.NewArena()
	v := a.TestFunction("v")
	u := a.UnknownFunction("u")
	u0 := a.DiscreteFunction("u0", 1)
	root := a.Product(a.Diff(0, a.Product(a.Coordinate(0), v)), u)
	exprtest.CheckArena(t, a)
	pp := preproc.New(a)
	got, err := pp.IdentifyNonzeroDerivs(root, []expr.ID{v}, []expr.ID{u}, []expr.ID{u0})
	if err != nil {
		t.Fatalf("%+v", err)
	}
	dv, du := exprtest.D(a, v), exprtest.D(a, u)
	dvx := deriv.Functional(exprtest.FuncID(a, v), deriv.MultiIndex{1, 0, 0})
	want := deriv.NewSet(
		deriv.New(),
		deriv.New(dv),
		deriv.New(dvx),
		deriv.New(dv, du),
		deriv.New(dvx, du),
	)
	checkSet(t, a, got, want)
}

func TestUnknownParameter(t *testing.T) {
	a := expr.NewArena()
	v := a.TestFunction("v")
	k := a.Parameter("k", 1)
	root := a.Product(k, v)
	k0 := a.Constant(3)
	pp := preproc.New(a)
	got, err := pp.IdentifyNonzeroDerivs(root, []expr.ID{v}, []expr.ID{k}, []expr.ID{k0})
	if err != nil {
		t.Fatalf("%+v", err)
	}
	dv, dk := exprtest.D(a, v), exprtest.D(a, k)
	checkSet(t, a, got, deriv.NewSet(deriv.New(), deriv.New(dv), deriv.New(dv, dk)))
	c, err := pp.Analyzer().Classify(root, expr.NewEvalContext("probe", "probe", 2), deriv.New(dv, dk))
	if err != nil {
		t.Fatal(err)
	}
	if c != expr.VariableClass {
		t.Errorf("got class %s but want %s", c, expr.VariableClass)
	}
}

func TestSetupGradient(t *testing.T) {
	a := expr.NewArena()
	u := a.UnknownFunction("u")
	k := a.Parameter("k", 1)
	root := a.Product(a.Product(u, u), k)
	u0 := a.DiscreteFunction("u0", 2)
	pp := preproc.New(a)
	got, err := pp.SetupGradient(root, []expr.ID{u}, []expr.ID{u0}, []expr.ID{k}, []expr.ID{a.Constant(2)}, ctx, nil)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	checkSet(t, a, got, deriv.NewSet(deriv.New(), deriv.New(exprtest.D(a, u))))
}

func TestSetupFunctional(t *testing.T) {
	p := exprtest.Reaction()
	a := p.Arena
	pp := preproc.New(a)
	got, err := pp.SetupFunctional(p.Root, p.Unknowns, p.EvalPts, ctx, nil)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	checkSet(t, a, got, deriv.NewSet(deriv.New()))
	ss := a.Memo(p.Root, ctx).Superset
	if ss == nil || ss.Len() != 1 || ss.NumVectors() != 1 {
		t.Errorf("incorrect top-level superset %v", ss)
	}
}

type fakeFactory struct {
	calls int
	root  expr.ID
	err   error
}

func (f *fakeFactory) SetupEval(an *sparsity.Analyzer, root expr.ID, ctx expr.EvalContext) error {
	f.calls++
	f.root = root
	return f.err
}

func TestFactory(t *testing.T) {
	p := exprtest.Nonlinear()
	pp := preproc.New(p.Arena)
	factory := &fakeFactory{}
	if _, err := pp.SetupExpr(p.Root, p.Tests, p.Unknowns, p.EvalPts, ctx, factory); err != nil {
		t.Fatalf("%+v", err)
	}
	if factory.calls != 1 || factory.root != p.Root {
		t.Errorf("factory called %d times with root %d but want once with root %d", factory.calls, factory.root, p.Root)
	}
	factory.err = fmt.Errorf("cannot build evaluators")
	if _, err := pp.SetupExpr(p.Root, p.Tests, p.Unknowns, p.EvalPts, ctx, factory); err == nil {
		t.Errorf("factory error not returned")
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*exprtest.Problem) error
		kinds []fmterr.Kind
		msg   string
	}{
		{
			name: "undeclared unknown",
			setup: func(p *exprtest.Problem) error {
				_, err := preproc.New(p.Arena).IdentifyNonzeroDerivs(p.Root, p.Tests, nil, nil)
				return err
			},
			kinds: []fmterr.Kind{fmterr.UndeclaredFunction},
			msg:   "derivative D[u(1,0,0)] of ((D[x](v)*D[x](u) + D[y](v)*D[y](u)) - f*v) does not appear in any of the lists: test functions [v], unknown functions []",
		},
		{
			name: "duplicate test",
			setup: func(p *exprtest.Problem) error {
				tests := []expr.ID{p.Tests[0], p.Tests[0]}
				_, err := preproc.New(p.Arena).IdentifyNonzeroDerivs(p.Root, tests, p.Unknowns, p.EvalPts)
				return err
			},
			kinds: []fmterr.Kind{fmterr.DuplicateFunction},
			msg:   "test functions: duplicate function: function v declared twice in the list of test functions [v, v]",
		},
		{
			name: "size mismatch",
			setup: func(p *exprtest.Problem) error {
				_, err := preproc.New(p.Arena).IdentifyNonzeroDerivs(p.Root, p.Tests, p.Unknowns, nil)
				return err
			},
			kinds: []fmterr.Kind{fmterr.SizeMismatch},
			msg:   "unknown functions: size mismatch: 1 unknown functions [u] but 0 evaluation points",
		},
		{
			name: "all declaration errors",
			setup: func(p *exprtest.Problem) error {
				tests := []expr.ID{p.Tests[0], p.Tests[0]}
				_, err := preproc.New(p.Arena).IdentifyNonzeroDerivs(p.Root, tests, p.Unknowns, nil)
				return err
			},
			kinds: []fmterr.Kind{fmterr.DuplicateFunction, fmterr.SizeMismatch},
		},
		{
			name: "unknown as test",
			setup: func(p *exprtest.Problem) error {
				_, err := preproc.New(p.Arena).IdentifyNonzeroDerivs(p.Root, p.Unknowns, p.Unknowns, p.EvalPts)
				return err
			},
			kinds: []fmterr.Kind{fmterr.TypeCast},
			msg:   "list of test functions contains u which is a unknown function and not a test function",
		},
		{
			name: "evaluation point not discrete",
			setup: func(p *exprtest.Problem) error {
				pts := []expr.ID{p.Arena.Constant(1)}
				_, err := preproc.New(p.Arena).IdentifyNonzeroDerivs(p.Root, p.Tests, p.Unknowns, pts)
				return err
			},
			kinds: []fmterr.Kind{fmterr.TypeCast},
		},
		{
			name: "variation and unknown at different points",
			setup: func(p *exprtest.Problem) error {
				other := []expr.ID{p.Arena.DiscreteFunction("u1", 1)}
				_, err := preproc.New(p.Arena).SetupVariations(p.Root, p.Unknowns, p.EvalPts, p.Unknowns, other, ctx, nil)
				return err
			},
			kinds: []fmterr.Kind{fmterr.DuplicateFunction},
			msg:   "function u declared in both variations and unknown functions",
		},
		{
			name: "list expression",
			setup: func(p *exprtest.Problem) error {
				root := p.Arena.Grad(p.Unknowns[0], 2)
				_, err := preproc.New(p.Arena).SetupExpr(root, p.Tests, p.Unknowns, p.EvalPts, ctx, nil)
				return err
			},
			kinds: []fmterr.Kind{fmterr.TypeCast},
			msg:   "a list is not a scalar expression",
		},
		{
			name: "unknown and fixed",
			setup: func(p *exprtest.Problem) error {
				_, err := preproc.New(p.Arena).SetupGradient(p.Root, p.Unknowns, p.EvalPts, p.Unknowns, p.EvalPts, ctx, nil)
				return err
			},
			kinds: []fmterr.Kind{fmterr.DuplicateFunction},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.setup(exprtest.Poisson(2))
			if err == nil {
				t.Fatalf("no error returned")
			}
			for _, kind := range test.kinds {
				if !fmterr.IsKind(err, kind) {
					t.Errorf("error %v is not a %s error", err, kind)
				}
			}
			if test.msg != "" && !strings.Contains(err.Error(), test.msg) {
				t.Errorf("error %q does not contain %q", err.Error(), test.msg)
			}
		})
	}
}
