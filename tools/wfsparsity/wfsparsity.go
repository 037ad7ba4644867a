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

// Package main prints the nonzero derivatives and the sparsity tables of
// demo weak forms.
//
//	wfsparsity -problems=poisson,reaction -order=2 -eval
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/gx-org/weakform/base/diag"
	gxfmt "github.com/gx-org/weakform/base/fmt"
	"github.com/gx-org/weakform/build/expr"
	"github.com/gx-org/weakform/build/preproc"
	"github.com/gx-org/weakform/internal/exprdeps"
	"github.com/gx-org/weakform/interp/evaluator"
	"github.com/gx-org/weakform/interp/mediator"
	"github.com/gx-org/weakform/tools/wfflag"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

var (
	problems  = wfflag.StringList("problems", "comma-separated list of problems to analyse (default: all)")
	order     = flag.Int("order", 2, "maximum differentiation order")
	eval      = flag.Bool("eval", false, "evaluate the derivatives at sample points")
	number    = flag.Bool("number", false, "number the lines of the output")
	verbosity = wfflag.Verbosity("v", diag.Silent, "verbosity of the diagnostics: silent, low, medium, or high")
)

// problem is a weak form with its declared functions.
type problem struct {
	a       *expr.Arena
	root    expr.ID
	tests   []expr.ID
	unks    []expr.ID
	evalPts []expr.ID
}

var demos = map[string]func() *problem{
	"poisson": func() *problem {
		a := expr.NewArena()
		v := a.TestFunction("v")
		u := a.UnknownFunction("u")
		f := a.DiscreteFunction("f", 1)
		return &problem{
			a:       a,
			root:    a.Sub(a.Dot(a.Grad(v, 2), a.Grad(u, 2)), a.Product(f, v)),
			tests:   []expr.ID{v},
			unks:    []expr.ID{u},
			evalPts: []expr.ID{a.DiscreteFunction("u0", 1)},
		}
	},
	"reaction": func() *problem {
		a := expr.NewArena()
		v := a.TestFunction("v")
		u := a.UnknownFunction("u")
		alpha := a.NamedConstant("alpha", 2)
		return &problem{
			a:       a,
			root:    a.Product(v, a.Sub(a.Product(u, u), alpha)),
			tests:   []expr.ID{v},
			unks:    []expr.ID{u},
			evalPts: []expr.ID{a.DiscreteFunction("u0", 1)},
		}
	},
	"nonlinear": func() *problem {
		a := expr.NewArena()
		v := a.TestFunction("v")
		u := a.UnknownFunction("u")
		return &problem{
			a:       a,
			root:    a.Product(v, a.Nonlinear(expr.Exp, u)),
			tests:   []expr.ID{v},
			unks:    []expr.ID{u},
			evalPts: []expr.ID{a.DiscreteFunction("u0", 1)},
		}
	},
	"stabilized": func() *problem {
		a := expr.NewArena()
		v := a.TestFunction("v")
		u := a.UnknownFunction("u")
		h := a.CellDiameter()
		return &problem{
			a:       a,
			root:    a.Product(h, a.Product(a.Diff(0, v), a.Diff(0, u))),
			tests:   []expr.ID{v},
			unks:    []expr.ID{u},
			evalPts: []expr.ID{a.DiscreteFunction("u0", 1)},
		}
	},
}

// sampleQuadrature returns three points in dimension 2 with a linear
// field registered for every discrete function.
func sampleQuadrature(p *problem) (*mediator.Quadrature, error) {
	q := mediator.NewQuadrature(mat.NewDense(3, 2, []float64{
		0, 0,
		1, 0,
		0, 1,
	}))
	if err := q.SetCellDiameters([]float64{0.5, 0.5, 0.5}); err != nil {
		return nil, err
	}
	if err := q.SetCellNormals(mat.NewDense(3, 2, []float64{0, -1, 1, 0, -1, 0})); err != nil {
		return nil, err
	}
	for id := range p.a.PostOrder(p.root) {
		if p.a.Kind(id) != expr.DiscreteKind {
			continue
		}
		if err := q.AddField(p.a, id, mediator.Polynomial(1, 1, 1)); err != nil {
			return nil, err
		}
	}
	for _, pt := range p.evalPts {
		if err := q.AddField(p.a, pt, mediator.Polynomial(1, 2, 3)); err != nil {
			return nil, err
		}
	}
	return q, nil
}

func analyse(w io.Writer, name string, p *problem, ctx expr.EvalContext, evaluate bool, dg *diag.Context) error {
	if err := p.a.Err(); err != nil {
		return err
	}
	fmt.Fprintf(w, "problem %s: %s\n", name, p.a.String(p.root))
	var funcs []string
	for _, id := range exprdeps.Functions(p.a, p.root) {
		funcs = append(funcs, p.a.String(id))
	}
	fmt.Fprintf(w, "functions: %s\n", strings.Join(funcs, ", "))
	var factory preproc.EvaluatorFactory
	if evaluate {
		factory = evaluator.NewFactory(dg)
	}
	pp := preproc.New(p.a, preproc.WithDiag(dg))
	derivs, err := pp.SetupExpr(p.root, p.tests, p.unks, p.evalPts, ctx, factory)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "derivatives: %s\n", p.a.SetString(derivs))
	ss := p.a.Memo(p.root, ctx).Superset
	rows := [][]string{{"derivative", "class", "index"}}
	for _, entry := range ss.Entries() {
		rows = append(rows, []string{p.a.MultipleDerivString(entry.Deriv), entry.Class.String(), fmt.Sprint(entry.Index)})
	}
	fmt.Fprint(w, gxfmt.Indent(gxfmt.Table(rows)))
	if !evaluate {
		return nil
	}
	q, err := sampleQuadrature(p)
	if err != nil {
		return err
	}
	mgr := evaluator.NewManager(ctx, q, evaluator.WithDiag(dg))
	res, err := evaluator.Evaluate(mgr, p.a, p.root)
	if err != nil {
		return err
	}
	fmt.Fprint(w, gxfmt.Indent(res.String()))
	return res.Release()
}

func run(w io.Writer, names []string, ctx expr.EvalContext, evaluate bool, dg *diag.Context) error {
	if len(names) == 0 {
		names = slices.Sorted(maps.Keys(demos))
	}
	for i, name := range names {
		build, ok := demos[name]
		if !ok {
			return errors.Errorf("unknown problem %q", name)
		}
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := analyse(w, name, build(), ctx, evaluate, dg); err != nil {
			return errors.Wrapf(err, "problem %s", name)
		}
	}
	return nil
}

func main() {
	flag.Parse()
	if *order < 0 {
		fmt.Fprintf(os.Stderr, "invalid order %d\n", *order)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	dg := diag.New(logger, *verbosity)
	ctx := expr.NewEvalContext("demo", "sample", *order)
	var out strings.Builder
	if err := run(&out, *problems, ctx, *eval, dg); err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
	if *number {
		fmt.Print(gxfmt.Number(out.String()))
	} else {
		fmt.Print(out.String())
	}
	if dg.Enabled(diag.Low) {
		dg.Report(os.Stderr)
	}
}
