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

// Package exprtest builds expressions shared by tests.
package exprtest

import (
	"testing"

	"github.com/gx-org/weakform/build/deriv"
	"github.com/gx-org/weakform/build/expr"
)

// Problem is an expression with its declared functions.
type Problem struct {
	Arena    *expr.Arena
	Root     expr.ID
	Tests    []expr.ID
	Unknowns []expr.ID
	// EvalPts are the evaluation points of the unknowns.
	EvalPts []expr.ID
	// Data are the discrete functions of the expression other than evaluation points.
	Data []expr.ID
}

// Reaction returns u*u - alpha where alpha is a named constant.
// The problem has no test function.
func Reaction() *Problem {
	a := expr.NewArena()
	u := a.UnknownFunction("u")
	u0 := a.DiscreteFunction("u0", 1)
	alpha := a.NamedConstant("alpha", 2)
	return &Problem{
		Arena:    a,
		Root:     a.Sub(a.Product(u, u), alpha),
		Unknowns: []expr.ID{u},
		EvalPts:  []expr.ID{u0},
	}
}

// Poisson returns grad(v).grad(u) - f*v in dim dimensions, f being a discrete function.
func Poisson(dim int) *Problem {
	a := expr.NewArena()
	v := a.TestFunction("v")
	u := a.UnknownFunction("u")
	u0 := a.DiscreteFunction("u0", 1)
	f := a.DiscreteFunction("f", 1)
	return &Problem{
		Arena:    a,
		Root:     a.Sub(a.Dot(a.Grad(v, dim), a.Grad(u, dim)), a.Product(f, v)),
		Tests:    []expr.ID{v},
		Unknowns: []expr.ID{u},
		EvalPts:  []expr.ID{u0},
		Data:     []expr.ID{f},
	}
}

// Nonlinear returns v*exp(u).
func Nonlinear() *Problem {
	a := expr.NewArena()
	v := a.TestFunction("v")
	u := a.UnknownFunction("u")
	u0 := a.DiscreteFunction("u0", 1)
	return &Problem{
		Arena:    a,
		Root:     a.Product(v, a.Nonlinear(expr.Exp, u)),
		Tests:    []expr.ID{v},
		Unknowns: []expr.ID{u},
		EvalPts:  []expr.ID{u0},
	}
}

// FuncID returns the identity of a function node.
func FuncID(a *expr.Arena, id expr.ID) deriv.FuncID {
	return a.Node(id).FuncID()
}

// D returns the functional derivative with respect to the function id.
func D(a *expr.Arena, id expr.ID) deriv.Derivative {
	return deriv.Functional(FuncID(a, id), deriv.MultiIndex{})
}

// CheckArena fails the test if the arena recorded an error.
func CheckArena(t testing.TB, a *expr.Arena) {
	t.Helper()
	if err := a.Err(); err != nil {
		t.Fatalf("cannot build expression: %+v", err)
	}
}
