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

// Package exprdeps extracts the functional dependencies of expressions.
package exprdeps

import (
	"slices"

	"github.com/gx-org/weakform/base/ordered"
	"github.com/gx-org/weakform/build/deriv"
	"github.com/gx-org/weakform/build/expr"
)

func funcs(done *ordered.Map[deriv.Derivative, expr.ID], a *expr.Arena, id expr.ID, mi deriv.MultiIndex) {
	n := a.Node(id)
	switch n.Kind() {
	case expr.TestKind, expr.UnknownKind:
		done.Store(deriv.Functional(n.FuncID(), mi), id)
	case expr.ParameterKind:
		// Parameters are spatially constant: their spatial derivatives vanish.
		if mi.IsZero() {
			done.Store(deriv.Functional(n.FuncID(), mi), id)
		}
	case expr.DiffOpKind:
		child := n.Child(0)
		funcs(done, a, child, mi.Plus(n.Direction()))
		if !a.Kind(child).IsLeaf() {
			// The product rule leaves undifferentiated factors.
			funcs(done, a, child, mi)
		}
	default:
		for _, child := range n.Children() {
			funcs(done, a, child, mi)
		}
	}
}

// Functional returns the functional derivatives an expression may depend on,
// that is one first-order functional derivative for each symbolic function
// or parameter found in the expression and each spatial derivative applied
// to it. A spatial derivative of a composite expression contributes the
// derivatives of its argument both with and without the extra direction. The list is in order of appearance in the expression and does not
// depend on substitutions.
func Functional(a *expr.Arena, root expr.ID) []deriv.Derivative {
	done := ordered.NewMap[deriv.Derivative, expr.ID]()
	funcs(done, a, root, deriv.MultiIndex{})
	return slices.Collect(done.Keys())
}

// Functions returns the nodes declaring the functions an expression depends on.
func Functions(a *expr.Arena, root expr.ID) []expr.ID {
	ids := ordered.NewSet[expr.ID]()
	for _, d := range Functional(a, root) {
		id, ok := a.Function(d.FuncID())
		if !ok {
			continue
		}
		ids.Add(id)
	}
	return slices.Collect(ids.All())
}
