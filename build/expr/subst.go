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

package expr

import (
	"maps"

	"github.com/gx-org/weakform/build/deriv"
)

// SubstKind specifies how the value of a function is obtained when
// an expression is evaluated.
type SubstKind int

const (
	// NoSubst leaves the function symbolic.
	NoSubst SubstKind = iota
	// ZeroSubst evaluates the function to zero. Used for test functions.
	ZeroSubst
	// PointSubst evaluates the function to its evaluation point.
	PointSubst
)

func (k SubstKind) String() string {
	switch k {
	case ZeroSubst:
		return "zero"
	case PointSubst:
		return "point"
	}
	return "none"
}

// Substitution of a function for evaluation.
type Substitution struct {
	Kind SubstKind
	// Point is the evaluation point of a PointSubst: a discrete function
	// for test and unknown functions, a constant for parameters.
	Point ID
}

// Substitute installs the substitution of a function. The caches of the
// arena depend on substitutions: they are reset if the substitution of the
// function changes.
func (a *Arena) Substitute(fid deriv.FuncID, s Substitution) {
	if old, ok := a.subst[fid]; ok && old == s {
		return
	}
	a.subst[fid] = s
	a.ResetMemos()
}

// SetSubstitutions replaces all the substitutions of the arena.
// Caches are reset only if the substitutions differ from the installed ones.
// Returns true if the caches have been reset.
func (a *Arena) SetSubstitutions(subst map[deriv.FuncID]Substitution) bool {
	if maps.Equal(a.subst, subst) {
		return false
	}
	clear(a.subst)
	maps.Copy(a.subst, subst)
	a.ResetMemos()
	return true
}

// ClearSubstitutions removes all substitutions. Caches are reset if
// substitutions were installed.
func (a *Arena) ClearSubstitutions() {
	a.SetSubstitutions(nil)
}

// SubstitutionOf returns the substitution installed for a function.
func (a *Arena) SubstitutionOf(fid deriv.FuncID) Substitution {
	s, ok := a.subst[fid]
	if !ok {
		return Substitution{Kind: NoSubst, Point: NoID}
	}
	return s
}
