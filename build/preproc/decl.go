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

package preproc

import (
	"strings"

	"github.com/gx-org/weakform/build/deriv"
	"github.com/gx-org/weakform/build/expr"
	"github.com/gx-org/weakform/build/fmterr"
)

// role of a list of functions declared to the preprocessor.
type role int

const (
	// Functions substituted by zero and differentiated once.
	testRole role = iota
	// Functions substituted by their evaluation point and differentiated once.
	variationRole
	// Functions substituted by their evaluation point and differentiated
	// once, after a test function or a variation.
	unknownRole
	// Functions substituted by their evaluation point and never differentiated.
	fixedRole
)

var roleNames = map[role]string{
	testRole:      "test functions",
	variationRole: "variations",
	unknownRole:   "unknown functions",
	fixedRole:     "fixed functions",
}

func (r role) String() string {
	return roleNames[r]
}

// declaration of a list of functions with a role.
type declaration struct {
	role    role
	funcs   []expr.ID
	evalPts []expr.ID
}

func (d *declaration) needsEvalPts() bool {
	return d.role != testRole
}

func (d *declaration) subst(i int) expr.Substitution {
	if d.role == testRole {
		return expr.Substitution{Kind: expr.ZeroSubst, Point: expr.NoID}
	}
	return expr.Substitution{Kind: expr.PointSubst, Point: d.evalPts[i]}
}

func (d *declaration) names(a *expr.Arena) string {
	ss := make([]string, len(d.funcs))
	for i, id := range d.funcs {
		if !a.Valid(id) {
			ss[i] = "<invalid>"
			continue
		}
		ss[i] = a.String(id)
	}
	return "[" + strings.Join(ss, ", ") + "]"
}

// declared is a function declared in a list.
type declared struct {
	decl  *declaration
	index int
}

func (d declared) evalPt() expr.ID {
	if !d.decl.needsEvalPts() {
		return expr.NoID
	}
	return d.decl.evalPts[d.index]
}

// declarations checks lists of functions and indexes them by function identity.
type declarations struct {
	a     *expr.Arena
	decls []*declaration
	byFID map[deriv.FuncID][]declared
}

func (ds *declarations) checkFunc(app *fmterr.Appender, decl *declaration, id expr.ID) bool {
	if !ds.a.Valid(id) {
		return app.Appendf(fmterr.TypeCast, "%s contain an invalid node %d", decl.role, id)
	}
	kind := ds.a.Kind(id)
	switch decl.role {
	case testRole:
		if kind != expr.TestKind {
			return app.Appendf(fmterr.TypeCast, "list of %s contains %s which is a %s and not a test function", decl.role, ds.a.String(id), kind)
		}
	default:
		if kind != expr.UnknownKind && kind != expr.ParameterKind {
			return app.Appendf(fmterr.TypeCast, "list of %s contains %s which is a %s and not an unknown function or a parameter", decl.role, ds.a.String(id), kind)
		}
	}
	return true
}

func (ds *declarations) checkEvalPt(app *fmterr.Appender, decl *declaration, fn, pt expr.ID) bool {
	if !ds.a.Valid(pt) {
		return app.Appendf(fmterr.TypeCast, "evaluation point of %s is an invalid node %d", ds.a.String(fn), pt)
	}
	want := expr.DiscreteKind
	if ds.a.Kind(fn) == expr.ParameterKind {
		want = expr.ConstantKind
	}
	if got := ds.a.Kind(pt); got != want {
		return app.Appendf(fmterr.TypeCast, "evaluation point %s of %s in %s is a %s and not a %s", ds.a.String(pt), ds.a.String(fn), decl.role, got, want)
	}
	return true
}

func (ds *declarations) checkDecl(app *fmterr.Appender, decl *declaration) {
	app.Push(fmterr.PrefixWith("%s: ", decl.role))
	defer app.Pop()
	if decl.needsEvalPts() && len(decl.funcs) != len(decl.evalPts) {
		app.Appendf(fmterr.SizeMismatch, "%d %s %s but %d evaluation points", len(decl.funcs), decl.role, decl.names(ds.a), len(decl.evalPts))
		return
	}
	seen := make(map[deriv.FuncID]bool)
	for i, id := range decl.funcs {
		if !ds.checkFunc(app, decl, id) {
			continue
		}
		if decl.needsEvalPts() && !ds.checkEvalPt(app, decl, id, decl.evalPts[i]) {
			continue
		}
		fid := ds.a.Node(id).FuncID()
		if seen[fid] {
			app.Appendf(fmterr.DuplicateFunction, "function %s declared twice in the list of %s %s", ds.a.String(id), decl.role, decl.names(ds.a))
			continue
		}
		seen[fid] = true
		ds.byFID[fid] = append(ds.byFID[fid], declared{decl: decl, index: i})
	}
}

// checkAcrossLists reports functions declared in more than one list.
// A function can be both a variation and an unknown if it has the same
// evaluation point in both lists.
func (ds *declarations) checkAcrossLists(app *fmterr.Appender) {
	for _, decl := range ds.decls {
		for _, id := range decl.funcs {
			if !ds.a.Valid(id) {
				continue
			}
			all := ds.byFID[ds.a.Node(id).FuncID()]
			if len(all) < 2 || all[0].decl != decl {
				continue
			}
			for _, other := range all[1:] {
				if compatible(all[0], other) {
					continue
				}
				app.Appendf(fmterr.DuplicateFunction, "function %s declared in both %s and %s", ds.a.String(id), decl.role, other.decl.role)
			}
		}
	}
}

func compatible(x, y declared) bool {
	roles := map[role]bool{x.decl.role: true, y.decl.role: true}
	if !roles[variationRole] || !roles[unknownRole] {
		return false
	}
	return x.evalPt() == y.evalPt()
}

func newDeclarations(a *expr.Arena, decls ...*declaration) (*declarations, error) {
	ds := &declarations{
		a:     a,
		decls: decls,
		byFID: make(map[deriv.FuncID][]declared),
	}
	app := &fmterr.Appender{}
	for _, decl := range decls {
		ds.checkDecl(app, decl)
	}
	ds.checkAcrossLists(app)
	return ds, app.Err()
}

// install substitutes every declared function in the arena. The caches
// of the arena, evaluators included, are kept if the substitutions did not
// change since the last installation.
func (ds *declarations) install() bool {
	subst := make(map[deriv.FuncID]expr.Substitution)
	for _, decl := range ds.decls {
		for i, id := range decl.funcs {
			subst[ds.a.Node(id).FuncID()] = decl.subst(i)
		}
	}
	return ds.a.SetSubstitutions(subst)
}

// has returns true if a function is declared with a given role.
func (ds *declarations) has(fid deriv.FuncID, r role) bool {
	for _, d := range ds.byFID[fid] {
		if d.decl.role == r {
			return true
		}
	}
	return false
}

func (ds *declarations) listNames() string {
	ss := make([]string, len(ds.decls))
	for i, decl := range ds.decls {
		ss[i] = decl.role.String() + " " + decl.names(ds.a)
	}
	return strings.Join(ss, ", ")
}
