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

// Package expr defines symbolic expressions of weak forms.
//
// Expressions are trees of nodes stored in an Arena and referenced by ID.
// A node can only have one parent: passing a node which is already
// attached to a constructor attaches a copy of its subtree instead.
// Each node also owns the caches computed by the analysis and evaluation
// passes for each evaluation context.
package expr

import (
	"iter"

	"github.com/gx-org/weakform/base/uname"
	"github.com/gx-org/weakform/build/deriv"
	"github.com/gx-org/weakform/build/fmterr"
)

// Arena owns the nodes of expressions.
type Arena struct {
	nodes   []*Node
	names   *uname.Unique
	nextFID deriv.FuncID
	// funcs maps function identities to the node which first declared them.
	funcs map[deriv.FuncID]ID
	subst map[deriv.FuncID]Substitution
	err   error
}

// NewArena returns a new empty arena.
func NewArena() *Arena {
	return &Arena{
		names:   uname.New(),
		nextFID: 1,
		funcs:   make(map[deriv.FuncID]ID),
		subst:   make(map[deriv.FuncID]Substitution),
	}
}

// Err returns the first error encountered when constructing nodes.
// Constructors return NoID after an error and propagate NoID operands.
func (a *Arena) Err() error {
	return a.err
}

func (a *Arena) setErr(kind fmterr.Kind, format string, args ...any) ID {
	if a.err == nil {
		a.err = fmterr.Errorf(kind, format, args...)
	}
	return NoID
}

// Len returns the number of nodes in the arena.
func (a *Arena) Len() int {
	return len(a.nodes)
}

// Valid returns true if id is a node of the arena.
func (a *Arena) Valid(id ID) bool {
	return id >= 0 && int(id) < len(a.nodes)
}

// Node returns the node given its ID.
func (a *Arena) Node(id ID) *Node {
	return a.nodes[id]
}

// Kind returns the kind of a node.
func (a *Arena) Kind(id ID) Kind {
	return a.nodes[id].kind
}

// Function returns the node declaring a function identity.
func (a *Arena) Function(fid deriv.FuncID) (ID, bool) {
	id, ok := a.funcs[fid]
	return id, ok
}

func (a *Arena) add(n *Node) ID {
	n.parent = NoID
	id := ID(len(a.nodes))
	a.nodes = append(a.nodes, n)
	return id
}

func (a *Arena) newFunction(n *Node) ID {
	n.fid = a.nextFID
	a.nextFID++
	id := a.add(n)
	a.funcs[n.fid] = id
	return id
}

// attach sets parent as the parent of child. If child already has a parent,
// a copy of child is attached instead. Returns the attached node.
func (a *Arena) attach(parent, child ID) ID {
	if a.nodes[child].parent != NoID {
		child = a.clone(child)
	}
	a.nodes[child].parent = parent
	return child
}

func (a *Arena) clone(id ID) ID {
	src := a.nodes[id]
	dst := &Node{
		kind:       src.kind,
		signs:      append([]int{}, src.signs...),
		value:      src.value,
		name:       src.name,
		fid:        src.fid,
		dir:        src.dir,
		basisOrder: src.basisOrder,
		functor:    src.functor,
	}
	cloneID := a.add(dst)
	for _, child := range src.children {
		dst.children = append(dst.children, a.attach(cloneID, a.clone(child)))
	}
	return cloneID
}

func (a *Arena) checkOperands(ids ...ID) bool {
	for _, id := range ids {
		if id == NoID {
			return false
		}
		if !a.Valid(id) {
			a.setErr(fmterr.Internal, "node %d does not belong to the arena", id)
			return false
		}
	}
	return true
}

func (a *Arena) withChildren(n *Node, children ...ID) ID {
	id := a.add(n)
	for _, child := range children {
		n.children = append(n.children, a.attach(id, child))
	}
	return id
}

// Constant returns a new unnamed constant.
func (a *Arena) Constant(v float64) ID {
	return a.add(&Node{kind: ConstantKind, value: v})
}

// NamedConstant returns a new constant printed with a name.
func (a *Arena) NamedConstant(name string, v float64) ID {
	return a.add(&Node{kind: ConstantKind, name: a.names.Name(name), value: v})
}

// Parameter returns a spatially constant value with an identity.
// Expressions can be differentiated with respect to parameters.
func (a *Arena) Parameter(name string, v float64) ID {
	return a.newFunction(&Node{kind: ParameterKind, name: a.names.Name(name), value: v})
}

func (a *Arena) checkDirection(dir int) bool {
	if dir < 0 || dir >= deriv.MaxDim {
		a.setErr(fmterr.InvalidOrder, "direction %d out of range [0,%d)", dir, deriv.MaxDim)
		return false
	}
	return true
}

// Coordinate returns the cartesian coordinate along a direction.
func (a *Arena) Coordinate(dir int) ID {
	if !a.checkDirection(dir) {
		return NoID
	}
	return a.add(&Node{kind: CoordinateKind, dir: dir})
}

// CellDiameter returns the diameter of the cells.
func (a *Arena) CellDiameter() ID {
	return a.add(&Node{kind: CellDiameterKind})
}

// CellVector returns a component of the cell normal vector.
func (a *Arena) CellVector(dir int) ID {
	if !a.checkDirection(dir) {
		return NoID
	}
	return a.add(&Node{kind: CellVectorKind, dir: dir})
}

func (a *Arena) functions(kind Kind, name string, size, basisOrder int) []ID {
	if size <= 0 {
		a.setErr(fmterr.SizeMismatch, "function %s declared with %d elements", name, size)
		return nil
	}
	ids := make([]ID, size)
	for i, elName := range a.names.Indexed(name, size) {
		ids[i] = a.newFunction(&Node{kind: kind, name: elName, basisOrder: basisOrder})
	}
	return ids
}

// TestFunction returns a new scalar test function.
func (a *Arena) TestFunction(name string) ID {
	return first(a.TestFunctions(name, 1))
}

// TestFunctions returns the elements of a new vector-valued test function.
func (a *Arena) TestFunctions(name string, size int) []ID {
	return a.functions(TestKind, name, size, 0)
}

// UnknownFunction returns a new scalar unknown function.
func (a *Arena) UnknownFunction(name string) ID {
	return first(a.UnknownFunctions(name, 1))
}

// UnknownFunctions returns the elements of a new vector-valued unknown function.
func (a *Arena) UnknownFunctions(name string, size int) []ID {
	return a.functions(UnknownKind, name, size, 0)
}

// DiscreteFunction returns a new scalar discrete function interpolated
// with a basis of the given polynomial order.
func (a *Arena) DiscreteFunction(name string, basisOrder int) ID {
	return first(a.DiscreteFunctions(name, 1, basisOrder))
}

// DiscreteFunctions returns the elements of a new vector-valued discrete function.
func (a *Arena) DiscreteFunctions(name string, size, basisOrder int) []ID {
	if basisOrder < 0 {
		a.setErr(fmterr.InvalidOrder, "discrete function %s with negative basis order %d", name, basisOrder)
		return nil
	}
	return a.functions(DiscreteKind, name, size, basisOrder)
}

func first(ids []ID) ID {
	if len(ids) == 0 {
		return NoID
	}
	return ids[0]
}

func (a *Arena) sum(terms []ID, signs []int) ID {
	if len(terms) == 0 {
		return a.setErr(fmterr.SizeMismatch, "sum without terms")
	}
	if !a.checkOperands(terms...) {
		return NoID
	}
	if len(terms) == 1 && signs[0] > 0 {
		return terms[0]
	}
	return a.withChildren(&Node{kind: SumKind, signs: signs}, terms...)
}

// Sum returns the sum of terms.
func (a *Arena) Sum(terms ...ID) ID {
	signs := make([]int, len(terms))
	for i := range signs {
		signs[i] = 1
	}
	return a.sum(terms, signs)
}

// Sub returns x - y.
func (a *Arena) Sub(x, y ID) ID {
	return a.sum([]ID{x, y}, []int{1, -1})
}

// Neg returns -x.
func (a *Arena) Neg(x ID) ID {
	return a.sum([]ID{x}, []int{-1})
}

// Product returns the product of factors, associated from the left.
func (a *Arena) Product(factors ...ID) ID {
	if len(factors) == 0 {
		return a.setErr(fmterr.SizeMismatch, "product without factors")
	}
	if !a.checkOperands(factors...) {
		return NoID
	}
	prod := factors[0]
	for _, factor := range factors[1:] {
		prod = a.withChildren(&Node{kind: ProductKind}, prod, factor)
	}
	return prod
}

// Diff returns the first order spatial derivative of x along a direction.
func (a *Arena) Diff(dir int, x ID) ID {
	if !a.checkOperands(x) || !a.checkDirection(dir) {
		return NoID
	}
	return a.withChildren(&Node{kind: DiffOpKind, dir: dir}, x)
}

// List returns a list of expressions.
func (a *Arena) List(elems ...ID) ID {
	if len(elems) == 0 {
		return a.setErr(fmterr.SizeMismatch, "list without elements")
	}
	if !a.checkOperands(elems...) {
		return NoID
	}
	return a.withChildren(&Node{kind: ListKind}, elems...)
}

// Grad returns the list of the derivatives of x along the first dim directions.
func (a *Arena) Grad(x ID, dim int) ID {
	if dim <= 0 || dim > deriv.MaxDim {
		return a.setErr(fmterr.SizeMismatch, "gradient of dimension %d out of range [1,%d]", dim, deriv.MaxDim)
	}
	grad := make([]ID, dim)
	for dir := range grad {
		grad[dir] = a.Diff(dir, x)
	}
	return a.List(grad...)
}

func (a *Arena) elements(id ID) []ID {
	if !a.checkOperands(id) {
		return nil
	}
	if kind := a.nodes[id].kind; kind != ListKind {
		a.setErr(fmterr.TypeCast, "%s is a %s and not a list", a.String(id), kind)
		return nil
	}
	return a.nodes[id].children
}

// Dot returns the inner product of two lists.
func (a *Arena) Dot(x, y ID) ID {
	xs, ys := a.elements(x), a.elements(y)
	if xs == nil || ys == nil {
		return NoID
	}
	if len(xs) != len(ys) {
		return a.setErr(fmterr.SizeMismatch, "inner product of lists of sizes %d and %d", len(xs), len(ys))
	}
	terms := make([]ID, len(xs))
	for i := range xs {
		terms[i] = a.Product(xs[i], ys[i])
	}
	return a.Sum(terms...)
}

// Nonlinear returns f(x).
func (a *Arena) Nonlinear(f Functor, x ID) ID {
	if !a.checkOperands(x) {
		return NoID
	}
	if f == nil {
		return a.setErr(fmterr.Internal, "nonlinear operator without function")
	}
	return a.withChildren(&Node{kind: NonlinearKind, functor: f}, x)
}

// PostOrder iterates over the nodes of a tree, children before their parent.
func (a *Arena) PostOrder(root ID) iter.Seq[ID] {
	return func(yield func(ID) bool) {
		a.postOrder(root, yield)
	}
}

func (a *Arena) postOrder(id ID, yield func(ID) bool) bool {
	for _, child := range a.nodes[id].children {
		if !a.postOrder(child, yield) {
			return false
		}
	}
	return yield(id)
}
