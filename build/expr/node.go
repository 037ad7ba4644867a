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
	"slices"

	"github.com/gx-org/weakform/build/deriv"
)

// ID of a node in an arena.
type ID int

// NoID is the ID of no node.
const NoID ID = -1

// Node of an expression tree. Nodes are created and owned by an Arena.
// Only the fields relevant to the node kind are set.
type Node struct {
	kind   Kind
	parent ID

	children []ID
	// signs of the terms of a sum.
	signs []int

	value float64
	name  string
	fid   deriv.FuncID
	// dir is the direction of a coordinate, a cell vector component,
	// or a differential operator.
	dir int
	// basisOrder is the polynomial order of the basis of a discrete function.
	basisOrder int
	functor    Functor

	memos map[ContextKey]*Memo
}

// Kind returns the kind of the node.
func (n *Node) Kind() Kind {
	return n.kind
}

// Parent returns the parent of the node or NoID for a root.
func (n *Node) Parent() ID {
	return n.parent
}

// Children returns the children of the node.
func (n *Node) Children() []ID {
	return slices.Clone(n.children)
}

// NumChildren returns the number of children.
func (n *Node) NumChildren() int {
	return len(n.children)
}

// Child returns the i-th child.
func (n *Node) Child(i int) ID {
	return n.children[i]
}

// Sign returns the sign (+1 or -1) of the i-th term of a sum.
func (n *Node) Sign(i int) int {
	return n.signs[i]
}

// Value of a constant or of a parameter.
func (n *Node) Value() float64 {
	return n.value
}

// Name of the node. Empty for unnamed constants and non-leaf nodes.
func (n *Node) Name() string {
	return n.name
}

// FuncID returns the identity of a test, unknown, or discrete function,
// or of a parameter.
func (n *Node) FuncID() deriv.FuncID {
	return n.fid
}

// Direction of a coordinate, a cell vector component, or a differential operator.
func (n *Node) Direction() int {
	return n.dir
}

// BasisOrder returns the polynomial order of a discrete function.
func (n *Node) BasisOrder() int {
	return n.basisOrder
}

// Functor returns the function applied by a nonlinear operator.
func (n *Node) Functor() Functor {
	return n.functor
}
