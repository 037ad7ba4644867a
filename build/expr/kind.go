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

import "fmt"

// Kind of a node. The set of kinds is closed: every pass switches over it
// and reports an internal error for a kind it does not know.
type Kind int

const (
	// InvalidKind is the zero value of Kind.
	InvalidKind Kind = iota
	// ConstantKind is a scalar literal, optionally named.
	ConstantKind
	// ParameterKind is a spatially constant value with an identity
	// with respect to which expressions can be differentiated.
	ParameterKind
	// CoordinateKind is a cartesian coordinate of the evaluation point.
	CoordinateKind
	// CellDiameterKind is the diameter of the cell being evaluated.
	CellDiameterKind
	// CellVectorKind is a component of a cell vector (normal or tangent).
	CellVectorKind
	// TestKind is an element of a test function.
	TestKind
	// UnknownKind is an element of an unknown function.
	UnknownKind
	// DiscreteKind is an element of a discrete function, that is a field
	// known at the quadrature points.
	DiscreteKind
	// SumKind is a signed sum of its children.
	SumKind
	// ProductKind is the product of two children.
	ProductKind
	// DiffOpKind is a first order spatial derivative of its child.
	DiffOpKind
	// NonlinearKind is a nonlinear unary function applied to its child.
	NonlinearKind
	// ListKind is a tuple of expressions. Lists are not scalar: they can
	// only be consumed by list operators such as Dot.
	ListKind
)

var kindToString = map[Kind]string{
	InvalidKind:      "invalid",
	ConstantKind:     "constant",
	ParameterKind:    "parameter",
	CoordinateKind:   "coordinate",
	CellDiameterKind: "cell diameter",
	CellVectorKind:   "cell vector",
	TestKind:         "test function",
	UnknownKind:      "unknown function",
	DiscreteKind:     "discrete function",
	SumKind:          "sum",
	ProductKind:      "product",
	DiffOpKind:       "differential operator",
	NonlinearKind:    "nonlinear operator",
	ListKind:         "list",
}

func (k Kind) String() string {
	s, ok := kindToString[k]
	if !ok {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return s
}

// IsLeaf returns true if nodes of that kind have no children.
func (k Kind) IsLeaf() bool {
	switch k {
	case SumKind, ProductKind, DiffOpKind, NonlinearKind, ListKind:
		return false
	}
	return true
}

// IsSymbolicFunction returns true for the kinds of unknown and test functions.
func (k Kind) IsSymbolicFunction() bool {
	return k == TestKind || k == UnknownKind
}

// HasIdentity returns true if nodes of that kind can be differentiated with respect to.
func (k Kind) HasIdentity() bool {
	return k == TestKind || k == UnknownKind || k == ParameterKind
}

// IsSpatiallyConstant returns true if the value of nodes of that kind
// does not change inside a region.
func (k Kind) IsSpatiallyConstant() bool {
	return k == ConstantKind || k == ParameterKind
}
