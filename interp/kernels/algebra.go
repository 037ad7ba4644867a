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

package kernels

import (
	"go/token"
	"strconv"

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/backend/shape"
	"github.com/gx-org/weakform/build/fmterr"
	"gonum.org/v1/gonum/floats"
)

// Operand is either an atomic value, constant over all quadrature points,
// or a vector.
type Operand struct {
	atom float64
	vec  *Vector
}

// Atom returns an atomic operand.
func Atom(x float64) Operand {
	return Operand{atom: x}
}

// Vec returns a vector operand.
func Vec(v *Vector) Operand {
	return Operand{vec: v}
}

// IsAtomic returns true if the operand is an atomic value.
func (x Operand) IsAtomic() bool {
	return x.vec == nil
}

// Atom returns the atomic value of the operand.
func (x Operand) Atom() float64 {
	return x.atom
}

// Vector returns the vector of the operand, nil for an atomic operand.
func (x Operand) Vector() *Vector {
	return x.vec
}

var atomicShape = shape.Shape{DType: dtype.Generic[float64]()}

// Shape returns the shape of the operand.
func (x Operand) Shape() *shape.Shape {
	if x.IsAtomic() {
		return &atomicShape
	}
	return x.vec.Shape()
}

func (x Operand) String() string {
	if x.IsAtomic() {
		return strconv.FormatFloat(x.atom, 'g', -1, 64)
	}
	return x.vec.String()
}

// Binary computes x op y. The output vector is only written when the result is not atomic.
type Binary func(x, y Operand, out *Vector) Operand

func isAtomic(sh *shape.Shape) bool {
	return len(sh.AxisLengths) == 0
}

// BinaryOp returns the kernel of a binary operator given the shapes of its
// operands, and the shape of its result.
func BinaryOp(op token.Token, x, y *shape.Shape) (Binary, *shape.Shape, error) {
	xAtomic := isAtomic(x)
	yAtomic := isAtomic(y)
	if xAtomic && yAtomic {
		out := &shape.Shape{DType: x.DType}
		switch op {
		case token.ADD:
			return addAtomicToAtomic, out, nil
		case token.SUB:
			return subAtomicToAtomic, out, nil
		case token.MUL:
			return mulAtomicToAtomic, out, nil
		default:
			return nil, nil, fmterr.Internalf("operator %s not supported for atomic-atomic", op)
		}
	}
	if xAtomic {
		out := &shape.Shape{DType: x.DType, AxisLengths: y.AxisLengths}
		switch op {
		case token.ADD:
			return addAtomicToArray, out, nil
		case token.SUB:
			return subAtomicToArray, out, nil
		case token.MUL:
			return mulAtomicToArray, out, nil
		default:
			return nil, nil, fmterr.Internalf("operator %s not supported for atomic-array", op)
		}
	}
	if yAtomic {
		out := &shape.Shape{DType: x.DType, AxisLengths: x.AxisLengths}
		switch op {
		case token.ADD:
			return addArrayToAtomic, out, nil
		case token.SUB:
			return subArrayToAtomic, out, nil
		case token.MUL:
			return mulArrayToAtomic, out, nil
		default:
			return nil, nil, fmterr.Internalf("operator %s not supported for array-atomic", op)
		}
	}
	if x.Size() != y.Size() {
		return nil, nil, fmterr.Errorf(fmterr.SizeMismatch, "cannot apply %s to vectors of sizes %d and %d", op, x.Size(), y.Size())
	}
	out := &shape.Shape{DType: x.DType, AxisLengths: y.AxisLengths}
	switch op {
	case token.ADD:
		return addArrayToArray, out, nil
	case token.SUB:
		return subArrayToArray, out, nil
	case token.MUL:
		return mulArrayToArray, out, nil
	default:
		return nil, nil, fmterr.Internalf("operator %s not supported for array-array", op)
	}
}

func addAtomicToAtomic(x, y Operand, _ *Vector) Operand { return Atom(x.atom + y.atom) }
func subAtomicToAtomic(x, y Operand, _ *Vector) Operand { return Atom(x.atom - y.atom) }
func mulAtomicToAtomic(x, y Operand, _ *Vector) Operand { return Atom(x.atom * y.atom) }

func addAtomicToArray(x, y Operand, out *Vector) Operand {
	copy(out.values, y.vec.values)
	floats.AddConst(x.atom, out.values)
	return Vec(out)
}

func subAtomicToArray(x, y Operand, out *Vector) Operand {
	floats.ScaleTo(out.values, -1, y.vec.values)
	floats.AddConst(x.atom, out.values)
	return Vec(out)
}

func mulAtomicToArray(x, y Operand, out *Vector) Operand {
	floats.ScaleTo(out.values, x.atom, y.vec.values)
	return Vec(out)
}

func addArrayToAtomic(x, y Operand, out *Vector) Operand {
	copy(out.values, x.vec.values)
	floats.AddConst(y.atom, out.values)
	return Vec(out)
}

func subArrayToAtomic(x, y Operand, out *Vector) Operand {
	copy(out.values, x.vec.values)
	floats.AddConst(-y.atom, out.values)
	return Vec(out)
}

func mulArrayToAtomic(x, y Operand, out *Vector) Operand {
	floats.ScaleTo(out.values, y.atom, x.vec.values)
	return Vec(out)
}

func addArrayToArray(x, y Operand, out *Vector) Operand {
	floats.AddTo(out.values, x.vec.values, y.vec.values)
	return Vec(out)
}

func subArrayToArray(x, y Operand, out *Vector) Operand {
	floats.SubTo(out.values, x.vec.values, y.vec.values)
	return Vec(out)
}

func mulArrayToArray(x, y Operand, out *Vector) Operand {
	floats.MulTo(out.values, x.vec.values, y.vec.values)
	return Vec(out)
}

// Accumulate adds coef*x to dst.
func Accumulate(dst *Vector, coef float64, x Operand) {
	if x.IsAtomic() {
		floats.AddConst(coef*x.atom, dst.values)
		return
	}
	floats.AddScaled(dst.values, coef, x.vec.values)
}

// MulInPlace multiplies dst by x.
func MulInPlace(dst *Vector, x Operand) {
	if x.IsAtomic() {
		floats.Scale(x.atom, dst.values)
		return
	}
	floats.Mul(dst.values, x.vec.values)
}
