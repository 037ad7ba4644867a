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

// Package mediator provides the values of the leaves of expressions at
// the quadrature points of a region: coordinates, cell geometry, and
// discrete functions.
package mediator

import (
	"github.com/gx-org/weakform/build/deriv"
	"github.com/gx-org/weakform/build/expr"
	"github.com/gx-org/weakform/build/fmterr"
	"gonum.org/v1/gonum/mat"
)

// Mediator evaluates leaves of expressions at quadrature points.
// All output slices have one value per quadrature point.
type Mediator interface {
	// NumPoints returns the number of quadrature points.
	NumPoints() int
	// EvalCoordinate writes the coordinate along a direction.
	EvalCoordinate(dir int, out []float64) error
	// EvalCellDiameter writes the diameter of the cell of each point.
	EvalCellDiameter(out []float64) error
	// EvalCellVector writes a component of the cell normal vector.
	EvalCellVector(dir int, out []float64) error
	// EvalDiscreteFunction writes the spatial derivative mi of a discrete function.
	EvalDiscreteFunction(a *expr.Arena, id expr.ID, mi deriv.MultiIndex, out []float64) error
}

// Field is a discrete function known at any point: it returns the spatial
// derivative mi of the function at x, or false if the derivative is not
// available.
type Field func(mi deriv.MultiIndex, x []float64) (float64, bool)

// Quadrature is a mediator over tabulated quadrature points.
type Quadrature struct {
	// points is a (number of points) x (dimension) matrix.
	points    *mat.Dense
	diameters []float64
	normals   *mat.Dense
	fields    map[deriv.FuncID]Field
}

var _ Mediator = (*Quadrature)(nil)

// NewQuadrature returns a mediator given the physical coordinates of the
// quadrature points, one point per row.
func NewQuadrature(points *mat.Dense) *Quadrature {
	return &Quadrature{
		points: points,
		fields: make(map[deriv.FuncID]Field),
	}
}

// NumPoints returns the number of quadrature points.
func (q *Quadrature) NumPoints() int {
	n, _ := q.points.Dims()
	return n
}

// Dim returns the spatial dimension of the points.
func (q *Quadrature) Dim() int {
	_, d := q.points.Dims()
	return d
}

// SetCellDiameters sets the cell diameter for each point.
func (q *Quadrature) SetCellDiameters(h []float64) error {
	if len(h) != q.NumPoints() {
		return fmterr.Errorf(fmterr.SizeMismatch, "%d cell diameters for %d points", len(h), q.NumPoints())
	}
	q.diameters = h
	return nil
}

// SetCellNormals sets the cell normal vector for each point, one vector per row.
func (q *Quadrature) SetCellNormals(normals *mat.Dense) error {
	r, c := normals.Dims()
	if r != q.NumPoints() || c != q.Dim() {
		return fmterr.Errorf(fmterr.SizeMismatch, "%dx%d normals for %d points in dimension %d", r, c, q.NumPoints(), q.Dim())
	}
	q.normals = normals
	return nil
}

// AddField registers the values of a discrete function.
func (q *Quadrature) AddField(a *expr.Arena, id expr.ID, f Field) error {
	if !a.Valid(id) || a.Kind(id) != expr.DiscreteKind {
		return fmterr.Errorf(fmterr.TypeCast, "cannot register a field for %s: not a discrete function", a.String(id))
	}
	q.fields[a.Node(id).FuncID()] = f
	return nil
}

func (q *Quadrature) checkOut(out []float64) error {
	if len(out) != q.NumPoints() {
		return fmterr.Errorf(fmterr.SizeMismatch, "output of size %d for %d points", len(out), q.NumPoints())
	}
	return nil
}

func (q *Quadrature) checkDir(dir int) error {
	if dir < 0 || dir >= q.Dim() {
		return fmterr.Errorf(fmterr.InvalidOrder, "direction %d out of range for points in dimension %d", dir, q.Dim())
	}
	return nil
}

// EvalCoordinate writes the coordinate along a direction.
func (q *Quadrature) EvalCoordinate(dir int, out []float64) error {
	if err := q.checkOut(out); err != nil {
		return err
	}
	if err := q.checkDir(dir); err != nil {
		return err
	}
	mat.Col(out, dir, q.points)
	return nil
}

// EvalCellDiameter writes the diameter of the cell of each point.
func (q *Quadrature) EvalCellDiameter(out []float64) error {
	if err := q.checkOut(out); err != nil {
		return err
	}
	if q.diameters == nil {
		return fmterr.Errorf(fmterr.SizeMismatch, "no cell diameters for %d points", q.NumPoints())
	}
	copy(out, q.diameters)
	return nil
}

// EvalCellVector writes a component of the cell normal vector.
func (q *Quadrature) EvalCellVector(dir int, out []float64) error {
	if err := q.checkOut(out); err != nil {
		return err
	}
	if err := q.checkDir(dir); err != nil {
		return err
	}
	if q.normals == nil {
		return fmterr.Errorf(fmterr.SizeMismatch, "no cell normals for %d points", q.NumPoints())
	}
	mat.Col(out, dir, q.normals)
	return nil
}

// EvalDiscreteFunction writes the spatial derivative mi of a discrete function.
func (q *Quadrature) EvalDiscreteFunction(a *expr.Arena, id expr.ID, mi deriv.MultiIndex, out []float64) error {
	if err := q.checkOut(out); err != nil {
		return err
	}
	field, ok := q.fields[a.Node(id).FuncID()]
	if !ok {
		return fmterr.Errorf(fmterr.UndeclaredFunction, "no field registered for discrete function %s", a.String(id))
	}
	for i := range out {
		v, ok := field(mi, q.points.RawRowView(i))
		if !ok {
			return fmterr.Errorf(fmterr.InvalidOrder, "derivative %s of discrete function %s not available", mi, a.String(id))
		}
		out[i] = v
	}
	return nil
}

// Polynomial returns the field of a polynomial of degree at most 1:
// c0 + grad.x.
func Polynomial(c0 float64, grad ...float64) Field {
	return func(mi deriv.MultiIndex, x []float64) (float64, bool) {
		switch mi.Order() {
		case 0:
			v := c0
			for i, g := range grad {
				if i < len(x) {
					v += g * x[i]
				}
			}
			return v, true
		case 1:
			for dir, n := range mi {
				if n == 0 {
					continue
				}
				if dir < len(grad) {
					return grad[dir], true
				}
				return 0, true
			}
		}
		return 0, true
	}
}
