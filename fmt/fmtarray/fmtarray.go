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

// Package fmtarray formats scalars, vectors, and matrices of values into string.
package fmtarray

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gx-org/backend/dtype"
	"github.com/pkg/errors"
)

type builder[T dtype.GoDataType] struct {
	w    *strings.Builder
	data []T
	axes []int
	// maxValues is the maximum number of values printed per row. 0 means no limit.
	maxValues int
}

func newBuilder[T dtype.GoDataType](data []T, axes []int) (*builder[T], error) {
	b := &builder[T]{
		w:    &strings.Builder{},
		data: data,
		axes: axes,
	}
	if len(axes) > 2 {
		return b, errors.Errorf("cannot format arrays with %d axes", len(axes))
	}
	total := 1
	for _, size := range b.axes {
		total *= size
	}
	if total != len(data) {
		return b, errors.Errorf("len(data)=%d does not match axes %v=%d", len(data), axes, total)
	}
	return b, nil
}

func toValue[T dtype.GoDataType](x T) string {
	var fmtstr string
	switch any(x).(type) {
	case float32:
		fmtstr = "%.6f"
	case float64:
		fmtstr = "%.10f"
	default:
		return fmt.Sprint(x)
	}
	result := fmt.Sprintf(fmtstr, x)
	if strings.ContainsRune(result, '.') {
		// Remove trailing zeroes after the decimal point, and the point itself
		// if there are no digits after it.
		result = strings.TrimRight(result, "0")
		result = strings.TrimSuffix(result, ".")
	}
	if result == "-0" {
		return "0"
	}
	return result
}

func (b *builder[T]) printScalar() {
	b.w.WriteString("(")
	b.w.WriteString(toValue(b.data[0]))
	b.w.WriteString(")")
}

func (b *builder[T]) printRow(row []T) {
	n := len(row)
	if b.maxValues > 0 && n > b.maxValues {
		n = b.maxValues
	}
	vals := make([]string, 0, n+1)
	for _, x := range row[:n] {
		vals = append(vals, toValue(x))
	}
	if n < len(row) {
		vals = append(vals, "...")
	}
	b.w.WriteString("{" + strings.Join(vals, ", ") + "}")
}

func (b *builder[T]) printMatrix() {
	numRows, numCols := b.axes[0], b.axes[1]
	b.w.WriteString("{\n")
	for i := range numRows {
		b.w.WriteString("\t")
		b.printRow(b.data[i*numCols : (i+1)*numCols])
		b.w.WriteString(",\n")
	}
	b.w.WriteString("}")
}

func (b *builder[T]) printType() {
	var s strings.Builder
	for _, size := range b.axes {
		fmt.Fprintf(&s, "[%d]", size)
	}
	s.WriteString(reflect.TypeFor[T]().String())
	b.w.WriteString(s.String())
}

func (b *builder[T]) printData() {
	switch len(b.axes) {
	case 0:
		b.printScalar()
	case 1:
		b.printRow(b.data)
	default:
		b.printMatrix()
	}
}

// SDataPrint returns a string representation of the content of an array without the type.
func SDataPrint[T dtype.GoDataType](data []T, axes []int) string {
	b, err := newBuilder(data, axes)
	if err != nil {
		return err.Error()
	}
	b.printData()
	return b.w.String()
}

// Sprint returns a string representation of an array.
func Sprint[T dtype.GoDataType](data []T, axes []int) string {
	b, err := newBuilder(data, axes)
	if err != nil {
		return err.Error()
	}
	b.printType()
	b.printData()
	return b.w.String()
}

// SprintShort returns a string representation of an array printing at most
// maxValues values per row.
func SprintShort[T dtype.GoDataType](data []T, axes []int, maxValues int) string {
	b, err := newBuilder(data, axes)
	if err != nil {
		return err.Error()
	}
	b.maxValues = maxValues
	b.printType()
	b.printData()
	return b.w.String()
}
