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
	"fmt"
	"slices"
	"strconv"
	"strings"

	gxiter "github.com/gx-org/weakform/base/iter"
	"github.com/gx-org/weakform/build/deriv"
)

var coordNames = [...]string{"x", "y", "z"}

// String returns a textual form of the expression rooted at id.
func (a *Arena) String(id ID) string {
	if !a.Valid(id) {
		return fmt.Sprintf("<invalid node %d>", id)
	}
	var s strings.Builder
	a.write(&s, id)
	return s.String()
}

func (a *Arena) write(s *strings.Builder, id ID) {
	n := a.nodes[id]
	switch n.kind {
	case ConstantKind:
		if n.name != "" {
			s.WriteString(n.name)
			return
		}
		s.WriteString(strconv.FormatFloat(n.value, 'g', -1, 64))
	case ParameterKind, TestKind, UnknownKind, DiscreteKind:
		s.WriteString(n.name)
	case CoordinateKind:
		s.WriteString(coordNames[n.dir])
	case CellDiameterKind:
		s.WriteString("h")
	case CellVectorKind:
		s.WriteString("n[" + coordNames[n.dir] + "]")
	case SumKind:
		s.WriteString("(")
		for i, child := range n.children {
			switch {
			case n.signs[i] < 0 && i == 0:
				s.WriteString("-")
			case n.signs[i] < 0:
				s.WriteString(" - ")
			case i > 0:
				s.WriteString(" + ")
			}
			a.write(s, child)
		}
		s.WriteString(")")
	case ProductKind:
		a.write(s, n.children[0])
		s.WriteString("*")
		a.write(s, n.children[1])
	case DiffOpKind:
		s.WriteString("D[" + coordNames[n.dir] + "](")
		a.write(s, n.children[0])
		s.WriteString(")")
	case NonlinearKind:
		s.WriteString(n.functor.Name() + "(")
		a.write(s, n.children[0])
		s.WriteString(")")
	case ListKind:
		s.WriteString("[")
		for i, child := range n.children {
			if i > 0 {
				s.WriteString(", ")
			}
			a.write(s, child)
		}
		s.WriteString("]")
	default:
		s.WriteString("<" + n.kind.String() + ">")
	}
}

// DerivString returns the textual form of a derivative using function names.
func (a *Arena) DerivString(d deriv.Derivative) string {
	if d.IsSpatial() {
		return "D[" + coordNames[d.Direction()] + "]"
	}
	id, ok := a.funcs[d.FuncID()]
	if !ok {
		return d.String()
	}
	name := a.nodes[id].name
	if mi := d.MultiIndex(); !mi.IsZero() {
		name += mi.String()
	}
	return "D[" + name + "]"
}

// MultipleDerivString returns the textual form of a multiple derivative using function names.
func (a *Arena) MultipleDerivString(m deriv.MultipleDeriv) string {
	ss := slices.Collect(gxiter.Map(a.DerivString, m.Elems()))
	return "{" + strings.Join(ss, ", ") + "}"
}

// SetString returns the textual form of a set of derivatives using function names.
func (a *Arena) SetString(set *deriv.Set) string {
	ss := make([]string, 0, set.Size())
	for m := range set.All() {
		ss = append(ss, a.MultipleDerivString(m))
	}
	return "{" + strings.Join(ss, ", ") + "}"
}
