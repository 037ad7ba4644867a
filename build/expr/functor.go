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
	"math"

	"github.com/gx-org/weakform/build/fmterr"
)

// Functor is a scalar function of one variable applied by a nonlinear operator.
type Functor interface {
	// Name of the function.
	Name() string
	// Eval sets out[k] to the k-th derivative of the function at x
	// for k in [0, len(out)).
	Eval(x float64, out []float64) error
}

type expFunctor struct{}

// Exp is the exponential.
var Exp Functor = expFunctor{}

func (expFunctor) Name() string { return "exp" }

func (expFunctor) Eval(x float64, out []float64) error {
	v := math.Exp(x)
	for k := range out {
		out[k] = v
	}
	return nil
}

type logFunctor struct{}

// Log is the natural logarithm.
var Log Functor = logFunctor{}

func (logFunctor) Name() string { return "log" }

func (logFunctor) Eval(x float64, out []float64) error {
	if x <= 0 {
		return fmterr.Errorf(fmterr.Domain, "log(%g): argument must be positive", x)
	}
	if len(out) == 0 {
		return nil
	}
	out[0] = math.Log(x)
	// d^k/dx^k log(x) = (-1)^(k-1) (k-1)! / x^k
	coef := 1.0
	for k := 1; k < len(out); k++ {
		out[k] = coef / math.Pow(x, float64(k))
		coef *= -float64(k)
	}
	return nil
}

type sinFunctor struct{}

// Sin is the sine.
var Sin Functor = sinFunctor{}

func (sinFunctor) Name() string { return "sin" }

func (sinFunctor) Eval(x float64, out []float64) error {
	s, c := math.Sincos(x)
	cycle := [4]float64{s, c, -s, -c}
	for k := range out {
		out[k] = cycle[k%4]
	}
	return nil
}

type cosFunctor struct{}

// Cos is the cosine.
var Cos Functor = cosFunctor{}

func (cosFunctor) Name() string { return "cos" }

func (cosFunctor) Eval(x float64, out []float64) error {
	s, c := math.Sincos(x)
	cycle := [4]float64{c, -s, -c, s}
	for k := range out {
		out[k] = cycle[k%4]
	}
	return nil
}

type powFunctor struct {
	p float64
}

// Pow returns the function x -> x^p.
func Pow(p float64) Functor {
	return powFunctor{p: p}
}

func (f powFunctor) Name() string { return fmt.Sprintf("pow%g", f.p) }

func (f powFunctor) Eval(x float64, out []float64) error {
	isInt := f.p == math.Trunc(f.p)
	if x < 0 && !isInt {
		return fmterr.Errorf(fmterr.Domain, "pow(%g, %g): negative base with a fractional exponent", x, f.p)
	}
	coef := 1.0
	for k := range out {
		e := f.p - float64(k)
		switch {
		case coef == 0:
			out[k] = 0
		case x == 0 && e < 0:
			return fmterr.Errorf(fmterr.Domain, "derivative %d of pow(x, %g) is singular at 0", k, f.p)
		default:
			out[k] = coef * math.Pow(x, e)
		}
		coef *= e
	}
	return nil
}
