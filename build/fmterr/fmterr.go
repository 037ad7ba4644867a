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

// Package fmterr defines the errors reported while analysing and
// evaluating expressions, and helpers to accumulate and format them.
package fmterr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies errors.
type Kind int

const (
	// Internal is a bug in this module.
	Internal Kind = iota
	// MalformedSparsity is a sparsity table with more entries than its node kind permits.
	MalformedSparsity
	// InvalidOrder is a derivative requested from a node kind which cannot provide it.
	InvalidOrder
	// UndeclaredFunction is a function found in an expression but in none of the declared lists.
	UndeclaredFunction
	// DuplicateFunction is a function declared twice.
	DuplicateFunction
	// SizeMismatch is a list of unknowns and a list of evaluation points with different lengths.
	SizeMismatch
	// TypeCast is an expression which is not of the kind required by its role.
	TypeCast
	// Domain is a nonlinear function evaluated outside of its domain.
	Domain
)

var kindNames = map[Kind]string{
	Internal:           "internal error",
	MalformedSparsity:  "malformed sparsity table",
	InvalidOrder:       "invalid derivative order",
	UndeclaredFunction: "undeclared function",
	DuplicateFunction:  "duplicate function",
	SizeMismatch:       "size mismatch",
	TypeCast:           "invalid expression type",
	Domain:             "domain error",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is an error of a given kind.
type Error struct {
	kind Kind
	err  error
}

// Errorf returns a new error of a given kind. A stack trace is attached to the error.
func Errorf(kind Kind, format string, a ...any) error {
	return &Error{kind: kind, err: errors.Errorf(format, a...)}
}

// Internalf returns a new internal error.
func Internalf(format string, a ...any) error {
	return Errorf(Internal, format, a...)
}

// Kind returns the kind of the error.
func (err *Error) Kind() Kind {
	return err.kind
}

// Error returns a string description of the error.
func (err *Error) Error() string {
	if err.kind == Internal {
		return "internal error. This is a bug. Please report it. Error:\n" + err.err.Error()
	}
	return err.kind.String() + ": " + err.err.Error()
}

// Unwrap the error.
func (err *Error) Unwrap() error {
	return err.err
}

// Format writes the error into the state of the formatter.
func (err *Error) Format(s fmt.State, verb rune) {
	format(err, s, verb)
}

// IsKind returns true if err, or any error it wraps, is of the given kind.
// Errors combined with multierr are all inspected.
func IsKind(err error, kind Kind) bool {
	switch errT := err.(type) {
	case nil:
		return false
	case *Error:
		return errT.kind == kind || IsKind(errT.err, kind)
	case interface{ Unwrap() []error }:
		for _, e := range errT.Unwrap() {
			if IsKind(e, kind) {
				return true
			}
		}
		return false
	case interface{ Unwrap() error }:
		return IsKind(errT.Unwrap(), kind)
	}
	return false
}

// PrefixWith returns a function to prefix errors with a formatted string.
func PrefixWith(s string, o ...any) func(err error) error {
	return func(err error) error {
		return fmt.Errorf("%s%w", fmt.Sprintf(s, o...), err)
	}
}
