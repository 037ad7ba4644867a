// Copyright 2024 Google LLC
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

// Package wfflag provides flag types for weakform tools.
package wfflag

import (
	"flag"
	"fmt"
	"strings"

	"github.com/gx-org/weakform/base/diag"
)

type stringList struct {
	list *[]string
}

func (sl *stringList) String() string {
	if sl.list == nil {
		return ""
	}
	return strings.Join(*sl.list, ",")
}

func (sl *stringList) Set(values string) error {
	for _, value := range strings.Split(values, ",") {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		*sl.list = append(*sl.list, value)
	}
	return nil
}

// StringList returns a flag to pass a list of string from the command line.
func StringList(name, doc string) *[]string {
	return StringListVar(flag.CommandLine, name, doc)
}

// StringListVar defines a list of strings flag in a flag set.
func StringListVar(fs *flag.FlagSet, name, doc string) *[]string {
	var list []string
	sList := stringList{&list}
	fs.Var(&sList, name, doc)
	return sList.list
}

var verbosityNames = map[string]diag.Verbosity{
	"silent": diag.Silent,
	"low":    diag.Low,
	"medium": diag.Medium,
	"high":   diag.High,
}

type verbosity struct {
	v *diag.Verbosity
}

func (v *verbosity) String() string {
	if v.v == nil {
		return ""
	}
	for name, vv := range verbosityNames {
		if vv == *v.v {
			return name
		}
	}
	return fmt.Sprint(int(*v.v))
}

func (v *verbosity) Set(value string) error {
	vv, ok := verbosityNames[strings.ToLower(strings.TrimSpace(value))]
	if !ok {
		return fmt.Errorf("unknown verbosity %q: want one of silent, low, medium, high", value)
	}
	*v.v = vv
	return nil
}

// Verbosity returns a flag to set the verbosity of the diagnostics.
func Verbosity(name string, value diag.Verbosity, doc string) *diag.Verbosity {
	return VerbosityVar(flag.CommandLine, name, value, doc)
}

// VerbosityVar defines a verbosity flag in a flag set.
func VerbosityVar(fs *flag.FlagSet, name string, value diag.Verbosity, doc string) *diag.Verbosity {
	v := verbosity{v: &value}
	fs.Var(&v, name, doc)
	return v.v
}
