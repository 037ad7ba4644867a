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

// Package uname provides unique names.
package uname

import "fmt"

// Unique generates unique names.
type Unique struct {
	names map[string]int
}

// New name generator.
func New() *Unique {
	return &Unique{names: make(map[string]int)}
}

// Name returns a unique name given a desired base name.
// If the base name is available, it is returned directly. Else, a unique suffix is appended.
func (n *Unique) Name(root string) string {
	nextIndex, ok := n.names[root]
	if !ok {
		n.names[root] = 1
		n.Register(root)
		return root
	}
	for {
		name := fmt.Sprintf("%s%d", root, nextIndex)
		nextIndex++
		n.names[root] = nextIndex
		if _, taken := n.names[name]; !taken {
			n.Register(name)
			return name
		}
	}
}

// Register marks a name as taken.
func (n *Unique) Register(name string) {
	if _, ok := n.names[name]; !ok {
		n.names[name] = 1
	}
}

// Indexed returns the unique names of the components of a list given a root.
// A list with a single element uses the root name (made unique) directly.
func (n *Unique) Indexed(root string, size int) []string {
	if size == 1 {
		return []string{n.Name(root)}
	}
	root = n.Name(root)
	names := make([]string, size)
	for i := range names {
		names[i] = fmt.Sprintf("%s[%d]", root, i)
		n.Register(names[i])
	}
	return names
}
