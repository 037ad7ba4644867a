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

package deriv

// Partitions returns all the set partitions of the elements of m, each
// partition being a list of non-empty blocks. Elements are distinguished by
// their position in m, so partitions coming from repeated elements are not
// deduplicated. This is the enumeration used by the chain rule
// (Faà di Bruno formula): D_m f(c) = sum over partitions P of
// f^(|P|)(c) * prod_{B in P} D_B c.
//
// The zeroth derivative has a single, empty, partition.
func (m MultipleDeriv) Partitions() [][]MultipleDeriv {
	var all [][]MultipleDeriv
	var blocks [][]Derivative
	var rec func(i int)
	rec = func(i int) {
		if i == len(m.elems) {
			partition := make([]MultipleDeriv, len(blocks))
			for b, block := range blocks {
				// Elements are appended in order, so blocks are sorted.
				partition[b] = MultipleDeriv{elems: append([]Derivative{}, block...)}
			}
			all = append(all, partition)
			return
		}
		d := m.elems[i]
		for b := range blocks {
			blocks[b] = append(blocks[b], d)
			rec(i + 1)
			blocks[b] = blocks[b][:len(blocks[b])-1]
		}
		blocks = append(blocks, []Derivative{d})
		rec(i + 1)
		blocks = blocks[:len(blocks)-1]
	}
	rec(0)
	return all
}
