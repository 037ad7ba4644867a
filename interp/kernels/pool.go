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
	"github.com/gx-org/weakform/build/fmterr"
)

// Pool recycles vectors of a fixed length. Every vector popped from the
// pool must be released exactly once.
type Pool struct {
	n           int
	free        []*Vector
	outstanding int
	allocated   int
}

// NewPool returns a pool of vectors of length n with capacity vectors preallocated.
func NewPool(n, capacity int) *Pool {
	p := &Pool{n: n}
	for range capacity {
		v := newVector(p, n)
		v.inPool = true
		p.free = append(p.free, v)
		p.allocated++
	}
	return p
}

// VectorLen returns the length of the vectors of the pool.
func (p *Pool) VectorLen() int {
	return p.n
}

// Pop returns a vector of zeros.
func (p *Pool) Pop() *Vector {
	p.outstanding++
	if len(p.free) == 0 {
		p.allocated++
		return newVector(p, p.n)
	}
	v := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	v.inPool = false
	v.Fill(0)
	return v
}

// Release returns a vector to the pool.
func (p *Pool) Release(v *Vector) error {
	if v == nil {
		return fmterr.Internalf("cannot release a nil vector")
	}
	if v.pool != p {
		return fmterr.Internalf("cannot release a vector %s which does not belong to the pool", v.shape.String())
	}
	if v.inPool {
		return fmterr.Internalf("vector released twice")
	}
	v.inPool = true
	p.outstanding--
	p.free = append(p.free, v)
	return nil
}

// ReleaseAll releases all non-nil vectors of a list.
func (p *Pool) ReleaseAll(vs []*Vector) error {
	for _, v := range vs {
		if v == nil {
			continue
		}
		if err := p.Release(v); err != nil {
			return err
		}
	}
	return nil
}

// Outstanding returns the number of vectors popped and not released yet.
func (p *Pool) Outstanding() int {
	return p.outstanding
}

// Allocated returns the number of vectors allocated by the pool.
func (p *Pool) Allocated() int {
	return p.allocated
}
