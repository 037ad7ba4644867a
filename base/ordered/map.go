// Package ordered provides ordered data structure.
package ordered

import "iter"

// Map is an ordered map. Iter iterates over the map
// using the same order in which the keys have been added.
type Map[K comparable, V any] struct {
	keys []K
	m    map[K]V
}

// NewMap returns a new ordered map.
func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{m: make(map[K]V)}
}

// Store a key,value pair.
func (m *Map[K, V]) Store(k K, v V) {
	_, in := m.m[k]
	if !in {
		m.keys = append(m.keys, k)
	}
	m.m[k] = v
}

// Load returns a value given a key.
func (m *Map[K, V]) Load(k K) (V, bool) {
	v, ok := m.m[k]
	return v, ok
}

// Iter returns an iterator to range over the elements of the map.
func (m *Map[K, V]) Iter() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, k := range m.keys {
			if !yield(k, m.m[k]) {
				break
			}
		}
	}
}

// Keys returns an iterator to range over the keys of the map.
func (m *Map[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for _, k := range m.keys {
			if !yield(k) {
				break
			}
		}
	}
}

// Values returns an iterator to range over the values of the map.
func (m *Map[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, k := range m.keys {
			if !yield(m.m[k]) {
				break
			}
		}
	}
}

// Clone creates a new map with the same keys and values.
// This is a shallow clone.
func (m *Map[K, V]) Clone() *Map[K, V] {
	r := NewMap[K, V]()
	for k, v := range m.Iter() {
		r.Store(k, v)
	}
	return r
}

// Size returns the number of elements in the map.
func (m *Map[K, V]) Size() int {
	return len(m.keys)
}

// Set is a set remembering the order in which elements have been added.
type Set[K comparable] struct {
	m *Map[K, struct{}]
}

// NewSet returns a new ordered set.
func NewSet[K comparable](ks ...K) *Set[K] {
	s := &Set[K]{m: NewMap[K, struct{}]()}
	for _, k := range ks {
		s.Add(k)
	}
	return s
}

// Add an element to the set. It returns false if the element was already present.
func (s *Set[K]) Add(k K) bool {
	if s.Has(k) {
		return false
	}
	s.m.Store(k, struct{}{})
	return true
}

// Has returns true if k is in the set.
func (s *Set[K]) Has(k K) bool {
	_, ok := s.m.Load(k)
	return ok
}

// All iterates over the elements in insertion order.
func (s *Set[K]) All() iter.Seq[K] {
	return s.m.Keys()
}

// Size returns the number of elements in the set.
func (s *Set[K]) Size() int {
	return s.m.Size()
}
