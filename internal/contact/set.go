package contact

import (
	"encoding/json"
	"fmt"
)

// Set is an insertion-ordered set. The zero value is ready to use.
type Set[T comparable] struct {
	items []T
	index map[T]struct{}
}

// NewSet builds a Set holding values in order, dropping duplicates.
func NewSet[T comparable](values ...T) Set[T] {
	var s Set[T]
	s.Add(values...)
	return s
}

// Add appends values not already present. It reports whether anything was added.
func (s *Set[T]) Add(values ...T) bool {
	added := false
	for _, v := range values {
		if s.index == nil {
			s.index = make(map[T]struct{})
		}
		if _, ok := s.index[v]; ok {
			continue
		}
		s.index[v] = struct{}{}
		s.items = append(s.items, v)
		added = true
	}
	return added
}

// Has reports membership.
func (s Set[T]) Has(v T) bool {
	_, ok := s.index[v]
	return ok
}

// Remove deletes v, keeping the order of the remaining values.
func (s *Set[T]) Remove(v T) {
	if !s.Has(v) {
		return
	}
	delete(s.index, v)
	for i, item := range s.items {
		if item == v {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
			return
		}
	}
}

// Union adds every value of other in other's order.
func (s *Set[T]) Union(other Set[T]) {
	s.Add(other.items...)
}

// Intersects reports whether the two sets share at least one value.
func (s Set[T]) Intersects(other Set[T]) bool {
	small, large := s, other
	if small.Len() > large.Len() {
		small, large = large, small
	}
	for _, v := range small.items {
		if large.Has(v) {
			return true
		}
	}
	return false
}

// Len returns the number of values.
func (s Set[T]) Len() int {
	return len(s.items)
}

// Values returns a copy of the values in insertion order.
func (s Set[T]) Values() []T {
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// Clone returns an independent copy.
func (s Set[T]) Clone() Set[T] {
	return NewSet(s.items...)
}

// MarshalJSON encodes the set as a JSON array, never null.
func (s Set[T]) MarshalJSON() ([]byte, error) {
	items := s.items
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal set: %w", err)
	}
	return data, nil
}

// UnmarshalJSON decodes a JSON array, dropping duplicates.
func (s *Set[T]) UnmarshalJSON(data []byte) error {
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("unmarshal set: %w", err)
	}
	*s = NewSet(items...)
	return nil
}
