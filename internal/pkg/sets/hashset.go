// Package sets provides a minimal generic set type used for image tag
// collections and id de-duplication throughout the service.
package sets

import (
	"iter"
	"maps"
)

// HashSet is an unordered set backed by a Go map. Insertion order is not
// preserved; used wherever membership testing matters more than order
// (image tags, tag and id-allowlist matching in vector-store filters).
type HashSet[T comparable] map[T]struct{}

// New creates a HashSet, optionally pre-sized.
func New[T comparable](size ...int) HashSet[T] {
	c := 0
	for _, s := range size {
		if s > c {
			c = s
		}
	}
	return make(HashSet[T], c)
}

// FromSlice builds a HashSet from the given elements.
func FromSlice[T comparable](items []T) HashSet[T] {
	s := New[T](len(items))
	for _, item := range items {
		s.Add(item)
	}
	return s
}

// Add inserts v into the set.
func (s HashSet[T]) Add(v T) { s[v] = struct{}{} }

// Remove deletes v from the set, if present.
func (s HashSet[T]) Remove(v T) { delete(s, v) }

// Has reports whether v is a member of the set.
func (s HashSet[T]) Has(v T) bool {
	_, ok := s[v]
	return ok
}

// Len returns the number of elements in the set.
func (s HashSet[T]) Len() int { return len(s) }

// Iter returns an iterator over the set's elements in undefined order.
func (s HashSet[T]) Iter() iter.Seq[T] { return maps.Keys(s) }

// ToSlice returns all elements of the set as a slice.
func (s HashSet[T]) ToSlice() []T {
	out := make([]T, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	return out
}

// Intersects reports whether s and other share at least one element.
func (s HashSet[T]) Intersects(other HashSet[T]) bool {
	small, big := s, other
	if len(big) < len(small) {
		small, big = big, small
	}
	for v := range small {
		if big.Has(v) {
			return true
		}
	}
	return false
}
