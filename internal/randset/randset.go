// Package randset provides a set with constant-time uniform random choice.
//
// The simulation event loop removes and samples lineages on every event, so
// the active-population bookkeeping needs O(1) add, remove, and choice. A
// plain map gives O(1) add/remove but no indexed access; Set keeps a
// parallel slice so a uniform index maps straight to an element.
package randset

import (
	"fmt"
	"strings"

	"golang.org/x/exp/rand"
)

// Set is a set of comparable items supporting uniform random sampling in
// constant time. Iteration order is insertion order, except that removals
// swap the last item into the vacated slot.
type Set[T comparable] struct {
	index map[T]int
	items []T
}

// New returns a Set containing the given items.
func New[T comparable](items ...T) *Set[T] {
	s := &Set[T]{index: make(map[T]int, len(items))}
	for _, item := range items {
		s.Add(item)
	}
	return s
}

// Add inserts item into the set. Adding an existing item is a no-op.
func (s *Set[T]) Add(item T) {
	if _, ok := s.index[item]; ok {
		return
	}
	s.index[item] = len(s.items)
	s.items = append(s.items, item)
}

// Remove deletes item from the set, swapping the last element into its slot.
// It returns an error if the item is not present.
func (s *Set[T]) Remove(item T) error {
	idx, ok := s.index[item]
	if !ok {
		return fmt.Errorf("randset: item %v not in set", item)
	}
	last := len(s.items) - 1
	moved := s.items[last]
	s.items[idx] = moved
	s.index[moved] = idx
	s.items = s.items[:last]
	delete(s.index, item)
	return nil
}

// Contains reports whether item is in the set.
func (s *Set[T]) Contains(item T) bool {
	_, ok := s.index[item]
	return ok
}

// Choice returns a uniformly random element. It panics if the set is empty,
// mirroring the contract of indexing an empty slice.
func (s *Set[T]) Choice(rng *rand.Rand) T {
	return s.items[rng.Intn(len(s.items))]
}

// Len returns the number of items in the set.
func (s *Set[T]) Len() int {
	return len(s.items)
}

// Items returns the elements in iteration order. The slice is a copy.
func (s *Set[T]) Items() []T {
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// ItemsReversed returns the elements in reverse iteration order. The slice
// is a copy.
func (s *Set[T]) ItemsReversed() []T {
	out := make([]T, len(s.items))
	for i, item := range s.items {
		out[len(out)-1-i] = item
	}
	return out
}

func (s *Set[T]) String() string {
	var b strings.Builder
	b.WriteString("Set(")
	for i, item := range s.items {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%v", item)
	}
	b.WriteString(")")
	return b.String()
}
