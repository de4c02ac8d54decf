package model

import (
	"fmt"
	"math/rand"
)

// IndexSet is an order-preserving set of individual identifiers backed by a
// slice and a position map. Removal swaps the last element into the vacated
// slot, so membership tests, insertion and removal are all O(1) while
// iteration order stays a pure function of the operation history. That
// determinism is what makes sampling from derived sets reproducible for a
// fixed seed.
type IndexSet struct {
	members []ID
	pos     map[ID]int
}

// NewIndexSet returns an empty set.
func NewIndexSet() *IndexSet {
	return &IndexSet{pos: make(map[ID]int)}
}

// Len returns the number of members.
func (s *IndexSet) Len() int { return len(s.members) }

// Contains reports membership.
func (s *IndexSet) Contains(id ID) bool {
	_, ok := s.pos[id]
	return ok
}

// Add inserts id; inserting a present member is a no-op.
func (s *IndexSet) Add(id ID) {
	if _, ok := s.pos[id]; ok {
		return
	}
	s.pos[id] = len(s.members)
	s.members = append(s.members, id)
}

// Remove deletes id. Removing an absent member is a logic defect and
// panics.
func (s *IndexSet) Remove(id ID) {
	i, ok := s.pos[id]
	if !ok {
		panic(fmt.Sprintf("indexset: removing absent member %d", id))
	}
	last := len(s.members) - 1
	moved := s.members[last]
	s.members[i] = moved
	s.pos[moved] = i
	s.members = s.members[:last]
	delete(s.pos, id)
}

// Members returns the backing slice. Callers must not mutate it.
func (s *IndexSet) Members() []ID { return s.members }

// Sample returns a uniformly drawn member. The set must be non-empty.
func (s *IndexSet) Sample(rng *rand.Rand) ID {
	return s.members[rng.Intn(len(s.members))]
}
