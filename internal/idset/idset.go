// Package idset implements the identifier-set algebra used to resolve
// multi-term catalog queries.
//
// A Set holds signed 32-bit gallery identifiers in first-insertion order
// together with a polarity flag. Membership tests go through a roaring
// bitmap; iteration order comes from a parallel slice, because the final
// query result must preserve the order of the baseline stream.
package idset

import (
	"encoding/binary"
	"errors"

	"github.com/RoaringBitmap/roaring/v2"
)

// ErrTruncatedPostings is returned when a postings buffer is not a whole
// number of 4-byte identifiers.
var ErrTruncatedPostings = errors.New("idset: postings buffer length is not a multiple of 4")

// Set is an order-preserving set of gallery identifiers with a polarity.
// A negated set removes its members when combined instead of keeping them.
type Set struct {
	negated bool
	order   []int32
	members *roaring.Bitmap
}

// New creates an empty set with the given polarity.
func New(negated bool) *Set {
	return &Set{
		negated: negated,
		members: roaring.New(),
	}
}

// Decode interprets buf as consecutive big-endian signed 32-bit integers
// and returns them as a set, in buffer order. An empty buffer is a valid,
// empty set.
func Decode(buf []byte, negated bool) (*Set, error) {
	if len(buf)%4 != 0 {
		return nil, ErrTruncatedPostings
	}
	s := New(negated)
	for off := 0; off < len(buf); off += 4 {
		s.Add(int32(binary.BigEndian.Uint32(buf[off : off+4])))
	}
	return s, nil
}

// Negated reports the set's polarity.
func (s *Set) Negated() bool {
	return s.negated
}

// Add inserts id. Inserting an existing id keeps its original position.
func (s *Set) Add(id int32) {
	if s.members.Contains(uint32(id)) {
		return
	}
	s.members.Add(uint32(id))
	s.order = append(s.order, id)
}

// Contains reports membership of id.
func (s *Set) Contains(id int32) bool {
	return s.members.Contains(uint32(id))
}

// Len returns the number of identifiers in the set.
func (s *Set) Len() int {
	return len(s.order)
}

// Ordered returns the identifiers in insertion order.
// The returned slice is owned by the set.
func (s *Set) Ordered() []int32 {
	return s.order
}

// Combine folds other into s and returns s.
//
// For every identifier in s it evaluates contains = other.Contains(id) and
// removes the identifier when other.Negated() == contains. A non-negated
// other therefore intersects s with other; a negated other subtracts other
// from s. Combining never adds identifiers, so folding any number of term
// sets into a baseline is order-independent.
func (s *Set) Combine(other *Set) *Set {
	kept := s.order[:0]
	for _, id := range s.order {
		if other.Contains(id) == other.negated {
			s.members.Remove(uint32(id))
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return s
}
