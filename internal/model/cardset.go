package model

import (
	"encoding/json"
	"slices"
)

// CardSet is an ordered set of card ids.
//
// Elements are kept sorted ascending and unique, which makes the set usable
// directly as a canonical list in storage and hashing. The zero value is an
// empty set.
type CardSet []CardID

// NewCardSet builds a set from ids in any order, dropping duplicates.
func NewCardSet(ids ...CardID) CardSet {
	s := make(CardSet, 0, len(ids))
	for _, id := range ids {
		s = s.Add(id)
	}
	return s
}

// Len returns the number of cards in the set.
func (s CardSet) Len() int { return len(s) }

// Contains reports whether id is a member.
func (s CardSet) Contains(id CardID) bool {
	_, found := slices.BinarySearch(s, id)
	return found
}

// ContainsAll reports whether every member of other is also in s.
// The empty set is contained in every set.
func (s CardSet) ContainsAll(other CardSet) bool {
	for _, id := range other {
		if !s.Contains(id) {
			return false
		}
	}
	return true
}

// Disjoint reports whether s and other share no member.
func (s CardSet) Disjoint(other CardSet) bool {
	for _, id := range other {
		if s.Contains(id) {
			return false
		}
	}
	return true
}

// Add returns the set with id inserted. s is not modified.
func (s CardSet) Add(id CardID) CardSet {
	i, found := slices.BinarySearch(s, id)
	if found {
		return s
	}
	out := make(CardSet, 0, len(s)+1)
	out = append(out, s[:i]...)
	out = append(out, id)
	return append(out, s[i:]...)
}

// Remove returns the set without id. s is not modified.
func (s CardSet) Remove(id CardID) CardSet {
	i, found := slices.BinarySearch(s, id)
	if !found {
		return s
	}
	out := make(CardSet, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...)
}

// Int64s returns the members as plain integers, for encoding.
func (s CardSet) Int64s() []int64 {
	out := make([]int64, len(s))
	for i, id := range s {
		out[i] = int64(id)
	}
	return out
}

// MarshalJSON encodes the set as an ascending array. An empty set is [].
func (s CardSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Int64s())
}

// UnmarshalJSON accepts any integer array and normalizes it.
func (s *CardSet) UnmarshalJSON(data []byte) error {
	var ids []CardID
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewCardSet(ids...)
	return nil
}
