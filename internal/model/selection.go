package model

import "slices"

// Selection is the set of friends picked for a common games lookup.
// It only lives for the current session.
type Selection map[SteamID]struct{}

// NewSelection creates a selection holding the given ids
func NewSelection(ids ...SteamID) Selection {
	s := make(Selection, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is selected
func (s Selection) Has(id SteamID) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of selected friends
func (s Selection) Len() int {
	return len(s)
}

// Toggle returns a copy with id added if absent or removed if present
func (s Selection) Toggle(id SteamID) Selection {
	out := s.Clone()
	if out.Has(id) {
		delete(out, id)
	} else {
		out[id] = struct{}{}
	}
	return out
}

// Clone returns a copy of the selection
func (s Selection) Clone() Selection {
	out := make(Selection, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// IDs returns the selected ids in ascending order
func (s Selection) IDs() []SteamID {
	ids := make([]SteamID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
