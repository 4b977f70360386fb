package model

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SteamID identifies a Steam account
type SteamID string

// Friend is an entry in the user's friend list, identified by SteamID
type Friend struct {
	SteamID    SteamID `json:"steam_id"`
	Username   string  `json:"steam_username"`
	ProfileURL string  `json:"steam_profile_url"`
	Avatar     string  `json:"steam_avatar"`
}

// SortFriends returns a copy of friends ordered by username, case-insensitive
// and locale-aware. The sort is stable so equal names keep their input order.
func SortFriends(friends []Friend) []Friend {
	sorted := slices.Clone(friends)
	if sorted == nil {
		return []Friend{}
	}

	// Collators keep internal buffers, so each sort gets its own
	c := collate.New(language.English, collate.IgnoreCase)
	slices.SortStableFunc(sorted, func(a, b Friend) int {
		return c.CompareString(a.Username, b.Username)
	})
	return sorted
}

// FilterFriends returns the friends whose username contains query, ignoring case
func FilterFriends(friends []Friend, query string) []Friend {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return slices.Clone(friends)
	}

	var matched []Friend
	for _, f := range friends {
		if strings.Contains(strings.ToLower(f.Username), query) {
			matched = append(matched, f)
		}
	}
	return matched
}

// FindFriend looks up a friend by SteamID, falling back to an exact
// case-insensitive username match
func FindFriend(friends []Friend, ref string) (Friend, bool) {
	for _, f := range friends {
		if string(f.SteamID) == ref {
			return f, true
		}
	}
	for _, f := range friends {
		if strings.EqualFold(f.Username, ref) {
			return f, true
		}
	}
	return Friend{}, false
}
