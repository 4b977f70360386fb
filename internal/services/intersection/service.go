package intersection

import (
	"slices"

	"github.com/mcoot/letsplay/internal/model"
)

// SelfID is the key the user's own library is counted under by ComputeCommonWithOwn
const SelfID model.SteamID = ""

type tally struct {
	game  model.OwnedGame
	count int
}

// ComputeCommon returns the games owned by every friend in perFriend.
//
// Each friend's list is deduplicated by appid first, so a friend never counts
// twice for one game. The first record seen for an appid is the one returned.
// Lists are visited in ascending SteamID order and results keep first-seen
// order, so the output is deterministic for a given input.
// No friends means no common games.
func ComputeCommon(perFriend map[model.SteamID][]model.OwnedGame) []model.OwnedGame {
	required := len(perFriend)
	if required == 0 {
		return []model.OwnedGame{}
	}

	ids := make([]model.SteamID, 0, required)
	for id := range perFriend {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	tallies := make(map[model.AppID]*tally)
	var order []model.AppID

	for _, id := range ids {
		for _, g := range DedupeByAppID(perFriend[id]) {
			t, ok := tallies[g.AppID]
			if !ok {
				t = &tally{game: g}
				tallies[g.AppID] = t
				order = append(order, g.AppID)
			}
			t.count++
		}
	}

	common := make([]model.OwnedGame, 0)
	for _, appID := range order {
		if t := tallies[appID]; t.count == required {
			common = append(common, t.game)
		}
	}
	return common
}

// ComputeCommonWithOwn is ComputeCommon with the user's own library counted
// as one more party when includeSelf is set.
func ComputeCommonWithOwn(perFriend map[model.SteamID][]model.OwnedGame, own model.GameLibrary, includeSelf bool) []model.OwnedGame {
	if !includeSelf || len(perFriend) == 0 {
		return ComputeCommon(perFriend)
	}

	parties := make(map[model.SteamID][]model.OwnedGame, len(perFriend)+1)
	for id, games := range perFriend {
		parties[id] = games
	}
	// SelfID sorts first, so the user's own records become the representatives
	parties[SelfID] = own.Sorted()
	return ComputeCommon(parties)
}

// DedupeByAppID returns games with repeated appids removed, keeping the
// first occurrence
func DedupeByAppID(games []model.OwnedGame) []model.OwnedGame {
	seen := make(map[model.AppID]struct{}, len(games))
	out := make([]model.OwnedGame, 0, len(games))
	for _, g := range games {
		if _, ok := seen[g.AppID]; ok {
			continue
		}
		seen[g.AppID] = struct{}{}
		out = append(out, g)
	}
	return out
}
