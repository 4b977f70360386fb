package model

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

const iconURLFormat = "https://media.steampowered.com/steamcommunity/public/images/apps/%d/%s.jpg"

// AppID is the canonical numeric key of a Steam game.
// The backend sends it as a number in some responses and as a string in
// others; decoding accepts both.
type AppID int64

// ParseAppID parses a decimal appid
func ParseAppID(s string) (AppID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid appid %q: %w", s, err)
	}
	return AppID(n), nil
}

// UnmarshalJSON accepts 570 and "570"
func (id *AppID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}

	parsed, err := ParseAppID(raw)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// OwnedGame is a game in a Steam library. Playtimes are in minutes.
type OwnedGame struct {
	AppID           AppID  `json:"appid"`
	Name            string `json:"name"`
	PlaytimeForever int    `json:"playtime_forever"`
	Playtime2Weeks  int    `json:"playtime_2weeks"`
	ImgIconURL      string `json:"img_icon_url"`
}

// IconURL returns the CDN URL of the game's icon, or "" without an icon hash
func (g OwnedGame) IconURL() string {
	if g.ImgIconURL == "" {
		return ""
	}
	return fmt.Sprintf(iconURLFormat, g.AppID, g.ImgIconURL)
}

// HoursForever returns total playtime in whole hours
func (g OwnedGame) HoursForever() int {
	return g.PlaytimeForever / 60
}

// HoursTwoWeeks returns playtime over the last two weeks in whole hours
func (g OwnedGame) HoursTwoWeeks() int {
	return g.Playtime2Weeks / 60
}

// GameLibrary is a user's owned games keyed by appid
type GameLibrary map[AppID]OwnedGame

// Get returns the game with the given appid
func (l GameLibrary) Get(id AppID) (OwnedGame, bool) {
	g, ok := l[id]
	return g, ok
}

// Len returns the number of games in the library
func (l GameLibrary) Len() int {
	return len(l)
}

// Clone returns a shallow copy of the library
func (l GameLibrary) Clone() GameLibrary {
	if l == nil {
		return GameLibrary{}
	}
	out := make(GameLibrary, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// Sorted returns the games ordered by name, then appid
func (l GameLibrary) Sorted() []OwnedGame {
	games := make([]OwnedGame, 0, len(l))
	for _, g := range l {
		games = append(games, g)
	}
	slices.SortFunc(games, func(a, b OwnedGame) int {
		if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return cmp.Compare(a.AppID, b.AppID)
	})
	return games
}
