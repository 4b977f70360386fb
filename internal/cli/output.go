package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mcoot/letsplay/internal/model"
	"github.com/mcoot/letsplay/internal/services/credential"
	"github.com/mcoot/letsplay/internal/services/fetch"
	"github.com/mcoot/letsplay/internal/services/library"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
	errW   io.Writer
}

// NewOutput creates a new Output formatter writing to stdout and stderr
func NewOutput(format string) *Output {
	return &Output{format: format, w: os.Stdout, errW: os.Stderr}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error, with a hint for the common cases
func (o *Output) PrintError(err error) {
	msg := err.Error()
	if hint := errorHint(err); hint != "" {
		msg += " (" + hint + ")"
	}

	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": msg,
			},
		}
		data, _ := json.Marshal(errData)
		_, _ = fmt.Fprintln(o.errW, string(data))
	} else {
		_, _ = fmt.Fprintf(o.errW, "Error: %s\n", msg)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		_, _ = fmt.Fprintln(o.w, string(data))
	} else {
		_, _ = fmt.Fprintln(o.w, msg)
	}
}

// PrintWarning reports a non-fatal problem on stderr, e.g. serving stale data
func (o *Output) PrintWarning(err error) {
	if o.format == "json" {
		return
	}
	_, _ = fmt.Fprintf(o.errW, "Warning: %s\n", err)
}

func errorHint(err error) string {
	switch {
	case errors.Is(err, model.ErrAuthMissing):
		return "run 'letsplay login' first"
	case errors.Is(err, model.ErrUnknownFriend):
		return "see 'letsplay friends' for names and ids"
	case errors.Is(err, model.ErrNoFriendsSelected):
		return "pass at least one friend"
	default:
		return ""
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case *model.UserProfile:
		o.printProfile(v)
	case StatusResult:
		o.printStatus(v)
	case []model.Friend:
		o.printFriends(v)
	case []model.OwnedGame:
		o.printGames(v)
	case CommonGamesResult:
		o.printCommonGames(v)
	case []fetch.Status:
		o.printCacheStatus(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// StatusResult describes the local session
type StatusResult struct {
	LoggedIn bool               `json:"logged_in"`
	Profile  *model.UserProfile `json:"profile,omitempty"`
	Claims   *credential.Claims `json:"claims,omitempty"`
	Storage  string             `json:"storage"`
}

// CommonGamesResult is the outcome of a common games lookup
type CommonGamesResult struct {
	Friends []model.Friend       `json:"friends"`
	Games   []library.CommonGame `json:"games"`
}

func (o *Output) printProfile(p *model.UserProfile) {
	if p == nil {
		_, _ = fmt.Fprintln(o.w, "No profile loaded")
		return
	}
	_, _ = fmt.Fprintf(o.w, "User: %s (%s)\n", p.Username, p.ID)
	if p.ProfileURL != "" {
		_, _ = fmt.Fprintf(o.w, "Profile: %s\n", p.ProfileURL)
	}
	if p.AvatarURL != "" {
		_, _ = fmt.Fprintf(o.w, "Avatar: %s\n", p.AvatarURL)
	}
}

func (o *Output) printStatus(s StatusResult) {
	if !s.LoggedIn {
		_, _ = fmt.Fprintln(o.w, "Not logged in")
		_, _ = fmt.Fprintf(o.w, "Storage: %s\n", s.Storage)
		return
	}

	_, _ = fmt.Fprintln(o.w, "Logged in")
	if s.Profile != nil {
		_, _ = fmt.Fprintf(o.w, "User: %s (%s)\n", s.Profile.Username, s.Profile.ID)
	}
	if s.Claims != nil {
		if s.Claims.Subject != "" {
			_, _ = fmt.Fprintf(o.w, "Subject: %s\n", s.Claims.Subject)
		}
		if !s.Claims.ExpiresAt.IsZero() {
			state := "valid"
			if s.Claims.Expired {
				state = "expired"
			}
			_, _ = fmt.Fprintf(o.w, "Token expires: %s (%s)\n", s.Claims.ExpiresAt.Format(time.RFC3339), state)
		}
	}
	_, _ = fmt.Fprintf(o.w, "Storage: %s\n", s.Storage)
}

func (o *Output) printFriends(friends []model.Friend) {
	_, _ = fmt.Fprintf(o.w, "Friends (%d):\n", len(friends))
	for _, f := range friends {
		_, _ = fmt.Fprintf(o.w, "  %-20s  %s\n", f.SteamID, f.Username)
	}
}

func (o *Output) printGames(games []model.OwnedGame) {
	_, _ = fmt.Fprintf(o.w, "Games (%d):\n", len(games))
	for _, g := range games {
		_, _ = fmt.Fprintf(o.w, "  %-8d  %-40s  %5dh total  %3dh last 2 weeks\n",
			g.AppID, g.Name, g.HoursForever(), g.HoursTwoWeeks())
	}
}

func (o *Output) printCommonGames(r CommonGamesResult) {
	names := make([]string, 0, len(r.Friends))
	for _, f := range r.Friends {
		names = append(names, f.Username)
	}
	_, _ = fmt.Fprintf(o.w, "Common games with %s (%d):\n", strings.Join(names, ", "), len(r.Games))
	if len(r.Games) == 0 {
		_, _ = fmt.Fprintln(o.w, "  none")
		return
	}
	for _, g := range r.Games {
		played := "not owned"
		if g.Owned {
			played = fmt.Sprintf("%dh played", g.HoursPlayed)
		}
		_, _ = fmt.Fprintf(o.w, "  %-8d  %-40s  %s\n", g.AppID, g.Name, played)
	}
}

func (o *Output) printCacheStatus(statuses []fetch.Status) {
	for _, s := range statuses {
		switch {
		case !s.HasData:
			_, _ = fmt.Fprintf(o.w, "%-12s  empty\n", s.Key)
		case s.Fresh:
			_, _ = fmt.Fprintf(o.w, "%-12s  fresh  fetched %s\n", s.Key, s.FetchedAt.Format(time.RFC3339))
		default:
			_, _ = fmt.Fprintf(o.w, "%-12s  stale  fetched %s\n", s.Key, s.FetchedAt.Format(time.RFC3339))
		}
	}
}
