package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"

	"github.com/mcoot/letsplay/internal/model"
)

// Backend paths served by FakeSteam
const (
	PathMe           = "/steam/me"
	PathFriends      = "/steam/friends"
	PathOwnedGames   = "/steam/owned_games"
	PathFriendsGames = "/steam/friends/games"
	PathAuth         = "/auth/steam"
)

// FakeSteam is an in-process stand-in for the Steam-proxy backend.
// It requires the configured bearer token on every /steam route.
type FakeSteam struct {
	server *httptest.Server

	mu             sync.Mutex
	token          string
	loginFails     bool
	profile        model.UserProfile
	friends        []model.Friend
	owned          map[string]model.OwnedGame
	libraries      map[model.SteamID][]model.OwnedGame
	failures       map[string]int
	hooks          map[string]func()
	calls          map[string]int
	lastRequestIDs []model.SteamID
}

// NewFakeSteam starts a fake backend accepting token. It is closed when the
// test finishes.
func NewFakeSteam(t testing.TB, token string) *FakeSteam {
	t.Helper()

	f := &FakeSteam{
		token:     token,
		owned:     map[string]model.OwnedGame{},
		libraries: map[model.SteamID][]model.OwnedGame{},
		failures:  map[string]int{},
		hooks:     map[string]func(){},
		calls:     map[string]int{},
	}

	r := mux.NewRouter()
	r.HandleFunc(PathAuth, f.handleAuth).Methods(http.MethodGet)

	steam := r.PathPrefix("/steam").Subrouter()
	steam.Use(f.requireToken)
	steam.HandleFunc("/me", f.handleMe).Methods(http.MethodGet)
	steam.HandleFunc("/friends", f.handleFriends).Methods(http.MethodGet)
	steam.HandleFunc("/owned_games", f.handleOwnedGames).Methods(http.MethodGet)
	steam.HandleFunc("/friends/games", f.handleFriendsGames).Methods(http.MethodPost)

	f.server = httptest.NewServer(r)
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the backend base URL
func (f *FakeSteam) URL() string {
	return f.server.URL
}

// Token returns the accepted bearer token
func (f *FakeSteam) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

// SetLoginFails makes /auth/steam redirect to the failure route
func (f *FakeSteam) SetLoginFails(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginFails = fail
}

// SetProfile sets the /steam/me response
func (f *FakeSteam) SetProfile(p model.UserProfile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profile = p
}

// SetFriends sets the /steam/friends response
func (f *FakeSteam) SetFriends(friends ...model.Friend) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.friends = friends
}

// SetOwnedGames sets the user's library, keyed by appid string on the wire
func (f *FakeSteam) SetOwnedGames(games ...model.OwnedGame) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.owned = make(map[string]model.OwnedGame, len(games))
	for _, g := range games {
		f.owned[strconv.FormatInt(int64(g.AppID), 10)] = g
	}
}

// SetLibrary sets the games a friend owns for /steam/friends/games
func (f *FakeSteam) SetLibrary(id model.SteamID, games ...model.OwnedGame) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.libraries[id] = games
}

// SetFailure makes path respond with status until cleared with status 0
func (f *FakeSteam) SetFailure(path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status == 0 {
		delete(f.failures, path)
		return
	}
	f.failures[path] = status
}

// SetHook runs fn before path responds. A hook that blocks holds the
// request in flight.
func (f *FakeSteam) SetHook(path string, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fn == nil {
		delete(f.hooks, path)
		return
	}
	f.hooks[path] = fn
}

// Calls returns how many authorised requests reached path
func (f *FakeSteam) Calls(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

// LastRequestedIDs returns the steam_ids of the last friends games request
func (f *FakeSteam) LastRequestedIDs() []model.SteamID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.SteamID(nil), f.lastRequestIDs...)
}

func (f *FakeSteam) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != f.Token() {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing token")
			return
		}

		f.mu.Lock()
		f.calls[r.URL.Path]++
		status := f.failures[r.URL.Path]
		hook := f.hooks[r.URL.Path]
		f.mu.Unlock()

		if hook != nil {
			hook()
		}
		if status != 0 {
			writeError(w, status, "STEAM_ERROR", http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeSteam) handleAuth(w http.ResponseWriter, r *http.Request) {
	returnTo := strings.TrimSuffix(r.URL.Query().Get("return_to"), "/")
	if returnTo == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "return_to is required")
		return
	}

	f.mu.Lock()
	target := returnTo + "/login-success/" + f.token
	if f.loginFails {
		target = returnTo + "/login-failed"
	}
	f.mu.Unlock()

	http.Redirect(w, r, target, http.StatusFound)
}

func (f *FakeSteam) handleMe(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	p := f.profile
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{
		"steam_id":          string(p.ID),
		"steam_persona":     p.Username,
		"steam_avatar":      p.AvatarURL,
		"steam_profile_url": p.ProfileURL,
	})
}

func (f *FakeSteam) handleFriends(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	friends := append([]model.Friend{}, f.friends...)
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, friends)
}

func (f *FakeSteam) handleOwnedGames(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	games := make(map[string]model.OwnedGame, len(f.owned))
	for k, v := range f.owned {
		games[k] = v
	}
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"game_count": len(games),
		"games":      games,
	})
}

func (f *FakeSteam) handleFriendsGames(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SteamIDs []model.SteamID `json:"steam_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	f.mu.Lock()
	f.lastRequestIDs = req.SteamIDs
	games := make(map[model.SteamID][]model.OwnedGame, len(req.SteamIDs))
	for _, id := range req.SteamIDs {
		// Friends with private libraries are left out of the response
		if lib, ok := f.libraries[id]; ok {
			games[id] = lib
		}
	}
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"games": games})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
