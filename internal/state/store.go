// Package state holds the client's process-wide state. There is no global
// instance: the application root owns a *Store and hands it to consumers.
// All mutation goes through the named setters.
package state

import (
	"slices"
	"sync"

	"github.com/mcoot/letsplay/internal/model"
)

// Slice names a group of fields listeners can subscribe to
type Slice string

const (
	SliceAuth        Slice = "auth"
	SliceProfile     Slice = "profile"
	SliceFriends     Slice = "friends"
	SliceOwnedGames  Slice = "owned_games"
	SliceCommonGames Slice = "common_games"
	SliceSelection   Slice = "selection"
)

// AllSlices lists every slice
var AllSlices = []Slice{SliceAuth, SliceProfile, SliceFriends, SliceOwnedGames, SliceCommonGames, SliceSelection}

// Change describes which slices a setter touched
type Change struct {
	Slices []Slice
}

// Affects reports whether the change touched the slice
func (c Change) Affects(s Slice) bool {
	return slices.Contains(c.Slices, s)
}

// Listener is notified after a setter has applied its change
type Listener func(Change)

type subscription struct {
	id       int
	listener Listener
	slices   []Slice
}

func (s *subscription) interested(c Change) bool {
	if len(s.slices) == 0 {
		return true
	}
	for _, sl := range s.slices {
		if c.Affects(sl) {
			return true
		}
	}
	return false
}

// Snapshot is a point-in-time copy of the whole store
type Snapshot struct {
	Token       string
	IsLoggedIn  bool
	UserProfile *model.UserProfile
	Friends     []model.Friend
	OwnedGames  model.GameLibrary
	CommonGames []model.OwnedGame
	Selection   model.Selection
}

// Store is the client state container
type Store struct {
	mu sync.RWMutex

	token       string
	isLoggedIn  bool
	userProfile *model.UserProfile
	friends     []model.Friend
	ownedGames  model.GameLibrary
	commonGames []model.OwnedGame
	selection   model.Selection

	subMu  sync.Mutex
	subs   []*subscription
	nextID int
}

// New creates an empty, logged-out store
func New() *Store {
	return &Store{
		friends:     []model.Friend{},
		ownedGames:  model.GameLibrary{},
		commonGames: []model.OwnedGame{},
		selection:   model.Selection{},
	}
}

// Subscribe registers a listener for the given slices, or for every change
// when none are given. The returned func removes the listener.
func (s *Store) Subscribe(listener Listener, filter ...Slice) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, &subscription{id: id, listener: listener, slices: filter})

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		s.subs = slices.DeleteFunc(s.subs, func(sub *subscription) bool { return sub.id == id })
	}
}

// Setters

// SetToken stores the session token; isLoggedIn follows the token
func (s *Store) SetToken(token string) {
	s.apply(func() {
		s.token = token
		s.isLoggedIn = token != ""
	}, SliceAuth)
}

// ClearAuth logs the store out. It drops the profile and owned games but
// keeps friends, common games and the selection.
func (s *Store) ClearAuth() {
	s.apply(func() {
		s.token = ""
		s.isLoggedIn = false
		s.userProfile = nil
		s.ownedGames = model.GameLibrary{}
	}, SliceAuth, SliceProfile, SliceOwnedGames)
}

// SetUserProfile replaces the profile; nil clears it
func (s *Store) SetUserProfile(profile *model.UserProfile) {
	var p *model.UserProfile
	if profile != nil {
		cp := *profile
		p = &cp
	}
	s.apply(func() {
		s.userProfile = p
	}, SliceProfile)
}

// SetFriends replaces the friend list, sorted by username
func (s *Store) SetFriends(friends []model.Friend) {
	sorted := model.SortFriends(friends)
	s.apply(func() {
		s.friends = sorted
	}, SliceFriends)
}

// SetOwnedGames replaces the user's game library
func (s *Store) SetOwnedGames(games model.GameLibrary) {
	lib := games.Clone()
	s.apply(func() {
		s.ownedGames = lib
	}, SliceOwnedGames)
}

// SetCommonGames replaces the result of the last common games computation
func (s *Store) SetCommonGames(games []model.OwnedGame) {
	common := slices.Clone(games)
	if common == nil {
		common = []model.OwnedGame{}
	}
	s.apply(func() {
		s.commonGames = common
	}, SliceCommonGames)
}

// SetSelection replaces the selected friends
func (s *Store) SetSelection(sel model.Selection) {
	cp := sel.Clone()
	s.apply(func() {
		s.selection = cp
	}, SliceSelection)
}

// ToggleFriend adds or removes a friend from the selection
func (s *Store) ToggleFriend(id model.SteamID) {
	s.apply(func() {
		s.selection = s.selection.Toggle(id)
	}, SliceSelection)
}

// Reset returns every field to its empty value
func (s *Store) Reset() {
	s.apply(func() {
		s.token = ""
		s.isLoggedIn = false
		s.userProfile = nil
		s.friends = []model.Friend{}
		s.ownedGames = model.GameLibrary{}
		s.commonGames = []model.OwnedGame{}
		s.selection = model.Selection{}
	}, AllSlices...)
}

// Readers

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isLoggedIn
}

func (s *Store) UserProfile() *model.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.userProfile == nil {
		return nil
	}
	p := *s.userProfile
	return &p
}

func (s *Store) Friends() []model.Friend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.friends)
}

func (s *Store) OwnedGames() model.GameLibrary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ownedGames.Clone()
}

func (s *Store) CommonGames() []model.OwnedGame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.commonGames)
}

func (s *Store) Selection() model.Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection.Clone()
}

// Snapshot copies the whole store under one read lock
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var profile *model.UserProfile
	if s.userProfile != nil {
		p := *s.userProfile
		profile = &p
	}
	return Snapshot{
		Token:       s.token,
		IsLoggedIn:  s.isLoggedIn,
		UserProfile: profile,
		Friends:     slices.Clone(s.friends),
		OwnedGames:  s.ownedGames.Clone(),
		CommonGames: slices.Clone(s.commonGames),
		Selection:   s.selection.Clone(),
	}
}

// apply runs mutate under the write lock, then notifies interested listeners.
// Listeners run outside the lock so they may read or set the store.
func (s *Store) apply(mutate func(), changed ...Slice) {
	s.mu.Lock()
	mutate()
	s.mu.Unlock()

	change := Change{Slices: changed}

	s.subMu.Lock()
	subs := slices.Clone(s.subs)
	s.subMu.Unlock()

	for _, sub := range subs {
		if sub.interested(change) {
			sub.listener(change)
		}
	}
}
