package state

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/letsplay/internal/model"
)

type StoreSuite struct {
	suite.Suite
	store *Store
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.store = New()
}

// recorder collects notifications for assertions
type recorder struct {
	changes []Change
}

func (r *recorder) listen(c Change) {
	r.changes = append(r.changes, c)
}

func (s *StoreSuite) TestStartsLoggedOut() {
	s.False(s.store.IsLoggedIn())
	s.Empty(s.store.Token())
	s.Nil(s.store.UserProfile())
	s.Empty(s.store.Friends())
	s.Empty(s.store.OwnedGames())
	s.Empty(s.store.CommonGames())
	s.Zero(s.store.Selection().Len())
}

func (s *StoreSuite) TestSetTokenLogsIn() {
	s.store.SetToken("tok")

	s.True(s.store.IsLoggedIn())
	s.Equal("tok", s.store.Token())
}

func (s *StoreSuite) TestSetEmptyTokenKeepsFlagConsistent() {
	s.store.SetToken("tok")
	s.store.SetToken("")

	s.False(s.store.IsLoggedIn())
}

func (s *StoreSuite) TestClearAuthKeepsFriendsAndCommonGames() {
	s.store.SetToken("tok")
	s.store.SetUserProfile(&model.UserProfile{ID: "1", Username: "me"})
	s.store.SetFriends([]model.Friend{{SteamID: "2", Username: "bob"}})
	s.store.SetOwnedGames(model.GameLibrary{1: {AppID: 1}})
	s.store.SetCommonGames([]model.OwnedGame{{AppID: 1}})

	s.store.ClearAuth()

	s.False(s.store.IsLoggedIn())
	s.Empty(s.store.Token())
	s.Nil(s.store.UserProfile())
	s.Empty(s.store.OwnedGames())
	s.Len(s.store.Friends(), 1)
	s.Len(s.store.CommonGames(), 1)
}

func (s *StoreSuite) TestResetClearsEverything() {
	s.store.SetToken("tok")
	s.store.SetFriends([]model.Friend{{SteamID: "2", Username: "bob"}})
	s.store.SetCommonGames([]model.OwnedGame{{AppID: 1}})
	s.store.ToggleFriend("2")

	s.store.Reset()

	snap := s.store.Snapshot()
	s.False(snap.IsLoggedIn)
	s.Empty(snap.Friends)
	s.Empty(snap.CommonGames)
	s.Zero(snap.Selection.Len())
}

func (s *StoreSuite) TestSetFriendsSorts() {
	s.store.SetFriends([]model.Friend{
		{SteamID: "1", Username: "zed"},
		{SteamID: "2", Username: "Amy"},
	})

	friends := s.store.Friends()
	s.Equal("Amy", friends[0].Username)
	s.Equal("zed", friends[1].Username)
}

func (s *StoreSuite) TestReadersReturnCopies() {
	s.store.SetOwnedGames(model.GameLibrary{1: {AppID: 1, Name: "a"}})
	s.store.SetUserProfile(&model.UserProfile{ID: "1"})

	lib := s.store.OwnedGames()
	lib[2] = model.OwnedGame{AppID: 2}
	profile := s.store.UserProfile()
	profile.ID = "changed"

	s.Equal(1, s.store.OwnedGames().Len())
	s.Equal(model.SteamID("1"), s.store.UserProfile().ID)
}

func (s *StoreSuite) TestToggleFriend() {
	s.store.ToggleFriend("a")
	s.store.ToggleFriend("b")
	s.store.ToggleFriend("a")

	s.Equal([]model.SteamID{"b"}, s.store.Selection().IDs())
}

// Subscription tests

func (s *StoreSuite) TestSubscribeToSlice() {
	rec := &recorder{}
	s.store.Subscribe(rec.listen, SliceFriends)

	s.store.SetToken("tok")
	s.store.SetFriends(nil)

	s.Require().Len(rec.changes, 1)
	s.True(rec.changes[0].Affects(SliceFriends))
}

func (s *StoreSuite) TestSubscribeToEverything() {
	rec := &recorder{}
	s.store.Subscribe(rec.listen)

	s.store.SetToken("tok")
	s.store.SetCommonGames(nil)
	s.store.ClearAuth()

	s.Require().Len(rec.changes, 3)
	s.True(rec.changes[2].Affects(SliceAuth))
	s.True(rec.changes[2].Affects(SliceProfile))
	s.True(rec.changes[2].Affects(SliceOwnedGames))
	s.False(rec.changes[2].Affects(SliceFriends))
}

func (s *StoreSuite) TestUnsubscribe() {
	rec := &recorder{}
	unsubscribe := s.store.Subscribe(rec.listen)

	s.store.SetToken("tok")
	unsubscribe()
	s.store.SetToken("tok2")

	s.Len(rec.changes, 1)
}

func (s *StoreSuite) TestListenerSeesAppliedValue() {
	var seen string
	s.store.Subscribe(func(Change) {
		seen = s.store.Token()
	}, SliceAuth)

	s.store.SetToken("tok")

	s.Equal("tok", seen)
}

func (s *StoreSuite) TestListenerMaySetStore() {
	s.store.Subscribe(func(Change) {
		s.store.SetCommonGames(nil)
	}, SliceSelection)

	s.NotPanics(func() {
		s.store.ToggleFriend("a")
	})
}
