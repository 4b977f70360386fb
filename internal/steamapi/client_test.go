package steamapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/letsplay/internal/model"
	"github.com/mcoot/letsplay/internal/testutil"
)

const testToken = "session-token"

type ClientSuite struct {
	suite.Suite
	backend *testutil.FakeSteam
	client  *Client
	ctx     context.Context
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.backend = testutil.NewFakeSteam(s.T(), testToken)
	s.client = New(Config{BaseURL: s.backend.URL() + "/"}, StaticToken(testToken), testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *ClientSuite) TestMe() {
	s.backend.SetProfile(model.UserProfile{
		ID:         "76561198000000001",
		Username:   "gaben",
		AvatarURL:  "https://avatars/gaben.jpg",
		ProfileURL: "https://steamcommunity.com/id/gaben",
	})

	profile, err := s.client.Me(s.ctx)

	s.Require().NoError(err)
	s.Equal(model.SteamID("76561198000000001"), profile.ID)
	s.Equal("gaben", profile.Username)
	s.Equal("https://avatars/gaben.jpg", profile.AvatarURL)
}

func (s *ClientSuite) TestFriendsKeepsBackendOrder() {
	s.backend.SetFriends(
		model.Friend{SteamID: "2", Username: "bob"},
		model.Friend{SteamID: "1", Username: "alice"},
	)

	friends, err := s.client.Friends(s.ctx)

	s.Require().NoError(err)
	s.Require().Len(friends, 2)
	s.Equal("bob", friends[0].Username)
}

func (s *ClientSuite) TestFriendsEmpty() {
	friends, err := s.client.Friends(s.ctx)

	s.Require().NoError(err)
	s.NotNil(friends)
	s.Empty(friends)
}

func (s *ClientSuite) TestOwnedGames() {
	s.backend.SetOwnedGames(
		model.OwnedGame{AppID: 570, Name: "Dota 2", PlaytimeForever: 600},
		model.OwnedGame{AppID: 730, Name: "CS2"},
	)

	library, err := s.client.OwnedGames(s.ctx)

	s.Require().NoError(err)
	s.Equal(2, library.Len())
	game, ok := library.Get(570)
	s.Require().True(ok)
	s.Equal(10, game.HoursForever())
}

func (s *ClientSuite) TestFriendsGames() {
	s.backend.SetLibrary("A", model.OwnedGame{AppID: 1, Name: "X"})
	s.backend.SetLibrary("B", model.OwnedGame{AppID: 1, Name: "X"}, model.OwnedGame{AppID: 2, Name: "Y"})

	games, err := s.client.FriendsGames(s.ctx, []model.SteamID{"A", "B"})

	s.Require().NoError(err)
	s.Len(games, 2)
	s.Len(games["B"], 2)
	s.Equal([]model.SteamID{"A", "B"}, s.backend.LastRequestedIDs())
}

func (s *ClientSuite) TestMissingTokenSkipsNetwork() {
	client := New(Config{BaseURL: s.backend.URL()}, TokenFunc(func() string { return "" }), testutil.NopLogger())

	_, err := client.Me(s.ctx)

	s.ErrorIs(err, model.ErrAuthMissing)
	s.Zero(s.backend.Calls(testutil.PathMe))
}

func (s *ClientSuite) TestTokenReadAtRequestTime() {
	var token atomic.Value
	token.Store("")
	client := New(Config{BaseURL: s.backend.URL()}, TokenFunc(func() string { return token.Load().(string) }), testutil.NopLogger())

	_, err := client.Friends(s.ctx)
	s.ErrorIs(err, model.ErrAuthMissing)

	token.Store(testToken)
	_, err = client.Friends(s.ctx)
	s.NoError(err)
}

func (s *ClientSuite) TestWrongTokenIsNetworkError() {
	client := New(Config{BaseURL: s.backend.URL()}, StaticToken("wrong"), testutil.NopLogger())

	_, err := client.Me(s.ctx)

	var netErr *model.NetworkError
	s.Require().ErrorAs(err, &netErr)
	s.Equal(http.StatusUnauthorized, netErr.StatusCode)
	s.Equal("UNAUTHORIZED", netErr.Code)
}

func (s *ClientSuite) TestServerErrorIsNetworkError() {
	s.backend.SetFailure(testutil.PathFriends, http.StatusBadGateway)

	_, err := s.client.Friends(s.ctx)

	var netErr *model.NetworkError
	s.Require().ErrorAs(err, &netErr)
	s.Equal(http.StatusBadGateway, netErr.StatusCode)
	s.Equal("GET /steam/friends", netErr.Op)
}

func (s *ClientSuite) TestTransportFailureIsNetworkError() {
	client := New(Config{BaseURL: "http://127.0.0.1:1"}, StaticToken(testToken), testutil.NopLogger())

	_, err := client.Me(s.ctx)

	s.True(model.IsNetworkError(err))
}

func (s *ClientSuite) TestLoginURL() {
	client := New(Config{BaseURL: "https://api.example.com/"}, StaticToken(""), testutil.NopLogger())

	s.Equal("https://api.example.com/auth/steam", client.LoginURL(""))
	s.Equal("https://api.example.com/auth/steam?return_to=http%3A%2F%2F127.0.0.1%3A4000",
		client.LoginURL("http://127.0.0.1:4000"))
}

func TestOwnedGamesReconcilesAppIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"game_count": 3,
			"games": {
				"570": {"appid": "570", "name": "Dota 2"},
				"730": {"name": "CS2"},
				"bogus": {"name": "Broken"}
			}
		}`))
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL}, StaticToken(testToken), testutil.NopLogger())
	library, err := client.OwnedGames(context.Background())
	if err != nil {
		t.Fatalf("OwnedGames: %v", err)
	}

	if library.Len() != 2 {
		t.Fatalf("expected 2 games, got %d", library.Len())
	}
	if g, ok := library.Get(730); !ok || g.AppID != 730 {
		t.Errorf("expected appid from map key, got %+v", g)
	}
	if g, ok := library.Get(570); !ok || g.Name != "Dota 2" {
		t.Errorf("expected Dota 2 under 570, got %+v", g)
	}
}
