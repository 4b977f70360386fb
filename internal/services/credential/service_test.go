package credential

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/letsplay/internal/dependencies/mocks"
	"github.com/mcoot/letsplay/internal/model"
	"github.com/mcoot/letsplay/internal/state"
	"github.com/mcoot/letsplay/internal/storage/memory"
	"github.com/mcoot/letsplay/internal/testutil"
)

var errDiskFull = errors.New("disk full")

// failingStorage rejects credential writes
type failingStorage struct {
	*memory.Storage
}

func (f failingStorage) SaveCredential(context.Context, *model.Credential) error {
	return errDiskFull
}

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	state   *state.Store
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.state = state.New()
	s.service = New(s.storage, s.state, s.clock, testutil.NopLogger())
	s.ctx = context.Background()
}

// restart simulates a new process sharing the same storage
func (s *ServiceSuite) restart() *Service {
	s.state = state.New()
	s.service = New(s.storage, s.state, s.clock, testutil.NopLogger())
	s.Require().NoError(s.service.Load(s.ctx))
	return s.service
}

// SetCredential tests

func (s *ServiceSuite) TestSetCredentialLogsIn() {
	err := s.service.SetCredential(s.ctx, "abc")
	s.Require().NoError(err)

	s.True(s.service.IsLoggedIn())
	s.Equal("abc", s.service.Token())
}

func (s *ServiceSuite) TestSetCredentialPersists() {
	_ = s.service.SetCredential(s.ctx, "abc")

	cred, err := s.storage.GetCredential(s.ctx)
	s.Require().NoError(err)
	s.Equal("abc", cred.Token)
	s.True(cred.IsLoggedIn)
	s.Equal(s.clock.Now(), cred.UpdatedAt)
}

func (s *ServiceSuite) TestSetCredentialSurvivesRestart() {
	_ = s.service.SetCredential(s.ctx, "abc")

	restarted := s.restart()

	s.True(restarted.IsLoggedIn())
	s.Equal("abc", restarted.Token())
}

func (s *ServiceSuite) TestSetCredentialEmptyTokenFails() {
	_ = s.service.SetCredential(s.ctx, "abc")

	err := s.service.SetCredential(s.ctx, "")

	s.ErrorIs(err, model.ErrLoginFailed)
	s.False(s.service.IsLoggedIn())
	_, err = s.storage.GetCredential(s.ctx)
	s.ErrorIs(err, model.ErrCredentialNotFound)
}

func (s *ServiceSuite) TestSetCredentialStorageFailureLeavesStateAlone() {
	svc := New(failingStorage{s.storage}, s.state, s.clock, testutil.NopLogger())

	err := svc.SetCredential(s.ctx, "abc")

	s.ErrorIs(err, errDiskFull)
	s.False(s.state.IsLoggedIn())
	s.Empty(s.state.Token())
}

// Load tests

func (s *ServiceSuite) TestLoadWithoutCredentialIsLoggedOut() {
	err := s.service.Load(s.ctx)

	s.Require().NoError(err)
	s.False(s.service.IsLoggedIn())
}

func (s *ServiceSuite) TestLoadDiscardsFlagWithoutToken() {
	_ = s.storage.SaveCredential(s.ctx, &model.Credential{IsLoggedIn: true})

	err := s.service.Load(s.ctx)

	s.Require().NoError(err)
	s.False(s.service.IsLoggedIn())
	_, err = s.storage.GetCredential(s.ctx)
	s.ErrorIs(err, model.ErrCredentialNotFound)
}

func (s *ServiceSuite) TestLoadDiscardsTokenWithoutFlag() {
	_ = s.storage.SaveCredential(s.ctx, &model.Credential{Token: "abc"})

	err := s.service.Load(s.ctx)

	s.Require().NoError(err)
	s.Empty(s.service.Token())
}

// ClearCredential tests

func (s *ServiceSuite) TestClearCredentialLogsOut() {
	_ = s.service.SetCredential(s.ctx, "abc")
	s.state.SetUserProfile(&model.UserProfile{ID: "1"})
	s.state.SetFriends([]model.Friend{{SteamID: "2", Username: "bob"}})

	err := s.service.ClearCredential(s.ctx)
	s.Require().NoError(err)

	s.False(s.service.IsLoggedIn())
	s.Nil(s.state.UserProfile())
	s.Len(s.state.Friends(), 1, "friends survive logout")

	restarted := s.restart()
	s.False(restarted.IsLoggedIn())
}

func (s *ServiceSuite) TestClearCredentialRunsHooksBeforeClearing() {
	_ = s.service.SetCredential(s.ctx, "abc")

	var order []string
	s.service.OnClear(func(context.Context) {
		order = append(order, "first")
		s.True(s.state.IsLoggedIn(), "hooks run while still logged in")
	})
	s.service.OnClear(func(context.Context) {
		order = append(order, "second")
	})

	_ = s.service.ClearCredential(s.ctx)

	s.Equal([]string{"first", "second"}, order)
}

// Login redirect tests

func (s *ServiceSuite) TestCompleteLogin() {
	err := s.service.CompleteLogin(s.ctx, "from-redirect")

	s.Require().NoError(err)
	s.Equal("from-redirect", s.service.Token())
}

func (s *ServiceSuite) TestFailLoginClearsCredential() {
	_ = s.service.SetCredential(s.ctx, "abc")

	err := s.service.FailLogin(s.ctx)

	s.ErrorIs(err, model.ErrLoginFailed)
	s.False(s.service.IsLoggedIn())
}

// Claims tests

func (s *ServiceSuite) TestClaimsFromJWT() {
	expires := s.clock.Now().Add(time.Hour).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "76561198000000001",
		Issuer:    "lets-play",
		ExpiresAt: jwt.NewNumericDate(expires),
	}).SignedString([]byte("secret"))
	s.Require().NoError(err)
	_ = s.service.SetCredential(s.ctx, token)

	claims, ok := s.service.Claims()

	s.Require().True(ok)
	s.Equal("76561198000000001", claims.Subject)
	s.Equal("lets-play", claims.Issuer)
	s.True(claims.ExpiresAt.Equal(expires))
	s.False(claims.Expired)

	s.clock.Advance(2 * time.Hour)
	claims, _ = s.service.Claims()
	s.True(claims.Expired)
}

func (s *ServiceSuite) TestClaimsOpaqueToken() {
	_ = s.service.SetCredential(s.ctx, "not-a-jwt")

	_, ok := s.service.Claims()

	s.False(ok)
}

func (s *ServiceSuite) TestClaimsLoggedOut() {
	_, ok := s.service.Claims()

	s.False(ok)
}
