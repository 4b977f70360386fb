package callback

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/letsplay/internal/model"
	"github.com/mcoot/letsplay/internal/testutil"
)

// recordingLogin records what the redirect delivered
type recordingLogin struct {
	mu       sync.Mutex
	tokens   []string
	failures int
	err      error
}

func (r *recordingLogin) CompleteLogin(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, token)
	if token == "" {
		return model.ErrLoginFailed
	}
	return r.err
}

func (r *recordingLogin) FailLogin(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures++
	return model.ErrLoginFailed
}

type ServerSuite struct {
	suite.Suite
	login  *recordingLogin
	server *Server
	ctx    context.Context
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func (s *ServerSuite) SetupTest() {
	s.ctx = context.Background()
	s.login = &recordingLogin{}
	s.server = NewServer(s.login, DefaultConfig(), testutil.NopLogger())
	s.Require().NoError(s.server.Start())
}

func (s *ServerSuite) TearDownTest() {
	_ = s.server.Shutdown(s.ctx)
}

func (s *ServerSuite) get(path string) (int, string) {
	resp, err := http.Get(s.server.URL() + path)
	s.Require().NoError(err)
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func (s *ServerSuite) wait() error {
	ctx, cancel := context.WithTimeout(s.ctx, 2*time.Second)
	defer cancel()
	return s.server.Wait(ctx)
}

func (s *ServerSuite) TestURLIsLoopback() {
	s.Regexp(`^http://127\.0\.0\.1:\d+$`, s.server.URL())
}

func (s *ServerSuite) TestLoginSuccess() {
	status, body := s.get("/login-success/abc123")

	s.Equal(http.StatusOK, status)
	s.Contains(body, "Logged in")
	s.NoError(s.wait())
	s.Equal([]string{"abc123"}, s.login.tokens)
}

func (s *ServerSuite) TestLoginSuccessWithEmptyToken() {
	status, _ := s.get("/login-success/")

	s.Equal(http.StatusUnauthorized, status)
	s.ErrorIs(s.wait(), model.ErrLoginFailed)
	s.Equal(1, s.login.failures)
}

func (s *ServerSuite) TestLoginFailed() {
	status, body := s.get("/login-failed")

	s.Equal(http.StatusUnauthorized, status)
	s.Contains(body, "Login failed")
	s.ErrorIs(s.wait(), model.ErrLoginFailed)
}

func (s *ServerSuite) TestTokenConsumedOnce() {
	_, _ = s.get("/login-success/first")
	status, _ := s.get("/login-success/second")

	s.Equal(http.StatusGone, status)
	s.NoError(s.wait())
	s.Equal([]string{"first"}, s.login.tokens)
}

func (s *ServerSuite) TestStorageFailureIsReported() {
	s.login.err = errors.New("disk full")

	status, _ := s.get("/login-success/abc")

	s.Equal(http.StatusInternalServerError, status)
	s.EqualError(s.wait(), "disk full")
}

func (s *ServerSuite) TestWaitTimesOut() {
	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Millisecond)
	defer cancel()

	err := s.server.Wait(ctx)

	s.ErrorIs(err, context.DeadlineExceeded)
}

func (s *ServerSuite) TestUnknownRoute() {
	status, _ := s.get("/somewhere-else")

	s.Equal(http.StatusNotFound, status)
	s.Empty(s.login.tokens)
}

func TestRedactToken(t *testing.T) {
	cases := map[string]string{
		"/login-success/secret": "/login-success/<redacted>",
		"/login-success/":       "/login-success/",
		"/login-failed":         "/login-failed",
	}
	for in, want := range cases {
		if got := redactToken(in); got != want {
			t.Errorf("redactToken(%q) = %q, want %q", in, got, want)
		}
	}
}
