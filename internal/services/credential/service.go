package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mcoot/letsplay/internal/dependencies/clock"
	"github.com/mcoot/letsplay/internal/model"
	"github.com/mcoot/letsplay/internal/state"
	"github.com/mcoot/letsplay/internal/storage"
)

// ClearHook runs before the credential is cleared
type ClearHook func(ctx context.Context)

// Claims is what the token says about itself. It is decoded without
// verification and is for display only.
type Claims struct {
	Subject   string    `json:"subject,omitempty"`
	Issuer    string    `json:"issuer,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
	Expired   bool      `json:"expired"`
}

// Service owns the session token: it persists it, mirrors it into the state
// store and tears dependent work down on logout
type Service struct {
	storage storage.Storage
	state   *state.Store
	clock   clock.Clock
	logger  *slog.Logger

	mu    sync.Mutex
	hooks []ClearHook
}

// New creates a credential service
func New(storage storage.Storage, st *state.Store, clock clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		state:   st,
		clock:   clock,
		logger:  logger.With(slog.String("component", "credential")),
	}
}

// OnClear registers a hook run at the start of every ClearCredential.
// Hooks run in registration order.
func (s *Service) OnClear(hook ClearHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// Load restores the persisted credential into the state store. A missing
// record leaves the user logged out; an inconsistent one is deleted.
func (s *Service) Load(ctx context.Context) error {
	cred, err := s.storage.GetCredential(ctx)
	if err != nil {
		if errors.Is(err, model.ErrCredentialNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load credential: %w", err)
	}

	if !cred.Valid() {
		s.logger.Warn("discarding inconsistent credential",
			slog.Bool("has_token", cred.Token != ""),
			slog.Bool("is_logged_in", cred.IsLoggedIn))
		if err := s.storage.DeleteCredential(ctx); err != nil {
			return fmt.Errorf("failed to delete credential: %w", err)
		}
		return nil
	}

	s.state.SetToken(cred.Token)
	return nil
}

// SetCredential persists token and marks the user logged in. The state store
// is only updated once the token is durable. An empty token clears the
// credential and returns ErrLoginFailed.
func (s *Service) SetCredential(ctx context.Context, token string) error {
	if token == "" {
		if err := s.ClearCredential(ctx); err != nil {
			return errors.Join(model.ErrLoginFailed, err)
		}
		return model.ErrLoginFailed
	}

	if err := s.storage.SaveCredential(ctx, model.NewCredential(token, s.clock.Now())); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}

	s.state.SetToken(token)
	s.logger.Info("logged in")
	return nil
}

// ClearCredential logs out. Hooks run first so that no in-flight fetch can
// commit after the state is cleared. The in-memory state is cleared even if
// deleting the persisted record fails.
func (s *Service) ClearCredential(ctx context.Context) error {
	s.mu.Lock()
	hooks := append([]ClearHook(nil), s.hooks...)
	s.mu.Unlock()

	for _, hook := range hooks {
		hook(ctx)
	}

	err := s.storage.DeleteCredential(ctx)
	s.state.ClearAuth()

	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	s.logger.Info("logged out")
	return nil
}

// CompleteLogin consumes the token delivered by the login redirect
func (s *Service) CompleteLogin(ctx context.Context, token string) error {
	return s.SetCredential(ctx, token)
}

// FailLogin handles the login failure redirect
func (s *Service) FailLogin(ctx context.Context) error {
	s.logger.Warn("login failed")
	if err := s.ClearCredential(ctx); err != nil {
		return errors.Join(model.ErrLoginFailed, err)
	}
	return model.ErrLoginFailed
}

// Token returns the current token, or "" when logged out
func (s *Service) Token() string {
	return s.state.Token()
}

// IsLoggedIn reports whether a token is held
func (s *Service) IsLoggedIn() bool {
	return s.state.IsLoggedIn()
}

// Claims decodes the current token when it is a JWT. ok is false when logged
// out or when the token is opaque.
func (s *Service) Claims() (Claims, bool) {
	token := s.state.Token()
	if token == "" {
		return Claims{}, false
	}

	var registered jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &registered); err != nil {
		return Claims{}, false
	}

	claims := Claims{
		Subject: registered.Subject,
		Issuer:  registered.Issuer,
	}
	if registered.ExpiresAt != nil {
		claims.ExpiresAt = registered.ExpiresAt.Time
		claims.Expired = !s.clock.Now().Before(claims.ExpiresAt)
	}
	return claims, true
}
