package steamapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/mcoot/letsplay/internal/model"
)

// DefaultTimeout bounds each HTTP request
const DefaultTimeout = 30 * time.Second

// TokenFunc reads the current session token at request time.
// An empty token means the user is not logged in.
type TokenFunc func() string

// Token implements oauth2.TokenSource
func (f TokenFunc) Token() (*oauth2.Token, error) {
	token := f()
	if token == "" {
		return nil, model.ErrAuthMissing
	}
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}

// StaticToken returns a TokenSource for a fixed token
func StaticToken(token string) oauth2.TokenSource {
	if token == "" {
		return TokenFunc(func() string { return "" })
	}
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
}

// Config holds client settings
type Config struct {
	BaseURL string
	Timeout time.Duration
	// Transport is the underlying round tripper; nil uses http.DefaultTransport
	Transport http.RoundTripper
}

// Client talks to the Steam-proxy backend
type Client struct {
	baseURL    string
	tokens     oauth2.TokenSource
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a client. The bearer header is attached from tokens on every
// request.
func New(cfg Config, tokens oauth2.TokenSource, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &oauth2.Transport{
				Source: tokens,
				Base:   cfg.Transport,
			},
		},
		logger: logger.With(slog.String("component", "steamapi")),
	}
}

// BaseURL returns the backend base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// LoginURL is where the user starts Steam login in a browser. When returnTo
// is set the backend redirects there instead of its configured frontend.
func (c *Client) LoginURL(returnTo string) string {
	u := c.baseURL + "/auth/steam"
	if returnTo == "" {
		return u
	}
	return u + "?" + url.Values{"return_to": {returnTo}}.Encode()
}

// Me fetches the logged-in user's profile
func (c *Client) Me(ctx context.Context) (*model.UserProfile, error) {
	var resp meResponse
	if err := c.do(ctx, http.MethodGet, "/steam/me", nil, &resp); err != nil {
		return nil, err
	}
	return resp.toProfile(), nil
}

// Friends fetches the user's friend list in backend order
func (c *Client) Friends(ctx context.Context) ([]model.Friend, error) {
	var friends []model.Friend
	if err := c.do(ctx, http.MethodGet, "/steam/friends", nil, &friends); err != nil {
		return nil, err
	}
	if friends == nil {
		friends = []model.Friend{}
	}
	return friends, nil
}

// OwnedGames fetches the user's library. The inner appid of each game is
// authoritative; the map key fills it in when absent.
func (c *Client) OwnedGames(ctx context.Context) (model.GameLibrary, error) {
	var resp ownedGamesResponse
	if err := c.do(ctx, http.MethodGet, "/steam/owned_games", nil, &resp); err != nil {
		return nil, err
	}

	library := make(model.GameLibrary, len(resp.Games))
	for key, game := range resp.Games {
		if game.AppID == 0 {
			id, err := model.ParseAppID(key)
			if err != nil {
				c.logger.Warn("skipping game with unusable appid", slog.String("key", key))
				continue
			}
			game.AppID = id
		}
		library[game.AppID] = game
	}

	if resp.GameCount != len(library) {
		c.logger.Debug("game count mismatch",
			slog.Int("reported", resp.GameCount),
			slog.Int("received", len(library)))
	}
	return library, nil
}

// FriendsGames fetches the libraries of the given friends, keyed by SteamID
func (c *Client) FriendsGames(ctx context.Context, ids []model.SteamID) (map[model.SteamID][]model.OwnedGame, error) {
	if ids == nil {
		ids = []model.SteamID{}
	}

	var resp friendsGamesResponse
	if err := c.do(ctx, http.MethodPost, "/steam/friends/games", friendsGamesRequest{SteamIDs: ids}, &resp); err != nil {
		return nil, err
	}
	if resp.Games == nil {
		resp.Games = map[model.SteamID][]model.OwnedGame{}
	}
	return resp.Games, nil
}

// do performs an authenticated request and decodes the JSON response
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	op := method + " " + path

	// Fail fast without a round trip when logged out
	if _, err := c.tokens.Token(); err != nil {
		return err
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, model.ErrAuthMissing) {
			return model.ErrAuthMissing
		}
		return &model.NetworkError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &model.NetworkError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	c.logger.Debug("request completed",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		netErr := &model.NetworkError{Op: op, StatusCode: resp.StatusCode}
		var errResp ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Code != "" {
			netErr.Code = errResp.Error.Code
			netErr.Message = errResp.Error.Message
		} else {
			netErr.Message = strings.TrimSpace(string(respBody))
		}
		return netErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return &model.NetworkError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to parse response: %w", err)}
		}
	}

	return nil
}
