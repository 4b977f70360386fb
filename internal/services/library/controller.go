package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mcoot/letsplay/internal/dependencies/clock"
	"github.com/mcoot/letsplay/internal/model"
	"github.com/mcoot/letsplay/internal/services/credential"
	"github.com/mcoot/letsplay/internal/services/fetch"
	"github.com/mcoot/letsplay/internal/services/intersection"
	"github.com/mcoot/letsplay/internal/state"
	"github.com/mcoot/letsplay/internal/storage"
)

// Cache keys
const (
	KeyProfile     = "profile"
	KeyFriends     = "friends"
	KeyOwnedGames  = "owned_games"
	KeyCommonGames = "common_games"
)

// SteamAPI is the subset of the backend client the controller uses
type SteamAPI interface {
	Me(ctx context.Context) (*model.UserProfile, error)
	Friends(ctx context.Context) ([]model.Friend, error)
	OwnedGames(ctx context.Context) (model.GameLibrary, error)
	FriendsGames(ctx context.Context, ids []model.SteamID) (map[model.SteamID][]model.OwnedGame, error)
}

// Config holds controller settings
type Config struct {
	StaleTime time.Duration
	Timeout   time.Duration
}

// CommonGame is a game everyone selected owns, with the user's own playtime
type CommonGame struct {
	AppID       model.AppID `json:"appid"`
	Name        string      `json:"name"`
	IconURL     string      `json:"icon_url,omitempty"`
	HoursPlayed int         `json:"hours_played"`
	Owned       bool        `json:"owned"`
}

type commonRequest struct {
	ids         []model.SteamID
	includeSelf bool
}

// Controller wires the remote queries to the state store and implements the
// friend selection and common games workflow
type Controller struct {
	api         SteamAPI
	state       *state.Store
	credentials *credential.Service
	logger      *slog.Logger

	profile    *fetch.Query[*model.UserProfile]
	friends    *fetch.Query[[]model.Friend]
	ownedGames *fetch.Query[model.GameLibrary]
	common     *fetch.Mutation[commonRequest, []model.OwnedGame]
}

// NewController creates a controller and registers its fetch cancellation
// with the credential service so logout stops every in-flight request
func NewController(
	api SteamAPI,
	st *state.Store,
	credentials *credential.Service,
	store storage.Storage,
	clk clock.Clock,
	cfg Config,
	logger *slog.Logger,
) *Controller {
	opts := fetch.Options{
		StaleTime: cfg.StaleTime,
		Timeout:   cfg.Timeout,
		Enabled:   st.IsLoggedIn,
		Storage:   store,
		Clock:     clk,
		Logger:    logger,
	}

	c := &Controller{
		api:         api,
		state:       st,
		credentials: credentials,
		logger:      logger.With(slog.String("component", "library")),
	}

	c.profile = fetch.NewQuery(KeyProfile, api.Me, st.SetUserProfile, opts)
	c.friends = fetch.NewQuery(KeyFriends, api.Friends, st.SetFriends, opts)
	c.ownedGames = fetch.NewQuery(KeyOwnedGames, api.OwnedGames, st.SetOwnedGames, opts)

	// Common games are never cached
	mutationOpts := opts
	mutationOpts.Storage = nil
	c.common = fetch.NewMutation(KeyCommonGames, c.fetchCommon, st.SetCommonGames, mutationOpts)

	credentials.OnClear(c.cancelSession)
	return c
}

// Remote data

// LoadProfile returns the user's profile, from cache while fresh
func (c *Controller) LoadProfile(ctx context.Context) (*model.UserProfile, error) {
	if _, err := c.profile.Get(ctx); err != nil {
		return c.state.UserProfile(), err
	}
	return c.state.UserProfile(), nil
}

// LoadFriends returns the friend list sorted by username, from cache while fresh
func (c *Controller) LoadFriends(ctx context.Context) ([]model.Friend, error) {
	if _, err := c.friends.Get(ctx); err != nil {
		return c.state.Friends(), err
	}
	return c.state.Friends(), nil
}

// RefetchFriends reloads the friend list regardless of freshness
func (c *Controller) RefetchFriends(ctx context.Context) ([]model.Friend, error) {
	if _, err := c.friends.Refetch(ctx); err != nil {
		return c.state.Friends(), err
	}
	return c.state.Friends(), nil
}

// LoadOwnedGames returns the user's library, from cache while fresh
func (c *Controller) LoadOwnedGames(ctx context.Context) (model.GameLibrary, error) {
	if _, err := c.ownedGames.Get(ctx); err != nil {
		return c.state.OwnedGames(), err
	}
	return c.state.OwnedGames(), nil
}

// RefetchOwnedGames reloads the user's library regardless of freshness
func (c *Controller) RefetchOwnedGames(ctx context.Context) (model.GameLibrary, error) {
	if _, err := c.ownedGames.Refetch(ctx); err != nil {
		return c.state.OwnedGames(), err
	}
	return c.state.OwnedGames(), nil
}

// LoadAll loads profile, friends and owned games concurrently. Every load
// runs to completion; the first error is returned.
func (c *Controller) LoadAll(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error {
		_, err := c.LoadProfile(ctx)
		return err
	})
	g.Go(func() error {
		_, err := c.LoadFriends(ctx)
		return err
	})
	g.Go(func() error {
		_, err := c.LoadOwnedGames(ctx)
		return err
	})
	return g.Wait()
}

// InvalidateAll marks every cached value stale, e.g. after a new login
func (c *Controller) InvalidateAll(ctx context.Context) error {
	return errors.Join(
		c.profile.Invalidate(ctx),
		c.friends.Invalidate(ctx),
		c.ownedGames.Invalidate(ctx),
	)
}

// ClearCache drops every cached value, in memory and in storage, without
// touching the credential or the client state
func (c *Controller) ClearCache(ctx context.Context) error {
	return errors.Join(
		c.profile.Reset(ctx),
		c.friends.Reset(ctx),
		c.ownedGames.Reset(ctx),
	)
}

// CacheStatus reports the state of each cached query
func (c *Controller) CacheStatus(ctx context.Context) []fetch.Status {
	return []fetch.Status{
		c.profile.Status(ctx),
		c.friends.Status(ctx),
		c.ownedGames.Status(ctx),
	}
}

// Selection

// ToggleFriend adds or removes a friend from the selection. Once the friend
// list is loaded only friends on it can be selected.
func (c *Controller) ToggleFriend(id model.SteamID) error {
	friends := c.state.Friends()
	if len(friends) > 0 {
		if _, ok := model.FindFriend(friends, string(id)); !ok {
			return fmt.Errorf("%w: %s", model.ErrUnknownFriend, id)
		}
	}
	c.state.ToggleFriend(id)
	return nil
}

// SelectFriends replaces the selection with the friends named by refs, each a
// SteamID or a username
func (c *Controller) SelectFriends(refs []string) error {
	friends := c.state.Friends()

	ids := make([]model.SteamID, 0, len(refs))
	for _, ref := range refs {
		f, ok := model.FindFriend(friends, ref)
		if !ok {
			return fmt.Errorf("%w: %s", model.ErrUnknownFriend, ref)
		}
		ids = append(ids, f.SteamID)
	}

	c.state.SetSelection(model.NewSelection(ids...))
	return nil
}

// ClearSelection deselects every friend
func (c *Controller) ClearSelection() {
	c.state.SetSelection(model.Selection{})
}

// SearchFriends filters the loaded friend list by username
func (c *Controller) SearchFriends(query string) []model.Friend {
	return model.FilterFriends(c.state.Friends(), query)
}

// Common games

// FindCommonGames requests the selected friends' libraries and stores the
// games all of them own. With includeSelf the user's own library is one more
// party to the intersection.
func (c *Controller) FindCommonGames(ctx context.Context, includeSelf bool) ([]model.OwnedGame, error) {
	sel := c.state.Selection()
	if sel.Len() == 0 {
		return nil, model.ErrNoFriendsSelected
	}

	if includeSelf {
		if _, err := c.LoadOwnedGames(ctx); err != nil && c.state.OwnedGames().Len() == 0 {
			return nil, fmt.Errorf("failed to load own library: %w", err)
		}
	}

	return c.common.Run(ctx, commonRequest{ids: sel.IDs(), includeSelf: includeSelf})
}

func (c *Controller) fetchCommon(ctx context.Context, req commonRequest) ([]model.OwnedGame, error) {
	perFriend, err := c.api.FriendsGames(ctx, req.ids)
	if err != nil {
		return nil, err
	}

	if missing := len(req.ids) - len(perFriend); missing > 0 {
		c.logger.Debug("some selected friends returned no library", slog.Int("missing", missing))
	}

	return intersection.ComputeCommonWithOwn(perFriend, c.state.OwnedGames(), req.includeSelf), nil
}

// CommonGameViews decorates the last common games result with the user's own
// playtime
func (c *Controller) CommonGameViews() []CommonGame {
	own := c.state.OwnedGames()
	common := c.state.CommonGames()

	views := make([]CommonGame, 0, len(common))
	for _, g := range common {
		view := CommonGame{
			AppID:   g.AppID,
			Name:    g.Name,
			IconURL: g.IconURL(),
		}
		if mine, ok := own.Get(g.AppID); ok {
			view.Owned = true
			view.HoursPlayed = mine.HoursForever()
			if view.IconURL == "" {
				view.IconURL = mine.IconURL()
			}
		}
		views = append(views, view)
	}
	return views
}

// Session

// Logout clears the credential. Profile and owned games are dropped along
// with it; the friend list stays cached unless forget is set, in which case
// every cached value and all client state is removed.
func (c *Controller) Logout(ctx context.Context, forget bool) error {
	err := c.credentials.ClearCredential(ctx)

	if forget {
		if resetErr := c.friends.Reset(ctx); resetErr != nil {
			err = errors.Join(err, resetErr)
		}
		c.state.Reset()
	}
	return err
}

// cancelSession runs before the credential is cleared
func (c *Controller) cancelSession(ctx context.Context) {
	c.common.Cancel()
	c.friends.Cancel()
	if err := c.profile.Reset(ctx); err != nil {
		c.logger.Warn("failed to reset profile cache", slog.String("error", err.Error()))
	}
	if err := c.ownedGames.Reset(ctx); err != nil {
		c.logger.Warn("failed to reset owned games cache", slog.String("error", err.Error()))
	}
}
