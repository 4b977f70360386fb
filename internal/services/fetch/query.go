package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mcoot/letsplay/internal/dependencies/clock"
	"github.com/mcoot/letsplay/internal/model"
	"github.com/mcoot/letsplay/internal/storage"
)

const (
	// DefaultStaleTime is how long a successful result is served without refetching
	DefaultStaleTime = 20 * time.Minute
	// DefaultTimeout bounds a single request
	DefaultTimeout = 30 * time.Second
)

// Options configures a Query or Mutation
type Options struct {
	// StaleTime is the freshness window. Zero means DefaultStaleTime.
	StaleTime time.Duration
	// Timeout bounds each request. Zero means DefaultTimeout.
	Timeout time.Duration
	// Enabled gates execution; nil means always enabled
	Enabled func() bool
	// Storage persists results across restarts (optional)
	Storage storage.Storage
	Clock   clock.Clock
	Logger  *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.StaleTime == 0 {
		o.StaleTime = DefaultStaleTime
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Enabled == nil {
		o.Enabled = func() bool { return true }
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return o
}

// Status describes a query's cache
type Status struct {
	Key        string    `json:"key"`
	HasData    bool      `json:"has_data"`
	FetchedAt  time.Time `json:"fetched_at"`
	Fresh      bool      `json:"fresh"`
	InFlight   bool      `json:"in_flight"`
	Generation uint64    `json:"generation"`
}

// Query is a cached, gated, coalescing read of one remote value.
//
// Every request initiation takes a new generation. A completed request only
// reaches the commit func if its generation is still the latest one and the
// query has not been cancelled since, so a slow response can never overwrite
// a newer one. Commit runs under the query's commit lock: listeners reached
// from it must not call back into the same query synchronously.
type Query[T any] struct {
	key    string
	fetch  func(ctx context.Context) (T, error)
	commit func(T)
	opts   Options
	logger *slog.Logger

	group singleflight.Group

	mu         sync.Mutex
	value      T
	hasValue   bool
	fetchedAt  time.Time
	loaded     bool
	generation uint64
	inFlight   int

	commitMu sync.Mutex
}

// NewQuery creates a query. commit receives every accepted result, whether
// freshly fetched or served from cache.
func NewQuery[T any](key string, fetch func(ctx context.Context) (T, error), commit func(T), opts Options) *Query[T] {
	opts = opts.withDefaults()
	return &Query[T]{
		key:    key,
		fetch:  fetch,
		commit: commit,
		opts:   opts,
		logger: opts.Logger.With(slog.String("component", "fetch"), slog.String("key", key)),
	}
}

// Key returns the cache key
func (q *Query[T]) Key() string {
	return q.key
}

// Get returns the cached value while it is fresh and fetches otherwise.
// A stale cached value is committed before the refetch starts, and is
// returned alongside the error if the refetch fails.
func (q *Query[T]) Get(ctx context.Context) (T, error) {
	var zero T
	if !q.opts.Enabled() {
		return zero, model.ErrAuthMissing
	}

	q.loadPersisted(ctx)

	q.mu.Lock()
	cached, hasValue, fresh, gen := q.value, q.hasValue, q.isFreshLocked(), q.generation
	q.mu.Unlock()

	if hasValue {
		// A newer request already owns the state; the cached value is
		// still a valid answer for this caller
		if err := q.deliver(gen, cached, false); err != nil {
			if errors.Is(err, model.ErrSuperseded) && q.opts.Enabled() {
				return cached, nil
			}
			return zero, err
		}
		if fresh {
			q.logger.Debug("serving cached value")
			return cached, nil
		}
	}

	v, err := q.run(ctx)
	if err != nil && hasValue && !errors.Is(err, model.ErrSuperseded) {
		return cached, err
	}
	return v, err
}

// Refetch fetches immediately, ignoring freshness. It joins a request that is
// already in flight instead of issuing a second one.
func (q *Query[T]) Refetch(ctx context.Context) (T, error) {
	var zero T
	if !q.opts.Enabled() {
		return zero, model.ErrAuthMissing
	}
	return q.run(ctx)
}

// Invalidate marks the cached value stale, including the persisted copy, and
// detaches any in-flight request so the next access starts a new generation
// that supersedes it. The stale value is kept for display until replaced.
func (q *Query[T]) Invalidate(ctx context.Context) error {
	q.loadPersisted(ctx)

	q.mu.Lock()
	q.fetchedAt = time.Time{}
	v, hasValue := q.value, q.hasValue
	q.mu.Unlock()
	q.group.Forget(q.key)

	if q.opts.Storage == nil || !hasValue {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode cached %s: %w", q.key, err)
	}
	if err := q.opts.Storage.SaveCacheEntry(ctx, q.key, &storage.CacheEntry{Data: data}); err != nil {
		return fmt.Errorf("failed to invalidate cached %s: %w", q.key, err)
	}
	return nil
}

// Cancel discards the results of in-flight requests. Once Cancel returns no
// earlier request can commit.
func (q *Query[T]) Cancel() {
	q.commitMu.Lock()
	defer q.commitMu.Unlock()

	q.mu.Lock()
	q.generation++
	q.mu.Unlock()
	q.group.Forget(q.key)
}

// Reset cancels in-flight requests and drops the cached value, including the
// persisted copy
func (q *Query[T]) Reset(ctx context.Context) error {
	q.Cancel()

	var zero T
	q.mu.Lock()
	q.value = zero
	q.hasValue = false
	q.fetchedAt = time.Time{}
	q.loaded = true
	q.mu.Unlock()

	if q.opts.Storage == nil {
		return nil
	}
	if err := q.opts.Storage.DeleteCacheEntry(ctx, q.key); err != nil {
		return fmt.Errorf("failed to drop cached %s: %w", q.key, err)
	}
	return nil
}

// Status reports the cache state
func (q *Query[T]) Status(ctx context.Context) Status {
	q.loadPersisted(ctx)

	q.mu.Lock()
	defer q.mu.Unlock()
	return Status{
		Key:        q.key,
		HasData:    q.hasValue,
		FetchedAt:  q.fetchedAt,
		Fresh:      q.isFreshLocked(),
		InFlight:   q.inFlight > 0,
		Generation: q.generation,
	}
}

// run performs a coalesced fetch, waiting on the caller's ctx
func (q *Query[T]) run(ctx context.Context) (T, error) {
	var zero T

	// The shared request must not die with whichever caller started it
	shared := context.WithoutCancel(ctx)
	ch := q.group.DoChan(q.key, func() (any, error) {
		return q.execute(shared)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (q *Query[T]) execute(ctx context.Context) (T, error) {
	var zero T

	q.mu.Lock()
	q.generation++
	gen := q.generation
	q.inFlight++
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.inFlight--
		q.mu.Unlock()
	}()

	logger := q.logger.With(slog.Uint64("generation", gen))
	logger.Debug("fetch started")

	fctx, cancel := context.WithTimeout(ctx, q.opts.Timeout)
	defer cancel()

	v, err := q.fetch(fctx)
	if err != nil {
		logger.Warn("fetch failed", slog.String("error", err.Error()))
		return zero, err
	}

	if err := q.deliver(gen, v, true); err != nil {
		return zero, err
	}
	logger.Debug("fetch committed")
	return v, nil
}

// deliver commits v if gen is still current. Fresh results also replace the
// cached value.
func (q *Query[T]) deliver(gen uint64, v T, fresh bool) error {
	q.commitMu.Lock()
	defer q.commitMu.Unlock()

	q.mu.Lock()
	if gen != q.generation || !q.opts.Enabled() {
		latest := q.generation
		q.mu.Unlock()
		q.logger.Debug("discarding superseded result",
			slog.Uint64("generation", gen),
			slog.Uint64("latest", latest))
		return model.ErrSuperseded
	}
	if fresh {
		q.value = v
		q.hasValue = true
		q.fetchedAt = q.opts.Clock.Now()
	}
	fetchedAt := q.fetchedAt
	q.mu.Unlock()

	if fresh {
		q.persist(v, fetchedAt)
	}
	q.commit(v)
	return nil
}

func (q *Query[T]) isFreshLocked() bool {
	return q.hasValue && !q.fetchedAt.IsZero() && q.opts.Clock.Since(q.fetchedAt) < q.opts.StaleTime
}

// loadPersisted reads the stored entry the first time the query is used
func (q *Query[T]) loadPersisted(ctx context.Context) {
	if q.opts.Storage == nil {
		return
	}

	q.mu.Lock()
	if q.loaded {
		q.mu.Unlock()
		return
	}
	q.loaded = true
	q.mu.Unlock()

	entry, err := q.opts.Storage.GetCacheEntry(ctx, q.key)
	if err != nil {
		if !errors.Is(err, model.ErrCacheEntryNotFound) {
			q.logger.Warn("failed to read cache entry", slog.String("error", err.Error()))
		}
		return
	}

	var v T
	if err := json.Unmarshal(entry.Data, &v); err != nil {
		q.logger.Warn("ignoring unreadable cache entry", slog.String("error", err.Error()))
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.hasValue {
		return
	}
	q.value = v
	q.hasValue = true
	q.fetchedAt = entry.FetchedAt
}

func (q *Query[T]) persist(v T, fetchedAt time.Time) {
	if q.opts.Storage == nil {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		q.logger.Warn("failed to encode cache entry", slog.String("error", err.Error()))
		return
	}

	// Persisting is best effort; the in-memory cache already holds the value
	entry := &storage.CacheEntry{Data: data, FetchedAt: fetchedAt}
	if err := q.opts.Storage.SaveCacheEntry(context.Background(), q.key, entry); err != nil {
		q.logger.Warn("failed to persist cache entry", slog.String("error", err.Error()))
	}
}
