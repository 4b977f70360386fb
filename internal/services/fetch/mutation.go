package fetch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mcoot/letsplay/internal/model"
)

// Mutation is an uncached request whose result is committed only if no newer
// run has been started and no cancellation has happened since it began.
type Mutation[In, Out any] struct {
	name   string
	do     func(ctx context.Context, in In) (Out, error)
	commit func(Out)
	opts   Options
	logger *slog.Logger

	mu         sync.Mutex
	generation uint64
	inFlight   int

	commitMu sync.Mutex
}

// NewMutation creates a mutation. StaleTime and Storage in opts are ignored.
func NewMutation[In, Out any](name string, do func(ctx context.Context, in In) (Out, error), commit func(Out), opts Options) *Mutation[In, Out] {
	opts = opts.withDefaults()
	return &Mutation[In, Out]{
		name:   name,
		do:     do,
		commit: commit,
		opts:   opts,
		logger: opts.Logger.With(slog.String("component", "fetch"), slog.String("mutation", name)),
	}
}

// Run executes the request and commits its result if it is still the latest.
// A result overtaken by a later Run or a Cancel returns ErrSuperseded.
func (m *Mutation[In, Out]) Run(ctx context.Context, in In) (Out, error) {
	var zero Out
	if !m.opts.Enabled() {
		return zero, model.ErrAuthMissing
	}

	m.mu.Lock()
	m.generation++
	gen := m.generation
	m.inFlight++
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	logger := m.logger.With(slog.Uint64("generation", gen))

	rctx, cancel := context.WithTimeout(ctx, m.opts.Timeout)
	defer cancel()

	out, err := m.do(rctx, in)
	if err != nil {
		logger.Warn("mutation failed", slog.String("error", err.Error()))
		return zero, err
	}

	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	m.mu.Lock()
	current := gen == m.generation
	m.mu.Unlock()

	if !current || !m.opts.Enabled() {
		logger.Debug("discarding superseded result")
		return zero, model.ErrSuperseded
	}

	m.commit(out)
	return out, nil
}

// Cancel discards the results of runs in flight
func (m *Mutation[In, Out]) Cancel() {
	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	m.mu.Lock()
	m.generation++
	m.mu.Unlock()
}

// InFlight reports whether a run is outstanding
func (m *Mutation[In, Out]) InFlight() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inFlight > 0
}
