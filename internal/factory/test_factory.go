package factory

import (
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/letsplay/internal/dependencies/mocks"
	"github.com/mcoot/letsplay/internal/storage/memory"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock *mocks.MockClock
}

// NewTestApp creates an App against baseURL with in-memory storage and a
// mocked clock
func NewTestApp(baseURL string) *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	app := newWithDependencies(store, mockClock, Config{BaseURL: baseURL}, logger)

	return &TestApp{
		App:       app,
		MockClock: mockClock,
	}
}

// Restart simulates a new process sharing the same storage and clock.
// The persisted credential is not loaded.
func (t *TestApp) Restart() *TestApp {
	app := newWithDependencies(t.Storage, t.MockClock, Config{BaseURL: t.API.BaseURL()}, t.Logger)
	return &TestApp{App: app, MockClock: t.MockClock}
}
