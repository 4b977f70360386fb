package factory

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/letsplay/internal/dependencies/clock"
	"github.com/mcoot/letsplay/internal/services/credential"
	"github.com/mcoot/letsplay/internal/services/library"
	"github.com/mcoot/letsplay/internal/state"
	"github.com/mcoot/letsplay/internal/steamapi"
	"github.com/mcoot/letsplay/internal/storage"
	filestorage "github.com/mcoot/letsplay/internal/storage/file"
	"github.com/mcoot/letsplay/internal/storage/memory"
	redisstorage "github.com/mcoot/letsplay/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeFile   = "file"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock clock.Clock
	API   *steamapi.Client

	// Client state and services
	State       *state.Store
	Credentials *credential.Service
	Library     *library.Controller

	Logger *slog.Logger
}

// Config holds configuration for the application factory
type Config struct {
	// BaseURL is the backend base URL (required)
	BaseURL string
	// StaleTime is how long fetched data is served from cache (optional)
	// If zero, the fetch default of 20 minutes applies
	StaleTime time.Duration
	// Timeout bounds each backend request (optional)
	Timeout time.Duration
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "file" or "redis")
	// If empty, defaults to "file"
	StorageType string
	// StoragePath is the JSON file used by the file backend
	// If empty, the file backend's default path is used
	StoragePath string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
}

// New creates a new application with all dependencies wired. The persisted
// credential is not loaded; call Credentials.Load.
func New(cfg Config) (*App, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("BaseURL is required")
	}

	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := newStorage(cfg)
	if err != nil {
		return nil, err
	}

	return newWithDependencies(store, clock.New(), cfg, logger), nil
}

func newStorage(cfg Config) (storage.Storage, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeFile
	}

	switch storageType {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeFile:
		path := cfg.StoragePath
		if path == "" {
			path = filestorage.DefaultPath()
		}
		return filestorage.New(path)
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		return redisstorage.New(*cfg.RedisConfig)
	default:
		return nil, fmt.Errorf("invalid StorageType %q: must be 'memory', 'file' or 'redis'", storageType)
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, cfg Config, logger *slog.Logger) *App {
	st := state.New()
	credentials := credential.New(store, st, clk, logger)
	api := steamapi.New(steamapi.Config{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
	}, steamapi.TokenFunc(st.Token), logger)
	lib := library.NewController(api, st, credentials, store, clk, library.Config{
		StaleTime: cfg.StaleTime,
		Timeout:   cfg.Timeout,
	}, logger)

	return &App{
		Storage:     store,
		Clock:       clk,
		API:         api,
		State:       st,
		Credentials: credentials,
		Library:     lib,
		Logger:      logger,
	}
}

// Close releases the storage backend
func (a *App) Close() error {
	return a.Storage.Close()
}
