package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mcoot/letsplay/internal/model"
)

// Key is the name the whole local state is persisted under
const Key = "lets-play-storage"

// CacheEntry is a persisted fetch result
type CacheEntry struct {
	Data      json.RawMessage `json:"data"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Storage defines the interface for the durable local key-value store
type Storage interface {
	// Credential operations
	GetCredential(ctx context.Context) (*model.Credential, error)
	SaveCredential(ctx context.Context, cred *model.Credential) error
	DeleteCredential(ctx context.Context) error

	// Fetch cache operations
	GetCacheEntry(ctx context.Context, key string) (*CacheEntry, error)
	SaveCacheEntry(ctx context.Context, key string, entry *CacheEntry) error
	DeleteCacheEntry(ctx context.Context, key string) error

	Close() error
}
