package memory

import (
	"context"
	"sync"

	"github.com/mcoot/letsplay/internal/model"
	"github.com/mcoot/letsplay/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	credential *model.Credential
	cache      map[string]*storage.CacheEntry
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		cache: make(map[string]*storage.CacheEntry),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Credential operations

func (s *Storage) GetCredential(ctx context.Context) (*model.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.credential == nil {
		return nil, model.ErrCredentialNotFound
	}
	cred := *s.credential
	return &cred, nil
}

func (s *Storage) SaveCredential(ctx context.Context, cred *model.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *cred
	s.credential = &c
	return nil
}

func (s *Storage) DeleteCredential(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credential = nil
	return nil
}

// Fetch cache operations

func (s *Storage) GetCacheEntry(ctx context.Context, key string) (*storage.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.cache[key]
	if !ok {
		return nil, model.ErrCacheEntryNotFound
	}
	e := *entry
	return &e, nil
}

func (s *Storage) SaveCacheEntry(ctx context.Context, key string, entry *storage.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := *entry
	s.cache[key] = &e
	return nil
}

func (s *Storage) DeleteCacheEntry(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, key)
	return nil
}

func (s *Storage) Close() error {
	return nil
}
