package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"

	"github.com/mcoot/letsplay/internal/model"
	"github.com/mcoot/letsplay/internal/storage"
)

// document is the on-disk layout of the state file
type document struct {
	Credential *model.Credential              `json:"credential,omitempty"`
	Cache      map[string]*storage.CacheEntry `json:"cache,omitempty"`
}

// Storage persists client state as a single JSON document. Every write
// replaces the file atomically, so a crash never leaves a torn document.
type Storage struct {
	mu   sync.Mutex
	path string
}

// New creates a file storage at path, creating the parent directory
func New(path string) (*Storage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &Storage{path: path}, nil
}

// DefaultPath returns ~/.letsplay/lets-play-storage.json
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".letsplay", storage.Key+".json")
	}
	return filepath.Join(home, ".letsplay", storage.Key+".json")
}

// Path returns the state file location
func (s *Storage) Path() string {
	return s.path
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Credential operations

func (s *Storage) GetCredential(ctx context.Context) (*model.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	if doc.Credential == nil {
		return nil, model.ErrCredentialNotFound
	}
	return doc.Credential, nil
}

func (s *Storage) SaveCredential(ctx context.Context, cred *model.Credential) error {
	return s.update(func(doc *document) {
		c := *cred
		doc.Credential = &c
	})
}

func (s *Storage) DeleteCredential(ctx context.Context) error {
	return s.update(func(doc *document) {
		doc.Credential = nil
	})
}

// Fetch cache operations

func (s *Storage) GetCacheEntry(ctx context.Context, key string) (*storage.CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	entry, ok := doc.Cache[key]
	if !ok || entry == nil {
		return nil, model.ErrCacheEntryNotFound
	}
	return entry, nil
}

func (s *Storage) SaveCacheEntry(ctx context.Context, key string, entry *storage.CacheEntry) error {
	return s.update(func(doc *document) {
		if doc.Cache == nil {
			doc.Cache = make(map[string]*storage.CacheEntry)
		}
		e := *entry
		doc.Cache[key] = &e
	})
}

func (s *Storage) DeleteCacheEntry(ctx context.Context, key string) error {
	return s.update(func(doc *document) {
		delete(doc.Cache, key)
	})
}

func (s *Storage) Close() error {
	return nil
}

// read loads the document; a missing file is an empty document
func (s *Storage) read() (*document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &document{}, nil
		}
		return nil, err
	}

	var doc document
	if len(bytes.TrimSpace(data)) == 0 {
		return &doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("corrupt state file %s: %w", s.path, err)
	}
	return &doc, nil
}

// update applies fn to the current document and writes it back
func (s *Storage) update(fn func(doc *document)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	fn(doc)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return err
	}
	return os.Chmod(s.path, 0600)
}
