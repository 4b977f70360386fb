package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/letsplay/internal/model"
	"github.com/mcoot/letsplay/internal/storage"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.CacheRetention = time.Hour

	s.storage = NewWithClient(client, cfg)
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

// Credential tests

func (s *StorageSuite) TestSaveAndGetCredential() {
	cred := model.NewCredential("tok", time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	err := s.storage.SaveCredential(s.ctx, cred)
	s.Require().NoError(err)

	retrieved, err := s.storage.GetCredential(s.ctx)
	s.Require().NoError(err)
	s.Equal("tok", retrieved.Token)
	s.True(retrieved.IsLoggedIn)
	s.True(cred.UpdatedAt.Equal(retrieved.UpdatedAt))
}

func (s *StorageSuite) TestGetCredentialNotFound() {
	_, err := s.storage.GetCredential(s.ctx)
	s.ErrorIs(err, model.ErrCredentialNotFound)
}

func (s *StorageSuite) TestCredentialHasNoTTL() {
	_ = s.storage.SaveCredential(s.ctx, model.NewCredential("tok", time.Now()))

	ttl := s.mini.TTL(credentialKey())
	s.Equal(time.Duration(0), ttl, "Credential should not expire")
}

func (s *StorageSuite) TestDeleteCredential() {
	_ = s.storage.SaveCredential(s.ctx, model.NewCredential("tok", time.Now()))

	err := s.storage.DeleteCredential(s.ctx)
	s.Require().NoError(err)

	_, err = s.storage.GetCredential(s.ctx)
	s.ErrorIs(err, model.ErrCredentialNotFound)
}

func (s *StorageSuite) TestCredentialSurvivesReconnect() {
	_ = s.storage.SaveCredential(s.ctx, model.NewCredential("tok", time.Now()))

	reopened := NewWithClient(redis.NewClient(&redis.Options{Addr: s.mini.Addr()}), DefaultConfig())
	defer func() { _ = reopened.Close() }()

	retrieved, err := reopened.GetCredential(s.ctx)
	s.Require().NoError(err)
	s.Equal("tok", retrieved.Token)
}

// Cache tests

func (s *StorageSuite) TestSaveAndGetCacheEntry() {
	entry := &storage.CacheEntry{
		Data:      json.RawMessage(`{"a":1}`),
		FetchedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	err := s.storage.SaveCacheEntry(s.ctx, "profile", entry)
	s.Require().NoError(err)

	retrieved, err := s.storage.GetCacheEntry(s.ctx, "profile")
	s.Require().NoError(err)
	s.JSONEq(`{"a":1}`, string(retrieved.Data))
	s.True(entry.FetchedAt.Equal(retrieved.FetchedAt))
}

func (s *StorageSuite) TestGetCacheEntryNotFound() {
	_, err := s.storage.GetCacheEntry(s.ctx, "profile")
	s.ErrorIs(err, model.ErrCacheEntryNotFound)
}

func (s *StorageSuite) TestCacheEntryRetention() {
	_ = s.storage.SaveCacheEntry(s.ctx, "profile", &storage.CacheEntry{Data: json.RawMessage(`{}`)})

	ttl := s.mini.TTL(cacheKey("profile"))
	s.True(ttl > 0, "Cache entry should have retention TTL")
}

func (s *StorageSuite) TestDeleteCacheEntry() {
	_ = s.storage.SaveCacheEntry(s.ctx, "profile", &storage.CacheEntry{Data: json.RawMessage(`{}`)})

	err := s.storage.DeleteCacheEntry(s.ctx, "profile")
	s.Require().NoError(err)

	_, err = s.storage.GetCacheEntry(s.ctx, "profile")
	s.ErrorIs(err, model.ErrCacheEntryNotFound)
}
