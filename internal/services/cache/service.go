// Package cache memoizes collector and news results for the life of the process.
// Entries never expire; Clear is the only invalidation.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
	"golang.org/x/sync/singleflight"

	"github.com/ternarybob/confluo/internal/common"
	"github.com/ternarybob/confluo/internal/models"
)

// Namespaces used by the application
const (
	NamespaceRanking = "ranking"
	NamespaceThemes  = "themes"
	NamespaceNews    = "news"
	NamespaceQuote   = "quote"
)

// Service is an in-memory key/value cache backed by badgerhold.
type Service struct {
	store      *badgerhold.Store
	group      singleflight.Group
	enabled    bool
	storeMu    sync.Mutex // orders stores against Clear
	generation atomic.Uint64
	hits       atomic.Int64
	misses     atomic.Int64
	logger     arbor.ILogger
}

// Stats reports cache usage since the last Clear.
type Stats struct {
	Enabled bool   `json:"enabled"`
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
	Entries uint64 `json:"entries"`
}

// NewService opens an in-memory store. Nothing is written to disk.
func NewService(config common.CacheConfig, logger arbor.ILogger) (*Service, error) {
	s := &Service{enabled: config.Enabled, logger: logger}
	if !config.Enabled {
		logger.Debug().Msg("Cache disabled, every fetch goes to the source")
		return s, nil
	}

	options := badgerhold.DefaultOptions
	options.InMemory = true
	options.Dir = ""
	options.ValueDir = ""
	options.Logger = nil // Disable default badger logger to use arbor
	options.Encoder = json.Marshal
	options.Decoder = json.Unmarshal

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache store: %w", err)
	}
	s.store = store

	logger.Debug().Msg("In-memory cache initialized")
	return s, nil
}

// Key derives a deterministic cache key from a namespace and parameters.
// Parameters are JSON encoded, so struct field order and sorted map keys
// make equal inputs produce equal keys.
func Key(namespace string, params ...interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		data = []byte(fmt.Sprintf("%#v", params))
	}
	sum := sha256.Sum256(data)
	return namespace + ":" + hex.EncodeToString(sum[:])
}

// Fetch returns the cached value for key, calling load on a miss.
// Concurrent misses for one key share a single load. Load errors are not cached.
// The returned value is always decoded from the stored form, so the first
// call and every later hit return equal values.
func Fetch[T any](ctx context.Context, c *Service, key string, load func(context.Context) (T, error)) (T, error) {
	var zero T
	if c == nil || !c.enabled {
		return load(ctx)
	}

	if raw, ok := c.lookup(key); ok {
		var value T
		if err := json.Unmarshal(raw, &value); err == nil {
			c.hits.Add(1)
			c.logger.Trace().Str("key", key).Msg("Cache hit")
			return value, nil
		}
		c.logger.Warn().Str("key", key).Msg("Undecodable cache entry, reloading")
	}

	result, err, shared := c.group.Do(key, func() (interface{}, error) {
		generation := c.generation.Load()
		if raw, ok := c.lookup(key); ok {
			return raw, nil
		}

		value, err := load(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode cache value %s: %w", key, err)
		}

		c.misses.Add(1)
		c.put(key, raw, generation)
		return raw, nil
	})
	if err != nil {
		return zero, err
	}

	var value T
	if err := json.Unmarshal(result.([]byte), &value); err != nil {
		return zero, fmt.Errorf("failed to decode cache value %s: %w", key, err)
	}

	c.logger.Trace().Str("key", key).Bool("shared", shared).Msg("Cache miss loaded")
	return value, nil
}

// put writes raw under key unless the cache was cleared since generation.
func (s *Service) put(key string, raw []byte, generation uint64) {
	s.storeMu.Lock()
	defer s.storeMu.Unlock()
	if s.generation.Load() != generation {
		// Cleared while loading; the value is returned but not stored.
		return
	}
	entry := &models.CacheEntry{Key: key, Value: raw, CreatedAt: time.Now()}
	if err := s.store.Upsert(key, entry); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Failed to store cache entry")
	}
}

func (s *Service) lookup(key string) ([]byte, bool) {
	var entry models.CacheEntry
	if err := s.store.Get(key, &entry); err != nil {
		if !errors.Is(err, badgerhold.ErrNotFound) {
			s.logger.Warn().Err(err).Str("key", key).Msg("Cache lookup failed")
		}
		return nil, false
	}
	return entry.Value, true
}

// Clear drops every entry and resets the counters.
func (s *Service) Clear(ctx context.Context) error {
	if s == nil || !s.enabled {
		return nil
	}
	s.storeMu.Lock()
	s.generation.Add(1)
	err := s.store.Badger().DropAll()
	s.storeMu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	s.hits.Store(0)
	s.misses.Store(0)
	s.logger.Info().Msg("Cache cleared")
	return nil
}

// Stats returns the current counters and entry count.
func (s *Service) Stats() Stats {
	if s == nil || !s.enabled {
		return Stats{}
	}
	stats := Stats{Enabled: true, Hits: s.hits.Load(), Misses: s.misses.Load()}
	count, err := s.store.Count(&models.CacheEntry{}, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to count cache entries")
		return stats
	}
	stats.Entries = count
	return stats
}

// Close releases the store.
func (s *Service) Close() error {
	if s == nil || s.store == nil {
		return nil
	}
	return s.store.Close()
}
