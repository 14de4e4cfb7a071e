package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/confluo/internal/common"
	"github.com/ternarybob/confluo/internal/models"
)

func newTestCache(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(common.CacheConfig{Enabled: true}, arbor.NewLogger())
	require.NoError(t, err, "Failed to open in-memory cache")
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestKey_Deterministic(t *testing.T) {
	desc := models.SourceDescriptor{Name: "rise", Market: models.MarketPrimary, MarketParams: map[string]string{"b": "1", "a": "0"}}
	same := models.SourceDescriptor{Name: "rise", Market: models.MarketPrimary, MarketParams: map[string]string{"a": "0", "b": "1"}}
	other := desc
	other.Market = models.MarketSecondary

	assert.Equal(t, Key(NamespaceRanking, desc), Key(NamespaceRanking, same), "Map order must not affect the key")
	assert.NotEqual(t, Key(NamespaceRanking, desc), Key(NamespaceRanking, other))
	assert.NotEqual(t, Key(NamespaceRanking, desc), Key(NamespaceNews, desc), "Namespace is part of the key")
	assert.Contains(t, Key(NamespaceRanking, desc), "ranking:")
}

// TestFetch_ValueEqual verifies identical parameters yield equal values and load once
func TestFetch_ValueEqual(t *testing.T) {
	svc := newTestCache(t)
	ctx := context.Background()
	loads := 0
	load := func(context.Context) ([]models.RankedEntry, error) {
		loads++
		return []models.RankedEntry{{Identifier: "AAA", DisplayName: "Alpha", Rank: 1, PercentChange: 29.9}}, nil
	}
	key := Key(NamespaceRanking, "rise", models.MarketPrimary)

	first, err := Fetch(ctx, svc, key, load)
	require.NoError(t, err)
	second, err := Fetch(ctx, svc, key, load)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, loads, "Second call should be served from cache")

	stats := svc.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, uint64(1), stats.Entries)
}

// TestClear_ForcesRefetch verifies Clear drops entries so the next call reloads
func TestClear_ForcesRefetch(t *testing.T) {
	svc := newTestCache(t)
	ctx := context.Background()
	version := 0
	load := func(context.Context) (int, error) {
		version++
		return version, nil
	}

	v1, err := Fetch(ctx, svc, "k", load)
	require.NoError(t, err)
	require.NoError(t, svc.Clear(ctx))
	v2, err := Fetch(ctx, svc, "k", load)
	require.NoError(t, err)

	assert.Equal(t, 1, v1)
	assert.Equal(t, 2, v2, "Value should be refetched after Clear")
}

// TestClear_DuringLoad verifies a value loaded across a Clear is returned but never stored
func TestClear_DuringLoad(t *testing.T) {
	svc := newTestCache(t)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		started := make(chan struct{})
		release := make(chan struct{})
		var wg sync.WaitGroup
		var value int
		var fetchErr, clearErr error

		wg.Add(2)
		go func() {
			defer wg.Done()
			value, fetchErr = Fetch(ctx, svc, "k", func(context.Context) (int, error) {
				close(started)
				<-release
				return i, nil
			})
		}()
		<-started
		go func() {
			defer wg.Done()
			clearErr = svc.Clear(ctx)
		}()
		close(release)
		wg.Wait()

		require.NoError(t, fetchErr)
		require.NoError(t, clearErr)
		assert.Equal(t, i, value)
		_, stored := svc.lookup("k")
		require.False(t, stored, "iteration %d: value loaded before Clear survived it", i)
	}
}

func TestFetch_ErrorsNotCached(t *testing.T) {
	svc := newTestCache(t)
	ctx := context.Background()
	calls := 0
	load := func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("transient")
		}
		return "ok", nil
	}

	_, err := Fetch(ctx, svc, "k", load)
	require.Error(t, err)

	v, err := Fetch(ctx, svc, "k", load)
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 2, calls)
}

// TestFetch_SingleLoad verifies concurrent misses for one key share a single load
func TestFetch_SingleLoad(t *testing.T) {
	svc := newTestCache(t)
	var loads atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (string, error) {
		loads.Add(1)
		<-release
		return "v", nil
	}

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := Fetch(context.Background(), svc, "shared", load)
			assert.NoError(t, err)
			results[i] = v
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	for _, r := range results {
		assert.Equal(t, "v", r)
	}
}

func TestFetch_Disabled(t *testing.T) {
	svc, err := NewService(common.CacheConfig{Enabled: false}, arbor.NewLogger())
	require.NoError(t, err)
	calls := 0
	load := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}

	a, _ := Fetch(context.Background(), svc, "k", load)
	b, _ := Fetch(context.Background(), svc, "k", load)

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
	assert.NoError(t, svc.Clear(context.Background()))
	assert.Equal(t, Stats{}, svc.Stats())
}
