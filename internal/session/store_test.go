package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/seo-opportunity-scanner/internal/scanner"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := NewRedisClient(RedisConfig{Addr: mr.Addr()})
	store, err := NewRedisStore(client, RedisConfig{TTL: time.Hour}, fixedClock{t: testNow})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func stores(t *testing.T) map[string]scanner.SessionStore {
	t.Helper()
	redisStore, _ := newRedisStore(t)
	return map[string]scanner.SessionStore{
		"memory": NewMemoryStore(fixedClock{t: testNow}),
		"redis":  redisStore,
	}
}

func sampleResults() []scanner.AnalyzedTarget {
	return []scanner.AnalyzedTarget{{
		Target:           scanner.Target{OrgNumber: "911", Name: "Fjord Hotell AS"},
		SEOScore:         40,
		SEOIssues:        []string{"No HTTPS"},
		SEODetails:       map[string]any{"title": "Fjord"},
		OpportunityScore: 60,
	}}
}

func TestStores_Lifecycle(t *testing.T) {
	t.Parallel()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.CreateSession(ctx, scanner.Session{ID: "s1", CreatedAt: testNow}))
			require.ErrorIs(t, store.CreateSession(ctx, scanner.Session{ID: "s1"}), scanner.ErrSessionExists)

			got, err := store.GetSession(ctx, "s1")
			require.NoError(t, err)
			require.Equal(t, scanner.SessionPending, got.Status)

			require.NoError(t, store.UpdateProgress(ctx, "s1", 30, "Found 3 companies"))
			require.NoError(t, store.UpdateProgress(ctx, "s1", 10, "late update"))
			got, err = store.GetSession(ctx, "s1")
			require.NoError(t, err)
			require.Equal(t, scanner.SessionRunning, got.Status)
			require.Equal(t, 30, got.Progress)
			require.Equal(t, "late update", got.Message)

			require.NoError(t, store.FinishSession(ctx, "s1", scanner.SessionComplete, "Scan complete!", sampleResults()))
			got, err = store.GetSession(ctx, "s1")
			require.NoError(t, err)
			require.Equal(t, scanner.SessionComplete, got.Status)
			require.Equal(t, 100, got.Progress)
			require.Len(t, got.Results, 1)
			require.Equal(t, "Fjord Hotell AS", got.Results[0].Name)
			require.Equal(t, []string{"No HTTPS"}, got.Results[0].SEOIssues)
			require.True(t, got.UpdatedAt.Equal(testNow))

			require.ErrorIs(t, store.UpdateProgress(ctx, "s1", 50, "again"), scanner.ErrSessionFinished)
			require.ErrorIs(t, store.FinishSession(ctx, "s1", scanner.SessionError, "x", nil), scanner.ErrSessionFinished)
		})
	}
}

func TestStores_UnknownSession(t *testing.T) {
	t.Parallel()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := store.GetSession(ctx, "missing")
			require.ErrorIs(t, err, ErrNotFound)
			require.ErrorIs(t, store.UpdateProgress(ctx, "missing", 10, ""), ErrNotFound)
			require.ErrorIs(t, store.FinishSession(ctx, "missing", scanner.SessionError, "", nil), ErrNotFound)
		})
	}
}

func TestStores_RejectNonTerminalFinish(t *testing.T) {
	t.Parallel()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.CreateSession(ctx, scanner.Session{ID: "s2"}))
			require.Error(t, store.FinishSession(ctx, "s2", scanner.SessionRunning, "", nil))
		})
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore(fixedClock{t: testNow})
	require.NoError(t, store.CreateSession(ctx, scanner.Session{ID: "s1"}))
	results := sampleResults()
	require.NoError(t, store.FinishSession(ctx, "s1", scanner.SessionComplete, "done", results))

	results[0].SEOIssues[0] = "mutated by caller"
	got, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, "No HTTPS", got.Results[0].SEOIssues[0])

	got.Results[0].SEODetails["title"] = "mutated by reader"
	again, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, "Fjord", again.Results[0].SEODetails["title"])
}

func TestMemoryStore_ConcurrentUpdates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore(fixedClock{t: testNow})
	require.NoError(t, store.CreateSession(ctx, scanner.Session{ID: "s1"}))

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			_ = store.UpdateProgress(ctx, "s1", p, "tick")
		}(i)
	}
	wg.Wait()

	got, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, 50, got.Progress)
}

func TestRedisStore_AppliesTTL(t *testing.T) {
	t.Parallel()

	store, mr := newRedisStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateSession(ctx, scanner.Session{ID: "ttl"}))
	require.Equal(t, time.Hour, mr.TTL("seoscan:session:ttl"))
	require.NoError(t, store.Ping(ctx))

	mr.FastForward(2 * time.Hour)
	_, err := store.GetSession(ctx, "ttl")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNewRedisStore_RequiresClient(t *testing.T) {
	t.Parallel()

	_, err := NewRedisStore(nil, RedisConfig{}, fixedClock{})
	require.Error(t, err)
}
