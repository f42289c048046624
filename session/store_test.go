package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	store := NewMemoryStore()
	store.now = func() time.Time { return now }

	t.Run("missing session", func(t *testing.T) {
		s, err := store.Get(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, s)
	})

	t.Run("round trip returns an independent bound copy", func(t *testing.T) {
		s := authedSession("tok", now.Unix()+60)
		s.ID = "rt"
		s.ExpiresAt = now.Add(time.Hour)
		require.NoError(t, store.Save(ctx, s))

		got, err := store.Get(ctx, "rt")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "tok", got.Auth.JWT)
		assert.Equal(t, "m1", got.Auth.DecodedToken.MID)

		got.Auth.JWT = "changed"
		again, err := store.Get(ctx, "rt")
		require.NoError(t, err)
		assert.Equal(t, "tok", again.Auth.JWT)

		got.Auth.JWT = "saved"
		require.NoError(t, got.Save(ctx))
		again, err = store.Get(ctx, "rt")
		require.NoError(t, err)
		assert.Equal(t, "saved", again.Auth.JWT)
	})

	t.Run("expired entries are evicted", func(t *testing.T) {
		s := &Session{ID: "exp", ExpiresAt: now.Add(time.Second)}
		require.NoError(t, store.Save(ctx, s))

		store.now = func() time.Time { return now.Add(2 * time.Second) }
		defer func() { store.now = func() time.Time { return now } }()

		got, err := store.Get(ctx, "exp")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("saving an expired session deletes it", func(t *testing.T) {
		s := &Session{ID: "gone", ExpiresAt: now.Add(time.Hour)}
		require.NoError(t, store.Save(ctx, s))

		s.ExpiresAt = now.Add(-time.Second)
		require.NoError(t, store.Save(ctx, s))

		got, err := store.Get(ctx, "gone")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("missing id", func(t *testing.T) {
		assert.Error(t, store.Save(ctx, &Session{}))
	})
}

func TestMemoryStore_EvictionKeepsResavedSession(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	store := NewMemoryStore()
	store.now = func() time.Time { return now }
	require.NoError(t, store.Save(ctx, &Session{ID: "s", ExpiresAt: now.Add(time.Second)}))

	later := now.Add(2 * time.Second)
	store.now = func() time.Time { return later }

	t.Run("resave between read and evict", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, &Session{ID: "s", ExpiresAt: later.Add(time.Hour)}))
		store.evictExpired("s")

		got, err := store.Get(ctx, "s")
		require.NoError(t, err)
		require.NotNil(t, got)
	})

	t.Run("concurrent gets and save", func(t *testing.T) {
		store.mu.Lock()
		store.sessions["c"] = memoryEntry{data: []byte(`{"id":"c"}`), expiresAt: now}
		store.mu.Unlock()

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = store.Get(ctx, "c")
			}()
		}
		require.NoError(t, store.Save(ctx, &Session{ID: "c", ExpiresAt: later.Add(time.Hour)}))
		wg.Wait()

		got, err := store.Get(ctx, "c")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "c", got.ID)
	})
}
