package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisStore(client)
}

func TestRedisStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	mr, store := newTestRedis(t)

	s := authedSession("tok", time.Now().Add(time.Hour).Unix())
	s.ID = "abc"
	s.ExpiresAt = time.Now().Add(30 * time.Minute)

	require.NoError(t, store.Save(ctx, s))

	assert.True(t, mr.Exists("session:abc"))
	ttl := mr.TTL("session:abc")
	assert.Greater(t, ttl, 29*time.Minute)
	assert.LessOrEqual(t, ttl, 30*time.Minute)

	got, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "tok", got.Auth.JWT)
	assert.Equal(t, []string{"issue.admin"}, got.Auth.Roles)
	assert.Equal(t, "u1", got.Auth.DecodedToken.UID)

	got.Auth.MID = "m2"
	require.NoError(t, got.Save(ctx))

	again, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "m2", again.Auth.MID)
}

func TestRedisStore_Missing(t *testing.T) {
	_, store := newTestRedis(t)

	got, err := store.Get(context.Background(), "missing")

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStore_ExpiredSaveDeletes(t *testing.T) {
	ctx := context.Background()
	mr, store := newTestRedis(t)

	s := &Session{ID: "old", ExpiresAt: time.Now().Add(time.Minute)}
	require.NoError(t, store.Save(ctx, s))
	require.True(t, mr.Exists("session:old"))

	s.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, store.Save(ctx, s))

	assert.False(t, mr.Exists("session:old"))
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	mr, store := newTestRedis(t)

	require.NoError(t, store.Save(ctx, &Session{ID: "ttl", ExpiresAt: time.Now().Add(time.Minute)}))
	mr.FastForward(2 * time.Minute)

	got, err := store.Get(ctx, "ttl")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStore_CorruptValue(t *testing.T) {
	mr, store := newTestRedis(t)
	require.NoError(t, mr.Set("session:bad", "{not json"))

	_, err := store.Get(context.Background(), "bad")

	assert.Error(t, err)
}

func TestRedisStore_Unavailable(t *testing.T) {
	ctx := context.Background()
	mr, store := newTestRedis(t)
	mr.Close()

	_, err := store.Get(ctx, "any")
	assert.Error(t, err)
	assert.Error(t, store.Ping(ctx))
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	defer client.Close()

	_, err = NewRedisClient(context.Background(), "127.0.0.1:1", "", 0)
	assert.Error(t, err)
}
