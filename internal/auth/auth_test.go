package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStoreFromClient(client), mr
}

func TestRedisStore_SaveLookupDelete(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "tok-1", "player-1", time.Minute))

	playerID, err := store.Lookup(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "player-1", playerID)

	require.NoError(t, store.Delete(ctx, "tok-1"))
	_, err = store.Lookup(ctx, "tok-1")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestRedisStore_Expiry(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "tok-1", "player-1", time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := store.Lookup(ctx, "tok-1")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestRedisStore_DeleteUnknown(t *testing.T) {
	store, _ := newRedisStore(t)
	assert.NoError(t, store.Delete(context.Background(), "never-issued"))
}

func TestMemoryStore_SaveLookupDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "tok-1", "player-1", time.Minute))

	playerID, err := store.Lookup(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "player-1", playerID)

	require.NoError(t, store.Delete(ctx, "tok-1"))
	_, err = store.Lookup(ctx, "tok-1")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore()
	current := time.Now()
	store.now = func() time.Time { return current }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "tok-1", "player-1", time.Minute))

	current = current.Add(2 * time.Minute)
	_, err := store.Lookup(ctx, "tok-1")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestService_IssueValidateRevoke(t *testing.T) {
	store, _ := newRedisStore(t)
	svc := NewService(store, time.Hour, zap.NewNop())
	ctx := context.Background()

	token, err := svc.Issue(ctx, "player-1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	playerID, err := svc.Validate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "player-1", playerID)

	require.NoError(t, svc.Revoke(ctx, token))
	_, err = svc.Validate(ctx, token)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestService_TokensAreUnique(t *testing.T) {
	svc := NewService(NewMemoryStore(), time.Hour, zap.NewNop())
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := svc.Issue(ctx, "player-1")
		require.NoError(t, err)
		assert.False(t, seen[token])
		seen[token] = true
	}
}
