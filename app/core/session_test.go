package core

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	alice := User{Model: Model{ID: 1}, Email: "alice@example.org", Role: RoleSampler, IsActive: true}
	bob := User{Model: Model{ID: 2}, Email: "bob@example.org", Role: RoleLabAdmin, IsActive: true}

	require.NoError(t, store.Set(ctx, "token-a1", alice))
	require.NoError(t, store.Set(ctx, "token-a2", alice))
	require.NoError(t, store.Set(ctx, "token-b1", bob))

	got, ok, err := store.Get(ctx, "token-a1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alice@example.org", got.Email)
	assert.Equal(t, RoleSampler, got.Role)

	_, ok, err = store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Delete(ctx, "token-a1"))
	_, ok, _ = store.Get(ctx, "token-a1")
	assert.False(t, ok)

	require.NoError(t, store.DeleteUser(ctx, alice.ID))
	_, ok, _ = store.Get(ctx, "token-a2")
	assert.False(t, ok)

	_, ok, _ = store.Get(ctx, "token-b1")
	assert.True(t, ok, "other users keep their sessions")
}

func TestMemorySessionStore(t *testing.T) {
	sessionStoreContract(t, NewMemorySessionStore(time.Hour))
}

func TestMemorySessionStore_Expiry(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(context.Background(), "token", User{Model: Model{ID: 1}}))

	now = now.Add(2 * time.Minute)
	_, ok, err := store.Get(context.Background(), "token")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisSessionStore(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := NewRedisSessionStore(context.Background(), ConfigurationSessions{RedisAddr: mr.Addr()}, time.Hour)
	require.NoError(t, err)
	defer store.Close()

	sessionStoreContract(t, store)
}

func TestRedisSessionStore_TTL(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := NewRedisSessionStore(context.Background(), ConfigurationSessions{RedisAddr: mr.Addr()}, time.Hour)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Set(context.Background(), "token", User{Model: Model{ID: 7}}))
	assert.Equal(t, time.Hour, mr.TTL("session:token"))

	mr.FastForward(2 * time.Hour)
	_, ok, err := store.Get(context.Background(), "token")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisSessionStore_NoTTL(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := NewRedisSessionStore(context.Background(), ConfigurationSessions{RedisAddr: mr.Addr()}, 0)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "token", User{Model: Model{ID: 7}}))
	assert.True(t, mr.Exists("user_sessions:7"))
	assert.Equal(t, time.Duration(0), mr.TTL("session:token"))

	require.NoError(t, store.DeleteUser(ctx, 7))
	_, ok, err := store.Get(ctx, "token")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewRedisSessionStore_Unreachable(t *testing.T) {
	_, err := NewRedisSessionStore(context.Background(), ConfigurationSessions{RedisAddr: "127.0.0.1:1"}, time.Hour)
	assert.Error(t, err)
}

func TestNewSessionStore(t *testing.T) {
	store, err := NewSessionStore(context.Background(), Configuration{})
	require.NoError(t, err)
	assert.IsType(t, &MemorySessionStore{}, store)

	_, err = NewSessionStore(context.Background(), Configuration{Sessions: ConfigurationSessions{Backend: "memcached"}})
	assert.Error(t, err)
}
