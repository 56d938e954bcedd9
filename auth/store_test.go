package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craterhq/crater-go/storage"
)

func TestCredentialStore_SaveTokenPair(t *testing.T) {
	ctx := context.Background()
	store := NewCredentialStore(storage.NewMemoryStorage())

	expiry := time.Now().Add(15 * time.Minute)
	err := store.SaveTokenPair(ctx, TokenPair{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		ExpiresAt:    expiry,
	})
	require.NoError(t, err)

	token, err := store.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "at-1", token)

	refreshToken, err := store.RefreshToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "rt-1", refreshToken)

	stored, err := store.Expiry(ctx)
	require.NoError(t, err)
	assert.Equal(t, expiry.UnixMilli(), stored.UnixMilli(), "expiry persists at millisecond precision")
}

func TestCredentialStore_SaveTokenPairKeepsRefreshTokenWhenAbsent(t *testing.T) {
	ctx := context.Background()
	store := NewCredentialStore(storage.NewMemoryStorage())
	require.NoError(t, store.SetRefreshToken(ctx, "rt-original"))

	err := store.SaveTokenPair(ctx, TokenPair{AccessToken: "at-2"})
	require.NoError(t, err)

	refreshToken, err := store.RefreshToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "rt-original", refreshToken, "servers that do not rotate omit the refresh token")
}

func TestCredentialStore_SaveTokenPairClearsExpiryWhenAbsent(t *testing.T) {
	ctx := context.Background()
	store := NewCredentialStore(storage.NewMemoryStorage())
	require.NoError(t, store.SetExpiry(ctx, time.Now().Add(time.Hour)))

	err := store.SaveTokenPair(ctx, TokenPair{AccessToken: "at-2"})
	require.NoError(t, err)

	expiry, err := store.Expiry(ctx)
	require.NoError(t, err)
	assert.True(t, expiry.IsZero(), "a pair without expiry leaves no stale expiry behind")
}

func TestCredentialStore_ExpiryMissing(t *testing.T) {
	store := NewCredentialStore(storage.NewMemoryStorage())

	expiry, err := store.Expiry(context.Background())
	require.NoError(t, err)
	assert.True(t, expiry.IsZero())
}

func TestCredentialStore_ExpiryMalformed(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStorage()
	require.NoError(t, mem.Set(ctx, "expires_at", "not-a-number"))
	store := NewCredentialStore(mem)

	_, err := store.Expiry(ctx)
	require.Error(t, err)
}

func TestCredentialStore_Tenant(t *testing.T) {
	ctx := context.Background()
	store := NewCredentialStore(storage.NewMemoryStorage())

	tenant, err := store.Tenant(ctx)
	require.NoError(t, err)
	assert.Empty(t, tenant, "absent tenant reads as empty, not an error")

	require.NoError(t, store.SetTenant(ctx, "acme"))
	tenant, err = store.Tenant(ctx)
	require.NoError(t, err)
	assert.Equal(t, "acme", tenant)
}

func TestCredentialStore_Clear(t *testing.T) {
	ctx := context.Background()
	store := NewCredentialStore(storage.NewMemoryStorage())
	require.NoError(t, store.SaveTokenPair(ctx, TokenPair{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		ExpiresAt:    time.Now().Add(time.Hour),
	}))
	require.NoError(t, store.SetTenant(ctx, "acme"))

	require.NoError(t, store.Clear(ctx))

	token, err := store.AccessToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
	refreshToken, err := store.RefreshToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, refreshToken)
	tenant, err := store.Tenant(ctx)
	require.NoError(t, err)
	assert.Empty(t, tenant)

	// Clearing an already-empty store is a no-op.
	require.NoError(t, store.Clear(ctx))
}
