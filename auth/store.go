package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/craterhq/crater-go/storage"
)

// Storage keys for the four named credential values.
const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyExpiresAt    = "expires_at"
	keyTenant       = "tenant"
)

// CredentialStore is a thin accessor over the key-value storage for the four
// named credential values. Each read goes through the storage; there is no
// authoritative in-memory shadow.
type CredentialStore struct {
	storage storage.Storage
}

func NewCredentialStore(s storage.Storage) *CredentialStore {
	return &CredentialStore{storage: s}
}

func (c *CredentialStore) AccessToken(ctx context.Context) (string, error) {
	return c.storage.Get(ctx, keyAccessToken)
}

func (c *CredentialStore) SetAccessToken(ctx context.Context, token string) error {
	return c.storage.Set(ctx, keyAccessToken, token)
}

func (c *CredentialStore) RefreshToken(ctx context.Context) (string, error) {
	return c.storage.Get(ctx, keyRefreshToken)
}

func (c *CredentialStore) SetRefreshToken(ctx context.Context, token string) error {
	return c.storage.Set(ctx, keyRefreshToken, token)
}

// Expiry returns the stored absolute expiry instant, or the zero time when
// none is stored.
func (c *CredentialStore) Expiry(ctx context.Context) (time.Time, error) {
	raw, err := c.storage.Get(ctx, keyExpiresAt)
	if err != nil || raw == "" {
		return time.Time{}, err
	}
	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("stored expiry %q is not epoch milliseconds: %w", raw, err)
	}
	return time.UnixMilli(millis), nil
}

func (c *CredentialStore) SetExpiry(ctx context.Context, at time.Time) error {
	return c.storage.Set(ctx, keyExpiresAt, strconv.FormatInt(at.UnixMilli(), 10))
}

func (c *CredentialStore) Tenant(ctx context.Context) (string, error) {
	return c.storage.Get(ctx, keyTenant)
}

func (c *CredentialStore) SetTenant(ctx context.Context, tenant string) error {
	return c.storage.Set(ctx, keyTenant, tenant)
}

// SaveTokenPair overwrites the stored pair with the outcome of a login or
// refresh exchange. An absent refresh token keeps the stored one (servers
// that do not rotate omit it); an absent expiry clears the stored one. The
// writes are not transactional: nothing else reads the storage concurrently
// with a refresh episode.
func (c *CredentialStore) SaveTokenPair(ctx context.Context, pair TokenPair) error {
	if err := c.storage.Set(ctx, keyAccessToken, pair.AccessToken); err != nil {
		return err
	}
	if pair.RefreshToken != "" {
		if err := c.storage.Set(ctx, keyRefreshToken, pair.RefreshToken); err != nil {
			return err
		}
	}
	if pair.ExpiresAt.IsZero() {
		return c.storage.Delete(ctx, keyExpiresAt)
	}
	return c.SetExpiry(ctx, pair.ExpiresAt)
}

// Clear erases all four named values unconditionally. Erasing an absent key
// is a no-op, not an error.
func (c *CredentialStore) Clear(ctx context.Context) error {
	for _, key := range []string{keyAccessToken, keyRefreshToken, keyExpiresAt, keyTenant} {
		if err := c.storage.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
