package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craterhq/crater-go/storage"
)

func newTestStore(t *testing.T) *CredentialStore {
	t.Helper()
	return NewCredentialStore(storage.NewMemoryStorage())
}

func TestEnsureRefreshed_ConcurrentCallersShareOneExchange(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.SetRefreshToken(ctx, "rt-1"))

	var exchanges int32
	exchange := func(ctx context.Context, refreshToken string) (TokenPair, error) {
		atomic.AddInt32(&exchanges, 1)
		assert.Equal(t, "rt-1", refreshToken)
		// Hold the episode open so every goroutine attaches to it.
		time.Sleep(50 * time.Millisecond)
		return TokenPair{
			AccessToken:  "at-2",
			RefreshToken: "rt-2",
			ExpiresAt:    time.Now().Add(time.Hour),
		}, nil
	}
	r := NewRefresher(store, ModeHeader, exchange, nil)

	var wg sync.WaitGroup
	errs := make([]error, 25)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = r.EnsureRefreshed(ctx)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&exchanges), "one network exchange per episode")

	token, err := store.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "at-2", token)
	refreshToken, err := store.RefreshToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "rt-2", refreshToken)
}

func TestEnsureRefreshed_ConcurrentCallersShareFailure(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.SetRefreshToken(ctx, "rt-1"))

	exchangeErr := errors.New("refresh token revoked")
	var exchanges int32
	exchange := func(ctx context.Context, refreshToken string) (TokenPair, error) {
		atomic.AddInt32(&exchanges, 1)
		time.Sleep(50 * time.Millisecond)
		return TokenPair{}, exchangeErr
	}
	r := NewRefresher(store, ModeHeader, exchange, nil)

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = r.EnsureRefreshed(ctx)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.ErrorIs(t, err, exchangeErr)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&exchanges))
}

func TestEnsureRefreshed_FailedEpisodeDoesNotBlockNextOne(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.SetRefreshToken(ctx, "rt-1"))

	var exchanges int32
	exchange := func(ctx context.Context, refreshToken string) (TokenPair, error) {
		if atomic.AddInt32(&exchanges, 1) == 1 {
			return TokenPair{}, errors.New("transient")
		}
		return TokenPair{AccessToken: "at-2"}, nil
	}
	r := NewRefresher(store, ModeHeader, exchange, nil)

	require.Error(t, r.EnsureRefreshed(ctx))
	require.NoError(t, r.EnsureRefreshed(ctx))
	assert.Equal(t, int32(2), atomic.LoadInt32(&exchanges))
}

func TestEnsureRefreshed_HeaderModeRequiresRefreshToken(t *testing.T) {
	store := newTestStore(t)

	var exchanges int32
	exchange := func(ctx context.Context, refreshToken string) (TokenPair, error) {
		atomic.AddInt32(&exchanges, 1)
		return TokenPair{}, nil
	}
	r := NewRefresher(store, ModeHeader, exchange, nil)

	err := r.EnsureRefreshed(context.Background())

	require.ErrorIs(t, err, ErrNoRefreshToken)
	assert.Zero(t, atomic.LoadInt32(&exchanges), "no network call without a refresh token")
}

func TestEnsureRefreshed_CookieModeRunsWithoutStoredToken(t *testing.T) {
	store := newTestStore(t)

	exchange := func(ctx context.Context, refreshToken string) (TokenPair, error) {
		assert.Empty(t, refreshToken)
		return TokenPair{AccessToken: "at-cookie"}, nil
	}
	r := NewRefresher(store, ModeCookie, exchange, nil)

	require.NoError(t, r.EnsureRefreshed(context.Background()))

	token, err := store.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "at-cookie", token)
}

func TestEnsureRefreshed_SurvivesCallerTimeout(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SetRefreshToken(context.Background(), "rt-1"))

	exchange := func(ctx context.Context, refreshToken string) (TokenPair, error) {
		// The episode context must not inherit the caller's deadline.
		time.Sleep(30 * time.Millisecond)
		if err := ctx.Err(); err != nil {
			return TokenPair{}, err
		}
		return TokenPair{AccessToken: "at-2"}, nil
	}
	r := NewRefresher(store, ModeHeader, exchange, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	require.NoError(t, r.EnsureRefreshed(ctx))
}

func TestEnsureRefreshed_ExpiryFallsBackToTokenClaim(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SetRefreshToken(context.Background(), "rt-1"))

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": exp.Unix(),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)

	exchange := func(ctx context.Context, refreshToken string) (TokenPair, error) {
		return TokenPair{AccessToken: signed}, nil
	}
	r := NewRefresher(store, ModeHeader, exchange, nil)

	require.NoError(t, r.EnsureRefreshed(context.Background()))

	stored, err := store.Expiry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, exp.UnixMilli(), stored.UnixMilli())
}

func TestEnsureRefreshed_NotifiesOnRefreshed(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SetRefreshToken(context.Background(), "rt-1"))

	exchange := func(ctx context.Context, refreshToken string) (TokenPair, error) {
		return TokenPair{AccessToken: "at-2", RefreshToken: "rt-2"}, nil
	}
	r := NewRefresher(store, ModeHeader, exchange, nil)

	var got TokenPair
	r.OnRefreshed(func(pair TokenPair) { got = pair })

	require.NoError(t, r.EnsureRefreshed(context.Background()))
	assert.Equal(t, "at-2", got.AccessToken)
	assert.Equal(t, "rt-2", got.RefreshToken)
}

func TestExpiringSoon(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	tests := []struct {
		name   string
		expiry time.Time
		want   bool
	}{
		{"no expiry stored", time.Time{}, false},
		{"expired", now.Add(-time.Minute), true},
		{"inside buffer", now.Add(30 * time.Second), true},
		{"outside buffer", now.Add(5 * time.Minute), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			if !tt.expiry.IsZero() {
				require.NoError(t, store.SetExpiry(ctx, tt.expiry))
			}
			r := NewRefresher(store, ModeHeader, nil, nil)
			r.now = func() time.Time { return now }

			assert.Equal(t, tt.want, r.ExpiringSoon(ctx))
		})
	}
}
