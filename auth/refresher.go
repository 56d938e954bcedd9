package auth

import (
	"context"
	"time"

	"github.com/craterhq/crater-go/logging"
	"golang.org/x/sync/singleflight"
)

// expiryBuffer is how far ahead of the stored expiry a token counts as
// expiring soon.
const expiryBuffer = 60 * time.Second

// ExchangeFunc performs the network refresh exchange. In header mode it
// receives the stored refresh token; in cookie mode the token is empty and
// the server reads its own cookie.
type ExchangeFunc func(ctx context.Context, refreshToken string) (TokenPair, error)

// Refresher serializes refresh attempts so that concurrent callers share a
// single network refresh call and its outcome. Without this, N requests
// racing past an expired token would issue N refresh calls, and a backend
// that rotates refresh tokens on use would invalidate all but one of them.
type Refresher struct {
	store       *CredentialStore
	mode        Mode
	exchange    ExchangeFunc
	group       singleflight.Group
	onRefreshed func(TokenPair)
	logger      logging.Logger
	now         func() time.Time
}

func NewRefresher(store *CredentialStore, mode Mode, exchange ExchangeFunc, logger logging.Logger) *Refresher {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Refresher{
		store:    store,
		mode:     mode,
		exchange: exchange,
		logger:   logger,
		now:      time.Now,
	}
}

// OnRefreshed registers the notification invoked after every successful
// refresh, with the newly persisted pair.
func (r *Refresher) OnRefreshed(fn func(TokenPair)) {
	r.onRefreshed = fn
}

// ExpiringSoon reports whether the stored token expires within the buffer.
// A missing expiry never counts as expiring: static tokens and cookie
// sessions without a known lifetime are left alone until the server rejects
// them.
func (r *Refresher) ExpiringSoon(ctx context.Context) bool {
	expiry, err := r.store.Expiry(ctx)
	if err != nil || expiry.IsZero() {
		return false
	}
	return !r.now().Before(expiry.Add(-expiryBuffer))
}

// EnsureRefreshed runs one refresh episode. If an episode is already in
// flight the caller attaches to it and receives the same outcome; exactly
// one network refresh call is made per episode. The in-flight marker is
// cleared before any caller returns, success or failure.
func (r *Refresher) EnsureRefreshed(ctx context.Context) error {
	_, err, _ := r.group.Do("refresh", func() (any, error) {
		// The episode outlives any single caller: a per-call timeout must
		// not cancel a refresh that other callers depend on.
		ctx := context.WithoutCancel(ctx)

		refreshToken, err := r.store.RefreshToken(ctx)
		if err != nil {
			return nil, err
		}
		if r.mode == ModeHeader && refreshToken == "" {
			return nil, ErrNoRefreshToken
		}

		pair, err := r.exchange(ctx, refreshToken)
		if err != nil {
			return nil, err
		}
		if pair.ExpiresAt.IsZero() {
			pair.ExpiresAt = expiryFromToken(pair.AccessToken)
		}
		if err := r.store.SaveTokenPair(ctx, pair); err != nil {
			return nil, err
		}

		r.logger.Debug(ctx, "tokens refreshed", "expires_at", pair.ExpiresAt)
		if r.onRefreshed != nil {
			r.onRefreshed(pair)
		}
		return nil, nil
	})
	return err
}
