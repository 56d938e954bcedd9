package auth

import (
	"context"
	"time"

	"github.com/craterhq/crater-go/logging"
	"github.com/craterhq/crater-go/rest"
)

// tokenPayload is the credential shape shared by login, registration and
// refresh responses. Expires is a duration in seconds, converted locally to
// an absolute instant.
type tokenPayload struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Expires      int64  `json:"expires"`
}

type tokenEnvelope struct {
	Data tokenPayload `json:"data"`
}

// Service owns the credential lifecycle: it exposes the /auth operations,
// implements rest.Credentials for the request pipeline, and delegates
// refresh coordination to its Refresher.
type Service struct {
	store     *CredentialStore
	refresher *Refresher
	rc        *rest.Client
	mode      Mode
	logger    logging.Logger
}

type ServiceOption func(*Service)

func WithLogger(l logging.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService builds the auth service on top of the request pipeline. The
// caller is expected to install the returned service into the pipeline via
// rest.Client.SetCredentials.
func NewService(rc *rest.Client, store *CredentialStore, mode Mode, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		rc:     rc,
		mode:   mode,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.refresher = NewRefresher(store, mode, s.refreshExchange, s.logger)
	return s
}

// Store exposes the credential store for callers that manage tenants or
// static tokens directly.
func (s *Service) Store() *CredentialStore {
	return s.store
}

// Mode returns the configured auth mode.
func (s *Service) Mode() Mode {
	return s.mode
}

// OnTokensRefreshed registers the notification fired after every successful
// refresh anywhere in the pipeline.
func (s *Service) OnTokensRefreshed(fn func(TokenPair)) {
	s.refresher.OnRefreshed(fn)
}

// Login exchanges credentials for a token pair and persists it.
func (s *Service) Login(ctx context.Context, email, password string) error {
	body := map[string]any{
		"email":    email,
		"password": password,
		"mode":     string(s.mode),
	}
	var resp tokenEnvelope
	if err := s.rc.Do(ctx, "POST", "/auth/login", &rest.RequestOptions{Body: body, SkipAuth: true}, &resp); err != nil {
		return err
	}
	return s.savePayload(ctx, resp.Data)
}

// Register creates an account and persists the returned token pair when the
// backend logs the new user in directly.
func (s *Service) Register(ctx context.Context, email, password string) error {
	body := map[string]any{
		"email":    email,
		"password": password,
		"mode":     string(s.mode),
	}
	var resp tokenEnvelope
	if err := s.rc.Do(ctx, "POST", "/auth/register", &rest.RequestOptions{Body: body, SkipAuth: true}, &resp); err != nil {
		return err
	}
	if resp.Data.AccessToken == "" {
		return nil
	}
	return s.savePayload(ctx, resp.Data)
}

// Logout invalidates the session server-side (best effort) and clears the
// stored credentials unconditionally.
func (s *Service) Logout(ctx context.Context) error {
	var body map[string]any
	if s.mode == ModeHeader {
		refreshToken, err := s.store.RefreshToken(ctx)
		if err != nil {
			return err
		}
		if refreshToken != "" {
			body = map[string]any{"refresh_token": refreshToken}
		}
	}
	if err := s.rc.Do(ctx, "POST", "/auth/logout", &rest.RequestOptions{Body: body, SkipAuth: true}, nil); err != nil {
		s.logger.Warn(ctx, "server-side logout failed, clearing local credentials anyway", "error", err)
	}
	return s.store.Clear(ctx)
}

// SetStaticToken installs a long-lived token with no refresh counterpart.
// The proactive refresh check never triggers for it (no stored expiry unless
// the token itself carries one).
func (s *Service) SetStaticToken(ctx context.Context, token string) error {
	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	return s.store.SaveTokenPair(ctx, TokenPair{
		AccessToken: token,
		ExpiresAt:   expiryFromToken(token),
	})
}

// RefreshNow forces one coordinated refresh episode.
func (s *Service) RefreshNow(ctx context.Context) error {
	return s.refresher.EnsureRefreshed(ctx)
}

// refreshExchange calls the remote refresh endpoint. Cookie mode sends an
// empty body; the server reads its own cookie.
func (s *Service) refreshExchange(ctx context.Context, refreshToken string) (TokenPair, error) {
	var body map[string]any
	if s.mode == ModeHeader {
		body = map[string]any{
			"refresh_token": refreshToken,
			"mode":          string(s.mode),
		}
	}
	var resp tokenEnvelope
	if err := s.rc.Do(ctx, "POST", "/auth/refresh", &rest.RequestOptions{Body: body, SkipAuth: true}, &resp); err != nil {
		return TokenPair{}, err
	}
	return pairFromPayload(resp.Data), nil
}

func (s *Service) savePayload(ctx context.Context, payload tokenPayload) error {
	pair := pairFromPayload(payload)
	if pair.ExpiresAt.IsZero() {
		pair.ExpiresAt = expiryFromToken(pair.AccessToken)
	}
	return s.store.SaveTokenPair(ctx, pair)
}

func pairFromPayload(payload tokenPayload) TokenPair {
	pair := TokenPair{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
	}
	if payload.Expires > 0 {
		pair.ExpiresAt = time.Now().Add(time.Duration(payload.Expires) * time.Second)
	}
	return pair
}

// rest.Credentials implementation.

// AccessToken returns the stored token, or "" in cookie mode so that no
// bearer header is attached.
func (s *Service) AccessToken(ctx context.Context) (string, error) {
	if s.mode == ModeCookie {
		return "", nil
	}
	return s.store.AccessToken(ctx)
}

func (s *Service) Tenant(ctx context.Context) (string, error) {
	return s.store.Tenant(ctx)
}

// EnsureFresh refreshes proactively when the stored token expires within the
// buffer. Callers treat its error as advisory.
func (s *Service) EnsureFresh(ctx context.Context) error {
	if !s.refresher.ExpiringSoon(ctx) {
		return nil
	}
	return s.refresher.EnsureRefreshed(ctx)
}

// Refresh runs one coordinated refresh episode for the reactive 401 path.
func (s *Service) Refresh(ctx context.Context) error {
	return s.refresher.EnsureRefreshed(ctx)
}

var _ rest.Credentials = (*Service)(nil)
