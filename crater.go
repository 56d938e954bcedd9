// Package crater is the Go SDK for the Crater backend. A Client bundles the
// authenticated request pipeline, the credential lifecycle, the realtime
// connection, and one accessor per collection module.
//
// Minimal use:
//
//	c, err := crater.New("https://crater.example.com")
//	if err != nil { ... }
//	if err := c.Auth.Login(ctx, email, password); err != nil { ... }
//	items, err := c.Items("articles").List(ctx, nil)
package crater

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/craterhq/crater-go/auth"
	"github.com/craterhq/crater-go/logging"
	"github.com/craterhq/crater-go/realtime"
	"github.com/craterhq/crater-go/resources"
	"github.com/craterhq/crater-go/rest"
	"github.com/craterhq/crater-go/storage"
)

// Client is the assembled SDK. The embedded modules share one request
// pipeline and one credential store; all of them are safe for concurrent use.
type Client struct {
	REST     *rest.Client
	Auth     *auth.Service
	Realtime *realtime.Conn

	Files         *resources.Files
	Users         *resources.Users
	Roles         *resources.Roles
	Permissions   *resources.Permissions
	Settings      *resources.Settings
	Schemas       *resources.Schemas
	Reports       *resources.Reports
	Workflows     *resources.Workflows
	Migrations    *resources.Migrations
	Notifications *resources.Notifications

	store  storage.Storage
	logger logging.Logger
}

type config struct {
	store       storage.Storage
	mode        auth.Mode
	tenant      string
	logger      logging.Logger
	httpClient  *http.Client
	timeout     time.Duration
	wsURL       string
	autoRefresh bool
}

type Option func(*config)

// WithStorage replaces the default in-memory credential storage, e.g. with
// storage.OpenSQLite for credentials that survive restarts.
func WithStorage(s storage.Storage) Option {
	return func(c *config) { c.store = s }
}

// WithAuthMode selects header or cookie authentication. Defaults to header.
func WithAuthMode(mode auth.Mode) Option {
	return func(c *config) { c.mode = mode }
}

// WithTenant selects the tenant sent on every authenticated request.
func WithTenant(tenant string) Option {
	return func(c *config) { c.tenant = tenant }
}

func WithLogger(l logging.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithHTTPClient replaces the underlying *http.Client. Cookie-mode callers
// must install a client with a cookie jar.
func WithHTTPClient(h *http.Client) Option {
	return func(c *config) { c.httpClient = h }
}

// WithTimeout sets the default per-call timeout of the request pipeline.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithWebSocketURL overrides the realtime endpoint derived from the base URL.
func WithWebSocketURL(url string) Option {
	return func(c *config) { c.wsURL = url }
}

// WithAutoRefresh enables or disables transparent token refresh. Defaults to
// enabled.
func WithAutoRefresh(enabled bool) Option {
	return func(c *config) { c.autoRefresh = enabled }
}

// New assembles a Client for the backend at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	cfg := &config{
		store:       storage.NewMemoryStorage(),
		mode:        auth.ModeHeader,
		logger:      logging.Discard(),
		autoRefresh: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	restOpts := []rest.Option{
		rest.WithLogger(cfg.logger),
		rest.WithAutoRefresh(cfg.autoRefresh),
	}
	if cfg.httpClient != nil {
		restOpts = append(restOpts, rest.WithHTTPClient(cfg.httpClient))
	}
	if cfg.timeout > 0 {
		restOpts = append(restOpts, rest.WithTimeout(cfg.timeout))
	}
	rc := rest.New(baseURL, restOpts...)

	store := auth.NewCredentialStore(cfg.store)
	svc := auth.NewService(rc, store, cfg.mode, auth.WithLogger(cfg.logger))
	rc.SetCredentials(svc)

	if cfg.tenant != "" {
		if err := store.SetTenant(context.Background(), cfg.tenant); err != nil {
			return nil, err
		}
	}

	wsURL := cfg.wsURL
	if wsURL == "" {
		wsURL = websocketURL(rc.BaseURL())
	}
	// The dial credential is resolved per attempt, so reconnects after a
	// refresh carry the new token.
	sock := realtime.NewWebSocket(wsURL, func(ctx context.Context) (string, error) {
		if err := svc.EnsureFresh(ctx); err != nil {
			cfg.logger.Warn(ctx, "pre-dial token refresh failed, dialing with stored credential", "error", err)
		}
		return svc.AccessToken(ctx)
	}, realtime.WithSocketLogger(cfg.logger))

	return &Client{
		REST:     rc,
		Auth:     svc,
		Realtime: realtime.NewConn(sock, cfg.logger),

		Files:         resources.NewFiles(rc),
		Users:         resources.NewUsers(rc),
		Roles:         resources.NewRoles(rc),
		Permissions:   resources.NewPermissions(rc),
		Settings:      resources.NewSettings(rc),
		Schemas:       resources.NewSchemas(rc),
		Reports:       resources.NewReports(rc),
		Workflows:     resources.NewWorkflows(rc),
		Migrations:    resources.NewMigrations(rc),
		Notifications: resources.NewNotifications(rc),

		store:  cfg.store,
		logger: cfg.logger,
	}, nil
}

// Items returns the module for one named collection.
func (c *Client) Items(collection string) *resources.Items {
	return resources.NewItems(c.REST, collection)
}

// SetTenant switches the tenant for subsequent requests.
func (c *Client) SetTenant(ctx context.Context, tenant string) error {
	return c.Auth.Store().SetTenant(ctx, tenant)
}

// OnAuthLost registers the notification fired when the pipeline exhausts its
// refresh-and-retry pass. Typical handlers route the user back to login.
func (c *Client) OnAuthLost(fn func()) {
	c.REST.OnAuthLost(fn)
}

// OnTokensRefreshed registers the notification fired after every successful
// token refresh, proactive or reactive.
func (c *Client) OnTokensRefreshed(fn func(auth.TokenPair)) {
	c.Auth.OnTokensRefreshed(fn)
}

// Close releases the realtime connection and the credential storage.
func (c *Client) Close() error {
	err := c.Realtime.Disconnect()
	if closer, ok := c.store.(interface{ Close() error }); ok {
		if cerr := closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// websocketURL derives the realtime endpoint from the REST base URL:
// http(s) becomes ws(s) and the well-known /ws path is appended.
func websocketURL(baseURL string) string {
	u := baseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}
