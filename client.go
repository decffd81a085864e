package goShop

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/MrEthical07/goShop/device"
	"github.com/MrEthical07/goShop/internal/api"
	internalaudit "github.com/MrEthical07/goShop/internal/audit"
	"github.com/MrEthical07/goShop/internal/flows"
	"github.com/MrEthical07/goShop/session"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// Client is the storefront client: session, device identity, auth flows,
// wishlist and catalog fetches over one backend.
//
// Client methods are safe for concurrent use.
type Client struct {
	config Config
	logger *slog.Logger
	clock  flows.Clock

	storage    session.Storage
	ownedRedis redis.UniversalClient
	sessions   *session.Store
	devices    *device.Provider
	api        *api.Client
	catalog    *flows.Catalog
	metrics    *Metrics
	audit      *internalaudit.Dispatcher

	mu           sync.Mutex
	closed       bool
	authFlows    []*flows.AuthFlow
	unsubscribes []func()
}

// Close closes every auth flow created by the client, drains the audit
// queue and closes a Redis client the builder created. Later calls are
// no-ops.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	authFlows := c.authFlows
	unsubscribes := c.unsubscribes
	c.authFlows = nil
	c.unsubscribes = nil
	c.mu.Unlock()

	for _, f := range authFlows {
		f.Close()
	}
	for _, unsubscribe := range unsubscribes {
		unsubscribe()
	}
	c.audit.Close()
	c.closeRedis()
}

func (c *Client) closeRedis() {
	if c.ownedRedis == nil {
		return
	}
	if err := c.ownedRedis.Close(); err != nil {
		c.logger.Warn("redis close failed", "error", err)
	}
	c.ownedRedis = nil
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Config returns a copy of the validated configuration.
func (c *Client) Config() Config {
	return cloneConfig(c.config)
}

// BaseURL returns the normalized backend root.
func (c *Client) BaseURL() string {
	return c.api.BaseURL()
}

/*
====================================
SESSION
====================================
*/

// Restore loads the persisted session. Absent, torn or malformed data
// restores as unauthenticated; it never fails.
func (c *Client) Restore(ctx context.Context) Session {
	if c.isClosed() {
		return Session{}
	}
	sess := c.sessions.Restore(ctx)
	if sess.Authenticated() {
		c.metricInc(MetricSessionRestored)
	}
	return sess
}

// Session returns the current in-memory session.
func (c *Client) Session() Session {
	return c.sessions.Current()
}

// Logout clears user, access token and refresh token. It is idempotent and
// keeps the device id.
func (c *Client) Logout(ctx context.Context) error {
	if c.isClosed() {
		return ErrClientClosed
	}
	prev := c.sessions.Current()
	err := c.sessions.Logout(ctx)
	if prev.Authenticated() {
		c.metricInc(MetricLogout)
	}

	var uid string
	if prev.User != nil {
		uid = prev.User.ID
	}
	c.emitAudit(ctx, AuditEvent{
		EventType: auditEventLogout,
		UserID:    uid,
		Success:   err == nil,
		Error:     errorString(err),
	})
	return err
}

// Subscribe registers fn for every session change. The returned func
// unsubscribes.
func (c *Client) Subscribe(fn func(Session)) func() {
	return c.sessions.Subscribe(fn)
}

// DeviceIdentity returns the persisted device id and the device type.
func (c *Client) DeviceIdentity(ctx context.Context) DeviceIdentity {
	return c.devices.Identity(ctx)
}

/*
====================================
FLOWS
====================================
*/

// NewAuthFlow returns an auth flow bound to the client's session. It starts
// in StateAuthenticated when a session is already present.
func (c *Client) NewAuthFlow() (*AuthFlow, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClientClosed
	}

	f, err := flows.NewAuthFlow(flows.AuthDeps{
		API:              c.api,
		Sessions:         c.sessions,
		Devices:          c.devices,
		Clock:            c.clock,
		DefaultOTPExpiry: int(c.config.Auth.DefaultOTPExpiry / time.Second),
		ErrorClearDelay:  c.config.Auth.ErrorClearDelay,
		TickInterval:     c.config.Auth.TickInterval,
		Observer:         c.observer(),
	})
	if err != nil {
		return nil, err
	}
	c.authFlows = append(c.authFlows, f)
	return f, nil
}

// NewWishlist returns a wishlist for the current session. Its entries are
// forgotten when the session is logged out.
func (c *Client) NewWishlist() (*Wishlist, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClientClosed
	}

	w, err := flows.NewWishlist(flows.WishlistDeps{
		API:      c.api,
		Sessions: c.sessions,
		Observer: c.observer(),
	})
	if err != nil {
		return nil, err
	}
	unsubscribe := c.sessions.Subscribe(func(s Session) {
		if !s.Authenticated() {
			w.Reset()
		}
	})
	c.unsubscribes = append(c.unsubscribes, unsubscribe)
	return w, nil
}

/*
====================================
CATALOG
====================================
*/

// FetchBanners loads the banner list. Backend failures yield an empty ready
// list; the only error is ErrClientClosed.
func (c *Client) FetchBanners(ctx context.Context) (BannerResult, error) {
	if c.isClosed() {
		return BannerResult{}, ErrClientClosed
	}
	return c.catalog.LoadBanners(ctx), nil
}

// FetchProducts loads and groups the product list. Backend failures are
// reported in the result, not as an error.
func (c *Client) FetchProducts(ctx context.Context) (ProductResult, error) {
	if c.isClosed() {
		return ProductResult{}, ErrClientClosed
	}
	return c.catalog.LoadProducts(ctx), nil
}

// FetchStorefront loads banners and products concurrently.
func (c *Client) FetchStorefront(ctx context.Context) (Storefront, error) {
	if c.isClosed() {
		return Storefront{}, ErrClientClosed
	}

	var out Storefront
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out.Banners = c.catalog.LoadBanners(gctx)
		return nil
	})
	g.Go(func() error {
		out.Products = c.catalog.LoadProducts(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Storefront{}, err
	}
	return out, nil
}

/*
====================================
METRICS / AUDIT
====================================
*/

// Metrics returns the client's counter set for exporters.
func (c *Client) Metrics() *Metrics {
	return c.metrics
}

// MetricsSnapshot returns a copy of all counters.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
			Sums:       map[MetricID]time.Duration{},
		}
	}
	return c.metrics.Snapshot()
}

// AuditDropped returns the number of audit events dropped on a full queue.
func (c *Client) AuditDropped() uint64 {
	if c == nil || c.audit == nil {
		return 0
	}
	return c.audit.Dropped()
}

func (c *Client) metricInc(id MetricID) {
	if c == nil || c.metrics == nil {
		return
	}
	c.metrics.Inc(id)
}

func (c *Client) observer() flows.Observer {
	return flows.Observer{
		MetricInc: c.metricInc,
		Emit:      c.emitAudit,
		Logger:    c.logger,
	}
}
