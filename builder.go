package goShop

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/MrEthical07/goShop/device"
	"github.com/MrEthical07/goShop/internal/api"
	internalaudit "github.com/MrEthical07/goShop/internal/audit"
	"github.com/MrEthical07/goShop/internal/flows"
	"github.com/MrEthical07/goShop/jwt"
	"github.com/MrEthical07/goShop/session"
	"github.com/redis/go-redis/v9"
)

// Builder assembles a Client. A Builder is single-use.
//
// Builder instances are intended to be configured during initialization and then treated as immutable.
type Builder struct {
	config Config

	storage    session.Storage
	redis      redis.UniversalClient
	httpClient *http.Client
	logger     *slog.Logger
	auditSink  AuditSink
	clock      flows.Clock
	idGen      func() string

	built bool
}

// New returns a Builder seeded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBaseURL overrides API.BaseURL.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.API.BaseURL = baseURL
	return b
}

// WithStorage supplies the storage directly; Storage.Backend is then ignored.
func (b *Builder) WithStorage(storage Storage) *Builder {
	b.storage = storage
	return b
}

// WithRedis supplies the Redis client for the redis backend. The caller
// keeps ownership of the client.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithHTTPClient supplies the HTTP client used for backend calls.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithLogger sets the structured logger. The default discards everything.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the audit sink and enables the audit stream.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithClock replaces the clock driving countdowns and notice timers.
func (b *Builder) WithClock(clock Clock) *Builder {
	b.clock = clock
	return b
}

// WithDeviceIDGenerator replaces the device id generator (default: random UUID v4).
func (b *Builder) WithDeviceIDGenerator(fn func() string) *Builder {
	b.idGen = fn
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the client. It performs no
// network or storage I/O except creating the storage file's directory;
// call Client.Restore to load a persisted session.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	clock := b.clock
	if clock == nil {
		clock = flows.SystemClock{}
	}

	c := &Client{
		config: cfg,
		logger: logger,
		clock:  clock,
	}

	// -------- STORAGE --------
	storage, ownedRedis, err := b.buildStorage(cfg, logger)
	if err != nil {
		return nil, err
	}
	c.storage = storage
	c.ownedRedis = ownedRedis

	// -------- TOKEN INSPECTOR --------
	inspector, err := jwt.NewInspector(jwt.Config{
		SigningMethod: jwt.SigningMethod(cfg.Token.SigningMethod),
		VerifyKey:     cfg.Token.VerifyKey,
		Leeway:        cfg.Token.Leeway,
	})
	if err != nil {
		c.closeRedis()
		return nil, fmt.Errorf("token inspector: %w", err)
	}

	// -------- SESSION + DEVICE --------
	c.sessions = session.NewStore(storage, inspector, logger)

	deviceOpts := []device.Option{
		device.WithLogger(logger),
		device.WithUserAgent(func() string { return cfg.Device.UserAgent }),
	}
	if b.idGen != nil {
		deviceOpts = append(deviceOpts, device.WithIDGenerator(b.idGen))
	}
	c.devices = device.NewProvider(storage, deviceOpts...)

	// -------- METRICS + AUDIT --------
	c.metrics = NewMetrics(cfg.Metrics)
	if cfg.Audit.Enabled {
		sink := b.auditSink
		if sink == nil {
			sink = internalaudit.NewSlogSink(logger)
		}
		c.audit = internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    true,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, sink)
	}

	// -------- TRANSPORT --------
	apiClient, err := api.New(api.Options{
		BaseURL:           cfg.API.BaseURL,
		HTTPClient:        b.httpClient,
		Timeout:           cfg.API.Timeout,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Burst:             cfg.API.Burst,
		UserAgent:         cfg.API.UserAgent,
		Observer:          c.observeExchange,
	})
	if err != nil {
		c.audit.Close()
		c.closeRedis()
		return nil, err
	}
	c.api = apiClient
	c.catalog = flows.NewCatalog(apiClient, c.observer(), clock)

	b.built = true
	return c, nil
}

func (b *Builder) buildStorage(cfg Config, logger *slog.Logger) (session.Storage, redis.UniversalClient, error) {
	if b.storage != nil {
		return b.storage, nil, nil
	}

	switch cfg.Storage.Backend {
	case StorageMemory:
		return session.NewMemoryStorage(), nil, nil
	case StorageFile:
		fs, err := session.NewFileStorage(cfg.Storage.FilePath, session.WithFileLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return fs, nil, nil
	case StorageRedis:
		if b.redis != nil {
			return session.NewRedisStorage(b.redis, cfg.Storage.RedisPrefix), nil, nil
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.RedisAddr,
			Password: cfg.Storage.RedisPassword,
			DB:       cfg.Storage.RedisDB,
		})
		return session.NewRedisStorage(rdb, cfg.Storage.RedisPrefix), rdb, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
