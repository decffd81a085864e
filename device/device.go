package device

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"sync"

	"github.com/google/uuid"
)

// Type is the coarse device class reported to the backend.
type Type string

const (
	TypeDesktop Type = "DESKTOP"
	TypeMobile  Type = "MOBILE"
	TypeTablet  Type = "TABLET"
)

// StorageKey is the persisted key holding the device id.
const StorageKey = "device_id"

var (
	tabletPattern = regexp.MustCompile(`(?i)Tablet|iPad`)
	mobilePattern = regexp.MustCompile(`(?i)Mobi|Android`)
)

// Classify maps a user-agent string to a device type. Tablet patterns are
// checked before mobile ones.
func Classify(userAgent string) Type {
	switch {
	case tabletPattern.MatchString(userAgent):
		return TypeTablet
	case mobilePattern.MatchString(userAgent):
		return TypeMobile
	default:
		return TypeDesktop
	}
}

// Identity is the device id and type attached to auth requests.
type Identity struct {
	DeviceID   string
	DeviceType Type
}

// Storage is the subset of session storage the provider needs.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Provider returns a stable device identity.
type Provider struct {
	storage   Storage
	userAgent func() string
	newID     func() string
	logger    *slog.Logger

	mu       sync.Mutex
	deviceID string
}

// Option customizes a Provider.
type Option func(*Provider)

// WithUserAgent sets the user-agent source consulted on every call.
func WithUserAgent(fn func() string) Option {
	return func(p *Provider) {
		if fn != nil {
			p.userAgent = fn
		}
	}
}

// WithIDGenerator replaces uuid.NewString.
func WithIDGenerator(fn func() string) Option {
	return func(p *Provider) {
		if fn != nil {
			p.newID = fn
		}
	}
}

// WithLogger sets the logger for swallowed storage failures.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

func NewProvider(storage Storage, opts ...Option) *Provider {
	p := &Provider{
		storage:   storage,
		userAgent: func() string { return "" },
		newID:     uuid.NewString,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Identity returns the persisted device id, creating it on first use, and
// the device type for the current user agent. It never fails: when storage
// cannot be read or written the id generated for this process is used and
// the failure is logged.
func (p *Provider) Identity(ctx context.Context) Identity {
	return Identity{
		DeviceID:   p.id(ctx),
		DeviceType: Classify(p.userAgent()),
	}
}

func (p *Provider) id(ctx context.Context) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.deviceID != "" {
		return p.deviceID
	}

	persist := p.storage != nil
	if persist {
		stored, ok, err := p.storage.Get(ctx, StorageKey)
		switch {
		case err != nil:
			// an unreadable id may still exist; never overwrite it
			p.logger.Warn("device id read failed, using process-local id", "error", err)
			persist = false
		case ok && stored != "":
			p.deviceID = stored
			return stored
		}
	}

	id := p.newID()
	if persist {
		if err := p.storage.Set(ctx, StorageKey, id); err != nil {
			p.logger.Warn("device id not persisted", "error", err)
		}
	}
	p.deviceID = id
	return id
}
