package goShop

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MrEthical07/goShop/jwt"
)

// DefaultBaseURL is the storefront backend used when none is configured.
const DefaultBaseURL = "https://ecommerce-backend-ofi8.onrender.com"

// Config defines the client configuration.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	API     APIConfig
	Storage StorageConfig
	Device  DeviceConfig
	Auth    AuthConfig
	Token   TokenConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig controls the backend transport.
//
// Timeout 0 means no client-side timeout; the caller's context still applies.
// RequestsPerSecond 0 disables the outbound limiter.
type APIConfig struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	UserAgent         string
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageBackend selects where session and device data are persisted.
type StorageBackend string

const (
	StorageFile   StorageBackend = "file"
	StorageRedis  StorageBackend = "redis"
	StorageMemory StorageBackend = "memory"
)

// StorageConfig selects and configures the durable key-value storage.
type StorageConfig struct {
	Backend StorageBackend

	// FilePath is used by the file backend.
	FilePath string

	// Redis fields are used by the redis backend when no client is supplied
	// through Builder.WithRedis.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

/*
====================================
DEVICE CONFIG
====================================
*/

// DeviceConfig controls device classification.
type DeviceConfig struct {
	// UserAgent is classified into DESKTOP, MOBILE or TABLET. Empty
	// classifies as DESKTOP.
	UserAgent string
}

/*
====================================
AUTH CONFIG
====================================
*/

// AuthConfig controls the auth flow timing.
type AuthConfig struct {
	// DefaultOTPExpiry applies when the backend omits otpExpiresIn.
	DefaultOTPExpiry time.Duration
	ErrorClearDelay  time.Duration
	TickInterval     time.Duration
}

// TokenConfig controls access-token inspection. Without a VerifyKey claims
// are decoded but not verified.
type TokenConfig struct {
	SigningMethod string // "ed25519" or "hs256"; only used with VerifyKey
	VerifyKey     []byte
	Leeway        time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the diagnostic event stream.
//
// IncludePayloads attaches redacted request and response bodies to
// transport events.
type AuditConfig struct {
	Enabled         bool
	BufferSize      int
	DropIfFull      bool
	IncludePayloads bool
}

// MetricsConfig enables in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the configuration used by New.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:   DefaultBaseURL,
			UserAgent: "goshop",
		},
		Storage: StorageConfig{
			Backend:     StorageFile,
			FilePath:    defaultStoragePath(),
			RedisAddr:   "127.0.0.1:6379",
			RedisPrefix: "gs",
		},
		Auth: AuthConfig{
			DefaultOTPExpiry: 180 * time.Second,
			ErrorClearDelay:  4 * time.Second,
			TickInterval:     time.Second,
		},
		Token: TokenConfig{
			SigningMethod: string(jwt.MethodEd25519),
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func defaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".goshop", "storage.json")
	}
	return filepath.Join(home, ".goshop", "storage.json")
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.VerifyKey = cloneBytes(cfg.Token.VerifyKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	// API
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("API BaseURL must be set")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.New("API BaseURL must be an absolute http(s) URL")
	}
	if c.API.Timeout < 0 {
		return errors.New("API Timeout must be >= 0")
	}
	if c.API.RequestsPerSecond < 0 {
		return errors.New("API RequestsPerSecond must be >= 0")
	}
	if c.API.RequestsPerSecond > 0 && c.API.Burst < 1 {
		return errors.New("API Burst must be >= 1 when RequestsPerSecond is set")
	}

	// Storage
	switch c.Storage.Backend {
	case StorageMemory:
	case StorageFile:
		if strings.TrimSpace(c.Storage.FilePath) == "" {
			return errors.New("Storage FilePath must be set for the file backend")
		}
	case StorageRedis:
		if strings.TrimSpace(c.Storage.RedisPrefix) == "" {
			return errors.New("Storage RedisPrefix must be set for the redis backend")
		}
		if c.Storage.RedisDB < 0 {
			return errors.New("Storage RedisDB must be >= 0")
		}
	default:
		return errors.New("Storage Backend must be 'file', 'redis' or 'memory'")
	}

	// Auth
	if c.Auth.DefaultOTPExpiry < time.Second {
		return errors.New("Auth DefaultOTPExpiry must be >= 1s")
	}
	if c.Auth.ErrorClearDelay <= 0 {
		return errors.New("Auth ErrorClearDelay must be > 0")
	}
	if c.Auth.TickInterval <= 0 {
		return errors.New("Auth TickInterval must be > 0")
	}

	// Token
	if len(c.Token.VerifyKey) > 0 &&
		c.Token.SigningMethod != string(jwt.MethodEd25519) &&
		c.Token.SigningMethod != string(jwt.MethodHS256) {
		return errors.New("unsupported Token SigningMethod")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("Token Leeway must be between 0 and 2m")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
