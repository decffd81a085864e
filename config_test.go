package goShop

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults valid",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "base url blank invalid",
			mutate: func(c *Config) {
				c.API.BaseURL = "  "
			},
			wantValid: false,
		},
		{
			name: "base url relative invalid",
			mutate: func(c *Config) {
				c.API.BaseURL = "/api"
			},
			wantValid: false,
		},
		{
			name: "base url ftp invalid",
			mutate: func(c *Config) {
				c.API.BaseURL = "ftp://shop.example.com"
			},
			wantValid: false,
		},
		{
			name: "negative timeout invalid",
			mutate: func(c *Config) {
				c.API.Timeout = -time.Second
			},
			wantValid: false,
		},
		{
			name: "limiter without burst invalid",
			mutate: func(c *Config) {
				c.API.RequestsPerSecond = 5
			},
			wantValid: false,
		},
		{
			name: "limiter with burst valid",
			mutate: func(c *Config) {
				c.API.RequestsPerSecond = 5
				c.API.Burst = 2
			},
			wantValid: true,
		},
		{
			name: "memory backend valid",
			mutate: func(c *Config) {
				c.Storage.Backend = StorageMemory
				c.Storage.FilePath = ""
			},
			wantValid: true,
		},
		{
			name: "file backend without path invalid",
			mutate: func(c *Config) {
				c.Storage.FilePath = ""
			},
			wantValid: false,
		},
		{
			name: "redis backend without prefix invalid",
			mutate: func(c *Config) {
				c.Storage.Backend = StorageRedis
				c.Storage.RedisPrefix = ""
			},
			wantValid: false,
		},
		{
			name: "unknown backend invalid",
			mutate: func(c *Config) {
				c.Storage.Backend = "sqlite"
			},
			wantValid: false,
		},
		{
			name: "sub-second otp expiry invalid",
			mutate: func(c *Config) {
				c.Auth.DefaultOTPExpiry = 500 * time.Millisecond
			},
			wantValid: false,
		},
		{
			name: "zero error clear delay invalid",
			mutate: func(c *Config) {
				c.Auth.ErrorClearDelay = 0
			},
			wantValid: false,
		},
		{
			name: "verify key with unknown method invalid",
			mutate: func(c *Config) {
				c.Token.VerifyKey = []byte("secret")
				c.Token.SigningMethod = "rs256"
			},
			wantValid: false,
		},
		{
			name: "hs256 verify key valid",
			mutate: func(c *Config) {
				c.Token.VerifyKey = []byte("secret")
				c.Token.SigningMethod = "hs256"
			},
			wantValid: true,
		},
		{
			name: "token leeway too large invalid",
			mutate: func(c *Config) {
				c.Token.Leeway = 3 * time.Minute
			},
			wantValid: false,
		},
		{
			name: "audit enabled without buffer invalid",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
		{
			name: "latency histograms without metrics invalid",
			mutate: func(c *Config) {
				c.Metrics.EnableLatencyHistograms = true
			},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatalf("expected invalid config")
			}
		})
	}
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.API.BaseURL != DefaultBaseURL {
		t.Fatalf("base url = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 0 {
		t.Fatalf("default timeout should be unbounded, got %v", cfg.API.Timeout)
	}
	if cfg.Auth.DefaultOTPExpiry != 180*time.Second || cfg.Auth.ErrorClearDelay != 4*time.Second {
		t.Fatalf("unexpected auth defaults %+v", cfg.Auth)
	}
	if cfg.Storage.Backend != StorageFile || cfg.Storage.RedisPrefix != "gs" {
		t.Fatalf("unexpected storage defaults %+v", cfg.Storage)
	}
}

func TestCloneConfigCopiesVerifyKey(t *testing.T) {
	cfg := defaultConfig()
	cfg.Token.VerifyKey = []byte("secret")

	clone := cloneConfig(cfg)
	clone.Token.VerifyKey[0] = 'X'
	if string(cfg.Token.VerifyKey) != "secret" {
		t.Fatalf("clone shares the verify key slice")
	}
}
