// Package cliconfig loads goshop CLI settings with viper and maps them onto
// the client configuration.
package cliconfig

import (
	"errors"
	"fmt"
	"strings"
	"time"

	goShop "github.com/MrEthical07/goShop"
	"github.com/spf13/viper"
)

// Config is the CLI configuration read from .goshop.yaml and GOSHOP_* variables.
type Config struct {
	Server  string        `mapstructure:"server"`
	Timeout time.Duration `mapstructure:"timeout"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
	Output  OutputConfig  `mapstructure:"output"`
	Audit   AuditConfig   `mapstructure:"audit"`
}

type StorageConfig struct {
	Backend       string `mapstructure:"backend"`
	File          string `mapstructure:"file"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisPrefix   string `mapstructure:"redis_prefix"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type OutputConfig struct {
	Colors bool   `mapstructure:"colors"`
	Color  string `mapstructure:"color"`
}

// AuditConfig enables the JSON audit stream on stderr.
type AuditConfig struct {
	Enabled  bool `mapstructure:"enabled"`
	Payloads bool `mapstructure:"payloads"`
}

// Load reads cfgFile, or .goshop.yaml from the working directory or
// $HOME/.config/goshop, then GOSHOP_* variables. A non-empty server
// overrides the configured one. A missing config file is not an error.
func Load(cfgFile, server string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".goshop")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/goshop")
	}

	v.SetEnvPrefix("GOSHOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if server != "" {
		v.Set("server", server)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := goShop.DefaultConfig()

	v.SetDefault("server", def.API.BaseURL)
	v.SetDefault("timeout", 30*time.Second)

	v.SetDefault("storage.backend", string(def.Storage.Backend))
	v.SetDefault("storage.file", def.Storage.FilePath)
	v.SetDefault("storage.redis_addr", def.Storage.RedisAddr)
	v.SetDefault("storage.redis_password", "")
	v.SetDefault("storage.redis_db", 0)
	v.SetDefault("storage.redis_prefix", def.Storage.RedisPrefix)

	v.SetDefault("logging.level", "info")

	v.SetDefault("output.colors", true)
	v.SetDefault("output.color", "auto")

	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.payloads", false)
}

// Validate checks the CLI-only settings. Client settings are validated again
// when the client is built.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server) == "" {
		return errors.New("server must not be empty")
	}
	if c.Timeout < 0 {
		return errors.New("timeout must be >= 0")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level %q: must be debug, info, warn, or error", c.Logging.Level)
	}
	switch goShop.StorageBackend(c.Storage.Backend) {
	case goShop.StorageFile, goShop.StorageRedis, goShop.StorageMemory:
	default:
		return fmt.Errorf("invalid storage.backend %q: must be file, redis, or memory", c.Storage.Backend)
	}
	return nil
}

// ClientConfig maps the CLI settings onto a client configuration. Metrics
// and latency histograms are always on so the metrics command has data.
func (c *Config) ClientConfig() goShop.Config {
	cfg := goShop.DefaultConfig()
	cfg.API.BaseURL = c.Server
	cfg.API.Timeout = c.Timeout
	cfg.API.UserAgent = "goshop-cli"

	cfg.Storage.Backend = goShop.StorageBackend(c.Storage.Backend)
	cfg.Storage.FilePath = c.Storage.File
	cfg.Storage.RedisAddr = c.Storage.RedisAddr
	cfg.Storage.RedisPassword = c.Storage.RedisPassword
	cfg.Storage.RedisDB = c.Storage.RedisDB
	cfg.Storage.RedisPrefix = c.Storage.RedisPrefix

	cfg.Audit.Enabled = c.Audit.Enabled
	cfg.Audit.IncludePayloads = c.Audit.Payloads

	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}
