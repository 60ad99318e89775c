// Package config loads the settings shared by the MCP server commands.
//
// Values come from an optional YAML file first, then from the environment,
// then from defaults. Secrets are only read from the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// PathEnv names the variable holding the config file path.
const PathEnv = "MCP_TWITTER_CONFIG"

// Config is the full server configuration.
type Config struct {
	Twitter  TwitterConfig  `yaml:"twitter"`
	Starknet StarknetConfig `yaml:"starknet"`
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
}

// TwitterConfig selects the auth mode and carries its credentials.
type TwitterConfig struct {
	AuthMode string `yaml:"auth_mode"`

	Username   string `yaml:"-"`
	Password   string `yaml:"-"`
	Email      string `yaml:"-"`
	TOTPSecret string `yaml:"-"`
	// AuthToken and CT0 seed the session with existing cookies.
	AuthToken  string `yaml:"-"`
	CT0        string `yaml:"-"`

	APIKey            string `yaml:"-"`
	APISecret         string `yaml:"-"`
	AccessToken       string `yaml:"-"`
	AccessTokenSecret string `yaml:"-"`

	Proxy           string        `yaml:"proxy"`
	SessionDir      string        `yaml:"session_dir"`
	SessionRedisURL string        `yaml:"session_redis_url"`
	SessionTTL      time.Duration `yaml:"session_ttl"`
	CapsolverAPIKey string        `yaml:"-"`
}

// StarknetConfig points the deployer at a JSON-RPC node.
type StarknetConfig struct {
	RPCURL              string        `yaml:"rpc_url"`
	FeeMultiplier       float64       `yaml:"fee_multiplier"`
	ReceiptPollInterval time.Duration `yaml:"receipt_poll_interval"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig tunes the MCP server.
type ServerConfig struct {
	ToolTimeout time.Duration `yaml:"tool_timeout"`
}

// Load reads path when it is not empty, applies environment overrides from
// lookup and fills defaults. lookup has the signature of os.LookupEnv.
func Load(path string, lookup func(string) (string, bool)) (*Config, error) {
	var cfg Config
	if strings.TrimSpace(path) != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("TWITTER_AUTH_MODE", &c.Twitter.AuthMode)
	str("TWITTER_USERNAME", &c.Twitter.Username)
	str("TWITTER_PASSWORD", &c.Twitter.Password)
	str("TWITTER_EMAIL", &c.Twitter.Email)
	str("TWITTER_2FA_SECRET", &c.Twitter.TOTPSecret)
	str("TWITTER_AUTH_TOKEN", &c.Twitter.AuthToken)
	str("TWITTER_CT0", &c.Twitter.CT0)
	str("TWITTER_API", &c.Twitter.APIKey)
	str("TWITTER_API_SECRET", &c.Twitter.APISecret)
	str("TWITTER_ACCESS_TOKEN", &c.Twitter.AccessToken)
	str("TWITTER_ACCESS_TOKEN_SECRET", &c.Twitter.AccessTokenSecret)
	str("TWITTER_PROXY", &c.Twitter.Proxy)
	str("TWITTER_SESSION_DIR", &c.Twitter.SessionDir)
	str("TWITTER_SESSION_REDIS_URL", &c.Twitter.SessionRedisURL)
	str("CAPSOLVER_API_KEY", &c.Twitter.CapsolverAPIKey)
	str("STARKNET_RPC_URL", &c.Starknet.RPCURL)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	var errs []error
	if v, ok := lookup("STARKNET_FEE_MULTIPLIER"); ok && strings.TrimSpace(v) != "" {
		m, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("config: STARKNET_FEE_MULTIPLIER: %w", err))
		case m <= 0:
			errs = append(errs, fmt.Errorf("config: STARKNET_FEE_MULTIPLIER: must be positive, got %v", m))
		default:
			c.Starknet.FeeMultiplier = m
		}
	}
	if v, ok := lookup("MCP_TOOL_TIMEOUT"); ok && strings.TrimSpace(v) != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("config: MCP_TOOL_TIMEOUT: %w", err))
		} else {
			c.Server.ToolTimeout = d
		}
	}
	return errors.Join(errs...)
}

func (c *Config) applyDefaults() {
	if c.Twitter.SessionTTL <= 0 {
		c.Twitter.SessionTTL = 24 * time.Hour
	}
	if c.Starknet.FeeMultiplier <= 0 {
		c.Starknet.FeeMultiplier = 1.5
	}
	if c.Starknet.ReceiptPollInterval <= 0 {
		c.Starknet.ReceiptPollInterval = 3 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Server.ToolTimeout <= 0 {
		c.Server.ToolTimeout = 2 * time.Minute
	}
}

// NewLogger builds a logger writing to w in the configured format and level.
// Unknown levels fall back to info.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
