package twitter

import (
	"time"

	"github.com/0xhijo/mcp-twitter/captcha"
	"github.com/anatolykoptev/go-stealth/ratelimit"
)

// ClientConfig holds all configuration for the scraper session.
type ClientConfig struct {
	// Username, Password and Email are the login credentials of the session account.
	// Email answers the alternate-identifier and email-confirmation login challenges.
	Username string
	Password string
	Email    string

	// TOTPSecret is the base32 2FA secret, used when the login flow asks for a code.
	TOTPSecret string

	// AuthToken and CT0 seed the session with existing cookies and skip the login flow.
	AuthToken string
	CT0       string

	// Proxy is the optional proxy URL for all requests.
	Proxy string

	// Sessions persists cookies between restarts.
	// Default: file store under ~/.mcp-twitter/sessions
	Sessions SessionStore

	// SessionTTL controls how long saved sessions are considered valid.
	SessionTTL time.Duration

	// LockCooldown is how long requests fail fast after the account is locked or banned.
	LockCooldown time.Duration

	// LoginTimeout bounds the whole onboarding flow.
	LoginTimeout time.Duration

	// CaptchaSolver is the optional CAPTCHA solver for locked accounts.
	CaptchaSolver captcha.Solver

	// RateLimit configures per-endpoint rate limiting.
	RateLimit ratelimit.Config

	// MetricsHook is called on each API request for external metrics collection.
	// endpoint is the operation name, success and rateLimited indicate the outcome.
	MetricsHook func(endpoint string, success, rateLimited bool)
}

// defaults fills in zero-value config fields with sensible defaults.
func (cfg *ClientConfig) defaults() {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.LockCooldown == 0 {
		cfg.LockCooldown = 1 * time.Hour
	}
	if cfg.LoginTimeout == 0 {
		cfg.LoginTimeout = 3 * time.Minute
	}
	if cfg.RateLimit.RequestsPerWindow == 0 {
		cfg.RateLimit = ratelimit.DefaultConfig
	}
	if cfg.Sessions == nil {
		cfg.Sessions = NewFileSessionStore("")
	}
}
