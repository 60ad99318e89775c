package twitter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
)

// httpDoer is the transport used by the session. *stealth.BrowserClient implements it.
type httpDoer interface {
	DoWithHeaderOrder(method, url string, headers map[string]string, body io.Reader, order []string) ([]byte, map[string]string, int, error)
	GetCookieValue(url, name string) string
}

// Client is a logged-in scraper session for a single account.
type Client struct {
	http httpDoer
	acc  *Account
	cfg  ClientConfig

	jitter  func(ctx context.Context) error
	backoff func(attempt int) time.Duration

	loginMu sync.Mutex

	mu      sync.Mutex
	userIDs map[string]string
}

// NewClient creates the browser client, restores or creates the session and
// resolves the account identity.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.Username == "" {
		return nil, errors.New("twitter: username is required")
	}
	cfg.defaults()
	acc := newAccount(cfg)

	opts := []stealth.ClientOption{
		stealth.WithHeaderOrder(headerOrder),
		stealth.WithProfile(acc.Profile.TLSProfile),
	}
	if cfg.Proxy != "" {
		opts = append(opts, stealth.WithProxy(cfg.Proxy))
	}
	bc, err := stealth.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("stealth client: %w", err)
	}

	c := newClient(cfg, acc, bc)
	if err := c.loadOrLogin(ctx); err != nil {
		return nil, err
	}

	me, err := c.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve own account: %w", err)
	}
	slog.Info("twitter session ready",
		slog.String("user", acc.Username),
		slog.String("screen_name", me.Handle),
		slog.String("user_id", me.ID))
	return c, nil
}

func newClient(cfg ClientConfig, acc *Account, doer httpDoer) *Client {
	return &Client{
		http:    doer,
		acc:     acc,
		cfg:     cfg,
		jitter:  stealth.DefaultJitter.Sleep,
		backoff: stealth.DefaultBackoff.Duration,
		userIDs: make(map[string]string),
	}
}

// Account returns the session account.
func (c *Client) Account() *Account {
	return c.acc
}

// UserID returns the rest id of the logged-in account.
func (c *Client) UserID() string {
	id, _ := c.acc.Identity()
	return id
}

// Username returns the screen name of the logged-in account.
func (c *Client) Username() string {
	_, name := c.acc.Identity()
	return name
}

// doRequest executes a request with the account's browser fingerprint.
func (c *Client) doRequest(method, urlStr string, headers map[string]string, body io.Reader) ([]byte, map[string]string, int, error) {
	return c.http.DoWithHeaderOrder(method, urlStr, headers, body, headerOrder)
}

// recordAPICall calls the metrics hook if configured.
func (c *Client) recordAPICall(endpoint string, success, rateLimited bool) {
	if c.cfg.MetricsHook != nil {
		c.cfg.MetricsHook(endpoint, success, rateLimited)
	}
}

// cachedUserID returns a previously resolved rest id for a handle.
func (c *Client) cachedUserID(handle string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.userIDs[strings.ToLower(handle)]
	return id, ok
}

func (c *Client) cacheUserID(handle, id string) {
	if handle == "" || id == "" {
		return
	}
	c.mu.Lock()
	c.userIDs[strings.ToLower(handle)] = id
	c.mu.Unlock()
}
