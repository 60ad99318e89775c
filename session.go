package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
)

// Session holds the cookie data persisted between restarts.
type Session struct {
	AuthToken string    `json:"auth_token"`
	CT0       string    `json:"ct0"`
	SavedAt   time.Time `json:"saved_at"`
}

// Valid reports whether the session has cookies and is younger than ttl.
func (s Session) Valid(ttl time.Duration) bool {
	if s.AuthToken == "" || s.CT0 == "" {
		return false
	}
	return ttl <= 0 || time.Since(s.SavedAt) <= ttl
}

// SessionStore persists sessions keyed by username.
// Load returns found=false without error when nothing is stored.
type SessionStore interface {
	Load(ctx context.Context, username string) (s Session, found bool, err error)
	Save(ctx context.Context, username string, s Session) error
	Delete(ctx context.Context, username string) error
}

// FileSessionStore keeps one JSON file per account.
type FileSessionStore struct {
	dir string
}

// NewFileSessionStore creates a file store rooted at dir.
// Default: ~/.mcp-twitter/sessions
func NewFileSessionStore(dir string) *FileSessionStore {
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".mcp-twitter", "sessions")
	}
	return &FileSessionStore{dir: dir}
}

func (f *FileSessionStore) path(username string) string {
	return filepath.Join(f.dir, username+".json")
}

// Load reads a session file.
func (f *FileSessionStore) Load(_ context.Context, username string) (Session, bool, error) {
	data, err := os.ReadFile(f.path(username))
	if err != nil {
		if os.IsNotExist(err) {
			return Session{}, false, nil
		}
		return Session{}, false, err
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, false, fmt.Errorf("decode session %s: %w", username, err)
	}
	return s, true, nil
}

// Save writes a session file with owner-only permissions.
func (f *FileSessionStore) Save(_ context.Context, username string, s Session) error {
	if err := os.MkdirAll(f.dir, 0700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	path := f.path(username)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write session %s: %w", path, err)
	}
	return nil
}

// Delete removes a session file. Missing files are not an error.
func (f *FileSessionStore) Delete(_ context.Context, username string) error {
	if err := os.Remove(f.path(username)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// RedisSessionStore shares sessions between replicas through Redis.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisSessionStore connects to the Redis URL and verifies it with PING.
func NewRedisSessionStore(ctx context.Context, rawURL string, ttl time.Duration) (*RedisSessionStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisSessionStore{client: client, prefix: "mcp-twitter:session:", ttl: ttl}, nil
}

// Load fetches the session stored under the account key.
func (r *RedisSessionStore) Load(ctx context.Context, username string) (Session, bool, error) {
	data, err := r.client.Get(ctx, r.prefix+username).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("redis get session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, false, fmt.Errorf("decode session %s: %w", username, err)
	}
	return s, true, nil
}

// Save stores the session with the store TTL.
func (r *RedisSessionStore) Save(ctx context.Context, username string, s Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.prefix+username, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

// Delete drops the stored session.
func (r *RedisSessionStore) Delete(ctx context.Context, username string) error {
	return r.client.Del(ctx, r.prefix+username).Err()
}

// Close releases the Redis connection pool.
func (r *RedisSessionStore) Close() error {
	return r.client.Close()
}

// persistSession saves the current account cookies, logging failures.
func (c *Client) persistSession(ctx context.Context) {
	authToken, ct0, _ := c.acc.Credentials()
	if authToken == "" {
		return
	}
	s := Session{AuthToken: authToken, CT0: ct0, SavedAt: time.Now()}
	if err := c.cfg.Sessions.Save(ctx, c.acc.Username, s); err != nil {
		slog.Warn("session save failed", slog.String("user", c.acc.Username), slog.Any("error", err))
		return
	}
	slog.Debug("session saved", slog.String("user", c.acc.Username))
}
