// Package auth selects how the Twitter tools reach Twitter: a logged-in
// scraper session (CREDENTIALS) or the official API with OAuth tokens (API).
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	twitter "github.com/0xhijo/mcp-twitter"
	"github.com/0xhijo/mcp-twitter/twitterapi"
)

// Mode is the value of TWITTER_AUTH_MODE.
type Mode string

const (
	ModeCredentials Mode = "CREDENTIALS"
	ModeAPI         Mode = "API"
)

var (
	// ErrCredentialsRequired is returned when a scraper-only tool runs in API mode.
	ErrCredentialsRequired = errors.New("You need to be in CREDENTIALS twitter_auth_mode")
	// ErrAPIRequired is returned when an API-only operation runs in CREDENTIALS mode.
	ErrAPIRequired = errors.New("You need to be in API twitter_auth_mode")
	// ErrInvalidMode is returned for an unknown TWITTER_AUTH_MODE.
	ErrInvalidMode = errors.New("invalid twitter_auth_mode")
)

// ParseMode validates a TWITTER_AUTH_MODE value.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.TrimSpace(s)); m {
	case ModeCredentials, ModeAPI:
		return m, nil
	case "":
		return "", fmt.Errorf("%w: TWITTER_AUTH_MODE is not set", ErrInvalidMode)
	default:
		return "", fmt.Errorf("%w: %q (want CREDENTIALS or API)", ErrInvalidMode, s)
	}
}

// Scraper is the subset of the scraper session the tools use.
type Scraper interface {
	Me(ctx context.Context) (*twitter.TwitterUser, error)
	SendTweet(ctx context.Context, text, inReplyToID string) (string, error)
	FollowUser(ctx context.Context, handle string) error
	GetProfile(ctx context.Context, handle string) (*twitter.TwitterUser, error)
	GetUserIDByScreenName(ctx context.Context, handle string) (string, error)
	GetLatestTweet(ctx context.Context, handle string) (*twitter.Tweet, error)
	GetTweets(ctx context.Context, handle string, maxTweets int) ([]*twitter.Tweet, error)
	GetTweetsAndReplies(ctx context.Context, handle string, maxTweets int) ([]*twitter.Tweet, error)
	GetTweetsAndRepliesByUserID(ctx context.Context, userID string, maxTweets int) ([]*twitter.Tweet, error)
	SearchTweets(ctx context.Context, query string, maxTweets int) ([]*twitter.Tweet, error)
}

// Poster is the subset of the API client the tools use.
type Poster interface {
	CreateTweet(ctx context.Context, text string) (*twitterapi.CreateTweetResponse, error)
}

var (
	_ Scraper = (*twitter.Client)(nil)
	_ Poster  = (*twitterapi.Client)(nil)
)

// ScraperSession is the CREDENTIALS variant.
type ScraperSession struct {
	Client   Scraper
	UserID   string
	Username string
}

// APISession is the API variant.
type APISession struct {
	APIKey            string
	APISecret         string
	AccessToken       string
	AccessTokenSecret string
	Client            Poster
}

// Manager holds exactly one of the two sessions for the process lifetime.
type Manager struct {
	mode    Mode
	scraper *ScraperSession
	api     *APISession
}

// NewCredentialsManager wraps a logged-in scraper session.
func NewCredentialsManager(s *ScraperSession) (*Manager, error) {
	if s == nil || s.Client == nil {
		return nil, errors.New("auth: scraper session without client")
	}
	if s.UserID == "" || s.Username == "" {
		return nil, errors.New("auth: scraper session without resolved account")
	}
	return &Manager{mode: ModeCredentials, scraper: s}, nil
}

// NewAPIManager wraps an API session.
func NewAPIManager(s *APISession) (*Manager, error) {
	if s == nil || s.Client == nil {
		return nil, errors.New("auth: api session without client")
	}
	return &Manager{mode: ModeAPI, api: s}, nil
}

// Mode returns the selected auth mode.
func (m *Manager) Mode() Mode {
	return m.mode
}

// Scraper returns the CREDENTIALS session or ErrCredentialsRequired.
func (m *Manager) Scraper() (*ScraperSession, error) {
	if m == nil || m.scraper == nil {
		return nil, ErrCredentialsRequired
	}
	return m.scraper, nil
}

// API returns the API session or ErrAPIRequired.
func (m *Manager) API() (*APISession, error) {
	if m == nil || m.api == nil {
		return nil, ErrAPIRequired
	}
	return m.api, nil
}

// Config selects and configures one of the two variants.
type Config struct {
	Mode        Mode
	Credentials twitter.ClientConfig
	API         twitterapi.Config
}

// New builds the Manager for cfg.Mode. In CREDENTIALS mode it logs in and
// resolves the own account before returning.
func New(ctx context.Context, cfg Config) (*Manager, error) {
	switch cfg.Mode {
	case ModeCredentials:
		client, err := twitter.NewClient(ctx, cfg.Credentials)
		if err != nil {
			return nil, fmt.Errorf("auth: scraper login: %w", err)
		}
		m, err := NewCredentialsManager(&ScraperSession{
			Client:   client,
			UserID:   client.UserID(),
			Username: client.Username(),
		})
		if err != nil {
			return nil, err
		}
		slog.Info("twitter auth ready", slog.String("mode", string(cfg.Mode)), slog.String("username", client.Username()))
		return m, nil

	case ModeAPI:
		client, err := twitterapi.NewClient(cfg.API)
		if err != nil {
			return nil, fmt.Errorf("auth: %w", err)
		}
		slog.Info("twitter auth ready", slog.String("mode", string(cfg.Mode)))
		return NewAPIManager(&APISession{
			APIKey:            cfg.API.APIKey,
			APISecret:         cfg.API.APISecret,
			AccessToken:       cfg.API.AccessToken,
			AccessTokenSecret: cfg.API.AccessTokenSecret,
			Client:            client,
		})

	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, cfg.Mode)
	}
}
