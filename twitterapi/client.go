// Package twitterapi is a minimal OAuth 1.0a user-context client for the
// official X API v2.
package twitterapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/dghubble/oauth1"
	"github.com/dghubble/sling"
)

// DefaultBaseURL is the X API root.
const DefaultBaseURL = "https://api.twitter.com/"

// Config holds the app and user tokens of the API session.
type Config struct {
	APIKey            string
	APISecret         string
	AccessToken       string
	AccessTokenSecret string

	// BaseURL overrides DefaultBaseURL.
	BaseURL string
}

// Validate reports every missing credential.
func (c Config) Validate() error {
	var missing []string
	for name, v := range map[string]string{
		"api key":             c.APIKey,
		"api secret":          c.APISecret,
		"access token":        c.AccessToken,
		"access token secret": c.AccessTokenSecret,
	} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("twitterapi: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Client calls the X API with OAuth 1.0a signed requests.
type Client struct {
	api *sling.Sling
}

// NewClient builds a signed HTTP client for the configured tokens.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	oauthCfg := oauth1.NewConfig(cfg.APIKey, cfg.APISecret)
	token := oauth1.NewToken(cfg.AccessToken, cfg.AccessTokenSecret)
	hc := oauthCfg.Client(context.Background(), token)

	return &Client{api: sling.New().Client(hc).Base(base)}, nil
}

// Tweet is a v2 tweet object.
type Tweet struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// CreateTweetResponse is the body of POST /2/tweets.
type CreateTweetResponse struct {
	Data Tweet `json:"data"`
}

// User is a v2 user object.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// APIError is the problem document returned on non-2xx responses.
type APIError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Type   string `json:"type"`
	Status int    `json:"status"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (e *APIError) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = e.Title
	}
	if msg == "" && len(e.Errors) > 0 {
		msg = e.Errors[0].Message
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("twitter api %d: %s", e.Status, msg)
}

// CreateTweet publishes a tweet on behalf of the token owner.
func (c *Client) CreateTweet(ctx context.Context, text string) (*CreateTweetResponse, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("twitterapi: tweet text is empty")
	}
	var out CreateTweetResponse
	req := c.api.New().Post("2/tweets").BodyJSON(map[string]string{"text": text})
	if err := c.do(ctx, req, &out); err != nil {
		return nil, fmt.Errorf("create tweet: %w", err)
	}
	return &out, nil
}

// Me returns the user that owns the access token.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out struct {
		Data User `json:"data"`
	}
	if err := c.do(ctx, c.api.New().Get("2/users/me"), &out); err != nil {
		return nil, fmt.Errorf("users/me: %w", err)
	}
	return &out.Data, nil
}

func (c *Client) do(ctx context.Context, s *sling.Sling, success any) error {
	req, err := s.Request()
	if err != nil {
		return err
	}
	apiErr := &APIError{}
	resp, err := c.api.Do(req.WithContext(ctx), success, apiErr)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if apiErr.Status == 0 {
			apiErr.Status = resp.StatusCode
		}
		return apiErr
	}
	return nil
}
