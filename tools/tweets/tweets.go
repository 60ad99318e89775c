// Package tweets defines the Twitter/X tools served by the twitter MCP server.
package tweets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	twitter "github.com/0xhijo/mcp-twitter"
	"github.com/0xhijo/mcp-twitter/auth"
	"github.com/0xhijo/mcp-twitter/tools"
)

// Plugin is the plugin name shared by every tool of this package.
const Plugin = "twitter"

// threadLookupWindow is how many of the own recent tweets are scanned to find
// the tail of a thread.
const threadLookupWindow = 10

var (
	// ErrEmptyThread is returned when a thread has no parts.
	ErrEmptyThread = errors.New("Your array of thread is empty")
	// ErrAccountNotFound is returned when a profile lookup finds nobody.
	ErrAccountNotFound = errors.New("Account don't exist")
)

type postParams struct {
	Post string `json:"post" jsonschema:"text of the post"`
}

type replyParams struct {
	TweetID      string `json:"tweet_id" jsonschema:"id of the post to reply to"`
	ResponseText string `json:"response_text" jsonschema:"text of the reply"`
}

type accountNameParams struct {
	AccountName string `json:"account_name" jsonschema:"account handle without the @"`
}

type searchParams struct {
	Query    string `json:"query" jsonschema:"search query"`
	MaxTeets int    `json:"maxTeets" jsonschema:"maximum number of posts to return"`
}

type threadParams struct {
	Thread []string `json:"thread" jsonschema:"posts of the thread in order"`
}

type usernameParams struct {
	Username string `json:"username" jsonschema:"account handle without the @"`
}

type userTweetsParams struct {
	Username  string `json:"username" jsonschema:"account handle without the @"`
	MaxTweets int    `json:"maxTweets,omitempty" jsonschema:"maximum number of posts to return"`
}

// TweetSummary is the {id, content} pair returned by listing tools.
type TweetSummary struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

func summarize(tweets []*twitter.Tweet) []TweetSummary {
	out := make([]TweetSummary, 0, len(tweets))
	for _, t := range tweets {
		out = append(out, TweetSummary{ID: t.ID, Content: t.Text})
	}
	return out
}

var (
	readOnly = tools.Annotations{ReadOnly: true, Idempotent: true, OpenWorld: true}
	publish  = tools.Annotations{OpenWorld: true}
)

// Tools returns the Twitter tools in their advertised order.
func Tools() []tools.Tool[*auth.Manager] {
	return []tools.Tool[*auth.Manager]{
		{
			Name:        "create_twitter_post",
			Description: "Create new X/Twitter post",
			Schema:      tools.SchemaFor[postParams](),
			Annotations: publish,
			Execute:     withParams(createPost),
		},
		{
			Name:        "reply_twitter_tweet",
			Description: "Reply to specific X/Twitter post by ID",
			Schema:      tools.SchemaFor[replyParams](),
			Annotations: publish,
			Execute:     withScraper(replyTweet),
		},
		{
			Name:        "get_last_tweet",
			Description: "Get most recent post from specified X/Twitter account",
			Schema:      tools.SchemaFor[accountNameParams](),
			Annotations: readOnly,
			Execute:     withScraper(lastTweet),
		},
		{
			Name:        "get_last_tweets_options",
			Description: "Get specified number of posts matching search query",
			Schema:      tools.SchemaFor[searchParams](),
			Annotations: readOnly,
			Execute:     withScraper(searchTweets),
		},
		{
			Name:        "create_and_post_twitter_thread",
			Description: "Create and publish X/Twitter thread",
			Schema:      tools.SchemaFor[threadParams](),
			Annotations: publish,
			Execute:     withParams(postThread),
		},
		{
			Name:        "follow_twitter_from_username",
			Description: "Follow X/Twitter user by username",
			Schema:      tools.SchemaFor[usernameParams](),
			Annotations: tools.Annotations{Idempotent: true, OpenWorld: true},
			Execute:     withScraper(followUser),
		},
		{
			Name:        "get_twitter_profile_from_username",
			Description: "Get full X/Twitter profile data by username",
			Schema:      tools.SchemaFor[usernameParams](),
			Annotations: readOnly,
			Execute:     withScraper(profile),
		},
		{
			Name:        "get_twitter_user_id_from_username",
			Description: "Get X/Twitter user ID from username",
			Schema:      tools.SchemaFor[usernameParams](),
			Annotations: readOnly,
			Execute:     withScraper(userID),
		},
		{
			Name:        "get_last_tweet_and_replies_from_user",
			Description: "Get recent X/Twitter posts and replies from user",
			Schema:      tools.SchemaFor[userTweetsParams](),
			Annotations: readOnly,
			Execute:     withScraper(tweetsAndReplies),
		},
		{
			Name:        "get_last_tweet_from_user",
			Description: "Get recent X/Twitter posts from user",
			Schema:      tools.SchemaFor[userTweetsParams](),
			Annotations: readOnly,
			Execute:     withScraper(userTweets),
		},
		{
			Name:        "get_own_twitter_account_info",
			Description: "Get current account profile data",
			Annotations: readOnly,
			Execute: func(ctx context.Context, m *auth.Manager, _ json.RawMessage) tools.Result {
				s, err := m.Scraper()
				if err != nil {
					return tools.Failure(err)
				}
				return ownAccount(ctx, s)
			},
		},
	}
}

// NewRegistry returns a registry holding every Twitter tool.
func NewRegistry() (*tools.Registry[*auth.Manager], error) {
	reg := tools.NewRegistry[*auth.Manager]()
	all := Tools()
	for i := range all {
		all[i].Plugin = Plugin
	}
	if err := reg.Register(all...); err != nil {
		return nil, err
	}
	return reg, nil
}

// withParams decodes params before calling fn.
func withParams[P any](fn func(context.Context, *auth.Manager, P) tools.Result) func(context.Context, *auth.Manager, json.RawMessage) tools.Result {
	return func(ctx context.Context, m *auth.Manager, raw json.RawMessage) tools.Result {
		p, err := tools.Decode[P](raw)
		if err != nil {
			return tools.Failure(err)
		}
		return fn(ctx, m, p)
	}
}

// withScraper decodes params and requires CREDENTIALS mode before calling fn.
func withScraper[P any](fn func(context.Context, *auth.ScraperSession, P) tools.Result) func(context.Context, *auth.Manager, json.RawMessage) tools.Result {
	return withParams(func(ctx context.Context, m *auth.Manager, p P) tools.Result {
		s, err := m.Scraper()
		if err != nil {
			return tools.Failure(err)
		}
		return fn(ctx, s, p)
	})
}

func createPost(ctx context.Context, m *auth.Manager, p postParams) tools.Result {
	switch m.Mode() {
	case auth.ModeCredentials:
		s, err := m.Scraper()
		if err != nil {
			return tools.Failed(err)
		}
		if _, err := s.Client.SendTweet(ctx, p.Post, ""); err != nil {
			return tools.Failed(err)
		}
		return tools.Success()

	case auth.ModeAPI:
		s, err := m.API()
		if err != nil {
			return tools.Failed(err)
		}
		res, err := s.Client.CreateTweet(ctx, p.Post)
		if err != nil {
			return tools.Failed(err)
		}
		return tools.Success().With("result", res)
	}
	return tools.Failed(errors.New("You don't set Twitter API or Twitter Account"))
}

func replyTweet(ctx context.Context, s *auth.ScraperSession, p replyParams) tools.Result {
	if _, err := s.Client.SendTweet(ctx, p.ResponseText, p.TweetID); err != nil {
		return tools.Failure(err)
	}
	return tools.Success().
		With("tweet_id", p.TweetID).
		With("response_text", p.ResponseText)
}

func lastTweet(ctx context.Context, s *auth.ScraperSession, p accountNameParams) tools.Result {
	t, err := s.Client.GetLatestTweet(ctx, p.AccountName)
	if err != nil {
		return tools.Failure(err)
	}
	if t == nil {
		return tools.Failure(errors.New("Error trying to get the latest tweet"))
	}
	return tools.Success().
		With("post_id", t.ID).
		With("post_text", t.Text)
}

func searchTweets(ctx context.Context, s *auth.ScraperSession, p searchParams) tools.Result {
	tweets, err := s.Client.SearchTweets(ctx, p.Query, p.MaxTeets)
	if err != nil {
		return tools.Failure(err)
	}
	return tools.Success().With("result", summarize(tweets))
}

// postThread sends the first part as a plain tweet, then chains every later
// part under the newest own tweet of the thread's conversation. The id
// returned for the previous part is used when the history has no match.
func postThread(ctx context.Context, m *auth.Manager, p threadParams) tools.Result {
	if len(p.Thread) == 0 {
		return tools.Failure(ErrEmptyThread)
	}
	s, err := m.Scraper()
	if err != nil {
		return tools.Failure(err)
	}

	// A thread's conversation id is the id of its first tweet.
	var conversationID, previousID string
	for i, part := range p.Thread {
		replyTo := ""
		if i > 0 {
			replyTo, err = threadTail(ctx, s, conversationID)
			if err != nil {
				return tools.Failure(fmt.Errorf("thread part %d: %w", i+1, err))
			}
			if replyTo == "" {
				replyTo = previousID
			}
		}
		previousID, err = s.Client.SendTweet(ctx, part, replyTo)
		if err != nil {
			return tools.Failure(fmt.Errorf("thread part %d: %w", i+1, err))
		}
		if i == 0 {
			conversationID = previousID
		}
		slog.Debug("thread part posted", slog.Int("part", i+1), slog.String("tweet_id", previousID), slog.String("in_reply_to", replyTo))
	}
	return tools.Success()
}

// threadTail returns the newest item of the own recent tweets and replies in
// conversationID. With no conversationID the newest item fixes it.
func threadTail(ctx context.Context, s *auth.ScraperSession, conversationID string) (string, error) {
	recent, err := s.Client.GetTweetsAndRepliesByUserID(ctx, s.UserID, threadLookupWindow)
	if err != nil {
		return "", err
	}
	for _, t := range recent {
		if conversationID == "" {
			conversationID = t.ConversationID
		}
		if t.ConversationID == conversationID {
			return t.ID, nil
		}
	}
	return "", nil
}

func followUser(ctx context.Context, s *auth.ScraperSession, p usernameParams) tools.Result {
	if err := s.Client.FollowUser(ctx, p.Username); err != nil {
		return tools.Failure(err)
	}
	return tools.Success()
}

func profile(ctx context.Context, s *auth.ScraperSession, p usernameParams) tools.Result {
	user, err := s.Client.GetProfile(ctx, p.Username)
	if errors.Is(err, twitter.ErrUserNotFound) || (err == nil && user == nil) {
		return tools.Failure(ErrAccountNotFound)
	}
	if err != nil {
		return tools.Failure(err)
	}
	return tools.Success().With("user_id", user)
}

func userID(ctx context.Context, s *auth.ScraperSession, p usernameParams) tools.Result {
	id, err := s.Client.GetUserIDByScreenName(ctx, p.Username)
	if err != nil {
		return tools.Failure(err)
	}
	return tools.Success().With("user_id", id)
}

func tweetsAndReplies(ctx context.Context, s *auth.ScraperSession, p userTweetsParams) tools.Result {
	tweets, err := s.Client.GetTweetsAndReplies(ctx, p.Username, p.MaxTweets)
	if err != nil {
		return tools.Failure(err)
	}
	return tools.Success().With("tweets", summarize(tweets))
}

func userTweets(ctx context.Context, s *auth.ScraperSession, p userTweetsParams) tools.Result {
	tweets, err := s.Client.GetTweets(ctx, p.Username, p.MaxTweets)
	if err != nil {
		return tools.Failure(err)
	}
	return tools.Success().With("tweets", summarize(tweets))
}

func ownAccount(ctx context.Context, s *auth.ScraperSession) tools.Result {
	me, err := s.Client.Me(ctx)
	if err != nil {
		return tools.Failure(err)
	}
	return tools.Success().With("my_account_username", me)
}
