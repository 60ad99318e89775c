package twitter

import (
	"context"
	"errors"
	"fmt"
)

const (
	// DefaultMaxTweets is the number of tweets fetched when the caller gives no limit.
	DefaultMaxTweets = 200

	timelinePageSize = 20
	searchPageSize   = 20
)

// ErrTweetNotFound is returned when a timeline has no matching tweet.
var ErrTweetNotFound = errors.New("twitter: no tweet found")

// Me returns the profile of the logged-in account and records its identity.
func (c *Client) Me(ctx context.Context) (*TwitterUser, error) {
	body, _, err := c.doGET(ctx, "VerifyCredentials", verifyCredentialsURL)
	if err != nil {
		return nil, fmt.Errorf("VerifyCredentials: %w", err)
	}
	me, err := parseVerifyCredentials(body)
	if err != nil {
		return nil, err
	}
	c.acc.setIdentity(me.ID, me.Handle)
	c.cacheUserID(me.Handle, me.ID)
	return me, nil
}

// GetUserByScreenName fetches a user profile by Twitter handle.
func (c *Client) GetUserByScreenName(ctx context.Context, handle string) (*TwitterUser, error) {
	variables := map[string]any{
		"screen_name":              handle,
		"withSafetyModeUserFields": true,
	}
	body, _, err := c.doGET(ctx, opUserByScreenName.Name, opUserByScreenName.QueryURL(variables, nil))
	if err != nil {
		return nil, fmt.Errorf("UserByScreenName: %w", err)
	}
	user, err := parseUserByScreenName(body)
	if err != nil {
		return nil, err
	}
	c.cacheUserID(handle, user.ID)
	return user, nil
}

// GetProfile is an alias of GetUserByScreenName.
func (c *Client) GetProfile(ctx context.Context, handle string) (*TwitterUser, error) {
	return c.GetUserByScreenName(ctx, handle)
}

// GetUserIDByScreenName resolves a handle to its rest id, using the in-memory cache.
func (c *Client) GetUserIDByScreenName(ctx context.Context, handle string) (string, error) {
	if id, ok := c.cachedUserID(handle); ok {
		return id, nil
	}
	user, err := c.GetUserByScreenName(ctx, handle)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

// GetTweets fetches up to maxTweets recent tweets of a user (paginated).
func (c *Client) GetTweets(ctx context.Context, handle string, maxTweets int) ([]*Tweet, error) {
	userID, err := c.GetUserIDByScreenName(ctx, handle)
	if err != nil {
		return nil, err
	}
	return c.GetUserTweets(ctx, userID, maxTweets)
}

// GetUserTweets fetches recent tweets for a user id (paginated).
func (c *Client) GetUserTweets(ctx context.Context, userID string, maxTweets int) ([]*Tweet, error) {
	return c.fetchTweetTimeline(ctx, opUserTweets, userID, maxTweets)
}

// GetTweetsAndReplies fetches up to maxTweets recent tweets and replies of a user.
func (c *Client) GetTweetsAndReplies(ctx context.Context, handle string, maxTweets int) ([]*Tweet, error) {
	userID, err := c.GetUserIDByScreenName(ctx, handle)
	if err != nil {
		return nil, err
	}
	return c.GetTweetsAndRepliesByUserID(ctx, userID, maxTweets)
}

// GetTweetsAndRepliesByUserID fetches tweets and replies for a user id (paginated).
func (c *Client) GetTweetsAndRepliesByUserID(ctx context.Context, userID string, maxTweets int) ([]*Tweet, error) {
	return c.fetchTweetTimeline(ctx, opUserTweetsAndReplies, userID, maxTweets)
}

// GetLatestTweet returns the most recent tweet of a user, skipping retweets.
func (c *Client) GetLatestTweet(ctx context.Context, handle string) (*Tweet, error) {
	tweets, err := c.GetTweets(ctx, handle, timelinePageSize)
	if err != nil {
		return nil, err
	}
	for _, t := range tweets {
		if !t.IsRetweet {
			return t, nil
		}
	}
	return nil, fmt.Errorf("latest tweet of %s: %w", handle, ErrTweetNotFound)
}

// fetchTweetTimeline is a paginated tweet fetcher for user-centric timelines.
func (c *Client) fetchTweetTimeline(ctx context.Context, op Operation, userID string, maxTweets int) ([]*Tweet, error) {
	if maxTweets <= 0 {
		maxTweets = DefaultMaxTweets
	}
	var tweets []*Tweet
	var cursor string

	for len(tweets) < maxTweets {
		select {
		case <-ctx.Done():
			return tweets, ctx.Err()
		default:
		}

		variables := map[string]any{
			"userId":                                 userID,
			"count":                                  min(timelinePageSize, maxTweets-len(tweets)),
			"includePromotedContent":                 false,
			"withQuickPromoteEligibilityTweetFields": true,
			"withCommunity":                          true,
			"withVoice":                              true,
			"withV2Timeline":                         true,
		}
		if cursor != "" {
			variables["cursor"] = cursor
		}

		body, _, err := c.doGET(ctx, op.Name, op.QueryURL(variables, nil))
		if err != nil {
			return tweets, fmt.Errorf("%s: %w", op.Name, err)
		}

		batch, nextCursor, err := parseTweetTimeline(body, userID)
		if err != nil {
			return tweets, fmt.Errorf("parse %s: %w", op.Name, err)
		}
		tweets = append(tweets, batch...)

		if len(batch) == 0 || nextCursor == "" || nextCursor == cursor {
			break
		}
		cursor = nextCursor
	}
	return truncateTweets(tweets, maxTweets), nil
}

// SearchTweets searches the Latest tab for tweets matching a query (paginated).
func (c *Client) SearchTweets(ctx context.Context, query string, maxTweets int) ([]*Tweet, error) {
	if maxTweets <= 0 {
		maxTweets = DefaultMaxTweets
	}
	var tweets []*Tweet
	var cursor string

	for len(tweets) < maxTweets {
		select {
		case <-ctx.Done():
			return tweets, ctx.Err()
		default:
		}

		batch, nextCursor, err := c.searchPage(ctx, query, min(searchPageSize, maxTweets-len(tweets)), cursor)
		if err != nil {
			return tweets, err
		}
		tweets = append(tweets, batch...)

		if len(batch) == 0 || nextCursor == "" || nextCursor == cursor {
			break
		}
		cursor = nextCursor
	}
	return truncateTweets(tweets, maxTweets), nil
}

// searchPage fetches one SearchTimeline page.
func (c *Client) searchPage(ctx context.Context, query string, count int, cursor string) ([]*Tweet, string, error) {
	variables := map[string]any{
		"rawQuery":    query,
		"count":       count,
		"querySource": "typed_query",
		"product":     "Latest",
	}
	if cursor != "" {
		variables["cursor"] = cursor
	}
	fieldToggles := map[string]any{
		"withArticleRichContentState": false,
	}
	body, _, err := c.doGET(ctx, opSearchTimeline.Name, opSearchTimeline.QueryURL(variables, fieldToggles))
	if err != nil {
		return nil, "", fmt.Errorf("SearchTimeline: %w", err)
	}
	return parseSearchTimeline(body)
}

func truncateTweets(tweets []*Tweet, n int) []*Tweet {
	if len(tweets) > n {
		return tweets[:n]
	}
	return tweets
}
