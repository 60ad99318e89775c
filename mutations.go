package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// SendTweet publishes a tweet, optionally as a reply, and returns the new tweet id.
func (c *Client) SendTweet(ctx context.Context, text, inReplyToID string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", errors.New("tweet text is empty")
	}

	variables := map[string]any{
		"tweet_text":   text,
		"dark_request": false,
		"media": map[string]any{
			"media_entities":     []any{},
			"possibly_sensitive": false,
		},
		"semantic_annotation_ids": []any{},
	}
	if inReplyToID != "" {
		variables["reply"] = map[string]any{
			"in_reply_to_tweet_id":   inReplyToID,
			"exclude_reply_user_ids": []any{},
		}
	}
	payload, err := json.Marshal(map[string]any{
		"variables": variables,
		"features":  opCreateTweet.Features,
		"queryId":   opCreateTweet.QueryID,
	})
	if err != nil {
		return "", err
	}

	body, err := c.doPOST(ctx, opCreateTweet.Name, opCreateTweet.URL(), payload)
	if err != nil {
		return "", fmt.Errorf("CreateTweet: %w", err)
	}
	tweetID, err := parseCreateTweet(body)
	if err != nil {
		return "", err
	}
	slog.Info("tweet created", slog.String("tweet_id", tweetID), slog.String("in_reply_to", inReplyToID))
	return tweetID, nil
}

// FollowUser follows the account with the given handle.
func (c *Client) FollowUser(ctx context.Context, handle string) error {
	userID, err := c.GetUserIDByScreenName(ctx, handle)
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set("include_profile_interstitial_type", "1")
	form.Set("skip_status", "true")
	form.Set("user_id", userID)

	body, err := c.doPOSTForm(ctx, "FriendshipsCreate", friendshipsCreateURL, form.Encode())
	if err != nil {
		return fmt.Errorf("FriendshipsCreate: %w", err)
	}
	if _, err := parseFollow(body); err != nil {
		return err
	}
	slog.Info("followed user", slog.String("handle", handle), slog.String("user_id", userID))
	return nil
}
