package twitter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var tokenMentionRe = regexp.MustCompile(`\$([A-Z]{2,10})`)

// twitterTimeLayout is the created_at format used across the legacy payloads.
const twitterTimeLayout = "Mon Jan 02 15:04:05 +0000 2006"

// parseUserByScreenName parses the UserByScreenName GraphQL response.
func parseUserByScreenName(body []byte) (*TwitterUser, error) {
	var raw struct {
		Data struct {
			User *struct {
				Result userResult `json:"result"`
			} `json:"user"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal UserByScreenName: %w", err)
	}
	if len(raw.Errors) > 0 && raw.Data.User == nil {
		return nil, fmt.Errorf("twitter API error: %s", raw.Errors[0].Message)
	}
	if raw.Data.User == nil {
		return nil, ErrUserNotFound
	}
	return parseUserResult(raw.Data.User.Result)
}

// parseVerifyCredentials parses the REST account/verify_credentials response.
func parseVerifyCredentials(body []byte) (*TwitterUser, error) {
	var raw struct {
		IDStr string `json:"id_str"`
		legacyUser
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal verify_credentials: %w", err)
	}
	if raw.IDStr == "" {
		if msg := firstErrorMessage(body); msg != "" {
			return nil, fmt.Errorf("verify_credentials: %s", msg)
		}
		return nil, fmt.Errorf("verify_credentials: empty id_str")
	}
	return userFromLegacy(raw.IDStr, raw.legacyUser, false), nil
}

// parseTweetTimeline parses UserTweets and UserTweetsAndReplies responses.
func parseTweetTimeline(body []byte, authorID string) ([]*Tweet, string, error) {
	var raw struct {
		Data struct {
			User struct {
				Result struct {
					Timeline struct {
						Timeline timelineObj `json:"timeline"`
					} `json:"timeline"`
					TimelineV2 struct {
						Timeline timelineObj `json:"timeline"`
					} `json:"timeline_v2"`
				} `json:"result"`
			} `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, "", fmt.Errorf("unmarshal tweet timeline: %w", err)
	}
	tl := raw.Data.User.Result.Timeline.Timeline
	if len(tl.Instructions) == 0 {
		tl = raw.Data.User.Result.TimelineV2.Timeline
	}
	tweets, cursor := extractTweetsFromTimeline(tl, authorID)
	return tweets, cursor, nil
}

// parseSearchTimeline parses SearchTimeline response.
func parseSearchTimeline(body []byte) ([]*Tweet, string, error) {
	var raw struct {
		Data struct {
			SearchByRawQuery struct {
				SearchTimeline struct {
					Timeline timelineObj `json:"timeline"`
				} `json:"search_timeline"`
			} `json:"search_by_raw_query"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, "", fmt.Errorf("unmarshal search timeline: %w", err)
	}
	tweets, cursor := extractTweetsFromTimeline(raw.Data.SearchByRawQuery.SearchTimeline.Timeline, "")
	return tweets, cursor, nil
}

// parseCreateTweet extracts the tweet ID from a CreateTweet mutation response.
func parseCreateTweet(body []byte) (string, error) {
	var raw struct {
		Data struct {
			CreateTweet struct {
				TweetResults struct {
					Result struct {
						RestID string `json:"rest_id"`
					} `json:"result"`
				} `json:"tweet_results"`
			} `json:"create_tweet"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("unmarshal CreateTweet: %w", err)
	}
	if len(raw.Errors) > 0 {
		return "", fmt.Errorf("CreateTweet API error: %s", raw.Errors[0].Message)
	}
	tweetID := raw.Data.CreateTweet.TweetResults.Result.RestID
	if tweetID == "" {
		return "", fmt.Errorf("CreateTweet returned empty tweet ID: %s", truncateBytes(body, 300))
	}
	return tweetID, nil
}

// parseFollow checks the friendships/create response for the followed user id.
func parseFollow(body []byte) (string, error) {
	var raw struct {
		IDStr      string `json:"id_str"`
		ScreenName string `json:"screen_name"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("unmarshal friendships/create: %w", err)
	}
	if raw.IDStr == "" {
		return "", fmt.Errorf("friendships/create returned no user: %s", truncateBytes(body, 200))
	}
	return raw.IDStr, nil
}

// --- Timeline types ---

type timelineObj struct {
	Instructions []timelineInstruction `json:"instructions"`
}

type timelineInstruction struct {
	Type    string          `json:"type"`
	Entries []timelineEntry `json:"entries"`
	Entry   *timelineEntry  `json:"entry"`
}

type timelineEntry struct {
	EntryID   string          `json:"entryId"`
	SortIndex string          `json:"sortIndex"`
	Content   timelineContent `json:"content"`
}

type timelineContent struct {
	EntryType   string          `json:"entryType"`
	TypeName    string          `json:"__typename"`
	ItemContent json.RawMessage `json:"itemContent"`
	Items       []struct {
		EntryID string `json:"entryId"`
		Item    struct {
			ItemContent json.RawMessage `json:"itemContent"`
		} `json:"item"`
	} `json:"items"`
	Value      string `json:"value"`
	CursorType string `json:"cursorType"`
}

type legacyUser struct {
	Name             string   `json:"name"`
	ScreenName       string   `json:"screen_name"`
	FollowersCount   int      `json:"followers_count"`
	FriendsCount     int      `json:"friends_count"`
	StatusesCount    int      `json:"statuses_count"`
	ListedCount      int      `json:"listed_count"`
	FavouritesCount  int      `json:"favourites_count"`
	CreatedAt        string   `json:"created_at"`
	Verified         bool     `json:"verified"`
	Protected        bool     `json:"protected"`
	Description      string   `json:"description"`
	Location         string   `json:"location"`
	ProfileImageURL  string   `json:"profile_image_url_https"`
	ProfileBannerURL string   `json:"profile_banner_url"`
	PinnedTweetIDs   []string `json:"pinned_tweet_ids_str"`
	Entities         struct {
		URL struct {
			URLs []struct {
				ExpandedURL string `json:"expanded_url"`
			} `json:"urls"`
		} `json:"url"`
	} `json:"entities"`
}

type userResult struct {
	TypeName       string     `json:"__typename"`
	ID             string     `json:"id"`
	RestID         string     `json:"rest_id"`
	Legacy         legacyUser `json:"legacy"`
	IsBlueVerified bool       `json:"is_blue_verified"`
}

type tweetResult struct {
	TypeName string       `json:"__typename"`
	RestID   string       `json:"rest_id"`
	Tweet    *tweetResult `json:"tweet"` // TweetWithVisibilityResults wrapper
	Core     struct {
		UserResults struct {
			Result userResult `json:"result"`
		} `json:"user_results"`
	} `json:"core"`
	Legacy struct {
		FullText              string          `json:"full_text"`
		CreatedAt             string          `json:"created_at"`
		ConversationIDStr     string          `json:"conversation_id_str"`
		InReplyToStatusIDStr  string          `json:"in_reply_to_status_id_str"`
		FavoriteCount         int             `json:"favorite_count"`
		RetweetCount          int             `json:"retweet_count"`
		ReplyCount            int             `json:"reply_count"`
		QuoteCount            int             `json:"quote_count"`
		UserIDStr             string          `json:"user_id_str"`
		RetweetedStatusResult json.RawMessage `json:"retweeted_status_result"`
	} `json:"legacy"`
	NoteTweet struct {
		NoteTweetResults struct {
			Result struct {
				Text string `json:"text"`
			} `json:"result"`
		} `json:"note_tweet_results"`
	} `json:"note_tweet"`
	Views struct {
		Count string `json:"count"`
	} `json:"views"`
}

// --- Extraction helpers ---

func extractTweetsFromTimeline(tl timelineObj, defaultAuthorID string) ([]*Tweet, string) {
	var tweets []*Tweet
	var nextCursor string

	for _, instruction := range tl.Instructions {
		// Pinned tweets are not part of the chronological timeline.
		if instruction.Type == "TimelinePinEntry" {
			continue
		}
		entries := instruction.Entries
		if instruction.Type == "TimelineReplaceEntry" && instruction.Entry != nil {
			entries = append(entries, *instruction.Entry)
		}
		for _, entry := range entries {
			if entry.Content.EntryType == "TimelineTimelineCursor" || entry.Content.TypeName == "TimelineTimelineCursor" {
				if entry.Content.CursorType == "Bottom" || strings.Contains(entry.EntryID, "cursor-bottom") {
					nextCursor = entry.Content.Value
				}
				continue
			}
			contents := []json.RawMessage{entry.Content.ItemContent}
			for _, it := range entry.Content.Items {
				contents = append(contents, it.Item.ItemContent)
			}
			for _, raw := range contents {
				if raw == nil {
					continue
				}
				t, ok := tweetFromItemContent(raw, defaultAuthorID)
				if ok {
					tweets = append(tweets, t)
				}
			}
		}
	}
	return tweets, nextCursor
}

func tweetFromItemContent(raw json.RawMessage, defaultAuthorID string) (*Tweet, bool) {
	var item struct {
		TypeName     string `json:"__typename"`
		TweetResults struct {
			Result tweetResult `json:"result"`
		} `json:"tweet_results"`
	}
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, false
	}
	if item.TypeName != "TimelineTweet" {
		return nil, false
	}
	t, err := parseTweetResult(item.TweetResults.Result, defaultAuthorID)
	if err != nil {
		slog.Debug("skip tweet parse error", slog.Any("error", err))
		return nil, false
	}
	return t, true
}

func parseUserResult(r userResult) (*TwitterUser, error) {
	if r.TypeName == "UserUnavailable" {
		return nil, fmt.Errorf("user unavailable (suspended or restricted)")
	}
	if r.RestID == "" {
		return nil, fmt.Errorf("%w: empty user rest_id (typename=%s)", ErrUserNotFound, r.TypeName)
	}
	return userFromLegacy(r.RestID, r.Legacy, r.IsBlueVerified), nil
}

func userFromLegacy(id string, l legacyUser, blue bool) *TwitterUser {
	u := &TwitterUser{
		ID:             id,
		Handle:         l.ScreenName,
		DisplayName:    l.Name,
		Bio:            strings.TrimSpace(l.Description),
		Location:       l.Location,
		Avatar:         strings.Replace(l.ProfileImageURL, "_normal", "", 1),
		Banner:         l.ProfileBannerURL,
		Followers:      l.FollowersCount,
		Following:      l.FriendsCount,
		TweetCount:     l.StatusesCount,
		ListedCount:    l.ListedCount,
		LikesCount:     l.FavouritesCount,
		CreatedAt:      parseTwitterTime(l.CreatedAt),
		IsVerified:     l.Verified,
		IsBlueVerified: blue,
		IsPrivate:      l.Protected,
		PinnedTweetIDs: l.PinnedTweetIDs,
	}
	if urls := l.Entities.URL.URLs; len(urls) > 0 {
		u.Website = urls[0].ExpandedURL
	}
	return u
}

func parseTweetResult(r tweetResult, defaultAuthorID string) (*Tweet, error) {
	if r.TypeName == "TweetWithVisibilityResults" && r.Tweet != nil {
		return parseTweetResult(*r.Tweet, defaultAuthorID)
	}
	if r.RestID == "" {
		return nil, fmt.Errorf("empty tweet rest_id")
	}

	authorID := defaultAuthorID
	if r.Legacy.UserIDStr != "" {
		authorID = r.Legacy.UserIDStr
	}

	views := 0
	if r.Views.Count != "" {
		views, _ = strconv.Atoi(r.Views.Count)
	}

	text := r.Legacy.FullText
	if note := r.NoteTweet.NoteTweetResults.Result.Text; note != "" {
		text = note
	}

	return &Tweet{
		ID:             r.RestID,
		AuthorID:       authorID,
		AuthorHandle:   r.Core.UserResults.Result.Legacy.ScreenName,
		Text:           text,
		CreatedAt:      parseTwitterTime(r.Legacy.CreatedAt),
		ConversationID: r.Legacy.ConversationIDStr,
		InReplyToID:    r.Legacy.InReplyToStatusIDStr,
		IsRetweet:      len(r.Legacy.RetweetedStatusResult) > 0 && string(r.Legacy.RetweetedStatusResult) != "null",
		IsReply:        r.Legacy.InReplyToStatusIDStr != "",
		Views:          views,
		Likes:          r.Legacy.FavoriteCount,
		Retweets:       r.Legacy.RetweetCount,
		Replies:        r.Legacy.ReplyCount,
		Quotes:         r.Legacy.QuoteCount,
		TokenMentions:  extractTokenMentions(text),
	}, nil
}

func parseTwitterTime(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(twitterTimeLayout, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func extractTokenMentions(text string) []string {
	matches := tokenMentionRe.FindAllStringSubmatch(strings.ToUpper(text), -1)
	seen := make(map[string]bool)
	var result []string
	for _, m := range matches {
		if len(m) >= 2 && !seen[m[1]] {
			seen[m[1]] = true
			result = append(result, m[1])
		}
	}
	return result
}
