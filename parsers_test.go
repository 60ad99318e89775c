package twitter

import (
	"errors"
	"testing"
)

func TestParseUserByScreenName(t *testing.T) {
	body := `{
		"data": {
			"user": {
				"result": {
					"__typename": "User",
					"id": "UXNlcjoxMjM0NQ==",
					"rest_id": "12345",
					"legacy": {
						"name": "Test User",
						"screen_name": "testuser",
						"followers_count": 100,
						"friends_count": 50,
						"statuses_count": 200,
						"listed_count": 5,
						"favourites_count": 7,
						"created_at": "Mon Jan 02 15:04:05 +0000 2020",
						"verified": false,
						"protected": true,
						"description": " Hello world ",
						"location": "Paris",
						"profile_image_url_https": "https://pbs.twimg.com/profile_images/123/photo_normal.jpg",
						"profile_banner_url": "https://pbs.twimg.com/profile_banners/12345/1",
						"pinned_tweet_ids_str": ["42"],
						"entities": {"url": {"urls": [{"expanded_url": "https://example.com"}]}}
					},
					"is_blue_verified": true
				}
			}
		}
	}`

	user, err := parseUserByScreenName([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	if user.ID != "12345" {
		t.Fatalf("expected ID 12345, got %s", user.ID)
	}
	if user.Handle != "testuser" {
		t.Fatalf("expected handle testuser, got %s", user.Handle)
	}
	if user.DisplayName != "Test User" {
		t.Fatalf("expected name Test User, got %s", user.DisplayName)
	}
	if user.Followers != 100 || user.Following != 50 || user.LikesCount != 7 {
		t.Fatalf("unexpected counts: %+v", user)
	}
	if !user.IsBlueVerified || user.IsVerified {
		t.Fatal("expected blue verification only")
	}
	if !user.IsPrivate {
		t.Fatal("expected protected account")
	}
	if user.Bio != "Hello world" {
		t.Fatalf("expected trimmed bio, got %q", user.Bio)
	}
	if user.Avatar != "https://pbs.twimg.com/profile_images/123/photo.jpg" {
		t.Fatalf("expected full-size avatar, got %s", user.Avatar)
	}
	if user.Website != "https://example.com" {
		t.Fatalf("expected website, got %q", user.Website)
	}
	if user.CreatedAt.Year() != 2020 {
		t.Fatalf("expected joined 2020, got %v", user.CreatedAt)
	}
	if len(user.PinnedTweetIDs) != 1 || user.PinnedTweetIDs[0] != "42" {
		t.Fatalf("unexpected pinned ids %v", user.PinnedTweetIDs)
	}
}

func TestParseUserByScreenName_Unavailable(t *testing.T) {
	body := `{
		"data": {
			"user": {
				"result": {
					"__typename": "UserUnavailable",
					"rest_id": ""
				}
			}
		}
	}`

	_, err := parseUserByScreenName([]byte(body))
	if err == nil {
		t.Fatal("expected error for unavailable user")
	}
}

func TestParseUserByScreenName_Missing(t *testing.T) {
	_, err := parseUserByScreenName([]byte(`{"data":{}}`))
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestParseVerifyCredentials(t *testing.T) {
	body := `{"id_str":"777","screen_name":"mybot","name":"My Bot","followers_count":3,"created_at":"Tue Mar 05 10:00:00 +0000 2024"}`
	me, err := parseVerifyCredentials([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	if me.ID != "777" || me.Handle != "mybot" || me.DisplayName != "My Bot" {
		t.Fatalf("unexpected profile %+v", me)
	}

	_, err = parseVerifyCredentials([]byte(`{"errors":[{"code":32,"message":"Could not authenticate you."}]}`))
	if err == nil {
		t.Fatal("expected error without id_str")
	}
}

func TestParseSearchTimeline(t *testing.T) {
	body := `{
		"data": {
			"search_by_raw_query": {
				"search_timeline": {
					"timeline": {
						"instructions": [{
							"type": "TimelineAddEntries",
							"entries": [{
								"entryId": "tweet-123",
								"content": {
									"entryType": "TimelineTimelineItem",
									"__typename": "TimelineTimelineItem",
									"itemContent": {
										"__typename": "TimelineTweet",
										"tweet_results": {
											"result": {
												"__typename": "Tweet",
												"rest_id": "123",
												"legacy": {
													"full_text": "Hello $BTC $ETH",
													"created_at": "Mon Jan 02 15:04:05 +0000 2024",
													"conversation_id_str": "123",
													"favorite_count": 10,
													"retweet_count": 5,
													"reply_count": 1,
													"quote_count": 2,
													"user_id_str": "999"
												},
												"views": {"count": "1000"}
											}
										}
									}
								}
							}, {
								"entryId": "cursor-bottom-0",
								"content": {
									"entryType": "TimelineTimelineCursor",
									"value": "DAADDAAB",
									"cursorType": "Bottom"
								}
							}]
						}]
					}
				}
			}
		}
	}`

	tweets, cursor, err := parseSearchTimeline([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	if cursor != "DAADDAAB" {
		t.Fatalf("expected bottom cursor, got %q", cursor)
	}
	if len(tweets) != 1 {
		t.Fatalf("expected 1 tweet, got %d", len(tweets))
	}
	tw := tweets[0]
	if tw.ID != "123" {
		t.Fatalf("expected ID 123, got %s", tw.ID)
	}
	if tw.AuthorID != "999" {
		t.Fatalf("expected author 999, got %s", tw.AuthorID)
	}
	if tw.ConversationID != "123" || tw.IsReply {
		t.Fatalf("expected conversation root, got %+v", tw)
	}
	if tw.Views != 1000 {
		t.Fatalf("expected 1000 views, got %d", tw.Views)
	}
	if tw.Likes != 10 || tw.Replies != 1 {
		t.Fatalf("unexpected counters %+v", tw)
	}
	if len(tw.TokenMentions) != 2 {
		t.Fatalf("expected 2 token mentions, got %v", tw.TokenMentions)
	}
	if tw.TokenMentions[0] != "BTC" || tw.TokenMentions[1] != "ETH" {
		t.Fatalf("expected [BTC, ETH], got %v", tw.TokenMentions)
	}
}

// tweetsAndRepliesBody mixes a pinned entry, a conversation module, a retweet
// and a visibility-wrapped tweet.
const tweetsAndRepliesBody = `{
	"data": {"user": {"result": {"timeline_v2": {"timeline": {"instructions": [
		{"type": "TimelinePinEntry", "entry": {
			"entryId": "tweet-1",
			"content": {"itemContent": {"__typename": "TimelineTweet", "tweet_results": {"result": {
				"__typename": "Tweet", "rest_id": "1", "legacy": {"full_text": "pinned", "conversation_id_str": "1"}}}}}
		}},
		{"type": "TimelineAddEntries", "entries": [
			{"entryId": "profile-conversation-1", "content": {
				"entryType": "TimelineTimelineModule",
				"items": [
					{"entryId": "a", "item": {"itemContent": {"__typename": "TimelineTweet", "tweet_results": {"result": {
						"__typename": "Tweet", "rest_id": "30",
						"core": {"user_results": {"result": {"rest_id": "5", "legacy": {"screen_name": "me"}}}},
						"legacy": {"full_text": "part two", "conversation_id_str": "10", "in_reply_to_status_id_str": "10"}}}}}},
					{"entryId": "b", "item": {"itemContent": {"__typename": "TimelineTweet", "tweet_results": {"result": {
						"__typename": "TweetWithVisibilityResults",
						"tweet": {"__typename": "Tweet", "rest_id": "10", "legacy": {"full_text": "part one", "conversation_id_str": "10"}}}}}}}
				]
			}},
			{"entryId": "tweet-20", "content": {"itemContent": {"__typename": "TimelineTweet", "tweet_results": {"result": {
				"__typename": "Tweet", "rest_id": "20",
				"legacy": {"full_text": "RT @x: hi", "conversation_id_str": "20", "retweeted_status_result": {"result": {"rest_id": "2"}}}}}}}},
			{"entryId": "cursor-bottom-1", "content": {"entryType": "TimelineTimelineCursor", "value": "NEXT", "cursorType": "Bottom"}}
		]}
	]}}}}}
}`

func TestParseTweetTimeline_ModulesAndPins(t *testing.T) {
	tweets, cursor, err := parseTweetTimeline([]byte(tweetsAndRepliesBody), "5")
	if err != nil {
		t.Fatal(err)
	}
	if cursor != "NEXT" {
		t.Fatalf("expected cursor NEXT, got %q", cursor)
	}
	if len(tweets) != 3 {
		t.Fatalf("expected 3 tweets without the pin, got %d", len(tweets))
	}
	if tweets[0].ID != "30" || !tweets[0].IsReply || tweets[0].AuthorHandle != "me" {
		t.Fatalf("unexpected first tweet %+v", tweets[0])
	}
	if tweets[1].ID != "10" || tweets[1].ConversationID != "10" {
		t.Fatalf("expected unwrapped visibility tweet, got %+v", tweets[1])
	}
	if tweets[1].AuthorID != "5" {
		t.Fatalf("expected default author id, got %q", tweets[1].AuthorID)
	}
	if !tweets[2].IsRetweet {
		t.Fatal("expected retweet flag")
	}
}

func TestParseCreateTweet(t *testing.T) {
	id, err := parseCreateTweet([]byte(`{"data":{"create_tweet":{"tweet_results":{"result":{"rest_id":"555"}}}}}`))
	if err != nil {
		t.Fatal(err)
	}
	if id != "555" {
		t.Fatalf("expected 555, got %s", id)
	}

	if _, err := parseCreateTweet([]byte(`{"errors":[{"message":"Authorization: Status is a duplicate. (187)"}]}`)); err == nil {
		t.Fatal("expected API error")
	}
	if _, err := parseCreateTweet([]byte(`{"data":{"create_tweet":{"tweet_results":{}}}}`)); err == nil {
		t.Fatal("expected error for empty tweet id")
	}
}

func TestParseFollow(t *testing.T) {
	id, err := parseFollow([]byte(`{"id_str":"42","screen_name":"alice"}`))
	if err != nil || id != "42" {
		t.Fatalf("parseFollow = %q, %v", id, err)
	}
	if _, err := parseFollow([]byte(`{}`)); err == nil {
		t.Fatal("expected error for empty response")
	}
}

func TestExtractTokenMentions(t *testing.T) {
	tests := []struct {
		text     string
		expected []string
	}{
		{"Hello $BTC and $ETH", []string{"BTC", "ETH"}},
		{"No mentions here", nil},
		{"$BTC $BTC duplicate", []string{"BTC"}},
		{"$A too short", nil}, // less than 2 chars
	}

	for _, tt := range tests {
		result := extractTokenMentions(tt.text)
		if len(result) != len(tt.expected) {
			t.Fatalf("extractTokenMentions(%q) = %v, want %v", tt.text, result, tt.expected)
		}
	}
}

func TestCT0(t *testing.T) {
	ct0 := GenerateCT0()
	if len(ct0) != 64 {
		t.Fatalf("expected 64 char hex, got %d chars", len(ct0))
	}
	// Should be different each time
	ct02 := GenerateCT0()
	if ct0 == ct02 {
		t.Fatal("expected different ct0 values")
	}
}

func TestExtractCT0FromHeaders(t *testing.T) {
	tests := []struct {
		name   string
		cookie string
		want   string
	}{
		{"empty", "", ""},
		{"single", "ct0=abc; Path=/; Secure", "abc"},
		{"folded", "guest_id=v1; Path=/, ct0=def; Domain=.x.com", "def"},
		{"missing", "auth_token=zzz; Path=/", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractCT0FromHeaders(map[string]string{"set-cookie": tt.cookie})
			if got != tt.want {
				t.Fatalf("extractCT0FromHeaders(%q) = %q, want %q", tt.cookie, got, tt.want)
			}
		})
	}
}
