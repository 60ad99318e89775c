package twitter

import (
	"encoding/json"
	"net/url"
)

const (
	graphQLBase   = "https://x.com/i/api/graphql"
	twitterAPIURL = "https://api.twitter.com"
)

// BearerToken is the public bearer token of the web app.
const BearerToken = "AAAAAAAAAAAAAAAAAAAAANRILgAAAAAAnNwIzUejRCOuH5E6I8xnZz4puTs%3D1Zv7ttfk8LF81IUq16cHjhLTvJu4FA33AGWWjCpTnA"

// Operation is a persisted GraphQL query of the web app. QueryIDs change
// when the web app is redeployed.
type Operation struct {
	Name     string
	QueryID  string
	Features map[string]any
}

// Operations used by the client.
var (
	opUserByScreenName     = Operation{Name: "UserByScreenName", QueryID: "1VOOyvKkiI3FMmkeDNxM9A", Features: webFeatures}
	opUserTweets           = Operation{Name: "UserTweets", QueryID: "HeWHY26ItCfUmm1e6ITjeA", Features: webFeatures}
	opUserTweetsAndReplies = Operation{Name: "UserTweetsAndReplies", QueryID: "OAx9yEcW3JA9bPo63pcYlA", Features: webFeatures}
	opSearchTimeline       = Operation{Name: "SearchTimeline", QueryID: "AIdc203rPpK_k_2KWSdm7g", Features: webFeatures}
	opCreateTweet          = Operation{Name: "CreateTweet", QueryID: "a1p9RWpkYKBjWv_I3WzS-A", Features: webFeatures}
)

// URL is the POST target of the operation.
func (o Operation) URL() string {
	return graphQLBase + "/" + o.QueryID + "/" + o.Name
}

// QueryURL is the GET target with variables, features and optional field
// toggles encoded as JSON query parameters.
func (o Operation) QueryURL(variables, fieldToggles map[string]any) string {
	q := url.Values{}
	q.Set("variables", mustJSON(variables))
	q.Set("features", mustJSON(o.Features))
	if fieldToggles != nil {
		q.Set("fieldToggles", mustJSON(fieldToggles))
	}
	return o.URL() + "?" + q.Encode()
}

// mustJSON encodes maps of plain values, which cannot fail.
func mustJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// REST endpoints outside the GraphQL surface.
const (
	verifyCredentialsURL = twitterAPIURL + "/1.1/account/verify_credentials.json?include_entities=false&skip_status=true"
	friendshipsCreateURL = twitterAPIURL + "/1.1/friendships/create.json"
	guestActivateURL     = twitterAPIURL + "/1.1/guest/activate.json"
	onboardingTaskURL    = twitterAPIURL + "/1.1/onboarding/task.json"
)

// webFeatures are the feature flags the web app sends with every operation.
var webFeatures = map[string]any{
	"articles_preview_enabled":                                                false,
	"c9s_tweet_anatomy_moderator_badge_enabled":                               true,
	"communities_web_enable_tweet_community_results_fetch":                    true,
	"creator_subscriptions_quote_tweet_preview_enabled":                       false,
	"creator_subscriptions_tweet_preview_api_enabled":                         true,
	"freedom_of_speech_not_reach_fetch_enabled":                               true,
	"graphql_is_translatable_rweb_tweet_is_translatable_enabled":              true,
	"longform_notetweets_consumption_enabled":                                 true,
	"longform_notetweets_inline_media_enabled":                                true,
	"longform_notetweets_rich_text_read_enabled":                              true,
	"premium_content_api_read_enabled":                                        false,
	"profile_label_improvements_pcf_label_in_post_enabled":                   false,
	"responsive_web_edit_tweet_api_enabled":                                   true,
	"responsive_web_enhance_cards_enabled":                                    false,
	"responsive_web_graphql_exclude_directive_enabled":                        true,
	"responsive_web_graphql_skip_user_profile_image_extensions_enabled":       false,
	"responsive_web_graphql_timeline_navigation_enabled":                      true,
	"responsive_web_grok_analyze_button_fetch_trends_enabled":                 false,
	"responsive_web_grok_analyze_post_followups_enabled":                      false,
	"responsive_web_grok_image_annotation_enabled":                            false,
	"responsive_web_grok_share_attachment_enabled":                            false,
	"responsive_web_media_download_video_enabled":                             false,
	"responsive_web_twitter_article_tweet_consumption_enabled":                true,
	"rweb_tipjar_consumption_enabled":                                         true,
	"rweb_video_timestamps_enabled":                                           true,
	"standardized_nudges_misinfo":                                             true,
	"tweet_awards_web_tipping_enabled":                                        false,
	"tweet_with_visibility_results_prefer_gql_limited_actions_policy_enabled": true,
	"tweet_with_visibility_results_prefer_gql_media_interstitial_enabled":     false,
	"tweetypie_unmention_optimization_enabled":                                true,
	"verified_phone_label_enabled":                                            false,
	"view_counts_everywhere_api_enabled":                                      true,
}
