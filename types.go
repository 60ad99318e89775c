package twitter

import "time"

// TwitterUser represents a Twitter/X account profile.
type TwitterUser struct {
	ID             string    `json:"userId"`
	Handle         string    `json:"username"`
	DisplayName    string    `json:"name"`
	Bio            string    `json:"biography,omitempty"`
	Location       string    `json:"location,omitempty"`
	Website        string    `json:"website,omitempty"`
	Avatar         string    `json:"avatar,omitempty"`
	Banner         string    `json:"banner,omitempty"`
	Followers      int       `json:"followersCount"`
	Following      int       `json:"followingCount"`
	TweetCount     int       `json:"tweetsCount"`
	ListedCount    int       `json:"listedCount"`
	LikesCount     int       `json:"likesCount"`
	CreatedAt      time.Time `json:"joined,omitzero"`
	IsVerified     bool      `json:"isVerified"`
	IsBlueVerified bool      `json:"isBlueVerified"`
	IsPrivate      bool      `json:"isPrivate"`
	PinnedTweetIDs []string  `json:"pinnedTweetIds,omitempty"`
}

// Tweet represents a single tweet.
type Tweet struct {
	ID             string    `json:"id"`
	AuthorID       string    `json:"userId"`
	AuthorHandle   string    `json:"username,omitempty"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"timeParsed,omitzero"`
	ConversationID string    `json:"conversationId,omitempty"`
	InReplyToID    string    `json:"inReplyToStatusId,omitempty"`
	IsRetweet      bool      `json:"isRetweet"`
	IsReply        bool      `json:"isReply"`
	Views          int       `json:"views"`
	Likes          int       `json:"likes"`
	Retweets       int       `json:"retweets"`
	Replies        int       `json:"replies"`
	Quotes         int       `json:"quotes"`
	TokenMentions  []string  `json:"tokenMentions,omitempty"` // extracted $TICKER patterns, e.g. ["BTC", "ETH"]
}
