package twitter

import (
	"maps"

	stealth "github.com/anatolykoptev/go-stealth"
)

// fallbackUserAgent is used when the account has no browser profile UA.
const fallbackUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

const webOrigin = "https://x.com"

// headerSet is a lowercase header map sent through the browser client.
type headerSet map[string]string

// webHeaders are sent by every request the web app makes to the API.
func webHeaders(userAgent string) headerSet {
	if userAgent == "" {
		userAgent = fallbackUserAgent
	}
	return headerSet{
		"authorization":             "Bearer " + BearerToken,
		"content-type":              "application/json",
		"user-agent":                userAgent,
		"accept":                    "*/*",
		"accept-language":           "en-US,en;q=0.9",
		"origin":                    webOrigin,
		"referer":                   webOrigin + "/",
		"x-twitter-active-user":     "yes",
		"x-twitter-client-language": "en",
	}
}

// sessionHeaders authenticate a logged-in request with the session cookies.
// The csrf header must mirror the ct0 cookie.
func sessionHeaders(authToken, ct0, userAgent string) headerSet {
	h := webHeaders(userAgent)
	h["x-csrf-token"] = ct0
	h["x-twitter-auth-type"] = "OAuth2Session"
	h["cookie"] = "auth_token=" + authToken + "; ct0=" + ct0
	h["accept-encoding"] = "gzip, deflate, br"
	h["sec-fetch-dest"] = "empty"
	h["sec-fetch-mode"] = "cors"
	h["sec-fetch-site"] = "same-origin"
	maps.Copy(h, stealth.ClientHintsHeaders(h["user-agent"]))
	return h
}

// guestHeaders are used before login, while walking the onboarding flow.
func guestHeaders(guestToken, userAgent string) headerSet {
	h := webHeaders(userAgent)
	if guestToken != "" {
		h["x-guest-token"] = guestToken
	}
	return h
}

// headerOrder keeps header order stable so it matches the TLS fingerprint.
var headerOrder = []string{
	"authorization",
	"content-type",
	"x-guest-token",
	"x-csrf-token",
	"x-twitter-auth-type",
	"x-twitter-active-user",
	"x-twitter-client-language",
	"sec-ch-ua",
	"sec-ch-ua-mobile",
	"sec-ch-ua-platform",
	"sec-fetch-dest",
	"sec-fetch-mode",
	"sec-fetch-site",
	"cookie",
	"user-agent",
	"accept",
	"accept-language",
	"accept-encoding",
	"origin",
	"referer",
}
