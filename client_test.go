package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeResponse struct {
	status  int
	body    string
	headers map[string]string
	err     error
}

type fakeCall struct {
	method  string
	url     string
	headers map[string]string
	body    string
}

// fakeDoer answers requests through a handler and records every call.
type fakeDoer struct {
	mu      sync.Mutex
	handler func(call fakeCall) fakeResponse
	calls   []fakeCall
	cookies map[string]string
}

func (f *fakeDoer) DoWithHeaderOrder(method, target string, headers map[string]string, body io.Reader, _ []string) ([]byte, map[string]string, int, error) {
	var b []byte
	if body != nil {
		b, _ = io.ReadAll(body)
	}
	call := fakeCall{method: method, url: target, headers: headers, body: string(b)}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	resp := f.handler(call)
	if resp.err != nil {
		return nil, nil, 0, resp.err
	}
	if resp.status == 0 {
		resp.status = 200
	}
	return []byte(resp.body), resp.headers, resp.status, nil
}

func (f *fakeDoer) GetCookieValue(_, name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cookies[name]
}

func (f *fakeDoer) callsTo(fragment string) []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []fakeCall
	for _, c := range f.calls {
		if strings.Contains(c.url, fragment) {
			out = append(out, c)
		}
	}
	return out
}

func newTestClient(t *testing.T, handler func(call fakeCall) fakeResponse) (*Client, *fakeDoer) {
	t.Helper()
	cfg := ClientConfig{
		Username: "bot",
		Password: "secret",
		Email:    "bot@example.com",
		Sessions: NewFileSessionStore(t.TempDir()),
	}
	cfg.defaults()
	acc := newAccount(cfg)
	acc.SetCredentials("auth", "csrf")

	doer := &fakeDoer{handler: handler, cookies: map[string]string{}}
	c := newClient(cfg, acc, doer)
	c.jitter = func(context.Context) error { return nil }
	c.backoff = func(int) time.Duration { return 0 }
	return c, doer
}

// graphQLVariables decodes the variables query parameter of a GraphQL GET.
func graphQLVariables(t *testing.T, target string) map[string]any {
	t.Helper()
	u, err := url.Parse(target)
	if err != nil {
		t.Fatal(err)
	}
	var vars map[string]any
	if err := json.Unmarshal([]byte(u.Query().Get("variables")), &vars); err != nil {
		t.Fatalf("decode variables: %v", err)
	}
	return vars
}

const userByScreenNameBody = `{"data":{"user":{"result":{"__typename":"User","rest_id":"42","legacy":{"screen_name":"alice","name":"Alice"}}}}}`

func TestSendTweet_Reply(t *testing.T) {
	c, doer := newTestClient(t, func(call fakeCall) fakeResponse {
		return fakeResponse{body: `{"data":{"create_tweet":{"tweet_results":{"result":{"rest_id":"900"}}}}}`}
	})

	id, err := c.SendTweet(context.Background(), "hello", "800")
	if err != nil {
		t.Fatal(err)
	}
	if id != "900" {
		t.Fatalf("expected tweet id 900, got %s", id)
	}

	calls := doer.callsTo("CreateTweet")
	if len(calls) != 1 || calls[0].method != "POST" {
		t.Fatalf("expected one POST to CreateTweet, got %+v", calls)
	}
	if calls[0].headers["x-csrf-token"] != "csrf" {
		t.Fatalf("expected csrf header, got %q", calls[0].headers["x-csrf-token"])
	}

	var payload struct {
		QueryID   string `json:"queryId"`
		Variables struct {
			TweetText string `json:"tweet_text"`
			Reply     struct {
				InReplyToTweetID string `json:"in_reply_to_tweet_id"`
			} `json:"reply"`
		} `json:"variables"`
	}
	if err := json.Unmarshal([]byte(calls[0].body), &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Variables.TweetText != "hello" || payload.Variables.Reply.InReplyToTweetID != "800" {
		t.Fatalf("unexpected payload %s", calls[0].body)
	}
	if payload.QueryID != opCreateTweet.QueryID {
		t.Fatalf("expected queryId %s, got %s", opCreateTweet.QueryID, payload.QueryID)
	}
}

func TestSendTweet_EmptyText(t *testing.T) {
	c, doer := newTestClient(t, func(fakeCall) fakeResponse { return fakeResponse{} })
	if _, err := c.SendTweet(context.Background(), "   ", ""); err == nil {
		t.Fatal("expected error for empty text")
	}
	if len(doer.calls) != 0 {
		t.Fatal("expected no request for empty text")
	}
}

func TestSendTweet_Duplicate(t *testing.T) {
	c, _ := newTestClient(t, func(fakeCall) fakeResponse {
		return fakeResponse{body: `{"errors":[{"code":187,"message":"Status is a duplicate."}]}`}
	})
	_, err := c.SendTweet(context.Background(), "again", "")
	if err == nil || !strings.Contains(err.Error(), "Status is a duplicate.") {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestFollowUser(t *testing.T) {
	c, doer := newTestClient(t, func(call fakeCall) fakeResponse {
		if strings.Contains(call.url, "UserByScreenName") {
			return fakeResponse{body: userByScreenNameBody}
		}
		return fakeResponse{body: `{"id_str":"42","screen_name":"alice"}`}
	})

	if err := c.FollowUser(context.Background(), "alice"); err != nil {
		t.Fatal(err)
	}
	// Second follow resolves the id from the cache.
	if err := c.FollowUser(context.Background(), "Alice"); err != nil {
		t.Fatal(err)
	}
	if n := len(doer.callsTo("UserByScreenName")); n != 1 {
		t.Fatalf("expected one profile lookup, got %d", n)
	}

	calls := doer.callsTo("friendships/create")
	if len(calls) != 2 {
		t.Fatalf("expected two follow calls, got %d", len(calls))
	}
	if calls[0].headers["content-type"] != "application/x-www-form-urlencoded" {
		t.Fatalf("expected form content type, got %q", calls[0].headers["content-type"])
	}
	form, err := url.ParseQuery(calls[0].body)
	if err != nil {
		t.Fatal(err)
	}
	if form.Get("user_id") != "42" {
		t.Fatalf("expected user_id=42, got %q", calls[0].body)
	}
}

func TestGetProfile_NotFound(t *testing.T) {
	c, _ := newTestClient(t, func(fakeCall) fakeResponse {
		return fakeResponse{body: `{"data":{}}`}
	})
	_, err := c.GetProfile(context.Background(), "ghost")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestMe_SetsIdentity(t *testing.T) {
	c, _ := newTestClient(t, func(fakeCall) fakeResponse {
		return fakeResponse{body: `{"id_str":"5","screen_name":"me","name":"Me"}`}
	})
	if _, err := c.Me(context.Background()); err != nil {
		t.Fatal(err)
	}
	if c.UserID() != "5" || c.Username() != "me" {
		t.Fatalf("identity = %s/%s", c.UserID(), c.Username())
	}
	if id, ok := c.cachedUserID("ME"); !ok || id != "5" {
		t.Fatal("expected own id in the handle cache")
	}
}

func TestGetTweetsAndRepliesByUserID_Paginates(t *testing.T) {
	page := func(id, cursor string) string {
		return `{"data":{"user":{"result":{"timeline_v2":{"timeline":{"instructions":[{"type":"TimelineAddEntries","entries":[
			{"entryId":"tweet-` + id + `","content":{"itemContent":{"__typename":"TimelineTweet","tweet_results":{"result":{"__typename":"Tweet","rest_id":"` + id + `","legacy":{"full_text":"t` + id + `","conversation_id_str":"` + id + `"}}}}}},
			{"entryId":"cursor-bottom","content":{"entryType":"TimelineTimelineCursor","value":"` + cursor + `","cursorType":"Bottom"}}
		]}]}}}}}}`
	}

	var cursors []any
	c, _ := newTestClient(t, func(call fakeCall) fakeResponse {
		vars := graphQLVariables(t, call.url)
		cursors = append(cursors, vars["cursor"])
		if vars["cursor"] == nil {
			return fakeResponse{body: page("1", "C1")}
		}
		return fakeResponse{body: page("2", "C2")}
	})

	tweets, err := c.GetTweetsAndRepliesByUserID(context.Background(), "5", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(tweets) != 2 || tweets[0].ID != "1" || tweets[1].ID != "2" {
		t.Fatalf("unexpected tweets %+v", tweets)
	}
	if len(cursors) != 2 || cursors[1] != "C1" {
		t.Fatalf("expected second page requested with cursor C1, got %v", cursors)
	}
}

func TestGetLatestTweet_SkipsRetweets(t *testing.T) {
	c, _ := newTestClient(t, func(call fakeCall) fakeResponse {
		if strings.Contains(call.url, "UserByScreenName") {
			return fakeResponse{body: userByScreenNameBody}
		}
		return fakeResponse{body: `{"data":{"user":{"result":{"timeline_v2":{"timeline":{"instructions":[{"type":"TimelineAddEntries","entries":[
			{"entryId":"tweet-2","content":{"itemContent":{"__typename":"TimelineTweet","tweet_results":{"result":{"__typename":"Tweet","rest_id":"2","legacy":{"full_text":"RT","retweeted_status_result":{"result":{"rest_id":"1"}}}}}}}},
			{"entryId":"tweet-3","content":{"itemContent":{"__typename":"TimelineTweet","tweet_results":{"result":{"__typename":"Tweet","rest_id":"3","legacy":{"full_text":"own words"}}}}}}
		]}]}}}}}}`}
	})

	tw, err := c.GetLatestTweet(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if tw.ID != "3" || tw.Text != "own words" {
		t.Fatalf("expected tweet 3, got %+v", tw)
	}
}

func TestDo_RotatesCT0OnCSRFError(t *testing.T) {
	var seen []string
	c, _ := newTestClient(t, func(call fakeCall) fakeResponse {
		seen = append(seen, call.headers["x-csrf-token"])
		if len(seen) == 1 {
			return fakeResponse{status: 403, body: `{"errors":[{"code":353,"message":"This request requires a matching csrf cookie and header."}]}`}
		}
		return fakeResponse{body: `{"id_str":"5","screen_name":"me"}`}
	})

	if _, err := c.Me(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 {
		t.Fatalf("expected a retry, got %d calls", len(seen))
	}
	if seen[0] == seen[1] {
		t.Fatal("expected a rotated ct0 on retry")
	}
}

func TestDo_PicksUpServerCT0(t *testing.T) {
	c, _ := newTestClient(t, func(fakeCall) fakeResponse {
		return fakeResponse{
			body:    `{"id_str":"5","screen_name":"me"}`,
			headers: map[string]string{"set-cookie": "ct0=fromserver; Path=/; Domain=.x.com"},
		}
	})
	if _, err := c.Me(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ct0, _ := c.Account().Credentials(); ct0 != "fromserver" {
		t.Fatalf("expected ct0 from set-cookie, got %q", ct0)
	}
}

func TestDo_SuspendedLocksAccount(t *testing.T) {
	c, doer := newTestClient(t, func(fakeCall) fakeResponse {
		return fakeResponse{status: 403, body: `{"errors":[{"code":64,"message":"Your account is suspended."}]}`}
	})

	_, err := c.Me(context.Background())
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}
	if c.Account().LockedUntil().IsZero() {
		t.Fatal("expected account lock")
	}

	_, err = c.Me(context.Background())
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected fail-fast lock error, got %v", err)
	}
	if len(doer.calls) != 1 {
		t.Fatalf("expected no request while locked, got %d calls", len(doer.calls))
	}
}

func TestDo_ServerErrorsExhaustRetries(t *testing.T) {
	c, doer := newTestClient(t, func(fakeCall) fakeResponse {
		return fakeResponse{status: 503, body: "unavailable"}
	})
	if _, err := c.Me(context.Background()); err == nil {
		t.Fatal("expected error after retries")
	}
	if len(doer.calls) != maxRetries {
		t.Fatalf("expected %d attempts, got %d", maxRetries, len(doer.calls))
	}
}

func TestDo_MutationsAreNotReplayed(t *testing.T) {
	tests := []struct {
		name string
		resp fakeResponse
	}{
		{"server error", fakeResponse{status: 503, body: "unavailable"}},
		{"transport error", fakeResponse{err: errors.New("connection reset by peer")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, doer := newTestClient(t, func(fakeCall) fakeResponse { return tt.resp })

			if _, err := c.SendTweet(context.Background(), "once", ""); err == nil {
				t.Fatal("expected error")
			}
			if n := len(doer.callsTo("CreateTweet")); n != 1 {
				t.Fatalf("expected a single CreateTweet attempt, got %d", n)
			}
		})
	}
}

func TestDo_ReadsRetryTransportErrors(t *testing.T) {
	attempts := 0
	c, doer := newTestClient(t, func(fakeCall) fakeResponse {
		attempts++
		if attempts == 1 {
			return fakeResponse{err: errors.New("connection reset by peer")}
		}
		return fakeResponse{body: userByScreenNameBody}
	})

	if _, err := c.GetProfile(context.Background(), "alice"); err != nil {
		t.Fatal(err)
	}
	if len(doer.calls) != 2 {
		t.Fatalf("expected a retry after the transport error, got %d calls", len(doer.calls))
	}
}

func TestLogin_FlowWithAlternateIdentifierAndTOTP(t *testing.T) {
	steps := []string{
		"LoginJsInstrumentationSubtask",
		"LoginEnterUserIdentifierSSO",
		"LoginEnterAlternateIdentifierSubtask",
		"LoginEnterPassword",
		"LoginTwoFactorAuthChallenge",
		"LoginSuccessSubtask",
	}
	next := 0
	flow := func() fakeResponse {
		body := `{"flow_token":"ft` + steps[next] + `","subtasks":[{"subtask_id":"` + steps[next] + `"}]}`
		next++
		return fakeResponse{body: body}
	}

	c, doer := newTestClient(t, func(call fakeCall) fakeResponse {
		switch {
		case strings.Contains(call.url, "guest/activate"):
			return fakeResponse{body: `{"guest_token":"g1"}`}
		case strings.Contains(call.url, "onboarding/task"):
			return flow()
		}
		return fakeResponse{status: 404}
	})
	c.acc.TOTPSecret = "JBSWY3DPEHPK3PXP"
	c.acc.SetCredentials("", "")
	doer.cookies["auth_token"] = "fresh-auth"
	doer.cookies["ct0"] = "fresh-ct0"

	if err := c.login(context.Background()); err != nil {
		t.Fatal(err)
	}

	authToken, ct0, _ := c.acc.Credentials()
	if authToken != "fresh-auth" || ct0 != "fresh-ct0" {
		t.Fatalf("unexpected credentials %q/%q", authToken, ct0)
	}

	calls := doer.callsTo("onboarding/task")
	// init + one submission per non-terminal subtask
	if len(calls) != len(steps) {
		t.Fatalf("expected %d flow calls, got %d", len(steps), len(calls))
	}
	if calls[0].headers["x-guest-token"] != "g1" {
		t.Fatalf("expected guest token header, got %q", calls[0].headers["x-guest-token"])
	}
	if !strings.Contains(calls[3].body, "bot@example.com") {
		t.Fatalf("expected email for the alternate identifier, got %s", calls[3].body)
	}
	if !strings.Contains(calls[4].body, `"password":"secret"`) {
		t.Fatalf("expected password submission, got %s", calls[4].body)
	}
	if !strings.Contains(calls[5].body, "LoginTwoFactorAuthChallenge") {
		t.Fatalf("expected 2FA submission, got %s", calls[5].body)
	}
}

func TestLogin_Denied(t *testing.T) {
	c, _ := newTestClient(t, func(call fakeCall) fakeResponse {
		if strings.Contains(call.url, "guest/activate") {
			return fakeResponse{body: `{"guest_token":"g1"}`}
		}
		return fakeResponse{body: `{"flow_token":"ft","subtasks":[{"subtask_id":"DenyLoginSubtask"}]}`}
	})
	if err := c.login(context.Background()); err == nil || !strings.Contains(err.Error(), "denied") {
		t.Fatalf("expected denial, got %v", err)
	}
}

func TestLoadOrLogin_UsesStoredSession(t *testing.T) {
	c, doer := newTestClient(t, func(fakeCall) fakeResponse { return fakeResponse{status: 500} })
	c.acc.SetCredentials("", "")
	ctx := context.Background()
	if err := c.cfg.Sessions.Save(ctx, "bot", Session{AuthToken: "stored", CT0: "stored-ct0", SavedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}

	if err := c.loadOrLogin(ctx); err != nil {
		t.Fatal(err)
	}
	if authToken, _, _ := c.acc.Credentials(); authToken != "stored" {
		t.Fatalf("expected stored auth token, got %q", authToken)
	}
	if len(doer.calls) != 0 {
		t.Fatal("expected no login requests")
	}
}

func TestLoadOrLogin_PersistsProvidedCookies(t *testing.T) {
	c, _ := newTestClient(t, func(fakeCall) fakeResponse { return fakeResponse{status: 500} })
	ctx := context.Background()

	if err := c.loadOrLogin(ctx); err != nil {
		t.Fatal(err)
	}
	s, found, err := c.cfg.Sessions.Load(ctx, "bot")
	if err != nil || !found {
		t.Fatalf("expected persisted session, found=%v err=%v", found, err)
	}
	if s.AuthToken != "auth" || s.CT0 != "csrf" {
		t.Fatalf("unexpected stored session %+v", s)
	}
}

func TestAccountLock(t *testing.T) {
	acc := &Account{Username: "bot"}
	if !acc.LockedUntil().IsZero() {
		t.Fatal("new account should be unlocked")
	}
	acc.Lock(time.Now().Add(time.Hour))
	if acc.LockedUntil().IsZero() {
		t.Fatal("expected lock")
	}
	acc.Lock(time.Now().Add(-time.Second))
	if !acc.LockedUntil().IsZero() {
		t.Fatal("expired lock should read as unlocked")
	}
}

func TestAssignBrowserProfile_Stable(t *testing.T) {
	a := &Account{Username: "bot"}
	b := &Account{Username: "bot"}
	assignBrowserProfile(a)
	assignBrowserProfile(b)
	if a.UserAgent == "" || a.UserAgent != b.UserAgent {
		t.Fatalf("expected stable user agent, got %q and %q", a.UserAgent, b.UserAgent)
	}
}
