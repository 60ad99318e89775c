package captcha

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCapsolverServer(t *testing.T, handle func(method string, body map[string]any) any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(handle(r.URL.Path[1:], body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCapsolverSolve(t *testing.T) {
	var polls atomic.Int32
	srv := newCapsolverServer(t, func(method string, body map[string]any) any {
		assert.Equal(t, "key", body["clientKey"])
		switch method {
		case "getBalance":
			return map[string]any{"errorId": 0, "balance": 12.5}
		case "createTask":
			task := body["task"].(map[string]any)
			assert.Equal(t, "FunCaptchaTaskProxyLess", task["type"])
			assert.Equal(t, "site-key", task["websitePublicKey"])
			return map[string]any{"errorId": 0, "taskId": "t-1"}
		case "getTaskResult":
			assert.Equal(t, "t-1", body["taskId"])
			if polls.Add(1) < 2 {
				return map[string]any{"errorId": 0, "status": "processing"}
			}
			return map[string]any{"errorId": 0, "status": "ready", "solution": map[string]any{"token": "solved"}}
		}
		t.Errorf("unexpected method %s", method)
		return map[string]any{}
	})

	c := NewCapsolver("key", WithBaseURL(srv.URL+"/"), WithPollInterval(time.Millisecond))
	token, err := c.Solve(context.Background(), "site-key", "https://twitter.com")
	require.NoError(t, err)
	assert.Equal(t, "solved", token)
	assert.Equal(t, int32(2), polls.Load())
}

func TestCapsolverSolve_CreateError(t *testing.T) {
	srv := newCapsolverServer(t, func(method string, _ map[string]any) any {
		if method == "createTask" {
			return map[string]any{"errorId": 1, "errorCode": "ERROR_KEY_DENIED_ACCESS", "errorDescription": "bad key"}
		}
		return map[string]any{"errorId": 1}
	})

	c := NewCapsolver("key", WithBaseURL(srv.URL+"/"))
	_, err := c.Solve(context.Background(), "site-key", "https://twitter.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERROR_KEY_DENIED_ACCESS")
}

func TestCapsolverSolve_Timeout(t *testing.T) {
	srv := newCapsolverServer(t, func(method string, _ map[string]any) any {
		switch method {
		case "createTask":
			return map[string]any{"errorId": 0, "taskId": "t-2"}
		case "getTaskResult":
			return map[string]any{"errorId": 0, "status": "processing"}
		}
		return map[string]any{"errorId": 0, "balance": 100}
	})

	c := NewCapsolver("key",
		WithBaseURL(srv.URL+"/"),
		WithPollInterval(5*time.Millisecond),
		WithSolveTimeout(50*time.Millisecond))
	_, err := c.Solve(context.Background(), "site-key", "https://twitter.com")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCapsolverBalance(t *testing.T) {
	srv := newCapsolverServer(t, func(string, map[string]any) any {
		return map[string]any{"errorId": 0, "balance": 3.25}
	})
	bal, err := NewCapsolver("key", WithBaseURL(srv.URL+"/")).Balance(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 3.25, bal, 0.0001)
}
