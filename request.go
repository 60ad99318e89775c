package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"
)

const (
	maxRetries = 3

	// maxRateLimitWait is how long a call waits for an endpoint window to reopen.
	maxRateLimitWait = 5 * time.Minute
)

// apiRequest describes one authenticated call against the web API.
type apiRequest struct {
	endpoint    string
	method      string
	url         string
	body        []byte
	contentType string
	// mutation requests are not replayed after a transport error or 5xx.
	mutation    bool
}

// doGET executes an authenticated GET request.
func (c *Client) doGET(ctx context.Context, endpoint, target string) ([]byte, map[string]string, error) {
	return c.do(ctx, apiRequest{endpoint: endpoint, method: "GET", url: target})
}

// doPOST executes an authenticated POST mutation with a JSON payload.
func (c *Client) doPOST(ctx context.Context, endpoint, target string, payload []byte) ([]byte, error) {
	body, _, err := c.do(ctx, apiRequest{endpoint: endpoint, method: "POST", url: target, body: payload, mutation: true})
	return body, err
}

// doPOSTForm executes an authenticated POST with a form-encoded body.
func (c *Client) doPOSTForm(ctx context.Context, endpoint, target, form string) ([]byte, error) {
	body, _, err := c.do(ctx, apiRequest{
		endpoint:    endpoint,
		method:      "POST",
		url:         target,
		body:        []byte(form),
		contentType: "application/x-www-form-urlencoded",
		mutation:    true,
	})
	return body, err
}

// do runs the request with retries, ct0 rotation, relogin and rate-limit handling.
func (c *Client) do(ctx context.Context, req apiRequest) ([]byte, map[string]string, error) {
	acc := c.acc

	// Anti-fingerprint jitter
	if err := c.jitter(ctx); err != nil {
		return nil, nil, err
	}

	var lastErr error
	for attempt := range maxRetries {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff(attempt)):
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			}
		}

		if until := acc.LockedUntil(); !until.IsZero() {
			return nil, nil, fmt.Errorf("%s: %w until %s", req.endpoint, ErrAccountLocked, until.Format(time.RFC3339))
		}
		if err := c.waitForEndpoint(ctx, req.endpoint); err != nil {
			return nil, nil, err
		}

		// Proactive ct0 rotation
		if acc.CT0Age() > csrfRotateAfter {
			_, oldCT0, _ := acc.Credentials()
			acc.RotateCT0()
			slog.Info("ct0 rotated (proactive)", slog.String("user", acc.Username), slog.String("old_prefix", oldCT0[:min(8, len(oldCT0))]))
			c.persistSession(ctx)
		}

		authTok, ct0, ua := acc.Credentials()
		headers := sessionHeaders(authTok, ct0, ua)
		if req.contentType != "" {
			headers["content-type"] = req.contentType
		}
		var reqBody io.Reader
		if req.body != nil {
			reqBody = bytes.NewReader(req.body)
		}

		body, respHdrs, status, err := c.doRequest(req.method, req.url, headers, reqBody)
		if err != nil {
			if req.mutation {
				c.recordAPICall(req.endpoint, false, false)
				return nil, nil, fmt.Errorf("%s: %w", req.endpoint, err)
			}
			lastErr = err
			continue
		}

		switch {
		case status == 429:
			c.recordAPICall(req.endpoint, false, true)
			acc.MarkEndpointRateLimited(req.endpoint, parseRateLimitReset(respHdrs["x-rate-limit-reset"]))
			lastErr = fmt.Errorf("429 rate limited")
			continue

		case status >= 500 && req.mutation:
			c.recordAPICall(req.endpoint, false, false)
			slog.Warn("server error on mutation, not retrying", slog.String("endpoint", req.endpoint), slog.Int("status", status))
			return nil, nil, fmt.Errorf("%s HTTP %d: %s", req.endpoint, status, truncateBytes(body, 200))

		case status >= 500:
			c.recordAPICall(req.endpoint, false, false)
			slog.Warn("server error, retrying", slog.String("endpoint", req.endpoint), slog.Int("status", status))
			lastErr = fmt.Errorf("%s HTTP %d: %s", req.endpoint, status, truncateBytes(body, 200))
			continue

		case status != 200 && status != 201 && classifyError(body) == errNone:
			c.recordAPICall(req.endpoint, false, false)
			slog.Warn("non-200 response", slog.String("endpoint", req.endpoint), slog.Int("status", status), slog.String("body", truncateBytes(body, 500)))
			return nil, nil, fmt.Errorf("%s HTTP %d: %s", req.endpoint, status, truncateBytes(body, 200))
		}

		errClass := classifyError(body)
		switch errClass {
		case errNone:
			if newCT0 := extractCT0FromHeaders(respHdrs); newCT0 != "" && newCT0 != ct0 {
				acc.SetCT0(newCT0)
				c.persistSession(ctx)
			}
			c.recordAPICall(req.endpoint, true, false)
			return body, respHdrs, nil

		case errCSRF:
			slog.Warn("CSRF error 353, rotating ct0", slog.String("user", acc.Username))
			acc.RotateCT0()
			c.persistSession(ctx)
			lastErr = fmt.Errorf("csrf token rejected")
			continue

		case errAuthExpired:
			slog.Warn("auth expired (code 32), attempting relogin", slog.String("user", acc.Username))
			if reErr := c.relogin(ctx); reErr != nil {
				c.recordAPICall(req.endpoint, false, false)
				return nil, nil, fmt.Errorf("%s: %w", req.endpoint, reErr)
			}
			lastErr = fmt.Errorf("session expired")
			continue

		case errInternal:
			if hasResponseData(body) {
				c.recordAPICall(req.endpoint, true, false)
				slog.Debug("error 131 with usable data, treating as success", slog.String("endpoint", req.endpoint))
				return body, respHdrs, nil
			}
			slog.Warn("error 131 without data, retrying", slog.String("endpoint", req.endpoint))
			lastErr = fmt.Errorf("Twitter internal error (131)")
			continue

		case errLocked:
			c.recordAPICall(req.endpoint, false, false)
			slog.Warn("account locked (code 326, captcha needed)", slog.String("user", acc.Username))
			if c.cfg.CaptchaSolver != nil {
				slog.Info("attempting CAPTCHA unlock via relogin", slog.String("user", acc.Username))
				reErr := c.relogin(ctx)
				if reErr == nil {
					lastErr = fmt.Errorf("account locked")
					continue
				}
				slog.Warn("CAPTCHA unlock failed", slog.String("user", acc.Username), slog.Any("error", reErr))
			}
			acc.Lock(time.Now().Add(c.cfg.LockCooldown))
			return nil, nil, fmt.Errorf("%s: %w (code 326)", req.endpoint, ErrAccountLocked)

		case errBanned, errSuspended:
			c.recordAPICall(req.endpoint, false, false)
			slog.Warn("account restricted", slog.String("user", acc.Username), slog.String("class", errClass.String()))
			acc.Lock(time.Now().Add(c.cfg.LockCooldown))
			return nil, nil, fmt.Errorf("%s: %w (%s)", req.endpoint, ErrAccountLocked, errClass)

		default: // errBlocked, errNotAuthorized, errDuplicate
			c.recordAPICall(req.endpoint, false, false)
			if msg := firstErrorMessage(body); msg != "" {
				return nil, nil, fmt.Errorf("%s %s: %s", req.endpoint, errClass, msg)
			}
			return nil, nil, fmt.Errorf("%s %s", req.endpoint, errClass)
		}
	}

	if lastErr != nil {
		return nil, nil, fmt.Errorf("%s failed after %d attempts: %w", req.endpoint, maxRetries, lastErr)
	}
	return nil, nil, fmt.Errorf("%s failed after %d attempts", req.endpoint, maxRetries)
}

// waitForEndpoint blocks until the endpoint's rate-limit window allows a request.
func (c *Client) waitForEndpoint(ctx context.Context, endpoint string) error {
	if c.acc.AllowRequest(endpoint) {
		return nil
	}
	wait := time.Until(c.acc.EndpointAvailableAt(endpoint))
	if wait > maxRateLimitWait {
		return fmt.Errorf("%s: %w for %s", endpoint, ErrRateLimited, wait.Round(time.Second))
	}
	if wait <= 0 {
		return nil
	}
	slog.Info("endpoint rate limited, waiting", slog.String("endpoint", endpoint), slog.Duration("wait", wait))
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func truncateBytes(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// hasResponseData returns true if the JSON body contains a non-null "data" field.
func hasResponseData(body []byte) bool {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if json.Unmarshal(body, &envelope) != nil {
		return false
	}
	return len(envelope.Data) > 0 && string(envelope.Data) != "null"
}

