package captcha

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dghubble/sling"
)

const (
	// DefaultBaseURL is the Capsolver API root.
	DefaultBaseURL = "https://api.capsolver.com/"

	defaultPollInterval = 3 * time.Second
	defaultSolveTimeout = 2 * time.Minute
	balanceWarnLevel    = 5.0
)

// Capsolver implements Solver on top of the Capsolver task API.
type Capsolver struct {
	apiKey       string
	api          *sling.Sling
	pollInterval time.Duration
	solveTimeout time.Duration
}

// Option customizes a Capsolver client.
type Option func(*Capsolver)

// WithBaseURL points the client at another API root.
func WithBaseURL(base string) Option {
	return func(c *Capsolver) { c.api.Base(base) }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Capsolver) { c.api.Client(hc) }
}

// WithPollInterval sets the delay between task result polls.
func WithPollInterval(d time.Duration) Option {
	return func(c *Capsolver) { c.pollInterval = d }
}

// WithSolveTimeout bounds how long Solve polls a task.
func WithSolveTimeout(d time.Duration) Option {
	return func(c *Capsolver) { c.solveTimeout = d }
}

// NewCapsolver creates a Capsolver client with the given API key.
func NewCapsolver(apiKey string, opts ...Option) *Capsolver {
	c := &Capsolver{
		apiKey:       apiKey,
		api:          sling.New().Client(&http.Client{Timeout: 10 * time.Second}).Base(DefaultBaseURL),
		pollInterval: defaultPollInterval,
		solveTimeout: defaultSolveTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type apiStatus struct {
	ErrorID          int    `json:"errorId"`
	ErrorCode        string `json:"errorCode"`
	ErrorDescription string `json:"errorDescription"`
}

func (s apiStatus) err(op string) error {
	if s.ErrorID == 0 {
		return nil
	}
	return fmt.Errorf("capsolver %s error %s: %s", op, s.ErrorCode, s.ErrorDescription)
}

type createTaskResponse struct {
	apiStatus
	TaskID string `json:"taskId"`
}

type taskResultResponse struct {
	apiStatus
	Status   string `json:"status"`
	Solution struct {
		Token string `json:"token"`
	} `json:"solution"`
}

type balanceResponse struct {
	apiStatus
	Balance float64 `json:"balance"`
}

// Solve submits a FunCaptcha task and polls until it is ready.
func (c *Capsolver) Solve(ctx context.Context, siteKey, pageURL string) (string, error) {
	if bal, err := c.Balance(ctx); err == nil && bal < balanceWarnLevel {
		slog.Warn("capsolver balance low", slog.Float64("balance", bal))
	}

	var created createTaskResponse
	err := c.call(ctx, "createTask", map[string]any{
		"clientKey": c.apiKey,
		"task": map[string]any{
			"type":             "FunCaptchaTaskProxyLess",
			"websiteURL":       pageURL,
			"websitePublicKey": siteKey,
		},
	}, &created)
	if err != nil {
		return "", err
	}
	if err := created.err("createTask"); err != nil {
		return "", err
	}
	if created.TaskID == "" {
		return "", errors.New("capsolver: empty taskId in response")
	}
	slog.Info("captcha task created", slog.String("task_id", created.TaskID))

	ctx, cancel := context.WithTimeout(ctx, c.solveTimeout)
	defer cancel()

	for {
		var res taskResultResponse
		err := c.call(ctx, "getTaskResult", map[string]any{
			"clientKey": c.apiKey,
			"taskId":    created.TaskID,
		}, &res)
		if err != nil {
			return "", err
		}
		if err := res.err("getTaskResult"); err != nil {
			return "", err
		}

		switch res.Status {
		case "ready":
			if res.Solution.Token == "" {
				return "", errors.New("capsolver: ready but empty token")
			}
			slog.Info("captcha solved", slog.String("task_id", created.TaskID))
			return res.Solution.Token, nil
		case "idle", "processing":
			select {
			case <-time.After(c.pollInterval):
			case <-ctx.Done():
				return "", fmt.Errorf("capsolver task %s: %w", created.TaskID, ctx.Err())
			}
		default:
			return "", fmt.Errorf("capsolver: unexpected status %q", res.Status)
		}
	}
}

// Balance returns the Capsolver account balance in USD.
func (c *Capsolver) Balance(ctx context.Context) (float64, error) {
	var res balanceResponse
	if err := c.call(ctx, "getBalance", map[string]any{"clientKey": c.apiKey}, &res); err != nil {
		return 0, err
	}
	if err := res.err("getBalance"); err != nil {
		return 0, err
	}
	return res.Balance, nil
}

// call posts a JSON payload to an API method and decodes the reply.
func (c *Capsolver) call(ctx context.Context, method string, payload, result any) error {
	req, err := c.api.New().Post(method).BodyJSON(payload).Request()
	if err != nil {
		return fmt.Errorf("capsolver %s: %w", method, err)
	}
	resp, err := c.api.Do(req.WithContext(ctx), result, result)
	if err != nil {
		return fmt.Errorf("capsolver %s: %w", method, err)
	}
	// Error replies carry the same errorId envelope, decoded into result.
	if resp.StatusCode >= 500 {
		return fmt.Errorf("capsolver %s: HTTP %d", method, resp.StatusCode)
	}
	return nil
}
