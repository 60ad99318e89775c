package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/pquerna/otp/totp"
)

// arkosePublicKey is Twitter's well-known FunCaptcha public key for login flows.
const arkosePublicKey = "0152B4EB-D2DC-460A-89A1-629838B529C9"

// maxLoginRounds caps the number of onboarding subtasks answered in one login.
const maxLoginRounds = 12

// loadOrLogin restores a persisted session, falls back to configured cookies,
// and finally runs the login flow.
func (c *Client) loadOrLogin(ctx context.Context) error {
	acc := c.acc

	s, found, err := c.cfg.Sessions.Load(ctx, acc.Username)
	if err != nil {
		slog.Warn("error loading session", slog.String("user", acc.Username), slog.Any("error", err))
	}
	if found && s.Valid(c.cfg.SessionTTL) {
		acc.SetCredentials(s.AuthToken, s.CT0)
		slog.Info("loaded persisted session", slog.String("user", acc.Username))
		return nil
	}
	if found {
		slog.Debug("session expired", slog.String("user", acc.Username))
	}

	if acc.HasSession() {
		slog.Info("using provided credentials", slog.String("user", acc.Username))
		c.persistSession(ctx)
		return nil
	}

	if acc.Password == "" {
		return fmt.Errorf("no session and no password for account %s", acc.Username)
	}

	if err := c.login(ctx); err != nil {
		return fmt.Errorf("login failed for %s: %w", acc.Username, err)
	}
	c.persistSession(ctx)
	return nil
}

// relogin clears auth credentials and performs a fresh login.
func (c *Client) relogin(ctx context.Context) error {
	c.loginMu.Lock()
	defer c.loginMu.Unlock()

	acc := c.acc
	slog.Info("attempting relogin", slog.String("user", acc.Username))

	acc.SetCredentials("", "")
	if err := c.cfg.Sessions.Delete(ctx, acc.Username); err != nil {
		slog.Warn("session delete failed", slog.String("user", acc.Username), slog.Any("error", err))
	}
	if acc.Password == "" {
		return fmt.Errorf("relogin %s: no password configured", acc.Username)
	}
	if err := c.login(ctx); err != nil {
		return fmt.Errorf("relogin %s: %w", acc.Username, err)
	}
	c.persistSession(ctx)

	slog.Info("relogin succeeded", slog.String("user", acc.Username))
	return nil
}

// login performs Twitter's multi-step login flow.
func (c *Client) login(ctx context.Context) error {
	acc := c.acc
	slog.Info("logging in", slog.String("user", acc.Username))

	ctx, cancel := context.WithTimeout(ctx, c.cfg.LoginTimeout)
	defer cancel()

	guestToken, err := c.acquireGuestToken(ctx)
	if err != nil {
		return fmt.Errorf("get guest token: %w", err)
	}

	fr, err := c.initLoginFlow(guestToken)
	if err != nil {
		return fmt.Errorf("init login flow: %w", err)
	}

rounds:
	for round := 0; round < maxLoginRounds; round++ {
		if len(fr.Subtasks) == 0 {
			break
		}

		subtaskID := fr.Subtasks[0].SubtaskID
		slog.Debug("login subtask", slog.String("user", acc.Username), slog.String("subtask", subtaskID))

		var input map[string]any
		switch subtaskID {
		case "LoginJsInstrumentationSubtask":
			input = map[string]any{"js_instrumentation": map[string]any{
				"response": `{"rf":{"a":"b"},"s":"s"}`,
				"link":     "next_link",
			}}

		case "LoginEnterUserIdentifierSSO":
			input = map[string]any{"settings_list": map[string]any{
				"setting_responses": []any{map[string]any{
					"key":           "user_identifier",
					"response_data": map[string]any{"text_data": map[string]any{"result": acc.Username}},
				}},
				"link": "next_link",
			}}

		case "LoginEnterPassword":
			input = map[string]any{"enter_password": map[string]any{"password": acc.Password, "link": "next_link"}}

		case "LoginArkoseChallenge", "LoginArkoseCaptcha", "LoginEnterRecaptcha":
			if c.cfg.CaptchaSolver == nil {
				return fmt.Errorf("CAPTCHA required but no solver configured for %s", acc.Username)
			}
			token, solveErr := c.cfg.CaptchaSolver.Solve(ctx, arkosePublicKey, "https://twitter.com")
			if solveErr != nil {
				return fmt.Errorf("CAPTCHA solve failed for %s: %w", acc.Username, solveErr)
			}
			slog.Info("CAPTCHA solved for login", slog.String("user", acc.Username))
			subtaskID = "LoginArkoseChallenge"
			input = map[string]any{"web_modal": map[string]any{
				"completion_deeplink": "twitter://onboarding/web_modal/next_link?access_token=" + token,
			}}

		case "LoginTwoFactorAuthChallenge":
			if acc.TOTPSecret == "" {
				return fmt.Errorf("2FA required but no TOTP secret for %s", acc.Username)
			}
			code, codeErr := totp.GenerateCode(acc.TOTPSecret, time.Now())
			if codeErr != nil {
				return fmt.Errorf("TOTP code generation failed for %s: %w", acc.Username, codeErr)
			}
			slog.Info("submitting TOTP code", slog.String("user", acc.Username))
			input = enterText(code)

		case "LoginEnterAlternateIdentifierSubtask", "LoginAcid":
			input = enterText(alternateIdentifier(acc))

		case "LoginSuccessSubtask", "AccountDuplicationCheck":
			slog.Debug("login flow complete", slog.String("user", acc.Username), slog.String("terminal", subtaskID))
			break rounds

		case "DenyLoginSubtask":
			return fmt.Errorf("login denied for %s (account may be locked or disabled)", acc.Username)

		default:
			slog.Warn("unknown login subtask, skipping", slog.String("user", acc.Username), slog.String("subtask", subtaskID))
			input = map[string]any{"action_list": map[string]any{"link": "next_link"}}
		}

		fr, err = c.submitFlowStep(guestToken, fr.FlowToken, subtaskID, input)
		if err != nil {
			return fmt.Errorf("login subtask %s for %s: %w", subtaskID, acc.Username, err)
		}
	}

	authToken := c.cookie("auth_token")
	if authToken == "" {
		return fmt.Errorf("login completed but no auth_token in cookies for %s", acc.Username)
	}
	ct0 := c.cookie("ct0")
	if ct0 == "" {
		ct0 = GenerateCT0()
	}

	acc.SetCredentials(authToken, ct0)
	slog.Info("login successful", slog.String("user", acc.Username))
	return nil
}

// alternateIdentifier answers "enter your email or phone" challenges.
func alternateIdentifier(acc *Account) string {
	if acc.Email != "" {
		return acc.Email
	}
	return acc.Username
}

func enterText(text string) map[string]any {
	return map[string]any{"enter_text": map[string]any{"text": text, "link": "next_link"}}
}

// cookie reads a session cookie from either Twitter domain.
func (c *Client) cookie(name string) string {
	if v := c.http.GetCookieValue(twitterAPIURL, name); v != "" {
		return v
	}
	return c.http.GetCookieValue(webOrigin, name)
}

// getGuestToken fetches a Twitter guest token.
func (c *Client) getGuestToken() (string, error) {
	body, _, status, err := c.doRequest("POST", guestActivateURL, guestHeaders("", c.acc.UserAgent), nil)
	if err != nil {
		return "", err
	}
	if status != 200 {
		return "", fmt.Errorf("guest token: HTTP %d", status)
	}
	var resp struct {
		GuestToken string `json:"guest_token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	if resp.GuestToken == "" {
		return "", fmt.Errorf("empty guest token in response")
	}
	return resp.GuestToken, nil
}

// acquireGuestToken fetches a fresh guest token with exponential backoff.
func (c *Client) acquireGuestToken(ctx context.Context) (string, error) {
	backoff := stealth.BackoffConfig{
		InitialWait: 2 * time.Second,
		MaxWait:     60 * time.Second,
		Multiplier:  2.0,
		JitterPct:   0.3,
	}
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff.Duration(attempt)):
			}
		}
		token, err := c.getGuestToken()
		if err == nil {
			return token, nil
		}
		lastErr = err
		slog.Warn("guest token acquisition failed", slog.Int("attempt", attempt+1), slog.Any("error", err))
	}
	return "", fmt.Errorf("acquire guest token after 3 attempts: %w", lastErr)
}

// loginFlowPayload is the subtask_versions body for flow_name=login.
const loginFlowPayload = `{"input_flow_data":{"flow_context":{"debug_overrides":{},"start_location":{"location":"splash_screen"}}},"subtask_versions":{"action_list":2,"alert_dialog":1,"app_download_cta":1,"check_logged_in_account":1,"choice_selection":3,"contacts_live_sync_permission_prompt":0,"cta":7,"email_verification":2,"end_flow":1,"enter_date":1,"enter_email":2,"enter_password":5,"enter_phone":2,"enter_recaptcha":1,"enter_text":5,"enter_username":2,"generic_urt":3,"in_app_notification":1,"interest_picker":3,"js_instrumentation":1,"menu_dialog":1,"notifications_permission_prompt":2,"open_account":2,"open_home_timeline":1,"open_link":1,"phone_verification":4,"privacy_options":1,"security_key":3,"select_avatar":4,"select_banner":2,"settings_list":7,"show_code":1,"sign_up":2,"sign_up_review":4,"tweet_selection_urt":1,"update_users":1,"upload_media":1,"user_recommendations_list":4,"user_recommendations_urt":1,"wait_spinner":3,"web_modal":1}}`

type flowResponse struct {
	FlowToken string        `json:"flow_token"`
	Subtasks  []flowSubtask `json:"subtasks"`
}

type flowSubtask struct {
	SubtaskID string `json:"subtask_id"`
}

func parseFlowResponse(body []byte) (*flowResponse, error) {
	var fr flowResponse
	if err := json.Unmarshal(body, &fr); err != nil {
		return nil, fmt.Errorf("parse flow response: %w", err)
	}
	if fr.FlowToken == "" {
		return nil, fmt.Errorf("empty flow_token in response: %s", truncateBytes(body, 200))
	}
	return &fr, nil
}

func (c *Client) initLoginFlow(guestToken string) (*flowResponse, error) {
	headers := guestHeaders(guestToken, c.acc.UserAgent)
	body, _, status, err := c.doRequest("POST", onboardingTaskURL+"?flow_name=login", headers, strings.NewReader(loginFlowPayload))
	if err != nil {
		return nil, err
	}
	if status != 200 {
		return nil, fmt.Errorf("init flow: HTTP %d: %s", status, truncateBytes(body, 300))
	}
	return parseFlowResponse(body)
}

// submitFlowStep answers one onboarding subtask.
func (c *Client) submitFlowStep(guestToken, flowToken, subtaskID string, input map[string]any) (*flowResponse, error) {
	payload, err := json.Marshal(flowStepPayload(flowToken, subtaskID, input))
	if err != nil {
		return nil, err
	}
	headers := guestHeaders(guestToken, c.acc.UserAgent)
	body, _, status, err := c.doRequest("POST", onboardingTaskURL, headers, strings.NewReader(string(payload)))
	if err != nil {
		return nil, err
	}
	if status != 200 {
		if msg := firstErrorMessage(body); msg != "" {
			return nil, fmt.Errorf("flow step HTTP %d: %s", status, msg)
		}
		return nil, fmt.Errorf("flow step HTTP %d: %s", status, truncateBytes(body, 300))
	}
	return parseFlowResponse(body)
}

func flowStepPayload(flowToken, subtaskID string, input map[string]any) map[string]any {
	in := map[string]any{"subtask_id": subtaskID}
	for k, v := range input {
		in[k] = v
	}
	return map[string]any{
		"flow_token":     flowToken,
		"subtask_inputs": []any{in},
	}
}
