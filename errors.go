package twitter

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

var (
	// ErrUserNotFound is returned when a handle does not resolve to an account.
	ErrUserNotFound = errors.New("twitter: user not found")
	// ErrAccountLocked is returned while the session account is in a lock or ban cooldown.
	ErrAccountLocked = errors.New("twitter: account locked")
	// ErrRateLimited is returned when an endpoint stays rate-limited beyond the wait budget.
	ErrRateLimited = errors.New("twitter: rate limited")
)

// errorClass categorizes Twitter API error responses for targeted handling.
type errorClass int

const (
	errNone          errorClass = iota
	errBanned                   // 88: rate limit abuse
	errSuspended                // 64: account suspended
	errLocked                   // 326: account locked (captcha needed)
	errCSRF                     // 353: csrf token mismatch
	errAuthExpired              // 32: could not authenticate
	errBlocked                  // 161: blocked from performing action
	errNotAuthorized            // 179, 219: not authorized
	errInternal                 // 131: Twitter internal error
	errDuplicate                // 187: status is a duplicate
)

// classifyError inspects a response body for known Twitter error codes.
func classifyError(body []byte) errorClass {
	var errResp struct {
		Errors []struct {
			Code int `json:"code"`
		} `json:"errors"`
	}
	if json.Unmarshal(body, &errResp) != nil || len(errResp.Errors) == 0 {
		return errNone
	}

	for _, e := range errResp.Errors {
		switch e.Code {
		case 88:
			return errBanned
		case 64:
			return errSuspended
		case 326:
			return errLocked
		case 353:
			return errCSRF
		case 32:
			return errAuthExpired
		case 161:
			return errBlocked
		case 179, 219:
			return errNotAuthorized
		case 131:
			return errInternal
		case 187:
			return errDuplicate
		}
	}
	return errNone
}

func (e errorClass) String() string {
	switch e {
	case errNone:
		return "none"
	case errBanned:
		return "banned"
	case errSuspended:
		return "suspended"
	case errLocked:
		return "locked"
	case errCSRF:
		return "csrf"
	case errAuthExpired:
		return "auth expired"
	case errBlocked:
		return "blocked"
	case errNotAuthorized:
		return "not authorized"
	case errInternal:
		return "internal"
	case errDuplicate:
		return "duplicate"
	}
	return "unknown"
}

// firstErrorMessage returns the first message of a Twitter errors array.
func firstErrorMessage(body []byte) string {
	var errResp struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if json.Unmarshal(body, &errResp) != nil || len(errResp.Errors) == 0 {
		return ""
	}
	return errResp.Errors[0].Message
}

// parseRateLimitReset parses the X-Rate-Limit-Reset unix timestamp header.
// Falls back to 15 minutes from now if missing or invalid.
func parseRateLimitReset(v string) time.Time {
	if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Unix(ts, 0)
	}
	return time.Now().Add(15 * time.Minute)
}
