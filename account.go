package twitter

import (
	"sync"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/ratelimit"
)

// Account is the logged-in identity behind the scraper session.
type Account struct {
	Username   string
	Password   string
	Email      string
	TOTPSecret string
	UserAgent  string
	Profile    stealth.BrowserProfile

	mu             sync.Mutex
	authToken      string
	ct0            string
	ct0RefreshedAt time.Time
	userID         string
	screenName     string
	lockedUntil    time.Time
	rateLimiter    *ratelimit.Limiter
}

func newAccount(cfg ClientConfig) *Account {
	acc := &Account{
		Username:    cfg.Username,
		Password:    cfg.Password,
		Email:       cfg.Email,
		TOTPSecret:  cfg.TOTPSecret,
		rateLimiter: ratelimit.NewLimiter(cfg.RateLimit),
	}
	assignBrowserProfile(acc)
	if cfg.AuthToken != "" && cfg.CT0 != "" {
		acc.SetCredentials(cfg.AuthToken, cfg.CT0)
	}
	return acc
}

// assignBrowserProfile picks a stable browser profile for the account name.
func assignBrowserProfile(acc *Account) {
	idx := 0
	for _, r := range acc.Username {
		idx += int(r)
	}
	p := stealth.BuiltinProfiles[idx%len(stealth.BuiltinProfiles)]
	acc.Profile = p
	acc.UserAgent = p.UserAgent
}

// CT0Age returns the time since the ct0 token was last refreshed.
func (a *Account) CT0Age() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ct0RefreshedAt.IsZero() {
		return 24 * time.Hour
	}
	return time.Since(a.ct0RefreshedAt)
}

// RotateCT0 generates a fresh ct0 token and updates the refresh timestamp.
func (a *Account) RotateCT0() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ct0 = GenerateCT0()
	a.ct0RefreshedAt = time.Now()
}

// SetCT0 updates the ct0 from a server response.
func (a *Account) SetCT0(ct0 string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ct0 = ct0
	a.ct0RefreshedAt = time.Now()
}

// Credentials returns a snapshot of (authToken, ct0, userAgent) under lock.
func (a *Account) Credentials() (authToken, ct0, userAgent string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.authToken, a.ct0, a.UserAgent
}

// SetCredentials atomically updates auth_token and ct0.
func (a *Account) SetCredentials(authToken, ct0 string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.authToken = authToken
	a.ct0 = ct0
	a.ct0RefreshedAt = time.Now()
}

// HasSession reports whether auth cookies are present.
func (a *Account) HasSession() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.authToken != "" && a.ct0 != ""
}

// Identity returns the resolved rest id and screen name of the account.
func (a *Account) Identity() (userID, screenName string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.userID, a.screenName
}

func (a *Account) setIdentity(userID, screenName string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.userID = userID
	a.screenName = screenName
}

// Lock blocks all requests until the given time.
func (a *Account) Lock(until time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lockedUntil = until
}

// LockedUntil returns the end of the current lock, or zero when unlocked.
func (a *Account) LockedUntil() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	if time.Now().After(a.lockedUntil) {
		return time.Time{}
	}
	return a.lockedUntil
}

// AllowRequest checks if the account can make a request to the given endpoint.
func (a *Account) AllowRequest(endpoint string) bool {
	if a.rateLimiter == nil {
		return true
	}
	return a.rateLimiter.Allow(endpoint)
}

// MarkEndpointRateLimited marks an endpoint as rate-limited for the account.
func (a *Account) MarkEndpointRateLimited(endpoint string, until time.Time) {
	if a.rateLimiter == nil {
		return
	}
	a.rateLimiter.MarkRateLimited(endpoint, until)
}

// EndpointAvailableAt returns when the account will be available for the given endpoint.
func (a *Account) EndpointAvailableAt(endpoint string) time.Time {
	if a.rateLimiter == nil {
		return time.Time{}
	}
	return a.rateLimiter.AvailableAt(endpoint)
}
