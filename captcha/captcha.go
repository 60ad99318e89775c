// Package captcha solves the Arkose challenges that Twitter raises during
// login and on locked accounts.
package captcha

import "context"

// Solver abstracts a CAPTCHA solving service.
type Solver interface {
	// Solve returns the solution token for an Arkose challenge.
	// siteKey is the FunCaptcha public key, pageURL the page raising the challenge.
	Solve(ctx context.Context, siteKey, pageURL string) (token string, err error)

	// Balance returns the account balance in USD.
	Balance(ctx context.Context) (float64, error)
}
