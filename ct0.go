package twitter

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

// csrfRotateAfter is how long a ct0 token is used before it is replaced.
const csrfRotateAfter = 4 * time.Hour

// GenerateCT0 returns a fresh csrf token of 64 hex characters.
func GenerateCT0() string {
	var b [32]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// extractCT0FromHeaders returns the ct0 value carried by the set-cookie
// response header, if any. The header may hold several folded cookies.
func extractCT0FromHeaders(headers map[string]string) string {
	for _, cookie := range strings.FieldsFunc(headers["set-cookie"], isCookieSeparator) {
		name, value, ok := strings.Cut(strings.TrimSpace(cookie), "=")
		if ok && name == "ct0" && value != "" {
			return value
		}
	}
	return ""
}

func isCookieSeparator(r rune) bool {
	return r == ';' || r == ',' || r == '\n'
}
