package auth

import (
	"fmt"
	"strings"
)

// RequiredEnv lists the environment variables a mode needs.
func RequiredEnv(mode Mode) []string {
	switch mode {
	case ModeCredentials:
		return []string{"TWITTER_USERNAME", "TWITTER_PASSWORD", "TWITTER_EMAIL"}
	case ModeAPI:
		return []string{"TWITTER_API", "TWITTER_API_SECRET", "TWITTER_ACCESS_TOKEN", "TWITTER_ACCESS_TOKEN_SECRET"}
	}
	return nil
}

// MissingEnvError lists every unset variable of the selected mode.
type MissingEnvError struct {
	Mode Mode
	Vars []string
}

func (e *MissingEnvError) Error() string {
	return fmt.Sprintf("missing environment variables for %s mode: %s", e.Mode, strings.Join(e.Vars, ", "))
}

// CheckEnv verifies that every variable of mode is set and non-empty.
// lookup has the signature of os.LookupEnv.
func CheckEnv(mode Mode, lookup func(string) (string, bool)) error {
	required := RequiredEnv(mode)
	if required == nil {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	var missing []string
	for _, key := range required {
		if v, ok := lookup(key); !ok || strings.TrimSpace(v) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return &MissingEnvError{Mode: mode, Vars: missing}
	}
	return nil
}
