package credential

import (
	"os"
	"regexp"
	"strings"
)

// envRef matches a whole-value environment indirection like "${MAIL_PW}".
var envRef = regexp.MustCompile(`^\$\{(.+)\}$`)

// keyringPrefix marks a value that should be looked up in the system
// keyring, e.g. "keyring:imap-password".
const keyringPrefix = "keyring:"

// Resolve turns a configured secret into its usable value. Three forms
// are accepted:
//
//	literal           used as-is
//	${ENV_VAR}        read from the environment
//	keyring:<key>     read from the system keyring
//
// An unset environment variable resolves to the empty string so the
// caller can degrade to an empty-credential state instead of failing;
// the boolean result reports whether the reference resolved.
func Resolve(value string) (string, bool) {
	if m := envRef.FindStringSubmatch(value); m != nil {
		env, ok := os.LookupEnv(m[1])
		return env, ok
	}

	if strings.HasPrefix(value, keyringPrefix) {
		key := strings.TrimPrefix(value, keyringPrefix)
		secret, err := Get(key)
		if err != nil {
			return "", false
		}
		return secret, true
	}

	return value, true
}
