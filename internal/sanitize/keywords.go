package sanitize

import (
	"regexp"
	"strings"
)

// Mask replaces every value detected as secret.
const Mask = "****"

// secretKeywords are matched case-insensitively as substrings of map keys and
// as whole words inside strings.
var secretKeywords = []string{
	"password",
	"passwd",
	"pwd",
	"secret",
	"token",
	"apikey",
	"api_key",
	"api-key",
	"accessToken",
	"access_token",
	"access-token",
	"authorization",
}

// lowerKeywords is secretKeywords folded once for map key checks.
var lowerKeywords = func() []string {
	out := make([]string, len(secretKeywords))
	for i, kw := range secretKeywords {
		out[i] = strings.ToLower(kw)
	}
	return out
}()

// Keywords returns a copy of the secret keyword set.
func Keywords() []string {
	out := make([]string, len(secretKeywords))
	copy(out, secretKeywords)
	return out
}

// IsSecretKey reports whether a map key names a secret.
func IsSecretKey(key string) bool {
	k := strings.ToLower(key)
	for _, kw := range lowerKeywords {
		if strings.Contains(k, kw) {
			return true
		}
	}
	return false
}

// keywordAlternation renders the keyword set as a regexp alternation.
func keywordAlternation() string {
	quoted := make([]string, len(secretKeywords))
	for i, kw := range secretKeywords {
		quoted[i] = regexp.QuoteMeta(kw)
	}
	return "(?:" + strings.Join(quoted, "|") + ")"
}
