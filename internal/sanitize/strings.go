package sanitize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// secretValue is a double-quoted literal, a single-quoted literal, or a run
// of characters up to whitespace, comma or semicolon.
const secretValue = `(?:"[^"\n]*?"|'[^'\n]*?'|[^\s,;]+)`

// Bare keywords must start a word. RE2's \b only knows ASCII, so the
// leading boundary is checked in replacePairs against Unicode letters and
// digits. A keyword is always followed by a separator, which makes a
// trailing boundary implicit.
var (
	// unquotedPair matches key: value and key = value.
	unquotedPair = regexp.MustCompile(`(?i)(` + keywordAlternation() + `)\s*[:=]\s*` + secretValue)

	// quotedPair matches "key": value, 'key': value and key: value. Go's regexp
	// has no backreferences, so each quoting style is its own branch and the
	// opening and closing quote always agree.
	quotedPair = regexp.MustCompile(
		`(?i)"(` + keywordAlternation() + `)"\s*:\s*` + secretValue +
			`|'(` + keywordAlternation() + `)'\s*:\s*` + secretValue +
			`|(` + keywordAlternation() + `)\s*:\s*` + secretValue)
)

// quoteEscaper prefixes quotes and backticks with a backslash.
var quoteEscaper = strings.NewReplacer(`"`, `\"`, `'`, `\'`, "`", "\\`")

// String applies the string transform: mask secrets, escape quotes, strip
// path traversal. Stages run in that order.
func String(s string) string {
	return StripTraversal(EscapeQuotes(MaskSecrets(s)))
}

// MaskSecrets replaces the value in every secret-looking key/value pair with
// Mask. The unquoted form is rewritten first and normalizes its separator to
// ": ". The quoted form keeps the key's original quoting.
func MaskSecrets(s string) string {
	s = replacePairs(unquotedPair, s, func(groups []string) string {
		return groups[1] + ": " + Mask
	})
	return replacePairs(quotedPair, s, func(groups []string) string {
		switch {
		case groups[1] != "":
			return `"` + groups[1] + `": ` + Mask
		case groups[2] != "":
			return `'` + groups[2] + `': ` + Mask
		default:
			return groups[3] + ": " + Mask
		}
	})
}

// EscapeQuotes prefixes every double quote, single quote and backtick with a
// backslash.
func EscapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// StripTraversal collapses "/../" to "/" and "\..\" to "\" until none remain,
// then drops every leftover "../". A trailing bare ".." is left alone.
func StripTraversal(s string) string {
	for strings.Contains(s, "/../") {
		s = strings.ReplaceAll(s, "/../", "/")
	}
	for strings.Contains(s, `\..\`) {
		s = strings.ReplaceAll(s, `\..\`, `\`)
	}
	for strings.Contains(s, "../") {
		s = strings.ReplaceAll(s, "../", "")
	}
	return s
}

// replacePairs is ReplaceAllStringFunc with access to capture groups. A
// match that begins with a word character is skipped when it continues a
// word, and the search resumes one character later.
func replacePairs(re *regexp.Regexp, s string, repl func(groups []string) string) string {
	var b strings.Builder
	last, pos := 0, 0
	for pos < len(s) {
		m := re.FindStringSubmatchIndex(s[pos:])
		if m == nil {
			break
		}
		start, end := pos+m[0], pos+m[1]
		if first, size := utf8.DecodeRuneInString(s[start:]); isWordRune(first) && !wordStart(s, start) {
			pos = start + size
			continue
		}

		groups := make([]string, len(m)/2)
		for i := range groups {
			if m[2*i] >= 0 {
				groups[i] = s[pos+m[2*i] : pos+m[2*i+1]]
			}
		}
		if b.Len() == 0 {
			b.Grow(len(s))
		}
		b.WriteString(s[last:start])
		b.WriteString(repl(groups))
		last, pos = end, end
	}
	if last == 0 {
		return s
	}
	b.WriteString(s[last:])
	return b.String()
}

// wordStart reports whether s[i] begins a word.
func wordStart(s string, i int) bool {
	if i == 0 {
		return true
	}
	prev, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(prev)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}
