package nats

import (
	"strings"
	"unicode"
)

// SubjectPrefix is the first token of every subject used by the sink.
const SubjectPrefix = "jsonstreams"

// namespace joins values into a NATS subject under SubjectPrefix, dropping
// empty values and normalizing each one with formatForNamespace.
func namespace(values ...string) string {
	parts := make([]string, 0, len(values)+1)
	parts = append(parts, SubjectPrefix)
	for _, v := range values {
		if v == "" {
			continue
		}
		parts = append(parts, formatForNamespace(v))
	}
	return strings.Join(parts, ".")
}

// formatForNamespace turns camelCase and snake_case into kebab-case and
// strips characters that are not valid in a subject token. Dots and
// wildcards are kept so callers can address subject hierarchies.
func formatForNamespace(value string) string {
	var b strings.Builder
	b.Grow(len(value) + 4)

	var prev rune
	for i, r := range value {
		switch {
		case r == '_':
			b.WriteByte('-')
		case unicode.IsUpper(r):
			if i > 0 && unicode.IsLower(prev) {
				b.WriteByte('-')
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(r)
			}
		case unicode.IsLower(r), unicode.IsDigit(r), r == '-', r == '.', r == '*', r == '>':
			b.WriteRune(r)
		}
		prev = r
	}
	return b.String()
}
