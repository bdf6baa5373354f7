package logging

import (
	"log/slog"
	"strings"
	"unicode"
)

// RedactedValue replaces credentials in log output.
const RedactedValue = "[REDACTED]"

// sensitiveWords match whole words of a key, so "jwt_secret" and
// "Authorization" are masked while "tokens" is not.
var sensitiveWords = map[string]struct{}{
	"secret":        {},
	"token":         {},
	"jwt":           {},
	"authorization": {},
	"password":      {},
	"privkey":       {},
	"headers":       {},
}

// IsSensitive reports whether values logged under key must be masked.
func IsSensitive(key string) bool {
	words := strings.FieldsFunc(strings.ToLower(key), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, word := range words {
		if _, ok := sensitiveWords[word]; ok {
			return true
		}
		if word == "private" && i+1 < len(words) && words[i+1] == "key" {
			return true
		}
	}
	return false
}

// redactAttr masks non-empty values logged under a sensitive key. Groups are
// walked so nested attributes are covered too.
func redactAttr(attr slog.Attr) slog.Attr {
	if attr.Value.Kind() == slog.KindGroup {
		members := attr.Value.Group()
		masked := make([]any, 0, len(members))
		for _, member := range members {
			masked = append(masked, redactAttr(member))
		}
		return slog.Group(attr.Key, masked...)
	}
	if !IsSensitive(attr.Key) {
		return attr
	}
	if attr.Value.Kind() == slog.KindString && strings.TrimSpace(attr.Value.String()) == "" {
		return attr
	}
	return slog.String(attr.Key, RedactedValue)
}
