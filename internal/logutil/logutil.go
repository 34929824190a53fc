// Package logutil keeps secrets and oversized page dumps out of log lines.
package logutil

import (
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"
)

// Redacted replaces sensitive values in logs.
const Redacted = "[REDACTED]"

const truncatedMark = "... [truncated]"

// sensitiveFragments are matched against lowercased keys with separators
// removed, so "X-Api-Key" and "api_key" both hit "apikey".
var sensitiveFragments = []string{
	"password",
	"secret",
	"token",
	"cookie",
	"apikey",
	"authorization",
	"credential",
}

var keySeparators = strings.NewReplacer("-", "", "_", "", " ", "")

// IsSensitiveLogField reports whether values under key must not be logged.
func IsSensitiveLogField(key string) bool {
	k := keySeparators.Replace(strings.ToLower(strings.TrimSpace(key)))
	return slices.ContainsFunc(sensitiveFragments, func(f string) bool {
		return strings.Contains(k, f)
	})
}

// FormatFormForLog renders a submitted form as key="value" pairs in key
// order, with sensitive values replaced by Redacted.
func FormatFormForLog(form url.Values) string {
	if len(form) == 0 {
		return "{}"
	}
	var b strings.Builder
	for i, k := range slices.Sorted(maps.Keys(form)) {
		if i > 0 {
			b.WriteString("; ")
		}
		value := strings.Join(form[k], ", ")
		if IsSensitiveLogField(k) {
			value = Redacted
		}
		fmt.Fprintf(&b, "%s=%q", k, value)
	}
	return b.String()
}

// MaskSecret hides all but the length of a secret so logs can tell an empty
// secret from a non-empty one.
func MaskSecret(secret string) string {
	if secret == "" {
		return "<empty>"
	}
	return fmt.Sprintf("%s(len=%d)", Redacted, len([]rune(secret)))
}

// TruncateForLog flattens value onto one line and cuts it to at most
// maxRunes runes plus a marker. maxRunes <= 0 disables the cut.
func TruncateForLog(value string, maxRunes int) string {
	flat := strings.ReplaceAll(strings.TrimSpace(value), "\n", `\n`)
	if maxRunes <= 0 {
		return flat
	}
	runes := []rune(flat)
	if len(runes) <= maxRunes {
		return flat
	}
	return string(runes[:maxRunes]) + truncatedMark
}
