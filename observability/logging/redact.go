package logging

import (
	"log/slog"
	"sort"
	"strings"
)

// RedactedValue replaces secrets in log output.
const RedactedValue = "[REDACTED]"

// keys logged verbatim.
var plainKeys = map[string]struct{}{
	"service":   {},
	"env":       {},
	"error":     {},
	"reason":    {},
	"component": {},
	"module":    {},
	"op":        {},
	"sale":      {},
	"asset":     {},
	"amount":    {},
	"nonce":     {},
	"outcome":   {},
	"status":    {},
}

// fragments marking a key as secret; such values never reach the log.
var secretFragments = []string{"passphrase", "password", "secret", "token", "private", "mnemonic", "authorization"}

const (
	keepPrefix = 6
	keepSuffix = 4
)

// IsAllowlisted reports whether values under key are logged unmasked.
func IsAllowlisted(key string) bool {
	_, ok := plainKeys[normalizeKey(key)]
	return ok
}

// IsSecret reports whether values under key are always fully redacted.
func IsSecret(key string) bool {
	normalized := normalizeKey(key)
	for _, fragment := range secretFragments {
		if strings.Contains(normalized, fragment) {
			return true
		}
	}
	return false
}

// RedactionAllowlist returns the unmasked keys in sorted order.
func RedactionAllowlist() []string {
	keys := make([]string, 0, len(plainKeys))
	for key := range plainKeys {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// MaskValue keeps the head and tail of long identifiers so log lines stay
// correlatable. Short values are replaced entirely.
func MaskValue(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return value
	}
	if len(trimmed) <= keepPrefix+keepSuffix+2 {
		return RedactedValue
	}
	return trimmed[:keepPrefix] + "..." + trimmed[len(trimmed)-keepSuffix:]
}

// MaskField builds a slog attribute for key. Allowlisted keys pass through,
// secret keys are replaced and anything else is partially masked.
func MaskField(key, value string) slog.Attr {
	switch {
	case strings.TrimSpace(value) == "" || IsAllowlisted(key):
		return slog.String(key, value)
	case IsSecret(key):
		return slog.String(key, RedactedValue)
	default:
		return slog.String(key, MaskValue(value))
	}
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
