package logger

import "strings"

// sensitiveKeys lists payload field names whose values must never appear in
// a log line or in a stored webhook payload. Matching is case-insensitive
// on the lowercased key.
var sensitiveKeys = map[string]struct{}{
	"password":      {},
	"pass":          {},
	"secret":        {},
	"sharedsecret":  {},
	"api_key":       {},
	"apikey":        {},
	"client_key":    {},
	"private_key":   {},
	"authorization": {},
	"access_token":  {},
}

const redactedPlaceholder = "[REDACTED]"

// IsSensitiveKey reports whether a payload field must be stripped before
// logging or persistence.
func IsSensitiveKey(key string) bool {
	_, ok := sensitiveKeys[strings.ToLower(key)]
	return ok
}

// Redact returns a copy of fields with sensitive values replaced. The
// input map is never modified.
func Redact(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		if IsSensitiveKey(k) {
			out[k] = redactedPlaceholder
			continue
		}
		out[k] = v
	}
	return out
}
