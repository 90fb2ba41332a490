package logging

import (
	"regexp"
	"strings"
)

// Redactor masks credentials in log values.
type Redactor struct {
	patterns []redactPattern
}

type redactPattern struct {
	regex       *regexp.Regexp
	replacement string
}

// sensitiveKeys are substrings of attribute keys whose values are never logged.
var sensitiveKeys = []string{
	"token", "authorization", "auth_header",
	"api_key", "apikey", "secret", "password", "passwd",
}

// NewRedactor creates a Redactor with the built-in credential patterns.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []redactPattern{
			{regexp.MustCompile(`Bearer\s+[A-Za-z0-9\-._~+/]+=*`), "Bearer ***"},
			{regexp.MustCompile(`sk-[A-Za-z0-9_\-]{8,}`), "sk-***"},
			{regexp.MustCompile(`(?i)(token|api[-_]?key|password)=[^\s&]+`), "$1=***"},
		},
	}
}

// RedactString masks credential patterns inside value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// IsSensitiveKey reports whether an attribute key names a credential.
func (r *Redactor) IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// MaskSecret keeps a short prefix of a credential for correlation.
func MaskSecret(secret string) string {
	if len(secret) <= 4 {
		return "***"
	}
	return secret[:4] + "***"
}
