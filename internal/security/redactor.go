package security

import (
	"regexp"
	"strings"
)

// Redacted replaces every secret found by a SecretRedactor.
const Redacted = "[REDACTED]"

// SecretRedactor masks credentials in text before it is written to a log.
type SecretRedactor struct {
	// keyed patterns capture a label in group 1 and the secret in group 2.
	keyed    []*regexp.Regexp
	patterns []*regexp.Regexp
	literals []string
}

// NewSecretRedactor creates a redactor with the default patterns. Each
// literal (for example the configured API key) is masked verbatim as well.
func NewSecretRedactor(literals ...string) *SecretRedactor {
	r := &SecretRedactor{
		keyed: []*regexp.Regexp{
			regexp.MustCompile(`(?i)((?:api[_-]?key|access[_-]?token|auth[_-]?token|secret|password|passwd)\s*[:=]\s*["']?)([A-Za-z0-9_\-\.+/]{8,})`),
			regexp.MustCompile(`(?i)(Bearer\s+)([A-Za-z0-9_\-\.]{10,256})`),
		},
		patterns: []*regexp.Regexp{
			// Google Cloud API keys
			regexp.MustCompile(`AIza[0-9A-Za-z\-_]{35}`),
			regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
			regexp.MustCompile(`gh[pous]_[A-Za-z0-9]{36}`),
			regexp.MustCompile(`sk-[A-Za-z0-9_\-]{20,}`),
			regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----[\s\S]+?-----END [A-Z ]*PRIVATE KEY-----`),
			// Credentials in connection URLs
			regexp.MustCompile(`(?:postgres|postgresql|mysql|mongodb|redis)://[^\s@/]*:[^\s@/]+@`),
		},
	}
	for _, l := range literals {
		if len(l) >= 8 {
			r.literals = append(r.literals, l)
		}
	}
	return r
}

// Redact masks all detected secrets in text.
func (r *SecretRedactor) Redact(text string) string {
	if text == "" {
		return ""
	}
	for _, l := range r.literals {
		text = strings.ReplaceAll(text, l, Redacted)
	}
	for _, p := range r.keyed {
		text = p.ReplaceAllString(text, "${1}"+Redacted)
	}
	for _, p := range r.patterns {
		text = p.ReplaceAllString(text, Redacted)
	}
	return text
}
