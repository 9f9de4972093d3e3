package secrets

import (
	"regexp"
	"strings"
)

// Redactor masks credentials in strings bound for logs
type Redactor struct {
	patterns    []*regexp.Regexp
	secrets     []string
	replacement string
}

// NewRedactor creates a redactor with patterns for the credentials
// stockmentor handles
func NewRedactor() *Redactor {
	defaultPatterns := []string{
		// Database connection strings
		`postgres(?:ql)?://[^:/\s]+:[^@\s]+@`,
		// API keys in headers, query strings and config dumps
		`(?i)(?:x-rapidapi-key|api[_-]?key|token|password)["\s]*[:=]["\s]*[^\s"',}&]+`,
		`(?i)bearer\s+[a-zA-Z0-9\-\._~\+/]+=*`,
		`sk-[a-zA-Z0-9_\-]{20,}`, // OpenAI
		`AIza[0-9A-Za-z\-_]{35}`, // Google
		`redis://[^:/\s]*:[^@\s]+@`,
	}

	patterns := make([]*regexp.Regexp, len(defaultPatterns))
	for i, pattern := range defaultPatterns {
		patterns[i] = regexp.MustCompile(pattern)
	}
	return &Redactor{patterns: patterns, replacement: "[REDACTED]"}
}

// AddSecret masks an exact value wherever it appears
func (r *Redactor) AddSecret(value string) {
	if len(value) >= 4 {
		r.secrets = append(r.secrets, value)
	}
}

// RedactString redacts sensitive data from a string
func (r *Redactor) RedactString(input string) string {
	result := input
	for _, s := range r.secrets {
		result = strings.ReplaceAll(result, s, r.replacement)
	}
	for _, pattern := range r.patterns {
		result = pattern.ReplaceAllString(result, r.replacement)
	}
	return result
}

// Mask shows only the last four characters of a secret
func Mask(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return "****"
	}
	return strings.Repeat("*", 4) + value[len(value)-4:]
}
