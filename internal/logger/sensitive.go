package logger

import (
	"net/url"
	"regexp"
	"strings"
)

// SensitiveDataPatterns match credentials that must never reach a log line
var SensitiveDataPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9-._~+/]+=*)`),
	regexp.MustCompile(`(?i)((auth[-_]?key|api[-_]?key|app[-_]?key|token|secret|passw(or)?d)[\s:=]+)([^;,&\s"]{5,})`),
	regexp.MustCompile(`(?i)((session|sid|csrf)=)([^;,&\s]{5,})`),
}

// SensitiveKeywords mark field names whose values are redacted
var SensitiveKeywords = []string{
	"password", "passwd", "secret", "credential", "token", "auth_key", "api_key",
	"apikey", "app_key", "authorization", "cookie", "session",
}

// RedactSensitiveData replaces credential values with "[REDACTED]"
func RedactSensitiveData(input string) string {
	if input == "" {
		return input
	}
	for _, pattern := range SensitiveDataPatterns {
		input = pattern.ReplaceAllString(input, "$1[REDACTED]")
	}
	return input
}

// RedactURL strips userinfo and the query string from a URL under analysis.
// Unparseable input is returned with sensitive patterns redacted.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return RedactSensitiveData(raw)
	}
	u.User = nil
	if u.RawQuery != "" {
		u.RawQuery = "[REDACTED]"
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// RedactSensitiveFields redacts values of fields whose keys look sensitive
func RedactSensitiveFields(fields []Field) []Field {
	result := make([]Field, len(fields))
	copy(result, fields)

	for i := range result {
		keyLower := strings.ToLower(result[i].Key)
		for _, sensitiveKey := range SensitiveKeywords {
			if strings.Contains(keyLower, sensitiveKey) {
				if value, ok := result[i].Value.(string); ok && value != "" {
					result[i].Value = "[REDACTED]"
				}
				break
			}
		}
	}
	return result
}
