package config

import (
	"net/url"
	"regexp"
	"strings"
)

const redactedPassword = "***"

// keywordPassword matches the password setting of a key/value DSN, quoted or not.
var keywordPassword = regexp.MustCompile(`(\bpassword\s*=\s*)('(?:[^'\\]|\\.)*'|\S*)`) //nolint:gochecknoglobals // compiled once

// RedactURL hides the password of a PostgreSQL connection string so it can be
// printed. Both URL and key/value forms are handled; anything else is returned
// unchanged.
func RedactURL(raw string) string {
	if raw == "" {
		return ""
	}

	if !strings.Contains(raw, "://") {
		return keywordPassword.ReplaceAllString(raw, "${1}"+redactedPassword)
	}

	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}

	if _, hasPassword := u.User.Password(); !hasPassword {
		return raw
	}

	u.User = url.UserPassword(u.User.Username(), redactedPassword)

	return u.String()
}
