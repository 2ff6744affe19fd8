package respond

import (
	"regexp"
)

var (
	// Credentials embedded in URLs: proxy addresses and database DSNs both
	// carry them as user:password@host.
	urlCredsPattern = regexp.MustCompile(`://([^:/@\s]+):([^@\s]+)@`)

	// Proxy-Authorization and Authorization header values that leak into
	// transport error strings.
	authHeaderPattern = regexp.MustCompile(`(?i)(authorization: (?:basic|bearer) )\S+`)
)

// SanitizeError returns the error message with credentials masked.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	msg = urlCredsPattern.ReplaceAllString(msg, "://$1:****@")
	msg = authHeaderPattern.ReplaceAllString(msg, "${1}****")
	return msg
}
