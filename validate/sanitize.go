package validate

import (
	"regexp"
	"strings"
)

var (
	angleBrackets = regexp.MustCompile(`[<>]`)
	jsScheme      = regexp.MustCompile(`(?i)javascript:`)
	eventHandler  = regexp.MustCompile(`(?i)on\w+\s*=`)
)

// Sanitize strips the characters and fragments most commonly used for
// markup injection: angle brackets, javascript: URLs, and inline event
// handler attributes. The result is also whitespace-trimmed.
//
// It is a defense for free-text fields rendered back to a page, not an
// HTML sanitizer; structured fields should be validated, not sanitized.
func Sanitize(value string) string {
	out := angleBrackets.ReplaceAllString(value, "")
	out = jsScheme.ReplaceAllString(out, "")
	out = eventHandler.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}
