package firewall

import (
	"regexp"
	"strings"
)

// RedactionMarker replaces every sensitive match.
const RedactionMarker = "[REDACTED]"

type redactionRule struct {
	name    string
	pattern *regexp.Regexp
}

// redactionRules run in order; earlier rules win over overlapping later ones
// (a card number is never half-eaten by the phone rule).
var redactionRules = []redactionRule{
	{name: "card_number", pattern: regexp.MustCompile(`\b(?:\d{4}[ -]?){3}\d{4}\b`)},
	{name: "ssn", pattern: regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{name: "email", pattern: regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)},
	{name: "phone", pattern: regexp.MustCompile(`(?:\+?1[ .-]?)?(?:\(\d{3}\)\s?|\b\d{3}[ .-]?)\d{3}[ .-]?\d{4}\b`)},
	{name: "credential_assignment", pattern: regexp.MustCompile(`(?i)\b(?:(?:api|access|auth|secret|private)[_-]?)?(?:key|token|password|passwd|secret)\s*[:=]\s*(?:"[^"]*"|'[^']*'|[^\s"']+)`)},
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// redact applies every rule and reports how many matches each replaced.
func redact(content string) (string, map[string]int) {
	counts := make(map[string]int)
	for _, rule := range redactionRules {
		content = rule.pattern.ReplaceAllStringFunc(content, func(string) string {
			counts[rule.name]++
			return RedactionMarker
		})
	}
	return content, counts
}

func collapseWhitespace(content string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(content, " "))
}
