// Package redact masks common PII patterns in chunk text before it is
// displayed or used as grounding context.
package redact

import "regexp"

// Placeholder tokens substituted for matched patterns.
const (
	TokenEmail    = "[REDACTED_EMAIL]"
	TokenPhone    = "[REDACTED_PHONE]"
	TokenPolicyID = "[REDACTED_POLICY_ID]"
	TokenAddress  = "[REDACTED_ADDRESS]"
)

// rule pairs a pattern with its replacement token. Rules are applied in
// order; the order matters because the address pattern can overlap the
// policy-number pattern.
type rule struct {
	pattern *regexp.Regexp
	token   string
}

var rules = []rule{
	{
		pattern: regexp.MustCompile(`(?i)[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),
		token:   TokenEmail,
	},
	{
		pattern: regexp.MustCompile(`\b(?:\+?1[-.\s]?)?(?:\(\d{3}\)|\d{3})[-.\s]?\d{3}[-.\s]?\d{4}\b`),
		token:   TokenPhone,
	},
	{
		pattern: regexp.MustCompile(`\b\d{4}-\d{4}\b`),
		token:   TokenPolicyID,
	},
	{
		pattern: regexp.MustCompile(`(?i)\b\d{1,5}\s+[A-Za-z0-9'.\-]+\s+(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr)\b`),
		token:   TokenAddress,
	},
}

// Text masks emails, phone numbers, policy-shaped tokens and street
// addresses in value. When enabled is false the input is returned
// unchanged.
func Text(value string, enabled bool) string {
	if !enabled || value == "" {
		return value
	}
	redacted := value
	for _, r := range rules {
		redacted = r.pattern.ReplaceAllString(redacted, r.token)
	}
	return redacted
}
