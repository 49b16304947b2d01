// Package guardrails holds the keyword moderation applied to chat traffic:
// input screening before the LLM call and output redaction after it.
package guardrails

import "strings"

// RedactionMarker replaces banned terms in LLM output
const RedactionMarker = "[REDACTED]"

// DefaultBannedTerms is the built-in banned-term list, in match priority order
var DefaultBannedTerms = []string{"kill", "hack", "dangerous", "bomb", "harm", "hurt"}

// Redacted reports whether text carries the redaction marker
func Redacted(text string) bool {
	return strings.Contains(text, RedactionMarker)
}
