package guardrails

import (
	"errors"
	"fmt"
	"strings"

	"github.com/run-bigpig/chatmod/pkg/interfaces"
)

// ErrEmptyTerm is returned when a banned-term list contains a blank entry
var ErrEmptyTerm = errors.New("banned term must not be empty")

// trimmed from both ends of a token before it is tested against the terms
const tokenPunctuation = ".,!?;:"

// ContentFilter implements keyword moderation over an immutable banned-term list
type ContentFilter struct {
	blockedWords []string
}

var _ interfaces.Moderator = (*ContentFilter)(nil)

// NewContentFilter creates a new content filter. Terms are trimmed and
// lowercased; their order decides which term a rejection names.
func NewContentFilter(blockedWords []string) (*ContentFilter, error) {
	words := make([]string, 0, len(blockedWords))
	for i, w := range blockedWords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			return nil, fmt.Errorf("term %d: %w", i, ErrEmptyTerm)
		}
		words = append(words, w)
	}

	return &ContentFilter{blockedWords: words}, nil
}

// Terms returns a copy of the banned-term list
func (c *ContentFilter) Terms() []string {
	out := make([]string, len(c.blockedWords))
	copy(out, c.blockedWords)
	return out
}

// CheckInput rejects text containing any banned term as a substring,
// case-insensitively. The first term in list order is the one reported.
func (c *ContentFilter) CheckInput(text string) interfaces.Verdict {
	lower := strings.ToLower(text)
	for _, word := range c.blockedWords {
		if strings.Contains(lower, word) {
			return interfaces.Verdict{
				Approved: false,
				Reason:   fmt.Sprintf("Your message contains a banned keyword: '%s'. Please refrain from using such language.", word),
			}
		}
	}
	return interfaces.Verdict{Approved: true, Reason: "Input passed moderation."}
}

// RedactOutput masks banned terms in text. Text without any banned term is
// returned untouched. Otherwise the text is re-tokenized on whitespace and
// rejoined with single spaces; every token holding a term is lowercased and
// each term occurrence in it becomes RedactionMarker.
func (c *ContentFilter) RedactOutput(text string) string {
	if !c.containsAny(strings.ToLower(text)) {
		return text
	}

	tokens := strings.Fields(text)
	for i, token := range tokens {
		tokens[i] = c.redactToken(token)
	}
	return strings.Join(tokens, " ")
}

func (c *ContentFilter) redactToken(token string) string {
	lower := strings.ToLower(token)
	cleaned := strings.Trim(lower, tokenPunctuation)

	var matched []string
	for _, word := range c.blockedWords {
		if strings.Contains(cleaned, word) {
			matched = append(matched, word)
		}
	}
	if len(matched) == 0 {
		return token
	}

	// Replace on the lowercased token; markers already placed keep their case.
	parts := []string{lower}
	for _, word := range matched {
		var next []string
		for j, part := range parts {
			// odd indexes are markers
			if j%2 == 1 {
				next = append(next, part)
				continue
			}
			pieces := strings.Split(part, word)
			for k, piece := range pieces {
				if k > 0 {
					next = append(next, RedactionMarker)
				}
				next = append(next, piece)
			}
		}
		parts = next
	}
	return strings.Join(parts, "")
}

func (c *ContentFilter) containsAny(lower string) bool {
	for _, word := range c.blockedWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
