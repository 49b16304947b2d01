package llm

import "strings"

// ErrorPrefix marks reply text that reports a failed completion call
const ErrorPrefix = "Error calling OpenAI API: "

// GenerateParams contains parameters for a completion request
type GenerateParams struct {
	MaxTokens   int     // Upper bound on reply length
	Temperature float64 // Sampling temperature (0.0 to 2.0)
}

// DefaultGenerateParams returns default generation parameters
func DefaultGenerateParams() *GenerateParams {
	return &GenerateParams{
		MaxTokens:   150,
		Temperature: 0.7,
	}
}

// Completion is the outcome of one completion call: either reply text or
// the error that prevented it
type Completion struct {
	Text string
	Err  error
}

// Success wraps reply text, trimming surrounding whitespace
func Success(text string) Completion {
	return Completion{Text: strings.TrimSpace(text)}
}

// Failure wraps a completion error
func Failure(err error) Completion {
	return Completion{Err: err}
}

// OK reports whether the call produced reply text
func (c Completion) OK() bool {
	return c.Err == nil
}

// Reply returns the text shown to the user. Failures are rendered as an
// ErrorPrefix message so they travel the same redaction path as replies.
func (c Completion) Reply() string {
	if c.Err != nil {
		return ErrorPrefix + c.Err.Error()
	}
	return c.Text
}
