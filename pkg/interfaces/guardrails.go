package interfaces

// Verdict is the outcome of an input moderation check
type Verdict struct {
	Approved bool
	Reason   string
}

// Moderator screens user input before it reaches the LLM and scrubs the
// LLM's output before it reaches the user
type Moderator interface {
	// CheckInput decides whether the user input may be sent to the LLM
	CheckInput(text string) Verdict

	// RedactOutput masks banned content in an LLM reply
	RedactOutput(text string) string
}
