package interfaces

import "context"

// LLM represents a remote completion service
type LLM interface {
	// Complete sends a system instruction and a single user message and
	// returns the model's reply text
	Complete(ctx context.Context, systemPrompt, userMessage string, maxTokens int, temperature float64) (string, error)

	// Name returns the name of the LLM provider
	Name() string
}
