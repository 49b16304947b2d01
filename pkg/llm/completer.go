package llm

import (
	"context"

	"github.com/run-bigpig/chatmod/pkg/interfaces"
	"github.com/run-bigpig/chatmod/pkg/logging"
)

// Completer sends a fixed system prompt plus one user message per call.
// It keeps no history between calls.
type Completer struct {
	llm          interfaces.LLM
	systemPrompt string
	params       GenerateParams
	logger       logging.Logger
}

// NewCompleter creates a completer over the given provider. A nil params
// selects DefaultGenerateParams.
func NewCompleter(provider interfaces.LLM, systemPrompt string, params *GenerateParams, logger logging.Logger) *Completer {
	if params == nil {
		params = DefaultGenerateParams()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Completer{
		llm:          provider,
		systemPrompt: systemPrompt,
		params:       *params,
		logger:       logger,
	}
}

// Complete never returns an error: failures are carried in the Completion
func (c *Completer) Complete(ctx context.Context, userText string) Completion {
	reply, err := c.llm.Complete(ctx, c.systemPrompt, userText, c.params.MaxTokens, c.params.Temperature)
	if err != nil {
		c.logger.Warn(ctx, "Completion failed", map[string]interface{}{
			"provider": c.llm.Name(),
			"error":    err.Error(),
		})
		return Failure(err)
	}
	return Success(reply)
}

// Provider returns the name of the underlying LLM provider
func (c *Completer) Provider() string {
	return c.llm.Name()
}
