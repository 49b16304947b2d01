package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeLLM struct {
	reply string
	err   error

	system      string
	user        string
	maxTokens   int
	temperature float64
}

func (f *fakeLLM) Complete(_ context.Context, systemPrompt, userMessage string, maxTokens int, temperature float64) (string, error) {
	f.system, f.user, f.maxTokens, f.temperature = systemPrompt, userMessage, maxTokens, temperature
	return f.reply, f.err
}

func (f *fakeLLM) Name() string { return "fake" }

func TestCompleterSendsPromptAndParams(t *testing.T) {
	provider := &fakeLLM{reply: "  an answer\n"}
	completer := NewCompleter(provider, "be helpful", nil, nil)

	result := completer.Complete(context.Background(), "what is go?")

	assert.True(t, result.OK())
	assert.Equal(t, "an answer", result.Reply())
	assert.Equal(t, "be helpful", provider.system)
	assert.Equal(t, "what is go?", provider.user)
	assert.Equal(t, 150, provider.maxTokens)
	assert.Equal(t, 0.7, provider.temperature)
	assert.Equal(t, "fake", completer.Provider())
}

func TestCompleterWrapsFailure(t *testing.T) {
	provider := &fakeLLM{err: errors.New("connection refused")}
	completer := NewCompleter(provider, "sys", &GenerateParams{MaxTokens: 20, Temperature: 0.1}, nil)

	result := completer.Complete(context.Background(), "hi")

	assert.False(t, result.OK())
	assert.Equal(t, "Error calling OpenAI API: connection refused", result.Reply())
	assert.Equal(t, 20, provider.maxTokens)
}
