package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/run-bigpig/chatmod/pkg/interfaces"
	"github.com/run-bigpig/chatmod/pkg/logging"
	"github.com/run-bigpig/chatmod/pkg/retry"
	"github.com/sashabaranov/go-openai"
)

// ErrNoChoices is returned when the API answers without any completion choice
var ErrNoChoices = errors.New("no response from OpenAI API")

// OpenAIClient implements the LLM interface for OpenAI
type OpenAIClient struct {
	Client        *openai.Client
	Model         string
	logger        logging.Logger
	retryExecutor *retry.Executor
}

var _ interfaces.LLM = (*OpenAIClient)(nil)

// Option represents an option for configuring the OpenAI client
type Option func(*OpenAIClient)

// WithModel sets the model for the OpenAI client
func WithModel(model string) Option {
	return func(c *OpenAIClient) {
		c.Model = model
	}
}

// WithLogger sets the logger for the OpenAI client
func WithLogger(logger logging.Logger) Option {
	return func(c *OpenAIClient) {
		c.logger = logger
	}
}

// WithRetry configures retry policy for the client
func WithRetry(opts ...retry.Option) Option {
	return func(c *OpenAIClient) {
		c.retryExecutor = retry.NewExecutor(retry.NewPolicy(opts...))
	}
}

// NewClient creates a new OpenAI client. A non-empty baseURL points the
// client at an OpenAI-compatible endpoint; httpClient may be nil.
func NewClient(apiKey, baseURL string, httpClient *http.Client, options ...Option) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if httpClient != nil {
		config.HTTPClient = httpClient
	}

	client := &OpenAIClient{
		Client: openai.NewClientWithConfig(config),
		Model:  openai.GPT3Dot5Turbo,
		logger: logging.New(),
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// Complete sends the system prompt and a single user message to the chat
// completions endpoint and returns the first choice's content
func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userMessage string, maxTokens int, temperature float64) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
		MaxTokens:   maxTokens,
		Temperature: float32(temperature),
	}

	var resp openai.ChatCompletionResponse
	var err error

	operation := func() error {
		c.logger.Debug(ctx, "Executing OpenAI API request", map[string]interface{}{
			"model":       c.Model,
			"max_tokens":  req.MaxTokens,
			"temperature": req.Temperature,
			"messages":    len(req.Messages),
		})

		resp, err = c.Client.CreateChatCompletion(ctx, req)
		if err != nil {
			c.logger.Error(ctx, "Error from OpenAI API", map[string]interface{}{
				"error": err.Error(),
				"model": c.Model,
			})
			if !retryable(err) {
				return retry.Permanent(err)
			}
			return err
		}
		return nil
	}

	if c.retryExecutor != nil {
		err = c.retryExecutor.Execute(ctx, operation)
	} else {
		err = operation()
	}

	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	c.logger.Debug(ctx, "Successfully received response from OpenAI", map[string]interface{}{
		"model":             c.Model,
		"finish_reason":     resp.Choices[0].FinishReason,
		"completion_tokens": resp.Usage.CompletionTokens,
	})

	return resp.Choices[0].Message.Content, nil
}

// Name implements interfaces.LLM.Name
func (c *OpenAIClient) Name() string {
	return "openai"
}

// retryable reports whether an API error is worth another attempt.
// Authentication and validation failures are not.
func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= http.StatusInternalServerError
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= http.StatusInternalServerError
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// String describes the client for diagnostics
func (c *OpenAIClient) String() string {
	return fmt.Sprintf("openai(%s)", c.Model)
}
