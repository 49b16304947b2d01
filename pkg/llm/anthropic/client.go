package anthropic

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/run-bigpig/chatmod/pkg/interfaces"
	"github.com/run-bigpig/chatmod/pkg/logging"
	"github.com/run-bigpig/chatmod/pkg/retry"
)

// DefaultModel is used when no model is configured
const DefaultModel = "claude-3-haiku-20240307"

// ErrEmptyResponse is returned when the reply carries no text block
var ErrEmptyResponse = errors.New("no text content in Anthropic response")

// AnthropicClient implements the LLM interface for Anthropic
type AnthropicClient struct {
	client        anthropic.Client
	Model         string
	logger        logging.Logger
	retryExecutor *retry.Executor
}

var _ interfaces.LLM = (*AnthropicClient)(nil)

// Option represents an option for configuring the Anthropic client
type Option func(*AnthropicClient)

// WithModel sets the model for the Anthropic client
func WithModel(model string) Option {
	return func(c *AnthropicClient) {
		c.Model = model
	}
}

// WithLogger sets the logger for the Anthropic client
func WithLogger(logger logging.Logger) Option {
	return func(c *AnthropicClient) {
		c.logger = logger
	}
}

// WithRetry configures retry policy for the client
func WithRetry(opts ...retry.Option) Option {
	return func(c *AnthropicClient) {
		c.retryExecutor = retry.NewExecutor(retry.NewPolicy(opts...))
	}
}

// NewClient creates a new Anthropic client. baseURL and httpClient are
// optional overrides.
func NewClient(apiKey, baseURL string, httpClient *http.Client, options ...Option) *AnthropicClient {
	// retries are owned by retryExecutor
	requestOptions := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		requestOptions = append(requestOptions, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		requestOptions = append(requestOptions, option.WithHTTPClient(httpClient))
	}

	c := &AnthropicClient{
		client: anthropic.NewClient(requestOptions...),
		Model:  DefaultModel,
		logger: logging.New(),
	}

	for _, opt := range options {
		opt(c)
	}

	return c
}

// Complete sends the system prompt and one user message to the Messages API
func (c *AnthropicClient) Complete(ctx context.Context, systemPrompt, userMessage string, maxTokens int, temperature float64) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.Model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userMessage)),
		},
		Temperature: anthropic.Float(temperature),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	var resp *anthropic.Message
	operation := func() error {
		c.logger.Debug(ctx, "Executing Anthropic API request", map[string]interface{}{
			"model":       c.Model,
			"max_tokens":  maxTokens,
			"temperature": temperature,
		})

		var err error
		resp, err = c.client.Messages.New(ctx, params)
		if err != nil {
			c.logger.Error(ctx, "Error from Anthropic API", map[string]interface{}{
				"error": err.Error(),
				"model": c.Model,
			})
			var apiErr *anthropic.Error
			if errors.As(err, &apiErr) && apiErr.StatusCode != http.StatusTooManyRequests && apiErr.StatusCode < http.StatusInternalServerError {
				return retry.Permanent(err)
			}
			return err
		}
		return nil
	}

	var err error
	if c.retryExecutor != nil {
		err = c.retryExecutor.Execute(ctx, operation)
	} else {
		err = operation()
	}
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", ErrEmptyResponse
	}

	c.logger.Debug(ctx, "Successfully received response from Anthropic", map[string]interface{}{
		"model":         c.Model,
		"stop_reason":   string(resp.StopReason),
		"output_tokens": resp.Usage.OutputTokens,
	})

	return text.String(), nil
}

// Name implements interfaces.LLM.Name
func (c *AnthropicClient) Name() string {
	return "anthropic"
}
