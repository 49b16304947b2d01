package tracing

import (
	"context"
	"fmt"
	"time"

	"github.com/henomis/langfuse-go"
	"github.com/henomis/langfuse-go/model"

	"github.com/run-bigpig/chatmod/pkg/interfaces"
	"github.com/run-bigpig/chatmod/pkg/logging"
)

// LangfuseTracer records LLM generations in Langfuse. Credentials and host
// come from the LANGFUSE_PUBLIC_KEY, LANGFUSE_SECRET_KEY and LANGFUSE_HOST
// environment variables.
type LangfuseTracer struct {
	client      *langfuse.Langfuse
	enabled     bool
	environment string
}

// LangfuseConfig contains configuration for Langfuse
type LangfuseConfig struct {
	// Enabled determines whether Langfuse tracing is enabled
	Enabled bool

	// Environment is the environment name (e.g., "production", "staging")
	Environment string
}

// NewLangfuseTracer creates a new Langfuse tracer
func NewLangfuseTracer(config LangfuseConfig) *LangfuseTracer {
	if !config.Enabled {
		return &LangfuseTracer{enabled: false}
	}

	return &LangfuseTracer{
		client:      langfuse.New(context.Background()),
		enabled:     true,
		environment: config.Environment,
	}
}

func (t *LangfuseTracer) metadata(ctx context.Context, extra map[string]interface{}) model.M {
	m := model.M{"environment": t.environment}
	if turnID, ok := logging.TurnID(ctx); ok {
		m["turn_id"] = turnID
	}
	for k, v := range extra {
		m[k] = v
	}
	return m
}

// TraceGeneration traces an LLM generation
func (t *LangfuseTracer) TraceGeneration(ctx context.Context, modelName, systemPrompt, prompt, response string, startTime, endTime time.Time, metadata map[string]interface{}) (string, error) {
	if !t.enabled {
		return "", nil
	}

	generation := &model.Generation{
		Name:      fmt.Sprintf("generation-%d", time.Now().UnixNano()),
		StartTime: &startTime,
		EndTime:   &endTime,
		Model:     modelName,
		Input: []model.M{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
		Output: model.M{
			"completion": response,
		},
		Metadata: t.metadata(ctx, metadata),
	}

	var id string
	generationID, err := t.client.Generation(generation, &id)
	if err != nil {
		return "", fmt.Errorf("failed to create Langfuse generation: %w", err)
	}

	return generationID.ID, nil
}

// TraceEvent traces an event
func (t *LangfuseTracer) TraceEvent(ctx context.Context, name string, input interface{}, output interface{}, level string, metadata map[string]interface{}) (string, error) {
	if !t.enabled {
		return "", nil
	}

	event := &model.Event{
		Name:     name,
		Input:    input,
		Output:   output,
		Level:    model.ObservationLevel(level),
		Metadata: t.metadata(ctx, metadata),
	}

	var id string
	eventID, err := t.client.Event(event, &id)
	if err != nil {
		return "", fmt.Errorf("failed to create Langfuse event: %w", err)
	}

	return eventID.ID, nil
}

// Flush flushes the Langfuse client
func (t *LangfuseTracer) Flush() {
	if !t.enabled {
		return
	}
	t.client.Flush(context.Background())
}

// LLMMiddleware implements middleware for LLM calls with Langfuse tracing
type LLMMiddleware struct {
	llm    interfaces.LLM
	tracer *LangfuseTracer
	logger logging.Logger
}

var _ interfaces.LLM = (*LLMMiddleware)(nil)

// NewLLMMiddleware creates a new LLM middleware with Langfuse tracing
func NewLLMMiddleware(llm interfaces.LLM, tracer *LangfuseTracer, logger logging.Logger) *LLMMiddleware {
	if logger == nil {
		logger = logging.Nop()
	}
	return &LLMMiddleware{
		llm:    llm,
		tracer: tracer,
		logger: logger,
	}
}

// Complete implements interfaces.LLM.Complete
func (m *LLMMiddleware) Complete(ctx context.Context, systemPrompt, userMessage string, maxTokens int, temperature float64) (string, error) {
	startTime := time.Now()

	response, err := m.llm.Complete(ctx, systemPrompt, userMessage, maxTokens, temperature)

	endTime := time.Now()

	metadata := map[string]interface{}{
		"max_tokens":  maxTokens,
		"temperature": temperature,
	}

	// tracing failures never fail the request
	if err == nil {
		if _, traceErr := m.tracer.TraceGeneration(ctx, m.llm.Name(), systemPrompt, userMessage, response, startTime, endTime, metadata); traceErr != nil {
			m.logger.Warn(ctx, "Failed to trace generation", map[string]interface{}{"error": traceErr.Error()})
		}
	} else {
		metadata["error"] = err.Error()
		if _, traceErr := m.tracer.TraceEvent(ctx, "llm_error", userMessage, nil, "ERROR", metadata); traceErr != nil {
			m.logger.Warn(ctx, "Failed to trace error", map[string]interface{}{"error": traceErr.Error()})
		}
	}

	return response, err
}

// Name implements interfaces.LLM.Name
func (m *LLMMiddleware) Name() string {
	return m.llm.Name()
}
