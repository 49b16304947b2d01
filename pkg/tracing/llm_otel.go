package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/run-bigpig/chatmod/pkg/interfaces"
)

// LLMOTelMiddleware wraps an LLM with OpenTelemetry tracing
type LLMOTelMiddleware struct {
	llm    interfaces.LLM
	tracer *OTelTracer
}

var _ interfaces.LLM = (*LLMOTelMiddleware)(nil)

// NewLLMOTelMiddleware creates a new LLMOTelMiddleware
func NewLLMOTelMiddleware(llm interfaces.LLM, tracer *OTelTracer) *LLMOTelMiddleware {
	return &LLMOTelMiddleware{
		llm:    llm,
		tracer: tracer,
	}
}

// Complete implements interfaces.LLM.Complete
func (m *LLMOTelMiddleware) Complete(ctx context.Context, systemPrompt, userMessage string, maxTokens int, temperature float64) (string, error) {
	attributes := map[string]string{
		"llm.provider":    m.llm.Name(),
		"prompt.length":   fmt.Sprintf("%d", len(userMessage)),
		"llm.max_tokens":  fmt.Sprintf("%d", maxTokens),
		"llm.temperature": fmt.Sprintf("%g", temperature),
	}

	ctx, span := m.tracer.StartSpan(ctx, "llm.complete", attributes)

	response, err := m.llm.Complete(ctx, systemPrompt, userMessage, maxTokens, temperature)

	if m.tracer.Enabled() {
		if err == nil {
			span.SetAttributes(attribute.Int("response.length", len(response)))
		} else {
			span.SetStatus(codes.Error, err.Error())
		}
	}
	m.tracer.EndSpan(span, err)

	return response, err
}

// Name implements interfaces.LLM.Name
func (m *LLMOTelMiddleware) Name() string {
	return m.llm.Name()
}
