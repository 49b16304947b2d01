package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/run-bigpig/chatmod/pkg/config"
	"github.com/run-bigpig/chatmod/pkg/guardrails"
	"github.com/run-bigpig/chatmod/pkg/interfaces"
	"github.com/run-bigpig/chatmod/pkg/llm"
	"github.com/run-bigpig/chatmod/pkg/llm/anthropic"
	"github.com/run-bigpig/chatmod/pkg/llm/openai"
	"github.com/run-bigpig/chatmod/pkg/logging"
	"github.com/run-bigpig/chatmod/pkg/retry"
	"github.com/run-bigpig/chatmod/pkg/session"
	"github.com/run-bigpig/chatmod/pkg/tracing"
)

// app holds everything one chatmod process runs with
type app struct {
	session *session.Session
	filter  *guardrails.ContentFilter
	logger  logging.Logger
	closers []func(context.Context) error
}

// Close flushes tracing exporters
func (a *app) Close(ctx context.Context) {
	for _, closer := range a.closers {
		if err := closer(ctx); err != nil {
			a.logger.Warn(ctx, "Failed to shut down tracer", map[string]interface{}{"error": err.Error()})
		}
	}
}

func newApp(cfg *config.Config, logger logging.Logger) (*app, error) {
	filter, err := guardrails.NewContentFilter(cfg.Moderation.BannedTerms)
	if err != nil {
		return nil, fmt.Errorf("failed to build content filter: %w", err)
	}

	a := &app{filter: filter, logger: logger}

	provider, err := newProvider(cfg, logger)
	if err != nil {
		return nil, err
	}

	if cfg.Tracing.Langfuse.Enabled {
		langfuseTracer := tracing.NewLangfuseTracer(tracing.LangfuseConfig{
			Enabled:     true,
			Environment: cfg.Tracing.Langfuse.Environment,
		})
		a.closers = append(a.closers, func(context.Context) error {
			langfuseTracer.Flush()
			return nil
		})
		provider = tracing.NewLLMMiddleware(provider, langfuseTracer, logger)
	}

	if cfg.Tracing.OTel.Enabled {
		otelTracer, err := tracing.NewOTelTracer(tracing.OTelConfig{
			Enabled:           true,
			ServiceName:       cfg.Tracing.OTel.ServiceName,
			CollectorEndpoint: cfg.Tracing.OTel.CollectorEndpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenTelemetry tracer: %w", err)
		}
		a.closers = append(a.closers, otelTracer.Shutdown)
		provider = tracing.NewLLMOTelMiddleware(provider, otelTracer)
	}

	completer := llm.NewCompleter(provider, cfg.LLM.SystemPrompt, &llm.GenerateParams{
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	}, logger)

	a.session = session.New(filter, completer, session.WithLogger(logger))
	return a, nil
}

func newProvider(cfg *config.Config, logger logging.Logger) (interfaces.LLM, error) {
	var httpClient *http.Client
	if cfg.LLM.Timeout > 0 {
		httpClient = &http.Client{Timeout: cfg.LLM.Timeout}
	}

	retryOptions := []retry.Option{
		retry.WithMaxAttempts(cfg.Retry.MaxAttempts),
		retry.WithInitialInterval(cfg.Retry.InitialInterval),
		retry.WithMaximumInterval(cfg.Retry.MaxInterval),
	}

	switch cfg.LLM.Provider {
	case config.ProviderOpenAI:
		options := []openai.Option{openai.WithLogger(logger), openai.WithRetry(retryOptions...)}
		if cfg.LLM.Model != "" {
			options = append(options, openai.WithModel(cfg.LLM.Model))
		}
		return openai.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, httpClient, options...), nil
	case config.ProviderAnthropic:
		options := []anthropic.Option{anthropic.WithLogger(logger), anthropic.WithRetry(retryOptions...)}
		if cfg.LLM.Model != "" {
			options = append(options, anthropic.WithModel(cfg.LLM.Model))
		}
		return anthropic.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, httpClient, options...), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}
