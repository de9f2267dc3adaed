package ai

import (
	"context"
	"fmt"

	"careeradvisor/internal/config"
	"careeradvisor/internal/errors"
	"careeradvisor/internal/types"
)

// Service bundles the completion provider with the prompt builder.
type Service struct {
	Provider CompletionProvider
	Prompts  *PromptBuilder
	config   *config.AIConfig
	logger   *errors.Logger
}

// NewService creates the provider named by cfg.Provider.
func NewService(ctx context.Context, cfg *config.AIConfig, prompts *config.PromptStore, logger *errors.Logger) (*Service, error) {
	logger.Debug("Initializing AI service",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"timeout", cfg.Timeout,
		"json_mode", cfg.JSONMode,
		"use_system_prompt", cfg.UseSystemPrompt,
		"circuit_breaker", cfg.CircuitBreaker.Enabled)

	var provider CompletionProvider
	switch cfg.Provider {
	case "gemini":
		gemini, err := NewGeminiProvider(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		provider = gemini
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}

	return &Service{
		Provider: provider,
		Prompts:  NewPromptBuilder(prompts),
		config:   cfg,
		logger:   logger,
	}, nil
}

// GetModelInfo returns information about the AI model for health checks
func (s *Service) GetModelInfo(ctx context.Context) *types.ModelInfo {
	return s.Provider.GetModelInfo(ctx)
}

// Stats returns breaker statistics when the provider exposes them.
func (s *Service) Stats() map[string]any {
	if sp, ok := s.Provider.(StatsProvider); ok {
		return sp.GetCircuitBreakerStats()
	}
	return map[string]any{}
}

// Close releases the provider.
func (s *Service) Close() error {
	return s.Provider.Close()
}
