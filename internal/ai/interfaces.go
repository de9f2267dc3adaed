package ai

import (
	"context"
	"time"

	"careeradvisor/internal/types"
)

// CompletionProvider sends one rendered prompt to an LLM and returns its
// free-text reply. Implementations never retry.
type CompletionProvider interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
	GetModelInfo(ctx context.Context) *types.ModelInfo
	Close() error
}

// CompletionRequest is a fully rendered prompt.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
}

// Completion is the raw model reply plus call metadata.
type Completion struct {
	Text     string
	Model    string
	Usage    *types.TokenUsage
	Duration time.Duration
}

// StatsProvider is implemented by providers that expose breaker state.
type StatsProvider interface {
	GetCircuitBreakerStats() map[string]any
}
