package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"careeradvisor/internal/config"
	appErrors "careeradvisor/internal/errors"
	"careeradvisor/internal/types"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// analysisTemperature is fixed so the model stays literal about the
// requested JSON shape.
const analysisTemperature float32 = 0

const defaultModelCheckTimeout = 10 * time.Second

// GeminiProvider implements CompletionProvider for Google Gemini
type GeminiProvider struct {
	client            *genai.Client
	config            *config.AIConfig
	circuitBreaker    *CircuitBreaker
	modelBreaker      *ModelCircuitBreaker
	modelCheckTimeout time.Duration
	logger            *appErrors.Logger
}

var (
	_ CompletionProvider = (*GeminiProvider)(nil)
	_ StatsProvider      = (*GeminiProvider)(nil)
)

// NewGeminiProvider creates a Gemini client for cfg. The API key must
// already be resolved.
func NewGeminiProvider(ctx context.Context, cfg *config.AIConfig, logger *appErrors.Logger) (*GeminiProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, appErrors.NewConfigError(appErrors.ErrCodeMissingAPIKey,
			fmt.Sprintf("No API key configured: set CAREERADVISOR_AI_APIKEY or %s", cfg.APIKeyEnv), nil)
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, appErrors.NewAIError(appErrors.ErrCodeAIServiceFailed,
			"Failed to create Gemini client", err)
	}

	return &GeminiProvider{
		client:            client,
		config:            cfg,
		circuitBreaker:    NewCircuitBreaker("Complete", cfg.CircuitBreaker, logger),
		modelBreaker:      NewModelCircuitBreaker("Complete", cfg.CircuitBreaker, logger),
		modelCheckTimeout: defaultModelCheckTimeout,
		logger:            logger,
	}, nil
}

// SetModelCheckTimeout bounds GetModelInfo calls.
func (g *GeminiProvider) SetModelCheckTimeout(timeout time.Duration) {
	if timeout > 0 {
		g.modelCheckTimeout = timeout
	}
}

// Complete sends the prompt once, bounded by the configured timeout.
func (g *GeminiProvider) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	tracer := otel.Tracer("careeradvisor.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini.complete")
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.Float64("ai.temperature", float64(analysisTemperature)),
		attribute.Int("ai.prompt_length", len(req.UserPrompt)),
		attribute.Bool("ai.json_mode", g.config.JSONMode),
	)

	callCtx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	genaiConfig := g.buildGenerateConfig(req.SystemPrompt)

	start := time.Now()
	result, err := g.circuitBreaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.client.Models.GenerateContent(callCtx, g.config.Model, genai.Text(req.UserPrompt), genaiConfig)
	})
	duration := time.Since(start)

	if err != nil {
		appErr := g.classifyError(ctx, callCtx, err)
		span.RecordError(appErr)
		span.SetStatus(codes.Error, appErr.Code)
		span.SetAttributes(attribute.Bool("success", false))
		g.logger.LogError(appErr, "Gemini completion failed", "duration_ms", duration.Milliseconds())
		return nil, appErr
	}

	text := result.Text()
	if strings.TrimSpace(text) == "" {
		appErr := appErrors.NewAIError(appErrors.ErrCodeAIEmptyResponse,
			"Model returned an empty completion", nil).
			WithContext("model", g.config.Model).
			WithContext("finish_reason", finishReason(result))
		span.RecordError(appErr)
		span.SetStatus(codes.Error, appErr.Code)
		return nil, appErr
	}

	completion := &Completion{
		Text:     text,
		Model:    g.config.Model,
		Usage:    extractTokenUsage(result),
		Duration: duration,
	}
	if result.ModelVersion != "" {
		completion.Model = result.ModelVersion
	}

	if completion.Usage != nil {
		span.SetAttributes(
			attribute.Int("ai.tokens.input", int(completion.Usage.PromptTokens)),
			attribute.Int("ai.tokens.output", int(completion.Usage.CompletionTokens)),
			attribute.Int("ai.tokens.total", int(completion.Usage.TotalTokens)),
		)
	}
	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.Int("ai.completion_length", len(text)),
	)

	g.logger.Debug("Gemini completion received",
		"model", completion.Model,
		"duration_ms", duration.Milliseconds(),
		"completion_length", len(text))

	return completion, nil
}

func (g *GeminiProvider) buildGenerateConfig(systemPrompt string) *genai.GenerateContentConfig {
	genaiConfig := &genai.GenerateContentConfig{
		Temperature:    genai.Ptr(analysisTemperature),
		CandidateCount: 1,
	}
	if g.config.MaxOutputTokens > 0 {
		genaiConfig.MaxOutputTokens = g.config.MaxOutputTokens
	}
	if g.config.UseSystemPrompt && systemPrompt != "" {
		genaiConfig.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	if g.config.JSONMode {
		genaiConfig.ResponseMIMEType = "application/json"
		genaiConfig.ResponseSchema = analysisSchema()
	}
	return genaiConfig
}

// analysisSchema describes the reply shape for JSON mode.
func analysisSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"match_score": {Type: genai.TypeInteger},
			"missing_skills": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
			"recommendations": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
			"feedback": {Type: genai.TypeString},
		},
		Required:         []string{"match_score", "missing_skills", "recommendations", "feedback"},
		PropertyOrdering: []string{"match_score", "missing_skills", "recommendations", "feedback"},
	}
}

// classifyError maps a failed call to a typed AI error. Timeouts of the
// call's own deadline get a distinct code.
func (g *GeminiProvider) classifyError(parent, callCtx context.Context, err error) *appErrors.AppError {
	var appErr *appErrors.AppError

	switch {
	case parent.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded),
		errors.Is(err, context.DeadlineExceeded),
		isNetTimeout(err):
		appErr = appErrors.NewAIError(appErrors.ErrCodeAITimeout,
			fmt.Sprintf("Model did not respond within %s", g.config.Timeout), err).
			WithContext("timeout", g.config.Timeout.String())

	case isCanceled(err):
		appErr = appErrors.NewAIError(appErrors.ErrCodeAIServiceFailed,
			"Completion request was canceled", err)

	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		appErr = appErrors.NewAIError(appErrors.ErrCodeAIUnavailable,
			"Completion service is temporarily unavailable after repeated failures", err)

	default:
		appErr = appErrors.NewAIError(appErrors.ErrCodeAIServiceFailed,
			"Completion request failed", err)
		if status := statusCode(err); status != 0 {
			appErr = appErr.WithContext("status_code", status)
			if status == http.StatusTooManyRequests {
				appErr = appErr.WithContext("hint", "quota or rate limit exceeded")
			}
		}
	}

	return appErr.WithContext("model", g.config.Model)
}

func isNetTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// statusCode extracts an HTTP status from genai or googleapi errors.
func statusCode(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var googleErr *googleapi.Error
	if errors.As(err, &googleErr) {
		return googleErr.Code
	}
	return 0
}

func finishReason(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 {
		return "NO_CANDIDATES"
	}
	return string(result.Candidates[0].FinishReason)
}

// extractTokenUsage extracts token usage information from the response
func extractTokenUsage(result *genai.GenerateContentResponse) *types.TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &types.TokenUsage{
		PromptTokens:     usage.PromptTokenCount,
		CompletionTokens: usage.CandidatesTokenCount,
		TotalTokens:      usage.TotalTokenCount,
	}
}

// GetModelInfo checks the readiness and availability of the configured model
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *types.ModelInfo {
	info := &types.ModelInfo{
		Name:     g.config.Model,
		Provider: "gemini",
	}

	checkCtx, cancel := context.WithTimeout(ctx, g.modelCheckTimeout)
	defer cancel()

	model, err := g.modelBreaker.ExecuteModel(func() (*genai.Model, error) {
		return g.client.Models.Get(checkCtx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		info.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"error", err.Error())
		return info
	}

	info.Available = true
	info.DisplayName = model.DisplayName
	info.Description = model.Description
	info.Version = model.Version
	info.InputLimit = model.InputTokenLimit
	info.OutputLimit = model.OutputTokenLimit
	return info
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (g *GeminiProvider) GetCircuitBreakerStats() map[string]any {
	return map[string]any{
		"completion":      g.circuitBreaker.GetStats(),
		"model":           g.modelBreaker.GetModelStats(),
		"overall_healthy": g.circuitBreaker.IsHealthy() && g.modelBreaker.IsModelHealthy(),
	}
}

// Close implements CompletionProvider. The genai client holds no
// resources for unary calls.
func (g *GeminiProvider) Close() error {
	return nil
}
