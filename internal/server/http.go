package server

import (
	"context"
	"io"
	"time"

	"careeradvisor/internal/config"
	"careeradvisor/internal/errors"
	"careeradvisor/internal/observability"
	"careeradvisor/internal/types"
)

// AnalyzeRequest is the JSON body accepted by POST /api/v1/analyze.
type AnalyzeRequest struct {
	ResumeText     string `json:"resume_text"`
	JobDescription string `json:"job_description"`
}

// ExtractRequest is the JSON body accepted by POST /api/v1/extract.
type ExtractRequest struct {
	Completion string `json:"completion"`
}

// AnalysisResponse wraps an outcome for API clients.
type AnalysisResponse struct {
	Success bool `json:"success"`
	*types.Outcome
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Analyzer runs analyses for the HTTP handlers.
type Analyzer interface {
	Analyze(ctx context.Context, name string, resume io.Reader, jobDescription string) (*types.Outcome, error)
	AnalyzeText(ctx context.Context, req types.AnalysisRequest) (*types.Outcome, error)
	Interpret(ctx context.Context, completion string) *types.Outcome
}

// ModelStatus reports completion model health for /health and /stats.
type ModelStatus interface {
	GetModelInfo(ctx context.Context) *types.ModelInfo
	Stats() map[string]any
}

// Options holds everything needed to build a Server.
type Options struct {
	Config        *config.Config
	Version       string
	Analyzer      Analyzer
	Models        ModelStatus
	Prompts       *config.PromptStore
	PromptWatcher *config.PromptWatcher
	Observability *observability.Manager
	Logger        *errors.Logger
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	AppConfig *config.Config

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	MaxRequestSize int64

	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	analyzer      Analyzer
	models        ModelStatus
	prompts       *config.PromptStore
	promptWatcher *config.PromptWatcher
	om            *observability.Manager
	pages         *pageRenderer
	certificates  *certificateStore

	Logger *errors.Logger
}

// NewServer creates a new Server instance from opts.
func NewServer(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "server requires configuration", nil)
	}
	if opts.Analyzer == nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "server requires an analyzer", nil)
	}
	if opts.Logger == nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "server requires a logger", nil)
	}

	pages, err := newPageRenderer()
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInternal, "failed to parse page templates", err)
	}

	cfg := opts.Config.Server
	rateLimit := cfg.RateLimit

	var rateLimiter *RateLimiter
	if rateLimit.Enabled {
		rateLimiter = NewRateLimiter(rateLimit.RequestsPerMin, rateLimit.Window, rateLimit.BurstCapacity, opts.Logger)
	}

	return &Server{
		Host:            cfg.Host,
		Port:            cfg.Port,
		Version:         opts.Version,
		AppConfig:       opts.Config,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		IdleTimeout:     cfg.IdleTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
		MaxRequestSize:  cfg.MaxRequestSize,
		RateLimit:       &rateLimit,
		RateLimiter:     rateLimiter,
		analyzer:        opts.Analyzer,
		models:          opts.Models,
		prompts:         opts.Prompts,
		promptWatcher:   opts.PromptWatcher,
		om:              opts.Observability,
		pages:           pages,
		Logger:          opts.Logger,
	}, nil
}
