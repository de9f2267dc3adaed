package cli

import (
	"context"

	"careeradvisor/internal/advisor"
	"careeradvisor/internal/ai"
	"careeradvisor/internal/config"
	"careeradvisor/internal/errors"
	"careeradvisor/internal/extract"
	"careeradvisor/internal/observability"
	"careeradvisor/internal/textract"
)

// analysisStack is everything a command needs to run analyses. Close
// releases the completion client.
type analysisStack struct {
	service  *ai.Service
	analyzer *advisor.Analyzer
}

func (s *analysisStack) Close(logger *errors.Logger) {
	if err := s.service.Close(); err != nil {
		logger.LogError(err, "Failed to close AI service")
	}
}

func newDocumentService(cfg *config.Config, logger *errors.Logger) *textract.Service {
	return textract.NewService(textract.Options{
		MaxSize: cfg.App.MaxDocumentSize,
		TempDir: cfg.App.TempDir,
	}, logger)
}

func newExtractor(cfg *config.Config, strict bool) *extract.Extractor {
	return extract.New(extract.Options{Strict: strict || cfg.App.StrictSchema})
}

func newAnalysisStack(ctx context.Context, cfg *config.Config, prompts *config.PromptStore, metrics *observability.Metrics, strict bool, logger *errors.Logger) (*analysisStack, error) {
	service, err := ai.NewService(ctx, &cfg.AI, prompts, logger)
	if err != nil {
		return nil, err
	}

	analyzer, err := advisor.New(advisor.Options{
		Documents: newDocumentService(cfg, logger),
		Provider:  service.Provider,
		Prompts:   service.Prompts,
		Extractor: newExtractor(cfg, strict),
		Metrics:   metrics,
		Logger:    logger,
	})
	if err != nil {
		_ = service.Close()
		return nil, err
	}

	return &analysisStack{service: service, analyzer: analyzer}, nil
}
