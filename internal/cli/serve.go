package cli

import (
	"context"
	"time"

	"careeradvisor/internal/ai"
	"careeradvisor/internal/config"
	"careeradvisor/internal/errors"
	"careeradvisor/internal/observability"
	"careeradvisor/internal/server"

	"github.com/spf13/cobra"
)

const telemetryShutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web UI and JSON API",
	Long: `Start an HTTP server with the resume upload form and a JSON API.

Available endpoints:
- GET  /:               Upload form
- POST /analyze:        Analyze an uploaded resume (HTML result page)
- POST /api/v1/analyze: Analyze a resume (multipart or JSON)
- POST /api/v1/extract: Parse a saved completion
- GET  /health:         Health check including model availability
- GET  /stats:          Rate limiter, circuit breaker and prompt status
- GET  /metrics:        Prometheus metrics (when observability is enabled)

TLS is enabled when both --tls-cert-file and --tls-key-file are set.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("tls-cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("tls-key-file", "", "Server private key file (PEM, overrides config)")
}

// applyServeFlags copies explicitly set flags over the loaded config.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	override := func(flagName string, target *string) {
		if cmd.Flags().Changed(flagName) {
			*target, _ = cmd.Flags().GetString(flagName)
		}
	}

	override("port", &cfg.Server.Port)
	override("host", &cfg.Server.Host)
	override("tls-cert-file", &cfg.Server.TLSCertFile)
	override("tls-key-file", &cfg.Server.TLSKeyFile)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	applyServeFlags(cmd, cfg)
	if (cfg.Server.TLSCertFile == "") != (cfg.Server.TLSKeyFile == "") {
		return errors.NewConfigError(errors.ErrCodeInvalidConfig,
			"both a TLS certificate and key file are required to enable TLS", nil)
	}

	om, err := observability.NewManager(ctx, cfg.Observability, Version)
	if err != nil {
		return errors.NewConfigError(errors.ErrCodeInvalidConfig, "failed to initialize observability", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer cancel()
		if err := om.Shutdown(shutdownCtx); err != nil {
			logger.LogError(err, "Failed to flush telemetry")
		}
	}()

	prompts, err := config.NewPromptStore(cfg.AI.CustomPrompts, logger)
	if err != nil {
		return errors.NewConfigError(errors.ErrCodeInvalidConfig, "failed to load prompt files", err)
	}

	var watcher *config.PromptWatcher
	if cfg.AI.CustomPrompts.WatchFiles {
		watcher = config.NewPromptWatcher(prompts, 0, func(err error) {
			if err == nil {
				logger.Info("Prompt templates reloaded", "version", prompts.Version())
			}
		}, logger)
	}

	stack, err := newAnalysisStack(ctx, cfg, prompts, om.Metrics(), false, logger)
	if err != nil {
		return err
	}
	defer stack.Close(logger)

	if gemini, ok := stack.service.Provider.(*ai.GeminiProvider); ok {
		gemini.SetModelCheckTimeout(cfg.Observability.HealthCheck.AIModelCheckTimeout)
	}

	srv, err := server.NewServer(server.Options{
		Config:        cfg,
		Version:       Version,
		Analyzer:      stack.analyzer,
		Models:        stack.service,
		Prompts:       prompts,
		PromptWatcher: watcher,
		Observability: om,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	return srv.Start(ctx)
}
