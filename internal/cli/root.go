package cli

import (
	"context"

	"careeradvisor/internal/config"
	"careeradvisor/internal/errors"

	"github.com/spf13/cobra"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

// Use variables of these types as the keys.
var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

var rootFlags struct {
	configFile string
	envFiles   []string
	logLevel   string
}

var rootCmd = &cobra.Command{
	Use:   "careeradvisor",
	Short: "Compare a resume against a job description using AI",
	Long: `careeradvisor extracts the text of a resume (PDF, DOCX or plain text),
asks a language model how well it matches a job description, and reports a
match score, missing skills, recommendations and feedback.

It runs as a command-line tool or as a web server with an upload form and a
JSON API.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadRuntime,
}

// Execute runs the root command. Config and logger are loaded before any
// subcommand runs and are available through the command context.
func Execute(ctx context.Context) error {
	cmd, err := rootCmd.ExecuteContextC(ctx)
	if err != nil && cmd != nil && cmd.Context() != nil {
		if logger, ok := cmd.Context().Value(loggerKey).(*errors.Logger); ok {
			logger.LogError(err, "Command failed", "command", cmd.Name())
		}
	}
	return err
}

// loadRuntime loads configuration, builds the logger and resolves Vault
// secrets, then attaches config and logger to the command context.
func loadRuntime(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(config.LoadOptions{
		ConfigFile: rootFlags.configFile,
		EnvFiles:   rootFlags.envFiles,
	})
	if err != nil {
		return err
	}
	if rootFlags.logLevel != "" {
		cfg.App.LogLevel = rootFlags.logLevel
	}

	logger, err := errors.New(cfg.App.LogLevel)
	if err != nil {
		return err
	}
	cfg.LogSources(logger)

	if err := config.ApplyVaultSecrets(cfg, logger); err != nil {
		if errors.TypeOf(err) == errors.ErrorTypeNetwork {
			return err
		}
		return errors.NewConfigError(errors.ErrCodeInvalidConfig, "failed to load secrets from Vault", err)
	}

	logger.Debug("Starting careeradvisor",
		"version", Version,
		"command", cmd.Name(),
		"log_level", cfg.App.LogLevel,
		"ai_provider", cfg.AI.Provider,
		"ai_model", cfg.AI.Model)

	ctx := context.WithValue(cmd.Context(), configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	cmd.SetContext(ctx)
	return nil
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	panic("config not found in context") // Should not happen if properly initialized
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) *errors.Logger {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger
	}
	panic("logger not found in context") // Should not happen if properly initialized
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.configFile, "config", "", "Config file (default: search ./config.yaml, ./config, $HOME/.careeradvisor, /etc/careeradvisor)")
	rootCmd.PersistentFlags().StringSliceVar(&rootFlags.envFiles, "env-file", nil, "Dotenv files to load before reading the environment (default: .env)")
	rootCmd.PersistentFlags().StringVar(&rootFlags.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(promptCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
