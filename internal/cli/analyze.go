package cli

import (
	"context"
	"path/filepath"

	"careeradvisor/internal/common"
	"careeradvisor/internal/config"
	"careeradvisor/internal/errors"
	"careeradvisor/internal/formatters"
	"careeradvisor/internal/types"
	"careeradvisor/internal/utils"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a resume against a job description",
	Long: `Extract the text of a resume and ask the configured language model how
well it matches a job description.

The report includes:
- Match score (0-100)
- Missing skills
- Recommendations
- Feedback

Use "-" for --job to read the job description from stdin.`,
	Example: `  careeradvisor analyze --resume resume.pdf --job job.txt
  careeradvisor analyze -r resume.docx -j - --format json < job.txt`,
	Args:    cobra.NoArgs,
	PreRunE: resolveFormat(&analyzeConfig.CommandConfig),
	RunE:    runAnalyze,
}

var analyzeConfig struct {
	common.CommandConfig
	resumeFile string
	jobFile    string
	strict     bool
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeConfig.resumeFile, "resume", "r", "", "Resume file (PDF, DOCX, TXT or Markdown)")
	analyzeCmd.Flags().StringVarP(&analyzeConfig.jobFile, "job", "j", "", "Job description file, or - for stdin")
	analyzeCmd.Flags().BoolVar(&analyzeConfig.strict, "strict", false, "Fail when the model's answer does not match the expected fields")
	addOutputFlags(analyzeCmd, &analyzeConfig.CommandConfig)

	_ = analyzeCmd.MarkFlagRequired("resume")
	_ = analyzeCmd.MarkFlagRequired("job")
	_ = analyzeCmd.MarkFlagFilename("resume", "pdf", "docx", "txt", "md")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	if analyzeConfig.resumeFile == utils.StdioPath && analyzeConfig.jobFile == utils.StdioPath {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "only one of --resume and --job can read stdin", nil)
	}

	fileProcessor := common.NewFileProcessor(logger).WithStdin(cmd.InOrStdin())
	jobDescription, err := fileProcessor.ReadFile(analyzeConfig.jobFile)
	if err != nil {
		return err
	}

	resume, err := fileProcessor.Open(analyzeConfig.resumeFile)
	if err != nil {
		return err
	}
	defer func() { _ = resume.Close() }()
	fileProcessor.WarnIfUnrecognized(analyzeConfig.resumeFile)

	prompts, err := config.NewPromptStore(cfg.AI.CustomPrompts, logger)
	if err != nil {
		return errors.NewConfigError(errors.ErrCodeInvalidConfig, "failed to load prompt files", err)
	}

	stack, err := newAnalysisStack(cmd.Context(), cfg, prompts, nil, analyzeConfig.strict, logger)
	if err != nil {
		return err
	}
	defer stack.Close(logger)

	logger.Info("Starting resume analysis",
		"resume", analyzeConfig.resumeFile,
		"job_chars", len(jobDescription),
		"output_format", analyzeConfig.OutputFormat,
		"prompt_source", stack.service.Prompts.Source())

	name := filepath.Base(analyzeConfig.resumeFile)
	return common.RunOutcomeCommand(cmd.Context(), logger, analyzeConfig.CommandConfig,
		func(ctx context.Context) (*types.Outcome, error) {
			return stack.analyzer.Analyze(ctx, name, resume, jobDescription)
		}, common.NewOutputHandler(logger).WithStdout(cmd.OutOrStdout()))
}

// addOutputFlags registers --output and --format with shell completion for
// the configured formats.
func addOutputFlags(cmd *cobra.Command, cc *common.CommandConfig) {
	cmd.Flags().StringVarP(&cc.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&cc.OutputFormat, "format", "", "Output format: json, text, or markdown")

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		available := formatters.NewFormatterRegistry().GetSupportedFormats()
		ctx := cmd.Context()
		if ctx == nil {
			return available, cobra.ShellCompDirectiveNoFileComp
		}
		cfg, ok := ctx.Value(configKey).(*config.Config)
		if !ok {
			return available, cobra.ShellCompDirectiveNoFileComp
		}
		return common.GetSupportedFormats(cfg.App.SupportedFormats, available), cobra.ShellCompDirectiveNoFileComp
	})
}

// resolveFormat applies the configured default format and validates it.
func resolveFormat(cc *common.CommandConfig) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		supported := common.GetSupportedFormats(cfg.App.SupportedFormats,
			formatters.NewFormatterRegistry().GetSupportedFormats())

		format, err := common.ResolveOutputFormat(cc.OutputFormat, cfg.App.DefaultFormat, supported)
		if err != nil {
			return errors.NewValidationError(errors.ErrCodeInvalidFormat, err.Error(), nil)
		}
		cc.OutputFormat = format
		return nil
	}
}
