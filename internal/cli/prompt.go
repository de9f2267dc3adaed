package cli

import (
	"fmt"
	"path/filepath"

	"careeradvisor/internal/ai"
	"careeradvisor/internal/common"
	"careeradvisor/internal/config"
	"careeradvisor/internal/errors"

	"github.com/spf13/cobra"
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the prompt that would be sent to the model",
	Long: `Extract the resume text and render the analysis prompt with the active
templates (prompt files, then config, then built-in defaults). The model is
not called.`,
	Args: cobra.NoArgs,
	RunE: runPrompt,
}

var promptConfig struct {
	resumeFile string
	jobFile    string
	system     bool
}

func init() {
	promptCmd.Flags().StringVarP(&promptConfig.resumeFile, "resume", "r", "", "Resume file (PDF, DOCX, TXT or Markdown)")
	promptCmd.Flags().StringVarP(&promptConfig.jobFile, "job", "j", "", "Job description file, or - for stdin")
	promptCmd.Flags().BoolVar(&promptConfig.system, "system", false, "Also print the system prompt")

	_ = promptCmd.MarkFlagRequired("resume")
	_ = promptCmd.MarkFlagRequired("job")
}

func runPrompt(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	fileProcessor := common.NewFileProcessor(logger).WithStdin(cmd.InOrStdin())
	jobDescription, err := fileProcessor.ReadFile(promptConfig.jobFile)
	if err != nil {
		return err
	}

	resume, err := fileProcessor.Open(promptConfig.resumeFile)
	if err != nil {
		return err
	}
	defer func() { _ = resume.Close() }()

	doc, err := newDocumentService(cfg, logger).ExtractText(cmd.Context(), filepath.Base(promptConfig.resumeFile), resume)
	if err != nil {
		return err
	}

	prompts, err := config.NewPromptStore(cfg.AI.CustomPrompts, logger)
	if err != nil {
		return errors.NewConfigError(errors.ErrCodeInvalidConfig, "failed to load prompt files", err)
	}
	builder := ai.NewPromptBuilder(prompts)
	req := builder.Build(doc.Text, jobDescription)

	logger.Debug("Rendered prompt",
		"source", builder.Source(),
		"document_type", doc.Type,
		"pages", doc.Pages,
		"user_chars", len(req.UserPrompt))

	out := cmd.OutOrStdout()
	if promptConfig.system {
		fmt.Fprintf(out, "--- system ---\n%s\n--- user ---\n", req.SystemPrompt)
	}
	fmt.Fprintln(out, req.UserPrompt)
	return nil
}
