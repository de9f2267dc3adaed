package cli

import (
	"context"

	"careeradvisor/internal/common"
	"careeradvisor/internal/types"
	"careeradvisor/internal/utils"

	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract [completion-file]",
	Short: "Parse a saved model completion into an analysis",
	Long: `Run the completion extraction chain over a saved model response without
calling the model. The chain tries a fenced JSON block, then the widest
brace span as JSON, then a literal mapping parse.

Reads stdin when no file is given or the file is "-".`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: resolveFormat(&extractConfig.CommandConfig),
	RunE:    runExtract,
}

var extractConfig struct {
	common.CommandConfig
	strict bool
}

func init() {
	extractCmd.Flags().BoolVar(&extractConfig.strict, "strict", false, "Fail when the mapping does not match the expected fields")
	addOutputFlags(extractCmd, &extractConfig.CommandConfig)
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	source := utils.StdioPath
	if len(args) == 1 {
		source = args[0]
	}

	completion, err := common.NewFileProcessor(logger).WithStdin(cmd.InOrStdin()).ReadFile(source)
	if err != nil {
		return err
	}

	extractor := newExtractor(cfg, extractConfig.strict)
	logger.Debug("Extracting analysis from completion",
		"source", source,
		"chars", len(completion),
		"strategies", extractor.Strategies())

	return common.RunOutcomeCommand(cmd.Context(), logger, extractConfig.CommandConfig,
		func(context.Context) (*types.Outcome, error) {
			return extractor.Interpret(completion), nil
		}, common.NewOutputHandler(logger).WithStdout(cmd.OutOrStdout()))
}
