package common

import (
	"context"

	"careeradvisor/internal/errors"
	"careeradvisor/internal/types"
)

// OutcomeFunc produces the outcome a command reports.
type OutcomeFunc func(ctx context.Context) (*types.Outcome, error)

// RunOutcomeCommand runs operation, logs token usage, and writes the outcome
// in the configured format. A failure outcome is still written; the
// returned error then carries the failure code so the process exits non-zero.
func RunOutcomeCommand(
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	operation OutcomeFunc,
	outputHandler *OutputHandler,
) error {
	if outputHandler == nil {
		outputHandler = NewOutputHandler(logger)
	}

	outcome, err := operation(ctx)
	if err != nil {
		return err
	}

	if outcome.Usage != nil {
		logger.Info("AI token usage",
			"request_id", outcome.RequestID,
			"input_tokens", outcome.Usage.PromptTokens,
			"output_tokens", outcome.Usage.CompletionTokens,
			"total_tokens", outcome.Usage.TotalTokens)
	}

	if err := outputHandler.HandleOutput(outcome, cmdConfig); err != nil {
		return err
	}

	if !outcome.Succeeded() {
		code, message := errors.ErrCodeCompletionParse, "analysis could not be extracted from the completion"
		if outcome.Failure != nil {
			code = outcome.Failure.Error
			if outcome.Failure.Message != "" {
				message = outcome.Failure.Message
			}
		}
		return errors.NewParseError(code, message, nil).
			WithContext("request_id", outcome.RequestID)
	}
	return nil
}
