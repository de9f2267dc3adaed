package formatters

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"careeradvisor/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "Outcome", &OutcomeTextFormatter{})
	registry.RegisterFormatter("markdown", "Outcome", &OutcomeMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted.
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.Outcome, *types.Outcome:
		return "Outcome"
	default:
		return "any"
	}
}

func asOutcome(data any) (*types.Outcome, error) {
	switch v := data.(type) {
	case *types.Outcome:
		if v == nil {
			return nil, fmt.Errorf("nil outcome")
		}
		return v, nil
	case types.Outcome:
		return &v, nil
	default:
		return nil, fmt.Errorf("expected Outcome, got %T", data)
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// OutcomeTextFormatter renders an outcome the way the web page lays it out.
type OutcomeTextFormatter struct{}

func (otf *OutcomeTextFormatter) Format(data any) (string, error) {
	outcome, err := asOutcome(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder

	if !outcome.Succeeded() {
		writeTextFailure(&output, outcome.Failure)
		return output.String(), nil
	}

	result := outcome.Result
	output.WriteString("=== ANALYSIS RESULTS ===\n\n")
	output.WriteString(fmt.Sprintf("Match Score: %d%%\n\n", result.MatchScore))

	output.WriteString("Missing Skills:\n")
	writeNumbered(&output, result.MissingSkills, "  ")
	output.WriteString("\n")

	output.WriteString("Recommendations:\n")
	writeNumbered(&output, result.Recommendations, "  ")
	output.WriteString("\n")

	output.WriteString("Feedback:\n")
	for _, line := range strings.Split(result.Feedback, "\n") {
		output.WriteString("  > ")
		output.WriteString(line)
		output.WriteString("\n")
	}

	if len(outcome.Warnings) > 0 {
		output.WriteString("\nWarnings:\n")
		for _, w := range outcome.Warnings {
			output.WriteString("  - ")
			output.WriteString(w)
			output.WriteString("\n")
		}
	}

	return output.String(), nil
}

func (otf *OutcomeTextFormatter) SupportedType() string {
	return "Outcome"
}

func writeTextFailure(output *strings.Builder, failure *types.ExtractionFailure) {
	output.WriteString("=== ANALYSIS FAILED ===\n\n")
	if failure == nil {
		output.WriteString("No result was produced.\n")
		return
	}
	message := failure.Message
	if message == "" {
		message = failure.Error
	}
	output.WriteString(fmt.Sprintf("Error: %s (%s)\n\n", message, failure.Error))
	output.WriteString("Raw output:\n")
	output.WriteString(failure.RawOutput)
	if !strings.HasSuffix(failure.RawOutput, "\n") {
		output.WriteString("\n")
	}
}

// OutcomeMarkdownFormatter renders an outcome as a markdown report.
type OutcomeMarkdownFormatter struct{}

func (omf *OutcomeMarkdownFormatter) Format(data any) (string, error) {
	outcome, err := asOutcome(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder

	if !outcome.Succeeded() {
		output.WriteString("# Analysis Failed\n\n")
		if outcome.Failure != nil {
			message := outcome.Failure.Message
			if message == "" {
				message = outcome.Failure.Error
			}
			output.WriteString(fmt.Sprintf("**Error:** %s (`%s`)\n\n", message, outcome.Failure.Error))
			output.WriteString("## Raw Output\n\n")
			output.WriteString(fence(outcome.Failure.RawOutput))
		}
		return output.String(), nil
	}

	result := outcome.Result
	output.WriteString("# Analysis Results\n\n")
	output.WriteString(fmt.Sprintf("**Match Score:** %d%%\n\n", result.MatchScore))

	output.WriteString("## Missing Skills\n\n")
	writeNumbered(&output, result.MissingSkills, "")
	output.WriteString("\n")

	output.WriteString("## Recommendations\n\n")
	writeNumbered(&output, result.Recommendations, "")
	output.WriteString("\n")

	output.WriteString("## Feedback\n\n")
	for _, line := range strings.Split(result.Feedback, "\n") {
		output.WriteString("> ")
		output.WriteString(line)
		output.WriteString("\n")
	}

	if len(outcome.Warnings) > 0 {
		output.WriteString("\n## Warnings\n\n")
		for _, w := range outcome.Warnings {
			output.WriteString("- ")
			output.WriteString(w)
			output.WriteString("\n")
		}
	}

	return output.String(), nil
}

func (omf *OutcomeMarkdownFormatter) SupportedType() string {
	return "Outcome"
}

func writeNumbered(output *strings.Builder, items []string, indent string) {
	if len(items) == 0 {
		output.WriteString(indent)
		output.WriteString("None\n")
		return
	}
	for i, item := range items {
		output.WriteString(fmt.Sprintf("%s%d. %s\n", indent, i+1, item))
	}
}

// fence wraps raw in a code block long enough to hold any backtick runs it
// contains.
func fence(raw string) string {
	ticks := "```"
	for strings.Contains(raw, ticks) {
		ticks += "`"
	}
	body := raw
	if !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	return ticks + "\n" + body + ticks + "\n"
}
