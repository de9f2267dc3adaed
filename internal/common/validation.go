package common

import (
	"fmt"
	"slices"
)

// ValidateOutputFormat validates format against configured supported formats
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil // No restrictions configured
	}

	if slices.Contains(supportedFormats, format) {
		return nil
	}

	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, supportedFormats)
}

// ResolveOutputFormat applies defaultFormat when format is empty and then
// validates the result.
func ResolveOutputFormat(format, defaultFormat string, supportedFormats []string) (string, error) {
	if format == "" {
		format = defaultFormat
	}
	if err := ValidateOutputFormat(format, supportedFormats); err != nil {
		return "", err
	}
	return format, nil
}

// GetSupportedFormats returns the configured formats the registry can
// produce, or every registry format when none are configured.
func GetSupportedFormats(configured, available []string) []string {
	if len(configured) == 0 {
		return available
	}
	formats := make([]string, 0, len(configured))
	for _, format := range configured {
		if slices.Contains(available, format) {
			formats = append(formats, format)
		}
	}
	return formats
}
