package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"careeradvisor/internal/errors"
	"careeradvisor/internal/utils"
)

// FileProcessor handles common file operations
type FileProcessor struct {
	logger *errors.Logger
	stdin  io.Reader
}

// NewFileProcessor creates a new file processor instance
func NewFileProcessor(logger *errors.Logger) *FileProcessor {
	return &FileProcessor{logger: logger, stdin: os.Stdin}
}

// WithStdin replaces the reader used for the "-" path.
func (fp *FileProcessor) WithStdin(r io.Reader) *FileProcessor {
	fp.stdin = r
	return fp
}

// Open opens filename for reading. "-" reads stdin.
func (fp *FileProcessor) Open(filename string) (io.ReadCloser, error) {
	if filename == utils.StdioPath {
		return io.NopCloser(fp.stdin), nil
	}

	if err := utils.ValidateInputFile(filename); err != nil {
		if !fileExists(filename) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Invalid file %s", filename), err)
	}

	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	return file, nil
}

// ReadFile reads content from a file with proper error handling
func (fp *FileProcessor) ReadFile(filename string) (string, error) {
	file, err := fp.Open(filename)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := file.Close(); err != nil && fp.logger != nil {
			fp.logger.Warn("Failed to close file", "filename", filename, "error", err)
		}
	}()

	content, err := io.ReadAll(file)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read file content: %s", filename), err)
	}

	return string(content), nil
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename, content string) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return errors.NewIOError("DIRECTORY_CREATE_FAILED",
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	if err := os.WriteFile(filename, []byte(content), 0600); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}

	return nil
}

// WarnIfUnrecognized logs when a resume path has an extension the text
// extractor has to sniff.
func (fp *FileProcessor) WarnIfUnrecognized(filename string) {
	if filename == utils.StdioPath || utils.IsResumeFile(filename) {
		return
	}
	if fp.logger != nil {
		fp.logger.Warn("Unrecognized resume extension, detecting type from content",
			"filename", filename)
	}
}

// ValidateOutputFile validates output file path
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}
	return nil
}

func fileExists(filename string) bool {
	_, err := os.Stat(filename)
	return err == nil
}
