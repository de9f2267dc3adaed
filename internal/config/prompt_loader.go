package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"careeradvisor/internal/errors"
)

// LoadedPrompts holds prompt text read from the configured prompt files.
// Empty fields mean no file was configured for that prompt.
type LoadedPrompts struct {
	System string
	User   string
}

// PromptStore keeps the prompt files' current content and can reload it
// while the server is running.
type PromptStore struct {
	mu      sync.RWMutex
	cfg     PromptConfig
	loaded  LoadedPrompts
	version int
	logger  *errors.Logger
}

// NewPromptStore loads the configured prompt files. A nil logger discards
// log output.
func NewPromptStore(cfg PromptConfig, logger *errors.Logger) (*PromptStore, error) {
	if logger == nil {
		logger = errors.NewLoggerWithWriter(io.Discard, slog.LevelError)
	}
	store := &PromptStore{cfg: cfg, logger: logger}
	if err := store.Reload(); err != nil {
		return nil, err
	}
	return store, nil
}

// Config returns the prompt configuration the store was created with.
func (s *PromptStore) Config() PromptConfig {
	return s.cfg
}

// Loaded returns a copy of the current file-backed prompts.
func (s *PromptStore) Loaded() LoadedPrompts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Version increments on every successful reload.
func (s *PromptStore) Version() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Files lists the prompt files the store reads.
func (s *PromptStore) Files() []string {
	var files []string
	if s.cfg.SystemPromptFile != "" {
		files = append(files, s.cfg.SystemPromptFile)
	}
	if s.cfg.UserPromptFile != "" {
		files = append(files, s.cfg.UserPromptFile)
	}
	return files
}

// Reload re-reads the prompt files. On any error the previous prompts stay
// in effect.
func (s *PromptStore) Reload() error {
	var next LoadedPrompts

	if s.cfg.SystemPromptFile != "" {
		content, err := s.loadPromptFromFile(s.cfg.SystemPromptFile, "system")
		if err != nil {
			return err
		}
		next.System = content
	}

	if s.cfg.UserPromptFile != "" {
		content, err := s.loadPromptFromFile(s.cfg.UserPromptFile, "user")
		if err != nil {
			return err
		}
		if err := ValidateUserTemplate(content); err != nil {
			return fmt.Errorf("user prompt file '%s': %w", s.cfg.UserPromptFile, err)
		}
		next.User = content
	}

	s.mu.Lock()
	s.loaded = next
	s.version++
	version := s.version
	s.mu.Unlock()

	s.logPromptLoadingSummary(next, version)
	return nil
}

// loadPromptFromFile loads a prompt from a file with proper error handling and logging
func (s *PromptStore) loadPromptFromFile(filePath, promptType string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s prompt file '%s': %w", promptType, filePath, err)
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return "", fmt.Errorf("%s prompt file not found: %s", promptType, absPath)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s prompt file '%s': %w", promptType, absPath, err)
	}

	trimmedContent := strings.TrimSpace(string(content))
	if trimmedContent == "" {
		return "", fmt.Errorf("%s prompt file '%s' is empty", promptType, absPath)
	}

	s.logger.Debug("Loaded prompt from file",
		"prompt_type", promptType,
		"file", absPath,
		"characters", len(trimmedContent))

	return trimmedContent, nil
}

// validatePromptFiles checks that configured prompt files exist before loading
func (c *Config) validatePromptFiles() error {
	var validationErrors []string

	validateFile := func(filePath, promptType string) {
		if filePath == "" {
			return
		}

		absPath, err := filepath.Abs(filePath)
		if err != nil {
			validationErrors = append(validationErrors, fmt.Sprintf("invalid path for %s prompt: %s", promptType, filePath))
			return
		}

		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			validationErrors = append(validationErrors, fmt.Sprintf("%s prompt file not found: %s", promptType, absPath))
		}
	}

	validateFile(c.AI.CustomPrompts.SystemPromptFile, "system")
	validateFile(c.AI.CustomPrompts.UserPromptFile, "user")

	if len(validationErrors) > 0 {
		return fmt.Errorf("prompt file validation failed:\n%s", strings.Join(validationErrors, "\n"))
	}

	return nil
}

// ValidateUserTemplate checks that a user prompt template has exactly two
// %s placeholders, resume first and job description second. Any other
// literal percent sign must be written as %%.
func ValidateUserTemplate(template string) error {
	placeholders := 0
	for i := 0; i < len(template); i++ {
		if template[i] != '%' {
			continue
		}
		if i+1 >= len(template) {
			return fmt.Errorf("template ends with a lone %%")
		}
		switch template[i+1] {
		case '%':
		case 's':
			placeholders++
		default:
			return fmt.Errorf("unsupported verb %%%c at offset %d (use %%%% for a literal percent sign)", template[i+1], i)
		}
		i++
	}

	if placeholders != 2 {
		return fmt.Errorf("template must contain exactly two %%s placeholders, found %d", placeholders)
	}
	return nil
}

func (s *PromptStore) logPromptLoadingSummary(loaded LoadedPrompts, version int) {
	if loaded.System == "" && loaded.User == "" {
		s.logger.Debug("No prompt files loaded, using configured or built-in prompts")
		return
	}
	s.logger.Info("Prompt files loaded",
		"system", loaded.System != "",
		"user", loaded.User != "",
		"version", version)
}
