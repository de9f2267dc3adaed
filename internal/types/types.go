package types

import "time"

// AnalysisRequest is one resume/job-description pair submitted for analysis.
type AnalysisRequest struct {
	ResumeText         string `json:"resume_text"`
	JobDescriptionText string `json:"job_description"`
}

// AnalysisResult is the typed view of a successful completion.
type AnalysisResult struct {
	MatchScore      int      `json:"match_score"`
	MissingSkills   []string `json:"missing_skills"`
	Recommendations []string `json:"recommendations"`
	Feedback        string   `json:"feedback"`
}

// ExtractionFailure is produced instead of AnalysisResult when no mapping
// could be read from the completion. RawOutput is the completion verbatim.
type ExtractionFailure struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	RawOutput string `json:"raw_output"`
}

// TokenUsage represents token consumption reported by the model.
type TokenUsage struct {
	PromptTokens     int32 `json:"prompt_tokens"`
	CompletionTokens int32 `json:"completion_tokens"`
	TotalTokens      int32 `json:"total_tokens"`
}

// Outcome carries exactly one of Result or Failure for a request.
type Outcome struct {
	RequestID string             `json:"request_id,omitempty"`
	Result    *AnalysisResult    `json:"result,omitempty"`
	Failure   *ExtractionFailure `json:"failure,omitempty"`

	// Mapping is the object the extraction chain produced, before any typing.
	Mapping  map[string]any `json:"mapping,omitempty"`
	Strategy string         `json:"strategy,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`

	Model    string        `json:"model,omitempty"`
	Usage    *TokenUsage   `json:"usage,omitempty"`
	Duration time.Duration `json:"duration_ns,omitempty"`
}

// NewResultOutcome builds a successful outcome.
func NewResultOutcome(result *AnalysisResult, mapping map[string]any, strategy string) *Outcome {
	return &Outcome{Result: result, Mapping: mapping, Strategy: strategy}
}

// NewFailureOutcome builds an outcome that reports an unreadable completion.
func NewFailureOutcome(failure *ExtractionFailure) *Outcome {
	return &Outcome{Failure: failure}
}

// Succeeded reports whether the outcome carries a result.
func (o *Outcome) Succeeded() bool {
	return o != nil && o.Result != nil && o.Failure == nil
}

// ModelInfo describes the configured completion model.
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	Description string `json:"description,omitempty"`
	Provider    string `json:"provider"`
	Version     string `json:"version,omitempty"`
	InputLimit  int32  `json:"input_limit,omitempty"`
	OutputLimit int32  `json:"output_limit,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}
