package ai

import (
	"fmt"

	"careeradvisor/internal/config"
)

// DefaultSystemPrompt frames the model as a career advisor.
const DefaultSystemPrompt = `You are a career advisor AI assistant. You compare a candidate's resume with a job description and answer with a single JSON object. You never invent skills or experience that the resume does not show.`

// DefaultUserPrompt is the analysis instruction. The first %s receives the
// resume text, the second the job description.
const DefaultUserPrompt = `You are a career advisor AI assistant. Analyze the following:

RESUME:
%s

JOB DESCRIPTION:
%s

Perform:
1. Extract the candidate's name, skills, experience and education from the resume.
2. Extract the required skills and responsibilities from the job description.
3. Do a skill gap analysis. Only list skills that are relevant to the role and missing from the resume.
4. Suggest 2-3 concrete resume improvements.
5. Give 1-2 sentences of personalized career feedback.

Return ONLY a single JSON object with exactly these keys and nothing else, no markdown fences and no commentary:
{
  "match_score": <integer from 0 to 100>,
  "missing_skills": ["..."],
  "recommendations": ["..."],
  "feedback": "<string>"
}`

// BuildAnalysisPrompt renders the built-in analysis template.
func BuildAnalysisPrompt(resumeText, jobDescription string) string {
	return fmt.Sprintf(DefaultUserPrompt, resumeText, jobDescription)
}

// PromptBuilder renders prompts, preferring file-loaded prompts over
// configured ones over the built-in defaults.
type PromptBuilder struct {
	store *config.PromptStore
}

// NewPromptBuilder creates a builder. A nil store means built-in prompts only.
func NewPromptBuilder(store *config.PromptStore) *PromptBuilder {
	return &PromptBuilder{store: store}
}

// Build returns the completion request for one resume/job pair.
func (b *PromptBuilder) Build(resumeText, jobDescription string) CompletionRequest {
	system, user := b.templates()
	return CompletionRequest{
		SystemPrompt: system,
		UserPrompt:   fmt.Sprintf(user, resumeText, jobDescription),
	}
}

// Source names where the active user template comes from.
func (b *PromptBuilder) Source() string {
	if b == nil || b.store == nil {
		return "default"
	}
	if b.store.Loaded().User != "" {
		return "file"
	}
	if b.store.Config().UserPrompt != "" {
		return "config"
	}
	return "default"
}

func (b *PromptBuilder) templates() (system, user string) {
	if b == nil || b.store == nil {
		return DefaultSystemPrompt, DefaultUserPrompt
	}

	loaded := b.store.Loaded()
	configured := b.store.Config()
	system = resolvePrompt(loaded.System, configured.SystemPrompt, DefaultSystemPrompt)
	user = resolvePrompt(loaded.User, configured.UserPrompt, DefaultUserPrompt)
	return system, user
}

// resolvePrompt picks the first non-empty prompt in priority order:
// loaded from file, set in config, built-in default.
func resolvePrompt(loadedFromFile, fromConfig, fromDefault string) string {
	if loadedFromFile != "" {
		return loadedFromFile
	}
	if fromConfig != "" {
		return fromConfig
	}
	return fromDefault
}
