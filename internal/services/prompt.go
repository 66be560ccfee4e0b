package services

import (
	"fmt"
	"strings"
)

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// resumeTextLimit keeps the prompt well inside the model context window.
const resumeTextLimit = 12000

// BuildScreeningPrompt asks for strengths, improvement areas and recommendations as JSON.
// The match percentage is computed locally and passed in as a fact, never requested.
func (pb *PromptBuilder) BuildScreeningPrompt(resumeText, jobTitle, jobContext string, matched, missing []string, matchPercentage int) string {
	resumeText = truncateUTF8(resumeText, resumeTextLimit)
	if strings.TrimSpace(jobContext) == "" {
		jobContext = "No additional job description context available."
	}

	return fmt.Sprintf(`You are an experienced technical recruiter screening a resume for a %s position.

JOB DESCRIPTION CONTEXT:
%s

SKILL MATCH (computed, do not recalculate):
- Match percentage: %d%%
- Matched required skills: %s
- Missing required skills: %s

CANDIDATE RESUME:
%s

Write a short assessment of this candidate for the position.

Return ONLY a JSON object in exactly this format:
{
  "strengths": ["<2-4 concrete strengths supported by the resume>"],
  "improvementAreas": ["<1-4 gaps relative to the job>"],
  "recommendations": ["<1-3 actionable next steps for the hiring team>"]
}

Each item must be one sentence. Do not include any text outside the JSON object.`,
		jobTitle, jobContext, matchPercentage, listOrNone(matched), listOrNone(missing), resumeText)
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

// FormatRAGContext renders retrieved chunks for the prompt.
func FormatRAGContext(results []SearchResult) string {
	if len(results) == 0 {
		return ""
	}

	parts := make([]string, 0, len(results))
	for i, result := range results {
		parts = append(parts, fmt.Sprintf("--- Context %d (Score: %.2f) ---\n%s",
			i+1, result.Score, strings.TrimSpace(result.Text)))
	}

	return strings.Join(parts, "\n\n")
}
