package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"alfredoptarigan/resume-screening/internal/logger"
	"alfredoptarigan/resume-screening/internal/metrics"
	"alfredoptarigan/resume-screening/internal/models"
)

type AnalysisInput struct {
	ResumeText string
	JobTitle   string
	JobContext string
	Match      MatchResult
}

type Analysis struct {
	Strengths        []string              `json:"strengths"`
	ImprovementAreas []string              `json:"improvementAreas"`
	Recommendations  []string              `json:"recommendations"`
	Source           models.AnalysisSource `json:"-"`
}

// Analyzer produces the free-text part of a screening result. It never fails:
// any LLM problem degrades to deterministic fallback content.
type Analyzer interface {
	Analyze(ctx context.Context, in AnalysisInput) *Analysis
}

const analysisSchema = `{
  "type": "object",
  "required": ["strengths", "improvementAreas", "recommendations"],
  "properties": {
    "strengths":        {"type": "array", "minItems": 1, "maxItems": 10, "items": {"type": "string", "minLength": 1}},
    "improvementAreas": {"type": "array", "maxItems": 10, "items": {"type": "string", "minLength": 1}},
    "recommendations":  {"type": "array", "minItems": 1, "maxItems": 10, "items": {"type": "string", "minLength": 1}}
  }
}`

var analysisSchemaLoader = gojsonschema.NewStringLoader(analysisSchema)

type analyzer struct {
	gemini        GeminiService
	promptBuilder *PromptBuilder
	thresholds    Thresholds
	maxRetries    int
	log           logger.Logger
}

// NewAnalyzer builds an Analyzer. A nil gemini client always yields fallback content.
func NewAnalyzer(gemini GeminiService, thresholds Thresholds, maxRetries int, log logger.Logger) Analyzer {
	return &analyzer{
		gemini:        gemini,
		promptBuilder: NewPromptBuilder(),
		thresholds:    thresholds,
		maxRetries:    maxRetries,
		log:           log,
	}
}

func (a *analyzer) Analyze(ctx context.Context, in AnalysisInput) *Analysis {
	if a.gemini == nil {
		return a.fallback(in.Match, "llm disabled")
	}

	prompt := a.promptBuilder.BuildScreeningPrompt(in.ResumeText, in.JobTitle, in.JobContext,
		in.Match.Matched, in.Match.Missing, in.Match.Percentage)

	response, err := a.gemini.GenerateTextWithRetry(ctx, prompt, 0.3, a.maxRetries)
	if err != nil {
		return a.fallback(in.Match, err.Error())
	}

	analysis, err := ParseAnalysis(response)
	if err != nil {
		return a.fallback(in.Match, err.Error())
	}

	metrics.AnalysisRequests.WithLabelValues(string(models.AnalysisSourceLLM)).Inc()
	return analysis
}

func (a *analyzer) fallback(match MatchResult, reason string) *Analysis {
	a.log.Warn("⚠️ Using fallback screening analysis", map[string]interface{}{"reason": reason})
	metrics.AnalysisRequests.WithLabelValues(string(models.AnalysisSourceFallback)).Inc()
	return FallbackAnalysis(match, a.thresholds)
}

// ParseAnalysis cleans markdown fences from an LLM response and validates it against the schema.
func ParseAnalysis(response string) (*Analysis, error) {
	jsonStr := extractJSON(response)
	if strings.TrimSpace(jsonStr) == "" {
		return nil, fmt.Errorf("empty analysis response")
	}

	result, err := gojsonschema.Validate(analysisSchemaLoader, gojsonschema.NewStringLoader(jsonStr))
	if err != nil {
		return nil, fmt.Errorf("invalid analysis JSON: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return nil, fmt.Errorf("analysis validation failed: %s", strings.Join(errs, "; "))
	}

	var analysis Analysis
	if err := json.Unmarshal([]byte(jsonStr), &analysis); err != nil {
		return nil, fmt.Errorf("failed to unmarshal analysis: %w", err)
	}
	if analysis.ImprovementAreas == nil {
		analysis.ImprovementAreas = []string{}
	}
	analysis.Source = models.AnalysisSourceLLM
	return &analysis, nil
}

// FallbackAnalysis derives deterministic content from the skill match alone.
func FallbackAnalysis(match MatchResult, t Thresholds) *Analysis {
	a := &Analysis{Source: models.AnalysisSourceFallback}

	if len(match.Matched) > 0 {
		a.Strengths = []string{fmt.Sprintf("Covers %d of %d required skills: %s.",
			len(match.Matched), len(match.Matched)+len(match.Missing), strings.Join(match.Matched, ", "))}
	} else {
		a.Strengths = []string{"No required skills were identified in the resume."}
	}

	if len(match.Missing) > 0 {
		a.ImprovementAreas = []string{fmt.Sprintf("Missing required skills: %s.", strings.Join(match.Missing, ", "))}
	} else {
		a.ImprovementAreas = []string{}
	}

	switch t.Bucket(match.Percentage) {
	case "strong":
		a.Recommendations = []string{"Strong match: advance to a technical interview."}
	case "moderate":
		a.Recommendations = []string{"Moderate match: schedule a screening call to discuss the missing skills."}
	default:
		a.Recommendations = []string{"Weak match: keep on file for roles with a closer skill profile."}
	}

	return a
}

// extractJSON strips markdown code fences and returns the outermost JSON object.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		return text[start : end+1]
	}

	return strings.TrimSpace(text)
}
