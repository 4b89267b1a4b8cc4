package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/partdeck/partdeck/pkg/llm"
	"github.com/partdeck/partdeck/pkg/logging"
)

// minAcceptableScore is the per-aspect floor. A response passes only when
// every aspect scores at or above it.
const minAcceptableScore = 7

// maxResultSnippetLen caps each tool result inside the validation prompt.
const maxResultSnippetLen = 500

var validationAspects = []string{"accuracy", "completeness", "relevance", "clarity"}

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// SearchResult is one executed tool call and its formatted output, carried
// into validation so the validator can check grounding.
type SearchResult struct {
	Tool    string
	Content string
}

// AspectReport is the validator's grade for one aspect.
type AspectReport struct {
	Score       float64  `json:"score"`
	Issues      []string `json:"issues"`
	Suggestions []string `json:"suggestions"`
}

type validationReport struct {
	IsSatisfactory   bool                    `json:"is_satisfactory"`
	Analysis         map[string]AspectReport `json:"analysis"`
	RetryNeeded      bool                    `json:"retry_needed"`
	RetrySuggestions []string                `json:"retry_suggestions"`
}

// Validation is the outcome of grading a drafted response. A failed
// validation with suggestions triggers one retry upstream.
type Validation struct {
	Passed      bool
	Analysis    map[string]AspectReport
	Suggestions []string
}

// Validator grades drafted responses against the tool results they were
// built from. It fails permissive: when the grading call or its output is
// unusable the draft is accepted as is.
type Validator struct {
	provider llm.Provider
	logger   logging.Logger
}

func NewValidator(provider llm.Provider, logger logging.Logger) *Validator {
	return &Validator{provider: provider, logger: logger}
}

func (v *Validator) Validate(ctx context.Context, query string, results []SearchResult, response string) Validation {
	prompt := fmt.Sprintf(ValidationPrompt, query, formatSearchResults(results), response)
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: ValidatorSystemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	}

	completion, err := v.provider.Complete(ctx, messages, nil)
	if err != nil {
		if v.logger != nil {
			v.logger.WithError(err).Warn("Validation call failed, accepting response")
		}
		return Validation{Passed: true}
	}

	report, err := parseValidationReport(completion.Content)
	if err != nil {
		if v.logger != nil {
			v.logger.WithError(err).Warn("Unusable validation output, accepting response")
		}
		return Validation{Passed: true}
	}

	// The verdict is recomputed from the scores; the model's own
	// is_satisfactory flag is advisory only.
	passed := true
	for _, aspect := range validationAspects {
		if report.Analysis[aspect].Score < minAcceptableScore {
			passed = false
			break
		}
	}

	if !passed && !report.RetryNeeded {
		report.RetryNeeded = true
		if len(report.RetrySuggestions) == 0 {
			report.RetrySuggestions = []string{"Improve response quality"}
		}
	}

	out := Validation{Passed: passed, Analysis: report.Analysis}
	if report.RetryNeeded {
		out.Suggestions = report.RetrySuggestions
	}
	return out
}

// formatSearchResults renders tool output for the validation prompt, one
// "tool: content" line per call with long content capped.
func formatSearchResults(results []SearchResult) string {
	if len(results) == 0 {
		return "No results"
	}
	lines := make([]string, 0, len(results))
	for _, result := range results {
		content := result.Content
		if len(content) > maxResultSnippetLen {
			content = content[:maxResultSnippetLen-3] + "..."
		}
		lines = append(lines, result.Tool+": "+content)
	}
	return strings.Join(lines, "\n")
}

// parseValidationReport pulls the first JSON object out of the model output
// and checks it structurally before anything downstream trusts it.
func parseValidationReport(content string) (validationReport, error) {
	raw := jsonObjectPattern.FindString(content)
	if raw == "" {
		return validationReport{}, fmt.Errorf("no JSON object in validation output")
	}

	var report validationReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return validationReport{}, fmt.Errorf("decode validation output: %w", err)
	}

	for _, aspect := range validationAspects {
		grade, ok := report.Analysis[aspect]
		if !ok {
			return validationReport{}, fmt.Errorf("validation output missing %q aspect", aspect)
		}
		if grade.Score < 1 || grade.Score > 10 {
			return validationReport{}, fmt.Errorf("validation score for %q out of range: %v", aspect, grade.Score)
		}
	}
	return report, nil
}
