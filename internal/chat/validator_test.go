package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/partdeck/partdeck/pkg/llm"
)

func validationJSON(satisfactory bool, scores map[string]int, retryNeeded bool, suggestions string) string {
	aspects := make([]string, 0, len(validationAspects))
	for _, aspect := range validationAspects {
		aspects = append(aspects, fmt.Sprintf(`"%s": {"score": %d, "issues": null, "suggestions": null}`, aspect, scores[aspect]))
	}
	return fmt.Sprintf(`{"is_satisfactory": %v, "analysis": {%s}, "retry_needed": %v, "retry_suggestions": %s}`,
		satisfactory, strings.Join(aspects, ", "), retryNeeded, suggestions)
}

func allScores(n int) map[string]int {
	return map[string]int{"accuracy": n, "completeness": n, "relevance": n, "clarity": n}
}

func newTestValidator(content string, err error) *Validator {
	provider := &fakeProvider{fn: func([]llm.Message, []llm.Tool) (llm.Completion, error) {
		if err != nil {
			return llm.Completion{}, err
		}
		return llm.Completion{Content: content}, nil
	}}
	return NewValidator(provider, quietLogger())
}

func TestValidatorPasses(t *testing.T) {
	v := newTestValidator(validationJSON(true, allScores(9), false, "null"), nil)

	got := v.Validate(context.Background(), "q", nil, "response")
	if !got.Passed {
		t.Fatal("expected pass")
	}
	if got.Suggestions != nil {
		t.Fatalf("unexpected suggestions: %v", got.Suggestions)
	}
}

func TestValidatorRecomputesVerdictFromScores(t *testing.T) {
	// The model claims satisfactory but one aspect is below the floor.
	scores := allScores(9)
	scores["accuracy"] = 4
	v := newTestValidator(validationJSON(true, scores, true, `["Check part numbers"]`), nil)

	got := v.Validate(context.Background(), "q", nil, "response")
	if got.Passed {
		t.Fatal("low accuracy score must fail regardless of is_satisfactory")
	}
	if len(got.Suggestions) != 1 || got.Suggestions[0] != "Check part numbers" {
		t.Fatalf("suggestions = %v", got.Suggestions)
	}
}

func TestValidatorSynthesizesSuggestionOverModelVerdict(t *testing.T) {
	// The model claims satisfactory and skips the retry flag, but clarity is
	// below the floor. The recomputed verdict must fail and carry a fallback
	// suggestion so the rewrite can run.
	scores := allScores(8)
	scores["clarity"] = 6
	v := newTestValidator(validationJSON(true, scores, false, "null"), nil)

	got := v.Validate(context.Background(), "q", nil, "response")
	if got.Passed {
		t.Fatal("low clarity score must fail regardless of is_satisfactory")
	}
	if len(got.Suggestions) != 1 || got.Suggestions[0] != "Improve response quality" {
		t.Fatalf("expected synthesized suggestion, got %v", got.Suggestions)
	}
}

func TestValidatorForcesRetryWhenUnsatisfactory(t *testing.T) {
	// Unsatisfactory but the model forgot to set retry_needed.
	v := newTestValidator(validationJSON(false, allScores(5), false, "null"), nil)

	got := v.Validate(context.Background(), "q", nil, "response")
	if got.Passed {
		t.Fatal("expected fail")
	}
	if len(got.Suggestions) != 1 || got.Suggestions[0] != "Improve response quality" {
		t.Fatalf("expected default suggestion, got %v", got.Suggestions)
	}
}

func TestValidatorAcceptsOnProviderError(t *testing.T) {
	v := newTestValidator("", errors.New("provider down"))

	if got := v.Validate(context.Background(), "q", nil, "response"); !got.Passed {
		t.Fatal("validator must accept the response when grading fails")
	}
}

func TestValidatorAcceptsOnMalformedOutput(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"no json", "looks good to me"},
		{"missing aspect", `{"is_satisfactory": true, "analysis": {"accuracy": {"score": 9}}, "retry_needed": false, "retry_suggestions": null}`},
		{"score out of range", validationJSON(true, map[string]int{"accuracy": 11, "completeness": 9, "relevance": 9, "clarity": 9}, false, "null")},
		{"bool as string", `{"is_satisfactory": "yes", "analysis": {}, "retry_needed": false, "retry_suggestions": null}`},
		{"suggestions not strings", validationJSON(false, allScores(5), true, `[1, 2]`)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := newTestValidator(tc.content, nil)
			if got := v.Validate(context.Background(), "q", nil, "response"); !got.Passed {
				t.Fatal("malformed grading output must not block the response")
			}
		})
	}
}

func TestValidatorExtractsEmbeddedJSON(t *testing.T) {
	content := "Here is my assessment:\n```json\n" + validationJSON(true, allScores(8), false, "null") + "\n```"
	v := newTestValidator(content, nil)

	if got := v.Validate(context.Background(), "q", nil, "response"); !got.Passed {
		t.Fatal("expected pass from embedded JSON")
	}
}

func TestFormatSearchResults(t *testing.T) {
	if got := formatSearchResults(nil); got != "No results" {
		t.Fatalf("empty results = %q", got)
	}

	long := strings.Repeat("x", maxResultSnippetLen+100)
	got := formatSearchResults([]SearchResult{
		{Tool: ToolPartsInfo, Content: "Part: Shelf"},
		{Tool: ToolRepairInfo, Content: long},
	})
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0] != "parts_info: Part: Shelf" {
		t.Fatalf("line 0 = %q", lines[0])
	}
	if len(lines[1]) != len("repair_info: ")+maxResultSnippetLen {
		t.Fatalf("long content not capped, len %d", len(lines[1]))
	}
	if !strings.HasSuffix(lines[1], "...") {
		t.Fatal("expected ellipsis on truncated content")
	}
}

func TestValidatorPromptCarriesInputs(t *testing.T) {
	var seen []llm.Message
	provider := &fakeProvider{fn: func(messages []llm.Message, _ []llm.Tool) (llm.Completion, error) {
		seen = messages
		return llm.Completion{Content: validationJSON(true, allScores(9), false, "null")}, nil
	}}
	v := NewValidator(provider, quietLogger())

	v.Validate(context.Background(), "is PS123 in stock", []SearchResult{{Tool: ToolPartsInfo, Content: "Part: Bin"}}, "Yes, it is in stock.")

	if seen[0].Content != ValidatorSystemPrompt {
		t.Fatal("missing validator system prompt")
	}
	prompt := seen[1].Content
	for _, want := range []string{"is PS123 in stock", "parts_info: Part: Bin", "Yes, it is in stock."} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}
