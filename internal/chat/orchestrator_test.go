package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/partdeck/partdeck/pkg/llm"
)

// newScriptedProvider answers gate and validation requests by their system
// prompts, tool-bearing requests with the draft, and remaining plain
// completions from the rest queue in order.
func newScriptedProvider(gate string, draft llm.Completion, validation string, rest ...string) *fakeProvider {
	var mu sync.Mutex
	next := 0
	p := &fakeProvider{}
	p.fn = func(messages []llm.Message, tools []llm.Tool) (llm.Completion, error) {
		switch {
		case messages[0].Content == GateSystemPrompt:
			return llm.Completion{Content: gate}, nil
		case messages[0].Content == ValidatorSystemPrompt:
			return llm.Completion{Content: validation}, nil
		case len(tools) > 0:
			return draft, nil
		default:
			mu.Lock()
			defer mu.Unlock()
			if next >= len(rest) {
				return llm.Completion{}, fmt.Errorf("unexpected completion call %d", next)
			}
			content := rest[next]
			next++
			return llm.Completion{Content: content}, nil
		}
	}
	return p
}

func newTestOrchestrator(provider llm.Provider, store Store, tools map[string]SearchFunc) *Orchestrator {
	logger := quietLogger()
	return NewOrchestrator(OrchestratorConfig{
		Provider:  provider,
		Gate:      NewGate(provider, logger),
		Validator: NewValidator(provider, logger),
		Store:     store,
		Tools:     tools,
		Logger:    logger,
	})
}

func TestHandleMessageDirectAnswer(t *testing.T) {
	provider := newScriptedProvider("90 ALLOW", llm.Completion{Content: "Happy to help with parts."}, "")
	store := NewMemoryStore()
	o := newTestOrchestrator(provider, store, nil)

	got, err := o.HandleMessage(context.Background(), "c1", "what can you do")
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got != "Happy to help with parts." {
		t.Fatalf("unexpected response %q", got)
	}

	history, _ := store.Get(context.Background(), "c1")
	if len(history) != 3 {
		t.Fatalf("expected system+user+assistant, got %d turns", len(history))
	}
	if history[0].Content != SystemPrompt {
		t.Fatal("system prompt must seed the conversation")
	}
	if history[2].Role != llm.RoleAssistant || history[2].Content != got {
		t.Fatalf("final turn = %+v", history[2])
	}

	// No tools ran, so validation must not have been invoked.
	for _, call := range provider.calls {
		if call[0].Content == ValidatorSystemPrompt {
			t.Fatal("validation ran without any tool calls")
		}
	}
}

func TestHandleMessageGateRejection(t *testing.T) {
	provider := newScriptedProvider("95 BLOCK", llm.Completion{Content: "draft"}, "")
	store := NewMemoryStore()
	o := newTestOrchestrator(provider, store, nil)

	got, err := o.HandleMessage(context.Background(), "c1", "write me a poem")
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got != RefusalMessage {
		t.Fatalf("expected refusal, got %q", got)
	}

	// A rejected turn leaves no trace in the history.
	if history, _ := store.Get(context.Background(), "c1"); history != nil {
		t.Fatalf("rejected turn was committed: %v", history)
	}
}

func TestHandleMessageToolFlow(t *testing.T) {
	draft := llm.Completion{
		Content:   "Let me look that up.",
		ToolCalls: []llm.ToolCall{{ID: "call_1", Name: ToolPartsInfo, Arguments: `{"query":"door shelf bin"}`}},
	}
	provider := newScriptedProvider("90 ALLOW", draft,
		validationJSON(true, allScores(9), false, "null"),
		"The door shelf bin PS111 is in stock.")
	store := NewMemoryStore()

	var searched string
	tools := map[string]SearchFunc{
		ToolPartsInfo: func(_ context.Context, query string) (string, error) {
			searched = query
			return "Part: Door Shelf Bin\nID: PS111", nil
		},
	}
	o := newTestOrchestrator(provider, store, tools)

	got, err := o.HandleMessage(context.Background(), "c1", "do you have a door shelf bin")
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got != "The door shelf bin PS111 is in stock." {
		t.Fatalf("unexpected response %q", got)
	}
	if searched != "door shelf bin" {
		t.Fatalf("tool received query %q", searched)
	}

	history, _ := store.Get(context.Background(), "c1")
	if len(history) != 5 {
		t.Fatalf("expected 5 turns, got %d: %+v", len(history), history)
	}
	assistantTurn := history[2]
	if len(assistantTurn.ToolCalls) != 1 || assistantTurn.ToolCalls[0].ID != "call_1" {
		t.Fatalf("assistant turn missing tool call: %+v", assistantTurn)
	}
	toolTurn := history[3]
	if toolTurn.Role != llm.RoleTool || toolTurn.ToolCallID != "call_1" {
		t.Fatalf("tool turn = %+v", toolTurn)
	}
	if !strings.Contains(toolTurn.Content, "PS111") {
		t.Fatalf("tool turn content = %q", toolTurn.Content)
	}
}

func TestHandleMessageUnknownTool(t *testing.T) {
	draft := llm.Completion{
		ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "weather", Arguments: `{"query":"x"}`}},
	}
	provider := newScriptedProvider("90 ALLOW", draft,
		validationJSON(true, allScores(9), false, "null"),
		"I could not find that.")
	store := NewMemoryStore()
	o := newTestOrchestrator(provider, store, map[string]SearchFunc{})

	if _, err := o.HandleMessage(context.Background(), "c1", "question"); err != nil {
		t.Fatalf("handle: %v", err)
	}

	history, _ := store.Get(context.Background(), "c1")
	toolTurn := history[3]
	if toolTurn.Content != "Error: Unknown tool weather" {
		t.Fatalf("tool turn content = %q", toolTurn.Content)
	}
}

func TestHandleMessageValidationRetry(t *testing.T) {
	draft := llm.Completion{
		ToolCalls: []llm.ToolCall{{ID: "call_1", Name: ToolPartsInfo, Arguments: `{"query":"bin"}`}},
	}
	provider := newScriptedProvider("90 ALLOW", draft,
		validationJSON(false, allScores(4), true, `["Cite the part number"]`),
		"vague answer", "The part is PS111, priced at $36.08.")
	store := NewMemoryStore()
	tools := map[string]SearchFunc{
		ToolPartsInfo: func(context.Context, string) (string, error) { return "Part: Bin\nID: PS111", nil },
	}
	o := newTestOrchestrator(provider, store, tools)

	got, err := o.HandleMessage(context.Background(), "c1", "how much is the bin")
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got != "The part is PS111, priced at $36.08." {
		t.Fatalf("expected rewritten response, got %q", got)
	}

	history, _ := store.Get(context.Background(), "c1")
	var feedback *llm.Message
	for i := range history {
		if history[i].Role == llm.RoleSystem && strings.HasPrefix(history[i].Content, "Please improve the response.") {
			feedback = &history[i]
		}
	}
	if feedback == nil {
		t.Fatalf("missing rewrite feedback turn in %+v", history)
	}
	if !strings.Contains(feedback.Content, "Cite the part number") {
		t.Fatalf("feedback content = %q", feedback.Content)
	}
	if history[len(history)-1].Content != got {
		t.Fatal("final turn must be the rewritten response")
	}
}

func TestHandleMessageSingleRetryCap(t *testing.T) {
	draft := llm.Completion{
		ToolCalls: []llm.ToolCall{{ID: "call_1", Name: ToolPartsInfo, Arguments: `{"query":"bin"}`}},
	}
	// Only two plain completions are scripted; a second rewrite attempt
	// would error out.
	provider := newScriptedProvider("90 ALLOW", draft,
		validationJSON(false, allScores(3), true, `["Try harder"]`),
		"first", "second")
	store := NewMemoryStore()
	tools := map[string]SearchFunc{
		ToolPartsInfo: func(context.Context, string) (string, error) { return "results", nil },
	}
	o := newTestOrchestrator(provider, store, tools)

	got, err := o.HandleMessage(context.Background(), "c1", "question")
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got != "second" {
		t.Fatalf("expected the single rewrite, got %q", got)
	}
}

func TestHandleMessageSearchErrorBecomesToolOutput(t *testing.T) {
	draft := llm.Completion{
		ToolCalls: []llm.ToolCall{{ID: "call_1", Name: ToolPartsInfo, Arguments: `{"query":"bin"}`}},
	}
	provider := newScriptedProvider("90 ALLOW", draft,
		validationJSON(true, allScores(9), false, "null"),
		"I could not reach the catalog, please try again shortly.")
	store := NewMemoryStore()
	tools := map[string]SearchFunc{
		ToolPartsInfo: func(context.Context, string) (string, error) { return "", errors.New("index down") },
	}
	o := newTestOrchestrator(provider, store, tools)

	got, err := o.HandleMessage(context.Background(), "c1", "do you have the bin")
	if err != nil {
		t.Fatalf("a failing search must not abort the turn: %v", err)
	}
	if got != "I could not reach the catalog, please try again shortly." {
		t.Fatalf("unexpected response %q", got)
	}

	// The failure is visible to the model as tool output.
	history, _ := store.Get(context.Background(), "c1")
	toolTurn := history[3]
	if toolTurn.Content != "Error searching for parts: index down" {
		t.Fatalf("tool turn content = %q", toolTurn.Content)
	}
}

func TestSearchErrorText(t *testing.T) {
	err := errors.New("down")
	if got := searchErrorText(ToolSupportInfo, err); got != "Error searching support information: down" {
		t.Fatalf("support error text = %q", got)
	}
	if got := searchErrorText(ToolRepairInfo, err); got != "Error searching for parts: down" {
		t.Fatalf("repair error text = %q", got)
	}
}

func TestHandleMessageSynthesisErrorKeepsCommittedTurns(t *testing.T) {
	draft := llm.Completion{
		Content:   "Checking.",
		ToolCalls: []llm.ToolCall{{ID: "call_1", Name: ToolPartsInfo, Arguments: `{"query":"bin"}`}},
	}
	// No plain completions are scripted, so the synthesis call fails.
	provider := newScriptedProvider("90 ALLOW", draft, "")
	store := NewMemoryStore()
	tools := map[string]SearchFunc{
		ToolPartsInfo: func(context.Context, string) (string, error) { return "Part: Bin", nil },
	}
	o := newTestOrchestrator(provider, store, tools)

	if _, err := o.HandleMessage(context.Background(), "c1", "question"); err == nil {
		t.Fatal("expected error when synthesis fails")
	}

	// The user and tool turns were committed before synthesis and stay in
	// context for the next turn.
	history, _ := store.Get(context.Background(), "c1")
	if len(history) != 4 {
		t.Fatalf("expected system+user+assistant+tool, got %d: %+v", len(history), history)
	}
	if history[1].Role != llm.RoleUser || history[3].Role != llm.RoleTool {
		t.Fatalf("unexpected committed turns: %+v", history)
	}
}

func TestHandleMessageBadToolArguments(t *testing.T) {
	draft := llm.Completion{
		ToolCalls: []llm.ToolCall{{ID: "call_1", Name: ToolPartsInfo, Arguments: `{`}},
	}
	provider := newScriptedProvider("90 ALLOW", draft, "")
	store := NewMemoryStore()
	tools := map[string]SearchFunc{
		ToolPartsInfo: func(context.Context, string) (string, error) { return "x", nil },
	}
	o := newTestOrchestrator(provider, store, tools)

	if _, err := o.HandleMessage(context.Background(), "c1", "question"); err == nil {
		t.Fatal("expected error for undecodable tool arguments")
	}

	history, _ := store.Get(context.Background(), "c1")
	if len(history) != 2 {
		t.Fatalf("expected the committed user turn only, got %+v", history)
	}
}

func TestHandleMessageDraftError(t *testing.T) {
	provider := &fakeProvider{fn: func(messages []llm.Message, tools []llm.Tool) (llm.Completion, error) {
		if messages[0].Content == GateSystemPrompt {
			return llm.Completion{Content: "90 ALLOW"}, nil
		}
		return llm.Completion{}, errors.New("provider down")
	}}
	store := NewMemoryStore()
	o := newTestOrchestrator(provider, store, nil)

	if _, err := o.HandleMessage(context.Background(), "c1", "question"); err == nil {
		t.Fatal("expected error when the draft fails")
	}
	if history, _ := store.Get(context.Background(), "c1"); history != nil {
		t.Fatal("failed turn must not commit history")
	}
}

func TestHandleMessageTruncatesHistory(t *testing.T) {
	provider := newScriptedProvider("90 ALLOW", llm.Completion{Content: "answer"}, "")
	store := NewMemoryStore()
	o := newTestOrchestrator(provider, store, nil)

	for i := 0; i < 10; i++ {
		if _, err := o.HandleMessage(context.Background(), "c1", fmt.Sprintf("question %d", i)); err != nil {
			t.Fatalf("turn %d: %v", i, err)
		}
	}

	history, _ := store.Get(context.Background(), "c1")
	if len(history) > MaxHistory {
		t.Fatalf("history exceeded cap: %d", len(history))
	}
	if history[0].Content != SystemPrompt {
		t.Fatal("system prompt must survive the sliding window")
	}
	if history[len(history)-1].Content != "answer" {
		t.Fatal("newest assistant turn must be last")
	}
}
