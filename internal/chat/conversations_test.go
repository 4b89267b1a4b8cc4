package chat

import (
	"context"
	"fmt"
	"testing"

	"github.com/partdeck/partdeck/pkg/llm"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	history, err := store.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if history != nil {
		t.Fatalf("expected nil history for unknown conversation, got %v", history)
	}

	want := []llm.Message{
		{Role: llm.RoleSystem, Content: SystemPrompt},
		{Role: llm.RoleUser, Content: "hello"},
	}
	if err := store.Replace(ctx, "c1", want); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := store.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 2 || got[1].Content != "hello" {
		t.Fatalf("unexpected history: %v", got)
	}

	// Mutating the returned slice must not affect the stored copy.
	got[1].Content = "mutated"
	again, _ := store.Get(ctx, "c1")
	if again[1].Content != "hello" {
		t.Fatal("store returned a shared slice")
	}
}

func TestMemoryStoreResetAll(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_ = store.Replace(ctx, "a", []llm.Message{{Role: llm.RoleUser, Content: "x"}})
	_ = store.Replace(ctx, "b", []llm.Message{{Role: llm.RoleUser, Content: "y"}})

	if err := store.ResetAll(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	for _, id := range []string{"a", "b"} {
		history, _ := store.Get(ctx, id)
		if history != nil {
			t.Fatalf("conversation %q survived reset", id)
		}
	}
}

func TestTruncateHistoryKeepsSystemAndRecent(t *testing.T) {
	history := []llm.Message{{Role: llm.RoleSystem, Content: SystemPrompt}}
	for i := 0; i < 20; i++ {
		history = append(history, llm.Message{Role: llm.RoleUser, Content: fmt.Sprintf("turn %d", i)})
	}

	got := TruncateHistory(history)
	if len(got) != MaxHistory {
		t.Fatalf("expected %d turns, got %d", MaxHistory, len(got))
	}
	if got[0].Role != llm.RoleSystem {
		t.Fatal("system turn must survive truncation")
	}
	if got[1].Content != "turn 9" {
		t.Fatalf("expected window to start at turn 9, got %q", got[1].Content)
	}
	if got[len(got)-1].Content != "turn 19" {
		t.Fatalf("expected newest turn last, got %q", got[len(got)-1].Content)
	}
}

func TestTruncateHistoryNoopUnderCap(t *testing.T) {
	history := []llm.Message{
		{Role: llm.RoleSystem, Content: SystemPrompt},
		{Role: llm.RoleUser, Content: "hi"},
	}
	if got := TruncateHistory(history); len(got) != 2 {
		t.Fatalf("expected untouched history, got %d turns", len(got))
	}
}

func TestTruncateHistoryStabilizes(t *testing.T) {
	history := []llm.Message{{Role: llm.RoleSystem, Content: SystemPrompt}}
	for i := 0; i < 50; i++ {
		history = append(history, llm.Message{Role: llm.RoleUser, Content: fmt.Sprintf("turn %d", i)})
		history = TruncateHistory(history)
		if len(history) > MaxHistory {
			t.Fatalf("history grew past cap at turn %d: %d", i, len(history))
		}
		if history[0].Role != llm.RoleSystem {
			t.Fatalf("system turn lost at turn %d", i)
		}
	}
}
