package llm

import (
	"context"
)

// Provider is a chat-completions backend. Complete returns the full model
// turn; when the model decides to call tools the completion carries the
// requested calls instead of (or alongside) text content.
type Provider interface {
	Complete(ctx context.Context, messages []Message, tools []Tool) (Completion, error)
}

// Completion is one full assistant turn.
type Completion struct {
	Content   string
	ToolCalls []ToolCall
}

// Message is one conversation turn. Assistant turns that requested tools
// carry the calls so the turn can be replayed to the provider later.
type Message struct {
	Role       string
	Content    string
	Name       string
	ToolCallID string
	ToolCalls  []ToolCall
}

type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters"`
}

type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Message roles used across providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)
