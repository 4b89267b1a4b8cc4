package chat

import (
	"context"
	"sync"

	"github.com/partdeck/partdeck/pkg/llm"
)

// MaxHistory is the turn cap per conversation. When a conversation exceeds
// it, the system turn is kept and the window slides over the rest.
const MaxHistory = 12

// DefaultConversationID is used when a chat request carries no id.
const DefaultConversationID = "default"

// Store holds conversation histories. Get returns nil for an unknown
// conversation; callers seed the system turn themselves. Replace commits a
// whole history at once so a failed request leaves no partial turns behind.
type Store interface {
	Get(ctx context.Context, conversationID string) ([]llm.Message, error)
	Replace(ctx context.Context, conversationID string, history []llm.Message) error
	ResetAll(ctx context.Context) error
}

// TruncateHistory applies the sliding window: the first turn (the system
// prompt) plus the most recent MaxHistory-1 turns.
func TruncateHistory(history []llm.Message) []llm.Message {
	if len(history) <= MaxHistory {
		return history
	}
	out := make([]llm.Message, 0, MaxHistory)
	out = append(out, history[0])
	out = append(out, history[len(history)-(MaxHistory-1):]...)
	return out
}

// MemoryStore keeps conversations in process memory. Suitable for a single
// instance; use the Redis store when running more than one replica.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string][]llm.Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{conversations: make(map[string][]llm.Message)}
}

func (s *MemoryStore) Get(_ context.Context, conversationID string) ([]llm.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history, ok := s.conversations[conversationID]
	if !ok {
		return nil, nil
	}
	out := make([]llm.Message, len(history))
	copy(out, history)
	return out, nil
}

func (s *MemoryStore) Replace(_ context.Context, conversationID string, history []llm.Message) error {
	stored := make([]llm.Message, len(history))
	copy(stored, history)
	s.mu.Lock()
	s.conversations[conversationID] = stored
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) ResetAll(_ context.Context) error {
	s.mu.Lock()
	s.conversations = make(map[string][]llm.Message)
	s.mu.Unlock()
	return nil
}
