package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/partdeck/partdeck/pkg/llm"
)

const redisKeyPrefix = "partdeck:conversation:"

// RedisStore keeps conversation histories in Redis so multiple instances can
// share state. Each conversation is one JSON value; per-conversation request
// serialization in the handler keeps writes from racing.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, conversationID string) ([]llm.Message, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+conversationID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	var history []llm.Message
	if err := json.Unmarshal(raw, &history); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}
	return history, nil
}

func (s *RedisStore) Replace(ctx context.Context, conversationID string, history []llm.Message) error {
	raw, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+conversationID, raw, 0).Err(); err != nil {
		return fmt.Errorf("store conversation: %w", err)
	}
	return nil
}

func (s *RedisStore) ResetAll(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan conversations: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete conversations: %w", err)
	}
	return nil
}
