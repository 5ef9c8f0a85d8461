package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"portfolio-rag/internal/model"
)

const defaultKeyPrefix = "chat:history:"

// HistoryCache keeps recent conversation history in redis. While a write is
// in flight the conversation carries a dirty marker and reads miss.
type HistoryCache struct {
	client         redisv9.UniversalClient
	prefix         string
	historyTTL     time.Duration
	dirtyMarkerTTL time.Duration
}

func NewHistoryCache(client redisv9.UniversalClient, prefix string, historyTTL, dirtyMarkerTTL time.Duration) *HistoryCache {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	if historyTTL <= 0 {
		historyTTL = 60 * time.Second
	}
	if dirtyMarkerTTL <= 0 {
		dirtyMarkerTTL = 5 * time.Second
	}
	return &HistoryCache{
		client:         client,
		prefix:         prefix,
		historyTTL:     historyTTL,
		dirtyMarkerTTL: dirtyMarkerTTL,
	}
}

// Get reports a miss when nothing is cached or the conversation is dirty.
func (c *HistoryCache) Get(ctx context.Context, conversationID string) ([]model.Message, bool, error) {
	var (
		dirty  *redisv9.IntCmd
		cached *redisv9.StringCmd
	)
	_, err := c.client.Pipelined(ctx, func(pipe redisv9.Pipeliner) error {
		dirty = pipe.Exists(ctx, c.dirtyKey(conversationID))
		cached = pipe.Get(ctx, c.historyKey(conversationID))
		return nil
	})
	if err != nil && !errors.Is(err, redisv9.Nil) {
		return nil, false, fmt.Errorf("redis get history failed: %w", err)
	}
	if dirty.Val() > 0 {
		return nil, false, nil
	}

	raw, err := cached.Result()
	if errors.Is(err, redisv9.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get history failed: %w", err)
	}

	var messages []model.Message
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached history failed: %w", err)
	}
	return messages, true, nil
}

func (c *HistoryCache) Set(ctx context.Context, conversationID string, messages []model.Message) error {
	payload, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("marshal history cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.historyKey(conversationID), payload, c.historyTTL).Err(); err != nil {
		return fmt.Errorf("redis set history failed: %w", err)
	}
	return nil
}

// Invalidate marks the conversation dirty and drops its cached history in a
// single transaction.
func (c *HistoryCache) Invalidate(ctx context.Context, conversationID string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
		pipe.Set(ctx, c.dirtyKey(conversationID), "1", c.dirtyMarkerTTL)
		pipe.Del(ctx, c.historyKey(conversationID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) historyKey(conversationID string) string {
	return c.prefix + conversationID
}

func (c *HistoryCache) dirtyKey(conversationID string) string {
	return c.prefix + "dirty:" + conversationID
}
