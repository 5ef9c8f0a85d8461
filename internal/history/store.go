// Package history persists chat conversations. Messages are written through
// to the database, or handed to the message queue when a publisher is set,
// and recent history is served from redis when a cache is set.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"portfolio-rag/internal/model"
)

type ConversationRepo interface {
	Create(ctx context.Context, conv *model.Conversation) error
	Touch(ctx context.Context, id string, at time.Time) error
}

type MessageRepo interface {
	Create(ctx context.Context, message *model.Message) error
	ListByConversationID(ctx context.Context, conversationID string, limit int) ([]model.Message, error)
}

type Cache interface {
	Get(ctx context.Context, conversationID string) ([]model.Message, bool, error)
	Set(ctx context.Context, conversationID string, messages []model.Message) error
	Invalidate(ctx context.Context, conversationID string) error
}

type Publisher interface {
	Publish(ctx context.Context, msg model.Message) error
}

type Option func(*Store)

func WithCache(c Cache) Option {
	return func(s *Store) { s.cache = c }
}

func WithPublisher(p Publisher) Option {
	return func(s *Store) { s.publisher = p }
}

func WithHistoryLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.limit = n
		}
	}
}

type Store struct {
	conversations ConversationRepo
	messages      MessageRepo
	cache         Cache
	publisher     Publisher
	limit         int
	logger        *slog.Logger
	now           func() time.Time
}

func NewStore(conversations ConversationRepo, messages MessageRepo, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		conversations: conversations,
		messages:      messages,
		limit:         100,
		logger:        logger.With("component", "history"),
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Create(ctx context.Context) (string, error) {
	now := s.now()
	conv := &model.Conversation{
		ID:            uuid.NewString(),
		StartedAt:     now,
		LastMessageAt: now,
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return "", err
	}
	return conv.ID, nil
}

// History returns the conversation's messages oldest first. Cache errors
// degrade to a database read.
func (s *Store) History(ctx context.Context, conversationID string) ([]model.Message, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, conversationID)
		if err != nil {
			s.logger.Warn("history cache read failed", "conversation_id", conversationID, "error", err)
		} else if ok {
			return cached, nil
		}
	}

	messages, err := s.messages.ListByConversationID(ctx, conversationID, s.limit)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, conversationID, messages); err != nil {
			s.logger.Warn("history cache write failed", "conversation_id", conversationID, "error", err)
		}
	}
	return messages, nil
}

func (s *Store) Append(ctx context.Context, conversationID, role, content string) error {
	msg := model.Message{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      s.now(),
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, conversationID); err != nil {
			s.logger.Warn("history cache invalidate failed", "conversation_id", conversationID, "error", err)
		}
	}

	if s.publisher != nil {
		err := s.publisher.Publish(ctx, msg)
		if err == nil {
			return nil
		}
		s.logger.Warn("publish message failed, writing directly", "conversation_id", conversationID, "error", err)
	}

	if err := s.messages.Create(ctx, &msg); err != nil {
		return fmt.Errorf("append %s message: %w", role, err)
	}
	if err := s.conversations.Touch(ctx, conversationID, msg.CreatedAt); err != nil {
		s.logger.Warn("touch conversation failed", "conversation_id", conversationID, "error", err)
	}
	return nil
}
