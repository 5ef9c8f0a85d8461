package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"portfolio-rag/internal/ai"
	"portfolio-rag/internal/model"
)

type chatDeps struct {
	completer     *MockCompleter
	embedder      *MockEmbedder
	vectors       *MockVectorStore
	conversations *MockConversationStore
}

func newChatService(withRetrieval bool) (*ChatService, chatDeps) {
	d := chatDeps{
		completer:     new(MockCompleter),
		embedder:      new(MockEmbedder),
		vectors:       new(MockVectorStore),
		conversations: new(MockConversationStore),
	}
	var retrieval *RetrievalService
	if withRetrieval {
		retrieval = newRetrievalService(d.embedder, d.vectors, nil)
	}
	svc := NewChatService(d.completer, retrieval, nil, d.conversations, Persona{Name: "Ada", Headline: "a senior engineer"}, 0, discardLogger())
	return svc, d
}

func exchanges(n int) []ai.ChatMessage {
	var out []ai.ChatMessage
	for i := 0; i < n; i++ {
		out = append(out,
			ai.ChatMessage{Role: model.RoleUser, Content: fmt.Sprintf("q%d", i)},
			ai.ChatMessage{Role: model.RoleAssistant, Content: fmt.Sprintf("a%d", i)},
		)
	}
	return out
}

func TestTruncateHistory(t *testing.T) {
	history := exchanges(10)

	got := TruncateHistory(history, 8)
	require.Len(t, got, 16)
	assert.Equal(t, "q2", got[0].Content)
	assert.Equal(t, "a9", got[15].Content)

	assert.Len(t, TruncateHistory(history, 20), 20)
	assert.Empty(t, TruncateHistory(nil, 8))
}

func TestChatService_Respond(t *testing.T) {
	ctx := context.Background()

	t.Run("Caller History Truncated And Persisted", func(t *testing.T) {
		svc, d := newChatService(false)
		d.completer.On("Complete", mock.Anything, mock.MatchedBy(func(req ai.ChatRequest) bool {
			// system + 4 history messages + user
			return len(req.Messages) == 6 &&
				req.Messages[0].Role == model.RoleSystem &&
				strings.Contains(req.Messages[0].Content, "Ada") &&
				req.Messages[1].Content == "q3" &&
				req.Messages[5].Content == "hello" &&
				req.Temperature != nil && *req.Temperature == 0.2
		})).Return("hi!", nil)
		d.conversations.On("Create", mock.Anything).Return("conv-1", nil)
		d.conversations.On("Append", mock.Anything, "conv-1", model.RoleUser, "hello").Return(nil)
		d.conversations.On("Append", mock.Anything, "conv-1", model.RoleAssistant, "hi!").Return(nil)

		res := svc.Respond(ctx, "hello", exchanges(5), ChatOptions{
			MaxContextLength: 2,
			Temperature:      ai.Float64(0.2),
			IncludeHistory:   true,
		})
		assert.Equal(t, ChatResult{Message: "hi!", ConversationID: "conv-1"}, res)
		d.completer.AssertExpectations(t)
		d.conversations.AssertExpectations(t)
	})

	t.Run("Temperature Zero Kept Nil Defaulted", func(t *testing.T) {
		svc, d := newChatService(false)
		var got []float64
		d.completer.On("Complete", mock.Anything, mock.MatchedBy(func(req ai.ChatRequest) bool {
			return req.Temperature != nil
		})).Run(func(args mock.Arguments) {
			got = append(got, *args.Get(1).(ai.ChatRequest).Temperature)
		}).Return("ok", nil)

		svc.Respond(ctx, "hello", nil, ChatOptions{Temperature: ai.Float64(0)})
		svc.Respond(ctx, "hello", nil, ChatOptions{})
		svc.Respond(ctx, "hello", nil, ChatOptions{Temperature: ai.Float64(-1)})
		assert.Equal(t, []float64{0, 0.7, 0.7}, got)
	})

	t.Run("Stored History Used For Conversation", func(t *testing.T) {
		svc, d := newChatService(false)
		d.conversations.On("History", mock.Anything, "conv-9").Return([]model.Message{
			{Role: model.RoleUser, Content: "earlier"},
			{Role: model.RoleAssistant, Content: "reply"},
		}, nil)
		d.completer.On("Complete", mock.Anything, mock.MatchedBy(func(req ai.ChatRequest) bool {
			return len(req.Messages) == 4 && req.Messages[1].Content == "earlier"
		})).Return("ok", nil)
		d.conversations.On("Append", mock.Anything, "conv-9", mock.Anything, mock.Anything).Return(nil).Twice()

		opts := DefaultChatOptions()
		opts.ConversationID = "conv-9"
		res := svc.Respond(ctx, "next", []ai.ChatMessage{{Role: model.RoleUser, Content: "ignored"}}, opts)
		assert.Equal(t, "conv-9", res.ConversationID)
		assert.Empty(t, res.Error)
		d.conversations.AssertNotCalled(t, "Create", mock.Anything)
	})

	t.Run("No History No Persistence", func(t *testing.T) {
		svc, d := newChatService(false)
		d.completer.On("Complete", mock.Anything, mock.MatchedBy(func(req ai.ChatRequest) bool {
			return len(req.Messages) == 2
		})).Return("ok", nil)

		res := svc.Respond(ctx, "hello", exchanges(3), ChatOptions{IncludeHistory: false})
		assert.Equal(t, "ok", res.Message)
		assert.Empty(t, res.ConversationID)
		d.conversations.AssertNotCalled(t, "Create", mock.Anything)
		d.conversations.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Retrieval Context Appended", func(t *testing.T) {
		svc, d := newChatService(true)
		d.embedder.On("EmbedBatch", mock.Anything, []string{"react?"}).Return([][]float32{{1}}, nil)
		d.vectors.On("SimilaritySearch", mock.Anything, []float32{1}, 3, model.MetadataFilter(nil)).
			Return([]model.RetrievalResult{{Content: "Used React for 5 years", Score: 0.92, Metadata: model.ChunkMetadata{Source: "cv"}}}, nil)
		d.completer.On("Complete", mock.Anything, mock.MatchedBy(func(req ai.ChatRequest) bool {
			sys := req.Messages[0].Content
			return strings.Contains(sys, "additional information") && strings.Contains(sys, "DOCUMENT 1:") &&
				strings.Contains(sys, "Used React for 5 years")
		})).Return("Yes, five years.", nil)

		res := svc.Respond(ctx, "react?", nil, ChatOptions{RetrievalEnabled: true, RetrievalCount: 3})
		assert.Equal(t, "Yes, five years.", res.Message)
		assert.Empty(t, res.Error)
	})

	t.Run("Vector Store Failure Degrades Gracefully", func(t *testing.T) {
		svc, d := newChatService(true)
		d.embedder.On("EmbedBatch", mock.Anything, mock.Anything).Return([][]float32{{1}}, nil)
		d.vectors.On("SimilaritySearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("connection refused"))
		d.completer.On("Complete", mock.Anything, mock.MatchedBy(func(req ai.ChatRequest) bool {
			return !strings.Contains(req.Messages[0].Content, "additional information")
		})).Return("Answer without context", nil)

		res := svc.Respond(ctx, "react?", nil, ChatOptions{RetrievalEnabled: true})
		assert.Equal(t, "Answer without context", res.Message)
		assert.Empty(t, res.Error)
	})

	t.Run("Completion Failure Returns Fallback", func(t *testing.T) {
		svc, d := newChatService(false)
		d.completer.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("upstream 500"))

		res := svc.Respond(ctx, "hello", nil, ChatOptions{IncludeHistory: true})
		assert.Equal(t, FallbackMessage, res.Message)
		assert.Contains(t, res.Error, "upstream 500")
		d.conversations.AssertNotCalled(t, "Create", mock.Anything)
	})

	t.Run("Persistence Failure Returns Fallback", func(t *testing.T) {
		svc, d := newChatService(false)
		d.completer.On("Complete", mock.Anything, mock.Anything).Return("hi", nil)
		d.conversations.On("Create", mock.Anything).Return("", errors.New("db down"))

		res := svc.Respond(ctx, "hello", nil, ChatOptions{IncludeHistory: true})
		assert.Equal(t, FallbackMessage, res.Message)
		assert.NotEmpty(t, res.Error)
	})

	t.Run("Empty Message", func(t *testing.T) {
		svc, d := newChatService(false)
		res := svc.Respond(ctx, "  ", nil, DefaultChatOptions())
		assert.Equal(t, FallbackMessage, res.Message)
		assert.Contains(t, res.Error, ErrInvalidInput.Error())
		d.completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
	})

	t.Run("Panic Recovered", func(t *testing.T) {
		svc, d := newChatService(false)
		d.completer.On("Complete", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
			panic("nil map")
		}).Return("", nil)

		res := svc.Respond(ctx, "hello", nil, ChatOptions{})
		assert.Equal(t, FallbackMessage, res.Message)
		assert.Equal(t, "nil map", res.Error)
	})
}

func TestChatService_AskWithContext(t *testing.T) {
	ctx := context.Background()

	t.Run("No Context Skips Model", func(t *testing.T) {
		svc, d := newChatService(true)
		d.embedder.On("EmbedBatch", mock.Anything, mock.Anything).Return([][]float32{{1}}, nil)
		d.vectors.On("SimilaritySearch", mock.Anything, mock.Anything, 5, mock.Anything).
			Return([]model.RetrievalResult{{Content: "weak", Score: 0.3}}, nil)

		res := svc.AskWithContext(ctx, "cobol?", nil)
		assert.Equal(t, NoContextReply, res.Message)
		assert.Empty(t, res.Context)
		d.completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
	})

	t.Run("Grounded Answer", func(t *testing.T) {
		svc, d := newChatService(true)
		d.embedder.On("EmbedBatch", mock.Anything, mock.Anything).Return([][]float32{{1}}, nil)
		d.vectors.On("SimilaritySearch", mock.Anything, mock.Anything, 5, mock.Anything).
			Return([]model.RetrievalResult{{Content: "Go services", Score: 0.95, Metadata: model.ChunkMetadata{Source: "cv"}}}, nil)
		d.completer.On("Complete", mock.Anything, mock.MatchedBy(func(req ai.ChatRequest) bool {
			return req.Temperature != nil && *req.Temperature == 0.6 && req.MaxTokens == 500 &&
				strings.Contains(req.Messages[0].Content, "Content: Go services\nSource: cv\nRelevance: 0.95")
		})).Return("I build Go services.", nil)

		res := svc.AskWithContext(ctx, "go?", nil)
		assert.Equal(t, "I build Go services.", res.Message)
		require.Len(t, res.Context, 1)
	})

	t.Run("Retrieval Error", func(t *testing.T) {
		svc, d := newChatService(true)
		d.embedder.On("EmbedBatch", mock.Anything, mock.Anything).Return(nil, errors.New("quota"))

		res := svc.AskWithContext(ctx, "go?", nil)
		assert.Equal(t, FallbackMessage, res.Message)
		assert.NotEmpty(t, res.Error)
	})
}
