package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/mock"

	"portfolio-rag/internal/ai"
	"portfolio-rag/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type MockEmbedder struct{ mock.Mock }

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

type MockCompleter struct{ mock.Mock }

func (m *MockCompleter) Complete(ctx context.Context, req ai.ChatRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type MockVectorStore struct{ mock.Mock }

func (m *MockVectorStore) UpsertChunks(ctx context.Context, chunks []model.EmbeddedChunk) error {
	return m.Called(ctx, chunks).Error(0)
}

func (m *MockVectorStore) SimilaritySearch(ctx context.Context, query []float32, k int, filter model.MetadataFilter) ([]model.RetrievalResult, error) {
	args := m.Called(ctx, query, k, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.RetrievalResult), args.Error(1)
}

func (m *MockVectorStore) DeleteDocumentChunks(ctx context.Context, documentID string) error {
	return m.Called(ctx, documentID).Error(0)
}

func (m *MockVectorStore) DeleteDocument(ctx context.Context, documentID string) error {
	return m.Called(ctx, documentID).Error(0)
}

type MockDocumentStore struct{ mock.Mock }

func (m *MockDocumentStore) Upsert(ctx context.Context, doc *model.Document) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *MockDocumentStore) UpdateChunkCount(ctx context.Context, id string, count int, at time.Time) error {
	return m.Called(ctx, id, count, at).Error(0)
}

func (m *MockDocumentStore) Get(ctx context.Context, id string) (*model.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentStore) List(ctx context.Context) ([]model.Document, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}

type MockConversationStore struct{ mock.Mock }

func (m *MockConversationStore) Create(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockConversationStore) History(ctx context.Context, conversationID string) ([]model.Message, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Message), args.Error(1)
}

func (m *MockConversationStore) Append(ctx context.Context, conversationID, role, content string) error {
	return m.Called(ctx, conversationID, role, content).Error(0)
}

// fakeEmbedder returns a fixed vector per text, counting calls. Blank inputs
// are rejected the way the hosted providers reject them.
type fakeEmbedder struct {
	dim   int
	calls atomic.Int32
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls.Add(1)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("embedding input %d is empty", i)
		}
		v := make([]float32, f.dim)
		v[0] = float32(len(t))
		out[i] = v
	}
	return out, nil
}
