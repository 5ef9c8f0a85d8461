package app

import (
	"context"
	"time"

	"portfolio-rag/internal/ai"
	"portfolio-rag/internal/model"
)

type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type Completer interface {
	Complete(ctx context.Context, req ai.ChatRequest) (string, error)
}

// VectorStore persists embedded chunks and answers nearest-neighbour queries.
// Scores are cosine similarity clamped to [0,1], highest first.
type VectorStore interface {
	UpsertChunks(ctx context.Context, chunks []model.EmbeddedChunk) error
	SimilaritySearch(ctx context.Context, query []float32, k int, filter model.MetadataFilter) ([]model.RetrievalResult, error)
	DeleteDocumentChunks(ctx context.Context, documentID string) error
	// DeleteDocument removes the chunks and the metadata row.
	DeleteDocument(ctx context.Context, documentID string) error
}

// DocumentStore holds document metadata rows. Get returns nil, nil when the
// document does not exist.
type DocumentStore interface {
	Upsert(ctx context.Context, doc *model.Document) error
	UpdateChunkCount(ctx context.Context, id string, count int, at time.Time) error
	Get(ctx context.Context, id string) (*model.Document, error)
	List(ctx context.Context) ([]model.Document, error)
}

type ConversationStore interface {
	Create(ctx context.Context) (string, error)
	History(ctx context.Context, conversationID string) ([]model.Message, error)
	Append(ctx context.Context, conversationID, role, content string) error
}
