package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"portfolio-rag/internal/model"
)

type ChunkRepository struct {
	db *gorm.DB
}

func NewChunkRepository(db *gorm.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

func (r *ChunkRepository) CreateBatch(ctx context.Context, chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&chunks).Error; err != nil {
		return fmt.Errorf("create chunks batch failed: %w", err)
	}
	return nil
}

// ListCandidates returns chunks for in-process scoring, optionally narrowed to
// a set of documents.
func (r *ChunkRepository) ListCandidates(ctx context.Context, documentIDs []string) ([]model.Chunk, error) {
	q := r.db.WithContext(ctx)
	if len(documentIDs) > 0 {
		q = q.Where("document_id IN ?", documentIDs)
	}
	var chunks []model.Chunk
	if err := q.Order("document_id ASC, chunk_index ASC").Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list chunks failed: %w", err)
	}
	return chunks, nil
}

func (r *ChunkRepository) DeleteByDocumentID(ctx context.Context, documentID string) error {
	if err := r.db.WithContext(ctx).Where("document_id = ?", documentID).Delete(&model.Chunk{}).Error; err != nil {
		return fmt.Errorf("delete chunks by document failed: %w", err)
	}
	return nil
}
