package vectorstore

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"portfolio-rag/internal/model"
	"portfolio-rag/internal/repository"
)

// SQLStore keeps chunks in MySQL with JSON-encoded vectors and ranks them in
// process. Fine for a single small corpus; every search reads the candidate
// rows.
type SQLStore struct {
	db     *gorm.DB
	chunks *repository.ChunkRepository
}

func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db, chunks: repository.NewChunkRepository(db)}
}

func (s *SQLStore) UpsertChunks(ctx context.Context, chunks []model.EmbeddedChunk) error {
	rows := make([]model.Chunk, 0, len(chunks))
	for _, c := range chunks {
		rows = append(rows, model.NewChunk(c))
	}
	return s.chunks.CreateBatch(ctx, rows)
}

func (s *SQLStore) SimilaritySearch(ctx context.Context, query []float32, k int, filter model.MetadataFilter) ([]model.RetrievalResult, error) {
	if k <= 0 || len(query) == 0 {
		return []model.RetrievalResult{}, nil
	}

	candidates, err := s.chunks.ListCandidates(ctx, filter[model.FilterKeyDocumentID])
	if err != nil {
		return nil, err
	}

	results := make([]model.RetrievalResult, 0, len(candidates))
	for i := range candidates {
		meta := candidates[i].ChunkMetadata()
		if !filter.Matches(meta) {
			continue
		}
		vec := candidates[i].EmbeddingVector()
		if len(vec) != len(query) {
			continue
		}
		results = append(results, model.RetrievalResult{
			Content:  candidates[i].Content,
			Metadata: meta,
			Score:    CosineSimilarity(query, vec),
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (s *SQLStore) DeleteDocumentChunks(ctx context.Context, documentID string) error {
	return s.chunks.DeleteByDocumentID(ctx, documentID)
}

// DeleteDocument drops the chunks and the metadata row in one transaction.
func (s *SQLStore) DeleteDocument(ctx context.Context, documentID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewChunkRepository(tx).DeleteByDocumentID(ctx, documentID); err != nil {
			return err
		}
		return repository.NewDocumentRepository(tx).Delete(ctx, documentID)
	})
	if err != nil {
		return fmt.Errorf("delete document %s failed: %w", documentID, err)
	}
	return nil
}
