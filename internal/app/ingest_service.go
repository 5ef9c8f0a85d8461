package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"portfolio-rag/internal/model"
	"portfolio-rag/internal/pkg/textsplit"
)

const chunkWriteBatch = 50

type IngestInput struct {
	ID     string
	Title  string
	Text   string
	Type   string
	Source string

	// Applied to every chunk of the document.
	YearsExperience int
	ProjectName     string
	// Vocabularies; a term is attached to each chunk that mentions it.
	Technologies []string
	Skills       []string
}

type IngestResult struct {
	DocumentID string `json:"document_id"`
	ChunkCount int    `json:"chunk_count"`
}

type IngestService struct {
	splitter   *textsplit.Splitter
	embeddings *EmbeddingService
	vectors    VectorStore
	documents  DocumentStore
	logger     *slog.Logger
	now        func() time.Time
}

func NewIngestService(
	splitter *textsplit.Splitter,
	embeddings *EmbeddingService,
	vectors VectorStore,
	documents DocumentStore,
	logger *slog.Logger,
) *IngestService {
	if splitter == nil {
		splitter = textsplit.New(textsplit.DefaultChunkSize, textsplit.DefaultChunkOverlap)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestService{
		splitter:   splitter,
		embeddings: embeddings,
		vectors:    vectors,
		documents:  documents,
		logger:     logger,
		now:        time.Now,
	}
}

// Ingest chunks, embeds and stores a document. Re-ingesting an id replaces its
// chunks. Failures after the metadata row is written come back as
// *PartialIngestionError.
func (s *IngestService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", ErrInvalidInput)
	}
	if strings.TrimSpace(input.Type) == "" {
		return nil, fmt.Errorf("%w: type is required", ErrInvalidInput)
	}
	docType, ok := model.ParseDocumentType(input.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDocumentType, input.Type)
	}

	id := strings.TrimSpace(input.ID)
	if id == "" {
		id = uuid.NewString()
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = id
	}
	source := strings.TrimSpace(input.Source)

	now := s.now()
	doc := &model.Document{
		ID:        id,
		Title:     title,
		Type:      docType,
		Source:    source,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.documents.Upsert(ctx, doc); err != nil {
		return nil, fmt.Errorf("%w: save document metadata failed: %w", ErrDependency, err)
	}

	partial := func(written int, err error) error {
		s.logger.ErrorContext(ctx, "ingestion stopped", "document_id", id, "written", written, "error", err)
		return &PartialIngestionError{DocumentID: id, Written: written, Err: err}
	}

	if err := s.vectors.DeleteDocumentChunks(ctx, id); err != nil {
		return nil, partial(0, fmt.Errorf("delete previous chunks failed: %w", err))
	}

	pieces := s.splitter.Split(text)
	vectors, err := s.embeddings.Embed(ctx, pieces)
	if err != nil {
		return nil, partial(0, err)
	}

	chunks := make([]model.EmbeddedChunk, len(pieces))
	for i, content := range pieces {
		chunks[i] = model.EmbeddedChunk{
			Content:   content,
			Embedding: vectors[i],
			Metadata: model.ChunkMetadata{
				DocumentID:      id,
				Title:           title,
				Type:            docType,
				Source:          source,
				ChunkIndex:      i,
				YearsExperience: input.YearsExperience,
				ProjectName:     strings.TrimSpace(input.ProjectName),
				Technologies:    mentioned(content, input.Technologies),
				Skills:          mentioned(content, input.Skills),
			},
		}
	}

	written := 0
	for start := 0; start < len(chunks); start += chunkWriteBatch {
		end := start + chunkWriteBatch
		if end > len(chunks) {
			end = len(chunks)
		}
		if err := s.vectors.UpsertChunks(ctx, chunks[start:end]); err != nil {
			return nil, partial(written, fmt.Errorf("write chunks failed: %w", err))
		}
		written = end
	}

	if err := s.documents.UpdateChunkCount(ctx, id, len(chunks), s.now()); err != nil {
		return nil, partial(written, fmt.Errorf("update chunk count failed: %w", err))
	}

	s.logger.InfoContext(ctx, "document ingested", "document_id", id, "type", docType, "chunks", len(chunks))
	return &IngestResult{DocumentID: id, ChunkCount: len(chunks)}, nil
}

const (
	cvDocumentID = "cv-main"
	cvSource     = "direct-input"
)

// IngestCV renders a structured CV to text and ingests it under a fixed id, so
// uploading a new CV replaces the previous one.
func (s *IngestService) IngestCV(ctx context.Context, cv model.CVData) (*IngestResult, error) {
	if strings.TrimSpace(cv.PersonalInfo.Name) == "" {
		return nil, fmt.Errorf("%w: cv personal info name is required", ErrInvalidInput)
	}

	var technologies []string
	for _, exp := range cv.Experiences {
		technologies = append(technologies, exp.Technologies...)
	}
	for _, p := range cv.Projects {
		technologies = append(technologies, p.Technologies...)
	}
	var skills []string
	years := 0
	for _, sk := range cv.Skills {
		skills = append(skills, sk.Name)
		if sk.YearsExperience > years {
			years = sk.YearsExperience
		}
	}

	return s.Ingest(ctx, IngestInput{
		ID:              cvDocumentID,
		Title:           cv.PersonalInfo.Name + " CV",
		Text:            FormatCV(cv),
		Type:            string(model.DocumentTypeCV),
		Source:          cvSource,
		YearsExperience: years,
		Technologies:    dedupe(technologies),
		Skills:          dedupe(skills),
	})
}

func (s *IngestService) ListDocuments(ctx context.Context) ([]model.Document, error) {
	docs, err := s.documents.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list documents failed: %w", ErrDependency, err)
	}
	return docs, nil
}

func (s *IngestService) DeleteDocument(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: document id is required", ErrInvalidInput)
	}
	doc, err := s.documents.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: get document failed: %w", ErrDependency, err)
	}
	if doc == nil {
		return ErrDocumentNotFound
	}
	if err := s.vectors.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("%w: delete document failed: %w", ErrDependency, err)
	}
	s.logger.InfoContext(ctx, "document deleted", "document_id", id)
	return nil
}

func mentioned(content string, vocabulary []string) []string {
	if len(vocabulary) == 0 {
		return nil
	}
	lower := strings.ToLower(content)
	var out []string
	for _, term := range vocabulary {
		t := strings.TrimSpace(term)
		if t != "" && strings.Contains(lower, strings.ToLower(t)) {
			out = append(out, t)
		}
	}
	return out
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

// IsPartialIngestion reports whether err is a partial ingestion and how many
// chunks were written before it stopped.
func IsPartialIngestion(err error) (int, bool) {
	var pe *PartialIngestionError
	if errors.As(err, &pe) {
		return pe.Written, true
	}
	return 0, false
}
