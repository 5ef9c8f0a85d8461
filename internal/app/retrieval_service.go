package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"portfolio-rag/internal/model"
)

const (
	DefaultRetrievalLimit = 5
	DefaultThresholdScore = 0.75
)

// RetrieveOptions uses pointer fields so a caller can ask for a zero
// threshold explicitly.
type RetrieveOptions struct {
	Limit          int
	Filter         model.MetadataFilter
	ThresholdScore *float64
}

// ContextItem is a retrieval result prepared for a prompt.
type ContextItem struct {
	Content   string             `json:"content"`
	Source    string             `json:"source"`
	Title     string             `json:"title"`
	Type      model.DocumentType `json:"type"`
	Relevance string             `json:"relevance"`
}

type RetrievalService struct {
	embeddings *EmbeddingService
	vectors    VectorStore
	extractor  *EntityExtractor
	threshold  float64
	logger     *slog.Logger
}

func NewRetrievalService(
	embeddings *EmbeddingService,
	vectors VectorStore,
	extractor *EntityExtractor,
	threshold float64,
	logger *slog.Logger,
) *RetrievalService {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThresholdScore
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetrievalService{
		embeddings: embeddings,
		vectors:    vectors,
		extractor:  extractor,
		threshold:  threshold,
		logger:     logger,
	}
}

// Retrieve returns chunks scoring at or above the threshold, best first. An
// empty slice with a nil error means nothing relevant was found; a non-nil
// error always means a dependency failed.
func (s *RetrievalService) Retrieve(ctx context.Context, query string, opts RetrieveOptions) ([]model.RetrievalResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultRetrievalLimit
	}
	threshold := s.threshold
	if opts.ThresholdScore != nil {
		threshold = *opts.ThresholdScore
	}

	vec, err := s.embeddings.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	results, err := s.vectors.SimilaritySearch(ctx, vec, limit, opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("%w: similarity search failed: %w", ErrRetrievalUnavailable, err)
	}
	if len(results) == 0 && !opts.Filter.Empty() {
		s.logger.DebugContext(ctx, "filtered search empty, retrying unfiltered", "filter", opts.Filter)
		results, err = s.vectors.SimilaritySearch(ctx, vec, limit, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: similarity search failed: %w", ErrRetrievalUnavailable, err)
		}
	}

	kept := make([]model.RetrievalResult, 0, len(results))
	for _, r := range results {
		if r.Score >= threshold {
			kept = append(kept, r)
		}
	}
	return kept, nil
}

// EnhancedContext extracts a filter from the query, retrieves and assembles.
// ok is false when nothing relevant was found.
func (s *RetrievalService) EnhancedContext(ctx context.Context, query string, limit int) ([]ContextItem, bool, error) {
	var filter model.MetadataFilter
	if s.extractor != nil {
		filter = s.extractor.BuildFilter(ctx, query)
	}
	results, err := s.Retrieve(ctx, query, RetrieveOptions{Limit: limit, Filter: filter})
	if err != nil {
		return nil, false, err
	}
	items, ok := AssembleContext(results)
	return items, ok, nil
}

// AssembleContext decorates each result with its experience and project
// metadata. ok is false when there is nothing to assemble.
func AssembleContext(results []model.RetrievalResult) ([]ContextItem, bool) {
	if len(results) == 0 {
		return []ContextItem{}, false
	}
	items := make([]ContextItem, 0, len(results))
	for _, r := range results {
		content := r.Content
		if r.Metadata.YearsExperience > 0 {
			content += fmt.Sprintf("\nExperience: %d years", r.Metadata.YearsExperience)
		}
		if r.Metadata.ProjectName != "" {
			content += "\nProject: " + r.Metadata.ProjectName
		}
		items = append(items, ContextItem{
			Content:   content,
			Source:    r.Metadata.Source,
			Title:     r.Metadata.Title,
			Type:      r.Metadata.Type,
			Relevance: fmt.Sprintf("%.2f", r.Score),
		})
	}
	return items, true
}

// FormatContext renders context items as numbered DOCUMENT blocks.
func FormatContext(items []ContextItem) string {
	var b strings.Builder
	for i, it := range items {
		fmt.Fprintf(&b, "DOCUMENT %d:\n", i+1)
		if it.Source != "" {
			fmt.Fprintf(&b, "Source: %s\n", it.Source)
		}
		if it.Title != "" {
			fmt.Fprintf(&b, "Title: %s\n", it.Title)
		}
		if it.Type != "" {
			fmt.Fprintf(&b, "Type: %s\n", it.Type)
		}
		if it.Relevance != "" {
			fmt.Fprintf(&b, "Relevance: %s\n", it.Relevance)
		}
		fmt.Fprintf(&b, "Content:\n%s\n\n", it.Content)
	}
	return b.String()
}
