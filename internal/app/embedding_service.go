package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	defaultEmbeddingBatchSize   = 64
	defaultEmbeddingConcurrency = 4
	defaultEmbeddingTimeout     = 30 * time.Second
)

type EmbeddingOptions struct {
	BatchSize   int
	Concurrency int
	// Dimensions is the expected vector length; 0 skips the check.
	Dimensions        int
	RequestsPerSecond float64
	Timeout           time.Duration
}

// EmbeddingService fans texts out to the provider in bounded, throttled batches.
type EmbeddingService struct {
	embedder Embedder
	limiter  *rate.Limiter
	opts     EmbeddingOptions
	logger   *slog.Logger
}

func NewEmbeddingService(embedder Embedder, opts EmbeddingOptions, logger *slog.Logger) *EmbeddingService {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultEmbeddingBatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultEmbeddingConcurrency
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultEmbeddingTimeout
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EmbeddingService{
		embedder: embedder,
		limiter:  rate.NewLimiter(limit, opts.Concurrency),
		opts:     opts,
		logger:   logger,
	}
}

// Embed returns one vector per text in input order. An empty input returns an
// empty result without contacting the provider.
func (s *EmbeddingService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	for start := 0; start < len(texts); start += s.opts.BatchSize {
		end := start + s.opts.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		start, batch := start, texts[start:end]

		g.Go(func() error {
			if err := s.limiter.Wait(gctx); err != nil {
				return fmt.Errorf("%w: embedding throttle: %w", ErrRetrievalUnavailable, err)
			}
			callCtx, cancel := context.WithTimeout(gctx, s.opts.Timeout)
			defer cancel()

			vecs, err := s.embedder.EmbedBatch(callCtx, batch)
			if err != nil {
				return fmt.Errorf("%w: embed batch at %d failed: %w", ErrRetrievalUnavailable, start, err)
			}
			if len(vecs) != len(batch) {
				return fmt.Errorf("%w: embed batch at %d returned %d vectors for %d texts",
					ErrRetrievalUnavailable, start, len(vecs), len(batch))
			}
			for i, v := range vecs {
				if s.opts.Dimensions > 0 && len(v) != s.opts.Dimensions {
					return fmt.Errorf("%w: embedding dimension %d, expected %d",
						ErrRetrievalUnavailable, len(v), s.opts.Dimensions)
				}
				out[start+i] = v
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "embedding failed", "texts", len(texts), "error", err)
		return nil, err
	}
	return out, nil
}

// EmbedQuery embeds a single query string.
func (s *EmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vecs, err := s.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}
