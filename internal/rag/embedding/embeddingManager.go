package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/GoIngest/internal/metrics"
)

// ErrDimensionMismatch means the model and the index disagree on vector size.
// It is a configuration problem, never a per-document one.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

type Embedder interface {
	// GetEmbedding embeds a search query.
	GetEmbedding(ctx context.Context, query string) ([]float32, error)
	// BatchEmbedding embeds document chunks, one vector per input in input order.
	BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error)
	Dimension() int
}

// EmbedAll embeds texts in batches of batchSize and checks count and dimension of every result.
func EmbedAll(ctx context.Context, e Embedder, texts []string, batchSize int) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = len(texts)
	}
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		t := time.Now()
		batch, err := e.BatchEmbedding(ctx, texts[start:end])
		metrics.CaptureExecutionMetrics("embedding", time.Since(t))
		if err != nil {
			return nil, fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embed chunks %d-%d: got %d vectors for %d inputs", start, end-1, len(batch), end-start)
		}
		for i, v := range batch {
			if err = CheckDimension(v, e.Dimension()); err != nil {
				return nil, fmt.Errorf("chunk %d: %w", start+i, err)
			}
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// EmbedQuery embeds a single query and checks its dimension.
func EmbedQuery(ctx context.Context, e Embedder, query string) ([]float32, error) {
	t := time.Now()
	vector, err := e.GetEmbedding(ctx, query)
	metrics.CaptureExecutionMetrics("embedding", time.Since(t))
	if err != nil {
		return nil, err
	}
	if err = CheckDimension(vector, e.Dimension()); err != nil {
		return nil, err
	}
	return vector, nil
}

func CheckDimension(vector []float32, want int) error {
	if len(vector) == 0 {
		return errors.New("empty embedding")
	}
	if len(vector) != want {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), want)
	}
	return nil
}
