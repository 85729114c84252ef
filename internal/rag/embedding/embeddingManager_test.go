package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lenEmbedder encodes the text length into every component.
type lenEmbedder struct {
	dim        int
	calls      [][]string
	dropLast   bool
	wrongDimAt int
}

func (l *lenEmbedder) Dimension() int { return l.dim }

func (l *lenEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	out, err := l.BatchEmbedding(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (l *lenEmbedder) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	l.calls = append(l.calls, chunks)
	out := make([][]float32, 0, len(chunks))
	for i, c := range chunks {
		dim := l.dim
		if l.wrongDimAt > 0 && i == l.wrongDimAt {
			dim = l.dim + 1
		}
		v := make([]float32, dim)
		for j := range v {
			v[j] = float32(len(c))
		}
		out = append(out, v)
	}
	if l.dropLast {
		out = out[:len(out)-1]
	}
	return out, nil
}

func TestEmbedAllBatchedEqualsPerChunk(t *testing.T) {
	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}

	batched := &lenEmbedder{dim: 4}
	got, err := EmbedAll(context.Background(), batched, texts, 2)
	require.NoError(t, err)
	assert.Len(t, batched.calls, 3)

	single := &lenEmbedder{dim: 4}
	for i, text := range texts {
		v, err := EmbedQuery(context.Background(), single, text)
		require.NoError(t, err)
		assert.Equal(t, v, got[i], "chunk %d", i)
	}
}

func TestEmbedAllCountMismatch(t *testing.T) {
	_, err := EmbedAll(context.Background(), &lenEmbedder{dim: 4, dropLast: true}, []string{"a", "b"}, 10)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrDimensionMismatch))
}

func TestEmbedAllDimensionMismatch(t *testing.T) {
	_, err := EmbedAll(context.Background(), &lenEmbedder{dim: 4, wrongDimAt: 1}, []string{"a", "b"}, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestEmbedAllEmptyInput(t *testing.T) {
	e := &lenEmbedder{dim: 4}
	got, err := EmbedAll(context.Background(), e, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, e.calls)
}

func TestCheckDimension(t *testing.T) {
	assert.NoError(t, CheckDimension([]float32{1, 2}, 2))
	assert.ErrorIs(t, CheckDimension([]float32{1}, 2), ErrDimensionMismatch)
	assert.Error(t, CheckDimension(nil, 2))
}
