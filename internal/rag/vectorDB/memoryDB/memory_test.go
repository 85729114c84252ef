package memoryDB

import (
	"context"
	"testing"

	"github.com/akolanti/GoIngest/internal/domain/commonModels"
	"github.com/akolanti/GoIngest/internal/rag/embedding"
	"github.com/akolanti/GoIngest/internal/rag/vectorDB"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func point(doc string, idx int, section string, v ...float32) commonModels.IndexPoint {
	return commonModels.IndexPoint{
		Id:      vectorDB.PointID(doc, idx),
		Vector:  v,
		Payload: commonModels.Payload{DocId: doc, ChunkIndex: idx, Section: section, Text: doc},
	}
}

func TestSearchOrderingAndTopK(t *testing.T) {
	ctx := context.Background()
	idx := New()
	require.NoError(t, idx.EnsureCollection(ctx, "kb", 2, vectorDB.Cosine))
	require.NoError(t, idx.EnsureCollection(ctx, "kb", 2, vectorDB.Cosine))
	require.NoError(t, idx.Upsert(ctx, "kb", []commonModels.IndexPoint{
		point("d1", 0, "", 1, 0),
		point("d1", 1, "", 0.7, 0.7),
		point("d1", 2, "", 0, 1),
	}))

	hits, err := idx.Search(ctx, "kb", []float32{1, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 0, hits[0].Payload.ChunkIndex)
	assert.Equal(t, 1, hits[1].Payload.ChunkIndex)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)

	hits, err = idx.Search(ctx, "kb", []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	assert.Len(t, hits, 3, "fewer points than topK")
}

func TestSearchMissingCollection(t *testing.T) {
	hits, err := New().Search(context.Background(), "nope", []float32{1}, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestFilterAndDelete(t *testing.T) {
	ctx := context.Background()
	idx := New()
	require.NoError(t, idx.EnsureCollection(ctx, "kb", 2, vectorDB.Cosine))
	require.NoError(t, idx.Upsert(ctx, "kb", []commonModels.IndexPoint{
		point("d1", 0, "intro", 1, 0),
		point("d1", 1, "usage", 1, 0),
		point("d2", 0, "intro", 1, 0),
	}))

	hits, err := idx.Search(ctx, "kb", []float32{1, 0}, 10, vectorDB.Filter{vectorDB.Eq(vectorDB.FieldSection, "intro")})
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = idx.Search(ctx, "kb", []float32{1, 0}, 10, vectorDB.Filter{
		vectorDB.Eq(vectorDB.FieldDocId, "d1"),
		vectorDB.Eq(vectorDB.FieldChunkIndex, 1),
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "usage", hits[0].Payload.Section)

	require.NoError(t, idx.DeleteByFilter(ctx, "kb", vectorDB.Filter{vectorDB.Eq(vectorDB.FieldDocId, "d1")}))
	n, err := idx.Count(ctx, "kb", vectorDB.Filter{vectorDB.Eq(vectorDB.FieldDocId, "d1")})
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = idx.Count(ctx, "kb", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "other documents survive")

	assert.NoError(t, idx.DeleteByFilter(ctx, "kb", vectorDB.Filter{vectorDB.Eq(vectorDB.FieldDocId, "ghost")}))
	assert.NoError(t, idx.DeleteByFilter(ctx, "missing", vectorDB.Filter{vectorDB.Eq(vectorDB.FieldDocId, "d1")}))
	assert.ErrorIs(t, idx.DeleteByFilter(ctx, "kb", nil), vectorDB.ErrEmptyFilter)
}

func TestDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	idx := New()
	require.NoError(t, idx.EnsureCollection(ctx, "kb", 2, vectorDB.Cosine))
	assert.ErrorIs(t, idx.EnsureCollection(ctx, "kb", 3, vectorDB.Cosine), embedding.ErrDimensionMismatch)
	assert.ErrorIs(t, idx.Upsert(ctx, "kb", []commonModels.IndexPoint{point("d", 0, "", 1, 2, 3)}), embedding.ErrDimensionMismatch)
}

func TestPointIDDeterministic(t *testing.T) {
	assert.Equal(t, vectorDB.PointID("d1", 3), vectorDB.PointID("d1", 3))
	assert.NotEqual(t, vectorDB.PointID("d1", 3), vectorDB.PointID("d1", 4))
	assert.NotEqual(t, vectorDB.PointID("d1", 3), vectorDB.PointID("d2", 3))
}
