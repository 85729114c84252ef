package rag_test

import (
	"context"

	"github.com/akolanti/GoIngest/internal/domain/commonModels"
	"github.com/akolanti/GoIngest/internal/rag/vectorDB"
)

// MockVectorDB implements vectorDB.VectorIndex
type MockVectorDB struct {
	// Control fields to simulate different behaviors
	OnSearch func(ctx context.Context, collection string, vector []float32, topK int, filter vectorDB.Filter) ([]vectorDB.Hit, error)
}

func (m *MockVectorDB) EnsureCollection(ctx context.Context, name string, dim int, distance vectorDB.Distance) error {
	return nil
}

func (m *MockVectorDB) Upsert(ctx context.Context, collection string, points []commonModels.IndexPoint) error {
	return nil
}

func (m *MockVectorDB) Search(ctx context.Context, collection string, vector []float32, topK int, filter vectorDB.Filter) ([]vectorDB.Hit, error) {
	if m.OnSearch != nil {
		return m.OnSearch(ctx, collection, vector, topK, filter)
	}
	return []vectorDB.Hit{}, nil
}

func (m *MockVectorDB) DeleteByFilter(ctx context.Context, collection string, filter vectorDB.Filter) error {
	return nil
}

func (m *MockVectorDB) Count(ctx context.Context, collection string, filter vectorDB.Filter) (int, error) {
	return 0, nil
}

func (m *MockVectorDB) Close() error {
	return nil
}

type MockEmbedder struct {
	Dim            int
	OnGetEmbedding func(ctx context.Context, text string) ([]float32, error)
}

func (m *MockEmbedder) Dimension() int {
	if m.Dim == 0 {
		return 2
	}
	return m.Dim
}

func (m *MockEmbedder) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	out := make([][]float32, len(chunks))
	for i := range chunks {
		out[i], _ = m.GetEmbedding(ctx, chunks[i])
	}
	return out, nil
}

func (m *MockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	if m.OnGetEmbedding != nil {
		return m.OnGetEmbedding(ctx, query)
	}
	v := make([]float32, m.Dimension())
	for i := range v {
		v[i] = 0.1
	}
	return v, nil
}
