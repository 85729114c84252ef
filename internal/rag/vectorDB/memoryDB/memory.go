package memoryDB

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/akolanti/GoIngest/internal/domain/commonModels"
	"github.com/akolanti/GoIngest/internal/rag/embedding"
	"github.com/akolanti/GoIngest/internal/rag/vectorDB"
)

type collection struct {
	dim    int
	points map[string]commonModels.IndexPoint
}

// Index is an in-process cosine index used by tests and `ragctl --local`.
type Index struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

func New() *Index {
	return &Index{collections: make(map[string]*collection)}
}

func (m *Index) EnsureCollection(ctx context.Context, name string, dim int, distance vectorDB.Distance) error {
	if name == "" {
		return errors.New("empty collection name")
	}
	if distance != vectorDB.Cosine {
		return fmt.Errorf("unsupported distance %q", distance)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.collections[name]; ok {
		if c.dim != dim {
			return fmt.Errorf("collection %s has dimension %d, embedder produces %d: %w", name, c.dim, dim, embedding.ErrDimensionMismatch)
		}
		return nil
	}
	m.collections[name] = &collection{dim: dim, points: make(map[string]commonModels.IndexPoint)}
	return nil
}

func (m *Index) Upsert(ctx context.Context, name string, points []commonModels.IndexPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[name]
	if !ok {
		return fmt.Errorf("collection %s not found", name)
	}
	for _, p := range points {
		if len(p.Vector) != c.dim {
			return fmt.Errorf("point %s: %w", p.Id, embedding.ErrDimensionMismatch)
		}
	}
	for _, p := range points {
		c.points[p.Id] = p
	}
	return nil
}

func (m *Index) Search(ctx context.Context, name string, vector []float32, topK int, filter vectorDB.Filter) ([]vectorDB.Hit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[name]
	if !ok {
		return []vectorDB.Hit{}, nil
	}
	hits := make([]vectorDB.Hit, 0)
	for _, p := range c.points {
		if !matches(p.Payload, filter) {
			continue
		}
		hits = append(hits, vectorDB.Hit{Id: p.Id, Score: cosine(vector, p.Vector), Payload: p.Payload})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score == hits[j].Score {
			return hits[i].Id < hits[j].Id
		}
		return hits[i].Score > hits[j].Score
	})
	if topK >= 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (m *Index) DeleteByFilter(ctx context.Context, name string, filter vectorDB.Filter) error {
	if len(filter) == 0 {
		return vectorDB.ErrEmptyFilter
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[name]
	if !ok {
		return nil
	}
	for id, p := range c.points {
		if matches(p.Payload, filter) {
			delete(c.points, id)
		}
	}
	return nil
}

func (m *Index) Count(ctx context.Context, name string, filter vectorDB.Filter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[name]
	if !ok {
		return 0, nil
	}
	n := 0
	for _, p := range c.points {
		if matches(p.Payload, filter) {
			n++
		}
	}
	return n, nil
}

func (m *Index) Close() error {
	return nil
}

func matches(p commonModels.Payload, filter vectorDB.Filter) bool {
	for _, cond := range filter {
		v, ok := vectorDB.PayloadField(p, cond.Field)
		if !ok {
			return false
		}
		if fmt.Sprint(v) != fmt.Sprint(cond.Value) {
			return false
		}
	}
	return true
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
