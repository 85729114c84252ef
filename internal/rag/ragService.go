package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/GoIngest/internal/config"
	"github.com/akolanti/GoIngest/internal/domain/commonModels"
	"github.com/akolanti/GoIngest/internal/metrics"
	"github.com/akolanti/GoIngest/internal/rag/embedding"
	"github.com/akolanti/GoIngest/internal/rag/vectorDB"
	"github.com/akolanti/GoIngest/pkg/logger_i"
)

/*
ARCHITECTURE NOTE: OPAQUE INTERFACE PATTERN
---------------------------------------------------------

1. Service (Interface):
  - This is the PUBLIC contract the HTTP handlers, the MCP tool and ragctl call.

2. service (Private Struct):
  - Holds the embedder and the vector index. Lowercase so callers cannot
    reach the dependencies directly.

3. Dependency Injection (NewService):
  - Real clients in production, memoryDB and fake embedders in tests.
*/

// ErrInvalidQuery is returned before any backend call when the query cannot be served.
var ErrInvalidQuery = errors.New("invalid search query")

type Query struct {
	KnowledgeId string
	Text        string
	Section     string
	TopK        int
}

// Service answers similarity searches scoped to one knowledge collection.
type Service interface {
	Search(ctx context.Context, query Query) ([]commonModels.SearchHit, error)
}

type service struct {
	vectorDB vectorDB.VectorIndex
	embedder embedding.Embedder
	timeout  time.Duration
	logger   *logger_i.Logger
}

// NewService constructor
func NewService(vector vectorDB.VectorIndex, em embedding.Embedder, timeout time.Duration) Service {
	return &service{
		vectorDB: vector,
		embedder: em,
		timeout:  timeout,
		logger:   logger_i.NewLogger("RAG Service"),
	}
}

func (s *service) Search(ctx context.Context, query Query) ([]commonModels.SearchHit, error) {
	start := time.Now()
	defer func() { metrics.CaptureJobMetrics("search", time.Since(start)) }()

	query, err := validate(query)
	if err != nil {
		return nil, err
	}
	inMethodLogger := s.logger.With("traceId", ctx.Value(config.TraceIDKey), "knowledgeId", query.KnowledgeId)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	vector, err := s.executeEmbeddingStep(ctx, inMethodLogger, query.Text)
	if err != nil {
		inMethodLogger.Error("EMBEDDING_FAILURE", "error", err)
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.executeVectorSearchStep(ctx, inMethodLogger, query, vector)
	if err != nil {
		inMethodLogger.Error("VECTOR_DB_FAILURE", "error", err)
		return nil, fmt.Errorf("search %s: %w", query.KnowledgeId, err)
	}
	inMethodLogger.Debug("Search complete", "hits", len(hits), "section", query.Section, "topK", query.TopK)
	return hits, nil
}

func validate(query Query) (Query, error) {
	query.KnowledgeId = strings.TrimSpace(query.KnowledgeId)
	query.Text = strings.TrimSpace(query.Text)
	query.Section = strings.TrimSpace(query.Section)
	switch {
	case query.KnowledgeId == "":
		return query, fmt.Errorf("%w: knowledge id is required", ErrInvalidQuery)
	case query.Text == "":
		return query, fmt.Errorf("%w: query text is required", ErrInvalidQuery)
	case query.TopK < 0:
		return query, fmt.Errorf("%w: top_k must not be negative", ErrInvalidQuery)
	}
	query.TopK = normalizeTopK(query.TopK)
	return query, nil
}
