package rag

import (
	"context"
	"time"

	"github.com/akolanti/GoIngest/internal/config"
	"github.com/akolanti/GoIngest/internal/domain/commonModels"
	"github.com/akolanti/GoIngest/internal/metrics"
	"github.com/akolanti/GoIngest/internal/rag/embedding"
	"github.com/akolanti/GoIngest/internal/rag/vectorDB"
	"github.com/akolanti/GoIngest/pkg/logger_i"
)

func normalizeTopK(topK int) int {
	if topK == 0 {
		return config.DefaultSearchTopK
	}
	return min(topK, config.MaxSearchTopK)
}

func (s *service) executeEmbeddingStep(ctx context.Context, log *logger_i.Logger, text string) ([]float32, error) {
	log.Debug("Search", "Current Status", "embedding")
	return embedding.EmbedQuery(ctx, s.embedder, text)
}

func (s *service) executeVectorSearchStep(ctx context.Context, log *logger_i.Logger, query Query, vector []float32) ([]commonModels.SearchHit, error) {
	log.Debug("Search", "Current Status", "vector_search")

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_search", time.Since(start)) }()

	var filter vectorDB.Filter
	if query.Section != "" {
		filter = vectorDB.Filter{vectorDB.Eq(vectorDB.FieldSection, query.Section)}
	}
	hits, err := s.vectorDB.Search(ctx, query.KnowledgeId, vector, query.TopK, filter)
	if err != nil {
		return nil, err
	}
	return toSearchHits(hits), nil
}

func toSearchHits(hits []vectorDB.Hit) []commonModels.SearchHit {
	out := make([]commonModels.SearchHit, len(hits))
	for i, h := range hits {
		out[i] = commonModels.SearchHit{
			ChunkId:     h.Id,
			Score:       h.Score,
			DocId:       h.Payload.DocId,
			ChunkIndex:  h.Payload.ChunkIndex,
			FileName:    h.Payload.FileName,
			Text:        h.Payload.Text,
			KnowledgeId: h.Payload.KnowledgeId,
			Section:     h.Payload.Section,
		}
	}
	return out
}
