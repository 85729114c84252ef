package vectorDB

import (
	"context"
	"errors"
	"strconv"

	"github.com/akolanti/GoIngest/internal/domain/commonModels"
	"github.com/google/uuid"
)

// ErrEmptyFilter guards DeleteByFilter against wiping a whole collection.
var ErrEmptyFilter = errors.New("delete requires a non-empty filter")

type Distance string

const Cosine Distance = "cosine"

// Payload keys shared by every backend.
const (
	FieldDocId       = "doc_id"
	FieldChunkIndex  = "chunk_index"
	FieldFileName    = "file_name"
	FieldText        = "text"
	FieldKnowledgeId = "knowledge_id"
	FieldSection     = "section"
	FieldTokenCount  = "token_count"
)

// pointNamespace seeds the name based UUIDs of chunk points.
var pointNamespace = uuid.MustParse("6f1c1f8e-3a4d-5b7e-9c2a-0d4e8b6a1f37")

// PointID is stable for a (document, chunk) pair so a replayed upsert overwrites instead of duplicating.
func PointID(docId string, chunkIndex int) string {
	return uuid.NewSHA1(pointNamespace, []byte(docId+":"+strconv.Itoa(chunkIndex))).String()
}

// Match is an exact match on one payload field. Value is a string or an int.
type Match struct {
	Field string
	Value any
}

// Filter is a conjunction of exact matches. An empty filter matches everything.
type Filter []Match

func Eq(field string, value any) Match {
	return Match{Field: field, Value: value}
}

type Hit struct {
	Id      string
	Score   float32
	Payload commonModels.Payload
}

type VectorIndex interface {
	// EnsureCollection is idempotent. An existing collection with another dimension is a fatal error.
	EnsureCollection(ctx context.Context, name string, dim int, distance Distance) error
	Upsert(ctx context.Context, collection string, points []commonModels.IndexPoint) error
	// Search returns at most topK hits by descending score. A missing collection yields no hits.
	Search(ctx context.Context, collection string, vector []float32, topK int, filter Filter) ([]Hit, error)
	// DeleteByFilter succeeds when the collection or the matching points do not exist.
	DeleteByFilter(ctx context.Context, collection string, filter Filter) error
	Count(ctx context.Context, collection string, filter Filter) (int, error)
	Close() error
}

// PayloadField reads a payload field by its key, normalising ints.
func PayloadField(p commonModels.Payload, field string) (any, bool) {
	switch field {
	case FieldDocId:
		return p.DocId, true
	case FieldChunkIndex:
		return p.ChunkIndex, true
	case FieldFileName:
		return p.FileName, true
	case FieldText:
		return p.Text, true
	case FieldKnowledgeId:
		return p.KnowledgeId, p.KnowledgeId != ""
	case FieldSection:
		return p.Section, p.Section != ""
	case FieldTokenCount:
		return p.TokenCount, true
	}
	return nil, false
}

// PayloadMap flattens a payload for backends storing free-form maps. Empty optional fields are omitted.
func PayloadMap(p commonModels.Payload) map[string]any {
	m := map[string]any{
		FieldDocId:      p.DocId,
		FieldChunkIndex: int64(p.ChunkIndex),
		FieldFileName:   p.FileName,
		FieldText:       p.Text,
		FieldTokenCount: int64(p.TokenCount),
	}
	if p.KnowledgeId != "" {
		m[FieldKnowledgeId] = p.KnowledgeId
	}
	if p.Section != "" {
		m[FieldSection] = p.Section
	}
	return m
}
