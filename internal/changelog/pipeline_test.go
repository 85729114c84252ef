package changelog_test

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/akolanti/GoIngest/internal/changelog"
	"github.com/akolanti/GoIngest/internal/data/objectStore"
	"github.com/akolanti/GoIngest/internal/data/store"
	"github.com/akolanti/GoIngest/internal/domain/commonModels"
	"github.com/akolanti/GoIngest/internal/domain/jobModel"
	"github.com/akolanti/GoIngest/internal/job"
	"github.com/akolanti/GoIngest/internal/rag/ingest"
	"github.com/akolanti/GoIngest/internal/rag/vectorDB"
	"github.com/akolanti/GoIngest/internal/rag/vectorDB/memoryDB"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanSource struct {
	messages  chan changelog.Message
	mu        sync.Mutex
	committed int
}

func (c *chanSource) Poll(ctx context.Context) (changelog.Message, error) {
	select {
	case <-ctx.Done():
		return changelog.Message{}, ctx.Err()
	case msg := <-c.messages:
		return msg, nil
	case <-time.After(5 * time.Millisecond):
		return changelog.Message{}, changelog.ErrNoMessage
	}
}

func (c *chanSource) Commit(ctx context.Context, msg changelog.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.committed++
	return nil
}

func (c *chanSource) Close() error { return nil }

type wordEmbedder struct{}

func (wordEmbedder) Dimension() int { return 4 }

func (e wordEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(query))
	sum := h.Sum32()
	return []float32{float32(sum & 0xff), float32(sum >> 8 & 0xff), float32(sum >> 16 & 0xff), 1}, nil
}

func (e wordEmbedder) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	out := make([][]float32, len(chunks))
	for i, c := range chunks {
		out[i], _ = e.GetEmbedding(ctx, c)
	}
	return out, nil
}

// systemOfRecord applies status reports and emits the resulting row change, like the CRUD API plus CDC would.
type systemOfRecord struct {
	mu      sync.Mutex
	row     commonModels.Document
	source  *chanSource
	reports []commonModels.StatusUpdate
	t       *testing.T
}

func (s *systemOfRecord) update(status string) {
	s.mu.Lock()
	before := s.row
	s.row.Status = status
	after := s.row
	s.mu.Unlock()
	raw, err := json.Marshal(map[string]any{"payload": map[string]any{"op": "u", "before": before, "after": after}})
	require.NoError(s.t, err)
	s.source.messages <- changelog.Message{ID: status, Value: raw}
}

func (s *systemOfRecord) Report(ctx context.Context, update commonModels.StatusUpdate) error {
	s.mu.Lock()
	s.reports = append(s.reports, update)
	s.mu.Unlock()
	go s.update(update.Status)
	return nil
}

func TestCreateUpdateReady(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "handbook.md")
	var body strings.Builder
	for i := 0; i < 6; i++ {
		body.WriteString("## Part\n\nEvery tenant keeps its own collection and every chunk carries its document id.\n\n")
	}
	require.NoError(t, os.WriteFile(path, []byte(body.String()), 0o644))

	source := &chanSource{messages: make(chan changelog.Message, 8)}
	record := &systemOfRecord{
		row:    commonModels.Document{Id: "doc-1", KnowledgeId: "kb-1", FileName: "handbook.md", Locator: "file:///handbook.md", Status: commonModels.StatusUploaded},
		source: source,
		t:      t,
	}
	splitter, err := ingest.NewSplitter(40, 5, "cl100k_base")
	require.NoError(t, err)
	index := memoryDB.New()
	pipeline := ingest.NewPipeline(
		objectStore.NewRouter().Register(objectStore.SchemeFile, objectStore.NewFileStore(dir)),
		ingest.NewConverter(5*time.Second, time.Second),
		splitter,
		wordEmbedder{},
		index,
		record,
		ingest.Options{Acquire: objectStore.WaitPolicy{MaxAttempts: 2, RetryDelay: time.Millisecond}, EmbedBatchSize: 3},
	)
	runs := store.InitInMemoryJobStore()
	svc := job.InitJobService(job.ServiceConfig{Pipeline: pipeline, JobStore: runs})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- changelog.NewConsumer(source, svc, changelog.Options{Workers: 1}).Run(ctx) }()

	raw, _ := json.Marshal(map[string]any{"payload": map[string]any{"op": "c", "after": record.row}})
	source.messages <- changelog.Message{ID: "create", Value: raw}
	record.update(commonModels.StatusIngesting)

	require.Eventually(t, func() bool {
		source.mu.Lock()
		defer source.mu.Unlock()
		// create, ingesting and the ready echo
		return source.committed == 3
	}, 5*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	require.Len(t, record.reports, 1, "the ready echo must not start a second run")
	report := record.reports[0]
	require.Equal(t, commonModels.StatusReady, report.Status)
	require.NotNil(t, report.ChunkCount)

	count, err := index.Count(context.Background(), "kb-1", vectorDB.Filter{vectorDB.Eq(vectorDB.FieldDocId, "doc-1")})
	require.NoError(t, err)
	assert.Equal(t, *report.ChunkCount, count)

	latest, ok := svc.LatestForDocument(context.Background(), "doc-1")
	require.True(t, ok)
	assert.Equal(t, jobModel.JobStatusComplete, latest.Status)
	assert.Equal(t, count, latest.ChunkCount)
}
