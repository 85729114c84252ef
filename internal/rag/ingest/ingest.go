package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/GoIngest/internal/config"
	"github.com/akolanti/GoIngest/internal/data/objectStore"
	"github.com/akolanti/GoIngest/internal/domain/commonModels"
	"github.com/akolanti/GoIngest/internal/domain/jobModel"
	"github.com/akolanti/GoIngest/internal/metrics"
	"github.com/akolanti/GoIngest/internal/rag/embedding"
	"github.com/akolanti/GoIngest/internal/rag/vectorDB"
	"github.com/akolanti/GoIngest/pkg/logger_i"
)

// Reporter pushes the terminal status of a run to the system of record.
type Reporter interface {
	Report(ctx context.Context, update commonModels.StatusUpdate) error
}

type Options struct {
	Acquire        objectStore.WaitPolicy
	EmbedBatchSize int
	UpsertTimeout  time.Duration
}

type Pipeline struct {
	store     objectStore.Store
	converter *Converter
	splitter  *Splitter
	embedder  embedding.Embedder
	index     vectorDB.VectorIndex
	reporter  Reporter
	opts      Options
	logger    *logger_i.Logger
}

func NewPipeline(store objectStore.Store, converter *Converter, splitter *Splitter, embedder embedding.Embedder, index vectorDB.VectorIndex, reporter Reporter, opts Options) *Pipeline {
	return &Pipeline{
		store:     store,
		converter: converter,
		splitter:  splitter,
		embedder:  embedder,
		index:     index,
		reporter:  reporter,
		opts:      opts,
		logger:    logger_i.NewLogger("Document Ingestion"),
	}
}

// Result is the outcome of one run. Err is a *StageError when the run failed.
type Result struct {
	ChunkCount int
	Err        error
	ReportErr  error
	Reported   bool
}

// StageFunc is told about every stage the run enters.
type StageFunc func(stage jobModel.Stage)

// Ingest runs acquire, convert, split, embed and upsert for doc, then reports the outcome.
// Runs are safe to repeat: the document's previous points are replaced.
// A fatal configuration error is returned without reporting, the event is expected to be redelivered.
func (p *Pipeline) Ingest(ctx context.Context, doc commonModels.Document, onStage StageFunc) Result {
	if onStage == nil {
		onStage = func(jobModel.Stage) {}
	}
	log := p.logger.With("traceId", ctx.Value(config.TraceIDKey), "documentId", doc.Id, "knowledgeId", doc.KnowledgeId)
	log.Info("Starting document ingestion", "file", doc.FileName, "locator", doc.Locator)
	start := time.Now()

	count, err := p.run(ctx, doc, onStage, log)
	result := Result{ChunkCount: count, Err: err}

	if err != nil && IsFatal(err) {
		log.Error("Configuration error, run aborted without report", "error", err)
		metrics.CaptureJobMetrics("fatal", time.Since(start))
		return result
	}

	onStage(jobModel.StageReporting)
	update := commonModels.StatusUpdate{DocumentId: doc.Id, Status: commonModels.StatusReady, ChunkCount: &count}
	if err != nil {
		log.Error("Document ingestion failed", "error", err)
		update = commonModels.StatusUpdate{DocumentId: doc.Id, Status: commonModels.StatusError}
		metrics.CountIngestionRun(commonModels.StatusError)
		metrics.CaptureJobMetrics(commonModels.StatusError, time.Since(start))
	} else {
		log.Info("Document ingested", "chunks", count, "duration", time.Since(start))
		metrics.CountIngestionRun(commonModels.StatusReady)
		metrics.CaptureJobMetrics(commonModels.StatusReady, time.Since(start))
	}

	if reportErr := p.reporter.Report(ctx, update); reportErr != nil {
		metrics.CountReportFailure()
		log.Error("Status report failed, needs reconciliation", "status", update.Status, "error", reportErr)
		result.ReportErr = &StageError{Stage: jobModel.StageReporting, Kind: jobModel.KindReportingFailure, Err: reportErr}
		return result
	}
	result.Reported = true
	return result
}

func (p *Pipeline) run(ctx context.Context, doc commonModels.Document, onStage StageFunc, log *logger_i.Logger) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, stageError(jobModel.StageQueued, err)
	}

	onStage(jobModel.StageDownloading)
	data, err := p.acquire(ctx, doc, log)
	if err != nil {
		return 0, stageError(jobModel.StageDownloading, err)
	}

	onStage(jobModel.StageParsing)
	t := time.Now()
	text, err := p.converter.Convert(ctx, doc.FileName, data)
	metrics.CaptureStageMetrics(string(jobModel.StageParsing), time.Since(t))
	if err != nil {
		return 0, stageError(jobModel.StageParsing, err)
	}

	onStage(jobModel.StageChunking)
	chunks, err := p.splitter.Split(doc.Id, text)
	if err != nil {
		return 0, stageError(jobModel.StageChunking, err)
	}
	if len(chunks) == 0 {
		return 0, stageError(jobModel.StageChunking, ErrEmptyDocument)
	}
	log.Debug("Document split", "chunks", len(chunks))

	onStage(jobModel.StageEmbedding)
	t = time.Now()
	vectors, err := p.embedChunks(ctx, chunks)
	metrics.CaptureStageMetrics(string(jobModel.StageEmbedding), time.Since(t))
	if err != nil {
		return 0, stageError(jobModel.StageEmbedding, err)
	}

	onStage(jobModel.StageUpserting)
	t = time.Now()
	err = p.replacePoints(ctx, doc, buildPoints(doc, chunks, vectors))
	metrics.CaptureStageMetrics(string(jobModel.StageUpserting), time.Since(t))
	if err != nil {
		return 0, stageError(jobModel.StageUpserting, err)
	}
	metrics.CountChunksUpserted(len(chunks))
	return len(chunks), nil
}

func (p *Pipeline) acquire(ctx context.Context, doc commonModels.Document, log *logger_i.Logger) ([]byte, error) {
	loc, err := objectStore.ParseLocator(doc.Locator)
	if err != nil {
		return nil, err
	}
	t := time.Now()
	data, attempts, err := objectStore.Acquire(ctx, p.store, loc, p.opts.Acquire)
	metrics.CaptureStageMetrics(string(jobModel.StageDownloading), time.Since(t))
	if err != nil {
		return nil, err
	}
	log.Debug("Document downloaded", "bytes", len(data), "existenceChecks", attempts)
	return data, nil
}

func (p *Pipeline) embedChunks(ctx context.Context, chunks []commonModels.DocChunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Chunk
	}
	return embedding.EmbedAll(ctx, p.embedder, texts, p.opts.EmbedBatchSize)
}

// replacePoints makes the collection hold exactly the new points for doc.
func (p *Pipeline) replacePoints(ctx context.Context, doc commonModels.Document, points []commonModels.IndexPoint) error {
	if p.opts.UpsertTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.UpsertTimeout)
		defer cancel()
	}
	if err := p.index.EnsureCollection(ctx, doc.KnowledgeId, p.embedder.Dimension(), vectorDB.Cosine); err != nil {
		return err
	}
	if err := p.index.DeleteByFilter(ctx, doc.KnowledgeId, documentFilter(doc.Id)); err != nil {
		return fmt.Errorf("remove previous points: %w", err)
	}
	return p.index.Upsert(ctx, doc.KnowledgeId, points)
}

// Delete removes every point of the document. Unknown documents and collections are not an error.
func (p *Pipeline) Delete(ctx context.Context, knowledgeId, documentId string) error {
	if knowledgeId == "" || documentId == "" {
		return errors.New("delete needs knowledge id and document id")
	}
	log := p.logger.With("traceId", ctx.Value(config.TraceIDKey), "documentId", documentId, "knowledgeId", knowledgeId)
	if err := p.index.DeleteByFilter(ctx, knowledgeId, documentFilter(documentId)); err != nil {
		log.Error("Error deleting document points", "error", err)
		return err
	}
	log.Info("Deleted document points")
	return nil
}

func documentFilter(documentId string) vectorDB.Filter {
	return vectorDB.Filter{vectorDB.Eq(vectorDB.FieldDocId, documentId)}
}

func buildPoints(doc commonModels.Document, chunks []commonModels.DocChunk, vectors [][]float32) []commonModels.IndexPoint {
	points := make([]commonModels.IndexPoint, len(chunks))
	for i, c := range chunks {
		points[i] = commonModels.IndexPoint{
			Id:     vectorDB.PointID(doc.Id, c.ChunkIndex),
			Vector: vectors[i],
			Payload: commonModels.Payload{
				DocId:       doc.Id,
				ChunkIndex:  c.ChunkIndex,
				FileName:    doc.FileName,
				Text:        c.Chunk,
				KnowledgeId: doc.KnowledgeId,
				Section:     c.Section,
				TokenCount:  c.TokenCount,
			},
		}
	}
	return points
}
