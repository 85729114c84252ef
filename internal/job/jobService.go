package job

import (
	"context"
	"time"

	"github.com/akolanti/GoIngest/internal/config"
	"github.com/akolanti/GoIngest/internal/domain/commonModels"
	"github.com/akolanti/GoIngest/internal/domain/jobModel"
	"github.com/akolanti/GoIngest/internal/rag/ingest"
	"github.com/akolanti/GoIngest/pkg/logger_i"
	"github.com/google/uuid"
)

// Pipeline is the part of *ingest.Pipeline the service drives.
type Pipeline interface {
	Ingest(ctx context.Context, doc commonModels.Document, onStage ingest.StageFunc) ingest.Result
	Delete(ctx context.Context, knowledgeId, documentId string) error
}

// Service records an ingestion run around every pipeline call.
type Service struct {
	pipeline Pipeline
	JobStore jobModel.JobStore
	logger   *logger_i.Logger
}

type ServiceConfig struct {
	Pipeline Pipeline
	JobStore jobModel.JobStore
}

func InitJobService(cfg ServiceConfig) *Service {
	return &Service{
		pipeline: cfg.Pipeline,
		JobStore: cfg.JobStore,
		logger:   logger_i.NewLogger("Job Service"),
	}
}

// WithTrace returns ctx carrying a trace id, generating one when absent.
func WithTrace(ctx context.Context) (context.Context, string) {
	if traceId, ok := ctx.Value(config.TraceIDKey).(string); ok && traceId != "" {
		return ctx, traceId
	}
	traceId := uuid.NewString()
	return context.WithValue(ctx, config.TraceIDKey, traceId), traceId
}

// Ingest runs the pipeline for doc and persists the run. The returned error is
// non-nil only for fatal configuration errors, every other outcome is in the job.
func (s *Service) Ingest(ctx context.Context, doc commonModels.Document) (jobModel.Job, error) {
	ctx, traceId := WithTrace(ctx)
	job := jobModel.Job{
		Id:          uuid.NewString(),
		DocumentId:  doc.Id,
		KnowledgeId: doc.KnowledgeId,
		FileName:    doc.FileName,
		TraceId:     traceId,
		Stage:       jobModel.StageQueued,
		Status:      jobModel.JobStatusQueued,
		CreatedTime: time.Now().UTC(),
	}
	log := s.logger.With("traceId", traceId, "jobId", job.Id, "documentId", doc.Id)
	s.saveJobState(ctx, job, log)

	result := s.pipeline.Ingest(ctx, doc, func(stage jobModel.Stage) {
		job.Stage = stage
		job.Status = jobModel.JobStatusRunning
		s.saveJobState(ctx, job, log)
	})

	job.EndTime = time.Now().UTC()
	job.ChunkCount = result.ChunkCount
	if result.Err != nil {
		job.Stage = jobModel.StageFailed
		job.Status = jobModel.JobStatusError
		job.Error = ingest.JobErrorOf(result.Err)
		job.ChunkCount = 0
	} else {
		job.Stage = jobModel.StageCompleted
		job.Status = jobModel.JobStatusComplete
	}
	if result.ReportErr != nil {
		job.ReportPending = true
		if job.Error == nil {
			job.Error = ingest.JobErrorOf(result.ReportErr)
		}
	}
	s.saveJobState(ctx, job, log)

	if ingest.IsFatal(result.Err) {
		return job, result.Err
	}
	return job, nil
}

// Delete removes the document's points. Errors are returned so the caller can log them.
func (s *Service) Delete(ctx context.Context, doc commonModels.Document) error {
	ctx, _ = WithTrace(ctx)
	return s.pipeline.Delete(ctx, doc.KnowledgeId, doc.Id)
}

func (s *Service) LatestForDocument(ctx context.Context, documentId string) (jobModel.Job, bool) {
	return s.JobStore.LatestForDocument(ctx, documentId)
}

// saveJobState never fails the run, the run store is bookkeeping only.
func (s *Service) saveJobState(ctx context.Context, job jobModel.Job, log *logger_i.Logger) {
	if err := s.JobStore.SaveJob(ctx, job); err != nil {
		log.Error("Failed to save ingestion run", "stage", job.Stage, "err", err)
	}
}

func (s *Service) PendingReports(ctx context.Context) ([]jobModel.Job, error) {
	return s.JobStore.ListReportPending(ctx)
}

// MarkReported clears the report-pending flag once the status reached the system of record.
func (s *Service) MarkReported(ctx context.Context, job jobModel.Job) error {
	job.ReportPending = false
	if job.Error != nil && job.Error.Kind == jobModel.KindReportingFailure {
		job.Error = nil
	}
	return s.JobStore.SaveJob(ctx, job)
}

// StatusUpdateFor rebuilds the terminal status update of a finished run.
func StatusUpdateFor(job jobModel.Job) commonModels.StatusUpdate {
	if job.Status == jobModel.JobStatusComplete {
		count := job.ChunkCount
		return commonModels.StatusUpdate{DocumentId: job.DocumentId, Status: commonModels.StatusReady, ChunkCount: &count}
	}
	return commonModels.StatusUpdate{DocumentId: job.DocumentId, Status: commonModels.StatusError}
}
