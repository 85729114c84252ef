package jobModel

import (
	"context"
	"time"
)

type JobStatus string
type Stage string

type ErrorKind string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	JobStatusError    JobStatus = "ERROR"

	StageQueued      Stage = "queued"
	StageDownloading Stage = "downloading"
	StageParsing     Stage = "parsing"
	StageChunking    Stage = "chunking"
	StageEmbedding   Stage = "embedding"
	StageUpserting   Stage = "upserting"
	StageReporting   Stage = "reporting"
	StageCompleted   Stage = "completed"
	StageFailed      Stage = "failed"

	KindTransient        ErrorKind = "transient"
	KindPermanent        ErrorKind = "permanent"
	KindReportingFailure ErrorKind = "reporting_failure"
	KindFatal            ErrorKind = "fatal"
)

// Job is one ingestion run of a document.
type Job struct {
	Id            string    `json:"id"`
	DocumentId    string    `json:"document_id"`
	KnowledgeId   string    `json:"knowledge_id"`
	FileName      string    `json:"file_name"`
	TraceId       string    `json:"trace_id"`
	Stage         Stage     `json:"stage"`
	Status        JobStatus `json:"status"`
	ChunkCount    int       `json:"chunk_count"`
	Error         *JobError `json:"error,omitempty"`
	ReportPending bool      `json:"report_pending"`
	CreatedTime   time.Time `json:"created_time"`
	EndTime       time.Time `json:"end_time,omitempty"`
}

type JobError struct {
	Stage   Stage     `json:"stage"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Terminal reports whether the run reached ready or error.
func (j Job) Terminal() bool {
	return j.Status == JobStatusComplete || j.Status == JobStatusError
}

type JobStore interface {
	GetJob(ctx context.Context, jobId string) (Job, bool)
	SaveJob(ctx context.Context, job Job) error
	LatestForDocument(ctx context.Context, documentId string) (Job, bool)
	ListReportPending(ctx context.Context) ([]Job, error)
}
