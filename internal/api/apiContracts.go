package api

import "time"

const StatusError = "Error"

type ErrorResponse struct {
	Id     string            `json:"id,omitempty"`
	Status string            `json:"status"`
	Error  *JobOutgoingError `json:"error"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"query is required"`
	Retry   bool   `json:"can_retry" example:"false"`
}

// IngestionRunResponse is the latest ingestion run of a document.
type IngestionRunResponse struct {
	Id            string    `json:"id"`
	DocumentId    string    `json:"document_id"`
	KnowledgeId   string    `json:"knowledge_id"`
	FileName      string    `json:"file_name"`
	TraceId       string    `json:"trace_id"`
	Stage         string    `json:"stage"`
	Status        string    `json:"status"`
	ChunkCount    int       `json:"chunk_count"`
	Error         *RunError `json:"error,omitempty"`
	ReportPending bool      `json:"report_pending"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time,omitempty"`
}

type RunError struct {
	Stage   string `json:"stage"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type SearchHit struct {
	ChunkId     string  `json:"chunk_id"`
	Score       float32 `json:"score"`
	DocId       string  `json:"doc_id"`
	ChunkIndex  int     `json:"chunk_index"`
	FileName    string  `json:"file_name"`
	Text        string  `json:"text"`
	KnowledgeId string  `json:"knowledge_id,omitempty"`
	Section     string  `json:"section,omitempty"`
}

type SearchResponse struct {
	Hits []SearchHit `json:"hits"`
}

// requests---------------------

type SearchRequest struct {
	Query   string `json:"query" validate:"required"`
	Section string `json:"section,omitempty"`
	TopK    int    `json:"top_k,omitempty"`
}
