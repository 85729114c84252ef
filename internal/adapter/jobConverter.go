package adapter

import (
	"github.com/akolanti/GoIngest/internal/api"
	"github.com/akolanti/GoIngest/internal/domain/commonModels"
	"github.com/akolanti/GoIngest/internal/domain/jobModel"
	"github.com/akolanti/GoIngest/internal/rag"
)

func ToIngestionRunResponse(job jobModel.Job) api.IngestionRunResponse {
	var errorPtr *api.RunError
	if job.Error != nil {
		errorPtr = &api.RunError{
			Stage:   string(job.Error.Stage),
			Kind:    string(job.Error.Kind),
			Message: job.Error.Message,
		}
	}

	return api.IngestionRunResponse{
		Id:            job.Id,
		DocumentId:    job.DocumentId,
		KnowledgeId:   job.KnowledgeId,
		FileName:      job.FileName,
		TraceId:       job.TraceId,
		Stage:         string(job.Stage),
		Status:        string(job.Status),
		ChunkCount:    job.ChunkCount,
		Error:         errorPtr,
		ReportPending: job.ReportPending,
		StartTime:     job.CreatedTime,
		EndTime:       job.EndTime,
	}
}

func ToSearchQuery(knowledgeId string, req api.SearchRequest) rag.Query {
	return rag.Query{
		KnowledgeId: knowledgeId,
		Text:        req.Query,
		Section:     req.Section,
		TopK:        req.TopK,
	}
}

func ToSearchResponse(hits []commonModels.SearchHit) api.SearchResponse {
	out := make([]api.SearchHit, len(hits))
	for i, h := range hits {
		out[i] = api.SearchHit(h)
	}
	return api.SearchResponse{Hits: out}
}

func BadRequest(id string, error string, code int) api.ErrorResponse {
	return api.ErrorResponse{
		Id:     id,
		Status: api.StatusError,
		Error: &api.JobOutgoingError{
			Code:    code,
			Message: error,
			Retry:   code >= 500,
		},
	}
}
