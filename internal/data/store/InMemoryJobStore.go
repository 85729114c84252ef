package store

import (
	"context"
	"sync"

	"github.com/akolanti/GoIngest/internal/domain/jobModel"
	"github.com/akolanti/GoIngest/pkg/logger_i"
)

type InMemoryJobStore struct {
	jobMutex *sync.RWMutex
	jobMap   map[string]jobModel.Job
	docRuns  map[string][]string
	logger   *logger_i.Logger
}

func InitInMemoryJobStore() *InMemoryJobStore {
	return &InMemoryJobStore{
		jobMutex: new(sync.RWMutex),
		jobMap:   make(map[string]jobModel.Job),
		docRuns:  make(map[string][]string),
		logger:   logger_i.NewLogger("InMem JobStore"),
	}
}

func (store *InMemoryJobStore) SaveJob(ctx context.Context, jobToStored jobModel.Job) error {
	store.jobMutex.Lock()
	defer store.jobMutex.Unlock()
	if _, known := store.jobMap[jobToStored.Id]; !known && jobToStored.DocumentId != "" {
		store.docRuns[jobToStored.DocumentId] = append(store.docRuns[jobToStored.DocumentId], jobToStored.Id)
	}
	store.jobMap[jobToStored.Id] = jobToStored
	store.logger.Debug("Saved job to store", "jobId", jobToStored.Id)
	return nil
}

func (store *InMemoryJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	store.jobMutex.RLock()
	defer store.jobMutex.RUnlock()
	result, found := store.jobMap[jobId]
	return result, found
}

func (store *InMemoryJobStore) LatestForDocument(ctx context.Context, documentId string) (jobModel.Job, bool) {
	store.jobMutex.RLock()
	defer store.jobMutex.RUnlock()
	runs := store.docRuns[documentId]
	if len(runs) == 0 {
		return jobModel.Job{}, false
	}
	job, found := store.jobMap[runs[len(runs)-1]]
	return job, found
}

func (store *InMemoryJobStore) ListReportPending(ctx context.Context) ([]jobModel.Job, error) {
	store.jobMutex.RLock()
	defer store.jobMutex.RUnlock()
	var pending []jobModel.Job
	for _, job := range store.jobMap {
		if job.ReportPending {
			pending = append(pending, job)
		}
	}
	return pending, nil
}
