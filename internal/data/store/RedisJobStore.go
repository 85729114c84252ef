package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/akolanti/GoIngest/internal/config"
	"github.com/akolanti/GoIngest/internal/data/redisStore"
	"github.com/akolanti/GoIngest/internal/domain/jobModel"
	"github.com/akolanti/GoIngest/pkg/logger_i"
)

const (
	runKeyPrefix     = "run:"
	docRunsKeyPrefix = "doc_runs:"
	reportPendingKey = "runs:report_pending"
)

type RedisJobStore struct {
	store  *redisStore.Store
	ttl    time.Duration
	logger *logger_i.Logger
}

func NewRedisJobStore(store *redisStore.Store, ttl time.Duration) *RedisJobStore {
	return &RedisJobStore{
		store:  store,
		ttl:    ttl,
		logger: logger_i.NewLogger("JobStore"),
	}
}

func (s *RedisJobStore) SaveJob(ctx context.Context, job jobModel.Job) error {
	log := s.logger.With("traceId", ctx.Value(config.TraceIDKey), "job Id", job.Id)
	log.Debug("saving job")
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	_, known := s.GetJob(ctx, job.Id)
	if err = s.store.Set(ctx, runKeyPrefix+job.Id, data, s.ttl); err != nil {
		return err
	}
	if !known && job.DocumentId != "" {
		docKey := docRunsKeyPrefix + job.DocumentId
		if err = s.store.ListPush(ctx, docKey, job.Id); err != nil {
			return err
		}
		if err = s.store.Expire(ctx, docKey, s.ttl); err != nil {
			return err
		}
	}

	if job.ReportPending {
		err = s.store.SetAdd(ctx, reportPendingKey, job.Id)
	} else {
		err = s.store.SetRemove(ctx, reportPendingKey, job.Id)
	}
	if err == nil {
		log.Debug("Saved job to Redis")
	}
	return err
}

func (s *RedisJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	var job jobModel.Job
	log := s.logger.With("traceId", ctx.Value(config.TraceIDKey), "job Id", jobId)
	val, err := s.store.Get(ctx, runKeyPrefix+jobId)
	if s.store.IsNil(err) {
		return job, false
	} else if err != nil {
		log.Error("could not read job", "error", err)
		return job, false
	}

	if err = json.Unmarshal([]byte(val), &job); err != nil {
		log.Error("could not decode job", "error", err)
		return job, false
	}
	return job, true
}

func (s *RedisJobStore) LatestForDocument(ctx context.Context, documentId string) (jobModel.Job, bool) {
	jobId, err := s.store.ListLast(ctx, docRunsKeyPrefix+documentId)
	if err != nil {
		if !s.store.IsNil(err) {
			s.logger.Error("could not read document runs", "documentId", documentId, "error", err)
		}
		return jobModel.Job{}, false
	}
	return s.GetJob(ctx, jobId)
}

func (s *RedisJobStore) ListReportPending(ctx context.Context) ([]jobModel.Job, error) {
	ids, err := s.store.SetMembers(ctx, reportPendingKey)
	if err != nil {
		return nil, err
	}
	jobs := make([]jobModel.Job, 0, len(ids))
	for _, id := range ids {
		job, found := s.GetJob(ctx, id)
		if !found {
			// expired run, nothing left to reconcile
			_ = s.store.SetRemove(ctx, reportPendingKey, id)
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
