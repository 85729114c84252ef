package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/akolanti/GoIngest/internal/domain/jobModel"
	"github.com/akolanti/GoIngest/internal/job"
	"github.com/akolanti/GoIngest/internal/rag/ingest"
	"github.com/akolanti/GoIngest/pkg/logger_i"
	"github.com/google/uuid"
	"github.com/gorhill/cronexpr"
	"github.com/redis/go-redis/v9"
)

const (
	lockKey = "reconcile:lock"
	lockTTL = 2 * time.Minute
)

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Runs is the part of the job service the sweeper needs.
type Runs interface {
	PendingReports(ctx context.Context) ([]jobModel.Job, error)
	MarkReported(ctx context.Context, job jobModel.Job) error
	LatestForDocument(ctx context.Context, documentId string) (jobModel.Job, bool)
}

// Sweeper re-sends terminal statuses whose report failed on the hot path.
type Sweeper struct {
	runs     Runs
	reporter ingest.Reporter
	expr     *cronexpr.Expression
	lock     *redis.Client
	logger   *logger_i.Logger
}

func New(schedule string, runs Runs, reporter ingest.Reporter) (*Sweeper, error) {
	expr, err := cronexpr.Parse(schedule)
	if err != nil {
		return nil, fmt.Errorf("parse reconcile schedule %q: %w", schedule, err)
	}
	return &Sweeper{
		runs:     runs,
		reporter: reporter,
		expr:     expr,
		logger:   logger_i.NewLogger("Reconcile"),
	}, nil
}

// WithLock makes sweeps take a Redis lock so only one worker replica sweeps at a time.
func (s *Sweeper) WithLock(client *redis.Client) *Sweeper {
	s.lock = client
	return s
}

// Next is the first scheduled sweep after t.
func (s *Sweeper) Next(t time.Time) time.Time {
	return s.expr.Next(t)
}

// Run sweeps on schedule until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("Reconcile sweeper started")
	for {
		now := time.Now()
		next := s.Next(now)
		if next.IsZero() {
			s.logger.Warn("Reconcile schedule has no future run, stopping")
			return
		}
		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("Reconcile sweeper stopped")
			return
		case <-timer.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("Reconcile sweep failed", "err", err)
			}
		}
	}
}

// Sweep reports every pending run once and returns how many were cleared.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	if s.lock != nil {
		token := uuid.NewString()
		ok, err := s.lock.SetNX(ctx, lockKey, token, lockTTL).Result()
		if err != nil {
			return 0, fmt.Errorf("take reconcile lock: %w", err)
		}
		if !ok {
			s.logger.Debug("Another replica is sweeping")
			return 0, nil
		}
		defer s.releaseLock(context.WithoutCancel(ctx), token)
	}

	pending, err := s.runs.PendingReports(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending reports: %w", err)
	}
	cleared := 0
	for _, run := range pending {
		if !run.Terminal() {
			continue
		}
		log := s.logger.With("traceId", run.TraceId, "jobId", run.Id, "documentId", run.DocumentId)
		if latest, ok := s.runs.LatestForDocument(ctx, run.DocumentId); ok && latest.Id != run.Id {
			// a newer run owns the document status now
			if err := s.runs.MarkReported(ctx, run); err != nil {
				log.Error("Failed to clear pending flag of superseded run", "err", err)
				continue
			}
			log.Info("Dropped pending status of superseded run", "latestJobId", latest.Id, "status", run.Status)
			continue
		}
		update := job.StatusUpdateFor(run)
		if err := s.reporter.Report(ctx, update); err != nil {
			log.Warn("Status report still failing", "status", update.Status, "err", err)
			continue
		}
		if err := s.runs.MarkReported(ctx, run); err != nil {
			log.Error("Reported but failed to clear pending flag", "err", err)
			continue
		}
		log.Info("Pending status reported", "status", update.Status)
		cleared++
	}
	if len(pending) > 0 {
		s.logger.Info("Reconcile sweep finished", "pending", len(pending), "cleared", cleared)
	}
	return cleared, nil
}

func (s *Sweeper) releaseLock(ctx context.Context, token string) {
	if err := releaseScript.Run(ctx, s.lock, []string{lockKey}, token).Err(); err != nil {
		s.logger.Warn("Failed to release reconcile lock", "err", err)
	}
}
