package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/akolanti/GoIngest/internal/data/store"
	"github.com/akolanti/GoIngest/internal/domain/commonModels"
	"github.com/akolanti/GoIngest/internal/domain/jobModel"
	"github.com/akolanti/GoIngest/internal/job"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReporter struct {
	mu       sync.Mutex
	sent     []commonModels.StatusUpdate
	OnReport func(update commonModels.StatusUpdate) error
}

func (m *mockReporter) Report(ctx context.Context, update commonModels.StatusUpdate) error {
	m.mu.Lock()
	m.sent = append(m.sent, update)
	m.mu.Unlock()
	if m.OnReport != nil {
		return m.OnReport(update)
	}
	return nil
}

func (m *mockReporter) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func seed(t *testing.T) *job.Service {
	t.Helper()
	runs := store.InitInMemoryJobStore()
	ctx := context.Background()
	require.NoError(t, runs.SaveJob(ctx, jobModel.Job{Id: "r1", DocumentId: "ok", Status: jobModel.JobStatusComplete, ChunkCount: 5, ReportPending: true,
		Error: &jobModel.JobError{Stage: jobModel.StageReporting, Kind: jobModel.KindReportingFailure, Message: "api down"}}))
	require.NoError(t, runs.SaveJob(ctx, jobModel.Job{Id: "r2", DocumentId: "broken", Status: jobModel.JobStatusError, ReportPending: true}))
	require.NoError(t, runs.SaveJob(ctx, jobModel.Job{Id: "r3", DocumentId: "running", Status: jobModel.JobStatusRunning, ReportPending: true}))
	require.NoError(t, runs.SaveJob(ctx, jobModel.Job{Id: "r4", DocumentId: "done", Status: jobModel.JobStatusComplete}))
	return job.InitJobService(job.ServiceConfig{JobStore: runs})
}

func TestSweepReportsPending(t *testing.T) {
	svc := seed(t)
	rep := &mockReporter{}
	s, err := New("* * * * *", svc, rep)
	require.NoError(t, err)

	cleared, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, cleared)
	assert.Equal(t, 2, rep.count(), "non terminal runs are not reported")

	for _, u := range rep.sent {
		switch u.DocumentId {
		case "ok":
			require.NotNil(t, u.ChunkCount)
			assert.Equal(t, commonModels.StatusReady, u.Status)
			assert.Equal(t, 5, *u.ChunkCount)
		case "broken":
			assert.Equal(t, commonModels.StatusError, u.Status)
			assert.Nil(t, u.ChunkCount)
		default:
			t.Errorf("unexpected report %+v", u)
		}
	}

	latest, ok := svc.LatestForDocument(context.Background(), "ok")
	require.True(t, ok)
	assert.False(t, latest.ReportPending)
	assert.Nil(t, latest.Error)

	cleared, err = s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, cleared)
}

func TestSweepKeepsFailures(t *testing.T) {
	svc := seed(t)
	rep := &mockReporter{OnReport: func(update commonModels.StatusUpdate) error {
		if update.DocumentId == "broken" {
			return errors.New("still down")
		}
		return nil
	}}
	s, err := New("* * * * *", svc, rep)
	require.NoError(t, err)

	cleared, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)

	pending, _ := svc.PendingReports(context.Background())
	ids := map[string]bool{}
	for _, p := range pending {
		ids[p.DocumentId] = true
	}
	assert.True(t, ids["broken"])
	assert.False(t, ids["ok"])
}

func TestSweepLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	rep := &mockReporter{}
	s, err := New("* * * * *", seed(t), rep)
	require.NoError(t, err)
	s.WithLock(client)

	require.NoError(t, mr.Set(lockKey, "1"))
	cleared, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, cleared)
	assert.Equal(t, 0, rep.count())

	mr.Del(lockKey)
	cleared, err = s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, cleared)
	assert.False(t, mr.Exists(lockKey), "lock is released after the sweep")
}

func TestSweepLockKeepsForeignToken(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	// the lock lapses mid sweep and another replica takes it over
	rep := &mockReporter{OnReport: func(update commonModels.StatusUpdate) error {
		mr.Set(lockKey, "other-replica")
		return nil
	}}
	s, err := New("* * * * *", seed(t), rep)
	require.NoError(t, err)
	s.WithLock(client)

	_, err = s.Sweep(context.Background())
	require.NoError(t, err)
	held, err := mr.Get(lockKey)
	require.NoError(t, err)
	assert.Equal(t, "other-replica", held, "a sweep only releases its own lock")
}

func TestSweepSkipsSupersededRuns(t *testing.T) {
	runs := store.InitInMemoryJobStore()
	ctx := context.Background()
	require.NoError(t, runs.SaveJob(ctx, jobModel.Job{Id: "old-err", DocumentId: "d1", Status: jobModel.JobStatusError, ReportPending: true}))
	require.NoError(t, runs.SaveJob(ctx, jobModel.Job{Id: "new-ok", DocumentId: "d1", Status: jobModel.JobStatusComplete, ChunkCount: 3}))
	require.NoError(t, runs.SaveJob(ctx, jobModel.Job{Id: "old-ok", DocumentId: "d2", Status: jobModel.JobStatusComplete, ReportPending: true}))
	require.NoError(t, runs.SaveJob(ctx, jobModel.Job{Id: "new-running", DocumentId: "d2", Status: jobModel.JobStatusRunning}))
	svc := job.InitJobService(job.ServiceConfig{JobStore: runs})

	rep := &mockReporter{}
	s, err := New("* * * * *", svc, rep)
	require.NoError(t, err)

	cleared, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, cleared)
	assert.Equal(t, 0, rep.count(), "a stale status must not overwrite a newer run")

	pending, err := svc.PendingReports(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
	latest, ok := svc.LatestForDocument(ctx, "d1")
	require.True(t, ok)
	assert.Equal(t, "new-ok", latest.Id)
}

func TestScheduleParsing(t *testing.T) {
	_, err := New("every minute please", nil, nil)
	assert.Error(t, err)

	s, err := New("*/5 * * * *", nil, nil)
	require.NoError(t, err)
	base := time.Date(2026, 1, 1, 10, 2, 30, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 1, 1, 10, 5, 0, 0, time.UTC), s.Next(base))
}

func TestRunStopsOnCancel(t *testing.T) {
	s, err := New("* * * * *", seed(t), &mockReporter{})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
