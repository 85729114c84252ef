package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/akolanti/GoIngest/internal/metrics"
	"github.com/akolanti/GoIngest/pkg/logger_i"
	"github.com/cespare/xxhash/v2"
)

var ErrPoolStopped = errors.New("worker pool stopped")

// Task is one unit of work for a document key. A non-nil error from Run is
// fatal: the pool stops running queued tasks and surfaces the error.
type Task struct {
	Key string
	Run func(ctx context.Context) error
}

// Pool runs tasks on a fixed set of workers. Tasks with the same key always
// land on the same worker so they execute in submission order.
type Pool struct {
	queues    []chan Task
	runCtx    context.Context
	waitGroup sync.WaitGroup
	fatal     chan error
	fatalOnce sync.Once
	halted    atomic.Bool
	stopOnce  sync.Once
	stopped   chan struct{}
	logger    *logger_i.Logger
}

// NewPool starts workers goroutines. runCtx is handed to every task and should
// outlive the shutdown signal so in-flight runs can finish.
func NewPool(runCtx context.Context, workers, queueSize int) *Pool {
	workers = max(workers, 1)
	queueSize = max(queueSize, 1)
	p := &Pool{
		queues:  make([]chan Task, workers),
		runCtx:  runCtx,
		fatal:   make(chan error, 1),
		stopped: make(chan struct{}),
		logger:  logger_i.NewLogger("WorkerPool"),
	}
	p.logger.Info("Initializing worker pool", "workers", workers, "queueSize", queueSize)
	for i := range p.queues {
		p.queues[i] = make(chan Task, queueSize)
		p.createWorker(i)
	}
	return p
}

func (p *Pool) createWorker(id int) {
	p.waitGroup.Add(1)
	metrics.IncrementActiveWorkerCount()
	go p.worker(id, p.queues[id])
}

func (p *Pool) worker(id int, queue <-chan Task) {
	defer p.removeWorker(id)
	for task := range queue {
		metrics.DecrementJobsInQueue()
		p.executeTask(task)
	}
}

// Submit blocks until the task is queued on its key's worker.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	if p.halted.Load() {
		return ErrPoolStopped
	}
	select {
	case <-p.stopped:
		return ErrPoolStopped
	default:
	}
	queue := p.queues[p.route(task.Key)]
	select {
	case <-ctx.Done():
		return ctx.Err()
	case queue <- task:
		metrics.IncrementJobsInQueue()
		return nil
	}
}

// Fatal yields the first fatal task error.
func (p *Pool) Fatal() <-chan error {
	return p.fatal
}

// Stop lets in-flight tasks finish and drops the queued ones, which stay
// uncommitted. Submit must not be called concurrently with Stop.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.halted.Store(true)
		close(p.stopped)
		for _, q := range p.queues {
			close(q)
		}
	})
	p.waitGroup.Wait()
	p.logger.Info("Worker pool stopped")
}

func (p *Pool) route(key string) int {
	return int(xxhash.Sum64String(key) % uint64(len(p.queues)))
}
