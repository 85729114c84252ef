package worker

import (
	"fmt"
	"time"

	"github.com/akolanti/GoIngest/internal/metrics"
)

func (p *Pool) executeTask(task Task) {
	if p.halted.Load() {
		// after a fatal error or Stop queued tasks are dropped uncommitted and redelivered later
		p.logger.Warn("Pool halted, dropping task", "key", task.Key)
		return
	}
	start := time.Now()
	defer func() {
		metrics.CaptureExecutionMetrics("workerTask", time.Since(start))
	}()

	if err := p.runProtected(task); err != nil {
		p.halted.Store(true)
		p.fatalOnce.Do(func() {
			p.logger.Error("Fatal task error, halting pool", "key", task.Key, "err", err)
			p.fatal <- err
		})
	}
}

func (p *Pool) runProtected(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", task.Key, r)
		}
	}()
	return task.Run(p.runCtx)
}

func (p *Pool) removeWorker(id int) {
	p.waitGroup.Done()
	metrics.DecrementActiveWorkerCount()
	p.logger.Info("Removed worker", "worker", id)
}
