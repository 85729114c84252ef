package changelog

import (
	"context"
	"errors"
	"time"

	"github.com/akolanti/GoIngest/internal/domain/commonModels"
	"github.com/akolanti/GoIngest/internal/domain/jobModel"
	"github.com/akolanti/GoIngest/internal/metrics"
	"github.com/akolanti/GoIngest/internal/worker"
	"github.com/akolanti/GoIngest/pkg/logger_i"
)

const (
	pollErrorBackoff = time.Second
	commitTimeout    = 10 * time.Second
)

// Handler performs the work an event asks for. Ingest returns an error only
// when it is fatal and the consumer must stop.
type Handler interface {
	Ingest(ctx context.Context, doc commonModels.Document) (jobModel.Job, error)
	Delete(ctx context.Context, doc commonModels.Document) error
}

type Options struct {
	Workers    int
	QueueSize  int
	RunTimeout time.Duration
}

type Consumer struct {
	source  Source
	handler Handler
	opts    Options
	logger  *logger_i.Logger
}

func NewConsumer(source Source, handler Handler, opts Options) *Consumer {
	if _, isKafka := source.(*KafkaSource); isKafka {
		opts.Workers = 1
	}
	return &Consumer{
		source:  source,
		handler: handler,
		opts:    opts,
		logger:  logger_i.NewLogger("ChangeLog Consumer"),
	}
}

// Run polls until ctx is cancelled or a fatal error occurs. Runs already
// started finish on a context detached from ctx, then the source is closed.
func (c *Consumer) Run(ctx context.Context) error {
	runCtx := context.WithoutCancel(ctx)
	var pool *worker.Pool
	if c.opts.Workers > 1 {
		pool = worker.NewPool(runCtx, c.opts.Workers, c.opts.QueueSize)
	}
	defer func() {
		if pool != nil {
			pool.Stop()
		}
		if err := c.source.Close(); err != nil {
			c.logger.Error("Error closing change log source", "err", err)
		}
	}()

	var fatal <-chan error
	if pool != nil {
		fatal = pool.Fatal()
	}
	c.logger.Info("Consumer started", "workers", max(c.opts.Workers, 1))
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Shutdown requested, stopping consumer")
			return nil
		case err := <-fatal:
			return err
		default:
		}

		msg, err := c.source.Poll(ctx)
		if errors.Is(err, ErrNoMessage) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.logger.Error("Consumer error", "err", err)
			select {
			case <-ctx.Done():
			case <-time.After(pollErrorBackoff):
			}
			continue
		}

		if err = c.dispatch(ctx, runCtx, pool, msg); err != nil {
			return err
		}
	}
}

func (c *Consumer) dispatch(ctx, runCtx context.Context, pool *worker.Pool, msg Message) error {
	log := c.logger.With("messageId", msg.ID)
	ev, err := Decode(msg.Value)
	if errors.Is(err, ErrTombstone) {
		metrics.CountChangeEvent("tombstone", "skipped")
		c.commit(runCtx, msg, log)
		return nil
	}
	if err != nil {
		log.Warn("Failed to process message", "err", err)
		metrics.CountChangeEvent("unknown", "malformed")
		c.commit(runCtx, msg, log)
		return nil
	}

	action, doc, err := Route(ev)
	if err != nil {
		log.Warn("Skipping change event", "op", ev.Op, "err", err)
		metrics.CountChangeEvent(string(ev.Op), "malformed")
		c.commit(runCtx, msg, log)
		return nil
	}
	if action == ActionSkip {
		log.Debug("Change event needs no work", "op", ev.Op, "documentId", doc.Id, "status", doc.Status)
		metrics.CountChangeEvent(string(ev.Op), "skipped")
		c.commit(runCtx, msg, log)
		return nil
	}

	task := func(taskCtx context.Context) error {
		if err := c.process(taskCtx, action, doc, log); err != nil {
			metrics.CountChangeEvent(string(ev.Op), "fatal")
			return err
		}
		metrics.CountChangeEvent(string(ev.Op), action.String())
		c.commit(taskCtx, msg, log)
		return nil
	}
	if pool == nil {
		return task(runCtx)
	}
	if err = pool.Submit(ctx, worker.Task{Key: doc.Id, Run: task}); err != nil {
		// not committed, redelivered on the next start
		log.Warn("Change event not queued", "err", err)
	}
	return nil
}

func (c *Consumer) process(ctx context.Context, action Action, doc commonModels.Document, log *logger_i.Logger) error {
	if c.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.RunTimeout)
		defer cancel()
	}
	switch action {
	case ActionIngest:
		job, err := c.handler.Ingest(ctx, doc)
		if err != nil {
			log.Error("Fatal ingestion error, stopping without commit", "documentId", doc.Id, "err", err)
			return err
		}
		log.Info("Ingestion run finished", "documentId", doc.Id, "jobId", job.Id, "status", job.Status, "chunks", job.ChunkCount)
	case ActionDelete:
		if err := c.handler.Delete(ctx, doc); err != nil {
			log.Error("Failed to delete document points", "documentId", doc.Id, "knowledgeId", doc.KnowledgeId, "err", err)
			return nil
		}
		log.Info("Deleted document points", "documentId", doc.Id)
	}
	return nil
}

// commit failures are logged only, the message is redelivered and the run is idempotent.
func (c *Consumer) commit(ctx context.Context, msg Message, log *logger_i.Logger) {
	ctx, cancel := context.WithTimeout(ctx, commitTimeout)
	defer cancel()
	if err := c.source.Commit(ctx, msg); err != nil {
		log.Error("Failed to commit change event", "err", err)
	}
}
