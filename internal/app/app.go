// Package app wires the worker, the API and ragctl from one Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/akolanti/GoIngest/internal/changelog"
	"github.com/akolanti/GoIngest/internal/config"
	"github.com/akolanti/GoIngest/internal/customHttpClient"
	"github.com/akolanti/GoIngest/internal/data/objectStore"
	"github.com/akolanti/GoIngest/internal/data/redisStore"
	"github.com/akolanti/GoIngest/internal/data/store"
	"github.com/akolanti/GoIngest/internal/domain/jobModel"
	"github.com/akolanti/GoIngest/internal/job"
	"github.com/akolanti/GoIngest/internal/rag"
	"github.com/akolanti/GoIngest/internal/rag/embedding"
	"github.com/akolanti/GoIngest/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/GoIngest/internal/rag/embedding/ollamaEmbedding"
	"github.com/akolanti/GoIngest/internal/rag/embedding/openaiEmbedding"
	"github.com/akolanti/GoIngest/internal/rag/ingest"
	"github.com/akolanti/GoIngest/internal/rag/vectorDB"
	"github.com/akolanti/GoIngest/internal/rag/vectorDB/memoryDB"
	"github.com/akolanti/GoIngest/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/GoIngest/internal/reconcile"
	"github.com/akolanti/GoIngest/internal/reporter"
	"github.com/akolanti/GoIngest/pkg/logger_i"
)

type App struct {
	Config   *config.Config
	Embedder embedding.Embedder
	Index    vectorDB.VectorIndex
	Runs     jobModel.JobStore
	Reporter *reporter.HTTPReporter
	Pipeline *ingest.Pipeline
	Jobs     *job.Service
	Search   rag.Service

	runStore *redisStore.Store
	closers  []func() error
	logger   *logger_i.Logger
}

// New connects every dependency. A Redis outage degrades the run store to
// memory, every other failure is returned.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, logger: logger_i.NewLogger("main")}

	embedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Embedder = embedder

	index, err := newIndex(cfg)
	if err != nil {
		return nil, err
	}
	a.Index = index
	a.closers = append(a.closers, index.Close)

	runStore, err := redisStore.New(ctx, cfg.Redis.Addr, cfg.Redis.RunStoreDB)
	if err != nil {
		a.logger.Error("Redis run store is offline, ingestion runs are kept in memory", "error", err)
		a.Runs = store.InitInMemoryJobStore()
	} else {
		a.runStore = runStore
		a.Runs = store.NewRedisJobStore(runStore, cfg.Redis.RunTTL)
		a.closers = append(a.closers, runStore.Close)
	}

	objects, err := newObjectStore(ctx, cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	converter := ingest.NewConverter(cfg.Pipeline.ConvertTimeout, config.PdfPageExtractTimeout)
	splitter, err := ingest.NewSplitter(cfg.Splitter.ChunkSize, cfg.Splitter.ChunkOverlap, cfg.Splitter.Encoding)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("create splitter: %w", err)
	}

	a.Reporter = reporter.New(cfg.Status.BaseURL, customHttpClient.New(cfg.Status.Timeout))
	a.Pipeline = ingest.NewPipeline(objects, converter, splitter, embedder, index, a.Reporter, ingest.Options{
		Acquire: objectStore.WaitPolicy{
			MaxAttempts: cfg.Acquire.MaxAttempts,
			RetryDelay:  cfg.Acquire.RetryDelay,
			Timeout:     cfg.Acquire.Timeout,
		},
		EmbedBatchSize: cfg.Embedding.BatchSize,
		UpsertTimeout:  cfg.Pipeline.UpsertTimeout,
	})
	a.Jobs = job.InitJobService(job.ServiceConfig{Pipeline: a.Pipeline, JobStore: a.Runs})
	a.Search = rag.NewService(index, embedder, cfg.Embedding.Timeout)
	return a, nil
}

func newEmbedder(ctx context.Context, cfg *config.Config) (embedding.Embedder, error) {
	client := customHttpClient.New(cfg.Embedding.Timeout)
	e := cfg.Embedding
	switch e.Provider {
	case "google":
		return googleEmbedding.New(ctx, googleEmbedding.Options{
			APIKey: e.GoogleAPIKey, Model: e.Model, Dimension: e.Dimension, HTTPClient: client,
		})
	case "openai":
		return openaiEmbedding.New(openaiEmbedding.Options{
			APIKey: e.OpenAIAPIKey, Model: e.Model, Dimension: e.Dimension, BaseURL: e.OpenAIURL, HTTPClient: client,
		})
	case "ollama":
		return ollamaEmbedding.New(ollamaEmbedding.Options{
			Host: e.OllamaHost, Model: e.Model, Dimension: e.Dimension, BatchSize: e.BatchSize, HTTPClient: client,
		})
	}
	return nil, fmt.Errorf("embedding provider %q is not supported", e.Provider)
}

func newIndex(cfg *config.Config) (vectorDB.VectorIndex, error) {
	if cfg.Qdrant.InMemory {
		return memoryDB.New(), nil
	}
	return qdrantDB.New(qdrantDB.Options{
		Host:        cfg.Qdrant.Host,
		Port:        cfg.Qdrant.Port,
		UseTLS:      cfg.Qdrant.UseTLS,
		PoolSize:    cfg.Qdrant.PoolSize,
		APIKey:      cfg.Qdrant.APIKey,
		UpsertBatch: cfg.Pipeline.UpsertBatch,
	})
}

// newObjectStore always serves file:// locators and adds S3 when AWS config loads.
func newObjectStore(ctx context.Context, cfg *config.Config) (*objectStore.Router, error) {
	router := objectStore.NewRouter().Register(objectStore.SchemeFile, objectStore.NewFileStore(cfg.Storage.FileRoot))
	s3Store, err := objectStore.NewS3Store(ctx, objectStore.S3Options{
		Region:       cfg.Storage.Region,
		Endpoint:     cfg.Storage.Endpoint,
		UsePathStyle: cfg.Storage.UsePathStyle,
	})
	if err != nil {
		return nil, err
	}
	return router.Register(objectStore.SchemeS3, s3Store), nil
}

// NewSource opens the configured change log reader.
func (a *App) NewSource(ctx context.Context) (changelog.Source, error) {
	c := a.Config.ChangeLog
	if c.Source == "kafka" {
		return changelog.NewKafkaSource(changelog.KafkaOptions{
			Brokers:     c.KafkaBrokers,
			Topic:       c.Stream,
			GroupID:     c.Group,
			PollTimeout: c.PollTimeout,
		})
	}
	client, err := redisStore.New(ctx, a.Config.Redis.Addr, a.Config.Redis.ChangeLogDB)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)
	return changelog.NewRedisSource(ctx, client.Client(), changelog.RedisOptions{
		Stream:   c.Stream,
		Group:    c.Group,
		Consumer: consumerName(c.Consumer),
		Block:    c.PollTimeout,
	})
}

// NewPublisher writes synthetic change events to the configured change log.
func (a *App) NewPublisher(ctx context.Context) (changelog.Publisher, error) {
	c := a.Config.ChangeLog
	if c.Source == "kafka" {
		return changelog.NewKafkaPublisher(c.KafkaBrokers, c.Stream), nil
	}
	client, err := redisStore.New(ctx, a.Config.Redis.Addr, a.Config.Redis.ChangeLogDB)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)
	return changelog.NewRedisPublisher(client.Client(), c.Stream), nil
}

func (a *App) NewConsumer(ctx context.Context) (*changelog.Consumer, error) {
	source, err := a.NewSource(ctx)
	if err != nil {
		return nil, fmt.Errorf("open change log: %w", err)
	}
	return changelog.NewConsumer(source, a.Jobs, changelog.Options{
		Workers:    a.Config.ChangeLog.Workers,
		QueueSize:  a.Config.ChangeLog.QueueSize,
		RunTimeout: a.Config.Pipeline.RunTimeout,
	}), nil
}

// NewSweeper locks through the run store when it is Redis backed.
func (a *App) NewSweeper() (*reconcile.Sweeper, error) {
	sweeper, err := reconcile.New(a.Config.Reconcile.Schedule, a.Jobs, a.Reporter)
	if err != nil {
		return nil, err
	}
	if a.runStore != nil {
		sweeper.WithLock(a.runStore.Client())
	}
	return sweeper, nil
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func consumerName(configured string) string {
	if configured != "" {
		return configured
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-1"
}
