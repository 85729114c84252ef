package config

import (
	"log/slog"
	"time"
)

type ctxKey string

// TraceIDKey carries the trace id of a request or an ingestion run through context.
const TraceIDKey ctxKey = "traceId"

const (
	IS_PROD        = false
	LOG_LEVEL_PROD = slog.LevelInfo
	LOG_LEVEL_DEV  = slog.LevelDebug

	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5

	//embeddings
	//qwen3-embedding:0.6b on ollama produces 1024 dims, this must match every collection
	EmbeddingOutputDimensionality = 1024
	EmbeddingProvider             = "ollama"
	OllamaEmbeddingModel          = "qwen3-embedding:0.6b"
	OllamaHost                    = "http://localhost:11434"
	GoogleEmbeddingModel          = "gemini-embedding-001"
	OpenAIEmbeddingModel          = "text-embedding-3-small"
	EmbeddingBatchSize            = 32
	EmbeddingTimeout              = 60 * time.Second
	VectorDistance                = "cosine"
	UpsertBatchSize               = 100
	DefaultSearchTopK             = 8
	MaxSearchTopK                 = 100
	EmbeddingTaskTypeDocument     = "RETRIEVAL_DOCUMENT"
	EmbeddingTaskTypeQuery        = "RETRIEVAL_QUERY"
	SplitterEncoding              = "cl100k_base"
	SplitterChunkSize             = 1000 //tokens
	SplitterChunkOverlap          = 100  //tokens
	ConvertTimeout                = 2 * time.Minute
	PdfPageExtractTimeout         = 10 * time.Second
	PipelineRunTimeout            = 15 * time.Minute
	UpsertTimeout                 = 60 * time.Second

	//object storage
	AcquireMaxAttempts = 5
	AcquireRetryDelay  = 2 * time.Second
	AcquireTimeout     = 60 * time.Second
	AWSRegion          = "ap-northeast-1"

	//change log
	ChangeLogSource        = "redis"
	ChangeLogStream        = "rag.public.document" //same name as the debezium topic
	ChangeLogGroup         = "rag_public_document_worker"
	ChangeLogPollTimeout   = 1 * time.Second
	KafkaBrokers           = "localhost:9092"
	ConsumerWorkerCount    = 1
	ConsumerQueuePerWorker = 16

	//status callback into the system of record
	APIBaseURL    = "http://api:8000"
	StatusTimeout = 10 * time.Second

	//reconciliation sweep for status reports that failed on the hot path
	ReconcileSchedule = "* * * * *"
	ReconcileEnabled  = true

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 30 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 30 * time.Second

	//server listening port
	ServerListenAddr  = ":3000"
	WorkerMetricsAddr = ":9100"

	//vectorDB
	QdrantHost     = "localhost"
	QdrantGrpcPort = 6334
	QdrantUseTLS   = false //set for https
	QdrantPoolSize = 1     //2-5 is preferred for prod according to documentation

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	//redis has 16 DB we can use
	RedisRunStore  = 0
	RedisChangeLog = 1

	RedisRunStoreTTL = 7 * 24 * time.Hour
)
