package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the runtime configuration shared by the worker, the API and ragctl.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Qdrant    QdrantConfig    `mapstructure:"qdrant"`
	Redis     RedisConfig     `mapstructure:"redis"`
	ChangeLog ChangeLogConfig `mapstructure:"changelog"`
	Acquire   AcquireConfig   `mapstructure:"acquire"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Splitter  SplitterConfig  `mapstructure:"splitter"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Status    StatusConfig    `mapstructure:"status"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
}

type LogConfig struct {
	Prod bool   `mapstructure:"prod"`
	File string `mapstructure:"file"`
}

type ServerConfig struct {
	Addr        string        `mapstructure:"addr"`
	MetricsAddr string        `mapstructure:"metrics_addr"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	MCPEnabled  bool          `mapstructure:"mcp_enabled"`
	RatePerSec  float64       `mapstructure:"rate_per_sec"`
	RateBurst   int           `mapstructure:"rate_burst"`
}

type EmbeddingConfig struct {
	Provider     string        `mapstructure:"provider"` // ollama, google, openai
	Model        string        `mapstructure:"model"`
	Dimension    int           `mapstructure:"dimension"`
	BatchSize    int           `mapstructure:"batch_size"`
	Timeout      time.Duration `mapstructure:"timeout"`
	OllamaHost   string        `mapstructure:"ollama_host"`
	OpenAIAPIKey string        `mapstructure:"openai_api_key"`
	OpenAIURL    string        `mapstructure:"openai_base_url"`
	GoogleAPIKey string        `mapstructure:"google_api_key"`
}

type QdrantConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	UseTLS   bool   `mapstructure:"use_tls"`
	PoolSize uint   `mapstructure:"pool_size"`
	APIKey   string `mapstructure:"api_key"`
	// InMemory swaps qdrant for the process local index, for development and ragctl dry runs.
	InMemory bool `mapstructure:"in_memory"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	RunStoreDB  int           `mapstructure:"run_store_db"`
	ChangeLogDB int           `mapstructure:"changelog_db"`
	RunTTL      time.Duration `mapstructure:"run_ttl"`
}

type ChangeLogConfig struct {
	Source       string        `mapstructure:"source"` // redis or kafka
	Stream       string        `mapstructure:"stream"`
	Group        string        `mapstructure:"group"`
	Consumer     string        `mapstructure:"consumer"`
	PollTimeout  time.Duration `mapstructure:"poll_timeout"`
	KafkaBrokers []string      `mapstructure:"kafka_brokers"`
	Workers      int           `mapstructure:"workers"`
	QueueSize    int           `mapstructure:"queue_size"`
}

type AcquireConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type StorageConfig struct {
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"` // minio or localstack
	UsePathStyle bool   `mapstructure:"use_path_style"`
	FileRoot     string `mapstructure:"file_root"` // base dir for file:// locators, empty means absolute paths
}

type SplitterConfig struct {
	ChunkSize    int    `mapstructure:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap"`
	Encoding     string `mapstructure:"encoding"`
}

type PipelineConfig struct {
	RunTimeout     time.Duration `mapstructure:"run_timeout"`
	ConvertTimeout time.Duration `mapstructure:"convert_timeout"`
	UpsertTimeout  time.Duration `mapstructure:"upsert_timeout"`
	UpsertBatch    int           `mapstructure:"upsert_batch"`
}

type StatusConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ReconcileConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.prod", IS_PROD)
	v.SetDefault("log.file", "")

	v.SetDefault("server.addr", ServerListenAddr)
	v.SetDefault("server.metrics_addr", WorkerMetricsAddr)
	v.SetDefault("server.read_timeout", ReadTimeout)
	v.SetDefault("server.mcp_enabled", true)
	v.SetDefault("server.rate_per_sec", RATE_LIMIT_PER_SECOND)
	v.SetDefault("server.rate_burst", BURST_RATE_LIMIT_PER_SECOND)

	v.SetDefault("embedding.provider", EmbeddingProvider)
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.dimension", EmbeddingOutputDimensionality)
	v.SetDefault("embedding.batch_size", EmbeddingBatchSize)
	v.SetDefault("embedding.timeout", EmbeddingTimeout)
	v.SetDefault("embedding.ollama_host", OllamaHost)
	v.SetDefault("embedding.openai_api_key", "")
	v.SetDefault("embedding.openai_base_url", "")
	v.SetDefault("embedding.google_api_key", "")

	v.SetDefault("qdrant.host", QdrantHost)
	v.SetDefault("qdrant.port", QdrantGrpcPort)
	v.SetDefault("qdrant.use_tls", QdrantUseTLS)
	v.SetDefault("qdrant.pool_size", QdrantPoolSize)
	v.SetDefault("qdrant.api_key", "")
	v.SetDefault("qdrant.in_memory", false)

	v.SetDefault("redis.addr", RedisAddr)
	v.SetDefault("redis.run_store_db", RedisRunStore)
	v.SetDefault("redis.changelog_db", RedisChangeLog)
	v.SetDefault("redis.run_ttl", RedisRunStoreTTL)

	v.SetDefault("changelog.source", ChangeLogSource)
	v.SetDefault("changelog.stream", ChangeLogStream)
	v.SetDefault("changelog.group", ChangeLogGroup)
	v.SetDefault("changelog.consumer", "")
	v.SetDefault("changelog.poll_timeout", ChangeLogPollTimeout)
	v.SetDefault("changelog.kafka_brokers", []string{KafkaBrokers})
	v.SetDefault("changelog.workers", ConsumerWorkerCount)
	v.SetDefault("changelog.queue_size", ConsumerQueuePerWorker)

	v.SetDefault("acquire.max_attempts", AcquireMaxAttempts)
	v.SetDefault("acquire.retry_delay", AcquireRetryDelay)
	v.SetDefault("acquire.timeout", AcquireTimeout)

	v.SetDefault("storage.region", AWSRegion)
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.use_path_style", false)
	v.SetDefault("storage.file_root", "")

	v.SetDefault("splitter.chunk_size", SplitterChunkSize)
	v.SetDefault("splitter.chunk_overlap", SplitterChunkOverlap)
	v.SetDefault("splitter.encoding", SplitterEncoding)

	v.SetDefault("pipeline.run_timeout", PipelineRunTimeout)
	v.SetDefault("pipeline.convert_timeout", ConvertTimeout)
	v.SetDefault("pipeline.upsert_timeout", UpsertTimeout)
	v.SetDefault("pipeline.upsert_batch", UpsertBatchSize)

	v.SetDefault("status.base_url", APIBaseURL)
	v.SetDefault("status.timeout", StatusTimeout)

	v.SetDefault("reconcile.enabled", ReconcileEnabled)
	v.SetDefault("reconcile.schedule", ReconcileSchedule)
}

// legacyEnv maps the env names used by the docker-compose setup onto config keys.
var legacyEnv = map[string]string{
	"qdrant.host":              "QDRANT_HOST",
	"qdrant.port":              "QDRANT_PORT",
	"embedding.ollama_host":    "OLLAMA_HOST",
	"embedding.openai_api_key": "OPENAI_API_KEY",
	"embedding.google_api_key": "GEMINI_API_KEY",
	"changelog.kafka_brokers":  "KAFKA_BROKER_URL",
	"redis.addr":               "REDIS_ADDR",
	"storage.region":           "AWS_REGION",
	"storage.endpoint":         "AWS_ENDPOINT_URL",
	"status.base_url":          "API_BASE_URL",
}

// Load reads defaults, then the optional file at path, then RAG_* env vars.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("RAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, "RAG_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = defaultModel(cfg.Embedding.Provider)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the compiled-in configuration without reading file or env.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	cfg.Embedding.Model = defaultModel(cfg.Embedding.Provider)
	return &cfg
}

func defaultModel(provider string) string {
	switch provider {
	case "google":
		return GoogleEmbeddingModel
	case "openai":
		return OpenAIEmbeddingModel
	default:
		return OllamaEmbeddingModel
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Embedding.Dimension <= 0 {
		errs = append(errs, errors.New("embedding.dimension must be > 0"))
	}
	if c.Embedding.BatchSize <= 0 {
		errs = append(errs, errors.New("embedding.batch_size must be > 0"))
	}
	switch c.Embedding.Provider {
	case "ollama", "google", "openai":
	default:
		errs = append(errs, fmt.Errorf("embedding.provider %q is not supported", c.Embedding.Provider))
	}
	if c.Acquire.MaxAttempts <= 0 {
		errs = append(errs, errors.New("acquire.max_attempts must be > 0"))
	}
	if c.Acquire.RetryDelay < 0 {
		errs = append(errs, errors.New("acquire.retry_delay must be >= 0"))
	}
	if c.Splitter.ChunkSize <= 0 {
		errs = append(errs, errors.New("splitter.chunk_size must be > 0"))
	}
	if c.Splitter.ChunkOverlap < 0 || c.Splitter.ChunkOverlap >= c.Splitter.ChunkSize {
		errs = append(errs, errors.New("splitter.chunk_overlap must be >= 0 and < chunk_size"))
	}
	if c.Pipeline.UpsertBatch <= 0 {
		errs = append(errs, errors.New("pipeline.upsert_batch must be > 0"))
	}
	if c.ChangeLog.Workers <= 0 {
		errs = append(errs, errors.New("changelog.workers must be > 0"))
	}
	if c.ChangeLog.PollTimeout <= 0 {
		errs = append(errs, errors.New("changelog.poll_timeout must be > 0"))
	}
	switch c.ChangeLog.Source {
	case "redis", "kafka":
	default:
		errs = append(errs, fmt.Errorf("changelog.source %q is not supported", c.ChangeLog.Source))
	}
	return errors.Join(errs...)
}
