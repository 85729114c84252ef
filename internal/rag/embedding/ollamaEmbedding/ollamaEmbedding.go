package ollamaEmbedding

import (
	"context"
	"fmt"
	"net/http"

	"github.com/akolanti/GoIngest/internal/config"
	"github.com/akolanti/GoIngest/pkg/logger_i"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

type Client struct {
	model     embeddings.Embedder
	modelName string
	dimension int
	logger    *logger_i.Logger
}

type Options struct {
	Host       string
	Model      string
	Dimension  int
	BatchSize  int
	HTTPClient *http.Client
}

func New(opts Options) (*Client, error) {
	llmOpts := []ollama.Option{
		ollama.WithModel(opts.Model),
		ollama.WithServerURL(opts.Host),
	}
	if opts.HTTPClient != nil {
		llmOpts = append(llmOpts, ollama.WithHTTPClient(opts.HTTPClient))
	}
	llm, err := ollama.New(llmOpts...)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	embedOpts := []embeddings.Option{}
	if opts.BatchSize > 0 {
		embedOpts = append(embedOpts, embeddings.WithBatchSize(opts.BatchSize))
	}
	model, err := embeddings.NewEmbedder(llm, embedOpts...)
	if err != nil {
		return nil, fmt.Errorf("create ollama embedder: %w", err)
	}
	return &Client{
		model:     model,
		modelName: opts.Model,
		dimension: opts.Dimension,
		logger:    logger_i.NewLogger("ollama_embedding"),
	}, nil
}

func (c *Client) Dimension() int {
	return c.dimension
}

func (c *Client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	vector, err := c.model.EmbedQuery(ctx, query)
	if err != nil {
		c.logger.With("traceId", ctx.Value(config.TraceIDKey)).Error("Error getting query embedding from ollama", "model", c.modelName, "error", err)
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return vector, nil
}

func (c *Client) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	vectors, err := c.model.EmbedDocuments(ctx, chunks)
	if err != nil {
		c.logger.With("traceId", ctx.Value(config.TraceIDKey)).Error("Error getting Embeddings from ollama", "model", c.modelName, "chunks", len(chunks), "error", err)
		return nil, fmt.Errorf("embed batch: %w", err)
	}
	return vectors, nil
}
