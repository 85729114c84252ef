package openaiEmbedding

import (
	"context"
	"fmt"
	"net/http"

	"github.com/akolanti/GoIngest/internal/config"
	"github.com/akolanti/GoIngest/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type Client struct {
	api       openai.Client
	model     string
	dimension int
	logger    *logger_i.Logger
}

type Options struct {
	APIKey     string
	Model      string
	Dimension  int
	BaseURL    string // any OpenAI compatible endpoint
	HTTPClient *http.Client
}

func New(opts Options) (*Client, error) {
	if opts.APIKey == "" && opts.BaseURL == "" {
		return nil, fmt.Errorf("OpenAI API key required")
	}
	requestOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		requestOpts = append(requestOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	return &Client{
		api:       openai.NewClient(requestOpts...),
		model:     opts.Model,
		dimension: opts.Dimension,
		logger:    logger_i.NewLogger("openai_embedding"),
	}, nil
}

func (c *Client) Dimension() int {
	return c.dimension
}

func (c *Client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	vectors, err := c.embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *Client) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	return c.embed(ctx, chunks)
}

func (c *Client) embed(ctx context.Context, texts []string) ([][]float32, error) {
	log := c.logger.With("traceId", ctx.Value(config.TraceIDKey), "inputs", len(texts))
	resp, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:          openai.EmbeddingModel(c.model),
		Dimensions:     openai.Int(int64(c.dimension)),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		log.Error("Error getting Embeddings from OpenAI", "error", err)
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai returned %d embeddings for %d inputs", len(resp.Data), len(texts))
	}

	// the API may return items out of order, Index is authoritative
	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || int(item.Index) >= len(texts) {
			return nil, fmt.Errorf("openai returned embedding index %d out of range", item.Index)
		}
		vector := make([]float32, len(item.Embedding))
		for i, f := range item.Embedding {
			vector[i] = float32(f)
		}
		vectors[item.Index] = vector
	}
	return vectors, nil
}
