package googleEmbedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/akolanti/GoIngest/internal/config"
	"github.com/akolanti/GoIngest/pkg/logger_i"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const retryAfter = 5 * time.Second

type Client struct {
	genAi     *genai.Client
	model     string
	dimension int32
	logger    *logger_i.Logger
}

// Options lets tests point the client at a fake endpoint.
type Options struct {
	APIKey     string
	Model      string
	Dimension  int
	BaseURL    string
	HTTPClient *http.Client
}

func New(ctx context.Context, opts Options) (*Client, error) {
	cfg := &genai.ClientConfig{APIKey: opts.APIKey, Backend: genai.BackendGeminiAPI, HTTPClient: opts.HTTPClient}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	c, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create google embedding client: %w", err)
	}
	logger := logger_i.NewLogger("google_embedding")
	logger.Info("Google Embedding client created", "model", opts.Model)
	return &Client{
		genAi:     c,
		model:     opts.Model,
		dimension: int32(opts.Dimension),
		logger:    logger,
	}, nil
}

func (c *Client) Dimension() int {
	return int(c.dimension)
}

func (c *Client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	log := c.logger.With("traceId", ctx.Value(config.TraceIDKey))
	result, err := c.doCall(ctx, genai.Text(query), config.EmbeddingTaskTypeQuery)
	if err != nil {
		log.Error("Error getting query embedding from Google", "error", err)
		return nil, err
	}
	if len(result.Embeddings) == 0 || result.Embeddings[0] == nil {
		return nil, errors.New("google returned no embedding")
	}
	return result.Embeddings[0].Values, nil
}

func (c *Client) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	log := c.logger.With("traceId", ctx.Value(config.TraceIDKey), "chunks", len(chunks))

	res, err := c.doCall(ctx, getContent(chunks), config.EmbeddingTaskTypeDocument)
	if err != nil && doRetry(err, log) {
		log.Debug("Retrying in 5 seconds")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryAfter):
		}
		res, err = c.doCall(ctx, getContent(chunks), config.EmbeddingTaskTypeDocument)
	}
	if err != nil {
		log.Error("Error getting Embeddings from Google", "error", err)
		return nil, err
	}

	embeddingResults := make([][]float32, 0, len(res.Embeddings))
	for i, r := range res.Embeddings {
		if r == nil {
			return nil, fmt.Errorf("google returned no embedding for chunk %d", i)
		}
		embeddingResults = append(embeddingResults, r.Values)
	}
	return embeddingResults, nil
}

func (c *Client) doCall(ctx context.Context, content []*genai.Content, taskType string) (*genai.EmbedContentResponse, error) {
	return c.genAi.Models.EmbedContent(ctx, c.model, content, &genai.EmbedContentConfig{OutputDimensionality: &c.dimension, TaskType: taskType})
}

func getContent(chunks []string) []*genai.Content {
	contentsToSend := make([]*genai.Content, 0, len(chunks))
	for _, chunk := range chunks {
		contentsToSend = append(contentsToSend, &genai.Content{
			Parts: []*genai.Part{{Text: chunk}},
		})
	}
	return contentsToSend
}

// doRetry reports whether the call hit the rate limit and is worth one more try.
func doRetry(err error, log *logger_i.Logger) bool {
	if s, ok := status.FromError(err); ok && s.Code() == codes.ResourceExhausted {
		log.Warn("Rate limit hit", "error", err)
		return true
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == 429 {
		log.Warn("Rate limit hit", "error", err)
		return true
	}
	return false
}
