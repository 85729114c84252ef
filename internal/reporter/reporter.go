package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/akolanti/GoIngest/internal/config"
	"github.com/akolanti/GoIngest/internal/domain/commonModels"
	"github.com/akolanti/GoIngest/internal/metrics"
	"github.com/akolanti/GoIngest/pkg/logger_i"
)

// HTTPReporter patches the document record in the system of record API.
type HTTPReporter struct {
	baseURL string
	client  *http.Client
	logger  *logger_i.Logger
}

func New(baseURL string, client *http.Client) *HTTPReporter {
	return &HTTPReporter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger_i.NewLogger("Status Reporter"),
	}
}

// Report sends one PATCH /api/documents/{id}. Any non 2xx answer is an error, retries are left to reconciliation.
func (r *HTTPReporter) Report(ctx context.Context, update commonModels.StatusUpdate) error {
	if update.DocumentId == "" {
		return errors.New("status update without document id")
	}
	body, err := json.Marshal(update)
	if err != nil {
		return err
	}
	endpoint := r.baseURL + "/api/documents/" + url.PathEscape(update.DocumentId)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if traceId, ok := ctx.Value(config.TraceIDKey).(string); ok && traceId != "" {
		req.Header.Set("X-Trace-Id", traceId)
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	metrics.CaptureExecutionMetrics("statusApi", time.Since(start))
	if err != nil {
		return fmt.Errorf("patch document %s: %w", update.DocumentId, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("patch document %s: status %d: %s", update.DocumentId, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	r.logger.Debug("Document status reported", "documentId", update.DocumentId, "status", update.Status)
	return nil
}
