package middleware

import (
	"net/http"
	"strconv"

	"github.com/akolanti/GoIngest/internal/adapter/utils"
	"github.com/akolanti/GoIngest/internal/metrics"
	"github.com/akolanti/GoIngest/pkg/logger_i"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
}

// Chain applies trace injection and per-IP rate limiting, then records the request.
type Chain struct {
	limiter *IPRateLimiter
	logger  *logger_i.Logger
}

func NewChain(limiter *IPRateLimiter) *Chain {
	return &Chain{limiter: limiter, logger: logger_i.NewLogger("middleware")}
}

func (c *Chain) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		re := c.processRequest(requestResponseStruct{req: r, writer: rec})

		if !handleBadRequest(re) {
			metrics.HttpRequestsTotal.WithLabelValues(utils.RoutePattern(r), strconv.Itoa(rec.Status)).Inc()
			return
		}
		next(rec, re.req)

		// chi fills the pattern while routing, so read it after next
		metrics.HttpRequestsTotal.WithLabelValues(utils.RoutePattern(re.req), strconv.Itoa(rec.Status)).Inc()
	}
}

// Handler adapts Wrap for mounted handlers such as the MCP endpoint.
func (c *Chain) Handler(next http.Handler) http.Handler {
	return c.Wrap(next.ServeHTTP)
}

func (c *Chain) processRequest(re requestResponseStruct) requestResponseStruct {
	re.logger = c.logger
	re = injectTrace(re)
	if re.badRequest.isBadRequest {
		return re
	}
	re.logger.Debug("New request received", "method", re.req.Method, "path", re.req.URL.Path)
	return c.rateLimiter(re)
}
