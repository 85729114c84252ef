package customHttpClient

import (
	"net/http"
	"time"

	"github.com/akolanti/GoIngest/internal/config"
)

// customTransport is shared so the status API and embedding providers reuse connections.
var customTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        config.MaxIdleConns,
	MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
	IdleConnTimeout:     config.IdleConnTimeout,
}

// New returns a client on the pooled transport. A zero timeout leaves deadlines to the caller's context.
func New(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: customTransport,
		Timeout:   timeout,
	}
}
