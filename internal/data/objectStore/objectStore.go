package objectStore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/GoIngest/internal/metrics"
	"github.com/akolanti/GoIngest/pkg/logger_i"
)

var ErrNotFound = errors.New("object not found")

const (
	SchemeS3   = "s3"
	SchemeFile = "file"
)

// Locator is a parsed storage address. Key holds the absolute path for file locators.
type Locator struct {
	Scheme string
	Bucket string
	Key    string
}

func (l Locator) String() string {
	if l.Scheme == SchemeFile {
		return "file://" + l.Key
	}
	return l.Scheme + "://" + l.Bucket + "/" + l.Key
}

// ParseLocator accepts s3://bucket/key, bucket/key and file:///path.
func ParseLocator(raw string) (Locator, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Locator{}, errors.New("empty storage locator")
	}
	if rest, ok := strings.CutPrefix(raw, "file://"); ok {
		if rest == "" {
			return Locator{}, fmt.Errorf("file locator %q has no path", raw)
		}
		return Locator{Scheme: SchemeFile, Key: rest}, nil
	}
	rest := raw
	if scheme, after, ok := strings.Cut(raw, "://"); ok {
		if scheme != SchemeS3 {
			return Locator{}, fmt.Errorf("unsupported storage scheme %q", scheme)
		}
		rest = after
	}
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return Locator{}, fmt.Errorf("storage locator %q must name a bucket and a key", raw)
	}
	return Locator{Scheme: SchemeS3, Bucket: bucket, Key: key}, nil
}

type Store interface {
	Exists(ctx context.Context, loc Locator) (bool, error)
	Get(ctx context.Context, loc Locator) ([]byte, error)
}

// Router dispatches to a backend by locator scheme.
type Router struct {
	backends map[string]Store
}

func NewRouter() *Router {
	return &Router{backends: make(map[string]Store)}
}

func (r *Router) Register(scheme string, store Store) *Router {
	r.backends[scheme] = store
	return r
}

func (r *Router) backend(loc Locator) (Store, error) {
	store, ok := r.backends[loc.Scheme]
	if !ok {
		return nil, fmt.Errorf("no object store configured for scheme %q", loc.Scheme)
	}
	return store, nil
}

func (r *Router) Exists(ctx context.Context, loc Locator) (bool, error) {
	store, err := r.backend(loc)
	if err != nil {
		return false, err
	}
	return store.Exists(ctx, loc)
}

func (r *Router) Get(ctx context.Context, loc Locator) ([]byte, error) {
	store, err := r.backend(loc)
	if err != nil {
		return nil, err
	}
	return store.Get(ctx, loc)
}

type WaitPolicy struct {
	MaxAttempts int
	RetryDelay  time.Duration
	Timeout     time.Duration // per existence check and for the download
}

// Acquire waits for loc to become visible and downloads it.
// It returns the number of existence checks made. Exhaustion yields ErrNotFound.
func Acquire(ctx context.Context, store Store, loc Locator, policy WaitPolicy) ([]byte, int, error) {
	attempts, err := WaitForObject(ctx, store, loc, policy)
	if err != nil {
		return nil, attempts, err
	}
	getCtx, cancel := withOptionalTimeout(ctx, policy.Timeout)
	defer cancel()
	start := time.Now()
	data, err := store.Get(getCtx, loc)
	metrics.CaptureExecutionMetrics("objectStore", time.Since(start))
	if err != nil {
		return nil, attempts, fmt.Errorf("download %s: %w", loc, err)
	}
	return data, attempts, nil
}

func WaitForObject(ctx context.Context, store Store, loc Locator, policy WaitPolicy) (int, error) {
	log := logger_i.NewLogger("objectStore").With("locator", loc.String())
	maxAttempts := max(policy.MaxAttempts, 1)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		metrics.CountAcquireAttempt()
		checkCtx, cancel := withOptionalTimeout(ctx, policy.Timeout)
		found, err := store.Exists(checkCtx, loc)
		cancel()
		if err != nil {
			return attempt, fmt.Errorf("existence check %s: %w", loc, err)
		}
		if found {
			log.Debug("object found", "attempt", attempt)
			return attempt, nil
		}
		if attempt == maxAttempts {
			break
		}
		log.Warn("object not visible yet, retrying", "attempt", attempt, "maxAttempts", maxAttempts, "delay", policy.RetryDelay)
		select {
		case <-ctx.Done():
			return attempt, ctx.Err()
		case <-time.After(policy.RetryDelay):
		}
	}
	log.Error("object not found after retries", "attempts", maxAttempts)
	return maxAttempts, fmt.Errorf("%s after %d attempts: %w", loc, maxAttempts, ErrNotFound)
}

func withOptionalTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
