package asset

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/vera-store/internal/domain/product"
)

// HTTPResolverConfig controls remote verification of image URLs.
type HTTPResolverConfig struct {
	URLs    URLBuilder
	Timeout time.Duration
	// Client overrides the HTTP client. When nil an instrumented client is
	// created from TracerProvider.
	Client         *http.Client
	TracerProvider trace.TracerProvider
}

// HTTPResolver checks each image URL with a HEAD request. Failing URLs
// resolve to the product's fallback. Only definitive outcomes (2xx, or a 4xx
// other than 429) are remembered per reference; timeouts, transport errors and
// 5xx responses are checked again on the next request.
type HTTPResolver struct {
	urls    URLBuilder
	client  *http.Client
	timeout time.Duration

	mu     sync.RWMutex
	status map[string]bool // ref -> reachable
}

// NewHTTPResolver creates an HTTPResolver.
func NewHTTPResolver(cfg HTTPResolverConfig) *HTTPResolver {
	client := cfg.Client
	if client == nil {
		opts := []otelhttp.Option{}
		if cfg.TracerProvider != nil {
			opts = append(opts, otelhttp.WithTracerProvider(cfg.TracerProvider))
		}
		client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport, opts...)}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HTTPResolver{
		urls:    cfg.URLs,
		client:  client,
		timeout: timeout,
		status:  make(map[string]bool),
	}
}

// Resolve implements Resolver.
func (r *HTTPResolver) Resolve(ctx context.Context, p product.Product) string {
	u := r.urls.Build(p.ImageRef)
	if u == "" {
		return Fallback(p.ID)
	}

	r.mu.RLock()
	ok, seen := r.status[p.ImageRef]
	r.mu.RUnlock()

	if !seen {
		err := r.check(ctx, u)
		ok = err == nil
		if !ok {
			zctx.From(ctx).Debug("Image unavailable, using fallback",
				zap.Int("product_id", p.ID),
				zap.String("url", u),
				zap.Error(err),
			)
		}
		if ok || isDefinitive(err) {
			r.mu.Lock()
			r.status[p.ImageRef] = ok
			r.mu.Unlock()
		}
	}

	if !ok {
		return Fallback(p.ID)
	}
	return u
}

func (r *HTTPResolver) check(ctx context.Context, u string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u, http.NoBody)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "head")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

// StatusError reports a non-2xx response to an image check.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// isDefinitive reports whether err says the image does not exist, as opposed
// to a failure that may clear up on retry.
func isDefinitive(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.Code >= 400 && se.Code < 500 && se.Code != http.StatusTooManyRequests
}
