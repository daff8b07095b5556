package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/statkit/dataset-broker/internal/protocol"
)

// maxBodyBytes caps how much of the upstream response is read for counting.
const maxBodyBytes = 16 << 20

// Fetcher performs the remote call an execution spec describes and reduces
// the response to a record count. Implementations never hand the payload
// back to the caller.
type Fetcher interface {
	// Fetch runs the call once and returns the record count.
	Fetch(ctx context.Context, call protocol.RemoteCall) (int, error)
}

// HTTP fetches datasets over plain HTTP. One attempt per call, no retries.
type HTTP struct {
	client  *http.Client
	limiter *rate.Limiter
}

// Options configures the HTTP fetcher.
type Options struct {
	// Timeout bounds a single remote call.
	Timeout time.Duration
	// RatePerMinute throttles upstream calls; zero disables throttling.
	RatePerMinute int
}

// NewHTTP creates a fetcher with the given options.
func NewHTTP(opts Options) *HTTP {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	var limiter *rate.Limiter
	if opts.RatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RatePerMinute)), opts.RatePerMinute)
	}
	return &HTTP{
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
	}
}

// Fetch performs the GET described by call, decodes the JSON document, and
// returns its shallow record count. The body is discarded as soon as the
// count is known.
func (h *HTTP) Fetch(ctx context.Context, call protocol.RemoteCall) (int, error) {
	if strings.TrimSpace(call.URL) == "" {
		return 0, errors.New("remote call url is empty")
	}

	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return 0, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	method := strings.ToUpper(strings.TrimSpace(call.Method))
	if method == "" {
		method = http.MethodGet
	}

	request, err := http.NewRequestWithContext(ctx, method, call.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	if len(call.Query) > 0 {
		query := url.Values{}
		for key, value := range call.Query {
			query.Set(key, value)
		}
		request.URL.RawQuery = query.Encode()
	}
	request.Header.Set("Accept", "application/json")
	for key, value := range call.Headers {
		request.Header.Set(key, value)
	}

	resp, err := h.client.Do(request)
	if err != nil {
		return 0, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, fmt.Errorf("read upstream response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("upstream status %d: %s", resp.StatusCode, snippet(data))
	}

	count, err := CountRecords(data)
	if err != nil {
		return 0, fmt.Errorf("summarize upstream response: %w", err)
	}
	return count, nil
}

func snippet(data []byte) string {
	trimmed := strings.TrimSpace(string(data))
	if len(trimmed) > 200 {
		return trimmed[:200]
	}
	return trimmed
}
