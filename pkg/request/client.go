package request

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"osmflex/pkg/cache"
	"osmflex/pkg/tracker"
	"osmflex/pkg/version"
)

var defaultUserAgent = fmt.Sprintf("osmflex/%s", version.Version)

// ErrStatus matches every StatusError.
var ErrStatus = errors.New("request: unexpected status")

// StatusError reports an HTTP error response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string { return fmt.Sprintf("request: unexpected status %d", e.Code) }

func (e *StatusError) Is(target error) bool { return target == ErrStatus }

// clientError reports a 4xx response other than 429, which says nothing
// about the provider's health.
func clientError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code >= 400 && se.Code < 500 && se.Code != http.StatusTooManyRequests
}

// Client handles HTTP requests with queuing, caching, and tracking.
type Client struct {
	httpClient *http.Client
	cache      cache.Cacher
	tracker    *tracker.Tracker
	backoff    *ProviderBackoff
	reqLog     *slog.Logger

	maxAttempts int
	baseDelay   time.Duration
	gap         time.Duration

	// Queues per provider (domain)
	queues map[string]chan job
	mu     sync.Mutex // Protects queues map
}

// job represents a queued request. A non-empty dst streams the body to that
// file instead of returning it.
type job struct {
	req      *http.Request
	headers  map[string]string
	cacheKey string
	dst      string
	respChan chan jobResult
}

type jobResult struct {
	body []byte
	n    int64
	err  error
}

// New creates a new Client. c may be nil to disable response caching.
func New(c cache.Cacher, t *tracker.Tracker) *Client {
	return &Client{
		// No overall timeout: planet downloads run for hours. Callers bound
		// requests through their context.
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: 60 * time.Second,
			},
		},
		cache:       c,
		tracker:     t,
		backoff:     NewProviderBackoff(time.Second, time.Minute),
		maxAttempts: 3,
		baseDelay:   500 * time.Millisecond,
		gap:         100 * time.Millisecond,
		queues:      make(map[string]chan job),
	}
}

// SetRetryPolicy overrides the attempt count and the base backoff delay.
func (c *Client) SetRetryPolicy(maxAttempts int, baseDelay time.Duration) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	c.maxAttempts = maxAttempts
	c.baseDelay = baseDelay
}

// SetRequestLogger routes one line per HTTP exchange to l.
func (c *Client) SetRequestLogger(l *slog.Logger) {
	c.reqLog = l
}

// Get performs a GET request with queuing and caching if key is provided.
func (c *Client) Get(ctx context.Context, u, cacheKey string) ([]byte, error) {
	return c.GetWithHeaders(ctx, u, nil, cacheKey)
}

// GetWithHeaders performs a GET request with custom headers and optional caching.
func (c *Client) GetWithHeaders(ctx context.Context, u string, headers map[string]string, cacheKey string) ([]byte, error) {
	provider, err := providerOf(u)
	if err != nil {
		return nil, err
	}

	if cacheKey != "" && c.cache != nil {
		if val, hit := c.cache.GetCache(ctx, cacheKey); hit {
			c.tracker.TrackCacheHit(provider)
			slog.Debug("Cache Hit", "provider", provider, "key", cacheKey)
			return val, nil
		}
		c.tracker.TrackCacheMiss(provider)
		slog.Debug("Cache Miss", "provider", provider, "key", cacheKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	res, err := c.submit(ctx, provider, job{req: req, headers: headers, cacheKey: cacheKey})
	return res.body, err
}

// Download streams the response body of u into dst. The body is written to a
// temporary file next to dst which is renamed into place once complete, so
// dst never holds a partial transfer. It returns the number of bytes written.
func (c *Client) Download(ctx context.Context, u, dst string) (int64, error) {
	provider, err := providerOf(u)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	res, err := c.submit(ctx, provider, job{req: req, dst: dst})
	return res.n, err
}

func providerOf(u string) (string, error) {
	parsedURL, err := url.Parse(u)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	return normalizeProvider(parsedURL.Host), nil
}

func (c *Client) submit(ctx context.Context, provider string, j job) (jobResult, error) {
	j.respChan = make(chan jobResult, 1)
	c.dispatch(provider, j)

	select {
	case <-ctx.Done():
		return jobResult{}, ctx.Err()
	case res := <-j.respChan:
		return res, res.err
	}
}

func normalizeProvider(host string) string {
	host = strings.ToLower(host)
	switch {
	case host == "geofabrik.de" || strings.HasSuffix(host, ".geofabrik.de"):
		return "geofabrik"
	case host == "naciscdn.org" || strings.HasSuffix(host, ".naciscdn.org"),
		strings.HasSuffix(host, "naturalearthdata.com"):
		return "naturalearth"
	case host == "planet.openstreetmap.org" || host == "planet.osm.org":
		return "osm-planet"
	}
	return host
}

// dispatch sends the job to the provider's queue, creating the queue/worker if needed.
func (c *Client) dispatch(provider string, j job) {
	c.mu.Lock()
	q, ok := c.queues[provider]
	if !ok {
		q = make(chan job, 100)
		c.queues[provider] = q
		go c.worker(provider, q)
	}
	c.mu.Unlock()

	// Blocks while the queue is full, throttling the caller
	select {
	case q <- j:
	case <-j.req.Context().Done():
		j.respChan <- jobResult{err: j.req.Context().Err()}
	}
}

// worker processes requests for a specific provider sequentially.
func (c *Client) worker(provider string, q <-chan job) {
	for j := range q {
		ctx := j.req.Context()
		if ctx.Err() != nil {
			slog.Warn("Job dropped from queue (context expired)", "provider", provider, "error", ctx.Err())
			j.respChan <- jobResult{err: ctx.Err()}
			continue
		}

		uaMatch := false
		for k, v := range j.headers {
			j.req.Header.Set(k, v)
			if http.CanonicalHeaderKey(k) == "User-Agent" {
				uaMatch = true
			}
		}
		if !uaMatch {
			j.req.Header.Set("User-Agent", defaultUserAgent)
		}

		if err := c.backoff.Wait(ctx, provider); err != nil {
			j.respChan <- jobResult{err: err}
			continue
		}

		var res jobResult
		if j.dst != "" {
			res.n, res.err = c.download(j.req, j.dst)
		} else {
			res.body, res.err = c.fetch(j.req)
		}

		if res.err == nil {
			c.tracker.TrackSuccess(provider)
			c.backoff.RecordSuccess(provider)
			if res.n > 0 {
				c.tracker.TrackBytes(provider, res.n)
			} else {
				c.tracker.TrackBytes(provider, int64(len(res.body)))
			}
			if j.cacheKey != "" && c.cache != nil {
				if err := c.cache.SetCache(context.Background(), j.cacheKey, res.body); err != nil {
					slog.Error("Failed to cache response", "url", j.req.URL, "error", err)
				}
			}
		} else {
			c.tracker.TrackFailure(provider)
			if ctx.Err() == nil && !clientError(res.err) {
				c.backoff.RecordFailure(provider)
			}
		}

		j.respChan <- res

		// Safety gap to stay clear of rate limits
		time.Sleep(c.gap)
	}
}

func (c *Client) fetch(req *http.Request) ([]byte, error) {
	var buf bytes.Buffer
	err := c.executeWithBackoff(req, func(r io.Reader) error {
		buf.Reset()
		_, err := io.Copy(&buf, r)
		return err
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Client) download(req *http.Request, dst string) (int64, error) {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create download dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(dst)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	renamed := false
	defer func() {
		if !renamed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	var n int64
	err = c.executeWithBackoff(req, func(r io.Reader) error {
		// Each attempt restarts the transfer from scratch
		if _, err := tmp.Seek(0, io.SeekStart); err != nil {
			return err
		}
		if err := tmp.Truncate(0); err != nil {
			return err
		}
		n, err = io.Copy(tmp, r)
		return err
	})
	if err != nil {
		return 0, err
	}

	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return 0, fmt.Errorf("failed to move download into place: %w", err)
	}
	renamed = true
	slog.Debug("Download complete", "url", req.URL, "path", dst, "bytes", n)
	return n, nil
}

// executeWithBackoff attempts the request with exponential backoff on
// retryable errors: network failures, 429, 5xx and interrupted bodies.
func (c *Client) executeWithBackoff(req *http.Request, consume func(io.Reader) error) error {
	var lastErr error

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			sleepDur := time.Duration(math.Pow(2, float64(attempt-1))) * c.baseDelay
			select {
			case <-time.After(sleepDur):
			case <-req.Context().Done():
				return req.Context().Err()
			}
		}
		if req.Context().Err() != nil {
			return req.Context().Err()
		}

		slog.Debug("Network Request", "host", req.URL.Host, "path", req.URL.Path, "attempt", attempt+1)
		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if c.reqLog != nil {
			status := 0
			if resp != nil {
				status = resp.StatusCode
			}
			c.reqLog.Info("Request Processed", "method", req.Method, "url", req.URL.String(), "status", status, "duration", time.Since(start))
		}
		if err != nil {
			if req.Context().Err() != nil {
				return req.Context().Err()
			}
			slog.Warn("Request failed, retrying", "url", req.URL, "attempt", attempt+1, "error", err)
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode < 600) {
			resp.Body.Close()
			slog.Warn("API Backoff", "status", resp.StatusCode, "url", req.URL, "attempt", attempt+1)
			lastErr = &StatusError{Code: resp.StatusCode}
			continue
		}

		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return &StatusError{Code: resp.StatusCode}
		}

		err = consume(resp.Body)
		resp.Body.Close()
		if err == nil {
			return nil
		}
		if req.Context().Err() != nil {
			return req.Context().Err()
		}
		slog.Warn("Transfer interrupted, retrying", "url", req.URL, "attempt", attempt+1, "error", err)
		lastErr = fmt.Errorf("read error: %w", err)
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
