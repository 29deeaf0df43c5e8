package emoticons

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// DefaultMaxBodyBytes caps the size of a fetched image.
const DefaultMaxBodyBytes = 5 << 20

var errBodyTooLarge = errors.New("upstream body too large")

// Fetcher retrieves the image bytes for a key from the upstream generator.
type Fetcher interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

var defaultTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   100,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	ForceAttemptHTTP2:     true,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
}

// NewUpstreamClient returns an http.Client with a per-attempt timeout.
func NewUpstreamClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: defaultTransport.Clone(),
	}
}

// HTTPFetcher GETs <baseURL><key> and retries transport errors and 5xx
// responses with exponential backoff.
type HTTPFetcher struct {
	client       *http.Client
	baseURL      string
	retries      uint64
	backoffBase  time.Duration
	maxBodyBytes int64
}

type FetcherOption func(*HTTPFetcher)

func WithBackoffBase(d time.Duration) FetcherOption {
	return func(f *HTTPFetcher) { f.backoffBase = d }
}

func WithMaxBodyBytes(n int64) FetcherOption {
	return func(f *HTTPFetcher) { f.maxBodyBytes = n }
}

func NewHTTPFetcher(client *http.Client, baseURL string, retries int, opts ...FetcherOption) *HTTPFetcher {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if retries < 0 {
		retries = 0
	}
	f := &HTTPFetcher{
		client:       client,
		baseURL:      baseURL,
		retries:      uint64(retries),
		backoffBase:  200 * time.Millisecond,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *HTTPFetcher) Fetch(ctx context.Context, key string) ([]byte, error) {
	target := f.baseURL + url.PathEscape(key)

	backoff := retry.WithMaxRetries(f.retries, retry.NewExponential(f.backoffBase))

	var body []byte
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		data, err := f.fetchOnce(ctx, target)
		if err != nil {
			return err
		}
		body = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, retry.RetryableError(fmt.Errorf("upstream request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		statusErr := fmt.Errorf("upstream returned %s", resp.Status)
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, retry.RetryableError(statusErr)
		}
		return nil, statusErr
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return nil, retry.RetryableError(fmt.Errorf("read upstream body: %w", err))
	}
	if int64(len(data)) > f.maxBodyBytes {
		return nil, errBodyTooLarge
	}
	return data, nil
}
