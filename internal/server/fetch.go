package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"flowbox/internal/config"
)

// ErrTooLarge is returned when an upstream body exceeds fetch.max_bytes.
var ErrTooLarge = errors.New("upstream document too large")

// HTTPFetcher loads pages with a plain HTTP client.
type HTTPFetcher struct {
	client    *http.Client
	transport *http.Transport
	userAgent string
	maxBytes  int64
}

// NewHTTPFetcher returns a fetcher with its own transport, honouring the
// timeout, user agent and size limit of cfg.
func NewHTTPFetcher(cfg config.FetchConfig) *HTTPFetcher {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.ResponseHeaderTimeout = cfg.Timeout
	return &HTTPFetcher{
		client:    &http.Client{Timeout: cfg.Timeout, Transport: tr},
		transport: tr,
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBytes,
	}
}

// Fetch GETs target, following redirects. Non-2xx answers are errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, target string, hdr http.Header) (*Document, error) {
	if strings.TrimSpace(target) == "" {
		return nil, errors.New("fetch: empty target url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	copyHeader(req.Header, hdr)
	if req.Header.Get("User-Agent") == "" && f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: upstream status %s", target, resp.Status)
	}

	var body io.Reader = resp.Body
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: reading body after %s: %w", target, time.Since(start), err)
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("fetch %s: %w (limit %d bytes)", target, ErrTooLarge, f.maxBytes)
	}
	return &Document{
		URL:    resp.Request.URL.String(),
		Body:   data,
		Header: cloneHeader(resp.Header),
	}, nil
}

// Close drops idle upstream connections.
func (f *HTTPFetcher) Close() {
	f.transport.CloseIdleConnections()
}
