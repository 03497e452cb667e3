package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/time/rate"
)

// HTTPOptions configures an HTTP fetcher.
type HTTPOptions struct {
	// Client is the underlying HTTP client. Compression is negotiated
	// manually, so the client's transport should not decompress bodies.
	Client *http.Client

	// Referer is sent with every request. The origin rejects requests
	// without a matching referer.
	Referer string

	// RequestsPerSecond throttles outgoing requests. Zero disables
	// throttling.
	RequestsPerSecond float64
}

// HTTP is a Fetcher backed by net/http.
//
// Requests without a byte range advertise gzip and decode the response
// body transparently. Range requests are sent uncompressed so that byte
// offsets address the stored artifact, not a compressed representation.
type HTTP struct {
	client  *http.Client
	referer string
	limiter *rate.Limiter
}

// NewHTTP creates an HTTP fetcher.
func NewHTTP(optFns ...func(*HTTPOptions)) *HTTP {
	opts := HTTPOptions{
		Client: &http.Client{Timeout: 30 * time.Second},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	h := &HTTP{
		client:  opts.Client,
		referer: opts.Referer,
	}
	if opts.RequestsPerSecond > 0 {
		h.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return h
}

// Fetch performs a GET against uri and returns the body.
// A uri without a scheme is fetched over https.
func (h *HTTP) Fetch(ctx context.Context, uri string, optFns ...RequestOption) ([]byte, error) {
	opts := MakeRequestOptions(optFns...)

	target := uri
	if !strings.Contains(target, "//") {
		target = "https://" + target
	}

	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: build request for %q: %w", target, err)
	}

	req.Header.Set("Accept", "*/*")
	req.Header.Set("Connection", "keep-alive")
	if h.referer != "" {
		req.Header.Set("Referer", h.referer)
	}
	if rangeHeader := opts.RangeHeader(); rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	} else {
		req.Header.Set("Accept-Encoding", "gzip")
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transport: fetch %q: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, &RejectedError{URI: target, StatusCode: resp.StatusCode}
	}

	body := io.Reader(resp.Body)
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("transport: gzip reader for %q: %w", target, err)
		}
		defer gz.Close()
		body = gz
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("transport: read body of %q: %w", target, err)
	}
	return data, nil
}
