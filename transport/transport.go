// Package transport issues GET requests against the catalog origin.
//
// The origin serves whole resources as well as partial byte ranges of its
// index and data artifacts. Fetcher is the only surface the rest of the
// library depends on; HTTP is the default implementation.
package transport

import (
	"context"
	"fmt"
)

// Fetcher retrieves a resource and returns its raw body.
//
// Implementations must be safe for concurrent use. A response status other
// than 200 or 206 is reported as a *RejectedError.
type Fetcher interface {
	Fetch(ctx context.Context, uri string, optFns ...RequestOption) ([]byte, error)
}

// RequestOptions holds per-request settings.
type RequestOptions struct {
	// HasRange indicates that a byte-range header should be sent.
	HasRange bool
	// RangeStart is the first byte of the requested range.
	RangeStart int64
	// RangeEnd is the last byte of the requested range (inclusive).
	// A negative value leaves the range open-ended.
	RangeEnd int64
}

// RequestOption configures a single fetch.
type RequestOption func(*RequestOptions)

// WithByteRange requests a partial response covering [start, end].
// end is inclusive; pass a negative end to read to the end of the resource.
func WithByteRange(start, end int64) RequestOption {
	return func(o *RequestOptions) {
		o.HasRange = true
		o.RangeStart = start
		o.RangeEnd = end
	}
}

// MakeRequestOptions applies optFns to a zero RequestOptions value.
func MakeRequestOptions(optFns ...RequestOption) RequestOptions {
	var o RequestOptions
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}

// RangeHeader renders the options as an HTTP Range header value.
// Returns "" when no range was requested.
func (o RequestOptions) RangeHeader() string {
	if !o.HasRange {
		return ""
	}
	if o.RangeEnd < 0 {
		return fmt.Sprintf("bytes=%d-", o.RangeStart)
	}
	return fmt.Sprintf("bytes=%d-%d", o.RangeStart, o.RangeEnd)
}

// RejectedError indicates the origin answered with an unexpected status.
type RejectedError struct {
	// URI is the resolved request URL.
	URI        string
	StatusCode int
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("request to %q was rejected: status %d", e.URI, e.StatusCode)
}
