package transport

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTP_Fetch(t *testing.T) {
	var gotHeaders http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		_, _ = w.Write([]byte("hello"))
	}))
	defer server.Close()

	fetcher := NewHTTP(func(o *HTTPOptions) {
		o.Referer = "https://example.net"
	})

	body, err := fetcher.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), body)

	assert.Equal(t, "*/*", gotHeaders.Get("Accept"))
	assert.Equal(t, "https://example.net", gotHeaders.Get("Referer"))
	assert.Equal(t, "gzip", gotHeaders.Get("Accept-Encoding"))
	assert.Empty(t, gotHeaders.Get("Range"))
}

func TestHTTP_Fetch_ByteRange(t *testing.T) {
	resource := []byte("0123456789")
	var gotRange, gotEncoding string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRange = r.Header.Get("Range")
		gotEncoding = r.Header.Get("Accept-Encoding")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write(resource[2:6])
	}))
	defer server.Close()

	fetcher := NewHTTP()

	body, err := fetcher.Fetch(context.Background(), server.URL, WithByteRange(2, 5))
	require.NoError(t, err)

	assert.Equal(t, []byte("2345"), body)
	assert.Equal(t, "bytes=2-5", gotRange)
	assert.Empty(t, gotEncoding, "range requests must address the stored bytes")
}

func TestHTTP_Fetch_OpenEndedRange(t *testing.T) {
	var gotRange string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRange = r.Header.Get("Range")
		w.WriteHeader(http.StatusPartialContent)
	}))
	defer server.Close()

	fetcher := NewHTTP()

	_, err := fetcher.Fetch(context.Background(), server.URL, WithByteRange(8, -1))
	require.NoError(t, err)
	assert.Equal(t, "bytes=8-", gotRange)
}

func TestHTTP_Fetch_Gzip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		_, _ = gz.Write([]byte("compressed payload"))
		_ = gz.Close()

		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(buf.Bytes())
	}))
	defer server.Close()

	fetcher := NewHTTP()

	body, err := fetcher.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, []byte("compressed payload"), body)
}

func TestHTTP_Fetch_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	fetcher := NewHTTP()

	_, err := fetcher.Fetch(context.Background(), server.URL)

	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, http.StatusNotFound, rejected.StatusCode)
	assert.Equal(t, server.URL, rejected.URI)
}

func TestHTTP_Fetch_SchemelessURI(t *testing.T) {
	fetcher := NewHTTP(func(o *HTTPOptions) {
		o.Client = &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			assert.Equal(t, "https", r.URL.Scheme)
			assert.Equal(t, "example.net", r.URL.Host)
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       http.NoBody,
				Header:     make(http.Header),
			}, nil
		})}
	})

	_, err := fetcher.Fetch(context.Background(), "example.net/galleriesindex/version")
	require.NoError(t, err)
}

func TestRangeHeader(t *testing.T) {
	assert.Empty(t, MakeRequestOptions().RangeHeader())
	assert.Equal(t, "bytes=0-463", MakeRequestOptions(WithByteRange(0, 463)).RangeHeader())
	assert.Equal(t, "bytes=4-", MakeRequestOptions(WithByteRange(4, -1)).RangeHeader())
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
