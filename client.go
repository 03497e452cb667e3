package hitomi

import (
	"github.com/choko510/go-hitomi/internal/galleryindex"
	"github.com/choko510/go-hitomi/transport"
)

// Client resolves catalog queries and fetches gallery metadata.
//
// A Client is safe for concurrent use. It holds no state besides a bounded
// cache of decoded index nodes; nothing is persisted across processes.
type Client struct {
	fetcher        transport.Fetcher
	logger         *Logger
	index          *galleryindex.Searcher
	baseDomain     string
	resourceDomain string
	concurrency    int
}

// New creates a Client against the default origin.
func New(optFns ...Option) *Client {
	opts := defaultOptions()
	opts.apply(optFns)

	return &Client{
		fetcher:        opts.fetcher,
		logger:         opts.logger,
		index:          galleryindex.NewSearcher(opts.fetcher, opts.resourceDomain(), opts.nodeCacheCapacity),
		baseDomain:     opts.baseDomain,
		resourceDomain: opts.resourceDomain(),
		concurrency:    opts.fetchConcurrency,
	}
}

// IndexCacheStats exposes the node cache hit/miss counters.
func (c *Client) IndexCacheStats() (hits, misses int64) {
	return c.index.CacheStats()
}
