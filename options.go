package hitomi

import (
	"github.com/choko510/go-hitomi/transport"
)

const (
	// DefaultBaseDomain hosts galleries, listing pages and image shards.
	DefaultBaseDomain = "gold-usergeneratedcontent.net"

	// defaultNodeCacheCapacity bounds the index node cache.
	defaultNodeCacheCapacity = 256

	// defaultFetchConcurrency bounds parallel term fetches per search.
	defaultFetchConcurrency = 4
)

type options struct {
	fetcher           transport.Fetcher
	logger            *Logger
	baseDomain        string
	nodeCacheCapacity int
	fetchConcurrency  int
}

// Option configures a Client or an ImageURIResolver.
type Option func(*options)

func defaultOptions() options {
	return options{
		logger:            NoopLogger(),
		baseDomain:        DefaultBaseDomain,
		nodeCacheCapacity: defaultNodeCacheCapacity,
		fetchConcurrency:  defaultFetchConcurrency,
	}
}

func (o *options) apply(optFns []Option) {
	for _, fn := range optFns {
		fn(o)
	}
	if o.fetcher == nil {
		referer := "https://" + o.baseDomain
		o.fetcher = transport.NewHTTP(func(ho *transport.HTTPOptions) {
			ho.Referer = referer
		})
	}
}

// resourceDomain returns the host serving index, nozomi and script
// resources.
func (o *options) resourceDomain() string {
	return "ltn." + o.baseDomain
}

// WithFetcher replaces the default HTTPS fetcher.
func WithFetcher(fetcher transport.Fetcher) Option {
	return func(o *options) {
		o.fetcher = fetcher
	}
}

// WithLogger configures structured logging. Logging is disabled by
// default.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithBaseDomain overrides the origin's base domain. The resource domain
// is derived from it.
func WithBaseDomain(domain string) Option {
	return func(o *options) {
		if domain != "" {
			o.baseDomain = domain
		}
	}
}

// WithNodeCacheCapacity bounds the number of decoded index nodes kept in
// memory. Internal nodes are revisited across words within one search and
// across searches in a session.
func WithNodeCacheCapacity(capacity int) Option {
	return func(o *options) {
		if capacity > 0 {
			o.nodeCacheCapacity = capacity
		}
	}
}

// WithFetchConcurrency bounds how many independent query terms are fetched
// in parallel during a search.
func WithFetchConcurrency(concurrency int) Option {
	return func(o *options) {
		if concurrency > 0 {
			o.fetchConcurrency = concurrency
		}
	}
}
