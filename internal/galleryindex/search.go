package galleryindex

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/choko510/go-hitomi/transport"
)

// RootAddress is the well-known address of the root node.
const RootAddress = 0

// ErrIndexUnavailable is returned when the root node cannot be read: the
// remote index is unusable for this version.
var ErrIndexUnavailable = errors.New("galleryindex: root node unavailable")

// Searcher resolves hashed search keys to postings locators by walking the
// remote index tree node-by-node.
type Searcher struct {
	fetcher transport.Fetcher
	domain  string
	cache   *NodeCache
}

// NewSearcher creates a Searcher against the given resource domain
// (for example "ltn.gold-usergeneratedcontent.net"). cacheCapacity bounds
// the node cache.
func NewSearcher(fetcher transport.Fetcher, domain string, cacheCapacity int) *Searcher {
	return &Searcher{
		fetcher: fetcher,
		domain:  domain,
		cache:   NewNodeCache(cacheCapacity),
	}
}

// CacheStats exposes node cache hit/miss counters.
func (s *Searcher) CacheStats() (hits, misses int64) {
	return s.cache.Stats()
}

// Version fetches the current index generation token.
func (s *Searcher) Version(ctx context.Context) (string, error) {
	body, err := s.fetcher.Fetch(ctx, fmt.Sprintf("%s/galleriesindex/version", s.domain))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// NodeAt fetches and decodes the node stored at address within the given
// index generation. An empty response body yields a nil node, which the
// caller treats as "absent".
func (s *Searcher) NodeAt(ctx context.Context, address uint64, version string) (*Node, error) {
	if node, ok := s.cache.Get(address, version); ok {
		return node, nil
	}

	uri := fmt.Sprintf("%s/galleriesindex/galleries.%s.index", s.domain, version)
	body, err := s.fetcher.Fetch(ctx, uri,
		transport.WithByteRange(int64(address), int64(address)+NodeWindow-1))
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}

	node, err := DecodeNode(body)
	if err != nil {
		return nil, err
	}
	s.cache.Set(address, version, node)
	return node, nil
}

// Lookup walks the tree from the root looking for an exact key match and
// returns its postings locator. ok is false when the key is absent.
//
// Within each node the keys are scanned in stored order and the scan stops
// at the first key not strictly less than the target; an equal key is an
// exact match, otherwise the stop index selects the child to descend into.
// The walk is iterative so a deep tree cannot grow the stack, and each
// iteration re-checks ctx through the fetcher.
func (s *Searcher) Lookup(ctx context.Context, key []byte, version string) (Locator, bool, error) {
	node, err := s.NodeAt(ctx, RootAddress, version)
	if err != nil {
		return Locator{}, false, err
	}
	if node == nil {
		return Locator{}, false, ErrIndexUnavailable
	}

	for {
		if len(node.Keys) == 0 {
			return Locator{}, false, nil
		}

		compare := -1
		index := 0
		for index < len(node.Keys) {
			compare = bytes.Compare(key, node.Keys[index])
			if compare <= 0 {
				break
			}
			index++
		}

		if compare == 0 {
			return node.Locators[index], true, nil
		}

		if index >= len(node.Children) {
			return Locator{}, false, nil
		}
		childAddress := node.Children[index]
		if childAddress == 0 {
			return Locator{}, false, nil
		}
		if node.Leaf() {
			return Locator{}, false, nil
		}

		next, err := s.NodeAt(ctx, childAddress, version)
		if err != nil {
			return Locator{}, false, err
		}
		if next == nil {
			return Locator{}, false, nil
		}
		node = next
	}
}

// Postings fetches the identifier buffer a locator points at. The first
// four bytes of the located region are a header and are skipped.
func (s *Searcher) Postings(ctx context.Context, version string, loc Locator) ([]byte, error) {
	uri := fmt.Sprintf("%s/galleriesindex/galleries.%s.data", s.domain, version)
	return s.fetcher.Fetch(ctx, uri,
		transport.WithByteRange(int64(loc.Address)+4, int64(loc.Address)+int64(loc.Length)-1))
}
