package hitomi

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"net/http"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choko510/go-hitomi/transport"
)

// fakeFetcher serves canned resources and records byte-range headers,
// honoring ranges the way the origin does (inclusive bounds, clamped).
// Terms are fetched concurrently, so access is locked.
type fakeFetcher struct {
	mu        sync.Mutex
	resources map[string][]byte
	ranges    map[string][]string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		resources: make(map[string][]byte),
		ranges:    make(map[string][]string),
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, uri string, optFns ...transport.RequestOption) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	opts := transport.MakeRequestOptions(optFns...)
	f.ranges[uri] = append(f.ranges[uri], opts.RangeHeader())

	body, ok := f.resources[uri]
	if !ok {
		return nil, &transport.RejectedError{URI: uri, StatusCode: http.StatusNotFound}
	}
	if !opts.HasRange {
		return append([]byte(nil), body...), nil
	}

	start := opts.RangeStart
	if start >= int64(len(body)) {
		return nil, nil
	}
	end := opts.RangeEnd
	if end < 0 || end >= int64(len(body)) {
		end = int64(len(body)) - 1
	}
	if end < start {
		return nil, nil
	}
	return append([]byte(nil), body[start:end+1]...), nil
}

func encodeIDs(ids ...int32) []byte {
	var buf []byte
	for _, id := range ids {
		buf = binary.BigEndian.AppendUint32(buf, uint32(id))
	}
	return buf
}

// appendUint32 / appendUint64 build index node fixtures.
func appendUint32(buf []byte, v uint32) []byte { return binary.BigEndian.AppendUint32(buf, v) }
func appendUint64(buf []byte, v uint64) []byte { return binary.BigEndian.AppendUint64(buf, v) }

func encodeLeafNode(keys [][]byte, locators [][2]int64) []byte {
	var buf []byte
	buf = appendUint32(buf, uint32(len(keys)))
	for _, key := range keys {
		buf = appendUint32(buf, uint32(len(key)))
		buf = append(buf, key...)
	}
	buf = appendUint32(buf, uint32(len(locators)))
	for _, loc := range locators {
		buf = appendUint64(buf, uint64(loc[0]))
		buf = appendUint32(buf, uint32(loc[1]))
	}
	for i := 0; i < 17; i++ {
		buf = appendUint64(buf, 0)
	}
	return buf
}

func wordKey(word string) []byte {
	digest := sha256.Sum256([]byte(word))
	return digest[:4]
}

// fixtureCatalog wires a complete fake origin: version, baseline and tag
// nozomi streams, a single-node title index and its data artifact.
//
//	baseline:   1..10
//	"foo":      1 2 3 4 5 6
//	"bar":      2 3 4 5 9
//	tag:x:      4 9
func fixtureCatalog(t *testing.T) (*Client, *fakeFetcher) {
	t.Helper()

	fetcher := newFakeFetcher()
	fetcher.resources["ltn.example.net/galleriesindex/version"] = []byte("7")
	fetcher.resources["ltn.example.net/n/index-all.nozomi"] =
		encodeIDs(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	fetcher.resources["ltn.example.net/n/tag/x-all.nozomi"] = encodeIDs(4, 9)

	fooPostings := encodeIDs(1, 2, 3, 4, 5, 6)
	barPostings := encodeIDs(2, 3, 4, 5, 9)

	// Data layout: a 4-byte header precedes each postings region.
	var data []byte
	fooAddress := int64(len(data))
	data = appendUint32(data, uint32(len(fooPostings)/4))
	data = append(data, fooPostings...)
	barAddress := int64(len(data))
	data = appendUint32(data, uint32(len(barPostings)/4))
	data = append(data, barPostings...)
	fetcher.resources["ltn.example.net/galleriesindex/galleries.7.data"] = data

	locators := map[string][2]int64{
		"foo": {fooAddress, 4 + int64(len(fooPostings))},
		"bar": {barAddress, 4 + int64(len(barPostings))},
	}

	// The root node stores the hashed word keys in sorted order.
	words := []string{"foo", "bar"}
	sort.Slice(words, func(i, j int) bool {
		return string(wordKey(words[i])) < string(wordKey(words[j]))
	})
	var keys [][]byte
	var locs [][2]int64
	for _, word := range words {
		keys = append(keys, wordKey(word))
		locs = append(locs, locators[word])
	}
	fetcher.resources["ltn.example.net/galleriesindex/galleries.7.index"] = encodeLeafNode(keys, locs)

	client := New(WithFetcher(fetcher), WithBaseDomain("example.net"))
	return client, fetcher
}

func TestGalleryIDs_TitleAndNegatedTag(t *testing.T) {
	client, _ := fixtureCatalog(t)

	ids, err := client.GalleryIDs(context.Background(), SearchOptions{
		Title: "foo bar",
		Tags:  []Tag{{Type: "tag", Name: "x", Negative: true}},
	})
	require.NoError(t, err)

	// baseline ∩ foo ∩ bar, minus x, in baseline order.
	assert.Equal(t, []int32{2, 3, 5}, ids)
}

func TestGalleryIDs_Unfiltered(t *testing.T) {
	client, _ := fixtureCatalog(t)

	ids, err := client.GalleryIDs(context.Background(), SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, ids)
}

func TestGalleryIDs_AbsentWordYieldsEmpty(t *testing.T) {
	client, _ := fixtureCatalog(t)

	ids, err := client.GalleryIDs(context.Background(), SearchOptions{Title: "nonexistent"})
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestGalleryIDs_ServerSideRange(t *testing.T) {
	client, fetcher := fixtureCatalog(t)

	ids, err := client.GalleryIDs(context.Background(), SearchOptions{
		Range: &Range{Start: 2, End: 5},
	})
	require.NoError(t, err)

	assert.Equal(t, []int32{3, 4, 5}, ids)
	assert.Equal(t, []string{"bytes=8-19"}, fetcher.ranges["ltn.example.net/n/index-all.nozomi"])
}

func TestGalleryIDs_ServerSideRange_OpenEnd(t *testing.T) {
	client, fetcher := fixtureCatalog(t)

	ids, err := client.GalleryIDs(context.Background(), SearchOptions{
		Range: &Range{Start: 8, End: -1},
	})
	require.NoError(t, err)

	assert.Equal(t, []int32{9, 10}, ids)
	assert.Equal(t, []string{"bytes=32-"}, fetcher.ranges["ltn.example.net/n/index-all.nozomi"])
}

func TestGalleryIDs_ClientSideSlice(t *testing.T) {
	client, fetcher := fixtureCatalog(t)

	ids, err := client.GalleryIDs(context.Background(), SearchOptions{
		Title: "foo",
		Range: &Range{Start: 1, End: 3},
	})
	require.NoError(t, err)

	// foo matches 1..6; slice [1,3) of the filtered list.
	assert.Equal(t, []int32{2, 3}, ids)
	// The filtered query must not push the range down to the origin.
	assert.Equal(t, []string{""}, fetcher.ranges["ltn.example.net/n/index-all.nozomi"])
}

func TestGalleryIDs_ClientSideSlice_Clamped(t *testing.T) {
	client, _ := fixtureCatalog(t)

	ids, err := client.GalleryIDs(context.Background(), SearchOptions{
		Title: "foo",
		Range: &Range{Start: 4, End: 100},
	})
	require.NoError(t, err)
	assert.Equal(t, []int32{5, 6}, ids)

	ids, err = client.GalleryIDs(context.Background(), SearchOptions{
		Title: "foo",
		Range: &Range{Start: 50, End: 60},
	})
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestGalleryIDs_Popularity(t *testing.T) {
	client, fetcher := fixtureCatalog(t)
	fetcher.resources["ltn.example.net/popular/today-all.nozomi"] = encodeIDs(9, 4, 2)

	ids, err := client.GalleryIDs(context.Background(), SearchOptions{
		PopularityOrderBy: PopularityDay,
	})
	require.NoError(t, err)

	assert.Equal(t, []int32{9, 4, 2}, ids, "baseline keeps the popularity stream order")
}

func TestGalleryIDs_PopularityWithTitle(t *testing.T) {
	client, fetcher := fixtureCatalog(t)
	fetcher.resources["ltn.example.net/popular/week-all.nozomi"] = encodeIDs(9, 4, 2)

	ids, err := client.GalleryIDs(context.Background(), SearchOptions{
		Title:             "foo",
		PopularityOrderBy: PopularityWeek,
	})
	require.NoError(t, err)

	// foo matches 1..6; only 4 and 2 survive, in popularity order.
	assert.Equal(t, []int32{4, 2}, ids)
}

func TestGalleryIDs_TitleSpacingValidation(t *testing.T) {
	client, _ := fixtureCatalog(t)

	for _, title := range []string{" foo", "foo ", "foo  bar"} {
		_, err := client.GalleryIDs(context.Background(), SearchOptions{Title: title})

		var invalid *InvalidValueError
		require.ErrorAs(t, err, &invalid, "title %q", title)
		assert.Equal(t, "options.Title", invalid.Target)
	}
}

func TestGalleryIDs_NegativeRangeStart(t *testing.T) {
	client, _ := fixtureCatalog(t)

	_, err := client.GalleryIDs(context.Background(), SearchOptions{
		Range: &Range{Start: -1, End: 5},
	})

	var invalid *InvalidValueError
	assert.ErrorAs(t, err, &invalid)
}

func TestGalleryIDs_RootUnavailable(t *testing.T) {
	client, fetcher := fixtureCatalog(t)
	fetcher.resources["ltn.example.net/galleriesindex/galleries.7.index"] = nil

	_, err := client.GalleryIDs(context.Background(), SearchOptions{Title: "foo"})

	assert.ErrorIs(t, err, ErrStructural)
	var lack *LackOfElementError
	assert.ErrorAs(t, err, &lack)
}

func TestGalleryIDs_TransportRejectionPropagates(t *testing.T) {
	client, fetcher := fixtureCatalog(t)
	delete(fetcher.resources, "ltn.example.net/n/tag/x-all.nozomi")

	_, err := client.GalleryIDs(context.Background(), SearchOptions{
		Tags: []Tag{{Type: "tag", Name: "x"}},
	})

	var rejected *transport.RejectedError
	assert.ErrorAs(t, err, &rejected)
}

func TestGalleryIDs_NodeCacheReused(t *testing.T) {
	_, fetcher := fixtureCatalog(t)
	// Sequential fetches so the second word's lookup deterministically
	// finds the root already cached.
	client := New(WithFetcher(fetcher), WithBaseDomain("example.net"), WithFetchConcurrency(1))
	ctx := context.Background()

	_, err := client.GalleryIDs(ctx, SearchOptions{Title: "foo bar"})
	require.NoError(t, err)

	hits, _ := client.IndexCacheStats()
	assert.Positive(t, hits, "the second word's lookup should hit the cached root")
}
