package hitomi

import (
	"context"
	"crypto/sha256"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/choko510/go-hitomi/internal/idset"
	"github.com/choko510/go-hitomi/transport"
)

// PopularityPeriod orders results by popularity over a trailing window.
type PopularityPeriod string

// Supported popularity periods.
const (
	PopularityDay   PopularityPeriod = "day"
	PopularityWeek  PopularityPeriod = "week"
	PopularityMonth PopularityPeriod = "month"
	PopularityYear  PopularityPeriod = "year"
)

// Range selects the half-open slice [Start, End) of the result list.
// A negative End leaves the range open-ended.
type Range struct {
	Start int
	End   int
}

// SearchOptions describes one gallery id resolution. All fields are
// optional; the zero value resolves the full catalog in natural order.
type SearchOptions struct {
	// Title narrows results to galleries matching every word of the
	// lowercased title. Leading, trailing or doubled spaces are invalid.
	Title string
	// Tags narrows results by tag; negative tags exclude their galleries.
	Tags []Tag
	// Range slices the result. When no title and no tags are present the
	// slice is pushed down to the origin as a byte range; otherwise it is
	// applied client-side after filtering, since server-side paging of
	// the unfiltered stream would not line up with filtered positions.
	Range *Range
	// PopularityOrderBy orders the baseline stream by popularity.
	PopularityOrderBy PopularityPeriod
}

// GalleryIDs resolves a query to the ordered list of matching gallery
// identifiers.
//
// The baseline identifier stream and every term's postings are fetched
// concurrently; the fold happens afterward in a fixed order (title words,
// then tags), which keeps results deterministic regardless of fetch
// completion order. Node fetches inside one title-word lookup stay
// sequential because each depends on the previously decoded child address.
func (c *Client) GalleryIDs(ctx context.Context, opts SearchOptions) ([]int32, error) {
	ids, err := c.galleryIDs(ctx, opts)

	titleWords := 0
	if opts.Title != "" {
		titleWords = strings.Count(opts.Title, " ") + 1
	}
	c.logger.LogSearch(ctx, titleWords, len(opts.Tags), len(ids), err)
	return ids, err
}

func (c *Client) galleryIDs(ctx context.Context, opts SearchOptions) ([]int32, error) {
	titleAvailable := opts.Title != ""
	tagsAvailable := len(opts.Tags) > 0
	rangeAvailable := opts.Range != nil
	sliceClientSide := rangeAvailable && (titleAvailable || tagsAvailable)

	if rangeAvailable && opts.Range.Start < 0 {
		return nil, &InvalidValueError{Target: "options.Range.Start", Expectation: "not be negative"}
	}

	var words []string
	if titleAvailable {
		var err error
		words, err = splitTitleWords(opts.Title)
		if err != nil {
			return nil, err
		}
	}

	version, err := c.index.Version(ctx)
	if err != nil {
		return nil, err
	}

	// Slot 0 is the baseline; title words and tags follow in query order.
	sets := make([]*idset.Set, 1+len(words)+len(opts.Tags))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	g.Go(func() error {
		set, err := c.fetchBaseline(gctx, opts, rangeAvailable && !sliceClientSide)
		if err != nil {
			return err
		}
		sets[0] = set
		return nil
	})

	for i, word := range words {
		i, word := i, word
		slot := 1 + i
		g.Go(func() error {
			set, err := c.fetchTitleWord(gctx, word, version)
			if err != nil {
				return err
			}
			sets[slot] = set
			return nil
		})
	}

	for i, tag := range opts.Tags {
		i, tag := i, tag
		slot := 1 + len(words) + i
		g.Go(func() error {
			set, err := c.fetchTagPostings(gctx, tag)
			if err != nil {
				return err
			}
			sets[slot] = set
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, translateError(err)
	}

	base := sets[0]
	for _, set := range sets[1:] {
		base.Combine(set)
	}

	ids := base.Ordered()
	if sliceClientSide {
		ids = clampSlice(ids, opts.Range.Start, opts.Range.End)
	}
	return ids, nil
}

// fetchBaseline retrieves the unfiltered identifier stream that seeds the
// combination: popularity-ordered when a period was requested, natural
// index order otherwise. serverRange pushes the requested slice down as a
// byte range (four bytes per identifier).
func (c *Client) fetchBaseline(ctx context.Context, opts SearchOptions, serverRange bool) (*idset.Set, error) {
	uri := c.NozomiURI(NozomiOptions{PopularityOrderBy: opts.PopularityOrderBy})

	var reqOpts []transport.RequestOption
	if serverRange {
		start := int64(opts.Range.Start) * 4
		end := int64(-1)
		if opts.Range.End >= 0 {
			end = int64(opts.Range.End)*4 - 1
		}
		reqOpts = append(reqOpts, transport.WithByteRange(start, end))
	}

	body, err := c.fetcher.Fetch(ctx, uri, reqOpts...)
	if err != nil {
		return nil, err
	}
	return idset.Decode(body, false)
}

// fetchTitleWord resolves one title word through the remote index tree.
// A word absent from the index yields an empty set, not an error.
func (c *Client) fetchTitleWord(ctx context.Context, word, version string) (*idset.Set, error) {
	digest := sha256.Sum256([]byte(word))
	key := digest[:4]

	loc, ok, err := c.index.Lookup(ctx, key, version)
	if err != nil {
		return nil, err
	}
	if !ok {
		return idset.New(false), nil
	}

	body, err := c.index.Postings(ctx, version, loc)
	if err != nil {
		return nil, err
	}
	return idset.Decode(body, false)
}

// fetchTagPostings retrieves one tag's postings stream with the tag's
// polarity.
func (c *Client) fetchTagPostings(ctx context.Context, tag Tag) (*idset.Set, error) {
	body, err := c.fetcher.Fetch(ctx, c.NozomiURI(NozomiOptions{Tag: &tag}))
	if err != nil {
		return nil, err
	}
	return idset.Decode(body, tag.Negative)
}

// splitTitleWords lowercases the title and splits it into words, rejecting
// titles with leading, trailing or doubled spaces.
func splitTitleWords(title string) ([]string, error) {
	words := strings.Split(strings.ToLower(title), " ")
	for _, word := range words {
		if word == "" {
			return nil, &InvalidValueError{
				Target:      "options.Title",
				Expectation: "not contain continuous or edge space",
			}
		}
	}
	return words, nil
}

// clampSlice applies [start, end) with standard bounds clamping; an
// out-of-range slice is never an error. A negative end means "to the end".
func clampSlice(ids []int32, start, end int) []int32 {
	if start > len(ids) {
		start = len(ids)
	}
	if end < 0 || end > len(ids) {
		end = len(ids)
	}
	if end < start {
		end = start
	}
	return ids[start:end]
}
