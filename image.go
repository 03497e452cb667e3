package hitomi

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/choko510/go-hitomi/transport"
)

// imageExtensions enumerates the supported image encodings.
var imageExtensions = map[string]struct{}{
	"webp": {},
	"avif": {},
	"jxl":  {},
}

// shardConfig is one generation of the origin's image shard assignment.
// It is replaced wholesale on every synchronization.
type shardConfig struct {
	pathCode    string
	startsWithA bool
	buckets     map[int]struct{}
}

// ImageURIResolver computes the sharded download location of gallery
// images.
//
// The origin spreads images over numbered subdomains and rotates the
// assignment periodically via a small script resource. Synchronize must be
// called at least once before resolving; callers are expected to re-run it
// when the configuration grows stale. A resolver is safe for concurrent
// use.
type ImageURIResolver struct {
	fetcher        transport.Fetcher
	logger         *Logger
	baseDomain     string
	resourceDomain string

	mu       sync.RWMutex
	conf     *shardConfig
	syncedAt time.Time
}

// NewImageURIResolver creates a resolver against the default origin.
func NewImageURIResolver(optFns ...Option) *ImageURIResolver {
	opts := defaultOptions()
	opts.apply(optFns)

	return &ImageURIResolver{
		fetcher:        opts.fetcher,
		logger:         opts.logger,
		baseDomain:     opts.baseDomain,
		resourceDomain: opts.resourceDomain(),
	}
}

// Synchronize fetches the current shard configuration and installs it.
//
// The script is line-oriented: a "b" line carries the path code, an "o"
// line selects which shard branch the lettered bucket maps to, and each
// "case N:" line declares a hash bucket of the primary shard. A sync that
// yields an empty path code or bucket set fails without touching the
// previously installed configuration.
func (r *ImageURIResolver) Synchronize(ctx context.Context) error {
	conf, err := r.fetchShardConfig(ctx)
	if err != nil {
		r.logger.LogSynchronize(ctx, "", 0, err)
		return err
	}

	r.mu.Lock()
	r.conf = conf
	r.syncedAt = time.Now()
	r.mu.Unlock()

	r.logger.LogSynchronize(ctx, conf.pathCode, len(conf.buckets), nil)
	return nil
}

func (r *ImageURIResolver) fetchShardConfig(ctx context.Context) (*shardConfig, error) {
	body, err := r.fetcher.Fetch(ctx, fmt.Sprintf("%s/gg.js", r.resourceDomain))
	if err != nil {
		return nil, err
	}

	conf := &shardConfig{buckets: make(map[int]struct{})}
	for _, line := range strings.Split(string(body), "\n") {
		if line == "" {
			continue
		}
		switch line[0] {
		case 'b':
			if len(line) < 6 {
				return nil, fmt.Errorf("%w: malformed path code line %q", ErrStructural, line)
			}
			conf.pathCode = line[4 : len(line)-2]
		case 'o':
			if len(line) < 5 {
				return nil, fmt.Errorf("%w: malformed shard flag line %q", ErrStructural, line)
			}
			conf.startsWithA = line[4] == '0'
		case 'c':
			if len(line) < 7 {
				return nil, fmt.Errorf("%w: malformed bucket line %q", ErrStructural, line)
			}
			bucket, err := strconv.Atoi(line[5 : len(line)-1])
			if err != nil {
				return nil, fmt.Errorf("%w: malformed bucket line %q", ErrStructural, line)
			}
			conf.buckets[bucket] = struct{}{}
		}
	}

	if conf.pathCode == "" || len(conf.buckets) == 0 {
		return nil, fmt.Errorf("%w: shard configuration empty after sync (pathCode=%q, buckets=%d)",
			ErrStructural, conf.pathCode, len(conf.buckets))
	}
	return conf, nil
}

// Synchronized reports whether a shard configuration is installed.
func (r *ImageURIResolver) Synchronized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conf != nil
}

// SyncedAt returns when the configuration was last installed.
func (r *ImageURIResolver) SyncedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.syncedAt
}

// Stale reports whether the configuration is older than maxAge. The origin
// rotates shard assignment, so long-lived processes should re-synchronize
// when this returns true.
func (r *ImageURIResolver) Stale(maxAge time.Duration) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conf == nil || time.Since(r.syncedAt) > maxAge
}

// ImageURIOptions selects a variant of an image.
type ImageURIOptions struct {
	// Thumbnail addresses the image's big thumbnail instead of the full
	// file.
	Thumbnail bool
	// Small addresses the small thumbnail; only valid together with
	// Thumbnail and the avif encoding.
	Small bool
}

// ImageURI computes the download URI for an image in the given encoding
// ("webp", "avif" or "jxl"). The image must declare support for the
// encoding. Synchronize must have been called first.
func (r *ImageURIResolver) ImageURI(image Image, extension string, optFns ...func(*ImageURIOptions)) (string, error) {
	var opts ImageURIOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	r.mu.RLock()
	conf := r.conf
	r.mu.RUnlock()

	if conf == nil {
		return "", &InvalidCallError{
			Target:      "ImageURIResolver.ImageURI()",
			Expectation: "be called after ImageURIResolver.Synchronize()",
		}
	}

	if _, ok := imageExtensions[extension]; !ok {
		return "", &InvalidValueError{Target: "extension"}
	}
	supported := map[string]bool{
		"webp": image.HasWebP,
		"avif": image.HasAVIF,
		"jxl":  image.HasJXL,
	}
	if !supported[extension] {
		return "", &InvalidValueError{Target: "extension"}
	}

	hashCode, err := imageHashCode(image.Hash)
	if err != nil {
		return "", err
	}

	subdomain := extension[:1]
	var path string
	if !opts.Thumbnail {
		path = fmt.Sprintf("%s/%d/%s", conf.pathCode, hashCode, image.Hash)
	} else {
		if opts.Small {
			if extension != "avif" {
				return "", &InvalidValueError{
					Target:      "options.Small",
					Expectation: "be used with avif",
				}
			}
			path = "small"
		}
		hash := image.Hash
		path += fmt.Sprintf("bigtn/%s/%s/%s", hash[len(hash)-1:], hash[len(hash)-3:len(hash)-1], hash)
		subdomain = "tn"
	}

	// The numeral picks shard 1 exactly when bucket membership agrees
	// with the lettered-branch flag.
	numeral := "2"
	if _, inSet := conf.buckets[hashCode]; inSet == conf.startsWithA {
		numeral = "1"
	}

	return fmt.Sprintf("%s%s.%s/%s.%s", subdomain, numeral, r.baseDomain, path, extension), nil
}

// imageHashCode derives the shard hash code from the last three hex
// characters of an image hash: the last character concatenated with the
// two before it, parsed base 16.
func imageHashCode(hash string) (int, error) {
	if len(hash) < 3 {
		return 0, &InvalidValueError{Target: "image.Hash"}
	}
	code, err := strconv.ParseInt(hash[len(hash)-1:]+hash[len(hash)-3:len(hash)-1], 16, 32)
	if err != nil {
		return 0, &InvalidValueError{Target: "image.Hash"}
	}
	return int(code), nil
}
