// Package hitomi resolves search queries and image locations against the
// remotely hosted hitomi.la catalog.
//
// The catalog and its search index live entirely on the origin; the client
// never downloads either in full. Queries are resolved by walking an
// on-disk search tree through partial byte-range reads, decoding a compact
// binary node format, and combining per-term identifier sets. Image
// locations are derived from a periodically rotating shard configuration
// fetched from the origin.
//
// # Searching
//
//	client := hitomi.New()
//	ids, err := client.GalleryIDs(ctx, hitomi.SearchOptions{
//		Title: "foo bar",
//		Tags:  []hitomi.Tag{{Type: "language", Name: "japanese"}},
//	})
//
// # Resolving image locations
//
//	resolver := hitomi.NewImageURIResolver()
//	if err := resolver.Synchronize(ctx); err != nil {
//		return err
//	}
//	uri, err := resolver.ImageURI(gallery.Files[0], "webp")
//
// Nothing is persisted across process lifetimes; the only cache is a
// bounded in-memory cache of decoded index nodes.
package hitomi
