package hitomi

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"
)

// Title holds a gallery's display title and, when present, the original
// Japanese title.
type Title struct {
	Display  string
	Japanese string
}

// LanguageName holds a language's English and local spellings.
type LanguageName struct {
	English string
	Local   string
}

// Image describes one file of a gallery and which encodings the origin
// stores for it.
type Image struct {
	Index   int
	Hash    string
	Name    string
	HasAVIF bool
	HasWebP bool
	HasJXL  bool
	Width   int
	Height  int
}

// GalleryTranslation points at the same gallery in another language.
type GalleryTranslation struct {
	ID           int
	LanguageName LanguageName
}

// Gallery is the typed form of a gallery metadata document.
type Gallery struct {
	ID            int
	Title         Title
	Type          string
	LanguageName  LanguageName
	Artists       []string
	Groups        []string
	Series        []string
	Characters    []string
	Tags          []Tag
	Files         []Image
	PublishedDate time.Time
	Translations  []GalleryTranslation
	RelatedIDs    []int
}

// Gallery fetches and shapes the metadata document of one gallery. The
// origin serves it as a script whose tail is a JSON object.
func (c *Client) Gallery(ctx context.Context, id int) (*Gallery, error) {
	gallery, err := c.gallery(ctx, id)
	c.logger.LogGallery(ctx, id, err)
	return gallery, err
}

func (c *Client) gallery(ctx context.Context, id int) (*Gallery, error) {
	body, err := c.fetcher.Fetch(ctx, fmt.Sprintf("%s/galleries/%d.js", c.resourceDomain, id))
	if err != nil {
		return nil, err
	}

	text := string(body)
	jsonStart := strings.Index(text, "{")
	if jsonStart == -1 {
		return nil, &InvalidValueError{Target: "response", Expectation: "contain valid JSON"}
	}

	// The document mixes value types freely (numbers as strings, flags as
	// "" / "1" / 1), so it is decoded generically and shaped field by
	// field, defaulting what is absent.
	var doc map[string]any
	if err := gojson.Unmarshal([]byte(text[jsonStart:]), &doc); err != nil {
		return nil, &InvalidValueError{Target: "response", Expectation: "contain valid JSON"}
	}

	display, ok := doc["title"].(string)
	if !ok {
		return nil, &InvalidValueError{Target: "response['title']", Expectation: "be string"}
	}
	galleryType, ok := doc["type"].(string)
	if !ok {
		return nil, &InvalidValueError{Target: "response['type']", Expectation: "be string"}
	}

	gallery := &Gallery{
		ID: id,
		Title: Title{
			Display:  display,
			Japanese: stringField(doc, "japanese_title"),
		},
		Type: galleryType,
		LanguageName: LanguageName{
			English: stringField(doc, "language"),
			Local:   stringField(doc, "language_localname"),
		},
	}

	if related, ok := doc["related"].([]any); ok {
		for _, value := range related {
			if n, ok := intValue(value); ok {
				gallery.RelatedIDs = append(gallery.RelatedIDs, n)
			}
		}
	}

	gallery.Series = namedEntries(doc, "parodys", "parody")
	gallery.Artists = namedEntries(doc, "artists", "artist")
	gallery.Groups = namedEntries(doc, "groups", "group")
	gallery.Characters = namedEntries(doc, "characters", "character")

	if tags, ok := doc["tags"].([]any); ok {
		for _, value := range tags {
			entry, ok := value.(map[string]any)
			if !ok {
				continue
			}
			tagType := "tag"
			if truthy(entry["male"]) {
				tagType = "male"
			} else if truthy(entry["female"]) {
				tagType = "female"
			}
			name, _ := entry["tag"].(string)
			gallery.Tags = append(gallery.Tags, Tag{Type: tagType, Name: name})
		}
	}

	if files, ok := doc["files"].([]any); ok {
		for index, value := range files {
			entry, ok := value.(map[string]any)
			if !ok {
				continue
			}
			width, _ := intValue(entry["width"])
			height, _ := intValue(entry["height"])
			hasAVIF, _ := intValue(entry["hasavif"])
			hasWebP, _ := intValue(entry["haswebp"])
			hasJXL, _ := intValue(entry["hasjxl"])
			name, _ := entry["name"].(string)
			hash, _ := entry["hash"].(string)
			gallery.Files = append(gallery.Files, Image{
				Index:   index,
				Hash:    hash,
				Name:    name,
				HasAVIF: hasAVIF == 1,
				HasWebP: hasWebP != 0,
				HasJXL:  hasJXL == 1,
				Width:   width,
				Height:  height,
			})
		}
	}

	if languages, ok := doc["languages"].([]any); ok {
		for _, value := range languages {
			entry, ok := value.(map[string]any)
			if !ok {
				continue
			}
			translationID, _ := intValue(entry["galleryid"])
			gallery.Translations = append(gallery.Translations, GalleryTranslation{
				ID: translationID,
				LanguageName: LanguageName{
					English: stringField(entry, "name"),
					Local:   stringField(entry, "language_localname"),
				},
			})
		}
	}

	published := doc["datepublished"]
	if published == nil {
		published = doc["date"]
	}
	gallery.PublishedDate = parseDate(published)

	return gallery, nil
}

// namedEntries collects entries[i][key] from a list of {key: name}
// objects, the origin's shape for artists, groups, series and characters.
func namedEntries(doc map[string]any, plural, key string) []string {
	entries, ok := doc[plural].([]any)
	if !ok {
		return nil
	}
	var names []string
	for _, value := range entries {
		if entry, ok := value.(map[string]any); ok {
			if name, ok := entry[key]; ok {
				names = append(names, fmt.Sprint(name))
			}
		}
	}
	return names
}

func stringField(doc map[string]any, key string) string {
	s, _ := doc[key].(string)
	return s
}

// intValue coerces the document's mixed numeric representations
// (float64 from JSON numbers, numeric strings) to an int.
func intValue(value any) (int, bool) {
	switch v := value.(type) {
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// truthy mirrors the document's flag convention: "" and 0 are false,
// "1" and 1 are true.
func truthy(value any) bool {
	switch v := value.(type) {
	case string:
		return v != ""
	case float64:
		return v != 0
	case bool:
		return v
	default:
		return false
	}
}

var publishedDateFormats = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseDate accepts the origin's date shapes: a UNIX timestamp or a date
// string with an optional time part. Unparseable dates default to zero.
func parseDate(value any) time.Time {
	switch v := value.(type) {
	case float64:
		return time.Unix(int64(v), 0).UTC()
	case string:
		candidate := strings.ReplaceAll(strings.TrimSpace(v), " ", "T")
		for _, format := range publishedDateFormats {
			if parsed, err := time.Parse(format, candidate); err == nil {
				return parsed.UTC()
			}
		}
		if parsed, err := time.Parse(time.RFC3339, candidate); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}
