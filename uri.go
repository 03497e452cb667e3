package hitomi

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// NozomiOptions selects which identifier stream a nozomi URI addresses.
type NozomiOptions struct {
	// Tag selects a per-tag stream. Nil selects the full index stream.
	Tag *Tag
	// PopularityOrderBy selects a popularity-ordered stream.
	PopularityOrderBy PopularityPeriod
}

// NozomiURI builds the URI of a postings stream. With no options it
// addresses the full "all identifiers" index stream.
func (c *Client) NozomiURI(opts NozomiOptions) string {
	path := "index"
	language := "all"

	switch {
	case opts.Tag != nil:
		tag := opts.Tag
		switch tag.Type {
		case "male", "female":
			path = fmt.Sprintf("tag/%s:%s", tag.Type, url.PathEscape(tag.Name))
		case "language":
			language = tag.Name
		default:
			path = fmt.Sprintf("%s/%s", tag.Type, url.PathEscape(tag.Name))
		}
	case opts.PopularityOrderBy != "":
		if opts.PopularityOrderBy == PopularityDay {
			path = "today"
		} else {
			path = string(opts.PopularityOrderBy)
		}
	}

	prefix := "n"
	if opts.PopularityOrderBy != "" {
		prefix = "popular"
	}
	return fmt.Sprintf("%s/%s/%s-%s.nozomi", c.resourceDomain, prefix, path, language)
}

// TagURI builds the URI of a tag listing page. startsWith is required for
// every type except "language" ("0-9" maps to the "123" page).
func (c *Client) TagURI(tagType, startsWith string) (string, error) {
	isLanguage := tagType == "language"
	hasStartsWith := startsWith != ""

	if hasStartsWith == isLanguage {
		return "", &InvalidValueError{
			Target:      "startsWith",
			Expectation: "not be used with language",
		}
	}

	if isLanguage {
		return fmt.Sprintf("ltn.%s/language_support.js", c.baseDomain), nil
	}

	path := "all"
	switch tagType {
	case "tag", "male", "female":
		path += "tags"
	case "artist", "series", "character", "group":
		path += tagType
		if !strings.HasSuffix(path, "s") {
			path += "s"
		}
	default:
		return "", &InvalidValueError{Target: "type"}
	}

	suffix := startsWith
	if suffix == "0-9" {
		suffix = "123"
	}
	return fmt.Sprintf("%s/%s-%s.html", c.baseDomain, path, suffix), nil
}

// galleryTitleReplacer collapses characters the origin rewrites to dashes
// in gallery page URIs: parentheses, single quotes and a set of
// percent-escapes.
var galleryTitleReplacer = regexp.MustCompile(`\(|\)|'|%(2[0235F]|3[CEF]|5[BD]|7[BD])`)

// GalleryURI builds the HTML page URI for a gallery.
func (c *Client) GalleryURI(gallery *Gallery) string {
	titleSource := gallery.Title.Display
	if gallery.Title.Japanese != "" {
		titleSource = gallery.Title.Japanese
	}

	// The origin truncates titles to 200 bytes of UTF-8, dropping a
	// partial trailing rune.
	title := titleSource
	if len(title) > 200 {
		title = strings.ToValidUTF8(title[:200], "")
	}

	encodedTitle := escapeAll(title)
	encodedTitle = galleryTitleReplacer.ReplaceAllString(encodedTitle, "-")

	galleryType := gallery.Type
	if galleryType == "artistcg" {
		galleryType = "cg"
	}

	languageSuffix := ""
	if gallery.LanguageName.Local != "" {
		languageSuffix = "-" + escapeAll(gallery.LanguageName.Local)
	}

	return strings.ToLower(fmt.Sprintf("%s/%s/%s%s-%d.html",
		c.baseDomain, galleryType, encodedTitle, languageSuffix, gallery.ID))
}

// VideoURI builds the streaming URI for an anime gallery.
func (c *Client) VideoURI(gallery *Gallery) (string, error) {
	if gallery.Type != "anime" {
		return "", &InvalidValueError{Target: "gallery.Type", Expectation: "be 'anime'"}
	}
	safeTitle := strings.ReplaceAll(strings.ToLower(gallery.Title.Display), " ", "-")
	return fmt.Sprintf("streaming.%s/videos/%s.mp4", c.baseDomain, safeTitle), nil
}

// escapeAll percent-encodes every reserved character, leaving only
// unreserved characters intact. Spaces become %20, not +.
func escapeAll(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
