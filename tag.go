package hitomi

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Tag is one query term of the form type:name. A negative tag excludes its
// galleries from the result instead of requiring them.
type Tag struct {
	Type     string
	Name     string
	Negative bool
}

// tagTypes enumerates the recognized tag types.
var tagTypes = map[string]struct{}{
	"artist":    {},
	"group":     {},
	"type":      {},
	"language":  {},
	"series":    {},
	"character": {},
	"male":      {},
	"female":    {},
	"tag":       {},
}

var tagNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-_.]*$`)

// ParseTags parses a whitespace-separated tag expression such as
// "female:loli -language:korean" into tags. Underscores in names become
// spaces. A positive tag listed twice is rejected.
func ParseTags(text string) ([]Tag, error) {
	var tags []Tag
	seen := make(map[string]struct{})

	text += " "
	currentIndex := 0
	nextIndex := strings.Index(text, " ")

	for nextIndex != -1 {
		token := text[currentIndex:nextIndex]

		colonIndex := strings.Index(token, ":")
		if colonIndex == -1 {
			return nil, &InvalidValueError{Target: fmt.Sprintf("'%s'", token)}
		}

		negative := strings.HasPrefix(token, "-")
		typeStart := 0
		if negative {
			typeStart = 1
		}
		tagType := token[typeStart:colonIndex]
		tagName := token[colonIndex+1:]

		if _, ok := tagTypes[tagType]; !ok {
			return nil, &InvalidValueError{
				Target:      fmt.Sprintf("'%s'", tagType),
				Expectation: fmt.Sprintf("be one of %s", allowedTagTypes()),
			}
		}
		if !tagNamePattern.MatchString(tagName) {
			return nil, &InvalidValueError{
				Target:      fmt.Sprintf("'%s'", tagName),
				Expectation: "match /^[a-z0-9][a-z0-9-_.]*$/",
			}
		}

		rawTag := tagType + ":" + tagName
		if _, ok := seen[rawTag]; ok {
			return nil, &DuplicatedElementError{Target: fmt.Sprintf("'%s'", rawTag)}
		}
		seen[rawTag] = struct{}{}

		tags = append(tags, Tag{
			Type:     tagType,
			Name:     strings.ReplaceAll(tagName, "_", " "),
			Negative: negative,
		})

		currentIndex = nextIndex + 1
		nextIndex = indexFrom(text, " ", currentIndex)
	}

	return tags, nil
}

func allowedTagTypes() string {
	names := []string{"artist", "character", "female", "group", "language", "male", "series", "tag", "type"}
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = "'" + name + "'"
	}
	return strings.Join(quoted, ", ")
}

// indexFrom is strings.Index starting the scan at from.
func indexFrom(s, substr string, from int) int {
	if from >= len(s) {
		return -1
	}
	i := strings.Index(s[from:], substr)
	if i == -1 {
		return -1
	}
	return from + i
}

// Tags lists the tags of one type by scraping the origin's listing pages.
//
// startsWith selects a lettered listing page ("a".."z" or "0-9") and is
// required for every type except "type" and "language", which have no
// per-letter pages.
func (c *Client) Tags(ctx context.Context, tagType, startsWith string) ([]Tag, error) {
	isTypeType := tagType == "type"
	isLanguageType := tagType == "language"
	hasStartsWith := startsWith != ""

	if hasStartsWith == (isTypeType || isLanguageType) {
		return nil, &InvalidValueError{
			Target:      "startsWith",
			Expectation: "not be used only with type and language",
		}
	}

	if isTypeType {
		return []Tag{
			{Type: "type", Name: "doujinshi"},
			{Type: "type", Name: "manga"},
			{Type: "type", Name: "artistcg"},
			{Type: "type", Name: "gamecg"},
			{Type: "type", Name: "imageset"},
			{Type: "type", Name: "anime"},
		}, nil
	}

	uri, err := c.TagURI(tagType, startsWith)
	if err != nil {
		return nil, err
	}
	body, err := c.fetcher.Fetch(ctx, uri)
	if err != nil {
		return nil, err
	}
	response := string(body)

	if isLanguageType {
		return parseLanguageTags(response), nil
	}
	return parseListingTags(response, tagType), nil
}

// parseListingTags extracts tag names from the href attributes of a
// lettered listing page.
func parseListingTags(response, tagType string) []Tag {
	target := `href="/`
	if tagType == "male" || tagType == "female" {
		target += "tag/" + tagType + "%3A"
	} else {
		target += tagType + "/"
	}

	var tags []Tag
	searchFrom := 0
	for {
		hrefIndex := indexFrom(response, target, searchFrom)
		if hrefIndex == -1 {
			break
		}
		nameStart := hrefIndex + len(target)
		nameEnd := indexFrom(response, ".", nameStart)
		if nameEnd == -1 {
			break
		}
		searchFrom = nameEnd

		// The generic tag listing also links male:/female: tags; those
		// belong to their own listings.
		if tagType == "tag" {
			rest := response[nameStart:]
			if strings.HasPrefix(rest, "male") || strings.HasPrefix(rest, "female") {
				continue
			}
		}

		// Links end in "-all.html"; drop the "-all" suffix before the dot.
		if nameEnd-4 <= nameStart {
			continue
		}
		name, err := url.PathUnescape(response[nameStart : nameEnd-4])
		if err != nil {
			continue
		}
		tags = append(tags, Tag{Type: tagType, Name: name})
	}
	return tags
}

// parseLanguageTags extracts language names from the language_support
// script, a single JSON-shaped object mapping names to gallery counts.
func parseLanguageTags(response string) []Tag {
	var tags []Tag
	endIndex := strings.Index(response, "}")

	currentIndex := strings.Index(response, ":")
	for currentIndex != -1 {
		nameStart := currentIndex + 2
		nameEnd := indexFrom(response, `"`, nameStart)
		if nameEnd < 0 || nameEnd >= endIndex {
			break
		}
		tags = append(tags, Tag{Type: "language", Name: response[nameStart:nameEnd]})
		currentIndex = indexFrom(response, ":", nameEnd)
	}
	return tags
}
