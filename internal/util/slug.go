package util

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const maxSlugLength = 250

var (
	slugStrip  = regexp.MustCompile(`[^\w\s-]`)
	slugSpaces = regexp.MustCompile(`[-\s]+`)
)

// Slugify lower-cases text and reduces it to word characters separated by hyphens.
func Slugify(text string) string {
	s := strings.ToLower(norm.NFKC.String(text))
	s = slugStrip.ReplaceAllString(s, "")
	s = slugSpaces.ReplaceAllString(strings.TrimSpace(s), "-")
	return strings.Trim(s, "-")
}

// SlugWithID appends an id to the slug of text, keeping the result within the
// column size.
func SlugWithID(text string, id int64) string {
	suffix := fmt.Sprintf("-%d", id)
	base := Slugify(text)
	if len(base)+len(suffix) > maxSlugLength {
		base = strings.TrimRight(base[:maxSlugLength-len(suffix)], "-")
	}
	if base == "" {
		return strings.TrimPrefix(suffix, "-")
	}
	return base + suffix
}
