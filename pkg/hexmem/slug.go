package hexmem

import (
	"regexp"
	"strings"
)

// SlugPattern is the accepted slug format: lowercase alphanumerics,
// underscore and hyphen, starting with an alphanumeric.
var SlugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

var slugNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a slug from s: lowercase, non-alphanumerics collapsed to a
// single hyphen, leading/trailing hyphens trimmed. Used for Project
// slug derivation; Agent slugs are caller-supplied and validated with
// ValidSlug instead.
func Slugify(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))
	slug := slugNonAlnum.ReplaceAllString(lower, "-")
	return strings.Trim(slug, "-")
}

// ValidSlug reports whether s matches SlugPattern.
func ValidSlug(s string) bool {
	return SlugPattern.MatchString(s)
}
