// Package backlog is the analysis engine for backlog items: it names items,
// detects where they came from, tracks analysis progress through the
// canonical phases, decides whether recorded analysis is stale, recommends a
// workflow tier, and resolves free-form references to items.
package backlog

import (
	"regexp"
	"strings"
)

// FallbackSlug is used when an input has no usable characters.
const FallbackSlug = "untitled-item"

const maxSlugLen = 50

var (
	slugStripRe  = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaceRe  = regexp.MustCompile(`\s+`)
	slugHyphenRe = regexp.MustCompile(`-{2,}`)
)

// Slug derives a short URL-safe identifier from free text. Hyphens are
// trimmed before truncation, so a cut at a word boundary keeps its hyphen.
func Slug(text string) string {
	s := strings.ToLower(text)
	s = slugStripRe.ReplaceAllString(s, "")
	s = slugSpaceRe.ReplaceAllString(strings.TrimSpace(s), "-")
	s = slugHyphenRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugLen {
		s = s[:maxSlugLen]
	}
	if s == "" {
		return FallbackSlug
	}
	return s
}
