package modules

import (
	"path"
	"regexp"
	"strings"
)

var (
	slugInvalidRe  = regexp.MustCompile(`[\\/:*?"<>|#^\[\]]+`)
	slugSpaceRe    = regexp.MustCompile(`\s+`)
	slugPageDocRe  = regexp.MustCompile(`-page-\d+$`)
	slugCollapseRe = regexp.MustCompile(`-{2,}`)
)

// Slugify derives the filesystem-safe identifier from a note's display
// name. The slug namespaces generated documents and attachments, so the
// same display name must always produce the same slug.
func Slugify(displayName string) string {
	s := strings.TrimSpace(displayName)
	s = slugInvalidRe.ReplaceAllString(s, "-")
	s = slugSpaceRe.ReplaceAllString(s, "-")
	s = slugCollapseRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-.")
	if s == "" {
		return "untitled"
	}
	return s
}

// SlugFromDocPath recovers the slug from a tracked document path: the base
// name without extension, with a page-document suffix stripped when present.
func SlugFromDocPath(docPath string) string {
	base := strings.TrimSuffix(path.Base(docPath), ".md")
	return slugPageDocRe.ReplaceAllString(base, "")
}
