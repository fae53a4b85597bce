// Package parser extracts the structured metadata header and embedded
// resource references from generated Markdown documents.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/inksync/internal/models"
)

var (
	wikiEmbedRe = regexp.MustCompile(`!\[\[([^\]|]+)(?:\|[^\]]*)?\]\]`)
	mdEmbedRe   = regexp.MustCompile(`!\[[^\]]*\]\(([^)\s]+)\)`)
	mdLinkRe    = regexp.MustCompile(`(?:^|[^!])\[[^\]]*\]\(([^)\s]+)\)`)
)

// Frontmatter is the parsed metadata header of a document. Raw keeps the
// YAML text between the delimiters exactly as found; EndIndex is the byte
// offset in the original document where the header (including the closing
// delimiter line) ends and the body begins.
type Frontmatter struct {
	Raw      string
	Parsed   map[string]any
	EndIndex int
}

// Get returns the value for key with an explicit presence flag.
func (f Frontmatter) Get(key string) (any, bool) {
	if f.Parsed == nil {
		return nil, false
	}
	v, ok := f.Parsed[key]
	return v, ok
}

// String returns the value for key when it is a string.
func (f Frontmatter) String(key string) (string, bool) {
	v, ok := f.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// StringList returns the value for key coerced to a string slice. YAML
// lists decode as []any, so each element is converted individually;
// non-string elements are skipped.
func (f Frontmatter) StringList(key string) ([]string, bool) {
	v, ok := f.Get(key)
	if !ok {
		return nil, false
	}
	raw, ok := v.([]any)
	if !ok {
		if s, isStr := v.(string); isStr {
			return []string{s}, true
		}
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, isStr := item.(string); isStr {
			out = append(out, s)
		}
	}
	return out, true
}

// Split separates the YAML metadata header (between leading --- delimiters)
// from the Markdown body. A document without a header yields a zero
// Frontmatter and the whole input as body.
func Split(data []byte) (Frontmatter, string) {
	const delim = "---"
	if !bytes.HasPrefix(data, []byte(delim+"\n")) {
		return Frontmatter{}, string(data)
	}

	rest := data[len(delim)+1:]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return Frontmatter{}, string(data)
	}

	raw := string(rest[:idx])
	end := len(delim) + 1 + idx + 1 + len(delim)
	// Swallow a single newline after the closing delimiter.
	if end < len(data) && data[end] == '\n' {
		end++
	}

	var parsed map[string]any
	if err := yaml.Unmarshal([]byte(raw), &parsed); err != nil {
		// Invalid YAML: keep the raw text so the merger can carry it
		// through untouched, but expose no parsed keys.
		parsed = nil
	}

	return Frontmatter{Raw: raw, Parsed: parsed, EndIndex: end}, string(data[end:])
}

// Attachments returns every embedded-resource reference in body, in
// document order, preserving the exact original syntax in FullMatch.
func Attachments(body string) []models.AttachmentReference {
	var out []models.AttachmentReference
	seen := make(map[string]struct{})

	add := func(full, path string) {
		path = strings.TrimSpace(path)
		if path == "" {
			return
		}
		if _, dup := seen[full]; dup {
			return
		}
		seen[full] = struct{}{}
		out = append(out, models.AttachmentReference{
			Kind:      kindOf(path),
			Path:      path,
			FullMatch: full,
		})
	}

	for _, m := range wikiEmbedRe.FindAllStringSubmatch(body, -1) {
		add(m[0], m[1])
	}
	for _, m := range mdEmbedRe.FindAllStringSubmatch(body, -1) {
		add(m[0], m[1])
	}
	for _, m := range mdLinkRe.FindAllStringSubmatch(body, -1) {
		full := m[0]
		// The leading context char from the negative-! guard is not part
		// of the reference syntax.
		if !strings.HasPrefix(full, "[") {
			full = full[1:]
		}
		add(full, m[1])
	}

	return out
}

// IsEmbedLine reports whether the trimmed line consists solely of one
// embedded-resource reference.
func IsEmbedLine(line string) bool {
	t := strings.TrimSpace(line)
	if t == "" {
		return false
	}
	if m := wikiEmbedRe.FindString(t); m == t {
		return true
	}
	if m := mdEmbedRe.FindString(t); m == t {
		return true
	}
	return false
}

func kindOf(path string) models.AttachmentKind {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return models.AttachmentLink
	}
	lower := strings.ToLower(path)
	switch {
	case hasAnySuffix(lower, ".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg", ".bmp"):
		return models.AttachmentImage
	case hasAnySuffix(lower, ".mp3", ".wav", ".m4a", ".ogg", ".flac"):
		return models.AttachmentAudio
	default:
		return models.AttachmentFile
	}
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}
