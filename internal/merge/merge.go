// Package merge reconciles a freshly rendered document with the document
// already at its target path, keeping everything a human added.
//
// The body comparison is a line-membership heuristic, not a structural
// diff: any contiguous run of existing lines absent from the fresh render
// is treated as user content. This is deliberately simple and documented
// as fragile against a human reordering a preserved paragraph (the moved
// paragraph is re-detected as new on the next cycle).
package merge

import (
	"regexp"
	"strings"

	"github.com/starford/inksync/internal/models"
	"github.com/starford/inksync/internal/parser"
)

// Reserved markup the merger emits and recognizes.
const (
	UserNotesHeading       = "## User Notes"
	UserAttachmentsHeading = "### User Attachments"
	sectionSeparator       = "---"
)

var dateTagRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// headerKeyRe matches a top-level key line in a YAML metadata header.
var headerKeyRe = regexp.MustCompile(`^([A-Za-z0-9_-]+):(\s|$)`)

// Stats reports what one merge recovered.
type Stats struct {
	TextBlocks  int
	Attachments int
	CarriedKeys int
}

// Merger performs content-preserving merges. noise holds trimmed template
// placeholder lines that are never treated as user content.
type Merger struct {
	noise map[string]struct{}
}

// New returns a Merger that ignores the given placeholder lines.
func New(placeholders ...string) *Merger {
	m := &Merger{noise: make(map[string]struct{}, len(placeholders))}
	for _, p := range placeholders {
		m.noise[strings.TrimSpace(p)] = struct{}{}
	}
	return m
}

// Preserve merges fresh over existing. System-managed header properties
// come from fresh; user-added header properties, body paragraphs, and
// attachment references found only in existing are carried into a trailing
// reserved section. attachPrefix is the module's own attachments folder
// prefix: embeds under it are system-owned and never preserved as user
// attachments.
//
// Running Preserve on its own output with the same fresh input is a no-op.
func (m *Merger) Preserve(existing, fresh []byte, attachPrefix string) (string, Stats) {
	var stats Stats

	exFM, exBody := parser.Split(existing)
	frFM, frBody := parser.Split(fresh)

	header, carried := mergeHeaders(frFM, exFM)
	stats.CarriedKeys = carried

	// Recover the user-notes section a previous cycle appended, so the
	// same content does not nest one level deeper on every merge.
	remainder, prevBlocks, prevAttach := splitUserSection(exBody)

	freshLines := lineSet(frBody)
	newBlocks := m.scanBlocks(remainder, freshLines)

	user := models.UserAddedContent{
		TextBlocks:  dedupeBlocks(prevBlocks, newBlocks),
		Attachments: prevAttach,
	}
	user.Attachments = appendAttachments(user.Attachments,
		scanAttachments(remainder, frBody, attachPrefix))

	stats.TextBlocks = len(user.TextBlocks)
	stats.Attachments = len(user.Attachments)

	var out strings.Builder
	if header != "" {
		out.WriteString("---\n")
		out.WriteString(header)
		out.WriteString("\n---\n")
	}
	out.WriteString(frBody)

	if !user.Empty() {
		if !strings.HasSuffix(out.String(), "\n") {
			out.WriteString("\n")
		}
		out.WriteString("\n" + sectionSeparator + "\n\n")
		out.WriteString(UserNotesHeading + "\n")
		if len(user.TextBlocks) > 0 {
			out.WriteString("\n")
			out.WriteString(strings.Join(user.TextBlocks, "\n\n"))
			out.WriteString("\n")
		}
		if len(user.Attachments) > 0 {
			out.WriteString("\n" + UserAttachmentsHeading + "\n\n")
			for _, ref := range user.Attachments {
				out.WriteString(ref.FullMatch)
				out.WriteString("\n")
			}
		}
	}

	return out.String(), stats
}

// mergeHeaders builds the merged raw header: fresh keys in fresh order
// (system properties win), then existing keys absent from fresh (user
// properties). Tags get a union with the date-tag supersede rule. Returns
// the raw header text without delimiters and the carried-key count.
func mergeHeaders(fresh, existing parser.Frontmatter) (string, int) {
	if fresh.Raw == "" {
		return existing.Raw, 0
	}

	freshSegs := headerSegments(fresh.Raw)
	existSegs := headerSegments(existing.Raw)

	inFresh := make(map[string]struct{}, len(freshSegs))
	for _, seg := range freshSegs {
		inFresh[seg.key] = struct{}{}
	}

	freshTags, _ := fresh.StringList("tags")
	existTags, _ := existing.StringList("tags")
	mergedTags := mergeTags(freshTags, existTags)

	var lines []string
	for _, seg := range freshSegs {
		if seg.key == "tags" {
			lines = append(lines, tagsBlock(mergedTags)...)
			continue
		}
		lines = append(lines, seg.block...)
	}

	carried := 0
	for _, seg := range existSegs {
		if _, dup := inFresh[seg.key]; dup {
			continue
		}
		carried++
		if seg.key == "tags" {
			lines = append(lines, tagsBlock(mergedTags)...)
			continue
		}
		lines = append(lines, seg.block...)
	}

	return strings.Join(lines, "\n"), carried
}

type headerSegment struct {
	key   string
	block []string
}

// headerSegments splits raw header text into ordered top-level key blocks.
// A block is the key line plus its indented continuation lines, so the
// merger can splice raw YAML without re-marshaling (map re-marshaling
// would scramble key order and break idempotence).
func headerSegments(raw string) []headerSegment {
	if raw == "" {
		return nil
	}
	var segs []headerSegment
	for _, line := range strings.Split(raw, "\n") {
		if m := headerKeyRe.FindStringSubmatch(line); m != nil {
			segs = append(segs, headerSegment{key: m[1], block: []string{line}})
			continue
		}
		if len(segs) > 0 {
			segs[len(segs)-1].block = append(segs[len(segs)-1].block, line)
		}
	}
	return segs
}

// mergeTags unions fresh and existing tags. An existing tag matching the
// calendar-date pattern is a system-managed date marker: it is dropped
// whenever the fresh set carries its own date tag.
func mergeTags(fresh, existing []string) []string {
	freshHasDate := false
	for _, t := range fresh {
		if dateTagRe.MatchString(t) {
			freshHasDate = true
			break
		}
	}

	seen := make(map[string]struct{}, len(fresh))
	out := make([]string, 0, len(fresh)+len(existing))
	for _, t := range fresh {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	for _, t := range existing {
		if _, dup := seen[t]; dup {
			continue
		}
		if freshHasDate && dateTagRe.MatchString(t) {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func tagsBlock(tags []string) []string {
	lines := make([]string, 0, len(tags)+1)
	lines = append(lines, "tags:")
	for _, t := range tags {
		lines = append(lines, "  - "+t)
	}
	return lines
}

// splitUserSection separates the reserved user-notes section from the rest
// of the body. It returns the remainder (body without the section or its
// preceding separator), the recovered text blocks, and the recovered
// attachment references.
func splitUserSection(body string) (string, []string, []models.AttachmentReference) {
	lines := strings.Split(body, "\n")

	start := -1
	for i, line := range lines {
		if strings.TrimSpace(line) == UserNotesHeading {
			start = i
			break
		}
	}
	if start < 0 {
		return body, nil, nil
	}

	// Strip the separator and blank lines immediately before the heading;
	// they belong to the reserved markup, not to either body.
	end := start
	for end > 0 && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	if end > 0 && strings.TrimSpace(lines[end-1]) == sectionSeparator {
		end--
	}
	for end > 0 && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	remainder := strings.Join(lines[:end], "\n")

	section := lines[start+1:]
	attachStart := -1
	for i, line := range section {
		if strings.TrimSpace(line) == UserAttachmentsHeading {
			attachStart = i
			break
		}
	}

	textLines := section
	var attach []models.AttachmentReference
	if attachStart >= 0 {
		textLines = append([]string(nil), section[:attachStart]...)
		// Only pure embed lines belong to the attachments list. Anything
		// else below the heading is user text, appended after the last
		// merge, and must survive like any other user content.
		for _, line := range section[attachStart+1:] {
			if parser.IsEmbedLine(line) {
				attach = append(attach, parser.Attachments(line)...)
				continue
			}
			textLines = append(textLines, line)
		}
	}

	return remainder, splitParagraphs(textLines), attach
}

// scanBlocks walks the existing body and collects contiguous runs of
// lines absent from the fresh line set. Interior blank lines stay inside
// a block; a line that reappears in the fresh set closes the block.
func (m *Merger) scanBlocks(body string, freshLines map[string]struct{}) []string {
	var blocks []string
	var current []string

	closeBlock := func() {
		for len(current) > 0 && current[len(current)-1] == "" {
			current = current[:len(current)-1]
		}
		if len(current) > 0 {
			blocks = append(blocks, strings.Join(current, "\n"))
		}
		current = nil
	}

	for _, line := range strings.Split(body, "\n") {
		t := strings.TrimSpace(line)
		if t == "" {
			if len(current) > 0 {
				current = append(current, "")
			}
			continue
		}
		if _, inFresh := freshLines[t]; inFresh {
			closeBlock()
			continue
		}
		if _, isNoise := m.noise[t]; isNoise {
			closeBlock()
			continue
		}
		if parser.IsEmbedLine(line) {
			// Pure embed lines are the attachment scan's business.
			closeBlock()
			continue
		}
		current = append(current, line)
	}
	closeBlock()

	return blocks
}

// scanAttachments returns embeds present in the existing body that are
// neither in the fresh body nor under the module's attachments prefix.
func scanAttachments(existingBody, freshBody, attachPrefix string) []models.AttachmentReference {
	freshPaths := make(map[string]struct{})
	for _, ref := range parser.Attachments(freshBody) {
		freshPaths[ref.Path] = struct{}{}
	}

	var out []models.AttachmentReference
	for _, ref := range parser.Attachments(existingBody) {
		if _, ok := freshPaths[ref.Path]; ok {
			continue
		}
		if attachPrefix != "" && strings.HasPrefix(ref.Path, attachPrefix) {
			continue
		}
		out = append(out, ref)
	}
	return out
}

func splitParagraphs(lines []string) []string {
	var out []string
	var current []string
	flush := func() {
		if len(current) > 0 {
			out = append(out, strings.Join(current, "\n"))
			current = nil
		}
	}
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return out
}

func dedupeBlocks(groups ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, g := range groups {
		for _, b := range g {
			if _, dup := seen[b]; dup {
				continue
			}
			seen[b] = struct{}{}
			out = append(out, b)
		}
	}
	return out
}

func appendAttachments(dst, src []models.AttachmentReference) []models.AttachmentReference {
	seen := make(map[string]struct{}, len(dst))
	for _, ref := range dst {
		seen[ref.FullMatch] = struct{}{}
	}
	for _, ref := range src {
		if _, dup := seen[ref.FullMatch]; dup {
			continue
		}
		seen[ref.FullMatch] = struct{}{}
		dst = append(dst, ref)
	}
	return dst
}

// lineSet returns the set of non-empty trimmed lines in body.
func lineSet(body string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, line := range strings.Split(body, "\n") {
		t := strings.TrimSpace(line)
		if t != "" {
			out[t] = struct{}{}
		}
	}
	return out
}
