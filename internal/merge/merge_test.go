package merge

import (
	"strings"
	"testing"

	"github.com/starford/inksync/internal/parser"
)

const placeholder = "*Add your notes here.*"

func testMerger() *Merger {
	return New(placeholder)
}

func TestPreserve_UserParagraphSurvives(t *testing.T) {
	existing := []byte("---\ntitle: \"Trip\"\n---\n\n# Trip\n\nOriginal line.\n\nMy own thoughts here.\n")
	fresh := []byte("---\ntitle: \"Trip\"\n---\n\n# Trip\n\nOriginal line.\n")

	merged, stats := testMerger().Preserve(existing, fresh, "attachments/")

	if stats.TextBlocks != 1 {
		t.Fatalf("text blocks = %d, want 1", stats.TextBlocks)
	}
	if !strings.Contains(merged, UserNotesHeading) {
		t.Error("merged output missing the user notes heading")
	}
	idx := strings.Index(merged, UserNotesHeading)
	if !strings.Contains(merged[idx:], "My own thoughts here.") {
		t.Error("user paragraph not preserved inside the reserved section")
	}
}

func TestPreserve_HeaderPrecedence(t *testing.T) {
	existing := []byte("---\ntitle: \"Trip\"\nauthor: \"Jane\"\ntotal_pages: 3\n---\n\n# Trip\n")
	fresh := []byte("---\ntitle: \"Trip\"\ntotal_pages: 5\n---\n\n# Trip\n")

	merged, stats := testMerger().Preserve(existing, fresh, "")

	fm, _ := parser.Split([]byte(merged))
	if author, ok := fm.String("author"); !ok || author != "Jane" {
		t.Errorf("author = %q (present %v), want Jane carried forward", author, ok)
	}
	if v, ok := fm.Get("total_pages"); !ok || v != 5 {
		t.Errorf("total_pages = %v, want fresh value 5", v)
	}
	if stats.CarriedKeys != 1 {
		t.Errorf("carried keys = %d, want 1", stats.CarriedKeys)
	}
}

func TestPreserve_TagMerge(t *testing.T) {
	existing := []byte("---\ntags:\n  - 2024-01-01\n  - project-x\n---\n\nBody.\n")
	fresh := []byte("---\ntags:\n  - 2024-03-05\n---\n\nBody.\n")

	merged, _ := testMerger().Preserve(existing, fresh, "")

	fm, _ := parser.Split([]byte(merged))
	tags, _ := fm.StringList("tags")
	got := strings.Join(tags, ",")
	if !strings.Contains(got, "2024-03-05") || !strings.Contains(got, "project-x") {
		t.Errorf("tags = %v, want 2024-03-05 and project-x", tags)
	}
	if strings.Contains(got, "2024-01-01") {
		t.Errorf("tags = %v, stale date tag should be superseded", tags)
	}
}

func TestPreserve_PlaceholderNeverPreserved(t *testing.T) {
	existing := []byte("# Note\n\n" + placeholder + "\n")
	fresh := []byte("# Note\n")

	merged, stats := testMerger().Preserve(existing, fresh, "")

	if stats.TextBlocks != 0 {
		t.Errorf("text blocks = %d, want 0", stats.TextBlocks)
	}
	if strings.Contains(merged, UserNotesHeading) {
		t.Error("placeholder alone must not create a reserved section")
	}
}

func TestPreserve_UserAttachmentKept(t *testing.T) {
	existing := []byte("# Note\n\n![[attachments/trip-page-1-1700.png]]\n\n![[photos/mine.png]]\n")
	fresh := []byte("# Note\n\n![[attachments/trip-page-1-1800.png]]\n")

	merged, stats := testMerger().Preserve(existing, fresh, "attachments/")

	if stats.Attachments != 1 {
		t.Fatalf("attachments = %d, want 1", stats.Attachments)
	}
	if !strings.Contains(merged, UserAttachmentsHeading) {
		t.Error("missing user attachments heading")
	}
	if !strings.Contains(merged, "![[photos/mine.png]]") {
		t.Error("user attachment embed not preserved verbatim")
	}
	if strings.Contains(merged, "trip-page-1-1700") {
		t.Error("superseded module attachment must not be preserved")
	}
}

func TestPreserve_Idempotent(t *testing.T) {
	existing := []byte("---\ntitle: \"Trip\"\nauthor: \"Jane\"\ntags:\n  - 2024-01-01\n  - project-x\n---\n\n# Trip\n\nOriginal line.\n\nMy own thoughts here.\n\n![[photos/mine.png]]\n")
	fresh := []byte("---\ntitle: \"Trip\"\ntags:\n  - 2024-03-05\n---\n\n# Trip\n\nOriginal line.\n")

	m := testMerger()
	first, _ := m.Preserve(existing, fresh, "attachments/")
	second, stats := m.Preserve([]byte(first), fresh, "attachments/")

	if first != second {
		t.Errorf("second merge differs from first:\nfirst:\n%s\nsecond:\n%s", first, second)
	}
	if stats.TextBlocks != 1 || stats.Attachments != 1 {
		t.Errorf("stats drifted on second merge: %+v", stats)
	}
}

func TestPreserve_MultiLineBlockKeepsInteriorBlank(t *testing.T) {
	existing := []byte("# Note\n\nfirst user line\nsecond user line\n\nanother block\n")
	fresh := []byte("# Note\n")

	_, stats := testMerger().Preserve(existing, fresh, "")
	if stats.TextBlocks != 2 {
		t.Errorf("text blocks = %d, want 2", stats.TextBlocks)
	}
}

func TestPreserve_NoUserContentNoSection(t *testing.T) {
	doc := []byte("---\ntitle: \"Same\"\n---\n\n# Same\n\nLine.\n")
	merged, _ := testMerger().Preserve(doc, doc, "")

	if strings.Contains(merged, UserNotesHeading) {
		t.Error("identical documents must not grow a reserved section")
	}
	if merged != string(doc) {
		t.Errorf("merge of identical docs changed content:\n%q\nwant\n%q", merged, doc)
	}
}

func TestMergeTags_NoFreshDateKeepsExistingDate(t *testing.T) {
	got := mergeTags([]string{"memo"}, []string{"2024-01-01", "project-x"})
	joined := strings.Join(got, ",")
	if !strings.Contains(joined, "2024-01-01") {
		t.Errorf("tags = %v: existing date tag must stay when fresh has none", got)
	}
}

func TestPreserve_TextAfterAttachmentSectionSurvives(t *testing.T) {
	existing := []byte("---\ntitle: \"Trip\"\n---\n\nBody line.\n\n---\n\n" +
		"## User Notes\n\nMy note.\n\n### User Attachments\n\n" +
		"![[photos/mine.png]]\n\nA paragraph added at the very end.\n")
	fresh := []byte("---\ntitle: \"Trip\"\n---\n\nBody line.\n")

	m := testMerger()
	merged, stats := m.Preserve(existing, fresh, "attachments/")

	if !strings.Contains(merged, "A paragraph added at the very end.") {
		t.Errorf("trailing paragraph lost:\n%s", merged)
	}
	if !strings.Contains(merged, "My note.") {
		t.Errorf("user note lost:\n%s", merged)
	}
	if !strings.Contains(merged, "![[photos/mine.png]]") {
		t.Errorf("user attachment lost:\n%s", merged)
	}
	if stats.TextBlocks != 2 || stats.Attachments != 1 {
		t.Errorf("stats = %+v, want 2 text blocks and 1 attachment", stats)
	}

	// The recovered paragraph ends up in the text area, so a second merge
	// must be a no-op from here on.
	second, _ := m.Preserve([]byte(merged), fresh, "attachments/")
	if merged != second {
		t.Errorf("second merge differs:\nfirst:\n%s\nsecond:\n%s", merged, second)
	}
}

func TestPreserve_BacklinksBelowAttachmentSectionSurvive(t *testing.T) {
	existing := []byte("---\ntitle: \"Journal 2024-03-05\"\n---\n\nEntry.\n\n---\n\n" +
		"## User Notes\n\n### User Attachments\n\n![[photos/mine.png]]\n\n" +
		"## Linked Notes\n- [[Trip]]\n")
	fresh := []byte("---\ntitle: \"Journal 2024-03-05\"\n---\n\nEntry.\n")

	merged, _ := testMerger().Preserve(existing, fresh, "attachments/")

	if !strings.Contains(merged, "## Linked Notes") || !strings.Contains(merged, "- [[Trip]]") {
		t.Errorf("backlink section lost:\n%s", merged)
	}
	if !strings.Contains(merged, "![[photos/mine.png]]") {
		t.Errorf("user attachment lost:\n%s", merged)
	}
}
