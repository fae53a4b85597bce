package parser

import (
	"testing"

	"github.com/starford/inksync/internal/models"
)

func TestSplit_HeaderAndBody(t *testing.T) {
	input := []byte("---\ntitle: Hello\ntags:\n  - go\n---\n\n# Hello\nBody text.\n")
	fm, body := Split(input)

	if title, ok := fm.String("title"); !ok || title != "Hello" {
		t.Errorf("title = %q, want Hello", title)
	}
	if fm.Raw != "title: Hello\ntags:\n  - go" {
		t.Errorf("raw = %q", fm.Raw)
	}
	if body != "\n# Hello\nBody text.\n" {
		t.Errorf("body = %q", body)
	}
	// Reconstruction must be exact: the merger splices raw text back.
	rebuilt := "---\n" + fm.Raw + "\n---\n" + body
	if rebuilt != string(input) {
		t.Errorf("reconstruction mismatch: %q", rebuilt)
	}
}

func TestSplit_NoHeader(t *testing.T) {
	input := []byte("# Just a heading\nSome text.\n")
	fm, body := Split(input)
	if fm.Raw != "" || fm.Parsed != nil {
		t.Errorf("expected zero frontmatter, got %+v", fm)
	}
	if body != string(input) {
		t.Errorf("body = %q", body)
	}
}

func TestSplit_InvalidYAMLKeepsRaw(t *testing.T) {
	input := []byte("---\n{{{\n---\nBody\n")
	fm, body := Split(input)
	if fm.Raw == "" {
		t.Error("raw header should survive invalid YAML")
	}
	if _, ok := fm.Get("anything"); ok {
		t.Error("invalid YAML must expose no parsed keys")
	}
	if body != "Body\n" {
		t.Errorf("body = %q", body)
	}
}

func TestStringList_CoercesScalar(t *testing.T) {
	fm, _ := Split([]byte("---\ntags: solo\n---\nx\n"))
	tags, ok := fm.StringList("tags")
	if !ok || len(tags) != 1 || tags[0] != "solo" {
		t.Errorf("tags = %v (%v)", tags, ok)
	}
}

func TestAttachments(t *testing.T) {
	body := "Intro\n" +
		"![[attachments/trip-page-1-1700.png]]\n" +
		"![alt](images/photo.jpg)\n" +
		"![[voice/memo.m4a]]\n" +
		"[report](files/report.pdf)\n" +
		"[site](https://example.com/page)\n"

	refs := Attachments(body)
	if len(refs) != 5 {
		t.Fatalf("refs = %d, want 5: %+v", len(refs), refs)
	}

	byPath := make(map[string]models.AttachmentReference)
	for _, r := range refs {
		byPath[r.Path] = r
	}

	if byPath["attachments/trip-page-1-1700.png"].Kind != models.AttachmentImage {
		t.Error("wiki embed png should be image")
	}
	if byPath["attachments/trip-page-1-1700.png"].FullMatch != "![[attachments/trip-page-1-1700.png]]" {
		t.Errorf("full match = %q", byPath["attachments/trip-page-1-1700.png"].FullMatch)
	}
	if byPath["images/photo.jpg"].Kind != models.AttachmentImage {
		t.Error("markdown embed jpg should be image")
	}
	if byPath["voice/memo.m4a"].Kind != models.AttachmentAudio {
		t.Error("m4a should be audio")
	}
	if byPath["files/report.pdf"].Kind != models.AttachmentFile {
		t.Error("pdf should be file")
	}
	if byPath["https://example.com/page"].Kind != models.AttachmentLink {
		t.Error("http target should be link")
	}
}

func TestAttachments_AliasEmbed(t *testing.T) {
	refs := Attachments("![[attachments/a.png|300]]\n")
	if len(refs) != 1 || refs[0].Path != "attachments/a.png" {
		t.Fatalf("refs = %+v", refs)
	}
	if refs[0].FullMatch != "![[attachments/a.png|300]]" {
		t.Errorf("full match = %q", refs[0].FullMatch)
	}
}

func TestIsEmbedLine(t *testing.T) {
	cases := []struct {
		line string
		want bool
	}{
		{"![[attachments/a.png]]", true},
		{"  ![[attachments/a.png]]  ", true},
		{"![alt](a.png)", true},
		{"text with ![[a.png]] inside", false},
		{"plain text", false},
		{"", false},
	}
	for _, c := range cases {
		if got := IsEmbedLine(c.line); got != c.want {
			t.Errorf("IsEmbedLine(%q) = %v, want %v", c.line, got, c.want)
		}
	}
}
