package linker_test

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/starford/inksync/internal/linker"
	"github.com/starford/inksync/internal/storage"
	"github.com/starford/inksync/internal/testutil"
)

var day = time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC)

func newLinker(t *testing.T) (*linker.Linker, storage.Provider) {
	t.Helper()
	_, docs := testutil.TestVault(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return linker.New(docs, "Journal", log), docs
}

func TestLink_AppendsHeadingAndLink(t *testing.T) {
	l, docs := newLinker(t)
	if err := docs.Write("Journal/2024-03-05.md", []byte("# Tuesday\n\nEntry text.\n")); err != nil {
		t.Fatal(err)
	}

	l.Link("Notes/Trip.md", day)

	data, err := docs.Read("Journal/2024-03-05.md")
	if err != nil {
		t.Fatal(err)
	}
	body := string(data)
	if !strings.Contains(body, linker.LinkedNotesHeading) {
		t.Errorf("heading missing:\n%s", body)
	}
	if !strings.Contains(body, "- [[Trip]]") {
		t.Errorf("link missing:\n%s", body)
	}
	if !strings.HasPrefix(body, "# Tuesday") {
		t.Errorf("original content disturbed:\n%s", body)
	}
}

func TestLink_SecondNoteReusesHeading(t *testing.T) {
	l, docs := newLinker(t)
	if err := docs.Write("Journal/2024-03-05.md", []byte("Entry.\n")); err != nil {
		t.Fatal(err)
	}

	l.Link("Notes/Trip.md", day)
	l.Link("Books/Novel.md", day)

	data, err := docs.Read("Journal/2024-03-05.md")
	if err != nil {
		t.Fatal(err)
	}
	body := string(data)
	if strings.Count(body, linker.LinkedNotesHeading) != 1 {
		t.Errorf("heading duplicated:\n%s", body)
	}
	if !strings.Contains(body, "- [[Trip]]") || !strings.Contains(body, "- [[Novel]]") {
		t.Errorf("links missing:\n%s", body)
	}
}

func TestLink_Deduplicates(t *testing.T) {
	l, docs := newLinker(t)
	if err := docs.Write("Journal/2024-03-05.md", []byte("Entry.\n")); err != nil {
		t.Fatal(err)
	}

	l.Link("Notes/Trip.md", day)
	l.Link("Notes/Trip.md", day)

	data, err := docs.Read("Journal/2024-03-05.md")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(string(data), "[[Trip]]") != 1 {
		t.Errorf("link duplicated:\n%s", data)
	}
}

func TestLink_MissingJournalIsNoOp(t *testing.T) {
	l, docs := newLinker(t)

	l.Link("Notes/Trip.md", day)

	if docs.Exists("Journal/2024-03-05.md") {
		t.Error("linker must not create journal documents")
	}
}
