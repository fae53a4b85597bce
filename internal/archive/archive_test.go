package archive_test

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/starford/inksync/internal/apperr"
	"github.com/starford/inksync/internal/archive"
	"github.com/starford/inksync/internal/testutil"
)

func TestOpenAndExtract(t *testing.T) {
	path := testutil.WriteArchive(t, t.TempDir(), "trip.note", map[string][]byte{
		"NotesBean.json": []byte(`{"noteId":"n1","pageCount":2}`),
		"1.png":          {0x89, 0x50},
	})

	r, err := archive.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if r.Name() != "trip.note" {
		t.Errorf("name = %q", r.Name())
	}

	names := r.List()
	sort.Strings(names)
	if len(names) != 2 || names[0] != "1.png" || names[1] != "NotesBean.json" {
		t.Errorf("names = %v", names)
	}

	if !r.Has("1.png") || r.Has("2.png") {
		t.Error("Has gave wrong answers")
	}

	data, err := r.Extract("1.png")
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 2 || data[0] != 0x89 {
		t.Errorf("extracted %v", data)
	}

	var bean struct {
		NoteID    string `json:"noteId"`
		PageCount int    `json:"pageCount"`
	}
	if err := r.ExtractJSON("NotesBean.json", &bean); err != nil {
		t.Fatal(err)
	}
	if bean.NoteID != "n1" || bean.PageCount != 2 {
		t.Errorf("bean = %+v", bean)
	}
}

func TestExtractMissingEntry(t *testing.T) {
	path := testutil.WriteArchive(t, t.TempDir(), "trip.note", map[string][]byte{
		"NotesBean.json": []byte(`{}`),
	})
	r, err := archive.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if _, err := r.Extract("absent.json"); !errors.Is(err, apperr.ErrMissingEntry) {
		t.Errorf("err = %v, want ErrMissingEntry", err)
	}
}

func TestOpenNotAZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.note")
	if err := os.WriteFile(path, []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := archive.Open(path); err == nil {
		t.Error("expected error for corrupt container")
	}
}

func TestFindBySuffix(t *testing.T) {
	names := []string{"1.png", "novel_BookBean.json", "novel_ReadNoteBean.json"}
	if got := archive.FindBySuffix(names, "_BookBean.json"); got != "novel_BookBean.json" {
		t.Errorf("got %q", got)
	}
	if got := archive.FindBySuffix(names, "_HeaderInfo.json"); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}
