package checksum

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSumStable(t *testing.T) {
	a := Sum([]byte("hello"))
	b := Sum([]byte("hello"))
	if a != b {
		t.Errorf("same input, different digests: %s vs %s", a, b)
	}
	if a == Sum([]byte("hello!")) {
		t.Error("different inputs share a digest")
	}
	if len(a) != 64 {
		t.Errorf("digest length = %d, want 64 hex chars", len(a))
	}
}

func TestFileMatchesSum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.note")
	content := []byte("archive bytes")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := File(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != Sum(content) {
		t.Errorf("File = %s, Sum = %s", got, Sum(content))
	}
}

func TestFileMissing(t *testing.T) {
	if _, err := File(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing file")
	}
}
