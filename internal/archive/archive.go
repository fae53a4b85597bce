// Package archive reads the vendor note containers. A container is a plain
// ZIP file whose entry names drive format classification; this package only
// opens, lists, and extracts; interpreting the entries is the processors' job.
package archive

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/starford/inksync/internal/apperr"
)

// Reader is the read surface the sync engine depends on. Concrete readers
// are created per archive and closed when the note is done.
type Reader interface {
	// Name returns the archive's own file name (base name, with extension).
	Name() string
	// List returns every entry name inside the container.
	List() []string
	// Has reports whether an entry with the exact name exists.
	Has(name string) bool
	// Extract returns the raw bytes of the named entry.
	Extract(name string) ([]byte, error)
	// ExtractJSON extracts the named entry and unmarshals it into v.
	ExtractJSON(name string, v any) error
	Close() error
}

type zipReader struct {
	name string
	rc   *zip.ReadCloser
}

// Open opens the ZIP container at path.
func Open(path string) (Reader, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", path, err)
	}
	name := path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		name = path[i+1:]
	}
	return &zipReader{name: name, rc: rc}, nil
}

func (z *zipReader) Name() string { return z.name }

func (z *zipReader) List() []string {
	out := make([]string, 0, len(z.rc.File))
	for _, f := range z.rc.File {
		out = append(out, f.Name)
	}
	return out
}

func (z *zipReader) Has(name string) bool {
	return z.find(name) != nil
}

func (z *zipReader) find(name string) *zip.File {
	for _, f := range z.rc.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (z *zipReader) Extract(name string) ([]byte, error) {
	f := z.find(name)
	if f == nil {
		return nil, fmt.Errorf("archive: entry %q in %s: %w", name, z.name, apperr.ErrMissingEntry)
	}
	r, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("archive: open entry %q: %w", name, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("archive: read entry %q: %w", name, err)
	}
	return data, nil
}

func (z *zipReader) ExtractJSON(name string, v any) error {
	data, err := z.Extract(name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("archive: decode entry %q: %w", name, err)
	}
	return nil
}

func (z *zipReader) Close() error {
	return z.rc.Close()
}

// FindBySuffix returns the first entry name ending in suffix, or "".
// The vendor prefixes metadata entries with the note's display name, so
// lookups go by suffix rather than exact name.
func FindBySuffix(names []string, suffix string) string {
	for _, n := range names {
		if strings.HasSuffix(n, suffix) {
			return n
		}
	}
	return ""
}
