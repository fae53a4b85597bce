// Package classify inspects an opened archive and decides which note
// sub-format it carries. Detection goes by suffix patterns on entry names;
// anything ambiguous is an explicit error so callers report and skip the
// note instead of guessing.
package classify

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/starford/inksync/internal/apperr"
	"github.com/starford/inksync/internal/archive"
)

// Format identifies one note sub-format.
type Format string

const (
	Handwritten Format = "handwritten"
	Ebook       Format = "ebook"
	Memo        Format = "memo"
	Journal     Format = "journal"
)

// Entry-name suffixes the vendor uses for module metadata.
const (
	SuffixBookBean       = "_BookBean.json"
	SuffixReadNoteBean   = "_ReadNoteBean.json"
	SuffixTextAnnotation = "_PageTextAnnotation.json"
	SuffixHeaderInfo     = "_HeaderInfo.json"
	SuffixNotesBean      = "_NotesBean.json"
	SuffixNoteList       = "_NoteList.json"

	EntryNotesBean   = "NotesBean.json"
	EntryLayoutText  = "LayoutText.json"
	EntryLayoutImage = "LayoutImage.json"
)

// MemoPackage is the package identifier the memo module writes into its
// header metadata.
const MemoPackage = "com.vendor.memo"

// journalNameRe matches the archive's own file name for daily-journal
// notes, e.g. day_2024_3_5.note. The date in the name takes precedence
// over any embedded metadata timestamp.
var journalNameRe = regexp.MustCompile(`^day_(\d{4})_(\d{1,2})_(\d{1,2})\.note$`)

// JournalDate extracts (year, month, day) from a journal archive name.
// ok is false when the name does not match the journal pattern.
func JournalDate(archiveName string) (year, month, day int, ok bool) {
	m := journalNameRe.FindStringSubmatch(archiveName)
	if m == nil {
		return 0, 0, 0, false
	}
	year, _ = strconv.Atoi(m[1])
	month, _ = strconv.Atoi(m[2])
	day, _ = strconv.Atoi(m[3])
	return year, month, day, true
}

// Classify returns exactly one sub-format for the opened archive.
// The reader is consulted only to peek at the memo header's package
// identifier; everything else is entry-name matching.
func Classify(r archive.Reader) (Format, error) {
	if _, _, _, ok := JournalDate(r.Name()); ok {
		return Journal, nil
	}

	names := r.List()

	for _, n := range names {
		if strings.HasSuffix(n, SuffixBookBean) ||
			strings.HasSuffix(n, SuffixReadNoteBean) ||
			strings.HasSuffix(n, SuffixTextAnnotation) ||
			strings.HasSuffix(n, ".epub") {
			return Ebook, nil
		}
	}

	if header := archive.FindBySuffix(names, SuffixHeaderInfo); header != "" {
		var info struct {
			PackageName string `json:"packageName"`
		}
		if err := r.ExtractJSON(header, &info); err != nil {
			return "", fmt.Errorf("classify: peek %s: %w", header, err)
		}
		if info.PackageName == MemoPackage {
			return Memo, nil
		}
		return "", fmt.Errorf("classify: %s: header package %q: %w",
			r.Name(), info.PackageName, apperr.ErrUnrecognizedFormat)
	}

	for _, n := range names {
		if n == EntryNotesBean {
			return Handwritten, nil
		}
	}

	return "", fmt.Errorf("classify: %s: %w", r.Name(), apperr.ErrUnrecognizedFormat)
}
