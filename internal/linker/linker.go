// Package linker opportunistically cross-references synced notes with the
// date-indexed journal documents. Everything here is best-effort: a
// failure is logged and swallowed, never surfaced to the sync result.
package linker

import (
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/starford/inksync/internal/storage"
)

// LinkedNotesHeading marks the journal section the linker appends under.
const LinkedNotesHeading = "## Linked Notes"

// Linker appends backlinks into journal documents.
type Linker struct {
	docs          storage.Provider
	journalFolder string
	log           *slog.Logger
}

// New creates a Linker writing into journalFolder.
func New(docs storage.Provider, journalFolder string, log *slog.Logger) *Linker {
	return &Linker{docs: docs, journalFolder: journalFolder, log: log}
}

// Link appends a backlink to notePath into the journal document for day.
// A missing journal document is skipped quietly: the journal module owns
// its creation. The appended lines live outside the fresh render, so the
// content merger preserves them across subsequent journal syncs.
func (l *Linker) Link(notePath string, day time.Time) {
	if l == nil || l.journalFolder == "" {
		return
	}

	journalPath := path.Join(l.journalFolder, day.Format("2006-01-02")+".md")
	if !l.docs.Exists(journalPath) {
		l.log.Debug("linker: no journal document", slog.String("path", journalPath))
		return
	}

	data, err := l.docs.Read(journalPath)
	if err != nil {
		l.log.Warn("linker: read failed",
			slog.String("path", journalPath), slog.String("error", err.Error()))
		return
	}

	target := strings.TrimSuffix(path.Base(notePath), ".md")
	link := "- [[" + target + "]]"
	body := string(data)
	if strings.Contains(body, "[["+target+"]]") {
		return
	}

	if !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	if !strings.Contains(body, LinkedNotesHeading) {
		body += "\n" + LinkedNotesHeading + "\n"
	}
	body += link + "\n"

	if err := l.docs.Write(journalPath, []byte(body)); err != nil {
		l.log.Warn("linker: write failed",
			slog.String("path", journalPath), slog.String("error", err.Error()))
		return
	}
	l.log.Debug("linker: linked",
		slog.String("note", notePath), slog.String("journal", journalPath))
}
