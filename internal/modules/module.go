// Package modules holds one processor per note sub-format. A processor
// turns an opened archive plus prior metadata into attachments, rendered
// documents, and an updated note record.
package modules

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/starford/inksync/internal/archive"
	"github.com/starford/inksync/internal/classify"
	"github.com/starford/inksync/internal/linker"
	"github.com/starford/inksync/internal/merge"
	"github.com/starford/inksync/internal/metastore"
	"github.com/starford/inksync/internal/models"
	"github.com/starford/inksync/internal/rename"
	"github.com/starford/inksync/internal/render"
	"github.com/starford/inksync/internal/storage"
)

// Env is the explicit per-session context handed to every processing
// call. It replaces any module-level shared state: the sync session owns
// it and discards it when the session ends.
type Env struct {
	Cfg      Config
	Docs     storage.Provider
	Store    *metastore.Store
	Renamer  *rename.Detector
	Renderer *render.Engine
	Merger   *merge.Merger
	Linker   *linker.Linker
	Log      *slog.Logger

	// LockNote serializes work on one logical note: every read-then-write
	// against the metadata store for a noteID happens under its lock.
	LockNote func(noteID string) (unlock func())
}

// Result is the structured outcome of processing one note. Processors
// never panic across this boundary; the router converts an escaped panic
// into a failed Result.
type Result struct {
	Success      bool
	Skipped      bool
	CreatedPaths []string
	Errors       []error
	Warnings     []string
}

func failed(err error) Result {
	return Result{Errors: []error{err}}
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Processor is implemented once per sub-format.
type Processor interface {
	Format() classify.Format
	// Process consumes the archive and produces documents. sum is the
	// archive checksum, used to skip unchanged re-syncs.
	Process(ctx context.Context, env *Env, ar archive.Reader, sum string) Result
}

// ForFormat returns the processor handling the given sub-format.
func ForFormat(f classify.Format) (Processor, bool) {
	switch f {
	case classify.Handwritten:
		return handwrittenProcessor{}, true
	case classify.Ebook:
		return ebookProcessor{}, true
	case classify.Memo:
		return memoProcessor{}, true
	case classify.Journal:
		return journalProcessor{}, true
	default:
		return nil, false
	}
}

// resolveTarget resolves the note's identity against prior records and,
// when the tracked path no longer matches, runs the rename protocol
// before anything is regenerated. It returns the (possibly relocated)
// prior record, or nil for a first sync.
//
// A failed rename is fatal for the note: regenerating at the new path
// while the old document still exists would fork the note.
func resolveTarget(env *Env, res *Result, noteID, externalID, newSlug, expectedPath string) (*models.NoteRecord, error) {
	state, rec, err := env.Renamer.Resolve(noteID, expectedPath)
	if err != nil {
		return nil, fmt.Errorf("resolve identity %s: %w", noteID, err)
	}

	switch state {
	case rename.NoPriorRecord:
		return nil, nil
	case rename.PathMatches:
		return rec, nil
	}

	// The tracked attachments carry the authoritative old slug; the
	// document base name does not equal the slug for date-indexed notes.
	oldSlug := SlugFromDocPath(rec.NotePath)
	for _, p := range rec.Pages {
		if s, ok := rename.AttachmentSlug(path.Base(p.Image)); ok {
			oldSlug = s
			break
		}
	}
	rr := env.Renamer.Rename(rec, expectedPath, externalID, oldSlug, newSlug)
	for _, w := range rr.Warnings {
		res.warnf("rename: %s", w)
	}
	if !rr.Success {
		return nil, fmt.Errorf("rename %s -> %s: %s",
			rr.OldPath, rr.NewPath, strings.Join(rr.Errors, "; "))
	}
	// Attachment-level failures do not abort the rename; they surface as
	// warnings on the note.
	for _, e := range rr.Errors {
		res.warnf("rename: %s", e)
	}
	env.Log.Info("note renamed",
		slog.String("note_id", noteID),
		slog.String("old", rr.OldPath),
		slog.String("new", rr.NewPath))
	return rec, nil
}

// unchanged reports whether the archive content is identical to the last
// successful sync of this note, in which case the whole regeneration is
// skipped.
func unchanged(rec *models.NoteRecord, sum, expectedPath string) bool {
	return rec != nil && rec.ArchiveChecksum != "" &&
		rec.ArchiveChecksum == sum && rec.NotePath == expectedPath
}

// writeDoc writes fresh content at docPath, merging with any existing
// document so user additions survive the cycle.
func writeDoc(env *Env, res *Result, docPath, fresh, attachPrefix string) error {
	content := fresh
	if env.Docs.Exists(docPath) {
		existing, err := env.Docs.Read(docPath)
		if err != nil {
			return fmt.Errorf("read existing %s: %w", docPath, err)
		}
		merged, stats := env.Merger.Preserve(existing, []byte(fresh), attachPrefix)
		content = merged
		if stats.TextBlocks > 0 || stats.Attachments > 0 {
			env.Log.Debug("merge preserved user content",
				slog.String("path", docPath),
				slog.Int("text_blocks", stats.TextBlocks),
				slog.Int("attachments", stats.Attachments))
		}
	}
	if err := env.Docs.Write(docPath, []byte(content)); err != nil {
		return fmt.Errorf("write %s: %w", docPath, err)
	}
	res.CreatedPaths = append(res.CreatedPaths, docPath)
	return nil
}
