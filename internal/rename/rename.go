// Package rename reconciles identity drift: a note whose stable identifier
// is already tracked but whose display name changed gets its document,
// attachments, and in-document references relocated before regeneration.
package rename

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"

	"github.com/starford/inksync/internal/apperr"
	"github.com/starford/inksync/internal/metastore"
	"github.com/starford/inksync/internal/models"
	"github.com/starford/inksync/internal/storage"
)

// State is the outcome of resolving a note's identity against the store.
type State int

const (
	// NoPriorRecord means the note was never synced: normal create path.
	NoPriorRecord State = iota
	// PathMatches means the tracked output path already matches: no action.
	PathMatches
	// PathMismatch means the note was previously synced under a different
	// path: the rename protocol must run before regeneration.
	PathMismatch
)

// Attachment naming patterns. Paged attachments embed a page number and a
// timestamp; single attachments embed only a timestamp. The leading group
// is the slug.
var (
	pagedRe  = regexp.MustCompile(`^(.+)-page-(\d+)-(\d+)\.([A-Za-z0-9]+)$`)
	singleRe = regexp.MustCompile(`^(.+)-image-(\d+)\.([A-Za-z0-9]+)$`)
)

// Detector resolves prior identity and runs the rename protocol.
type Detector struct {
	store *metastore.Store
	docs  storage.Provider
	log   *slog.Logger
}

// New creates a Detector.
func New(store *metastore.Store, docs storage.Provider, log *slog.Logger) *Detector {
	return &Detector{store: store, docs: docs, log: log}
}

// Resolve looks up the stable identifier and classifies the situation.
// The returned record is nil only for NoPriorRecord.
func (d *Detector) Resolve(noteID, expectedPath string) (State, *models.NoteRecord, error) {
	rec, err := d.store.FindByNoteID(noteID)
	if errors.Is(err, apperr.ErrNotFound) {
		return NoPriorRecord, nil, nil
	}
	if err != nil {
		return NoPriorRecord, nil, err
	}
	if rec.NotePath == expectedPath {
		return PathMatches, rec, nil
	}
	return PathMismatch, rec, nil
}

// Rename relocates the tracked document from rec.NotePath to newPath,
// renaming slug-scoped attachments and rewriting their in-document embeds
// on the way, then updates the store in one logical transaction.
//
// A missing old document aborts everything: that is a data-integrity
// signal, not something to paper over with a fresh file. Individual
// attachment failures do not stop the document rename; a document at a
// wrong path is worse than an attachment with a stale name.
func (d *Detector) Rename(rec *models.NoteRecord, newPath, newExternalID, oldSlug, newSlug string) *models.RenameResult {
	res := &models.RenameResult{OldPath: rec.NotePath, NewPath: newPath}

	if !d.docs.Exists(rec.NotePath) {
		res.Errors = append(res.Errors,
			fmt.Sprintf("%s: %s", rec.NotePath, apperr.ErrOldDocumentMissing))
		return res
	}

	oldDir := path.Dir(rec.NotePath)
	newDir := path.Dir(newPath)

	// Relocate slug-scoped attachments. Skipped entirely when the slug is
	// unchanged: only the document moves then.
	newPages := make([]models.PageRef, len(rec.Pages))
	copy(newPages, rec.Pages)
	if oldSlug != newSlug {
		for i, page := range rec.Pages {
			renamed, ok := reslug(page.Image, oldSlug, newSlug)
			if !ok {
				continue
			}
			oldVault := path.Join(oldDir, page.Image)
			newVault := path.Join(newDir, renamed)
			if err := d.docs.Move(oldVault, newVault); err != nil {
				res.Errors = append(res.Errors,
					fmt.Sprintf("attachment %s: %v", page.Image, err))
				continue
			}
			newPages[i].Image = renamed
			res.UpdatedImagePaths = append(res.UpdatedImagePaths,
				models.PathChange{Old: page.Image, New: renamed})
		}
	}

	// Rewrite embeds for the attachments that actually moved. Exact embed
	// syntax substitution only, so unrelated text cannot be corrupted.
	// An unreadable body does not stop the document move: a document at
	// a stale path is worse than stale embeds inside it.
	var body string
	bodyChanged := false
	data, err := d.docs.Read(rec.NotePath)
	if err != nil {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("embed rewrite skipped: read %s: %v", rec.NotePath, err))
	} else {
		body = string(data)
		for _, change := range res.UpdatedImagePaths {
			body = strings.ReplaceAll(body,
				"![["+change.Old+"]]", "![["+change.New+"]]")
		}
		bodyChanged = body != string(data)
	}

	if err := d.docs.Move(rec.NotePath, newPath); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("move document: %v", err))
		return res
	}

	if bodyChanged {
		if err := d.docs.Write(newPath, []byte(body)); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("rewrite %s: %v", newPath, err))
		}
	}

	updated := &models.NoteRecord{
		NoteID:          rec.NoteID,
		ExternalFileID:  newExternalID,
		NotePath:        newPath,
		ArchiveChecksum: rec.ArchiveChecksum,
		CreationTime:    rec.CreationTime,
		LastModified:    rec.LastModified,
		Pages:           newPages,
	}
	if err := d.store.Rename(rec.NotePath, updated); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("update store: %v", err))
		return res
	}

	res.Success = true
	rec.NotePath = newPath
	rec.ExternalFileID = newExternalID
	rec.Pages = newPages

	d.cleanupOrphans(newDir, oldSlug, newPages, res)

	return res
}

// AttachmentSlug extracts the slug prefix from an attachment file name
// matching one of the recognized patterns. Attachment names carry the
// authoritative slug: for date-indexed documents the base file name and
// the slug differ.
func AttachmentSlug(name string) (string, bool) {
	if m := pagedRe.FindStringSubmatch(name); m != nil {
		return m[1], true
	}
	if m := singleRe.FindStringSubmatch(name); m != nil {
		return m[1], true
	}
	return "", false
}

// reslug renames the base file name from oldSlug to newSlug when it
// matches one of the two recognized attachment patterns and carries the
// old slug. The page number and timestamp suffix are kept exactly.
func reslug(rel, oldSlug, newSlug string) (string, bool) {
	dir := path.Dir(rel)
	base := path.Base(rel)

	var renamed string
	if m := pagedRe.FindStringSubmatch(base); m != nil && m[1] == oldSlug {
		renamed = fmt.Sprintf("%s-page-%s-%s.%s", newSlug, m[2], m[3], m[4])
	} else if m := singleRe.FindStringSubmatch(base); m != nil && m[1] == oldSlug {
		renamed = fmt.Sprintf("%s-image-%s.%s", newSlug, m[2], m[3])
	} else {
		return "", false
	}

	if dir == "." {
		return renamed, true
	}
	return path.Join(dir, renamed), true
}

// cleanupOrphans deletes older attachment variants still carrying the old
// slug when a renamed counterpart exists. Best-effort and bounded to the
// attachment folders the note actually uses; failures are logged, never
// surfaced.
func (d *Detector) cleanupOrphans(noteDir, oldSlug string, pages []models.PageRef, res *models.RenameResult) {
	dirs := make(map[string]struct{})
	livePages := make(map[string]struct{})
	current := make(map[string]struct{})
	for _, p := range pages {
		dirs[path.Dir(p.Image)] = struct{}{}
		current[p.Image] = struct{}{}
		if m := pagedRe.FindStringSubmatch(path.Base(p.Image)); m != nil {
			livePages[m[2]] = struct{}{}
		}
	}

	for dir := range dirs {
		vaultDir := path.Join(noteDir, dir)
		names, err := d.docs.ListDir(vaultDir)
		if err != nil {
			d.log.Warn("rename: orphan scan failed",
				slog.String("dir", vaultDir), slog.String("error", err.Error()))
			continue
		}
		for _, name := range names {
			rel := name
			if dir != "." {
				rel = path.Join(dir, name)
			}
			// A tracked attachment is never an orphan, even when its own
			// rename failed and it still carries the old slug.
			if _, live := current[rel]; live {
				continue
			}
			if !orphaned(name, oldSlug, livePages) {
				continue
			}
			target := path.Join(vaultDir, name)
			if err := d.docs.Delete(target); err != nil {
				d.log.Warn("rename: orphan delete failed",
					slog.String("path", target), slog.String("error", err.Error()))
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("orphan %s: %v", target, err))
			}
		}
	}
}

// orphaned reports whether name is an old-slug attachment superseded by a
// renamed live page (paged pattern) or a renamed single attachment.
func orphaned(name, oldSlug string, livePages map[string]struct{}) bool {
	if m := pagedRe.FindStringSubmatch(name); m != nil && m[1] == oldSlug {
		_, live := livePages[m[2]]
		return live
	}
	if m := singleRe.FindStringSubmatch(name); m != nil && m[1] == oldSlug {
		return true
	}
	return false
}
