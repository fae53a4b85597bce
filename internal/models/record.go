// Package models defines the domain types for Inksync.
package models

import "time"

// PageRef ties one source page to its extracted image attachment.
// Image is relative to the note document's own folder so that moving the
// whole output folder does not require rewriting every record.
type PageRef struct {
	Page  int    `json:"page"`
	Image string `json:"image"`
}

// NoteRecord tracks one synchronized note across sync cycles.
type NoteRecord struct {
	// NoteID is the source-system identity; it survives renames.
	NoteID string `json:"note_id"`
	// ExternalFileID is the transport-layer identity; it changes whenever
	// the source file is renamed.
	ExternalFileID string `json:"external_file_id"`
	// NotePath is the current output document path, relative to the vault root.
	NotePath string `json:"note_path"`
	// ArchiveChecksum is the digest of the last synced source archive.
	ArchiveChecksum string    `json:"archive_checksum"`
	CreationTime    time.Time `json:"creation_time"`
	LastModified    time.Time `json:"last_modified"`
	Pages           []PageRef `json:"pages,omitempty"`
}

// AttachmentKind classifies an embedded-resource reference.
type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentAudio AttachmentKind = "audio"
	AttachmentFile  AttachmentKind = "file"
	AttachmentLink  AttachmentKind = "link"
)

// AttachmentReference is a single embedded-resource reference found in
// document text. FullMatch preserves the exact original syntax so the
// reference can be re-emitted unchanged.
type AttachmentReference struct {
	Kind      AttachmentKind `json:"kind"`
	Path      string         `json:"path"`
	FullMatch string         `json:"full_match"`
}

// UserAddedContent is what the merger recovered from an existing document:
// paragraphs and attachment references absent from the freshly rendered body.
type UserAddedContent struct {
	TextBlocks  []string
	Attachments []AttachmentReference
}

// Empty reports whether nothing was recovered.
func (u UserAddedContent) Empty() bool {
	return len(u.TextBlocks) == 0 && len(u.Attachments) == 0
}

// PathChange records one old→new attachment path rewrite during a rename.
type PathChange struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// RenameResult reports the outcome of the rename protocol for one note.
type RenameResult struct {
	Success           bool         `json:"success"`
	OldPath           string       `json:"old_path"`
	NewPath           string       `json:"new_path"`
	UpdatedImagePaths []PathChange `json:"updated_image_paths,omitempty"`
	Errors            []string     `json:"errors,omitempty"`
	Warnings          []string     `json:"warnings,omitempty"`
}
