// Package storage defines the vault file-system abstraction the sync
// engine writes documents and attachments through.
package storage

// Provider is the interface for vault file operations. All paths are
// relative to the vault root.
type Provider interface {
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent folders.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
	// Exists reports whether a regular file exists at path.
	Exists(path string) bool
	// ListDir returns the file names (not paths) directly inside dir,
	// without recursing. A missing dir yields an empty list.
	ListDir(dir string) ([]string, error)
}
