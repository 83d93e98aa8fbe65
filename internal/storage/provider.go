// Package storage defines the content-directory file-system abstraction.
package storage

import "time"

// FileInfo describes one content file found by List.
type FileInfo struct {
	Path     string // relative to content root, forward slashes
	Checksum string
	Size     int64
	ModTime  time.Time
}

// Provider is the interface for content directory operations.
type Provider interface {
	// List walks the content root and returns every Markdown file not
	// matched by an exclusion pattern.
	List() ([]FileInfo, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
	// Exists reports whether path exists on disk (relative to root).
	Exists(path string) bool
	// Root returns the absolute content root directory.
	Root() string
}
