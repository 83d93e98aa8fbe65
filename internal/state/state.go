// Package state persists the ledger of previously published documents.
//
// The remote store, not this file, is the source of truth for what has been
// published; the ledger only exists to avoid redundant writes. A missing or
// corrupt file therefore loads as an empty mapping instead of failing the
// run.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Entry records what was last published for one document, keyed by the
// document's path relative to the content root.
//
// An empty Hash is a valid placeholder meaning "unverified": the entry
// exists but the document republishes whenever asked.
type Entry struct {
	Hash        string `json:"hash"`
	ATURI       string `json:"atUri"`
	PublishedAt string `json:"publishedAt"`
	Slug        string `json:"slug"`
	SocialURI   string `json:"socialUri,omitempty"`
}

// File is the on-disk state mapping. Mutations happen in-memory during a
// run and are persisted once by Save.
type File struct {
	path  string
	Posts map[string]Entry `json:"posts"`
}

// Load reads the state file at path. A missing or corrupt file yields an
// empty mapping; genuine I/O failures still error.
func Load(path string) (*File, error) {
	f := &File{path: path, Posts: make(map[string]Entry)}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("state: read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, f); err != nil {
		// Corrupt ledger: start over, the remote listing will reconcile.
		f.Posts = make(map[string]Entry)
		return f, nil
	}
	if f.Posts == nil {
		f.Posts = make(map[string]Entry)
	}
	return f, nil
}

// Get returns the entry for a relative path.
func (f *File) Get(relPath string) (Entry, bool) {
	e, ok := f.Posts[relPath]
	return e, ok
}

// Set stores the entry for a relative path.
func (f *File) Set(relPath string, e Entry) {
	f.Posts[relPath] = e
}

// Delete removes the entry for a relative path.
func (f *File) Delete(relPath string) {
	delete(f.Posts, relPath)
}

// Save writes the mapping atomically: temp file in the same directory,
// fsync, rename. A crash mid-run never corrupts the previous state.
func (f *File) Save() error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("state: marshal: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("state: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".ansuz-state-*")
	if err != nil {
		return fmt.Errorf("state: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("state: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("state: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("state: close temp: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("state: rename: %w", err)
	}
	success = true
	return nil
}
