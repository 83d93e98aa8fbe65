// Package models defines the domain types for Ansuz.
package models

import "time"

// Metadata is the normalized frontmatter of a document. Field names in the
// source file are resolved through a parser.FieldMap before landing here.
type Metadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Date        string   `json:"date"` // ISO YYYY-MM-DD
	Cover       string   `json:"cover,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Draft       bool     `json:"draft"`
	Slug        string   `json:"slug,omitempty"` // explicit override, normalized
	ATURI       string   `json:"atUri,omitempty"`
}

// Document represents one parsed Markdown file in the content directory.
type Document struct {
	Path    string         `json:"-"`    // absolute path on disk
	RelPath string         `json:"path"` // relative to the content root, forward slashes
	Slug    string         `json:"slug"`
	Meta    Metadata       `json:"meta"`
	RawMeta map[string]any `json:"-"` // frontmatter fields before mapping/defaulting
	Body    string         `json:"-"`
	Raw     []byte         `json:"-"` // full file contents, unmodified
	ModTime time.Time      `json:"-"` // file modification time from the scan
}

// Published reports whether the document already carries a remote identity.
func (d *Document) Published() bool {
	return d.Meta.ATURI != ""
}
