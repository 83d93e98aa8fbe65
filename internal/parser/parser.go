// Package parser normalizes heterogeneous Markdown frontmatter into a
// canonical metadata record plus body text.
package parser

import (
	"errors"
	"strings"
)

var (
	// ErrUnterminatedMatter is returned when a frontmatter block opens but
	// its closing delimiter is never found.
	ErrUnterminatedMatter = errors.New("parser: unterminated frontmatter block")
	// ErrMalformedMatter is returned for a line inside a frontmatter block
	// that matches no recognized form.
	ErrMalformedMatter = errors.New("parser: malformed frontmatter")
)

// Result holds the output of parsing a Markdown document.
type Result struct {
	Meta  Metadata
	Raw   map[string]any // fields exactly as written, before mapping/defaulting
	Body  string
	Delim string // delimiter marker that opened the block, "" when none
}

// Metadata is the normalized frontmatter record.
type Metadata struct {
	Title       string
	Description string
	Date        string
	Cover       string
	Tags        []string
	Draft       bool
	Slug        string
	ATURI       string
}

// Parse splits raw document bytes into frontmatter and body and resolves the
// frontmatter through the given field mapping.
//
// A document whose first line is not a recognized delimiter has no
// frontmatter block: the whole input becomes the body, the title derives
// from the first level-1 heading, and every other field keeps its default.
// An opened but unterminated block, or an unrecognizable line inside a
// block, is an explicit parse error.
func Parse(data []byte, fields FieldMap) (*Result, error) {
	raw, body, delim, err := splitMatter(string(data))
	if err != nil {
		return nil, err
	}

	return &Result{
		Meta:  resolveFields(raw, body, fields),
		Raw:   raw,
		Body:  body,
		Delim: delim,
	}, nil
}

// firstHeading returns the text of the first level-1 Markdown heading.
func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
