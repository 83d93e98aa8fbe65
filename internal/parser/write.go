package parser

import (
	"fmt"
	"strings"
)

// WriteIdentity inserts or replaces the remote-identity field in a
// document's frontmatter and returns the rewritten contents. Every other
// byte of the document is preserved. A document without a frontmatter block
// gets a new "---" block prepended.
func WriteIdentity(data []byte, field, uri string) []byte {
	text := string(data)
	fam := familyFor(text)
	if fam == nil {
		block := fmt.Sprintf("---\n%s: %s\n---\n", field, uri)
		return []byte(block + text)
	}

	line := assignLine(fam, field, uri)
	lines := strings.Split(text, "\n")

	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], "\r") == fam.Marker {
			// Closing delimiter reached without finding the field.
			lines = append(lines[:i], append([]string{line}, lines[i:]...)...)
			return []byte(strings.Join(lines, "\n"))
		}
		if key, _, ok := splitAssign(strings.TrimRight(lines[i], "\r"), fam.Assign); ok && key == field {
			lines[i] = line
			return []byte(strings.Join(lines, "\n"))
		}
	}

	// Unterminated block; leave the document untouched.
	return data
}

func assignLine(fam *family, field, value string) string {
	if fam.Assign == '=' {
		return fmt.Sprintf("%s = %s", field, value)
	}
	return fmt.Sprintf("%s: %s", field, value)
}
