package parser

import (
	"strings"
)

// family describes one frontmatter delimiter style: a three-character marker
// alone on its own line, plus the assignment character used inside the block.
type family struct {
	Marker string
	Assign byte
}

// Families lists the recognized delimiter styles in detection order.
var Families = []family{
	{Marker: "---", Assign: ':'},
	{Marker: "+++", Assign: '='},
	{Marker: ";;;", Assign: ':'},
}

// familyFor returns the delimiter family whose marker opens the given text,
// or nil when the text does not start with a frontmatter block.
func familyFor(text string) *family {
	first, _, _ := strings.Cut(text, "\n")
	first = strings.TrimRight(first, "\r")
	for i := range Families {
		if first == Families[i].Marker {
			return &Families[i]
		}
	}
	return nil
}

// splitMatter separates the frontmatter block from the body. When no
// recognized marker opens the text the whole input is body and the returned
// map is nil.
func splitMatter(text string) (map[string]any, string, string, error) {
	fam := familyFor(text)
	if fam == nil {
		return nil, text, "", nil
	}

	lines := strings.Split(text, "\n")
	closing := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], "\r") == fam.Marker {
			closing = i
			break
		}
	}
	if closing < 0 {
		return nil, "", "", ErrUnterminatedMatter
	}

	raw, err := parseBlock(lines[1:closing], fam.Assign)
	if err != nil {
		return nil, "", "", err
	}

	body := strings.Join(lines[closing+1:], "\n")
	body = strings.TrimLeft(body, "\r\n")
	return raw, body, fam.Marker, nil
}

// parseBlock tokenizes the lines between the delimiters. Each line is a
// scalar assignment, an inline list, a block-list key, a block literal or
// folded string, or blank/comment. Anything else is malformed.
func parseBlock(lines []string, assign byte) (map[string]any, error) {
	out := make(map[string]any)

	for i := 0; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if isIndented(line) {
			// Continuation lines are consumed by their key below; a
			// stray indented line has no key to attach to.
			return nil, ErrMalformedMatter
		}

		key, value, ok := splitAssign(line, assign)
		if !ok {
			return nil, ErrMalformedMatter
		}

		switch {
		case value == "|" || value == ">":
			text, rest := collectIndented(lines[i+1:])
			i += rest
			if value == "|" {
				out[key] = strings.Join(text, "\n")
			} else {
				out[key] = strings.Join(text, " ")
			}

		case value == "":
			items, rest := collectListItems(lines[i+1:])
			i += rest
			if items != nil {
				out[key] = items
			} else {
				out[key] = ""
			}

		case strings.HasPrefix(value, "[") && strings.HasSuffix(value, "]"):
			out[key] = parseInlineList(value)

		default:
			out[key] = parseScalar(value)
		}
	}

	return out, nil
}

// splitAssign breaks "key: value" (or "key = value") into its parts.
func splitAssign(line string, assign byte) (string, string, bool) {
	idx := strings.IndexByte(line, assign)
	if idx <= 0 {
		return "", "", false
	}
	key := strings.TrimSpace(line[:idx])
	if key == "" || strings.ContainsAny(key, " \t") {
		return "", "", false
	}
	return key, strings.TrimSpace(line[idx+1:]), true
}

// collectIndented gathers the indented continuation lines of a block
// literal/folded string and returns them dedented along with the number of
// source lines consumed.
func collectIndented(lines []string) ([]string, int) {
	var out []string
	n := 0
	for _, l := range lines {
		l = strings.TrimRight(l, "\r")
		if l != "" && !isIndented(l) {
			break
		}
		n++
		if l == "" {
			out = append(out, "")
			continue
		}
		out = append(out, strings.TrimSpace(l))
	}
	// Trailing blank continuation lines belong to the body, not the value.
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out, n
}

// collectListItems gathers indented "- item" lines following a bare key.
// Returns nil when the key has no items at all.
func collectListItems(lines []string) ([]string, int) {
	var out []string
	n := 0
	for _, l := range lines {
		l = strings.TrimRight(l, "\r")
		trimmed := strings.TrimSpace(l)
		if !isIndented(l) || !strings.HasPrefix(trimmed, "- ") {
			break
		}
		n++
		item := unquote(strings.TrimSpace(strings.TrimPrefix(trimmed, "- ")))
		if item != "" {
			out = append(out, item)
		}
	}
	return out, n
}

// parseInlineList parses "[a, b, "c"]" into a string slice.
func parseInlineList(value string) []string {
	inner := strings.TrimSpace(value[1 : len(value)-1])
	if inner == "" {
		return []string{}
	}
	parts := strings.Split(inner, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		item := unquote(strings.TrimSpace(p))
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parseScalar strips one layer of matching quotes and recognizes bare
// booleans. Every other value stays a string; numbers and dates are not
// coerced.
func parseScalar(value string) any {
	switch value {
	case "true":
		return true
	case "false":
		return false
	}
	return unquote(value)
}

// unquote removes one layer of surrounding matching quotes.
func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '"' || first == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func isIndented(line string) bool {
	return strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
}
