package parser

import "time"

// FieldMap maps canonical field names to the source field names used by a
// particular content collection. A mapped name is consulted only when it is
// actually present in the block; otherwise resolution falls back to the
// built-in default name and then the per-field fallback list.
type FieldMap map[string]string

// Canonical field names.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldDate        = "date"
	FieldCover       = "cover"
	FieldTags        = "tags"
	FieldDraft       = "draft"
	FieldSlug        = "slug"
	FieldIdentity    = "atUri"
)

var (
	dateFallbacks  = []string{"published", "publishedAt", "publishDate", "created", "createdAt"}
	coverFallbacks = []string{"image"}
)

// IdentityField returns the source field name carrying the remote identity.
func (m FieldMap) IdentityField() string {
	if m[FieldIdentity] != "" {
		return m[FieldIdentity]
	}
	return FieldIdentity
}

// lookup resolves a canonical field against the raw record: mapped name
// first (only when present), then the canonical name, then fallbacks.
func (m FieldMap) lookup(raw map[string]any, canonical string, fallbacks ...string) (any, bool) {
	if m[canonical] != "" {
		if v, ok := raw[m[canonical]]; ok {
			return v, true
		}
	}
	if v, ok := raw[canonical]; ok {
		return v, true
	}
	for _, name := range fallbacks {
		if v, ok := raw[name]; ok {
			return v, true
		}
	}
	return nil, false
}

func (m FieldMap) lookupString(raw map[string]any, canonical string, fallbacks ...string) string {
	v, ok := m.lookup(raw, canonical, fallbacks...)
	if !ok {
		return ""
	}
	if s, isStr := v.(string); isStr {
		return s
	}
	return ""
}

// resolveFields builds the normalized metadata record from raw frontmatter.
func resolveFields(raw map[string]any, body string, fields FieldMap) Metadata {
	meta := Metadata{}

	meta.Title = fields.lookupString(raw, FieldTitle)
	if meta.Title == "" {
		meta.Title = firstHeading(body)
	}

	meta.Description = fields.lookupString(raw, FieldDescription)
	meta.Cover = fields.lookupString(raw, FieldCover, coverFallbacks...)
	meta.Slug = fields.lookupString(raw, FieldSlug)

	meta.Date = fields.lookupString(raw, FieldDate, dateFallbacks...)
	if meta.Date == "" {
		meta.Date = time.Now().Format("2006-01-02")
	}

	if v, ok := fields.lookup(raw, FieldTags); ok {
		meta.Tags = asStringList(v)
	}

	if v, ok := fields.lookup(raw, FieldDraft); ok {
		if b, isBool := v.(bool); isBool {
			meta.Draft = b
		}
	}

	// The identity field is copied verbatim; later passes rewrite it.
	meta.ATURI = fields.lookupString(raw, fields.IdentityField())

	return meta
}

func asStringList(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	}
	return nil
}
