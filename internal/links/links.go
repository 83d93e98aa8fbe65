// Package links rewrites intra-collection Markdown references once their
// targets gain a remote identity, and finds published documents left with
// stale references.
package links

import (
	"regexp"
	"strings"

	"github.com/starford/ansuz/internal/aturi"
	"github.com/starford/ansuz/internal/models"
)

// markdownLinkRe matches [text](target) along with an optional embed prefix.
// Image embeds (!) and mention embeds (@) are captured so they can be left
// untouched.
var markdownLinkRe = regexp.MustCompile(`([!@]?)\[([^\[\]]*)\]\(([^()\s]+)\)`)

// Resolve rewrites every intra-collection reference in body:
//   - target published: replaced with the paired note-collection reference
//     (same authority and record key as the target's identity)
//   - target known but unpublished or draft: the link collapses to its
//     display text
//   - no matching document: left completely unchanged
//
// Embeds and external targets are never rewritten.
func Resolve(body string, docs []*models.Document, noteCollection string) string {
	return markdownLinkRe.ReplaceAllStringFunc(body, func(match string) string {
		sub := markdownLinkRe.FindStringSubmatch(match)
		prefix, text, target := sub[1], sub[2], sub[3]

		if prefix != "" || !intraCollection(target) {
			return match
		}

		doc := findTarget(target, docs)
		if doc == nil {
			return match
		}
		if doc.Meta.Draft || !doc.Published() {
			return text
		}

		uri, err := aturi.Parse(doc.Meta.ATURI)
		if err != nil {
			return text
		}
		return "[" + text + "](" + uri.WithCollection(noteCollection).String() + ")"
	})
}

// Stale returns every already-published, non-draft document outside exclude
// whose body still holds a plain unresolved reference to one of the
// just-published slugs.
func Stale(docs []*models.Document, justPublished []string, exclude map[string]bool) []*models.Document {
	var out []*models.Document
	for _, doc := range docs {
		if exclude[doc.RelPath] || doc.Meta.Draft || !doc.Published() {
			continue
		}
		if referencesAny(doc.Body, justPublished) {
			out = append(out, doc)
		}
	}
	return out
}

func referencesAny(body string, slugs []string) bool {
	for _, sub := range markdownLinkRe.FindAllStringSubmatch(body, -1) {
		prefix, target := sub[1], sub[3]
		if prefix != "" || !intraCollection(target) {
			continue
		}
		norm := normalizeTarget(target)
		for _, slug := range slugs {
			if matches(norm, slug) {
				return true
			}
		}
	}
	return false
}

// intraCollection reports whether a link target could name a local
// document: not an absolute URL, not an in-page anchor, not a mention.
func intraCollection(target string) bool {
	if target == "" {
		return false
	}
	if strings.Contains(target, "://") || strings.HasPrefix(target, "//") {
		return false
	}
	if strings.HasPrefix(target, "#") || strings.HasPrefix(target, "@") {
		return false
	}
	if strings.HasPrefix(target, "mailto:") {
		return false
	}
	return true
}

// normalizeTarget reduces a link target to slug form for comparison.
func normalizeTarget(target string) string {
	for strings.HasPrefix(target, "./") || strings.HasPrefix(target, "../") {
		target = strings.TrimPrefix(target, "./")
		target = strings.TrimPrefix(target, "../")
	}
	if i := strings.IndexAny(target, "#?"); i >= 0 {
		target = target[:i]
	}
	target = strings.TrimPrefix(target, "/")
	target = strings.TrimSuffix(target, "/")
	target = strings.TrimSuffix(target, ".mdx")
	target = strings.TrimSuffix(target, ".md")
	target = strings.TrimSuffix(target, "/index")
	return target
}

// matches compares a normalized target against a slug: exact equality, or
// one being a path-segment suffix of the other. The tolerance covers
// relative versus absolute reference styles.
func matches(target, slug string) bool {
	if target == "" || slug == "" {
		return false
	}
	if target == slug {
		return true
	}
	return strings.HasSuffix(slug, "/"+target) || strings.HasSuffix(target, "/"+slug)
}

// findTarget picks the document a target refers to. Exact slug equality is
// preferred; otherwise the first suffix match in candidate order wins.
func findTarget(target string, docs []*models.Document) *models.Document {
	norm := normalizeTarget(target)
	if norm == "" {
		return nil
	}
	for _, doc := range docs {
		if doc.Slug == norm {
			return doc
		}
	}
	for _, doc := range docs {
		if matches(norm, doc.Slug) {
			return doc
		}
	}
	return nil
}
