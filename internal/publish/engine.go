// Package publish implements the multi-pass reconciliation engine that
// keeps the remote record store in step with the local content directory.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/starford/ansuz/internal/aturi"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/links"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/state"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/store"
)

// Config holds the engine's collection wiring.
type Config struct {
	Collection     string // primary document records
	NoteCollection string // derived note records, keyed to the primary rkey
	Fields         parser.FieldMap
}

// Engine orchestrates one publish cycle: scan, diff, ordered remote
// writes, deletions, and the state commit. Documents are processed
// sequentially within each pass; a primary record always exists before the
// secondary record that depends on its identity.
type Engine struct {
	content storage.Provider
	st      *state.File
	client  *store.Lazy
	cfg     Config
	logger  *slog.Logger
	notify  func(kind, path string)
}

// New creates an engine over the given collaborators.
func New(content storage.Provider, st *state.File, client *store.Lazy, cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{content: content, st: st, client: client, cfg: cfg, logger: logger}
}

// OnEvent registers a callback invoked after each committed remote change.
// kind is one of "published", "deleted".
func (e *Engine) OnEvent(fn func(kind, path string)) {
	e.notify = fn
}

// Options control one publish run.
type Options struct {
	Force  bool // republish regardless of fingerprints
	DryRun bool // compute and report the plan, mutate nothing
}

// ActionRecord is the per-document outcome of a run, fed to the journal.
type ActionRecord struct {
	Path   string `json:"path"`
	Slug   string `json:"slug"`
	Action string `json:"action"`
	Reason string `json:"reason"`
	URI    string `json:"uri,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Result is the outcome of one run.
type Result struct {
	Summary Summary        `json:"summary"`
	Actions []ActionRecord `json:"actions"`
	DryRun  bool           `json:"dryRun"`
}

// pass5Write tracks a primary record written in pass 5 for the later
// passes.
type pass5Write struct {
	doc     *models.Document
	uri     aturi.URI
	blob    map[string]any
	created bool
}

// Publish executes a full reconciliation run. Per-document failures are
// counted and logged; they never abort the remaining batch.
func (e *Engine) Publish(ctx context.Context, opts Options) (*Result, error) {
	plan, err := e.Plan(ctx, opts.Force)
	if err != nil {
		return nil, err
	}

	if opts.DryRun {
		return planResult(plan), nil
	}

	client, err := e.client.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("publish: connect: %w", err)
	}

	res := &Result{}
	res.Summary.Skipped = len(plan.Skipped)
	res.Summary.Drafts = len(plan.Drafts)
	recordFailures(res, plan.Failures)

	now := time.Now().UTC().Format(time.RFC3339)
	batch := make(map[string]bool, len(plan.Entries))
	var writes []pass5Write
	var newSlugs []string

	// Pass 5: primary records, in scan order.
	for _, ent := range plan.Entries {
		doc := ent.Doc
		batch[doc.RelPath] = true

		blob := e.uploadCover(ctx, client, doc)
		value := e.primaryValue(doc, blob, now)

		var uri aturi.URI
		if ent.Action == ActionCreate {
			uri, err = client.CreateRecord(ctx, e.cfg.Collection, "", value)
			if err != nil {
				e.fail(res, ent, err)
				continue
			}
			// Rewrite the identity on disk immediately: a crash after
			// this point is recoverable, the file now names itself.
			rewritten := parser.WriteIdentity(doc.Raw, e.cfg.Fields.IdentityField(), uri.String())
			if werr := e.content.Write(doc.RelPath, rewritten); werr != nil {
				e.logger.Warn("identity write-back failed",
					slog.String("path", doc.RelPath), slog.String("error", werr.Error()))
			} else {
				doc.Raw = rewritten
			}
			doc.Meta.ATURI = uri.String()
			newSlugs = append(newSlugs, doc.Slug)
			res.Summary.Created++
		} else {
			uri, err = e.identityFor(doc)
			if err != nil {
				e.fail(res, ent, err)
				continue
			}
			if err := client.PutRecord(ctx, uri, value); err != nil {
				e.fail(res, ent, err)
				continue
			}
			res.Summary.Updated++
		}

		e.st.Set(doc.RelPath, state.Entry{
			Hash:        checksum.Sum(doc.Raw),
			ATURI:       uri.String(),
			PublishedAt: now,
			Slug:        doc.Slug,
		})
		res.Actions = append(res.Actions, ActionRecord{
			Path:   doc.RelPath,
			Slug:   doc.Slug,
			Action: string(ent.Action),
			Reason: string(ent.Reason),
			URI:    uri.String(),
		})
		writes = append(writes, pass5Write{doc: doc, uri: uri, blob: blob, created: ent.Action == ActionCreate})
		e.emit("published", doc.RelPath)
	}

	// Pass 6: derived note records, link-resolved against the full scan.
	// Failures leave the primary record standing.
	for _, w := range writes {
		if err := e.writeNote(ctx, client, w.doc, w.blob, now, plan.Docs); err != nil {
			e.logger.Warn("note record write failed",
				slog.String("path", w.doc.RelPath), slog.String("error", err.Error()))
		}
	}

	// Pass 7: repair already-published documents whose links to a
	// just-created document were still unresolved.
	for _, doc := range links.Stale(plan.Docs, newSlugs, batch) {
		blob := e.uploadCover(ctx, client, doc)
		if err := e.writeNote(ctx, client, doc, blob, now, plan.Docs); err != nil {
			e.logger.Warn("stale-link repair failed",
				slog.String("path", doc.RelPath), slog.String("error", err.Error()))
		} else {
			e.logger.Info("stale links repaired", slog.String("path", doc.RelPath))
		}
	}

	// Pass 8: deletions, deduplicated by identity.
	seen := make(map[string]bool, len(plan.Deletions))
	for _, del := range plan.Deletions {
		if del.URI.IsZero() {
			// Local history without a usable identity: drop the entry.
			e.st.Delete(del.Path)
			continue
		}
		if seen[del.URI.String()] {
			e.st.Delete(del.Path)
			continue
		}
		seen[del.URI.String()] = true

		if err := client.DeleteRecord(ctx, del.URI); err != nil {
			// Entry stays in state so the deletion retries next run.
			e.logger.Warn("remote delete failed",
				slog.String("uri", del.URI.String()), slog.String("error", err.Error()))
			res.Summary.Errors++
			res.Actions = append(res.Actions, ActionRecord{
				Path: del.Path, Action: "delete", URI: del.URI.String(), Error: err.Error(),
			})
			continue
		}
		// The note record may not exist; its deletion is best-effort.
		_ = client.DeleteRecord(ctx, del.URI.WithCollection(e.cfg.NoteCollection))

		if del.Path != "" {
			e.st.Delete(del.Path)
		}
		res.Summary.Deleted++
		res.Actions = append(res.Actions, ActionRecord{
			Path: del.Path, Action: "delete", URI: del.URI.String(),
		})
		e.emit("deleted", del.Path)
	}

	// Pass 9: commit.
	if err := e.st.Save(); err != nil {
		return res, err
	}
	return res, nil
}

// writeNote upserts the note record paired to a document's primary record.
func (e *Engine) writeNote(ctx context.Context, client store.Client, doc *models.Document, blob map[string]any, now string, all []*models.Document) error {
	uri, err := e.identityFor(doc)
	if err != nil {
		return err
	}
	body := links.Resolve(doc.Body, all, e.cfg.NoteCollection)
	value := e.noteValue(doc, body, blob, now)

	noteURI := uri.WithCollection(e.cfg.NoteCollection)
	if err := client.PutRecord(ctx, noteURI, value); err != nil {
		return err
	}
	if ent, ok := e.st.Get(doc.RelPath); ok {
		ent.SocialURI = noteURI.String()
		e.st.Set(doc.RelPath, ent)
	}
	return nil
}

// identityFor resolves a document's remote identity from its frontmatter
// or, failing that, its state entry.
func (e *Engine) identityFor(doc *models.Document) (aturi.URI, error) {
	if doc.Meta.ATURI != "" {
		return aturi.Parse(doc.Meta.ATURI)
	}
	if ent, ok := e.st.Get(doc.RelPath); ok && ent.ATURI != "" {
		return aturi.Parse(ent.ATURI)
	}
	return aturi.URI{}, fmt.Errorf("publish: no identity known for %s", doc.RelPath)
}

func (e *Engine) primaryValue(doc *models.Document, blob map[string]any, now string) map[string]any {
	value := map[string]any{
		"$type":       e.cfg.Collection,
		"title":       doc.Meta.Title,
		"slug":        doc.Slug,
		"path":        doc.RelPath,
		"publishedAt": doc.Meta.Date,
		"updatedAt":   now,
	}
	if doc.Meta.Description != "" {
		value["description"] = doc.Meta.Description
	}
	if len(doc.Meta.Tags) > 0 {
		value["tags"] = doc.Meta.Tags
	}
	if blob != nil {
		value["cover"] = blob
	}
	return value
}

func (e *Engine) noteValue(doc *models.Document, body string, blob map[string]any, now string) map[string]any {
	value := map[string]any{
		"$type":       e.cfg.NoteCollection,
		"title":       doc.Meta.Title,
		"content":     body,
		"slug":        doc.Slug,
		"path":        doc.RelPath,
		"publishedAt": doc.Meta.Date,
		"updatedAt":   now,
	}
	if len(doc.Meta.Tags) > 0 {
		value["tags"] = doc.Meta.Tags
	}
	if blob != nil {
		value["cover"] = blob
	}
	return value
}

// uploadCover resolves and uploads a document's cover image. Every failure
// here is a warning; the publish proceeds without the image.
func (e *Engine) uploadCover(ctx context.Context, client store.Client, doc *models.Document) map[string]any {
	cover := doc.Meta.Cover
	if cover == "" || strings.Contains(cover, "://") {
		return nil
	}

	for _, candidate := range coverCandidates(doc.RelPath, cover) {
		data, err := e.content.Read(candidate)
		if err != nil {
			continue
		}
		blob, err := client.UploadBlob(ctx, data, mimeFor(candidate))
		if err != nil {
			e.logger.Warn("cover upload failed",
				slog.String("path", doc.RelPath),
				slog.String("cover", candidate),
				slog.String("error", err.Error()))
			continue
		}
		return blob
	}

	e.logger.Warn("cover image not found",
		slog.String("path", doc.RelPath), slog.String("cover", cover))
	return nil
}

// coverCandidates lists the locations tried for a cover reference, in
// order: relative to the document's directory, then root-relative.
func coverCandidates(docRel, cover string) []string {
	rootRel := strings.TrimPrefix(cover, "/")
	fromDoc := path.Clean(path.Join(path.Dir(docRel), cover))

	if fromDoc == rootRel {
		return []string{rootRel}
	}
	return []string{fromDoc, rootRel}
}

func mimeFor(p string) string {
	switch strings.ToLower(path.Ext(p)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".svg":
		return "image/svg+xml"
	default:
		return "application/octet-stream"
	}
}

// fail records a fatal per-document error in pass 5.
func (e *Engine) fail(res *Result, ent Entry, err error) {
	e.logger.Error("primary record write failed",
		slog.String("path", ent.Doc.RelPath),
		slog.String("action", string(ent.Action)),
		slog.String("error", err.Error()))
	res.Summary.Errors++
	res.Actions = append(res.Actions, ActionRecord{
		Path:   ent.Doc.RelPath,
		Slug:   ent.Doc.Slug,
		Action: string(ent.Action),
		Reason: string(ent.Reason),
		Error:  err.Error(),
	})
}

func (e *Engine) emit(kind, path string) {
	if e.notify != nil {
		e.notify(kind, path)
	}
}

// recordFailures folds the scan's per-document failures into the result.
func recordFailures(res *Result, failures []Failure) {
	for _, f := range failures {
		res.Summary.Errors++
		res.Actions = append(res.Actions, ActionRecord{
			Path:   f.Path,
			Action: "parse",
			Error:  f.Err.Error(),
		})
	}
}

// planResult converts a plan into the summary a dry run reports.
func planResult(plan *Plan) *Result {
	res := &Result{DryRun: true}
	res.Summary.Skipped = len(plan.Skipped)
	res.Summary.Drafts = len(plan.Drafts)
	recordFailures(res, plan.Failures)
	for _, ent := range plan.Entries {
		if ent.Action == ActionCreate {
			res.Summary.Created++
		} else {
			res.Summary.Updated++
		}
		res.Actions = append(res.Actions, ActionRecord{
			Path:   ent.Doc.RelPath,
			Slug:   ent.Doc.Slug,
			Action: string(ent.Action),
			Reason: string(ent.Reason),
		})
	}
	seen := make(map[string]bool, len(plan.Deletions))
	for _, del := range plan.Deletions {
		if !del.URI.IsZero() {
			if seen[del.URI.String()] {
				continue
			}
			seen[del.URI.String()] = true
		}
		res.Summary.Deleted++
		res.Actions = append(res.Actions, ActionRecord{
			Path: del.Path, Action: "delete", URI: uriString(del.URI),
		})
	}
	return res
}

func uriString(u aturi.URI) string {
	if u.IsZero() {
		return ""
	}
	return u.String()
}
