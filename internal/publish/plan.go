package publish

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	goslug "github.com/goliatone/go-slug"

	"github.com/starford/ansuz/internal/aturi"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/parser"
)

// Action is the remote write a plan entry will perform.
type Action string

// Reason explains why a document was classified for publishing.
type Reason string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"

	ReasonNew          Reason = "new"
	ReasonChanged      Reason = "content-changed"
	ReasonForced       Reason = "forced"
	ReasonMissingState Reason = "missing-state"
)

// Entry is one pending create/update, computed per run and never persisted.
type Entry struct {
	Doc    *models.Document
	Action Action
	Reason Reason
}

// Deletion is one pending remote deletion: either a state entry whose file
// vanished, or an orphaned remote record.
type Deletion struct {
	Path   string // relative path, empty for orphans without local history
	URI    aturi.URI
	Orphan bool
}

// Failure is a document that could not be read or parsed during the scan.
// It is fatal for that document only.
type Failure struct {
	Path string
	Err  error
}

// Plan is the computed outcome of the diff phases.
type Plan struct {
	Docs      []*models.Document // every scanned document, in scan order
	Entries   []Entry
	Skipped   []string
	Drafts    []string
	Deletions []Deletion
	Failures  []Failure
}

// Summary aggregates the user-visible result of a run.
type Summary struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
	Skipped int `json:"skipped"`
	Drafts  int `json:"drafts"`
	Errors  int `json:"errors"`
}

func (s Summary) String() string {
	return fmt.Sprintf("created %d, updated %d, deleted %d, skipped %d, drafts %d, errors %d",
		s.Created, s.Updated, s.Deleted, s.Skipped, s.Drafts, s.Errors)
}

var datePrefixRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}-`)

// slugFromPath derives the canonical slug from a relative document path:
// strip the extension, a trailing /index, and a leading date prefix on the
// final segment.
func slugFromPath(rel string) string {
	s := strings.TrimSuffix(rel, path.Ext(rel))
	s = strings.TrimSuffix(s, "/index")
	dir, base := path.Split(s)
	base = datePrefixRe.ReplaceAllString(base, "")
	if dir == "" {
		return base
	}
	return path.Clean(dir + base)
}

// Scan enumerates and parses every content file. A document that fails to
// read or parse is skipped and reported as a Failure; it never blocks the
// rest of the batch. Slug collisions are not resolved: the last document in
// scan order wins, earlier holders keep the colliding slug but will not be
// matched by links.
func (e *Engine) Scan() ([]*models.Document, []Failure, error) {
	infos, err := e.content.List()
	if err != nil {
		return nil, nil, err
	}

	docs := make([]*models.Document, 0, len(infos))
	var failures []Failure
	for _, info := range infos {
		data, err := e.content.Read(info.Path)
		if err != nil {
			e.logger.Error("read failed",
				slog.String("path", info.Path), slog.String("error", err.Error()))
			failures = append(failures, Failure{Path: info.Path, Err: err})
			continue
		}
		doc, err := e.ParseDocument(info.Path, data)
		if err != nil {
			e.logger.Error("parse failed",
				slog.String("path", info.Path), slog.String("error", err.Error()))
			failures = append(failures, Failure{Path: info.Path, Err: err})
			continue
		}
		doc.ModTime = info.ModTime
		docs = append(docs, doc)
	}
	return docs, failures, nil
}

// ParseDocument builds a Document from raw file contents, deriving the
// canonical slug from the path unless the frontmatter overrides it.
func (e *Engine) ParseDocument(rel string, data []byte) (*models.Document, error) {
	res, err := parser.Parse(data, e.cfg.Fields)
	if err != nil {
		return nil, err
	}

	slug := slugFromPath(rel)
	if res.Meta.Slug != "" {
		if normalized, err := goslug.Normalize(res.Meta.Slug); err == nil && normalized != "" {
			slug = normalized
		}
	}

	return &models.Document{
		Path:    filepath.Join(e.content.Root(), filepath.FromSlash(rel)),
		RelPath: rel,
		Slug:    slug,
		Meta: models.Metadata{
			Title:       res.Meta.Title,
			Description: res.Meta.Description,
			Date:        res.Meta.Date,
			Cover:       res.Meta.Cover,
			Tags:        res.Meta.Tags,
			Draft:       res.Meta.Draft,
			Slug:        res.Meta.Slug,
			ATURI:       res.Meta.ATURI,
		},
		RawMeta: res.Raw,
		Body:    res.Body,
		Raw:     data,
	}, nil
}

// PlanLocal runs the scan, local diff, and deletion diff phases.
func (e *Engine) PlanLocal(force bool) (*Plan, error) {
	docs, failures, err := e.Scan()
	if err != nil {
		return nil, err
	}

	plan := &Plan{Docs: docs, Failures: failures}
	for _, doc := range docs {
		if doc.Meta.Draft {
			plan.Drafts = append(plan.Drafts, doc.RelPath)
			continue
		}
		entry, classified := e.classify(doc, force)
		if !classified {
			plan.Skipped = append(plan.Skipped, doc.RelPath)
			continue
		}
		plan.Entries = append(plan.Entries, entry)
	}

	// Deletion diff: a state entry whose file is gone from disk. The
	// existence check (not mere absence from the scan) tolerates
	// exclusion-pattern changes.
	for rel, st := range e.st.Posts {
		if e.content.Exists(rel) {
			continue
		}
		del := Deletion{Path: rel}
		if uri, err := aturi.Parse(st.ATURI); err == nil {
			del.URI = uri
		}
		plan.Deletions = append(plan.Deletions, del)
	}

	return plan, nil
}

// classify decides create/update/skip for one non-draft document.
func (e *Engine) classify(doc *models.Document, force bool) (Entry, bool) {
	st, hasState := e.st.Get(doc.RelPath)

	if force {
		if doc.Published() || (hasState && st.ATURI != "") {
			return Entry{Doc: doc, Action: ActionUpdate, Reason: ReasonForced}, true
		}
		return Entry{Doc: doc, Action: ActionCreate, Reason: ReasonForced}, true
	}

	if !hasState {
		// State loss: a document already carrying its identity is an
		// update, not a duplicate create.
		if doc.Published() {
			return Entry{Doc: doc, Action: ActionUpdate, Reason: ReasonMissingState}, true
		}
		return Entry{Doc: doc, Action: ActionCreate, Reason: ReasonNew}, true
	}

	if st.Hash != checksum.Sum(doc.Raw) {
		return Entry{Doc: doc, Action: ActionUpdate, Reason: ReasonChanged}, true
	}
	return Entry{}, false
}

// Plan runs the full diff: PlanLocal plus the remote orphan diff.
func (e *Engine) Plan(ctx context.Context, force bool) (*Plan, error) {
	plan, err := e.PlanLocal(force)
	if err != nil {
		return nil, err
	}
	if err := e.remoteDiff(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// remoteDiff pages through the remote listing and flags records with no
// corresponding local document as orphaned.
func (e *Engine) remoteDiff(ctx context.Context, plan *Plan) error {
	client, err := e.client.Get(ctx)
	if err != nil {
		return fmt.Errorf("publish: connect: %w", err)
	}

	localPaths := make(map[string]bool, len(plan.Docs))
	localSlugs := make(map[string]bool, len(plan.Docs))
	for _, doc := range plan.Docs {
		localPaths[doc.RelPath] = true
		localSlugs[doc.Slug] = true
	}
	pending := make(map[string]bool, len(plan.Deletions))
	for _, del := range plan.Deletions {
		if !del.URI.IsZero() {
			pending[del.URI.String()] = true
		}
	}

	cursor := ""
	for {
		records, next, err := client.ListRecords(ctx, e.cfg.Collection, cursor, 100)
		if err != nil {
			return fmt.Errorf("publish: list remote records: %w", err)
		}
		for _, rec := range records {
			if pending[rec.URI.String()] {
				continue
			}
			if p, _ := rec.Value["path"].(string); p != "" && localPaths[p] {
				continue
			}
			if s, _ := rec.Value["slug"].(string); s != "" && localSlugs[s] {
				continue
			}
			plan.Deletions = append(plan.Deletions, Deletion{URI: rec.URI, Orphan: true})
		}
		if next == "" {
			return nil
		}
		cursor = next
	}
}
