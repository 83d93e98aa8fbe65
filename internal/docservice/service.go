// Package docservice coordinates the engine, content storage, and journal
// for the API and MCP surfaces.
package docservice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/journal"
	"github.com/starford/ansuz/internal/publish"
	"github.com/starford/ansuz/internal/storage"
)

// DocumentListItem is a lightweight item in a list response.
type DocumentListItem struct {
	Path      string    `json:"path"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Draft     bool      `json:"draft"`
	Published bool      `json:"published"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DocumentDetail is the full representation of a document.
type DocumentDetail struct {
	Path        string   `json:"path"`
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Date        string   `json:"date"`
	Tags        []string `json:"tags"`
	Draft       bool     `json:"draft"`
	ATURI       string   `json:"atUri,omitempty"`
	Content     string   `json:"content"`
	HTML        string   `json:"html"`
	Checksum    string   `json:"checksum"`
}

// Service coordinates content, engine, and journal operations.
type Service struct {
	content storage.Provider
	engine  *publish.Engine
	db      *journal.DB // may be nil when history is disabled
	md      goldmark.Markdown
	logger  *slog.Logger

	mu sync.Mutex // serializes publish runs
}

// NewService creates a new document service.
func NewService(content storage.Provider, engine *publish.Engine, db *journal.DB, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		content: content,
		engine:  engine,
		db:      db,
		logger:  logger,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
}

// ListDocuments scans and parses the whole content directory. Documents
// that fail to parse are left out of the listing.
func (s *Service) ListDocuments(_ context.Context) ([]DocumentListItem, error) {
	docs, _, err := s.engine.Scan()
	if err != nil {
		return nil, err
	}
	items := make([]DocumentListItem, len(docs))
	for i, d := range docs {
		items[i] = DocumentListItem{
			Path:      d.RelPath,
			Slug:      d.Slug,
			Title:     d.Meta.Title,
			Draft:     d.Meta.Draft,
			Published: d.Published(),
			Checksum:  checksum.Sum(d.Raw),
			UpdatedAt: d.ModTime,
		}
	}
	return items, nil
}

// GetDocument reads and parses one document and renders an HTML preview.
func (s *Service) GetDocument(_ context.Context, path string) (*DocumentDetail, error) {
	data, err := s.content.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	doc, err := s.engine.ParseDocument(path, data)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := s.md.Convert([]byte(doc.Body), &buf); err != nil {
		return nil, fmt.Errorf("docservice: render %s: %w", path, err)
	}

	return &DocumentDetail{
		Path:        doc.RelPath,
		Slug:        doc.Slug,
		Title:       doc.Meta.Title,
		Description: doc.Meta.Description,
		Date:        doc.Meta.Date,
		Tags:        nonNilSlice(doc.Meta.Tags),
		Draft:       doc.Meta.Draft,
		ATURI:       doc.Meta.ATURI,
		Content:     string(data),
		HTML:        buf.String(),
		Checksum:    checksum.Sum(data),
	}, nil
}

// Plan computes the full reconciliation plan without mutating anything.
func (s *Service) Plan(ctx context.Context, force bool) (*publish.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Publish(ctx, publish.Options{Force: force, DryRun: true})
}

// Publish executes a reconciliation run and records it in the journal.
func (s *Service) Publish(ctx context.Context, force bool) (*publish.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := time.Now()
	res, err := s.engine.Publish(ctx, publish.Options{Force: force})
	if err != nil {
		return nil, err
	}
	s.record(started, res)
	return res, nil
}

// record appends a finished run to the journal; history failures never
// affect the publish outcome.
func (s *Service) record(started time.Time, res *publish.Result) {
	if s.db == nil {
		return
	}
	run := journal.Run{
		ID:         uuid.NewString(),
		StartedAt:  started,
		FinishedAt: time.Now(),
		DryRun:     res.DryRun,
		Created:    res.Summary.Created,
		Updated:    res.Summary.Updated,
		Deleted:    res.Summary.Deleted,
		Skipped:    res.Summary.Skipped,
		Drafts:     res.Summary.Drafts,
		Errors:     res.Summary.Errors,
	}
	actions := make([]journal.Action, len(res.Actions))
	for i, a := range res.Actions {
		actions[i] = journal.Action{
			Path:   a.Path,
			Slug:   a.Slug,
			Action: a.Action,
			Reason: a.Reason,
			URI:    a.URI,
			Error:  a.Error,
		}
	}
	if err := s.db.Record(run, actions); err != nil {
		s.logger.Warn("journal write failed",
			slog.String("run", run.ID), slog.String("error", err.Error()))
	}
}

// Runs returns the most recent journal entries.
func (s *Service) Runs(_ context.Context, limit int) ([]journal.Run, error) {
	if s.db == nil {
		return []journal.Run{}, nil
	}
	runs, err := s.db.Runs(limit)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(runs), nil
}

// RunActions returns the per-document actions of one recorded run.
func (s *Service) RunActions(_ context.Context, id string) ([]journal.Action, error) {
	if s.db == nil {
		return []journal.Action{}, nil
	}
	actions, err := s.db.Actions(id)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(actions), nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
