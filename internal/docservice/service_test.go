package docservice_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/docservice"
	"github.com/starford/ansuz/internal/testutil"
)

func TestListDocuments(t *testing.T) {
	dir, content, _, engine := testutil.TestEngine(t)
	testutil.WriteDoc(t, dir, "a.md", "---\ntitle: A\n---\nbody")
	testutil.WriteDoc(t, dir, "b.md", "---\ntitle: B\ndraft: true\n---\nbody")

	svc := docservice.NewService(content, engine, nil, testutil.DiscardLogger())
	items, err := svc.ListDocuments(context.Background())
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].Title != "A" || items[0].Draft {
		t.Errorf("items[0] = %+v", items[0])
	}
	if !items[1].Draft {
		t.Errorf("items[1] should be draft: %+v", items[1])
	}

	info, err := os.Stat(filepath.Join(dir, "a.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !items[0].UpdatedAt.Equal(info.ModTime()) {
		t.Errorf("UpdatedAt = %v, want file mod time %v", items[0].UpdatedAt, info.ModTime())
	}
}

func TestGetDocument_RendersHTML(t *testing.T) {
	dir, content, _, engine := testutil.TestEngine(t)
	testutil.WriteDoc(t, dir, "a.md", "---\ntitle: A\n---\n# Heading\n\nSome **bold** text")

	svc := docservice.NewService(content, engine, nil, testutil.DiscardLogger())
	doc, err := svc.GetDocument(context.Background(), "a.md")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if !strings.Contains(doc.HTML, "<strong>bold</strong>") {
		t.Errorf("HTML = %q", doc.HTML)
	}
	if doc.Checksum == "" {
		t.Error("checksum missing")
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	_, content, _, engine := testutil.TestEngine(t)
	svc := docservice.NewService(content, engine, nil, testutil.DiscardLogger())
	_, err := svc.GetDocument(context.Background(), "missing.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPublishRecordsRun(t *testing.T) {
	dir, content, mem, engine := testutil.TestEngine(t)
	testutil.WriteDoc(t, dir, "a.md", "---\ntitle: A\n---\nbody")
	db := testutil.TestJournal(t)

	svc := docservice.NewService(content, engine, db, testutil.DiscardLogger())
	res, err := svc.Publish(context.Background(), false)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if res.Summary.Created != 1 {
		t.Fatalf("created = %d, want 1", res.Summary.Created)
	}
	if mem.Count("app.ansuz.document") != 1 {
		t.Errorf("records = %d, want 1", mem.Count("app.ansuz.document"))
	}

	runs, err := svc.Runs(context.Background(), 10)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Created != 1 {
		t.Fatalf("runs = %+v", runs)
	}

	actions, err := svc.RunActions(context.Background(), runs[0].ID)
	if err != nil {
		t.Fatalf("RunActions: %v", err)
	}
	if len(actions) != 1 || actions[0].Path != "a.md" {
		t.Errorf("actions = %+v", actions)
	}
}

func TestPublishJournalFailureNonFatal(t *testing.T) {
	dir, content, mem, engine := testutil.TestEngine(t)
	testutil.WriteDoc(t, dir, "a.md", "---\ntitle: A\n---\nbody")
	db := testutil.TestJournal(t)
	db.Close() // every journal write will now fail

	svc := docservice.NewService(content, engine, db, testutil.DiscardLogger())
	res, err := svc.Publish(context.Background(), false)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if res.Summary.Created != 1 {
		t.Errorf("created = %d, want 1", res.Summary.Created)
	}
	if mem.Count("app.ansuz.document") != 1 {
		t.Errorf("records = %d, want 1 (journal failure must not affect the run)",
			mem.Count("app.ansuz.document"))
	}
}

func TestPlanDoesNotRecord(t *testing.T) {
	dir, content, mem, engine := testutil.TestEngine(t)
	testutil.WriteDoc(t, dir, "a.md", "---\ntitle: A\n---\nbody")
	db := testutil.TestJournal(t)

	svc := docservice.NewService(content, engine, db, testutil.DiscardLogger())
	res, err := svc.Plan(context.Background(), false)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if !res.DryRun {
		t.Error("expected dry run")
	}
	if mem.Count("app.ansuz.document") != 0 {
		t.Error("plan must not write records")
	}

	runs, err := svc.Runs(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 0 {
		t.Errorf("plan must not be journaled, got %d runs", len(runs))
	}
}
