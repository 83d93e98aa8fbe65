// Package testutil provides shared test helpers for setting up content
// directories, engines, and journals.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/ansuz/internal/journal"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/publish"
	"github.com/starford/ansuz/internal/state"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/store"
)

// DiscardLogger returns a logger that swallows all output.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestContent creates a temporary content directory with a storage.Provider.
func TestContent(t *testing.T) (string, storage.Provider) {
	t.Helper()
	contentDir := t.TempDir()
	content, err := storage.NewFS(contentDir, nil)
	if err != nil {
		t.Fatal(err)
	}
	return contentDir, content
}

// TestJournal creates a temporary SQLite journal that is automatically
// cleaned up.
func TestJournal(t *testing.T) *journal.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "ansuz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := journal.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestEngine wires a publish engine over a temp content dir, a fresh state
// ledger, and an in-memory store client.
func TestEngine(t *testing.T) (string, storage.Provider, *store.Memory, *publish.Engine) {
	t.Helper()

	contentDir, content := TestContent(t)

	st, err := state.Load(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatal(err)
	}

	mem := store.NewMemory()
	lazy := store.NewLazy(func(context.Context) (store.Client, error) {
		return mem, nil
	})

	engine := publish.New(content, st, lazy, publish.Config{
		Collection:     "app.ansuz.document",
		NoteCollection: "app.ansuz.note",
		Fields:         parser.FieldMap{},
	}, DiscardLogger())

	return contentDir, content, mem, engine
}

// WriteDoc writes a content file under dir, creating parent directories.
func WriteDoc(t *testing.T, dir, rel, content string) {
	t.Helper()
	abs := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
