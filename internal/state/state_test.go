package state

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFile(t *testing.T) {
	f, err := Load(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(f.Posts) != 0 {
		t.Errorf("expected empty mapping, got %d entries", len(f.Posts))
	}
}

func TestLoad_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := Load(path)
	if err != nil {
		t.Fatalf("corrupt file should load as empty: %v", err)
	}
	if len(f.Posts) != 0 {
		t.Errorf("expected empty mapping, got %v", f.Posts)
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "state.json")
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	f.Set("posts/hello.md", Entry{
		Hash:        "abc",
		ATURI:       "at://did:plc:x/app.ansuz.document/k1",
		PublishedAt: "2024-03-09T12:00:00Z",
		Slug:        "posts/hello",
	})
	if err := f.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	back, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	e, ok := back.Get("posts/hello.md")
	if !ok {
		t.Fatal("entry missing after reload")
	}
	if e.Hash != "abc" || e.Slug != "posts/hello" {
		t.Errorf("entry = %+v", e)
	}
}

func TestDelete_RemovesEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	f, _ := Load(path)
	f.Set("a.md", Entry{Hash: "x"})
	f.Delete("a.md")
	if _, ok := f.Get("a.md"); ok {
		t.Error("entry should be gone")
	}
}

func TestEntry_EmptyHashIsValid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	f, _ := Load(path)
	f.Set("a.md", Entry{Hash: "", ATURI: "at://did:plc:x/app.ansuz.document/k1"})
	if err := f.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	back, _ := Load(path)
	e, ok := back.Get("a.md")
	if !ok || e.Hash != "" {
		t.Errorf("placeholder entry lost: %+v ok=%v", e, ok)
	}
}
