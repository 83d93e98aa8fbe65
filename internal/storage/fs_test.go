package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func tempContent(t *testing.T, excludes []string) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir, excludes)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempContent(t, nil)
	content := []byte("# Hello\nWorld\n")
	if err := s.Write("post.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("post.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempContent(t, nil)
	if err := s.Write("a/b/c.md", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("a/b/c.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestList_MarkdownOnly(t *testing.T) {
	s := tempContent(t, nil)
	files := map[string]string{
		"a.md":        "one",
		"b.mdx":       "two",
		"notes/c.md":  "three",
		"ignored.txt": "nope",
	}
	for p, c := range files {
		if err := s.Write(p, []byte(c)); err != nil {
			t.Fatalf("Write %s: %v", p, err)
		}
	}
	infos, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 3 {
		t.Errorf("len = %d, want 3: %v", len(infos), infos)
	}
	for _, info := range infos {
		if info.Path == "ignored.txt" {
			t.Error("non-markdown file listed")
		}
		if info.Checksum == "" {
			t.Errorf("missing checksum for %s", info.Path)
		}
	}
}

func TestList_ExcludePatterns(t *testing.T) {
	s := tempContent(t, []string{"drafts/**", "*.tmp.md"})
	for _, p := range []string{"keep.md", "drafts/skip.md", "drafts/deep/skip.md", "x.tmp.md"} {
		if err := s.Write(p, []byte("x")); err != nil {
			t.Fatalf("Write %s: %v", p, err)
		}
	}
	infos, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 1 || infos[0].Path != "keep.md" {
		t.Errorf("infos = %v, want only keep.md", infos)
	}
}

func TestSafePath_RejectsTraversal(t *testing.T) {
	s := tempContent(t, nil)
	if _, err := s.Read("../outside.md"); err == nil {
		t.Error("traversal should be rejected")
	}
	if _, err := s.Read("/etc/passwd"); err == nil {
		t.Error("absolute path should be rejected")
	}
}

func TestExists(t *testing.T) {
	s := tempContent(t, nil)
	if s.Exists("missing.md") {
		t.Error("missing file reported as existing")
	}
	if err := s.Write("here.md", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if !s.Exists("here.md") {
		t.Error("written file not found")
	}
}

func TestWrite_Atomic_NoTempLeftovers(t *testing.T) {
	s := tempContent(t, nil)
	if err := s.Write("a.md", []byte("x")); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(s.Root())
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == "" && e.Name() != "a.md" {
			t.Errorf("unexpected leftover: %s", e.Name())
		}
	}
}
