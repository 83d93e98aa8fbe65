package parser

import (
	"errors"
	"strings"
	"testing"
)

func TestParse_YAMLStyleBlock(t *testing.T) {
	input := []byte("---\ntitle: Hello\ntags:\n  - go\n  - ansuz\ndraft: false\n---\n# Hello\nBody text.\n")
	r, err := Parse(input, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Meta.Title != "Hello" {
		t.Errorf("title = %q, want %q", r.Meta.Title, "Hello")
	}
	if len(r.Meta.Tags) != 2 || r.Meta.Tags[0] != "go" || r.Meta.Tags[1] != "ansuz" {
		t.Errorf("tags = %v, want [go ansuz]", r.Meta.Tags)
	}
	if r.Meta.Draft {
		t.Error("draft should be false")
	}
	if r.Body != "# Hello\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
	if r.Delim != "---" {
		t.Errorf("delim = %q, want ---", r.Delim)
	}
}

func TestParse_TOMLStyleBlock(t *testing.T) {
	input := []byte("+++\ntitle = \"Quoted Title\"\ndraft = true\n+++\nBody\n")
	r, err := Parse(input, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Meta.Title != "Quoted Title" {
		t.Errorf("title = %q, want %q", r.Meta.Title, "Quoted Title")
	}
	if !r.Meta.Draft {
		t.Error("draft should be true")
	}
	if r.Delim != "+++" {
		t.Errorf("delim = %q, want +++", r.Delim)
	}
}

func TestParse_SemicolonStyleBlock(t *testing.T) {
	input := []byte(";;;\ntitle: Other Style\n;;;\ntext\n")
	r, err := Parse(input, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Meta.Title != "Other Style" {
		t.Errorf("title = %q", r.Meta.Title)
	}
}

func TestParse_NoMatterFallsBackToBody(t *testing.T) {
	input := []byte("# Just a heading\nSome text.\n")
	r, err := Parse(input, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Raw != nil {
		t.Errorf("expected nil raw matter, got %v", r.Raw)
	}
	if r.Meta.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", r.Meta.Title, "Just a heading")
	}
	if r.Body != string(input) {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_UnterminatedBlock(t *testing.T) {
	_, err := Parse([]byte("---\ntitle: Broken\nbody without closing"), nil)
	if !errors.Is(err, ErrUnterminatedMatter) {
		t.Fatalf("err = %v, want ErrUnterminatedMatter", err)
	}
}

func TestParse_MalformedLine(t *testing.T) {
	_, err := Parse([]byte("---\nthis line has no assignment\n---\nbody"), nil)
	if !errors.Is(err, ErrMalformedMatter) {
		t.Fatalf("err = %v, want ErrMalformedMatter", err)
	}
}

func TestParse_InlineList(t *testing.T) {
	r, err := Parse([]byte("---\ntags: [a, b, \"c d\"]\n---\nx"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"a", "b", "c d"}
	if len(r.Meta.Tags) != 3 {
		t.Fatalf("tags = %v, want %v", r.Meta.Tags, want)
	}
	for i := range want {
		if r.Meta.Tags[i] != want[i] {
			t.Errorf("tags[%d] = %q, want %q", i, r.Meta.Tags[i], want[i])
		}
	}
}

func TestParse_ScalarTagBecomesList(t *testing.T) {
	r, err := Parse([]byte("---\ntags: solo\n---\nx"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Meta.Tags) != 1 || r.Meta.Tags[0] != "solo" {
		t.Errorf("tags = %v, want [solo]", r.Meta.Tags)
	}
}

func TestParse_BlockLiteral(t *testing.T) {
	input := []byte("---\ndescription: |\n  first line\n  second line\ntitle: T\n---\nx")
	r, err := Parse(input, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Meta.Description != "first line\nsecond line" {
		t.Errorf("description = %q", r.Meta.Description)
	}
	if r.Meta.Title != "T" {
		t.Errorf("title = %q, want T", r.Meta.Title)
	}
}

func TestParse_FoldedLiteral(t *testing.T) {
	input := []byte("---\ndescription: >\n  first\n  second\n---\nx")
	r, err := Parse(input, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Meta.Description != "first second" {
		t.Errorf("description = %q, want %q", r.Meta.Description, "first second")
	}
}

func TestParse_FieldMapping(t *testing.T) {
	fields := FieldMap{FieldTitle: "headline", FieldCover: "hero"}
	input := []byte("---\nheadline: Mapped\nhero: img/cover.png\n---\nx")
	r, err := Parse(input, fields)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Meta.Title != "Mapped" {
		t.Errorf("title = %q, want Mapped", r.Meta.Title)
	}
	if r.Meta.Cover != "img/cover.png" {
		t.Errorf("cover = %q", r.Meta.Cover)
	}
}

func TestParse_MappedFieldAbsentFallsBack(t *testing.T) {
	fields := FieldMap{FieldTitle: "headline"}
	input := []byte("---\ntitle: Default Name\n---\nx")
	r, err := Parse(input, fields)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Meta.Title != "Default Name" {
		t.Errorf("title = %q, want Default Name", r.Meta.Title)
	}
}

func TestParse_DateFallbackChain(t *testing.T) {
	r, err := Parse([]byte("---\npublishedAt: 2024-03-09\n---\nx"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Meta.Date != "2024-03-09" {
		t.Errorf("date = %q, want 2024-03-09", r.Meta.Date)
	}
}

func TestParse_DateDefaultsToToday(t *testing.T) {
	r, err := Parse([]byte("---\ntitle: T\n---\nx"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Meta.Date == "" {
		t.Error("date should default to the current day")
	}
}

func TestParse_IdentityCopiedVerbatim(t *testing.T) {
	input := []byte("---\ntitle: T\natUri: at://did:plc:abc/app.ansuz.document/k1\n---\nx")
	r, err := Parse(input, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "at://did:plc:abc/app.ansuz.document/k1"
	if r.Meta.ATURI != want {
		t.Errorf("atUri = %q, want %q", r.Meta.ATURI, want)
	}
	if r.Raw["atUri"] != want {
		t.Errorf("raw atUri = %v, want %q", r.Raw["atUri"], want)
	}
}

func TestWriteIdentity_InsertIntoExistingBlock(t *testing.T) {
	input := []byte("---\ntitle: T\ntags: [a]\n---\nbody line\n")
	out := WriteIdentity(input, "atUri", "at://did:plc:x/app.ansuz.document/k9")
	r, err := Parse(out, nil)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if r.Meta.ATURI != "at://did:plc:x/app.ansuz.document/k9" {
		t.Errorf("atUri = %q", r.Meta.ATURI)
	}
	// Round-trip: every other field survives untouched.
	if r.Meta.Title != "T" || len(r.Meta.Tags) != 1 || r.Meta.Tags[0] != "a" {
		t.Errorf("fields changed: %+v", r.Meta)
	}
	if r.Body != "body line\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestWriteIdentity_ReplacesExistingField(t *testing.T) {
	input := []byte("---\natUri: at://did:plc:x/app.ansuz.document/old\ntitle: T\n---\nbody")
	out := WriteIdentity(input, "atUri", "at://did:plc:x/app.ansuz.document/new")
	if strings.Contains(string(out), "old") {
		t.Errorf("old identity survived: %s", out)
	}
	if strings.Count(string(out), "atUri") != 1 {
		t.Errorf("identity field duplicated: %s", out)
	}
}

func TestWriteIdentity_SynthesizesBlock(t *testing.T) {
	input := []byte("# Hello\nplain body\n")
	out := WriteIdentity(input, "atUri", "at://did:plc:x/app.ansuz.document/k1")
	r, err := Parse(out, nil)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if r.Meta.ATURI != "at://did:plc:x/app.ansuz.document/k1" {
		t.Errorf("atUri = %q", r.Meta.ATURI)
	}
	if r.Body != string(input) {
		t.Errorf("body = %q, want original content", r.Body)
	}
}

func TestWriteIdentity_EqualsFamily(t *testing.T) {
	input := []byte("+++\ntitle = \"T\"\n+++\nbody")
	out := WriteIdentity(input, "atUri", "at://did:plc:x/app.ansuz.document/k2")
	if !strings.Contains(string(out), "atUri = at://") {
		t.Errorf("expected equals-style assignment, got: %s", out)
	}
}
