package aturi

import "testing"

func TestParse_Valid(t *testing.T) {
	u, err := Parse("at://did:plc:abc/app.ansuz.document/k1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if u.Authority != "did:plc:abc" || u.Collection != "app.ansuz.document" || u.RKey != "k1" {
		t.Errorf("parsed = %+v", u)
	}
	if u.String() != "at://did:plc:abc/app.ansuz.document/k1" {
		t.Errorf("String() = %q", u.String())
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, s := range []string{
		"",
		"did:plc:abc/coll/key",
		"at://did:plc:abc/coll",
		"at://did:plc:abc/coll/key/extra",
		"at://did:plc:abc//key",
	} {
		if _, err := Parse(s); err == nil {
			t.Errorf("Parse(%q) should fail", s)
		}
	}
}

func TestWithCollection(t *testing.T) {
	u, err := Parse("at://did:plc:abc/app.ansuz.document/k1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	n := u.WithCollection("app.ansuz.note")
	if n.String() != "at://did:plc:abc/app.ansuz.note/k1" {
		t.Errorf("WithCollection = %q", n.String())
	}
	if u.Collection != "app.ansuz.document" {
		t.Error("receiver mutated")
	}
}
