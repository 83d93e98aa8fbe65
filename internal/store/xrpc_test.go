package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/starford/ansuz/internal/aturi"
)

func TestXRPC_CreateRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/xrpc/com.atproto.repo.createRecord" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("auth header = %q", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["repo"] != "did:plc:abc" || body["collection"] != "app.ansuz.document" {
			t.Errorf("body = %v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"uri": "at://did:plc:abc/app.ansuz.document/k1",
			"cid": "bafy",
		})
	}))
	defer srv.Close()

	c := NewXRPC(srv.URL, "did:plc:abc", "tok")
	uri, err := c.CreateRecord(context.Background(), "app.ansuz.document", "", map[string]any{"title": "t"})
	if err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}
	if uri.RKey != "k1" {
		t.Errorf("rkey = %q", uri.RKey)
	}
}

func TestXRPC_ListRecords_PaginatesToExhaustion(t *testing.T) {
	pages := map[string]struct {
		records []string
		next    string
	}{
		"":   {records: []string{"k1", "k2"}, next: "k2"},
		"k2": {records: []string{"k3"}, next: ""},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := pages[r.URL.Query().Get("cursor")]
		type rec struct {
			URI   string         `json:"uri"`
			Value map[string]any `json:"value"`
		}
		var recs []rec
		for _, k := range page.records {
			recs = append(recs, rec{
				URI:   "at://did:plc:abc/app.ansuz.document/" + k,
				Value: map[string]any{"rkey": k},
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"records": recs,
			"cursor":  page.next,
		})
	}))
	defer srv.Close()

	c := NewXRPC(srv.URL, "did:plc:abc", "")
	var all []Record
	cursor := ""
	for {
		recs, next, err := c.ListRecords(context.Background(), "app.ansuz.document", cursor, 2)
		if err != nil {
			t.Fatalf("ListRecords: %v", err)
		}
		all = append(all, recs...)
		if next == "" {
			break
		}
		cursor = next
	}
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}
	if all[2].URI.RKey != "k3" {
		t.Errorf("last rkey = %q", all[2].URI.RKey)
	}
}

func TestXRPC_ErrorStatusSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"InvalidRequest"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewXRPC(srv.URL, "did:plc:abc", "")
	uri := aturi.URI{Authority: "did:plc:abc", Collection: "app.ansuz.document", RKey: "k1"}
	if err := c.DeleteRecord(context.Background(), uri); err == nil {
		t.Fatal("expected error from 400 response")
	}
}

func TestXRPC_UploadBlob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "image/png" {
			t.Errorf("content-type = %q", ct)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"blob": map[string]any{
				"$type":    "blob",
				"ref":      map[string]any{"$link": "bafyblob"},
				"mimeType": "image/png",
				"size":     3,
			},
		})
	}))
	defer srv.Close()

	c := NewXRPC(srv.URL, "did:plc:abc", "")
	blob, err := c.UploadBlob(context.Background(), []byte{1, 2, 3}, "image/png")
	if err != nil {
		t.Fatalf("UploadBlob: %v", err)
	}
	if blob["mimeType"] != "image/png" {
		t.Errorf("blob = %v", blob)
	}
}

func TestMemory_ListRecordsPagination(t *testing.T) {
	m := NewMemory()
	m.PageSize = 2
	for i := 0; i < 5; i++ {
		if _, err := m.CreateRecord(context.Background(), "c", "k"+strconv.Itoa(i), map[string]any{}); err != nil {
			t.Fatal(err)
		}
	}
	var all []Record
	cursor := ""
	for {
		recs, next, err := m.ListRecords(context.Background(), "c", cursor, 0)
		if err != nil {
			t.Fatal(err)
		}
		all = append(all, recs...)
		if next == "" {
			break
		}
		cursor = next
	}
	if len(all) != 5 {
		t.Errorf("len = %d, want 5", len(all))
	}
}

func TestLazy_DialsOnce(t *testing.T) {
	calls := 0
	l := NewLazy(func(context.Context) (Client, error) {
		calls++
		return NewMemory(), nil
	})
	a, err := l.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	b, _ := l.Get(context.Background())
	if a != b {
		t.Error("Get returned different handles")
	}
	if calls != 1 {
		t.Errorf("dial called %d times, want 1", calls)
	}
}
