package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/starford/ansuz/internal/aturi"
	"github.com/starford/ansuz/internal/checksum"
)

// Memory is an in-process Client used by tests and local dry runs.
type Memory struct {
	// Authority used for minted identities.
	Authority string
	// PageSize bounds list pages regardless of the requested limit.
	PageSize int

	// Per-method error injection for failure-path tests.
	CreateErr error
	PutErr    error
	DeleteErr error
	ListErr   error
	UploadErr error

	mu      sync.Mutex
	records map[string]map[string]map[string]any // collection -> rkey -> value
	deleted []string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		Authority: "did:plc:memory",
		records:   make(map[string]map[string]map[string]any),
	}
}

func (m *Memory) CreateRecord(_ context.Context, collection, rkey string, value map[string]any) (aturi.URI, error) {
	if m.CreateErr != nil {
		return aturi.URI{}, m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if rkey == "" {
		rkey = uuid.NewString()[:13]
	}
	if m.records[collection] == nil {
		m.records[collection] = make(map[string]map[string]any)
	}
	m.records[collection][rkey] = value
	return aturi.URI{Authority: m.Authority, Collection: collection, RKey: rkey}, nil
}

func (m *Memory) PutRecord(_ context.Context, uri aturi.URI, value map[string]any) error {
	if m.PutErr != nil {
		return m.PutErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records[uri.Collection] == nil {
		m.records[uri.Collection] = make(map[string]map[string]any)
	}
	m.records[uri.Collection][uri.RKey] = value
	return nil
}

func (m *Memory) DeleteRecord(_ context.Context, uri aturi.URI) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records[uri.Collection], uri.RKey)
	m.deleted = append(m.deleted, uri.String())
	return nil
}

func (m *Memory) ListRecords(_ context.Context, collection, cursor string, limit int) ([]Record, string, error) {
	if m.ListErr != nil {
		return nil, "", m.ListErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	pageSize := m.PageSize
	if pageSize <= 0 {
		pageSize = limit
	}
	if pageSize <= 0 {
		pageSize = 100
	}

	keys := make([]string, 0, len(m.records[collection]))
	for k := range m.records[collection] {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	start := 0
	if cursor != "" {
		start = sort.SearchStrings(keys, cursor)
		if start < len(keys) && keys[start] == cursor {
			start++
		}
	}

	var out []Record
	next := ""
	for i := start; i < len(keys) && len(out) < pageSize; i++ {
		out = append(out, Record{
			URI:   aturi.URI{Authority: m.Authority, Collection: collection, RKey: keys[i]},
			Value: m.records[collection][keys[i]],
		})
		if i+1 < len(keys) && len(out) == pageSize {
			next = keys[i]
		}
	}
	return out, next, nil
}

func (m *Memory) UploadBlob(_ context.Context, data []byte, mimeType string) (map[string]any, error) {
	if m.UploadErr != nil {
		return nil, m.UploadErr
	}
	return map[string]any{
		"$type":    "blob",
		"ref":      map[string]any{"$link": checksum.Sum(data)},
		"mimeType": mimeType,
		"size":     len(data),
	}, nil
}

// Get returns the stored value for a collection and rkey, if present.
func (m *Memory) Get(collection, rkey string) (map[string]any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.records[collection][rkey]
	return v, ok
}

// Count returns the number of records in a collection.
func (m *Memory) Count(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records[collection])
}

// Deleted returns the identities deleted so far, in order.
func (m *Memory) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

var _ Client = (*Memory)(nil)
var _ Client = (*XRPC)(nil)
