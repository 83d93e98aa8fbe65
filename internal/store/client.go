// Package store talks to the remote record store: record CRUD, paginated
// listing, and blob uploads.
package store

import (
	"context"

	"github.com/starford/ansuz/internal/aturi"
)

// Record is one remote record with its identity and payload.
type Record struct {
	URI   aturi.URI
	Value map[string]any
}

// Client is the transport contract the reconciliation engine consumes.
type Client interface {
	// CreateRecord creates a record in collection. An empty rkey lets the
	// store pick one. Returns the new record's identity.
	CreateRecord(ctx context.Context, collection, rkey string, value map[string]any) (aturi.URI, error)
	// PutRecord writes value at an existing (or fixed-key) identity.
	PutRecord(ctx context.Context, uri aturi.URI, value map[string]any) error
	// DeleteRecord removes the record at uri.
	DeleteRecord(ctx context.Context, uri aturi.URI) error
	// ListRecords returns one page of records plus the cursor for the
	// next page; an empty cursor means the listing is exhausted.
	ListRecords(ctx context.Context, collection, cursor string, limit int) ([]Record, string, error)
	// UploadBlob stores raw bytes and returns the blob reference object
	// to embed in record payloads.
	UploadBlob(ctx context.Context, data []byte, mimeType string) (map[string]any, error)
}
