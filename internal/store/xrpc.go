package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/starford/ansuz/internal/aturi"
)

// XRPC implements Client against a personal data server speaking the
// com.atproto.repo record API. Session acquisition is out of scope; the
// client only consumes a bearer access token.
type XRPC struct {
	service string // base URL, e.g. https://bsky.social
	repo    string // repository (authority) records are written to
	token   string
	http    *http.Client
}

// NewXRPC creates a client for the given service, repository, and access
// token.
func NewXRPC(service, repo, token string) *XRPC {
	return &XRPC{
		service: service,
		repo:    repo,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// CreateRecord calls com.atproto.repo.createRecord.
func (c *XRPC) CreateRecord(ctx context.Context, collection, rkey string, value map[string]any) (aturi.URI, error) {
	body := map[string]any{
		"repo":       c.repo,
		"collection": collection,
		"record":     value,
	}
	if rkey != "" {
		body["rkey"] = rkey
	}
	var resp struct {
		URI string `json:"uri"`
	}
	if err := c.call(ctx, http.MethodPost, "com.atproto.repo.createRecord", nil, body, &resp); err != nil {
		return aturi.URI{}, err
	}
	uri, err := aturi.Parse(resp.URI)
	if err != nil {
		return aturi.URI{}, fmt.Errorf("store: bad uri in createRecord response: %w", err)
	}
	return uri, nil
}

// PutRecord calls com.atproto.repo.putRecord.
func (c *XRPC) PutRecord(ctx context.Context, uri aturi.URI, value map[string]any) error {
	body := map[string]any{
		"repo":       uri.Authority,
		"collection": uri.Collection,
		"rkey":       uri.RKey,
		"record":     value,
	}
	return c.call(ctx, http.MethodPost, "com.atproto.repo.putRecord", nil, body, nil)
}

// DeleteRecord calls com.atproto.repo.deleteRecord.
func (c *XRPC) DeleteRecord(ctx context.Context, uri aturi.URI) error {
	body := map[string]any{
		"repo":       uri.Authority,
		"collection": uri.Collection,
		"rkey":       uri.RKey,
	}
	return c.call(ctx, http.MethodPost, "com.atproto.repo.deleteRecord", nil, body, nil)
}

// ListRecords calls com.atproto.repo.listRecords for one page.
func (c *XRPC) ListRecords(ctx context.Context, collection, cursor string, limit int) ([]Record, string, error) {
	if limit <= 0 {
		limit = 100
	}
	params := url.Values{}
	params.Set("repo", c.repo)
	params.Set("collection", collection)
	params.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	var resp struct {
		Cursor  string `json:"cursor"`
		Records []struct {
			URI   string         `json:"uri"`
			Value map[string]any `json:"value"`
		} `json:"records"`
	}
	if err := c.call(ctx, http.MethodGet, "com.atproto.repo.listRecords", params, nil, &resp); err != nil {
		return nil, "", err
	}

	out := make([]Record, 0, len(resp.Records))
	for _, r := range resp.Records {
		uri, err := aturi.Parse(r.URI)
		if err != nil {
			return nil, "", fmt.Errorf("store: bad uri in listRecords response: %w", err)
		}
		out = append(out, Record{URI: uri, Value: r.Value})
	}
	return out, resp.Cursor, nil
}

// UploadBlob calls com.atproto.repo.uploadBlob with the raw bytes.
func (c *XRPC) UploadBlob(ctx context.Context, data []byte, mimeType string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.service+"/xrpc/com.atproto.repo.uploadBlob", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("store: build uploadBlob request: %w", err)
	}
	req.Header.Set("Content-Type", mimeType)
	c.authorize(req)

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("store: uploadBlob: %w", err)
	}
	defer httpResp.Body.Close()
	if err := checkStatus(httpResp); err != nil {
		return nil, err
	}

	var resp struct {
		Blob map[string]any `json:"blob"`
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("store: decode uploadBlob response: %w", err)
	}
	return resp.Blob, nil
}

// call performs one XRPC request and decodes the JSON response into out.
func (c *XRPC) call(ctx context.Context, method, nsid string, params url.Values, body, out any) error {
	endpoint := c.service + "/xrpc/" + nsid
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("store: marshal %s request: %w", nsid, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("store: build %s request: %w", nsid, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("store: %s: %w", nsid, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("store: decode %s response: %w", nsid, err)
	}
	return nil
}

func (c *XRPC) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return fmt.Errorf("store: %s returned %d: %s", resp.Request.URL.Path, resp.StatusCode, data)
}
