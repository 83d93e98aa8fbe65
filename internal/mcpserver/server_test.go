package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/ansuz/internal/docservice"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/store"
	"github.com/starford/ansuz/internal/testutil"
)

func testServer(t *testing.T) (*Server, storage.Provider, *store.Memory) {
	t.Helper()

	_, content, mem, engine := testutil.TestEngine(t)
	svc := docservice.NewService(content, engine, nil, testutil.DiscardLogger())
	srv := New(content, svc)
	return srv, content, mem
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go doesn't expose a direct "call tool" test helper, so we call
	// the handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_documents":
		result, err = srv.listDocuments(ctx, req)
	case "read_document":
		result, err = srv.readDocument(ctx, req)
	case "write_document":
		result, err = srv.writeDocument(ctx, req)
	case "plan_publish":
		result, err = srv.planPublish(ctx, req)
	case "run_publish":
		result, err = srv.runPublish(ctx, req)
	case "get_document_contract":
		result, err = srv.getDocumentContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestWriteAndReadDocument(t *testing.T) {
	srv, _, _ := testServer(t)

	r := callTool(t, srv, "write_document", map[string]interface{}{
		"path":    "test.md",
		"content": "# Test\nHello",
	})
	text := resultText(r)
	if text != "written: test.md" {
		t.Errorf("write result = %q", text)
	}

	r = callTool(t, srv, "read_document", map[string]interface{}{
		"path": "test.md",
	})
	text = resultText(r)
	if text != "# Test\nHello" {
		t.Errorf("read result = %q", text)
	}
}

func TestWriteDocument_RejectsNonMarkdown(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "write_document", map[string]interface{}{
		"path":    "notes.txt",
		"content": "x",
	})
	if !r.IsError {
		t.Error("expected error for non-markdown path")
	}
}

func TestListDocuments(t *testing.T) {
	srv, content, _ := testServer(t)
	_ = content.Write("a.md", []byte("---\ntitle: A\n---\nbody"))
	_ = content.Write("posts/b.md", []byte("---\ntitle: B\ndraft: true\n---\nbody"))

	r := callTool(t, srv, "list_documents", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "a.md") || !strings.Contains(text, "posts/b.md") {
		t.Errorf("list = %q", text)
	}
	if !strings.Contains(text, "draft") {
		t.Errorf("draft status missing from %q", text)
	}

	r = callTool(t, srv, "list_documents", map[string]interface{}{"folder": "posts"})
	text = resultText(r)
	if strings.Contains(text, "a.md") {
		t.Errorf("folder filter leaked: %q", text)
	}
}

func TestReadDocumentMissing(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "read_document", map[string]interface{}{"path": "nope.md"})
	if !r.IsError {
		t.Error("expected error for missing document")
	}
}

func TestPlanAndRunPublish(t *testing.T) {
	srv, content, mem := testServer(t)
	_ = content.Write("a.md", []byte("---\ntitle: A\n---\nbody"))

	r := callTool(t, srv, "plan_publish", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, `"created": 1`) {
		t.Errorf("plan = %q", text)
	}
	if mem.Count("app.ansuz.document") != 0 {
		t.Error("plan must not write records")
	}

	r = callTool(t, srv, "run_publish", map[string]interface{}{})
	text = resultText(r)
	if !strings.Contains(text, `"created": 1`) {
		t.Errorf("run = %q", text)
	}
	if mem.Count("app.ansuz.document") != 1 {
		t.Errorf("records = %d, want 1", mem.Count("app.ansuz.document"))
	}
}

func TestGetDocumentContract(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "get_document_contract", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "Document Format Contract") {
		t.Error("contract text missing header")
	}
}
