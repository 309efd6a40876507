package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/raido/internal"
	"github.com/starford/raido/internal/report"
	"github.com/starford/raido/internal/testutil"
)

func testServer(t *testing.T) (*Server, string) {
	t.Helper()

	root := t.TempDir()
	cfg := internal.NewDefaultConfig()
	cfg.Corpus.Root = root
	cfg.Registry.Path = filepath.Join(root, "exceptions.yaml")
	cfg.Secrets.AllowlistPath = filepath.Join(root, ".secretignore")
	cfg.Secrets.BaselinePath = filepath.Join(root, "secret-baseline.json")
	cfg.Links.CachePath = ""

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pipe, cleanup, err := internal.NewPipeline(cfg, logger)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(cleanup)

	srv := New(pipe, internal.RunOptions{
		Checks: []string{internal.CheckBodyHash, internal.CheckSchema, internal.CheckAttest},
	})
	return srv, root
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "validate_entry":
		result, err = srv.validateEntry(ctx, req)
	case "get_report":
		result, err = srv.getReport(ctx, req)
	case "list_entries":
		result, err = srv.listEntries(ctx, req)
	case "read_entry":
		result, err = srv.readEntry(ctx, req)
	case "get_entry_contract":
		result, err = srv.getEntryContract(ctx, req)
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

func TestValidateEntry(t *testing.T) {
	srv, root := testServer(t)
	doc := testutil.EntryDoc("Broken", "LED-1", "canonized", "# Broken\n\nno hash, no signers\n")
	testutil.WriteFile(t, root, "canonized/broken.md", []byte(doc))

	r := callTool(t, srv, "validate_entry", map[string]interface{}{"path": "canonized/broken.md"})
	var rep report.EntryReport
	if err := json.Unmarshal([]byte(resultText(r)), &rep); err != nil {
		t.Fatalf("result is not an entry report: %v\n%s", err, resultText(r))
	}
	if rep.Status != report.StatusFailed || len(rep.Findings) == 0 {
		t.Errorf("rep = %+v", rep)
	}
}

func TestValidateEntry_MissingPath(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "validate_entry", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error without path argument")
	}
}

func TestGetReport(t *testing.T) {
	srv, root := testServer(t)
	testutil.WriteFile(t, root, "intake/bad.md", []byte("no frontmatter\n"))

	r := callTool(t, srv, "get_report", map[string]interface{}{})
	var payload struct {
		Summary report.Summary       `json:"summary"`
		Failing []report.EntryReport `json:"failing"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &payload); err != nil {
		t.Fatalf("decode: %v\n%s", err, resultText(r))
	}
	if payload.Summary.Entries != 1 || len(payload.Failing) != 1 {
		t.Errorf("payload = %+v", payload)
	}
}

func TestListEntries_Filter(t *testing.T) {
	srv, root := testServer(t)
	testutil.WriteFile(t, root, "intake/bad.md", []byte("no frontmatter\n"))

	r := callTool(t, srv, "list_entries", map[string]interface{}{"status": "failed"})
	text := resultText(r)
	if !strings.Contains(text, "failed\tintake/bad.md") {
		t.Errorf("list = %q", text)
	}

	r = callTool(t, srv, "list_entries", map[string]interface{}{"status": "passed"})
	if resultText(r) != "no entries" {
		t.Errorf("list = %q", resultText(r))
	}
}

func TestReadEntry(t *testing.T) {
	srv, root := testServer(t)
	doc := testutil.EntryDoc("Readable", "LED-2", "draft", "# Readable\n")
	testutil.WriteFile(t, root, "intake/read.md", []byte(doc))

	r := callTool(t, srv, "read_entry", map[string]interface{}{"path": "intake/read.md"})
	if resultText(r) != doc {
		t.Errorf("read = %q", resultText(r))
	}

	r = callTool(t, srv, "read_entry", map[string]interface{}{"path": "nope.md"})
	if !r.IsError {
		t.Error("expected error for missing entry")
	}
}

func TestGetEntryContract(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_entry_contract", map[string]interface{}{})
	text := resultText(r)
	for _, want := range []string{"canonical_status", "body_sha256", "attestation", "exceptions"} {
		if !strings.Contains(text, want) {
			t.Errorf("contract missing %q", want)
		}
	}
}

func TestWriteBackForcedOff(t *testing.T) {
	pipeOpts := internal.RunOptions{UpdateFrontmatter: true, UpdateBaseline: true, WriteIndex: true}
	srv, _ := testServer(t)
	srv2 := New(srv.pipe, pipeOpts)
	if srv2.opts.UpdateFrontmatter || srv2.opts.UpdateBaseline || srv2.opts.WriteIndex {
		t.Error("write-back modes must be stripped for MCP runs")
	}
}
