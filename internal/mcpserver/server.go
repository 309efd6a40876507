// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes validation tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/raido/internal"
	"github.com/starford/raido/internal/report"
)

// Server wraps the MCP server with ledger validation tools.
type Server struct {
	mcp  *server.MCPServer
	pipe *internal.Pipeline
	opts internal.RunOptions
}

// New creates a new MCP server with all tools registered. Runs triggered
// through it use the given stage selection; write-back modes are forced off
// so an LLM call can never mutate the corpus.
func New(pipe *internal.Pipeline, opts internal.RunOptions) *Server {
	opts.UpdateFrontmatter = false
	opts.UpdateBaseline = false
	opts.WriteIndex = false

	s := &Server{pipe: pipe, opts: opts}

	s.mcp = server.NewMCPServer(
		"Raido",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("validate_entry",
		mcp.WithDescription("Validate a single ledger entry and return its findings as JSON."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Corpus-relative path to the entry (e.g. canonized/decision.md)")),
	), s.validateEntry)

	s.mcp.AddTool(mcp.NewTool("get_report",
		mcp.WithDescription("Run the full validation pipeline over the corpus and return the report summary plus every failing entry."),
	), s.getReport)

	s.mcp.AddTool(mcp.NewTool("list_entries",
		mcp.WithDescription("List corpus entries with their current validation status."),
		mcp.WithString("status", mcp.Description("Optional status filter: passed, warnings, failed, incomplete")),
	), s.listEntries)

	s.mcp.AddTool(mcp.NewTool("read_entry",
		mcp.WithDescription("Read the raw Markdown of a ledger entry."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Corpus-relative path to the entry")),
	), s.readEntry)

	s.mcp.AddTool(mcp.NewTool("get_entry_contract",
		mcp.WithDescription("Returns the canonical ledger entry format contract. "+
			"Call this before drafting or reviewing entries to ensure correct structure."),
	), s.getEntryContract)

	// Resource: entry format contract.
	s.mcp.AddResource(
		mcp.NewResource("raido://entry-format", "Entry Format Contract",
			mcp.WithResourceDescription("Canonical ledger entry format that all entries must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readEntryFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) validateEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rep := s.pipe.EvaluateEntry(ctx, path, s.opts)
	out, _ := json.MarshalIndent(rep, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rep, err := s.pipe.Run(ctx, s.opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	failing := make([]report.EntryReport, 0)
	for _, e := range rep.Entries {
		if e.Status == report.StatusFailed || e.Status == report.StatusIncomplete {
			failing = append(failing, e)
		}
	}
	out, _ := json.MarshalIndent(map[string]any{
		"summary": rep.Summary,
		"global":  rep.Global,
		"failing": failing,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := ""
	if f, err := req.RequireString("status"); err == nil {
		filter = f
	}

	rep, err := s.pipe.Run(ctx, s.opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var lines []string
	for _, e := range rep.Entries {
		if filter != "" && e.Status != filter {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s\t%s", e.Status, e.Path))
	}
	if len(lines) == 0 {
		return mcp.NewToolResultText("no entries"), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) readEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.pipe.Store().Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) getEntryContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(EntryFormatContract), nil
}

func (s *Server) readEntryFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "raido://entry-format",
			MIMEType: "text/markdown",
			Text:     EntryFormatContract,
		},
	}, nil
}
