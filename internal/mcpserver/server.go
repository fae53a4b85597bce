// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes Inksync's record lookup and sync trigger via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/inksync/internal/metastore"
	"github.com/starford/inksync/internal/syncer"
)

// Server wraps the MCP server with Inksync tools.
type Server struct {
	mcp      *server.MCPServer
	store    *metastore.Store
	session  *syncer.Session
	inboxDir string
}

// New creates a new MCP server with all Inksync tools registered.
func New(store *metastore.Store, session *syncer.Session, inboxDir string) *Server {
	s := &Server{mcp: nil, store: store, session: session, inboxDir: inboxDir}

	s.mcp = server.NewMCPServer(
		"Inksync",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.mcp.AddTool(mcp.NewTool("list_records",
		mcp.WithDescription("List every tracked note record: stable note id, output path, timestamps, page attachments."),
	), s.listRecords)

	s.mcp.AddTool(mcp.NewTool("get_record",
		mcp.WithDescription("Look up one note record by its stable note identifier."),
		mcp.WithString("note_id", mcp.Required(), mcp.Description("Stable note identifier assigned by the source system")),
	), s.getRecord)

	s.mcp.AddTool(mcp.NewTool("sync_inbox",
		mcp.WithDescription("Run a sync batch over the archive inbox and report per-note results."),
	), s.syncInbox)

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

func (s *Server) listRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recs, err := s.store.All()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(recs, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	noteID, err := req.RequireString("note_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.store.FindByNoteID(noteID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("record %s: %v", noteID, err)), nil
	}
	out, _ := json.MarshalIndent(rec, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) syncInbox(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	batch, err := s.session.SyncDir(ctx, s.inboxDir)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	summary := map[string]int{
		"total":     batch.Total,
		"succeeded": batch.Succeeded,
		"skipped":   batch.Skipped,
		"failed":    batch.Failed,
	}
	out, _ := json.MarshalIndent(summary, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
