package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hfarouk/docdex/internal/retriever"
	"github.com/hfarouk/docdex/internal/store"
)

// handleSearchDocuments runs hybrid retrieval over the indexed corpus.
func (s *Server) handleSearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", 10)
	if limit <= 0 {
		limit = 10
	}

	resp, err := s.retriever.Search(ctx, query, retriever.QueryMetadata{}, limit, s.rrfK)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	if len(resp.Results) == 0 {
		return mcp.NewToolResultText("No results found. The knowledge base may be empty; upload documents with `docdex ingest` or the HTTP API."), nil
	}

	return mcp.NewToolResultText(formatSearchResults(resp.Results)), nil
}

// handleListDocuments returns every document and its indexing state.
func (s *Server) handleListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.store.ListDocuments(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing documents failed: %v", err)), nil
	}
	if len(docs) == 0 {
		return mcp.NewToolResultText("No documents uploaded yet."), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d document(s):\n", len(docs)))
	for _, d := range docs {
		sb.WriteString(fmt.Sprintf("\n- %s (id %s)\n  status: %s, pages: %d, bytes: %d\n",
			d.OriginalName, d.ID, d.Status, d.PageCount, d.ByteSize))
		if d.ErrorMessage != "" {
			sb.WriteString(fmt.Sprintf("  error: %s\n", d.ErrorMessage))
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleGetDocumentStatus reports the state of one document.
func (s *Server) handleGetDocumentStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: document_id"), nil
	}

	doc, err := s.store.GetDocument(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("no document with id %q", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("fetching document failed: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Document %s (%s)\n", doc.ID, doc.OriginalName))
	sb.WriteString(fmt.Sprintf("Status: %s\n", doc.Status))
	sb.WriteString(fmt.Sprintf("Pages: %d\n", doc.PageCount))
	sb.WriteString(fmt.Sprintf("Uploaded: %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05")))
	if doc.ErrorMessage != "" {
		sb.WriteString(fmt.Sprintf("Error: %s\n", doc.ErrorMessage))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleGetIndexStatus reports which index tier is serving queries.
func (s *Server) handleGetIndexStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	chunks, err := s.store.TotalChunks(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("counting chunks failed: %v", err)), nil
	}

	st := s.index.CurrentStatus()
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Index tier: %s\n", st.Kind))
	sb.WriteString(fmt.Sprintf("Vectors: %d (dim %d)\n", st.Vectors, st.Dim))
	sb.WriteString(fmt.Sprintf("Approximate index trained: %t\n", st.Trained))
	sb.WriteString(fmt.Sprintf("Indexed chunks: %d\n", chunks))
	return mcp.NewToolResultText(sb.String()), nil
}

// formatSearchResults converts retrieval results into a text format for
// AI agent consumption.
func formatSearchResults(results []retriever.Result) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d result(s):\n", len(results)))

	for i, r := range results {
		sb.WriteString(fmt.Sprintf("\n--- Result %d ---\n", i+1))
		sb.WriteString(fmt.Sprintf("Document: %s (page %d)\n", r.DocumentName, r.PageNum))
		sb.WriteString(fmt.Sprintf("Score: %.4f\n", r.Scores.Merged))
		sb.WriteString("\n")
		sb.WriteString(r.Text)
		sb.WriteString("\n")
	}

	return sb.String()
}
