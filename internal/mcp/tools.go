package mcp

import "github.com/mark3labs/mcp-go/mcp"

// searchDocumentsTool defines the search_documents MCP tool.
var searchDocumentsTool = mcp.NewTool("search_documents",
	mcp.WithDescription("Search the indexed documents with hybrid semantic and keyword retrieval. Returns the most relevant passages with their source document and page."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of passages to return (default 10)"),
	),
)

// listDocumentsTool defines the list_documents MCP tool.
var listDocumentsTool = mcp.NewTool("list_documents",
	mcp.WithDescription("List all uploaded documents with their indexing status."),
)

// getDocumentStatusTool defines the get_document_status MCP tool.
var getDocumentStatusTool = mcp.NewTool("get_document_status",
	mcp.WithDescription("Get the indexing status of a single document by id."),
	mcp.WithString("document_id",
		mcp.Required(),
		mcp.Description("Document id returned by upload or list_documents"),
	),
)

// getIndexStatusTool defines the get_index_status MCP tool.
var getIndexStatusTool = mcp.NewTool("get_index_status",
	mcp.WithDescription("Report the vector index tier (exact or approximate), its size, and the total number of indexed chunks."),
)
