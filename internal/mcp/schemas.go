package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// memoryStoreTool returns the tool definition for memory_store
func memoryStoreTool() mcp.Tool {
	return mcp.Tool{
		Name:        "memory_store",
		Description: "Store a memory for later retrieval. Content is chunked, indexed for keyword search, and embedded for semantic search.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"content": map[string]interface{}{
					"type":        "string",
					"description": "Text to remember (plain text or markdown)",
				},
				"source": map[string]interface{}{
					"type":        "string",
					"description": "Optional origin label (e.g. conversation id, file path)",
				},
				"tags": map[string]interface{}{
					"type":        "array",
					"description": "Optional tags attached to the memory",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
			},
			Required: []string{"content"},
		},
	}
}

// memoryRecallTool returns the tool definition for memory_recall
func memoryRecallTool() mcp.Tool {
	return mcp.Tool{
		Name:        "memory_recall",
		Description: "Retrieve stored memories relevant to a query using hybrid keyword and semantic search",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"keyword_weight": map[string]interface{}{
					"type":        "number",
					"description": "Relative weight of the keyword score; weights are normalized to sum to 1",
					"minimum":     0.0,
				},
				"vector_weight": map[string]interface{}{
					"type":        "number",
					"description": "Relative weight of the semantic score; set keyword_weight 0 and vector_weight 1 for pure semantic search",
					"minimum":     0.0,
				},
			},
			Required: []string{"query"},
		},
	}
}

// memoryForgetTool returns the tool definition for memory_forget
func memoryForgetTool() mcp.Tool {
	return mcp.Tool{
		Name:        "memory_forget",
		Description: "Permanently delete a stored memory and all derived search artifacts",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"record_id": map[string]interface{}{
					"type":        "string",
					"description": "Identifier returned by memory_store",
				},
			},
			Required: []string{"record_id"},
		},
	}
}

// memoryReindexTool returns the tool definition for memory_reindex
func memoryReindexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "memory_reindex",
		Description: "Rebuild the keyword index from stored memories and backfill missing embeddings",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// memoryStatusTool returns the tool definition for memory_status
func memoryStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "memory_status",
		Description: "Report memory store statistics and health",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
