// Package mcp implements the Model Context Protocol (MCP) server for
// memcontext.
//
// The server exposes five tools to AI assistants:
//   - memory_store: Store a memory for later retrieval
//   - memory_recall: Retrieve memories relevant to a query
//   - memory_forget: Permanently delete a memory
//   - memory_reindex: Rebuild search indexes
//   - memory_status: Report store statistics and health
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server reads MCP protocol messages from stdin and writes responses
// to stdout, so it plugs into any MCP-compatible client.
//
// # Tool: memory_store
//
//	Request:
//	{
//	  "name": "memory_store",
//	  "arguments": {
//	    "content": "The auth service retries token refresh three times",
//	    "source": "conversation-2024-11-03",
//	    "tags": ["auth", "retries"]
//	  }
//	}
//
//	Response:
//	{
//	  "stored": true,
//	  "record_id": "01JBXV...",
//	  "created_at": "2024-11-03T14:22:01Z"
//	}
//
// # Tool: memory_recall
//
//	Request:
//	{
//	  "name": "memory_recall",
//	  "arguments": {
//	    "query": "how does token refresh work",
//	    "limit": 5,
//	    "keyword_weight": 0.4,
//	    "vector_weight": 0.6
//	  }
//	}
//
//	Response:
//	{
//	  "count": 1,
//	  "results": [
//	    {
//	      "rank": 1,
//	      "record_id": "01JBXV...",
//	      "text": "The auth service retries token refresh three times",
//	      "score": 0.87,
//	      "score_breakdown": {
//	        "keyword_score": 0.95,
//	        "vector_score": 0.82,
//	        "keyword_weight": 0.4,
//	        "vector_weight": 0.6
//	      }
//	    }
//	  ]
//	}
//
// Setting keyword_weight to 0 and vector_weight to 1 gives pure semantic
// search; the reverse gives pure keyword search.
//
// # MCP Client Configuration
//
// Configure in Claude Code's MCP settings:
//
//	{
//	  "mcpServers": {
//	    "memcontext": {
//	      "command": "/usr/local/bin/memcontext",
//	      "env": {
//	        "JINA_API_KEY": "your-api-key"
//	      }
//	    }
//	  }
//	}
//
// With no API key configured the server falls back to a deterministic
// local embedder; recall still works, with reduced semantic quality.
//
// # Error Handling
//
// The server returns standard JSON-RPC error responses:
//
//	{
//	  "error": {
//	    "code": -32602,
//	    "message": "Invalid params",
//	    "data": {
//	      "param": "content",
//	      "reason": "missing or empty"
//	    }
//	  }
//	}
//
// Error codes:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (database, filesystem, etc.)
//   - -32001: Record not found
//   - -32002: Reindex already in progress
//   - -32003: Stored vectors incompatible with the current embedding model
//
// # Logging
//
// The server logs to stderr; stdout is reserved for the MCP protocol.
package mcp
