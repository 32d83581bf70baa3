package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/memcontext-mcp/internal/engine"
	"github.com/dshills/memcontext-mcp/internal/reindex"
	"github.com/dshills/memcontext-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams     = -32602 // Invalid method parameters
	ErrorCodeInternalError     = -32603 // Internal JSON-RPC error
	ErrorCodeRecordNotFound    = -32001 // No record with the given id
	ErrorCodeReindexInProgress = -32002 // Another reindex is already running
	ErrorCodeDimensionMismatch = -32003 // Query embedding incompatible with stored vectors
)

// handleStore handles the memory_store tool invocation
func (s *Server) handleStore(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	content, ok := args["content"].(string)
	if !ok || content == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "content parameter is required", map[string]interface{}{
			"param":  "content",
			"reason": "missing or empty",
		})
	}

	meta := types.Metadata{
		Source: getStringDefault(args, "source", ""),
		Tags:   getStringSlice(args, "tags"),
	}

	record, err := s.engine.Store(ctx, content, meta)
	if err != nil {
		if errors.Is(err, engine.ErrEmptyContent) {
			return nil, newMCPError(ErrorCodeInvalidParams, "content must not be empty", map[string]interface{}{
				"param": "content",
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "store failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"stored":     true,
		"record_id":  record.ID,
		"created_at": record.CreatedAt.Format(time.RFC3339),
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleRecall handles the memory_recall tool invocation
func (s *Server) handleRecall(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "query parameter is required", map[string]interface{}{
			"param":  "query",
			"reason": "missing",
		})
	}

	limit := getIntDefault(args, "limit", 10)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	keywordWeight := getFloatDefault(args, "keyword_weight", 0)
	vectorWeight := getFloatDefault(args, "vector_weight", 0)
	if keywordWeight < 0 || vectorWeight < 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "weights must be non-negative", map[string]interface{}{
			"keyword_weight": keywordWeight,
			"vector_weight":  vectorWeight,
		})
	}

	results, err := s.engine.Recall(ctx, query, engine.RecallOptions{
		TopK:          limit,
		KeywordWeight: keywordWeight,
		VectorWeight:  vectorWeight,
	})
	if err != nil {
		if errors.Is(err, types.ErrDimensionMismatch) {
			return nil, newMCPError(ErrorCodeDimensionMismatch, "stored vectors are incompatible with the current embedding model; run memory_reindex", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "recall failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	entries := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		entry := map[string]interface{}{
			"rank":      r.Rank,
			"record_id": r.RecordID,
			"text":      r.Text,
			"score":     r.FinalScore,
			"score_breakdown": map[string]interface{}{
				"keyword_score":  r.Breakdown.KeywordScore,
				"vector_score":   r.Breakdown.VectorScore,
				"keyword_weight": r.Breakdown.KeywordWeight,
				"vector_weight":  r.Breakdown.VectorWeight,
			},
		}
		if r.HeadingPath != "" {
			entry["heading_path"] = r.HeadingPath
		}
		if r.Source != "" {
			entry["source"] = r.Source
		}
		if len(r.Tags) > 0 {
			entry["tags"] = r.Tags
		}
		entries = append(entries, entry)
	}

	response := map[string]interface{}{
		"results": entries,
		"count":   len(entries),
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleForget handles the memory_forget tool invocation
func (s *Server) handleForget(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	recordID, ok := args["record_id"].(string)
	if !ok || recordID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "record_id parameter is required", map[string]interface{}{
			"param":  "record_id",
			"reason": "missing or empty",
		})
	}

	if err := s.engine.Forget(ctx, recordID); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, newMCPError(ErrorCodeRecordNotFound, "no memory with that id", map[string]interface{}{
				"record_id": recordID,
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "forget failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"forgotten": true,
		"record_id": recordID,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleReindex handles the memory_reindex tool invocation
func (s *Server) handleReindex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.engine.Reindex(ctx)
	if err != nil {
		if errors.Is(err, reindex.ErrReindexInProgress) {
			return nil, newMCPError(ErrorCodeReindexInProgress, "a reindex is already running", nil)
		}
		return nil, newMCPError(ErrorCodeInternalError, "reindex failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"chunks_reindexed":   report.ChunksReindexed,
		"vectors_backfilled": report.VectorsBackfilled,
		"vectors_failed":     report.VectorsFailed,
		"keyword_only":       report.KeywordOnly,
		"generation":         report.Generation,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleStatus handles the memory_status tool invocation
func (s *Server) handleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.engine.Status(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"statistics": map[string]interface{}{
			"records_count":    status.Records,
			"chunks_count":     status.Chunks,
			"embeddings_count": status.Embeddings,
			"cache_entries":    status.CacheEntries,
		},
		"index": map[string]interface{}{
			"generation":    status.Generation,
			"reindex_state": status.ReindexState,
		},
		"embedding": map[string]interface{}{
			"provider":     status.Provider,
			"model":        status.Model,
			"cooling_down": status.CoolingDown,
		},
		"degraded": status.Degraded,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getFloatDefault extracts a number parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	if val, ok := args[key].(float64); ok {
		return val
	}
	if val, ok := args[key].(int); ok {
		return float64(val)
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a string array parameter
func getStringSlice(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
