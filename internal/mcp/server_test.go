package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/memcontext-mcp/internal/embedder"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	t.Setenv(embedder.EnvProvider, embedder.ProviderLocal)

	server, err := NewServer(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = server.engine.Close()
		_ = server.storage.Close()
	})
	return server
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func decodeResult(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.Len(t, result.Content, 1)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &payload))
	return payload
}

func TestServerInitialization(t *testing.T) {
	server := newTestServer(t)

	assert.NotNil(t, server.mcp)
	assert.NotNil(t, server.storage)
	assert.NotNil(t, server.engine)

	health, err := server.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, health.Records)
	assert.False(t, health.Degraded)
}

func TestStoreRecallForgetRoundTrip(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	result, err := server.handleStore(ctx, callRequest("memory_store", map[string]interface{}{
		"content": "The payment service caps retries at three attempts",
		"source":  "conversation-42",
		"tags":    []interface{}{"payments", "retries"},
	}))
	require.NoError(t, err)
	stored := decodeResult(t, result)
	assert.Equal(t, true, stored["stored"])
	recordID, ok := stored["record_id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, recordID)

	result, err = server.handleRecall(ctx, callRequest("memory_recall", map[string]interface{}{
		"query": "payment retries",
		"limit": float64(5),
	}))
	require.NoError(t, err)
	recalled := decodeResult(t, result)
	require.Equal(t, float64(1), recalled["count"])
	entries := recalled["results"].([]interface{})
	first := entries[0].(map[string]interface{})
	assert.Equal(t, recordID, first["record_id"])
	assert.Equal(t, "conversation-42", first["source"])
	assert.Contains(t, first, "score_breakdown")

	result, err = server.handleForget(ctx, callRequest("memory_forget", map[string]interface{}{
		"record_id": recordID,
	}))
	require.NoError(t, err)
	forgotten := decodeResult(t, result)
	assert.Equal(t, true, forgotten["forgotten"])

	result, err = server.handleRecall(ctx, callRequest("memory_recall", map[string]interface{}{
		"query": "payment retries",
	}))
	require.NoError(t, err)
	empty := decodeResult(t, result)
	assert.Equal(t, float64(0), empty["count"])
}

func TestStoreValidation(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		args map[string]interface{}
		code int
	}{
		{"missing content", map[string]interface{}{}, ErrorCodeInvalidParams},
		{"empty content", map[string]interface{}{"content": ""}, ErrorCodeInvalidParams},
		{"whitespace content", map[string]interface{}{"content": "   \n "}, ErrorCodeInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := server.handleStore(ctx, callRequest("memory_store", tt.args))
			require.Error(t, err)
			var mcpErr *MCPError
			require.ErrorAs(t, err, &mcpErr)
			assert.Equal(t, tt.code, mcpErr.Code)
		})
	}
}

func TestRecallValidation(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		args map[string]interface{}
		code int
	}{
		{"missing query", map[string]interface{}{}, ErrorCodeInvalidParams},
		{"limit too small", map[string]interface{}{"query": "x", "limit": float64(0)}, ErrorCodeInvalidParams},
		{"limit too large", map[string]interface{}{"query": "x", "limit": float64(500)}, ErrorCodeInvalidParams},
		{"negative weight", map[string]interface{}{"query": "x", "keyword_weight": float64(-1)}, ErrorCodeInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := server.handleRecall(ctx, callRequest("memory_recall", tt.args))
			require.Error(t, err)
			var mcpErr *MCPError
			require.ErrorAs(t, err, &mcpErr)
			assert.Equal(t, tt.code, mcpErr.Code)
		})
	}
}

func TestRecallEmptyQueryReturnsNoResults(t *testing.T) {
	server := newTestServer(t)

	result, err := server.handleRecall(context.Background(), callRequest("memory_recall", map[string]interface{}{
		"query": "",
	}))
	require.NoError(t, err)
	payload := decodeResult(t, result)
	assert.Equal(t, float64(0), payload["count"])
}

func TestForgetUnknownRecord(t *testing.T) {
	server := newTestServer(t)

	_, err := server.handleForget(context.Background(), callRequest("memory_forget", map[string]interface{}{
		"record_id": "does-not-exist",
	}))
	require.Error(t, err)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeRecordNotFound, mcpErr.Code)
}

func TestReindexTool(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	_, err := server.handleStore(ctx, callRequest("memory_store", map[string]interface{}{
		"content": "some content to reindex",
	}))
	require.NoError(t, err)

	result, err := server.handleReindex(ctx, callRequest("memory_reindex", map[string]interface{}{}))
	require.NoError(t, err)
	payload := decodeResult(t, result)
	assert.Equal(t, float64(1), payload["chunks_reindexed"])
	assert.Equal(t, false, payload["keyword_only"])
}

func TestStatusTool(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	_, err := server.handleStore(ctx, callRequest("memory_store", map[string]interface{}{
		"content": "stored for status",
	}))
	require.NoError(t, err)

	result, err := server.handleStatus(ctx, callRequest("memory_status", map[string]interface{}{}))
	require.NoError(t, err)
	payload := decodeResult(t, result)

	stats := payload["statistics"].(map[string]interface{})
	assert.Equal(t, float64(1), stats["records_count"])
	embedding := payload["embedding"].(map[string]interface{})
	assert.Equal(t, embedder.ProviderLocal, embedding["provider"])
	assert.Equal(t, false, payload["degraded"])
}

func TestMCPErrorFormatting(t *testing.T) {
	err := newMCPError(ErrorCodeInvalidParams, "bad input", nil)
	assert.Equal(t, "MCP error -32602: bad input", err.Error())
}
