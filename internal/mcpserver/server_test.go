package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codebasemap/codebasemap/internal/types"
)

type fakeParser struct{}

func (fakeParser) ParseFile(absPath, ext string) (types.FileInfo, error) {
	return types.FileInfo{}, nil
}

func req(t *testing.T, params any) *mcp.CallToolRequest {
	t.Helper()
	var raw []byte
	if params != nil {
		b, err := json.Marshal(params)
		require.NoError(t, err)
		raw = b
	}
	return &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Arguments: raw}}
}

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.ts"), []byte("export const x = 1;"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "util.ts"), []byte("export const y = 2;"), 0o644))
	return dir
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	tc, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestHandleGetIndex_FailsBeforeScan(t *testing.T) {
	s := New(fakeParser{})
	result, err := s.handleGetIndex(context.Background(), req(t, nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleScanProject_RequiresRoot(t *testing.T) {
	s := New(fakeParser{})
	result, err := s.handleScanProject(context.Background(), req(t, scanProjectParams{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleScanProject_PopulatesIndex(t *testing.T) {
	root := writeProject(t)
	s := New(fakeParser{})

	result, err := s.handleScanProject(context.Background(), req(t, scanProjectParams{Root: root}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(2), body["total_files"])
}

func TestHandleGetIndex_ReturnsScannedIndex(t *testing.T) {
	root := writeProject(t)
	s := New(fakeParser{})
	_, err := s.handleScanProject(context.Background(), req(t, scanProjectParams{Root: root}))
	require.NoError(t, err)

	result, err := s.handleGetIndex(context.Background(), req(t, nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var idx types.ProjectIndex
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &idx))
	assert.Equal(t, 2, idx.Metadata.TotalFiles)
}

func TestHandleFilterIndex_NarrowsByInclude(t *testing.T) {
	root := writeProject(t)
	s := New(fakeParser{})
	_, err := s.handleScanProject(context.Background(), req(t, scanProjectParams{Root: root}))
	require.NoError(t, err)

	result, err := s.handleFilterIndex(context.Background(), req(t, filterIndexParams{Include: []string{"main.ts"}}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var idx types.ProjectIndex
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &idx))
	assert.Equal(t, []string{"main.ts"}, idx.Nodes)
}

func TestHandleFormatIndex_RejectsUnknownStyle(t *testing.T) {
	root := writeProject(t)
	s := New(fakeParser{})
	_, err := s.handleScanProject(context.Background(), req(t, scanProjectParams{Root: root}))
	require.NoError(t, err)

	result, err := s.handleFormatIndex(context.Background(), req(t, formatIndexParams{Style: "yaml"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleFormatIndex_DefaultsToAuto(t *testing.T) {
	root := writeProject(t)
	s := New(fakeParser{})
	_, err := s.handleScanProject(context.Background(), req(t, scanProjectParams{Root: root}))
	require.NoError(t, err)

	result, err := s.handleFormatIndex(context.Background(), req(t, nil))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.NotEmpty(t, resultText(t, result))
}
