// Package mcpserver exposes the indexing pipeline to an assistive agent
// over the Model Context Protocol: scan_project, get_index, filter_index,
// and format_index. Grounded on the teacher's internal/mcp/server.go
// (mcp.NewServer + AddTool registration shape, stdio transport via
// server.Run, JSON response helpers in response.go), narrowed from the
// teacher's dozens of search/context tools down to the four operations
// this module's pipeline actually performs.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codebasemap/codebasemap/internal/assembler"
	"github.com/codebasemap/codebasemap/internal/discovery"
	"github.com/codebasemap/codebasemap/internal/filter"
	"github.com/codebasemap/codebasemap/internal/format"
	"github.com/codebasemap/codebasemap/internal/types"
)

// Server wraps an mcp.Server and the single in-memory ProjectIndex the
// four tools operate against. A fresh scan_project call replaces it;
// get_index/filter_index/format_index all read the most recent one.
type Server struct {
	server *mcp.Server
	parser assembler.Parser

	mu  sync.Mutex
	idx *types.ProjectIndex
}

// New constructs a Server and registers its tools. parser is the external
// parser consumed by scan_project (jsparser.New() in production, a fake
// in tests).
func New(parser assembler.Parser) *Server {
	s := &Server{
		parser: parser,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "codebasemap-mcp-server",
			Version: "0.1.0",
		}, nil),
	}
	s.registerTools()
	return s
}

// Run serves the MCP protocol over stdio until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "scan_project",
		Description: "Index a JS/TS/JSX/TSX project tree and hold the result for get_index/filter_index/format_index.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"root": {
					Type:        "string",
					Description: "Absolute path to the project root to scan",
				},
				"include": {
					Type:        "array",
					Items:       &jsonschema.Schema{Type: "string"},
					Description: "Glob patterns selecting files to include",
				},
				"exclude": {
					Type:        "array",
					Items:       &jsonschema.Schema{Type: "string"},
					Description: "Glob patterns selecting files to exclude",
				},
			},
			Required: []string{"root"},
		},
	}, s.handleScanProject)

	s.server.AddTool(&mcp.Tool{
		Name:        "get_index",
		Description: "Return the full ProjectIndex produced by the most recent scan_project call, as JSON.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, s.handleGetIndex)

	s.server.AddTool(&mcp.Tool{
		Name:        "filter_index",
		Description: "Apply include/exclude glob patterns to the current index, returning a narrowed copy without rescanning the filesystem.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"include": {
					Type:  "array",
					Items: &jsonschema.Schema{Type: "string"},
				},
				"exclude": {
					Type:  "array",
					Items: &jsonschema.Schema{Type: "string"},
				},
			},
		},
	}, s.handleFilterIndex)

	s.server.AddTool(&mcp.Tool{
		Name:        "format_index",
		Description: "Render the current index in a compact, token-efficient format: 'dsl', 'graph', 'markdown', or 'auto' (picks dsl/graph by file count).",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"style": {
					Type:        "string",
					Description: "One of dsl, graph, markdown, auto (default auto)",
				},
			},
		},
	}, s.handleFormatIndex)
}

type scanProjectParams struct {
	Root    string   `json:"root"`
	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
}

func (s *Server) handleScanProject(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params scanProjectParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return errorResult("scan_project", fmt.Errorf("invalid parameters: %w", err))
	}
	if params.Root == "" {
		return errorResult("scan_project", fmt.Errorf("root is required"))
	}

	idx, err := assembler.ProcessProject(params.Root, assembler.Options{
		Filter: discovery.FilterOptions{Include: params.Include, Exclude: params.Exclude},
	}, s.parser, nil)
	if err != nil {
		return errorResult("scan_project", err)
	}

	s.mu.Lock()
	s.idx = idx
	s.mu.Unlock()

	return jsonResult(map[string]any{
		"success":     true,
		"total_files": idx.Metadata.TotalFiles,
		"root":        idx.Metadata.Root,
	})
}

func (s *Server) handleGetIndex(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idx, err := s.currentIndex()
	if err != nil {
		return errorResult("get_index", err)
	}
	return jsonResult(idx)
}

type filterIndexParams struct {
	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
}

func (s *Server) handleFilterIndex(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idx, err := s.currentIndex()
	if err != nil {
		return errorResult("filter_index", err)
	}

	var params filterIndexParams
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
			return errorResult("filter_index", fmt.Errorf("invalid parameters: %w", err))
		}
	}

	filtered, err := filter.Apply(idx, filter.Options{Include: params.Include, Exclude: params.Exclude})
	if err != nil {
		return errorResult("filter_index", err)
	}
	return jsonResult(filtered)
}

type formatIndexParams struct {
	Style string `json:"style,omitempty"`
}

func (s *Server) handleFormatIndex(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idx, err := s.currentIndex()
	if err != nil {
		return errorResult("format_index", err)
	}

	var params formatIndexParams
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
			return errorResult("format_index", fmt.Errorf("invalid parameters: %w", err))
		}
	}

	var text string
	switch params.Style {
	case "dsl":
		text = format.DSL(idx)
	case "graph":
		text = format.Graph(idx)
	case "markdown":
		text = format.Markdown(idx)
	case "", "auto":
		text = format.Auto(idx)
	default:
		return errorResult("format_index", fmt.Errorf("unknown style %q: want dsl, graph, markdown, or auto", params.Style))
	}

	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}, nil
}

func (s *Server) currentIndex() (*types.ProjectIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx == nil {
		return nil, fmt.Errorf("no index yet: call scan_project first")
	}
	return s.idx, nil
}

// jsonResult marshals data as the tool's single text content block, per
// the teacher's createJSONResponse.
func jsonResult(data any) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(content)}}}, nil
}

// errorResult reports a tool failure inside the result (IsError=true)
// rather than as a protocol-level error, per the teacher's
// createErrorResponse: this lets the calling agent see and self-correct.
func errorResult(operation string, err error) (*mcp.CallToolResult, error) {
	result, marshalErr := jsonResult(map[string]any{
		"success":   false,
		"error":     err.Error(),
		"operation": operation,
	})
	if marshalErr != nil {
		return nil, marshalErr
	}
	result.IsError = true
	return result, nil
}
