// Package mcpserver exposes model sources and MDL exports as MCP tools over
// stdio, so LLM clients can author and export models.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/mdlforge/internal/apperr"
	"github.com/starford/mdlforge/internal/exportservice"
)

const sourceFormatURI = "mdlforge://source-format"

// Server wraps the MCP server.
type Server struct {
	mcp *server.MCPServer
	svc *exportservice.Service
}

// New registers every tool against svc.
func New(svc *exportservice.Service, version string) *Server {
	s := &Server{svc: svc}
	s.mcp = server.NewMCPServer(
		"mdlforge",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_models",
		mcp.WithDescription("List catalogued model sources with node and sequence counts."),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
	), s.listModels)

	s.mcp.AddTool(mcp.NewTool("read_model",
		mcp.WithDescription("Read the YAML source of a model."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Source path, e.g. props/crate.model.yaml")),
	), s.readModel)

	s.mcp.AddTool(mcp.NewTool("create_model",
		mcp.WithDescription("Create a model source. Content MUST follow the source format; "+
			"read it first via get_format_contract or the "+sourceFormatURI+" resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Source path ending in .model.yaml")),
		mcp.WithString("content", mcp.Required(), mcp.Description("YAML model source")),
	), s.createModel)

	s.mcp.AddTool(mcp.NewTool("export_model",
		mcp.WithDescription("Export a model source to MDL text and store it next to the other exports."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Source path")),
	), s.exportModel)

	s.mcp.AddTool(mcp.NewTool("read_export",
		mcp.WithDescription("Return the MDL text produced by the last export of a source."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Source path")),
	), s.readExport)

	s.mcp.AddTool(mcp.NewTool("search_models",
		mcp.WithDescription("Search model names, paths and node names."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Substring to look for")),
		mcp.WithNumber("limit", mcp.Description("Max results (default 20)")),
	), s.searchModels)

	s.mcp.AddTool(mcp.NewTool("get_model_graph",
		mcp.WithDescription("Return the node hierarchy of a model as nodes and parent links."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Source path")),
	), s.modelGraph)

	s.mcp.AddTool(mcp.NewTool("get_format_contract",
		mcp.WithDescription("Return the model source format. Call this before creating models."),
	), s.formatContract)

	s.mcp.AddResource(
		mcp.NewResource(sourceFormatURI, "Model Source Format",
			mcp.WithResourceDescription("YAML format accepted for *.model.yaml sources."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)
	return s
}

// ServeStdio serves on stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func toolError(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("not found")
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listModels(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, total, err := s.svc.ListModels(ctx, req.GetInt("limit", 50), req.GetInt("offset", 0), "path")
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]any{"models": items, "total": total})
}

func (s *Server) readModel(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	m, err := s.svc.GetModel(ctx, path)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(m.Content), nil
}

func (s *Server) createModel(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	m, err := s.svc.CreateModel(ctx, path, []byte(content))
	if err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			return mcp.NewToolResultError(fmt.Sprintf("model already exists: %s", path)), nil
		}
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s (%d helpers)", m.Path, len(m.Model.Helpers))), nil
}

func (s *Server) exportModel(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Export(ctx, path)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res)
}

func (s *Server) readExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	_, text, err := s.svc.GetExport(ctx, path)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(string(text)), nil
}

func (s *Server) searchModels(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(results)
}

func (s *Server) modelGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	g, err := s.svc.Graph(ctx, path)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(g)
}

func (s *Server) formatContract(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(SourceFormatContract), nil
}

func (s *Server) readFormatResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      sourceFormatURI,
			MIMEType: "text/markdown",
			Text:     SourceFormatContract,
		},
	}, nil
}
