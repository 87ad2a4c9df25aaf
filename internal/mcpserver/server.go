// Package mcpserver exposes rendering, validation and markdown import as
// Model Context Protocol tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	sw "github.com/grahms/segmentweaver"
	"github.com/grahms/segmentweaver/importer"
	"github.com/grahms/segmentweaver/internal/render"
)

// RenderArgs are the arguments of the render_segments tool.
type RenderArgs struct {
	Document string `json:"document"`
	Format   string `json:"format"`
	Select   string `json:"select"`
	render.PolicyOverrides
}

// ValidateArgs are the arguments of the validate_segments tool.
type ValidateArgs struct {
	Document     string `json:"document"`
	Select       string `json:"select"`
	AllowUnknown bool   `json:"allowUnknown"`
}

// ImportArgs are the arguments of the import_markdown tool.
type ImportArgs struct {
	Markdown string `json:"markdown"`
}

// Server wraps the render service as an MCP server.
type Server struct {
	svc       *render.Service
	base      sw.Policy
	log       *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer registers the tools. base is the policy requests start from.
func NewServer(svc *render.Service, base sw.Policy, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		svc:  svc,
		base: base,
		log:  log,
		mcpServer: server.NewMCPServer(
			"segmentweaver",
			sw.Version,
			server.WithToolCapabilities(false),
		),
	}
	s.registerTools()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// ServeStdio serves on stdin and stdout until stdin closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// HTTPHandler serves the streamable HTTP transport at endpoint.
func (s *Server) HTTPHandler(endpoint string) http.Handler {
	return server.NewStreamableHTTPServer(s.mcpServer, server.WithEndpointPath(endpoint))
}

func (s *Server) registerTools() {
	formats := strings.Join(render.Formats, ", ")

	s.mcpServer.AddTool(mcp.NewTool("render_segments",
		mcp.WithDescription("Render a JSON rich-text segment document to "+formats),
		mcp.WithString("document",
			mcp.Required(),
			mcp.Description("A JSON segment or array of segments"),
		),
		mcp.WithString("format",
			mcp.Description("Output format"),
			mcp.Enum(render.Formats...),
			mcp.DefaultString(render.FormatHTML),
		),
		mcp.WithString("select",
			mcp.Description("Optional JSONPath selecting the segments to render"),
		),
		mcp.WithBoolean("errorOnUnknowns",
			mcp.Description("Fail on unknown segment or modifier types instead of skipping them"),
		),
		mcp.WithBoolean("renderUnknownComponents",
			mcp.Description("Let the fallback serializers render unknown segment and modifier types instead of dropping them"),
		),
		mcp.WithBoolean("renderHardBreaks",
			mcp.Description("Turn newlines in text into line breaks"),
		),
		mcp.WithBoolean("renderPlainText",
			mcp.Description("Skip all type and modifier dispatch and emit the text content only"),
		),
		mcp.WithNumber("maxDepth",
			mcp.Description("Maximum nesting depth"),
		),
	), mcp.NewTypedToolHandler(s.handleRender))

	s.mcpServer.AddTool(mcp.NewTool("validate_segments",
		mcp.WithDescription("Check a JSON segment document and list every problem found"),
		mcp.WithString("document",
			mcp.Required(),
			mcp.Description("A JSON segment or array of segments"),
		),
		mcp.WithString("select",
			mcp.Description("Optional JSONPath selecting the segments to validate"),
		),
		mcp.WithBoolean("allowUnknown",
			mcp.Description("Accept segment and modifier types outside the vocabulary"),
		),
	), mcp.NewTypedToolHandler(s.handleValidate))

	s.mcpServer.AddTool(mcp.NewTool("import_markdown",
		mcp.WithDescription("Convert markdown into a JSON segment document"),
		mcp.WithString("markdown",
			mcp.Required(),
			mcp.Description("The markdown source"),
		),
	), mcp.NewTypedToolHandler(s.handleImport))
}

func (s *Server) handleRender(ctx context.Context, _ mcp.CallToolRequest, args RenderArgs) (*mcp.CallToolResult, error) {
	if strings.TrimSpace(args.Document) == "" {
		return mcp.NewToolResultError("document is required"), nil
	}
	res, err := s.svc.Render(ctx, render.Request{
		Format:   args.Format,
		Document: []byte(args.Document),
		Select:   args.Select,
		Policy:   args.PolicyOverrides.Apply(s.base),
	})
	if err != nil {
		s.log.Debug("mcp render failed", "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) handleValidate(_ context.Context, _ mcp.CallToolRequest, args ValidateArgs) (*mcp.CallToolResult, error) {
	if strings.TrimSpace(args.Document) == "" {
		return mcp.NewToolResultError("document is required"), nil
	}
	err := s.svc.Validate([]byte(args.Document), args.Select, sw.ValidateOptions{
		AllowUnknown: args.AllowUnknown,
		MaxDepth:     s.base.MaxDepth,
	})
	if err != nil && !render.IsDocumentError(err) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	type report struct {
		Valid    bool     `json:"valid"`
		Problems []string `json:"problems,omitempty"`
	}
	out := report{Valid: err == nil}
	for _, p := range sw.Problems(err) {
		out.Problems = append(out.Problems, p.Error())
	}
	return jsonResult(out)
}

func (s *Server) handleImport(_ context.Context, _ mcp.CallToolRequest, args ImportArgs) (*mcp.CallToolResult, error) {
	segs, err := importer.FromMarkdown(strings.NewReader(args.Markdown))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("import failed: %v", err)), nil
	}
	return jsonResult(segs)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}
