// Package mcpserver exposes the query engine as MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"hr-query-engine/internal/models"
	"hr-query-engine/internal/query/engine"
)

const (
	ToolAsk         = "ask_hr"
	ToolSuggestions = "hr_query_suggestions"
	ToolAnalytics   = "hr_query_analytics"
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Service is the engine surface exposed as tools.
type Service interface {
	ProcessQueryWithFilters(ctx context.Context, text string, filters map[string]interface{}) *models.Envelope
	QuerySuggestions(partial string) []string
	PerformanceAnalytics() engine.PerformanceReport
}

type Tools struct {
	svc    Service
	logger Logger
}

func NewTools(svc Service, log Logger) *Tools {
	return &Tools{
		svc: svc,
		logger: log.With(map[string]interface{}{
			"component": "mcp-server",
		}),
	}
}

// NewServer registers the tools on a new MCP server.
func NewServer(name, version string, t *Tools) *server.MCPServer {
	s := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(false),
		server.WithInstructions("Answers natural-language questions about employees: counts, rankings, comparisons, analytics and search."),
	)

	s.AddTool(
		mcp.NewTool(ToolAsk,
			mcp.WithDescription("Answer a natural-language HR question over the employee dataset"),
			mcp.WithString("query", mcp.Required(), mcp.Description("The question, e.g. \"How many employees work in IT?\"")),
			mcp.WithObject("filters", mcp.Description("Optional department, role, skill, location or limit overrides")),
		),
		t.HandleAsk,
	)
	s.AddTool(
		mcp.NewTool(ToolSuggestions,
			mcp.WithDescription("Suggest complete HR questions for a partial one"),
			mcp.WithString("partial", mcp.Description("Partial question text")),
		),
		t.HandleSuggestions,
	)
	s.AddTool(
		mcp.NewTool(ToolAnalytics,
			mcp.WithDescription("Report cache statistics and recent query analytics"),
		),
		t.HandleAnalytics,
	)
	return s
}

// ServeStdio runs the server on stdin/stdout.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

// HandleAsk returns the answer text followed by the JSON envelope.
func (t *Tools) HandleAsk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var filters map[string]interface{}
	if raw, ok := req.GetArguments()["filters"].(map[string]interface{}); ok {
		filters = raw
	}

	env := t.svc.ProcessQueryWithFilters(ctx, query, filters)
	body, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}

	t.logger.Info("tool call answered", map[string]interface{}{
		"tool":    ToolAsk,
		"queryId": env.QueryID,
		"status":  env.Status,
	})

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(env.Response),
			mcp.NewTextContent(string(body)),
		},
		IsError: env.Status == models.StatusError,
	}, nil
}

func (t *Tools) HandleSuggestions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	partial := req.GetString("partial", "")
	body, err := json.Marshal(t.svc.QuerySuggestions(partial))
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(body)), nil
}

func (t *Tools) HandleAnalytics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body, err := json.MarshalIndent(t.svc.PerformanceAnalytics(), "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(body)), nil
}
