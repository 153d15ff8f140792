package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/unqworkflow/unqflow/internal/state"
	"github.com/unqworkflow/unqflow/internal/tracker"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store   *state.Store
	Tracker *tracker.Tracker
	Probe   ConnectivityChecker
}

// NewMCPServer creates an MCP server exposing the dashboard's generation
// workflow as tools and its live state as resources.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"unqflow",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("unqflow — social-media content automation: queue AI video generations, track their lifecycle, and inspect dashboard metrics."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("generate_content",
			mcp.WithDescription("Queue a new AI video generation for a social-media channel."),
			mcp.WithString("topic", mcp.Description("Topic or prompt for the video"), mcp.Required()),
			mcp.WithNumber("duration", mcp.Description("Target duration in seconds (default 300)")),
			mcp.WithString("platform", mcp.Description("Target platform: youtube or instagram (default youtube)")),
			mcp.WithString("content_type", mcp.Description("Content category, e.g. educational, entertainment")),
			mcp.WithString("target_audience", mcp.Description("Intended audience description")),
		),
		mcpGenerateContent(deps),
	)

	s.AddTool(
		mcp.NewTool("list_generations",
			mcp.WithDescription("List tracked content generations, newest first."),
			mcp.WithString("status", mcp.Description("Optional status filter (queued, generating, processing, completed, failed, paused)")),
		),
		mcpListGenerations(deps),
	)

	s.AddTool(
		mcp.NewTool("cancel_generation",
			mcp.WithDescription("Cancel a tracked generation and abort its in-flight engine request."),
			mcp.WithString("id", mcp.Description("Generation identifier"), mcp.Required()),
		),
		mcpCancelGeneration(deps),
	)

	s.AddTool(
		mcp.NewTool("get_metrics",
			mcp.WithDescription("Return the current dashboard metrics snapshot as JSON."),
		),
		mcpGetMetrics(deps),
	)

	s.AddTool(
		mcp.NewTool("connect_engine",
			mcp.WithDescription("Probe an AI Engine base URL and mark it as the active backend when reachable."),
			mcp.WithString("url", mcp.Description("AI Engine base URL"), mcp.Required()),
		),
		mcpConnectEngine(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"unqflow://metrics",
			"Dashboard Metrics",
			mcp.WithResourceDescription("Current dashboard metrics snapshot as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceMetrics(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"unqflow://notifications",
			"Notifications",
			mcp.WithResourceDescription("Current notifications, newest first"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceNotifications(deps),
	)

	return s
}

func mcpGenerateContent(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		topic, err := req.RequireString("topic")
		if err != nil {
			return mcpError("topic is required"), nil
		}

		duration := req.GetInt("duration", 300)
		platform := state.Platform(req.GetString("platform", string(state.PlatformYouTube)))

		gen, err := deps.Tracker.Submit(ctx, tracker.SubmitRequest{
			Topic:          topic,
			Duration:       duration,
			ContentType:    req.GetString("content_type", "educational"),
			TargetAudience: req.GetString("target_audience", "General Audience"),
			Platform:       platform,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("could not queue generation: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Queued generation %s (%s)", gen.ID, gen.Status)), nil
	}
}

func mcpListGenerations(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		statusFilter := req.GetString("status", "")

		type genResult struct {
			ID        string `json:"id"`
			Topic     string `json:"topic"`
			Status    string `json:"status"`
			Progress  int    `json:"progress"`
			Platform  string `json:"platform"`
			CreatedAt string `json:"created_at"`
		}

		var results []genResult
		for _, g := range deps.Store.ContentGenerations() {
			if statusFilter != "" && string(g.Status) != statusFilter {
				continue
			}
			results = append(results, genResult{
				ID:        g.ID,
				Topic:     g.Topic,
				Status:    string(g.Status),
				Progress:  g.Progress,
				Platform:  string(g.Platform),
				CreatedAt: g.CreatedAt.Format(time.RFC3339),
			})
		}
		if results == nil {
			return mcpText("[]"), nil
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpCancelGeneration(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}
		if !deps.Tracker.Cancel(id) {
			return mcpError(fmt.Sprintf("generation %s not found", id)), nil
		}
		return mcpText(fmt.Sprintf("Cancelled generation %s", id)), nil
	}
}

func mcpGetMetrics(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		m, ok := deps.Store.DashboardMetrics()
		if !ok {
			return mcpError("no metrics snapshot available"), nil
		}
		b, err := json.Marshal(m)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal metrics: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpConnectEngine(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := req.RequireString("url")
		if err != nil {
			return mcpError("url is required"), nil
		}
		if deps.Probe.Check(ctx, url) {
			return mcpText(fmt.Sprintf("Connected to AI Engine at %s", deps.Store.BackendURL())), nil
		}
		return mcpError(fmt.Sprintf("could not connect to AI Engine at %s", url)), nil
	}
}

func mcpResourceMetrics(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		m, ok := deps.Store.DashboardMetrics()
		if !ok {
			return nil, fmt.Errorf("no metrics snapshot available")
		}
		b, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metrics: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpResourceNotifications(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		type notifSummary struct {
			ID        string `json:"id"`
			Type      string `json:"type"`
			Title     string `json:"title"`
			Message   string `json:"message"`
			Timestamp string `json:"timestamp"`
			Read      bool   `json:"read"`
		}

		notifications := deps.Store.Notifications()
		summaries := make([]notifSummary, len(notifications))
		for i, n := range notifications {
			summaries[i] = notifSummary{
				ID:        n.ID,
				Type:      string(n.Type),
				Title:     n.Title,
				Message:   n.Message,
				Timestamp: n.Timestamp.Format(time.RFC3339),
				Read:      n.Read,
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal notifications: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
