package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"buildmail-agent/src/contracts"
	"buildmail-agent/src/pipeline"
	"buildmail-agent/src/provider"
)

// DefaultTranscriptLines bounds the transcript in a preview manifest.
const DefaultTranscriptLines = 40

// Server is the MCP server for buildmail.
type Server struct {
	mcpServer *server.MCPServer
	pipeline  *pipeline.Pipeline
	previews  PreviewStore
}

// NewServer creates a new MCP server over p.
func NewServer(p *pipeline.Pipeline) *Server {
	s := server.NewMCPServer(
		"buildmail",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	srv := &Server{
		mcpServer: s,
		pipeline:  p,
		previews:  NewInMemoryStore(),
	}
	srv.registerTools()

	return srv
}

// registerTools registers all available tools.
func (s *Server) registerTools() {
	previewTool := mcp.NewTool("preview_notification",
		mcp.WithDescription("Dry-run the build e-mail notifier for a CI build. Returns whether a mail would be sent, its subject, recipients, the thread it would reply to, and the notifier's build-log transcript. Nothing is sent. Use get_preview_message with the preview_id to read the full message."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Build URL (Buildkite or GitHub Actions)"),
		),
		mcp.WithNumber("max_lines",
			mcp.Description(fmt.Sprintf("Max transcript lines (default: %d)", DefaultTranscriptLines)),
		),
	)

	messageTool := mcp.NewTool("get_preview_message",
		mcp.WithDescription("Get the full RFC 5322 text of the message a previous preview_notification call would have sent."),
		mcp.WithString("preview_id",
			mcp.Required(),
			mcp.Description("Preview ID from preview_notification"),
		),
	)

	threadTool := mcp.NewTool("get_thread",
		mcp.WithDescription("List the notifications recorded for a project, oldest first. Each record carries the Message-Id later mails reply to."),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project full name, e.g. acme/app"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Only return the most recent records (default: all)"),
		),
	)

	s.mcpServer.AddTool(previewTool, s.handlePreview)
	s.mcpServer.AddTool(messageTool, s.handleGetPreviewMessage)
	s.mcpServer.AddTool(threadTool, s.handleGetThread)
}

// Run starts the MCP server on stdio.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

// handlePreview handles the preview_notification tool call.
func (s *Server) handlePreview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url := request.GetString("url", "")
	if url == "" {
		return mcp.NewToolResultError("url parameter is required"), nil
	}
	maxLines := request.GetInt("max_lines", DefaultTranscriptLines)

	graph, build, err := provider.FetchURL(ctx, url, s.pipeline.Providers...)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load build: %v", provider.WrapError(err))), nil
	}

	preview := s.Preview(ctx, graph, build, maxLines)
	preview.Response.Build.URL = url
	s.previews.Store(preview)

	return jsonResult(preview.Response)
}

// handleGetPreviewMessage handles the get_preview_message tool call.
func (s *Server) handleGetPreviewMessage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("preview_id", "")
	if id == "" {
		return mcp.NewToolResultError("preview_id parameter is required"), nil
	}

	preview, found := s.previews.Get(id)
	if !found {
		return mcp.NewToolResultError(fmt.Sprintf("preview not found: %s", id)), nil
	}
	if len(preview.Raw) == 0 {
		return mcp.NewToolResultError(fmt.Sprintf("preview %s would not send a message: %s", id, preview.Response.Reason)), nil
	}
	return mcp.NewToolResultText(string(preview.Raw)), nil
}

// handleGetThread handles the get_thread tool call.
func (s *Server) handleGetThread(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project := request.GetString("project", "")
	if project == "" {
		return mcp.NewToolResultError("project parameter is required"), nil
	}
	limit := request.GetInt("limit", 0)

	records, err := s.pipeline.Store.ListRecords(ctx, project)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list records: %v", err)), nil
	}
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	if records == nil {
		records = []contracts.NotificationRecord{}
	}

	return jsonResult(ThreadResponse{Project: project, Records: records})
}

// Preview dry-runs the notifier for build.
func (s *Server) Preview(ctx context.Context, graph provider.Graph, build provider.Build, maxLines int) Preview {
	id := generatePreviewID()
	info := buildInfo(build)

	result, err := s.pipeline.Preview(ctx, graph, build, id)
	if err != nil {
		return Preview{Response: PreviewResponse{PreviewID: id, Build: info, Error: err.Error(), Transcript: []string{}}}
	}

	out := result.Outcome
	resp := PreviewResponse{
		PreviewID:  id,
		Build:      info,
		WouldSend:  out.Status == contracts.StatusSent,
		Variant:    out.Variant,
		Reason:     out.Reason,
		Error:      out.Error,
		Recipients: out.Recipients,
		InReplyTo:  out.InReplyTo,
		Transcript: compactTranscript(result.Transcript, maxLines),
	}
	if resp.Transcript == nil {
		resp.Transcript = []string{}
	}

	preview := Preview{Response: resp}
	if result.Message != nil {
		preview.Response.Subject = result.Message.Subject()
		if raw, err := result.Message.Bytes(); err == nil {
			preview.Raw = raw
		}
	}
	return preview
}

func buildInfo(b provider.Build) BuildInfo {
	info := BuildInfo{
		Project:  b.Project().FullName(),
		Number:   b.Number(),
		Result:   b.Result().String(),
		Culprits: len(b.Culprits()),
	}
	if prev := b.Previous(); prev != nil {
		info.Previous = prev.Result().String()
	}
	return info
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// generatePreviewID creates a unique preview identifier.
func generatePreviewID() string {
	timestamp := time.Now().UTC().Format("20060102T150405")
	randomBytes := make([]byte, 4)
	rand.Read(randomBytes)
	return fmt.Sprintf("preview-%s-%s", timestamp, hex.EncodeToString(randomBytes))
}
