package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	mozaiks "github.com/BlocUnited-LLC/mozaiks-ai-sub000"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/internal/logging"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/manifest"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/session"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const manifestURI = "ctxvars://manifest"

// SessionResponse provides a unified structure for session tools.
type SessionResponse struct {
	SessionID string         `json:"session_id" jsonschema_description:"Session identifier"`
	Scope     string         `json:"scope" jsonschema_description:"Enterprise scope of the session"`
	Values    map[string]any `json:"values,omitempty" jsonschema_description:"Variables visible to the agent, or the whole redacted context"`
	Error     string         `json:"error,omitempty" jsonschema_description:"Bootstrap failure; the session runs with an empty context"`
}

// Engine defines what the MCP server needs from the context engine.
type Engine interface {
	Start(ctx context.Context, in domain.SessionInputs) (*session.Session, error)
	Session(scope, sessionID string) (*session.Session, error)
	End(ctx context.Context, scope, sessionID string) error
	Manifest() *manifest.Manifest
}

// Server wraps the engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		engine:    engine,
		logger:    logger,
		mcpServer: server.NewMCPServer("ctxvars-mcp", strings.TrimSpace(mozaiks.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func sessionParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("scope", mcp.Required(), mcp.Description("Enterprise scope (tenant)")),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
	}
}

func tool(name, description string, opts ...mcp.ToolOption) mcp.Tool {
	all := append([]mcp.ToolOption{mcp.WithDescription(description)}, opts...)
	return mcp.NewTool(name, all...)
}

func (s *Server) registerTools() {
	// TOOL: start_session
	s.mcpServer.AddTool(tool("start_session",
		"Bootstrap a session: resolve, gate and seed its context variables.",
		mcp.WithString("scope", mcp.Required(), mcp.Description("Enterprise scope (tenant)")),
		mcp.WithString("session_id", mcp.Description("Session ID (generated when omitted)")),
		mcp.WithString("inputs", mcp.Description("JSON object of session inputs for $-prefixed lookup keys")),
		mcp.WithOutputSchema[SessionResponse](),
	), mcp.NewStructuredToolHandler(s.handleStart))

	// TOOL: end_session
	s.mcpServer.AddTool(tool("end_session", "End a session and stop its trigger loop.", sessionParams()...),
		s.handleEnd)

	// TOOL: visible_to
	s.mcpServer.AddTool(tool("visible_to", "List the variables an agent may see, with current values.",
		append(sessionParams(),
			mcp.WithString("agent", mcp.Required(), mcp.Description("Agent name")),
			mcp.WithOutputSchema[SessionResponse](),
		)...,
	), mcp.NewStructuredToolHandler(s.handleVisibleTo))

	// TOOL: get_snapshot
	s.mcpServer.AddTool(tool("get_snapshot", "Return the redacted, length-limited session context.",
		append(sessionParams(), mcp.WithOutputSchema[SessionResponse]())...,
	), mcp.NewStructuredToolHandler(s.handleSnapshot))

	// TOOL: get_variable
	s.mcpServer.AddTool(tool("get_variable", "Read one variable. Gated variables are absent.",
		append(sessionParams(), mcp.WithString("name", mcp.Required(), mcp.Description("Variable name")))...,
	), s.handleGet)

	// TOOL: evaluate_condition
	s.mcpServer.AddTool(tool("evaluate_condition",
		"Evaluate a routing condition such as 'interview_complete == true AND context_aware == true'.",
		append(sessionParams(), mcp.WithString("condition", mcp.Required(), mcp.Description("Condition expression")))...,
	), s.handleEvaluate)

	// TOOL: handoffs
	s.mcpServer.AddTool(tool("handoffs", "List the handoff targets of an agent whose conditions currently hold.",
		append(sessionParams(), mcp.WithString("agent", mcp.Required(), mcp.Description("Agent name")))...,
	), s.handleHandoffs)

	// TOOL: publish_event
	s.mcpServer.AddTool(tool("publish_event", "Queue an agent message for derived trigger matching.",
		append(sessionParams(),
			mcp.WithString("sender", mcp.Required(), mcp.Description("Agent name of the sender")),
			mcp.WithString("content", mcp.Required(), mcp.Description("Message text")),
		)...,
	), s.handlePublish)

	// TOOL: apply_ui_response
	s.mcpServer.AddTool(tool("apply_ui_response", "Satisfy a UI response trigger with a tool payload.",
		append(sessionParams(),
			mcp.WithString("variable", mcp.Required(), mcp.Description("Derived variable name")),
			mcp.WithString("tool", mcp.Required(), mcp.Description("UI tool ID")),
			mcp.WithString("payload", mcp.Required(), mcp.Description("JSON object returned by the tool")),
		)...,
	), s.handleUIResponse)
}

func str(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}

func (s *Server) lookup(args map[string]interface{}) (*session.Session, error) {
	return s.engine.Session(str(args, "scope"), str(args, "session_id"))
}

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SessionResponse, error) {
	in := domain.SessionInputs{
		SessionID:       str(args, "session_id"),
		EnterpriseScope: str(args, "scope"),
	}
	if in.EnterpriseScope == "" {
		return SessionResponse{}, errors.New("scope is required")
	}
	if in.SessionID == "" {
		in.SessionID = uuid.NewString()
	}
	if raw := str(args, "inputs"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &in.Values); err != nil {
			return SessionResponse{}, fmt.Errorf("invalid inputs: %w", err)
		}
	}

	sess, err := s.engine.Start(ctx, in)
	if sess == nil {
		return SessionResponse{}, fmt.Errorf("start failed: %w", err)
	}
	resp := SessionResponse{SessionID: sess.ID(), Scope: sess.Scope()}
	if err != nil {
		s.logger.Warn("MCP Start: bootstrap failed", "session_id", sess.ID(), "err", err)
		resp.Error = err.Error()
	}
	return resp, nil
}

func (s *Server) handleVisibleTo(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SessionResponse, error) {
	sess, err := s.lookup(args)
	if err != nil {
		return SessionResponse{}, err
	}
	return SessionResponse{
		SessionID: sess.ID(),
		Scope:     sess.Scope(),
		Values:    sess.VisibleTo(str(args, "agent")),
	}, nil
}

func (s *Server) handleSnapshot(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SessionResponse, error) {
	sess, err := s.lookup(args)
	if err != nil {
		return SessionResponse{}, err
	}
	snap := sess.Snapshot()
	return SessionResponse{SessionID: snap.SessionID, Scope: snap.Scope, Values: snap.Values}, nil
}

func (s *Server) handleEnd(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	if err := s.engine.End(ctx, str(args, "scope"), str(args, "session_id")); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("end failed: %v", err)), nil
	}
	return mcp.NewToolResultText("ended"), nil
}

func (s *Server) handleGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sess, err := s.lookup(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name := str(args, "name")
	v, ok := sess.Get(name)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("variable %q is not present", name)), nil
	}
	return jsonResult(map[string]any{"name": name, "value": v})
}

func (s *Server) handleEvaluate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sess, err := s.lookup(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ok, err := sess.Evaluate(str(args, "condition"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]bool{"result": ok})
}

func (s *Server) handleHandoffs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sess, err := s.lookup(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	targets := sess.Handoffs(str(args, "agent"))
	if targets == nil {
		targets = []string{}
	}
	return jsonResult(targets)
}

func (s *Server) handlePublish(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sess, err := s.lookup(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ev := domain.Event{SenderName: str(args, "sender"), TextContent: str(args, "content"), Timestamp: time.Now()}
	if err := sess.Publish(ev); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("queued"), nil
}

func (s *Server) handleUIResponse(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sess, err := s.lookup(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(str(args, "payload")), &payload); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid payload: %v", err)), nil
	}
	flipped, err := sess.ApplyUIResponse(ctx, str(args, "variable"), str(args, "tool"), payload)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]bool{"flipped": flipped})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) registerResources() {
	// EXPOSE: ctxvars://manifest
	s.mcpServer.AddResource(mcp.NewResource(manifestURI, "Context Variable Manifest",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		m := s.engine.Manifest()
		jsonBytes, err := json.Marshal(map[string]any{"variables": m.Names(), "agents": m.Agents()})
		if err != nil {
			return nil, fmt.Errorf("failed to encode manifest: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      manifestURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
