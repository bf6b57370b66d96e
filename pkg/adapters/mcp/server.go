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

	"github.com/aretw0/journey"
	"github.com/aretw0/journey/internal/logging"
	"github.com/aretw0/journey/internal/presentation/graph"
	"github.com/aretw0/journey/pkg/domain"
	"github.com/aretw0/journey/pkg/runner"
	"github.com/aretw0/journey/pkg/schema"
	"github.com/aretw0/journey/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// WorkflowsURI is the resource listing the workflow catalog.
const WorkflowsURI = "journey://workflows"

// Server exposes a session.Manager as an MCP server.
type Server struct {
	sessions     *session.Manager
	maxInputSize int
	logger       *slog.Logger
	mcpServer    *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger used by tool handlers.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxInputSize bounds string input accepted by provide_input.
func WithMaxInputSize(n int) Option {
	return func(s *Server) { s.maxInputSize = n }
}

// NewServer creates a new MCP Server instance.
func NewServer(mgr *session.Manager, opts ...Option) *Server {
	s := &Server{
		sessions:     mgr,
		maxInputSize: runner.DefaultMaxInputSize,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mcpServer = server.NewMCPServer("journey-mcp", strings.TrimSpace(journey.Version),
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
		server.WithInstructions("Journey runs conversational workflows. Use list_workflows to discover them, start_session to begin, provide_input to answer prompts and get_graph to inspect control flow."),
	)
	s.mcpServer.AddTools(s.tools()...)
	s.registerResources()
	return s
}

// MCPServer returns the underlying server for custom transports.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is canceled.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	baseURL := "http://" + addr
	if strings.HasPrefix(addr, ":") {
		baseURL = "http://localhost" + addr
	}
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: mcp.NewTool("list_workflows",
			mcp.WithDescription("List the ids of the workflows in the catalog."),
		), Handler: s.handleListWorkflows},
		{Tool: mcp.NewTool("start_session",
			mcp.WithDescription("Start a session of a workflow and run it until it asks for input or finishes."),
			mcp.WithString("workflow_id", mcp.Required(), mcp.Description("Workflow to run")),
			mcp.WithObject("variables", mcp.Description("Initial variable bindings")),
		), Handler: s.handleStart},
		{Tool: mcp.NewTool("step_session",
			mcp.WithDescription("Run a stored session until it suspends or closes."),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to advance")),
		), Handler: s.handleStep},
		{Tool: mcp.NewTool("provide_input",
			mcp.WithDescription("Answer the pending input request of a session and continue it."),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session waiting for input")),
			mcp.WithString("value", mcp.Required(), mcp.Description("The user's answer")),
			mcp.WithString("request_id", mcp.Description("Pending request id (optional)")),
		), Handler: s.handleInput},
		{Tool: mcp.NewTool("get_session",
			mcp.WithDescription("Read the stored state of a session."),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to read")),
		), Handler: s.handleGetSession},
		{Tool: mcp.NewTool("get_graph",
			mcp.WithDescription("Get the control-flow graph of a workflow, or of a session's workflow with its progress highlighted."),
			mcp.WithString("workflow_id", mcp.Description("Workflow to inspect")),
			mcp.WithString("session_id", mcp.Description("Session whose workflow and position to inspect")),
			mcp.WithString("format", mcp.Enum("mermaid", "json"), mcp.Description("Output format (default mermaid)")),
		), Handler: s.handleGraph},
	}
}

func (s *Server) handleListWorkflows(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := s.sessions.Loader().List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	if ids == nil {
		ids = []string{}
	}
	return marshalResult(ids)
}

func (s *Server) handleStart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workflowID, err := req.RequireString("workflow_id")
	if err != nil {
		return mcp.NewToolResultError("workflow_id is required"), nil
	}
	vars := make(domain.Bindings)
	for k, v := range mcp.ParseStringMap(req, "variables", nil) {
		val, err := domain.ValueOf(v)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("variable %q: %v", k, err)), nil
		}
		vars[k] = val
	}

	res, err := s.sessions.Start(logging.WithWorkflowID(ctx, workflowID), workflowID, vars)
	if err != nil {
		return s.toolError(ctx, "start_session", err), nil
	}
	return marshalResult(res)
}

func (s *Server) handleStep(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id is required"), nil
	}
	res, err := s.sessions.Step(logging.WithSessionID(ctx, id), id)
	if err != nil {
		return s.toolError(ctx, "step_session", err), nil
	}
	return marshalResult(res)
}

func (s *Server) handleInput(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id is required"), nil
	}
	raw, ok := req.GetArguments()["value"]
	if !ok {
		return mcp.NewToolResultError("value is required"), nil
	}
	value, err := domain.ValueOf(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid value: %v", err)), nil
	}
	if value.Kind() == domain.KindString {
		clean, err := runner.SanitizeInput(value.String(), s.maxInputSize)
		if err != nil {
			s.logger.Warn("MCP provide_input: Input rejected", "error", err, "session_id", id)
			return mcp.NewToolResultError(fmt.Sprintf("input rejected: %v", err)), nil
		}
		value = domain.String(clean)
	}

	res, err := s.sessions.Input(logging.WithSessionID(ctx, id), id, req.GetString("request_id", ""), value)
	if err != nil {
		return s.toolError(ctx, "provide_input", err), nil
	}
	return marshalResult(res)
}

func (s *Server) handleGetSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id is required"), nil
	}
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return s.toolError(ctx, "get_session", err), nil
	}
	return marshalResult(sess)
}

func (s *Server) handleGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workflowID := req.GetString("workflow_id", "")
	sessionID := req.GetString("session_id", "")
	format := req.GetString("format", "mermaid")
	if workflowID == "" && sessionID == "" {
		return mcp.NewToolResultError("one of workflow_id or session_id is required"), nil
	}

	var overlay *graph.GraphOverlay
	if sessionID != "" {
		sess, err := s.sessions.Get(ctx, sessionID)
		if err != nil {
			return s.toolError(ctx, "get_graph", err), nil
		}
		workflowID = sess.WorkflowID
		overlay = graph.OverlayFor(sess)
	}

	wf, err := s.sessions.Loader().Load(ctx, workflowID)
	if err != nil {
		return s.toolError(ctx, "get_graph", err), nil
	}
	g := graph.Linearize(wf)

	switch format {
	case "mermaid":
		return mcp.NewToolResultText(graph.GenerateMermaid(g, overlay)), nil
	case "json":
		return marshalResult(g)
	default:
		return mcp.NewToolResultError("format must be mermaid or json"), nil
	}
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(WorkflowsURI, "Workflow Catalog",
		mcp.WithResourceDescription("Every workflow definition the server can run"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ids, err := s.sessions.Loader().List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list workflows: %w", err)
		}
		docs := make([]map[string]any, 0, len(ids))
		for _, id := range ids {
			wf, err := s.sessions.Loader().Load(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("failed to load workflow %s: %w", id, err)
			}
			docs = append(docs, schema.Encode(wf))
		}
		data, err := json.Marshal(docs)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      WorkflowsURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}

// toolError reports caller mistakes as tool errors and logs the rest.
func (s *Server) toolError(ctx context.Context, tool string, err error) *mcp.CallToolResult {
	if !session.IsClientError(err) {
		logging.LogWith(ctx, s.logger).Error("MCP tool failed", "tool", tool, "error", err)
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", tool, err))
}

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
