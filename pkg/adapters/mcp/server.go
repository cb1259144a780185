// Package mcp exposes graph management and execution as a Model Context
// Protocol server, so agent frameworks can store and run workflows over
// stdio or SSE.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/stateflow"
	"github.com/aretw0/stateflow/internal/runtime"
	"github.com/aretw0/stateflow/pkg/definition"
	"github.com/aretw0/stateflow/pkg/ports"
	"github.com/aretw0/stateflow/pkg/registry"
)

// Server exposes a store-backed workflow service over MCP.
type Server struct {
	store     ports.Store
	registry  *registry.Registry
	engine    *runtime.Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEngine replaces the default executor, e.g. to attach hooks or a
// custom iteration cap.
func WithEngine(engine *runtime.Engine) Option {
	return func(s *Server) {
		if engine != nil {
			s.engine = engine
		}
	}
}

// NewServer creates an MCP server around a store and a tool registry.
func NewServer(store ports.Store, reg *registry.Registry, opts ...Option) *Server {
	s := &Server{
		store:     store,
		registry:  reg,
		logger:    slog.Default(),
		mcpServer: server.NewMCPServer("stateflow-mcp", stateflow.Version),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = runtime.NewEngine(runtime.WithLogger(s.logger))
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on the given port until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("mcp server listening", slog.String("address", addr))
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
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

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_tools",
		mcp.WithDescription("List the registered node tools that graphs can reference."),
	), s.handleListTools)

	s.mcpServer.AddTool(mcp.NewTool("list_graphs",
		mcp.WithDescription("List stored workflow graphs."),
	), s.handleListGraphs)

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Fetch one stored graph by ID."),
		mcp.WithString("graph_id", mcp.Required(), mcp.Description("Graph record ID")),
	), s.handleGetGraph)

	s.mcpServer.AddTool(mcp.NewTool("create_graph",
		mcp.WithDescription("Validate and store a workflow graph definition."),
		mcp.WithObject("definition", mcp.Required(),
			mcp.Description("Graph definition: name, nodes ([{name, tool}]), edges ([{from, to, condition}]) and optional entry")),
	), s.handleCreateGraph)

	s.mcpServer.AddTool(mcp.NewTool("run_graph",
		mcp.WithDescription("Execute a stored graph and return the run record, including the step log."),
		mcp.WithString("graph_id", mcp.Required(), mcp.Description("Graph record ID")),
		mcp.WithObject("initial_state", mcp.Description("Initial key-value state")),
	), s.handleRunGraph)

	s.mcpServer.AddTool(mcp.NewTool("get_run",
		mcp.WithDescription("Fetch one run record by ID."),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("Run record ID")),
	), s.handleGetRun)
}

func (s *Server) handleListTools(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	type toolInfo struct {
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
	}
	tools := s.registry.List()
	out := make([]toolInfo, 0, len(tools))
	for _, t := range tools {
		out = append(out, toolInfo{Name: t.Name, Description: t.Description})
	}
	return jsonResult(out)
}

func (s *Server) handleListGraphs(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recs, err := s.store.ListGraphs(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list graphs failed: %v", err)), nil
	}
	return jsonResult(recs)
}

func (s *Server) handleGetGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("graph_id", "")
	rec, err := s.store.GetGraph(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrGraphNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("graph %q not found", id)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("get graph failed: %v", err)), nil
	}
	return jsonResult(rec)
}

func (s *Server) handleCreateGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	raw, ok := args["definition"].(map[string]any)
	if !ok {
		return mcp.NewToolResultError("definition must be an object"), nil
	}

	def, err := definition.FromMap(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid definition: %v", err)), nil
	}
	if _, err := definition.Build(def, s.registry); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid graph: %v", err)), nil
	}

	now := time.Now().UTC()
	rec := ports.GraphRecord{
		ID:         uuid.NewString(),
		Definition: def,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.SaveGraph(ctx, rec); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("save graph failed: %v", err)), nil
	}
	s.logger.Info("graph created via mcp", slog.String("graph_id", rec.ID), slog.String("name", def.Name))
	return jsonResult(rec)
}

func (s *Server) handleRunGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("graph_id", "")
	rec, err := s.store.GetGraph(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrGraphNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("graph %q not found", id)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("get graph failed: %v", err)), nil
	}

	g, err := definition.Build(rec.Definition, s.registry)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid graph: %v", err)), nil
	}

	initial, _ := request.GetArguments()["initial_state"].(map[string]any)
	res, err := s.engine.Run(ctx, g, initial)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("run failed: %v", err)), nil
	}

	runRec := ports.RunRecordFrom(id, res)
	if err := s.store.SaveRun(ctx, runRec); err != nil {
		s.logger.Error("save run failed", slog.String("run_id", res.ID), slog.Any("error", err))
	}
	return jsonResult(runRec)
}

func (s *Server) handleGetRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("run_id", "")
	rec, err := s.store.GetRun(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrRunNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("run %q not found", id)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("get run failed: %v", err)), nil
	}
	return jsonResult(rec)
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("stateflow://graphs", "Stored Workflow Graphs",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		recs, err := s.store.ListGraphs(ctx)
		if err != nil {
			return nil, fmt.Errorf("list graphs: %w", err)
		}
		data, err := json.Marshal(recs)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "stateflow://graphs",
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
