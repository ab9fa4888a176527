package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"sync"

	"github.com/johnswift/mem0-mcp/internal/logger"
)

// ErrNoArguments is reported when a tool call carries no arguments object.
var ErrNoArguments = errors.New("no arguments provided")

// Handler is a function that handles an MCP tool call and returns the response text.
type Handler func(ctx context.Context, args json.RawMessage) (string, error)

// Server is an MCP server that communicates over stdio using JSON-RPC 2.0.
type Server struct {
	name    string
	version string

	tools    []Tool
	handlers map[string]Handler

	mu          sync.RWMutex
	initialized bool
	logLevel    int

	writeMu sync.Mutex
	stdin   io.Reader
	stdout  io.Writer

	logger logger.Logger
}

// NewServer creates a new MCP server with the given name and version.
func NewServer(name, version string) *Server {
	return &Server{
		name:     name,
		version:  version,
		tools:    make([]Tool, 0),
		handlers: make(map[string]Handler),
		logLevel: levelRank["info"],
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		logger:   logger.NewLogger(nil),
	}
}

// SetIO sets custom I/O streams for the server (useful for testing).
func (s *Server) SetIO(stdin io.Reader, stdout io.Writer) {
	s.stdin = stdin
	s.stdout = stdout
}

// SetLogger sets the diagnostic logger. It never writes to the protocol stream.
func (s *Server) SetLogger(l logger.Logger) {
	s.logger = l
}

// RegisterTool registers a tool with its handler. Tools are listed in registration order.
func (s *Server) RegisterTool(tool Tool, handler Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, tool)
	s.handlers[tool.Name] = handler
}

// Tools returns the registered tool descriptors in registration order.
func (s *Server) Tools() []Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tools := make([]Tool, len(s.tools))
	copy(tools, s.tools)
	return tools
}

// Run starts the server and processes requests from stdin until ctx is canceled or EOF.
func (s *Server) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.stdin)
	// Increase buffer size for large requests
	buf := make([]byte, 0, 1024*1024)
	scanner.Buffer(buf, 10*1024*1024)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("scanner error: %w", err)
			}
			// EOF reached
			return nil
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		response := s.handleRequest(ctx, line)
		if response != nil {
			if err := s.writeMessage(response); err != nil {
				s.logger.Error("failed to write response", "error", err)
			}
		}
	}
}

// handleRequest parses and routes a JSON-RPC request.
func (s *Server) handleRequest(ctx context.Context, data []byte) *Response {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return &Response{
			JSONRPC: JSONRPCVersion,
			ID:      nil,
			Error:   NewError(ParseError, "Parse error: "+err.Error()),
		}
	}

	// Validate JSON-RPC version
	if req.JSONRPC != JSONRPCVersion {
		return &Response{
			JSONRPC: JSONRPCVersion,
			ID:      req.ID,
			Error:   NewError(InvalidRequest, "Invalid Request: jsonrpc must be \"2.0\""),
		}
	}

	result, err := s.route(ctx, req.Method, req.Params)

	// Notifications (id is null) don't get a response
	if req.ID == nil {
		if err != nil {
			s.logger.Debug("notification failed", "method", req.Method, "error", err)
		}
		return nil
	}

	if err != nil {
		var mcpErr *Error
		if errors.As(err, &mcpErr) {
			return &Response{
				JSONRPC: JSONRPCVersion,
				ID:      req.ID,
				Error:   mcpErr,
			}
		}
		return &Response{
			JSONRPC: JSONRPCVersion,
			ID:      req.ID,
			Error:   NewError(InternalError, err.Error()),
		}
	}

	return &Response{
		JSONRPC: JSONRPCVersion,
		ID:      req.ID,
		Result:  result,
	}
}

// route dispatches a request to the appropriate handler.
func (s *Server) route(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case "initialize":
		return s.handleInitialize(params)
	case "notifications/initialized", "initialized":
		return nil, nil
	case "tools/list":
		return ToolsListResult{Tools: s.Tools()}, nil
	case "tools/call":
		return s.handleToolsCall(ctx, params)
	case "logging/setLevel":
		return s.handleSetLevel(params)
	case "ping":
		return map[string]string{}, nil
	default:
		return nil, NewError(MethodNotFound, fmt.Sprintf("Method not found: %s", method))
	}
}

// handleInitialize handles the initialize request.
func (s *Server) handleInitialize(params json.RawMessage) (any, error) {
	var initParams InitializeParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &initParams); err != nil {
			return nil, NewError(InvalidParams, "Invalid params: "+err.Error())
		}
	}

	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()

	s.logger.Debug("client initialized",
		"client", initParams.ClientInfo.Name,
		"client_version", initParams.ClientInfo.Version,
		"protocol", initParams.ProtocolVersion,
	)

	return InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities: ServerCapabilities{
			Tools:   &ToolsCapability{},
			Logging: &LoggingCapability{},
		},
		ServerInfo: ServerInfo{
			Name:    s.name,
			Version: s.version,
		},
	}, nil
}

// handleToolsCall handles the tools/call request.
// Tool failures are reported inside the result, never as JSON-RPC errors.
func (s *Server) handleToolsCall(ctx context.Context, params json.RawMessage) (any, error) {
	var callParams ToolCallParams
	if err := json.Unmarshal(params, &callParams); err != nil {
		return nil, NewError(InvalidParams, "Invalid params: "+err.Error())
	}
	return s.CallTool(ctx, callParams.Name, callParams.Arguments), nil
}

// CallTool invokes the named tool and shapes the outcome into a ToolCallResult.
// It always returns exactly one result, including when the handler panics.
func (s *Server) CallTool(ctx context.Context, name string, args json.RawMessage) (result ToolCallResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tool handler panicked", "tool", name, "panic", r, "stack", string(debug.Stack()))
			result = ErrorResult(fmt.Sprintf("Error: %v", r))
		}
	}()

	if argumentsAbsent(args) {
		return ErrorResult("Error: " + ErrNoArguments.Error())
	}

	s.mu.RLock()
	handler, exists := s.handlers[name]
	s.mu.RUnlock()

	if !exists {
		return ErrorResult(fmt.Sprintf("Unknown tool: %s", name))
	}

	text, err := handler(ctx, args)
	if err != nil {
		return ErrorResult("Error: " + errorMessage(err))
	}
	return TextResult(text)
}

// handleSetLevel handles the logging/setLevel request.
func (s *Server) handleSetLevel(params json.RawMessage) (any, error) {
	var p SetLevelParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, NewError(InvalidParams, "Invalid params: "+err.Error())
	}
	rank, ok := levelRank[p.Level]
	if !ok {
		return nil, NewError(InvalidParams, fmt.Sprintf("Invalid params: unknown log level %q", p.Level))
	}

	s.mu.Lock()
	s.logLevel = rank
	s.mu.Unlock()

	return map[string]string{}, nil
}

// Notify sends a JSON-RPC notification to the client.
func (s *Server) Notify(method string, params any) error {
	return s.writeMessage(Notification{
		JSONRPC: JSONRPCVersion,
		Method:  method,
		Params:  params,
	})
}

// writeMessage writes one JSON-RPC message per line to stdout.
func (s *Server) writeMessage(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	data = append(data, '\n')

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err = s.stdout.Write(data)
	return err
}

func argumentsAbsent(args json.RawMessage) bool {
	trimmed := bytes.TrimSpace(args)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// errorMessage returns the human-readable part of err.
func errorMessage(err error) string {
	var mcpErr *Error
	if errors.As(err, &mcpErr) {
		return mcpErr.Message
	}
	return err.Error()
}

// Error implements the error interface for Error type.
func (e *Error) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}
