package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/johnswift/mem0-mcp/internal/logger"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Server  string `json:"server"`
	Version string `json:"version"`
	Tools   int    `json:"tools"`
}

// HealthServer provides an HTTP health check endpoint next to the stdio transport.
type HealthServer struct {
	port     string
	mcp      *Server
	logger   logger.Logger
	server   *http.Server
	listener net.Listener
}

// NewHealthServer creates a new health server for srv on the specified port.
func NewHealthServer(port string, srv *Server, log logger.Logger) *HealthServer {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &HealthServer{
		port:   port,
		mcp:    srv,
		logger: log,
	}
}

// Handler returns the HTTP handler serving /health.
func (h *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	return mux
}

// Start starts the health server in a background goroutine.
// Returns an error if the server fails to start.
func (h *HealthServer) Start() error {
	h.server = &http.Server{
		Addr:         ":" + h.port,
		Handler:      h.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	listener, err := net.Listen("tcp", h.server.Addr)
	if err != nil {
		return err
	}
	h.listener = listener

	go func() {
		h.logger.Info("health server listening", "port", h.port)
		if err := h.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("health server error", "error", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the health server.
func (h *HealthServer) Shutdown(ctx context.Context) error {
	if h.server != nil {
		return h.server.Shutdown(ctx)
	}
	return nil
}

func (h *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	resp := HealthResponse{
		Status:  "ok",
		Server:  h.mcp.name,
		Version: h.mcp.version,
		Tools:   len(h.mcp.Tools()),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Warn("failed to encode health response", "error", err)
	}
}
