package mcp

import (
	"errors"

	"github.com/johnswift/mem0-mcp/internal/logger"
)

// ErrNotInitialized is returned when a notification is attempted before the client handshake.
var ErrNotInitialized = errors.New("mcp: client not initialized")

// levelRank orders the MCP (syslog) logging levels.
var levelRank = map[string]int{
	"debug":     0,
	"info":      1,
	"notice":    2,
	"warning":   3,
	"error":     4,
	"critical":  5,
	"alert":     6,
	"emergency": 7,
}

// mcpLevel maps a diagnostic level onto the MCP level names.
func mcpLevel(level logger.LogLevel) string {
	switch level {
	case logger.DebugLevel:
		return "debug"
	case logger.WarnLevel:
		return "warning"
	case logger.ErrorLevel:
		return "error"
	default:
		return "info"
	}
}

// Mirror forwards a diagnostic record to the client as notifications/message.
// Records below the level requested through logging/setLevel are dropped.
func (s *Server) Mirror(level logger.LogLevel, msg string, fields map[string]any) error {
	name := mcpLevel(level)

	s.mu.RLock()
	initialized := s.initialized
	threshold := s.logLevel
	s.mu.RUnlock()

	if !initialized {
		return ErrNotInitialized
	}
	if levelRank[name] < threshold {
		return nil
	}

	var data any = msg
	if len(fields) > 0 {
		payload := make(map[string]any, len(fields)+1)
		for k, v := range fields {
			payload[k] = v
		}
		payload["message"] = msg
		data = payload
	}

	return s.Notify("notifications/message", LoggingMessageParams{
		Level:  name,
		Logger: s.name,
		Data:   data,
	})
}
