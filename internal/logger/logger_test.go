package logger

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMirror struct {
	levels []LogLevel
	msgs   []string
	fields []map[string]any
	err    error
}

func (m *recordingMirror) Mirror(level LogLevel, msg string, fields map[string]any) error {
	m.levels = append(m.levels, level)
	m.msgs = append(m.msgs, msg)
	m.fields = append(m.fields, fields)
	return m.err
}

func TestParseLevel(t *testing.T) {
	t.Run("Should parse known levels case-insensitively", func(t *testing.T) {
		assert.Equal(t, DebugLevel, ParseLevel("DEBUG"))
		assert.Equal(t, WarnLevel, ParseLevel(" warn "))
		assert.Equal(t, ErrorLevel, ParseLevel("error"))
	})

	t.Run("Should fall back to info for unknown levels", func(t *testing.T) {
		assert.Equal(t, InfoLevel, ParseLevel("verbose"))
		assert.Equal(t, InfoLevel, ParseLevel(""))
	})
}

func TestLogLevel_ToCharmlogLevel(t *testing.T) {
	t.Run("Should convert all log levels to charm log levels correctly", func(t *testing.T) {
		testCases := []struct {
			level    LogLevel
			expected int
		}{
			{DebugLevel, -4},
			{InfoLevel, 0},
			{WarnLevel, 4},
			{ErrorLevel, 8},
			{LogLevel("unknown"), 0},
		}
		for _, tc := range testCases {
			assert.Equal(t, tc.expected, int(tc.level.ToCharmlogLevel()), "level %s", tc.level)
		}
	})
}

func TestNewLogger(t *testing.T) {
	t.Run("Should write records to the configured output", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(&Config{Level: DebugLevel, Output: &buf, JSON: true})

		log.Error("Error adding memory", "error", errors.New("boom"))

		assert.Contains(t, buf.String(), "Error adding memory")
		assert.Contains(t, buf.String(), "boom")
	})

	t.Run("Should filter records below the configured level", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(&Config{Level: WarnLevel, Output: &buf})

		log.Info("hidden")

		assert.Empty(t, buf.String())
	})

	t.Run("Should hand every record to the mirror", func(t *testing.T) {
		mirror := &recordingMirror{}
		log := NewLogger(&Config{Level: ErrorLevel, Output: &bytes.Buffer{}, Mirror: mirror})

		log.Debug("one")
		log.Warn("two", "k", "v")

		require.Len(t, mirror.msgs, 2)
		assert.Equal(t, []LogLevel{DebugLevel, WarnLevel}, mirror.levels)
		assert.Equal(t, "v", mirror.fields[1]["k"])
	})

	t.Run("Should ignore mirror failures", func(t *testing.T) {
		var buf bytes.Buffer
		mirror := &recordingMirror{err: errors.New("not connected")}
		log := NewLogger(&Config{Level: InfoLevel, Output: &buf, Mirror: mirror})

		assert.NotPanics(t, func() { log.Info("still logged") })
		assert.Contains(t, buf.String(), "still logged")
	})
}

func TestFields(t *testing.T) {
	t.Run("Should pair keys with values and render errors", func(t *testing.T) {
		fields := Fields("user", "alice", "error", errors.New("timeout"), "dangling")

		assert.Equal(t, map[string]any{"user": "alice", "error": "timeout"}, fields)
	})

	t.Run("Should skip non-string keys", func(t *testing.T) {
		fields := Fields(42, "x", "ok", true)

		assert.Equal(t, map[string]any{"ok": true}, fields)
	})
}
