package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Level:      LevelDebug,
		Output:     &buf,
		JSON:       true,
		TimeFormat: time.RFC3339,
	})
	require.NotNil(t, logger)

	t.Run("Levels", func(t *testing.T) {
		for _, msg := range []string{"debug msg", "info msg", "warn msg", "error msg"} {
			buf.Reset()
			switch msg {
			case "debug msg":
				logger.Debug(msg)
			case "info msg":
				logger.Info(msg)
			case "warn msg":
				logger.Warn(msg)
			default:
				logger.Error(msg)
			}
			assert.Contains(t, buf.String(), msg)
		}
	})

	t.Run("DynamicLevel", func(t *testing.T) {
		logger.SetLevel(LevelError)
		assert.Equal(t, LevelError, logger.GetLevel())

		buf.Reset()
		logger.Info("should not appear")
		assert.Zero(t, buf.Len())

		logger.SetLevel(LevelDebug)
	})

	t.Run("WithComponent", func(t *testing.T) {
		buf.Reset()
		logger.WithComponent("reconciler").Info("msg")

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, "reconciler", rec["component"])
	})

	t.Run("WithFields", func(t *testing.T) {
		buf.Reset()
		logger.WithFields(map[string]any{"dest": "10.0.0.5/32"}).Info("msg")
		assert.Contains(t, buf.String(), "10.0.0.5/32")
	})
}

func TestConsoleHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Output: &buf})

	logger.WithComponent("Monitor").Info("gateway changed", "new", "192.168.1.1", "note", "two words")

	line := buf.String()
	assert.Contains(t, line, "routepin[")
	assert.Contains(t, line, "[info] monitor: gateway changed")
	assert.Contains(t, line, "new=192.168.1.1")
	assert.Contains(t, line, `note="two words"`)
	assert.True(t, strings.HasSuffix(line, "\n"))

	last := Buffer().GetLast(1)
	require.Len(t, last, 1)
	assert.Equal(t, "monitor", last[0].Source)
	assert.Equal(t, "192.168.1.1", last[0].Extra["new"])
}

func TestRingBuffer(t *testing.T) {
	rb := NewRingBuffer(3)
	for i, msg := range []string{"a", "b", "c", "d"} {
		rb.Add(Entry{Message: msg, Timestamp: time.Unix(int64(i), 0)})
	}

	assert.Equal(t, 3, rb.Count())
	last := rb.GetLast(5)
	require.Len(t, last, 3)
	assert.Equal(t, "b", last[0].Message)
	assert.Equal(t, "d", last[2].Message)

	rb.Clear()
	assert.Empty(t, rb.GetLast(2))
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, LevelDebug, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, LevelInfo, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
