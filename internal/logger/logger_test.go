package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Helper Functions
// ============================================================================

// captureOutput redirects logger output to a buffer for testing.
// Returns the buffer and a cleanup function restoring the default output,
// level and format.
func captureOutput() (*bytes.Buffer, func()) {
	buf := new(bytes.Buffer)

	mu.Lock()
	originalOutput := output
	originalColor := useColor
	output = buf
	useColor = false
	mu.Unlock()

	reconfigure()

	cleanup := func() {
		mu.Lock()
		output = originalOutput
		useColor = originalColor
		mu.Unlock()
		currentFormat.Store("text")
		currentLevel.Store(int32(LevelInfo))
		reconfigure()
	}

	return buf, cleanup
}

func decodeJSONLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	return entry
}

// ============================================================================
// Level Filtering Tests
// ============================================================================

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level   string
		visible []string
		hidden  []string
	}{
		{"DEBUG", []string{"debug message", "info message", "warn message", "error message"}, nil},
		{"INFO", []string{"info message", "warn message", "error message"}, []string{"debug message"}},
		{"WARN", []string{"warn message", "error message"}, []string{"debug message", "info message"}},
		{"ERROR", []string{"error message"}, []string{"debug message", "info message", "warn message"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf, cleanup := captureOutput()
			defer cleanup()

			SetLevel(tt.level)

			Debug("debug message")
			Info("info message")
			Warn("warn message")
			Error("error message")

			out := buf.String()
			for _, msg := range tt.visible {
				assert.Contains(t, out, msg)
			}
			for _, msg := range tt.hidden {
				assert.NotContains(t, out, msg)
			}
		})
	}
}

func TestSetLevel(t *testing.T) {
	t.Run("CaseInsensitive", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("dEbUg")
		Debug("session created")
		assert.Contains(t, buf.String(), "session created")
	})

	t.Run("InvalidValueIgnored", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")
		SetLevel("VERBOSE")
		Debug("hidden")
		Info("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

// ============================================================================
// Format Tests
// ============================================================================

func TestTextFormat(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	Info("Datagram dropped", KeyClient, "10.0.0.1:4000", KeyBytes, 0)

	out := buf.String()
	assert.Contains(t, out, "[INFO] Datagram dropped")
	assert.Contains(t, out, "client=10.0.0.1:4000")
	assert.Contains(t, out, "bytes=0")
	assert.NotContains(t, out, "\033[", "colors disabled for buffers")
}

func TestJSONFormat(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetFormat("json")
	Info("Chunk sent", KeyStart, 8, KeyCount, 2)

	entry := decodeJSONLine(t, buf)
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "Chunk sent", entry["msg"])
	assert.Equal(t, float64(8), entry[KeyStart])
	assert.Equal(t, float64(2), entry[KeyCount])
	assert.Contains(t, entry, "time")
}

func TestFormatSwitching(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetFormat("xml")
	Info("still text")
	assert.Contains(t, buf.String(), "[INFO]")

	buf.Reset()
	SetFormat("JSON")
	Info("now json")
	assert.True(t, json.Valid([]byte(strings.TrimSpace(buf.String()))))
}

// ============================================================================
// Context Logging Tests
// ============================================================================

func TestContextLogging(t *testing.T) {
	t.Run("LogContextInjectsFields", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetFormat("json")

		lc := &LogContext{
			TraceID:   "abc123",
			SpanID:    "xyz789",
			Message:   "FILES_ACK",
			Client:    "192.168.1.100:5000",
			SessionID: "5f0c",
		}
		ctx := WithContext(context.Background(), lc)

		InfoCtx(ctx, "Transition", KeyState, "FILES_CHUNK")

		entry := decodeJSONLine(t, buf)
		assert.Equal(t, "abc123", entry[KeyTraceID])
		assert.Equal(t, "xyz789", entry[KeySpanID])
		assert.Equal(t, "FILES_ACK", entry[KeyMessage])
		assert.Equal(t, "192.168.1.100:5000", entry[KeyClient])
		assert.Equal(t, "5f0c", entry[KeySessionID])
		assert.Equal(t, "FILES_CHUNK", entry[KeyState])
	})

	t.Run("EmptyFieldsOmitted", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetFormat("json")

		ctx := WithContext(context.Background(), NewLogContext("10.0.0.1:1"))
		WarnCtx(ctx, "Illegal transition")

		entry := decodeJSONLine(t, buf)
		assert.NotContains(t, entry, KeySessionID)
		assert.NotContains(t, entry, KeyTraceID)
		assert.Equal(t, "10.0.0.1:1", entry[KeyClient])
	})

	t.Run("MissingLogContext", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		require.NotPanics(t, func() {
			//nolint:staticcheck // nil context is tolerated
			InfoCtx(nil, "nil context")
			InfoCtx(context.Background(), "bare context")
		})

		assert.Contains(t, buf.String(), "nil context")
		assert.Contains(t, buf.String(), "bare context")
	})
}

func TestLogContext(t *testing.T) {
	t.Run("NewLogContext", func(t *testing.T) {
		lc := NewLogContext("192.168.1.100:5000")
		assert.Equal(t, "192.168.1.100:5000", lc.Client)
		assert.False(t, lc.StartTime.IsZero())
		assert.GreaterOrEqual(t, lc.DurationMs(), 0.0)
	})

	t.Run("WithersCopy", func(t *testing.T) {
		lc := NewLogContext("192.168.1.100:5000")

		withMsg := lc.WithMessage("REGISTER")
		withSess := withMsg.WithSession("sess-1")
		withTrace := withSess.WithTrace("t", "s")

		assert.Empty(t, lc.Message)
		assert.Equal(t, "REGISTER", withMsg.Message)
		assert.Empty(t, withMsg.SessionID)
		assert.Equal(t, "sess-1", withSess.SessionID)
		assert.Equal(t, "REGISTER", withTrace.Message)
		assert.Equal(t, "t", withTrace.TraceID)
		assert.Equal(t, "s", withTrace.SpanID)
	})

	t.Run("NilSafe", func(t *testing.T) {
		var lc *LogContext
		assert.Nil(t, lc.Clone())
		assert.Nil(t, lc.WithMessage("THANKS"))
		assert.Zero(t, lc.DurationMs())
	})
}

// ============================================================================
// Field Helper Tests
// ============================================================================

func TestFieldHelpers(t *testing.T) {
	assert.Equal(t, KeyClient, Client("1.2.3.4:5").Key)
	assert.Equal(t, uint64(7), FileID(7).Value.Uint64())
	assert.Equal(t, uint64(19), Cursor(19).Value.Uint64())
	assert.Equal(t, "FILES_LIST", Message("FILES_LIST").Value.String())

	assert.Equal(t, "", Err(nil).Key)
	attr := Err(errors.New("boom"))
	assert.Equal(t, KeyError, attr.Key)
	assert.Equal(t, "boom", attr.Value.String())
}

// ============================================================================
// Concurrency Tests
// ============================================================================

func TestConcurrentLogging(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	const goroutines = 10
	const perGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				Info("goroutine log", "id", id, "iteration", j)
			}
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, goroutines*perGoroutine)
}

func TestConcurrentLevelChanges(t *testing.T) {
	InitWithWriter(io.Discard, "DEBUG", "text", false)
	defer func() {
		mu.Lock()
		output = os.Stdout
		mu.Unlock()
		currentLevel.Store(int32(LevelInfo))
		reconfigure()
	}()

	var wg sync.WaitGroup
	wg.Add(10)
	for i := 0; i < 5; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if j%2 == 0 {
					SetLevel("DEBUG")
				} else {
					SetLevel("ERROR")
				}
			}
		}()
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				Debug("debug", "id", id)
				Error("error", "id", id)
			}
		}(i)
	}

	require.NotPanics(t, wg.Wait)
}

// ============================================================================
// Init Tests
// ============================================================================

func TestInit(t *testing.T) {
	defer func() {
		mu.Lock()
		output = os.Stdout
		mu.Unlock()
		currentLevel.Store(int32(LevelInfo))
		currentFormat.Store("text")
		reconfigure()
	}()

	t.Run("EmptyConfig", func(t *testing.T) {
		require.NoError(t, Init(Config{}))
	})

	t.Run("FileOutput", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tracker.log")
		require.NoError(t, Init(Config{Level: "DEBUG", Format: "json", Output: path}))

		Debug("written to file", KeyPeer, "127.0.0.1:9000")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "127.0.0.1:9000")
	})

	t.Run("UnwritablePath", func(t *testing.T) {
		err := Init(Config{Output: filepath.Join(t.TempDir(), "missing", "tracker.log")})
		assert.Error(t, err)
	})
}

// ============================================================================
// Benchmarks
// ============================================================================

func BenchmarkLogDisabled(b *testing.B) {
	InitWithWriter(io.Discard, "ERROR", "text", false)
	for i := 0; i < b.N; i++ {
		Debug("datagram", KeyBytes, 5)
	}
}

func BenchmarkLogCtx(b *testing.B) {
	InitWithWriter(io.Discard, "DEBUG", "json", false)
	ctx := WithContext(context.Background(), &LogContext{Message: "PEERS_ACK", Client: "192.168.1.100:5000"})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		InfoCtx(ctx, "ack", KeyCursor, i)
	}
}
