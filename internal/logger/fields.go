package logger

import (
	"log/slog"
	"time"
)

// Standard field keys for structured logging.
// Use these keys consistently so tracker logs can be aggregated and queried.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID
	KeySpanID  = "span_id"  // OpenTelemetry span ID

	// ========================================================================
	// Protocol
	// ========================================================================
	KeyMessage = "message_type" // Request tag name: FILES_LIST, PEERS_ACK, ...
	KeyState   = "state"        // Session state after (or before) a transition
	KeyTag     = "tag"          // Raw tag byte of a datagram
	KeyBytes   = "bytes"        // Datagram size
	KeyCursor  = "cursor"       // Acknowledged record index
	KeyStart   = "start"        // First record index of a chunk
	KeyCount   = "count"        // Number of records or items
	KeyFileID  = "file_id"      // Catalog file identifier
	KeyPeer    = "peer"         // Seeder endpoint ip:port

	// ========================================================================
	// Client & Session
	// ========================================================================
	KeyClient    = "client"     // Client source address ip:port
	KeySessionID = "session_id" // Session correlation ID
	KeyReason    = "reason"     // Session removal or drop reason

	// ========================================================================
	// Server & Storage
	// ========================================================================
	KeyAddress    = "address"     // Listen address
	KeyBackend    = "backend"     // Directory backend: memory, badger
	KeyPath       = "path"        // Filesystem path (catalog, database)
	KeyFiles      = "files"       // Number of catalog files
	KeyPeers      = "peers"       // Number of registered peers
	KeyDuration   = "duration"    // Elapsed time
	KeyDurationMs = "duration_ms" // Elapsed time in milliseconds

	// ========================================================================
	// Errors
	// ========================================================================
	KeyError = "error" // Error message
)

// ============================================================================
// Field constructors
// ============================================================================

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Message returns a slog.Attr for a request tag name
func Message(name string) slog.Attr {
	return slog.String(KeyMessage, name)
}

// State returns a slog.Attr for a session state name
func State(name string) slog.Attr {
	return slog.String(KeyState, name)
}

// Client returns a slog.Attr for a client source address
func Client(addr string) slog.Attr {
	return slog.String(KeyClient, addr)
}

// SessionID returns a slog.Attr for a session correlation ID
func SessionID(id string) slog.Attr {
	return slog.String(KeySessionID, id)
}

// Cursor returns a slog.Attr for an acknowledged record index
func Cursor(c uint32) slog.Attr {
	return slog.Uint64(KeyCursor, uint64(c))
}

// FileID returns a slog.Attr for a catalog file identifier
func FileID(id uint32) slog.Attr {
	return slog.Uint64(KeyFileID, uint64(id))
}

// Count returns a slog.Attr for a record or item count
func Count(n int) slog.Attr {
	return slog.Int(KeyCount, n)
}

// Elapsed returns a slog.Attr with the time since start in milliseconds
func Elapsed(start time.Time) slog.Attr {
	return slog.Float64(KeyDurationMs, Duration(start))
}

// Err returns a slog.Attr for an error. A nil error yields an empty attr,
// which handlers skip.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
