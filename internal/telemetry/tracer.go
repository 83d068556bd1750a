package telemetry

import (
	"context"
	"net/netip"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for tracker spans.
const (
	// ========================================================================
	// Client attributes
	// ========================================================================
	AttrClientAddr = "client.address"
	AttrClientPort = "client.port"

	// ========================================================================
	// Tracker protocol attributes
	// ========================================================================
	AttrMessageType = "tracker.message_type" // Request tag name
	AttrStateFrom   = "tracker.state.from"   // Session state before the transition
	AttrStateTo     = "tracker.state.to"     // Session state after the transition
	AttrSessionID   = "tracker.session_id"   // Session correlation ID
	AttrCursor      = "tracker.cursor"       // Acknowledged record index
	AttrChunkStart  = "tracker.chunk.start"  // First record index in a chunk
	AttrChunkCount  = "tracker.chunk.count"  // Number of records in a chunk
	AttrFileID      = "tracker.file_id"      // Catalog file identifier
	AttrDatagramLen = "tracker.datagram.size"
	AttrSweepRemove = "tracker.sweep.removed" // Sessions expired by one sweep

	// ========================================================================
	// Directory attributes
	// ========================================================================
	AttrDirectoryBackend = "directory.backend"
)

// Span names.
// Format: tracker.<MESSAGE_TYPE> for request handling,
// directory.<operation> for catalog access.
const (
	SpanTrackerSweep = "tracker.sweep"

	SpanDirectoryListFiles    = "directory.list_files"
	SpanDirectoryListPeers    = "directory.list_peers"
	SpanDirectoryRegisterPeer = "directory.register_peer"
	SpanDirectoryRegisterFile = "directory.register_file"
)

// ClientAddr returns an attribute for the client's source ip:port
func ClientAddr(addr netip.AddrPort) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr.String())
}

// ClientPort returns an attribute for the client's source port
func ClientPort(port uint16) attribute.KeyValue {
	return attribute.Int(AttrClientPort, int(port))
}

// MessageType returns an attribute for a request tag name
func MessageType(name string) attribute.KeyValue {
	return attribute.String(AttrMessageType, name)
}

// StateFrom returns an attribute for the state before a transition
func StateFrom(state string) attribute.KeyValue {
	return attribute.String(AttrStateFrom, state)
}

// StateTo returns an attribute for the state after a transition
func StateTo(state string) attribute.KeyValue {
	return attribute.String(AttrStateTo, state)
}

// SessionID returns an attribute for a session correlation ID
func SessionID(id string) attribute.KeyValue {
	return attribute.String(AttrSessionID, id)
}

// Cursor returns an attribute for an acknowledged record index
func Cursor(cursor uint32) attribute.KeyValue {
	return attribute.Int64(AttrCursor, int64(cursor))
}

// Chunk returns attributes describing a chunk response
func Chunk(start uint32, count int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64(AttrChunkStart, int64(start)),
		attribute.Int(AttrChunkCount, count),
	}
}

// FileID returns an attribute for a catalog file identifier
func FileID(id uint32) attribute.KeyValue {
	return attribute.Int64(AttrFileID, int64(id))
}

// DatagramSize returns an attribute for a datagram length
func DatagramSize(n int) attribute.KeyValue {
	return attribute.Int(AttrDatagramLen, n)
}

// SweepRemoved returns an attribute for the number of sessions a sweep expired.
func SweepRemoved(n int) attribute.KeyValue {
	return attribute.Int(AttrSweepRemove, n)
}

// StartRequestSpan starts a span for one tracker request.
// The span name is "tracker.<MESSAGE_TYPE>", e.g. "tracker.FILES_ACK".
func StartRequestSpan(ctx context.Context, messageType string, client netip.AddrPort, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+2)
	allAttrs = append(allAttrs, MessageType(messageType), ClientAddr(client))
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "tracker."+messageType,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(allAttrs...))
}

// StartDirectorySpan starts a span for a directory backend operation.
func StartDirectorySpan(ctx context.Context, spanName, backend string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+1)
	allAttrs = append(allAttrs, attribute.String(AttrDirectoryBackend, backend))
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, spanName, trace.WithAttributes(allAttrs...))
}
