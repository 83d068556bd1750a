// Package session tracks per-client protocol progress for the tracker.
//
// A session is keyed by the client's source (IP, port). A client whose source
// port changes between datagrams is indistinguishable from a new client and
// starts over; the key is never interpreted as a user identity.
package session

import (
	"net/netip"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/peertrack/internal/protocol/tracker/wire"
)

// Session is the server-side state of one client address.
//
// Sessions are mutated only by the tracker's receive loop. The Store hands out
// the live pointer; other goroutines must use Store.Snapshot.
type Session struct {
	// Addr is the session key.
	Addr netip.AddrPort

	// ID correlates log lines and traces. It never appears on the wire.
	ID string

	State wire.State

	CreatedAt  time.Time
	LastActive time.Time

	// FileCursor is the index into the file listing the client has acknowledged.
	FileCursor uint32

	// PeerCursor is the index into the peer listing of WantedFileID.
	PeerCursor uint32

	WantedFileID uint32
}

// New creates a session in the given entry state with zeroed cursors.
func New(addr netip.AddrPort, entry wire.State, now time.Time) *Session {
	return &Session{
		Addr:       addr,
		ID:         uuid.NewString(),
		State:      entry,
		CreatedAt:  now,
		LastActive: now,
	}
}

// Touch marks the session active at now.
func (s *Session) Touch(now time.Time) {
	s.LastActive = now
}

// AdvanceFileCursor moves FileCursor forward to cursor. Stale acknowledgments
// never rewind it.
func (s *Session) AdvanceFileCursor(cursor uint32) {
	if cursor > s.FileCursor {
		s.FileCursor = cursor
	}
}

// AdvancePeerCursor moves PeerCursor forward to cursor. Stale acknowledgments
// never rewind it.
func (s *Session) AdvancePeerCursor(cursor uint32) {
	if cursor > s.PeerCursor {
		s.PeerCursor = cursor
	}
}

// Idle reports whether the session has been inactive for longer than timeout.
func (s *Session) Idle(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.LastActive) > timeout
}
