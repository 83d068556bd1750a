package session

import (
	"cmp"
	"net/netip"
	"slices"
	"sync"
	"time"

	"github.com/marmos91/peertrack/internal/logger"
	"github.com/marmos91/peertrack/internal/protocol/tracker/wire"
)

// Removal reasons, used as the metrics label and in logs.
const (
	ReasonThanks  = "thanks"
	ReasonIdle    = "idle"
	ReasonAborted = "aborted"
)

// Store owns every Session, keyed by client address.
//
// The tracker loop is the only writer. The lock lets metrics scrapes and
// admin snapshots read concurrently with it.
type Store struct {
	mu       sync.RWMutex
	sessions map[netip.AddrPort]*Session
	metrics  *Metrics
}

// NewStore creates an empty store. metrics may be nil.
func NewStore(metrics *Metrics) *Store {
	return &Store{
		sessions: make(map[netip.AddrPort]*Session),
		metrics:  metrics,
	}
}

// GetOrCreate returns the session for addr, creating it in the entry state
// when absent. An existing session is returned untouched. created reports
// whether a new session was inserted.
func (s *Store) GetOrCreate(addr netip.AddrPort, entry wire.State, now time.Time) (sess *Session, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sessions[addr]; ok {
		return existing, false
	}

	sess = New(addr, entry, now)
	s.sessions[addr] = sess
	s.metrics.recordCreated()

	logger.Debug("Session created",
		logger.KeyClient, addr.String(),
		logger.KeySessionID, sess.ID,
		logger.KeyState, entry.String())

	return sess, true
}

// Get returns the session for addr.
func (s *Store) Get(addr netip.AddrPort) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[addr]
	return sess, ok
}

// Update applies fn to sess under the store's write lock. All mutations of a
// stored session go through Update so Snapshot never observes a torn write.
func (s *Store) Update(sess *Session, fn func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(sess)
}

// Remove deletes the session for addr. Removing an absent session is a no-op.
func (s *Store) Remove(addr netip.AddrPort, reason string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(addr, reason, now)
}

func (s *Store) removeLocked(addr netip.AddrPort, reason string, now time.Time) {
	sess, ok := s.sessions[addr]
	if !ok {
		return
	}
	delete(s.sessions, addr)
	s.metrics.recordRemoved(reason, now.Sub(sess.CreatedAt).Seconds())

	logger.Debug("Session removed",
		logger.KeyClient, addr.String(),
		logger.KeySessionID, sess.ID,
		logger.KeyReason, reason)
}

// Sweep removes every session whose LastActive is older than idleTimeout and
// returns how many were removed.
func (s *Store) Sweep(now time.Time, idleTimeout time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []netip.AddrPort
	for addr, sess := range s.sessions {
		if sess.Idle(now, idleTimeout) {
			expired = append(expired, addr)
		}
	}

	for _, addr := range expired {
		s.removeLocked(addr, ReasonIdle, now)
	}

	if len(expired) > 0 {
		logger.Info("Idle sessions expired", logger.KeyCount, len(expired), "remaining", len(s.sessions))
	}

	return len(expired)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Snapshot returns copies of all sessions ordered by address.
func (s *Store) Snapshot() []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		result = append(result, *sess)
	}

	slices.SortFunc(result, func(a, b Session) int {
		return cmp.Compare(a.Addr.String(), b.Addr.String())
	})

	return result
}
