package handlers

import (
	"net/http"
	"time"

	"github.com/marmos91/peertrack/internal/protocol/tracker/session"
)

// SessionLister exposes point-in-time copies of the tracker sessions.
type SessionLister interface {
	Snapshot() []session.Session
}

// SessionHandler serves the live session table.
type SessionHandler struct {
	sessions SessionLister
}

// NewSessionHandler creates a session handler. sessions may be nil when the
// tracker is not running in this process.
func NewSessionHandler(sessions SessionLister) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// SessionResponse is the JSON form of one session.
type SessionResponse struct {
	Client       string    `json:"client"`
	ID           string    `json:"id"`
	State        string    `json:"state"`
	CreatedAt    time.Time `json:"created_at"`
	LastActive   time.Time `json:"last_active"`
	FileCursor   uint32    `json:"file_cursor"`
	PeerCursor   uint32    `json:"peer_cursor"`
	WantedFileID uint32    `json:"wanted_file_id"`
}

// List handles GET /api/v1/sessions.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		ServiceUnavailable(w, "tracker not running")
		return
	}

	snapshot := h.sessions.Snapshot()
	resp := make([]SessionResponse, 0, len(snapshot))
	for _, s := range snapshot {
		resp = append(resp, sessionToResponse(s))
	}

	writeJSON(w, http.StatusOK, okResponse(resp))
}

func sessionToResponse(s session.Session) SessionResponse {
	return SessionResponse{
		Client:       s.Addr.String(),
		ID:           s.ID,
		State:        s.State.String(),
		CreatedAt:    s.CreatedAt.UTC(),
		LastActive:   s.LastActive.UTC(),
		FileCursor:   s.FileCursor,
		PeerCursor:   s.PeerCursor,
		WantedFileID: s.WantedFileID,
	}
}
