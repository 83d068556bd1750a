package handlers

import (
	"net/http"
	"strconv"

	"github.com/marmos91/peertrack/internal/logger"
	"github.com/marmos91/peertrack/internal/protocol/tracker/wire"
	"github.com/marmos91/peertrack/pkg/directory"
)

// DirectoryHandler serves read-only views of the file catalog and the
// registered peers.
type DirectoryHandler struct {
	dir directory.Directory
}

// NewDirectoryHandler creates a directory handler.
func NewDirectoryHandler(dir directory.Directory) *DirectoryHandler {
	return &DirectoryHandler{dir: dir}
}

// PeerResponse is the JSON form of a peer record.
type PeerResponse struct {
	Address string `json:"address"`
	IP      uint32 `json:"ip"`
	Port    uint16 `json:"port"`
}

// Files handles GET /api/v1/files.
func (h *DirectoryHandler) Files(w http.ResponseWriter, r *http.Request) {
	files, err := h.dir.ListFiles(r.Context())
	if err != nil {
		logger.Error("List files failed", logger.KeyError, err)
		InternalServerError(w, "Failed to list files")
		return
	}
	if files == nil {
		files = []wire.FileRecord{}
	}

	writeJSON(w, http.StatusOK, okResponse(files))
}

// Peers handles GET /api/v1/peers?file_id=N.
func (h *DirectoryHandler) Peers(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("file_id")
	if raw == "" {
		BadRequest(w, "file_id is required")
		return
	}
	fileID, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		BadRequest(w, "file_id must be an unsigned 32-bit integer")
		return
	}

	peers, err := h.dir.ListPeers(r.Context(), uint32(fileID))
	if err != nil {
		logger.Error("List peers failed", logger.KeyFileID, fileID, logger.KeyError, err)
		InternalServerError(w, "Failed to list peers")
		return
	}

	resp := make([]PeerResponse, 0, len(peers))
	for _, p := range peers {
		resp = append(resp, PeerResponse{Address: p.String(), IP: p.IP, Port: p.Port})
	}

	writeJSON(w, http.StatusOK, okResponse(resp))
}

// Stats handles GET /api/v1/stats.
func (h *DirectoryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dir.Stats(r.Context())
	if err != nil {
		logger.Error("Directory stats failed", logger.KeyError, err)
		InternalServerError(w, "Failed to read directory stats")
		return
	}

	writeJSON(w, http.StatusOK, okResponse(stats))
}
