package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/marmos91/peertrack/internal/cli/health"
	"github.com/marmos91/peertrack/internal/protocol/tracker/wire"
	"github.com/marmos91/peertrack/pkg/api/handlers"
	"github.com/marmos91/peertrack/pkg/directory"
)

// Health calls the liveness probe.
func (c *Client) Health(ctx context.Context) (*health.Response, error) {
	body, err := c.request(ctx, http.MethodGet, "/health")
	if err != nil {
		return nil, err
	}

	var resp health.Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode health response: %w", err)
	}
	return &resp, nil
}

// Ready calls the readiness probe. An unready server yields an *APIError
// for which IsUnavailable is true.
func (c *Client) Ready(ctx context.Context) (*handlers.ReadinessResponse, error) {
	return getResource[handlers.ReadinessResponse](ctx, c, "/health/ready")
}

// Sessions lists the live tracker sessions.
func (c *Client) Sessions(ctx context.Context) ([]handlers.SessionResponse, error) {
	return listResources[handlers.SessionResponse](ctx, c, "/api/v1/sessions")
}

// Files lists the catalog.
func (c *Client) Files(ctx context.Context) ([]wire.FileRecord, error) {
	return listResources[wire.FileRecord](ctx, c, "/api/v1/files")
}

// Peers lists the seeders of fileID.
func (c *Client) Peers(ctx context.Context, fileID uint32) ([]handlers.PeerResponse, error) {
	q := url.Values{"file_id": {strconv.FormatUint(uint64(fileID), 10)}}
	return listResources[handlers.PeerResponse](ctx, c, "/api/v1/peers?"+q.Encode())
}

// Stats returns directory entry counts.
func (c *Client) Stats(ctx context.Context) (*directory.Stats, error) {
	return getResource[directory.Stats](ctx, c, "/api/v1/stats")
}
