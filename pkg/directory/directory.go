// Package directory holds the catalog of shareable files and the peers that
// seed them.
//
// The tracker engine pages through ListFiles and ListPeers by index, so both
// must return a stable order: new entries are appended, existing entries never
// move. Registering a peer that is already known (by IP) refreshes its port in
// place.
package directory

import (
	"context"

	"github.com/marmos91/peertrack/internal/protocol/tracker/wire"
)

// Directory is the file and peer registry consulted by the tracker.
//
// Implementations must be safe for concurrent use: the tracker loop reads it
// while the catalog watcher and the admin API may write or read concurrently.
type Directory interface {
	// ListFiles returns every catalog file in insertion order.
	ListFiles(ctx context.Context) ([]wire.FileRecord, error)

	// ListPeers returns the peers seeding fileID in registration order.
	// Every registered peer seeds every catalog file. An unknown fileID yields
	// an empty list, not an error.
	ListPeers(ctx context.Context, fileID uint32) ([]wire.PeerRecord, error)

	// RegisterPeer inserts peer, or refreshes the port of the peer already
	// registered with the same IP. created reports whether a new entry was added.
	RegisterPeer(ctx context.Context, peer wire.PeerRecord) (created bool, err error)

	// RegisterFile inserts file unless a file with the same ID exists, in which
	// case it returns ErrFileExists and leaves the catalog unchanged.
	RegisterFile(ctx context.Context, file wire.FileRecord) error

	// Stats returns entry counts.
	Stats(ctx context.Context) (Stats, error)

	// Healthcheck verifies the backend can serve requests.
	Healthcheck(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// Stats summarizes the directory contents.
type Stats struct {
	Backend string `json:"backend" yaml:"backend"`
	Files   int    `json:"files" yaml:"files"`
	Peers   int    `json:"peers" yaml:"peers"`
}
