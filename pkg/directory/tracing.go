package directory

import (
	"context"

	"github.com/marmos91/peertrack/internal/protocol/tracker/wire"
	"github.com/marmos91/peertrack/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// tracedDirectory records a span around every call to the wrapped backend.
type tracedDirectory struct {
	Directory
	backend string
}

// WithTracing wraps dir so every operation emits a "directory.*" span.
func WithTracing(dir Directory, backend string) Directory {
	return &tracedDirectory{Directory: dir, backend: backend}
}

func (d *tracedDirectory) ListFiles(ctx context.Context) ([]wire.FileRecord, error) {
	ctx, span := telemetry.StartDirectorySpan(ctx, telemetry.SpanDirectoryListFiles, d.backend)
	defer span.End()

	files, err := d.Directory.ListFiles(ctx)
	telemetry.RecordError(ctx, err)
	span.SetAttributes(attribute.Int("directory.files", len(files)))
	return files, err
}

func (d *tracedDirectory) ListPeers(ctx context.Context, fileID uint32) ([]wire.PeerRecord, error) {
	ctx, span := telemetry.StartDirectorySpan(ctx, telemetry.SpanDirectoryListPeers, d.backend, telemetry.FileID(fileID))
	defer span.End()

	peers, err := d.Directory.ListPeers(ctx, fileID)
	telemetry.RecordError(ctx, err)
	span.SetAttributes(attribute.Int("directory.peers", len(peers)))
	return peers, err
}

func (d *tracedDirectory) RegisterPeer(ctx context.Context, peer wire.PeerRecord) (bool, error) {
	ctx, span := telemetry.StartDirectorySpan(ctx, telemetry.SpanDirectoryRegisterPeer, d.backend,
		attribute.String("directory.peer", peer.String()))
	defer span.End()

	created, err := d.Directory.RegisterPeer(ctx, peer)
	telemetry.RecordError(ctx, err)
	span.SetAttributes(attribute.Bool("directory.created", created))
	return created, err
}

func (d *tracedDirectory) RegisterFile(ctx context.Context, file wire.FileRecord) error {
	ctx, span := telemetry.StartDirectorySpan(ctx, telemetry.SpanDirectoryRegisterFile, d.backend, telemetry.FileID(file.ID))
	defer span.End()

	err := d.Directory.RegisterFile(ctx, file)
	telemetry.RecordError(ctx, err)
	return err
}

// Unwrap returns the underlying backend.
func (d *tracedDirectory) Unwrap() Directory {
	return d.Directory
}
