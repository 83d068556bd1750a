package directory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/marmos91/peertrack/internal/protocol/tracker/wire"
)

// BackendMemory is the type name of the in-process directory.
const BackendMemory = "memory"

// MemoryDirectory keeps files and peers in slices indexed by maps.
type MemoryDirectory struct {
	mu sync.RWMutex

	files     []wire.FileRecord
	fileIndex map[uint32]int

	peers     []wire.PeerRecord
	peerIndex map[uint32]int // ip -> position in peers
}

// NewMemoryDirectory creates an empty in-memory directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		fileIndex: make(map[uint32]int),
		peerIndex: make(map[uint32]int),
	}
}

func (d *MemoryDirectory) ListFiles(ctx context.Context) ([]wire.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.files), nil
}

func (d *MemoryDirectory) ListPeers(ctx context.Context, fileID uint32) ([]wire.PeerRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if _, ok := d.fileIndex[fileID]; !ok {
		return []wire.PeerRecord{}, nil
	}
	return slices.Clone(d.peers), nil
}

func (d *MemoryDirectory) RegisterPeer(ctx context.Context, peer wire.PeerRecord) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if i, ok := d.peerIndex[peer.IP]; ok {
		d.peers[i].Port = peer.Port
		return false, nil
	}

	d.peerIndex[peer.IP] = len(d.peers)
	d.peers = append(d.peers, peer)
	return true, nil
}

func (d *MemoryDirectory) RegisterFile(ctx context.Context, file wire.FileRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.fileIndex[file.ID]; ok {
		return fmt.Errorf("file %d: %w", file.ID, ErrFileExists)
	}

	d.fileIndex[file.ID] = len(d.files)
	d.files = append(d.files, file)
	return nil
}

func (d *MemoryDirectory) Stats(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	return Stats{Backend: BackendMemory, Files: len(d.files), Peers: len(d.peers)}, nil
}

func (d *MemoryDirectory) Healthcheck(ctx context.Context) error {
	return ctx.Err()
}

func (d *MemoryDirectory) Close() error {
	return nil
}

var _ Directory = (*MemoryDirectory)(nil)
