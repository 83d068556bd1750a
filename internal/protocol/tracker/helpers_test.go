package tracker

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/peertrack/internal/protocol/tracker/wire"
	"github.com/marmos91/peertrack/pkg/directory"
	"github.com/stretchr/testify/require"
)

var (
	clientA = netip.MustParseAddrPort("192.0.2.10:5000")
	clientB = netip.MustParseAddrPort("192.0.2.11:5000")
	seederA = netip.MustParseAddrPort("198.51.100.1:6000")
	seederB = netip.MustParseAddrPort("198.51.100.2:6000")
	epoch   = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
)

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: epoch} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func seedFiles(t *testing.T, dir directory.Directory, n int) []wire.FileRecord {
	t.Helper()

	files := make([]wire.FileRecord, 0, n)
	for i := range n {
		f := wire.FileRecord{
			ID:          uint32(i + 1),
			Name:        fmt.Sprintf("file-%02d.bin", i+1),
			Description: fmt.Sprintf("test file number %d", i+1),
		}
		require.NoError(t, dir.RegisterFile(t.Context(), f))
		files = append(files, f)
	}
	return files
}

func seedPeers(t *testing.T, dir directory.Directory, n int) []wire.PeerRecord {
	t.Helper()

	peers := make([]wire.PeerRecord, 0, n)
	for i := range n {
		p := wire.PeerRecord{IP: 0x0A000000 + uint32(i+1), Port: uint16(7000 + i)}
		_, err := dir.RegisterPeer(t.Context(), p)
		require.NoError(t, err)
		peers = append(peers, p)
	}
	return peers
}

func newTestEngine(t *testing.T, cfg Config, opts ...Option) (*Engine, *directory.MemoryDirectory) {
	t.Helper()

	dir := directory.NewMemoryDirectory()
	e, err := NewEngine(cfg, dir, opts...)
	require.NoError(t, err)
	return e, dir
}

// send runs one request through the engine and decodes the response.
func send(t *testing.T, e *Engine, from netip.AddrPort, datagram []byte) (wire.Response, error) {
	t.Helper()

	resp, err := e.Handle(t.Context(), from, datagram)
	if err != nil || resp == nil {
		return wire.Response{}, err
	}
	require.LessOrEqual(t, len(resp), e.Config().PacketMaxSize, "response exceeds packet max size")

	decoded, err := wire.DecodeResponse(resp)
	require.NoError(t, err)
	return decoded, nil
}

func mustSend(t *testing.T, e *Engine, from netip.AddrPort, datagram []byte) wire.Response {
	t.Helper()

	resp, err := send(t, e, from, datagram)
	require.NoError(t, err)
	return resp
}

func filesChunk(t *testing.T, resp wire.Response) (uint32, []wire.FileRecord) {
	t.Helper()

	require.Equal(t, wire.StateFilesChunk, resp.State)
	start, files, err := wire.DecodeFileChunk(resp.Payload)
	require.NoError(t, err)
	return start, files
}

func peersChunk(t *testing.T, resp wire.Response) (uint32, []wire.PeerRecord) {
	t.Helper()

	require.Equal(t, wire.StatePeersChunk, resp.State)
	start, peers, err := wire.DecodePeerChunk(resp.Payload)
	require.NoError(t, err)
	return start, peers
}

// failingDirectory fails every listing.
type failingDirectory struct {
	directory.Directory
}

var errBackendDown = errors.New("backend down")

func (failingDirectory) ListFiles(context.Context) ([]wire.FileRecord, error) {
	return nil, errBackendDown
}

func (failingDirectory) ListPeers(context.Context, uint32) ([]wire.PeerRecord, error) {
	return nil, errBackendDown
}

func (failingDirectory) RegisterPeer(context.Context, wire.PeerRecord) (bool, error) {
	return false, errBackendDown
}
