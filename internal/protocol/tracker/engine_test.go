package tracker

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"testing"
	"time"

	"github.com/marmos91/peertrack/internal/protocol/tracker/session"
	"github.com/marmos91/peertrack/internal/protocol/tracker/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func peerOf(addr netip.AddrPort) wire.PeerRecord {
	ip := addr.Addr().As4()
	return wire.PeerRecord{IP: binary.BigEndian.Uint32(ip[:]), Port: addr.Port()}
}

func thanks() []byte { return wire.EncodeRequest(wire.MsgThanks, nil) }

func filesList() []byte { return wire.EncodeRequest(wire.MsgFilesList, nil) }

// ============================================================================
// Scenarios
// ============================================================================

func TestDiscoveryScenario(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PacketMaxSize = 1024
	cfg.MaxFilesPerMessage = 8

	e, dir := newTestEngine(t, cfg)
	files := seedFiles(t, dir, 10)

	resp := mustSend(t, e, clientA, filesList())
	assert.Equal(t, wire.StateFilesChunk, resp.State)
	count, start, _, err := wire.DecodeChunkHeader(resp.Payload)
	require.NoError(t, err)
	assert.Equal(t, uint32(8), count)
	assert.Equal(t, uint32(0), start)
	_, page := filesChunk(t, resp)
	assert.Equal(t, files[:8], page)

	resp = mustSend(t, e, clientA, wire.EncodeAck(wire.MsgFilesAck, 8))
	count, start, _, err = wire.DecodeChunkHeader(resp.Payload)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), count)
	assert.Equal(t, uint32(8), start)
	_, page = filesChunk(t, resp)
	assert.Equal(t, files[8:], page)

	resp = mustSend(t, e, clientA, wire.EncodeAck(wire.MsgFilesAck, 10))
	assert.Equal(t, wire.StateFilesFin, resp.State)
	assert.Empty(t, resp.Payload)

	// No peers registered: the peer list ends immediately.
	resp = mustSend(t, e, clientA, wire.EncodePeersRequest(3))
	assert.Equal(t, wire.StatePeersFin, resp.State)
	assert.Empty(t, resp.Payload)

	raw, err := e.Handle(t.Context(), clientA, thanks())
	require.NoError(t, err)
	assert.Nil(t, raw)
	assert.Equal(t, 0, e.Sessions().Len())

	raw, err = e.Handle(t.Context(), clientA, thanks())
	var illegal *IllegalTransitionError
	require.ErrorAs(t, err, &illegal)
	assert.Equal(t, wire.StateNone, illegal.State)
	assert.Nil(t, raw)
	assert.Equal(t, 0, e.Sessions().Len())
}

func TestDiscoveryScenario_WithSeeders(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PacketMaxSize = 1024
	cfg.MaxFilesPerMessage = 8

	e, dir := newTestEngine(t, cfg)
	files := seedFiles(t, dir, 10)

	for _, seeder := range []netip.AddrPort{seederA, seederB} {
		resp := mustSend(t, e, seeder, wire.EncodeRegister(peerOf(seeder)))
		assert.Equal(t, wire.StateRegisterAck, resp.State)
		assert.Empty(t, resp.Payload)

		_, err := send(t, e, seeder, thanks())
		require.NoError(t, err)
	}
	require.Equal(t, 0, e.Sessions().Len())

	// First page: 8 of 10 files.
	start, page := filesChunk(t, mustSend(t, e, clientA, filesList()))
	assert.Equal(t, uint32(0), start)
	assert.Equal(t, files[:8], page)

	// Second page: the remaining 2.
	start, page = filesChunk(t, mustSend(t, e, clientA, wire.EncodeAck(wire.MsgFilesAck, 8)))
	assert.Equal(t, uint32(8), start)
	assert.Equal(t, files[8:], page)

	resp := mustSend(t, e, clientA, wire.EncodeAck(wire.MsgFilesAck, 10))
	assert.Equal(t, wire.StateFilesFin, resp.State)
	assert.Empty(t, resp.Payload)

	pstart, peers := peersChunk(t, mustSend(t, e, clientA, wire.EncodePeersRequest(files[2].ID)))
	assert.Equal(t, uint32(0), pstart)
	assert.Equal(t, []wire.PeerRecord{peerOf(seederA), peerOf(seederB)}, peers)

	resp = mustSend(t, e, clientA, wire.EncodeAck(wire.MsgPeersAck, 2))
	assert.Equal(t, wire.StatePeersFin, resp.State)
	assert.Empty(t, resp.Payload)

	raw, err := e.Handle(t.Context(), clientA, thanks())
	require.NoError(t, err)
	assert.Nil(t, raw, "THANKS must not be answered")
	assert.Equal(t, 0, e.Sessions().Len())
}

func TestRegistrationScenario_UpsertByIP(t *testing.T) {
	e, dir := newTestEngine(t, DefaultConfig())
	seedFiles(t, dir, 1)

	first := wire.PeerRecord{IP: 0xC6336401, Port: 6000}
	resp := mustSend(t, e, seederA, wire.EncodeRegister(first))
	assert.Equal(t, wire.StateRegisterAck, resp.State)

	// A second REGISTER in REGISTER_ACK is not accepted.
	_, err := send(t, e, seederA, wire.EncodeRegister(first))
	require.ErrorIs(t, err, ErrIllegalTransition)

	// Same IP from a different client address replaces the port.
	moved := wire.PeerRecord{IP: first.IP, Port: 6100}
	resp = mustSend(t, e, seederB, wire.EncodeRegister(moved))
	assert.Equal(t, wire.StateRegisterAck, resp.State)

	peers, err := dir.ListPeers(t.Context(), 1)
	require.NoError(t, err)
	assert.Equal(t, []wire.PeerRecord{moved}, peers)

	for _, s := range []netip.AddrPort{seederA, seederB} {
		_, err := send(t, e, s, thanks())
		require.NoError(t, err)
	}
	assert.Equal(t, 0, e.Sessions().Len())
}

// ============================================================================
// Paging
// ============================================================================

func TestFilesExhaustion(t *testing.T) {
	const k = 8

	for _, total := range []int{0, 1, 7, 8, 9, 16, 17, 23} {
		t.Run(fmt.Sprintf("L=%d", total), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.PacketMaxSize = 1024
			cfg.MaxFilesPerMessage = k

			e, dir := newTestEngine(t, cfg)
			files := seedFiles(t, dir, total)

			var got []wire.FileRecord
			chunks := 0
			resp := mustSend(t, e, clientA, filesList())
			for resp.State == wire.StateFilesChunk {
				start, page := filesChunk(t, resp)
				require.Equal(t, uint32(len(got)), start)
				require.NotEmpty(t, page)
				require.LessOrEqual(t, len(page), k)

				got = append(got, page...)
				chunks++
				resp = mustSend(t, e, clientA, wire.EncodeAck(wire.MsgFilesAck, start+uint32(len(page))))
			}

			assert.Equal(t, wire.StateFilesFin, resp.State)
			assert.Empty(t, resp.Payload)
			assert.Equal(t, (total+k-1)/k, chunks)
			if total == 0 {
				assert.Empty(t, got)
			} else {
				assert.Equal(t, files, got)
			}
		})
	}
}

func TestPeersExhaustion(t *testing.T) {
	k := wire.MaxRecordsPerPacket(wire.DefaultPacketMaxSize, wire.PeerRecordSize)
	require.Equal(t, 19, k)

	for _, total := range []int{0, 1, 18, 19, 20, 38, 45} {
		t.Run(fmt.Sprintf("L=%d", total), func(t *testing.T) {
			e, dir := newTestEngine(t, DefaultConfig())
			seedFiles(t, dir, 1)
			peers := seedPeers(t, dir, total)
			e.Sessions().GetOrCreate(clientA, wire.StateFilesFin, epoch)

			var got []wire.PeerRecord
			chunks := 0
			resp := mustSend(t, e, clientA, wire.EncodePeersRequest(1))
			for resp.State == wire.StatePeersChunk {
				start, page := peersChunk(t, resp)
				require.Equal(t, uint32(len(got)), start)
				require.NotEmpty(t, page)
				require.LessOrEqual(t, len(page), k)

				got = append(got, page...)
				chunks++
				resp = mustSend(t, e, clientA, wire.EncodeAck(wire.MsgPeersAck, start+uint32(len(page))))
			}

			assert.Equal(t, wire.StatePeersFin, resp.State)
			assert.Empty(t, resp.Payload)
			assert.Equal(t, (total+k-1)/k, chunks)
			if total == 0 {
				assert.Empty(t, got)
			} else {
				assert.Equal(t, peers, got)
			}
		})
	}
}

func TestDefaultPacketCarriesOneFile(t *testing.T) {
	e, dir := newTestEngine(t, DefaultConfig())
	files := seedFiles(t, dir, 3)

	assert.Equal(t, 1, e.Config().MaxFilesPerMessage)
	assert.Equal(t, 19, e.Config().MaxPeersPerMessage)

	raw, err := e.Handle(t.Context(), clientA, filesList())
	require.NoError(t, err)
	assert.Len(t, raw, wire.ChunkResponseSize(1, wire.FileRecordSize))

	_, page := filesChunk(t, mustSend(t, e, clientA, filesList()))
	assert.Equal(t, files[:1], page)
}

func TestPeersForUnknownFile(t *testing.T) {
	e, dir := newTestEngine(t, DefaultConfig())
	seedFiles(t, dir, 2)
	seedPeers(t, dir, 5)
	e.Sessions().GetOrCreate(clientA, wire.StateFilesFin, epoch)

	resp := mustSend(t, e, clientA, wire.EncodePeersRequest(999))
	assert.Equal(t, wire.StatePeersFin, resp.State)
	assert.Empty(t, resp.Payload)

	sess, ok := e.Sessions().Get(clientA)
	require.True(t, ok)
	assert.Equal(t, uint32(999), sess.WantedFileID)
}

func TestPeersList_KeepsPeerCursor(t *testing.T) {
	e, dir := newTestEngine(t, DefaultConfig())
	seedFiles(t, dir, 2)
	peers := seedPeers(t, dir, 30)
	e.Sessions().GetOrCreate(clientA, wire.StateFilesFin, epoch)

	peersChunk(t, mustSend(t, e, clientA, wire.EncodePeersRequest(1)))
	peersChunk(t, mustSend(t, e, clientA, wire.EncodeAck(wire.MsgPeersAck, 19)))

	// Switching files in PEERS_CHUNK continues from the acknowledged position.
	start, page := peersChunk(t, mustSend(t, e, clientA, wire.EncodePeersRequest(2)))
	assert.Equal(t, uint32(19), start)
	assert.Equal(t, peers[19:], page)

	sess, _ := e.Sessions().Get(clientA)
	assert.Equal(t, uint32(2), sess.WantedFileID)
}

// ============================================================================
// Idempotence
// ============================================================================

func TestFilesAck_Idempotent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PacketMaxSize = 1024
	cfg.MaxFilesPerMessage = 4

	e, dir := newTestEngine(t, cfg)
	files := seedFiles(t, dir, 10)

	mustSend(t, e, clientA, filesList())

	first, err := e.Handle(t.Context(), clientA, wire.EncodeAck(wire.MsgFilesAck, 4))
	require.NoError(t, err)
	second, err := e.Handle(t.Context(), clientA, wire.EncodeAck(wire.MsgFilesAck, 4))
	require.NoError(t, err)
	assert.Equal(t, first, second, "repeated ack must produce an identical response")

	// A stale ack does not rewind the cursor.
	start, page := filesChunk(t, mustSend(t, e, clientA, wire.EncodeAck(wire.MsgFilesAck, 1)))
	assert.Equal(t, uint32(4), start)
	assert.Equal(t, files[4:8], page)

	sess, _ := e.Sessions().Get(clientA)
	assert.Equal(t, uint32(4), sess.FileCursor)
}

func TestFilesList_ResendsCurrentPage(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PacketMaxSize = 1024
	cfg.MaxFilesPerMessage = 3

	e, dir := newTestEngine(t, cfg)
	files := seedFiles(t, dir, 7)

	mustSend(t, e, clientA, filesList())
	mustSend(t, e, clientA, wire.EncodeAck(wire.MsgFilesAck, 3))

	start, page := filesChunk(t, mustSend(t, e, clientA, filesList()))
	assert.Equal(t, uint32(3), start)
	assert.Equal(t, files[3:6], page)
}

func TestAckPastEnd_Finishes(t *testing.T) {
	e, dir := newTestEngine(t, DefaultConfig())
	seedFiles(t, dir, 2)

	mustSend(t, e, clientA, filesList())
	resp := mustSend(t, e, clientA, wire.EncodeAck(wire.MsgFilesAck, 1000))
	assert.Equal(t, wire.StateFilesFin, resp.State)

	// Acknowledging again in FILES_FIN stays there.
	resp = mustSend(t, e, clientA, wire.EncodeAck(wire.MsgFilesAck, 2))
	assert.Equal(t, wire.StateFilesFin, resp.State)
}

// ============================================================================
// Session lifecycle
// ============================================================================

func TestIdleExpiry(t *testing.T) {
	clock := newFakeClock()
	e, dir := newTestEngine(t, DefaultConfig(), WithClock(clock.Now))
	seedFiles(t, dir, 3)

	mustSend(t, e, clientA, filesList())

	clock.Advance(50 * time.Second)
	mustSend(t, e, clientA, wire.EncodeAck(wire.MsgFilesAck, 1))

	sess, ok := e.Sessions().Get(clientA)
	require.True(t, ok)
	assert.Equal(t, epoch.Add(50*time.Second), sess.LastActive)

	clock.Advance(50 * time.Second)
	assert.Equal(t, 0, e.Sweep(t.Context()), "activity must refresh the idle window")

	clock.Advance(11 * time.Second)
	assert.Equal(t, 1, e.Sweep(t.Context()))

	_, err := send(t, e, clientA, wire.EncodeAck(wire.MsgFilesAck, 2))
	var illegal *IllegalTransitionError
	require.ErrorAs(t, err, &illegal)
	assert.Equal(t, wire.StateNone, illegal.State)
}

func TestRejectedRequestDoesNotTouchSession(t *testing.T) {
	clock := newFakeClock()
	e, dir := newTestEngine(t, DefaultConfig(), WithClock(clock.Now))
	seedFiles(t, dir, 3)

	mustSend(t, e, clientA, filesList())
	clock.Advance(30 * time.Second)

	_, err := send(t, e, clientA, thanks())
	require.ErrorIs(t, err, ErrIllegalTransition)

	sess, _ := e.Sessions().Get(clientA)
	assert.Equal(t, epoch, sess.LastActive)
	assert.Equal(t, wire.StateFilesChunk, sess.State)
}

func TestSessionsAreIndependent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PacketMaxSize = 1024
	cfg.MaxFilesPerMessage = 2

	e, dir := newTestEngine(t, cfg)
	seedFiles(t, dir, 5)

	mustSend(t, e, clientA, filesList())
	mustSend(t, e, clientA, wire.EncodeAck(wire.MsgFilesAck, 2))

	start, _ := filesChunk(t, mustSend(t, e, clientB, filesList()))
	assert.Equal(t, uint32(0), start)

	// Same IP, different port: a separate session.
	otherPort := netip.AddrPortFrom(clientA.Addr(), clientA.Port()+1)
	_, err := send(t, e, otherPort, wire.EncodeAck(wire.MsgFilesAck, 2))
	require.ErrorIs(t, err, ErrIllegalTransition)
}

func TestHandlerFailure_DiscardsCreatedSession(t *testing.T) {
	e, err := NewEngine(DefaultConfig(), failingDirectory{})
	require.NoError(t, err)

	_, err = e.Handle(t.Context(), clientA, filesList())
	require.ErrorIs(t, err, errBackendDown)
	assert.Equal(t, 0, e.Sessions().Len())

	_, err = e.Handle(t.Context(), seederA, wire.EncodeRegister(peerOf(seederA)))
	require.ErrorIs(t, err, errBackendDown)
	assert.Equal(t, 0, e.Sessions().Len())
}

func TestHandlerFailure_KeepsExistingSession(t *testing.T) {
	e, err := NewEngine(DefaultConfig(), failingDirectory{})
	require.NoError(t, err)

	sess, _ := e.Sessions().GetOrCreate(clientA, wire.StateFilesChunk, epoch)
	before := *sess

	_, err = e.Handle(t.Context(), clientA, wire.EncodeAck(wire.MsgFilesAck, 1))
	require.ErrorIs(t, err, errBackendDown)

	after, ok := e.Sessions().Get(clientA)
	require.True(t, ok)
	assert.Equal(t, before, *after)
}

// ============================================================================
// Malformed input
// ============================================================================

func TestMalformedDatagrams(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())

	for _, datagram := range [][]byte{nil, {}, {0}, {byte(wire.MsgFilesChunk)}, {byte(wire.MsgRegisterAck)}, {42, 1, 2}} {
		_, err := e.Handle(t.Context(), clientA, datagram)
		require.ErrorIs(t, err, wire.ErrMalformedMessage, "datagram %v", datagram)
	}
	assert.Equal(t, 0, e.Sessions().Len())
}

func TestPayloadTooShort(t *testing.T) {
	e, dir := newTestEngine(t, DefaultConfig())
	seedFiles(t, dir, 3)
	mustSend(t, e, clientA, filesList())
	sess, _ := e.Sessions().Get(clientA)
	before := *sess

	for n := range wire.CursorSize {
		datagram := append([]byte{byte(wire.MsgFilesAck)}, make([]byte, n)...)
		_, err := e.Handle(t.Context(), clientA, datagram)
		require.ErrorIs(t, err, wire.ErrPayloadTooShort, "payload of %d bytes", n)
	}

	after, _ := e.Sessions().Get(clientA)
	assert.Equal(t, before, *after)
}

func TestPayloadTooShort_DoesNotCreateSession(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())

	_, err := e.Handle(t.Context(), seederA, []byte{byte(wire.MsgRegister), 10, 0, 0, 1, 0x1A})
	require.ErrorIs(t, err, wire.ErrPayloadTooShort)
	assert.Equal(t, 0, e.Sessions().Len())
}

// ============================================================================
// Configuration
// ============================================================================

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantFiles int
		wantPeers int
		wantErr   string
	}{
		{name: "defaults", cfg: Config{}, wantFiles: 1, wantPeers: 19},
		{name: "large packet", cfg: Config{PacketMaxSize: 1024}, wantFiles: 10, wantPeers: 169},
		{name: "explicit limits", cfg: Config{PacketMaxSize: 1024, MaxFilesPerMessage: 8, MaxPeersPerMessage: 50}, wantFiles: 8, wantPeers: 50},
		{name: "files overflow", cfg: Config{MaxFilesPerMessage: 2}, wantErr: "overflows"},
		{name: "peers overflow", cfg: Config{MaxPeersPerMessage: 20}, wantErr: "overflows"},
		{name: "negative", cfg: Config{MaxPeersPerMessage: -1}, wantErr: "negative"},
		{name: "packet too small", cfg: Config{PacketMaxSize: 100}, wantErr: "cannot carry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.Normalize()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFiles, got.MaxFilesPerMessage)
			assert.Equal(t, tt.wantPeers, got.MaxPeersPerMessage)
			assert.Equal(t, 60*time.Second, got.IdleTimeout)
			assert.Equal(t, time.Second, got.PollInterval)
		})
	}
}

func TestNewEngine_RequiresDirectory(t *testing.T) {
	_, err := NewEngine(DefaultConfig(), nil)
	require.Error(t, err)
}

// ============================================================================
// Metrics
// ============================================================================

func TestEngineMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	e, dir := newTestEngine(t, DefaultConfig(), WithMetrics(reg))
	seedFiles(t, dir, 2)

	mustSend(t, e, clientA, filesList())
	_, _ = e.Handle(t.Context(), clientB, wire.EncodeAck(wire.MsgFilesAck, 1))
	_, _ = e.Handle(t.Context(), clientB, nil)
	_, _ = e.Handle(t.Context(), clientA, []byte{byte(wire.MsgFilesAck), 0})

	m := e.metrics
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("FILES_LIST", outcomeOK)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("FILES_ACK", outcomeDropped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DroppedTotal.WithLabelValues(DropIllegalTransition)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DroppedTotal.WithLabelValues(DropMalformed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DroppedTotal.WithLabelValues(DropPayloadTooShort)))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "peertrack_sessions_created_total")
	assert.Contains(t, names, "peertrack_tracker_dropped_total")
}

func TestDropReason(t *testing.T) {
	assert.Equal(t, DropMalformed, dropReason(&wire.MalformedMessageError{}))
	assert.Equal(t, DropPayloadTooShort, dropReason(&wire.PayloadTooShortError{}))
	assert.Equal(t, DropIllegalTransition, dropReason(&IllegalTransitionError{}))
	assert.Equal(t, DropHandlerError, dropReason(errBackendDown))
}

func TestSessionRemovalReasons(t *testing.T) {
	reg := prometheus.NewRegistry()
	e, err := NewEngine(DefaultConfig(), failingDirectory{}, WithMetrics(reg))
	require.NoError(t, err)

	_, _ = e.Handle(t.Context(), clientA, filesList())

	sm := session.NewMetrics(reg)
	assert.Equal(t, 1.0, testutil.ToFloat64(sm.RemovedTotal.WithLabelValues(session.ReasonAborted)))
}
