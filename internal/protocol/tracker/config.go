package tracker

import (
	"fmt"
	"time"

	"github.com/marmos91/peertrack/internal/protocol/tracker/wire"
)

// Config holds the protocol engine limits and timers.
type Config struct {
	// PacketMaxSize caps every datagram, requests and responses alike.
	PacketMaxSize int

	// MaxFilesPerMessage caps file records per FILES_CHUNK.
	// Zero derives the largest count that fits in PacketMaxSize.
	MaxFilesPerMessage int

	// MaxPeersPerMessage caps peer records per PEERS_CHUNK.
	// Zero derives the largest count that fits in PacketMaxSize.
	MaxPeersPerMessage int

	// IdleTimeout is how long a session may stay silent before the sweep drops it.
	IdleTimeout time.Duration

	// SweepInterval is the minimum time between two sweeps.
	SweepInterval time.Duration

	// PollInterval bounds how long a socket read blocks, which in turn bounds
	// how late a sweep or a shutdown can be noticed.
	PollInterval time.Duration
}

// DefaultConfig returns the engine defaults: 128-byte packets, derived chunk
// sizes, a 60s idle timeout swept every 5s, and a 1s poll.
func DefaultConfig() Config {
	return Config{
		PacketMaxSize: wire.DefaultPacketMaxSize,
		IdleTimeout:   60 * time.Second,
		SweepInterval: 5 * time.Second,
		PollInterval:  time.Second,
	}
}

// Normalize fills derived and zero values and rejects limits that cannot fit
// in a packet.
func (c Config) Normalize() (Config, error) {
	def := DefaultConfig()
	if c.PacketMaxSize == 0 {
		c.PacketMaxSize = def.PacketMaxSize
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = def.IdleTimeout
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = def.SweepInterval
	}
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}

	var err error
	if c.MaxFilesPerMessage, err = chunkLimit("files", c.MaxFilesPerMessage, c.PacketMaxSize, wire.FileRecordSize); err != nil {
		return c, err
	}
	if c.MaxPeersPerMessage, err = chunkLimit("peers", c.MaxPeersPerMessage, c.PacketMaxSize, wire.PeerRecordSize); err != nil {
		return c, err
	}
	return c, nil
}

func chunkLimit(kind string, configured, packetMax, recordSize int) (int, error) {
	fit := wire.MaxRecordsPerPacket(packetMax, recordSize)
	if fit == 0 {
		return 0, fmt.Errorf("packet max size %d cannot carry a single %s record (%d bytes)", packetMax, kind, recordSize)
	}
	switch {
	case configured < 0:
		return 0, fmt.Errorf("max %s per message must not be negative: %d", kind, configured)
	case configured == 0:
		return fit, nil
	case configured > fit:
		return 0, fmt.Errorf("max %s per message %d overflows packet max size %d (at most %d fit)",
			kind, configured, packetMax, fit)
	}
	return configured, nil
}
