package tracker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"sync"
	"time"

	"github.com/marmos91/peertrack/internal/logger"
)

// ServerConfig holds the UDP listener address.
type ServerConfig struct {
	// Address is the IP to bind. Empty binds every interface.
	Address string

	// Port is the UDP port. Zero picks an ephemeral port.
	Port int
}

// Server reads request datagrams, runs them through an Engine and writes the
// responses back to the sender.
//
// A single goroutine owns the socket: it reads, handles, replies and, between
// datagrams, sweeps idle sessions. Reads time out every PollInterval so sweeps
// and shutdown are noticed without traffic.
type Server struct {
	config       ServerConfig
	engine       *Engine
	conn         *net.UDPConn
	mu           sync.Mutex
	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}
}

// NewServer creates a tracker server for engine.
func NewServer(cfg ServerConfig, engine *Engine) *Server {
	return &Server{
		config:   cfg,
		engine:   engine,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Listen binds the UDP socket. Serve calls it when it has not been called yet.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return nil
	}

	addr := net.JoinHostPort(s.config.Address, strconv.Itoa(s.config.Port))
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return fmt.Errorf("resolve UDP %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("listen UDP %s: %w", addr, err)
	}
	s.conn = conn

	logger.Info("Tracker listening",
		logger.KeyAddress, conn.LocalAddr().String(),
		"packet_max_size", s.engine.cfg.PacketMaxSize,
		"max_files_per_message", s.engine.cfg.MaxFilesPerMessage,
		"max_peers_per_message", s.engine.cfg.MaxPeersPerMessage)
	return nil
}

// Addr returns the bound UDP address, or nil before Listen.
func (s *Server) Addr() *net.UDPAddr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr().(*net.UDPAddr)
}

// Serve runs the receive loop until ctx is cancelled or Stop is called.
// A bind failure is returned immediately; once bound, Serve returns nil on
// shutdown.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	defer close(s.done)

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.shutdown:
		}
	}()

	s.serveUDP(ctx)
	logger.Info("Tracker stopped", "sessions", s.engine.sessions.Len())
	return nil
}

func (s *Server) serveUDP(ctx context.Context) {
	cfg := s.engine.cfg

	// One spare byte tells an oversize datagram apart from one that fits exactly.
	buf := make([]byte, cfg.PacketMaxSize+1)
	lastSweep := time.Now()

	for {
		select {
		case <-s.shutdown:
			return
		default:
		}

		if time.Since(lastSweep) >= cfg.SweepInterval {
			s.engine.Sweep(ctx)
			lastSweep = time.Now()
		}

		if err := s.conn.SetReadDeadline(time.Now().Add(cfg.PollInterval)); err != nil {
			if s.stopping() {
				return
			}
			logger.Debug("Tracker: set UDP deadline error", logger.KeyError, err)
			continue
		}

		n, clientAddr, err := s.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if s.stopping() {
				return
			}
			logger.Debug("Tracker: UDP read error", logger.KeyError, err)
			continue
		}

		// Clients on a dual-stack socket show up as ::ffff:a.b.c.d.
		clientAddr = netip.AddrPortFrom(clientAddr.Addr().Unmap(), clientAddr.Port())

		if n > cfg.PacketMaxSize {
			s.engine.metrics.recordDrop(DropOversize)
			logger.Debug("Tracker: datagram exceeds packet max size",
				logger.KeyClient, clientAddr.String(),
				logger.KeyBytes, n)
			continue
		}

		resp, err := s.engine.Handle(ctx, clientAddr, buf[:n])
		if err != nil || resp == nil {
			continue
		}

		if _, err := s.conn.WriteToUDPAddrPort(resp, clientAddr); err != nil {
			logger.Debug("Tracker: write UDP reply error",
				logger.KeyClient, clientAddr.String(),
				logger.KeyError, err)
		}
	}
}

func (s *Server) stopping() bool {
	select {
	case <-s.shutdown:
		return true
	default:
		return false
	}
}

// Stop shuts the server down and closes the socket. It is safe to call more
// than once and before Serve.
func (s *Server) Stop() {
	s.shutdownOnce.Do(func() {
		close(s.shutdown)

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.conn != nil {
			_ = s.conn.Close()
		}
	})
}

// Done is closed when Serve has returned.
func (s *Server) Done() <-chan struct{} {
	return s.done
}
