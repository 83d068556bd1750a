// Package client walks the tracker's UDP protocol from the peer side.
//
// A Client owns one connected UDP socket, so every call runs in the same
// tracker session keyed by that socket's local address. Calls on one Client
// must not overlap.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/marmos91/peertrack/internal/logger"
	"github.com/marmos91/peertrack/internal/protocol/tracker/wire"
)

const (
	// DefaultTimeout is how long a single attempt waits for a response.
	DefaultTimeout = 2 * time.Second

	// DefaultRetries is how many times a request is resent after a timeout.
	DefaultRetries = 3
)

// Client talks to one tracker.
type Client struct {
	conn      *net.UDPConn
	timeout   time.Duration
	retries   int
	packetMax int
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-attempt response timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetries sets how many times a request is resent after a timeout.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithPacketMaxSize sets the largest datagram the client accepts. It must be
// at least the tracker's packet_max_size.
func WithPacketMaxSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.packetMax = n
		}
	}
}

// Dial resolves address and opens a UDP socket connected to it.
func Dial(address string, opts ...Option) (*Client, error) {
	raddr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, fmt.Errorf("resolve tracker address %q: %w", address, err)
	}

	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("dial tracker %s: %w", raddr, err)
	}

	c := &Client{
		conn:      conn,
		timeout:   DefaultTimeout,
		retries:   DefaultRetries,
		packetMax: 65507,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close closes the socket. A session still open on the tracker expires on
// its idle timeout.
func (c *Client) Close() error {
	return c.conn.Close()
}

// LocalAddr is the address the tracker keys this client's session by.
func (c *Client) LocalAddr() netip.AddrPort {
	return c.conn.LocalAddr().(*net.UDPAddr).AddrPort()
}

// RemoteAddr is the tracker address.
func (c *Client) RemoteAddr() netip.AddrPort {
	return c.conn.RemoteAddr().(*net.UDPAddr).AddrPort()
}

// request is one datagram awaiting one response.
type request struct {
	op    string
	first []byte

	// resend replaces first on every retry. It may hold several datagrams
	// when the first one is illegal in the state a lost response left the
	// session in.
	resend [][]byte

	accept func(wire.Response) bool
}

// exchange sends req and waits for an accepted response, retrying on timeout.
func (c *Client) exchange(ctx context.Context, req request) (wire.Response, error) {
	buf := make([]byte, c.packetMax+1)

	for attempt := 0; attempt <= c.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return wire.Response{}, err
		}

		out := [][]byte{req.first}
		if attempt > 0 {
			logger.Debug("Retrying tracker request", "op", req.op, "attempt", attempt)
			if len(req.resend) > 0 {
				out = req.resend
			}
		}

		for _, datagram := range out {
			if _, err := c.conn.Write(datagram); err != nil {
				return wire.Response{}, fmt.Errorf("%s: send: %w", req.op, err)
			}
		}

		resp, err := c.await(ctx, buf, req.accept)
		if err == nil {
			return resp, nil
		}
		if !errors.Is(err, errAttemptTimeout) {
			return wire.Response{}, fmt.Errorf("%s: %w", req.op, err)
		}
	}

	return wire.Response{}, &TimeoutError{Op: req.op, Attempts: c.retries + 1}
}

var errAttemptTimeout = errors.New("attempt timed out")

// await reads until accept matches a response or the attempt times out.
// Malformed, oversize and stale datagrams are skipped.
func (c *Client) await(ctx context.Context, buf []byte, accept func(wire.Response) bool) (wire.Response, error) {
	deadline := time.Now().Add(c.timeout)
	ctxBound := false
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
		ctxBound = true
	}
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return wire.Response{}, err
	}

	for {
		n, err := c.conn.Read(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return wire.Response{}, ctxErr
				}
				if ctxBound {
					return wire.Response{}, context.DeadlineExceeded
				}
				return wire.Response{}, errAttemptTimeout
			}
			return wire.Response{}, err
		}
		if n > c.packetMax {
			continue
		}

		resp, err := wire.DecodeResponse(buf[:n])
		if err != nil || !accept(resp) {
			logger.Debug("Ignoring tracker datagram", logger.KeyBytes, n)
			continue
		}
		resp.Payload = bytes.Clone(resp.Payload)
		return resp, nil
	}
}

// thanks ends the session. The tracker does not answer it.
func (c *Client) thanks() error {
	if _, err := c.conn.Write(wire.EncodeRequest(wire.MsgThanks, nil)); err != nil {
		return fmt.Errorf("thanks: send: %w", err)
	}
	return nil
}
