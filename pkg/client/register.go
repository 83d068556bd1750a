package client

import (
	"context"
	"fmt"

	"github.com/marmos91/peertrack/internal/logger"
	"github.com/marmos91/peertrack/internal/protocol/tracker/wire"
)

// Register announces peer as a seeder and ends the session.
//
// Registration is an upsert keyed by IP, so a retry after a lost
// REGISTER_ACK closes the stale session with THANKS and registers again.
func (c *Client) Register(ctx context.Context, peer wire.PeerRecord) error {
	reg := wire.EncodeRegister(peer)

	_, err := c.exchange(ctx, request{
		op:     fmt.Sprintf("register %s", peer),
		first:  reg,
		resend: [][]byte{wire.EncodeRequest(wire.MsgThanks, nil), reg},
		accept: func(resp wire.Response) bool { return resp.State == wire.StateRegisterAck },
	})
	if err != nil {
		return err
	}

	logger.Debug("Registered with tracker", logger.KeyPeer, peer.String())
	return c.thanks()
}
