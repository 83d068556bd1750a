package tracker

import (
	"context"
	"fmt"

	"github.com/marmos91/peertrack/internal/logger"
	"github.com/marmos91/peertrack/internal/protocol/tracker/session"
	"github.com/marmos91/peertrack/internal/protocol/tracker/wire"
	"github.com/marmos91/peertrack/internal/telemetry"
)

// handleFilesList serves the files page at the session's cursor. Repeating
// FILES_LIST before acknowledging resends the same page.
func handleFilesList(ctx context.Context, e *Engine, sess *session.Session, _ any) (transition, error) {
	files, err := e.dir.ListFiles(ctx)
	if err != nil {
		return transition{}, fmt.Errorf("list files: %w", err)
	}

	next, payload := filesPage(files, sess.FileCursor, e.cfg.MaxFilesPerMessage)
	return transition{next: next, payload: payload}, nil
}

// handleFilesAck moves the file cursor forward and serves the next page.
func handleFilesAck(ctx context.Context, e *Engine, sess *session.Session, args any) (transition, error) {
	cursor := max(sess.FileCursor, args.(uint32))
	telemetry.SetAttributes(ctx, telemetry.Cursor(args.(uint32)))

	files, err := e.dir.ListFiles(ctx)
	if err != nil {
		return transition{}, fmt.Errorf("list files: %w", err)
	}

	next, payload := filesPage(files, cursor, e.cfg.MaxFilesPerMessage)
	return transition{
		next:    next,
		payload: payload,
		apply:   func(s *session.Session) { s.AdvanceFileCursor(cursor) },
	}, nil
}

// handlePeersList selects the file whose seeders the client wants and serves
// the peers page at the session's peer cursor.
func handlePeersList(ctx context.Context, e *Engine, sess *session.Session, args any) (transition, error) {
	fileID := args.(uint32)
	telemetry.SetAttributes(ctx, telemetry.FileID(fileID))

	peers, err := e.dir.ListPeers(ctx, fileID)
	if err != nil {
		return transition{}, fmt.Errorf("list peers of file %d: %w", fileID, err)
	}

	next, payload := peersPage(peers, sess.PeerCursor, e.cfg.MaxPeersPerMessage)
	return transition{
		next:    next,
		payload: payload,
		apply:   func(s *session.Session) { s.WantedFileID = fileID },
	}, nil
}

// handlePeersAck moves the peer cursor forward and serves the next page of the
// file selected by PEERS_LIST.
func handlePeersAck(ctx context.Context, e *Engine, sess *session.Session, args any) (transition, error) {
	cursor := max(sess.PeerCursor, args.(uint32))
	telemetry.SetAttributes(ctx, telemetry.Cursor(args.(uint32)))

	peers, err := e.dir.ListPeers(ctx, sess.WantedFileID)
	if err != nil {
		return transition{}, fmt.Errorf("list peers of file %d: %w", sess.WantedFileID, err)
	}

	next, payload := peersPage(peers, cursor, e.cfg.MaxPeersPerMessage)
	return transition{
		next:    next,
		payload: payload,
		apply:   func(s *session.Session) { s.AdvancePeerCursor(cursor) },
	}, nil
}

func handleThanks(context.Context, *Engine, *session.Session, any) (transition, error) {
	return transition{end: true}, nil
}

// handleRegister upserts the announced peer. REGISTER_ACK carries no payload.
func handleRegister(ctx context.Context, e *Engine, _ *session.Session, args any) (transition, error) {
	peer := args.(wire.PeerRecord)

	created, err := e.dir.RegisterPeer(ctx, peer)
	if err != nil {
		return transition{}, fmt.Errorf("register peer %s: %w", peer, err)
	}

	logger.InfoCtx(ctx, "Peer registered",
		logger.KeyPeer, peer.String(),
		"created", created)

	return transition{next: wire.StateRegisterAck}, nil
}
