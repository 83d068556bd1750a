package client

import (
	"context"
	"fmt"
	"slices"

	"github.com/marmos91/peertrack/internal/logger"
	"github.com/marmos91/peertrack/internal/protocol/tracker/wire"
)

// Discovery is the result of one discovery session.
type Discovery struct {
	Files []wire.FileRecord

	// FileID is the file whose peers were requested. Valid when Selected.
	FileID   uint32
	Selected bool
	Peers    []wire.PeerRecord
}

// PickFunc chooses the file to fetch peers for. Returning false ends the
// session after the file listing.
type PickFunc func(files []wire.FileRecord) (fileID uint32, ok bool)

// Discover lists the catalog, optionally lists the peers of the file pick
// selects, and ends the session with THANKS.
func (c *Client) Discover(ctx context.Context, pick PickFunc) (*Discovery, error) {
	files, err := walk(ctx, c, pageSpec[wire.FileRecord]{
		op:      "files",
		first:   wire.EncodeRequest(wire.MsgFilesList, nil),
		ack:     wire.MsgFilesAck,
		chunk:   wire.StateFilesChunk,
		fin:     wire.StateFilesFin,
		decode:  wire.DecodeFileChunk,
		restart: wire.EncodeAck(wire.MsgFilesAck, 0),
	})
	if err != nil {
		return nil, err
	}

	result := &Discovery{Files: files}

	if pick != nil {
		if fileID, ok := pick(files); ok {
			peers, err := walk(ctx, c, pageSpec[wire.PeerRecord]{
				op:      fmt.Sprintf("peers of file %d", fileID),
				first:   wire.EncodePeersRequest(fileID),
				ack:     wire.MsgPeersAck,
				chunk:   wire.StatePeersChunk,
				fin:     wire.StatePeersFin,
				decode:  wire.DecodePeerChunk,
				restart: wire.EncodeAck(wire.MsgPeersAck, 0),
			})
			if err != nil {
				return nil, err
			}
			result.FileID = fileID
			result.Selected = true
			result.Peers = peers
		}
	}

	logger.Debug("Discovery complete",
		logger.KeyFiles, len(result.Files),
		logger.KeyPeers, len(result.Peers))

	return result, c.thanks()
}

// ListFiles returns the whole catalog.
func (c *Client) ListFiles(ctx context.Context) ([]wire.FileRecord, error) {
	d, err := c.Discover(ctx, nil)
	if err != nil {
		return nil, err
	}
	return d.Files, nil
}

// ListPeers returns the seeders of fileID. The catalog is walked first
// because the tracker only serves peers after the file listing.
func (c *Client) ListPeers(ctx context.Context, fileID uint32) ([]wire.PeerRecord, error) {
	d, err := c.Discover(ctx, func([]wire.FileRecord) (uint32, bool) { return fileID, true })
	if err != nil {
		return nil, err
	}
	return d.Peers, nil
}

// ContainsFile is a PickFunc that selects fileID only if the catalog has it.
func ContainsFile(fileID uint32) PickFunc {
	return func(files []wire.FileRecord) (uint32, bool) {
		ok := slices.ContainsFunc(files, func(f wire.FileRecord) bool { return f.ID == fileID })
		return fileID, ok
	}
}

type pageSpec[T any] struct {
	op     string
	first  []byte
	ack    wire.MessageType
	chunk  wire.State
	fin    wire.State
	decode func([]byte) (uint32, []T, error)

	// restart asks for the first page again from the fin state, where first
	// may be illegal once the tracker has accepted it.
	restart []byte
}

// walk requests pages until the fin state, acknowledging each chunk.
func walk[T any](ctx context.Context, c *Client, spec pageSpec[T]) ([]T, error) {
	var (
		records []T
		cursor  uint32
	)

	req := request{
		op:     spec.op,
		first:  spec.first,
		resend: [][]byte{spec.first, spec.restart},
	}

	for {
		req.accept = acceptPage(spec.chunk, spec.fin, cursor)

		resp, err := c.exchange(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.State == spec.fin {
			return records, nil
		}

		_, page, err := spec.decode(resp.Payload)
		if err != nil {
			return nil, &ProtocolError{State: resp.State, Reason: err.Error()}
		}
		if len(page) == 0 {
			return nil, &ProtocolError{State: resp.State, Reason: "chunk carries no records"}
		}

		records = append(records, page...)
		cursor += uint32(len(page))

		ack := wire.EncodeAck(spec.ack, cursor)
		req = request{op: spec.op, first: ack, resend: [][]byte{ack}}
	}
}

// acceptPage matches the fin state or a chunk starting at cursor. Chunks
// for other cursors are duplicates caused by retries.
func acceptPage(chunk, fin wire.State, cursor uint32) func(wire.Response) bool {
	return func(resp wire.Response) bool {
		switch resp.State {
		case fin:
			return true
		case chunk:
			_, start, _, err := wire.DecodeChunkHeader(resp.Payload)
			return err == nil && start == cursor
		default:
			return false
		}
	}
}
