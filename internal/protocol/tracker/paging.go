package tracker

import "github.com/marmos91/peertrack/internal/protocol/tracker/wire"

// buildPage renders the chunk that starts at cursor.
//
// A cursor at or past the end yields the fin state with an empty payload.
// Otherwise up to limit records are emitted behind a [count][start] header
// and the chunk state is returned.
func buildPage[T any](
	records []T,
	cursor uint32,
	limit int,
	recordSize int,
	chunk, fin wire.State,
	appendRecord func([]byte, T) []byte,
) (wire.State, []byte) {
	if uint64(cursor) >= uint64(len(records)) {
		return fin, nil
	}

	page := records[cursor:min(int(cursor)+limit, len(records))]

	buf := make([]byte, 0, wire.ChunkHeaderSize+len(page)*recordSize)
	buf = wire.AppendChunkHeader(buf, uint32(len(page)), cursor)
	for _, r := range page {
		buf = appendRecord(buf, r)
	}
	return chunk, buf
}

func filesPage(files []wire.FileRecord, cursor uint32, limit int) (wire.State, []byte) {
	return buildPage(files, cursor, limit, wire.FileRecordSize,
		wire.StateFilesChunk, wire.StateFilesFin, wire.AppendFileRecord)
}

func peersPage(peers []wire.PeerRecord, cursor uint32, limit int) (wire.State, []byte) {
	return buildPage(peers, cursor, limit, wire.PeerRecordSize,
		wire.StatePeersChunk, wire.StatePeersFin, wire.AppendPeerRecord)
}
