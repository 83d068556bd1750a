package wire

import "encoding/binary"

// ============================================================================
// Records
// ============================================================================

// AppendFileRecord appends the fixed-width encoding of r to dst.
//
// Wire format: [id:uint32][name:32 bytes][description:64 bytes]
//
// Text longer than its field is truncated, shorter text is zero-padded. Content
// is opaque bytes; only the width is enforced.
func AppendFileRecord(dst []byte, r FileRecord) []byte {
	var buf [FileRecordSize]byte
	binary.BigEndian.PutUint32(buf[0:4], r.ID)
	copy(buf[4:4+MaxFileNameLength], r.Name)
	copy(buf[4+MaxFileNameLength:], r.Description)
	return append(dst, buf[:]...)
}

// EncodeFileRecord encodes r to FileRecordSize bytes.
func EncodeFileRecord(r FileRecord) []byte {
	return AppendFileRecord(make([]byte, 0, FileRecordSize), r)
}

// AppendPeerRecord appends the fixed-width encoding of p to dst.
//
// Wire format: [ip:uint32][port:uint16]
func AppendPeerRecord(dst []byte, p PeerRecord) []byte {
	var buf [PeerRecordSize]byte
	binary.BigEndian.PutUint32(buf[0:4], p.IP)
	binary.BigEndian.PutUint16(buf[4:6], p.Port)
	return append(dst, buf[:]...)
}

// EncodePeerRecord encodes p to PeerRecordSize bytes.
func EncodePeerRecord(p PeerRecord) []byte {
	return AppendPeerRecord(make([]byte, 0, PeerRecordSize), p)
}

// AppendChunkHeader appends [count:uint32][start:uint32] to dst.
func AppendChunkHeader(dst []byte, count, start uint32) []byte {
	var buf [ChunkHeaderSize]byte
	binary.BigEndian.PutUint32(buf[0:4], count)
	binary.BigEndian.PutUint32(buf[4:8], start)
	return append(dst, buf[:]...)
}

// EncodeChunkHeader encodes the header that precedes a page of records.
func EncodeChunkHeader(count, start uint32) []byte {
	return AppendChunkHeader(make([]byte, 0, ChunkHeaderSize), count, start)
}

// ============================================================================
// Datagrams
// ============================================================================

// EncodeResponse prefixes payload with the tag of the session's new state.
func EncodeResponse(state State, payload []byte) []byte {
	buf := make([]byte, TagSize+len(payload))
	buf[0] = state.Tag()
	copy(buf[TagSize:], payload)
	return buf
}

// EncodeRequest prefixes payload with the request tag t.
func EncodeRequest(t MessageType, payload []byte) []byte {
	buf := make([]byte, TagSize+len(payload))
	buf[0] = byte(t)
	copy(buf[TagSize:], payload)
	return buf
}

// EncodeAck builds a FILES_ACK or PEERS_ACK datagram.
func EncodeAck(t MessageType, cursor uint32) []byte {
	var payload [CursorSize]byte
	binary.BigEndian.PutUint32(payload[:], cursor)
	return EncodeRequest(t, payload[:])
}

// EncodePeersRequest builds a PEERS_LIST datagram.
func EncodePeersRequest(fileID uint32) []byte {
	var payload [CursorSize]byte
	binary.BigEndian.PutUint32(payload[:], fileID)
	return EncodeRequest(MsgPeersList, payload[:])
}

// EncodeRegister builds a REGISTER datagram.
func EncodeRegister(p PeerRecord) []byte {
	return EncodeRequest(MsgRegister, EncodePeerRecord(p))
}
