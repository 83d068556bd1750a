package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// ============================================================================
// Server side: requests
// ============================================================================

// DecodeRequest splits a datagram into its message type and payload.
//
// The payload aliases data; callers that keep it past the next read must copy.
func DecodeRequest(data []byte) (Request, error) {
	if len(data) == 0 {
		return Request{}, &MalformedMessageError{Reason: "empty datagram"}
	}

	t := MessageType(data[0])
	if !t.IsRequest() {
		return Request{}, &MalformedMessageError{
			Length: len(data),
			Tag:    data[0],
			Reason: fmt.Sprintf("%s is not a request type", t),
		}
	}

	return Request{Type: t, Payload: data[TagSize:]}, nil
}

// DecodeAck reads the cursor of a FILES_ACK or PEERS_ACK payload.
//
// Wire format: [cursor:uint32]. Trailing bytes are ignored.
func DecodeAck(t MessageType, payload []byte) (uint32, error) {
	if len(payload) < CursorSize {
		return 0, &PayloadTooShortError{Type: t, Length: len(payload), Need: CursorSize}
	}
	return binary.BigEndian.Uint32(payload[:CursorSize]), nil
}

// DecodePeersRequest reads the wanted file id of a PEERS_LIST payload.
//
// Wire format: [file_id:uint32]. Trailing bytes are ignored.
func DecodePeersRequest(payload []byte) (uint32, error) {
	if len(payload) < CursorSize {
		return 0, &PayloadTooShortError{Type: MsgPeersList, Length: len(payload), Need: CursorSize}
	}
	return binary.BigEndian.Uint32(payload[:CursorSize]), nil
}

// DecodeRegister reads the advertised endpoint of a REGISTER payload.
//
// Wire format: [ip:uint32][port:uint16]. Trailing bytes are ignored.
func DecodeRegister(payload []byte) (PeerRecord, error) {
	if len(payload) < RegisterSize {
		return PeerRecord{}, &PayloadTooShortError{Type: MsgRegister, Length: len(payload), Need: RegisterSize}
	}
	return PeerRecord{
		IP:   binary.BigEndian.Uint32(payload[0:4]),
		Port: binary.BigEndian.Uint16(payload[4:6]),
	}, nil
}

// ============================================================================
// Client side: responses
// ============================================================================

// DecodeResponse splits a server datagram into the new state and its payload.
func DecodeResponse(data []byte) (Response, error) {
	if len(data) == 0 {
		return Response{}, &MalformedMessageError{Reason: "empty datagram"}
	}
	return Response{State: State(data[0]), Payload: data[TagSize:]}, nil
}

// DecodeChunkHeader reads [count:uint32][start:uint32] and returns the record
// bytes that follow.
func DecodeChunkHeader(payload []byte) (count, start uint32, records []byte, err error) {
	if len(payload) < ChunkHeaderSize {
		return 0, 0, nil, fmt.Errorf("chunk header too short: got %d bytes, need %d", len(payload), ChunkHeaderSize)
	}
	count = binary.BigEndian.Uint32(payload[0:4])
	start = binary.BigEndian.Uint32(payload[4:8])
	return count, start, payload[ChunkHeaderSize:], nil
}

// DecodeFileRecord reads one fixed-width file record.
func DecodeFileRecord(data []byte) (FileRecord, error) {
	if len(data) < FileRecordSize {
		return FileRecord{}, fmt.Errorf("file record too short: got %d bytes, need %d", len(data), FileRecordSize)
	}
	nameEnd := 4 + MaxFileNameLength
	return FileRecord{
		ID:          binary.BigEndian.Uint32(data[0:4]),
		Name:        string(bytes.TrimRight(data[4:nameEnd], "\x00")),
		Description: string(bytes.TrimRight(data[nameEnd:FileRecordSize], "\x00")),
	}, nil
}

// DecodePeerRecord reads one fixed-width peer record.
func DecodePeerRecord(data []byte) (PeerRecord, error) {
	if len(data) < PeerRecordSize {
		return PeerRecord{}, fmt.Errorf("peer record too short: got %d bytes, need %d", len(data), PeerRecordSize)
	}
	return PeerRecord{
		IP:   binary.BigEndian.Uint32(data[0:4]),
		Port: binary.BigEndian.Uint16(data[4:6]),
	}, nil
}

// DecodeFileChunk decodes a FILES_CHUNK payload.
func DecodeFileChunk(payload []byte) (start uint32, files []FileRecord, err error) {
	count, start, body, err := DecodeChunkHeader(payload)
	if err != nil {
		return 0, nil, err
	}
	if len(body) < int(count)*FileRecordSize {
		return 0, nil, fmt.Errorf("file chunk truncated: %d records need %d bytes, got %d", count, int(count)*FileRecordSize, len(body))
	}

	files = make([]FileRecord, 0, count)
	for i := 0; i < int(count); i++ {
		rec, err := DecodeFileRecord(body[i*FileRecordSize:])
		if err != nil {
			return 0, nil, err
		}
		files = append(files, rec)
	}
	return start, files, nil
}

// DecodePeerChunk decodes a PEERS_CHUNK payload.
func DecodePeerChunk(payload []byte) (start uint32, peers []PeerRecord, err error) {
	count, start, body, err := DecodeChunkHeader(payload)
	if err != nil {
		return 0, nil, err
	}
	if len(body) < int(count)*PeerRecordSize {
		return 0, nil, fmt.Errorf("peer chunk truncated: %d records need %d bytes, got %d", count, int(count)*PeerRecordSize, len(body))
	}

	peers = make([]PeerRecord, 0, count)
	for i := 0; i < int(count); i++ {
		rec, err := DecodePeerRecord(body[i*PeerRecordSize:])
		if err != nil {
			return 0, nil, err
		}
		peers = append(peers, rec)
	}
	return start, peers, nil
}
