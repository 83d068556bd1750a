// Package wire provides the binary encoding for the peertrack tracker protocol.
//
// Every datagram starts with a single tag byte. Requests carry a message type
// tag followed by a type-specific payload; responses carry the tag of the
// session's new state followed by either nothing (FIN markers, REGISTER_ACK) or
// a chunk:
//
//	[count:uint32][start:uint32][record]...[record]
//
// Records have a fixed width so a chunk can be length-addressed without
// per-record lengths. All multi-byte integers are big-endian.
package wire

import (
	"encoding/binary"
	"fmt"
	"net/netip"
)

// ============================================================================
// Tags
// ============================================================================

// MessageType is the tag byte carried at the start of every datagram.
//
// Requests and response states share one contiguous numbering space starting
// at 1, so a response tag is simply the numeric value of the session's state.
type MessageType uint8

const (
	MsgFilesList   MessageType = 1
	MsgFilesChunk  MessageType = 2
	MsgFilesAck    MessageType = 3
	MsgFilesFin    MessageType = 4
	MsgPeersList   MessageType = 5
	MsgPeersChunk  MessageType = 6
	MsgPeersAck    MessageType = 7
	MsgPeersFin    MessageType = 8
	MsgThanks      MessageType = 9
	MsgRegister    MessageType = 10
	MsgRegisterAck MessageType = 11
)

var messageNames = map[MessageType]string{
	MsgFilesList:   "FILES_LIST",
	MsgFilesChunk:  "FILES_CHUNK",
	MsgFilesAck:    "FILES_ACK",
	MsgFilesFin:    "FILES_FIN",
	MsgPeersList:   "PEERS_LIST",
	MsgPeersChunk:  "PEERS_CHUNK",
	MsgPeersAck:    "PEERS_ACK",
	MsgPeersFin:    "PEERS_FIN",
	MsgThanks:      "THANKS",
	MsgRegister:    "REGISTER",
	MsgRegisterAck: "REGISTER_ACK",
}

// requestTypes are the tags a client may send.
var requestTypes = map[MessageType]bool{
	MsgFilesList: true,
	MsgFilesAck:  true,
	MsgPeersList: true,
	MsgPeersAck:  true,
	MsgThanks:    true,
	MsgRegister:  true,
}

func (t MessageType) String() string {
	if name, ok := messageNames[t]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
}

// IsRequest reports whether t is a tag clients are allowed to send.
func (t MessageType) IsRequest() bool {
	return requestTypes[t]
}

// RequestTypes returns every request tag in numeric order.
func RequestTypes() []MessageType {
	return []MessageType{MsgFilesList, MsgFilesAck, MsgPeersList, MsgPeersAck, MsgThanks, MsgRegister}
}

// State is a per-session protocol state. Its numeric value doubles as the
// response tag sent after a transition into it.
type State uint8

const (
	// StateNone marks the absence of a session. It is never stored.
	StateNone State = 0

	StateFilesList   = State(MsgFilesList)
	StateFilesChunk  = State(MsgFilesChunk)
	StateFilesFin    = State(MsgFilesFin)
	StatePeersChunk  = State(MsgPeersChunk)
	StatePeersFin    = State(MsgPeersFin)
	StateRegister    = State(MsgRegister)
	StateRegisterAck = State(MsgRegisterAck)
)

// States returns every state a stored session can be in.
func States() []State {
	return []State{
		StateFilesList, StateFilesChunk, StateFilesFin,
		StatePeersChunk, StatePeersFin,
		StateRegister, StateRegisterAck,
	}
}

func (s State) String() string {
	if s == StateNone {
		return "NONE"
	}
	return MessageType(s).String()
}

// Tag returns the response tag byte for s.
func (s State) Tag() byte {
	return byte(s)
}

// ============================================================================
// Sizes
// ============================================================================

const (
	// TagSize is the size of the leading tag byte of every datagram.
	TagSize = 1

	// DefaultPacketMaxSize caps every datagram in both directions.
	DefaultPacketMaxSize = 128

	// ChunkHeaderSize is [count:uint32][start:uint32].
	ChunkHeaderSize = 8

	// MaxFileNameLength is the fixed width of FileRecord.Name on the wire.
	MaxFileNameLength = 32

	// MaxFileDescLength is the fixed width of FileRecord.Description on the wire.
	MaxFileDescLength = 64

	// FileRecordSize is [id:uint32][name:32][description:64].
	FileRecordSize = 4 + MaxFileNameLength + MaxFileDescLength

	// PeerRecordSize is [ip:uint32][port:uint16].
	PeerRecordSize = 6

	// CursorSize is the size of an ack cursor or a file id.
	CursorSize = 4

	// RegisterSize is [ip:uint32][port:uint16].
	RegisterSize = 6
)

// MaxRecordsPerPacket returns how many records of recordSize fit in a chunk
// response of at most packetMax bytes, including the tag byte and the chunk
// header. It returns 0 when not even one record fits.
func MaxRecordsPerPacket(packetMax, recordSize int) int {
	if recordSize <= 0 {
		return 0
	}
	avail := packetMax - TagSize - ChunkHeaderSize
	if avail < recordSize {
		return 0
	}
	return avail / recordSize
}

// ChunkResponseSize returns the datagram size of a chunk response carrying n
// records of recordSize.
func ChunkResponseSize(n, recordSize int) int {
	return TagSize + ChunkHeaderSize + n*recordSize
}

// ============================================================================
// Records
// ============================================================================

// FileRecord describes a file known to the directory.
type FileRecord struct {
	ID          uint32 `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// PeerRecord is an IPv4 address and port a seeder is reachable on.
type PeerRecord struct {
	IP   uint32 `json:"ip" yaml:"ip"`
	Port uint16 `json:"port" yaml:"port"`
}

// String renders the peer as dotted-quad ip:port.
func (p PeerRecord) String() string {
	return fmt.Sprintf("%d.%d.%d.%d:%d", byte(p.IP>>24), byte(p.IP>>16), byte(p.IP>>8), byte(p.IP), p.Port)
}

// AddrPort returns the peer as a netip endpoint.
func (p PeerRecord) AddrPort() netip.AddrPort {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], p.IP)
	return netip.AddrPortFrom(netip.AddrFrom4(b), p.Port)
}

// PeerFromAddrPort converts an IPv4 (or IPv4-mapped) endpoint to a record.
func PeerFromAddrPort(ap netip.AddrPort) (PeerRecord, error) {
	addr := ap.Addr().Unmap()
	if !addr.Is4() {
		return PeerRecord{}, fmt.Errorf("peer address %s is not IPv4", ap)
	}
	b := addr.As4()
	return PeerRecord{IP: binary.BigEndian.Uint32(b[:]), Port: ap.Port()}, nil
}

// Request is a decoded client datagram.
type Request struct {
	Type    MessageType
	Payload []byte
}

// Response is a decoded server datagram.
type Response struct {
	State   State
	Payload []byte
}
