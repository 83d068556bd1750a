package tracker

import (
	"context"
	"slices"

	"github.com/marmos91/peertrack/internal/protocol/tracker/session"
	"github.com/marmos91/peertrack/internal/protocol/tracker/wire"
)

// DecodeFunc parses a request payload into the argument its handler expects.
type DecodeFunc func(payload []byte) (any, error)

// HandlerFunc computes the outcome of a request without touching the session.
// The engine commits the returned transition.
type HandlerFunc func(ctx context.Context, e *Engine, sess *session.Session, args any) (transition, error)

// Procedure describes how one request type is validated and served.
type Procedure struct {
	// Name is the message type name for logging and metrics.
	Name string

	// Creates is the entry state of a session started by this message type,
	// or wire.StateNone when the type requires an existing session.
	Creates wire.State

	// Allowed lists the session states in which this type is accepted.
	Allowed []wire.State

	Decode  DecodeFunc
	Handler HandlerFunc
}

// Accepts reports whether the procedure may run in state.
func (p *Procedure) Accepts(state wire.State) bool {
	return slices.Contains(p.Allowed, state)
}

// transition is a handler's verdict: the next state, its response payload,
// the cursor bookkeeping to apply, or the end of the session.
type transition struct {
	next    wire.State
	payload []byte
	apply   func(*session.Session)

	// end removes the session and suppresses the response.
	end bool
}

// DispatchTable maps request tags to their procedures.
//
// Response tags (FILES_CHUNK, FILES_FIN, PEERS_CHUNK, PEERS_FIN, REGISTER_ACK)
// are absent; wire.DecodeRequest rejects them before dispatch.
var DispatchTable = map[wire.MessageType]*Procedure{
	wire.MsgFilesList: {
		Name:    "FILES_LIST",
		Creates: wire.StateFilesList,
		Allowed: []wire.State{wire.StateFilesList, wire.StateFilesChunk},
		Decode:  noPayload,
		Handler: handleFilesList,
	},
	wire.MsgFilesAck: {
		Name:    "FILES_ACK",
		Allowed: []wire.State{wire.StateFilesChunk, wire.StateFilesFin},
		Decode: func(payload []byte) (any, error) {
			return wire.DecodeAck(wire.MsgFilesAck, payload)
		},
		Handler: handleFilesAck,
	},
	wire.MsgPeersList: {
		Name:    "PEERS_LIST",
		Allowed: []wire.State{wire.StateFilesFin, wire.StatePeersChunk},
		Decode: func(payload []byte) (any, error) {
			return wire.DecodePeersRequest(payload)
		},
		Handler: handlePeersList,
	},
	wire.MsgPeersAck: {
		Name:    "PEERS_ACK",
		Allowed: []wire.State{wire.StatePeersChunk, wire.StatePeersFin},
		Decode: func(payload []byte) (any, error) {
			return wire.DecodeAck(wire.MsgPeersAck, payload)
		},
		Handler: handlePeersAck,
	},
	wire.MsgThanks: {
		Name:    "THANKS",
		Allowed: []wire.State{wire.StateFilesFin, wire.StatePeersFin, wire.StateRegisterAck},
		Decode:  noPayload,
		Handler: handleThanks,
	},
	wire.MsgRegister: {
		Name:    "REGISTER",
		Creates: wire.StateRegister,
		Allowed: []wire.State{wire.StateRegister},
		Decode: func(payload []byte) (any, error) {
			return wire.DecodeRegister(payload)
		},
		Handler: handleRegister,
	},
}

func noPayload([]byte) (any, error) { return nil, nil }
