package wire

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedMessage matches datagrams that are empty or carry an unknown tag.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrPayloadTooShort matches payloads below the minimum size for their type.
	ErrPayloadTooShort = errors.New("payload too short")
)

// MalformedMessageError describes a datagram that could not be framed.
type MalformedMessageError struct {
	// Length is the size of the offending datagram.
	Length int

	// Tag is the leading byte, zero when the datagram was empty.
	Tag byte

	Reason string
}

func (e *MalformedMessageError) Error() string {
	return fmt.Sprintf("malformed message (%d bytes, tag %d): %s", e.Length, e.Tag, e.Reason)
}

func (e *MalformedMessageError) Unwrap() error { return ErrMalformedMessage }

// PayloadTooShortError reports a payload shorter than its message type needs.
type PayloadTooShortError struct {
	Type   MessageType
	Length int
	Need   int
}

func (e *PayloadTooShortError) Error() string {
	return fmt.Sprintf("%s payload too short: got %d bytes, need %d", e.Type, e.Length, e.Need)
}

func (e *PayloadTooShortError) Unwrap() error { return ErrPayloadTooShort }
