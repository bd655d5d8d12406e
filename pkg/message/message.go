// Package message defines the wire representation agents exchange: a
// fixed header followed by a trivially-copyable payload. The header is
// written with encoding/binary; the payload is written and read via
// unsafe.Pointer reinterpretation rather than a field-by-field
// encoding. Bytes allocates a new frame slice for every message.
package message

import (
	"encoding/binary"
	"unsafe"

	"github.com/nanoagents/actorcore/pkg/platform"
	"github.com/nanoagents/actorcore/pkg/typeid"
	"github.com/nanoagents/actorcore/pkg/types"
)

// HeaderSize is the number of bytes the header occupies in a message's
// wire form: type_id(2) + sender_id(2) + frame_size(2) + timestamp(4).
const HeaderSize = 10

// Header describes a message independent of its payload. Size is the
// length of the whole frame (header plus payload), matching what Push
// expects as the size argument.
type Header struct {
	TypeID    types.MessageId
	SenderID  types.AgentId
	Size      uint16
	Timestamp uint32
}

// Message is a typed envelope around a trivially-copyable payload of
// type T. It exists only to build and parse wire frames; mailboxes
// store the frame, not a Message value.
type Message[T any] struct {
	Header  Header
	Payload T
}

// New stamps a fresh message from sender at the given clock reading.
// Callers that don't need a timestamp of their own should pass a
// platform.Clock shared with their agent.
func New[T any](sender types.AgentId, clock platform.Clock, payload T) Message[T] {
	var ts uint32
	if clock != nil {
		ts = clock.Ticks()
	}
	var zero T
	return Message[T]{
		Header: Header{
			TypeID:    typeid.Of[T](),
			SenderID:  sender,
			Size:      uint16(HeaderSize) + uint16(unsafe.Sizeof(zero)),
			Timestamp: ts,
		},
		Payload: payload,
	}
}

// Bytes serializes m into a header-prefixed frame suitable for
// Mailbox.Push. The payload bytes are a direct reinterpretation of the
// in-memory struct, not a field-by-field encoding; T must be
// trivially copyable (typeid.ValidatePayload[T]() == true), which
// callers are expected to have checked once at setup.
func (m Message[T]) Bytes() []byte {
	payloadSize := int(unsafe.Sizeof(m.Payload))
	frame := make([]byte, HeaderSize+payloadSize)

	binary.LittleEndian.PutUint16(frame[0:2], uint16(m.Header.TypeID))
	binary.LittleEndian.PutUint16(frame[2:4], uint16(m.Header.SenderID))
	binary.LittleEndian.PutUint16(frame[4:6], m.Header.Size)
	binary.LittleEndian.PutUint32(frame[6:10], m.Header.Timestamp)

	if payloadSize > 0 {
		src := unsafe.Slice((*byte)(unsafe.Pointer(&m.Payload)), payloadSize)
		copy(frame[HeaderSize:], src)
	}
	return frame
}

// ParseHeader reads only the header portion of a frame, used by
// dispatch logic that must route a message before it knows which
// concrete T to decode into.
func ParseHeader(frame []byte) Header {
	return Header{
		TypeID:    types.MessageId(binary.LittleEndian.Uint16(frame[0:2])),
		SenderID:  types.AgentId(binary.LittleEndian.Uint16(frame[2:4])),
		Size:      binary.LittleEndian.Uint16(frame[4:6]),
		Timestamp: binary.LittleEndian.Uint32(frame[6:10]),
	}
}

// Decode reinterprets frame's payload bytes back into a T. It does
// not check Header.TypeID against typeid.Of[T](); callers that
// dispatch by type id have already made that decision and decode only
// once they know T is the right choice.
func Decode[T any](frame []byte) (T, bool) {
	var payload T
	payloadSize := int(unsafe.Sizeof(payload))

	if len(frame) < HeaderSize+payloadSize {
		return payload, false
	}

	if payloadSize > 0 {
		dst := unsafe.Slice((*byte)(unsafe.Pointer(&payload)), payloadSize)
		copy(dst, frame[HeaderSize:HeaderSize+payloadSize])
	}
	return payload, true
}
