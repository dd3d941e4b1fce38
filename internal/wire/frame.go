// Package wire implements the bus-level framing and message encoding
// described in the protocol's wire format: a 4-byte big-endian length
// prefix around a compact tagged payload record.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/shardmesh/lagrange/pkg/group"
	"github.com/shardmesh/lagrange/pkg/party"
)

// MessageType tags the kind of payload a Frame carries.
type MessageType uint8

const (
	// TypeShare tags a round-1 additive share.
	TypeShare MessageType = 1
	// TypePartial tags a round-2 partial result.
	TypePartial MessageType = 2
)

func (t MessageType) String() string {
	switch t {
	case TypeShare:
		return "SHARE"
	case TypePartial:
		return "PARTIAL"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
	}
}

// ErrMalformedFrame is returned when a length prefix or payload cannot be
// decoded into a well-formed Payload.
var ErrMalformedFrame = errors.New("wire: malformed frame")

// maxFrameLen bounds a single frame to guard against a corrupt length
// prefix causing an unbounded allocation.
const maxFrameLen = 1 << 20

// Payload is the decoded content of a single protocol message: who sent
// it, for which round, what kind it is, and the scalar value it carries.
type Payload struct {
	Type     MessageType
	Round    uint8
	SenderID party.ID
	Value    *group.Scalar
}

// Encode serializes a Payload as {type: uint8, round: uint8, sender_id:
// uint16 big-endian, value: big-endian scalar bytes}.
func Encode(p Payload) []byte {
	value := p.Value.Bytes()
	buf := make([]byte, 1+1+2+len(value))
	buf[0] = byte(p.Type)
	buf[1] = p.Round
	binary.BigEndian.PutUint16(buf[2:4], uint16(p.SenderID))
	copy(buf[4:], value)
	return buf
}

// Decode parses a Payload from raw bytes, reducing the trailing value
// field modulo the given group's order.
func Decode(b []byte, gp *group.Params) (Payload, error) {
	if len(b) < 4+gp.ScalarLen() {
		return Payload{}, fmt.Errorf("%w: short payload (%d bytes)", ErrMalformedFrame, len(b))
	}
	return Payload{
		Type:     MessageType(b[0]),
		Round:    b[1],
		SenderID: party.ID(binary.BigEndian.Uint16(b[2:4])),
		Value:    gp.ScalarFromBytes(b[4 : 4+gp.ScalarLen()]),
	}, nil
}

// WriteFrame writes a 4-byte big-endian length prefix followed by
// payload to w.
func WriteFrame(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("wire: write length prefix: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("wire: write payload: %w", err)
	}
	return nil
}

// ReadFrame reads a single length-prefixed frame from r.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxFrameLen {
		return nil, fmt.Errorf("%w: frame length %d exceeds maximum", ErrMalformedFrame, n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("wire: read payload: %w", err)
	}
	return payload, nil
}
