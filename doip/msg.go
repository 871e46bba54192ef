package doip

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Session-state errors.
var (
	ErrNotActivated = errors.New("doip: routing not activated")
	ErrDisconnected = errors.New("doip: session disconnected")
	ErrTimeout      = errors.New("doip: receive timeout")
)

// Frame is one DoIP message: an 8-byte header followed by the payload.
type Frame struct {
	Type    PayloadType
	Payload []byte
}

// FramingError reports a frame that is too short, carries the wrong
// protocol version bytes, or declares a payload length that does not match
// the bytes actually present.
type FramingError struct {
	Reason   string
	Declared uint32
	Actual   int
}

func (e *FramingError) Error() string {
	if e.Declared != uint32(e.Actual) {
		return fmt.Sprintf("doip: %s (declared %d, got %d)", e.Reason, e.Declared, e.Actual)
	}
	return "doip: " + e.Reason
}

// ProtocolError reports a payload type other than the one the operation
// expected.
type ProtocolError struct {
	Want PayloadType
	Got  PayloadType
}

func (e *ProtocolError) Error() string {
	if e.Want != 0 {
		return fmt.Sprintf("doip: unexpected payload type 0x%04X (%s), want 0x%04X", uint16(e.Got), e.Got, uint16(e.Want))
	}
	return fmt.Sprintf("doip: unexpected payload type 0x%04X (%s)", uint16(e.Got), e.Got)
}

// ConnectionError reports a failed socket operation. The session is no
// longer usable and must be reconnected.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("doip: %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ActivationError reports a routing activation response the gateway refused
// or that was too short to carry a result code.
type ActivationError struct {
	Code        byte
	ResponseLen int
}

func (e *ActivationError) Error() string {
	if e.ResponseLen < minActivationResponseLen {
		return fmt.Sprintf("doip: routing activation response too short (%d bytes)", e.ResponseLen)
	}
	return fmt.Sprintf("doip: routing activation refused (code 0x%02X)", e.Code)
}

// NackError reports a negative acknowledgement from the gateway, either a
// generic header NACK or a diagnostic message NACK, with its code.
type NackError struct {
	Type PayloadType
	Code byte
}

func (e *NackError) Error() string {
	return fmt.Sprintf("doip: %s (code 0x%02X)", e.Type, e.Code)
}

// AddressError reports a response addressed to a logical address other than
// this tester.
type AddressError struct {
	Got  uint16
	Want uint16
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("doip: response for address 0x%04X, tester is 0x%04X", e.Got, e.Want)
}

// EncodeFrame builds the raw bytes for one DoIP frame: version, inverse
// version, payload type and payload length big-endian, then the payload.
func EncodeFrame(t PayloadType, payload []byte) []byte {
	b := make([]byte, headerLen+len(payload))
	b[0] = ProtocolVersion
	b[1] = InverseProtocolVersion
	binary.BigEndian.PutUint16(b[2:4], uint16(t))
	binary.BigEndian.PutUint32(b[4:8], uint32(len(payload)))
	copy(b[headerLen:], payload)
	return b
}

// DecodeFrame parses a complete frame. It fails when fewer than 8 bytes are
// present, the version bytes are wrong, or the declared payload length does
// not equal the number of payload bytes actually present.
func DecodeFrame(b []byte) (Frame, error) {
	if len(b) < headerLen {
		return Frame{}, &FramingError{Reason: "frame too short", Actual: len(b)}
	}
	if b[0] != ProtocolVersion || b[1] != InverseProtocolVersion {
		return Frame{}, &FramingError{Reason: "protocol version mismatch"}
	}
	declared := binary.BigEndian.Uint32(b[4:8])
	if int(declared) != len(b)-headerLen {
		return Frame{}, &FramingError{
			Reason:   "payload length mismatch",
			Declared: declared,
			Actual:   len(b) - headerLen,
		}
	}
	return Frame{
		Type:    PayloadType(binary.BigEndian.Uint16(b[2:4])),
		Payload: b[headerLen:],
	}, nil
}

// diagnosticPayload prefixes the UDS bytes with source and target logical
// addresses, the payload layout of payload type 0x8001.
func diagnosticPayload(source, target uint16, data []byte) []byte {
	p := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(p[0:2], source)
	binary.BigEndian.PutUint16(p[2:4], target)
	copy(p[4:], data)
	return p
}

// activationPayload is the routing activation request payload: source
// address, activation type, and four reserved zero bytes.
func activationPayload(source uint16) []byte {
	p := make([]byte, 7)
	binary.BigEndian.PutUint16(p[0:2], source)
	p[2] = ActivationTypeDefault
	return p
}
