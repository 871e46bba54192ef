package doip

const (
	// ProtocolVersion is the DoIP protocol version byte (ISO 13400-2:2012).
	ProtocolVersion uint8 = 0x02
	// InverseProtocolVersion is the bitwise complement of ProtocolVersion.
	InverseProtocolVersion uint8 = ^ProtocolVersion
)

// PayloadType identifies the kind of message carried in a DoIP frame.
type PayloadType uint16

// Payload types (ISO 13400-2 Table 12 subset).
const (
	GenericNegativeAck        PayloadType = 0x0000
	RoutingActivationRequest  PayloadType = 0x0005
	RoutingActivationResponse PayloadType = 0x0006
	AliveCheckRequest         PayloadType = 0x0007
	AliveCheckResponse        PayloadType = 0x0008
	DiagnosticMessage         PayloadType = 0x8001
	DiagnosticMessagePosAck   PayloadType = 0x8002
	DiagnosticMessageNegAck   PayloadType = 0x8003
)

func (t PayloadType) String() string {
	switch t {
	case GenericNegativeAck:
		return "generic negative ack"
	case RoutingActivationRequest:
		return "routing activation request"
	case RoutingActivationResponse:
		return "routing activation response"
	case AliveCheckRequest:
		return "alive check request"
	case AliveCheckResponse:
		return "alive check response"
	case DiagnosticMessage:
		return "diagnostic message"
	case DiagnosticMessagePosAck:
		return "diagnostic message positive ack"
	case DiagnosticMessageNegAck:
		return "diagnostic message negative ack"
	}
	return "unknown"
}

// Generic DoIP header NACK codes (Table 14 subset).
const (
	NackIncorrectPatternFormat uint8 = 0x00
	NackUnknownPayloadType     uint8 = 0x01
	NackInvalidPayloadLength   uint8 = 0x04
	NackSecurity               uint8 = 0x10
)

const (
	// ActivationTypeDefault is the only activation type the tool requests.
	ActivationTypeDefault byte = 0x00
	// RoutingSuccessfullyActivated is the gateway's activation success code.
	RoutingSuccessfullyActivated byte = 0x10

	// The ZGM-style gateways this tool talks to carry the activation result
	// at byte 13 of the full routing activation response. The offset is kept
	// as observed on the wire; responses shorter than 14 bytes are rejected.
	activationResultOffset   = 13
	minActivationResponseLen = 14
)

const headerLen = 8
