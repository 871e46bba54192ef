package uds

import "fmt"

// UDS service ids (ISO 14229-1 subset used by the tool).
const (
	ServiceDiagnosticSessionControl byte = 0x10
	ServiceReadDataByIdentifier     byte = 0x22
	ServiceSecurityAccess           byte = 0x27
	ServiceWriteDataByIdentifier    byte = 0x2E
)

const (
	// PositiveResponseOffset is added to the request service id in a
	// positive response (0x22 answers as 0x62).
	PositiveResponseOffset byte = 0x40
	// NegativeResponseID is the first byte of every negative response.
	NegativeResponseID byte = 0x7F
)

// Diagnostic session types for ServiceDiagnosticSessionControl.
const (
	SessionDefault  byte = 0x01
	SessionExtended byte = 0x03
)

// DIDVIN is the data identifier of the vehicle identification number.
const DIDVIN uint16 = 0xF190

// dmeAddress is the logical address of the engine control module, the ECU
// the VIN is read from.
const dmeAddress uint16 = 0x0012

var serviceNames = map[byte]string{
	ServiceDiagnosticSessionControl: "Diagnostic Session Control",
	ServiceReadDataByIdentifier:     "Read Data By Identifier",
	ServiceSecurityAccess:           "Security Access",
	ServiceWriteDataByIdentifier:    "Write Data By Identifier",
}

// ServiceName resolves a service id to its ISO 14229 name.
func ServiceName(id byte) string {
	if name, ok := serviceNames[id]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", id)
}
