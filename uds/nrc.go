package uds

import "fmt"

// Negative response codes (ISO 14229-1 subset).
const (
	NRCGeneralReject                           byte = 0x10
	NRCServiceNotSupported                     byte = 0x11
	NRCSubFunctionNotSupported                 byte = 0x12
	NRCIncorrectMessageLengthOrInvalidFormat   byte = 0x13
	NRCConditionsNotCorrect                    byte = 0x22
	NRCRequestSequenceError                    byte = 0x24
	NRCRequestOutOfRange                       byte = 0x31
	NRCSecurityAccessDenied                    byte = 0x33
	NRCInvalidKey                              byte = 0x35
	NRCExceededNumberOfAttempts                byte = 0x36
	NRCRequiredTimeDelayNotExpired             byte = 0x37
	NRCGeneralProgrammingFailure               byte = 0x72
	NRCRequestCorrectlyReceivedResponsePending byte = 0x78
	NRCServiceNotSupportedInActiveSession      byte = 0x7F
)

var nrcNames = map[byte]string{
	NRCGeneralReject:                           "general reject",
	NRCServiceNotSupported:                     "service not supported",
	NRCSubFunctionNotSupported:                 "sub-function not supported",
	NRCIncorrectMessageLengthOrInvalidFormat:   "incorrect message length or invalid format",
	NRCConditionsNotCorrect:                    "conditions not correct",
	NRCRequestSequenceError:                    "request sequence error",
	NRCRequestOutOfRange:                       "request out of range",
	NRCSecurityAccessDenied:                    "security access denied",
	NRCInvalidKey:                              "invalid key",
	NRCExceededNumberOfAttempts:                "exceeded number of attempts",
	NRCRequiredTimeDelayNotExpired:             "required time delay not expired",
	NRCGeneralProgrammingFailure:               "general programming failure",
	NRCRequestCorrectlyReceivedResponsePending: "response pending",
	NRCServiceNotSupportedInActiveSession:      "service not supported in active session",
}

// NRCName resolves a negative response code to its ISO 14229 name.
func NRCName(nrc byte) string {
	if name, ok := nrcNames[nrc]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", nrc)
}
