package uds

import "fmt"

// Response is a positive UDS response: the echoed service id (request id
// plus PositiveResponseOffset) and the bytes that follow it.
type Response struct {
	Service byte
	Data    []byte
}

// NegativeResponse is the error returned when the ECU explicitly rejects a
// request: [0x7F, requested service, NRC] on the wire.
type NegativeResponse struct {
	Service byte
	NRC     byte
}

func (e *NegativeResponse) Error() string {
	return fmt.Sprintf("uds: %s rejected: %s (NRC 0x%02X)", ServiceName(e.Service), NRCName(e.NRC), e.NRC)
}

// UnexpectedResponseError reports a response whose shape or echoed service
// id does not match the request.
type UnexpectedResponseError struct {
	Request  []byte
	Response []byte
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("uds: unexpected response %x to request %x", e.Response, e.Request)
}

// ParseResponse discriminates a raw UDS response on its first byte: 0x7F
// yields a NegativeResponse error, anything else a positive Response.
func ParseResponse(raw []byte) (Response, error) {
	if len(raw) == 0 {
		return Response{}, &UnexpectedResponseError{Response: raw}
	}
	if raw[0] == NegativeResponseID {
		if len(raw) < 3 {
			return Response{}, &UnexpectedResponseError{Response: raw}
		}
		return Response{}, &NegativeResponse{Service: raw[1], NRC: raw[2]}
	}
	return Response{Service: raw[0], Data: raw[1:]}, nil
}
