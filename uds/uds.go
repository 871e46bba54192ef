// Package uds implements the Unified Diagnostic Services subset the coding
// tool needs: parameter read/write, VIN retrieval, diagnostic session
// control and the seed/key security-access handshake, carried over any
// Transport.
package uds

import (
	"strings"

	"github.com/rs/zerolog"
)

// Transport is the lower layer carrying raw UDS payloads to an ECU and
// returning its raw response, e.g. a doip.Session.
type Transport interface {
	Exchange(target uint16, request []byte) ([]byte, error)
}

// Client issues UDS requests over a Transport. Each operation is one
// request/response round trip.
type Client struct {
	log   zerolog.Logger
	trans Transport
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger attaches a logger to the client.
func WithLogger(log zerolog.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

// NewClient wraps the transport in a UDS client.
func NewClient(trans Transport, opts ...ClientOption) *Client {
	c := &Client{log: zerolog.Nop(), trans: trans}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ReadParameter reads the value of one data identifier (service 0x22). The
// returned bytes follow the echoed DID.
func (c *Client) ReadParameter(ecu uint16, did uint16) ([]byte, error) {
	req := []byte{ServiceReadDataByIdentifier, byte(did >> 8), byte(did)}
	resp, err := c.request(ecu, req)
	if err != nil {
		return nil, err
	}
	if resp.Service != ServiceReadDataByIdentifier+PositiveResponseOffset || len(resp.Data) < 2 {
		return nil, &UnexpectedResponseError{Request: req, Response: resp.raw()}
	}
	if resp.Data[0] != byte(did>>8) || resp.Data[1] != byte(did) {
		return nil, &UnexpectedResponseError{Request: req, Response: resp.raw()}
	}
	return resp.Data[2:], nil
}

// WriteParameter writes a value to one data identifier (service 0x2E).
func (c *Client) WriteParameter(ecu uint16, did uint16, data []byte) error {
	req := make([]byte, 3+len(data))
	req[0] = ServiceWriteDataByIdentifier
	req[1] = byte(did >> 8)
	req[2] = byte(did)
	copy(req[3:], data)

	resp, err := c.request(ecu, req)
	if err != nil {
		return err
	}
	if resp.Service != ServiceWriteDataByIdentifier+PositiveResponseOffset {
		return &UnexpectedResponseError{Request: req, Response: resp.raw()}
	}
	return nil
}

// ReadVIN reads the vehicle identification number (DID 0xF190) from the
// engine control module. Non-ASCII bytes in the 17-byte VIN field are
// dropped rather than treated as an error.
func (c *Client) ReadVIN() (string, error) {
	req := []byte{ServiceReadDataByIdentifier, byte(DIDVIN >> 8), byte(DIDVIN & 0xFF)}
	resp, err := c.request(dmeAddress, req)
	if err != nil {
		return "", err
	}
	// The full response must reach byte 20: service id, DID echo, 17 VIN bytes.
	if resp.Service != ServiceReadDataByIdentifier+PositiveResponseOffset || len(resp.Data) < 19 {
		return "", &UnexpectedResponseError{Request: req, Response: resp.raw()}
	}
	var b strings.Builder
	for _, ch := range resp.Data[2:19] {
		if ch < 0x80 {
			b.WriteByte(ch)
		}
	}
	vin := strings.TrimFunc(b.String(), func(r rune) bool {
		return r == 0 || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	c.log.Debug().Str("vin", vin).Msg("VIN read")
	return vin, nil
}

// StartSession switches the ECU diagnostic session (service 0x10).
func (c *Client) StartSession(ecu uint16, sessionType byte) error {
	req := []byte{ServiceDiagnosticSessionControl, sessionType}
	resp, err := c.request(ecu, req)
	if err != nil {
		return err
	}
	if resp.Service != ServiceDiagnosticSessionControl+PositiveResponseOffset {
		return &UnexpectedResponseError{Request: req, Response: resp.raw()}
	}
	return nil
}

func (c *Client) request(ecu uint16, req []byte) (Response, error) {
	c.log.Debug().Uint16("ecu", ecu).Hex("request", req).Msg("uds request")
	raw, err := c.trans.Exchange(ecu, req)
	if err != nil {
		return Response{}, err
	}
	resp, err := ParseResponse(raw)
	if err != nil {
		c.log.Debug().Uint16("ecu", ecu).Err(err).Msg("uds response")
		return Response{}, err
	}
	c.log.Debug().Uint16("ecu", ecu).Hex("response", raw).Msg("uds response")
	return resp, nil
}

// raw rebuilds the wire form of a positive response for error reporting.
func (r Response) raw() []byte {
	return append([]byte{r.Service}, r.Data...)
}
