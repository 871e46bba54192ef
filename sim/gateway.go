// Package sim provides an in-process diagnostic gateway for exercising the
// full stack without a vehicle. The gateway accepts tester connections,
// performs routing activation and routes diagnostic messages to simulated
// ECUs that answer session control, security access and parameter reads and
// writes.
package sim

import (
	"crypto/rand"
	"encoding/binary"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nikolamrkic91-arch/ecutool/doip"
	"github.com/nikolamrkic91-arch/ecutool/seedkey"
	"github.com/nikolamrkic91-arch/ecutool/uds"
)

// ECU is one simulated control unit behind the gateway.
type ECU struct {
	Address uint16
	// Params maps data identifiers to their current values. Values
	// written through the gateway replace the stored ones.
	Params map[uint16][]byte
	// Secured lists the data identifiers that may only be written after
	// a successful security access handshake.
	Secured map[uint16]bool

	mu       sync.Mutex
	unlocked bool
	seed     []byte
}

// Gateway simulates a vehicle diagnostic gateway.
type Gateway struct {
	Address  uint16
	Strategy seedkey.Strategy
	Log      zerolog.Logger

	mu   sync.Mutex
	ecus map[uint16]*ECU
	srv  *doip.Server
}

// NewGateway builds a gateway with the given logical address. Keys sent by
// testers are checked against strategy.
func NewGateway(address uint16, strategy seedkey.Strategy) *Gateway {
	return &Gateway{
		Address:  address,
		Strategy: strategy,
		Log:      zerolog.Nop(),
		ecus:     make(map[uint16]*ECU),
	}
}

// AddECU registers a simulated ECU. Later registrations with the same
// address replace earlier ones.
func (g *Gateway) AddECU(e *ECU) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ecus[e.Address] = e
}

// ECU returns the registered ECU at addr, or nil.
func (g *Gateway) ECU(addr uint16) *ECU {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ecus[addr]
}

// Start listens on addr and serves testers until Stop. It returns the
// bound address, which carries the chosen port when addr ends in ":0".
func (g *Gateway) Start(addr string) (*net.TCPAddr, error) {
	srv, bound, err := doip.RunLocalServer(addr, func() doip.Handler {
		return &conn{gw: g}
	}, g.Log)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	g.srv = srv
	g.mu.Unlock()
	return bound, nil
}

// Stop shuts the gateway down and closes live tester connections.
func (g *Gateway) Stop() error {
	g.mu.Lock()
	srv := g.srv
	g.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown()
}

// conn is the per-tester-connection state: the routing activation gate and
// the tester address bound by it.
type conn struct {
	gw        *Gateway
	activated bool
	tester    uint16
}

func (c *conn) ServeDoIP(w doip.ResponseWriter, f doip.Frame) {
	switch f.Type {
	case doip.RoutingActivationRequest:
		c.handleActivation(w, f.Payload)
	case doip.DiagnosticMessage:
		c.handleDiagnostic(w, f.Payload)
	case doip.AliveCheckRequest:
		w.WriteFrame(doip.AliveCheckResponse, be16(c.tester))
	default:
		w.WriteFrame(doip.GenericNegativeAck, []byte{doip.NackUnknownPayloadType})
	}
}

func (c *conn) handleActivation(w doip.ResponseWriter, payload []byte) {
	if len(payload) < 7 {
		w.WriteFrame(doip.GenericNegativeAck, []byte{doip.NackInvalidPayloadLength})
		return
	}
	c.tester = binary.BigEndian.Uint16(payload[0:2])
	c.activated = true
	c.gw.Log.Debug().Uint16("tester", c.tester).Msg("routing activated")
	w.WriteFrame(doip.RoutingActivationResponse, activationResponse(c.tester, c.gw.Address, doip.RoutingSuccessfullyActivated))
}

func (c *conn) handleDiagnostic(w doip.ResponseWriter, payload []byte) {
	if !c.activated {
		w.WriteFrame(doip.GenericNegativeAck, []byte{doip.NackSecurity})
		return
	}
	if len(payload) < 5 {
		w.WriteFrame(doip.GenericNegativeAck, []byte{doip.NackInvalidPayloadLength})
		return
	}
	source := binary.BigEndian.Uint16(payload[0:2])
	target := binary.BigEndian.Uint16(payload[2:4])
	request := payload[4:]

	ecu := c.gw.ECU(target)
	if ecu == nil {
		w.WriteFrame(doip.DiagnosticMessageNegAck, diagNack(source, target, 0x02))
		return
	}

	// Ack receipt first, then route the response back.
	w.WriteFrame(doip.DiagnosticMessagePosAck, diagAck(source, target))
	response := c.gw.respond(ecu, request)
	w.WriteFrame(doip.DiagnosticMessage, diagMessage(target, source, response))
}

// respond runs one UDS request against an ECU and builds the raw response.
func (g *Gateway) respond(e *ECU, req []byte) []byte {
	if len(req) == 0 {
		return negative(0x00, uds.NRCIncorrectMessageLengthOrInvalidFormat)
	}
	switch req[0] {
	case uds.ServiceDiagnosticSessionControl:
		return e.startSession(req)
	case uds.ServiceReadDataByIdentifier:
		return e.readParameter(req)
	case uds.ServiceWriteDataByIdentifier:
		return e.writeParameter(req)
	case uds.ServiceSecurityAccess:
		return e.securityAccess(req, g.Strategy)
	default:
		return negative(req[0], uds.NRCServiceNotSupported)
	}
}

func (e *ECU) startSession(req []byte) []byte {
	if len(req) != 2 {
		return negative(req[0], uds.NRCIncorrectMessageLengthOrInvalidFormat)
	}
	return []byte{req[0] + uds.PositiveResponseOffset, req[1]}
}

func (e *ECU) readParameter(req []byte) []byte {
	if len(req) != 3 {
		return negative(req[0], uds.NRCIncorrectMessageLengthOrInvalidFormat)
	}
	did := binary.BigEndian.Uint16(req[1:3])
	e.mu.Lock()
	value, ok := e.Params[did]
	e.mu.Unlock()
	if !ok {
		return negative(req[0], uds.NRCRequestOutOfRange)
	}
	resp := []byte{req[0] + uds.PositiveResponseOffset, req[1], req[2]}
	return append(resp, value...)
}

func (e *ECU) writeParameter(req []byte) []byte {
	if len(req) < 4 {
		return negative(req[0], uds.NRCIncorrectMessageLengthOrInvalidFormat)
	}
	did := binary.BigEndian.Uint16(req[1:3])
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.Params[did]; !ok {
		return negative(req[0], uds.NRCRequestOutOfRange)
	}
	if e.Secured[did] && !e.unlocked {
		return negative(req[0], uds.NRCSecurityAccessDenied)
	}
	e.Params[did] = append([]byte(nil), req[3:]...)
	return []byte{req[0] + uds.PositiveResponseOffset, req[1], req[2]}
}

func (e *ECU) securityAccess(req []byte, strategy seedkey.Strategy) []byte {
	if len(req) < 2 {
		return negative(req[0], uds.NRCIncorrectMessageLengthOrInvalidFormat)
	}
	sub := req[1]
	e.mu.Lock()
	defer e.mu.Unlock()

	if sub%2 == 1 {
		// Odd subfunction: hand out a fresh seed.
		seed := make([]byte, 4)
		rand.Read(seed)
		e.seed = seed
		return append([]byte{req[0] + uds.PositiveResponseOffset, sub}, seed...)
	}

	// Even subfunction: verify the key against the outstanding seed.
	if e.seed == nil {
		return negative(req[0], uds.NRCRequestSequenceError)
	}
	if len(req) != 6 {
		return negative(req[0], uds.NRCIncorrectMessageLengthOrInvalidFormat)
	}
	var seed [4]byte
	copy(seed[:], e.seed)
	e.seed = nil
	want, err := strategy.DeriveKey(seed, seedkey.Level(sub/2))
	if err != nil {
		return negative(req[0], uds.NRCConditionsNotCorrect)
	}
	var got [4]byte
	copy(got[:], req[2:6])
	if got != want {
		return negative(req[0], uds.NRCInvalidKey)
	}
	e.unlocked = true
	return []byte{req[0] + uds.PositiveResponseOffset, sub}
}

func negative(service byte, nrc byte) []byte {
	return []byte{uds.NegativeResponseID, service, nrc}
}

func be16(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

// activationResponse lays out a routing activation response payload with
// the result code at byte 5, where testers in the field expect it.
func activationResponse(tester, entity uint16, code byte) []byte {
	p := make([]byte, 10)
	binary.BigEndian.PutUint16(p[0:2], tester)
	binary.BigEndian.PutUint16(p[2:4], entity)
	p[5] = code
	return p
}

func diagMessage(source, target uint16, data []byte) []byte {
	p := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(p[0:2], source)
	binary.BigEndian.PutUint16(p[2:4], target)
	copy(p[4:], data)
	return p
}

func diagAck(source, target uint16) []byte {
	p := make([]byte, 5)
	binary.BigEndian.PutUint16(p[0:2], target)
	binary.BigEndian.PutUint16(p[2:4], source)
	return p
}

func diagNack(source, target uint16, code byte) []byte {
	p := diagAck(source, target)
	p[4] = code
	return p
}
