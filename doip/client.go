package doip

import (
	"encoding/binary"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultReadTimeout bounds every blocking receive unless overridden.
const DefaultReadTimeout = 10 * time.Second

// Session owns one TCP connection to a DoIP gateway. It is the exclusive
// owner of the byte stream: all sends are serialized through the session and
// a reader goroutine is the only consumer of the socket.
type Session struct {
	log         zerolog.Logger
	source      uint16
	gateway     string
	readTimeout time.Duration

	mtx       sync.Mutex // guards lk, activated
	reqMtx    sync.Mutex // strict turn taking: one request in flight
	lk        *link
	activated bool
}

// link bundles one connection with its channels. The input loop only ever
// touches its own link, so a reader goroutine left over from a closed
// connection can never reach the channels of a newer one.
type link struct {
	conn    net.Conn
	closing chan struct{}
	inChan  chan *message
	errChan chan error

	writeMtx sync.Mutex
}

func newLink(conn net.Conn) *link {
	return &link{
		conn:    conn,
		closing: make(chan struct{}),
		inChan:  make(chan *message, 1),
		errChan: make(chan error, 1),
	}
}

type message struct {
	ptype  PayloadType
	source uint16
	target uint16
	data   []byte
}

// Option configures a Session.
type Option func(*Session)

// WithLogger attaches a logger to the session.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Session) { s.log = log }
}

// WithReadTimeout overrides the per-receive timeout.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Session) { s.readTimeout = d }
}

// NewSession prepares a session for the given tester source address and
// gateway endpoint ("host:port"). Nothing is dialed until Connect.
func NewSession(source uint16, gateway string, opts ...Option) *Session {
	s := &Session{
		log:         zerolog.Nop(),
		source:      source,
		gateway:     gateway,
		readTimeout: DefaultReadTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Source returns the tester logical address the session was created with.
func (s *Session) Source() uint16 { return s.source }

// Connected reports whether the session holds an open, routing-activated
// connection.
func (s *Session) Connected() bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.lk != nil && s.activated
}

// Connect dials the gateway and performs the routing activation handshake.
// On any failure the connection is torn down and the session stays
// unauthenticated; there is no automatic retry.
func (s *Session) Connect() error {
	s.mtx.Lock()
	if s.lk != nil {
		s.mtx.Unlock()
		return nil
	}
	conn, err := net.DialTimeout("tcp", s.gateway, s.readTimeout)
	if err != nil {
		s.mtx.Unlock()
		return &ConnectionError{Op: "connect " + s.gateway, Err: err}
	}
	lk := newLink(conn)
	s.lk = lk
	go s.inputLoop(lk)
	s.mtx.Unlock()

	s.log.Debug().Str("gateway", s.gateway).Msg("socket connected")

	if err := s.activate(lk); err != nil {
		s.log.Debug().Err(err).Msg("routing activation failed")
		s.Disconnect()
		return err
	}

	s.mtx.Lock()
	s.activated = true
	s.mtx.Unlock()
	s.log.Debug().Uint16("source", s.source).Msg("routing activated")
	return nil
}

// Disconnect closes the connection. It is idempotent and unblocks any
// pending receive with ErrDisconnected.
func (s *Session) Disconnect() {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.lk == nil {
		return
	}
	close(s.lk.closing)
	if err := s.lk.conn.Close(); err != nil {
		s.log.Debug().Err(err).Msg("closing socket")
	}
	s.lk = nil
	s.activated = false
}

// Exchange sends one UDS request to the target ECU and blocks for a single
// diagnostic message response. It fails with ErrNotActivated, without
// touching the socket, until routing activation has succeeded.
func (s *Session) Exchange(target uint16, data []byte) ([]byte, error) {
	s.mtx.Lock()
	lk := s.lk
	ready := lk != nil && s.activated
	s.mtx.Unlock()
	if !ready {
		return nil, ErrNotActivated
	}

	s.reqMtx.Lock()
	defer s.reqMtx.Unlock()

	// A response to a timed-out request may still be sitting in the
	// channels; it must not be mistaken for the answer to this one.
	lk.drain()

	if err := s.send(lk, DiagnosticMessage, diagnosticPayload(s.source, target, data)); err != nil {
		return nil, err
	}
	m, err := s.receive(lk)
	if err != nil {
		return nil, err
	}
	if m.ptype != DiagnosticMessage {
		return nil, &ProtocolError{Want: DiagnosticMessage, Got: m.ptype}
	}
	return m.data, nil
}

func (s *Session) send(lk *link, t PayloadType, payload []byte) error {
	buf := EncodeFrame(t, payload)
	lk.writeMtx.Lock()
	defer lk.writeMtx.Unlock()
	if lk.closed() {
		return ErrDisconnected
	}
	if _, err := lk.conn.Write(buf); err != nil {
		return &ConnectionError{Op: "send", Err: err}
	}
	return nil
}

func (s *Session) receive(lk *link) (*message, error) {
	select {
	case m, ok := <-lk.inChan:
		if !ok {
			return nil, ErrDisconnected
		}
		return m, nil
	case err, ok := <-lk.errChan:
		if !ok {
			return nil, ErrDisconnected
		}
		return nil, err
	case <-time.After(s.readTimeout):
		return nil, ErrTimeout
	}
}

// activate performs the one-shot routing activation handshake. The gateway
// reports the activation result at byte 13 of the full response; anything
// other than 0x10, or a response shorter than 14 bytes, is a refusal.
func (s *Session) activate(lk *link) error {
	if err := s.send(lk, RoutingActivationRequest, activationPayload(s.source)); err != nil {
		return err
	}
	m, err := s.receive(lk)
	if err != nil {
		return err
	}
	if m.ptype != RoutingActivationResponse {
		return &ProtocolError{Want: RoutingActivationResponse, Got: m.ptype}
	}
	full := headerLen + len(m.data)
	if full < minActivationResponseLen {
		return &ActivationError{ResponseLen: full}
	}
	code := m.data[activationResultOffset-headerLen]
	if code != RoutingSuccessfullyActivated {
		return &ActivationError{Code: code, ResponseLen: full}
	}
	return nil
}

// inputLoop reads frames off the socket until the connection closes: the
// 8-byte header first, then exactly the declared payload.
func (s *Session) inputLoop(lk *link) {
	defer close(lk.inChan)
	defer close(lk.errChan)

	var header [headerLen]byte
	for {
		if _, err := io.ReadFull(lk.conn, header[:]); err != nil {
			if !lk.closed() && err != io.EOF && err != io.ErrUnexpectedEOF {
				s.log.Debug().Err(err).Msg("reading frame header")
			}
			return
		}
		if header[0] != ProtocolVersion || header[1] != InverseProtocolVersion {
			// The stream is desynced: nothing says where the next frame
			// starts. Surface the error and drop the connection.
			lk.deliverErr(&FramingError{Reason: "protocol version mismatch"})
			lk.conn.Close()
			return
		}
		ptype := PayloadType(binary.BigEndian.Uint16(header[2:4]))
		size := binary.BigEndian.Uint32(header[4:8])
		payload := make([]byte, size)
		if _, err := io.ReadFull(lk.conn, payload); err != nil {
			if !lk.closed() && err != io.EOF && err != io.ErrUnexpectedEOF {
				s.log.Debug().Err(err).Msg("reading frame payload")
			}
			return
		}
		s.dispatch(lk, ptype, payload)
	}
}

func (s *Session) dispatch(lk *link, ptype PayloadType, payload []byte) {
	switch ptype {
	case RoutingActivationResponse:
		if len(payload) < 4 {
			lk.deliverErr(&FramingError{Reason: "routing activation response too short", Actual: len(payload)})
			return
		}
		// Keep the whole payload: the activation result offset is defined
		// on the full response.
		lk.deliver(&message{
			ptype:  ptype,
			source: binary.BigEndian.Uint16(payload[2:4]),
			target: binary.BigEndian.Uint16(payload[0:2]),
			data:   payload,
		})

	case DiagnosticMessage:
		if len(payload) < 4 {
			lk.deliverErr(&FramingError{Reason: "diagnostic message too short", Actual: len(payload)})
			return
		}
		target := binary.BigEndian.Uint16(payload[2:4])
		if target != s.source {
			lk.deliverErr(&AddressError{Got: target, Want: s.source})
			return
		}
		lk.deliver(&message{
			ptype:  ptype,
			source: binary.BigEndian.Uint16(payload[0:2]),
			target: target,
			data:   payload[4:],
		})

	case DiagnosticMessageNegAck:
		code := byte(0)
		if len(payload) >= 5 {
			code = payload[4]
		}
		lk.deliverErr(&NackError{Type: ptype, Code: code})

	case GenericNegativeAck:
		code := byte(0)
		if len(payload) > 0 {
			code = payload[0]
		}
		lk.deliverErr(&NackError{Type: ptype, Code: code})

	case DiagnosticMessagePosAck:
		// Gateways ack each diagnostic request before forwarding it.
		// Only the routed response matters to the caller.

	case AliveCheckResponse:
		// Nothing waits on alive checks.

	default:
		lk.deliverErr(&ProtocolError{Got: ptype})
	}
}

func (lk *link) deliver(m *message) {
	select {
	case lk.inChan <- m:
	case <-lk.closing:
	}
}

func (lk *link) deliverErr(err error) {
	select {
	case lk.errChan <- err:
	case <-lk.closing:
	}
}

func (lk *link) closed() bool {
	select {
	case <-lk.closing:
		return true
	default:
		return false
	}
}

// drain discards anything buffered for a request that already gave up.
func (lk *link) drain() {
	for {
		select {
		case _, ok := <-lk.inChan:
			if !ok {
				return
			}
		case _, ok := <-lk.errChan:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
