package doip

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const serverReadTimeout = 15 * time.Second

// Handler answers decoded frames from a single tester connection. A new
// Handler is created per accepted connection, so implementations may keep
// per-connection state such as the routing activation gate.
type Handler interface {
	ServeDoIP(w ResponseWriter, f Frame)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ResponseWriter, Frame)

func (f HandlerFunc) ServeDoIP(w ResponseWriter, fr Frame) { f(w, fr) }

// ResponseWriter writes frames back to the tester of the current
// connection.
type ResponseWriter interface {
	// WriteFrame encodes and sends one complete frame.
	WriteFrame(t PayloadType, payload []byte) error
	// RemoteAddr returns the address of the connected tester.
	RemoteAddr() net.Addr
	// Close closes the connection.
	Close() error
}

type responseWriter struct {
	mu   sync.Mutex
	conn net.Conn
}

func (w *responseWriter) WriteFrame(t PayloadType, payload []byte) error {
	b := EncodeFrame(t, payload)
	w.mu.Lock()
	defer w.mu.Unlock()
	sent := 0
	for sent < len(b) {
		n, err := w.conn.Write(b[sent:])
		if err != nil {
			return &ConnectionError{Op: "write frame", Err: err}
		}
		sent += n
	}
	return nil
}

func (w *responseWriter) RemoteAddr() net.Addr { return w.conn.RemoteAddr() }

func (w *responseWriter) Close() error { return w.conn.Close() }

// Server accepts tester connections and feeds decoded frames to a
// per-connection Handler. It is the gateway-side counterpart of Session,
// used by the ECU simulator and the loopback tests.
type Server struct {
	// Addr to listen on when no Listener is supplied.
	Addr string
	// NewHandler is called once per accepted connection.
	NewHandler func() Handler
	// ReadTimeout bounds reads on idle connections.
	ReadTimeout time.Duration
	// Log defaults to a no-op logger.
	Log zerolog.Logger

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
}

// ListenAndServe listens on srv.Addr and serves until Shutdown.
func (srv *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}
	return srv.Serve(l)
}

// Serve accepts connections on l until the listener is closed.
func (srv *Server) Serve(l net.Listener) error {
	if srv.NewHandler == nil {
		return errors.New("doip: server has no handler")
	}
	srv.mu.Lock()
	srv.listener = l
	if srv.conns == nil {
		srv.conns = make(map[net.Conn]struct{})
	}
	srv.mu.Unlock()

	for {
		conn, err := l.Accept()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			srv.wg.Wait()
			return err
		}
		srv.Log.Debug().Stringer("remote", conn.RemoteAddr()).Msg("tester connected")
		srv.trackConn(conn, true)
		srv.wg.Add(1)
		go srv.serveConn(conn)
	}
}

// Shutdown closes the listener and every live connection, then waits for
// the per-connection goroutines to drain.
func (srv *Server) Shutdown() error {
	srv.mu.Lock()
	if srv.listener != nil {
		srv.listener.Close()
	}
	for c := range srv.conns {
		c.Close()
		delete(srv.conns, c)
	}
	srv.mu.Unlock()
	srv.wg.Wait()
	return nil
}

// LocalAddr returns the address the server is listening on.
func (srv *Server) LocalAddr() net.Addr {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.listener == nil {
		return nil
	}
	return srv.listener.Addr()
}

func (srv *Server) trackConn(c net.Conn, add bool) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if add {
		srv.conns[c] = struct{}{}
	} else {
		delete(srv.conns, c)
	}
}

func (srv *Server) serveConn(conn net.Conn) {
	defer srv.wg.Done()
	defer srv.trackConn(conn, false)
	defer conn.Close()

	h := srv.NewHandler()
	w := &responseWriter{conn: conn}
	timeout := srv.ReadTimeout
	if timeout == 0 {
		timeout = serverReadTimeout
	}

	for {
		f, err := readFrame(conn, timeout)
		if err != nil {
			var fe *FramingError
			if errors.As(err, &fe) {
				// Version or length breakage desyncs the stream: NACK and
				// drop the connection.
				w.WriteFrame(GenericNegativeAck, []byte{NackIncorrectPatternFormat})
			}
			srv.Log.Debug().Err(err).Stringer("remote", conn.RemoteAddr()).Msg("tester disconnected")
			return
		}
		h.ServeDoIP(w, f)
	}
}

// readFrame reads one complete frame from the connection: the fixed header,
// then exactly the declared payload length.
func readFrame(conn net.Conn, timeout time.Duration) (Frame, error) {
	conn.SetReadDeadline(time.Now().Add(timeout))
	var header [headerLen]byte
	if _, err := io.ReadFull(conn, header[:]); err != nil {
		return Frame{}, err
	}
	if header[0] != ProtocolVersion || header[1] != InverseProtocolVersion {
		return Frame{}, &FramingError{Reason: "protocol version mismatch"}
	}
	size := binary.BigEndian.Uint32(header[4:8])
	payload := make([]byte, size)
	if _, err := io.ReadFull(conn, payload); err != nil {
		return Frame{}, err
	}
	return Frame{
		Type:    PayloadType(binary.BigEndian.Uint16(header[2:4])),
		Payload: payload,
	}, nil
}

// RunLocalServer starts a server on addr (use "127.0.0.1:0" in tests) and
// returns once it is accepting connections.
func RunLocalServer(addr string, newHandler func() Handler, log zerolog.Logger) (*Server, *net.TCPAddr, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}
	srv := &Server{
		Addr:       addr,
		NewHandler: newHandler,
		Log:        log,
	}
	go srv.Serve(l)
	return srv, l.Addr().(*net.TCPAddr), nil
}
