package transport

import (
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/tangb/remotedev/internal/rdlog"
	"github.com/tangb/remotedev/request"
)

// Timing constants from spec.md §4.6.
const (
	PollInterval      = 250 * time.Millisecond
	HandshakeTimeout  = 500 * time.Millisecond
	MaxEmptyReads     = 8
	MaxSendFailures   = 10
	ReconnectInterval = 2 * time.Second
)

// ErrTooManySendFailures is returned by Send once MaxSendFailures
// consecutive sends have failed, the condition spec.md §7 treats as
// fatal to the endpoint.
var ErrTooManySendFailures = errors.New("too many consecutive send failures")

// ErrLostConnection is returned by the receive loop after MaxEmptyReads
// consecutive empty polls.
var ErrLostConnection = errors.New("connection appears lost")

// Socket wraps a TCP connection (normally dialed at a Tunnel's
// LocalAddr) with the request codec, a send mutex so concurrent
// producers never interleave frames (spec.md §5), and the consecutive
// empty-read/send-failure bookkeeping from spec.md §4.6.
type Socket struct {
	conn net.Conn

	sendMu       sync.Mutex
	sendFailures int
	dec          *request.Decoder
	emptyReads   int
	readBuf      []byte
}

// Dial connects to addr (a Tunnel's LocalAddr, or any framed peer for
// tests) and wraps the connection.
func Dial(addr string) (*Socket, error) {
	conn, err := net.DialTimeout("tcp", addr, HandshakeTimeout)
	if err != nil {
		return nil, errors.Wrap(err, "dial")
	}
	return NewSocket(conn), nil
}

// NewSocket wraps an already-connected net.Conn.
func NewSocket(conn net.Conn) *Socket {
	return &Socket{conn: conn, dec: request.NewDecoder(), readBuf: make([]byte, 64*1024)}
}

// Close closes the underlying connection.
func (s *Socket) Close() error { return s.conn.Close() }

// Send encodes and writes req, serialized against concurrent senders.
// After MaxSendFailures consecutive failures it returns
// ErrTooManySendFailures, which callers treat as fatal to the endpoint.
func (s *Socket) Send(req *request.Request) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if err := request.Encode(s.conn, req); err != nil {
		s.sendFailures++
		if s.sendFailures >= MaxSendFailures {
			return ErrTooManySendFailures
		}
		return err
	}
	s.sendFailures = 0
	return nil
}

// Poll performs one read attempt with PollInterval as the per-read
// deadline, feeding any bytes into the decoder and returning whatever
// complete requests are now available. It tracks consecutive empty
// reads, returning ErrLostConnection once MaxEmptyReads is reached.
func (s *Socket) Poll() ([]*request.Request, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(PollInterval)); err != nil {
		return nil, err
	}

	n, err := s.conn.Read(s.readBuf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			s.emptyReads++
			if s.emptyReads >= MaxEmptyReads {
				return nil, ErrLostConnection
			}
			return nil, nil
		}
		return nil, err
	}
	if n == 0 {
		s.emptyReads++
		if s.emptyReads >= MaxEmptyReads {
			return nil, ErrLostConnection
		}
		return nil, nil
	}

	s.emptyReads = 0
	s.dec.Feed(s.readBuf[:n])

	var out []*request.Request
	for {
		req, err := s.dec.Next()
		if err == request.ErrNeedMore {
			break
		}
		if err != nil {
			rdlog.Errorf("transport.Socket", "decode: %v", err)
			continue
		}
		out = append(out, req)
	}
	return out, nil
}

// Handshake sends PING and waits up to HandshakeTimeout for a PONG,
// treating anything else (including silence) as "service not really
// running" per spec.md §4.6.
func (s *Socket) Handshake() error {
	if err := s.Send(request.Ping()); err != nil {
		return errors.Wrap(err, "send ping")
	}

	deadline := time.Now().Add(HandshakeTimeout)
	for time.Now().Before(deadline) {
		reqs, err := s.Poll()
		if err != nil && err != ErrLostConnection {
			return err
		}
		for _, r := range reqs {
			if r.Kind == request.KindPong {
				return nil
			}
		}
	}
	return errors.New("handshake timed out waiting for PONG")
}
