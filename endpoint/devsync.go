package endpoint

import (
	"context"
	"sync"
	"time"

	"github.com/tangb/remotedev/executor"
	"github.com/tangb/remotedev/internal/rdlog"
	"github.com/tangb/remotedev/logpipe"
	"github.com/tangb/remotedev/request"
	"github.com/tangb/remotedev/transport"
)

// outboxCapacity bounds DevSync's outbound queue; a full queue means the
// connection is unhealthy and new FILE requests are dropped rather than
// blocking C3's watcher goroutine.
const outboxCapacity = 256

// DevSync owns the dev side's connection to a single exec host: it opens
// the tunnel, negotiates the PING/PONG handshake, forwards FILE requests
// from C3 outbound, and dispatches inbound LOG/FILE/GOODBYE requests to
// C5's DevWriter, C4's Executor, and the reconnect loop respectively
// (spec.md §4.7).
type DevSync struct {
	cfg  transport.TunnelConfig
	host string

	executor  *executor.Executor
	logWriter *logpipe.DevWriter
	history   *History

	outbox chan *request.Request

	mu    sync.Mutex
	state State
}

// NewDevSync builds a DevSync for cfg.Host, applying inbound FILE
// requests with exec and writing inbound LOG requests through logWriter.
func NewDevSync(cfg transport.TunnelConfig, exec *executor.Executor, logWriter *logpipe.DevWriter) *DevSync {
	return &DevSync{
		cfg:       cfg,
		host:      cfg.Host,
		executor:  exec,
		logWriter: logWriter,
		history:   NewHistory(),
		outbox:    make(chan *request.Request, outboxCapacity),
	}
}

// Send is the watch.Sink wired to this host's C3 watcher: it enqueues req
// for the next session's send loop, dropping it if the outbox is full.
func (d *DevSync) Send(req *request.Request) {
	select {
	case d.outbox <- req:
	default:
		rdlog.Errorf("endpoint.DevSync", "outbox full for %s, dropping %s %s", d.host, req.Action, req.Src)
	}
}

// State reports the current connection state.
func (d *DevSync) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *DevSync) setState(s State) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

// Run drives the connect/handshake/session/reconnect loop until ctx is
// cancelled.
func (d *DevSync) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		tunnel, err := transport.Open(d.cfg)
		if err != nil {
			rdlog.Errorf("endpoint.DevSync", "tunnel to %s: %v", d.host, err)
			if !d.sleep(ctx, transport.ReconnectInterval) {
				return
			}
			continue
		}
		d.setState(TunnelOpen)

		sock, err := transport.Dial(tunnel.LocalAddr())
		if err != nil {
			rdlog.Errorf("endpoint.DevSync", "socket to %s: %v", d.host, err)
			_ = tunnel.Close()
			if !d.sleep(ctx, transport.ReconnectInterval) {
				return
			}
			continue
		}
		d.setState(SocketOpen)

		if err := sock.Handshake(); err != nil {
			rdlog.Errorf("endpoint.DevSync", "handshake with %s: %v", d.host, err)
			_ = sock.Close()
			_ = tunnel.Close()
			if !d.sleep(ctx, transport.ReconnectInterval) {
				return
			}
			continue
		}

		d.setState(Ready)
		d.runSession(ctx, sock)

		_ = sock.Close()
		_ = tunnel.Close()
		d.setState(Disconnected)

		if !d.sleep(ctx, transport.ReconnectInterval) {
			return
		}
	}
}

// sleep waits for dur, reporting false if ctx was cancelled first.
func (d *DevSync) sleep(ctx context.Context, dur time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(dur):
		return true
	}
}

// runSession drives one connected session until the socket is lost, send
// failures exceed the limit, GOODBYE is received, or ctx is cancelled.
func (d *DevSync) runSession(ctx context.Context, sock *transport.Socket) {
	ticker := time.NewTicker(transport.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = sock.Send(request.Goodbye())
			return

		case req := <-d.outbox:
			if req.Kind == request.KindFile {
				d.history.Push(request.FingerprintOf(req))
			}
			if err := sock.Send(req); err != nil {
				rdlog.Errorf("endpoint.DevSync", "send to %s: %v", d.host, err)
				if err == transport.ErrTooManySendFailures {
					return
				}
			}

		case <-ticker.C:
			reqs, err := sock.Poll()
			if err != nil {
				rdlog.Errorf("endpoint.DevSync", "poll %s: %v", d.host, err)
				return
			}
			for _, r := range reqs {
				if d.dispatch(r) {
					return
				}
			}
		}
	}
}

// dispatch applies one inbound request and reports whether the session
// should end (GOODBYE).
func (d *DevSync) dispatch(r *request.Request) (done bool) {
	switch r.Kind {
	case request.KindFile:
		fp := request.FingerprintOf(r)
		if d.history.Contains(fp) {
			rdlog.Debugf("endpoint.DevSync", "suppressing echoed %s %s", r.Action, r.Src)
			return false
		}
		d.executor.Push(r)

	case request.KindLog:
		if err := d.logWriter.Write(d.host, r); err != nil {
			rdlog.Errorf("endpoint.DevSync", "writing log from %s: %v", d.host, err)
		}

	case request.KindGoodbye:
		rdlog.Infof("endpoint.DevSync", "%s said goodbye", d.host)
		return true

	case request.KindPing:
		d.Send(request.Pong())

	default:
		rdlog.Debugf("endpoint.DevSync", "unhandled inbound kind %s from %s", r.Kind, d.host)
	}
	return false
}
