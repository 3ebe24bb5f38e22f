package endpoint

import (
	"context"
	"sync"
	"time"

	"github.com/tangb/remotedev/executor"
	"github.com/tangb/remotedev/internal/rdlog"
	"github.com/tangb/remotedev/request"
	"github.com/tangb/remotedev/transport"
)

// ExecSync owns one accepted client connection on the exec side. Unlike
// DevSync it never reconnects: on socket loss or GOODBYE it ends its
// session and lets the supervisor accept a fresh client (spec.md §4.7,
// §4.8).
type ExecSync struct {
	sock *transport.Socket

	executor *executor.Executor
	history  *History

	outbox chan *request.Request

	mu      sync.Mutex
	state   State
	stopped bool
	done    chan struct{}
}

// NewExecSync wraps an already-accepted client socket. FILE requests
// received are applied via exec; LOG and FILE requests produced locally
// (by this exec host's own C5 log source and C3 watcher) are sent
// through Send.
func NewExecSync(sock *transport.Socket, exec *executor.Executor) *ExecSync {
	return &ExecSync{
		sock:     sock,
		executor: exec,
		history:  NewHistory(),
		outbox:   make(chan *request.Request, outboxCapacity),
		state:    Ready,
		done:     make(chan struct{}),
	}
}

// Send is the sink wired to both this host's C5 log source and its C3
// watcher: FILE requests pushed here are the ones spec.md §4.7's shared
// behavior section describes as the exec-side watcher's echo of a
// just-applied change, suppressed on arrival by DevSync's own send
// history rather than here.
func (e *ExecSync) Send(req *request.Request) {
	select {
	case e.outbox <- req:
	default:
		rdlog.Errorf("endpoint.ExecSync", "outbox full, dropping %s", req.Kind)
	}
}

// State reports the current connection state.
func (e *ExecSync) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Stop ends the session: a GOODBYE is sent best-effort and the socket is
// closed, unblocking Run. Used by the supervisor when a new client
// arrives while this one is still active.
func (e *ExecSync) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	e.state = Draining
	e.mu.Unlock()

	_ = e.sock.Send(request.Goodbye())
	_ = e.sock.Close()
	<-e.done
}

// Run drives the receive/send loop until the socket is lost, GOODBYE
// arrives, or ctx is cancelled.
func (e *ExecSync) Run(ctx context.Context) {
	defer close(e.done)

	ticker := time.NewTicker(transport.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = e.sock.Send(request.Goodbye())
			return

		case req := <-e.outbox:
			if req.Kind == request.KindFile {
				e.history.Push(request.FingerprintOf(req))
			}
			if err := e.sock.Send(req); err != nil {
				rdlog.Errorf("endpoint.ExecSync", "send: %v", err)
				if err == transport.ErrTooManySendFailures {
					return
				}
			}

		case <-ticker.C:
			reqs, err := e.sock.Poll()
			if err != nil {
				rdlog.Errorf("endpoint.ExecSync", "poll: %v", err)
				return
			}
			for _, r := range reqs {
				if e.dispatch(r) {
					return
				}
			}
		}
	}
}

func (e *ExecSync) dispatch(r *request.Request) (done bool) {
	switch r.Kind {
	case request.KindFile:
		fp := request.FingerprintOf(r)
		if e.history.Contains(fp) {
			rdlog.Debugf("endpoint.ExecSync", "suppressing echoed %s %s", r.Action, r.Src)
			return false
		}
		e.executor.Push(r)

	case request.KindPing:
		e.Send(request.Pong())

	case request.KindLog:
		rdlog.Noticef("endpoint.ExecSync", "unexpected inbound LOG request, dropping")

	case request.KindGoodbye:
		rdlog.Infof("endpoint.ExecSync", "client said goodbye")
		return true

	default:
		rdlog.Debugf("endpoint.ExecSync", "unhandled inbound kind %s", r.Kind)
	}
	return false
}
