// Package supervisor starts and stops the watchers and endpoints that
// make up one running side of the tool (spec.md §4.8).
package supervisor

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/tangb/remotedev/endpoint"
	"github.com/tangb/remotedev/executor"
	"github.com/tangb/remotedev/internal/rdlog"
	"github.com/tangb/remotedev/logpipe"
	"github.com/tangb/remotedev/pathmap"
	"github.com/tangb/remotedev/rdconfig"
	"github.com/tangb/remotedev/request"
	"github.com/tangb/remotedev/transport"
	"github.com/tangb/remotedev/watch"
)

// acceptDeadline bounds each Accept call so the loop can observe ctx
// cancellation promptly, per spec.md §4.8's 1 s accept timeout.
const acceptDeadline = time.Second

// ExecSupervisor listens for one dev client at a time, applies its FILE
// requests through a shared Executor, and ships this host's own file
// changes and logs to whichever client is currently connected.
type ExecSupervisor struct {
	profile rdconfig.ExecProfile
	mapper  *pathmap.ExecMapper
	exec    *executor.Executor

	mu     sync.Mutex
	active *endpoint.ExecSync
}

// NewExecSupervisor builds an ExecSupervisor from profile.
func NewExecSupervisor(profile rdconfig.ExecProfile) *ExecSupervisor {
	mapper := pathmap.NewExecMapper(profile.MappingConfigs())
	return &ExecSupervisor{
		profile: profile,
		mapper:  mapper,
		exec:    executor.New(mapper),
	}
}

// Run starts one watcher per configured mapping's destination directory,
// the configured log source, the executor worker, and the accept loop.
// It blocks until ctx is cancelled.
func (s *ExecSupervisor) Run(ctx context.Context) error {
	go s.exec.Run()
	defer s.exec.Stop()

	if err := s.startWatchers(ctx); err != nil {
		return err
	}

	s.startLogSource(ctx)

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", transport.ExecPort))
	if err != nil {
		return err
	}
	defer ln.Close()

	tcpLn, _ := ln.(*net.TCPListener)

	for {
		if ctx.Err() != nil {
			return nil
		}
		if tcpLn != nil {
			_ = tcpLn.SetDeadline(time.Now().Add(acceptDeadline))
		}
		conn, err := ln.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			rdlog.Errorf("supervisor.ExecSupervisor", "accept: %v", err)
			continue
		}
		s.replaceActive(ctx, conn)
	}
}

// replaceActive stops any previously running client session (one client
// at a time, per spec.md §4.8) and starts a fresh ExecSync on conn.
func (s *ExecSupervisor) replaceActive(ctx context.Context, conn net.Conn) {
	s.mu.Lock()
	prev := s.active
	s.mu.Unlock()
	if prev != nil {
		prev.Stop()
	}

	sock := transport.NewSocket(conn)
	es := endpoint.NewExecSync(sock, s.exec)

	s.mu.Lock()
	s.active = es
	s.mu.Unlock()

	go es.Run(ctx)
}

// forward hands req to the currently connected client, if any.
func (s *ExecSupervisor) forward(req *request.Request) {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	if active != nil {
		active.Send(req)
	}
}

func (s *ExecSupervisor) startWatchers(ctx context.Context) error {
	for _, m := range s.profile.MappingConfigs() {
		filter := watch.NewFilter("")
		if s.profile.LogFilePath != "" {
			filter.AddDropPath(s.profile.LogFilePath)
			filter.AddDropPath(s.profile.LogFilePath + ".offset")
		}
		builder := watch.NewBuilder(filter, s.mapper, s.forward)
		w, err := watch.NewWatcher(m.Dest, builder)
		if err != nil {
			return err
		}
		go w.Run(ctx)
	}
	return nil
}

func (s *ExecSupervisor) startLogSource(ctx context.Context) {
	switch s.profile.ResolvedLogMode() {
	case rdconfig.LogModeInternal:
		rdlog.SetHandler(logpipe.NewInternalSource(rdlog.Handler(), s.forward))
	case rdconfig.LogModeExternal:
		tail := logpipe.NewTail(s.profile.LogFilePath, s.forward)
		go func() {
			if err := tail.Run(ctx); err != nil {
				rdlog.Errorf("supervisor.ExecSupervisor", "log tail: %v", err)
			}
		}()
	}
}
