// Package executor applies FILE requests to the local filesystem on the
// exec side, honoring the configured path mappings and optional symlink
// creation.
package executor

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/tangb/remotedev/internal/rdlog"
	"github.com/tangb/remotedev/pathmap"
	"github.com/tangb/remotedev/request"
)

// queueCapacity is the bounded queue size from spec.md §4.4/§5.
const queueCapacity = 200

// idleSleep is how long the worker loop waits when the queue is empty,
// per spec.md §5.
const idleSleep = 250 * time.Millisecond

// Executor consumes FILE requests from a bounded, newest-first queue and
// applies them to the local filesystem.
type Executor struct {
	mapper pathmap.Mapper

	mu    sync.Mutex
	queue []*request.Request // index 0 is newest; last index is oldest

	stop chan struct{}
	done chan struct{}
}

// New builds an Executor that rewrites paths with mapper before applying
// them.
func New(mapper pathmap.Mapper) *Executor {
	return &Executor{
		mapper: mapper,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Push enqueues req at the front of the queue. When the queue is already
// at capacity, the oldest entry (at the back) is dropped — the newest-
// first ring discipline from spec.md §4.4.
func (e *Executor) Push(req *request.Request) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue = append([]*request.Request{req}, e.queue...)
	if len(e.queue) > queueCapacity {
		e.queue = e.queue[:queueCapacity]
	}
}

// Len reports the number of requests currently queued.
func (e *Executor) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// popOldest removes and returns the request at the back of the queue, or
// nil if the queue is empty.
func (e *Executor) popOldest() *request.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return nil
	}
	last := len(e.queue) - 1
	req := e.queue[last]
	e.queue = e.queue[:last]
	return req
}

// Run drives the worker loop until Stop is called.
func (e *Executor) Run() {
	defer close(e.done)
	for {
		select {
		case <-e.stop:
			return
		default:
		}
		req := e.popOldest()
		if req == nil {
			time.Sleep(idleSleep)
			continue
		}
		if err := e.Apply(req); err != nil {
			rdlog.Errorf("executor.Executor", "apply %s %s %s failed: %v", req.Action, req.Type, req.Src, err)
		}
	}
}

// Stop requests the worker loop to exit and waits for it to do so.
func (e *Executor) Stop() {
	close(e.stop)
	<-e.done
}

// Apply rewrites req's paths through the mapper and applies the mutation.
// Unmappable requests are dropped (logged at debug), matching spec.md
// §7's "unmappable path" error class. All actions are best-effort
// idempotent; filesystem failures are returned to the caller to log, not
// to stop the executor.
func (e *Executor) Apply(req *request.Request) error {
	src, ok := e.mapper.FromWire(req.Src)
	if !ok {
		rdlog.Debugf("executor.Executor", "unmappable src %q, dropping", req.Src)
		return nil
	}

	var dest string
	if req.Action == request.ActionMove {
		dest, ok = e.mapper.FromWire(req.Dest)
		if !ok {
			rdlog.Debugf("executor.Executor", "unmappable dest %q, dropping", req.Dest)
			return nil
		}
	}

	isDir := req.Type == request.TypeDir

	switch req.Action {
	case request.ActionCreate:
		return e.applyCreate(req, src, isDir)
	case request.ActionDelete:
		return e.applyDelete(src, isDir)
	case request.ActionMove:
		return e.applyMove(req, src, dest, isDir)
	case request.ActionUpdate:
		return e.applyUpdate(req, src, isDir)
	default:
		rdlog.Errorf("executor.Executor", "unhandled action %s for %s", req.Action, req.Src)
		return nil
	}
}

func (e *Executor) applyCreate(req *request.Request, src string, isDir bool) error {
	if isDir {
		if err := os.MkdirAll(src, 0o777); err != nil {
			return errors.Wrap(err, "create directory")
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(src), 0o777); err != nil {
		return errors.Wrap(err, "create parent directory")
	}
	if err := os.WriteFile(src, req.Content, 0o666); err != nil {
		return errors.Wrap(err, "write file")
	}
	return e.ensureSymlink(src)
}

func (e *Executor) applyDelete(src string, isDir bool) error {
	if isDir {
		if err := os.RemoveAll(src); err != nil {
			return errors.Wrap(err, "remove directory")
		}
		return nil
	}

	if link, ok := e.mapper.LinkFor(src); ok && link != "" {
		if _, err := os.Lstat(link); err == nil {
			if err := os.Remove(link); err != nil {
				rdlog.Errorf("executor.Executor", "remove symlink %s: %v", link, err)
			}
		}
	}
	if err := os.Remove(src); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove file")
	}
	return nil
}

func (e *Executor) applyMove(req *request.Request, src, dest string, isDir bool) error {
	if _, err := os.Lstat(src); os.IsNotExist(err) {
		// The move was about a path outside the mapped region that had
		// already been filtered; silently drop per spec.md §4.4.
		rdlog.Debugf("executor.Executor", "move source %q missing, dropping", src)
		return nil
	}

	if !isDir {
		if oldLink, ok := e.mapper.LinkFor(req.Src); ok && oldLink != "" {
			if _, err := os.Lstat(oldLink); err == nil {
				if err := os.Remove(oldLink); err != nil {
					rdlog.Errorf("executor.Executor", "remove old symlink %s: %v", oldLink, err)
				}
			}
			if newLink, ok := e.mapper.LinkFor(req.Dest); ok && newLink != "" {
				if err := os.MkdirAll(filepath.Dir(newLink), 0o777); err != nil {
					rdlog.Errorf("executor.Executor", "create link parent %s: %v", newLink, err)
				} else if err := os.Symlink(dest, newLink); err != nil {
					rdlog.Errorf("executor.Executor", "create symlink %s -> %s: %v", newLink, dest, err)
				}
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o777); err != nil {
		return errors.Wrap(err, "create destination parent directory")
	}
	if err := os.Rename(src, dest); err != nil {
		return errors.Wrap(err, "rename")
	}
	return nil
}

func (e *Executor) applyUpdate(req *request.Request, src string, isDir bool) error {
	if isDir {
		rdlog.Debugf("executor.Executor", "update dropped for directory %s", src)
		return nil
	}
	if err := os.WriteFile(src, req.Content, 0o666); err != nil {
		return errors.Wrap(err, "write file")
	}
	return e.ensureSymlink(src)
}

// ensureSymlink creates the configured symlink for src if one is
// configured and does not already exist.
func (e *Executor) ensureSymlink(src string) error {
	link, ok := e.mapper.LinkFor(src)
	if !ok || link == "" {
		return nil
	}
	if _, err := os.Lstat(link); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(link), 0o777); err != nil {
		return errors.Wrap(err, "create symlink parent directory")
	}
	if err := os.Symlink(src, link); err != nil {
		return errors.Wrap(err, "create symlink")
	}
	return nil
}
