package watch

import (
	"os"

	"github.com/tangb/remotedev/internal/rdlog"
	"github.com/tangb/remotedev/pathmap"
	"github.com/tangb/remotedev/request"
)

// Sink receives built requests. It must not block: Builder calls it
// directly on the watcher's goroutine, and the endpoints' Send methods
// that serve as sinks enqueue with a buffered, non-blocking channel send
// that drops the request when the queue is full.
type Sink func(*request.Request)

// Builder turns accepted filesystem change events into FILE requests. It
// performs no reordering and no coalescing: each event it receives from
// the watcher is processed exactly once, in arrival order.
type Builder struct {
	filter *Filter
	mapper pathmap.Mapper
	sink   Sink
}

// NewBuilder wires a Filter, a Mapper, and the outbound sink together.
func NewBuilder(filter *Filter, mapper pathmap.Mapper, sink Sink) *Builder {
	return &Builder{filter: filter, mapper: mapper, sink: sink}
}

// Handle processes one change event: filtering (rules 1-7), path
// rewriting (rule 8), content loading and digesting, and the empty-file
// drop (rule 9).
func (b *Builder) Handle(ev *ChangeEvent) {
	if b.filter.ShouldDrop(ev) {
		rdlog.Debugf("watch.Builder", "filtered event %+v", ev)
		return
	}

	entryType := request.TypeFile
	if ev.IsDir {
		entryType = request.TypeDir
	}

	src, ok := b.mapper.ToWire(ev.SrcPath)
	if !ok {
		rdlog.Debugf("watch.Builder", "unmappable src %q, dropping", ev.SrcPath)
		return
	}

	var dest string
	if ev.Op == OpMove {
		dest, ok = b.mapper.ToWire(ev.DestPath)
		if !ok {
			rdlog.Debugf("watch.Builder", "unmappable dest %q, dropping", ev.DestPath)
			return
		}
	}

	req := &request.Request{
		Kind: request.KindFile,
		Type: entryType,
		Src:  src,
		Dest: dest,
	}

	switch ev.Op {
	case OpCreate:
		req.Action = request.ActionCreate
	case OpUpdate:
		req.Action = request.ActionUpdate
	case OpDelete:
		req.Action = request.ActionDelete
	case OpMove:
		req.Action = request.ActionMove
	}

	if !ev.IsDir && (ev.Op == OpCreate || ev.Op == OpUpdate) {
		content, err := os.ReadFile(ev.SrcPath)
		if err != nil {
			rdlog.Debugf("watch.Builder", "unable to read src file %q: %v", ev.SrcPath, err)
			return
		}
		if len(content) == 0 {
			rdlog.Debugf("watch.Builder", "dropping empty file %s", ev.SrcPath)
			return
		}
		req.Content = content
		req.Digest = request.Digest(content)
	}

	b.emit(req)
}

func (b *Builder) emit(req *request.Request) {
	if b.sink == nil {
		return
	}
	b.sink(req)
}
