package logpipe

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/tangb/remotedev/internal/rdlog"
	"github.com/tangb/remotedev/request"
)

// InternalSource is an slog.Handler installed in front of the process's
// existing handler. Every record it sees is both forwarded to next (so
// local stderr output is unaffected) and converted to a LOG request
// handed to sink, matching the original's RemoteDevLogHandler which
// wrapped the root logger's emit().
type InternalSource struct {
	next  slog.Handler
	sink  Sink
	attrs []slog.Attr
}

// NewInternalSource wraps next, the handler to keep forwarding to, with a
// capture stage that ships every record as a LOG request via sink.
func NewInternalSource(next slog.Handler, sink Sink) *InternalSource {
	return &InternalSource{next: next, sink: sink}
}

// Enabled defers entirely to the wrapped handler.
func (s *InternalSource) Enabled(ctx context.Context, level slog.Level) bool {
	return s.next.Enabled(ctx, level)
}

// Handle builds a LOG request from r, ships it, then forwards r unchanged.
// Records with an empty message carry nothing useful and are not shipped,
// per spec.md §4.5.
func (s *InternalSource) Handle(ctx context.Context, r slog.Record) error {
	if r.Message == "" {
		return s.next.Handle(ctx, r)
	}

	rec := &request.LogRecord{
		Level:   rdlog.LevelName(r.Level),
		Message: r.Message,
	}
	if r.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{r.PC})
		frame, _ := frames.Next()
		rec.File = frame.File
		rec.Line = frame.Line
		rec.Function = frame.Function
	}

	applyAttr := func(a slog.Attr) bool {
		switch a.Key {
		case "logger":
			rec.Logger = a.Value.String()
		case "err", "error":
			if err, ok := a.Value.Any().(error); ok {
				rec.Stack = fmt.Sprintf("%+v", err)
			}
		}
		return true
	}
	for _, a := range s.attrs {
		applyAttr(a)
	}
	r.Attrs(applyAttr)

	if s.sink != nil {
		s.sink(&request.Request{Kind: request.KindLog, LogRecord: rec})
	}

	return s.next.Handle(ctx, r)
}

// WithAttrs threads through to the wrapped handler, preserving its
// forwarding behavior for attributed sub-loggers.
func (s *InternalSource) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(s.attrs)+len(attrs))
	merged = append(merged, s.attrs...)
	merged = append(merged, attrs...)
	return &InternalSource{next: s.next.WithAttrs(attrs), sink: s.sink, attrs: merged}
}

// WithGroup threads through to the wrapped handler.
func (s *InternalSource) WithGroup(name string) slog.Handler {
	return &InternalSource{next: s.next.WithGroup(name), sink: s.sink, attrs: s.attrs}
}
