package logpipe

import (
	"fmt"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tangb/remotedev/request"
)

// rotation policy from spec.md §4.5/§6.
const (
	maxSizeMB  = 2
	maxBackups = 2
)

// DevWriter reassembles inbound LOG requests into a rotating file per
// remote host, named remote_<host>.log under dir.
type DevWriter struct {
	dir string

	mu      sync.Mutex
	writers map[string]*lumberjack.Logger
}

// NewDevWriter builds a DevWriter rooted at dir, the dev-side data
// directory holding one rotating file per remote host.
func NewDevWriter(dir string) *DevWriter {
	return &DevWriter{dir: dir, writers: map[string]*lumberjack.Logger{}}
}

// Write reconstructs req into a line and appends it to host's log file.
// log_record requests are formatted as "LEVEL file:line function: msg",
// with the captured stack appended on its own line when present;
// log_message requests are written verbatim.
func (w *DevWriter) Write(host string, req *request.Request) error {
	if req.IsEmptyLog() {
		return nil
	}
	line := formatLogRequest(req)
	_, err := w.loggerFor(host).Write([]byte(line))
	return err
}

// Close flushes and closes every per-host log file.
func (w *DevWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var firstErr error
	for _, l := range w.writers {
		if err := l.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (w *DevWriter) loggerFor(host string) *lumberjack.Logger {
	w.mu.Lock()
	defer w.mu.Unlock()
	if l, ok := w.writers[host]; ok {
		return l
	}
	l := &lumberjack.Logger{
		Filename:   filepath.Join(w.dir, fmt.Sprintf("remote_%s.log", host)),
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
	}
	w.writers[host] = l
	return l
}

func formatLogRequest(req *request.Request) string {
	if req.LogRecord != nil {
		r := req.LogRecord
		line := fmt.Sprintf("%s %s:%d %s: %s\n", r.Level, r.File, r.Line, r.Function, r.Message)
		if r.Stack != "" {
			line += r.Stack + "\n"
		}
		return line
	}
	return req.LogMessage + "\n"
}
