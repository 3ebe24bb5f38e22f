package logpipe

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tangb/remotedev/internal/rdlog"
	"github.com/tangb/remotedev/request"
)

// pollInterval is how often Tail checks the watched file for new lines.
const pollInterval = 500 * time.Millisecond

// Tail follows path, emitting one LOG request per complete line, and
// persists its read offset next to the file so a restart resumes instead
// of replaying already-shipped lines (spec.md §4.5's restart-safe offset
// file, grounded on the original's Pygtail-based LogFileWatcher).
type Tail struct {
	path       string
	offsetPath string
	sink       Sink
}

// NewTail builds a Tail over path. The offset file lives alongside it as
// path+".offset", which watch.Filter's caller is expected to add to its
// drop-list so the watcher does not react to Tail's own writes.
func NewTail(path string, sink Sink) *Tail {
	return &Tail{path: path, offsetPath: path + ".offset", sink: sink}
}

// OffsetPath returns the path of the restart-safe offset file.
func (t *Tail) OffsetPath() string { return t.offsetPath }

// Run follows the file until ctx is cancelled, polling at pollInterval.
func (t *Tail) Run(ctx context.Context) error {
	offset := t.readOffset()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			var err error
			offset, err = t.readNewLines(offset)
			if err != nil {
				rdlog.Errorf("logpipe.Tail", "reading %s: %v", t.path, err)
			}
		}
	}
}

func (t *Tail) readNewLines(offset int64) (int64, error) {
	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return offset, nil
		}
		return offset, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return offset, err
	}
	if info.Size() < offset {
		// Truncated or rotated out from under us; restart from the top.
		offset = 0
	}
	if info.Size() == offset {
		return offset, nil
	}

	if _, err := f.Seek(offset, 0); err != nil {
		return offset, err
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	// Only newline-terminated lines are tokens; a trailing partial line is
	// left unread until a later poll sees its newline.
	scanner.Split(func(data []byte, atEOF bool) (int, []byte, error) {
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			return i + 1, data[:i], nil
		}
		return 0, nil, nil
	})
	var consumed int64 = offset
	for scanner.Scan() {
		line := scanner.Text()
		consumed += int64(len(line)) + 1 // +1 for the newline the split function stripped
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if t.sink != nil {
			t.sink(&request.Request{Kind: request.KindLog, LogMessage: line})
		}
	}
	if err := scanner.Err(); err != nil {
		return offset, err
	}

	t.writeOffset(consumed)
	return consumed, nil
}

func (t *Tail) readOffset() int64 {
	data, err := os.ReadFile(t.offsetPath)
	if err != nil {
		return 0
	}
	n, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func (t *Tail) writeOffset(n int64) {
	if err := os.WriteFile(t.offsetPath, []byte(strconv.FormatInt(n, 10)), 0o644); err != nil {
		rdlog.Errorf("logpipe.Tail", "persisting offset for %s: %v", t.path, err)
	}
}
