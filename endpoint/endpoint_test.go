package endpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tangb/remotedev/executor"
	"github.com/tangb/remotedev/logpipe"
	"github.com/tangb/remotedev/pathmap"
	"github.com/tangb/remotedev/request"
	"github.com/tangb/remotedev/transport"
)

func TestHistoryEvictsOldestPastCapacity(t *testing.T) {
	h := NewHistory()
	for i := 0; i < historyCapacity+1; i++ {
		h.Push(request.Fingerprint{Src: string(rune('a' + i))})
	}
	assert.False(t, h.Contains(request.Fingerprint{Src: "a"}), "oldest entry must have been evicted")
	assert.True(t, h.Contains(request.Fingerprint{Src: string(rune('a' + historyCapacity))}))
}

func TestHistoryContainsMatchesWithinWindow(t *testing.T) {
	h := NewHistory()
	fp := request.Fingerprint{Action: request.ActionUpdate, Src: "a.txt", Length: 3}
	h.Push(fp)
	h.Push(request.Fingerprint{Src: "unrelated.txt"})
	assert.True(t, h.Contains(fp))
}

func TestDevSyncDispatchSuppressesEchoedFile(t *testing.T) {
	root := t.TempDir()
	exec := executor.New(pathmap.NewDevMapper(root))
	d := NewDevSync(transport.TunnelConfig{Host: "remote1"}, exec, logpipe.NewDevWriter(t.TempDir()))

	fp := request.Fingerprint{Action: request.ActionUpdate, Src: "a.txt", Length: 2}
	d.history.Push(fp)

	echoed := &request.Request{Kind: request.KindFile, Action: request.ActionUpdate, Src: "a.txt", Content: []byte("hi")}
	done := d.dispatch(echoed)

	assert.False(t, done)
	assert.Equal(t, 0, exec.Len())
}

func TestDevSyncDispatchAppliesNovelFile(t *testing.T) {
	root := t.TempDir()
	exec := executor.New(pathmap.NewDevMapper(root))
	d := NewDevSync(transport.TunnelConfig{Host: "remote1"}, exec, logpipe.NewDevWriter(t.TempDir()))

	req := &request.Request{Kind: request.KindFile, Action: request.ActionUpdate, Src: "a.txt", Content: []byte("hi")}
	done := d.dispatch(req)

	assert.False(t, done)
	assert.Equal(t, 1, exec.Len())
}

func TestDevSyncDispatchGoodbyeEndsSession(t *testing.T) {
	root := t.TempDir()
	exec := executor.New(pathmap.NewDevMapper(root))
	d := NewDevSync(transport.TunnelConfig{Host: "remote1"}, exec, logpipe.NewDevWriter(t.TempDir()))

	assert.True(t, d.dispatch(request.Goodbye()))
}

func TestDevSyncDispatchWritesLog(t *testing.T) {
	dir := t.TempDir()
	root := t.TempDir()
	exec := executor.New(pathmap.NewDevMapper(root))
	d := NewDevSync(transport.TunnelConfig{Host: "remote1"}, exec, logpipe.NewDevWriter(dir))

	done := d.dispatch(&request.Request{Kind: request.KindLog, LogMessage: "hello"})
	assert.False(t, done)

	data, err := os.ReadFile(filepath.Join(dir, "remote_remote1.log"))
	assert.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}

func TestExecSyncDispatchAppliesFileAndSuppressesEcho(t *testing.T) {
	root := t.TempDir()
	exec := executor.New(pathmap.NewDevMapper(root))
	e := &ExecSync{executor: exec, history: NewHistory(), outbox: make(chan *request.Request, 4)}

	req := &request.Request{Kind: request.KindFile, Action: request.ActionCreate, Src: "new.txt", Content: []byte("x")}
	assert.False(t, e.dispatch(req))
	assert.Equal(t, 1, exec.Len())

	fp := request.Fingerprint{Action: request.ActionCreate, Src: "new2.txt", Length: 1}
	e.history.Push(fp)
	echoed := &request.Request{Kind: request.KindFile, Action: request.ActionCreate, Src: "new2.txt", Content: []byte("x")}
	assert.False(t, e.dispatch(echoed))
	assert.Equal(t, 1, exec.Len(), "echoed request must not have been queued")
}

func TestExecSyncDispatchGoodbyeEndsSession(t *testing.T) {
	e := &ExecSync{history: NewHistory(), outbox: make(chan *request.Request, 4)}
	assert.True(t, e.dispatch(request.Goodbye()))
}

func TestExecSyncDispatchPingRepliesPong(t *testing.T) {
	e := &ExecSync{history: NewHistory(), outbox: make(chan *request.Request, 4)}
	done := e.dispatch(request.Ping())
	assert.False(t, done)
	select {
	case r := <-e.outbox:
		assert.Equal(t, request.KindPong, r.Kind)
	default:
		t.Fatal("expected a PONG to be queued")
	}
}
