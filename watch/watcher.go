package watch

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tangb/remotedev/internal/rdlog"
)

// renamePairWindow bounds how long a bare Remove is held waiting for a
// paired Create on a new path. On Linux a single rename surfaces through
// inotify as IN_MOVED_FROM followed immediately by IN_MOVED_TO, which
// fsnotify reports as a Rename event on the old name with no new name
// attached; the corresponding Create on the new name normally arrives in
// the very next read of the same batch. This mirrors the teacher's
// backend/local/changenotify_other.go accumulation strategy of treating
// watcher output as a small window of related events rather than one
// event at a time.
const renamePairWindow = 50 * time.Millisecond

// Watcher recursively watches root with fsnotify and feeds translated
// ChangeEvents to a Builder; its known-path bookkeeping mirrors the
// teacher's changenotify loop so a directory's entry type is known even
// on removal.
type Watcher struct {
	root    string
	builder *Builder
	fsw     *fsnotify.Watcher

	known map[string]bool // path -> isDir

	pendingRemove     *ChangeEvent
	pendingRemoveTime time.Time
}

// NewWatcher creates a recursive fsnotify watch rooted at root and wires
// it to builder.
func NewWatcher(root string, builder *Builder) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{root: root, builder: builder, fsw: fsw, known: map[string]bool{}}
	if err := w.addRecursive(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			rdlog.Errorf("watch.Watcher", "walk %s: %v", p, err)
			return nil
		}
		if info.IsDir() {
			if err := w.fsw.Add(p); err != nil {
				rdlog.Errorf("watch.Watcher", "failed to watch %s: %v", p, err)
			}
			w.known[p] = true
		} else {
			w.known[p] = false
		}
		return nil
	})
}

// Run consumes fsnotify events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(renamePairWindow)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = w.fsw.Close()
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleFsnotify(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			rdlog.Errorf("watch.Watcher", "error: %v", err)
		case <-ticker.C:
			w.flushStalePendingRemove()
		}
	}
}

func (w *Watcher) handleFsnotify(ev fsnotify.Event) {
	isDir := w.known[ev.Name]

	switch {
	case ev.Has(fsnotify.Create):
		info, err := os.Lstat(ev.Name)
		if err == nil {
			isDir = info.IsDir()
			w.known[ev.Name] = isDir
			if isDir {
				if err := w.fsw.Add(ev.Name); err != nil {
					rdlog.Errorf("watch.Watcher", "failed to watch %s: %v", ev.Name, err)
				}
			}
		}
		if w.tryPairAsMove(ev.Name, isDir) {
			return
		}
		w.builder.Handle(&ChangeEvent{Op: OpCreate, SrcPath: ev.Name, IsDir: isDir})

	case ev.Has(fsnotify.Write):
		w.flushStalePendingRemove()
		w.builder.Handle(&ChangeEvent{Op: OpUpdate, SrcPath: ev.Name, IsDir: isDir})

	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		delete(w.known, ev.Name)
		w.flushStalePendingRemove()
		if isDir {
			w.builder.Handle(&ChangeEvent{Op: OpDelete, SrcPath: ev.Name, IsDir: true})
			return
		}
		w.pendingRemove = &ChangeEvent{Op: OpDelete, SrcPath: ev.Name, IsDir: false}
		w.pendingRemoveTime = time.Now()
	}
}

// tryPairAsMove pairs a just-seen Create with a recently pending Remove
// into a single MOVE event, per renamePairWindow.
func (w *Watcher) tryPairAsMove(newPath string, isDir bool) bool {
	if w.pendingRemove == nil || time.Since(w.pendingRemoveTime) > renamePairWindow {
		return false
	}
	moved := &ChangeEvent{Op: OpMove, SrcPath: w.pendingRemove.SrcPath, DestPath: newPath, IsDir: isDir}
	w.pendingRemove = nil
	w.builder.Handle(moved)
	return true
}

func (w *Watcher) flushStalePendingRemove() {
	if w.pendingRemove == nil || time.Since(w.pendingRemoveTime) <= renamePairWindow {
		return
	}
	pending := w.pendingRemove
	w.pendingRemove = nil
	w.builder.Handle(pending)
}
