package watch

import (
	"path/filepath"
	"strings"
	"sync"
)

// Filter applies the noise-reduction rules from spec.md §4.3 (rules 1-7;
// the mapping-dependent rules 8-9 live in Builder, which owns a Mapper).
type Filter struct {
	// ownPath is this watcher's own executable/script path (rule 1).
	ownPath string

	mu       sync.RWMutex
	dropList map[string]bool // rule 2, mutable via AddDropPath

	rejectedExtensions map[string]bool
	rejectedBasenames   map[string]bool
	rejectedSegments    map[string]bool
}

// NewFilter builds a Filter. ownPath is compared against incoming
// src_path values so a watcher never reacts to changes to itself;
// initialDropPaths seeds the explicit drop-list (e.g. a tailed log file).
func NewFilter(ownPath string, initialDropPaths ...string) *Filter {
	f := &Filter{
		ownPath:  ownPath,
		dropList: map[string]bool{},
		rejectedExtensions: map[string]bool{
			".swp": true, ".swpx": true, ".swx": true, ".tmp": true, ".offset": true,
		},
		rejectedBasenames: map[string]bool{
			"4913": true, ".gitignore": true,
		},
		rejectedSegments: map[string]bool{
			".git": true, ".vscode": true, ".editor": true,
		},
	}
	for _, p := range initialDropPaths {
		if p != "" {
			f.dropList[p] = true
		}
	}
	return f
}

// AddDropPath adds a path to the explicit drop-list at runtime, e.g. the
// supervisor wiring the tailed log file into each mapping's watcher.
func (f *Filter) AddDropPath(p string) {
	if p == "" {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropList[p] = true
}

func (f *Filter) isDropped(p string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropList[p]
}

// ShouldDrop reports whether ev must be dropped before it reaches the
// request builder, applying spec.md §4.3 rules 1 through 7 in order.
func (f *Filter) ShouldDrop(ev *ChangeEvent) bool {
	// Rule 1: empty/null event, own path, or "."
	if ev == nil || ev.SrcPath == "" || ev.SrcPath == f.ownPath || ev.SrcPath == "." {
		return true
	}

	// Rule 2: explicit drop-list.
	if f.isDropped(ev.SrcPath) {
		return true
	}

	// Rule 3: rejected extension.
	ext := filepath.Ext(ev.SrcPath)
	if f.rejectedExtensions[ext] {
		return true
	}

	// Rule 4: tilde prefix/suffix on src or dest.
	if hasTildeEdge(ev.SrcPath) || (ev.DestPath != "" && hasTildeEdge(ev.DestPath)) {
		return true
	}

	// Rule 5: rejected basename.
	if f.rejectedBasenames[filepath.Base(ev.SrcPath)] {
		return true
	}

	// Rule 6: rejected path segment.
	if containsRejectedSegment(ev.SrcPath, f.rejectedSegments) {
		return true
	}

	// Rule 7: MODIFIED (UPDATE) events on directories carry no useful
	// payload.
	if ev.Op == OpUpdate && ev.IsDir {
		return true
	}

	return false
}

func hasTildeEdge(p string) bool {
	base := filepath.Base(p)
	return strings.HasPrefix(base, "~") || strings.HasSuffix(base, "~")
}

func containsRejectedSegment(p string, rejected map[string]bool) bool {
	clean := filepath.ToSlash(p)
	for _, seg := range strings.Split(clean, "/") {
		if rejected[seg] {
			return true
		}
	}
	return false
}
