// Package endpoint implements the two connection-owning state machines,
// DevSync and ExecSync, and the loop-suppression history they share
// (spec.md §3, §4.7).
package endpoint

import (
	"sync"

	"github.com/tangb/remotedev/request"
)

// historyCapacity is the bounded ring size from spec.md §3.
const historyCapacity = 4

// History is a small bounded ring of the most recent FILE request
// fingerprints an endpoint has sent, used to suppress the
// watcher-echo loop described in spec.md §4.7.
type History struct {
	mu      sync.Mutex
	entries []request.Fingerprint // front = most recent
}

// NewHistory returns an empty History.
func NewHistory() *History {
	return &History{}
}

// Push records fp as the most recent entry, evicting the oldest once the
// ring is at capacity.
func (h *History) Push(fp request.Fingerprint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append([]request.Fingerprint{fp}, h.entries...)
	if len(h.entries) > historyCapacity {
		h.entries = h.entries[:historyCapacity]
	}
}

// Contains reports whether fp matches any of the last historyCapacity
// entries.
func (h *History) Contains(fp request.Fingerprint) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range h.entries {
		if e == fp {
			return true
		}
	}
	return false
}
