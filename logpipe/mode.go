// Package logpipe ships the exec side's logs to the dev side as requests,
// and reassembles them into a per-remote rotating log file on arrival.
package logpipe

import "github.com/tangb/remotedev/request"

// Mode selects how (or whether) the exec side ships its logs upstream.
type Mode int

// Recognized modes, per spec.md §4.5.
const (
	Disabled Mode = iota
	Internal
	External
)

func (m Mode) String() string {
	switch m {
	case Internal:
		return "INTERNAL"
	case External:
		return "EXTERNAL"
	default:
		return "DISABLED"
	}
}

// Sink receives a built LOG request, mirroring watch.Sink's non-blocking
// hand-off contract to an endpoint's outbound path.
type Sink func(req *request.Request)
