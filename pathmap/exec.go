package pathmap

import "strings"

// jokerSrc is the literal source pattern that marks a fallback mapping.
const jokerSrc = "*"

// MappingConfig is one configured exec-side mapping entry, as read from
// an exec profile.
type MappingConfig struct {
	SrcPattern string
	Dest       string
	Link       string
}

type compiledMapping struct {
	src  pattern
	dest pattern
	link string
}

// ExecMapper implements the exec-side many-to-one mapping: an ordered
// list of (src_pattern, dest, link?) entries, with longest-prefix-wins
// resolution and an optional "*" joker fallback.
type ExecMapper struct {
	mappings []compiledMapping
	joker    *compiledMapping
}

// NewExecMapper compiles an ordered mapping list. Per spec.md §4.2, both
// sides of every non-joker mapping are stored with an enforced trailing
// separator to prevent substring aliasing between prefixes (e.g. "src"
// matching "src-other").
func NewExecMapper(configs []MappingConfig) *ExecMapper {
	m := &ExecMapper{}
	for _, c := range configs {
		cm := compiledMapping{link: c.Link}
		if c.SrcPattern == jokerSrc {
			cm.src = compilePattern(jokerSrc)
			cm.dest = compilePattern(withTrailingSlash(c.Dest))
			m.joker = &cm
			continue
		}
		cm.src = compilePattern(withTrailingSlash(c.SrcPattern))
		cm.dest = compilePattern(withTrailingSlash(c.Dest))
		m.mappings = append(m.mappings, cm)
	}
	return m
}

func withTrailingSlash(s string) string {
	if s == "" || strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}

// ToWire implements Mapper: find the mapping whose dest is a prefix of
// abs, substitute dest -> src_pattern, strip the leading separator.
func (m *ExecMapper) ToWire(abs string) (string, bool) {
	abs = toWireSlashes(abs)
	best := -1
	var bestValue, bestRemainder string
	var bestMapping *compiledMapping
	for i := range m.mappings {
		cm := &m.mappings[i]
		value, remainder, ok := cm.dest.match(abs)
		if !ok {
			continue
		}
		if len(cm.dest.prefix) > best {
			best = len(cm.dest.prefix)
			bestValue, bestRemainder = value, remainder
			bestMapping = cm
		}
	}
	if bestMapping == nil && m.joker != nil {
		if value, remainder, ok := m.joker.dest.match(abs); ok {
			bestValue, bestRemainder = value, remainder
			bestMapping = m.joker
		}
	}
	if bestMapping == nil {
		return "", false
	}
	if bestMapping == m.joker {
		// Joker: inverse of FromWire's verbatim join under dest; the
		// literal "*" is not part of the wire path.
		return strings.TrimPrefix(bestRemainder, "/"), true
	}
	wire := bestMapping.src.substitute(bestValue, bestRemainder)
	return strings.TrimPrefix(wire, "/"), true
}

// FromWire implements Mapper: find the mapping whose src_pattern matches
// a prefix of rel, substitute src_pattern -> dest.
func (m *ExecMapper) FromWire(rel string) (string, bool) {
	rel = toWireSlashes(rel)
	best := -1
	var bestValue, bestRemainder string
	var bestMapping *compiledMapping
	for i := range m.mappings {
		cm := &m.mappings[i]
		value, remainder, ok := cm.src.match(rel)
		if !ok {
			continue
		}
		if len(cm.src.prefix) > best {
			best = len(cm.src.prefix)
			bestValue, bestRemainder = value, remainder
			bestMapping = cm
		}
	}
	if bestMapping == nil && m.joker != nil {
		// Joker: everything that reaches here maps under its dest
		// verbatim (no prefix of the literal "*" to strip).
		return withTrailingSlash(m.joker.dest.prefix) + rel, true
	}
	if bestMapping == nil {
		return "", false
	}
	return bestMapping.dest.substitute(bestValue, bestRemainder), true
}

// LinkFor implements Mapper: return the symlink destination configured
// for whichever mapping owns relOrAbs, trying it first as a wire-relative
// path and then as an absolute path.
func (m *ExecMapper) LinkFor(relOrAbs string) (string, bool) {
	if link, ok := m.linkForWire(relOrAbs); ok {
		return link, true
	}
	return m.linkForAbs(relOrAbs)
}

func (m *ExecMapper) linkForWire(rel string) (string, bool) {
	rel = toWireSlashes(rel)
	best := -1
	var bestValue, bestRemainder, bestLink string
	found := false
	for i := range m.mappings {
		cm := &m.mappings[i]
		if cm.link == "" {
			continue
		}
		value, remainder, ok := cm.src.match(rel)
		if !ok {
			continue
		}
		if len(cm.src.prefix) > best {
			best = len(cm.src.prefix)
			bestValue, bestRemainder, bestLink = value, remainder, cm.link
			found = true
		}
	}
	if !found {
		return "", false
	}
	linkPattern := compilePattern(bestLink)
	return linkPattern.substitute(bestValue, bestRemainder), true
}

func (m *ExecMapper) linkForAbs(abs string) (string, bool) {
	abs = toWireSlashes(abs)
	best := -1
	var bestValue, bestRemainder, bestLink string
	found := false
	for i := range m.mappings {
		cm := &m.mappings[i]
		if cm.link == "" {
			continue
		}
		value, remainder, ok := cm.dest.match(abs)
		if !ok {
			continue
		}
		if len(cm.dest.prefix) > best {
			best = len(cm.dest.prefix)
			bestValue, bestRemainder, bestLink = value, remainder, cm.link
			found = true
		}
	}
	if !found {
		return "", false
	}
	linkPattern := compilePattern(bestLink)
	return linkPattern.substitute(bestValue, bestRemainder), true
}
