package pathmap

import "strings"

// pattern is a compiled mapping pattern. The plain-prefix form (the
// primary, spec-required form) has an empty placeholder name and empty
// suffix: prefix is the whole pattern. The named-placeholder extension
// (spec.md's Open Question) additionally captures one trailing path
// segment named placeholder, bounded by suffix on the other side.
type pattern struct {
	raw         string
	prefix      string
	placeholder string
	suffix      string
}

// compilePattern parses a src-pattern or dest string. A pattern containing
// "{name}" activates the placeholder extension; everything else is the
// plain-prefix form used verbatim.
func compilePattern(raw string) pattern {
	open := strings.IndexByte(raw, '{')
	if open < 0 {
		return pattern{raw: raw, prefix: raw}
	}
	end := strings.IndexByte(raw[open:], '}')
	if end < 0 {
		return pattern{raw: raw, prefix: raw}
	}
	end += open
	return pattern{
		raw:         raw,
		prefix:      raw[:open],
		placeholder: raw[open+1 : end],
		suffix:      raw[end+1:],
	}
}

func (p pattern) isPlain() bool { return p.placeholder == "" }

// match reports whether s starts with p's static prefix, and if so
// returns the captured placeholder value (empty for a plain pattern) and
// the remainder of s after the full pattern (prefix+value+suffix).
func (p pattern) match(s string) (value, remainder string, ok bool) {
	if !strings.HasPrefix(s, p.prefix) {
		return "", "", false
	}
	rest := s[len(p.prefix):]
	if p.isPlain() {
		return "", rest, true
	}
	if p.suffix == "" {
		return rest, "", true
	}
	idx := strings.Index(rest, p.suffix)
	if idx < 0 {
		return "", "", false
	}
	return rest[:idx], rest[idx+len(p.suffix):], true
}

// substitute renders the other side of the mapping given a captured
// placeholder value and the unmatched remainder.
func (p pattern) substitute(value, remainder string) string {
	if p.isPlain() {
		return p.prefix + remainder
	}
	return p.prefix + value + p.suffix + remainder
}
