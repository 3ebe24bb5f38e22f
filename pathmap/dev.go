package pathmap

import (
	"path/filepath"
	"strings"
)

// DevMapper implements the dev-side single-root mapping: everything under
// root maps to the wire path relative to root.
type DevMapper struct {
	root string
}

// NewDevMapper builds a DevMapper rooted at root. root is stored with any
// trailing separator stripped so prefix comparisons are unambiguous.
func NewDevMapper(root string) *DevMapper {
	return &DevMapper{root: strings.TrimRight(filepath.Clean(root), string(filepath.Separator))}
}

// Root returns the configured root directory.
func (m *DevMapper) Root() string { return m.root }

// ToWire implements Mapper.
func (m *DevMapper) ToWire(abs string) (string, bool) {
	abs = filepath.Clean(abs)
	if abs == m.root {
		return "", true
	}
	prefix := m.root + string(filepath.Separator)
	if !strings.HasPrefix(abs, prefix) {
		return "", false
	}
	rel := strings.TrimPrefix(abs, prefix)
	return toWireSlashes(rel), true
}

// FromWire implements Mapper.
func (m *DevMapper) FromWire(rel string) (string, bool) {
	rel = filepath.FromSlash(rel)
	return filepath.Join(m.root, rel), true
}

// LinkFor implements Mapper. The dev side never configures symlinks.
func (m *DevMapper) LinkFor(string) (string, bool) { return "", false }
