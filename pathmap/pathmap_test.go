package pathmap

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevMapperToWireFromWireRoundTrip(t *testing.T) {
	root := filepath.FromSlash("/home/dev/project")
	m := NewDevMapper(root)

	abs := filepath.Join(root, "src", "main.go")
	rel, ok := m.ToWire(abs)
	require.True(t, ok)
	assert.Equal(t, "src/main.go", rel)

	back, ok := m.FromWire(rel)
	require.True(t, ok)
	assert.Equal(t, filepath.Clean(abs), back)
}

func TestDevMapperToWireRootItself(t *testing.T) {
	root := filepath.FromSlash("/home/dev/project")
	m := NewDevMapper(root)
	rel, ok := m.ToWire(root)
	require.True(t, ok)
	assert.Equal(t, "", rel)
}

func TestDevMapperToWireRejectsOutsideRoot(t *testing.T) {
	m := NewDevMapper(filepath.FromSlash("/home/dev/project"))
	_, ok := m.ToWire(filepath.FromSlash("/home/dev/other/file.txt"))
	assert.False(t, ok)
}

func TestDevMapperLinkForAlwaysFalse(t *testing.T) {
	m := NewDevMapper("/home/dev/project")
	_, ok := m.LinkFor("src/main.go")
	assert.False(t, ok)
}

func TestExecMapperFromWireLongestPrefixWins(t *testing.T) {
	m := NewExecMapper([]MappingConfig{
		{SrcPattern: "src/", Dest: "/srv/app/"},
		{SrcPattern: "src/vendor/", Dest: "/srv/vendor/"},
	})

	abs, ok := m.FromWire("src/vendor/lib/a.go")
	require.True(t, ok)
	assert.Equal(t, "/srv/vendor/lib/a.go", abs)

	abs, ok = m.FromWire("src/main.go")
	require.True(t, ok)
	assert.Equal(t, "/srv/app/main.go", abs)
}

func TestExecMapperToWireIsInverseOfFromWire(t *testing.T) {
	m := NewExecMapper([]MappingConfig{
		{SrcPattern: "src/", Dest: "/srv/app/"},
	})
	rel, ok := m.ToWire("/srv/app/main.go")
	require.True(t, ok)
	assert.Equal(t, "src/main.go", rel)

	back, ok := m.FromWire(rel)
	require.True(t, ok)
	assert.Equal(t, "/srv/app/main.go", back)
}

func TestExecMapperJokerFallback(t *testing.T) {
	m := NewExecMapper([]MappingConfig{
		{SrcPattern: "src/", Dest: "/srv/app/"},
		{SrcPattern: "*", Dest: "/srv/misc/"},
	})

	abs, ok := m.FromWire("README.md")
	require.True(t, ok)
	assert.Equal(t, "/srv/misc/README.md", abs)

	abs, ok = m.FromWire("src/main.go")
	require.True(t, ok)
	assert.Equal(t, "/srv/app/main.go", abs)
}

func TestExecMapperUnmappableReturnsFalse(t *testing.T) {
	m := NewExecMapper([]MappingConfig{
		{SrcPattern: "src/", Dest: "/srv/app/"},
	})
	_, ok := m.FromWire("other/file.go")
	assert.False(t, ok)
}

func TestExecMapperDoesNotAliasSimilarlyNamedPrefixes(t *testing.T) {
	m := NewExecMapper([]MappingConfig{
		{SrcPattern: "src/", Dest: "/srv/app/"},
	})
	_, ok := m.FromWire("src-other/file.go")
	assert.False(t, ok, "trailing-separator enforcement must prevent substring aliasing")
}

func TestExecMapperLinkForWire(t *testing.T) {
	m := NewExecMapper([]MappingConfig{
		{SrcPattern: "src/", Dest: "/srv/app/", Link: "/opt/current/"},
	})
	link, ok := m.LinkFor("src/main.go")
	require.True(t, ok)
	assert.Equal(t, "/opt/current/main.go", link)
}

func TestExecMapperLinkForAbs(t *testing.T) {
	m := NewExecMapper([]MappingConfig{
		{SrcPattern: "src/", Dest: "/srv/app/", Link: "/opt/current/"},
	})
	link, ok := m.LinkFor("/srv/app/main.go")
	require.True(t, ok)
	assert.Equal(t, "/opt/current/main.go", link)
}

func TestExecMapperLinkForAbsentWhenNoLinkConfigured(t *testing.T) {
	m := NewExecMapper([]MappingConfig{
		{SrcPattern: "src/", Dest: "/srv/app/"},
	})
	_, ok := m.LinkFor("src/main.go")
	assert.False(t, ok)
}

func TestPatternPlainPrefixMatch(t *testing.T) {
	p := compilePattern("src/")
	value, remainder, ok := p.match("src/main.go")
	require.True(t, ok)
	assert.Equal(t, "", value)
	assert.Equal(t, "main.go", remainder)
	assert.Equal(t, "src/main.go", p.substitute(value, remainder))
}

func TestPatternNamedPlaceholder(t *testing.T) {
	p := compilePattern("releases/{version}/app/")
	value, remainder, ok := p.match("releases/1.2.3/app/main.go")
	require.True(t, ok)
	assert.Equal(t, "1.2.3", value)
	assert.Equal(t, "main.go", remainder)
	assert.Equal(t, "releases/1.2.3/app/main.go", p.substitute(value, remainder))
}

func TestPatternNoMatchReturnsFalse(t *testing.T) {
	p := compilePattern("src/")
	_, _, ok := p.match("other/main.go")
	assert.False(t, ok)
}
