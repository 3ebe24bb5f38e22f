package rdconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObscureRevealRoundTrip(t *testing.T) {
	for _, in := range []string{"", "plain", "50%off", "100%%already"} {
		obscured := Obscure(in)
		assert.Equal(t, in, Reveal(obscured))
	}
}

func TestObscureDoublesPercent(t *testing.T) {
	assert.Equal(t, "ab%%cd", Obscure("ab%cd"))
}

func TestDevProfilePortDefault(t *testing.T) {
	assert.Equal(t, DefaultRemotePort, DevProfile{}.Port())
	assert.Equal(t, 2222, DevProfile{RemotePort: 2222}.Port())
}

func TestExecProfileMappingConfigsSortedBySrcPattern(t *testing.T) {
	p := ExecProfile{Mappings: map[string]MappingEntry{
		"z/": {Dest: "/srv/z"},
		"a/": {Dest: "/srv/a"},
	}}
	configs := p.MappingConfigs()
	require.Len(t, configs, 2)
	assert.Equal(t, "a/", configs[0].SrcPattern)
	assert.Equal(t, "z/", configs[1].SrcPattern)
}

func TestExecProfileResolvedLogModeDefaults(t *testing.T) {
	assert.Equal(t, LogModeDisabled, ExecProfile{}.ResolvedLogMode())
	assert.Equal(t, LogModeExternal, ExecProfile{LogFilePath: "/var/log/app.log"}.ResolvedLogMode())
}

func TestExecProfileResolvedLogModeExplicit(t *testing.T) {
	assert.Equal(t, LogModeInternal, ExecProfile{LogMode: "internal", LogFilePath: "/var/log/app.log"}.ResolvedLogMode())
	assert.Equal(t, LogModeDisabled, ExecProfile{LogMode: "disabled", LogFilePath: "/var/log/app.log"}.ResolvedLogMode())
}

func TestLoadDevProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dev.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
remote_host: example.com
remote_port: 2222
ssh_username: dev
ssh_password: "secret%%pass"
local_dir: /home/dev/project
`), 0o644))

	p, err := LoadDevProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "example.com", p.RemoteHost)
	assert.Equal(t, 2222, p.RemotePort)
	assert.Equal(t, "/home/dev/project", p.LocalDir)
	assert.Equal(t, "secret%pass", Reveal(p.SSHPassword))
}

func TestLoadExecProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "exec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_file_path: /var/log/app.log
mappings:
  src/:
    dest: /srv/app/
    link: /srv/app-current/
`), 0o644))

	p, err := LoadExecProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/log/app.log", p.LogFilePath)
	require.Contains(t, p.Mappings, "src/")
	assert.Equal(t, "/srv/app/", p.Mappings["src/"].Dest)
}
