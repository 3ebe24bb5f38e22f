package supervisor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tangb/remotedev/internal/rdlog"
	"github.com/tangb/remotedev/logpipe"
	"github.com/tangb/remotedev/rdconfig"
	"github.com/tangb/remotedev/request"
)

func TestNewExecSupervisorBuildsMapperFromProfile(t *testing.T) {
	profile := rdconfig.ExecProfile{
		Mappings: map[string]rdconfig.MappingEntry{
			"src/": {Dest: "/srv/app/"},
		},
	}
	sup := NewExecSupervisor(profile)

	abs, ok := sup.mapper.FromWire("src/main.go")
	require.True(t, ok)
	assert.Equal(t, "/srv/app/main.go", abs)
}

func TestForwardWithNoActiveClientDoesNotPanic(t *testing.T) {
	sup := NewExecSupervisor(rdconfig.ExecProfile{})
	assert.NotPanics(t, func() {
		sup.forward(&request.Request{Kind: request.KindFile, Src: "a"})
	})
}

func TestStartLogSourceInternalModeInstallsCaptureHandler(t *testing.T) {
	original := rdlog.Handler()
	defer rdlog.SetHandler(original)

	sup := NewExecSupervisor(rdconfig.ExecProfile{LogMode: rdconfig.LogModeInternal})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sup.startLogSource(ctx)

	_, ok := rdlog.Handler().(*logpipe.InternalSource)
	assert.True(t, ok, "internal log_mode must install logpipe.InternalSource as the active handler")
}

func TestStartLogSourceDisabledModeLeavesHandlerUntouched(t *testing.T) {
	original := rdlog.Handler()
	defer rdlog.SetHandler(original)

	sup := NewExecSupervisor(rdconfig.ExecProfile{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sup.startLogSource(ctx)

	assert.Same(t, original, rdlog.Handler())
}

func TestNewDevSupervisorRejectsMissingLocalDir(t *testing.T) {
	_, err := NewDevSupervisor(rdconfig.DevProfile{LocalDir: "/nonexistent/path/for/remotedev-tests"}, t.TempDir())
	assert.Error(t, err)
}

func TestNewDevSupervisorBuildsMapperFromLocalDir(t *testing.T) {
	dir := t.TempDir()
	sup, err := NewDevSupervisor(rdconfig.DevProfile{RemoteHost: "example.com", LocalDir: dir}, t.TempDir())
	require.NoError(t, err)

	rel, ok := sup.mapper.ToWire(dir + "/a.txt")
	require.True(t, ok)
	assert.Equal(t, "a.txt", rel)
}
