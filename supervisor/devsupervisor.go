package supervisor

import (
	"context"
	"os"

	"github.com/pkg/errors"

	"github.com/tangb/remotedev/endpoint"
	"github.com/tangb/remotedev/executor"
	"github.com/tangb/remotedev/logpipe"
	"github.com/tangb/remotedev/pathmap"
	"github.com/tangb/remotedev/rdconfig"
	"github.com/tangb/remotedev/transport"
	"github.com/tangb/remotedev/watch"
)

// DevSupervisor runs the dev side: one DevSync connected to a single
// exec host, and one watcher over the local project directory.
type DevSupervisor struct {
	profile rdconfig.DevProfile
	dataDir string

	mapper *pathmap.DevMapper
	exec   *executor.Executor
	dev    *endpoint.DevSync
}

// NewDevSupervisor builds a DevSupervisor from profile. dataDir is the
// dev-side directory that receives remote_<host>.log.
func NewDevSupervisor(profile rdconfig.DevProfile, dataDir string) (*DevSupervisor, error) {
	if _, err := os.Stat(profile.LocalDir); err != nil {
		return nil, errors.Wrapf(err, "local_dir %s", profile.LocalDir)
	}

	mapper := pathmap.NewDevMapper(profile.LocalDir)
	exec := executor.New(mapper)
	logWriter := logpipe.NewDevWriter(dataDir)

	cfg := transport.TunnelConfig{
		Host:     profile.RemoteHost,
		Port:     profile.Port(),
		Username: profile.SSHUsername,
		Password: rdconfig.Reveal(profile.SSHPassword),
	}

	return &DevSupervisor{
		profile: profile,
		dataDir: dataDir,
		mapper:  mapper,
		exec:    exec,
		dev:     endpoint.NewDevSync(cfg, exec, logWriter),
	}, nil
}

// Run starts the executor worker, the local directory watcher, and the
// DevSync connect/reconnect loop. It blocks until ctx is cancelled.
func (d *DevSupervisor) Run(ctx context.Context) error {
	go d.exec.Run()
	defer d.exec.Stop()

	filter := watch.NewFilter("")
	builder := watch.NewBuilder(filter, d.mapper, d.dev.Send)
	w, err := watch.NewWatcher(d.profile.LocalDir, builder)
	if err != nil {
		return err
	}
	go w.Run(ctx)

	d.dev.Run(ctx)
	return nil
}
