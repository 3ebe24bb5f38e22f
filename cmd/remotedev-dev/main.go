// Command remotedev-dev runs the developer side of the sync engine: it
// watches a local project directory and keeps it mirrored onto a
// configured exec host over an SSH tunnel.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tangb/remotedev/internal/rdlog"
	"github.com/tangb/remotedev/rdconfig"
	"github.com/tangb/remotedev/supervisor"
)

func main() {
	var profilePath, dataDir string

	root := &cobra.Command{
		Use:   "remotedev-dev",
		Short: "Sync a local project directory to a remote exec host",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := rdconfig.LoadDevProfile(profilePath)
			if err != nil {
				return err
			}

			sup, err := supervisor.NewDevSupervisor(*profile, dataDir)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			rdlog.Noticef("main", "starting dev sync to %s", profile.RemoteHost)
			return sup.Run(ctx)
		},
	}

	root.Flags().StringVar(&profilePath, "profile", "remotedev-dev.yaml", "path to the dev profile")
	root.Flags().StringVar(&dataDir, "data-dir", ".", "directory to receive remote_<host>.log")

	if err := root.Execute(); err != nil {
		rdlog.Criticalf("main", "%v", err)
		os.Exit(1)
	}
}
