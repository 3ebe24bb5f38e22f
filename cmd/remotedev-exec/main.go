// Command remotedev-exec runs the exec side of the sync engine: it
// accepts one dev client at a time and applies its FILE requests to the
// configured destination mappings.
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
	var profilePath string

	root := &cobra.Command{
		Use:   "remotedev-exec",
		Short: "Accept sync connections and apply FILE requests to configured mappings",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := rdconfig.LoadExecProfile(profilePath)
			if err != nil {
				return err
			}

			sup := supervisor.NewExecSupervisor(*profile)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			rdlog.Noticef("main", "listening for dev clients")
			return sup.Run(ctx)
		},
	}

	root.Flags().StringVar(&profilePath, "profile", "remotedev-exec.yaml", "path to the exec profile")

	if err := root.Execute(); err != nil {
		rdlog.Criticalf("main", "%v", err)
		os.Exit(1)
	}
}
