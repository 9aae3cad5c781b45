package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/qctl/queuectl/internal/executor"
	"github.com/qctl/queuectl/internal/supervisor"
	"github.com/qctl/queuectl/internal/worker"
)

// workerRunCmd is the hidden entry point the Supervisor self-execs into
// (§4.5, §9): one OS process runs exactly one Worker, blocking until its own
// SIGTERM/SIGINT arrives. It also runs the lease sweeper locally so expired
// leases get reclaimed even if the Supervisor process that spawned this one
// has already exited.
func workerRunCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:    "__worker-run",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("id")
			if id == "" {
				id = worker.NewID()
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				cancel()
			}()

			sup := supervisor.New(app.Store, app.Log, app.DBPath)
			go sup.RunSweeper(ctx)

			w := worker.New(id, app.Store, executor.New(), app.Log)
			w.Run(ctx)
			return nil
		},
	}
	cmd.Flags().String("id", "", "Worker id assigned by the Supervisor")
	return cmd
}
