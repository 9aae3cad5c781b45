package cmd

import (
	"github.com/spf13/cobra"

	"github.com/qctl/queuectl/internal/logging"
	"github.com/qctl/queuectl/internal/store"
)

// App bundles the dependencies every subcommand needs. It replaces the
// teacher's (store, config) pair passed positionally into each Cmd
// constructor with a single struct now that Config lives inside Store.
type App struct {
	Store  *store.Store
	Log    logging.Logger
	DBPath string
}

// Execute builds the command tree and runs it.
func Execute(app *App) error {
	rootCmd := &cobra.Command{
		Use:           "queuectl",
		Short:         "A CLI-based durable job queue",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(InitCmd(app))
	rootCmd.AddCommand(EnqueueCmd(app))
	rootCmd.AddCommand(ListCmd(app))
	rootCmd.AddCommand(StatusCmd(app))
	rootCmd.AddCommand(LogsCmd(app))
	rootCmd.AddCommand(WorkerCmd(app))
	rootCmd.AddCommand(DlqCmd(app))
	rootCmd.AddCommand(ConfigCmd(app))
	rootCmd.AddCommand(workerRunCmd(app))

	return rootCmd.Execute()
}
