package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qctl/queuectl/internal/supervisor"
)

// WorkerCmd manages the Supervisor-owned worker process pool (§4.5). Unlike
// the teacher's in-process goroutine pool, `start` spawns real OS processes
// and returns immediately; `stop` reaps them.
func WorkerCmd(app *App) *cobra.Command {
	workerCmd := &cobra.Command{
		Use:   "worker",
		Short: "Manage worker processes",
	}

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Spawn one or more worker processes",
		RunE: func(cmd *cobra.Command, args []string) error {
			count, _ := cmd.Flags().GetInt("count")
			if count <= 0 {
				return inputErrorf("--count must be > 0")
			}

			sup := supervisor.New(app.Store, app.Log, app.DBPath)
			if err := sup.Start(count); err != nil {
				return err
			}
			fmt.Printf("started %d worker(s)\n", count)
			return nil
		},
	}
	startCmd.Flags().Int("count", 1, "Number of worker processes to start")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Signal and reap all running worker processes",
		RunE: func(cmd *cobra.Command, args []string) error {
			sup := supervisor.New(app.Store, app.Log, app.DBPath)
			if err := sup.Stop(); err != nil {
				return err
			}
			fmt.Println("workers stopped")
			return nil
		},
	}

	workerCmd.AddCommand(startCmd, stopCmd)
	return workerCmd
}
