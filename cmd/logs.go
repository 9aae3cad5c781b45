package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qctl/queuectl/internal/store"
)

// LogsCmd shows the captured output of a single job's most recent attempt
// (§6.1, §12): the tails Store keeps inline rather than a separate log
// store, since §6.1 caps them at MaxTailBytes.
func LogsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logs <job-id>",
		Short: "Show the last attempt's captured output for a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := app.Store.Get(args[0])
			if err != nil {
				if err == store.ErrNotFound {
					return inputErrorf("no such job: %s", args[0])
				}
				return err
			}

			fmt.Printf("job:        %s\n", job.ID)
			fmt.Printf("state:      %s\n", job.State)
			fmt.Printf("attempts:   %d\n", job.Attempts)
			fmt.Printf("exit_code:  %d\n", job.ExitCode)
			if job.LastError != "" {
				fmt.Printf("last_error: %s\n", job.LastError)
			}
			fmt.Println("--- stdout ---")
			fmt.Println(job.StdoutTail)
			fmt.Println("--- stderr ---")
			fmt.Println(job.StderrTail)
			return nil
		},
	}
}
