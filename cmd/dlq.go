package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// DlqCmd inspects and revives dead-lettered jobs (§4.3, §6.2).
func DlqCmd(app *App) *cobra.Command {
	dlqCmd := &cobra.Command{
		Use:   "dlq",
		Short: "Manage the Dead Letter Queue",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all jobs in the DLQ",
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := app.Store.DlqList()
			if err != nil {
				return fmt.Errorf("failed to list DLQ jobs: %w", err)
			}
			if len(jobs) == 0 {
				fmt.Println("Dead Letter Queue is empty.")
				return nil
			}
			fmt.Println("ID\tATTEMPTS\tLAST_ERROR\tCOMMAND")
			for _, job := range jobs {
				fmt.Printf("%s\t%d\t%s\t%s\n", job.ID, job.Attempts, job.LastError, job.Command)
			}
			return nil
		},
	}

	retryCmd := &cobra.Command{
		Use:   "retry <job-id>",
		Short: "Move a dead job back to pending with attempts reset (§4.3)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID := args[0]
			if err := app.Store.DlqRetry(jobID, time.Now()); err != nil {
				return err
			}
			fmt.Printf("job %s moved from DLQ to pending\n", jobID)
			return nil
		},
	}

	dlqCmd.AddCommand(listCmd, retryCmd)
	return dlqCmd
}
