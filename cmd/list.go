package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/qctl/queuectl/internal/model"
	"github.com/qctl/queuectl/internal/store"
)

// ListCmd lists jobs, optionally filtered by state or narrowed to exactly
// what claim_next would consider next (--pending-ready-only, §12).
func ListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs by state",
		RunE: func(cmd *cobra.Command, args []string) error {
			stateFlag, _ := cmd.Flags().GetString("state")
			readyOnly, _ := cmd.Flags().GetBool("pending-ready-only")
			asJSON, _ := cmd.Flags().GetBool("json")

			if stateFlag != "" && !isKnownState(stateFlag) {
				return inputErrorf("unknown state: %s", stateFlag)
			}

			filter := store.Filter{State: model.State(stateFlag), PendingReadyOnly: readyOnly}
			jobs, err := app.Store.List(filter, time.Now())
			if err != nil {
				return fmt.Errorf("failed to list jobs: %w", err)
			}

			if asJSON {
				return printJSON(jobs)
			}

			if len(jobs) == 0 {
				fmt.Println("No jobs found.")
				return nil
			}
			fmt.Println("ID\tSTATE\tPRIORITY\tATTEMPTS\tCOMMAND")
			for _, job := range jobs {
				fmt.Printf("%s\t%s\t%d\t%d\t%s\n", job.ID, job.State, job.Priority, job.Attempts, job.Command)
			}
			return nil
		},
	}
	cmd.Flags().String("state", "", "Filter jobs by state (pending, processing, failed, dead, completed)")
	cmd.Flags().Bool("pending-ready-only", false, "Only show pending jobs whose run_at has elapsed")
	cmd.Flags().Bool("json", false, "Emit JSON instead of a table")
	return cmd
}

func isKnownState(s string) bool {
	switch model.State(s) {
	case model.StatePending, model.StateProcessing, model.StateCompleted, model.StateFailed, model.StateDead:
		return true
	}
	return false
}

// StatusCmd shows job-state counts plus the worker registry (§3.2), read
// from the store rather than the Supervisor's pid file, which only the
// Supervisor itself reads (§5, §9).
func StatusCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a summary of job states and registered workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			stats, err := app.Store.Stats()
			if err != nil {
				return fmt.Errorf("failed to get stats: %w", err)
			}
			workers, err := app.Store.ListWorkers()
			if err != nil {
				return fmt.Errorf("failed to list workers: %w", err)
			}

			if asJSON {
				return printJSON(struct {
					Stats   any `json:"stats"`
					Workers any `json:"workers"`
				}{stats, workers})
			}

			fmt.Println("--- Job Queue Status ---")
			fmt.Printf("pending:    %d\n", stats.Pending)
			fmt.Printf("processing: %d\n", stats.Processing)
			fmt.Printf("completed:  %d\n", stats.Completed)
			fmt.Printf("failed:     %d\n", stats.Failed)
			fmt.Printf("dead:       %d\n", stats.Dead)

			fmt.Println("\n--- Worker Status ---")
			if len(workers) == 0 {
				fmt.Println("Workers: \t0 (stopped)")
				return nil
			}
			for _, w := range workers {
				fmt.Printf("%s\tpid=%d\tstarted=%s\theartbeat=%s\n",
					w.WorkerID, w.Pid, w.StartedAt.Format(time.RFC3339), w.LastHeartbeat.Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Emit JSON instead of text")
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
