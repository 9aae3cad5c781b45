package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// InitCmd creates/seeds the database (§12). Idempotent: running it twice is
// not an error, since the schema is created with "if not exists" and config
// seeding only writes keys that are not yet present.
func InitCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the job queue database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Store.SeedDefaults(); err != nil {
				return fmt.Errorf("seed default config: %w", err)
			}
			fmt.Printf("Initialized database at %s\n", app.DBPath)
			return nil
		},
	}
}
