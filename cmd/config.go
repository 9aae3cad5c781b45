package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ConfigCmd reads and writes the tunables of §3.3, now backed by the
// "config" table in Store rather than the teacher's JSON file (§10.3).
func ConfigCmd(app *App) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage queue configuration",
	}

	getCmd := &cobra.Command{
		Use:   "get [key]",
		Short: "Show one or all configuration values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			all := app.Store.Config().All()
			if len(args) == 0 {
				for k, v := range all {
					fmt.Printf("%s = %s\n", k, v)
				}
				return nil
			}
			v, ok := all[args[0]]
			if !ok {
				return inputErrorf("unknown config key: %s", args[0])
			}
			fmt.Printf("%s = %s\n", args[0], v)
			return nil
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value, effective on the next poll (§4.6)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if err := app.Store.Config().Set(key, value); err != nil {
				return inputErrorf("%v", err)
			}
			fmt.Printf("%s = %s\n", key, value)
			return nil
		},
	}

	configCmd.AddCommand(getCmd, setCmd)
	return configCmd
}
