package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/qctl/queuectl/cmd"
	"github.com/qctl/queuectl/internal/config"
	"github.com/qctl/queuectl/internal/logging"
	"github.com/qctl/queuectl/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	dbPath, err := config.DBPath()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to resolve database path:", err)
		return 1
	}

	log := logging.New(os.Getenv("QUEUECTL_VERBOSE") != "")

	st, err := store.New(dbPath, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to open store:", err)
		return 1
	}
	defer st.Close()

	app := &cmd.App{Store: st, Log: log, DBPath: dbPath}

	if err := cmd.Execute(app); err != nil {
		var exitErr *cmd.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "error:", exitErr.Error())
			return exitErr.Code
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}
