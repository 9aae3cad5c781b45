package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/qctl/queuectl/internal/model"
)

// EnqueueCmd adds one or more jobs to the queue (§6.2). A bulk payload is a
// JSON array of the same object shape. The whole payload is parsed and
// validated before anything is inserted, so one malformed or invalid element
// rejects the entire batch; after that each element is enqueued in its own
// transaction, so one that fails to insert (a duplicate id, say) does not
// stop the rest.
func EnqueueCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "enqueue <job(json)|[job,...]>",
		Short: "Add one or more jobs to the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			specs, err := parseEnqueuePayload(args[0])
			if err != nil {
				return inputErrorf("invalid job payload: %v", err)
			}

			now := time.Now()
			var failures int
			for _, spec := range specs {
				id, err := app.Store.Enqueue(spec, now)
				if err != nil {
					failures++
					label := spec.ID
					if label == "" {
						label = "(auto-id)"
					}
					fmt.Fprintf(os.Stderr, "enqueue %s: %v\n", label, err)
					continue
				}
				fmt.Printf("enqueued %s\n", id)
			}
			if failures > 0 {
				return &ExitError{Code: 2, Err: fmt.Errorf("%d job(s) failed to enqueue", failures)}
			}
			return nil
		},
	}
}

func parseEnqueuePayload(raw string) ([]model.EnqueueSpec, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("empty payload")
	}

	var specs []model.EnqueueSpec
	if strings.HasPrefix(trimmed, "[") {
		if err := strictUnmarshal([]byte(trimmed), &specs); err != nil {
			return nil, err
		}
	} else {
		var one model.EnqueueSpec
		if err := strictUnmarshal([]byte(trimmed), &one); err != nil {
			return nil, err
		}
		specs = []model.EnqueueSpec{one}
	}

	for i, s := range specs {
		if strings.TrimSpace(s.Command) == "" {
			return nil, fmt.Errorf("job %d: 'command' is required", i)
		}
		if s.BackoffBase != nil && *s.BackoffBase <= 1 {
			return nil, fmt.Errorf("job %d: backoff_base must be > 1", i)
		}
		if s.MaxRetries != nil && *s.MaxRetries < 0 {
			return nil, fmt.Errorf("job %d: max_retries must be >= 0", i)
		}
	}
	return specs, nil
}

// strictUnmarshal rejects unknown fields in the payload (§6.2, §9).
func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
