package model

import "time"

// State is the lifecycle state of a Job.
type State string

const (
	StatePending    State = "pending"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StateDead       State = "dead"
)

// Job is a single unit of work in the queue.
type Job struct {
	ID            string     `json:"id"`
	Command       string     `json:"command"`
	Priority      int        `json:"priority"`
	RunAt         time.Time  `json:"run_at"`
	State         State      `json:"state"`
	Attempts      int        `json:"attempts"`
	MaxRetries    int        `json:"max_retries"`
	BackoffBase   float64    `json:"backoff_base"`
	TimeoutS      int        `json:"timeout_s"`
	LockedBy      string     `json:"locked_by,omitempty"`
	LockExpiresAt *time.Time `json:"lock_expires_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	StdoutTail    string     `json:"stdout_tail,omitempty"`
	StderrTail    string     `json:"stderr_tail,omitempty"`
	ExitCode      int        `json:"exit_code"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// EnqueueSpec is the caller-supplied description of a new job (§6.2).
type EnqueueSpec struct {
	ID          string     `json:"id,omitempty"`
	Command     string     `json:"command"`
	Priority    int        `json:"priority,omitempty"`
	RunAt       *time.Time `json:"run_at,omitempty"`
	TimeoutS    int        `json:"timeout_s,omitempty"`
	MaxRetries  *int       `json:"max_retries,omitempty"`
	BackoffBase *float64   `json:"backoff_base,omitempty"`
}

// WorkerRegistration is a row of the workers table (§3.2).
type WorkerRegistration struct {
	WorkerID      string    `json:"worker_id"`
	Pid           int       `json:"pid"`
	StartedAt     time.Time `json:"started_at"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
}

// Stats summarizes job counts per state, as returned by Store.Stats.
type Stats struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Dead       int `json:"dead"`
}

// MaxTailBytes bounds stdout_tail/stderr_tail (§6.1).
const MaxTailBytes = 8 * 1024

// TailBytes returns the last MaxTailBytes bytes of s.
func TailBytes(s string) string {
	if len(s) <= MaxTailBytes {
		return s
	}
	return s[len(s)-MaxTailBytes:]
}
