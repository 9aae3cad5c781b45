// Package worker implements the long-running polling loop that claims jobs,
// invokes the Executor, and records the outcome (§4.4).
package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/qctl/queuectl/internal/config"
	"github.com/qctl/queuectl/internal/executor"
	"github.com/qctl/queuectl/internal/logging"
	"github.com/qctl/queuectl/internal/model"
	"github.com/qctl/queuectl/internal/store"
)

// NewID mints a stable worker id of the form hostname#pid#nonce (§4.4).
func NewID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s#%d#%s", host, os.Getpid(), uuid.NewString()[:8])
}

// Worker is a single polling loop. One process runs exactly one Worker.
type Worker struct {
	ID    string
	store *store.Store
	exec  executor.Executor
	log   logging.Logger
}

func New(id string, st *store.Store, exec executor.Executor, log logging.Logger) *Worker {
	return &Worker{ID: id, store: st, exec: exec, log: log.With(logging.F("worker_id", id))}
}

// Run is the state machine of §4.4: idle -> running -> finalizing, looped
// until ctx is canceled. A shutdown signal stops new claims but a job
// already claimed is always run to completion (drain, per the Open
// Question resolution in §9) — only a forceful process kill at the
// Supervisor level can interrupt it, at which point sweep_expired_locks
// recovers it for another Worker.
func (w *Worker) Run(ctx context.Context) {
	w.log.Info("worker starting")
	defer w.log.Info("worker stopped")

	if err := w.store.RegisterWorker(w.ID, os.Getpid(), time.Now()); err != nil {
		w.log.Error("failed to register worker", logging.F("err", err.Error()))
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := w.store.ClaimNext(w.ID, time.Now())
		if err != nil {
			w.log.Error("claim_next failed", logging.F("err", err.Error()))
			w.idleWait(ctx)
			continue
		}
		if job == nil {
			_ = w.store.Heartbeat(w.ID, time.Now())
			w.idleWait(ctx)
			continue
		}

		w.runJob(job)
	}
}

func (w *Worker) idleWait(ctx context.Context) {
	pollMs := w.store.Config().GetInt(config.KeyPollIntervalMs)
	select {
	case <-ctx.Done():
	case <-time.After(time.Duration(pollMs) * time.Millisecond):
	}
}

func (w *Worker) runJob(job *model.Job) {
	log := w.log.With(logging.F("job_id", job.ID), logging.F("command", job.Command))
	log.Info("claimed job")

	cfg := w.store.Config()
	effectiveTimeout := job.TimeoutS
	if effectiveTimeout <= 0 {
		effectiveTimeout = cfg.GetInt(config.KeyJobTimeoutS)
	}

	lockTimeoutS := cfg.GetInt(config.KeyLockTimeoutS)
	refreshInterval := time.Duration(lockTimeoutS) * time.Second / 3
	stopRefresh := make(chan struct{})
	refreshDone := make(chan struct{})
	go w.refreshLease(job.ID, refreshInterval, stopRefresh, refreshDone)

	// Executed against context.Background(), not the Worker's shutdown
	// context: a shutdown signal must drain the current job, not abort it.
	result := w.exec.Execute(context.Background(), job.Command, effectiveTimeout)
	close(stopRefresh)
	<-refreshDone

	now := time.Now()
	if result.Outcome == executor.Exited && result.ExitCode == 0 {
		if err := w.store.RecordSuccess(job.ID, w.ID, result.ExitCode, result.Stdout, result.Stderr, now); err != nil {
			w.handleFinalizeErr(log, err)
			return
		}
		log.Info("job completed")
		return
	}

	lastErr := describeOutcome(result)
	state, err := w.store.RecordFailure(job.ID, w.ID, result.ExitCode, result.Stdout, result.Stderr, lastErr, now)
	if err != nil {
		w.handleFinalizeErr(log, err)
		return
	}
	if state == model.StateDead {
		log.Warn("job moved to dead letter queue", logging.F("last_error", lastErr))
	} else {
		log.Warn("job will retry", logging.F("last_error", lastErr))
	}
}

func (w *Worker) handleFinalizeErr(log logging.Logger, err error) {
	if errors.Is(err, store.ErrLostLock) {
		// §4.2: the outcome is discarded silently; the re-claimer will
		// execute again. Not fatal.
		log.Warn("lost lock while finalizing, outcome discarded")
		return
	}
	log.Error("failed to finalize job", logging.F("err", err.Error()))
}

func (w *Worker) refreshLease(jobID string, interval time.Duration, stop, done chan struct{}) {
	defer close(done)
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			now := time.Now()
			if err := w.store.ExtendLock(jobID, w.ID, now); err != nil {
				w.log.Warn("failed to extend lease", logging.F("job_id", jobID), logging.F("err", err.Error()))
			}
			_ = w.store.Heartbeat(w.ID, now)
		}
	}
}

func describeOutcome(r executor.Result) string {
	switch r.Outcome {
	case executor.TimedOut:
		return "execution timed out"
	case executor.LaunchFailed:
		if r.Err != nil {
			return "launch failed: " + r.Err.Error()
		}
		return "launch failed"
	default:
		if r.Err != nil {
			return r.Err.Error()
		}
		return fmt.Sprintf("exit code %d", r.ExitCode)
	}
}
