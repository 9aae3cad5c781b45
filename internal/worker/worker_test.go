package worker_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/qctl/queuectl/internal/executor"
	"github.com/qctl/queuectl/internal/logging"
	"github.com/qctl/queuectl/internal/model"
	"github.com/qctl/queuectl/internal/store"
	"github.com/qctl/queuectl/internal/worker"
)

type fakeExecutor struct {
	result executor.Result
}

func (f fakeExecutor) Execute(ctx context.Context, command string, timeoutS int) executor.Result {
	return f.result
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "queue.db"), logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestWorkerRunsJobToSuccess(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.Config().Set("poll_interval_ms", "10"))

	id, err := st.Enqueue(model.EnqueueSpec{Command: "echo hi"}, time.Now())
	require.NoError(t, err)

	exec := fakeExecutor{result: executor.Result{Outcome: executor.Exited, ExitCode: 0, Stdout: "hi"}}
	w := worker.New("test-worker", st, exec, logging.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		job, err := st.Get(id)
		return err == nil && job.State == model.StateCompleted
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestWorkerRunsJobToDeadLetter(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.Config().Set("poll_interval_ms", "10"))

	maxRetries := 0
	id, err := st.Enqueue(model.EnqueueSpec{Command: "false", MaxRetries: &maxRetries}, time.Now())
	require.NoError(t, err)

	exec := fakeExecutor{result: executor.Result{Outcome: executor.Exited, ExitCode: 1, Stderr: "boom"}}
	w := worker.New("test-worker", st, exec, logging.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		job, err := st.Get(id)
		return err == nil && job.State == model.StateDead
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestWorkerRegistersItself(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.Config().Set("poll_interval_ms", "10"))

	exec := fakeExecutor{result: executor.Result{Outcome: executor.Exited, ExitCode: 0}}
	w := worker.New("registered-worker", st, exec, logging.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	w.Run(ctx)

	workers, err := st.ListWorkers()
	require.NoError(t, err)
	require.Len(t, workers, 1)
	require.Equal(t, "registered-worker", workers[0].WorkerID)
}
