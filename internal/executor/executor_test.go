package executor_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/qctl/queuectl/internal/executor"
)

func TestShellExecutorSuccess(t *testing.T) {
	exec := executor.New()
	result := exec.Execute(context.Background(), "echo -n hello", 0)
	require.Equal(t, executor.Exited, result.Outcome)
	require.Equal(t, 0, result.ExitCode)
	require.Equal(t, "hello", result.Stdout)
}

func TestShellExecutorNonZeroExit(t *testing.T) {
	exec := executor.New()
	result := exec.Execute(context.Background(), "exit 7", 0)
	require.Equal(t, executor.Exited, result.Outcome)
	require.Equal(t, 7, result.ExitCode)
}

func TestShellExecutorTimeout(t *testing.T) {
	exec := executor.New()
	result := exec.Execute(context.Background(), "sleep 5", 1)
	require.Equal(t, executor.TimedOut, result.Outcome)
}

func TestShellExecutorCancelledContext(t *testing.T) {
	exec := executor.New()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	result := exec.Execute(ctx, "sleep 5", 0)
	require.Equal(t, executor.TimedOut, result.Outcome)
}
