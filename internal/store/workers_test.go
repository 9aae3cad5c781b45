package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWorkerRegistryLifecycle(t *testing.T) {
	st := newTestStore(t)
	now := time.Now()

	any, err := st.AnyWorkersRegistered()
	require.NoError(t, err)
	require.False(t, any)

	require.NoError(t, st.RegisterWorker("w1", 1234, now))
	any, err = st.AnyWorkersRegistered()
	require.NoError(t, err)
	require.True(t, any)

	later := now.Add(time.Second)
	require.NoError(t, st.Heartbeat("w1", later))

	workers, err := st.ListWorkers()
	require.NoError(t, err)
	require.Len(t, workers, 1)
	require.Equal(t, "w1", workers[0].WorkerID)
	require.Equal(t, 1234, workers[0].Pid)

	require.NoError(t, st.DeregisterWorker("w1"))
	any, err = st.AnyWorkersRegistered()
	require.NoError(t, err)
	require.False(t, any)
}

func TestConfigSeedDefaultsDoesNotOverwrite(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.Config().Set("max_retries", "9"))
	require.NoError(t, st.SeedDefaults())

	require.Equal(t, 9, st.Config().GetInt("max_retries"))
}
