// Package supervisor owns the lifecycle of the Worker process pool: spawn,
// heartbeat-backed tracking via the store's worker registry, and reaping on
// stop (§4.5). Workers are separate OS processes, not goroutines, so that a
// crashing Executor cannot corrupt a sibling Worker and so lease recovery
// can be exercised by a hard process kill (§5).
package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/qctl/queuectl/internal/logging"
	"github.com/qctl/queuectl/internal/store"
	"github.com/qctl/queuectl/internal/worker"
)

// GracePeriod is how long Stop waits for a worker to exit after SIGTERM
// before escalating to SIGKILL (§4.5, §9's drain-then-force-kill decision).
const GracePeriod = 10 * time.Second

// SweepInterval is the cadence of the background sweep of expired leases
// (§4.2) that each worker process runs for as long as it is alive.
const SweepInterval = 5 * time.Second

// Supervisor manages a pool of worker processes for one database.
type Supervisor struct {
	store   *store.Store
	log     logging.Logger
	pidPath string
	// selfExec is the path used to re-exec the binary as a worker. Tests
	// override it; production code uses os.Args[0].
	selfExec string
	// runArgs builds the argv tail that makes the re-exec'd process run a
	// single worker with the given id. Overridable for tests. The child
	// inherits this process's environment, so QUEUECTL_DB (if set) carries
	// over without needing to be passed explicitly.
	runArgs     func(workerID string) []string
	dbPath      string
	gracePeriod time.Duration
}

// Option customizes a Supervisor, primarily for tests.
type Option func(*Supervisor)

func WithSelfExec(path string) Option {
	return func(s *Supervisor) { s.selfExec = path }
}

// WithRunArgs overrides the argv tail passed to selfExec for each worker.
func WithRunArgs(fn func(workerID string) []string) Option {
	return func(s *Supervisor) { s.runArgs = fn }
}

// WithGracePeriod overrides GracePeriod, so tests don't wait 10s for a
// deliberately unresponsive worker to escalate to SIGKILL.
func WithGracePeriod(d time.Duration) Option {
	return func(s *Supervisor) { s.gracePeriod = d }
}

func New(st *store.Store, log logging.Logger, dbPath string, opts ...Option) *Supervisor {
	s := &Supervisor{
		store:       st,
		log:         log,
		pidPath:     pidFilePath(dbPath),
		selfExec:    os.Args[0],
		dbPath:      dbPath,
		gracePeriod: GracePeriod,
		runArgs: func(workerID string) []string {
			return []string{"__worker-run", "--id", workerID}
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func pidFilePath(dbPath string) string {
	return filepath.Join(filepath.Dir(dbPath), "workers.pid")
}

type pidEntry struct {
	workerID string
	pid      int
}

// Start spawns count worker processes. Fails with store.ErrAlreadyRunning if
// the worker registry is already populated.
func (s *Supervisor) Start(count int) error {
	running, err := s.store.AnyWorkersRegistered()
	if err != nil {
		return err
	}
	if running {
		return store.ErrAlreadyRunning
	}

	var entries []pidEntry
	for i := 0; i < count; i++ {
		id := worker.NewID()
		cmd := exec.Command(s.selfExec, s.runArgs(id)...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
		if err := cmd.Start(); err != nil {
			return fmt.Errorf("spawn worker %d: %w", i+1, err)
		}
		s.log.Info("spawned worker", logging.F("worker_id", id), logging.F("pid", cmd.Process.Pid))
		if err := s.store.RegisterWorker(id, cmd.Process.Pid, time.Now()); err != nil {
			return fmt.Errorf("register worker %d: %w", i+1, err)
		}
		entries = append(entries, pidEntry{workerID: id, pid: cmd.Process.Pid})
		// Reap the child if it exits while this process is still alive, so a
		// stopped worker does not linger as a zombie; once this (short-lived)
		// process has exited, `stop` finds the worker again by pid.
		go func() { _ = cmd.Wait() }()
	}

	return writePidFile(s.pidPath, entries)
}

// Stop signals every registered worker to finish-and-exit, waits up to
// s.gracePeriod, escalates to SIGKILL for stragglers, then clears the
// registry and pid file (§4.5).
func (s *Supervisor) Stop() error {
	entries, err := readPidFile(s.pidPath)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		s.log.Info("no workers registered")
		return nil
	}

	for _, e := range entries {
		if err := signalPid(e.pid, syscall.SIGTERM); err != nil {
			s.log.Warn("failed to signal worker", logging.F("pid", e.pid), logging.F("err", err.Error()))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.gracePeriod)
	defer cancel()
	g, _ := errgroup.WithContext(ctx)
	for _, e := range entries {
		e := e
		g.Go(func() error {
			waitForExit(ctx, e.pid)
			return nil
		})
	}
	_ = g.Wait()

	for _, e := range entries {
		if processAlive(e.pid) {
			s.log.Warn("worker unresponsive, escalating to SIGKILL", logging.F("pid", e.pid))
			_ = signalPid(e.pid, syscall.SIGKILL)
			killCtx, killCancel := context.WithTimeout(context.Background(), time.Second)
			waitForExit(killCtx, e.pid)
			killCancel()
		}
		if err := s.store.DeregisterWorker(e.workerID); err != nil {
			s.log.Warn("failed to deregister worker", logging.F("worker_id", e.workerID), logging.F("err", err.Error()))
		}
	}

	return os.Remove(s.pidPath)
}

// RunSweeper runs sweep_expired_locks on a fixed cadence until ctx is
// canceled. Each worker process (the hidden __worker-run command) runs it for
// its whole lifetime, so reclaiming does not depend on a live Supervisor
// process.
func (s *Supervisor) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.store.SweepExpiredLocks(time.Now())
			if err != nil {
				s.log.Error("sweep failed", logging.F("err", err.Error()))
				continue
			}
			if n > 0 {
				s.log.Info("swept expired locks", logging.F("count", n))
			}
		}
	}
}

func writePidFile(path string, entries []pidEntry) error {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s %d\n", e.workerID, e.pid)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readPidFile(path string) ([]pidEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var entries []pidEntry
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		pid, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}
		entries = append(entries, pidEntry{workerID: fields[0], pid: pid})
	}
	return entries, nil
}

func signalPid(pid int, sig syscall.Signal) error {
	return syscall.Kill(pid, sig)
}

func processAlive(pid int) bool {
	return syscall.Kill(pid, syscall.Signal(0)) == nil
}

func waitForExit(ctx context.Context, pid int) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		if !processAlive(pid) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
