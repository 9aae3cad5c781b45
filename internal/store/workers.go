package store

import (
	"database/sql"
	"time"

	"github.com/qctl/queuectl/internal/model"
)

// RegisterWorker writes a new row to the worker registry (§3.2), called by
// the Supervisor when it spawns each worker process and again by the Worker
// itself when its loop starts.
func (s *Store) RegisterWorker(workerID string, pid int, now time.Time) error {
	_, err := s.db.Exec(
		`insert into workers (worker_id, pid, started_at, last_heartbeat)
		 values (?, ?, ?, ?)
		 on conflict(worker_id) do update set pid = excluded.pid, started_at = excluded.started_at, last_heartbeat = excluded.last_heartbeat`,
		workerID, pid, now, now,
	)
	return err
}

// Heartbeat updates last_heartbeat for workerID. Called by the Worker's
// idle-tick and by its lease-refresh timer while an Executor runs.
func (s *Store) Heartbeat(workerID string, now time.Time) error {
	_, err := s.db.Exec(
		`update workers set last_heartbeat = ? where worker_id = ?`,
		now, workerID,
	)
	return err
}

// DeregisterWorker removes a worker's registry row, called by the
// Supervisor once the worker process has exited during stop.
func (s *Store) DeregisterWorker(workerID string) error {
	_, err := s.db.Exec(`delete from workers where worker_id = ?`, workerID)
	return err
}

// ListWorkers returns every registered worker.
func (s *Store) ListWorkers() ([]model.WorkerRegistration, error) {
	rows, err := s.db.Query(`select worker_id, pid, started_at, last_heartbeat from workers`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.WorkerRegistration
	for rows.Next() {
		var w model.WorkerRegistration
		if err := rows.Scan(&w.WorkerID, &w.Pid, &w.StartedAt, &w.LastHeartbeat); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// AnyWorkersRegistered reports whether the worker registry is non-empty,
// used by Supervisor.Start to detect an already-running pool.
func (s *Store) AnyWorkersRegistered() (bool, error) {
	var n int
	err := s.db.QueryRow(`select count(*) from workers`).Scan(&n)
	if err != nil && err != sql.ErrNoRows {
		return false, err
	}
	return n > 0, nil
}
