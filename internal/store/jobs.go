package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/qctl/queuectl/internal/config"
	"github.com/qctl/queuectl/internal/model"
	"github.com/qctl/queuectl/internal/retry"
)

const jobColumns = `id, command, priority, run_at, state, attempts, max_retries,
	backoff_base, timeout_s, locked_by, lock_expires_at, last_error,
	stdout_tail, stderr_tail, exit_code, created_at, updated_at, started_at, finished_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(r rowScanner) (*model.Job, error) {
	var j model.Job
	var lockedBy, lastError, stdoutTail, stderrTail sql.NullString
	var lockExpiresAt, startedAt, finishedAt sql.NullTime

	err := r.Scan(
		&j.ID, &j.Command, &j.Priority, &j.RunAt, &j.State, &j.Attempts, &j.MaxRetries,
		&j.BackoffBase, &j.TimeoutS, &lockedBy, &lockExpiresAt, &lastError,
		&stdoutTail, &stderrTail, &j.ExitCode, &j.CreatedAt, &j.UpdatedAt, &startedAt, &finishedAt,
	)
	if err != nil {
		return nil, err
	}

	j.LockedBy = lockedBy.String
	j.LastError = lastError.String
	j.StdoutTail = stdoutTail.String
	j.StderrTail = stderrTail.String
	if lockExpiresAt.Valid {
		j.LockExpiresAt = &lockExpiresAt.Time
	}
	if startedAt.Valid {
		j.StartedAt = &startedAt.Time
	}
	if finishedAt.Valid {
		j.FinishedAt = &finishedAt.Time
	}
	return &j, nil
}

// Enqueue inserts a new job in the pending state, capturing max_retries and
// backoff_base from the live Config at this instant (I5: these never change
// for the job's lifetime afterward).
func (s *Store) Enqueue(spec model.EnqueueSpec, now time.Time) (string, error) {
	if strings.TrimSpace(spec.Command) == "" {
		return "", fmt.Errorf("command is required")
	}

	id := spec.ID
	if id == "" {
		id = uuid.NewString()
	}

	runAt := now
	if spec.RunAt != nil {
		runAt = *spec.RunAt
	}

	maxRetries := s.cache.GetInt(config.KeyMaxRetries)
	if spec.MaxRetries != nil {
		maxRetries = *spec.MaxRetries
	}
	backoffBase := s.cache.GetFloat(config.KeyBackoffBase)
	if spec.BackoffBase != nil {
		backoffBase = *spec.BackoffBase
	}

	_, err := s.db.Exec(
		`insert into jobs (id, command, priority, run_at, state, attempts,
			max_retries, backoff_base, timeout_s, created_at, updated_at)
		 values (?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?)`,
		id, spec.Command, spec.Priority, runAt, model.StatePending,
		maxRetries, backoffBase, spec.TimeoutS, now, now,
	)
	if err != nil {
		if isUniqueConstraint(err) {
			return "", fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
		return "", err
	}
	return id, nil
}

func isUniqueConstraint(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isBusy(err error) bool {
	return err != nil && strings.Contains(err.Error(), "database is locked")
}

// ClaimNext atomically selects the highest-priority claimable job and
// transitions it to processing, installing a lease. Returns (nil, nil) if
// no job is claimable right now. Retries a bounded number of times on a
// transient SQLITE_BUSY, per §7's "transient store errors" policy.
func (s *Store) ClaimNext(workerID string, now time.Time) (*model.Job, error) {
	lockTimeoutS := s.cache.GetInt(config.KeyLockTimeoutS)
	leaseExpiry := now.Add(time.Duration(lockTimeoutS) * time.Second)

	const maxAttempts = 5
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		job, err := s.claimNextOnce(workerID, now, leaseExpiry)
		if err == nil {
			return job, nil
		}
		if isBusy(err) {
			lastErr = err
			time.Sleep(time.Duration(attempt+1) * 10 * time.Millisecond)
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("claim_next: exhausted retries: %w", lastErr)
}

func (s *Store) claimNextOnce(workerID string, now, leaseExpiry time.Time) (*model.Job, error) {
	query := `
	update jobs set
		state = ?,
		locked_by = ?,
		lock_expires_at = ?,
		started_at = coalesce(started_at, ?),
		updated_at = ?
	where id = (
		select id from jobs
		where state = ?
			and run_at <= ?
			and (locked_by is null or lock_expires_at <= ?)
		order by priority desc, run_at asc, created_at asc
		limit 1
	)
	returning ` + jobColumns

	row := s.db.QueryRow(query,
		model.StateProcessing, workerID, leaseExpiry, now, now,
		model.StatePending, now, now,
	)
	job, err := scanJob(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return job, nil
}

// ExtendLock renews a held lease. Returns ErrLostLock if the caller no
// longer owns it.
func (s *Store) ExtendLock(id, workerID string, now time.Time) error {
	lockTimeoutS := s.cache.GetInt(config.KeyLockTimeoutS)
	expiry := now.Add(time.Duration(lockTimeoutS) * time.Second)

	res, err := s.db.Exec(
		`update jobs set lock_expires_at = ?
		 where id = ? and locked_by = ? and state = ?`,
		expiry, id, workerID, model.StateProcessing,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrLostLock
	}
	return nil
}

// RecordSuccess finalizes a job that exited 0.
func (s *Store) RecordSuccess(id, workerID string, exitCode int, stdout, stderr string, now time.Time) error {
	res, err := s.db.Exec(
		`update jobs set
			state = ?, locked_by = null, lock_expires_at = null,
			exit_code = ?, stdout_tail = ?, stderr_tail = ?,
			finished_at = ?, updated_at = ?
		 where id = ? and locked_by = ?`,
		model.StateCompleted, exitCode, model.TailBytes(stdout), model.TailBytes(stderr),
		now, now, id, workerID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrLostLock
	}
	return nil
}

// RecordFailure finalizes a failed attempt: increments attempts, then moves
// the job to dead (attempts exhausted) or back to pending with a backoff
// delay. Returns the resulting state. Retries a bounded number of times on
// a transient SQLITE_BUSY, per §7's "transient store errors" policy,
// mirroring ClaimNext.
func (s *Store) RecordFailure(id, workerID string, exitCode int, stdout, stderr, lastError string, now time.Time) (model.State, error) {
	const maxAttempts = 5
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		state, err := s.recordFailureOnce(id, workerID, exitCode, stdout, stderr, lastError, now)
		if err == nil {
			return state, nil
		}
		if isBusy(err) {
			lastErr = err
			time.Sleep(time.Duration(attempt+1) * 10 * time.Millisecond)
			continue
		}
		return "", err
	}
	return "", fmt.Errorf("record_failure: exhausted retries: %w", lastErr)
}

func (s *Store) recordFailureOnce(id, workerID string, exitCode int, stdout, stderr, lastError string, now time.Time) (model.State, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var priorAttempts, maxRetries int
	var backoffBase float64
	err = tx.QueryRow(
		`select attempts, max_retries, backoff_base from jobs where id = ?`, id,
	).Scan(&priorAttempts, &maxRetries, &backoffBase)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", ErrNotFound
		}
		return "", err
	}

	newAttempts := priorAttempts + 1
	stdoutTail, stderrTail := model.TailBytes(stdout), model.TailBytes(stderr)

	// Ownership is enforced in the UPDATE's WHERE clause, mirroring
	// RecordSuccess/ExtendLock, rather than by a separate SELECT check: a
	// caller whose lease was reclaimed between the SELECT above and here
	// still loses the race atomically.
	var res sql.Result
	var nextState model.State
	if newAttempts > maxRetries {
		nextState = model.StateDead
		res, err = tx.Exec(
			`update jobs set
				state = ?, attempts = ?, locked_by = null, lock_expires_at = null,
				exit_code = ?, stdout_tail = ?, stderr_tail = ?, last_error = ?,
				finished_at = ?, updated_at = ?
			 where id = ? and locked_by = ?`,
			nextState, newAttempts, exitCode, stdoutTail, stderrTail, lastError, now, now, id, workerID,
		)
	} else {
		nextState = model.StatePending
		maxBackoffS := float64(s.cache.GetInt(config.KeyMaxBackoffS))
		runAt := retry.NextRunAt(now, priorAttempts, backoffBase, maxBackoffS)
		res, err = tx.Exec(
			`update jobs set
				state = ?, attempts = ?, locked_by = null, lock_expires_at = null,
				exit_code = ?, stdout_tail = ?, stderr_tail = ?, last_error = ?,
				run_at = ?, updated_at = ?
			 where id = ? and locked_by = ?`,
			nextState, newAttempts, exitCode, stdoutTail, stderrTail, lastError, runAt, now, id, workerID,
		)
	}
	if err != nil {
		return "", err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", ErrLostLock
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return nextState, nil
}

// SweepExpiredLocks resets any processing job whose lease has expired back
// to pending. This is recovery, not a retry: attempts is untouched.
func (s *Store) SweepExpiredLocks(now time.Time) (int, error) {
	res, err := s.db.Exec(
		`update jobs set state = ?, locked_by = null, lock_expires_at = null, updated_at = ?
		 where state = ? and lock_expires_at <= ?`,
		model.StatePending, now, model.StateProcessing, now,
	)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// DlqRetry revives a dead job to pending with attempts reset to 0.
func (s *Store) DlqRetry(id string, now time.Time) error {
	res, err := s.db.Exec(
		`update jobs set state = ?, attempts = 0, run_at = ?, updated_at = ?
		 where id = ? and state = ?`,
		model.StatePending, now, now, id, model.StateDead,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotDead
	}
	return nil
}

// Get fetches a single job by id.
func (s *Store) Get(id string) (*model.Job, error) {
	row := s.db.QueryRow(`select `+jobColumns+` from jobs where id = ?`, id)
	job, err := scanJob(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// Filter narrows List to jobs matching certain criteria.
type Filter struct {
	State            model.State
	PendingReadyOnly bool
}

// List returns jobs matching filter, ordered the way claim_next would pick
// them (priority desc, run_at asc, created_at asc).
func (s *Store) List(filter Filter, now time.Time) ([]model.Job, error) {
	query := `select ` + jobColumns + ` from jobs where 1 = 1`
	var args []any

	if filter.State != "" {
		query += ` and state = ?`
		args = append(args, filter.State)
	}
	if filter.PendingReadyOnly {
		query += ` and state = ? and run_at <= ?`
		args = append(args, model.StatePending, now)
	}
	query += ` order by priority desc, run_at asc, created_at asc`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// DlqList lists jobs in the dead state.
func (s *Store) DlqList() ([]model.Job, error) {
	return s.List(Filter{State: model.StateDead}, time.Time{})
}

// Stats summarizes job counts per state.
func (s *Store) Stats() (model.Stats, error) {
	rows, err := s.db.Query(`select state, count(*) from jobs group by state`)
	if err != nil {
		return model.Stats{}, err
	}
	defer rows.Close()

	var stats model.Stats
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return model.Stats{}, err
		}
		switch model.State(state) {
		case model.StatePending:
			stats.Pending = count
		case model.StateProcessing:
			stats.Processing = count
		case model.StateCompleted:
			stats.Completed = count
		case model.StateFailed:
			stats.Failed = count
		case model.StateDead:
			stats.Dead = count
		}
	}
	return stats, rows.Err()
}
