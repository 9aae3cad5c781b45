// Package store is the durable, transactional persistence layer: the sole
// shared mutable resource in the system (§5). It owns three logical tables
// in a single SQLite database file — jobs, config, workers — and exposes
// the atomic primitives the rest of the system is built on: claim_next,
// record_success, record_failure, extend_lock and sweep_expired_locks.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/qctl/queuectl/internal/config"
	"github.com/qctl/queuectl/internal/logging"
)

// Store wraps the sql.DB handle plus the dependencies its atomic job
// primitives need to consult (the live config cache, for captured defaults
// and backoff caps).
type Store struct {
	db     *sql.DB
	log    logging.Logger
	cache  *config.Cache
	dbPath string
}

const schema = `
create table if not exists jobs (
	id              text primary key,
	command         text not null,
	priority        integer not null default 0,
	run_at          datetime not null,
	state           text not null default 'pending',
	attempts        integer not null default 0,
	max_retries     integer not null,
	backoff_base    real not null,
	timeout_s       integer not null default 0,
	locked_by       text,
	lock_expires_at datetime,
	last_error      text,
	stdout_tail     text,
	stderr_tail     text,
	exit_code       integer not null default 0,
	created_at      datetime not null,
	updated_at      datetime not null,
	started_at      datetime,
	finished_at     datetime
);

create index if not exists idx_jobs_claimable
	on jobs (state, run_at, priority, created_at);

create table if not exists config (
	key   text primary key,
	value text not null
);

create table if not exists workers (
	worker_id      text primary key,
	pid            integer not null,
	started_at     datetime not null,
	last_heartbeat datetime not null
);
`

// New opens (creating if absent) the SQLite database at dbPath, runs the
// schema migration, and wires it to a logger and config cache.
func New(dbPath string, log logging.Logger) (*Store, error) {
	// WAL mode plus a busy timeout gives Store the "retried with short
	// bounded backoff" transient-error behavior required by §7 for free on
	// the single-writer SQLite lock, on top of the explicit retry loop in
	// claimNextOnce's caller.
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s := &Store{db: db, log: log, dbPath: dbPath}
	s.cache = config.NewCache(s)
	return s, nil
}

// Config exposes the store-backed config cache (§4.6, §10.3).
func (s *Store) Config() *config.Cache {
	return s.cache
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
