// CLAUDE:SUMMARY SQLite journal of scrape runs and their state transitions; implements orchestrate.Observer.
// Package eventlog records runs and state transitions in SQLite so that an
// operator can see afterwards which studies were visited and why a run
// stopped. No clinical content is stored, only URLs, states and reasons.
package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/sonodraft/orchestrate"
)

// Schema is the DDL applied by Open.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    started_at INTEGER NOT NULL,
    finished_at INTEGER,
    state TEXT NOT NULL,
    reason TEXT NOT NULL DEFAULT '',
    studies_listed INTEGER NOT NULL DEFAULT 0,
    studies_scraped INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);

CREATE TABLE IF NOT EXISTS run_events (
    event_id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES runs(run_id),
    at INTEGER NOT NULL,
    from_state TEXT NOT NULL,
    to_state TEXT NOT NULL,
    study_index INTEGER,
    study_url TEXT NOT NULL DEFAULT '',
    reason TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_run_events_run ON run_events(run_id, event_id);
`

// Run kinds.
const (
	KindLongitudinal = "longitudinal"
	KindSingle       = "single"
)

// Run is one row of the runs table.
type Run struct {
	RunID          string     `json:"runId"`
	Kind           string     `json:"kind"`
	StartedAt      time.Time  `json:"startedAt"`
	FinishedAt     *time.Time `json:"finishedAt,omitempty"`
	State          string     `json:"state"`
	Reason         string     `json:"reason,omitempty"`
	StudiesListed  int        `json:"studiesListed"`
	StudiesScraped int        `json:"studiesScraped"`
}

// EventRow is one stored transition.
type EventRow struct {
	At     time.Time `json:"at"`
	From   string    `json:"from"`
	To     string    `json:"to"`
	Index  *int      `json:"index,omitempty"`
	URL    string    `json:"url,omitempty"`
	Reason string    `json:"reason,omitempty"`
}

var _ orchestrate.Observer = (*Store)(nil)

// Store persists runs. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the event log at path. ":memory:" is accepted.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Transition implements orchestrate.Observer. Failures are logged, never
// returned: the journal must not stop a run.
//
// The write outlives ctx: an interrupted run still reaches its Aborted row.
func (s *Store) Transition(ctx context.Context, ev orchestrate.Event) {
	if err := s.record(context.WithoutCancel(ctx), ev); err != nil {
		s.logger.Warn("eventlog: transition not recorded", "run_id", ev.RunID, "to", ev.To.String(), "error", err)
	}
}

func (s *Store) record(ctx context.Context, ev orchestrate.Event) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	return runTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO runs (run_id, kind, started_at, state) VALUES (?, ?, ?, ?)`,
			ev.RunID, KindLongitudinal, at.UnixMilli(), ev.From.String()); err != nil {
			return fmt.Errorf("eventlog: insert run: %w", err)
		}

		var index any
		if ev.To == orchestrate.Scraping {
			index = ev.Index
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_events (run_id, at, from_state, to_state, study_index, study_url, reason)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			ev.RunID, at.UnixMilli(), ev.From.String(), ev.To.String(), index, ev.URL, ev.Reason); err != nil {
			return fmt.Errorf("eventlog: insert event: %w", err)
		}

		var finished any
		if ev.To.Terminal() {
			finished = at.UnixMilli()
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE runs SET state = ?, reason = CASE WHEN ? != '' THEN ? ELSE reason END,
			 finished_at = COALESCE(?, finished_at) WHERE run_id = ?`,
			ev.To.String(), ev.Reason, ev.Reason, finished, ev.RunID); err != nil {
			return fmt.Errorf("eventlog: update run: %w", err)
		}
		return nil
	})
}

// Finish stores the study counts of a finished longitudinal run.
func (s *Store) Finish(ctx context.Context, res *orchestrate.Result) error {
	if res == nil {
		return nil
	}
	scraped := 0
	for _, o := range res.Outcomes {
		if o.Scraped {
			scraped++
		}
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET studies_listed = ?, studies_scraped = ? WHERE run_id = ?`,
		len(res.Outcomes), scraped, res.RunID)
	if err != nil {
		return fmt.Errorf("eventlog: finish run: %w", err)
	}
	return nil
}

// RecordSingle stores a finished single-study run in one step.
func (s *Store) RecordSingle(ctx context.Context, runID, url string, started time.Time, runErr error) error {
	state, reason, scraped := orchestrate.Done.String(), "", 1
	if runErr != nil {
		state, reason, scraped = orchestrate.Aborted.String(), runErr.Error(), 0
	}
	now := time.Now().UnixMilli()
	ctx = context.WithoutCancel(ctx)
	return runTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO runs (run_id, kind, started_at, finished_at, state, reason, studies_listed, studies_scraped)
			 VALUES (?, ?, ?, ?, ?, ?, 1, ?)`,
			runID, KindSingle, started.UnixMilli(), now, state, reason, scraped); err != nil {
			return fmt.Errorf("eventlog: insert single run: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_events (run_id, at, from_state, to_state, study_index, study_url, reason)
			 VALUES (?, ?, ?, ?, 0, ?, ?)`,
			runID, now, orchestrate.Scraping.String(), state, url, reason); err != nil {
			return fmt.Errorf("eventlog: insert single event: %w", err)
		}
		return nil
	})
}

// Runs returns the most recent runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, kind, started_at, finished_at, state, reason, studies_listed, studies_scraped
		 FROM runs ORDER BY started_at DESC, run_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("eventlog: query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started int64
		var finished sql.NullInt64
		if err := rows.Scan(&r.RunID, &r.Kind, &started, &finished, &r.State, &r.Reason, &r.StudiesListed, &r.StudiesScraped); err != nil {
			return nil, fmt.Errorf("eventlog: scan run: %w", err)
		}
		r.StartedAt = time.UnixMilli(started)
		if finished.Valid {
			t := time.UnixMilli(finished.Int64)
			r.FinishedAt = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Events returns the transitions of one run in order.
func (s *Store) Events(ctx context.Context, runID string) ([]EventRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT at, from_state, to_state, study_index, study_url, reason
		 FROM run_events WHERE run_id = ? ORDER BY event_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("eventlog: query events: %w", err)
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var e EventRow
		var at int64
		var index sql.NullInt64
		if err := rows.Scan(&at, &e.From, &e.To, &index, &e.URL, &e.Reason); err != nil {
			return nil, fmt.Errorf("eventlog: scan event: %w", err)
		}
		e.At = time.UnixMilli(at)
		if index.Valid {
			i := int(index.Int64)
			e.Index = &i
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
