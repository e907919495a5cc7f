package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"kata_review/internal/domain"
	ownErrors "kata_review/internal/errors"
)

const runsSchema = `
CREATE TABLE IF NOT EXISTS analysis_runs (
	id            TEXT PRIMARY KEY,
	source        TEXT NOT NULL,
	params_json   TEXT NOT NULL,
	setup_json    TEXT,
	nodes_json    TEXT NOT NULL,
	started_at    TEXT NOT NULL,
	finished_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS analysis_runs_started ON analysis_runs(started_at);
`

// fixed width, so that started_at sorts as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RunRepositorySqlite keeps analysis runs in a local SQLite file.
type RunRepositorySqlite struct {
	db *sql.DB
}

func NewRunRepositorySqlite(dbPath string) (*RunRepositorySqlite, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &RunRepositorySqlite{db: db}, nil
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(runsSchema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (r *RunRepositorySqlite) Close() error {
	return r.db.Close()
}

func (r *RunRepositorySqlite) SaveRun(ctx context.Context, run domain.Analysis) error {
	params, err := json.Marshal(run.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	setup, err := json.Marshal(run.InitialStones)
	if err != nil {
		return fmt.Errorf("marshal setup: %w", err)
	}
	nodes, err := json.Marshal(run.Nodes)
	if err != nil {
		return fmt.Errorf("marshal nodes: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO analysis_runs (id, source, params_json, setup_json, nodes_json, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Source,
		string(params),
		string(setup),
		string(nodes),
		run.StartedAt.UTC().Format(timeLayout),
		run.FinishedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

func (r *RunRepositorySqlite) GetRun(ctx context.Context, id string) (domain.Analysis, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, source, params_json, setup_json, nodes_json, started_at, finished_at
		 FROM analysis_runs WHERE id = ?`, id)
	run, err := scanRun(row.Scan, true)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Analysis{}, ownErrors.ErrRunNotFound
	}
	return run, err
}

// ListRuns returns the latest runs without their nodes.
func (r *RunRepositorySqlite) ListRuns(ctx context.Context, limit int) ([]domain.Analysis, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, source, params_json, setup_json, '[]', started_at, finished_at
		 FROM analysis_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Analysis
	for rows.Next() {
		run, err := scanRun(rows.Scan, false)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(scan func(dest ...interface{}) error, withNodes bool) (domain.Analysis, error) {
	var (
		run                   domain.Analysis
		params, nodes         string
		setup                 sql.NullString
		startedAt, finishedAt string
	)
	if err := scan(&run.ID, &run.Source, &params, &setup, &nodes, &startedAt, &finishedAt); err != nil {
		return domain.Analysis{}, err
	}
	if err := json.Unmarshal([]byte(params), &run.Params); err != nil {
		return domain.Analysis{}, fmt.Errorf("unmarshal params: %w", err)
	}
	if setup.Valid && setup.String != "" {
		if err := json.Unmarshal([]byte(setup.String), &run.InitialStones); err != nil {
			return domain.Analysis{}, fmt.Errorf("unmarshal setup: %w", err)
		}
	}
	if withNodes {
		if err := json.Unmarshal([]byte(nodes), &run.Nodes); err != nil {
			return domain.Analysis{}, fmt.Errorf("unmarshal nodes: %w", err)
		}
	}
	var err error
	if run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return domain.Analysis{}, fmt.Errorf("parse started_at: %w", err)
	}
	if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt); err != nil {
		return domain.Analysis{}, fmt.Errorf("parse finished_at: %w", err)
	}
	return run, nil
}
