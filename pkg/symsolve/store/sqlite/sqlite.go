package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/symsolve/pkg/symsolve/internalerr"
	"github.com/cognicore/symsolve/pkg/symsolve/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Workers write concurrently; one connection serializes them and keeps
	// the pragmas below in effect.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	input_path TEXT,
	started_at TEXT NOT NULL,
	finished_at TEXT,
	config TEXT
);

CREATE TABLE IF NOT EXISTS records (
	run_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	example_id TEXT NOT NULL,
	logic_type TEXT NOT NULL,
	status TEXT NOT NULL,
	predicted TEXT,
	answer TEXT,
	detail TEXT,
	trace TEXT,
	backup INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY(run_id, position, logic_type),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_records_example ON records(run_id, example_id);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// CreateRun inserts a new run row.
func (s *sqliteStore) CreateRun(ctx context.Context, r store.Run) error {
	if r.ID == "" {
		return fmt.Errorf("create run: %w: empty id", internalerr.ErrInvalidInput)
	}
	if _, err := s.GetRun(ctx, r.ID); err == nil {
		return fmt.Errorf("create run %s: %w: already exists", r.ID, internalerr.ErrInvalidInput)
	} else if !errors.Is(err, internalerr.ErrNotFound) {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, input_path, started_at, finished_at, config) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.InputPath, formatTime(r.StartedAt), nullTime(r.FinishedAt), r.Config,
	)
	if err != nil {
		return fmt.Errorf("create run %s: %w", r.ID, err)
	}
	return nil
}

// FinishRun stamps the completion time of a run.
func (s *sqliteStore) FinishRun(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE runs SET finished_at = ? WHERE id = ?`, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s: %w", id, internalerr.ErrNotFound)
	}
	return nil
}

// GetRun loads a run by id.
func (s *sqliteStore) GetRun(ctx context.Context, id string) (store.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, input_path, started_at, finished_at, config FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Run{}, fmt.Errorf("run %s: %w", id, internalerr.ErrNotFound)
	}
	return r, err
}

// LatestRun returns the most recently started run.
func (s *sqliteStore) LatestRun(ctx context.Context) (store.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, input_path, started_at, finished_at, config FROM runs ORDER BY started_at DESC, id DESC LIMIT 1`)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Run{}, fmt.Errorf("latest run: %w", internalerr.ErrNotFound)
	}
	return r, err
}

// LatestFinishedRun returns the most recently started run that has finished.
func (s *sqliteStore) LatestFinishedRun(ctx context.Context) (store.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, input_path, started_at, finished_at, config FROM runs
		WHERE finished_at IS NOT NULL ORDER BY started_at DESC, id DESC LIMIT 1`)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Run{}, fmt.Errorf("latest finished run: %w", internalerr.ErrNotFound)
	}
	return r, err
}

// PutRecord inserts or replaces a record.
func (s *sqliteStore) PutRecord(ctx context.Context, r store.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM runs WHERE id = ?`, r.RunID).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("put record: run %s: %w", r.RunID, internalerr.ErrNotFound)
	}

	const stmt = `
INSERT INTO records (run_id, position, example_id, logic_type, status, predicted, answer, detail, trace, backup)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id, position, logic_type) DO UPDATE SET
	example_id=excluded.example_id,
	status=excluded.status,
	predicted=excluded.predicted,
	answer=excluded.answer,
	detail=excluded.detail,
	trace=excluded.trace,
	backup=excluded.backup;
`
	if _, err := tx.ExecContext(ctx, stmt,
		r.RunID, r.Position, r.ExampleID, r.LogicType, r.Status,
		r.Predicted, r.Answer, r.Detail, r.Trace, boolToInt(r.Backup),
	); err != nil {
		return fmt.Errorf("put record %s/%s: %w", r.ExampleID, r.LogicType, err)
	}
	return tx.Commit()
}

// Records returns a run's records ordered by input position, then logic type.
func (s *sqliteStore) Records(ctx context.Context, runID string) ([]store.Record, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, fmt.Errorf("records: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT run_id, position, example_id, logic_type, status, predicted, answer, detail, trace, backup
FROM records
WHERE run_id = ?
ORDER BY position, logic_type`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Record
	for rows.Next() {
		var (
			r      store.Record
			backup int
		)
		var predicted, answer, detail, trace sql.NullString
		if err := rows.Scan(&r.RunID, &r.Position, &r.ExampleID, &r.LogicType, &r.Status,
			&predicted, &answer, &detail, &trace, &backup); err != nil {
			return nil, err
		}
		r.Predicted = predicted.String
		r.Answer = answer.String
		r.Detail = detail.String
		r.Trace = trace.String
		r.Backup = backup != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRun(row *sql.Row) (store.Run, error) {
	var (
		r                 store.Run
		inputPath, config sql.NullString
		startedAt         string
		finishedAt        sql.NullString
	)
	if err := row.Scan(&r.ID, &inputPath, &startedAt, &finishedAt, &config); err != nil {
		return store.Run{}, err
	}
	r.InputPath = inputPath.String
	r.Config = config.String
	var err error
	if r.StartedAt, err = parseTime(startedAt); err != nil {
		return store.Run{}, err
	}
	if finishedAt.Valid && finishedAt.String != "" {
		if r.FinishedAt, err = parseTime(finishedAt.String); err != nil {
			return store.Run{}, err
		}
	}
	return r, nil
}

// timeLayout is fixed width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
