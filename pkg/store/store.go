// Package store keeps a SQLite ledger of experiment runs and their search
// trials.
package store

import (
	"context"
	"database/sql"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/hik2833/CSC580WeekSix/pkg/nn"
	"github.com/hik2833/CSC580WeekSix/pkg/search"
)

var schema = []string{`
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	task        TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	finished_at TEXT,
	config      BLOB,
	best_index  INTEGER,
	best_mean   REAL,
	test_auc    REAL
)`, `
CREATE TABLE IF NOT EXISTS trials (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	config      INTEGER NOT NULL,
	seed        INTEGER NOT NULL,
	params      BLOB NOT NULL,
	score       REAL,
	diverged    INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	PRIMARY KEY (run_id, config, seed)
)`}

// Run is one row of the runs table. Config is the experiment config as JSON.
// BestIndex is -1 and the scores NaN until the run finishes.
type Run struct {
	ID         string
	Task       string
	StartedAt  time.Time
	FinishedAt time.Time
	Config     []byte
	BestIndex  int
	BestMean   float64
	TestAUC    float64
}

// Store is a SQLite-backed run ledger.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the ledger at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("store: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, errors.Wrap(err, "store: create dirs")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "store: open sqlite")
	}
	db.SetMaxOpenConns(1)
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, "store: create tables")
		}
	}
	return &Store{db: db, path: path}, nil
}

// Path is the database file.
func (s *Store) Path() string { return s.path }

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// SaveRun inserts r or updates the existing row with the same ID.
func (s *Store) SaveRun(ctx context.Context, r Run) error {
	var finished sql.NullString
	if !r.FinishedAt.IsZero() {
		finished = sql.NullString{String: r.FinishedAt.UTC().Format(time.RFC3339Nano), Valid: true}
	}
	var best sql.NullInt64
	if r.BestIndex >= 0 {
		best = sql.NullInt64{Int64: int64(r.BestIndex), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, task, started_at, finished_at, config, best_index, best_mean, test_auc)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			finished_at = excluded.finished_at,
			config      = excluded.config,
			best_index  = excluded.best_index,
			best_mean   = excluded.best_mean,
			test_auc    = excluded.test_auc`,
		r.ID, r.Task, r.StartedAt.UTC().Format(time.RFC3339Nano), finished, r.Config,
		best, nullFloat(r.BestMean), nullFloat(r.TestAUC))
	return errors.Wrapf(err, "store: save run %s", r.ID)
}

// Run loads one run by ID.
func (s *Store) Run(ctx context.Context, id string) (Run, error) {
	var (
		r                 Run
		started           string
		finished          sql.NullString
		best              sql.NullInt64
		bestMean, testAUC sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, task, started_at, finished_at, config, best_index, best_mean, test_auc
		FROM runs WHERE id = ?`, id).
		Scan(&r.ID, &r.Task, &started, &finished, &r.Config, &best, &bestMean, &testAUC)
	if err != nil {
		return Run{}, errors.Wrapf(err, "store: load run %s", id)
	}
	if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return Run{}, errors.Wrap(err, "store: started_at")
	}
	if finished.Valid {
		if r.FinishedAt, err = time.Parse(time.RFC3339Nano, finished.String); err != nil {
			return Run{}, errors.Wrap(err, "store: finished_at")
		}
	}
	r.BestIndex = -1
	if best.Valid {
		r.BestIndex = int(best.Int64)
	}
	r.BestMean = floatOrNaN(bestMean)
	r.TestAUC = floatOrNaN(testAUC)
	return r, nil
}

// SaveTrial records one search trial for runID.
func (s *Store) SaveTrial(ctx context.Context, runID string, t search.Trial) error {
	params, err := json.Marshal(t.Params)
	if err != nil {
		return errors.Wrap(err, "store: encode params")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO trials (run_id, config, seed, params, score, diverged, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, t.Config, t.Seed, params, nullFloat(t.Score), t.Diverged, t.Duration.Milliseconds())
	return errors.Wrapf(err, "store: save trial %d/%d", t.Config, t.Seed)
}

// Trials returns the trials of runID ordered by configuration then seed.
func (s *Store) Trials(ctx context.Context, runID string) ([]search.Trial, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT config, seed, params, score, diverged, duration_ms
		FROM trials WHERE run_id = ? ORDER BY config, seed`, runID)
	if err != nil {
		return nil, errors.Wrap(err, "store: select trials")
	}
	defer func() { _ = rows.Close() }()

	var out []search.Trial
	for rows.Next() {
		var (
			t      search.Trial
			params []byte
			score  sql.NullFloat64
			ms     int64
		)
		if err := rows.Scan(&t.Config, &t.Seed, &params, &score, &t.Diverged, &ms); err != nil {
			return nil, errors.Wrap(err, "store: scan trial")
		}
		var p nn.Params
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, errors.Wrap(err, "store: decode params")
		}
		t.Params = p
		t.Score = floatOrNaN(score)
		t.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, t)
	}
	return out, errors.Wrap(rows.Err(), "store: iterate trials")
}

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
