// Package journal persists per-run summaries to a local SQLite database.
// It backs the orchestrator's metrics sink; writes are best effort and a
// broken journal never fails an analysis.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"deepscan/internal/orchestrator"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	repository    TEXT NOT NULL,
	branch        TEXT NOT NULL DEFAULT '',
	rounds        INTEGER NOT NULL,
	duration_ms   INTEGER NOT NULL,
	completeness  INTEGER NOT NULL,
	cache_hit     INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_runs_repository ON runs(repository, branch);
`

// Journal is a SQLite-backed run journal.
type Journal struct {
	db *sql.DB
}

// Compile-time check that Journal satisfies the orchestrator's sink.
var _ orchestrator.MetricsSink = (*Journal)(nil)

// Open creates or opens the journal database at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening journal database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing journal schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// RecordRun appends one run summary.
func (j *Journal) RecordRun(ctx context.Context, m orchestrator.RunMetrics) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (id, repository, branch, rounds, duration_ms, completeness, cache_hit)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.RunID, m.Repository, m.Branch, m.Rounds, m.Duration.Milliseconds(), m.Completeness, boolToInt(m.CacheHit),
	)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", m.RunID, err)
	}
	return nil
}

// RunSummary is one journal row.
type RunSummary struct {
	RunID        string
	Repository   string
	Branch       string
	Rounds       int
	Duration     time.Duration
	Completeness int
	CacheHit     bool
	CreatedAt    time.Time
}

// RecentRuns returns the latest run summaries, newest first.
func (j *Journal) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, repository, branch, rounds, duration_ms, completeness, cache_hit, created_at
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		var durationMS int64
		var cacheHit int
		if err := rows.Scan(&r.RunID, &r.Repository, &r.Branch, &r.Rounds, &durationMS, &r.Completeness, &cacheHit, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		r.CacheHit = cacheHit != 0
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Stats is the journal-wide aggregate: every recorded run, cache hits
// included.
type Stats struct {
	TotalRuns       int
	CacheHits       int
	AvgRounds       float64
	AvgCompleteness float64
}

// AggregateStats summarizes all recorded runs. Cache hits are rows written
// by the cache layer with zero rounds; computed runs carry their own rows.
func (j *Journal) AggregateStats(ctx context.Context) (Stats, error) {
	var s Stats
	err := j.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(cache_hit), 0),
		        COALESCE(AVG(rounds), 0),
		        COALESCE(AVG(completeness), 0)
		 FROM runs`,
	).Scan(&s.TotalRuns, &s.CacheHits, &s.AvgRounds, &s.AvgCompleteness)
	if err != nil {
		return Stats{}, fmt.Errorf("aggregating runs: %w", err)
	}
	return s, nil
}

// Close releases the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
