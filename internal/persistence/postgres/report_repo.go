package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/persistence"
)

// Schema creates the report archive table
const Schema = `
CREATE TABLE IF NOT EXISTS insight_reports (
	id           UUID PRIMARY KEY,
	ticker       TEXT NOT NULL,
	period       TEXT NOT NULL,
	generated_at TIMESTAMPTZ NOT NULL,
	last_close   DOUBLE PRECISION,
	metrics      JSONB NOT NULL DEFAULT '{}',
	summary      TEXT NOT NULL DEFAULT '',
	explanation  TEXT NOT NULL DEFAULT '',
	sentiment    TEXT NOT NULL DEFAULT '',
	backend      TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS insight_reports_ticker_ts ON insight_reports (ticker, generated_at DESC);
CREATE INDEX IF NOT EXISTS insight_reports_ts ON insight_reports (generated_at DESC);`

const reportColumns = `id, ticker, period, generated_at, last_close, metrics,
	summary, explanation, sentiment, backend, created_at`

// reportRepo implements persistence.ReportRepo for PostgreSQL
type reportRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewReportRepo creates a new PostgreSQL report repository
func NewReportRepo(db *sqlx.DB, timeout time.Duration) persistence.ReportRepo {
	return &reportRepo{db: db, timeout: timeout}
}

type reportRow struct {
	ID          string          `db:"id"`
	Ticker      string          `db:"ticker"`
	Period      string          `db:"period"`
	GeneratedAt time.Time       `db:"generated_at"`
	LastClose   sql.NullFloat64 `db:"last_close"`
	Metrics     []byte          `db:"metrics"`
	Summary     string          `db:"summary"`
	Explanation string          `db:"explanation"`
	Sentiment   string          `db:"sentiment"`
	Backend     string          `db:"backend"`
	CreatedAt   time.Time       `db:"created_at"`
}

func (r reportRow) record() (persistence.ReportRecord, error) {
	rec := persistence.ReportRecord{
		ID:          r.ID,
		Ticker:      r.Ticker,
		Period:      r.Period,
		GeneratedAt: r.GeneratedAt,
		Summary:     r.Summary,
		Explanation: r.Explanation,
		Sentiment:   r.Sentiment,
		Backend:     r.Backend,
		CreatedAt:   r.CreatedAt,
	}
	if r.LastClose.Valid {
		v := r.LastClose.Float64
		rec.LastClose = &v
	}
	if len(r.Metrics) > 0 {
		if err := json.Unmarshal(r.Metrics, &rec.Metrics); err != nil {
			return rec, fmt.Errorf("failed to unmarshal metrics: %w", err)
		}
	}
	return rec, nil
}

// Insert stores a report, ignoring duplicates by ID
func (r *reportRepo) Insert(ctx context.Context, report persistence.ReportRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if report.ID == "" || report.Ticker == "" {
		return errors.New("report id and ticker are required")
	}

	metrics := report.Metrics
	if metrics == nil {
		metrics = map[string]string{}
	}
	metricsJSON, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	query := `
		INSERT INTO insight_reports
		(id, ticker, period, generated_at, last_close, metrics, summary, explanation, sentiment, backend)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`

	_, err = r.db.ExecContext(ctx, query,
		report.ID, report.Ticker, report.Period, report.GeneratedAt, report.LastClose,
		metricsJSON, report.Summary, report.Explanation, report.Sentiment, report.Backend)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	return nil
}

// Latest returns the newest report for ticker
func (r *reportRepo) Latest(ctx context.Context, ticker string) (*persistence.ReportRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + reportColumns + `
		FROM insight_reports
		WHERE ticker = $1
		ORDER BY generated_at DESC
		LIMIT 1`

	var row reportRow
	if err := r.db.QueryRowxContext(ctx, query, ticker).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest report: %w", err)
	}
	rec, err := row.record()
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListRecent returns the newest reports across all tickers
func (r *reportRepo) ListRecent(ctx context.Context, limit int) ([]persistence.ReportRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + reportColumns + `
		FROM insight_reports
		ORDER BY generated_at DESC
		LIMIT $1`

	rows, err := r.db.QueryxContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent reports: %w", err)
	}
	defer rows.Close()
	return scanReports(rows)
}

// ListRange returns reports generated within the window
func (r *reportRepo) ListRange(ctx context.Context, tr persistence.TimeRange) ([]persistence.ReportRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + reportColumns + `
		FROM insight_reports
		WHERE generated_at >= $1 AND generated_at <= $2
		ORDER BY generated_at DESC`

	rows, err := r.db.QueryxContext(ctx, query, tr.From, tr.To)
	if err != nil {
		return nil, fmt.Errorf("failed to query report range: %w", err)
	}
	defer rows.Close()
	return scanReports(rows)
}

// CountByTicker returns lookup counts per ticker
func (r *reportRepo) CountByTicker(ctx context.Context, tr persistence.TimeRange) (map[string]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT ticker, COUNT(*)
		FROM insight_reports
		WHERE generated_at >= $1 AND generated_at <= $2
		GROUP BY ticker
		ORDER BY ticker`

	rows, err := r.db.QueryxContext(ctx, query, tr.From, tr.To)
	if err != nil {
		return nil, fmt.Errorf("failed to query ticker counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var ticker string
		var count int64
		if err := rows.Scan(&ticker, &count); err != nil {
			return nil, fmt.Errorf("failed to scan ticker counts: %w", err)
		}
		counts[ticker] = count
	}
	return counts, rows.Err()
}

func scanReports(rows *sqlx.Rows) ([]persistence.ReportRecord, error) {
	var out []persistence.ReportRecord
	for rows.Next() {
		var row reportRow
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		rec, err := row.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
