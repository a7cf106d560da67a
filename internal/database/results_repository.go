package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/models"
)

// DatabasePool defines the interface for database pool operations.
// This interface allows for both real pool and mock pool implementations.
type DatabasePool interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// NoteResultRow is one persisted classification for one note in one run.
type NoteResultRow struct {
	RunID               string          `json:"run_id" db:"run_id"`
	NoteID              string          `json:"note_id" db:"note_id"`
	Status              string          `json:"status" db:"status"`
	WorstAsset          string          `json:"worst_asset" db:"worst_asset"`
	WorstPerformance    string          `json:"worst_performance" db:"worst_performance"`
	EarlyRedemptionDate *time.Time      `json:"early_redemption_date,omitempty" db:"early_redemption_date"`
	Detail              json.RawMessage `json:"detail" db:"detail"`
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
}

// ResultsRepository persists evaluation runs, per-note outcomes and the
// notification audit log.
type ResultsRepository struct {
	pool DatabasePool
}

func NewResultsRepository(pool DatabasePool) *ResultsRepository {
	return &ResultsRepository{pool: pool}
}

// EnsureSchema creates the tracker tables when they do not exist yet.
func (r *ResultsRepository) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS evaluation_runs (
			run_id UUID PRIMARY KEY,
			evaluation_date DATE NOT NULL,
			note_count INT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS note_results (
			id BIGSERIAL PRIMARY KEY,
			run_id UUID NOT NULL REFERENCES evaluation_runs(run_id),
			note_id TEXT NOT NULL,
			status TEXT NOT NULL,
			worst_asset TEXT,
			worst_performance NUMERIC,
			early_redemption_date DATE,
			detail JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS notification_log (
			id BIGSERIAL PRIMARY KEY,
			run_id UUID,
			note_id TEXT,
			channel TEXT NOT NULL,
			recipient TEXT NOT NULL,
			sent_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range statements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure tracker schema: %w", err)
		}
	}
	return nil
}

// InsertRun records the header row for one evaluation run.
func (r *ResultsRepository) InsertRun(ctx context.Context, runID string, evaluationDate time.Time, noteCount int) error {
	query := `
		INSERT INTO evaluation_runs (run_id, evaluation_date, note_count)
		VALUES ($1, $2, $3)
	`
	if _, err := r.pool.Exec(ctx, query, runID, evaluationDate, noteCount); err != nil {
		return fmt.Errorf("failed to insert evaluation run: %w", err)
	}
	return nil
}

// InsertOutcome persists one classified note outcome.
func (r *ResultsRepository) InsertOutcome(ctx context.Context, runID string, outcome *models.Outcome) error {
	detail, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome detail: %w", err)
	}

	query := `
		INSERT INTO note_results (run_id, note_id, status, worst_asset, worst_performance, early_redemption_date, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.pool.Exec(ctx, query,
		runID,
		outcome.NoteID,
		string(outcome.Status),
		outcome.WorstAsset,
		outcome.WorstPerformance,
		outcome.EarlyRedemptionDate,
		detail,
	)
	if err != nil {
		return fmt.Errorf("failed to insert note result: %w", err)
	}
	return nil
}

// ListOutcomes returns the persisted outcomes of one run.
func (r *ResultsRepository) ListOutcomes(ctx context.Context, runID string) ([]NoteResultRow, error) {
	query := `
		SELECT run_id, note_id, status, COALESCE(worst_asset, ''), COALESCE(worst_performance::text, '0'), early_redemption_date, detail, created_at
		FROM note_results
		WHERE run_id = $1
		ORDER BY note_id
	`
	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query note results: %w", err)
	}
	defer rows.Close()

	var results []NoteResultRow
	for rows.Next() {
		var row NoteResultRow
		if err := rows.Scan(&row.RunID, &row.NoteID, &row.Status, &row.WorstAsset,
			&row.WorstPerformance, &row.EarlyRedemptionDate, &row.Detail, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note result: %w", err)
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// LogNotification records one dispatched notification for auditing.
func (r *ResultsRepository) LogNotification(ctx context.Context, runID, noteID, channel, recipient string) error {
	query := `
		INSERT INTO notification_log (run_id, note_id, channel, recipient, sent_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.pool.Exec(ctx, query, runID, noteID, channel, recipient, time.Now()); err != nil {
		return fmt.Errorf("failed to log notification: %w", err)
	}
	return nil
}
