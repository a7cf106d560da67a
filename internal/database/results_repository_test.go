package database

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/models"
)

func TestInsertRun(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewResultsRepository(mockPool)

	mockPool.ExpectExec("INSERT INTO evaluation_runs").
		WithArgs("run-1", pgxmock.AnyArg(), 3).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.InsertRun(context.Background(), "run-1", time.Now(), 3)
	assert.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestInsertOutcome(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewResultsRepository(mockPool)

	outcome := &models.Outcome{
		NoteID:           "ELN-1",
		Status:           models.StatusObserving,
		WorstAsset:       "AAPL",
		WorstPerformance: decimal.NewFromFloat(0.92),
	}

	mockPool.ExpectExec("INSERT INTO note_results").
		WithArgs("run-1", "ELN-1", string(models.StatusObserving), "AAPL",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.InsertOutcome(context.Background(), "run-1", outcome)
	assert.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestListOutcomes(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewResultsRepository(mockPool)

	created := time.Now()
	rows := pgxmock.NewRows([]string{
		"run_id", "note_id", "status", "worst_asset", "worst_performance",
		"early_redemption_date", "detail", "created_at",
	}).AddRow("run-1", "ELN-1", "observing", "AAPL", "0.92",
		(*time.Time)(nil), []byte(`{"note_id":"ELN-1"}`), created)

	mockPool.ExpectQuery("SELECT (.+) FROM note_results").
		WithArgs("run-1").
		WillReturnRows(rows)

	results, err := repo.ListOutcomes(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ELN-1", results[0].NoteID)
	assert.Equal(t, "observing", results[0].Status)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestLogNotification(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewResultsRepository(mockPool)

	mockPool.ExpectExec("INSERT INTO notification_log").
		WithArgs("run-1", "ELN-1", "email", "a@x.com", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.LogNotification(context.Background(), "run-1", "ELN-1", "email", "a@x.com")
	assert.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
