// internal/engine/claimer/claimer_test.go
package claimer

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fatal777/Loan-Eligibility-Engine/internal/common/logger"
)

func setupClaimer(t *testing.T) (*Claimer, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return New(db, 300000, logger.NewTestLogger(t)), mock
}

func applicantColumns() []string {
	return []string{"user_id", "email", "monthly_income", "credit_score", "employment_status", "age", "batch_id"}
}

func TestClaimNext(t *testing.T) {
	c, mock := setupClaimer(t)

	rows := sqlmock.NewRows(applicantColumns()).
		AddRow("u1", "u1@example.com", 40000.0, 650, "salaried", 35, "batch-1").
		AddRow("u2", "u2@example.com", 25000.0, 710, "", 28, "batch-1")
	mock.ExpectQuery("UPDATE users SET claimed_at = NOW()").
		WithArgs("batch-1", 100, 300000).
		WillReturnRows(rows)

	chunk, err := c.ClaimNext(context.Background(), "batch-1", 100)
	require.NoError(t, err)
	require.Len(t, chunk, 2)

	assert.Equal(t, "u1", chunk[0].UserID)
	assert.Equal(t, 650, chunk[0].CreditScore)
	assert.Equal(t, "salaried", chunk[0].EmploymentStatus)
	assert.Equal(t, "batch-1", chunk[0].BatchID)
	assert.Equal(t, "u2", chunk[1].UserID)
	assert.Empty(t, chunk[1].EmploymentStatus)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimNextDrained(t *testing.T) {
	c, mock := setupClaimer(t)

	mock.ExpectQuery("UPDATE users SET claimed_at = NOW()").
		WithArgs("batch-1", 100, 300000).
		WillReturnRows(sqlmock.NewRows(applicantColumns()))

	chunk, err := c.ClaimNext(context.Background(), "batch-1", 100)
	require.NoError(t, err)
	assert.Empty(t, chunk)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimNextQueryError(t *testing.T) {
	c, mock := setupClaimer(t)

	mock.ExpectQuery("UPDATE users SET claimed_at = NOW()").
		WillReturnError(assert.AnError)

	_, err := c.ClaimNext(context.Background(), "batch-1", 100)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestBatchID(t *testing.T) {
	t.Run("returns most recent batch", func(t *testing.T) {
		c, mock := setupClaimer(t)

		mock.ExpectQuery("SELECT batch_id FROM users").
			WillReturnRows(sqlmock.NewRows([]string{"batch_id"}).AddRow("batch-7"))

		batchID, err := c.LatestBatchID(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "batch-7", batchID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no batches is not an error", func(t *testing.T) {
		c, mock := setupClaimer(t)

		mock.ExpectQuery("SELECT batch_id FROM users").
			WillReturnError(sql.ErrNoRows)

		batchID, err := c.LatestBatchID(context.Background())
		require.NoError(t, err)
		assert.Empty(t, batchID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBatchProgress(t *testing.T) {
	c, mock := setupClaimer(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\), COUNT\(\*\) FILTER`).
		WithArgs("batch-1").
		WillReturnRows(sqlmock.NewRows([]string{"count", "count"}).AddRow(250, 100))

	total, processed, err := c.BatchProgress(context.Background(), "batch-1")
	require.NoError(t, err)
	assert.Equal(t, 250, total)
	assert.Equal(t, 100, processed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
