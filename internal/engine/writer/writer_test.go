// internal/engine/writer/writer_test.go
package writer

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	engerrors "github.com/Fatal777/Loan-Eligibility-Engine/internal/common/errors"
	"github.com/Fatal777/Loan-Eligibility-Engine/internal/common/logger"
	"github.com/Fatal777/Loan-Eligibility-Engine/internal/models"
)

func setupWriter(t *testing.T, maxRetries int) (*Writer, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return New(db, maxRetries, time.Millisecond, logger.NewTestLogger(t)), mock
}

func testResults() []ApplicantResult {
	applicant := models.Applicant{
		UserID:        "u1",
		BatchID:       "batch-1",
		MonthlyIncome: 40000,
		CreditScore:   700,
		Age:           35,
	}
	return []ApplicantResult{{
		Applicant: applicant,
		Matches: []models.Match{{
			UserID:     "u1",
			ProductID:  "p1",
			BatchID:    "batch-1",
			Score:      80,
			Provenance: models.ProvenanceAuto,
			Rationale:  "score 80: met income, credit score, age",
		}},
	}}
}

func expectChunkTx(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO matches").
		WithArgs("u1", "p1", "batch-1", 80, "auto", "score 80: met income, credit score, age").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE users SET processed = true").
		WithArgs("u1", "batch-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
}

func TestPersistChunk(t *testing.T) {
	w, mock := setupWriter(t, 3)
	expectChunkTx(mock)

	err := w.PersistChunk(context.Background(), "batch-1", testResults())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistChunkEmptyIsNoOp(t *testing.T) {
	w, mock := setupWriter(t, 3)

	require.NoError(t, w.PersistChunk(context.Background(), "batch-1", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistChunkResubmission(t *testing.T) {
	// The unique constraint absorbs duplicates: re-running the same chunk
	// reports zero affected rows and still commits cleanly.
	w, mock := setupWriter(t, 3)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO matches").
		WithArgs("u1", "p1", "batch-1", 80, "auto", "score 80: met income, credit score, age").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE users SET processed = true").
		WithArgs("u1", "batch-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := w.PersistChunk(context.Background(), "batch-1", testResults())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistChunkRetriesTransientError(t *testing.T) {
	w, mock := setupWriter(t, 3)

	// First attempt deadlocks and rolls back; second succeeds.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO matches").
		WillReturnError(&pq.Error{Code: "40P01", Message: "deadlock detected"})
	mock.ExpectRollback()
	expectChunkTx(mock)

	err := w.PersistChunk(context.Background(), "batch-1", testResults())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistChunkNonTransientFailsFast(t *testing.T) {
	w, mock := setupWriter(t, 3)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO matches").
		WillReturnError(&pq.Error{Code: "42703", Message: "undefined column"})
	mock.ExpectRollback()

	err := w.PersistChunk(context.Background(), "batch-1", testResults())
	require.Error(t, err)

	var engErr *engerrors.EngineError
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, engerrors.ErrCodeMatchWriteFailed, engErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistChunkExhaustsRetries(t *testing.T) {
	w, mock := setupWriter(t, 2)

	for i := 0; i < 2; i++ {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO matches").
			WillReturnError(&pq.Error{Code: "40001", Message: "serialization failure"})
		mock.ExpectRollback()
	}

	err := w.PersistChunk(context.Background(), "batch-1", testResults())
	require.Error(t, err)

	var engErr *engerrors.EngineError
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, engerrors.ErrCodeChunkRetriesExhausted, engErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"connection exception", &pq.Error{Code: "08006"}, true},
		{"serialization failure", &pq.Error{Code: "40001"}, true},
		{"insufficient resources", &pq.Error{Code: "53300"}, true},
		{"constraint violation", &pq.Error{Code: "23505"}, false},
		{"syntax error", &pq.Error{Code: "42601"}, false},
		{"driver error", assert.AnError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isTransient(tt.err))
		})
	}
}
