// internal/engine/claimer/claimer.go
package claimer

import (
	"context"
	"database/sql"

	"github.com/Fatal777/Loan-Eligibility-Engine/internal/common/logger"
	"github.com/Fatal777/Loan-Eligibility-Engine/internal/models"
)

// claimChunk atomically marks up to $2 unprocessed applicants of batch $1 as
// claimed and returns them. SKIP LOCKED keeps concurrent claimers from
// blocking on each other; each receives a disjoint subset. The lease term
// ($3, milliseconds) lets rows stranded by a crashed claimer be reclaimed
// once the lease expires. A failed transaction marks nothing.
const claimChunk = `
	UPDATE users SET claimed_at = NOW()
	WHERE user_id IN (
		SELECT user_id FROM users
		WHERE batch_id = $1
		  AND processed = false
		  AND (claimed_at IS NULL OR claimed_at < NOW() - ($3 * INTERVAL '1 millisecond'))
		ORDER BY user_id
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	)
	RETURNING user_id, email, monthly_income, credit_score, COALESCE(employment_status, ''), age, batch_id`

const selectLatestBatch = `
	SELECT batch_id FROM users
	WHERE batch_id IS NOT NULL
	ORDER BY created_at DESC
	LIMIT 1`

const countBatchApplicants = `
	SELECT COUNT(*), COUNT(*) FILTER (WHERE processed = true)
	FROM users WHERE batch_id = $1`

// Claimer hands out disjoint applicant chunks to pipeline workers.
type Claimer struct {
	db      *sql.DB
	leaseMS int
	logger  logger.Logger
}

func New(db *sql.DB, leaseMS int, log logger.Logger) *Claimer {
	return &Claimer{
		db:      db,
		leaseMS: leaseMS,
		logger:  log.WithFields(map[string]interface{}{"component": "claimer"}),
	}
}

// ClaimNext claims up to maxSize applicants of the batch. An empty slice
// means the batch is drained: no unclaimed, unprocessed applicants remain.
func (c *Claimer) ClaimNext(ctx context.Context, batchID string, maxSize int) ([]models.Applicant, error) {
	rows, err := c.db.QueryContext(ctx, claimChunk, batchID, maxSize, c.leaseMS)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunk []models.Applicant
	for rows.Next() {
		var a models.Applicant
		if err := rows.Scan(
			&a.UserID, &a.Email, &a.MonthlyIncome, &a.CreditScore,
			&a.EmploymentStatus, &a.Age, &a.BatchID,
		); err != nil {
			return nil, err
		}
		chunk = append(chunk, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	c.logger.Debug("claimed chunk", map[string]interface{}{
		"batchId": batchID,
		"size":    len(chunk),
	})
	return chunk, nil
}

// LatestBatchID returns the most recently ingested batch. Used by the
// trigger endpoint when the request names no batch.
func (c *Claimer) LatestBatchID(ctx context.Context) (string, error) {
	var batchID string
	err := c.db.QueryRowContext(ctx, selectLatestBatch).Scan(&batchID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return batchID, nil
}

// BatchProgress reports total and processed applicant counts for a batch.
func (c *Claimer) BatchProgress(ctx context.Context, batchID string) (total, processed int, err error) {
	err = c.db.QueryRowContext(ctx, countBatchApplicants, batchID).Scan(&total, &processed)
	return total, processed, err
}
