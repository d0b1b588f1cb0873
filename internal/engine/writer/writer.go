// internal/engine/writer/writer.go
package writer

import (
	"context"
	"database/sql"
	"errors"
	"time"

	engerrors "github.com/Fatal777/Loan-Eligibility-Engine/internal/common/errors"
	"github.com/Fatal777/Loan-Eligibility-Engine/internal/common/logger"
	"github.com/Fatal777/Loan-Eligibility-Engine/internal/models"

	"github.com/lib/pq"
)

// insertMatch is idempotent on the (user_id, product_id, batch_id) unique
// constraint: a re-run of the same chunk inserts nothing new.
const insertMatch = `
	INSERT INTO matches (user_id, product_id, batch_id, match_score, match_type, match_reason)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (user_id, product_id, batch_id) DO NOTHING`

const markProcessed = `
	UPDATE users SET processed = true, claimed_at = NULL
	WHERE user_id = $1 AND batch_id = $2`

// ApplicantResult is the outcome of scoring one claimed applicant: zero or
// more approved matches. Applicants skipped as malformed carry no matches
// but are still marked processed so the batch can drain.
type ApplicantResult struct {
	Applicant models.Applicant
	Matches   []models.Match
}

// Writer persists chunk results transactionally and retries transient
// storage failures with exponential backoff.
type Writer struct {
	db          *sql.DB
	maxRetries  int
	baseBackoff time.Duration
	logger      logger.Logger
}

func New(db *sql.DB, maxRetries int, baseBackoff time.Duration, log logger.Logger) *Writer {
	return &Writer{
		db:          db,
		maxRetries:  maxRetries,
		baseBackoff: baseBackoff,
		logger:      log.WithFields(map[string]interface{}{"component": "writer"}),
	}
}

// PersistChunk writes every match of the chunk and flips processed for every
// applicant in one transaction. Either the whole chunk commits or none of it
// does; the claim lease then makes the chunk re-deliverable.
func (w *Writer) PersistChunk(ctx context.Context, batchID string, results []ApplicantResult) error {
	if len(results) == 0 {
		return nil
	}

	var lastErr error
	for attempt := 1; attempt <= w.maxRetries; attempt++ {
		lastErr = w.persistOnce(ctx, results)
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) {
			return engerrors.NewMatchWriteFailedError(batchID, lastErr)
		}

		w.logger.Warn("chunk persist failed, retrying", map[string]interface{}{
			"batchId": batchID,
			"attempt": attempt,
			"error":   lastErr.Error(),
		})

		if attempt < w.maxRetries {
			backoff := time.Duration(1<<(attempt-1)) * w.baseBackoff
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return engerrors.NewChunkRetriesExhaustedError(batchID, w.maxRetries, lastErr)
}

func (w *Writer) persistOnce(ctx context.Context, results []ApplicantResult) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, r := range results {
		for _, m := range r.Matches {
			if _, err := tx.ExecContext(ctx, insertMatch,
				m.UserID, m.ProductID, m.BatchID, m.Score, string(m.Provenance), m.Rationale,
			); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, markProcessed,
			r.Applicant.UserID, r.Applicant.BatchID,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// isTransient classifies storage errors worth retrying. Context
// cancellation is terminal; serialization and connection failures are not.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08": // connection exceptions
			return true
		case "40": // serialization failures, deadlocks
			return true
		case "53": // insufficient resources
			return true
		}
		return false
	}
	// Driver-level errors (dropped connections and the like) are retried.
	return true
}
