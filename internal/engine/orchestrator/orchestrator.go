// internal/engine/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"sync"
	"time"

	engerrors "github.com/Fatal777/Loan-Eligibility-Engine/internal/common/errors"
	"github.com/Fatal777/Loan-Eligibility-Engine/internal/common/logger"
	"github.com/Fatal777/Loan-Eligibility-Engine/internal/common/metrics"
	"github.com/Fatal777/Loan-Eligibility-Engine/internal/common/observability"
	"github.com/Fatal777/Loan-Eligibility-Engine/internal/engine/escalator"
	"github.com/Fatal777/Loan-Eligibility-Engine/internal/engine/scorer"
	"github.com/Fatal777/Loan-Eligibility-Engine/internal/engine/writer"
	"github.com/Fatal777/Loan-Eligibility-Engine/internal/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// State names the pipeline's explicit control-loop states.
type State string

const (
	StateIdle           State = "idle"
	StateClaimingBatch  State = "claiming_batch"
	StateScoring        State = "scoring"
	StateEscalating     State = "escalating"
	StatePersisting     State = "persisting"
	StateDrained        State = "drained"
	StateNotifyingBatch State = "notifying_complete"
)

// Claimer hands out disjoint applicant chunks. An empty chunk is the
// terminal signal for the batch.
type Claimer interface {
	ClaimNext(ctx context.Context, batchID string, maxSize int) ([]models.Applicant, error)
}

// CandidateIndex answers pre-filtered product lookups per applicant.
type CandidateIndex interface {
	CandidatesFor(a models.Applicant) []models.LoanProduct
}

// ChunkWriter persists one chunk's results transactionally.
type ChunkWriter interface {
	PersistChunk(ctx context.Context, batchID string, results []writer.ApplicantResult) error
}

// CompletionStore records batch completion exactly once. MarkComplete
// returns true only for the first caller per batch.
type CompletionStore interface {
	MarkComplete(ctx context.Context, batchID string) (bool, error)
}

// Notifier signals the downstream notification flow that a batch finished.
type Notifier interface {
	NotifyBatchComplete(ctx context.Context, batchID string, summary *Summary) error
}

// Summary carries the per-run counters reported on completion.
type Summary struct {
	BatchID            string    `json:"batchId"`
	RunID              string    `json:"runId"`
	Chunks             int       `json:"chunks"`
	Processed          int       `json:"applicantsProcessed"`
	Skipped            int       `json:"recordsSkipped"`
	AutoApproved       int       `json:"matchesAutoApproved"`
	Escalated          int       `json:"pairsEscalated"`
	EscalationApproved int       `json:"escalationsApproved"`
	EscalationRejected int       `json:"escalationsRejected"`
	AutoRejected       int       `json:"pairsAutoRejected"`
	StartedAt          time.Time `json:"startedAt"`
	FinishedAt         time.Time `json:"finishedAt"`
}

type Config struct {
	ChunkSize             int
	ClaimMaxRetries       int
	ClaimRetryBackoff     time.Duration
	EscalationConcurrency int
	NotifyMaxRetries      int
}

// Orchestrator drives the bounded claim-score-escalate-persist loop for one
// batch. Several orchestrators may run the same batch concurrently; the
// claimer guarantees they never process the same applicant twice.
type Orchestrator struct {
	config      *Config
	claimer     Claimer
	index       CandidateIndex
	scorer      *scorer.Scorer
	judge       escalator.Judge
	writer      ChunkWriter
	completions CompletionStore
	notifier    Notifier
	obs         *observability.Observability
	logger      logger.Logger

	mu    sync.Mutex
	state State
}

func New(
	config *Config,
	claimer Claimer,
	index CandidateIndex,
	sc *scorer.Scorer,
	judge escalator.Judge,
	w ChunkWriter,
	completions CompletionStore,
	notifier Notifier,
	obs *observability.Observability,
	log logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		config:      config,
		claimer:     claimer,
		index:       index,
		scorer:      sc,
		judge:       judge,
		writer:      w,
		completions: completions,
		notifier:    notifier,
		obs:         obs,
		logger:      log.WithFields(map[string]interface{}{"component": "orchestrator"}),
		state:       StateIdle,
	}
}

// State returns the current control-loop state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// Run processes the batch until the claimer reports it drained, then signals
// completion exactly once across all runs of the batch. Cancellation is
// honored between chunks; an in-flight chunk finishes and commits first.
func (o *Orchestrator) Run(ctx context.Context, batchID string) (*Summary, error) {
	runID := uuid.NewString()
	log := o.logger.WithFields(map[string]interface{}{
		"batchId": batchID,
		"runId":   runID,
	})
	summary := &Summary{BatchID: batchID, RunID: runID, StartedAt: time.Now().UTC()}

	log.Info("starting batch run", nil)
	defer o.setState(StateIdle)

	for {
		if err := ctx.Err(); err != nil {
			log.Warn("run cancelled between chunks", map[string]interface{}{"error": err.Error()})
			return summary, err
		}

		o.setState(StateClaimingBatch)
		chunk, err := o.claimChunk(ctx, batchID)
		if err != nil {
			return summary, err
		}
		if len(chunk) == 0 {
			break
		}

		start := time.Now()
		results, err := o.processChunk(ctx, batchID, chunk, summary)
		if err != nil {
			return summary, err
		}

		o.setState(StatePersisting)
		// Detached for the same reason as escalation: a claimed chunk
		// commits whole even when the run is being cancelled.
		if err := o.writer.PersistChunk(context.WithoutCancel(ctx), batchID, results); err != nil {
			if o.obs != nil {
				o.obs.RecordChunkProcessed(ctx, "failed")
			}
			return summary, err
		}

		summary.Chunks++
		metrics.ChunkDuration.WithLabelValues(batchID).Observe(time.Since(start).Seconds())
		if o.obs != nil {
			o.obs.RecordChunkProcessed(ctx, "completed")
		}
	}

	o.setState(StateDrained)
	summary.FinishedAt = time.Now().UTC()
	if o.obs != nil {
		o.obs.RecordRunDuration(ctx, summary.FinishedAt.Sub(summary.StartedAt), "drained")
	}

	first, err := o.completions.MarkComplete(ctx, batchID)
	if err != nil {
		return summary, err
	}
	if !first {
		// Another run already signalled this batch; a duplicate drain is
		// a no-op.
		log.Info("batch already marked complete", nil)
		return summary, nil
	}

	o.setState(StateNotifyingBatch)
	if err := o.notify(ctx, batchID, summary, log); err != nil {
		return summary, err
	}

	log.Info("batch run complete", map[string]interface{}{
		"chunks":              summary.Chunks,
		"applicantsProcessed": summary.Processed,
		"recordsSkipped":      summary.Skipped,
		"matchesAutoApproved": summary.AutoApproved,
		"pairsEscalated":      summary.Escalated,
		"escalationsApproved": summary.EscalationApproved,
		"escalationsRejected": summary.EscalationRejected,
		"pairsAutoRejected":   summary.AutoRejected,
	})
	return summary, nil
}

func (o *Orchestrator) claimChunk(ctx context.Context, batchID string) ([]models.Applicant, error) {
	var lastErr error
	for attempt := 1; attempt <= o.config.ClaimMaxRetries; attempt++ {
		chunk, err := o.claimer.ClaimNext(ctx, batchID, o.config.ChunkSize)
		if err == nil {
			return chunk, nil
		}
		lastErr = engerrors.NewClaimFailedError(batchID, err)

		o.logger.Warn("chunk claim failed, retrying", map[string]interface{}{
			"batchId": batchID,
			"attempt": attempt,
			"error":   err.Error(),
		})

		if attempt < o.config.ClaimMaxRetries {
			backoff := time.Duration(1<<(attempt-1)) * o.config.ClaimRetryBackoff
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, engerrors.NewChunkRetriesExhaustedError(batchID, o.config.ClaimMaxRetries, lastErr)
}

// escalation is one Review-band pair awaiting external judgment.
type escalation struct {
	resultIdx int
	applicant models.Applicant
	product   models.LoanProduct
	score     int
}

func (o *Orchestrator) processChunk(
	ctx context.Context,
	batchID string,
	chunk []models.Applicant,
	summary *Summary,
) ([]writer.ApplicantResult, error) {
	o.setState(StateScoring)

	results := make([]writer.ApplicantResult, 0, len(chunk))
	var pending []escalation

	for _, a := range chunk {
		if err := a.Validate(); err != nil {
			// Malformed records are skipped but still marked processed,
			// otherwise the claim lease would re-deliver them forever.
			recErr := engerrors.NewMalformedRecordError(a.UserID, err.Error())
			o.logger.Warn("skipping malformed applicant record", map[string]interface{}{
				"batchId": batchID,
				"userId":  a.UserID,
				"code":    string(recErr.Code),
				"error":   recErr.Details,
			})
			metrics.RecordsSkipped.WithLabelValues(batchID, "validation").Inc()
			summary.Skipped++
			results = append(results, writer.ApplicantResult{Applicant: a})
			continue
		}

		res := writer.ApplicantResult{Applicant: a}
		for _, p := range o.index.CandidatesFor(a) {
			score := scorer.Score(a, p)
			switch o.scorer.Classify(score) {
			case scorer.AutoApprove:
				res.Matches = append(res.Matches, models.Match{
					UserID:     a.UserID,
					ProductID:  p.ProductID,
					BatchID:    batchID,
					Score:      score,
					Provenance: models.ProvenanceAuto,
					Rationale:  scorer.Rationale(a, p),
				})
				summary.AutoApproved++
				metrics.MatchesAutoApproved.WithLabelValues(batchID).Inc()
			case scorer.Review:
				pending = append(pending, escalation{
					resultIdx: len(results),
					applicant: a,
					product:   p,
					score:     score,
				})
			case scorer.AutoReject:
				summary.AutoRejected++
				metrics.PairsAutoRejected.WithLabelValues(batchID).Inc()
			}
		}

		results = append(results, res)
		summary.Processed++
		metrics.ApplicantsProcessed.WithLabelValues(batchID).Inc()
	}

	if len(pending) > 0 {
		if err := o.escalate(ctx, batchID, pending, results, summary); err != nil {
			return nil, err
		}
	}

	return results, nil
}

// escalate fans the chunk's Review pairs out to the judgment service with a
// bounded worker count. Judgment failures fail open inside the Judge. The
// chunk is the cancellation unit: judgments are detached from the run
// context and bounded by their own per-call timeouts, so a cancelled run
// still commits the chunk whole and stops at the next claim.
func (o *Orchestrator) escalate(
	ctx context.Context,
	batchID string,
	pending []escalation,
	results []writer.ApplicantResult,
	summary *Summary,
) error {
	o.setState(StateEscalating)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.SetLimit(o.config.EscalationConcurrency)

	for _, e := range pending {
		e := e
		g.Go(func() error {
			judgment, err := o.judge.Judge(gctx, e.applicant, e.product)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			summary.Escalated++
			metrics.PairsEscalated.WithLabelValues(batchID).Inc()

			if judgment.Decision == escalator.DecisionApprove {
				results[e.resultIdx].Matches = append(results[e.resultIdx].Matches, models.Match{
					UserID:     e.applicant.UserID,
					ProductID:  e.product.ProductID,
					BatchID:    batchID,
					Score:      e.score,
					Provenance: models.ProvenanceEscalated,
					Rationale:  judgment.Rationale,
				})
				summary.EscalationApproved++
				metrics.EscalationsApproved.WithLabelValues(batchID).Inc()
			} else {
				summary.EscalationRejected++
				metrics.EscalationsRejected.WithLabelValues(batchID).Inc()
			}
			return nil
		})
	}

	return g.Wait()
}

func (o *Orchestrator) notify(ctx context.Context, batchID string, summary *Summary, log logger.Logger) error {
	var lastErr error
	for attempt := 1; attempt <= o.config.NotifyMaxRetries; attempt++ {
		if lastErr = o.notifier.NotifyBatchComplete(ctx, batchID, summary); lastErr == nil {
			return nil
		}
		log.Warn("completion signal failed", map[string]interface{}{
			"attempt": attempt,
			"error":   lastErr.Error(),
		})
		if attempt < o.config.NotifyMaxRetries {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return engerrors.NewNotificationSendFailedError(batchID, lastErr)
}
