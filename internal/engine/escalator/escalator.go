// internal/engine/escalator/escalator.go
package escalator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	engerrors "github.com/Fatal777/Loan-Eligibility-Engine/internal/common/errors"
	"github.com/Fatal777/Loan-Eligibility-Engine/internal/common/logger"
	"github.com/Fatal777/Loan-Eligibility-Engine/internal/common/metrics"
	"github.com/Fatal777/Loan-Eligibility-Engine/internal/common/validation"
	"github.com/Fatal777/Loan-Eligibility-Engine/internal/models"
)

// Decision is the judgment outcome for one borderline pair.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Judgment carries the decision and its audit trail. FailedOpen marks
// rejections produced by the engine itself when the service was unusable.
type Judgment struct {
	Decision   Decision
	Rationale  string
	FailedOpen bool
}

// Judge is the escalation seam. Implementations must never block the
// pipeline: every failure path yields a Reject judgment, not an error.
// The only error returned is the caller's own context cancellation.
type Judge interface {
	Judge(ctx context.Context, a models.Applicant, p models.LoanProduct) (Judgment, error)
}

// JudgeFunc adapts a function to the Judge interface.
type JudgeFunc func(ctx context.Context, a models.Applicant, p models.LoanProduct) (Judgment, error)

func (f JudgeFunc) Judge(ctx context.Context, a models.Applicant, p models.LoanProduct) (Judgment, error) {
	return f(ctx, a, p)
}

type Config struct {
	BaseURL          string
	APIKey           string
	Timeout          time.Duration // hard budget per judgment, retries included
	MaxRetries       int
	MaxConcurrency   int
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// Client calls the external judgment service over HTTP. Concurrency is
// capped by a semaphore; consecutive failures open a circuit breaker that
// fails open until the cooldown passes.
type Client struct {
	config *Config
	client *http.Client
	sem    chan struct{}
	logger logger.Logger

	mu        sync.Mutex
	failures  int
	openUntil time.Time
}

func NewClient(config *Config, log logger.Logger) *Client {
	return &Client{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		sem:    make(chan struct{}, config.MaxConcurrency),
		logger: log.WithFields(map[string]interface{}{"component": "escalator"}),
	}
}

type judgmentRequest struct {
	UserID    string         `json:"userId"`
	ProductID string         `json:"productId"`
	BatchID   string         `json:"batchId"`
	Features  FeatureSummary `json:"features"`
}

type judgmentResponse struct {
	Decision   string  `json:"decision"`
	Rationale  string  `json:"rationale"`
	Confidence float64 `json:"confidence"`
}

// Judge escalates one borderline pair. Timeout, transport failure, bad
// status, malformed response, and an open breaker all fail open to Reject
// with an audit rationale; none of them surface as pipeline errors.
func (c *Client) Judge(ctx context.Context, a models.Applicant, p models.LoanProduct) (Judgment, error) {
	select {
	case c.sem <- struct{}{}:
		defer func() { <-c.sem }()
	case <-ctx.Done():
		return Judgment{}, ctx.Err()
	}

	if c.breakerOpen() {
		return c.failOpen(a, p, engerrors.NewJudgmentCircuitOpenError()), nil
	}

	callCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	resp, err := c.callWithRetries(callCtx, a, p)
	if err != nil {
		// Parent cancellation is the orchestrator shutting down, not a
		// service failure.
		if ctx.Err() != nil {
			return Judgment{}, ctx.Err()
		}
		c.recordFailure()
		return c.failOpen(a, p, err), nil
	}

	c.recordSuccess()

	if resp.Decision == string(DecisionApprove) {
		return Judgment{Decision: DecisionApprove, Rationale: resp.Rationale}, nil
	}
	return Judgment{Decision: DecisionReject, Rationale: resp.Rationale}, nil
}

func (c *Client) callWithRetries(ctx context.Context, a models.Applicant, p models.LoanProduct) (*judgmentResponse, error) {
	payload, err := json.Marshal(judgmentRequest{
		UserID:    a.UserID,
		ProductID: p.ProductID,
		BatchID:   a.BatchID,
		Features:  buildFeatures(a, p),
	})
	if err != nil {
		return nil, engerrors.NewJudgmentFailedError(err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.config.MaxRetries; attempt++ {
		resp, err := c.callOnce(ctx, payload)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return nil, engerrors.NewJudgmentTimeoutError()
		}

		c.logger.Warn("judgment call failed", map[string]interface{}{
			"userId":    a.UserID,
			"productId": p.ProductID,
			"attempt":   attempt,
			"error":     err.Error(),
		})

		if attempt < c.config.MaxRetries {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, engerrors.NewJudgmentTimeoutError()
			}
		}
	}

	return nil, engerrors.NewJudgmentFailedError(lastErr)
}

func (c *Client) callOnce(ctx context.Context, payload []byte) (*judgmentResponse, error) {
	// A fresh request per attempt: the body reader is consumed on send.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/v1/judgments", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	httpResp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("judgment service returned status %d", httpResp.StatusCode)
	}

	if err := validation.ValidateJudgmentResponse(body); err != nil {
		return nil, engerrors.NewJudgmentMalformedError(err.Error())
	}

	var resp judgmentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, engerrors.NewJudgmentMalformedError(err.Error())
	}
	return &resp, nil
}

// failOpen produces the audited Reject used whenever the service cannot be
// consulted. The pipeline keeps moving; the pair is simply not matched.
func (c *Client) failOpen(a models.Applicant, p models.LoanProduct, cause error) Judgment {
	c.logger.Warn("escalation failed open", map[string]interface{}{
		"userId":    a.UserID,
		"productId": p.ProductID,
		"batchId":   a.BatchID,
		"cause":     cause.Error(),
	})
	return Judgment{
		Decision:   DecisionReject,
		Rationale:  fmt.Sprintf("escalation unavailable: %s", cause.Error()),
		FailedOpen: true,
	}
}

func (c *Client) breakerOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Now().Before(c.openUntil)
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures++
	if c.failures >= c.config.BreakerThreshold {
		c.openUntil = time.Now().Add(c.config.BreakerCooldown)
		c.failures = 0
		metrics.EscalatorBreakerOpen.Set(1)
		c.logger.Error("judgment circuit breaker opened", map[string]interface{}{
			"cooldownMs": c.config.BreakerCooldown.Milliseconds(),
		})
	}
}

func (c *Client) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = 0
	c.openUntil = time.Time{}
	metrics.EscalatorBreakerOpen.Set(0)
}
