// internal/notify/notifier.go
package notify

import (
	"context"
	"time"

	"github.com/Fatal777/Loan-Eligibility-Engine/internal/common/logger"
	"github.com/Fatal777/Loan-Eligibility-Engine/internal/engine/orchestrator"
)

// Publisher is the transport seam, satisfied by the SNS client.
type Publisher interface {
	PublishJSON(ctx context.Context, topicARN string, payload interface{}) (string, error)
}

type completionMessage struct {
	Event       string                `json:"event"`
	BatchID     string                `json:"batchId"`
	Summary     *orchestrator.Summary `json:"summary"`
	CompletedAt string                `json:"completedAt"`
}

// SNSNotifier publishes one batch-completion message per batch. Composing
// and delivering user-facing notifications is the consumer's job.
type SNSNotifier struct {
	publisher Publisher
	topicARN  string
	logger    logger.Logger
}

func NewSNSNotifier(publisher Publisher, topicARN string, log logger.Logger) *SNSNotifier {
	return &SNSNotifier{
		publisher: publisher,
		topicARN:  topicARN,
		logger:    log.WithFields(map[string]interface{}{"component": "notifier"}),
	}
}

func (n *SNSNotifier) NotifyBatchComplete(ctx context.Context, batchID string, summary *orchestrator.Summary) error {
	msgID, err := n.publisher.PublishJSON(ctx, n.topicARN, completionMessage{
		Event:       "batch.matching.completed",
		BatchID:     batchID,
		Summary:     summary,
		CompletedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	n.logger.Info("published batch completion signal", map[string]interface{}{
		"batchId":   batchID,
		"messageId": msgID,
	})
	return nil
}

// LogNotifier is the fallback when SNS is disabled (local development);
// it only records the completion in the log.
type LogNotifier struct {
	logger logger.Logger
}

func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{logger: log.WithFields(map[string]interface{}{"component": "notifier"})}
}

func (n *LogNotifier) NotifyBatchComplete(ctx context.Context, batchID string, summary *orchestrator.Summary) error {
	n.logger.Info("batch completion (sns disabled)", map[string]interface{}{
		"batchId":             batchID,
		"applicantsProcessed": summary.Processed,
		"matchesAutoApproved": summary.AutoApproved,
		"escalationsApproved": summary.EscalationApproved,
	})
	return nil
}
