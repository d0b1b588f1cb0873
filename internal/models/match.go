// internal/models/match.go
package models

import "time"

// Provenance records how a match was decided.
type Provenance string

const (
	ProvenanceAuto      Provenance = "auto"
	ProvenanceEscalated Provenance = "escalated"
)

// Match is one approved applicant/product pairing. The (UserID, ProductID,
// BatchID) triple is unique in the matches table; re-submission is a no-op.
type Match struct {
	UserID           string     `json:"userId" db:"user_id"`
	ProductID        string     `json:"productId" db:"product_id"`
	BatchID          string     `json:"batchId" db:"batch_id"`
	Score            int        `json:"matchScore" db:"match_score"`
	Provenance       Provenance `json:"matchType" db:"match_type"`
	Rationale        string     `json:"matchReason" db:"match_reason"`
	NotificationSent bool       `json:"notificationSent" db:"notification_sent"`
	CreatedAt        time.Time  `json:"createdAt,omitempty" db:"created_at"`
}
