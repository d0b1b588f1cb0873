// internal/engine/scorer/scorer.go
package scorer

import (
	"fmt"
	"strings"

	"github.com/Fatal777/Loan-Eligibility-Engine/internal/models"
)

// Classification is the funnel decision for a scored pair.
type Classification string

const (
	AutoApprove Classification = "auto_approve"
	Review      Classification = "review"
	AutoReject  Classification = "auto_reject"
)

// Criterion weights. They sum to 100 so the score is directly a percentage.
const (
	incomePoints     = 30
	creditPoints     = 30
	agePoints        = 20
	employmentPoints = 20
)

// Scorer classifies scores against configurable thresholds. Scoring itself
// is a pure function of the pair and carries no state.
type Scorer struct {
	approveThreshold int
	reviewThreshold  int
}

// New builds a Scorer. Thresholds are validated at config load; callers pass
// them through unchanged.
func New(approveThreshold, reviewThreshold int) *Scorer {
	return &Scorer{
		approveThreshold: approveThreshold,
		reviewThreshold:  reviewThreshold,
	}
}

// Score computes the eligibility score of an applicant against a product.
// Each criterion contributes all of its points or none; there is no partial
// credit. Same inputs always produce the same score.
func Score(a models.Applicant, p models.LoanProduct) int {
	score := 0
	if a.MonthlyIncome >= p.MinMonthlyIncome {
		score += incomePoints
	}
	if a.CreditScore >= p.CreditScoreMin && a.CreditScore <= p.CreditScoreMax {
		score += creditPoints
	}
	if a.Age >= p.MinAge && a.Age <= p.MaxAge {
		score += agePoints
	}
	if p.AllowsEmployment(a.EmploymentStatus) {
		score += employmentPoints
	}
	return score
}

// Classify maps a score into the funnel decision. The approve threshold is
// inclusive, the review threshold is inclusive on its lower bound.
func (s *Scorer) Classify(score int) Classification {
	switch {
	case score >= s.approveThreshold:
		return AutoApprove
	case score >= s.reviewThreshold:
		return Review
	default:
		return AutoReject
	}
}

// Rationale builds the human-readable match_reason for a scored pair,
// listing which criteria were met.
func Rationale(a models.Applicant, p models.LoanProduct) string {
	met := make([]string, 0, 4)
	if a.MonthlyIncome >= p.MinMonthlyIncome {
		met = append(met, "income")
	}
	if a.CreditScore >= p.CreditScoreMin && a.CreditScore <= p.CreditScoreMax {
		met = append(met, "credit score")
	}
	if a.Age >= p.MinAge && a.Age <= p.MaxAge {
		met = append(met, "age")
	}
	if p.AllowsEmployment(a.EmploymentStatus) {
		met = append(met, "employment")
	}
	if len(met) == 0 {
		return fmt.Sprintf("score %d: no criteria met", Score(a, p))
	}
	return fmt.Sprintf("score %d: met %s", Score(a, p), strings.Join(met, ", "))
}
