// internal/engine/escalator/features.go
package escalator

import (
	"github.com/Fatal777/Loan-Eligibility-Engine/internal/engine/scorer"
	"github.com/Fatal777/Loan-Eligibility-Engine/internal/models"
)

// FeatureSummary is the bounded payload sent to the judgment service. Raw
// applicant rows never leave the engine; only derived features do.
type FeatureSummary struct {
	IncomeToLoanRatio   float64 `json:"incomeToLoanRatio"`
	CreditTier          string  `json:"creditTier"`
	EmploymentStability string  `json:"employmentStability"`
	ProductFit          int     `json:"productFit"`
}

func buildFeatures(a models.Applicant, p models.LoanProduct) FeatureSummary {
	ratio := 0.0
	if p.LoanAmountMax > 0 {
		ratio = a.MonthlyIncome / p.LoanAmountMax
	}
	return FeatureSummary{
		IncomeToLoanRatio:   ratio,
		CreditTier:          creditTier(a.CreditScore),
		EmploymentStability: employmentStability(a.EmploymentStatus),
		ProductFit:          scorer.Score(a, p),
	}
}

func creditTier(score int) string {
	switch {
	case score >= 750:
		return "prime"
	case score >= 650:
		return "near_prime"
	case score >= 500:
		return "subprime"
	default:
		return "deep_subprime"
	}
}

func employmentStability(status string) string {
	switch status {
	case "salaried":
		return "stable"
	case "self-employed":
		return "variable"
	case "":
		return "unknown"
	default:
		return "other"
	}
}
