// internal/models/product.go
package models

import (
	"strings"
	"time"
)

// LoanProduct is one row of the loan_products table, maintained by the
// product discovery pipeline and read-only for the engine.
type LoanProduct struct {
	ProductID        string    `json:"productId" db:"product_id"`
	Name             string    `json:"name" db:"product_name"`
	Provider         string    `json:"provider" db:"provider"`
	InterestRateMin  float64   `json:"interestRateMin" db:"interest_rate_min"`
	InterestRateMax  float64   `json:"interestRateMax" db:"interest_rate_max"`
	LoanAmountMin    float64   `json:"loanAmountMin" db:"loan_amount_min"`
	LoanAmountMax    float64   `json:"loanAmountMax" db:"loan_amount_max"`
	MinMonthlyIncome float64   `json:"minMonthlyIncome" db:"min_monthly_income"`
	CreditScoreMin   int       `json:"creditScoreMin" db:"min_credit_score"`
	CreditScoreMax   int       `json:"creditScoreMax" db:"max_credit_score"`
	Employment       []string  `json:"requiredEmploymentStatus" db:"required_employment_status"`
	MinAge           int       `json:"minAge" db:"min_age"`
	MaxAge           int       `json:"maxAge" db:"max_age"`
	SourceURL        string    `json:"sourceUrl,omitempty" db:"source_url"`
	FetchedAt        time.Time `json:"fetchedAt,omitempty" db:"fetched_at"`
	Active           bool      `json:"isActive" db:"is_active"`
}

// AllowsEmployment reports whether the applicant's employment status is in
// the product's allowed set. An empty set admits every status.
func (p LoanProduct) AllowsEmployment(status string) bool {
	if len(p.Employment) == 0 {
		return true
	}
	status = strings.ToLower(strings.TrimSpace(status))
	for _, allowed := range p.Employment {
		if strings.ToLower(strings.TrimSpace(allowed)) == status {
			return true
		}
	}
	return false
}

// ParseEmploymentStatuses splits the comma-separated required_employment_status
// column into a normalized slice. Empty segments are dropped.
func ParseEmploymentStatuses(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
