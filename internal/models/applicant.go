// internal/models/applicant.go
package models

import "fmt"

// Credit score and age bounds enforced at ingest; records outside them are
// skipped rather than scored.
const (
	CreditScoreMin  = 300
	CreditScoreMax  = 900
	ApplicantMinAge = 18
	ApplicantMaxAge = 100
)

// Applicant is one row of the users table, claimed in chunks by the engine.
type Applicant struct {
	UserID           string  `json:"userId" db:"user_id"`
	Email            string  `json:"email" db:"email"`
	MonthlyIncome    float64 `json:"monthlyIncome" db:"monthly_income"`
	CreditScore      int     `json:"creditScore" db:"credit_score"`
	EmploymentStatus string  `json:"employmentStatus" db:"employment_status"`
	Age              int     `json:"age" db:"age"`
	BatchID          string  `json:"batchId" db:"batch_id"`
	Processed        bool    `json:"processed" db:"processed"`
}

// Validate applies the ingest sanity bounds. A failing record is malformed
// and must be skipped, not scored.
func (a Applicant) Validate() error {
	if a.UserID == "" {
		return fmt.Errorf("user_id is empty")
	}
	if a.MonthlyIncome < 0 {
		return fmt.Errorf("monthly_income is negative: %f", a.MonthlyIncome)
	}
	if a.CreditScore < CreditScoreMin || a.CreditScore > CreditScoreMax {
		return fmt.Errorf("credit_score %d outside %d..%d", a.CreditScore, CreditScoreMin, CreditScoreMax)
	}
	if a.Age < ApplicantMinAge || a.Age > ApplicantMaxAge {
		return fmt.Errorf("age %d outside %d..%d", a.Age, ApplicantMinAge, ApplicantMaxAge)
	}
	return nil
}
