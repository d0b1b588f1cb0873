// internal/engine/scorer/scorer_test.go
package scorer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Fatal777/Loan-Eligibility-Engine/internal/models"
)

func testApplicant() models.Applicant {
	return models.Applicant{
		UserID:           "user-1",
		Email:            "user1@example.com",
		MonthlyIncome:    40000,
		CreditScore:      650,
		EmploymentStatus: "salaried",
		Age:              35,
		BatchID:          "batch-1",
	}
}

func TestScore(t *testing.T) {
	applicant := testApplicant()

	tests := []struct {
		name     string
		product  models.LoanProduct
		expected int
	}{
		{
			name: "all criteria met",
			product: models.LoanProduct{
				MinMonthlyIncome: 15000,
				CreditScoreMin:   650,
				CreditScoreMax:   900,
				MinAge:           21,
				MaxAge:           58,
				Employment:       []string{"salaried"},
			},
			expected: 100,
		},
		{
			name: "credit range missed",
			product: models.LoanProduct{
				MinMonthlyIncome: 25000,
				CreditScoreMin:   750,
				CreditScoreMax:   900,
				MinAge:           21,
				MaxAge:           60,
				Employment:       []string{"salaried"},
			},
			expected: 70,
		},
		{
			name: "credit lower bound is inclusive",
			product: models.LoanProduct{
				MinMonthlyIncome: 15000,
				CreditScoreMin:   650,
				CreditScoreMax:   700,
				MinAge:           21,
				MaxAge:           58,
				Employment:       []string{"salaried"},
			},
			expected: 100,
		},
		{
			name: "credit just above applicant",
			product: models.LoanProduct{
				MinMonthlyIncome: 15000,
				CreditScoreMin:   700,
				CreditScoreMax:   900,
				MinAge:           21,
				MaxAge:           58,
				Employment:       []string{"salaried"},
			},
			expected: 70,
		},
		{
			name: "income boundary is inclusive",
			product: models.LoanProduct{
				MinMonthlyIncome: 40000,
				CreditScoreMin:   300,
				CreditScoreMax:   900,
				MinAge:           18,
				MaxAge:           100,
				Employment:       []string{"salaried"},
			},
			expected: 100,
		},
		{
			name: "empty employment set admits all",
			product: models.LoanProduct{
				MinMonthlyIncome: 15000,
				CreditScoreMin:   300,
				CreditScoreMax:   900,
				MinAge:           18,
				MaxAge:           100,
			},
			expected: 100,
		},
		{
			name: "employment status not allowed",
			product: models.LoanProduct{
				MinMonthlyIncome: 15000,
				CreditScoreMin:   300,
				CreditScoreMax:   900,
				MinAge:           18,
				MaxAge:           100,
				Employment:       []string{"self-employed"},
			},
			expected: 80,
		},
		{
			name: "nothing met",
			product: models.LoanProduct{
				MinMonthlyIncome: 100000,
				CreditScoreMin:   800,
				CreditScoreMax:   900,
				MinAge:           50,
				MaxAge:           60,
				Employment:       []string{"self-employed"},
			},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(applicant, tt.product)
			assert.Equal(t, tt.expected, got)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, 100)
		})
	}
}

func TestScoreIsPure(t *testing.T) {
	applicant := testApplicant()
	product := models.LoanProduct{
		MinMonthlyIncome: 25000,
		CreditScoreMin:   750,
		CreditScoreMax:   900,
		MinAge:           21,
		MaxAge:           60,
		Employment:       []string{"salaried"},
	}

	first := Score(applicant, product)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Score(applicant, product))
	}
}

func TestClassifyBoundaries(t *testing.T) {
	s := New(70, 50)

	tests := []struct {
		score    int
		expected Classification
	}{
		{100, AutoApprove},
		{70, AutoApprove},
		{69, Review},
		{50, Review},
		{49, AutoReject},
		{0, AutoReject},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("score %d", tt.score), func(t *testing.T) {
			assert.Equal(t, tt.expected, s.Classify(tt.score))
		})
	}
}

func TestRationale(t *testing.T) {
	applicant := testApplicant()

	t.Run("lists met criteria", func(t *testing.T) {
		product := models.LoanProduct{
			MinMonthlyIncome: 25000,
			CreditScoreMin:   750,
			CreditScoreMax:   900,
			MinAge:           21,
			MaxAge:           60,
			Employment:       []string{"salaried"},
		}
		got := Rationale(applicant, product)
		assert.Equal(t, "score 70: met income, age, employment", got)
	})

	t.Run("nothing met", func(t *testing.T) {
		product := models.LoanProduct{
			MinMonthlyIncome: 100000,
			CreditScoreMin:   800,
			CreditScoreMax:   900,
			MinAge:           50,
			MaxAge:           60,
			Employment:       []string{"self-employed"},
		}
		got := Rationale(applicant, product)
		assert.Equal(t, "score 0: no criteria met", got)
	})
}
