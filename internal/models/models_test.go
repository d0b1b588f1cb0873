// internal/models/models_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validApplicant() Applicant {
	return Applicant{
		UserID:           "u1",
		Email:            "u1@example.com",
		MonthlyIncome:    40000,
		CreditScore:      700,
		EmploymentStatus: "salaried",
		Age:              35,
		BatchID:          "batch-1",
	}
}

func TestApplicantValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Applicant)
		wantErr bool
	}{
		{"valid", func(a *Applicant) {}, false},
		{"empty user id", func(a *Applicant) { a.UserID = "" }, true},
		{"negative income", func(a *Applicant) { a.MonthlyIncome = -1 }, true},
		{"zero income is allowed", func(a *Applicant) { a.MonthlyIncome = 0 }, false},
		{"credit below floor", func(a *Applicant) { a.CreditScore = 299 }, true},
		{"credit at floor", func(a *Applicant) { a.CreditScore = 300 }, false},
		{"credit above ceiling", func(a *Applicant) { a.CreditScore = 901 }, true},
		{"credit at ceiling", func(a *Applicant) { a.CreditScore = 900 }, false},
		{"underage", func(a *Applicant) { a.Age = 17 }, true},
		{"age above bound", func(a *Applicant) { a.Age = 101 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validApplicant()
			tt.mutate(&a)

			err := a.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAllowsEmployment(t *testing.T) {
	p := LoanProduct{Employment: []string{"salaried", "self-employed"}}

	assert.True(t, p.AllowsEmployment("salaried"))
	assert.True(t, p.AllowsEmployment("Salaried"))
	assert.True(t, p.AllowsEmployment("  self-employed  "))
	assert.False(t, p.AllowsEmployment("student"))
	assert.False(t, p.AllowsEmployment(""))

	// An empty allowed set admits every status.
	open := LoanProduct{}
	assert.True(t, open.AllowsEmployment("anything"))
	assert.True(t, open.AllowsEmployment(""))
}

func TestParseEmploymentStatuses(t *testing.T) {
	tests := []struct {
		raw      string
		expected []string
	}{
		{"salaried, self-employed", []string{"salaried", "self-employed"}},
		{"Salaried", []string{"salaried"}},
		{"salaried,,  ,self-employed", []string{"salaried", "self-employed"}},
		{"", nil},
		{"   ", nil},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParseEmploymentStatuses(tt.raw), "raw=%q", tt.raw)
	}
}
