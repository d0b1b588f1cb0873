// internal/engine/index/index.go
package index

import (
	"fmt"

	"github.com/Fatal777/Loan-Eligibility-Engine/internal/models"
)

// bucket is one credit-score partition [Lo, Hi). The last bucket is closed
// on both ends so the top boundary score is indexable.
type bucket struct {
	lo, hi   int
	last     bool
	products []models.LoanProduct
}

func (b bucket) contains(score int) bool {
	if b.last {
		return score >= b.lo && score <= b.hi
	}
	return score >= b.lo && score < b.hi
}

// overlaps reports whether a product's credit range intersects the bucket.
// Product ranges are inclusive; the bucket's upper bound is exclusive unless
// it is the last bucket, so a product starting exactly on the next boundary
// never registers in the bucket below it.
func (b bucket) overlaps(min, max int) bool {
	if max < b.lo {
		return false
	}
	if b.last {
		return min <= b.hi
	}
	return min < b.hi
}

// Index partitions the active product catalog by credit-score bucket and
// answers candidate lookups with a cheap pre-filter. It is immutable once
// built; rebuilds swap in a fresh Index.
type Index struct {
	buckets []bucket
}

// Build partitions products into buckets derived from boundaries
// (e.g. [300, 500, 650, 750, 900] yields four buckets). A product whose
// credit range overlaps several buckets is registered in each of them.
func Build(products []models.LoanProduct, boundaries []int) (*Index, error) {
	if len(boundaries) < 2 {
		return nil, fmt.Errorf("need at least two bucket boundaries, got %d", len(boundaries))
	}
	for i := 1; i < len(boundaries); i++ {
		if boundaries[i] <= boundaries[i-1] {
			return nil, fmt.Errorf("bucket boundaries must be strictly increasing, got %v", boundaries)
		}
	}

	buckets := make([]bucket, len(boundaries)-1)
	for i := range buckets {
		buckets[i] = bucket{
			lo:   boundaries[i],
			hi:   boundaries[i+1],
			last: i == len(buckets)-1,
		}
	}

	for _, p := range products {
		if !p.Active {
			continue
		}
		for i := range buckets {
			if buckets[i].overlaps(p.CreditScoreMin, p.CreditScoreMax) {
				buckets[i].products = append(buckets[i].products, p)
			}
		}
	}

	return &Index{buckets: buckets}, nil
}

// CandidatesFor returns the products from the applicant's credit bucket that
// survive the pre-filter, in catalog order. The pre-filter drops products
// whose hard income, age, or employment requirements the applicant fails; it
// never consults the credit range, which stays with the scorer.
func (ix *Index) CandidatesFor(a models.Applicant) []models.LoanProduct {
	b := ix.bucketFor(a.CreditScore)
	if b == nil {
		return nil
	}

	var out []models.LoanProduct
	for _, p := range b.products {
		if prefilter(a, p) {
			out = append(out, p)
		}
	}
	return out
}

func (ix *Index) bucketFor(score int) *bucket {
	for i := range ix.buckets {
		if ix.buckets[i].contains(score) {
			return &ix.buckets[i]
		}
	}
	return nil
}

// prefilter applies the cheap applicant/product predicates before scoring.
func prefilter(a models.Applicant, p models.LoanProduct) bool {
	if a.MonthlyIncome < p.MinMonthlyIncome {
		return false
	}
	if a.Age < p.MinAge || a.Age > p.MaxAge {
		return false
	}
	return p.AllowsEmployment(a.EmploymentStatus)
}
