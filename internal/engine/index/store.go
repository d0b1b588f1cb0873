// internal/engine/index/store.go
package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	engerrors "github.com/Fatal777/Loan-Eligibility-Engine/internal/common/errors"
	"github.com/Fatal777/Loan-Eligibility-Engine/internal/common/logger"
	"github.com/Fatal777/Loan-Eligibility-Engine/internal/models"

	"github.com/redis/go-redis/v9"
)

const catalogCacheKey = "products:active"

const selectActiveProducts = `
	SELECT product_id, product_name, provider,
	       interest_rate_min, interest_rate_max,
	       loan_amount_min, loan_amount_max,
	       min_monthly_income, min_credit_score, max_credit_score,
	       COALESCE(required_employment_status, ''), min_age, max_age
	FROM loan_products
	WHERE is_active = true
	ORDER BY product_id`

// Store loads the active product catalog, caching it in redis so repeated
// index builds within the TTL do not hit Postgres.
type Store struct {
	db       *sql.DB
	redis    *redis.Client
	cacheTTL time.Duration
	logger   logger.Logger
}

func NewStore(db *sql.DB, rdb *redis.Client, cacheTTL time.Duration, log logger.Logger) *Store {
	return &Store{
		db:       db,
		redis:    rdb,
		cacheTTL: cacheTTL,
		logger:   log.WithFields(map[string]interface{}{"component": "product-store"}),
	}
}

// LoadActive returns every active loan product, cache first.
func (s *Store) LoadActive(ctx context.Context) ([]models.LoanProduct, error) {
	if s.redis != nil {
		if val, err := s.redis.Get(ctx, catalogCacheKey).Result(); err == nil {
			var products []models.LoanProduct
			if err := json.Unmarshal([]byte(val), &products); err == nil {
				return products, nil
			}
			// Corrupt cache entry, fall through to the database.
			s.redis.Del(ctx, catalogCacheKey)
		}
	}

	products, err := s.loadFromDB(ctx)
	if err != nil {
		return nil, engerrors.NewCatalogLoadFailedError(err)
	}

	if s.redis != nil {
		if body, err := json.Marshal(products); err == nil {
			if err := s.redis.Set(ctx, catalogCacheKey, body, s.cacheTTL).Err(); err != nil {
				s.logger.Warn("failed to cache product catalog", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}

	s.logger.Info("loaded active product catalog", map[string]interface{}{
		"count": len(products),
	})
	return products, nil
}

func (s *Store) loadFromDB(ctx context.Context) ([]models.LoanProduct, error) {
	rows, err := s.db.QueryContext(ctx, selectActiveProducts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []models.LoanProduct
	for rows.Next() {
		var p models.LoanProduct
		var employment string
		if err := rows.Scan(
			&p.ProductID, &p.Name, &p.Provider,
			&p.InterestRateMin, &p.InterestRateMax,
			&p.LoanAmountMin, &p.LoanAmountMax,
			&p.MinMonthlyIncome, &p.CreditScoreMin, &p.CreditScoreMax,
			&employment, &p.MinAge, &p.MaxAge,
		); err != nil {
			return nil, err
		}
		p.Employment = models.ParseEmploymentStatuses(employment)
		p.Active = true
		products = append(products, p)
	}
	return products, rows.Err()
}
