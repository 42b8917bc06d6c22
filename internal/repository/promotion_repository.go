package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cowema/promotion-engine/internal/model"
	"github.com/cowema/promotion-engine/internal/store"
)

// PoolInterface defines the database operations needed by PromotionRepository.
// This allows for easier testing with mocks.
type PoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PromotionRepository reads and writes the remote promotions resource. The
// remote schema uses its own column naming (promo_code, discount_value,
// min_order_amount, end_date); this repository owns the mapping in both
// directions.
type PromotionRepository struct {
	pool PoolInterface
}

// NewPromotionRepository creates a new PromotionRepository with the given pool.
func NewPromotionRepository(pool *pgxpool.Pool) *PromotionRepository {
	return &PromotionRepository{pool: pool}
}

// NewPromotionRepositoryWithPool creates a new PromotionRepository with a
// custom pool interface. This is primarily used for testing.
func NewPromotionRepositoryWithPool(pool PoolInterface) *PromotionRepository {
	return &PromotionRepository{pool: pool}
}

const promotionColumns = `id, promo_code, discount_value, discount_type, min_order_amount,
	max_discount, end_date, is_active, description, target, usage_type,
	max_uses_per_user, target_cities, target_categories,
	customer_history_requirement, is_combinable, combination_rules, created_at`

// FetchAll retrieves every remote promotion row, most recently created first,
// mapped to the Promotion shape with defaults filled for absent fields.
func (r *PromotionRepository) FetchAll(ctx context.Context) ([]model.Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("fetch promotions: %w", err)
	}
	defer rows.Close()

	var promotions []model.Promotion
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan promotion row: %w", err)
		}
		promotions = append(promotions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate promotion rows: %w", err)
	}

	// Return empty slice, not nil
	if promotions == nil {
		promotions = []model.Promotion{}
	}
	return promotions, nil
}

// Upsert inserts or replaces a promotion row keyed by id.
// Returns store.ErrCodeExists when the backend enforces code uniqueness and
// rejects the row.
func (r *PromotionRepository) Upsert(ctx context.Context, p *model.Promotion) error {
	cities, err := json.Marshal(p.TargetCities)
	if err != nil {
		return fmt.Errorf("marshal target cities: %w", err)
	}
	categories, err := json.Marshal(p.TargetCategories)
	if err != nil {
		return fmt.Errorf("marshal target categories: %w", err)
	}
	var history []byte
	if p.CustomerHistory != nil {
		if history, err = json.Marshal(p.CustomerHistory); err != nil {
			return fmt.Errorf("marshal customer history requirement: %w", err)
		}
	}
	var rules []byte
	if p.CombinationRules != nil {
		if rules, err = json.Marshal(p.CombinationRules); err != nil {
			return fmt.Errorf("marshal combination rules: %w", err)
		}
	}

	query := `INSERT INTO promotions (` + promotionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO UPDATE SET
			promo_code = EXCLUDED.promo_code,
			discount_value = EXCLUDED.discount_value,
			discount_type = EXCLUDED.discount_type,
			min_order_amount = EXCLUDED.min_order_amount,
			max_discount = EXCLUDED.max_discount,
			end_date = EXCLUDED.end_date,
			is_active = EXCLUDED.is_active,
			description = EXCLUDED.description,
			target = EXCLUDED.target,
			usage_type = EXCLUDED.usage_type,
			max_uses_per_user = EXCLUDED.max_uses_per_user,
			target_cities = EXCLUDED.target_cities,
			target_categories = EXCLUDED.target_categories,
			customer_history_requirement = EXCLUDED.customer_history_requirement,
			is_combinable = EXCLUDED.is_combinable,
			combination_rules = EXCLUDED.combination_rules`

	_, err = r.pool.Exec(ctx, query,
		p.ID, p.Code, p.Discount, string(p.DiscountType), p.MinPurchaseAmount,
		p.MaxDiscount, p.ExpiryDate, p.IsActive, p.Description, string(p.Target),
		string(p.UsageType), p.MaxUsesPerUser, cities, categories,
		history, p.IsCombinable, rules, p.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return store.ErrCodeExists
		}
		return fmt.Errorf("upsert promotion %s: %w", p.ID, err)
	}
	return nil
}

// Delete removes a promotion row by id. Deleting an absent row is not an error.
func (r *PromotionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM promotions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete promotion %s: %w", id, err)
	}
	return nil
}

// scanPromotion maps one remote row to the Promotion shape, filling defaults
// for fields the remote may leave unset (target, usage type).
func scanPromotion(row pgx.Row) (model.Promotion, error) {
	var (
		p            model.Promotion
		discountType string
		target       *string
		usageType    *string
		description  *string
		cities       []byte
		categories   []byte
		history      []byte
		rules        []byte
	)

	err := row.Scan(
		&p.ID, &p.Code, &p.Discount, &discountType, &p.MinPurchaseAmount,
		&p.MaxDiscount, &p.ExpiryDate, &p.IsActive, &description, &target,
		&usageType, &p.MaxUsesPerUser, &cities, &categories,
		&history, &p.IsCombinable, &rules, &p.CreatedAt)
	if err != nil {
		return model.Promotion{}, err
	}

	p.DiscountType = model.DiscountType(discountType)
	if description != nil {
		p.Description = *description
	}
	p.Target = model.TargetAll
	if target != nil && *target != "" {
		p.Target = model.Target(*target)
	}
	p.UsageType = model.UsageUnlimited
	if usageType != nil && *usageType != "" {
		p.UsageType = model.UsageType(*usageType)
	}

	if len(cities) > 0 {
		if err := json.Unmarshal(cities, &p.TargetCities); err != nil {
			return model.Promotion{}, fmt.Errorf("unmarshal target cities: %w", err)
		}
	}
	if len(categories) > 0 {
		if err := json.Unmarshal(categories, &p.TargetCategories); err != nil {
			return model.Promotion{}, fmt.Errorf("unmarshal target categories: %w", err)
		}
	}
	if len(history) > 0 {
		var h model.CustomerHistoryRequirement
		if err := json.Unmarshal(history, &h); err != nil {
			return model.Promotion{}, fmt.Errorf("unmarshal customer history requirement: %w", err)
		}
		p.CustomerHistory = &h
	}
	if len(rules) > 0 {
		var cr model.CombinationRules
		if err := json.Unmarshal(rules, &cr); err != nil {
			return model.Promotion{}, fmt.Errorf("unmarshal combination rules: %w", err)
		}
		p.CombinationRules = &cr
	}

	return p, nil
}
