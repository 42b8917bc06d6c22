package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cowema/promotion-engine/internal/model"
)

// UsagePoolInterface defines the database operations needed by UsageRepository.
type UsagePoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// UsageRepository writes promotion usage events to the remote backend.
// Callers treat the write as best-effort: failures are logged upstream, never
// surfaced to the shopper.
type UsageRepository struct {
	pool UsagePoolInterface
}

// NewUsageRepository creates a new UsageRepository with the given pool.
func NewUsageRepository(pool *pgxpool.Pool) *UsageRepository {
	return &UsageRepository{pool: pool}
}

// NewUsageRepositoryWithPool creates a new UsageRepository with a custom pool
// interface. This is primarily used for testing.
func NewUsageRepositoryWithPool(pool UsagePoolInterface) *UsageRepository {
	return &UsageRepository{pool: pool}
}

// Record inserts one usage event.
func (r *UsageRepository) Record(ctx context.Context, ev model.UsageEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO promotion_usages (promotion_id, user_id, discount_applied) VALUES ($1, $2, $3)`,
		ev.PromotionID, ev.UserID, ev.DiscountApplied)
	if err != nil {
		return fmt.Errorf("record usage for promotion %s: %w", ev.PromotionID, err)
	}
	return nil
}
