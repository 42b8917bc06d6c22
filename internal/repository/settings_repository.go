package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SettingsPoolInterface defines the database operations needed by SettingsRepository.
type SettingsPoolInterface interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SettingsRepository reads values from the system_settings table.
type SettingsRepository struct {
	pool SettingsPoolInterface
}

// NewSettingsRepository creates a new SettingsRepository with the given pool.
func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// NewSettingsRepositoryWithPool creates a new SettingsRepository with a custom
// pool interface. This is primarily used for testing.
func NewSettingsRepositoryWithPool(pool SettingsPoolInterface) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// Float64 retrieves a numeric setting. The second return value reports
// whether the key exists; an absent key is not an error.
func (r *SettingsRepository) Float64(ctx context.Context, key string) (float64, bool, error) {
	var raw string
	err := r.pool.QueryRow(ctx, `SELECT value FROM system_settings WHERE key = $1`, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get setting %s: %w", key, err)
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse setting %s: %w", key, err)
	}
	return v, true, nil
}
