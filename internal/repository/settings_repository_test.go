package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSettingsRow implements pgx.Row for testing.
type mockSettingsRow struct {
	scanFn func(dest ...any) error
}

func (m *mockSettingsRow) Scan(dest ...any) error {
	if m.scanFn != nil {
		return m.scanFn(dest...)
	}
	return nil
}

// mockSettingsPool implements SettingsPoolInterface for testing.
type mockSettingsPool struct {
	queryRowFn func(ctx context.Context, sql string, args ...any) pgx.Row
}

func (m *mockSettingsPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.queryRowFn != nil {
		return m.queryRowFn(ctx, sql, args...)
	}
	return &mockSettingsRow{}
}

func TestSettingsRepository_Float64_Success(t *testing.T) {
	mock := &mockSettingsPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &mockSettingsRow{scanFn: func(dest ...any) error {
				*(dest[0].(*string)) = "7.5"
				return nil
			}}
		},
	}

	repo := NewSettingsRepositoryWithPool(mock)
	v, ok, err := repo.Float64(context.Background(), "cart_abandonment_discount")

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 7.5, v)
}

func TestSettingsRepository_Float64_NotFound(t *testing.T) {
	mock := &mockSettingsPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &mockSettingsRow{scanFn: func(dest ...any) error {
				return pgx.ErrNoRows
			}}
		},
	}

	repo := NewSettingsRepositoryWithPool(mock)
	v, ok, err := repo.Float64(context.Background(), "missing_key")

	require.NoError(t, err, "an absent key is not an error")
	assert.False(t, ok)
	assert.Zero(t, v)
}

func TestSettingsRepository_Float64_ParseError(t *testing.T) {
	mock := &mockSettingsPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &mockSettingsRow{scanFn: func(dest ...any) error {
				*(dest[0].(*string)) = "not-a-number"
				return nil
			}}
		},
	}

	repo := NewSettingsRepositoryWithPool(mock)
	_, ok, err := repo.Float64(context.Background(), "cart_abandonment_discount")

	require.Error(t, err)
	assert.False(t, ok)
}

func TestSettingsRepository_Float64_QueryError(t *testing.T) {
	dbErr := errors.New("database connection failed")
	mock := &mockSettingsPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &mockSettingsRow{scanFn: func(dest ...any) error {
				return dbErr
			}}
		},
	}

	repo := NewSettingsRepositoryWithPool(mock)
	_, _, err := repo.Float64(context.Background(), "cart_abandonment_discount")

	require.Error(t, err)
	assert.True(t, errors.Is(err, dbErr))
}
