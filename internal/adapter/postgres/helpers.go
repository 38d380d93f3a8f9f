package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Strob0t/PlanForge/internal/domain"
)

// querier is the subset of pgx.Tx used by the plan writes.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// storageErr wraps err with domain.ErrStorage and a formatted operation name.
func storageErr(err error, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStorage, fmt.Sprintf(format, args...), err)
}

// nullIfEmpty returns nil for empty strings (for nullable text columns).
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
