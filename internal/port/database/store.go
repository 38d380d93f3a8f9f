// Package database defines the plan store port (interfaces).
package database

import (
	"context"

	"github.com/Strob0t/PlanForge/internal/domain/plan"
)

// Store is the port interface for plan persistence.
type Store interface {
	// WithTx runs fn inside a single transaction. The transaction commits
	// when fn returns nil and rolls back on error or panic. The underlying
	// connection is released on every exit path.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Ping verifies storage connectivity.
	Ping(ctx context.Context) error
}

// Tx is the set of plan writes available inside a transaction.
type Tx interface {
	// InsertGoal creates a goal row. Goal text is not deduplicated.
	InsertGoal(ctx context.Context, goal string) (int64, error)

	// UpsertPhase creates the phase at (goalID, order) or renames the
	// existing one.
	UpsertPhase(ctx context.Context, goalID int64, name string, order int) (int64, error)

	// InsertTask creates a task under goalID/phaseID. weeks may be nil.
	InsertTask(ctx context.Context, goalID, phaseID int64, item *plan.TaskItem, weeks *int) (int64, error)

	// Technologies and Deliverables return the shared lookup tables bound
	// to this transaction.
	Technologies() Lookup
	Deliverables() Lookup

	// LinkTechnology and LinkDeliverable insert junction rows. Duplicate
	// links are ignored.
	LinkTechnology(ctx context.Context, taskID, technologyID int64) error
	LinkDeliverable(ctx context.Context, taskID, deliverableID int64) error
}

// Lookup is a globally shared, name-unique reference table.
type Lookup interface {
	// GetOrCreate returns the id for name, inserting it on first use.
	// Concurrent callers introducing the same name resolve to the same id;
	// the unique constraint on name is what guarantees it.
	GetOrCreate(ctx context.Context, name string) (int64, error)
}
