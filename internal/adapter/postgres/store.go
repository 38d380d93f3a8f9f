package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/PlanForge/internal/domain/plan"
	"github.com/Strob0t/PlanForge/internal/port/database"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ database.Store = (*Store)(nil)

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Ping verifies that a connection can be acquired and answers a query.
func (s *Store) Ping(ctx context.Context) error {
	var one int
	if err := s.pool.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return storageErr(err, "ping")
	}
	return nil
}

// WithTx runs fn in one transaction. The deferred rollback releases the
// connection on every exit path, panics included; after a commit it is a no-op.
func (s *Store) WithTx(ctx context.Context, fn func(tx database.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storageErr(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(newPlanTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return storageErr(err, "commit tx")
	}
	return nil
}

// planTx implements database.Tx on a pgx transaction.
type planTx struct {
	q            querier
	technologies *lookupTable
	deliverables *lookupTable
}

func newPlanTx(q querier) *planTx {
	return &planTx{
		q:            q,
		technologies: &lookupTable{q: q, table: "technologies"},
		deliverables: &lookupTable{q: q, table: "deliverables"},
	}
}

func (t *planTx) InsertGoal(ctx context.Context, goal string) (int64, error) {
	var id int64
	err := t.q.QueryRow(ctx,
		`INSERT INTO goals (goal_text) VALUES ($1) RETURNING id`, goal,
	).Scan(&id)
	if err != nil {
		return 0, storageErr(err, "insert goal")
	}
	return id, nil
}

func (t *planTx) UpsertPhase(ctx context.Context, goalID int64, name string, order int) (int64, error) {
	var id int64
	err := t.q.QueryRow(ctx,
		`INSERT INTO phases (goal_id, phase_name, step_order)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (goal_id, step_order) DO UPDATE SET phase_name = EXCLUDED.phase_name
		 RETURNING id`,
		goalID, name, order,
	).Scan(&id)
	if err != nil {
		return 0, storageErr(err, "upsert phase %d of goal %d", order, goalID)
	}
	return id, nil
}

func (t *planTx) InsertTask(ctx context.Context, goalID, phaseID int64, item *plan.TaskItem, weeks *int) (int64, error) {
	var id int64
	err := t.q.QueryRow(ctx,
		`INSERT INTO tasks (goal_id, phase_id, task_name, description, estimated_weeks)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		goalID, phaseID, item.Task, nullIfEmpty(item.Description), weeks,
	).Scan(&id)
	if err != nil {
		return 0, storageErr(err, "insert task %q", item.Task)
	}
	return id, nil
}

func (t *planTx) Technologies() database.Lookup { return t.technologies }
func (t *planTx) Deliverables() database.Lookup { return t.deliverables }

func (t *planTx) LinkTechnology(ctx context.Context, taskID, technologyID int64) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO task_technologies (task_id, technology_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		taskID, technologyID)
	if err != nil {
		return storageErr(err, "link technology %d to task %d", technologyID, taskID)
	}
	return nil
}

func (t *planTx) LinkDeliverable(ctx context.Context, taskID, deliverableID int64) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO task_deliverables (task_id, deliverable_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		taskID, deliverableID)
	if err != nil {
		return storageErr(err, "link deliverable %d to task %d", deliverableID, taskID)
	}
	return nil
}

// lookupTable is a name-unique reference table (technologies, deliverables).
// table is always one of the fixed names above, never caller input.
type lookupTable struct {
	q     querier
	table string
}

// GetOrCreate inserts name, or on a unique conflict reads the existing row.
func (l *lookupTable) GetOrCreate(ctx context.Context, name string) (int64, error) {
	var id int64
	err := l.q.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO %s (name) VALUES ($1) ON CONFLICT (name) DO NOTHING RETURNING id`, l.table),
		name,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, storageErr(err, "insert %s %q", l.table, name)
	}

	err = l.q.QueryRow(ctx,
		fmt.Sprintf(`SELECT id FROM %s WHERE name = $1`, l.table), name,
	).Scan(&id)
	if err != nil {
		return 0, storageErr(err, "select %s %q", l.table, name)
	}
	return id, nil
}
