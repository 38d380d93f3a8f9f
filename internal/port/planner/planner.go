// Package planner defines the planning service port (interface).
package planner

import (
	"context"

	"github.com/Strob0t/PlanForge/internal/domain/plan"
)

// Planner turns a goal into an ordered task breakdown.
type Planner interface {
	// RequestPlan sends goal to the planning service. A well-formed reply
	// without a task list yields an empty slice, not an error.
	RequestPlan(ctx context.Context, goal string) ([]plan.TaskItem, error)

	// CheckHealth probes the planning service. It never returns an error;
	// any failure reports false.
	CheckHealth(ctx context.Context) bool

	// BaseURL returns the upstream address, for diagnostics.
	BaseURL() string
}
