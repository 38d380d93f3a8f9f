// Package service implements business logic on top of ports.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	pfotel "github.com/Strob0t/PlanForge/internal/adapter/otel"
	"github.com/Strob0t/PlanForge/internal/domain/plan"
	"github.com/Strob0t/PlanForge/internal/logger"
	"github.com/Strob0t/PlanForge/internal/port/database"
	"github.com/Strob0t/PlanForge/internal/port/messagequeue"
	"github.com/Strob0t/PlanForge/internal/port/planner"
)

// PlanService turns goals into plans and persists them.
type PlanService struct {
	planner planner.Planner
	store   database.Store
	queue   messagequeue.Queue
	metrics *pfotel.Metrics
}

// NewPlanService creates a new PlanService. A nil queue disables plan events.
func NewPlanService(p planner.Planner, store database.Store, queue messagequeue.Queue) *PlanService {
	if queue == nil {
		queue = messagequeue.Nop{}
	}
	return &PlanService{planner: p, store: store, queue: queue}
}

// SetMetrics sets the optional metric instruments.
func (s *PlanService) SetMetrics(m *pfotel.Metrics) {
	s.metrics = m
}

// Generate validates goal and asks the planner for a task breakdown.
func (s *PlanService) Generate(ctx context.Context, goal string) (*plan.Result, error) {
	goal, err := plan.ValidateGoal(goal)
	if err != nil {
		return nil, err
	}

	tasks, err := s.requestPlan(ctx, goal)
	if err != nil {
		return nil, err
	}
	return &plan.Result{Goal: goal, Tasks: tasks}, nil
}

// GenerateAndSave generates a plan and persists it. Nothing is stored when
// the planner fails.
func (s *PlanService) GenerateAndSave(ctx context.Context, goal string) (*plan.Result, error) {
	res, err := s.Generate(ctx, goal)
	if err != nil {
		return nil, err
	}

	id, err := s.Persist(ctx, res.Goal, res.Tasks)
	if err != nil {
		return nil, err
	}
	res.GoalID = id
	return res, nil
}

// Submit persists a plan generated earlier by the caller.
func (s *PlanService) Submit(ctx context.Context, goal string, tasks []plan.TaskItem) (int64, error) {
	goal, err := plan.ValidateSubmission(goal, tasks)
	if err != nil {
		return 0, err
	}
	return s.Persist(ctx, goal, tasks)
}

func (s *PlanService) requestPlan(ctx context.Context, goal string) ([]plan.TaskItem, error) {
	ctx, span := pfotel.StartPlannerSpan(ctx, s.planner.BaseURL(), len(goal))
	started := time.Now()

	tasks, err := s.planner.RequestPlan(ctx, goal)

	s.metrics.RecordPlannerCall(ctx, started, err)
	pfotel.EndSpan(span, err)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "plan generated", "tasks", len(tasks), "duration_ms", time.Since(started).Milliseconds())
	return tasks, nil
}

// Persist writes goal and its tasks in one transaction and returns the new
// goal id. Tasks are grouped into phases in input order. Any failure rolls
// back the whole plan; nothing is retried.
func (s *PlanService) Persist(ctx context.Context, goal string, tasks []plan.TaskItem) (int64, error) {
	phases := plan.GroupPhases(tasks)

	ctx, span := pfotel.StartPersistSpan(ctx, len(phases), len(tasks))
	started := time.Now()

	var goalID int64
	err := s.store.WithTx(ctx, func(tx database.Tx) error {
		var err error
		goalID, err = tx.InsertGoal(ctx, goal)
		if err != nil {
			return err
		}

		for i := range phases {
			ph := &phases[i]
			phaseID, err := tx.UpsertPhase(ctx, goalID, ph.Name, ph.Order)
			if err != nil {
				return err
			}
			for j := range ph.Tasks {
				if err := persistTask(ctx, tx, goalID, phaseID, &ph.Tasks[j]); err != nil {
					return err
				}
			}
		}
		return nil
	})

	s.metrics.RecordPersist(ctx, started, err)
	pfotel.EndSpan(span, err)
	if err != nil {
		slog.ErrorContext(ctx, "plan persistence rolled back", "tasks", len(tasks), "error", err)
		return 0, err
	}

	slog.InfoContext(ctx, "plan saved",
		"goal_id", goalID, "phases", len(phases), "tasks", len(tasks),
		"duration_ms", time.Since(started).Milliseconds())

	s.publishSaved(ctx, goalID, goal, len(phases), len(tasks))
	return goalID, nil
}

func persistTask(ctx context.Context, tx database.Tx, goalID, phaseID int64, item *plan.TaskItem) error {
	taskID, err := tx.InsertTask(ctx, goalID, phaseID, item, item.EstimatedWeeks())
	if err != nil {
		return err
	}

	for _, name := range plan.NormalizeNames(item.Technologies) {
		id, err := tx.Technologies().GetOrCreate(ctx, name)
		if err != nil {
			return err
		}
		if err := tx.LinkTechnology(ctx, taskID, id); err != nil {
			return err
		}
	}

	for _, name := range plan.NormalizeNames(item.Deliverables) {
		id, err := tx.Deliverables().GetOrCreate(ctx, name)
		if err != nil {
			return err
		}
		if err := tx.LinkDeliverable(ctx, taskID, id); err != nil {
			return err
		}
	}
	return nil
}

// publishSaved emits a plans.saved event. The plan is already committed, so
// failures are logged and not returned.
func (s *PlanService) publishSaved(ctx context.Context, goalID int64, goal string, phases, tasks int) {
	data, err := json.Marshal(messagequeue.PlanSavedPayload{
		GoalID:     goalID,
		Goal:       goal,
		PhaseCount: phases,
		TaskCount:  tasks,
		SavedAt:    time.Now().UTC(),
		RequestID:  logger.RequestID(ctx),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal plan event", "goal_id", goalID, "error", err)
		return
	}

	if err := s.queue.Publish(ctx, messagequeue.SubjectPlanSaved, data); err != nil {
		slog.ErrorContext(ctx, "failed to publish plan event", "goal_id", goalID, "error", err)
	}
}
