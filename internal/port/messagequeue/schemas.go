package messagequeue

import "time"

// PlanSavedPayload is the schema for plans.saved messages.
type PlanSavedPayload struct {
	GoalID     int64     `json:"goal_id"`
	Goal       string    `json:"goal"`
	PhaseCount int       `json:"phase_count"`
	TaskCount  int       `json:"task_count"`
	SavedAt    time.Time `json:"saved_at"`
	RequestID  string    `json:"request_id,omitempty"`
}
