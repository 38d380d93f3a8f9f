// Package plan defines the goal → phase → task breakdown produced by the
// planning service and persisted by the plan store.
package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// TaskItem is one actionable unit as returned by the planning service.
// Step is the phase label; consecutive items sharing a label form a phase.
type TaskItem struct {
	Step          string   `json:"step"`
	Task          string   `json:"task"`
	Description   string   `json:"description"`
	EstimatedTime FreeText `json:"estimated_time"`
	Technologies  []string `json:"technologies,omitempty"`
	Deliverables  []string `json:"deliverables,omitempty"`
}

// EstimatedWeeks returns the integer week count parsed from EstimatedTime,
// or nil when the text carries no usable number.
func (t *TaskItem) EstimatedWeeks() *int {
	return ParseEstimatedWeeks(string(t.EstimatedTime))
}

// FreeText is a string field that also accepts JSON numbers and null.
// Planning models are not consistent about quoting durations.
type FreeText string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FreeText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FreeText(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("estimated_time: expected string or number, got %s", data)
	}
	*f = FreeText(n.String())
	return nil
}

// Phase is an ordered group of consecutive tasks sharing a step label.
// Order starts at 1 and follows input order.
type Phase struct {
	Name  string     `json:"name"`
	Order int        `json:"order"`
	Tasks []TaskItem `json:"tasks"`
}

// Result is a generated plan, optionally with the id it was saved under.
type Result struct {
	Goal   string     `json:"goal"`
	Tasks  []TaskItem `json:"tasks"`
	GoalID int64      `json:"goalId,omitempty"`
}

// WeeksString renders a parsed estimate for logs; nil renders as "null".
func WeeksString(w *int) string {
	if w == nil {
		return "null"
	}
	return strconv.Itoa(*w)
}
