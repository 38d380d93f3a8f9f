package plan

import (
	"strings"
	"unicode/utf8"

	"github.com/Strob0t/PlanForge/internal/domain"
)

// MinGoalLength is the minimum number of characters a goal must have after trimming.
const MinGoalLength = 10

// ValidateGoal checks that goal is at least MinGoalLength characters once
// surrounding whitespace is removed. It returns the trimmed goal.
func ValidateGoal(goal string) (string, error) {
	trimmed := strings.TrimSpace(goal)
	if trimmed == "" {
		return "", domain.Validationf("goal is required")
	}
	if utf8.RuneCountInString(trimmed) < MinGoalLength {
		return "", domain.Validationf("goal must be at least %d characters long", MinGoalLength)
	}
	return trimmed, nil
}

// ValidateSubmission checks a pre-generated plan before it is persisted.
func ValidateSubmission(goal string, tasks []TaskItem) (string, error) {
	trimmed := strings.TrimSpace(goal)
	if trimmed == "" {
		return "", domain.Validationf("goal must be a non-empty string")
	}
	if len(tasks) == 0 {
		return "", domain.Validationf("tasks must be a non-empty array")
	}
	return trimmed, nil
}

// NormalizeNames trims names and drops blanks, preserving order.
func NormalizeNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}
