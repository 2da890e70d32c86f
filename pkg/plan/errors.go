package plan

import "fmt"

// PlanningError reports an invalid tool or planner configuration. It is
// returned before any motion is produced.
type PlanningError struct {
	Field  string
	Reason string
}

func (e *PlanningError) Error() string {
	return fmt.Sprintf("plan: invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) *PlanningError {
	return &PlanningError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
