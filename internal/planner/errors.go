package planner

import "fmt"

// PlanError represents errors during LLM-assisted page interaction or extraction
type PlanError struct {
	Message string
	Cause   error
}

func (e *PlanError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("planner: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("planner: %s", e.Message)
}

func (e *PlanError) Unwrap() error {
	return e.Cause
}
