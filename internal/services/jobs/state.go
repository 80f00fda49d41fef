package jobs

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/fundiconnect_be/internal/models"
)

// State is the lifecycle position of a job. Variants that involve a fundi
// carry it, so a job can never be in progress without one.
type State interface {
	Name() string
	isState()
}

type (
	Open                struct{}
	Assigned            struct{ Fundi uuid.UUID }
	InProgress          struct{ Fundi uuid.UUID }
	CompletionRequested struct{ Fundi uuid.UUID }
	Completed           struct{ Fundi uuid.UUID }
	Cancelled           struct{}
)

func (Open) Name() string                { return "open" }
func (Assigned) Name() string            { return "assigned" }
func (InProgress) Name() string          { return "in_progress" }
func (CompletionRequested) Name() string { return "completion_requested" }
func (Completed) Name() string           { return "completed" }
func (Cancelled) Name() string           { return "cancelled" }

func (Open) isState()                {}
func (Assigned) isState()            {}
func (InProgress) isState()          {}
func (CompletionRequested) isState() {}
func (Completed) isState()           {}
func (Cancelled) isState()           {}

// StateOf reads the state from the persisted columns. Assigned is stored as
// status open with a fundi set.
func StateOf(j *models.Job) (State, error) {
	switch j.Status {
	case models.JobStatusOpen:
		if j.FundiID == nil {
			return Open{}, nil
		}
		return Assigned{Fundi: *j.FundiID}, nil
	case models.JobStatusCancelled:
		if j.FundiID == nil {
			return Cancelled{}, nil
		}
	case models.JobStatusInProgress:
		if j.FundiID != nil {
			return InProgress{Fundi: *j.FundiID}, nil
		}
	case models.JobStatusCompletionRequested:
		if j.FundiID != nil {
			return CompletionRequested{Fundi: *j.FundiID}, nil
		}
	case models.JobStatusCompleted:
		if j.FundiID != nil {
			return Completed{Fundi: *j.FundiID}, nil
		}
	}
	return nil, fmt.Errorf("job %s has inconsistent status %q (fundi set: %t)", j.ID, j.Status, j.FundiID != nil)
}

// FundiOf returns the fundi carried by s, if any.
func FundiOf(s State) (uuid.UUID, bool) {
	switch v := s.(type) {
	case Assigned:
		return v.Fundi, true
	case InProgress:
		return v.Fundi, true
	case CompletionRequested:
		return v.Fundi, true
	case Completed:
		return v.Fundi, true
	}
	return uuid.Nil, false
}

func isTerminal(s State) bool {
	switch s.(type) {
	case Completed, Cancelled:
		return true
	}
	return false
}
