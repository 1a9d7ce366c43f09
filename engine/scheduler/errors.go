package scheduler

import (
	"errors"
	"fmt"
)

var (
	ErrNilAction        = errors.New("nil action")
	ErrForeignAction    = errors.New("action belongs to another manager")
	ErrAlreadyScheduled = errors.New("action is already scheduled")
	ErrActionDone       = errors.New("action is done")
	ErrDuplicateName    = errors.New("action name already scheduled")
)

// Phase names the callback that failed.
type Phase string

const (
	PhaseTask          Phase = "task"
	PhaseCondition     Phase = "condition"
	PhaseTerminateWhen Phase = "terminate_when"
	PhaseOnTermination Phase = "on_termination"
)

// CallbackError records a task or predicate that panicked during a tick.
type CallbackError struct {
	Action string
	ID     ID
	Phase  Phase
	Value  any
}

func (e *CallbackError) Error() string {
	name := e.Action
	if name == "" {
		name = fmt.Sprintf("#%d", e.ID)
	}
	return fmt.Sprintf("action %s: %s failed: %v", name, e.Phase, e.Value)
}

// Unwrap exposes a panicked error value.
func (e *CallbackError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
