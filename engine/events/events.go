// Package events implements the host event queue and single-pass handler
// dispatch. Events emitted during a step are delivered at the start of the
// next step and are visible for exactly that step.
package events

import (
	"errors"
	"fmt"
	"slices"

	"github.com/nathoo/tickwork/types"
)

// Wildcard matches every event name.
const Wildcard = "*"

// Handler reacts to a delivered event.
type Handler struct {
	Event string
	Fn    func(event string) error
}

// Emit queues an event for delivery on the next step.
func Emit(s *types.State, name string) {
	if name == "" {
		return
	}
	s.Pending = append(s.Pending, name)
}

// Deliver makes pending events current and clears the queue. Events from the
// previous step are dropped.
func Deliver(s *types.State) []string {
	s.Events = s.Pending
	s.Pending = nil
	return s.Events
}

// Has reports whether name was delivered this step.
func Has(s *types.State, name string) bool {
	return slices.Contains(s.Events, name)
}

// Dispatch runs handlers against the delivered events. Single pass: events
// a handler emits are queued for the next step, not re-dispatched.
func Dispatch(s *types.State, handlers []Handler) error {
	var errs []error
	current := slices.Clone(s.Events)
	for _, name := range current {
		for _, h := range handlers {
			if h.Event != name && h.Event != Wildcard {
				continue
			}
			if h.Fn == nil {
				continue
			}
			if err := h.Fn(name); err != nil {
				errs = append(errs, fmt.Errorf("handler for %q: %w", name, err))
			}
		}
	}
	return errors.Join(errs...)
}
