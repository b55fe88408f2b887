package contest

import (
	"fmt"
	"time"
)

// Window is the {start, end, freeze} triple defining the active timeline of a
// contest instance. It is created once by the Synchronizer and immutable
// thereafter.
type Window struct {
	Start  time.Time
	End    time.Time
	Freeze *time.Time
}

// Duration returns the contest length on the simulated timeline.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Validate checks the window invariants: start < end, and when a freeze is
// present, start <= freeze < end.
func (w Window) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() {
		return fmt.Errorf("contest window: start and end are required")
	}
	if !w.Start.Before(w.End) {
		return fmt.Errorf("contest window: start %s must be before end %s", w.Start, w.End)
	}
	if w.Freeze != nil {
		if w.Freeze.Before(w.Start) || !w.Freeze.Before(w.End) {
			return fmt.Errorf("contest window: freeze %s must lie in [start, end)", *w.Freeze)
		}
	}
	return nil
}

// ContestState is the lifecycle state reported by the contest authority.
type ContestState string

// StateRunning is the only authority state the synchronizer waits for.
const StateRunning ContestState = "running"

// Status is a snapshot of the contest as reported by the authority.
type Status struct {
	ID     string
	Name   string
	State  ContestState
	Window Window
}
