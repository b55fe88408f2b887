package simulation

import "time"

// FreezeObserver is notified exactly once when the simulation dispatches the
// first event inside the freeze period.
type FreezeObserver interface {
	OnFreezeStart()
}

// FreezeObserverFunc adapts a plain function to the FreezeObserver interface.
type FreezeObserverFunc func()

func (f FreezeObserverFunc) OnFreezeStart() { f() }

// FreezeDetector watches dispatched events for the one-time transition into
// the scoreboard freeze period. It is purely observational and never affects
// dispatch order or timing. Once active it never reverts.
type FreezeDetector struct {
	start    *time.Time
	observer FreezeObserver
	active   bool
}

// NewFreezeDetector builds a detector for the given freeze start. A nil start
// means the contest has no freeze period and the detector never fires.
func NewFreezeDetector(start *time.Time, observer FreezeObserver) *FreezeDetector {
	return &FreezeDetector{start: start, observer: observer}
}

// Observe inspects a dispatched event's simulated time and fires the observer
// on the first event at or past the freeze start.
func (d *FreezeDetector) Observe(simTime time.Time) {
	if d == nil || d.active || d.start == nil {
		return
	}
	if simTime.Before(*d.start) {
		return
	}
	d.active = true
	if d.observer != nil {
		d.observer.OnFreezeStart()
	}
}

// Active reports whether the freeze transition has happened.
func (d *FreezeDetector) Active() bool {
	return d != nil && d.active
}
