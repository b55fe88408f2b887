package contest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/judgefire/judgefire/internal/simulation"
)

// Authority is the external system that owns the contest lifecycle.
type Authority interface {
	// SetStartTime schedules the contest start. force overrides an already
	// scheduled or started contest.
	SetStartTime(ctx context.Context, start time.Time, force bool) error
	// Contest returns the current contest snapshot.
	Contest(ctx context.Context) (Status, error)
}

// SyncState is the synchronizer's lifecycle state.
type SyncState string

const (
	SyncPending SyncState = "pending"
	SyncPolling SyncState = "polling"
	// SyncRunning means synchronization completed and the window is known.
	SyncRunning SyncState = "running"
	SyncFailed  SyncState = "failed"
)

const (
	defaultStartDelay   = 15 * time.Second
	defaultPollInterval = 2 * time.Second
	defaultMaxAttempts  = 10
	// startLookAhead is how far in the future a scheduled start must be for
	// the synchronizer to skip polling entirely.
	startLookAhead = 10 * time.Second

	customStartLayout = "2006-01-02 15:04:05"
)

// ActivationError reports that the authority never reached the running state
// within the bounded poll. It is fatal for the run.
type ActivationError struct {
	Attempts int
}

func (e *ActivationError) Error() string {
	return fmt.Sprintf("contest did not reach %q state after %d poll attempts", StateRunning, e.Attempts)
}

// SynchronizerOptions configures a Synchronizer.
type SynchronizerOptions struct {
	Authority Authority
	Clock     simulation.Clock
	// CustomStart, when non-empty, is an explicit "YYYY-MM-DD HH:MM:SS ZoneName"
	// start instant. Otherwise the contest starts at now + StartDelay.
	CustomStart  string
	StartDelay   time.Duration
	PollInterval time.Duration
	MaxAttempts  int
}

func (o *SynchronizerOptions) normalize() {
	if o.Clock == nil {
		o.Clock = simulation.RealClock()
	}
	if o.StartDelay <= 0 {
		o.StartDelay = defaultStartDelay
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaultPollInterval
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultMaxAttempts
	}
}

// Synchronizer drives the contest authority to a known running window. It is
// an explicit state machine (pending -> polling -> running | failed) driven by
// an injectable clock, so tests can simulate the poll loop without delay.
type Synchronizer struct {
	opt   SynchronizerOptions
	state SyncState
}

// NewSynchronizer builds a Synchronizer in the pending state.
func NewSynchronizer(opt SynchronizerOptions) *Synchronizer {
	opt.normalize()
	return &Synchronizer{opt: opt, state: SyncPending}
}

// State returns the synchronizer's current lifecycle state.
func (s *Synchronizer) State() SyncState { return s.state }

// Start schedules the contest and waits for it to be running. If the chosen
// start instant is more than the look-ahead threshold in the future, the
// contest window is fetched once and returned as configured, without polling.
func (s *Synchronizer) Start(ctx context.Context) (Window, error) {
	start, err := s.resolveStart()
	if err != nil {
		s.state = SyncFailed
		return Window{}, err
	}

	logrus.Infof("setting contest start time to %s", start.Format(time.RFC3339))
	if err := s.opt.Authority.SetStartTime(ctx, start, true); err != nil {
		s.state = SyncFailed
		return Window{}, fmt.Errorf("set contest start time: %w", err)
	}

	if start.After(s.opt.Clock.Now().Add(startLookAhead)) {
		logrus.Infof("contest is scheduled for %s, skipping activation poll", start.Format(time.RFC3339))
		return s.fetchWindow(ctx)
	}

	s.state = SyncPolling
	logrus.Info("polling for contest to become active")
	for attempt := 1; attempt <= s.opt.MaxAttempts; attempt++ {
		status, err := s.opt.Authority.Contest(ctx)
		if err != nil {
			logrus.Warnf("contest poll attempt %d/%d failed: %v", attempt, s.opt.MaxAttempts, err)
		} else if status.State == StateRunning {
			logrus.Infof("contest %q is now running", status.Name)
			if err := status.Window.Validate(); err != nil {
				s.state = SyncFailed
				return Window{}, err
			}
			s.state = SyncRunning
			return status.Window, nil
		}
		if err := s.opt.Clock.Sleep(ctx, s.opt.PollInterval); err != nil {
			s.state = SyncFailed
			return Window{}, err
		}
	}

	s.state = SyncFailed
	return Window{}, &ActivationError{Attempts: s.opt.MaxAttempts}
}

func (s *Synchronizer) fetchWindow(ctx context.Context) (Window, error) {
	status, err := s.opt.Authority.Contest(ctx)
	if err != nil {
		s.state = SyncFailed
		return Window{}, fmt.Errorf("fetch contest after scheduling: %w", err)
	}
	if err := status.Window.Validate(); err != nil {
		s.state = SyncFailed
		return Window{}, err
	}
	s.state = SyncRunning
	return status.Window, nil
}

func (s *Synchronizer) resolveStart() (time.Time, error) {
	if strings.TrimSpace(s.opt.CustomStart) == "" {
		return s.opt.Clock.Now().Add(s.opt.StartDelay), nil
	}
	return ParseStartTime(s.opt.CustomStart)
}

// ParseStartTime parses an explicit start instant in the form
// "YYYY-MM-DD HH:MM:SS ZoneName", e.g. "2026-03-01 09:00:00 Europe/Amsterdam".
func ParseStartTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	idx := strings.LastIndex(value, " ")
	if idx < 0 {
		return time.Time{}, fmt.Errorf("custom start time %q: expected \"YYYY-MM-DD HH:MM:SS ZoneName\"", value)
	}
	stamp := strings.TrimSpace(value[:idx])
	zone := strings.TrimSpace(value[idx+1:])

	loc, err := time.LoadLocation(zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("custom start time: unknown zone %q: %w", zone, err)
	}
	t, err := time.ParseInLocation(customStartLayout, stamp, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("custom start time %q: %w", value, err)
	}
	return t, nil
}
