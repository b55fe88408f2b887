package simulation

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/judgefire/judgefire/internal/metrics"
)

// Sink receives dispatched submission events. Failures are logged and the
// submission is considered lost; retry, if any, is the sink's own concern.
type Sink interface {
	Submit(ctx context.Context, ev SubmissionEvent) error
}

// SchedulerOptions configures a Scheduler.
type SchedulerOptions struct {
	Sink  Sink
	Clock Clock
	// Freeze may be nil when the contest has no freeze period.
	Freeze *FreezeDetector
	// CompressionFactor is the ratio of simulated time to real time during
	// playback. Values <= 0 are normalized to 1.0 (real time).
	CompressionFactor float64
	// GracePeriod is real time to wait after the simulated contest end, to
	// let the external system finish asynchronous judging.
	GracePeriod time.Duration
	// MaxDispatchRate caps dispatches per real second toward the sink.
	// Zero means uncapped.
	MaxDispatchRate int
	Collector       *metrics.Collector
}

func (o *SchedulerOptions) normalize() {
	if o.CompressionFactor <= 0 {
		logrus.Warnf("time compression factor %g is not > 0, defaulting to 1.0", o.CompressionFactor)
		o.CompressionFactor = 1.0
	}
	if o.Clock == nil {
		o.Clock = RealClock()
	}
}

// Scheduler drains an event queue, mapping each event's simulated time to a
// wall-clock deadline under the compression factor. Dispatch is synchronous:
// the next pop does not happen until the current submit call returns, so slow
// dispatches shrink the following waits rather than being compensated. The
// guarantee is "never dispatch before the computed due time", not "never
// dispatch late".
type Scheduler struct {
	opt     SchedulerOptions
	limiter *rate.Limiter
}

// NewScheduler builds a Scheduler, normalizing the compression factor.
func NewScheduler(opt SchedulerOptions) *Scheduler {
	opt.normalize()
	s := &Scheduler{opt: opt}
	if opt.MaxDispatchRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opt.MaxDispatchRate), 1)
	}
	return s
}

// EffectiveCompression returns the compression factor after normalization.
func (s *Scheduler) EffectiveCompression() float64 {
	return s.opt.CompressionFactor
}

// Drain processes every event in the queue in (Time, Seq) order, then waits
// out the remaining simulated time until end plus the grace period. An empty
// queue completes immediately. The only error returned is ctx cancellation;
// individual dispatch failures are isolated.
func (s *Scheduler) Drain(ctx context.Context, queue *EventQueue, end time.Time) error {
	first, ok := queue.Peek()
	if !ok {
		logrus.Warn("event queue is empty, nothing to simulate")
		return nil
	}

	// The simulation clock maps the earliest event to "now".
	simRef := first.Time
	realRef := s.opt.Clock.Now()
	factor := s.opt.CompressionFactor

	logrus.Infof("draining %d events at %gx time compression", queue.Len(), factor)

	for {
		ev, ok := queue.Pop()
		if !ok {
			break
		}

		target := realRef.Add(compress(ev.Time.Sub(simRef), factor))
		if wait := target.Sub(s.opt.Clock.Now()); wait > 0 {
			if err := s.opt.Clock.Sleep(ctx, wait); err != nil {
				return err
			}
		}

		s.opt.Freeze.Observe(ev.Time)

		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		s.dispatch(ctx, ev)
	}

	logrus.Info("event queue empty")

	// Wait out the remainder of the compressed contest window.
	target := realRef.Add(compress(end.Sub(simRef), factor))
	if wait := target.Sub(s.opt.Clock.Now()); wait > 0 {
		logrus.Infof("waiting %s for simulated contest end", wait.Round(time.Millisecond))
		if err := s.opt.Clock.Sleep(ctx, wait); err != nil {
			return err
		}
	}

	if s.opt.GracePeriod > 0 {
		logrus.Infof("giving the judging pipeline %s to finish", s.opt.GracePeriod)
		if err := s.opt.Clock.Sleep(ctx, s.opt.GracePeriod); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) dispatch(ctx context.Context, ev SubmissionEvent) {
	logrus.WithFields(logrus.Fields{
		"sim_time": ev.Time.Format(time.RFC3339),
		"team":     ev.TeamID,
		"problem":  ev.ProblemID,
	}).Info("dispatching submission")

	start := s.opt.Clock.Now()
	var err error
	if s.opt.Sink != nil {
		err = s.opt.Sink.Submit(ctx, ev)
	}
	latency := s.opt.Clock.Now().Sub(start)

	if s.opt.Collector != nil {
		s.opt.Collector.RecordDispatch(latency, err)
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"team":    ev.TeamID,
			"problem": ev.ProblemID,
		}).Errorf("submission dispatch failed: %v", err)
	}
}

// compress maps a simulated-time delta onto the real-time axis.
func compress(simDelta time.Duration, factor float64) time.Duration {
	return time.Duration(float64(simDelta) / factor)
}
