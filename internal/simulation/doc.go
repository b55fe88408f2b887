// Package simulation implements the discrete-event core of the contest load
// simulator: deterministic stochastic event generation, a time-ordered event
// queue, and a wall-clock-mapping scheduler with time compression and freeze
// detection.
//
// The pipeline is single-threaded and cooperative. The [Generator] draws the
// full event set from one explicitly threaded random source, the [EventQueue]
// orders it by (simulated time, sequence number), and the [Scheduler] drains
// the queue, sleeping between pops and dispatching synchronously to a [Sink].
// All real-time behavior goes through the [Clock] interface so tests can
// simulate time without delay.
package simulation
