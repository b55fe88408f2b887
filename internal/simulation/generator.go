package simulation

import (
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

// Artifact is a concrete solution file plus the language it is submitted as.
type Artifact struct {
	Path       string
	LanguageID string
}

// Resolver maps a (problem, outcome category) pair to a concrete artifact.
// Implementations draw from rnd when several artifacts match, so the
// generator's determinism contract extends through resolution.
type Resolver interface {
	Resolve(problemID, category string, rnd *rand.Rand) (Artifact, bool)
}

// OutcomeWeight is one entry of the weighted outcome-category distribution.
// Weights are relative and need not sum to 1.
type OutcomeWeight struct {
	Category string
	Weight   float64
}

// FallbackCategory is substituted when the drawn category has no artifact for
// the chosen problem. It represents a generic incorrect result.
const FallbackCategory = "wa"

// GeneratorOptions configures event generation.
type GeneratorOptions struct {
	Teams    []string // stable, deterministic order
	Problems []string
	// AvgSubsPerTeam is the Poisson mean for the per-team submission count.
	AvgSubsPerTeam float64
	Weights        []OutcomeWeight
	Resolver       Resolver
	// Rand is the single shared source consumed in a fixed draw sequence.
	Rand *rand.Rand
}

// GeneratorStats summarizes one generation pass.
type GeneratorStats struct {
	Events           int
	ResolutionMisses int
}

// Generator produces the synthetic submission workload for one contest run.
// Given identical seed, team order, problem order and weights, the generated
// event set is identical across runs and processes.
type Generator struct {
	opt GeneratorOptions
}

// NewGenerator validates the options and returns a Generator.
func NewGenerator(opt GeneratorOptions) (*Generator, error) {
	if opt.Rand == nil {
		return nil, errors.New("generator: rand source is required")
	}
	if opt.Resolver == nil {
		return nil, errors.New("generator: resolver is required")
	}
	if len(opt.Problems) == 0 {
		return nil, errors.New("generator: at least one problem is required")
	}
	if opt.AvgSubsPerTeam < 0 {
		return nil, errors.New("generator: avg submissions per team must be >= 0")
	}
	var total float64
	for _, w := range opt.Weights {
		if w.Weight < 0 {
			return nil, errors.New("generator: outcome weights must be >= 0")
		}
		total += w.Weight
	}
	if len(opt.Weights) == 0 || total <= 0 {
		return nil, errors.New("generator: outcome weights must have positive total")
	}
	return &Generator{opt: opt}, nil
}

// Generate draws the full event set for a contest running [start, start+duration).
// The returned slice is in generation order; the event queue imposes time
// ordering on insertion.
func (g *Generator) Generate(start time.Time, duration time.Duration) ([]SubmissionEvent, GeneratorStats) {
	var (
		events []SubmissionEvent
		stats  GeneratorStats
		seq    uint64
	)
	rnd := g.opt.Rand
	durSec := duration.Seconds()

	for _, teamID := range g.opt.Teams {
		count := poisson(rnd, g.opt.AvgSubsPerTeam)
		for i := 0; i < count; i++ {
			offset := rnd.Float64() * durSec
			problemID := g.opt.Problems[rnd.Intn(len(g.opt.Problems))]
			category := weightedCategory(rnd, g.opt.Weights)

			artifact, ok := g.opt.Resolver.Resolve(problemID, category, rnd)
			if !ok && category != FallbackCategory {
				logrus.WithFields(logrus.Fields{
					"problem":  problemID,
					"category": category,
				}).Warnf("no %q artifact, falling back to %q", category, FallbackCategory)
				artifact, ok = g.opt.Resolver.Resolve(problemID, FallbackCategory, rnd)
			}
			if !ok {
				stats.ResolutionMisses++
				logrus.WithFields(logrus.Fields{
					"team":     teamID,
					"problem":  problemID,
					"category": category,
				}).Warn("dropping submission: no artifact resolved")
				continue
			}

			events = append(events, SubmissionEvent{
				Time:         start.Add(time.Duration(offset * float64(time.Second))),
				Seq:          seq,
				TeamID:       teamID,
				ProblemID:    problemID,
				LanguageID:   artifact.LanguageID,
				ArtifactPath: artifact.Path,
			})
			seq++
		}
	}
	stats.Events = len(events)
	return events, stats
}

// poisson draws from a Poisson distribution with the given mean using Knuth's
// method. The mean values used here are small, so the linear cost is fine.
func poisson(rnd *rand.Rand, mean float64) int {
	if mean <= 0 {
		return 0
	}
	limit := math.Exp(-mean)
	k := 0
	p := 1.0
	for {
		p *= rnd.Float64()
		if p <= limit {
			return k
		}
		k++
	}
}

func weightedCategory(rnd *rand.Rand, weights []OutcomeWeight) string {
	var total float64
	for _, w := range weights {
		total += w.Weight
	}
	target := rnd.Float64() * total
	var cum float64
	for _, w := range weights {
		cum += w.Weight
		if target < cum {
			return w.Category
		}
	}
	// Floating point can land exactly on the upper bound.
	return weights[len(weights)-1].Category
}
