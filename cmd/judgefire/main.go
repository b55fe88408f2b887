package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/judgefire/judgefire/internal/config"
	"github.com/judgefire/judgefire/internal/contest"
	"github.com/judgefire/judgefire/internal/metrics"
	"github.com/judgefire/judgefire/internal/output"
	"github.com/judgefire/judgefire/internal/platform"
	"github.com/judgefire/judgefire/internal/simulation"
	"github.com/judgefire/judgefire/internal/solutions"
	"github.com/judgefire/judgefire/internal/teams"
	"github.com/judgefire/judgefire/internal/tracing"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		return err
	}
	setupLogging(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logrus.Warnf("tracing shutdown: %v", err)
		}
	}()

	runID := output.NewRunID()
	logrus.Infof("===== starting contest simulation (run %s) =====", runID)
	logrus.Infof("random seed: %d", cfg.Simulation.RandomSeed)

	client, err := platform.New(platform.Config{
		BaseURL:       cfg.PlatformURL,
		AdminUser:     cfg.AdminUser,
		AdminPassword: cfg.AdminPassword,
		Timeout:       cfg.Timeout,
		Retries:       cfg.Retries,
		Propagate:     provider.ShouldPropagate(),
	})
	if err != nil {
		return err
	}

	lib, err := solutions.Load(cfg.SolutionsDir, cfg.Simulation.NormalizedLangMap())
	if err != nil {
		return err
	}

	problems, teamIDs, err := prepareEntities(ctx, cfg, client, lib)
	if err != nil {
		return err
	}

	sync := contest.NewSynchronizer(contest.SynchronizerOptions{
		Authority:   &platform.ContestAuthority{Client: client, ContestID: cfg.ContestID},
		CustomStart: cfg.Simulation.CustomStartTime,
		StartDelay:  time.Duration(cfg.Simulation.ContestStartDelaySec) * time.Second,
	})
	syncCtx, syncSpan := provider.Tracer().Start(ctx, "contest.synchronize")
	window, err := sync.Start(syncCtx)
	syncSpan.End()
	if err != nil {
		return err
	}
	logrus.Infof("contest window: %s .. %s", window.Start.Format(time.RFC3339), window.End.Format(time.RFC3339))

	weights := make([]simulation.OutcomeWeight, 0)
	for _, w := range cfg.Simulation.SortedWeights() {
		weights = append(weights, simulation.OutcomeWeight{Category: w.Category, Weight: w.Weight})
	}
	gen, err := simulation.NewGenerator(simulation.GeneratorOptions{
		Teams:          teamIDs,
		Problems:       problems,
		AvgSubsPerTeam: cfg.Simulation.AvgSubsPerTeam,
		Weights:        weights,
		Resolver:       lib,
		Rand:           rand.New(rand.NewSource(cfg.Simulation.RandomSeed)),
	})
	if err != nil {
		return err
	}

	collector := metrics.NewCollector()
	events, genStats := gen.Generate(window.Start, window.Duration())
	collector.RecordResolutionMisses(genStats.ResolutionMisses)
	logrus.Infof("scheduled %d submissions across %d teams", genStats.Events, len(teamIDs))

	sink := &platform.SubmissionSink{
		Client:       client,
		ContestID:    cfg.ContestID,
		TeamPassword: teamPassword(cfg),
	}
	if provider.Enabled() {
		sink.Tracer = provider.Tracer()
	}

	freeze := simulation.NewFreezeDetector(window.Freeze, simulation.FreezeObserverFunc(func() {
		logrus.Info("--- scoreboard is now frozen ---")
	}))

	scheduler := simulation.NewScheduler(simulation.SchedulerOptions{
		Sink:              sink,
		Freeze:            freeze,
		CompressionFactor: cfg.Simulation.TimeCompressionFactor,
		GracePeriod:       cfg.Simulation.GracePeriod,
		MaxDispatchRate:   cfg.Simulation.MaxDispatchRate,
		Collector:         collector,
	})

	drainStart := time.Now()
	if err := scheduler.Drain(ctx, simulation.NewEventQueue(events), window.End); err != nil {
		return err
	}
	stats := collector.Stats(time.Since(drainStart))

	writeReports(ctx, cfg, client, runID)
	output.PrintReport(os.Stdout, stats)

	logrus.Info("===== simulation finished =====")
	return nil
}

// prepareEntities loads contest problems matching the solution library and
// assembles the team list: teams already on the scoreboard plus freshly
// provisioned ones.
func prepareEntities(ctx context.Context, cfg *config.Config, client *platform.Client, lib *solutions.Library) ([]string, []string, error) {
	all, err := client.Problems(ctx, cfg.ContestID)
	if err != nil {
		return nil, nil, err
	}
	var problems []string
	for _, p := range all {
		if lib.HasProblem(p.ID) {
			problems = append(problems, p.ID)
		}
	}
	if len(problems) == 0 {
		return nil, nil, fmt.Errorf("no contest problems match the solution directories (contest has %d problems, artifacts exist for %v)", len(all), lib.Problems())
	}
	logrus.Infof("using %d of %d contest problems", len(problems), len(all))

	teamIDs, err := client.ScoreboardTeamIDs(ctx, cfg.ContestID)
	if err != nil {
		logrus.Warnf("could not fetch existing teams: %v", err)
	} else if len(teamIDs) > 0 {
		logrus.Infof("found %d existing teams on the scoreboard", len(teamIDs))
	}

	if cfg.Teams.Count > 0 {
		prov, err := teams.NewProvisioner(teams.ProvisionerOptions{
			Store:           teams.NewStore(cfg.TeamsCSV),
			Registrar:       &platform.TeamRegistrar{Client: client},
			Rand:            rand.New(rand.NewSource(cfg.Simulation.RandomSeed)),
			AffiliationPool: cfg.Teams.AffiliationPool,
			Password:        cfg.Teams.Password,
		})
		if err != nil {
			return nil, nil, err
		}
		roster, err := prov.Provision(ctx, cfg.Teams.Count)
		if err != nil {
			return nil, nil, err
		}
		for _, t := range roster {
			if err := client.AddTeamToContest(ctx, cfg.ContestID, t.PlatformID); err != nil {
				logrus.Warnf("could not attach team %s to contest (may already be attached): %v", t.PlatformID, err)
			}
			teamIDs = append(teamIDs, t.PlatformID)
		}
	}

	if len(teamIDs) == 0 {
		return nil, nil, errors.New("no teams found or generated, cannot simulate")
	}
	return problems, teamIDs, nil
}

func teamPassword(cfg *config.Config) string {
	if cfg.Teams.Password != "" {
		return cfg.Teams.Password
	}
	return teams.DefaultPassword
}

// writeReports fetches final contest data and stores the run reports. All
// failures here are logged, never fatal.
func writeReports(ctx context.Context, cfg *config.Config, client *platform.Client, runID string) {
	dir, err := output.RunDir(cfg.OutputDir, runID)
	if err != nil {
		logrus.Errorf("reports: %v", err)
		return
	}

	if raw, err := client.ScoreboardRaw(ctx, cfg.ContestID); err != nil {
		logrus.Errorf("reports: fetch scoreboard: %v", err)
	} else if err := output.WriteScoreboard(dir, raw); err != nil {
		logrus.Errorf("reports: %v", err)
	} else {
		logrus.Infof("saved final scoreboard to %s", dir)
	}

	subs, err := client.Submissions(ctx, cfg.ContestID)
	if err != nil {
		logrus.Errorf("reports: fetch submissions: %v", err)
		return
	}
	verdicts := make(map[string]string)
	if judgements, err := client.Judgements(ctx, cfg.ContestID); err != nil {
		logrus.Warnf("reports: fetch judgements: %v", err)
	} else {
		for _, j := range judgements {
			verdicts[j.ID] = j.Verdict
		}
	}
	if err := output.WriteSubmissionsCSV(dir, subs, verdicts); err != nil {
		logrus.Errorf("reports: %v", err)
	} else {
		logrus.Infof("saved %d submissions to %s", len(subs), dir)
	}
}

func setupLogging(level string) {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logrus.SetLevel(parsed)
}
