package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/judgefire/judgefire/internal/config"
)

func validConfig() config.Config {
	return config.Config{
		PlatformURL:   "http://judge.local/api/v4",
		AdminUser:     "admin",
		AdminPassword: "secret",
		ContestID:     "demo",
		SolutionsDir:  "solutions",
		Simulation: config.SimulationConfig{
			AvgSubsPerTeam:    5,
			SubmissionWeights: map[string]float64{"ac": 0.5, "wa": 0.5},
			LangMap:           map[string]string{".py": "python3"},
		},
	}
}

func TestValidateAccepts(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidateAggregatesIssues(t *testing.T) {
	cfg := config.Config{
		Timeout: -time.Second,
		Retries: -1,
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected an error")
	}

	var verr config.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	issues := verr.Issues()
	if len(issues) < 5 {
		t.Errorf("expected every problem reported in one pass, got %d: %v", len(issues), issues)
	}
	for _, want := range []string{"platform_url", "contest_id", "timeout", "retries", "submission_weights"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err.Error(), want)
		}
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"negative mean", func(c *config.Config) { c.Simulation.AvgSubsPerTeam = -1 }},
		{"negative weight", func(c *config.Config) { c.Simulation.SubmissionWeights["ac"] = -0.5 }},
		{"zero weight total", func(c *config.Config) {
			c.Simulation.SubmissionWeights = map[string]float64{"ac": 0}
		}},
		{"empty lang map", func(c *config.Config) { c.Simulation.LangMap = nil }},
		{"negative start delay", func(c *config.Config) { c.Simulation.ContestStartDelaySec = -1 }},
		{"negative grace", func(c *config.Config) { c.Simulation.GracePeriod = -time.Second }},
		{"negative dispatch rate", func(c *config.Config) { c.Simulation.MaxDispatchRate = -1 }},
		{"negative team count", func(c *config.Config) { c.Teams.Count = -1 }},
		{"sample rate above one", func(c *config.Config) { c.Tracing.SampleRate = 1.5 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

// A non-positive compression factor is not a validation error: the scheduler
// normalizes it to 1.0.
func TestValidateAllowsZeroCompression(t *testing.T) {
	cfg := validConfig()
	cfg.Simulation.TimeCompressionFactor = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("zero compression rejected: %v", err)
	}
}

func TestSortedWeights(t *testing.T) {
	sim := config.SimulationConfig{
		SubmissionWeights: map[string]float64{
			"wa": 0.3, "ac": 0.5, "tle": 0.15, "rte": 0.05,
		},
	}
	got := sim.SortedWeights()
	want := []config.WeightedCategory{
		{Category: "ac", Weight: 0.5},
		{Category: "rte", Weight: 0.05},
		{Category: "tle", Weight: 0.15},
		{Category: "wa", Weight: 0.3},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SortedWeights() = %v, expected %v", got, want)
	}
}

func TestNormalizedLangMap(t *testing.T) {
	sim := config.SimulationConfig{
		LangMap: map[string]string{"py": "python3", ".c": "c"},
	}
	got := sim.NormalizedLangMap()
	want := map[string]string{".py": "python3", ".c": "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizedLangMap() = %v, expected %v", got, want)
	}
}

func TestTracingEnabled(t *testing.T) {
	if (config.TracingConfig{}).Enabled() {
		t.Error("tracing without an endpoint must be disabled")
	}
	if !(config.TracingConfig{Endpoint: "otel-collector:4317"}).Enabled() {
		t.Error("tracing with an endpoint must be enabled")
	}
}

const testYAML = `
platform_url: "http://judge.local/api/v4"
admin_user: "admin"
admin_pass: "secret"
contest_id: "demo"
timeout: "20s"
retries: 5
solutions_dir: "sols"
teams_csv: "roster.csv"
simulation_params:
  random_seed: 1337
  avg_subs_per_team: 8.5
  time_compression_factor: 60
  grace_period: "30s"
  max_dispatch_rate: 25
  submission_weights:
    ac: 0.5
    wa: 0.3
    tle: 0.2
  lang_map:
    py: "python3"
    c: "c"
team_generation:
  count: 20
  password: "pw"
`

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoaderReadsFile(t *testing.T) {
	path := writeConfigFile(t, testYAML)
	cfg, err := config.NewLoader().Load([]string{"--config", path})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.PlatformURL != "http://judge.local/api/v4" {
		t.Errorf("platform url %q", cfg.PlatformURL)
	}
	if cfg.Timeout != 20*time.Second {
		t.Errorf("timeout %s, expected 20s", cfg.Timeout)
	}
	if cfg.Retries != 5 {
		t.Errorf("retries %d, expected 5", cfg.Retries)
	}
	if cfg.Simulation.RandomSeed != 1337 {
		t.Errorf("seed %d, expected 1337", cfg.Simulation.RandomSeed)
	}
	if cfg.Simulation.TimeCompressionFactor != 60 {
		t.Errorf("compression %g, expected 60", cfg.Simulation.TimeCompressionFactor)
	}
	if cfg.Simulation.GracePeriod != 30*time.Second {
		t.Errorf("grace %s, expected 30s", cfg.Simulation.GracePeriod)
	}
	if cfg.Simulation.SubmissionWeights["wa"] != 0.3 {
		t.Errorf("weights %v", cfg.Simulation.SubmissionWeights)
	}
	if cfg.Simulation.LangMap["c"] != "c" {
		t.Errorf("lang map %v", cfg.Simulation.LangMap)
	}
	if cfg.Teams.Count != 20 || cfg.Teams.Password != "pw" {
		t.Errorf("teams %+v", cfg.Teams)
	}
	if cfg.TeamsCSV != "roster.csv" {
		t.Errorf("teams csv %q", cfg.TeamsCSV)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config invalid: %v", err)
	}
}

func TestLoaderFlagOverrides(t *testing.T) {
	path := writeConfigFile(t, testYAML)
	cfg, err := config.NewLoader().Load([]string{
		"--config", path,
		"--contest", "finals",
		"--seed", "99",
		"--compression", "120",
		"--teams", "0",
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ContestID != "finals" {
		t.Errorf("contest %q, expected the flag to win", cfg.ContestID)
	}
	if cfg.Simulation.RandomSeed != 99 {
		t.Errorf("seed %d, expected 99", cfg.Simulation.RandomSeed)
	}
	if cfg.Simulation.TimeCompressionFactor != 120 {
		t.Errorf("compression %g, expected 120", cfg.Simulation.TimeCompressionFactor)
	}
	if cfg.Teams.Count != 0 {
		t.Errorf("teams %d, expected flag override to 0", cfg.Teams.Count)
	}
	// Settings without flags keep the file value.
	if cfg.AdminUser != "admin" {
		t.Errorf("admin user %q", cfg.AdminUser)
	}
}

func TestLoaderDefaults(t *testing.T) {
	path := writeConfigFile(t, "platform_url: http://judge.local/api/v4\n")
	cfg, err := config.NewLoader().Load([]string{"--config", path})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Timeout != 30*time.Second {
		t.Errorf("timeout %s, expected the 30s default", cfg.Timeout)
	}
	if cfg.Simulation.AvgSubsPerTeam != 5 {
		t.Errorf("avg subs %g, expected the default 5", cfg.Simulation.AvgSubsPerTeam)
	}
	if cfg.Simulation.TimeCompressionFactor != 1.0 {
		t.Errorf("compression %g, expected the default 1.0", cfg.Simulation.TimeCompressionFactor)
	}
	if cfg.Simulation.ContestStartDelaySec != 15 {
		t.Errorf("start delay %d, expected the default 15", cfg.Simulation.ContestStartDelaySec)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("log level %q, expected info", cfg.LogLevel)
	}
	if cfg.OutputDir != "output" {
		t.Errorf("output dir %q, expected output", cfg.OutputDir)
	}
}

func TestLoaderHelp(t *testing.T) {
	if _, err := config.NewLoader().Load([]string{"--help"}); !errors.Is(err, config.ErrHelpRequested) {
		t.Errorf("expected ErrHelpRequested, got %v", err)
	}
	if _, err := config.NewLoader().Load(nil); !errors.Is(err, config.ErrHelpRequested) {
		t.Errorf("no arguments should show help, got %v", err)
	}
}

func TestLoaderMissingFile(t *testing.T) {
	if _, err := config.NewLoader().Load([]string{"--config", "/nonexistent/config.yaml"}); err == nil {
		t.Error("expected an error for a missing config file")
	}
}
