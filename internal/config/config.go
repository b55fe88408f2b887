package config

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Config is the full configuration for one simulation run.
type Config struct {
	// PlatformURL is the contest platform API root, e.g.
	// "https://judge.example.org/api/v4".
	PlatformURL   string        `mapstructure:"platform_url"`
	AdminUser     string        `mapstructure:"admin_user"`
	AdminPassword string        `mapstructure:"admin_pass"`
	ContestID     string        `mapstructure:"contest_id"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Retries       int           `mapstructure:"retries"`

	Simulation SimulationConfig `mapstructure:"simulation_params"`
	Teams      TeamsConfig      `mapstructure:"team_generation"`
	Tracing    TracingConfig    `mapstructure:"tracing"`

	SolutionsDir string `mapstructure:"solutions_dir"`
	OutputDir    string `mapstructure:"output_dir"`
	TeamsCSV     string `mapstructure:"teams_csv"`
	LogLevel     string `mapstructure:"log_level"`
	ConfigFile   string `mapstructure:"-"`
}

// SimulationConfig drives the discrete-event core.
type SimulationConfig struct {
	RandomSeed            int64              `mapstructure:"random_seed"`
	AvgSubsPerTeam        float64            `mapstructure:"avg_subs_per_team"`
	SubmissionWeights     map[string]float64 `mapstructure:"submission_weights"`
	TimeCompressionFactor float64            `mapstructure:"time_compression_factor"`
	ContestStartDelaySec  int                `mapstructure:"contest_start_delay_sec"`
	CustomStartTime       string             `mapstructure:"custom_start_time"`
	LangMap               map[string]string  `mapstructure:"lang_map"`
	GracePeriod           time.Duration      `mapstructure:"grace_period"`
	// MaxDispatchRate caps submissions per real second toward the platform.
	// Zero means uncapped.
	MaxDispatchRate int `mapstructure:"max_dispatch_rate"`
}

// TeamsConfig controls fake-team provisioning.
type TeamsConfig struct {
	Count           int      `mapstructure:"count"`
	AffiliationPool []string `mapstructure:"affiliation_pool"`
	Password        string   `mapstructure:"password"`
}

// TracingConfig configures the optional OpenTelemetry exporter.
type TracingConfig struct {
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Propagate   bool    `mapstructure:"propagate"`
}

// Enabled reports whether an exporter endpoint is configured.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != ""
}

// ShouldPropagate reports whether trace headers should be injected into
// outgoing platform requests.
func (t TracingConfig) ShouldPropagate() bool { return t.Propagate }

// ValidationError aggregates every configuration issue found in one pass.
type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

// Issues returns the individual problems behind the error.
func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

// Validate checks the configuration. A non-nil result is fatal: the run
// aborts before any event is generated.
func (c Config) Validate() error {
	var issues []string

	if strings.TrimSpace(c.PlatformURL) == "" {
		issues = append(issues, "platform_url is required")
	}
	if strings.TrimSpace(c.AdminUser) == "" {
		issues = append(issues, "admin_user is required")
	}
	if strings.TrimSpace(c.AdminPassword) == "" {
		issues = append(issues, "admin_pass is required")
	}
	if strings.TrimSpace(c.ContestID) == "" {
		issues = append(issues, "contest_id is required")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.Retries < 0 {
		issues = append(issues, "retries must be >= 0")
	}
	if strings.TrimSpace(c.SolutionsDir) == "" {
		issues = append(issues, "solutions_dir is required")
	}

	issues = append(issues, c.Simulation.validate()...)

	if c.Teams.Count < 0 {
		issues = append(issues, "team_generation.count must be >= 0")
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1.0 {
		issues = append(issues, "tracing.sample_rate must be between 0.0 and 1.0")
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func (s SimulationConfig) validate() []string {
	var issues []string
	if s.AvgSubsPerTeam < 0 {
		issues = append(issues, "simulation_params.avg_subs_per_team must be >= 0")
	}
	if len(s.SubmissionWeights) == 0 {
		issues = append(issues, "simulation_params.submission_weights is required")
	}
	var total float64
	for category, weight := range s.SubmissionWeights {
		if weight < 0 {
			issues = append(issues, fmt.Sprintf("simulation_params.submission_weights[%s] must be >= 0", category))
		}
		total += weight
	}
	if len(s.SubmissionWeights) > 0 && total <= 0 {
		issues = append(issues, "simulation_params.submission_weights must have a positive total")
	}
	if len(s.LangMap) == 0 {
		issues = append(issues, "simulation_params.lang_map is required")
	}
	if s.ContestStartDelaySec < 0 {
		issues = append(issues, "simulation_params.contest_start_delay_sec must be >= 0")
	}
	if s.GracePeriod < 0 {
		issues = append(issues, "simulation_params.grace_period must be >= 0")
	}
	if s.MaxDispatchRate < 0 {
		issues = append(issues, "simulation_params.max_dispatch_rate must be >= 0")
	}
	// A non-positive compression factor is normalized by the scheduler, not
	// rejected here.
	return issues
}

// NormalizedLangMap returns the extension-to-language map with every key in
// ".ext" form. Config files write extensions without the dot, since dots
// inside map keys collide with the config key delimiter.
func (s SimulationConfig) NormalizedLangMap() map[string]string {
	out := make(map[string]string, len(s.LangMap))
	for ext, lang := range s.LangMap {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out[ext] = lang
	}
	return out
}

// SortedWeights returns the submission weights as a slice ordered by category
// name. Map iteration order is not deterministic, so every consumer that
// feeds the seeded random source must go through this.
func (s SimulationConfig) SortedWeights() []WeightedCategory {
	categories := make([]string, 0, len(s.SubmissionWeights))
	for category := range s.SubmissionWeights {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	weights := make([]WeightedCategory, 0, len(categories))
	for _, category := range categories {
		weights = append(weights, WeightedCategory{
			Category: category,
			Weight:   s.SubmissionWeights[category],
		})
	}
	return weights
}

// WeightedCategory is one outcome category and its relative weight.
type WeightedCategory struct {
	Category string
	Weight   float64
}
