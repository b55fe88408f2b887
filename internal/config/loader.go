package config

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and the configuration file to produce a
// Config. Flags override file settings.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}

	cfg := defaults()
	cfg.ConfigFile = configPath

	if configPath != "" {
		cfgViper := viper.New()
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
		if err := cfgViper.Unmarshal(cfg); err != nil {
			return nil, err
		}
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.PlatformURL = strings.TrimSpace(cfg.PlatformURL)
	cfg.SolutionsDir = strings.TrimSpace(cfg.SolutionsDir)
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Timeout: 30 * time.Second,
		Retries: 3,
		Simulation: SimulationConfig{
			AvgSubsPerTeam:        5,
			TimeCompressionFactor: 1.0,
			ContestStartDelaySec:  15,
			GracePeriod:           10 * time.Second,
		},
		Tracing:      TracingConfig{SampleRate: 1.0},
		SolutionsDir: "solutions",
		OutputDir:    "output",
		TeamsCSV:     "teams.csv",
		LogLevel:     "info",
	}
}

// applyFlagOverrides copies explicitly set flags over the file settings.
func applyFlagOverrides(cfg *Config, flags *pflag.FlagSet) error {
	var err error
	set := func(name string, apply func() error) {
		if err != nil || !flags.Changed(name) {
			return
		}
		err = apply()
	}

	set("platform-url", func() error { return getString(flags, "platform-url", &cfg.PlatformURL) })
	set("admin-user", func() error { return getString(flags, "admin-user", &cfg.AdminUser) })
	set("admin-pass", func() error { return getString(flags, "admin-pass", &cfg.AdminPassword) })
	set("contest", func() error { return getString(flags, "contest", &cfg.ContestID) })
	set("timeout", func() error { return getDuration(flags, "timeout", &cfg.Timeout) })
	set("retries", func() error { return getInt(flags, "retries", &cfg.Retries) })

	set("seed", func() error {
		v, e := flags.GetInt64("seed")
		cfg.Simulation.RandomSeed = v
		return e
	})
	set("avg-subs", func() error {
		v, e := flags.GetFloat64("avg-subs")
		cfg.Simulation.AvgSubsPerTeam = v
		return e
	})
	set("compression", func() error {
		v, e := flags.GetFloat64("compression")
		cfg.Simulation.TimeCompressionFactor = v
		return e
	})
	set("start-delay", func() error {
		v, e := flags.GetInt("start-delay")
		cfg.Simulation.ContestStartDelaySec = v
		return e
	})
	set("start-time", func() error { return getString(flags, "start-time", &cfg.Simulation.CustomStartTime) })
	set("grace-period", func() error { return getDuration(flags, "grace-period", &cfg.Simulation.GracePeriod) })
	set("max-dispatch-rate", func() error {
		v, e := flags.GetInt("max-dispatch-rate")
		cfg.Simulation.MaxDispatchRate = v
		return e
	})

	set("teams", func() error {
		v, e := flags.GetInt("teams")
		cfg.Teams.Count = v
		return e
	})
	set("solutions-dir", func() error { return getString(flags, "solutions-dir", &cfg.SolutionsDir) })
	set("teams-csv", func() error { return getString(flags, "teams-csv", &cfg.TeamsCSV) })
	set("output-dir", func() error { return getString(flags, "output-dir", &cfg.OutputDir) })
	set("log-level", func() error { return getString(flags, "log-level", &cfg.LogLevel) })

	return err
}

func getString(flags *pflag.FlagSet, name string, dst *string) error {
	v, err := flags.GetString(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func getInt(flags *pflag.FlagSet, name string, dst *int) error {
	v, err := flags.GetInt(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func getDuration(flags *pflag.FlagSet, name string, dst *time.Duration) error {
	v, err := flags.GetDuration(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}
