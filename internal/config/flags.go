package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "judgefire",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Platform flags
	flags.String("platform-url", "", "Contest platform API root URL")
	flags.String("admin-user", "", "Platform admin username")
	flags.String("admin-pass", "", "Platform admin password")
	flags.String("contest", "", "Contest id to simulate against")
	flags.Duration("timeout", 30*time.Second, "Per-request timeout for platform calls")
	flags.Int("retries", 3, "Retries per platform request on 5xx or transport failure")

	// Simulation flags
	flags.Int64("seed", 0, "Random seed for the shared event-generation source")
	flags.Float64("avg-subs", 0, "Mean submissions per team (Poisson lambda)")
	flags.Float64("compression", 0, "Time compression factor (simulated seconds per real second)")
	flags.Int("start-delay", 0, "Seconds from now until the contest starts")
	flags.String("start-time", "", "Explicit start: \"YYYY-MM-DD HH:MM:SS ZoneName\"")
	flags.Duration("grace-period", 0, "Real-time wait after the simulated contest end")
	flags.Int("max-dispatch-rate", 0, "Cap on submissions per second (0 means uncapped)")

	// Entity flags
	flags.Int("teams", -1, "Number of fake teams to provision (overrides config)")
	flags.String("solutions-dir", "", "Directory of solution artifacts")
	flags.String("teams-csv", "", "CSV file persisting the generated roster")

	// Output flags
	flags.String("output-dir", "", "Directory for run reports")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")

	flags.BoolP("help", "h", false, "Show usage information")
	flags.SortFlags = false
}

func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "judgefire - contest platform load simulator")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Usage:")
	fmt.Fprintln(out, "  judgefire --config config.yaml [flags]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Flags:")
	fmt.Fprint(out, cmd.Flags().FlagUsages())
}
