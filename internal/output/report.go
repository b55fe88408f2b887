// Package output writes per-run report files and the end-of-run summary.
package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/judgefire/judgefire/internal/metrics"
	"github.com/judgefire/judgefire/internal/platform"
)

// NewRunID returns a lexicographically sortable id for one simulation run.
func NewRunID() string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// RunDir creates and returns the report directory for a run id.
func RunDir(base, runID string) (string, error) {
	dir := filepath.Join(base, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("output: create %s: %w", dir, err)
	}
	return dir, nil
}

// WriteScoreboard stores the final scoreboard as indented JSON.
func WriteScoreboard(dir string, raw []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		// Not valid JSON; keep the raw payload rather than losing it.
		buf.Reset()
		buf.Write(raw)
	}
	path := filepath.Join(dir, "scoreboard.json")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("output: write %s: %w", path, err)
	}
	return nil
}

// WriteSubmissionsCSV stores all contest submissions with their final
// verdicts. The verdict of a submission is that of its last judgement, or
// "pending" when none exists yet.
func WriteSubmissionsCSV(dir string, subs []platform.Submission, verdicts map[string]string) error {
	path := filepath.Join(dir, "submissions.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "team_id", "problem_id", "language_id", "contest_time", "verdict"}); err != nil {
		return fmt.Errorf("output: write %s: %w", path, err)
	}
	for _, sub := range subs {
		verdict := "pending"
		if n := len(sub.Judgements); n > 0 {
			if v, ok := verdicts[sub.Judgements[n-1]]; ok {
				verdict = v
			}
		}
		row := []string{sub.ID, sub.TeamID, sub.ProblemID, sub.LanguageID, sub.ContestTime, verdict}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("output: write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("output: flush %s: %w", path, err)
	}
	return nil
}

// PrintReport outputs a human-readable summary of the run.
func PrintReport(w io.Writer, stats metrics.Stats) {
	fmt.Fprintln(w, "\n--- Simulation Results ---")
	fmt.Fprintf(w, "Dispatched:        %d\n", stats.Dispatched)
	fmt.Fprintf(w, "Failed:            %d\n", stats.Failed)
	fmt.Fprintf(w, "Dropped (no artifact): %d\n", stats.ResolutionMisses)
	fmt.Fprintf(w, "Duration:          %s\n", stats.Duration)
	fmt.Fprintf(w, "Dispatches/sec:    %.2f\n", stats.DispatchesPerSec)
	fmt.Fprintln(w, "\nDispatch latency:")
	fmt.Fprintf(w, "  Min:             %s\n", stats.MinLatency)
	fmt.Fprintf(w, "  Max:             %s\n", stats.MaxLatency)
	fmt.Fprintf(w, "  Mean:            %s\n", stats.MeanLatency)
	fmt.Fprintf(w, "  P50:             %s\n", stats.P50Latency)
	fmt.Fprintf(w, "  P90:             %s\n", stats.P90Latency)
	fmt.Fprintf(w, "  P99:             %s\n", stats.P99Latency)

	if len(stats.Errors) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		types := make([]string, 0, len(stats.Errors))
		for t := range stats.Errors {
			types = append(types, t)
		}
		sort.Strings(types)
		for _, t := range types {
			fmt.Fprintf(w, "  - %s: %d\n", t, stats.Errors[t])
		}
	}
}
