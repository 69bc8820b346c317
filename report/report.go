// Package report formats benchmark results into comparison tables and JSON
// exports.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/weiihann/benchplot/harness"
)

// ErrNoResults is returned when there is nothing to report.
var ErrNoResults = errors.New("no results to report")

// Export is the JSON document written by GenerateJSON.
type Export struct {
	Results []harness.Result `json:"results"`
}

// Generate writes a markdown comparison table for the given results.
func Generate(w io.Writer, results []harness.Result) error {
	if len(results) == 0 {
		return ErrNoResults
	}

	fastest := findFastest(results)

	fmt.Fprintln(w, "## Benchmark Results")
	fmt.Fprintln(w)

	if failed := failedRuns(results); len(failed) == 0 {
		fmt.Fprintln(w, "Exit codes: **all zero**")
	} else {
		fmt.Fprintln(w, "Exit codes: **NON-ZERO**")

		for _, r := range results {
			if n := failed[r.Command]; n > 0 {
				fmt.Fprintf(w, "  - %s: %d of %d runs failed\n", r.Command, n, r.Runs())
			}
		}
	}

	fmt.Fprintln(w)

	fmt.Fprintln(w, "| Command | Mean ± σ | Min … Max | User | System "+
		"| Runs | Relative |")
	fmt.Fprintln(w, "|---------|----------|-----------|------|--------"+
		"|------|----------|")

	for _, r := range results {
		relative := 1.0
		if fastest > 0 && r.Mean > 0 {
			relative = r.Mean / fastest
		}

		fmt.Fprintf(w, "| %s | %s ± %s | %s … %s | %s | %s | %d | %.2fx |\n",
			r.Command,
			formatSeconds(r.Mean),
			formatSeconds(r.Stddev),
			formatSeconds(r.Min),
			formatSeconds(r.Max),
			formatSeconds(r.User),
			formatSeconds(r.System),
			r.Runs(),
			relative,
		)
	}

	return nil
}

// GenerateJSON writes results as a JSON export to w.
func GenerateJSON(w io.Writer, results []harness.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if results == nil {
		results = []harness.Result{}
	}

	return enc.Encode(Export{Results: results})
}

// ReadJSON reads an export written by GenerateJSON.
func ReadJSON(r io.Reader) ([]harness.Result, error) {
	var export Export
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}

	if len(export.Results) == 0 {
		return nil, ErrNoResults
	}

	return export.Results, nil
}

func failedRuns(results []harness.Result) map[string]int {
	failed := make(map[string]int)

	for _, r := range results {
		for _, code := range r.ExitCodes {
			if code != 0 {
				failed[r.Command]++
			}
		}
	}

	return failed
}

func findFastest(results []harness.Result) float64 {
	fastest := math.Inf(1)
	for _, r := range results {
		if r.Mean > 0 && r.Mean < fastest {
			fastest = r.Mean
		}
	}

	if math.IsInf(fastest, 1) {
		return 0
	}

	return fastest
}

func formatSeconds(s float64) string {
	switch {
	case s < 1e-3:
		return fmt.Sprintf("%.1fµs", s*1e6)
	case s < 1:
		return fmt.Sprintf("%.1fms", s*1e3)
	default:
		return fmt.Sprintf("%.3fs", s)
	}
}
