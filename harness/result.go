// Package harness runs benchmarked shell commands and collects timing
// statistics for each of them.
package harness

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Result holds the statistics collected for one benchmarked command. All
// durations are in seconds.
type Result struct {
	Command    string    `json:"command"`
	Expression string    `json:"expression,omitempty"`
	Mean       float64   `json:"mean"`
	Stddev     float64   `json:"stddev"`
	Median     float64   `json:"median"`
	Min        float64   `json:"min"`
	Max        float64   `json:"max"`
	User       float64   `json:"user"`
	System     float64   `json:"system"`
	Times      []float64 `json:"times"`
	ExitCodes  []int     `json:"exit_codes"`
}

// Runs returns the number of timed runs behind the result.
func (r Result) Runs() int {
	return len(r.Times)
}

func summarize(name, expr string, ms []Measurement) Result {
	res := Result{
		Command:    name,
		Expression: expr,
		Times:      make([]float64, len(ms)),
		ExitCodes:  make([]int, len(ms)),
	}

	if len(ms) == 0 {
		return res
	}

	user := make([]float64, len(ms))
	sys := make([]float64, len(ms))

	for i, m := range ms {
		res.Times[i] = m.Wall.Seconds()
		res.ExitCodes[i] = m.ExitCode
		user[i] = m.User.Seconds()
		sys[i] = m.System.Seconds()
	}

	res.Mean, res.Stddev = stat.MeanStdDev(res.Times, nil)
	if len(ms) < 2 || math.IsNaN(res.Stddev) {
		res.Stddev = 0
	}

	res.Median = median(res.Times)
	res.Min = floats.Min(res.Times)
	res.Max = floats.Max(res.Times)
	res.User = stat.Mean(user, nil)
	res.System = stat.Mean(sys, nil)

	return res
}

// median averages the two middle values for even-length input.
func median(xs []float64) float64 {
	sorted := slices.Clone(xs)
	slices.Sort(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}

	return (sorted[n/2-1] + sorted[n/2]) / 2
}
