package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// CoverageThreshold is the per-cell trail sum above which a cell counts as
// covered.
const CoverageThreshold = 1e-3

// FieldStats holds aggregated statistics for an RGBA trail field. All values
// are over per-cell channel sums.
type FieldStats struct {
	Step    int64   `csv:"step"`
	SimTime float64 `csv:"sim_time"`
	Cells   int     `csv:"cells"`

	Total    float64 `csv:"total"`
	Mean     float64 `csv:"mean"`
	StdDev   float64 `csv:"stddev"`
	Max      float64 `csv:"max"`
	P50      float64 `csv:"p50"`
	P90      float64 `csv:"p90"`
	Coverage float64 `csv:"coverage"`

	// Per-channel totals, one per species.
	Channel0 float64 `csv:"ch0"`
	Channel1 float64 `csv:"ch1"`
	Channel2 float64 `csv:"ch2"`
	Channel3 float64 `csv:"ch3"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeFieldStats reduces an interleaved RGBA float32 field (4 values per
// cell) to summary statistics. A trailing partial cell is ignored.
func ComputeFieldStats(rgba []float32) FieldStats {
	n := len(rgba) / 4
	if n == 0 {
		return FieldStats{}
	}

	sums := make([]float64, n)
	var channels [4]float64
	covered := 0
	for i := range sums {
		var s float64
		for c := 0; c < 4; c++ {
			v := float64(rgba[i*4+c])
			channels[c] += v
			s += v
		}
		sums[i] = s
		if s > CoverageThreshold {
			covered++
		}
	}

	mean, std := stat.PopMeanStdDev(sums, nil)
	fs := FieldStats{
		Cells:    n,
		Total:    floats.Sum(sums),
		Mean:     mean,
		StdDev:   std,
		Max:      floats.Max(sums),
		Coverage: float64(covered) / float64(n),
		Channel0: channels[0],
		Channel1: channels[1],
		Channel2: channels[2],
		Channel3: channels[3],
	}

	sort.Float64s(sums)
	fs.P50 = Percentile(sums, 0.50)
	fs.P90 = Percentile(sums, 0.90)
	return fs
}

// LogValue implements slog.LogValuer for structured logging.
func (s FieldStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("step", s.Step),
		slog.Float64("sim_time", s.SimTime),
		slog.Float64("total", s.Total),
		slog.Float64("mean", s.Mean),
		slog.Float64("stddev", s.StdDev),
		slog.Float64("max", s.Max),
		slog.Float64("p50", s.P50),
		slog.Float64("p90", s.P90),
		slog.Float64("coverage", s.Coverage),
	)
}

// LogStats logs the field stats using slog.
func (s FieldStats) LogStats() {
	slog.Info("stats", "field", s)
}
