package telemetry

import (
	"fmt"
	"log/slog"
)

// Source is the simulation state a Collector samples.
type Source interface {
	Steps() uint64
	Time() float32
	ReadTrail() ([]float32, error)
}

// CollectorOptions configures a Collector. Zero intervals disable the
// corresponding output.
type CollectorOptions struct {
	StatsEvery    uint64
	SnapshotEvery uint64
	SnapshotDir   string

	// Header is the template for snapshot headers; Step and SimTime are
	// filled in per snapshot.
	Header SnapshotHeader

	Output   *OutputManager
	Perf     *PerfCollector
	LogStats bool
}

// Collector samples field statistics and snapshots on step boundaries.
type Collector struct {
	opts CollectorOptions

	nextStats    uint64
	nextSnapshot uint64
	last         FieldStats
	snapshots    int
}

// NewCollector creates a new stats collector.
func NewCollector(o CollectorOptions) *Collector {
	if o.SnapshotDir == "" {
		o.SnapshotEvery = 0
	}
	return &Collector{
		opts:         o,
		nextStats:    o.StatsEvery,
		nextSnapshot: o.SnapshotEvery,
	}
}

// nextBoundary returns the first multiple of every strictly above steps.
func nextBoundary(steps, every uint64) uint64 {
	return (steps/every + 1) * every
}

// Observe writes stats and snapshots for every boundary crossed since the
// last call. Several boundaries crossed in one frame produce one record.
func (c *Collector) Observe(src Source) error {
	if c.opts.Perf != nil {
		c.opts.Perf.StartPhase(PhaseTelemetry)
	}

	steps := src.Steps()
	statsDue := c.opts.StatsEvery > 0 && steps >= c.nextStats
	snapDue := c.opts.SnapshotEvery > 0 && steps >= c.nextSnapshot
	if !statsDue && !snapDue {
		return nil
	}

	trail, err := src.ReadTrail()
	if err != nil {
		return fmt.Errorf("reading trail: %w", err)
	}

	if statsDue {
		c.nextStats = nextBoundary(steps, c.opts.StatsEvery)
		if err := c.writeStats(src, trail); err != nil {
			return err
		}
	}

	if snapDue {
		c.nextSnapshot = nextBoundary(steps, c.opts.SnapshotEvery)
		h := c.opts.Header
		h.Step = steps
		h.SimTime = src.Time()
		path, err := WriteFieldSnapshot(c.opts.SnapshotDir, h, trail)
		if err != nil {
			return err
		}
		c.snapshots++
		slog.Info("snapshot saved", "path", path, "step", steps)
	}
	return nil
}

func (c *Collector) writeStats(src Source, trail []float32) error {
	fs := ComputeFieldStats(trail)
	fs.Step = int64(src.Steps())
	fs.SimTime = float64(src.Time())
	c.last = fs

	if err := c.opts.Output.WriteStats(fs); err != nil {
		return err
	}

	var perf PerfStats
	if c.opts.Perf != nil {
		perf = c.opts.Perf.Stats()
		if err := c.opts.Output.WritePerf(perf, fs.Step); err != nil {
			return err
		}
	}

	if c.opts.LogStats {
		fs.LogStats()
		if c.opts.Perf != nil {
			perf.LogStats()
		}
	}
	return nil
}

// Last returns the most recent field stats.
func (c *Collector) Last() FieldStats { return c.last }

// Snapshots returns the number of snapshots written.
func (c *Collector) Snapshots() int { return c.snapshots }
