package main

import (
	"log/slog"
	"math"
	"sync"

	"github.com/pthm-cable/slime/sim"
	"github.com/pthm-cable/slime/telemetry"
)

// Fitness shaping. A run that reaches the target coverage with a flat fog
// instead of a vein network is penalised by the contrast term.
const (
	minContrast      = 1.0 // stddev/mean below which the field reads as fog
	contrastWeight   = 0.1
	failedRunFitness = 1e6
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params  *ParamVector
	base    sim.Config
	steps   int
	dt      float32
	seeds   []int64
	target  float64
	workers int

	mu        sync.Mutex
	lastStats telemetry.FieldStats // mean stats from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, base sim.Config, steps int, dt float32, seeds []int64, target float64, workers int) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:  params,
		base:    base,
		steps:   steps,
		dt:      dt,
		seeds:   seeds,
		target:  target,
		workers: workers,
	}
}

// LastStats returns the seed-averaged coverage and contrast of the most
// recent evaluation.
func (fe *FitnessEvaluator) LastStats() telemetry.FieldStats {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastStats
}

// Evaluate computes fitness for a raw parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]telemetry.FieldStats, len(fe.seeds))
	errs := make([]error, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx], errs[idx] = fe.runSimulation(x, s)
		}(i, seed)
	}
	wg.Wait()

	var total float64
	var mean telemetry.FieldStats
	for i, r := range results {
		if errs[i] != nil {
			slog.Error("evaluation run failed", "seed", fe.seeds[i], "error", errs[i])
			return failedRunFitness
		}
		total += fe.computeFitness(r)
		mean.Coverage += r.Coverage
		mean.Mean += r.Mean
		mean.StdDev += r.StdDev
	}

	n := float64(len(fe.seeds))
	mean.Coverage /= n
	mean.Mean /= n
	mean.StdDev /= n

	fe.mu.Lock()
	fe.lastStats = mean
	fe.mu.Unlock()

	return total / n
}

// runSimulation runs one seed on its own cpu device and returns the final
// field stats.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) (telemetry.FieldStats, error) {
	dev := sim.NewCPUDevice(fe.workers)
	defer dev.Unload()

	cfg := fe.base
	cfg.Seed = seed
	fe.params.Apply(&cfg.Params, x)

	e, err := sim.New(dev, cfg)
	if err != nil {
		return telemetry.FieldStats{}, err
	}
	defer e.Unload()

	for i := 0; i < fe.steps; i++ {
		e.Step(fe.dt)
	}

	trail, err := e.ReadTrail()
	if err != nil {
		return telemetry.FieldStats{}, err
	}
	stats := telemetry.ComputeFieldStats(trail)
	stats.Step = int64(e.Steps())
	stats.SimTime = float64(e.Time())
	return stats, nil
}

// computeFitness scores one run: squared distance to the target coverage
// plus the fog penalty.
func (fe *FitnessEvaluator) computeFitness(s telemetry.FieldStats) float64 {
	d := s.Coverage - fe.target
	return d*d + contrastWeight*math.Max(0, minContrast-contrast(s))
}

// contrast is the coefficient of variation of the channel sums.
func contrast(s telemetry.FieldStats) float64 {
	if s.Mean <= 0 {
		return 0
	}
	return s.StdDev / s.Mean
}
