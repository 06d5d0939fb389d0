// Package main provides CMA-ES tuning of the trail parameters toward a
// target field coverage, using short headless cpu runs.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/slime/config"
	"github.com/pthm-cable/slime/device"
	"github.com/pthm-cable/slime/sim"
)

// evalRow is one line of the tuning log.
type evalRow struct {
	Eval          int     `csv:"eval"`
	Fitness       float64 `csv:"fitness"`
	Coverage      float64 `csv:"coverage"`
	Contrast      float64 `csv:"contrast"`
	MoveSpeed     float64 `csv:"move_speed"`
	TurnAmount    float64 `csv:"turn_amount"`
	SenseSpacing  float64 `csv:"sense_spacing"`
	SenseDistance float64 `csv:"sense_distance"`
	DiffuseSpeed  float64 `csv:"diffuse_speed"`
	DecaySpeed    float64 `csv:"decay_speed"`
}

func newEvalRow(eval int, fitness, coverage, contrast float64, v []float64) evalRow {
	return evalRow{
		Eval:          eval,
		Fitness:       fitness,
		Coverage:      coverage,
		Contrast:      contrast,
		MoveSpeed:     v[0],
		TurnAmount:    v[1],
		SenseSpacing:  v[2],
		SenseDistance: v[3],
		DiffuseSpeed:  v[4],
		DecaySpeed:    v[5],
	}
}

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	target := flag.Float64("target", 0.35, "Target fraction of cells carrying trail")
	steps := flag.Int("steps", 600, "Simulation steps per run")
	width := flag.Int("width", 256, "Grid width for tuning runs")
	height := flag.Int("height", 144, "Grid height for tuning runs")
	agentCount := flag.Int("agents", 8000, "Agents per tuning run")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 200, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	workers := flag.Int("workers", 2, "CPU device goroutines per run")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}

	// Create output directory
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	// Load base config
	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	baseCfg := config.Cfg()

	base, err := sim.ConfigFrom(baseCfg)
	if err != nil {
		log.Fatalf("failed to build simulation config: %v", err)
	}
	if base.Variant.Dims == 3 {
		base.Extent = device.Extent3D(*width, *height, baseCfg.Derived.GridD)
	} else {
		base.Extent = device.Extent2D(*width, *height)
	}
	base.Agents = *agentCount
	base.Params.StepsPerFrame = 1

	params := NewParamVector()

	// Generate seeds for evaluation
	evalSeeds := make([]int64, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}

	dt := float32(1.0) / float32(max(baseCfg.Screen.TargetFPS, 1))
	evaluator := NewFitnessEvaluator(params, base, *steps, dt, evalSeeds, *target, *workers)

	dim := params.Dim()
	initX := params.Normalize(params.ExtractFromConfig(baseCfg))

	// Open log file
	logPath := filepath.Join(*outputDir, "tune_log.csv")
	logFile, err := os.Create(logPath)
	if err != nil {
		log.Fatalf("failed to create log file: %v", err)
	}
	defer logFile.Close()

	evalCount := 0
	bestFitness := 1e9
	var bestParams []float64
	startTime := time.Now()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			// Denormalize and clamp to get actual parameter values
			clamped := params.Clamp(params.Denormalize(x))
			fitness := evaluator.Evaluate(clamped)
			evalCount++

			if fitness < bestFitness {
				bestFitness = fitness
				bestParams = clamped
			}

			stats := evaluator.LastStats()
			row := []evalRow{newEvalRow(evalCount, fitness, stats.Coverage, contrast(stats), clamped)}
			var werr error
			if evalCount == 1 {
				werr = gocsv.Marshal(row, logFile)
			} else {
				werr = gocsv.MarshalWithoutHeaders(row, logFile)
			}
			if werr != nil {
				log.Printf("failed to write log row: %v", werr)
			}

			elapsed := time.Since(startTime)
			avgPerEval := elapsed / time.Duration(evalCount)
			remaining := time.Duration(*maxEvals-evalCount) * avgPerEval

			fmt.Printf("Eval %d/%d: coverage=%.3f contrast=%.2f fitness=%.5f (best=%.5f) | elapsed: %s, ETA: %s\n",
				evalCount, *maxEvals, stats.Coverage, contrast(stats), fitness, bestFitness,
				formatDuration(elapsed), formatDuration(remaining))

			return fitness
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0, // Sequential evaluation; seeds run in parallel
	}

	popSize := *population
	if popSize == 0 {
		popSize = 4 + int(3.0*float64(dim)/2.0)
	}

	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}

	fmt.Printf("Starting CMA-ES tuning with %d parameters, population=%d, max_evals=%d\n",
		dim, popSize, *maxEvals)
	fmt.Printf("Grid %dx%d, %d agents, %d steps per run, %d seeds, target coverage %.2f\n",
		*width, *height, *agentCount, *steps, *seeds, *target)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		log.Printf("tuning ended: %v", err)
	}

	// Use best params found (may be from any evaluation, not just final)
	if bestParams == nil && result != nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}
	if bestParams == nil {
		log.Fatal("no evaluation completed")
	}

	fmt.Printf("\nTuning complete after %d evaluations in %s\n", evalCount, formatDuration(time.Since(startTime)))
	fmt.Printf("Best fitness: %.5f\n", bestFitness)

	fmt.Println("\nBest parameters:")
	for i, spec := range params.Specs {
		fmt.Printf("  %s: %.4f\n", spec.Path, bestParams[i])
	}

	// Save best config
	bestCfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to reload config: %v", err)
	}
	params.ApplyToConfig(bestCfg, bestParams)

	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		log.Printf("failed to write best config: %v", err)
	} else {
		fmt.Printf("\nBest config saved to: %s\n", configOutPath)
	}
}
