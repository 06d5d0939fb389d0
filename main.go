package main

import (
	"flag"
	"log/slog"
	"os"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/slime/config"
	"github.com/pthm-cable/slime/game"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics (forces the cpu device)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for field snapshots (empty = <output-dir>/snapshots)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	deviceName := flag.String("device", "", "Compute device: gpu or cpu (empty = use config)")
	maxSteps := flag.Uint64("steps", 0, "Stop after N simulation steps (0 = unlimited)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	devName := cfg.Simulation.Device
	if *deviceName != "" {
		devName = *deviceName
	}

	opts := game.Options{
		LogStats:    *logStats,
		SnapshotDir: *snapshotDir,
		OutputDir:   *outputDir,
		Headless:    *headless,
	}

	if *headless {
		if devName != game.DeviceCPU {
			slog.Info("headless run uses the cpu device", "requested", devName)
		}
		runHeadless(cfg, opts, *maxSteps)
		return
	}

	// Graphical mode
	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Slime")
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	dev, err := game.OpenDevice(devName, cfg.Simulation.Workers)
	if err != nil {
		slog.Error("failed to open device", "device", devName, "error", err)
		os.Exit(1)
	}
	defer dev.Unload()

	g, err := game.NewGame(cfg, dev, opts)
	if err != nil {
		slog.Error("failed to start simulation", "error", err)
		os.Exit(1)
	}
	defer g.Unload()

	for !rl.WindowShouldClose() {
		g.Update()
		g.Draw()

		if *maxSteps > 0 && g.Steps() >= *maxSteps {
			break
		}
	}
}

// runHeadless steps the simulation on the cpu device at the configured
// frame rate until maxSteps is reached.
func runHeadless(cfg *config.Config, opts game.Options, maxSteps uint64) {
	dev, err := game.OpenDevice(game.DeviceCPU, cfg.Simulation.Workers)
	if err != nil {
		slog.Error("failed to open device", "error", err)
		os.Exit(1)
	}
	defer dev.Unload()

	g, err := game.NewGame(cfg, dev, opts)
	if err != nil {
		slog.Error("failed to start simulation", "error", err)
		os.Exit(1)
	}
	defer g.Unload()

	dt := float32(1.0) / float32(max(cfg.Screen.TargetFPS, 1))
	slog.Info("starting headless simulation",
		"max_steps", maxSteps,
		"dt", dt,
	)

	for {
		g.UpdateHeadless(dt)

		if maxSteps > 0 && g.Steps() >= maxSteps {
			slog.Info("max steps reached", "steps", g.Steps())
			return
		}
	}
}
