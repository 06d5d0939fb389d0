// Package game is the interactive shell around a simulation: it turns input
// into view changes and wall paint, advances the engine once per frame and
// draws the result.
package game

import (
	"fmt"
	"log/slog"
	"path/filepath"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/slime/agents"
	"github.com/pthm-cable/slime/config"
	"github.com/pthm-cable/slime/device"
	"github.com/pthm-cable/slime/renderer"
	"github.com/pthm-cable/slime/sim"
	"github.com/pthm-cable/slime/telemetry"
	"github.com/pthm-cable/slime/ui"
	"github.com/pthm-cable/slime/view"
)

// MaxFrameTime caps the per-frame dt so a stalled frame does not launch
// agents across the field.
const MaxFrameTime = float32(1.0 / 20)

// MaxStepsPerFrame bounds the sub-step control.
const MaxStepsPerFrame = 16

// Options holds runtime options for the shell.
type Options struct {
	LogStats    bool   // Log stats via slog every stats window
	SnapshotDir string // Directory for field snapshots (empty = <OutputDir>/snapshots)
	OutputDir   string // Directory for CSV output (empty = disabled)
	Headless    bool   // Run without graphics
}

// Game owns the engine and everything the frame loop needs around it.
type Game struct {
	cfg    *config.Config
	dev    device.Device
	engine *sim.Engine
	opts   Options

	// Display
	view      *view.View
	field     *renderer.FieldRenderer
	panel     *ui.ParamPanel
	hud       *ui.HUD
	perfPanel *ui.PerfPanel

	// Telemetry
	perf      *telemetry.PerfCollector
	collector *telemetry.Collector
	output    *telemetry.OutputManager

	screenWidth  float32
	screenHeight float32
	paused       bool
	showPerf     bool
}

// NewGame builds the engine on dev from cfg. In graphical mode the raylib
// window must already be open.
func NewGame(cfg *config.Config, dev device.Device, opts Options) (*Game, error) {
	simCfg, err := sim.ConfigFrom(cfg)
	if err != nil {
		return nil, err
	}

	engine, err := sim.New(dev, simCfg)
	if err != nil {
		return nil, fmt.Errorf("building simulation: %w", err)
	}

	g := &Game{
		cfg:          cfg,
		dev:          dev,
		engine:       engine,
		opts:         opts,
		perf:         telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		screenWidth:  cfg.Derived.ScreenW32,
		screenHeight: cfg.Derived.ScreenH32,
	}
	engine.SetPhaseTimer(g.perf)

	if err := g.setupTelemetry(simCfg); err != nil {
		engine.Unload()
		return nil, err
	}

	if !opts.Headless {
		ext := engine.Extent()
		g.view = view.New(g.screenWidth, g.screenHeight, ext.W, ext.H)
		g.field = renderer.NewFieldRenderer(cfg.Shaders.Path(cfg.Shaders.Display), agents.Palette)
		g.field.Init()
		g.panel = ui.NewParamPanel(10, 10, 260)
		g.hud = ui.NewHUD()
		g.perfPanel = ui.NewPerfPanel(int32(g.screenWidth)-300, 140)
	}

	slog.Info("game ready",
		"variant", engine.Variant().String(),
		"device", dev.Name(),
		"agents", engine.AgentCount(),
		"headless", opts.Headless,
	)
	return g, nil
}

// setupTelemetry opens the output directory and wires the field collector.
func (g *Game) setupTelemetry(c sim.Config) error {
	if g.opts.OutputDir != "" {
		om, err := telemetry.NewOutputManager(g.opts.OutputDir)
		if err != nil {
			return fmt.Errorf("creating output manager: %w", err)
		}
		if err := om.WriteConfig(g.cfg); err != nil {
			om.Close()
			return fmt.Errorf("writing config: %w", err)
		}
		g.output = om
	}

	ext := g.engine.Extent()
	g.collector = telemetry.NewCollector(telemetry.CollectorOptions{
		StatsEvery:    uint64(max(g.cfg.Telemetry.StatsWindow, 0)),
		SnapshotEvery: uint64(max(g.cfg.Telemetry.SnapshotEvery, 0)),
		SnapshotDir:   snapshotDir(g.opts),
		Header: telemetry.SnapshotHeader{
			Version:  telemetry.SnapshotVersion,
			Width:    ext.W,
			Height:   ext.H,
			Depth:    ext.D,
			Channels: 4,
			Variant:  g.engine.Variant().String(),
			Seed:     c.Seed,
		},
		Output:   g.output,
		Perf:     g.perf,
		LogStats: g.opts.LogStats,
	})
	return nil
}

// snapshotDir falls back to a snapshots directory under the output
// directory. With neither set, snapshots stay off.
func snapshotDir(o Options) string {
	if o.SnapshotDir != "" || o.OutputDir == "" {
		return o.SnapshotDir
	}
	return filepath.Join(o.OutputDir, "snapshots")
}

// Engine returns the running simulation.
func (g *Game) Engine() *sim.Engine { return g.engine }

// Steps returns the number of completed simulation steps.
func (g *Game) Steps() uint64 { return g.engine.Steps() }

// Paused reports whether the frame loop is paused.
func (g *Game) Paused() bool { return g.paused }

// Update handles input and advances the simulation by one frame.
func (g *Game) Update() {
	g.handleInput()

	dt := min(rl.GetFrameTime(), MaxFrameTime)
	if g.paused {
		dt = 0
	}
	g.advance(dt)
}

// UpdateHeadless advances one frame of dt without any window calls.
func (g *Game) UpdateHeadless(dt float32) {
	g.advance(min(dt, MaxFrameTime))
}

// advance runs the engine for one frame and samples telemetry.
func (g *Game) advance(dt float32) {
	g.perf.StartTick()
	g.engine.Update(dt)
	if err := g.collector.Observe(g.engine); err != nil {
		slog.Error("telemetry failed", "error", err)
	}
	g.perf.EndTick()
	g.perf.RecordFrame()
}

// Unload releases the engine, renderer and output files. The device is
// owned by the caller.
func (g *Game) Unload() {
	if g.field != nil {
		g.field.Unload()
	}
	g.engine.Unload()
	if err := g.output.Close(); err != nil {
		slog.Error("closing output", "error", err)
	}
}
