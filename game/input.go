package game

import (
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// panSpeed is the arrow-key pan rate in screen pixels per frame.
const panSpeed = float32(8.0)

// handleInput processes keyboard and mouse input.
func (g *Game) handleInput() {
	// Window resize propagation
	g.handleResize()

	// Fullscreen toggle
	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}

	if rl.IsKeyPressed(rl.KeySpace) {
		g.paused = !g.paused
	}

	if rl.IsKeyPressed(rl.KeyTab) {
		g.panel.Toggle()
	}

	if rl.IsKeyPressed(rl.KeyP) {
		g.showPerf = !g.showPerf
	}

	// Sub-steps per frame with < > keys (comma and period)
	p := g.engine.Params()
	if rl.IsKeyPressed(rl.KeyComma) && p.StepsPerFrame > 1 {
		p.StepsPerFrame--
	}
	if rl.IsKeyPressed(rl.KeyPeriod) && p.StepsPerFrame < MaxStepsPerFrame {
		p.StepsPerFrame++
	}

	g.handleViewInput()
	g.handlePaint()
}

// handleResize checks for window resize and propagates new dimensions.
func (g *Game) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	if w == g.screenWidth && h == g.screenHeight {
		return
	}
	g.screenWidth = w
	g.screenHeight = h

	g.view.Resize(w, h)
	g.perfPanel.SetPosition(int32(w)-300, 140)
}

// handleViewInput processes pan/zoom controls and tracks the cursor.
func (g *Game) handleViewInput() {
	mouse := rl.GetMousePosition()
	g.view.SetCursor(mouse.X, mouse.Y)

	// Arrow key panning
	if rl.IsKeyDown(rl.KeyRight) {
		g.view.Pan(panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		g.view.Pan(-panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyDown) {
		g.view.Pan(0, panSpeed)
	}
	if rl.IsKeyDown(rl.KeyUp) {
		g.view.Pan(0, -panSpeed)
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		g.view.ZoomBy(1.0 + wheel*0.1)
	}

	// Home key to reset view
	if rl.IsKeyPressed(rl.KeyHome) {
		g.view.Reset()
	}
}

// handlePaint draws walls with the left button and erases with the right.
// Clicks on the parameter panel belong to its sliders.
func (g *Game) handlePaint() {
	if !g.engine.Variant().Walls {
		return
	}
	if g.panel.Contains(g.view.CursorX, g.view.CursorY) {
		return
	}

	p := g.engine.Params()
	var radius float32
	erase := false
	switch {
	case rl.IsMouseButtonDown(rl.MouseButtonLeft):
		radius = p.BrushSize
	case rl.IsMouseButtonDown(rl.MouseButtonRight):
		radius = p.EraserSize
		erase = true
	default:
		return
	}

	x, y := g.view.CursorCell()
	if err := g.engine.Paint(x, y, int(radius), erase); err != nil {
		slog.Error("paint failed", "error", err)
	}
}
