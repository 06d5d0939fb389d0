package game

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/slime/agents"
	"github.com/pthm-cable/slime/renderer"
	"github.com/pthm-cable/slime/ui"
)

const controlsText = "SPACE: pause | TAB: panel | < >: steps | P: perf | arrows/wheel: view | HOME: reset | LMB/RMB: walls"

// Draw renders the field and the overlays.
func (g *Game) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)

	// Image-seeded trails carry the seed colours directly.
	mode := renderer.ModeSpecies
	if g.engine.Variant().Policy == agents.PolicyImage {
		mode = renderer.ModeRaw
	}
	g.field.Draw(g.engine.DisplayField(), g.view, mode)

	if g.engine.Variant().Walls {
		g.field.Draw(g.engine.Occupant(), g.view, renderer.ModeRaw)
		if !g.panel.Contains(g.view.CursorX, g.view.CursorY) {
			g.field.DrawBrush(g.view, g.engine.Params().BrushSize, rl.White)
		}
	}

	g.drawHUD()

	if g.showPerf {
		g.perfPanel.Draw(g.perf.Stats())
	}

	g.panel.Draw(g.engine.Params())

	rl.EndDrawing()
}

// drawHUD renders the status block and the controls legend.
func (g *Game) drawHUD() {
	cx, cy := g.view.CursorCell()
	g.hud.Draw(ui.HUDData{
		Title:         "Slime",
		Variant:       g.engine.Variant().String(),
		Device:        g.dev.Name(),
		Agents:        g.engine.AgentCount(),
		Steps:         g.engine.Steps(),
		SimTime:       g.engine.Time(),
		StepsPerFrame: g.engine.Params().StepsPerFrame,
		FPS:           rl.GetFPS(),
		Paused:        g.paused,
		Coverage:      g.collector.Last().Coverage,
		Zoom:          g.view.Zoom,
		CursorX:       cx,
		CursorY:       cy,
	}, int32(g.screenWidth))

	g.hud.DrawControls(int32(g.screenHeight), controlsText)
}
