package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/slime/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title         string
	Variant       string
	Device        string
	Agents        int
	Steps         uint64
	SimTime       float32
	StepsPerFrame int
	FPS           int32
	Paused        bool
	Coverage      float64
	Zoom          float32
	CursorX       int
	CursorY       int
}

// HUD renders the main heads-up display.
type HUD struct {
	theme Theme
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{theme: DefaultTheme()}
}

// Draw renders the HUD at the top right of the screen.
func (h *HUD) Draw(data HUDData, screenWidth int32) {
	x := screenWidth - 300

	rl.DrawText(data.Title, x, 10, 20, rl.White)

	rl.DrawText(
		fmt.Sprintf("%s | %s | %d agents", data.Variant, data.Device, data.Agents),
		x, 35, 14, rl.LightGray,
	)

	rl.DrawText(
		fmt.Sprintf("Step: %d | Time: %.1fs | x%d | FPS: %d", data.Steps, data.SimTime, data.StepsPerFrame, data.FPS),
		x, 53, 14, rl.LightGray,
	)

	rl.DrawText(
		fmt.Sprintf("Zoom: %.1fx | Cell: %d,%d", data.Zoom, data.CursorX, data.CursorY),
		x, 71, 14, rl.LightGray,
	)

	y := h.drawCoverage(x, 89, float32(data.Coverage))

	statusText := "Running"
	if data.Paused {
		statusText = "PAUSED"
	}
	rl.DrawText(statusText, x, y+2, 16, rl.Yellow)
}

// coverageBarWidth is the full width of the coverage bar in pixels.
const coverageBarWidth = 140

// barFill returns the filled width and colour of a bar showing value.
// Coverage above half the field turns the fill hot.
func barFill(t Theme, value float32, width int32) (int32, rl.Color) {
	value = min(max(value, 0), 1)
	if value > 0.5 {
		return int32(float32(width) * value), t.BarFillHigh
	}
	return int32(float32(width) * value), t.BarFill
}

// drawCoverage draws the labelled coverage bar and returns the next row.
func (h *HUD) drawCoverage(x, y int32, coverage float32) int32 {
	t := h.theme
	bx := x + t.LabelWidth
	fill, color := barFill(t, coverage, coverageBarWidth)

	rl.DrawText("Coverage:", x, y, t.FontSize, t.LabelColor)
	rl.DrawRectangle(bx, y+2, coverageBarWidth, t.BarHeight, t.BarBg)
	rl.DrawRectangle(bx, y+2, fill, t.BarHeight, color)
	rl.DrawText(fmt.Sprintf("%.1f%%", coverage*100), bx+coverageBarWidth+5, y, t.FontSize, t.ValueColor)
	return y + t.LineHeight + 2
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanel renders the step phase timings.
type PerfPanel struct {
	x, y int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{x: x, y: y}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	x := p.x
	y := p.y

	rl.DrawText("Step Performance", x, y, 16, rl.White)
	y += 20

	rl.DrawText(fmt.Sprintf("Frame: %s  Step: %s", stats.AvgFrame.Round(time.Microsecond), stats.AvgStep.Round(time.Microsecond)), x, y, 14, rl.Yellow)
	y += 16
	rl.DrawText(fmt.Sprintf("%.1f steps/frame  %.0f steps/s", stats.StepsPerFrame, stats.StepsPerSecond), x, y, 12, rl.LightGray)
	y += 16

	for _, name := range telemetry.Phases {
		avg, ok := stats.PhaseAvg[name]
		if !ok {
			continue
		}
		pct := stats.PhasePct[name]

		color := rl.LightGray
		if pct > 50 {
			color = rl.Red
		} else if pct > 25 {
			color = rl.Orange
		}

		rl.DrawText(
			fmt.Sprintf("%-10s %8s %5.1f%%", name, avg.Round(time.Microsecond), pct),
			x, y, 12, color,
		)
		y += 14
	}
}
