// Package ui provides a descriptor-driven debug UI for the simulation.
// Sliders are defined through metadata bound to the live parameter set, so
// adding a knob means adding a descriptor rather than layout code.
package ui

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/slime/sim"
)

// SliderDescriptor binds one slider to a parameter.
type SliderDescriptor struct {
	ID     string // Unique identifier
	Label  string // Display label
	Format string // Printf format for the value
	Min    float32
	Max    float32
	Step   float32 // 0 = continuous; otherwise values snap to multiples
	Get    func(*sim.Params) float32
	Set    func(*sim.Params, float32)
}

// Snap rounds v to the descriptor step and clamps it to the range.
func (d SliderDescriptor) Snap(v float32) float32 {
	if d.Step > 0 {
		v = float32(int32(v/d.Step+0.5)) * d.Step
	}
	return min(max(v, d.Min), d.Max)
}

// ParamSliders returns the sliders of the debug panel in display order.
func ParamSliders() []SliderDescriptor {
	return []SliderDescriptor{
		{
			ID: "move_speed", Label: "Move speed", Format: "%.1f", Min: 0, Max: 240,
			Get: func(p *sim.Params) float32 { return p.MoveSpeed },
			Set: func(p *sim.Params, v float32) { p.MoveSpeed = v },
		},
		{
			ID: "turn_amount", Label: "Turn amount", Format: "%.1f", Min: 0, Max: 60,
			Get: func(p *sim.Params) float32 { return p.TurnAmount },
			Set: func(p *sim.Params, v float32) { p.TurnAmount = v },
		},
		{
			ID: "trail_weight", Label: "Trail weight", Format: "%.1f", Min: 0, Max: 240,
			Get: func(p *sim.Params) float32 { return p.TrailWeight },
			Set: func(p *sim.Params, v float32) { p.TrailWeight = v },
		},
		{
			ID: "sense_spacing", Label: "Sense angle", Format: "%.0f deg", Min: 0, Max: 90,
			Get: func(p *sim.Params) float32 { return p.SenseSpacing },
			Set: func(p *sim.Params, v float32) { p.SenseSpacing = v },
		},
		{
			ID: "sense_distance", Label: "Sense dist", Format: "%.1f", Min: 0, Max: 64,
			Get: func(p *sim.Params) float32 { return p.SenseDistance },
			Set: func(p *sim.Params, v float32) { p.SenseDistance = v },
		},
		{
			ID: "sense_size", Label: "Sense size", Format: "%.0f", Min: 0, Max: 4, Step: 1,
			Get: func(p *sim.Params) float32 { return float32(p.SenseSize) },
			Set: func(p *sim.Params, v float32) { p.SenseSize = int32(v) },
		},
		{
			ID: "diffuse_speed", Label: "Diffuse", Format: "%.2f", Min: 0, Max: 30,
			Get: func(p *sim.Params) float32 { return p.DiffuseSpeed },
			Set: func(p *sim.Params, v float32) { p.DiffuseSpeed = v },
		},
		{
			ID: "decay_speed", Label: "Decay", Format: "%.3f", Min: 0, Max: 2,
			Get: func(p *sim.Params) float32 { return p.DecaySpeed },
			Set: func(p *sim.Params, v float32) { p.DecaySpeed = v },
		},
		{
			ID: "blur_radius", Label: "Blur radius", Format: "%.0f", Min: 0, Max: 4, Step: 1,
			Get: func(p *sim.Params) float32 { return float32(p.BlurRadius) },
			Set: func(p *sim.Params, v float32) { p.BlurRadius = int32(v) },
		},
		{
			ID: "brush_size", Label: "Brush", Format: "%.0f", Min: 0, Max: 64, Step: 1,
			Get: func(p *sim.Params) float32 { return p.BrushSize },
			Set: func(p *sim.Params, v float32) { p.BrushSize = v },
		},
		{
			ID: "eraser_size", Label: "Eraser", Format: "%.0f", Min: 0, Max: 64, Step: 1,
			Get: func(p *sim.Params) float32 { return p.EraserSize },
			Set: func(p *sim.Params, v float32) { p.EraserSize = v },
		},
		{
			ID: "steps_per_frame", Label: "Steps/frame", Format: "%.0f", Min: 1, Max: 16, Step: 1,
			Get: func(p *sim.Params) float32 { return float32(p.StepsPerFrame) },
			Set: func(p *sim.Params, v float32) { p.StepsPerFrame = int(v) },
		},
	}
}

// Theme holds UI styling constants.
type Theme struct {
	PanelBg      rl.Color
	PanelBorder  rl.Color
	LabelColor   rl.Color
	ValueColor   rl.Color
	BarBg        rl.Color
	BarFill      rl.Color
	BarFillHigh  rl.Color
	Padding      int32
	LineHeight   int32
	LabelWidth   int32
	BarHeight    int32
	SliderHeight int32
	FontSize     int32
}

// DefaultTheme returns the default UI theme.
func DefaultTheme() Theme {
	return Theme{
		PanelBg:      rl.Color{R: 20, G: 25, B: 30, A: 240},
		PanelBorder:  rl.Color{R: 60, G: 70, B: 80, A: 255},
		LabelColor:   rl.LightGray,
		ValueColor:   rl.LightGray,
		BarBg:        rl.Color{R: 40, G: 40, B: 40, A: 255},
		BarFill:      rl.Color{R: 100, G: 150, B: 200, A: 255},
		BarFillHigh:  rl.Color{R: 200, G: 100, B: 100, A: 255},
		Padding:      10,
		LineHeight:   16,
		LabelWidth:   90,
		BarHeight:    12,
		SliderHeight: 14,
		FontSize:     12,
	}
}
