package sim

import (
	"log/slog"
)

// Params are the live-tunable knobs of a simulation. The debug panel edits
// them between frames; the engine copies them at the start of every step.
type Params struct {
	MoveSpeed   float32 // cells per second
	TurnAmount  float32 // radians per second at full steer
	TrailWeight float32 // intensity deposited per second

	SenseSpacing  float32 // degrees between sensors
	SenseDistance float32 // cells ahead of the agent
	SenseSize     int32   // sensor window half-width

	DiffuseSpeed float32 // blend rate toward the blurred value, per second
	DecaySpeed   float32 // fraction lost per second
	BlurRadius   int32   // box blur half-width

	BrushSize  float32 // wall paint radius in cells
	EraserSize float32 // wall erase radius in cells

	StepsPerFrame int
}

// DefaultParams returns the stock tuning.
func DefaultParams() Params {
	return Params{
		MoveSpeed:     60,
		TurnAmount:    15,
		TrailWeight:   60,
		SenseSpacing:  15,
		SenseDistance: 20,
		SenseSize:     1,
		DiffuseSpeed:  3,
		DecaySpeed:    0.1,
		BlurRadius:    1,
		BrushSize:     6,
		EraserSize:    10,
		StepsPerFrame: 1,
	}
}

// Sanitize clamps knobs that would break a kernel (negative window sizes,
// zero sub-steps) and returns the corrected set.
func (p Params) Sanitize() Params {
	p.SenseSize = max(p.SenseSize, 0)
	p.BlurRadius = max(p.BlurRadius, 0)
	p.SenseDistance = max(p.SenseDistance, 0)
	p.BrushSize = max(p.BrushSize, 0)
	p.EraserSize = max(p.EraserSize, 0)
	p.StepsPerFrame = max(p.StepsPerFrame, 1)
	return p
}

// LogValue implements slog.LogValuer.
func (p Params) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("move_speed", float64(p.MoveSpeed)),
		slog.Float64("turn_amount", float64(p.TurnAmount)),
		slog.Float64("trail_weight", float64(p.TrailWeight)),
		slog.Float64("sense_spacing", float64(p.SenseSpacing)),
		slog.Float64("sense_distance", float64(p.SenseDistance)),
		slog.Int("sense_size", int(p.SenseSize)),
		slog.Float64("diffuse_speed", float64(p.DiffuseSpeed)),
		slog.Float64("decay_speed", float64(p.DecaySpeed)),
		slog.Int("blur_radius", int(p.BlurRadius)),
		slog.Int("steps_per_frame", p.StepsPerFrame),
	)
}
