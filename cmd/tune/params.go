package main

import (
	"github.com/pthm-cable/slime/config"
	"github.com/pthm-cable/slime/sim"
)

// ParamSpec defines a single tunable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all tunable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of tunable parameters. Trail
// weight stays fixed so coverage is not bought by depositing more.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "move_speed", Path: "params.move_speed", Min: 10, Max: 150, Default: 60},
			{Name: "turn_amount", Path: "params.turn_amount", Min: 1, Max: 40, Default: 15},
			{Name: "sense_spacing", Path: "params.sense_spacing", Min: 5, Max: 90, Default: 15},
			{Name: "sense_distance", Path: "params.sense_distance", Min: 2, Max: 60, Default: 20},
			{Name: "diffuse_speed", Path: "params.diffuse_speed", Min: 0.1, Max: 20, Default: 3},
			{Name: "decay_speed", Path: "params.decay_speed", Min: 0.01, Max: 2, Default: 0.1},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// Apply writes clamped values into an engine parameter set.
// Order must match Specs order.
func (pv *ParamVector) Apply(p *sim.Params, values []float64) {
	c := pv.Clamp(values)
	p.MoveSpeed = float32(c[0])
	p.TurnAmount = float32(c[1])
	p.SenseSpacing = float32(c[2])
	p.SenseDistance = float32(c[3])
	p.DiffuseSpeed = float32(c[4])
	p.DecaySpeed = float32(c[5])
}

// ApplyToConfig writes clamped values into a Config.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	c := pv.Clamp(values)
	cfg.Params.MoveSpeed = c[0]
	cfg.Params.TurnAmount = c[1]
	cfg.Params.SenseSpacing = c[2]
	cfg.Params.SenseDistance = c[3]
	cfg.Params.DiffuseSpeed = c[4]
	cfg.Params.DecaySpeed = c[5]
}

// ExtractFromConfig reads the current parameter values from a Config.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Params.MoveSpeed,
		cfg.Params.TurnAmount,
		cfg.Params.SenseSpacing,
		cfg.Params.SenseDistance,
		cfg.Params.DiffuseSpeed,
		cfg.Params.DecaySpeed,
	}
}
