package sim

import (
	"fmt"
	"time"

	"github.com/pthm-cable/slime/agents"
	"github.com/pthm-cable/slime/config"
	"github.com/pthm-cable/slime/device"
)

// ParamsFrom converts the configured initial parameters.
func ParamsFrom(p config.ParamsConfig) Params {
	return Params{
		MoveSpeed:     float32(p.MoveSpeed),
		TurnAmount:    float32(p.TurnAmount),
		TrailWeight:   float32(p.TrailWeight),
		SenseSpacing:  float32(p.SenseSpacing),
		SenseDistance: float32(p.SenseDistance),
		SenseSize:     int32(p.SenseSize),
		DiffuseSpeed:  float32(p.DiffuseSpeed),
		DecaySpeed:    float32(p.DecaySpeed),
		BlurRadius:    int32(p.BlurRadius),
		BrushSize:     float32(p.BrushSize),
		EraserSize:    float32(p.EraserSize),
		StepsPerFrame: p.StepsPerFrame,
	}
}

// ShadersFrom resolves the configured shader asset paths.
func ShadersFrom(s config.ShadersConfig) Shaders {
	return Shaders{
		Agent:     s.Path(s.Agent),
		Agent3D:   s.Path(s.Agent3D),
		Diffuse:   s.Path(s.Diffuse),
		Diffuse3D: s.Path(s.Diffuse3D),
		Occupancy: s.Path(s.Occupancy),
		Project:   s.Path(s.Project),
	}
}

// ConfigFrom builds an engine Config from a loaded configuration, decoding
// the seed image when one is configured. A zero seed is replaced by the
// current time.
func ConfigFrom(c *config.Config) (Config, error) {
	policy, err := agents.ParsePolicy(c.Simulation.Spawn)
	if err != nil {
		return Config{}, err
	}

	ext := device.Extent2D(c.Derived.GridW, c.Derived.GridH)
	if c.Derived.Is3D {
		ext = device.Extent3D(c.Derived.GridW, c.Derived.GridH, c.Derived.GridD)
	}

	seed := c.Simulation.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	cfg := Config{
		Variant: Variant{
			Dims:    c.Simulation.Dims,
			Walls:   c.Simulation.Walls,
			Policy:  policy,
			Species: c.Simulation.Species,
		},
		Extent:     ext,
		Agents:     c.Simulation.Agents,
		WallBorder: c.Simulation.WallBorder,
		Seed:       seed,
		Shaders:    ShadersFrom(c.Shaders),
		Params:     ParamsFrom(c.Params),
	}

	if policy == agents.PolicyImage && c.Simulation.ImagePath != "" {
		img, err := agents.LoadImage(c.Simulation.ImagePath)
		if err != nil {
			return Config{}, fmt.Errorf("loading seed image: %w", err)
		}
		cfg.Image = img
	}
	return cfg, nil
}
