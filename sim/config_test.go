package sim

import (
	"path/filepath"
	"testing"

	"github.com/pthm-cable/slime/agents"
	"github.com/pthm-cable/slime/config"
)

func TestConfigFrom(t *testing.T) {
	c, err := config.Parse([]byte(`
simulation:
  width: 64
  height: 32
  agents: 100
  spawn: uniform
  species: 2
  walls: true
  wall_border: 2
  seed: 7
params:
  sense_size: 2
  steps_per_frame: 3
`))
	if err != nil {
		t.Fatalf("config.Parse: %v", err)
	}

	cfg, err := ConfigFrom(c)
	if err != nil {
		t.Fatalf("ConfigFrom: %v", err)
	}

	want := Variant{Dims: 2, Walls: true, Policy: agents.PolicyUniform, Species: 2}
	if cfg.Variant != want {
		t.Errorf("expected variant %v, got %v", want, cfg.Variant)
	}
	if cfg.Extent.W != 64 || cfg.Extent.H != 32 || cfg.Extent.D != 1 {
		t.Errorf("expected extent 64x32x1, got %v", cfg.Extent)
	}
	if cfg.Seed != 7 || cfg.WallBorder != 2 || cfg.Agents != 100 {
		t.Errorf("unexpected construction inputs: %+v", cfg)
	}
	if cfg.Params.SenseSize != 2 || cfg.Params.StepsPerFrame != 3 {
		t.Errorf("expected sense size 2 and 3 steps, got %d and %d", cfg.Params.SenseSize, cfg.Params.StepsPerFrame)
	}
	if cfg.Shaders.Diffuse != filepath.Join("assets", "shaders", "diffuse.comp") {
		t.Errorf("unexpected diffuse path %s", cfg.Shaders.Diffuse)
	}

	// The converted config builds an engine on the CPU device.
	dev := NewCPUDevice(2)
	defer dev.Unload()
	e, err := New(dev, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Unload()
	if e.AgentCount() != 100 {
		t.Errorf("expected 100 agents, got %d", e.AgentCount())
	}
}

func TestConfigFrom3D(t *testing.T) {
	c, err := config.Parse([]byte("simulation:\n  dims: 3\n  width: 16\n  height: 16\n  depth: 8\n"))
	if err != nil {
		t.Fatalf("config.Parse: %v", err)
	}
	cfg, err := ConfigFrom(c)
	if err != nil {
		t.Fatalf("ConfigFrom: %v", err)
	}
	if !cfg.Extent.Is3D() || cfg.Extent.D != 8 {
		t.Errorf("expected 3D extent with depth 8, got %v", cfg.Extent)
	}
	if cfg.Seed == 0 {
		t.Error("expected zero seed to be replaced")
	}
}

func TestConfigFromMissingImage(t *testing.T) {
	c, err := config.Parse([]byte("simulation:\n  spawn: image\n  image_path: does-not-exist.png\n"))
	if err != nil {
		t.Fatalf("config.Parse: %v", err)
	}
	if _, err := ConfigFrom(c); err == nil {
		t.Error("expected error for missing seed image")
	}
}
