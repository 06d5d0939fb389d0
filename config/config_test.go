package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load defaults failed: %v", err)
	}

	if cfg.Simulation.Dims != 2 {
		t.Errorf("expected dims 2, got %d", cfg.Simulation.Dims)
	}
	if cfg.Simulation.Agents != 200000 {
		t.Errorf("expected 200000 agents, got %d", cfg.Simulation.Agents)
	}
	if cfg.Derived.GridW != 1280 || cfg.Derived.GridH != 720 || cfg.Derived.GridD != 1 {
		t.Errorf("expected grid 1280x720x1, got %dx%dx%d", cfg.Derived.GridW, cfg.Derived.GridH, cfg.Derived.GridD)
	}
	if cfg.Params.StepsPerFrame != 1 {
		t.Errorf("expected 1 step per frame, got %d", cfg.Params.StepsPerFrame)
	}
	if got := cfg.Shaders.Path(cfg.Shaders.Agent); got != filepath.Join("assets", "shaders", "agent.comp") {
		t.Errorf("expected assets/shaders/agent.comp, got %s", got)
	}
}

func TestParseOverlay(t *testing.T) {
	cfg, err := Parse([]byte(`
simulation:
  dims: 3
  width: 0
  depth: 64
  spawn: uniform
params:
  decay_speed: 0.5
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if !cfg.Derived.Is3D || cfg.Derived.GridD != 64 {
		t.Errorf("expected 3D grid depth 64, got is3D=%v depth=%d", cfg.Derived.Is3D, cfg.Derived.GridD)
	}
	// Width 0 falls back to the screen width.
	if cfg.Derived.GridW != cfg.Screen.Width {
		t.Errorf("expected grid width %d, got %d", cfg.Screen.Width, cfg.Derived.GridW)
	}
	if cfg.Params.DecaySpeed != 0.5 {
		t.Errorf("expected decay 0.5, got %v", cfg.Params.DecaySpeed)
	}
	// Keys absent from the overlay keep their defaults.
	if cfg.Params.MoveSpeed != 60 {
		t.Errorf("expected default move speed 60, got %v", cfg.Params.MoveSpeed)
	}
}

func TestParseSchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad dims", "simulation:\n  dims: 4\n"},
		{"too many species", "simulation:\n  species: 5\n"},
		{"unknown spawn", "simulation:\n  spawn: spiral\n"},
		{"unknown device", "simulation:\n  device: vulkan\n"},
		{"negative agents", "simulation:\n  agents: -1\n"},
		{"3d walls", "simulation:\n  dims: 3\n  walls: true\n"},
		{"3d image", "simulation:\n  dims: 3\n  spawn: image\n"},
		{"zero steps", "params:\n  steps_per_frame: 0\n"},
		{"negative decay", "params:\n  decay_speed: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), "validating config") {
				t.Errorf("expected schema error, got %v", err)
			}
		})
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Parse([]byte("simulation:\n  species: 3\n  walls: true\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load written config failed: %v", err)
	}
	if back.Simulation.Species != 3 || !back.Simulation.Walls {
		t.Errorf("expected species 3 with walls, got %d %v", back.Simulation.Species, back.Simulation.Walls)
	}
}

func TestCfgBeforeInit(t *testing.T) {
	global = nil
	defer func() {
		if recover() == nil {
			t.Error("expected Cfg to panic before Init")
		}
	}()
	Cfg()
}

func TestDocumentUsesJSONNumbers(t *testing.T) {
	cfg, err := Parse([]byte("params:\n  decay_speed: 0.25\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	doc, err := cfg.document()
	if err != nil {
		t.Fatalf("document failed: %v", err)
	}
	root, ok := doc.(map[string]any)
	if !ok {
		t.Fatalf("expected object document, got %T", doc)
	}
	params, ok := root["params"].(map[string]any)
	if !ok {
		t.Fatalf("expected params object, got %T", root["params"])
	}
	n, ok := params["decay_speed"].(json.Number)
	if !ok {
		t.Fatalf("expected json.Number for decay_speed, got %T", params["decay_speed"])
	}
	if n.String() != "0.25" {
		t.Errorf("expected 0.25, got %s", n)
	}
	if err := schema.Validate(doc); err != nil {
		t.Errorf("expected document to validate, got %v", err)
	}
}
