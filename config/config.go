// Package config provides configuration loading and access for the simulation.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

//go:embed schema.json
var schemaJSON string

// Config holds all simulation configuration parameters.
type Config struct {
	Screen     ScreenConfig     `yaml:"screen"`
	Simulation SimulationConfig `yaml:"simulation"`
	Params     ParamsConfig     `yaml:"params"`
	Shaders    ShadersConfig    `yaml:"shaders"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// SimulationConfig selects the variant and its construction inputs.
// The grid can be larger than the screen; the view handles the viewport.
type SimulationConfig struct {
	Dims       int    `yaml:"dims"`
	Width      int    `yaml:"width"`  // Grid width in cells (0 = use screen width)
	Height     int    `yaml:"height"` // Grid height in cells (0 = use screen height)
	Depth      int    `yaml:"depth"`
	Agents     int    `yaml:"agents"`
	Spawn      string `yaml:"spawn"`
	Species    int    `yaml:"species"`
	Walls      bool   `yaml:"walls"`
	WallBorder int    `yaml:"wall_border"`
	ImagePath  string `yaml:"image_path"`
	Seed       int64  `yaml:"seed"`
	Device     string `yaml:"device"`
	Workers    int    `yaml:"workers"`
}

// ParamsConfig holds the initial live-tunable parameters.
type ParamsConfig struct {
	MoveSpeed     float64 `yaml:"move_speed"`
	TurnAmount    float64 `yaml:"turn_amount"`
	TrailWeight   float64 `yaml:"trail_weight"`
	SenseSpacing  float64 `yaml:"sense_spacing"`
	SenseDistance float64 `yaml:"sense_distance"`
	SenseSize     int     `yaml:"sense_size"`
	DiffuseSpeed  float64 `yaml:"diffuse_speed"`
	DecaySpeed    float64 `yaml:"decay_speed"`
	BlurRadius    int     `yaml:"blur_radius"`
	BrushSize     float64 `yaml:"brush_size"`
	EraserSize    float64 `yaml:"eraser_size"`
	StepsPerFrame int     `yaml:"steps_per_frame"`
}

// ShadersConfig holds shader asset file names, relative to Dir.
type ShadersConfig struct {
	Dir       string `yaml:"dir"`
	Agent     string `yaml:"agent"`
	Agent3D   string `yaml:"agent3d"`
	Diffuse   string `yaml:"diffuse"`
	Diffuse3D string `yaml:"diffuse3d"`
	Occupancy string `yaml:"occupancy"`
	Project   string `yaml:"project"`
	Display   string `yaml:"display"`
}

// Path joins name onto the shader directory.
func (s ShadersConfig) Path(name string) string {
	if s.Dir == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.Dir, name)
}

// TelemetryConfig holds stats and snapshot intervals.
type TelemetryConfig struct {
	StatsWindow   int `yaml:"stats_window"`   // Steps between stats records
	PerfWindow    int `yaml:"perf_window"`    // Frames averaged for perf stats
	SnapshotEvery int `yaml:"snapshot_every"` // Steps between snapshots (0 = off)
}

// DerivedConfig holds precomputed values derived from config.
type DerivedConfig struct {
	GridW     int     // Effective grid width
	GridH     int     // Effective grid height
	GridD     int     // Effective grid depth (1 for 2D)
	Is3D      bool    // Simulation.Dims == 3
	Cells     int     // GridW * GridH * GridD
	ScreenW32 float32 // Screen.Width as float32
	ScreenH32 float32 // Screen.Height as float32
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	return Parse(data)
}

// Parse merges a YAML document over the embedded defaults, validates the
// result and computes derived values. Empty data yields the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if len(data) > 0 {
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.computeDerived()
	return cfg, nil
}

var schema = jsonschema.MustCompileString("schema.json", schemaJSON)

// Validate checks the configuration against the embedded JSON schema.
func (c *Config) Validate() error {
	doc, err := c.document()
	if err != nil {
		return err
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return nil
}

// document converts the config to the generic JSON value the validator
// expects, keyed by the YAML names.
func (c *Config) document() (any, error) {
	y, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	var tree any
	if err := yaml.Unmarshal(y, &tree); err != nil {
		return nil, fmt.Errorf("re-reading config: %w", err)
	}
	j, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("converting config: %w", err)
	}
	// The validator expects numbers decoded as json.Number.
	dec := json.NewDecoder(bytes.NewReader(j))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding config document: %w", err)
	}
	return doc, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.ScreenW32 = float32(c.Screen.Width)
	c.Derived.ScreenH32 = float32(c.Screen.Height)

	// Grid dimensions default to screen size if not specified
	c.Derived.GridW = c.Simulation.Width
	if c.Derived.GridW == 0 {
		c.Derived.GridW = c.Screen.Width
	}
	c.Derived.GridH = c.Simulation.Height
	if c.Derived.GridH == 0 {
		c.Derived.GridH = c.Screen.Height
	}

	c.Derived.Is3D = c.Simulation.Dims == 3
	c.Derived.GridD = 1
	if c.Derived.Is3D {
		c.Derived.GridD = c.Simulation.Depth
	}
	c.Derived.Cells = c.Derived.GridW * c.Derived.GridH * c.Derived.GridD
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
