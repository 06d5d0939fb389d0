package sim

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"

	"github.com/pthm-cable/slime/agents"
	"github.com/pthm-cable/slime/device"
)

var (
	// ErrInvalidVariant reports an unsupported combination of variant axes.
	ErrInvalidVariant = errors.New("sim: invalid variant")
	// ErrNoWalls is returned by Paint on a simulation without obstacles.
	ErrNoWalls = errors.New("sim: walls not enabled")
)

// Variant is the closed set of axes a simulation is built from.
type Variant struct {
	Dims    int // 2 or 3
	Walls   bool
	Policy  agents.Policy
	Species int
}

func (v Variant) String() string {
	s := fmt.Sprintf("%dd/%s/species=%d", v.Dims, v.Policy, v.Species)
	if v.Walls {
		s += "/walls"
	}
	return s
}

// Validate rejects combinations no kernel set implements.
func (v Variant) Validate() error {
	if v.Dims != 2 && v.Dims != 3 {
		return fmt.Errorf("%w: dims must be 2 or 3, got %d", ErrInvalidVariant, v.Dims)
	}
	if v.Species < 1 || v.Species > agents.MaxSpecies {
		return fmt.Errorf("%w: species must be 1..%d, got %d", ErrInvalidVariant, agents.MaxSpecies, v.Species)
	}
	if _, err := agents.ParsePolicy(string(v.Policy)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidVariant, err)
	}
	if v.Dims == 3 && v.Walls {
		return fmt.Errorf("%w: walls are only supported on 2D fields", ErrInvalidVariant)
	}
	if v.Dims == 3 && v.Policy == agents.PolicyImage {
		return fmt.Errorf("%w: image seeding is only supported on 2D fields", ErrInvalidVariant)
	}
	return nil
}

// Shaders are the compute kernel asset paths.
type Shaders struct {
	Agent     string
	Agent3D   string
	Diffuse   string
	Diffuse3D string
	Occupancy string
	Project   string
}

// DefaultShaders returns the asset paths under dir.
func DefaultShaders(dir string) Shaders {
	return Shaders{
		Agent:     filepath.Join(dir, "agent.comp"),
		Agent3D:   filepath.Join(dir, "agent3d.comp"),
		Diffuse:   filepath.Join(dir, "diffuse.comp"),
		Diffuse3D: filepath.Join(dir, "diffuse3d.comp"),
		Occupancy: filepath.Join(dir, "occupancy.comp"),
		Project:   filepath.Join(dir, "project.comp"),
	}
}

// All returns every path, for tools that compile the whole set.
func (s Shaders) All() []string {
	return []string{s.Agent, s.Agent3D, s.Diffuse, s.Diffuse3D, s.Occupancy, s.Project}
}

// Config describes a simulation at construction.
type Config struct {
	Variant Variant
	// Extent is the field size. Ignored for image seeding, which takes the
	// image bounds.
	Extent device.Extent
	Agents int
	// Image seeds PolicyImage.
	Image image.Image
	// WallBorder paints a wall frame this many cells wide at construction.
	WallBorder int
	Seed       int64
	Shaders    Shaders
	Params     Params
}
