package agents

import (
	"errors"
	"fmt"
	"image"
	"math"
	"math/rand"

	"github.com/pthm-cable/slime/device"
)

// Policy selects how the initial population is placed.
type Policy string

const (
	PolicyPoint        Policy = "point"
	PolicyInwardCircle Policy = "inward-circle"
	PolicyUniform      Policy = "uniform"
	PolicyImage        Policy = "image"
)

// ErrInvalidPolicy is returned for unknown policy names or policies the
// requested field shape does not support.
var ErrInvalidPolicy = errors.New("agents: invalid spawn policy")

// ParsePolicy converts a config string to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyPoint, PolicyInwardCircle, PolicyUniform, PolicyImage:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
}

// maxRetries bounds re-draws of a spawn position that landed in a wall
// before falling back to a scan for the nearest free cell.
const maxRetries = 32

// Walls reports whether the cell (x, y, z) is blocked.
type Walls func(x, y, z int) bool

// Options configures Spawn.
type Options struct {
	Extent  device.Extent
	Count   int
	Policy  Policy
	Species int
	// Walls is nil when the field has no obstacles.
	Walls Walls
	// Image seeds the population for PolicyImage. Its bounds replace Extent.
	Image image.Image
	Seed  int64
}

// Population is the spawned agent store plus the field it lives in.
type Population struct {
	Extent device.Extent
	Agents []Agent
	// Trail is the initial RGBA32F field contents, nil for an empty field.
	Trail []float32
}

// Spawn builds the initial population.
func Spawn(o Options) (*Population, error) {
	species := o.Species
	if species < 1 || species > MaxSpecies {
		return nil, fmt.Errorf("%w: species count %d not in 1..%d", ErrInvalidPolicy, species, MaxSpecies)
	}
	if o.Count < 0 {
		return nil, fmt.Errorf("%w: negative agent count %d", ErrInvalidPolicy, o.Count)
	}

	rng := rand.New(rand.NewSource(o.Seed))

	if o.Policy == PolicyImage {
		if o.Image == nil {
			return nil, fmt.Errorf("%w: image policy without an image", ErrInvalidPolicy)
		}
		return fromImage(o, rng)
	}

	if o.Extent.Empty() {
		return nil, fmt.Errorf("%w: empty field %v", ErrInvalidPolicy, o.Extent)
	}

	place, err := placer(o.Policy, o.Extent)
	if err != nil {
		return nil, err
	}

	is3D := o.Extent.Is3D()
	out := make([]Agent, o.Count)
	for i := range out {
		a := &out[i]
		pos, heading := place(rng)
		if o.Walls != nil {
			pos = avoidWalls(pos, o.Extent, o.Walls, rng, func(r *rand.Rand) [3]float32 {
				p, _ := place(r)
				return p
			})
		}
		a.Position = [4]float32{pos[0], pos[1], pos[2], 0}
		a.Heading = heading
		if !is3D {
			a.Heading[1] = 0
			a.Position[2] = 0
		}
		s := 0
		if species > 1 {
			s = rng.Intn(species)
		}
		a.Species = int32(s)
		a.Mask = SpeciesMask(s)
		a.Color = Palette[s]
	}
	return &Population{Extent: o.Extent, Agents: out}, nil
}

type placeFunc func(rng *rand.Rand) (pos [3]float32, heading [2]float32)

func placer(p Policy, e device.Extent) (placeFunc, error) {
	is3D := e.Is3D()
	center := [3]float32{float32(e.W) / 2, float32(e.H) / 2, float32(e.D) / 2}
	if !is3D {
		center[2] = 0
	}

	randomHeading := func(rng *rand.Rand) [2]float32 {
		h := [2]float32{rng.Float32() * 2 * math.Pi, 0}
		if is3D {
			h[1] = (rng.Float32() - 0.5) * math.Pi
		}
		return h
	}

	switch p {
	case PolicyPoint:
		return func(rng *rand.Rand) ([3]float32, [2]float32) {
			return center, randomHeading(rng)
		}, nil

	case PolicyUniform:
		return func(rng *rand.Rand) ([3]float32, [2]float32) {
			pos := [3]float32{
				rng.Float32() * float32(e.W),
				rng.Float32() * float32(e.H),
				0,
			}
			if is3D {
				pos[2] = rng.Float32() * float32(e.D)
			}
			return clampInside(pos, e), randomHeading(rng)
		}, nil

	case PolicyInwardCircle:
		radius := float32(min(e.W, e.H)) / 2
		if is3D {
			radius = float32(min(e.W, e.H, e.D)) / 2
		}
		return func(rng *rand.Rand) ([3]float32, [2]float32) {
			// Uniform by radius, so agents cluster toward the centre.
			r := rng.Float32() * radius
			theta := rng.Float32() * 2 * math.Pi
			var phi float32
			if is3D {
				phi = float32(math.Asin(float64(2*rng.Float32() - 1)))
			}
			dir := Direction(theta, phi, is3D)
			pos := [3]float32{
				center[0] + dir[0]*r,
				center[1] + dir[1]*r,
				center[2] + dir[2]*r,
			}
			// Face the centre.
			return clampInside(pos, e), [2]float32{theta + math.Pi, -phi}
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidPolicy, p)
}

// clampInside keeps a spawn position strictly inside the field.
func clampInside(pos [3]float32, e device.Extent) [3]float32 {
	dims := [3]int{e.W, e.H, e.D}
	for i := range pos {
		if i == 2 && !e.Is3D() {
			pos[i] = 0
			continue
		}
		pos[i] = Wrap(pos[i], dims[i])
	}
	return pos
}

func cellOf(pos [3]float32) (int, int, int) {
	return int(pos[0]), int(pos[1]), int(pos[2])
}

// avoidWalls re-draws a position that landed in a wall cell. After
// maxRetries it scans outward for the nearest free cell; a field with no
// free cell keeps the original position.
func avoidWalls(pos [3]float32, e device.Extent, walls Walls, rng *rand.Rand, redraw func(*rand.Rand) [3]float32) [3]float32 {
	for i := 0; i < maxRetries; i++ {
		if !walls(cellOf(pos)) {
			return pos
		}
		pos = redraw(rng)
	}
	if free, ok := nearestFree(pos, e, walls); ok {
		return free
	}
	return pos
}

func nearestFree(pos [3]float32, e device.Extent, walls Walls) ([3]float32, bool) {
	cx, cy, cz := cellOf(pos)
	maxR := max(e.W, e.H, e.D)
	for r := 1; r <= maxR; r++ {
		for dz := -r; dz <= r; dz++ {
			z := cz + dz
			if z < 0 || z >= e.D {
				continue
			}
			for dy := -r; dy <= r; dy++ {
				y := cy + dy
				if y < 0 || y >= e.H {
					continue
				}
				for dx := -r; dx <= r; dx++ {
					x := cx + dx
					if x < 0 || x >= e.W {
						continue
					}
					if !walls(x, y, z) {
						return [3]float32{float32(x) + 0.5, float32(y) + 0.5, float32(z) + 0.5*float32(min(e.D-1, 1))}, true
					}
				}
			}
		}
	}
	return pos, false
}
