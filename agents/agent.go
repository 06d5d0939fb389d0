// Package agents defines the agent record uploaded to the device and the
// spawn policies that build the initial population.
package agents

import (
	"math"
)

// MaxSpecies is the number of species a field can separate: one RGBA
// channel each.
const MaxSpecies = 4

// Agent is one simulation agent in std430 layout (64 bytes). The compute
// kernels declare the same struct; field order and padding must match.
type Agent struct {
	// Position in grid space; w is unused.
	Position [4]float32
	// Heading is theta (in-plane angle) and phi (elevation, 3D only).
	Heading [2]float32
	Species int32
	_       float32
	// Mask is the one-hot species mask used for deposit and sensing.
	Mask [4]float32
	// Color is the display colour for occupancy rendering.
	Color [4]float32
}

// Stride is the size of one Agent record in bytes.
const Stride = 64

// Palette holds the display colour of each species.
var Palette = [MaxSpecies][4]float32{
	{1.00, 0.85, 0.35, 1},
	{0.30, 0.75, 1.00, 1},
	{1.00, 0.35, 0.55, 1},
	{0.45, 1.00, 0.50, 1},
}

// SpeciesMask returns the one-hot mask for species s.
func SpeciesMask(s int) [4]float32 {
	var m [4]float32
	if s >= 0 && s < MaxSpecies {
		m[s] = 1
	}
	return m
}

// Direction returns the unit movement vector for a heading. phi is ignored
// for 2D fields.
func Direction(theta, phi float32, is3D bool) [3]float32 {
	if !is3D {
		s, c := math.Sincos(float64(theta))
		return [3]float32{float32(c), float32(s), 0}
	}
	st, ct := math.Sincos(float64(theta))
	sp, cp := math.Sincos(float64(phi))
	return [3]float32{float32(ct * cp), float32(st * cp), float32(sp)}
}

// Wrap maps v into [0, size). Values that round up to size after the
// modulo are folded back to 0.
func Wrap(v float32, size int) float32 {
	if size <= 0 || math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		return 0
	}
	s := float32(size)
	r := float32(math.Mod(float64(v), float64(s)))
	if r < 0 {
		r += s
	}
	if r >= s {
		r = 0
	}
	return r
}
