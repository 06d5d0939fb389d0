package agents

import (
	"image"
	"image/color"
	"math"

	"github.com/aquilax/go-perlin"
)

// Perlin parameters for the procedural seed image.
const (
	noiseAlpha  = 2.0
	noiseBeta   = 2.0
	noiseOctave = 3
	noiseScale  = 1.0 / 64
)

// NoiseImage renders a procedural seed image: Perlin density mapped onto the
// species palette. Each pixel takes the palette colour of the band its
// density falls in, scaled by the density.
func NoiseImage(w, h, species int, seed int64) *image.NRGBA {
	species = min(max(species, 1), MaxSpecies)
	p := perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOctave, seed)
	img := image.NewNRGBA(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// Noise2D is roughly in [-1, 1].
			n := p.Noise2D(float64(x)*noiseScale, float64(y)*noiseScale)
			d := math.Min(math.Max((n+1)/2, 0), 1)

			band := min(int(d*float64(species)), species-1)
			c := Palette[band]
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(float64(c[0]) * d * 255),
				G: uint8(float64(c[1]) * d * 255),
				B: uint8(float64(c[2]) * d * 255),
				A: 255,
			})
		}
	}
	return img
}
