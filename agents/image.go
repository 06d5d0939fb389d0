package agents

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"math/rand"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/pthm-cable/slime/device"
)

// LoadImage decodes a seed image (png, jpeg, gif, bmp or webp).
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening seed image: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding seed image %s: %w", path, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: seed image %s (%s) is empty", ErrInvalidPolicy, path, format)
	}
	return img, nil
}

// pixelColor returns the normalised RGBA of a pixel.
func pixelColor(c color.Color) [4]float32 {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return [4]float32{
		float32(n.R) / 255,
		float32(n.G) / 255,
		float32(n.B) / 255,
		float32(n.A) / 255,
	}
}

// dominant returns the index of the strongest colour channel.
func dominant(c [4]float32) int {
	best := 0
	for i := 1; i < 3; i++ {
		if c[i] > c[best] {
			best = i
		}
	}
	return best
}

// fromImage seeds one agent per pixel, carrying the pixel colour as both
// deposit mask and display colour, and returns the image as the initial
// trail field. Extra agents beyond W*H take a random pixel's colour and a
// uniform position.
func fromImage(o Options, rng *rand.Rand) (*Population, error) {
	if o.Extent.Is3D() {
		return nil, fmt.Errorf("%w: image seeding needs a 2D field", ErrInvalidPolicy)
	}

	b := o.Image.Bounds()
	w, h := b.Dx(), b.Dy()
	e := device.Extent2D(w, h)

	pixels := make([][4]float32, w*h)
	trail := make([]float32, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := pixelColor(o.Image.At(b.Min.X+x, b.Min.Y+y))
			i := y*w + x
			pixels[i] = c
			copy(trail[i*4:i*4+4], c[:])
		}
	}

	count := max(o.Count, w*h)
	out := make([]Agent, count)
	for i := range out {
		a := &out[i]
		var c [4]float32
		if i < w*h {
			c = pixels[i]
			a.Position = [4]float32{float32(i%w) + 0.5, float32(i/w) + 0.5, 0, 0}
		} else {
			c = pixels[rng.Intn(len(pixels))]
			pos := [3]float32{rng.Float32() * float32(w), rng.Float32() * float32(h), 0}
			if o.Walls != nil {
				pos = avoidWalls(pos, e, o.Walls, rng, func(r *rand.Rand) [3]float32 {
					return [3]float32{r.Float32() * float32(w), r.Float32() * float32(h), 0}
				})
			}
			pos = clampInside(pos, e)
			a.Position = [4]float32{pos[0], pos[1], 0, 0}
		}
		a.Heading = [2]float32{rng.Float32() * 2 * math.Pi, 0}
		a.Species = int32(dominant(c))
		a.Mask = c
		a.Color = c
	}

	return &Population{Extent: e, Agents: out, Trail: trail}, nil
}
