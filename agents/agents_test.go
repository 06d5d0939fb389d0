package agents

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"
	"unsafe"

	"github.com/pthm-cable/slime/device"
)

func TestAgentLayout(t *testing.T) {
	if size := unsafe.Sizeof(Agent{}); size != Stride {
		t.Fatalf("expected Agent to be %d bytes, got %d", Stride, size)
	}

	offsets := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"Position", unsafe.Offsetof(Agent{}.Position), 0},
		{"Heading", unsafe.Offsetof(Agent{}.Heading), 16},
		{"Species", unsafe.Offsetof(Agent{}.Species), 24},
		{"Mask", unsafe.Offsetof(Agent{}.Mask), 32},
		{"Color", unsafe.Offsetof(Agent{}.Color), 48},
	}
	for _, o := range offsets {
		if o.got != o.want {
			t.Errorf("expected %s at offset %d, got %d", o.name, o.want, o.got)
		}
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		v    float32
		size int
		want float32
	}{
		{5, 10, 5},
		{10, 10, 0},
		{-1, 10, 9},
		{-10, 10, 0},
		{23.5, 10, 3.5},
		{float32(math.NaN()), 10, 0},
		{-1e-9, 10, 0},
	}
	for _, tt := range tests {
		got := Wrap(tt.v, tt.size)
		if math.Abs(float64(got-tt.want)) > 1e-5 {
			t.Errorf("Wrap(%v, %d): expected %v, got %v", tt.v, tt.size, tt.want, got)
		}
		if got < 0 || got >= float32(tt.size) {
			t.Errorf("Wrap(%v, %d) = %v is outside [0, %d)", tt.v, tt.size, got, tt.size)
		}
	}
}

func inBounds(a Agent, e device.Extent) bool {
	dims := [3]int{e.W, e.H, e.D}
	for i := 0; i < 3; i++ {
		if a.Position[i] < 0 || a.Position[i] >= float32(dims[i]) {
			return false
		}
	}
	return true
}

func TestSpawnPolicies(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		extent device.Extent
	}{
		{"point 2d", PolicyPoint, device.Extent2D(32, 16)},
		{"uniform 2d", PolicyUniform, device.Extent2D(32, 16)},
		{"circle 2d", PolicyInwardCircle, device.Extent2D(32, 16)},
		{"point 3d", PolicyPoint, device.Extent3D(16, 16, 8)},
		{"uniform 3d", PolicyUniform, device.Extent3D(16, 16, 8)},
		{"circle 3d", PolicyInwardCircle, device.Extent3D(16, 16, 8)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pop, err := Spawn(Options{Extent: tt.extent, Count: 500, Policy: tt.policy, Species: 3, Seed: 7})
			if err != nil {
				t.Fatalf("Spawn: %v", err)
			}
			if len(pop.Agents) != 500 {
				t.Fatalf("expected 500 agents, got %d", len(pop.Agents))
			}
			seen := map[int32]bool{}
			for i, a := range pop.Agents {
				if !inBounds(a, tt.extent) {
					t.Fatalf("agent %d spawned out of bounds at %v", i, a.Position)
				}
				if a.Mask != SpeciesMask(int(a.Species)) {
					t.Fatalf("agent %d mask %v does not match species %d", i, a.Mask, a.Species)
				}
				seen[a.Species] = true
			}
			if len(seen) != 3 {
				t.Errorf("expected all 3 species, got %d", len(seen))
			}
		})
	}
}

func TestSpawnInwardCircleFacesCentre(t *testing.T) {
	e := device.Extent2D(64, 64)
	pop, err := Spawn(Options{Extent: e, Count: 200, Policy: PolicyInwardCircle, Species: 1, Seed: 1})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	for i, a := range pop.Agents {
		dx := float64(a.Position[0] - 32)
		dy := float64(a.Position[1] - 32)
		r := math.Hypot(dx, dy)
		if r > 32 {
			t.Fatalf("agent %d outside inscribed circle: r=%.2f", i, r)
		}
		if r < 1 {
			continue
		}
		dir := Direction(a.Heading[0], 0, false)
		// Heading points back toward the centre.
		if dot := float64(dir[0])*dx + float64(dir[1])*dy; dot > 0 {
			t.Errorf("agent %d faces outward: dot=%.3f", i, dot)
		}
	}
}

func TestSpawnAvoidsWalls(t *testing.T) {
	e := device.Extent2D(20, 20)
	// Everything left of x=15 is wall.
	walls := func(x, y, z int) bool { return x < 15 }

	for _, policy := range []Policy{PolicyUniform, PolicyPoint, PolicyInwardCircle} {
		pop, err := Spawn(Options{Extent: e, Count: 300, Policy: policy, Species: 1, Walls: walls, Seed: 3})
		if err != nil {
			t.Fatalf("Spawn(%s): %v", policy, err)
		}
		for i, a := range pop.Agents {
			if walls(int(a.Position[0]), int(a.Position[1]), 0) {
				t.Fatalf("%s: agent %d spawned in wall cell at %v", policy, i, a.Position)
			}
		}
	}
}

func TestSpawnErrors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"no species", Options{Extent: device.Extent2D(4, 4), Policy: PolicyUniform, Species: 0}},
		{"too many species", Options{Extent: device.Extent2D(4, 4), Policy: PolicyUniform, Species: 5}},
		{"unknown policy", Options{Extent: device.Extent2D(4, 4), Policy: "spiral", Species: 1}},
		{"image without image", Options{Extent: device.Extent2D(4, 4), Policy: PolicyImage, Species: 1}},
		{"image in 3d", Options{Extent: device.Extent3D(4, 4, 4), Policy: PolicyImage, Species: 1, Image: image.NewNRGBA(image.Rect(0, 0, 2, 2))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Spawn(tt.opts); !errors.Is(err, ErrInvalidPolicy) {
				t.Errorf("expected ErrInvalidPolicy, got %v", err)
			}
		})
	}

	if _, err := ParsePolicy("inward-circle"); err != nil {
		t.Errorf("expected inward-circle to parse, got %v", err)
	}
	if _, err := ParsePolicy("nope"); !errors.Is(err, ErrInvalidPolicy) {
		t.Errorf("expected ErrInvalidPolicy, got %v", err)
	}
}

func TestSpawnZeroAgents(t *testing.T) {
	pop, err := Spawn(Options{Extent: device.Extent2D(8, 8), Count: 0, Policy: PolicyUniform, Species: 1})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if len(pop.Agents) != 0 {
		t.Errorf("expected no agents, got %d", len(pop.Agents))
	}
}

func TestSpawnFromImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	img.SetNRGBA(2, 1, color.NRGBA{B: 255, A: 255})

	pop, err := Spawn(Options{Count: 2, Policy: PolicyImage, Species: 1, Image: img, Seed: 5})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	if pop.Extent != device.Extent2D(3, 2) {
		t.Errorf("expected extent 3x2, got %v", pop.Extent)
	}
	if len(pop.Agents) != 6 {
		t.Fatalf("expected agent count raised to 6, got %d", len(pop.Agents))
	}

	first := pop.Agents[0]
	if first.Color != ([4]float32{1, 0, 0, 1}) || first.Mask != first.Color {
		t.Errorf("expected red seed agent, got color=%v mask=%v", first.Color, first.Mask)
	}
	if first.Position[0] != 0.5 || first.Position[1] != 0.5 {
		t.Errorf("expected first agent at pixel centre (0.5, 0.5), got %v", first.Position)
	}

	last := pop.Agents[5]
	if last.Species != 2 || last.Position[0] != 2.5 || last.Position[1] != 1.5 {
		t.Errorf("expected blue agent at (2.5, 1.5), got species=%d pos=%v", last.Species, last.Position)
	}

	if len(pop.Trail) != 6*4 {
		t.Fatalf("expected trail of 24 floats, got %d", len(pop.Trail))
	}
	if pop.Trail[0] != 1 || pop.Trail[(1*3+2)*4+2] != 1 {
		t.Errorf("expected trail to carry the image pixels, got %v", pop.Trail)
	}
}

func TestNoiseImage(t *testing.T) {
	img := NoiseImage(32, 24, 2, 11)
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 24 {
		t.Fatalf("expected 32x24 image, got %v", b)
	}

	again := NoiseImage(32, 24, 2, 11)
	for i := range img.Pix {
		if img.Pix[i] != again.Pix[i] {
			t.Fatal("expected the same seed to render the same image")
		}
	}

	pop, err := Spawn(Options{Policy: PolicyImage, Species: 2, Image: img})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if len(pop.Agents) != 32*24 {
		t.Errorf("expected one agent per pixel, got %d", len(pop.Agents))
	}
}
