package sim

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/blas/blas32"

	"github.com/pthm-cable/slime/agents"
	"github.com/pthm-cable/slime/device"
)

func TestSteer(t *testing.T) {
	tests := []struct {
		name                 string
		forward, left, right float32
		r                    float32
		want                 float32
	}{
		{"forward strongest", 3, 1, 2, 0.7, 0},
		{"both sides stronger", 0, 1, 1, 0.75, 1},
		{"right stronger", 1, 0, 2, 0.5, -1},
		{"left stronger", 1, 2, 0, 0.5, 1},
		{"all equal", 1, 1, 1, 0.5, 0},
	}
	for _, tt := range tests {
		got := steer(tt.forward, tt.left, tt.right, tt.r, 2)
		if got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestDepositAmount(t *testing.T) {
	tests := []struct {
		weight, dt, mask, scale float32
		want                    uint32
	}{
		{1, 1, 1, MaxDepositScale, MaxDepositScale},
		{1, 1, 0, MaxDepositScale, 0},
		{2, 0.5, 0.5, MaxDepositScale, MaxDepositScale / 2},
		{1, 1, 1, 1000, 1000},
		{-1, 1, 1, MaxDepositScale, 0},
		{1e12, 1, 1, MaxDepositScale, 1<<32 - 1},
	}
	for _, tt := range tests {
		if got := depositAmount(tt.weight, tt.dt, tt.mask, tt.scale); got != tt.want {
			t.Errorf("depositAmount(%v, %v, %v, %v): expected %d, got %d", tt.weight, tt.dt, tt.mask, tt.scale, tt.want, got)
		}
	}
}

func TestDepositScale(t *testing.T) {
	tests := []struct {
		name       string
		count      int
		weight, dt float32
		want       float32
	}{
		{"few agents keep full resolution", 1000, 1, 1, MaxDepositScale},
		{"no agents", 0, 1, 1, MaxDepositScale},
		{"zero deposit", 5000, 0, 1, MaxDepositScale},
		{"crowded cell", 70000, 1, 1, 61356},
		{"default run", 200000, 60, 1.0 / 60, 21474},
		{"never below one unit", 1 << 30, 100, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := depositScale(tt.count, tt.weight, tt.dt)
			if math.Abs(float64(got-tt.want)) > 1 {
				t.Errorf("expected scale %v, got %v", tt.want, got)
			}
		})
	}

	// A full cell at the chosen scale fits in the accumulator.
	for _, count := range []int{2, 70000, 200000, 1000000} {
		s := depositScale(count, 60, 1.0/60)
		per := depositAmount(60, 1.0/60, 1, s)
		if total := uint64(per) * uint64(count); total > math.MaxUint32 {
			t.Errorf("%d agents at scale %v sum to %d, past the uint32 range", count, s, total)
		}
	}
}

func TestHashRandRange(t *testing.T) {
	seen := map[float32]bool{}
	for i := uint32(0); i < 1000; i++ {
		r := newHashRand(i, 7, 1.5)
		v := r.next()
		if v < 0 || v > 1 {
			t.Fatalf("expected value in [0,1], got %v", v)
		}
		seen[v] = true
	}
	if len(seen) < 990 {
		t.Errorf("expected distinct values per agent, got %d unique of 1000", len(seen))
	}

	a, b := newHashRand(3, 1, 0.5), newHashRand(3, 1, 0.5)
	if a.next() != b.next() {
		t.Error("expected identical inputs to draw identical values")
	}
}

func TestWrapAngle(t *testing.T) {
	for _, a := range []float32{-7, -0.1, 0, 3, 6.3, 100} {
		got := wrapAngle(a)
		if got < 0 || got >= 2*3.1415927 {
			t.Errorf("wrapAngle(%v) = %v outside [0, 2pi)", a, got)
		}
	}
}

// Decay of a whole field: the scalar loop the kernels run per cell versus
// a blas32 scale of the flat buffer.
func BenchmarkDecayScalar(b *testing.B) {
	data := make([]float32, 256*256*4)
	for i := range data {
		data[i] = float32(i%97) * 0.01
	}
	factor := float32(0.999)

	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		for i := range data {
			data[i] *= factor
		}
	}
}

func BenchmarkDecayBLAS(b *testing.B) {
	data := make([]float32, 256*256*4)
	for i := range data {
		data[i] = float32(i%97) * 0.01
	}
	v := blas32.Vector{N: len(data), Inc: 1, Data: data}

	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		blas32.Scal(0.999, v)
	}
}

func BenchmarkStep2D(b *testing.B) {
	dev := NewCPUDevice(0)
	defer dev.Unload()

	e, err := New(dev, Config{
		Variant: Variant{Dims: 2, Policy: agents.PolicyUniform, Species: 2},
		Extent:  device.Extent2D(256, 256),
		Agents:  20000,
		Shaders: DefaultShaders("assets/shaders"),
		Params:  DefaultParams(),
	})
	if err != nil {
		b.Fatalf("New: %v", err)
	}
	defer e.Unload()

	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		e.Step(1.0 / 60)
	}
}
