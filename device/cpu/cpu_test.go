package cpu

import (
	"errors"
	"testing"

	"github.com/pthm-cable/slime/device"
)

type record struct {
	Value int32
	Hits  int32
}

func testLibrary() Library {
	return Library{
		"count.comp": {
			Local:    [3]int{4, 1, 1},
			Uniforms: map[string]int32{"n": 0, "add": 1},
			Run: func(ctx *Context, id [3]int) {
				recs := Storage[record](ctx, 0)
				if id[0] >= int(ctx.Int(0)) {
					return
				}
				recs[id[0]].Value += ctx.Int(1)
				recs[id[0]].Hits++
			},
		},
		"splat.comp": {
			Local:    [3]int{2, 2, 1},
			Uniforms: map[string]int32{"bounds": 0},
			Run: func(ctx *Context, id [3]int) {
				b := ctx.IVec3(0)
				if id[0] >= int(b[0]) || id[1] >= int(b[1]) || id[2] >= int(b[2]) {
					return
				}
				ctx.Image(0).AtomicAdd(0, 0, 0, 1)
			},
		},
	}
}

func TestFieldWriteRegion(t *testing.T) {
	d := New(testLibrary(), 2)
	defer d.Unload()

	f, err := d.NewField(device.Extent2D(4, 3), device.FormatRGBA32F)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}

	region := device.Extent2D(2, 2)
	data := make([]float32, region.Cells()*4)
	for i := range data {
		data[i] = float32(i + 1)
	}
	if err := f.WriteFloats(device.Origin{X: 1, Y: 1}, region, data); err != nil {
		t.Fatalf("WriteFloats: %v", err)
	}

	img := f.(*Image)
	if got := img.Load(0, 0, 0); got != ([4]float32{}) {
		t.Errorf("expected untouched cell to stay zero, got %v", got)
	}
	if got := img.Load(1, 1, 0); got != ([4]float32{1, 2, 3, 4}) {
		t.Errorf("expected first region cell {1 2 3 4}, got %v", got)
	}
	if got := img.Load(2, 2, 0); got != ([4]float32{13, 14, 15, 16}) {
		t.Errorf("expected last region cell {13 14 15 16}, got %v", got)
	}
}

func TestFieldWriteErrors(t *testing.T) {
	d := New(testLibrary(), 1)
	defer d.Unload()

	f, err := d.NewField(device.Extent2D(4, 4), device.FormatR32UI)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}

	tests := []struct {
		name   string
		write  func() error
		target error
	}{
		{
			name:   "wrong format",
			write:  func() error { return f.WriteFloats(device.Origin{}, device.Extent2D(1, 1), make([]float32, 4)) },
			target: device.ErrFormatMismatch,
		},
		{
			name:   "out of bounds",
			write:  func() error { return f.WriteUints(device.Origin{X: 3}, device.Extent2D(2, 1), make([]uint32, 2)) },
			target: device.ErrRegionOutOfBounds,
		},
		{
			name:   "short data",
			write:  func() error { return f.WriteUints(device.Origin{}, device.Extent2D(2, 2), make([]uint32, 3)) },
			target: device.ErrSizeMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.write()
			if !errors.Is(err, tt.target) {
				t.Errorf("expected %v, got %v", tt.target, err)
			}
		})
	}
}

func TestFieldCopyFrom(t *testing.T) {
	d := New(testLibrary(), 3)
	defer d.Unload()

	e := device.Extent3D(5, 4, 3)
	src, _ := d.NewField(e, device.FormatRGBA32F)
	dst, _ := d.NewField(e, device.FormatRGBA32F)

	data := make([]float32, e.Cells()*4)
	for i := range data {
		data[i] = float32(i) * 0.5
	}
	if err := src.WriteFloats(device.Origin{}, e, data); err != nil {
		t.Fatalf("WriteFloats: %v", err)
	}
	if err := dst.CopyFrom(src); err != nil {
		t.Fatalf("CopyFrom: %v", err)
	}

	got := make([]float32, len(data))
	if err := dst.ReadFloats(got); err != nil {
		t.Fatalf("ReadFloats: %v", err)
	}
	for i := range got {
		if got[i] != data[i] {
			t.Fatalf("expected value[%d]=%f, got %f", i, data[i], got[i])
		}
	}

	other, _ := d.NewField(device.Extent2D(5, 4), device.FormatRGBA32F)
	if err := other.CopyFrom(src); !errors.Is(err, device.ErrSizeMismatch) {
		t.Errorf("expected ErrSizeMismatch for mismatched extents, got %v", err)
	}
}

func TestLoadKernelUnknown(t *testing.T) {
	d := New(testLibrary(), 1)
	defer d.Unload()

	if _, err := d.LoadKernel("assets/shaders/missing.comp"); !errors.Is(err, device.ErrUnknownKernel) {
		t.Errorf("expected ErrUnknownKernel, got %v", err)
	}

	k, err := d.LoadKernel("assets/shaders/count.comp")
	if err != nil {
		t.Fatalf("LoadKernel: %v", err)
	}
	if !k.Valid() {
		t.Error("expected loaded kernel to be valid")
	}
	if k.Location("add") != 1 || k.Location("nope") != -1 {
		t.Errorf("unexpected uniform locations: add=%d nope=%d", k.Location("add"), k.Location("nope"))
	}
}

func TestDispatchStorage(t *testing.T) {
	d := New(testLibrary(), 4)
	defer d.Unload()

	const n = 37
	recs := make([]record, n)
	buf, err := device.Upload(d, recs)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	buf.BindStorage(0)

	k, _ := d.LoadKernel("count.comp")
	k.SetWorkGroups(device.GroupsFor(n, k.LocalSize()[0]))
	k.SetInt(0, n)
	k.SetInt(1, 3)

	for i := 0; i < 2; i++ {
		k.DispatchAndWait()
	}

	got, err := device.Download[record](buf)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	for i, r := range got {
		if r.Hits != 2 || r.Value != 6 {
			t.Errorf("record %d: expected hits=2 value=6, got hits=%d value=%d", i, r.Hits, r.Value)
		}
	}
}

func TestDispatchAtomicContention(t *testing.T) {
	d := New(testLibrary(), 8)
	defer d.Unload()

	f, _ := d.NewField(device.Extent2D(1, 1), device.FormatR32UI)
	f.BindImage(0)

	k, _ := d.LoadKernel("splat.comp")
	e := device.Extent2D(63, 65)
	k.SetWorkGroups(device.GroupsForExtent(e, k.LocalSize()))
	k.SetIVec3(0, [3]int32{int32(e.W), int32(e.H), 1})
	k.DispatchAndWait()

	got := make([]uint32, 1)
	if err := f.ReadUints(got); err != nil {
		t.Fatalf("ReadUints: %v", err)
	}
	if got[0] != uint32(e.Cells()) {
		t.Errorf("expected %d atomic adds, got %d", e.Cells(), got[0])
	}
}

func TestDispatchNoop(t *testing.T) {
	d := New(testLibrary(), 2)
	defer d.Unload()

	recs := []record{{}}
	buf, _ := device.Upload(d, recs)
	buf.BindStorage(0)

	k, _ := d.LoadKernel("count.comp")
	k.SetInt(0, 1)
	k.SetInt(1, 1)

	// Zero work groups.
	k.SetWorkGroups(device.GroupsFor(0, 4))
	k.DispatchAndWait()

	// Unloaded kernel.
	k.SetWorkGroups(device.GroupsFor(1, 4))
	k.Unload()
	k.DispatchAndWait()

	got, _ := device.Download[record](buf)
	if got[0].Hits != 0 {
		t.Errorf("expected no invocations, got %d", got[0].Hits)
	}
	if k.Valid() {
		t.Error("expected unloaded kernel to be invalid")
	}
}

func TestAtomicCompSwap(t *testing.T) {
	d := New(nil, 1)
	defer d.Unload()

	f, _ := d.NewField(device.Extent2D(2, 1), device.FormatR32UI)
	img := f.(*Image)

	if prev := img.AtomicCompSwap(1, 0, 0, 0, 7); prev != 0 {
		t.Errorf("expected first claim to see 0, got %d", prev)
	}
	if prev := img.AtomicCompSwap(1, 0, 0, 0, 9); prev != 7 {
		t.Errorf("expected second claim to see 7, got %d", prev)
	}
	if v := img.LoadUint(1, 0, 0); v != 7 {
		t.Errorf("expected cell to keep 7, got %d", v)
	}
}

func TestUnloadIdempotent(t *testing.T) {
	d := New(nil, 2)
	f, _ := d.NewField(device.Extent2D(2, 2), device.FormatRGBA32F)
	f.BindImage(1)
	f.Unload()
	f.Unload()
	if d.images[1] != nil {
		t.Error("expected unloaded field to release its image slot")
	}
	d.Unload()
	d.Unload()
}
