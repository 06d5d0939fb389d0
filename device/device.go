// Package device defines the compute backend contracts used by the
// simulation: fields (2D/3D images), storage buffers and compute kernels.
//
// Two backends implement these contracts: device/cpu runs kernels as Go
// programs over a worker pool, device/gpu runs GLSL compute shaders through
// OpenGL 4.3. Simulation code only talks to the interfaces below.
package device

import (
	"errors"
	"fmt"
	"slices"
	"unsafe"
)

// Sentinel errors shared by all backends.
var (
	ErrFormatMismatch    = errors.New("device: format mismatch")
	ErrSizeMismatch      = errors.New("device: size mismatch")
	ErrRegionOutOfBounds = errors.New("device: region out of bounds")
	ErrUnknownKernel     = errors.New("device: unknown kernel")
	ErrInvalidKernel     = errors.New("device: invalid kernel")
	ErrAllocation        = errors.New("device: allocation failed")
)

// Format is the element format of a field.
type Format uint8

const (
	// FormatRGBA32F stores four float32 channels per cell.
	FormatRGBA32F Format = iota
	// FormatR32UI stores one uint32 per cell.
	FormatR32UI
)

// Channels returns the number of scalar values per cell.
func (f Format) Channels() int {
	if f == FormatRGBA32F {
		return 4
	}
	return 1
}

func (f Format) String() string {
	switch f {
	case FormatRGBA32F:
		return "rgba32f"
	case FormatR32UI:
		return "r32ui"
	default:
		return fmt.Sprintf("format(%d)", uint8(f))
	}
}

// Extent is a grid size or region extent. D is 1 for 2D grids.
type Extent struct {
	W, H, D int
}

// Extent2D returns a 2D extent.
func Extent2D(w, h int) Extent { return Extent{W: w, H: h, D: 1} }

// Extent3D returns a 3D extent.
func Extent3D(w, h, d int) Extent { return Extent{W: w, H: h, D: d} }

// Is3D reports whether the extent has more than one layer.
func (e Extent) Is3D() bool { return e.D > 1 }

// Cells returns the number of cells covered by the extent.
func (e Extent) Cells() int {
	if e.W <= 0 || e.H <= 0 || e.D <= 0 {
		return 0
	}
	return e.W * e.H * e.D
}

// Empty reports whether the extent covers no cells.
func (e Extent) Empty() bool { return e.Cells() == 0 }

func (e Extent) String() string {
	if e.D <= 1 {
		return fmt.Sprintf("%dx%d", e.W, e.H)
	}
	return fmt.Sprintf("%dx%dx%d", e.W, e.H, e.D)
}

// Origin is the integer corner of a region inside a field.
type Origin struct {
	X, Y, Z int
}

// Contains reports whether the region [o, o+r) lies inside e.
func (e Extent) Contains(o Origin, r Extent) bool {
	if o.X < 0 || o.Y < 0 || o.Z < 0 || r.W < 0 || r.H < 0 || r.D < 0 {
		return false
	}
	return o.X+r.W <= e.W && o.Y+r.H <= e.H && o.Z+r.D <= e.D
}

// Handle is the opaque texture reference handed to renderers.
// ID is zero for host-resident (CPU backend) fields.
type Handle struct {
	ID     uint32
	Format Format
	Extent Extent
}

// Groups is a work-group count per dispatch axis.
type Groups [3]uint32

// Empty reports whether a dispatch with these groups runs nothing.
func (g Groups) Empty() bool { return g[0] == 0 || g[1] == 0 || g[2] == 0 }

// Total returns the number of work groups.
func (g Groups) Total() int { return int(g[0]) * int(g[1]) * int(g[2]) }

// GroupsFor returns the 1D group count covering n invocations.
func GroupsFor(n, local int) Groups {
	return Groups{ceilDiv(n, local), 1, 1}
}

// GroupsForExtent returns the group counts covering every cell of e
// with a local tile of the given size.
func GroupsForExtent(e Extent, local [3]int) Groups {
	return Groups{ceilDiv(e.W, local[0]), ceilDiv(e.H, local[1]), ceilDiv(e.D, local[2])}
}

func ceilDiv(n, d int) uint32 {
	if n <= 0 || d <= 0 {
		return 0
	}
	return uint32((n + d - 1) / d)
}

// Field is a device-resident 2D or 3D image.
type Field interface {
	Extent() Extent
	Format() Format
	Handle() Handle

	// WriteFloats uploads RGBA32F data into the region [origin, origin+region).
	WriteFloats(origin Origin, region Extent, data []float32) error
	// WriteUints uploads R32UI data into the region [origin, origin+region).
	WriteUints(origin Origin, region Extent, data []uint32) error

	// ReadFloats and ReadUints copy the whole field back to the host.
	ReadFloats(dst []float32) error
	ReadUints(dst []uint32) error

	// BindImage attaches the field to an image slot for read/write access
	// by kernels. The binding persists until another field takes the slot.
	BindImage(slot uint32)

	// CopyFrom copies the full extent of src on the device.
	CopyFrom(src Field) error

	Unload()
}

// Buffer is a device storage buffer holding a flat array of records.
type Buffer interface {
	Len() int
	Stride() int
	BindStorage(slot uint32)
	// Read copies the buffer contents into dst, a slice of the uploaded type.
	Read(dst any) error
	Unload()
}

// Kernel is a compiled compute program with a fixed dispatch size.
type Kernel interface {
	Path() string
	Valid() bool

	// LocalSize is the work-group tile declared by the program.
	LocalSize() [3]int
	SetWorkGroups(g Groups)
	WorkGroups() Groups

	// Location resolves a uniform name; -1 when absent.
	Location(name string) int32
	SetInt(loc int32, v int32)
	SetFloat(loc int32, v float32)
	SetIVec3(loc int32, v [3]int32)
	SetVec4(loc int32, v [4]float32)

	// DispatchAndWait runs the kernel over the configured work groups and
	// then issues a full memory barrier: every write of this dispatch is
	// visible to the next command that touches the same resources.
	DispatchAndWait()

	Unload()
}

// Device creates fields, buffers and kernels for one backend.
type Device interface {
	Name() string
	NewField(e Extent, f Format) (Field, error)
	// NewBuffer uploads data (a slice of count records of stride bytes).
	NewBuffer(data any, count, stride int) (Buffer, error)
	LoadKernel(path string) (Kernel, error)
	Unload()
}

// Upload copies a host slice into a new storage buffer.
func Upload[T any](d Device, data []T) (Buffer, error) {
	var zero T
	return d.NewBuffer(slices.Clone(data), len(data), int(unsafe.Sizeof(zero)))
}

// Download reads a storage buffer back into a new host slice.
func Download[T any](b Buffer) ([]T, error) {
	dst := make([]T, b.Len())
	if err := b.Read(dst); err != nil {
		return nil, err
	}
	return dst, nil
}

// CheckWrite validates a region write against a field's extent and format.
func CheckWrite(e Extent, have, want Format, o Origin, r Extent, n int) error {
	if have != want {
		return fmt.Errorf("%w: field is %s, data is %s", ErrFormatMismatch, have, want)
	}
	if !e.Contains(o, r) {
		return fmt.Errorf("%w: %v at %+v in %v", ErrRegionOutOfBounds, r, o, e)
	}
	if n != r.Cells()*have.Channels() {
		return fmt.Errorf("%w: got %d values for region %v", ErrSizeMismatch, n, r)
	}
	return nil
}
