// Package cpu is the host reference backend for package device.
//
// Fields are plain slices, kernels are Go programs registered in a Library
// under the base name of the shader asset they stand in for, and a dispatch
// runs every work group on a persistent worker pool. DispatchAndWait
// returns only after all groups finished, which is the barrier.
package cpu

import (
	"fmt"
	"path/filepath"
	"reflect"

	"github.com/pthm-cable/slime/device"
)

// Slot table sizes. OpenGL guarantees at least 8 image units and 8 storage
// bindings for compute shaders, the same limits apply here.
const (
	MaxImageSlots   = 8
	MaxStorageSlots = 8
	MaxUniforms     = 32
)

// Program is a Go implementation of one compute kernel.
type Program struct {
	// Local is the work-group tile (local_size_x/y/z).
	Local [3]int
	// Uniforms maps uniform names to their fixed locations.
	Uniforms map[string]int32
	// Run executes one invocation with global invocation id.
	Run func(ctx *Context, id [3]int)
}

// Library maps shader asset base names (e.g. "agent.comp") to programs.
type Library map[string]Program

// Device is the CPU backend.
type Device struct {
	lib  Library
	pool *pool

	images  [MaxImageSlots]*Image
	storage [MaxStorageSlots]*Buffer
}

// New creates a CPU device. workers <= 0 uses GOMAXPROCS.
func New(lib Library, workers int) *Device {
	return &Device{lib: lib, pool: newPool(workers)}
}

// Name identifies the backend.
func (d *Device) Name() string { return "cpu" }

// Workers returns the worker count used for dispatches.
func (d *Device) Workers() int { return d.pool.numWorkers }

// NewField allocates a zeroed field.
func (d *Device) NewField(e device.Extent, f device.Format) (device.Field, error) {
	if e.Empty() {
		return nil, fmt.Errorf("%w: empty field extent %v", device.ErrSizeMismatch, e)
	}
	if f != device.FormatRGBA32F && f != device.FormatR32UI {
		return nil, fmt.Errorf("%w: unsupported %s", device.ErrFormatMismatch, f)
	}
	return newImage(d, e, f), nil
}

// NewBuffer wraps a slice as a storage buffer. The slice is owned by the
// buffer from here on.
func (d *Device) NewBuffer(data any, count, stride int) (device.Buffer, error) {
	v := reflect.ValueOf(data)
	if data != nil && v.Kind() != reflect.Slice {
		return nil, fmt.Errorf("%w: buffer data must be a slice, got %T", device.ErrFormatMismatch, data)
	}
	if data != nil && v.Len() != count {
		return nil, fmt.Errorf("%w: %d records declared, %d given", device.ErrSizeMismatch, count, v.Len())
	}
	return &Buffer{dev: d, data: data, count: count, stride: stride}, nil
}

// LoadKernel resolves a program by the base name of path.
func (d *Device) LoadKernel(path string) (device.Kernel, error) {
	name := filepath.Base(path)
	prog, ok := d.lib[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", device.ErrUnknownKernel, path)
	}
	if prog.Run == nil || prog.Local[0] <= 0 || prog.Local[1] <= 0 || prog.Local[2] <= 0 {
		return nil, fmt.Errorf("%w: %s has no entry point or local size", device.ErrInvalidKernel, path)
	}
	return &Kernel{dev: d, path: path, prog: prog, valid: true}, nil
}

// Unload stops the worker pool.
func (d *Device) Unload() {
	d.pool.stop()
	d.images = [MaxImageSlots]*Image{}
	d.storage = [MaxStorageSlots]*Buffer{}
}

func (d *Device) bindImage(slot uint32, m *Image) {
	if slot >= MaxImageSlots {
		return
	}
	d.images[slot] = m
}

func (d *Device) unbindImage(m *Image) {
	for i, b := range d.images {
		if b == m {
			d.images[i] = nil
		}
	}
}

func (d *Device) bindStorage(slot uint32, b *Buffer) {
	if slot >= MaxStorageSlots {
		return
	}
	d.storage[slot] = b
}

func (d *Device) unbindStorage(b *Buffer) {
	for i, s := range d.storage {
		if s == b {
			d.storage[i] = nil
		}
	}
}

// Buffer is a host slice standing in for a storage buffer.
type Buffer struct {
	dev    *Device
	data   any
	count  int
	stride int
}

// Len returns the record count.
func (b *Buffer) Len() int { return b.count }

// Stride returns the record size in bytes.
func (b *Buffer) Stride() int { return b.stride }

// BindStorage attaches the buffer to a storage slot.
func (b *Buffer) BindStorage(slot uint32) { b.dev.bindStorage(slot, b) }

// Read copies the records into dst, which must have the uploaded type.
func (b *Buffer) Read(dst any) error {
	if b.count == 0 {
		return nil
	}
	src := reflect.ValueOf(b.data)
	out := reflect.ValueOf(dst)
	if out.Kind() != reflect.Slice || out.Type() != src.Type() {
		return fmt.Errorf("%w: buffer holds %s, got %T", device.ErrFormatMismatch, src.Type(), dst)
	}
	if out.Len() != src.Len() {
		return fmt.Errorf("%w: want %d records, got %d", device.ErrSizeMismatch, src.Len(), out.Len())
	}
	reflect.Copy(out, src)
	return nil
}

// Unload releases the slice.
func (b *Buffer) Unload() {
	b.dev.unbindStorage(b)
	b.data = nil
	b.count = 0
}
