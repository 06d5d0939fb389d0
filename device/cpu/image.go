package cpu

import (
	"fmt"
	"sync/atomic"

	"github.com/pthm-cable/slime/device"
)

// Image is a host-resident field. RGBA32F cells live in f (4 floats per
// cell), R32UI cells live in u. Cells are stored x-fastest, then y, then z.
//
// Float cells are written by at most one invocation per dispatch (the
// owner of that cell); unsigned cells are always accessed atomically so
// kernels may contend on them.
type Image struct {
	dev    *Device
	extent device.Extent
	format device.Format

	f []float32
	u []uint32
}

func newImage(d *Device, e device.Extent, format device.Format) *Image {
	img := &Image{dev: d, extent: e, format: format}
	if format == device.FormatRGBA32F {
		img.f = make([]float32, e.Cells()*4)
	} else {
		img.u = make([]uint32, e.Cells())
	}
	return img
}

// Extent returns the field size.
func (m *Image) Extent() device.Extent { return m.extent }

// Format returns the element format.
func (m *Image) Format() device.Format { return m.format }

// Handle returns a host-resident handle (ID 0).
func (m *Image) Handle() device.Handle {
	return device.Handle{Format: m.format, Extent: m.extent}
}

// InBounds reports whether (x, y, z) addresses a cell.
func (m *Image) InBounds(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 && x < m.extent.W && y < m.extent.H && z < m.extent.D
}

func (m *Image) index(x, y, z int) int {
	return (z*m.extent.H+y)*m.extent.W + x
}

// Load reads an RGBA32F cell.
func (m *Image) Load(x, y, z int) [4]float32 {
	i := m.index(x, y, z) * 4
	return [4]float32{m.f[i], m.f[i+1], m.f[i+2], m.f[i+3]}
}

// Store writes an RGBA32F cell.
func (m *Image) Store(x, y, z int, v [4]float32) {
	i := m.index(x, y, z) * 4
	m.f[i], m.f[i+1], m.f[i+2], m.f[i+3] = v[0], v[1], v[2], v[3]
}

// LoadUint reads an R32UI cell.
func (m *Image) LoadUint(x, y, z int) uint32 {
	return atomic.LoadUint32(&m.u[m.index(x, y, z)])
}

// StoreUint writes an R32UI cell.
func (m *Image) StoreUint(x, y, z int, v uint32) {
	atomic.StoreUint32(&m.u[m.index(x, y, z)], v)
}

// AtomicAdd adds delta to an R32UI cell and returns the previous value.
func (m *Image) AtomicAdd(x, y, z int, delta uint32) uint32 {
	return atomic.AddUint32(&m.u[m.index(x, y, z)], delta) - delta
}

// AtomicCompSwap stores value if the cell equals compare and returns the
// value the cell held before the call.
func (m *Image) AtomicCompSwap(x, y, z int, compare, value uint32) uint32 {
	p := &m.u[m.index(x, y, z)]
	for {
		old := atomic.LoadUint32(p)
		if old != compare {
			return old
		}
		if atomic.CompareAndSwapUint32(p, compare, value) {
			return old
		}
	}
}

// AtomicExchange stores v and returns the previous value.
func (m *Image) AtomicExchange(x, y, z int, v uint32) uint32 {
	return atomic.SwapUint32(&m.u[m.index(x, y, z)], v)
}

// WriteFloats uploads RGBA32F data into a region.
func (m *Image) WriteFloats(o device.Origin, r device.Extent, data []float32) error {
	if err := device.CheckWrite(m.extent, m.format, device.FormatRGBA32F, o, r, len(data)); err != nil {
		return err
	}
	row := r.W * 4
	for z := 0; z < r.D; z++ {
		for y := 0; y < r.H; y++ {
			src := data[(z*r.H+y)*row:]
			dst := m.index(o.X, o.Y+y, o.Z+z) * 4
			copy(m.f[dst:dst+row], src[:row])
		}
	}
	return nil
}

// WriteUints uploads R32UI data into a region.
func (m *Image) WriteUints(o device.Origin, r device.Extent, data []uint32) error {
	if err := device.CheckWrite(m.extent, m.format, device.FormatR32UI, o, r, len(data)); err != nil {
		return err
	}
	for z := 0; z < r.D; z++ {
		for y := 0; y < r.H; y++ {
			src := data[(z*r.H+y)*r.W:]
			dst := m.index(o.X, o.Y+y, o.Z+z)
			for x := 0; x < r.W; x++ {
				atomic.StoreUint32(&m.u[dst+x], src[x])
			}
		}
	}
	return nil
}

// ReadFloats copies the whole RGBA32F field into dst.
func (m *Image) ReadFloats(dst []float32) error {
	if m.format != device.FormatRGBA32F {
		return fmt.Errorf("%w: field is %s", device.ErrFormatMismatch, m.format)
	}
	if len(dst) != len(m.f) {
		return fmt.Errorf("%w: want %d values, got %d", device.ErrSizeMismatch, len(m.f), len(dst))
	}
	copy(dst, m.f)
	return nil
}

// ReadUints copies the whole R32UI field into dst.
func (m *Image) ReadUints(dst []uint32) error {
	if m.format != device.FormatR32UI {
		return fmt.Errorf("%w: field is %s", device.ErrFormatMismatch, m.format)
	}
	if len(dst) != len(m.u) {
		return fmt.Errorf("%w: want %d values, got %d", device.ErrSizeMismatch, len(m.u), len(dst))
	}
	for i := range dst {
		dst[i] = atomic.LoadUint32(&m.u[i])
	}
	return nil
}

// BindImage attaches the image to a device image slot.
func (m *Image) BindImage(slot uint32) {
	m.dev.bindImage(slot, m)
}

// CopyFrom copies the full extent of src, which must be a same-sized image
// of the same format on this device.
func (m *Image) CopyFrom(src device.Field) error {
	s, ok := src.(*Image)
	if !ok || s.dev != m.dev {
		return fmt.Errorf("%w: copy source belongs to another device", device.ErrFormatMismatch)
	}
	if s.format != m.format {
		return fmt.Errorf("%w: %s into %s", device.ErrFormatMismatch, s.format, m.format)
	}
	if s.extent != m.extent {
		return fmt.Errorf("%w: %v into %v", device.ErrSizeMismatch, s.extent, m.extent)
	}
	if m.format == device.FormatRGBA32F {
		m.dev.pool.run(len(m.f), func(start, end int) {
			copy(m.f[start:end], s.f[start:end])
		})
		return nil
	}
	copy(m.u, s.u)
	return nil
}

// Unload drops the storage and any slot bindings.
func (m *Image) Unload() {
	if m.f == nil && m.u == nil {
		return
	}
	m.dev.unbindImage(m)
	m.f, m.u = nil, nil
}
