// Package gpu implements package device on OpenGL 4.3 compute shaders.
//
// A GL context must be current on the calling goroutine (raylib's window
// provides one) and Init must have been called before New. All calls must
// come from that goroutine.
package gpu

import (
	"fmt"

	"github.com/go-gl/gl/v4.3-core/gl"

	"github.com/pthm-cable/slime/device"
)

// Init loads the GL function pointers for the current context.
func Init() error {
	if err := gl.Init(); err != nil {
		return fmt.Errorf("gl init: %w", err)
	}
	return nil
}

// Device is the OpenGL compute backend.
type Device struct {
	name string
}

// New wraps the current GL context.
func New() *Device {
	return &Device{name: "gl " + gl.GoStr(gl.GetString(gl.VERSION))}
}

// Name identifies the backend and driver version.
func (d *Device) Name() string { return d.name }

// NewField allocates immutable texture storage.
func (d *Device) NewField(e device.Extent, f device.Format) (device.Field, error) {
	if e.Empty() {
		return nil, fmt.Errorf("%w: empty field extent %v", device.ErrSizeMismatch, e)
	}
	return newTexture(e, f)
}

// NewBuffer creates a shader storage buffer holding count records.
func (d *Device) NewBuffer(data any, count, stride int) (device.Buffer, error) {
	return newBuffer(data, count, stride)
}

// LoadKernel reads and compiles a compute shader asset.
func (d *Device) LoadKernel(path string) (device.Kernel, error) {
	return loadKernel(path)
}

// Unload is a no-op; the context belongs to the window.
func (d *Device) Unload() {}

// barrier makes every write of the previous command visible to the next.
func barrier() {
	gl.MemoryBarrier(gl.ALL_BARRIER_BITS)
}
