package cpu

import (
	"github.com/pthm-cable/slime/device"
)

// uniform is one uniform slot. Every setter writes the same storage so a
// kernel can read a location with any accessor.
type uniform struct {
	i [3]int32
	f [4]float32
}

// Context is the read-only view of the device state a program sees during
// one dispatch: a snapshot of the uniforms plus the bound images and
// storage buffers.
type Context struct {
	uniforms [MaxUniforms]uniform
	images   [MaxImageSlots]*Image
	storage  [MaxStorageSlots]*Buffer
	groups   device.Groups
	local    [3]int
}

// Int reads an int uniform.
func (c *Context) Int(loc int32) int32 {
	if loc < 0 || loc >= MaxUniforms {
		return 0
	}
	return c.uniforms[loc].i[0]
}

// Float reads a float uniform.
func (c *Context) Float(loc int32) float32 {
	if loc < 0 || loc >= MaxUniforms {
		return 0
	}
	return c.uniforms[loc].f[0]
}

// IVec3 reads an ivec3 uniform.
func (c *Context) IVec3(loc int32) [3]int32 {
	if loc < 0 || loc >= MaxUniforms {
		return [3]int32{}
	}
	return c.uniforms[loc].i
}

// Vec4 reads a vec4 uniform.
func (c *Context) Vec4(loc int32) [4]float32 {
	if loc < 0 || loc >= MaxUniforms {
		return [4]float32{}
	}
	return c.uniforms[loc].f
}

// Image returns the image bound to slot, or nil.
func (c *Context) Image(slot uint32) *Image {
	if slot >= MaxImageSlots {
		return nil
	}
	return c.images[slot]
}

// GlobalSize returns the number of invocations along each axis.
func (c *Context) GlobalSize() [3]int {
	return [3]int{
		int(c.groups[0]) * c.local[0],
		int(c.groups[1]) * c.local[1],
		int(c.groups[2]) * c.local[2],
	}
}

// Storage returns the records of the buffer bound to slot as []T. It
// returns nil when the slot is empty or holds another record type.
// Invocations may only write the records they own.
func Storage[T any](c *Context, slot uint32) []T {
	if slot >= MaxStorageSlots || c.storage[slot] == nil {
		return nil
	}
	s, _ := c.storage[slot].data.([]T)
	return s
}

// Kernel is a loaded Program plus its dispatch state.
type Kernel struct {
	dev      *Device
	path     string
	prog     Program
	valid    bool
	groups   device.Groups
	uniforms [MaxUniforms]uniform
}

// Path returns the asset path the kernel was loaded from.
func (k *Kernel) Path() string { return k.path }

// Valid reports whether the kernel can be dispatched.
func (k *Kernel) Valid() bool { return k.valid }

// LocalSize returns the program's work-group tile.
func (k *Kernel) LocalSize() [3]int { return k.prog.Local }

// SetWorkGroups fixes the dispatch extent.
func (k *Kernel) SetWorkGroups(g device.Groups) { k.groups = g }

// WorkGroups returns the dispatch extent.
func (k *Kernel) WorkGroups() device.Groups { return k.groups }

// Location resolves a uniform name to its location, -1 when absent.
func (k *Kernel) Location(name string) int32 {
	loc, ok := k.prog.Uniforms[name]
	if !ok {
		return -1
	}
	return loc
}

func (k *Kernel) slot(loc int32) *uniform {
	if loc < 0 || loc >= MaxUniforms {
		return nil
	}
	return &k.uniforms[loc]
}

// SetInt sets an int uniform.
func (k *Kernel) SetInt(loc int32, v int32) {
	if u := k.slot(loc); u != nil {
		u.i = [3]int32{v}
		u.f = [4]float32{float32(v)}
	}
}

// SetFloat sets a float uniform.
func (k *Kernel) SetFloat(loc int32, v float32) {
	if u := k.slot(loc); u != nil {
		u.f = [4]float32{v}
		u.i = [3]int32{int32(v)}
	}
}

// SetIVec3 sets an ivec3 uniform.
func (k *Kernel) SetIVec3(loc int32, v [3]int32) {
	if u := k.slot(loc); u != nil {
		u.i = v
		u.f = [4]float32{float32(v[0]), float32(v[1]), float32(v[2])}
	}
}

// SetVec4 sets a vec4 uniform.
func (k *Kernel) SetVec4(loc int32, v [4]float32) {
	if u := k.slot(loc); u != nil {
		u.f = v
		u.i = [3]int32{int32(v[0]), int32(v[1]), int32(v[2])}
	}
}

// DispatchAndWait runs every invocation of every work group and returns
// once all of them finished. Invocations past the data extent still run;
// programs bounds-check their id like a shader would.
func (k *Kernel) DispatchAndWait() {
	if !k.valid || k.groups.Empty() {
		return
	}

	ctx := &Context{
		uniforms: k.uniforms,
		images:   k.dev.images,
		storage:  k.dev.storage,
		groups:   k.groups,
		local:    k.prog.Local,
	}
	local := k.prog.Local
	gx, gy := int(k.groups[0]), int(k.groups[1])
	run := k.prog.Run

	k.dev.pool.run(k.groups.Total(), func(start, end int) {
		for g := start; g < end; g++ {
			bx := g % gx
			by := (g / gx) % gy
			bz := g / (gx * gy)
			for lz := 0; lz < local[2]; lz++ {
				for ly := 0; ly < local[1]; ly++ {
					for lx := 0; lx < local[0]; lx++ {
						run(ctx, [3]int{
							bx*local[0] + lx,
							by*local[1] + ly,
							bz*local[2] + lz,
						})
					}
				}
			}
		}
	})
}

// Unload invalidates the kernel.
func (k *Kernel) Unload() {
	k.valid = false
}
