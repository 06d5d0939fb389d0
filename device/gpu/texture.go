package gpu

import (
	"fmt"

	"github.com/go-gl/gl/v4.3-core/gl"

	"github.com/pthm-cable/slime/device"
)

// texture is a 2D or 3D GL texture with immutable storage.
type texture struct {
	id     uint32
	target uint32
	extent device.Extent
	format device.Format
}

// glFormat returns internal format, pixel format and pixel type.
func glFormat(f device.Format) (internal, format, xtype uint32, err error) {
	switch f {
	case device.FormatRGBA32F:
		return gl.RGBA32F, gl.RGBA, gl.FLOAT, nil
	case device.FormatR32UI:
		return gl.R32UI, gl.RED_INTEGER, gl.UNSIGNED_INT, nil
	default:
		return 0, 0, 0, fmt.Errorf("%w: unsupported %s", device.ErrFormatMismatch, f)
	}
}

func newTexture(e device.Extent, f device.Format) (*texture, error) {
	internal, _, _, err := glFormat(f)
	if err != nil {
		return nil, err
	}

	t := &texture{extent: e, format: f, target: gl.TEXTURE_2D}
	if e.Is3D() {
		t.target = gl.TEXTURE_3D
	}

	gl.GenTextures(1, &t.id)
	if t.id == 0 {
		return nil, fmt.Errorf("%w: no texture name for %v", device.ErrAllocation, e)
	}
	clearErrors()
	gl.BindTexture(t.target, t.id)
	if e.Is3D() {
		gl.TexStorage3D(t.target, 1, internal, int32(e.W), int32(e.H), int32(e.D))
	} else {
		gl.TexStorage2D(t.target, 1, internal, int32(e.W), int32(e.H))
	}
	if err := checkAlloc(fmt.Sprintf("%s texture %v", f, e)); err != nil {
		gl.BindTexture(t.target, 0)
		gl.DeleteTextures(1, &t.id)
		return nil, err
	}

	// Integer textures must not use linear filtering.
	filter := int32(gl.LINEAR)
	if f == device.FormatR32UI {
		filter = gl.NEAREST
	}
	gl.TexParameteri(t.target, gl.TEXTURE_MIN_FILTER, filter)
	gl.TexParameteri(t.target, gl.TEXTURE_MAG_FILTER, filter)
	gl.TexParameteri(t.target, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(t.target, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.TexParameteri(t.target, gl.TEXTURE_WRAP_R, gl.REPEAT)
	gl.BindTexture(t.target, 0)

	// Storage contents are undefined until written.
	zero := make([]byte, e.Cells()*f.Channels()*4)
	_, format, xtype, _ := glFormat(f)
	t.upload(device.Origin{}, e, format, xtype, zero)
	return t, nil
}

func (t *texture) Extent() device.Extent { return t.extent }
func (t *texture) Format() device.Format { return t.format }

func (t *texture) Handle() device.Handle {
	return device.Handle{ID: t.id, Format: t.format, Extent: t.extent}
}

func (t *texture) upload(o device.Origin, r device.Extent, format, xtype uint32, ptr any) {
	gl.BindTexture(t.target, t.id)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 4)
	if t.extent.Is3D() {
		gl.TexSubImage3D(t.target, 0, int32(o.X), int32(o.Y), int32(o.Z),
			int32(r.W), int32(r.H), int32(r.D), format, xtype, gl.Ptr(ptr))
	} else {
		gl.TexSubImage2D(t.target, 0, int32(o.X), int32(o.Y),
			int32(r.W), int32(r.H), format, xtype, gl.Ptr(ptr))
	}
	gl.BindTexture(t.target, 0)
	barrier()
}

func (t *texture) WriteFloats(o device.Origin, r device.Extent, data []float32) error {
	if err := device.CheckWrite(t.extent, t.format, device.FormatRGBA32F, o, r, len(data)); err != nil {
		return err
	}
	if r.Empty() {
		return nil
	}
	t.upload(o, r, gl.RGBA, gl.FLOAT, data)
	return nil
}

func (t *texture) WriteUints(o device.Origin, r device.Extent, data []uint32) error {
	if err := device.CheckWrite(t.extent, t.format, device.FormatR32UI, o, r, len(data)); err != nil {
		return err
	}
	if r.Empty() {
		return nil
	}
	t.upload(o, r, gl.RED_INTEGER, gl.UNSIGNED_INT, data)
	return nil
}

func (t *texture) read(format device.Format, n int, ptr any) error {
	if t.format != format {
		return fmt.Errorf("%w: field is %s", device.ErrFormatMismatch, t.format)
	}
	want := t.extent.Cells() * t.format.Channels()
	if n != want {
		return fmt.Errorf("%w: want %d values, got %d", device.ErrSizeMismatch, want, n)
	}
	_, pf, xtype, _ := glFormat(t.format)
	barrier()
	gl.BindTexture(t.target, t.id)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 4)
	gl.GetTexImage(t.target, 0, pf, xtype, gl.Ptr(ptr))
	gl.BindTexture(t.target, 0)
	return nil
}

func (t *texture) ReadFloats(dst []float32) error {
	return t.read(device.FormatRGBA32F, len(dst), dst)
}

func (t *texture) ReadUints(dst []uint32) error {
	return t.read(device.FormatR32UI, len(dst), dst)
}

func (t *texture) BindImage(slot uint32) {
	internal, _, _, _ := glFormat(t.format)
	gl.BindImageTexture(slot, t.id, 0, t.extent.Is3D(), 0, gl.READ_WRITE, internal)
}

func (t *texture) CopyFrom(src device.Field) error {
	s, ok := src.(*texture)
	if !ok {
		return fmt.Errorf("%w: copy source is not a GL texture", device.ErrFormatMismatch)
	}
	if s.format != t.format {
		return fmt.Errorf("%w: %s into %s", device.ErrFormatMismatch, s.format, t.format)
	}
	if s.extent != t.extent {
		return fmt.Errorf("%w: %v into %v", device.ErrSizeMismatch, s.extent, t.extent)
	}
	gl.CopyImageSubData(
		s.id, s.target, 0, 0, 0, 0,
		t.id, t.target, 0, 0, 0, 0,
		int32(t.extent.W), int32(t.extent.H), int32(t.extent.D),
	)
	barrier()
	return nil
}

func (t *texture) Unload() {
	if t.id == 0 {
		return
	}
	gl.DeleteTextures(1, &t.id)
	t.id = 0
}
