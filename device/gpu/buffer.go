package gpu

import (
	"fmt"
	"reflect"

	"github.com/go-gl/gl/v4.3-core/gl"

	"github.com/pthm-cable/slime/device"
)

// buffer is a shader storage buffer of fixed-size records.
type buffer struct {
	id     uint32
	count  int
	stride int
	elem   reflect.Type
}

func newBuffer(data any, count, stride int) (*buffer, error) {
	b := &buffer{count: count, stride: stride}
	var ptr any
	if data != nil && count > 0 {
		v := reflect.ValueOf(data)
		if v.Kind() != reflect.Slice {
			return nil, fmt.Errorf("%w: buffer data must be a slice, got %T", device.ErrFormatMismatch, data)
		}
		if v.Len() != count || int(v.Type().Elem().Size()) != stride {
			return nil, fmt.Errorf("%w: %d records of %d bytes declared, %d of %d given",
				device.ErrSizeMismatch, count, stride, v.Len(), v.Type().Elem().Size())
		}
		b.elem = v.Type().Elem()
		ptr = data
	}

	gl.GenBuffers(1, &b.id)
	if b.id == 0 {
		return nil, fmt.Errorf("%w: no buffer name for %d records", device.ErrAllocation, count)
	}
	clearErrors()
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, b.id)
	size := count * stride
	if size == 0 {
		// Binding a zero-sized store is an error; keep one record of room.
		size = max(stride, 4)
	}
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, size, gl.Ptr(ptr), gl.DYNAMIC_COPY)
	err := checkAlloc(fmt.Sprintf("storage buffer of %d bytes", size))
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, 0)
	if err != nil {
		gl.DeleteBuffers(1, &b.id)
		return nil, err
	}
	return b, nil
}

func (b *buffer) Len() int    { return b.count }
func (b *buffer) Stride() int { return b.stride }

func (b *buffer) BindStorage(slot uint32) {
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, slot, b.id)
}

func (b *buffer) Read(dst any) error {
	if b.count == 0 {
		return nil
	}
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Slice || v.Type().Elem() != b.elem {
		return fmt.Errorf("%w: buffer holds %s, got %T", device.ErrFormatMismatch, b.elem, dst)
	}
	if v.Len() != b.count {
		return fmt.Errorf("%w: want %d records, got %d", device.ErrSizeMismatch, b.count, v.Len())
	}
	barrier()
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, b.id)
	gl.GetBufferSubData(gl.SHADER_STORAGE_BUFFER, 0, b.count*b.stride, gl.Ptr(dst))
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, 0)
	return nil
}

func (b *buffer) Unload() {
	if b.id == 0 {
		return
	}
	gl.DeleteBuffers(1, &b.id)
	b.id = 0
}
