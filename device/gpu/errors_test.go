package gpu

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-gl/gl/v4.3-core/gl"

	"github.com/pthm-cable/slime/device"
)

func TestAllocError(t *testing.T) {
	if err := allocError("texture", nil); err != nil {
		t.Errorf("expected nil for an empty error queue, got %v", err)
	}

	tests := []struct {
		name  string
		codes []uint32
		want  string
	}{
		{"out of memory", []uint32{gl.OUT_OF_MEMORY}, "GL_OUT_OF_MEMORY"},
		{"size over the limit", []uint32{gl.INVALID_VALUE}, "GL_INVALID_VALUE"},
		{"several", []uint32{gl.INVALID_OPERATION, 0x9999}, "GL_INVALID_OPERATION, GL error 0x9999"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := allocError("rgba32f texture 4096x4096", tt.codes)
			if !errors.Is(err, device.ErrAllocation) {
				t.Fatalf("expected ErrAllocation, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %q in %q", tt.want, err.Error())
			}
		})
	}
}
