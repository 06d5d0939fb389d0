package gpu

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.3-core/gl"

	"github.com/pthm-cable/slime/device"
)

// maxErrors bounds the error queue drain; a lost context reports errors
// forever.
const maxErrors = 16

// pendingErrors drains the GL error queue.
func pendingErrors() []uint32 {
	var codes []uint32
	for i := 0; i < maxErrors; i++ {
		code := gl.GetError()
		if code == gl.NO_ERROR {
			break
		}
		codes = append(codes, code)
	}
	return codes
}

// clearErrors discards errors raised by earlier calls so the next check
// only sees its own.
func clearErrors() { pendingErrors() }

// checkAlloc reports any error raised by the storage call just made.
func checkAlloc(what string) error {
	return allocError(what, pendingErrors())
}

// allocError wraps GL error codes from a storage call as ErrAllocation.
func allocError(what string, codes []uint32) error {
	if len(codes) == 0 {
		return nil
	}
	names := make([]string, len(codes))
	for i, c := range codes {
		names[i] = errorName(c)
	}
	return fmt.Errorf("%w: %s: %s", device.ErrAllocation, what, strings.Join(names, ", "))
}

func errorName(code uint32) string {
	switch code {
	case gl.OUT_OF_MEMORY:
		return "GL_OUT_OF_MEMORY"
	case gl.INVALID_VALUE:
		return "GL_INVALID_VALUE"
	case gl.INVALID_ENUM:
		return "GL_INVALID_ENUM"
	case gl.INVALID_OPERATION:
		return "GL_INVALID_OPERATION"
	default:
		return fmt.Sprintf("GL error 0x%04x", code)
	}
}
