package gpu

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-gl/gl/v4.3-core/gl"

	"github.com/pthm-cable/slime/device"
)

// kernel is a linked compute program.
type kernel struct {
	path    string
	program uint32
	local   [3]int
	groups  device.Groups
}

func loadKernel(path string) (*kernel, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", device.ErrUnknownKernel, err)
	}

	program, err := compileCompute(string(src))
	if err != nil {
		slog.Error("kernel compile failed", "path", path, "log", err.Error())
		return nil, fmt.Errorf("%w: %s", device.ErrInvalidKernel, path)
	}

	k := &kernel{path: path, program: program}
	var size [3]int32
	gl.GetProgramiv(program, gl.COMPUTE_WORK_GROUP_SIZE, &size[0])
	k.local = [3]int{int(size[0]), int(size[1]), int(size[2])}
	return k, nil
}

// compileCompute compiles and links a single compute stage. The returned
// error carries the driver's info log.
func compileCompute(source string) (uint32, error) {
	shader := gl.CreateShader(gl.COMPUTE_SHADER)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compile: %s", strings.TrimRight(log, "\x00"))
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, shader)
	gl.LinkProgram(program)
	gl.DeleteShader(shader)

	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link: %s", strings.TrimRight(log, "\x00"))
	}
	return program, nil
}

func (k *kernel) Path() string { return k.path }
func (k *kernel) Valid() bool { return k.program != 0 }
func (k *kernel) LocalSize() [3]int { return k.local }
func (k *kernel) SetWorkGroups(g device.Groups) { k.groups = g }
func (k *kernel) WorkGroups() device.Groups { return k.groups }

func (k *kernel) Location(name string) int32 {
	if k.program == 0 {
		return -1
	}
	return gl.GetUniformLocation(k.program, gl.Str(name+"\x00"))
}

func (k *kernel) SetInt(loc int32, v int32) {
	if k.program != 0 && loc >= 0 {
		gl.ProgramUniform1i(k.program, loc, v)
	}
}

func (k *kernel) SetFloat(loc int32, v float32) {
	if k.program != 0 && loc >= 0 {
		gl.ProgramUniform1f(k.program, loc, v)
	}
}

func (k *kernel) SetIVec3(loc int32, v [3]int32) {
	if k.program != 0 && loc >= 0 {
		gl.ProgramUniform3i(k.program, loc, v[0], v[1], v[2])
	}
}

func (k *kernel) SetVec4(loc int32, v [4]float32) {
	if k.program != 0 && loc >= 0 {
		gl.ProgramUniform4f(k.program, loc, v[0], v[1], v[2], v[3])
	}
}

func (k *kernel) DispatchAndWait() {
	if k.program == 0 || k.groups.Empty() {
		return
	}
	gl.UseProgram(k.program)
	gl.DispatchCompute(k.groups[0], k.groups[1], k.groups[2])
	barrier()
}

func (k *kernel) Unload() {
	if k.program == 0 {
		return
	}
	gl.DeleteProgram(k.program)
	k.program = 0
}
