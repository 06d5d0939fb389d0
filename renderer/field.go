package renderer

import (
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/slime/device"
	"github.com/pthm-cable/slime/view"
)

// Mode selects how texels become colours.
type Mode int

const (
	// ModeSpecies maps each channel to its species colour.
	ModeSpecies Mode = iota
	// ModeRaw draws the texel as an RGBA colour with alpha.
	ModeRaw
)

// hostTexture mirrors a host-resident field for display.
type hostTexture struct {
	tex    rl.Texture2D
	floats []float32
	pixels []color.RGBA
}

// FieldRenderer draws simulation fields as a full-window quad through the
// trail display shader. Device textures (non-zero handle ID) are sampled
// directly; host fields are read back and uploaded every frame.
type FieldRenderer struct {
	shaderPath  string
	shader      rl.Shader
	speciesLoc  [4]int32
	rawLoc      int32
	encodedLoc  int32
	exposureLoc int32

	palette [4][4]float32
	host    map[device.Field]*hostTexture

	// Exposure scales trail intensity before tone mapping.
	Exposure float32

	initialized bool
}

// NewFieldRenderer creates a renderer for the given display shader.
func NewFieldRenderer(shaderPath string, palette [4][4]float32) *FieldRenderer {
	return &FieldRenderer{
		shaderPath: shaderPath,
		palette:    palette,
		host:       make(map[device.Field]*hostTexture),
		Exposure:   0.5,
	}
}

// Init loads the shader (must be called after raylib window is created).
func (r *FieldRenderer) Init() {
	if r.initialized {
		return
	}
	r.shader = rl.LoadShader("", r.shaderPath)
	for i, name := range []string{"species0", "species1", "species2", "species3"} {
		r.speciesLoc[i] = rl.GetShaderLocation(r.shader, name)
	}
	r.rawLoc = rl.GetShaderLocation(r.shader, "rawColor")
	r.encodedLoc = rl.GetShaderLocation(r.shader, "encoded")
	r.exposureLoc = rl.GetShaderLocation(r.shader, "exposure")
	for i, c := range r.palette {
		rl.SetShaderValue(r.shader, r.speciesLoc[i], c[:], rl.ShaderUniformVec4)
	}
	r.initialized = true
}

// texture returns a drawable texture for f and whether its texels are
// 8-bit encoded.
func (r *FieldRenderer) texture(f device.Field, filter rl.TextureFilterMode) (rl.Texture2D, bool) {
	h := f.Handle()
	w, hh := int32(h.Extent.W), int32(h.Extent.H)
	if h.ID != 0 {
		return rl.Texture2D{ID: h.ID, Width: w, Height: hh, Mipmaps: 1, Format: rl.UncompressedR32g32b32a32}, false
	}

	ht, ok := r.host[f]
	if !ok {
		img := rl.GenImageColor(int(w), int(hh), rl.Blank)
		ht = &hostTexture{
			tex:    rl.LoadTextureFromImage(img),
			floats: make([]float32, h.Extent.Cells()*4),
			pixels: make([]color.RGBA, h.Extent.Cells()),
		}
		rl.UnloadImage(img)
		rl.SetTextureWrap(ht.tex, rl.WrapRepeat)
		rl.SetTextureFilter(ht.tex, filter)
		r.host[f] = ht
	}

	if err := f.ReadFloats(ht.floats); err == nil {
		packTexels(ht.floats, ht.pixels)
		rl.UpdateTexture(ht.tex, ht.pixels)
	}
	return ht.tex, true
}

// Draw renders the visible region of f over the whole window.
func (r *FieldRenderer) Draw(f device.Field, v *view.View, mode Mode) {
	if !r.initialized || f == nil {
		return
	}

	filter := rl.FilterBilinear
	if mode == ModeRaw {
		filter = rl.FilterPoint
	}
	tex, encoded := r.texture(f, filter)

	rl.SetShaderValue(r.shader, r.rawLoc, []float32{flag(mode == ModeRaw)}, rl.ShaderUniformFloat)
	rl.SetShaderValue(r.shader, r.encodedLoc, []float32{flag(encoded)}, rl.ShaderUniformFloat)
	rl.SetShaderValue(r.shader, r.exposureLoc, []float32{r.Exposure}, rl.ShaderUniformFloat)

	x, y, w, h := v.SourceRect()
	src := rl.Rectangle{X: x, Y: y, Width: w, Height: h}
	dst := rl.Rectangle{X: 0, Y: 0, Width: v.ViewportW, Height: v.ViewportH}

	rl.BeginShaderMode(r.shader)
	rl.DrawTexturePro(tex, src, dst, rl.Vector2{}, 0, rl.White)
	rl.EndShaderMode()
}

// DrawBrush outlines the square paint box centred on the cursor cell.
func (r *FieldRenderer) DrawBrush(v *view.View, radius float32, c color.RGBA) {
	cx, cy := v.CursorCell()
	sx, sy := v.GridToScreen(float32(cx)-radius, float32(cy)-radius)
	w, h := v.CellSize(2*radius + 1)
	rl.DrawRectangleLinesEx(rl.Rectangle{X: sx, Y: sy, Width: w, Height: h}, 1, c)
}

// Unload frees GPU resources. Device-owned textures are left alone.
func (r *FieldRenderer) Unload() {
	if !r.initialized {
		return
	}
	for f, ht := range r.host {
		rl.UnloadTexture(ht.tex)
		delete(r.host, f)
	}
	rl.UnloadShader(r.shader)
	r.initialized = false
}

func flag(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

// packTexels encodes RGBA float texels as v/(1+v) in 8 bits per channel,
// which keeps unbounded trail values displayable.
func packTexels(src []float32, dst []color.RGBA) {
	enc := func(v float32) uint8 {
		if !(v > 0) {
			return 0
		}
		return uint8(v / (1 + v) * 255)
	}
	for i := range dst {
		if i*4+3 >= len(src) {
			return
		}
		dst[i] = color.RGBA{
			R: enc(src[i*4]),
			G: enc(src[i*4+1]),
			B: enc(src[i*4+2]),
			A: enc(src[i*4+3]),
		}
	}
}
