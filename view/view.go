// Package view holds the display and pointer state the shell passes to the
// renderer and to wall painting: window size, grid size, zoom, pan and the
// cursor. Nothing here reads window globals; the shell feeds it each frame.
package view

import "math"

// View maps between screen pixels and grid cells. At zoom 1 the whole grid
// is stretched over the viewport. The grid is toroidal, so panning wraps.
type View struct {
	// Centre of the view in grid coordinates
	X, Y float32

	// Zoom level (1.0 = whole grid, 2.0 = half the grid per axis)
	Zoom float32

	// Viewport dimensions (screen size)
	ViewportW, ViewportH float32

	// Grid dimensions in cells
	GridW, GridH float32

	// Zoom constraints
	MinZoom, MaxZoom float32

	// Cursor position in screen pixels
	CursorX, CursorY float32
}

// New creates a view centred on the grid showing all of it.
func New(viewportW, viewportH float32, gridW, gridH int) *View {
	return &View{
		X:         float32(gridW) / 2,
		Y:         float32(gridH) / 2,
		Zoom:      1.0,
		ViewportW: viewportW,
		ViewportH: viewportH,
		GridW:     float32(gridW),
		GridH:     float32(gridH),
		MinZoom:   1.0,
		MaxZoom:   16.0,
	}
}

// Scale returns screen pixels per grid cell along each axis.
func (v *View) Scale() (sx, sy float32) {
	return v.ViewportW / v.GridW * v.Zoom, v.ViewportH / v.GridH * v.Zoom
}

// GridToScreen converts grid coordinates to screen coordinates along the
// shortest toroidal path from the view centre.
func (v *View) GridToScreen(gx, gy float32) (sx, sy float32) {
	kx, ky := v.Scale()
	dx := toroidalDelta(gx, v.X, v.GridW)
	dy := toroidalDelta(gy, v.Y, v.GridH)
	return v.ViewportW/2 + dx*kx, v.ViewportH/2 + dy*ky
}

// ScreenToGrid converts screen coordinates to wrapped grid coordinates.
func (v *View) ScreenToGrid(sx, sy float32) (gx, gy float32) {
	kx, ky := v.Scale()
	dx := (sx - v.ViewportW/2) / kx
	dy := (sy - v.ViewportH/2) / ky
	return mod(v.X+dx, v.GridW), mod(v.Y+dy, v.GridH)
}

// SetCursor records the pointer position in screen pixels.
func (v *View) SetCursor(sx, sy float32) {
	v.CursorX, v.CursorY = sx, sy
}

// CursorCell returns the grid cell under the cursor.
func (v *View) CursorCell() (x, y int) {
	gx, gy := v.ScreenToGrid(v.CursorX, v.CursorY)
	x, y = int(gx), int(gy)
	// float rounding can land exactly on the far edge
	if x >= int(v.GridW) {
		x = 0
	}
	if y >= int(v.GridH) {
		y = 0
	}
	return x, y
}

// CellSize returns the on-screen size of radius cells, for brush outlines.
func (v *View) CellSize(radius float32) (w, h float32) {
	kx, ky := v.Scale()
	return radius * kx, radius * ky
}

// SourceRect returns the visible grid region as (x, y, w, h). The origin may
// be negative or the extent may pass the far edge; a repeating texture
// sampler wraps it.
func (v *View) SourceRect() (x, y, w, h float32) {
	w = v.GridW / v.Zoom
	h = v.GridH / v.Zoom
	return v.X - w/2, v.Y - h/2, w, h
}

// Resize updates viewport dimensions.
func (v *View) Resize(viewportW, viewportH float32) {
	v.ViewportW = viewportW
	v.ViewportH = viewportH
}

// Pan moves the view by the given delta in screen pixels.
// Automatically wraps around grid boundaries.
func (v *View) Pan(dx, dy float32) {
	kx, ky := v.Scale()
	v.X = mod(v.X+dx/kx, v.GridW)
	v.Y = mod(v.Y+dy/ky, v.GridH)
}

// SetZoom sets the zoom level, clamped to min/max.
func (v *View) SetZoom(zoom float32) {
	v.Zoom = clamp(zoom, v.MinZoom, v.MaxZoom)
}

// ZoomBy multiplies the current zoom by the given factor.
func (v *View) ZoomBy(factor float32) {
	v.SetZoom(v.Zoom * factor)
}

// Reset returns the view to the default position and zoom.
func (v *View) Reset() {
	v.X = v.GridW / 2
	v.Y = v.GridH / 2
	v.Zoom = 1.0
}

// toroidalDelta computes the shortest signed distance from 'from' to 'to'
// in a toroidal space of the given size.
func toroidalDelta(to, from, size float32) float32 {
	d := to - from
	if d > size/2 {
		d -= size
	} else if d < -size/2 {
		d += size
	}
	return d
}

// mod computes the positive modulo (Go's % can return negative).
func mod(x, m float32) float32 {
	r := float32(math.Mod(float64(x), float64(m)))
	if r < 0 {
		r += m
	}
	return r
}

// clamp restricts a value to a range.
func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
