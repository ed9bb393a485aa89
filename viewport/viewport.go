// Package viewport tracks the container size and derives the pixel ratio,
// aspect ratio, framebuffer size and projection the engine renders with.
package viewport

import (
	"math"

	"github.com/richinsley/godistortion/graphics"
)

// MaxPixelRatio caps the device pixel ratio used for the drawable.
const MaxPixelRatio = 2.0

// FrustumHeight is the height of the orthographic view volume. The plane is
// FrustumHeight tall and FrustumHeight*Aspect wide so it fills the view.
const FrustumHeight = 2.0

// Viewport is the engine's view configuration, recomputed on resize.
type Viewport struct {
	Width      float64 // container width in CSS pixels
	Height     float64 // container height in CSS pixels
	PixelRatio float64
	Aspect     float64
}

// ClampPixelRatio limits a device pixel ratio to [1, MaxPixelRatio].
func ClampPixelRatio(dpr float64) float64 {
	if math.IsNaN(dpr) || dpr < 1 {
		return 1
	}
	return math.Min(dpr, MaxPixelRatio)
}

// FromHost computes the viewport for the host's current bounds. Zero-sized
// bounds are treated as one pixel so the aspect stays finite.
func FromHost(h graphics.Host) Viewport {
	return New(h.Bounds(), h.PixelRatio())
}

// New computes a viewport from a bounding rectangle and device pixel ratio.
func New(bounds graphics.Rect, dpr float64) Viewport {
	w := math.Max(bounds.Width, 1)
	ht := math.Max(bounds.Height, 1)
	return Viewport{
		Width:      w,
		Height:     ht,
		PixelRatio: ClampPixelRatio(dpr),
		Aspect:     w / ht,
	}
}

// FramebufferSize returns the drawable size in device pixels.
func (v Viewport) FramebufferSize() (int, int) {
	return int(math.Round(v.Width * v.PixelRatio)), int(math.Round(v.Height * v.PixelRatio))
}

// Resolution returns the framebuffer size as a vec2 uniform.
func (v Viewport) Resolution() [2]float32 {
	w, h := v.FramebufferSize()
	return [2]float32{float32(w), float32(h)}
}

// PlaneSize returns the width and height of the plane that exactly fills the
// orthographic frustum.
func (v Viewport) PlaneSize() (float32, float32) {
	return float32(FrustumHeight * v.Aspect), FrustumHeight
}

// Projection returns the column-major orthographic projection for a frustum
// of height FrustumHeight and width FrustumHeight*Aspect, with the camera at
// z=1 looking down -z (near 0.1, far 1000).
func (v Viewport) Projection() [16]float32 {
	halfW := FrustumHeight * v.Aspect / 2
	halfH := FrustumHeight / 2.0
	return Ortho(-halfW, halfW, -halfH, halfH, 0.1, 1000, 1)
}

// Ortho builds a column-major orthographic projection. eyeZ translates the
// view so that a camera at (0, 0, eyeZ) looks down -z.
func Ortho(left, right, bottom, top, near, far, eyeZ float64) [16]float32 {
	rl := right - left
	tb := top - bottom
	fn := far - near
	m := [16]float32{
		float32(2 / rl), 0, 0, 0,
		0, float32(2 / tb), 0, 0,
		0, 0, float32(-2 / fn), 0,
		float32(-(right + left) / rl), float32(-(top + bottom) / tb), float32(-(far + near) / fn), 1,
	}
	// fold the view translation (0, 0, -eyeZ) into the last column
	m[14] += m[10] * float32(-eyeZ)
	return m
}

// Apply multiplies the projection by a point (x, y, 0, 1) and returns the
// resulting clip-space x and y.
func Apply(m [16]float32, x, y float32) (float32, float32) {
	cx := m[0]*x + m[4]*y + m[12]
	cy := m[1]*x + m[5]*y + m[13]
	w := m[3]*x + m[7]*y + m[15]
	return cx / w, cy / w
}
