package viewport

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/richinsley/godistortion/graphics"
)

func TestClampPixelRatio(t *testing.T) {
	assert.Equal(t, 1.0, ClampPixelRatio(0.5))
	assert.Equal(t, 1.0, ClampPixelRatio(math.NaN()))
	assert.Equal(t, 1.5, ClampPixelRatio(1.5))
	assert.Equal(t, 2.0, ClampPixelRatio(3))
}

func TestNew(t *testing.T) {
	v := New(graphics.Rect{Width: 800, Height: 400}, 3)
	assert.Equal(t, 2.0, v.PixelRatio)
	assert.Equal(t, 2.0, v.Aspect)

	w, h := v.FramebufferSize()
	assert.Equal(t, 1600, w)
	assert.Equal(t, 800, h)
	assert.Equal(t, [2]float32{1600, 800}, v.Resolution())

	pw, ph := v.PlaneSize()
	assert.Equal(t, float32(4), pw)
	assert.Equal(t, float32(2), ph)
}

func TestNewZeroBounds(t *testing.T) {
	v := New(graphics.Rect{}, 1)
	assert.Equal(t, 1.0, v.Width)
	assert.Equal(t, 1.0, v.Height)
	assert.Equal(t, 1.0, v.Aspect)
}

func TestProjectionFillsView(t *testing.T) {
	v := New(graphics.Rect{Width: 1280, Height: 720}, 1)
	m := v.Projection()
	pw, ph := v.PlaneSize()

	x, y := Apply(m, pw/2, ph/2)
	assert.InDelta(t, 1.0, x, 1e-5)
	assert.InDelta(t, 1.0, y, 1e-5)

	x, y = Apply(m, -pw/2, -ph/2)
	assert.InDelta(t, -1.0, x, 1e-5)
	assert.InDelta(t, -1.0, y, 1e-5)

	x, y = Apply(m, 0, 0)
	assert.InDelta(t, 0, x, 1e-6)
	assert.InDelta(t, 0, y, 1e-6)
}

func TestProjectionDepthInsideClipRange(t *testing.T) {
	m := New(graphics.Rect{Width: 100, Height: 100}, 1).Projection()
	// the plane sits at z=0, one unit in front of the camera
	z := m[2]*0 + m[6]*0 + m[10]*0 + m[14]
	assert.Greater(t, z, float32(-1))
	assert.Less(t, z, float32(1))
}
