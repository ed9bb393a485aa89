// Package gpu is the small slice of a GPU API the effects need: programs,
// a plane geometry, textures, render targets and a draw call. GLDevice backs
// it with OpenGL; gputest provides a recording fake.
package gpu

import (
	"errors"
	"image"
)

// ErrDisposed is returned when a disposed resource is used.
var ErrDisposed = errors.New("gpu resource disposed")

// Resource is anything with an explicit lifetime. Dispose is idempotent.
type Resource interface {
	Dispose()
}

// Texture is a sampled 2D image.
type Texture interface {
	Resource
	Size() (int, int)
}

// RenderTarget is an off-screen color buffer that can be drawn into and then
// sampled through Texture.
type RenderTarget interface {
	Resource
	Texture() Texture
	Size() (int, int)
}

// Program is a linked vertex + fragment shader pair.
type Program interface {
	Resource
	Name() string
}

// Geometry is a vertex/index buffer pair.
type Geometry interface {
	Resource
}

// FrameSource feeds a streaming texture. ReadFrame calls fn with the latest
// frame only when its sequence number differs from lastSeq, and returns the
// sequence number of the frame it holds (0 when it has none). fn must not
// retain pix.
type FrameSource interface {
	ReadFrame(lastSeq uint64, fn func(pix []byte, width, height int)) uint64
}

// Refresher is a texture whose contents are pulled from a FrameSource.
type Refresher interface {
	Refresh()
}

// RefreshTextures brings every streaming texture in u up to date. Devices
// call it before binding any texture unit, since an upload rebinds the
// active unit.
func RefreshTextures(u Uniforms) {
	for _, v := range u {
		if r, ok := v.(Refresher); ok {
			r.Refresh()
		}
	}
}

// Uniforms maps uniform names to values. Supported value types are float32,
// int32, bool, [2]float32, [3]float32, [4]float32, [16]float32 (column-major
// mat4) and Texture.
type Uniforms map[string]any

// DrawCall describes one pass. A nil Target draws to the visible drawable.
type DrawCall struct {
	Target   RenderTarget
	Program  Program
	Geometry Geometry
	Uniforms Uniforms
	Clear    *[4]float32
}

// Device creates GPU resources and executes draw calls.
type Device interface {
	// NewProgram compiles a program from WebGL2 (GLSL ES 3.00) sources.
	NewProgram(name, vertexSrc, fragmentSrc string) (Program, error)
	// NewPlane creates a width×height plane in the XY plane centred on the
	// origin, subdivided into segX×segY quads.
	NewPlane(width, height float32, segX, segY int) (Geometry, error)
	// NewTexture uploads a static image.
	NewTexture(img *image.RGBA) (Texture, error)
	// NewStreamTexture creates a texture that pulls new frames from src
	// whenever it is bound for drawing.
	NewStreamTexture(src FrameSource) (Texture, error)
	// NewRenderTarget allocates a cleared floating-point color buffer.
	NewRenderTarget(width, height int) (RenderTarget, error)
	// Resize sets the visible drawable's size in pixels.
	Resize(width, height int)
	// Draw executes one pass.
	Draw(call DrawCall) error
	// Destroy releases device-level state. Resources must be disposed first.
	Destroy()
}

// PlaneVertices returns the interleaved XY positions and triangle indices of
// a subdivided plane.
func PlaneVertices(width, height float32, segX, segY int) ([]float32, []uint32) {
	if segX < 1 {
		segX = 1
	}
	if segY < 1 {
		segY = 1
	}
	verts := make([]float32, 0, (segX+1)*(segY+1)*2)
	for iy := 0; iy <= segY; iy++ {
		y := height/2 - float32(iy)*height/float32(segY)
		for ix := 0; ix <= segX; ix++ {
			x := -width/2 + float32(ix)*width/float32(segX)
			verts = append(verts, x, y)
		}
	}
	indices := make([]uint32, 0, segX*segY*6)
	row := uint32(segX + 1)
	for iy := 0; iy < segY; iy++ {
		for ix := 0; ix < segX; ix++ {
			a := uint32(iy)*row + uint32(ix)
			b := a + row
			indices = append(indices, a, b, a+1, b, b+1, a+1)
		}
	}
	return verts, indices
}
