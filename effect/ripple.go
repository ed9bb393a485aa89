package effect

import (
	"fmt"

	"github.com/richinsley/godistortion/gpu"
	"github.com/richinsley/godistortion/input"
	"github.com/richinsley/godistortion/shader"
	"github.com/richinsley/godistortion/viewport"
)

// RippleSegments is the subdivision of the ripple plane on each axis.
const RippleSegments = 64

// Ripple distorts the video around the pointer in a single pass.
type Ripple struct {
	dev     gpu.Device
	program gpu.Program
	plane   gpu.Geometry
	video   gpu.Texture

	// steady ignores idle decay and always ripples at full strength.
	steady bool
}

// NewRipple creates an uninitialized ripple effect that fades out while the
// pointer is idle.
func NewRipple() *Ripple {
	return &Ripple{}
}

// NewLegacyRipple creates a ripple that never fades.
func NewLegacyRipple() *Ripple {
	return &Ripple{steady: true}
}

func (r *Ripple) Init(dev gpu.Device, vp viewport.Viewport) error {
	r.dev = dev
	prog, err := dev.NewProgram(shader.Ripple, shader.PlaneVertex, shader.RippleFragment)
	if err != nil {
		return fmt.Errorf("failed to create ripple program: %w", err)
	}
	r.program = prog
	if err := r.OnResize(vp); err != nil {
		r.Dispose()
		return err
	}
	return nil
}

func (r *Ripple) OnResize(vp viewport.Viewport) error {
	if r.plane != nil {
		r.plane.Dispose()
		r.plane = nil
	}
	w, h := vp.PlaneSize()
	plane, err := r.dev.NewPlane(w, h, RippleSegments, RippleSegments)
	if err != nil {
		return fmt.Errorf("failed to create ripple plane: %w", err)
	}
	r.plane = plane
	return nil
}

// OnPointer is a no-op; the ripple follows the smoothed pointer in Frame.
func (r *Ripple) OnPointer(input.State) {}

func (r *Ripple) SetVideo(tex gpu.Texture) {
	r.video = tex
}

func (r *Ripple) OnFrame(f Frame) error {
	if r.video == nil {
		return ErrNoVideo
	}
	p := f.Params
	bg := p.Background
	intensity := f.Intensity
	if r.steady {
		intensity = 1
	}
	return r.dev.Draw(gpu.DrawCall{
		Program:  r.program,
		Geometry: r.plane,
		Clear:    &bg,
		Uniforms: gpu.Uniforms{
			"u_projection":      f.Viewport.Projection(),
			"u_resolution":      f.Viewport.Resolution(),
			"u_videoTexture":    r.video,
			"u_mouse":           f.Mouse.Float32(),
			"u_time":            float32(f.Time),
			"u_rippleStrength":  float32(p.RippleStrength),
			"u_rippleSpeed":     float32(p.RippleSpeed),
			"u_rippleRadius":    float32(p.RippleRadius),
			"u_rippleIntensity": float32(intensity),
		},
	})
}

func (r *Ripple) Dispose() {
	if r.plane != nil {
		r.plane.Dispose()
		r.plane = nil
	}
	if r.program != nil {
		r.program.Dispose()
		r.program = nil
	}
	r.video = nil
}
