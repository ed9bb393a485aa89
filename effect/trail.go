package effect

import (
	"fmt"

	"github.com/richinsley/godistortion/gpu"
	"github.com/richinsley/godistortion/input"
	"github.com/richinsley/godistortion/shader"
	"github.com/richinsley/godistortion/viewport"
)

// Trail accumulates a fading pointer trail in a feedback buffer, blurs it
// and composites it over the video. Passes per frame, in order:
//
//	trail:     previous trail  -> trail write target
//	blur-h:    trail write     -> blurH
//	blur-v:    blurH           -> blurV
//	composite: video + blurV   -> screen
//
// after which the trail targets are swapped.
type Trail struct {
	dev       gpu.Device
	trailProg gpu.Program
	blurProg  gpu.Program
	compProg  gpu.Program
	plane     gpu.Geometry

	trail *gpu.PingPong
	blurH gpu.RenderTarget
	blurV gpu.RenderTarget

	video   gpu.Texture
	pointer input.State
}

// NewTrail creates an uninitialized trail effect.
func NewTrail() *Trail {
	return &Trail{}
}

func (t *Trail) Init(dev gpu.Device, vp viewport.Viewport) error {
	t.dev = dev
	programs := []struct {
		dst  *gpu.Program
		name string
		fs   string
	}{
		{&t.trailProg, shader.Trail, shader.TrailFragment},
		{&t.blurProg, shader.Blur, shader.BlurFragment},
		{&t.compProg, shader.Composite, shader.CompositeFragment},
	}
	for _, p := range programs {
		prog, err := dev.NewProgram(p.name, shader.PlaneVertex, p.fs)
		if err != nil {
			t.Dispose()
			return fmt.Errorf("failed to create %s program: %w", p.name, err)
		}
		*p.dst = prog
	}
	if err := t.OnResize(vp); err != nil {
		t.Dispose()
		return err
	}
	return nil
}

// OnResize disposes the plane and every render target, then allocates them
// at the new framebuffer size. The trail history is lost.
func (t *Trail) OnResize(vp viewport.Viewport) error {
	t.disposeTargets()

	w, h := vp.PlaneSize()
	plane, err := t.dev.NewPlane(w, h, 1, 1)
	if err != nil {
		return fmt.Errorf("failed to create trail plane: %w", err)
	}
	t.plane = plane

	fw, fh := vp.FramebufferSize()
	if t.trail, err = gpu.NewPingPong(t.dev, fw, fh); err != nil {
		t.disposeTargets()
		return fmt.Errorf("failed to create trail targets: %w", err)
	}
	if t.blurH, err = t.dev.NewRenderTarget(fw, fh); err != nil {
		t.disposeTargets()
		return fmt.Errorf("failed to create blur target: %w", err)
	}
	if t.blurV, err = t.dev.NewRenderTarget(fw, fh); err != nil {
		t.disposeTargets()
		return fmt.Errorf("failed to create blur target: %w", err)
	}
	return nil
}

func (t *Trail) OnPointer(s input.State) {
	t.pointer = s
}

func (t *Trail) SetVideo(tex gpu.Texture) {
	t.video = tex
}

func (t *Trail) OnFrame(f Frame) error {
	if t.video == nil {
		return ErrNoVideo
	}
	if t.trail == nil {
		return fmt.Errorf("trail: %w", gpu.ErrDisposed)
	}
	p := f.Params
	proj := f.Viewport.Projection()
	res := f.Viewport.Resolution()

	var active float32
	if t.pointer.Active {
		active = 1
	}
	write := t.trail.Write()
	if err := t.draw(write, t.trailProg, gpu.Uniforms{
		"u_projection":    proj,
		"u_resolution":    res,
		"u_previousTrail": t.trail.Read().Texture(),
		"u_mouse":         f.Mouse.Float32(),
		"u_previousMouse": f.PreviousMouse.Float32(),
		"u_trailRadius":   float32(p.TrailRadius),
		"u_fadeSpeed":     float32(p.FadeSpeed),
		"u_intensity":     float32(p.TrailIntensity),
		"u_isActive":      active,
	}, nil); err != nil {
		return err
	}

	blur := func(dst gpu.RenderTarget, src gpu.Texture, horizontal bool) error {
		return t.draw(dst, t.blurProg, gpu.Uniforms{
			"u_projection":   proj,
			"u_resolution":   res,
			"u_inputTexture": src,
			"u_blurRadius":   float32(p.BlurRadius),
			"u_horizontal":   horizontal,
		}, nil)
	}
	if err := blur(t.blurH, write.Texture(), true); err != nil {
		return err
	}
	if err := blur(t.blurV, t.blurH.Texture(), false); err != nil {
		return err
	}

	bg := p.Background
	if err := t.draw(nil, t.compProg, gpu.Uniforms{
		"u_projection":     proj,
		"u_resolution":     res,
		"u_videoTexture":   t.video,
		"u_trailTexture":   t.blurV.Texture(),
		"u_trailColor":     [3]float32{p.Trail[0], p.Trail[1], p.Trail[2]},
		"u_trailIntensity": float32(p.TrailIntensity),
		"u_trailBlend":     float32(p.TrailBlend),
	}, &bg); err != nil {
		return err
	}

	t.trail.Swap()
	return nil
}

func (t *Trail) draw(target gpu.RenderTarget, prog gpu.Program, u gpu.Uniforms, clear *[4]float32) error {
	if err := t.dev.Draw(gpu.DrawCall{
		Target:   target,
		Program:  prog,
		Geometry: t.plane,
		Uniforms: u,
		Clear:    clear,
	}); err != nil {
		return fmt.Errorf("%s pass: %w", prog.Name(), err)
	}
	return nil
}

func (t *Trail) disposeTargets() {
	for _, r := range []gpu.Resource{t.plane, t.blurH, t.blurV} {
		if r != nil {
			r.Dispose()
		}
	}
	t.plane, t.blurH, t.blurV = nil, nil, nil
	if t.trail != nil {
		t.trail.Dispose()
		t.trail = nil
	}
}

func (t *Trail) Dispose() {
	t.disposeTargets()
	for _, p := range []*gpu.Program{&t.trailProg, &t.blurProg, &t.compProg} {
		if *p != nil {
			(*p).Dispose()
			*p = nil
		}
	}
	t.video = nil
}
