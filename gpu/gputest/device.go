// Package gputest provides a recording gpu.Device for tests.
package gputest

import (
	"errors"
	"fmt"
	"image"
	"sort"
	"sync"

	"github.com/richinsley/godistortion/gpu"
)

// ErrInjected is returned by operations configured to fail.
var ErrInjected = errors.New("injected gpu failure")

// Draw is one recorded draw call.
type Draw struct {
	Target   int // 0 for the screen, otherwise the render target ID
	Program  string
	Uniforms gpu.Uniforms
	Clear    *[4]float32
}

// TextureID returns the ID of the texture bound to a uniform, or 0.
func (d Draw) TextureID(name string) int {
	if t, ok := d.Uniforms[name].(*Texture); ok {
		return t.ID
	}
	return 0
}

// Device records draw calls and tracks live resources.
type Device struct {
	mu sync.Mutex

	// FailProgram makes NewProgram fail for the named program.
	FailProgram string
	// FailRenderTarget makes NewRenderTarget fail.
	FailRenderTarget bool

	Width, Height int
	Destroyed     bool

	draws  []Draw
	ops    []string
	nextID int
	live   map[int]string
}

// New creates an empty recording device.
func New() *Device {
	return &Device{live: make(map[int]string)}
}

func (d *Device) alloc(kind string) int {
	d.nextID++
	d.live[d.nextID] = kind
	return d.nextID
}

func (d *Device) release(id int) {
	d.mu.Lock()
	delete(d.live, id)
	d.mu.Unlock()
}

// Live returns the number of undisposed resources of kind ("program",
// "geometry", "texture", "stream", "target"), or of all kinds when kind is "".
func (d *Device) Live(kind string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, k := range d.live {
		if kind == "" || k == kind {
			n++
		}
	}
	return n
}

// Draws returns the recorded draw calls.
func (d *Device) Draws() []Draw {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Draw(nil), d.draws...)
}

// Programs returns the program names of the recorded draws in order.
func (d *Device) Programs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, len(d.draws))
	for i, dr := range d.draws {
		names[i] = dr.Program
	}
	return names
}

// Ops returns the texture operations of every draw in order: "refresh <id>"
// when a stream texture pulled a new frame and "bind <uniform>" when a
// texture was bound to a unit.
func (d *Device) Ops() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.ops...)
}

func (d *Device) op(format string, args ...any) {
	d.mu.Lock()
	d.ops = append(d.ops, fmt.Sprintf(format, args...))
	d.mu.Unlock()
}

// Reset forgets recorded draws and ops.
func (d *Device) Reset() {
	d.mu.Lock()
	d.draws = nil
	d.ops = nil
	d.mu.Unlock()
}

type resource struct {
	dev      *Device
	ID       int
	disposed bool
}

func (r *resource) Dispose() {
	if r.disposed {
		return
	}
	r.disposed = true
	r.dev.release(r.ID)
}

// Program is a fake program.
type Program struct {
	resource
	name string
}

func (p *Program) Name() string { return p.name }

// Geometry is a fake plane.
type Geometry struct {
	resource
	Width, Height float32
	SegX, SegY    int
}

// Texture is a fake texture. Stream textures pull from Source on every draw,
// before any texture is bound.
type Texture struct {
	resource
	W, H   int
	Source gpu.FrameSource
	Seq    uint64
	// Uploads counts frames pulled from Source.
	Uploads int
}

func (t *Texture) Size() (int, int) { return t.W, t.H }

// Refresh pulls the latest frame from Source. Static textures ignore it.
func (t *Texture) Refresh() {
	if t.Source == nil || t.disposed {
		return
	}
	t.Seq = t.Source.ReadFrame(t.Seq, func(_ []byte, w, h int) {
		t.W, t.H = w, h
		t.Uploads++
		t.dev.op("refresh %d", t.ID)
	})
}

// Target is a fake render target.
type Target struct {
	resource
	tex *Texture
}

func (t *Target) Texture() gpu.Texture { return t.tex }

func (t *Target) Size() (int, int) { return t.tex.Size() }

func (t *Target) Dispose() {
	t.resource.Dispose()
	t.tex.Dispose()
}

func (d *Device) NewProgram(name, vertexSrc, fragmentSrc string) (gpu.Program, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailProgram == name {
		return nil, fmt.Errorf("program %s: %w", name, ErrInjected)
	}
	if vertexSrc == "" || fragmentSrc == "" {
		return nil, fmt.Errorf("program %s: empty source", name)
	}
	return &Program{resource: resource{dev: d, ID: d.alloc("program")}, name: name}, nil
}

func (d *Device) NewPlane(width, height float32, segX, segY int) (gpu.Geometry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return &Geometry{
		resource: resource{dev: d, ID: d.alloc("geometry")},
		Width:    width, Height: height, SegX: segX, SegY: segY,
	}, nil
}

func (d *Device) NewTexture(img *image.RGBA) (gpu.Texture, error) {
	if img == nil {
		return nil, errors.New("texture image is nil")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	size := img.Rect.Size()
	return &Texture{resource: resource{dev: d, ID: d.alloc("texture")}, W: size.X, H: size.Y}, nil
}

func (d *Device) NewStreamTexture(src gpu.FrameSource) (gpu.Texture, error) {
	if src == nil {
		return nil, errors.New("stream texture source is nil")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return &Texture{resource: resource{dev: d, ID: d.alloc("stream")}, Source: src}, nil
}

func (d *Device) NewRenderTarget(width, height int) (gpu.RenderTarget, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailRenderTarget {
		return nil, fmt.Errorf("render target: %w", ErrInjected)
	}
	id := d.alloc("target")
	// the backing texture is owned by the target and not counted separately
	tex := &Texture{resource: resource{dev: d, ID: id}, W: width, H: height}
	return &Target{resource: resource{dev: d, ID: id}, tex: tex}, nil
}

func (d *Device) Resize(width, height int) {
	d.mu.Lock()
	d.Width, d.Height = width, height
	d.mu.Unlock()
}

func (d *Device) Draw(call gpu.DrawCall) error {
	prog, ok := call.Program.(*Program)
	if !ok || prog.disposed {
		return fmt.Errorf("draw: %w: program", gpu.ErrDisposed)
	}
	if g, ok := call.Geometry.(*Geometry); !ok || g.disposed {
		return fmt.Errorf("draw %s: %w: geometry", prog.name, gpu.ErrDisposed)
	}
	rec := Draw{Program: prog.name, Uniforms: make(gpu.Uniforms, len(call.Uniforms))}
	if call.Target != nil {
		rt, ok := call.Target.(*Target)
		if !ok || rt.disposed {
			return fmt.Errorf("draw %s: %w: render target", prog.name, gpu.ErrDisposed)
		}
		rec.Target = rt.ID
	}
	if call.Clear != nil {
		c := *call.Clear
		rec.Clear = &c
	}
	gpu.RefreshTextures(call.Uniforms)

	names := make([]string, 0, len(call.Uniforms))
	for name := range call.Uniforms {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v := call.Uniforms[name]
		if t, ok := v.(*Texture); ok {
			if t.disposed {
				return fmt.Errorf("uniform %s: %w: texture", name, gpu.ErrDisposed)
			}
			d.op("bind %s", name)
		}
		rec.Uniforms[name] = v
	}
	d.mu.Lock()
	d.draws = append(d.draws, rec)
	d.mu.Unlock()
	return nil
}

func (d *Device) Destroy() {
	d.mu.Lock()
	d.Destroyed = true
	d.mu.Unlock()
}
