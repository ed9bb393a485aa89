package gpu

import (
	"fmt"
	"image"
	"sort"
	"strings"
	"sync"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"github.com/richinsley/godistortion/translator"
)

var glInitOnce sync.Once

// GLDevice implements Device on OpenGL 4.1 core (or GLES 3 when isGLES).
// All methods must be called on the goroutine that owns the current context.
type GLDevice struct {
	isGLES bool
	width  int
	height int
}

// NewGLDevice initializes the GL function pointers for the current context.
func NewGLDevice(isGLES bool) (*GLDevice, error) {
	var initErr error
	glInitOnce.Do(func() {
		initErr = gl.Init()
	})
	if initErr != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", initErr)
	}
	return &GLDevice{isGLES: isGLES}, nil
}

func (d *GLDevice) Resize(width, height int) {
	d.width, d.height = width, height
}

func (d *GLDevice) Destroy() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.UseProgram(0)
}

// ───────────────────────────────── programs ─────────────────────────────────

type glProgram struct {
	name      string
	id        uint32
	mapped    map[string]string
	locations map[string]int32
}

func (d *GLDevice) NewProgram(name, vertexSrc, fragmentSrc string) (Program, error) {
	fsCode, mapped, err := translator.Fragment(fragmentSrc, d.isGLES)
	if err != nil {
		return nil, fmt.Errorf("program %s: %w", name, err)
	}
	vsCode := vertexSrc
	if !d.isGLES {
		vsCode = desktopVertex(vertexSrc)
	}
	id, err := newProgram(vsCode, fsCode)
	if err != nil {
		return nil, fmt.Errorf("program %s: %w", name, err)
	}
	return &glProgram{
		name:      name,
		id:        id,
		mapped:    mapped,
		locations: make(map[string]int32),
	}, nil
}

// desktopVertex rewrites a GLSL ES 3.00 vertex shader header for a 4.1 core
// context. Precision qualifiers are accepted and ignored by desktop GLSL.
func desktopVertex(src string) string {
	return strings.Replace(src, "#version 300 es", "#version 410 core", 1)
}

func (p *glProgram) Name() string { return p.name }

func (p *glProgram) Dispose() {
	if p.id == 0 {
		return
	}
	gl.DeleteProgram(p.id)
	p.id = 0
}

// location returns the uniform location for a source-level name, or -1.
func (p *glProgram) location(name string) int32 {
	if loc, ok := p.locations[name]; ok {
		return loc
	}
	glName := name
	if m, ok := p.mapped[name]; ok && m != "" {
		glName = m
	}
	loc := gl.GetUniformLocation(p.id, gl.Str(glName+"\x00"))
	p.locations[name] = loc
	return loc
}

func newProgram(vertexShaderSource, fragmentShaderSource string) (uint32, error) {
	vertexShader, err := compileShader(vertexShaderSource, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	fragmentShader, err := compileShader(fragmentShaderSource, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vertexShader)
		return 0, err
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.BindAttribLocation(program, 0, gl.Str("in_vert\x00"))
	gl.LinkProgram(program)

	gl.DeleteShader(vertexShader)
	gl.DeleteShader(fragmentShader)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("failed to link program: %v", log)
	}
	return program, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(logText))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("failed to compile shader: %v", logText)
	}
	return shader, nil
}

// ───────────────────────────────── geometry ─────────────────────────────────

type glGeometry struct {
	vao, vbo, ebo uint32
	count         int32
}

func (d *GLDevice) NewPlane(width, height float32, segX, segY int) (Geometry, error) {
	verts, indices := PlaneVertices(width, height, segX, segY)
	g := &glGeometry{count: int32(len(indices))}

	gl.GenVertexArrays(1, &g.vao)
	gl.GenBuffers(1, &g.vbo)
	gl.GenBuffers(1, &g.ebo)
	gl.BindVertexArray(g.vao)

	gl.BindBuffer(gl.ARRAY_BUFFER, g.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(verts)*4, gl.Ptr(verts), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 2*4, gl.PtrOffset(0))

	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, g.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, gl.Ptr(indices), gl.STATIC_DRAW)

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return g, nil
}

func (g *glGeometry) Dispose() {
	if g.vao == 0 {
		return
	}
	gl.DeleteBuffers(1, &g.vbo)
	gl.DeleteBuffers(1, &g.ebo)
	gl.DeleteVertexArrays(1, &g.vao)
	g.vao, g.vbo, g.ebo = 0, 0, 0
}

// ───────────────────────────────── textures ─────────────────────────────────

type glTexture struct {
	id            uint32
	width, height int
}

func newGLTexture() *glTexture {
	t := &glTexture{}
	gl.GenTextures(1, &t.id)
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	return t
}

// upload replaces the texture contents with tightly packed, top-down RGBA
// rows. Rows are uploaded as-is; samplers address the image with v=1 at the
// top row, so shaders flip v when sampling.
func (t *glTexture) upload(pix []byte, width, height int) {
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	if width == t.width && height == t.height {
		gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pix))
	} else {
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pix))
		t.width, t.height = width, height
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

func (t *glTexture) Size() (int, int) { return t.width, t.height }

func (t *glTexture) Dispose() {
	if t.id == 0 {
		return
	}
	gl.DeleteTextures(1, &t.id)
	t.id = 0
}

func (t *glTexture) textureID() uint32 { return t.id }

func (d *GLDevice) NewTexture(img *image.RGBA) (Texture, error) {
	if img == nil {
		return nil, fmt.Errorf("texture image is nil")
	}
	size := img.Rect.Size()
	pix := img.Pix
	if img.Stride != size.X*4 {
		pix = make([]byte, size.X*size.Y*4)
		for y := 0; y < size.Y; y++ {
			copy(pix[y*size.X*4:], img.Pix[y*img.Stride:y*img.Stride+size.X*4])
		}
	}
	t := newGLTexture()
	t.upload(pix, size.X, size.Y)
	return t, nil
}

type glStreamTexture struct {
	*glTexture
	src FrameSource
	seq uint64
}

func (d *GLDevice) NewStreamTexture(src FrameSource) (Texture, error) {
	if src == nil {
		return nil, fmt.Errorf("stream texture source is nil")
	}
	t := &glStreamTexture{glTexture: newGLTexture(), src: src}
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return t, nil
}

// Refresh uploads the source's latest frame if it changed since the last draw.
func (t *glStreamTexture) Refresh() {
	if t.id == 0 {
		return
	}
	t.seq = t.src.ReadFrame(t.seq, func(pix []byte, width, height int) {
		t.upload(pix, width, height)
	})
}

// ────────────────────────────── render targets ──────────────────────────────

type glRenderTarget struct {
	fbo     uint32
	texture *glTexture
}

func (d *GLDevice) NewRenderTarget(width, height int) (RenderTarget, error) {
	rt := &glRenderTarget{texture: newGLTexture()}
	// Floating point storage keeps slow fades from banding.
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA32F, int32(width), int32(height), 0, gl.RGBA, gl.FLOAT, nil)
	rt.texture.width, rt.texture.height = width, height

	gl.GenFramebuffers(1, &rt.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, rt.fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, rt.texture.id, 0)
	if gl.CheckFramebufferStatus(gl.FRAMEBUFFER) != gl.FRAMEBUFFER_COMPLETE {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		gl.BindTexture(gl.TEXTURE_2D, 0)
		rt.Dispose()
		return nil, fmt.Errorf("render target framebuffer %dx%d is not complete", width, height)
	}
	gl.ClearColor(0, 0, 0, 0)
	gl.Clear(gl.COLOR_BUFFER_BIT)

	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return rt, nil
}

func (rt *glRenderTarget) Texture() Texture { return rt.texture }

func (rt *glRenderTarget) Size() (int, int) { return rt.texture.Size() }

func (rt *glRenderTarget) Dispose() {
	if rt.fbo != 0 {
		gl.DeleteFramebuffers(1, &rt.fbo)
		rt.fbo = 0
	}
	rt.texture.Dispose()
}

// ─────────────────────────────────── draw ───────────────────────────────────

func (d *GLDevice) Draw(call DrawCall) error {
	prog, ok := call.Program.(*glProgram)
	if !ok || prog.id == 0 {
		return fmt.Errorf("draw: %w: program", ErrDisposed)
	}
	geom, ok := call.Geometry.(*glGeometry)
	if !ok || geom.vao == 0 {
		return fmt.Errorf("draw %s: %w: geometry", prog.name, ErrDisposed)
	}

	var fbo uint32
	width, height := d.width, d.height
	if call.Target != nil {
		rt, ok := call.Target.(*glRenderTarget)
		if !ok || rt.fbo == 0 {
			return fmt.Errorf("draw %s: %w: render target", prog.name, ErrDisposed)
		}
		fbo = rt.fbo
		width, height = rt.Size()
	}

	RefreshTextures(call.Uniforms)

	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
	gl.Viewport(0, 0, int32(width), int32(height))
	if call.Clear != nil {
		c := call.Clear
		gl.ClearColor(c[0], c[1], c[2], c[3])
		gl.Clear(gl.COLOR_BUFFER_BIT)
	}

	gl.UseProgram(prog.id)
	units, err := setUniforms(prog, call.Uniforms)
	if err != nil {
		return err
	}

	gl.BindVertexArray(geom.vao)
	gl.DrawElements(gl.TRIANGLES, geom.count, gl.UNSIGNED_INT, gl.PtrOffset(0))
	gl.BindVertexArray(0)

	for i := 0; i < units; i++ {
		gl.ActiveTexture(gl.TEXTURE0 + uint32(i))
		gl.BindTexture(gl.TEXTURE_2D, 0)
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return nil
}

type texturer interface {
	textureID() uint32
}

// setUniforms uploads values in name order and binds textures to
// consecutive units. It returns the number of units used.
func setUniforms(prog *glProgram, u Uniforms) (int, error) {
	names := make([]string, 0, len(u))
	for name := range u {
		names = append(names, name)
	}
	sort.Strings(names)

	unit := 0
	for _, name := range names {
		loc := prog.location(name)
		if loc == -1 {
			continue
		}
		switch v := u[name].(type) {
		case float32:
			gl.Uniform1f(loc, v)
		case int32:
			gl.Uniform1i(loc, v)
		case bool:
			var b int32
			if v {
				b = 1
			}
			gl.Uniform1i(loc, b)
		case [2]float32:
			gl.Uniform2f(loc, v[0], v[1])
		case [3]float32:
			gl.Uniform3f(loc, v[0], v[1], v[2])
		case [4]float32:
			gl.Uniform4f(loc, v[0], v[1], v[2], v[3])
		case [16]float32:
			gl.UniformMatrix4fv(loc, 1, false, &v[0])
		case Texture:
			tex, ok := v.(texturer)
			if !ok || tex.textureID() == 0 {
				return unit, fmt.Errorf("uniform %s: %w: texture", name, ErrDisposed)
			}
			gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
			gl.BindTexture(gl.TEXTURE_2D, tex.textureID())
			gl.Uniform1i(loc, int32(unit))
			unit++
		default:
			return unit, fmt.Errorf("uniform %s: unsupported type %T", name, v)
		}
	}
	return unit, nil
}
