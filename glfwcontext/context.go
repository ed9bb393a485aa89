// Package glfwcontext hosts an engine in a GLFW window: the window's content
// area is the container, iconify is the hidden state, and frame callbacks
// run once per swap.
package glfwcontext

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	glfw "github.com/go-gl/glfw/v3.3/glfw"
	"go.uber.org/zap"

	"github.com/richinsley/godistortion/gpu"
	"github.com/richinsley/godistortion/graphics"
)

// Config configures the window.
type Config struct {
	Width  int
	Height int
	Title  string
	GLES   bool
	Logger *zap.Logger
}

// Context is a GLFW window implementing graphics.Host. Everything except
// Post must be called on the main thread.
type Context struct {
	window  *glfw.Window
	logger  *zap.Logger
	gles    bool
	hidden  bool
	surface *windowSurface

	listeners map[int]graphics.Listener
	nextLis   int
	frames    map[graphics.FrameID]func(time.Time)
	nextFrame graphics.FrameID

	mu     sync.Mutex
	posted []func()

	// A map to store functions to be called on key presses.
	keyCallbacks map[glfw.Key]func()
}

// windowSurface is the window's default framebuffer. Its size follows the
// window; SetSize only records what the engine expects.
type windowSurface struct {
	attached bool
	w, h     int
}

func (s *windowSurface) SetSize(width, height int) { s.w, s.h = width, height }

func (s *windowSurface) Size() (int, int) { return s.w, s.h }

// New creates a window with a current GL context and vsync enabled.
func New(cfg Config) (*Context, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.GLES {
		glfw.WindowHint(glfw.ClientAPI, glfw.OpenGLESAPI)
		glfw.WindowHint(glfw.ContextVersionMajor, 3)
		glfw.WindowHint(glfw.ContextVersionMinor, 0)
	} else {
		glfw.WindowHint(glfw.ContextVersionMajor, 4)
		glfw.WindowHint(glfw.ContextVersionMinor, 1)
		glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
		glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	}
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ScaleToMonitor, glfw.True)

	// multisampling only pays off on low-density displays
	antialias := false
	if m := glfw.GetPrimaryMonitor(); m != nil {
		sx, _ := m.GetContentScale()
		antialias = sx <= 1
	}
	if antialias {
		glfw.WindowHint(glfw.Samples, 4)
	}

	title := cfg.Title
	if title == "" {
		title = "godistortion"
	}
	win, err := glfw.CreateWindow(cfg.Width, cfg.Height, title, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}
	win.MakeContextCurrent()
	glfw.SwapInterval(1)

	c := &Context{
		window:       win,
		logger:       cfg.Logger,
		gles:         cfg.GLES,
		listeners:    make(map[int]graphics.Listener),
		frames:       make(map[graphics.FrameID]func(time.Time)),
		keyCallbacks: make(map[glfw.Key]func()),
	}
	c.surface = &windowSurface{}

	win.SetKeyCallback(c.glfwKeyCallback)
	win.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		c.each(func(l graphics.Listener) {
			if l.PointerMove != nil {
				l.PointerMove(x, y)
			}
		})
	})
	win.SetCursorEnterCallback(func(_ *glfw.Window, entered bool) {
		c.each(func(l graphics.Listener) {
			switch {
			case entered && l.PointerEnter != nil:
				l.PointerEnter()
			case !entered && l.PointerLeave != nil:
				l.PointerLeave()
			}
		})
	})
	win.SetIconifyCallback(func(_ *glfw.Window, iconified bool) {
		c.setHidden(iconified)
	})
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, _, _ int) {
		c.resized()
	})
	win.SetContentScaleCallback(func(_ *glfw.Window, _, _ float32) {
		c.resized()
	})

	c.logger.Info("Window created",
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height),
		zap.Bool("gles", cfg.GLES),
		zap.Bool("antialias", antialias))
	return c, nil
}

// RegisterKeyCallback allows the main application to register a function to be
// called when a specific key is pressed.
func (c *Context) RegisterKeyCallback(key glfw.Key, f func()) {
	c.keyCallbacks[key] = f
}

func (c *Context) glfwKeyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if key == glfw.KeyEscape && action == glfw.Press {
		w.SetShouldClose(true)
	}
	if action == glfw.Press {
		if callback, ok := c.keyCallbacks[key]; ok {
			callback()
		}
	}
}

func (c *Context) Bounds() graphics.Rect {
	w, h := c.window.GetSize()
	return graphics.Rect{Width: float64(w), Height: float64(h)}
}

// PixelRatio is the framebuffer to window size ratio.
func (c *Context) PixelRatio() float64 {
	ww, _ := c.window.GetSize()
	fw, _ := c.window.GetFramebufferSize()
	if ww <= 0 {
		return 1
	}
	return float64(fw) / float64(ww)
}

func (c *Context) Hidden() bool { return c.hidden }

func (c *Context) setHidden(hidden bool) {
	if hidden == c.hidden {
		return
	}
	c.hidden = hidden
	c.logger.Debug("Visibility changed", zap.Bool("hidden", hidden))
	c.each(func(l graphics.Listener) {
		if l.VisibilityChange != nil {
			l.VisibilityChange(hidden)
		}
	})
}

func (c *Context) resized() {
	c.each(func(l graphics.Listener) {
		if l.Resize != nil {
			l.Resize()
		}
	})
}

// NewSurface returns the window's framebuffer. A window has exactly one.
func (c *Context) NewSurface() (graphics.Surface, error) {
	if c.surface.attached {
		return nil, errors.New("window surface already in use")
	}
	return c.surface, nil
}

func (c *Context) Attach(s graphics.Surface) error {
	if s != graphics.Surface(c.surface) {
		return errors.New("surface does not belong to this window")
	}
	c.surface.attached = true
	return nil
}

func (c *Context) Detach(s graphics.Surface) {
	if s == graphics.Surface(c.surface) {
		c.surface.attached = false
	}
}

// NewDevice makes the window's context current and creates a GL device for
// it. It serves as an engine.DeviceFactory.
func (c *Context) NewDevice(s graphics.Surface) (gpu.Device, error) {
	if s != graphics.Surface(c.surface) {
		return nil, errors.New("surface does not belong to this window")
	}
	c.window.MakeContextCurrent()
	return gpu.NewGLDevice(c.gles)
}

func (c *Context) Listen(l graphics.Listener) (cancel func()) {
	id := c.nextLis
	c.nextLis++
	c.listeners[id] = l
	return func() { delete(c.listeners, id) }
}

func (c *Context) each(fn func(l graphics.Listener)) {
	ids := make([]int, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if l, ok := c.listeners[id]; ok {
			fn(l)
		}
	}
}

func (c *Context) RequestFrame(fn func(now time.Time)) graphics.FrameID {
	c.nextFrame++
	c.frames[c.nextFrame] = fn
	return c.nextFrame
}

func (c *Context) CancelFrame(id graphics.FrameID) {
	delete(c.frames, id)
}

// Post queues fn for the main thread and wakes the event loop.
func (c *Context) Post(fn func()) {
	c.mu.Lock()
	c.posted = append(c.posted, fn)
	c.mu.Unlock()
	glfw.PostEmptyEvent()
}

func (c *Context) runPosted() {
	c.mu.Lock()
	tasks := c.posted
	c.posted = nil
	c.mu.Unlock()
	for _, fn := range tasks {
		fn()
	}
}

func (c *Context) runFrames(now time.Time) int {
	if len(c.frames) == 0 {
		return 0
	}
	ids := make([]graphics.FrameID, 0, len(c.frames))
	for id := range c.frames {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	ran := 0
	for _, id := range ids {
		fn, ok := c.frames[id]
		if !ok {
			continue
		}
		delete(c.frames, id)
		fn(now)
		ran++
	}
	return ran
}

// Run processes events, posted tasks and frame requests until the window is
// asked to close or stop returns true. Frames are presented with vsync;
// while nothing is scheduled the loop sleeps in WaitEvents.
func (c *Context) Run(stop func() bool) {
	for !c.window.ShouldClose() && (stop == nil || !stop()) {
		glfw.PollEvents()
		c.runPosted()
		if c.runFrames(time.Now()) > 0 {
			c.window.SwapBuffers()
			continue
		}
		glfw.WaitEventsTimeout(0.1)
	}
}

// MakeCurrent makes the context current for the calling goroutine.
func (c *Context) MakeCurrent() {
	c.window.MakeContextCurrent()
}

// SetShouldClose asks Run to return.
func (c *Context) SetShouldClose() {
	c.window.SetShouldClose(true)
}

// Shutdown destroys the window.
func (c *Context) Shutdown() {
	c.window.Destroy()
}

// InitGraphics initializes the main graphics subsystem (GLFW). Must be called from the main thread.
func InitGraphics(logger *zap.Logger) error {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("failed to initialize glfw: %w", err)
	}
	logger.Info("GLFW initialized")
	return nil
}

// TerminateGraphics shuts down the graphics subsystem. Must be called from the main thread.
func TerminateGraphics(logger *zap.Logger) {
	glfw.Terminate()
	logger.Info("GLFW terminated")
}
