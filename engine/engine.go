// Package engine runs one pointer-reactive video effect inside a host
// container: it owns the surface, GPU device, effect, pointer tracker and
// video pipeline, and drives them from the host's frame callbacks.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/richinsley/godistortion/effect"
	"github.com/richinsley/godistortion/gpu"
	"github.com/richinsley/godistortion/graphics"
	"github.com/richinsley/godistortion/input"
	"github.com/richinsley/godistortion/media"
	"github.com/richinsley/godistortion/options"
	"github.com/richinsley/godistortion/params"
	"github.com/richinsley/godistortion/viewport"
)

var (
	// ErrContextUnavailable is returned when no surface or GPU device could
	// be acquired. No rendering happens for that engine.
	ErrContextUnavailable = errors.New("graphics context unavailable")
	// ErrDestroyed is returned by operations on a destroyed engine.
	ErrDestroyed = errors.New("engine destroyed")
)

// DeviceFactory creates the GPU device for a surface.
type DeviceFactory func(s graphics.Surface) (gpu.Device, error)

// Config holds an engine's collaborators.
type Config struct {
	Options options.Options
	Host    graphics.Host
	// NewDevice creates the GPU device. Required.
	NewDevice DeviceFactory
	// Source opens videos. Nil uses ffmpeg.
	Source media.Source
	// Params overrides the variant's default parameter store.
	Params *params.Store
	Logger *zap.Logger
	// Now is the clock for pointer timestamps. Nil uses time.Now.
	Now func() time.Time
}

// Engine is one live effect instance. All methods must be called on the
// host's UI thread.
type Engine struct {
	id      string
	logger  *zap.Logger
	opts    options.Options
	host    graphics.Host
	surface graphics.Surface
	dev     gpu.Device
	effect  effect.RenderEffect
	tracker *input.Tracker
	store   *params.Store
	loader  *media.Loader
	vp      viewport.Viewport

	ctx    context.Context
	cancel context.CancelFunc

	source   string
	fallback gpu.Texture
	video    *media.Video
	videoTex gpu.Texture

	sched scheduler
	stats stats

	cancelListen func()
	cancelParams func()
	cancelLoad   func()

	destroyed bool
	onDestroy func()
}

// New creates an engine, attaches its surface to the host and starts the
// render loop (unless the host is hidden). A video load starts in the
// background when Options.Video is set.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Options.Validate(); err != nil {
		return nil, err
	}
	if cfg.Host == nil || cfg.NewDevice == nil {
		return nil, errors.New("engine needs a host and a device factory")
	}
	step, _ := cfg.Options.Step()

	id := uuid.New().String()
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("engine_id", id), zap.String("variant", string(cfg.Options.Variant)))

	store := cfg.Params
	if store == nil {
		store = params.NewStore(effect.Defs(cfg.Options.Variant))
	}
	source := cfg.Source
	if source == nil {
		source = &media.FFmpegSource{FFmpegPath: cfg.Options.FFmpegPath, Logger: logger}
	}

	e := &Engine{
		id:     id,
		logger: logger,
		opts:   cfg.Options,
		host:   cfg.Host,
		store:  store,
		loader: media.NewLoader(logger, source, cfg.Host),
		sched:  scheduler{clock: effect.Clock{Step: step}, mouse: input.Vec2{X: 0.5, Y: 0.5}},
	}
	e.sched.prevMouse = e.sched.mouse
	e.tracker = input.NewTracker(cfg.Host, cfg.Now)
	e.ctx, e.cancel = context.WithCancel(context.Background())

	if err := e.init(cfg.NewDevice); err != nil {
		e.release()
		return nil, err
	}

	e.cancelListen = e.host.Listen(e.listener())
	e.cancelParams = e.store.Subscribe(e.onParamChange)

	if cfg.Options.Video != "" {
		e.load(cfg.Options.Video)
	}
	if !e.host.Hidden() {
		e.sched.schedule(e)
	}

	w, h := e.vp.FramebufferSize()
	logger.Info("Engine started",
		zap.Int("width", w),
		zap.Int("height", h),
		zap.Float64("pixel_ratio", e.vp.PixelRatio),
		zap.Stringer("time_step", step),
		zap.String("video", cfg.Options.Video))
	return e, nil
}

func (e *Engine) init(newDevice DeviceFactory) error {
	surface, err := e.host.NewSurface()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrContextUnavailable, err)
	}
	e.vp = viewport.FromHost(e.host)
	w, h := e.vp.FramebufferSize()
	surface.SetSize(w, h)
	if err := e.host.Attach(surface); err != nil {
		return fmt.Errorf("failed to attach surface: %w", err)
	}
	e.surface = surface

	dev, err := newDevice(surface)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrContextUnavailable, err)
	}
	e.dev = dev
	dev.Resize(w, h)

	fx, err := effect.New(e.opts.Variant)
	if err != nil {
		return err
	}
	if err := fx.Init(dev, e.vp); err != nil {
		return fmt.Errorf("failed to initialize %s effect: %w", e.opts.Variant, err)
	}
	e.effect = fx

	fallback, err := dev.NewTexture(media.Fallback())
	if err != nil {
		return fmt.Errorf("failed to create fallback texture: %w", err)
	}
	e.fallback = fallback
	fx.SetVideo(fallback)
	return nil
}

func (e *Engine) listener() graphics.Listener {
	l := e.tracker.Listener()
	pointer := func() { e.effect.OnPointer(e.tracker.State()) }
	l.PointerMove = func(x, y float64) {
		e.tracker.PointerMove(x, y)
		pointer()
	}
	l.PointerEnter = func() {
		e.tracker.PointerEnter()
		pointer()
	}
	l.PointerLeave = func() {
		e.tracker.PointerLeave()
		pointer()
	}
	l.TouchStart = func(ev *graphics.TouchEvent) {
		e.tracker.TouchStart(ev)
		pointer()
	}
	l.TouchMove = func(ev *graphics.TouchEvent) {
		e.tracker.TouchMove(ev)
		pointer()
	}
	l.TouchEnd = func(ev *graphics.TouchEvent) {
		e.tracker.TouchEnd(ev)
		pointer()
	}
	l.Resize = e.onResize
	l.VisibilityChange = e.onVisibility
	return l
}

// ID returns the engine's instance id.
func (e *Engine) ID() string { return e.id }

// Params returns the engine's parameter store.
func (e *Engine) Params() *params.Store { return e.store }

// Viewport returns the current viewport.
func (e *Engine) Viewport() viewport.Viewport { return e.vp }

// Surface returns the engine's drawable.
func (e *Engine) Surface() graphics.Surface { return e.surface }

// Pointer returns the raw pointer state.
func (e *Engine) Pointer() input.State { return e.tracker.State() }

// Source returns the current video source.
func (e *Engine) Source() string { return e.source }

// VideoReady reports whether a decoded video is being rendered instead of
// the fallback.
func (e *Engine) VideoReady() bool { return e.video != nil }

// Destroyed reports whether Destroy was called.
func (e *Engine) Destroyed() bool { return e.destroyed }

// FPS returns the frame rate measured over the last full second. It is only
// measured while showStats is on.
func (e *Engine) FPS() float64 { return e.stats.fps }

// SetSource replaces the video of a live engine. The previous video is
// closed first and the fallback renders until the new one is ready. An empty
// url just shows the fallback.
func (e *Engine) SetSource(url string) error {
	if e.destroyed {
		return ErrDestroyed
	}
	if url == e.source {
		return nil
	}
	e.closeVideo()
	e.effect.SetVideo(e.fallback)
	e.source = ""
	if url != "" {
		e.load(url)
	}
	return nil
}

func (e *Engine) load(url string) {
	e.source = url
	e.cancelLoad = e.loader.Load(e.ctx, url, e.onVideoReady, e.onVideoError)
}

func (e *Engine) onVideoReady(v *media.Video) {
	if e.destroyed {
		v.Close()
		return
	}
	tex, err := e.dev.NewStreamTexture(v)
	if err != nil {
		v.Close()
		e.diagnose(fmt.Errorf("failed to create video texture: %w", err))
		return
	}
	e.video = v
	e.videoTex = tex
	e.effect.SetVideo(tex)
	if !e.autoPlay() || e.host.Hidden() {
		v.Pause()
	}
	w, h := v.Size()
	e.logger.Info("Video attached", zap.String("url", e.source), zap.Int("width", w), zap.Int("height", h))
}

func (e *Engine) onVideoError(err error) {
	if e.destroyed {
		return
	}
	e.diagnose(err)
}

// diagnose reports a recoverable failure. Rendering continues.
func (e *Engine) diagnose(err error) {
	e.logger.Warn("Media diagnostic", zap.String("url", e.source), zap.Error(err))
	if e.opts.OnDiagnostic != nil {
		e.opts.OnDiagnostic(err)
	}
}

func (e *Engine) closeVideo() {
	if e.cancelLoad != nil {
		e.cancelLoad()
		e.cancelLoad = nil
	}
	if e.video != nil {
		e.video.Close()
		e.video = nil
	}
	if e.videoTex != nil {
		e.videoTex.Dispose()
		e.videoTex = nil
	}
}

func (e *Engine) autoPlay() bool {
	v, ok := e.store.Get(params.AutoPlay)
	if !ok {
		return true
	}
	b, _ := v.(bool)
	return b
}

// onParamChange may run on any goroutine.
func (e *Engine) onParamChange(name string, _ any) {
	if name != params.AutoPlay {
		return
	}
	e.host.Post(func() {
		if e.destroyed || e.video == nil {
			return
		}
		if e.autoPlay() && !e.host.Hidden() {
			e.video.Play()
		} else {
			e.video.Pause()
		}
	})
}

func (e *Engine) onResize() {
	if e.destroyed {
		return
	}
	e.vp = viewport.FromHost(e.host)
	w, h := e.vp.FramebufferSize()
	e.surface.SetSize(w, h)
	e.dev.Resize(w, h)
	if err := e.effect.OnResize(e.vp); err != nil {
		e.logger.Error("Effect resize failed", zap.Int("width", w), zap.Int("height", h), zap.Error(err))
		return
	}
	e.logger.Debug("Resized", zap.Int("width", w), zap.Int("height", h), zap.Float64("pixel_ratio", e.vp.PixelRatio))
}

func (e *Engine) onVisibility(hidden bool) {
	if e.destroyed {
		return
	}
	if hidden {
		e.sched.stop(e)
		if e.video != nil {
			e.video.Pause()
		}
		return
	}
	if e.video != nil && e.autoPlay() {
		e.video.Play()
	}
	e.sched.resume(e)
}

// Destroy stops the render loop and releases everything the engine holds:
// video, GPU resources, surface and listeners. It is idempotent.
func (e *Engine) Destroy() {
	if e.destroyed {
		return
	}
	e.destroyed = true
	e.sched.stop(e)
	e.release()
	if e.onDestroy != nil {
		e.onDestroy()
		e.onDestroy = nil
	}
	e.logger.Info("Engine destroyed")
}

// release frees whatever has been acquired so far; New uses it on failure.
func (e *Engine) release() {
	e.destroyed = true
	e.cancel()
	if e.cancelListen != nil {
		e.cancelListen()
		e.cancelListen = nil
	}
	if e.cancelParams != nil {
		e.cancelParams()
		e.cancelParams = nil
	}
	e.closeVideo()
	if e.effect != nil {
		e.effect.Dispose()
		e.effect = nil
	}
	if e.fallback != nil {
		e.fallback.Dispose()
		e.fallback = nil
	}
	if e.dev != nil {
		e.dev.Destroy()
		e.dev = nil
	}
	if e.surface != nil {
		e.host.Detach(e.surface)
		e.surface = nil
	}
}
