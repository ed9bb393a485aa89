package graphics

import "time"

// Rect is a bounding rectangle in client (CSS pixel) coordinates.
type Rect struct {
	Left, Top, Width, Height float64
}

// Touch is a single active touch point.
type Touch struct {
	ClientX, ClientY float64
}

// TouchEvent carries the active touch points of a touch start/move/end.
type TouchEvent struct {
	Touches []Touch
	// PreventDefault, when set, suppresses the host's default handling
	// (page scroll) for this event.
	PreventDefault func()
}

// Listener receives the host's event streams. Nil fields are not registered.
type Listener struct {
	PointerMove      func(clientX, clientY float64)
	PointerEnter     func()
	PointerLeave     func()
	TouchStart       func(ev *TouchEvent)
	TouchMove        func(ev *TouchEvent)
	TouchEnd         func(ev *TouchEvent)
	Resize           func()
	VisibilityChange func(hidden bool)
}

// Surface is a drawable attached to a host container.
type Surface interface {
	// SetSize resizes the drawable to the given framebuffer dimensions.
	SetSize(width, height int)
	// Size returns the framebuffer dimensions.
	Size() (int, int)
}

// FrameID identifies a pending frame request.
type FrameID uint64

// Host is the mounting container an engine renders into. All callbacks
// (event listeners, frame callbacks, posted tasks) run on the host's single
// UI thread.
type Host interface {
	// Bounds returns the container's bounding rectangle.
	Bounds() Rect
	// PixelRatio returns the device pixel ratio of the container's display.
	PixelRatio() float64
	// Hidden reports whether the document surface is currently hidden.
	Hidden() bool

	// NewSurface creates the drawable for this container. It fails when no
	// graphics context can be acquired.
	NewSurface() (Surface, error)
	// Attach appends a surface to the container.
	Attach(s Surface) error
	// Detach removes a surface from the container. Detaching a surface that
	// is not attached is a no-op.
	Detach(s Surface)

	// Listen registers the listener's callbacks and returns a function that
	// removes all of them.
	Listen(l Listener) (cancel func())

	// RequestFrame schedules fn for the next display refresh.
	RequestFrame(fn func(now time.Time)) FrameID
	// CancelFrame cancels a pending frame request.
	CancelFrame(id FrameID)
	// Post runs fn on the UI thread. Safe to call from any goroutine.
	Post(fn func())
}
