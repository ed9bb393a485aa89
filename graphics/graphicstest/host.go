// Package graphicstest provides a scriptable graphics.Host. Frames and posted
// tasks run only when the test steps them, on the test goroutine.
package graphicstest

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/richinsley/godistortion/graphics"
)

// ErrNoContext is the default NewSurface failure when FailSurface is set.
var ErrNoContext = errors.New("no graphics context")

// Surface is a fake drawable.
type Surface struct {
	W, H int
}

func (s *Surface) SetSize(width, height int) { s.W, s.H = width, height }

func (s *Surface) Size() (int, int) { return s.W, s.H }

// Host is a fake mounting container.
type Host struct {
	// FailSurface makes NewSurface fail.
	FailSurface bool

	rect    graphics.Rect
	dpr     float64
	hidden  bool
	now     time.Time
	created int

	attached  []*Surface
	listeners map[int]graphics.Listener
	nextLis   int
	frames    map[graphics.FrameID]func(time.Time)
	nextFrame graphics.FrameID

	mu     sync.Mutex
	posted []func()
	notify chan struct{}
}

// New creates a visible host of the given CSS size and pixel ratio.
func New(width, height, dpr float64) *Host {
	return &Host{
		rect:      graphics.Rect{Width: width, Height: height},
		dpr:       dpr,
		now:       time.Unix(1700000000, 0),
		listeners: make(map[int]graphics.Listener),
		frames:    make(map[graphics.FrameID]func(time.Time)),
		notify:    make(chan struct{}, 1),
	}
}

func (h *Host) Bounds() graphics.Rect { return h.rect }

func (h *Host) PixelRatio() float64 { return h.dpr }

func (h *Host) Hidden() bool { return h.hidden }

// Now is the host clock. It only moves in Step and Advance.
func (h *Host) Now() time.Time { return h.now }

// Advance moves the clock without running frames.
func (h *Host) Advance(d time.Duration) { h.now = h.now.Add(d) }

func (h *Host) NewSurface() (graphics.Surface, error) {
	if h.FailSurface {
		return nil, ErrNoContext
	}
	h.created++
	return &Surface{}, nil
}

func (h *Host) Attach(s graphics.Surface) error {
	fs, ok := s.(*Surface)
	if !ok {
		return errors.New("foreign surface")
	}
	h.attached = append(h.attached, fs)
	return nil
}

func (h *Host) Detach(s graphics.Surface) {
	for i, a := range h.attached {
		if a == s {
			h.attached = append(h.attached[:i], h.attached[i+1:]...)
			return
		}
	}
}

// Surfaces returns the attached surfaces.
func (h *Host) Surfaces() []*Surface {
	return append([]*Surface(nil), h.attached...)
}

// SurfacesCreated counts NewSurface successes.
func (h *Host) SurfacesCreated() int { return h.created }

func (h *Host) Listen(l graphics.Listener) (cancel func()) {
	id := h.nextLis
	h.nextLis++
	h.listeners[id] = l
	return func() { delete(h.listeners, id) }
}

// Listeners returns the number of registered listeners.
func (h *Host) Listeners() int { return len(h.listeners) }

func (h *Host) each(fn func(l graphics.Listener)) {
	ids := make([]int, 0, len(h.listeners))
	for id := range h.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if l, ok := h.listeners[id]; ok {
			fn(l)
		}
	}
}

// PointerMove dispatches a pointer move at client coordinates.
func (h *Host) PointerMove(x, y float64) {
	h.each(func(l graphics.Listener) {
		if l.PointerMove != nil {
			l.PointerMove(x, y)
		}
	})
}

// PointerLeave dispatches a pointer leave.
func (h *Host) PointerLeave() {
	h.each(func(l graphics.Listener) {
		if l.PointerLeave != nil {
			l.PointerLeave()
		}
	})
}

// TouchMove dispatches a touch move and reports whether default handling
// was prevented.
func (h *Host) TouchMove(touches ...graphics.Touch) bool {
	prevented := false
	ev := &graphics.TouchEvent{Touches: touches, PreventDefault: func() { prevented = true }}
	h.each(func(l graphics.Listener) {
		if l.TouchMove != nil {
			l.TouchMove(ev)
		}
	})
	return prevented
}

// Resize changes the container bounds and dispatches a resize.
func (h *Host) Resize(width, height, dpr float64) {
	h.rect.Width, h.rect.Height = width, height
	h.dpr = dpr
	h.each(func(l graphics.Listener) {
		if l.Resize != nil {
			l.Resize()
		}
	})
}

// SetHidden changes document visibility and dispatches the change.
func (h *Host) SetHidden(hidden bool) {
	if h.hidden == hidden {
		return
	}
	h.hidden = hidden
	h.each(func(l graphics.Listener) {
		if l.VisibilityChange != nil {
			l.VisibilityChange(hidden)
		}
	})
}

func (h *Host) RequestFrame(fn func(now time.Time)) graphics.FrameID {
	h.nextFrame++
	h.frames[h.nextFrame] = fn
	return h.nextFrame
}

func (h *Host) CancelFrame(id graphics.FrameID) {
	delete(h.frames, id)
}

// PendingFrames returns the number of outstanding frame requests.
func (h *Host) PendingFrames() int { return len(h.frames) }

// Step advances the clock by d and runs the frame requests that were
// pending at that moment, like one display refresh. It returns how many ran.
func (h *Host) Step(d time.Duration) int {
	h.now = h.now.Add(d)
	ids := make([]graphics.FrameID, 0, len(h.frames))
	for id := range h.frames {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	ran := 0
	for _, id := range ids {
		fn, ok := h.frames[id]
		if !ok {
			continue
		}
		delete(h.frames, id)
		fn(h.now)
		ran++
	}
	return ran
}

// Post queues fn. Safe from any goroutine.
func (h *Host) Post(fn func()) {
	h.mu.Lock()
	h.posted = append(h.posted, fn)
	h.mu.Unlock()
	select {
	case h.notify <- struct{}{}:
	default:
	}
}

// Flush runs queued tasks, including tasks they queue, and returns how many
// ran.
func (h *Host) Flush() int {
	ran := 0
	for {
		h.mu.Lock()
		tasks := h.posted
		h.posted = nil
		h.mu.Unlock()
		if len(tasks) == 0 {
			return ran
		}
		for _, fn := range tasks {
			fn()
			ran++
		}
	}
}

// WaitPost blocks until a task is queued or timeout passes, then flushes.
// It returns the number of tasks run.
func (h *Host) WaitPost(timeout time.Duration) int {
	deadline := time.After(timeout)
	for {
		if n := h.Flush(); n > 0 {
			return n
		}
		select {
		case <-h.notify:
		case <-deadline:
			return h.Flush()
		}
	}
}
