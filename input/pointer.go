// Package input normalizes host pointer and touch events into texture-space
// coordinates and tracks interaction recency.
package input

import (
	"time"

	"github.com/richinsley/godistortion/graphics"
)

// DefaultDecayDuration is how long the idle progress takes to fall from 1 to 0
// after the last pointer movement.
const DefaultDecayDuration = 800 * time.Millisecond

// Vec2 is a point in normalized UV space.
type Vec2 struct {
	X, Y float64
}

// Lerp moves v toward target by factor t.
func (v Vec2) Lerp(target Vec2, t float64) Vec2 {
	return Vec2{
		X: v.X + (target.X-v.X)*t,
		Y: v.Y + (target.Y-v.Y)*t,
	}
}

// Float32 returns v as a vec2 uniform value.
func (v Vec2) Float32() [2]float32 {
	return [2]float32{float32(v.X), float32(v.Y)}
}

// State is a copy of the tracker's pointer state.
type State struct {
	Current         Vec2
	Previous        Vec2
	Active          bool
	LastInteraction time.Time
}

// Bounds supplies the container's bounding rectangle.
type Bounds interface {
	Bounds() graphics.Rect
}

// Tracker converts client coordinates to UV space (origin bottom-left, Y up)
// and records the last interaction. Its handlers are O(1) and must only be
// called from the host UI thread.
type Tracker struct {
	bounds Bounds
	now    func() time.Time
	state  State
}

// NewTracker creates a tracker. The pointer starts centred and inactive.
// A nil clock defaults to time.Now.
func NewTracker(bounds Bounds, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	center := Vec2{X: 0.5, Y: 0.5}
	return &Tracker{
		bounds: bounds,
		now:    now,
		state:  State{Current: center, Previous: center},
	}
}

// Normalize maps client coordinates into the unit square relative to rect,
// flipping Y to texture convention. Both axes are clamped to [0, 1].
func Normalize(rect graphics.Rect, clientX, clientY float64) Vec2 {
	if rect.Width <= 0 || rect.Height <= 0 {
		return Vec2{X: 0.5, Y: 0.5}
	}
	u := (clientX - rect.Left) / rect.Width
	v := 1 - (clientY-rect.Top)/rect.Height
	return Vec2{X: clamp01(u), Y: clamp01(v)}
}

// State returns a copy of the current pointer state.
func (t *Tracker) State() State {
	return t.state
}

// PointerMove handles a mouse move at the given client coordinates.
func (t *Tracker) PointerMove(clientX, clientY float64) {
	t.update(clientX, clientY)
}

// PointerEnter marks the pointer active without moving it.
func (t *Tracker) PointerEnter() {
	t.state.Active = true
}

// PointerLeave marks the pointer inactive. The position is kept.
func (t *Tracker) PointerLeave() {
	t.state.Active = false
}

// TouchStart handles the first touch point and suppresses page scrolling.
func (t *Tracker) TouchStart(ev *graphics.TouchEvent) {
	t.touch(ev)
}

// TouchMove handles the first touch point and suppresses page scrolling.
func (t *Tracker) TouchMove(ev *graphics.TouchEvent) {
	t.touch(ev)
}

// TouchEnd marks the pointer inactive. The position is kept.
func (t *Tracker) TouchEnd(*graphics.TouchEvent) {
	t.state.Active = false
}

func (t *Tracker) touch(ev *graphics.TouchEvent) {
	if ev == nil {
		return
	}
	if ev.PreventDefault != nil {
		ev.PreventDefault()
	}
	if len(ev.Touches) == 0 {
		return
	}
	t.update(ev.Touches[0].ClientX, ev.Touches[0].ClientY)
}

func (t *Tracker) update(clientX, clientY float64) {
	t.state.Previous = t.state.Current
	t.state.Current = Normalize(t.bounds.Bounds(), clientX, clientY)
	t.state.Active = true
	t.state.LastInteraction = t.now()
}

// IdleProgress returns 1 right after a pointer move, falling linearly to 0
// over duration. It is 0 before the first interaction.
func (t *Tracker) IdleProgress(now time.Time, duration time.Duration) float64 {
	if t.state.LastInteraction.IsZero() {
		return 0
	}
	return Decay(now.Sub(t.state.LastInteraction), duration)
}

// Decay computes clamp(1 - elapsed/duration, 0, 1). A non-positive duration
// decays instantly.
func Decay(elapsed, duration time.Duration) float64 {
	if duration <= 0 {
		if elapsed <= 0 {
			return 1
		}
		return 0
	}
	return clamp01(1 - float64(elapsed)/float64(duration))
}

// Listener returns host callbacks wired to this tracker.
func (t *Tracker) Listener() graphics.Listener {
	return graphics.Listener{
		PointerMove:  t.PointerMove,
		PointerEnter: t.PointerEnter,
		PointerLeave: t.PointerLeave,
		TouchStart:   t.TouchStart,
		TouchMove:    t.TouchMove,
		TouchEnd:     t.TouchEnd,
	}
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}
