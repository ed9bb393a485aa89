package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/richinsley/godistortion/effect"
	"github.com/richinsley/godistortion/graphics"
	"github.com/richinsley/godistortion/input"
)

// scheduler keeps exactly one frame request outstanding while the engine is
// live and visible.
type scheduler struct {
	frame   graphics.FrameID
	pending bool
	last    time.Time // zero means the next tick starts a fresh baseline
	frames  uint64

	clock     effect.Clock
	mouse     input.Vec2
	prevMouse input.Vec2
}

func (s *scheduler) schedule(e *Engine) {
	if s.pending {
		return
	}
	s.pending = true
	s.frame = e.host.RequestFrame(func(now time.Time) {
		s.pending = false
		e.tick(now)
	})
}

// stop cancels the outstanding request and drops the delta baseline.
func (s *scheduler) stop(e *Engine) {
	if s.pending {
		e.host.CancelFrame(s.frame)
		s.pending = false
	}
	s.last = time.Time{}
}

// resume restarts the loop from a fresh baseline.
func (s *scheduler) resume(e *Engine) {
	s.last = time.Time{}
	e.stats.reset()
	s.schedule(e)
}

// tick runs one frame: delta, smoothed pointer and idle decay, parameter
// snapshot, effect passes. The host presents after the callback returns.
func (e *Engine) tick(now time.Time) {
	if e.destroyed || e.host.Hidden() {
		return
	}
	s := &e.sched

	var delta float64
	if !s.last.IsZero() {
		delta = now.Sub(s.last).Seconds()
	}
	s.last = now
	s.frames++

	snap, err := e.store.Snapshot()
	if err != nil {
		e.logger.Error("Parameter snapshot failed", zap.Error(err))
		s.schedule(e)
		return
	}

	pointer := e.tracker.State()
	s.prevMouse = s.mouse
	s.mouse = s.mouse.Lerp(pointer.Current, snap.MouseSmoothing)

	frame := effect.Frame{
		Time:          s.clock.Advance(delta),
		Delta:         delta,
		Mouse:         s.mouse,
		PreviousMouse: s.prevMouse,
		Intensity:     e.tracker.IdleProgress(now, e.opts.DecayDuration),
		Params:        snap,
		Viewport:      e.vp,
	}
	if err := e.effect.OnFrame(frame); err != nil {
		// keep the loop alive; the next frame may succeed after a resize
		e.logger.Error("Frame failed", zap.Uint64("frame", s.frames), zap.Error(err))
	}

	if snap.ShowStats {
		if fps, ok := e.stats.tick(now); ok {
			e.logger.Debug("Frame stats", zap.Float64("fps", fps), zap.Uint64("frame", s.frames))
		}
	} else {
		// the next window starts when stats are turned back on
		e.stats.reset()
	}
	s.schedule(e)
}

