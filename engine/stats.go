package engine

import "time"

// stats counts frames over one-second windows.
type stats struct {
	start  time.Time
	frames int
	fps    float64
}

// tick records a frame and reports the rate when a window completes.
func (s *stats) tick(now time.Time) (float64, bool) {
	if s.start.IsZero() {
		s.start = now
		s.frames = 0
		return 0, false
	}
	s.frames++
	elapsed := now.Sub(s.start)
	if elapsed < time.Second {
		return 0, false
	}
	s.fps = float64(s.frames) / elapsed.Seconds()
	s.start = now
	s.frames = 0
	return s.fps, true
}

// reset starts a new window without touching the last measurement.
func (s *stats) reset() {
	s.start = time.Time{}
	s.frames = 0
}
