package effect

import "fmt"

// TimeStep selects how the effect clock advances.
type TimeStep int

const (
	// StepWallClock advances by the real delta, independent of frame rate.
	StepWallClock TimeStep = iota
	// StepFixed advances by FixedStep per frame, so speed follows frame rate.
	StepFixed
)

// FixedStep is the per-frame increment of StepFixed.
const FixedStep = 0.01

func (s TimeStep) String() string {
	switch s {
	case StepWallClock:
		return "wallclock"
	case StepFixed:
		return "fixed"
	}
	return fmt.Sprintf("TimeStep(%d)", int(s))
}

// Clock is a monotonically increasing time accumulator.
type Clock struct {
	Step    TimeStep
	elapsed float64
}

// Advance steps the clock for one frame and returns the new time. Negative
// deltas are ignored.
func (c *Clock) Advance(delta float64) float64 {
	switch c.Step {
	case StepFixed:
		c.elapsed += FixedStep
	default:
		if delta > 0 {
			c.elapsed += delta
		}
	}
	return c.elapsed
}

// Elapsed returns the current time.
func (c *Clock) Elapsed() float64 { return c.elapsed }
