package gpu

import "fmt"

// PingPong holds two render targets for feedback passes: one is read (the
// previous frame's result) while the other is written. Swap exchanges them
// once the frame is complete.
type PingPong struct {
	targets [2]RenderTarget
	read    int
}

// NewPingPong allocates both targets.
func NewPingPong(dev Device, width, height int) (*PingPong, error) {
	p := &PingPong{}
	for i := range p.targets {
		rt, err := dev.NewRenderTarget(width, height)
		if err != nil {
			p.Dispose()
			return nil, fmt.Errorf("failed to create ping-pong target %d: %w", i, err)
		}
		p.targets[i] = rt
	}
	return p, nil
}

// Read returns the target holding the previous frame.
func (p *PingPong) Read() RenderTarget { return p.targets[p.read] }

// Write returns the target to draw the current frame into.
func (p *PingPong) Write() RenderTarget { return p.targets[1-p.read] }

// Swap makes the just-written target the read target.
func (p *PingPong) Swap() { p.read = 1 - p.read }

// Dispose releases both targets.
func (p *PingPong) Dispose() {
	for i, rt := range p.targets {
		if rt != nil {
			rt.Dispose()
			p.targets[i] = nil
		}
	}
}
