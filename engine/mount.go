package engine

// Mount owns at most one live Engine for a host container. The hosting
// component holds the Mount; constructing through it while an engine is live
// returns that engine.
type Mount struct {
	cfg    Config
	engine *Engine
}

// NewMount creates a mount. cfg.Options.Video is ignored; the source is
// passed to Engine and SetSource.
func NewMount(cfg Config) *Mount {
	return &Mount{cfg: cfg}
}

// Engine returns the live engine, or constructs one for src. A live engine
// is returned unchanged even when src differs from its source; use SetSource
// to switch.
func (m *Mount) Engine(src string) (*Engine, error) {
	if m.engine != nil {
		return m.engine, nil
	}
	cfg := m.cfg
	cfg.Options.Video = src
	e, err := New(cfg)
	if err != nil {
		return nil, err
	}
	e.onDestroy = func() {
		if m.engine == e {
			m.engine = nil
		}
	}
	m.engine = e
	return e, nil
}

// SetSource rebuilds the engine when src differs from the live engine's
// source. Without a live engine it constructs one.
func (m *Mount) SetSource(src string) (*Engine, error) {
	if m.engine != nil {
		if m.engine.Source() == src {
			return m.engine, nil
		}
		m.engine.Destroy()
	}
	return m.Engine(src)
}

// Current returns the live engine or nil.
func (m *Mount) Current() *Engine {
	return m.engine
}

// Unmount destroys the live engine, if any.
func (m *Mount) Unmount() {
	if m.engine != nil {
		m.engine.Destroy()
	}
}
