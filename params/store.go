// Package params holds the tunable effect parameters: named values with
// fixed defaults, range checks and change notifications. It replaces an
// interactive debug panel; the rendering core only reads Snapshots.
package params

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	css "github.com/mazznoer/csscolorparser"
	"github.com/mitchellh/mapstructure"
)

var (
	// ErrUnknownParam is returned when setting a name the store does not hold.
	ErrUnknownParam = errors.New("unknown parameter")
	// ErrOutOfRange is returned when a numeric value is outside its range.
	ErrOutOfRange = errors.New("parameter out of range")
	// ErrWrongType is returned when a value does not match the parameter kind.
	ErrWrongType = errors.New("wrong parameter type")
)

// Kind is the value type of a parameter.
type Kind int

const (
	Float Kind = iota
	Bool
	Color
)

// Def describes one parameter.
type Def struct {
	Name    string
	Kind    Kind
	Default any
	Min     float64
	Max     float64
}

// ChangeFunc is called after a parameter value changes.
type ChangeFunc func(name string, value any)

// Store is a key-value parameter store. It is safe for concurrent use;
// change callbacks run on the goroutine that made the change.
type Store struct {
	mu      sync.Mutex
	defs    map[string]Def
	values  map[string]any
	version uint64
	subs    map[int]ChangeFunc
	nextSub int

	snap    Snapshot
	snapVer uint64
	hasSnap bool
}

// NewStore creates a store holding defs at their defaults.
func NewStore(defs []Def) *Store {
	s := &Store{
		defs:   make(map[string]Def, len(defs)),
		values: make(map[string]any, len(defs)),
		subs:   make(map[int]ChangeFunc),
	}
	for _, d := range defs {
		s.defs[d.Name] = d
		s.values[d.Name] = d.Default
	}
	return s
}

// Names returns the parameter names in sorted order.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.defs))
	for name := range s.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the current value of name.
func (s *Store) Get(name string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[name]
	return v, ok
}

// Set validates and stores a value, notifying subscribers when it changed.
func (s *Store) Set(name string, value any) error {
	s.mu.Lock()
	def, ok := s.defs[name]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownParam, name)
	}
	v, err := coerce(def, value)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if s.values[name] == v {
		s.mu.Unlock()
		return nil
	}
	s.values[name] = v
	s.version++
	subs := s.subscribers()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(name, v)
	}
	return nil
}

// SetMany applies every entry of values and returns all failures joined.
// Valid entries are applied even when others fail.
func (s *Store) SetMany(values map[string]any) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		if err := s.Set(name, values[name]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reset restores every parameter to its default.
func (s *Store) Reset() {
	s.mu.Lock()
	defaults := make(map[string]any, len(s.defs))
	for name, d := range s.defs {
		defaults[name] = d.Default
	}
	s.mu.Unlock()
	// defaults are valid by construction
	_ = s.SetMany(defaults)
}

// Subscribe registers fn for change notifications and returns a function
// that unregisters it.
func (s *Store) Subscribe(fn ChangeFunc) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) subscribers() []ChangeFunc {
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]ChangeFunc, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.subs[id])
	}
	return out
}

// Snapshot returns an immutable, typed copy of the current values. The
// decode is cached until the next change.
func (s *Store) Snapshot() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasSnap && s.snapVer == s.version {
		return s.snap, nil
	}

	var snap Snapshot
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &snap,
		ErrorUnused: false,
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := dec.Decode(s.values); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode parameters: %w", err)
	}
	snap.Version = s.version
	snap.Background = parseColor(snap.BackgroundColor)
	snap.Trail = parseColor(snap.TrailColor)

	s.snap = snap
	s.snapVer = s.version
	s.hasSnap = true
	return snap, nil
}

func coerce(def Def, value any) (any, error) {
	switch def.Kind {
	case Float:
		var f float64
		switch v := value.(type) {
		case float64:
			f = v
		case float32:
			f = float64(v)
		case int:
			f = float64(v)
		case int64:
			f = float64(v)
		default:
			return nil, fmt.Errorf("%w: %s wants a number, got %T", ErrWrongType, def.Name, value)
		}
		if f < def.Min || f > def.Max {
			return nil, fmt.Errorf("%w: %s=%g not in [%g, %g]", ErrOutOfRange, def.Name, f, def.Min, def.Max)
		}
		return f, nil
	case Bool:
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: %s wants a bool, got %T", ErrWrongType, def.Name, value)
		}
		return b, nil
	case Color:
		str, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s wants a color string, got %T", ErrWrongType, def.Name, value)
		}
		if _, err := css.Parse(str); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrWrongType, def.Name, err)
		}
		return str, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrWrongType, def.Name)
}

// parseColor converts a validated CSS color string to normalized RGBA.
// Empty strings yield opaque black.
func parseColor(s string) [4]float32 {
	c, err := css.Parse(s)
	if err != nil {
		return [4]float32{0, 0, 0, 1}
	}
	return [4]float32{float32(c.R), float32(c.G), float32(c.B), float32(c.A)}
}
