// Package effect implements the render strategies the engine can run: a
// single-pass ripple (wall-clock or legacy fixed-step) and a multi-pass
// trail. Each frame an effect receives an immutable Frame and issues its
// passes on a gpu.Device.
package effect

import (
	"errors"
	"fmt"

	"github.com/richinsley/godistortion/gpu"
	"github.com/richinsley/godistortion/input"
	"github.com/richinsley/godistortion/params"
	"github.com/richinsley/godistortion/viewport"
)

// ErrNoVideo is returned by OnFrame when no video texture was set.
var ErrNoVideo = errors.New("no video texture")

// Variant selects a RenderEffect.
type Variant string

const (
	VariantRipple       Variant = "ripple"
	VariantRippleLegacy Variant = "ripple-legacy"
	VariantTrail        Variant = "trail"
)

// Variants lists every supported variant.
func Variants() []Variant {
	return []Variant{VariantRipple, VariantRippleLegacy, VariantTrail}
}

// Frame is the per-frame input of an effect. It is built fresh each tick and
// never mutated by effects.
type Frame struct {
	// Time is the effect clock in seconds.
	Time float64
	// Delta is the wall-clock time since the previous tick in seconds.
	Delta float64
	// Mouse is the smoothed pointer position in UV space.
	Mouse input.Vec2
	// PreviousMouse is Mouse as of the previous tick.
	PreviousMouse input.Vec2
	// Intensity is the idle-decay progress in [0, 1].
	Intensity float64
	Params    params.Snapshot
	Viewport  viewport.Viewport
}

// RenderEffect is one visual strategy.
type RenderEffect interface {
	// Init creates GPU resources for the viewport.
	Init(dev gpu.Device, vp viewport.Viewport) error
	// OnResize reallocates size-dependent resources, disposing the old ones
	// first.
	OnResize(vp viewport.Viewport) error
	// OnPointer receives the raw pointer state after every pointer event.
	OnPointer(s input.State)
	// OnFrame draws one frame.
	OnFrame(f Frame) error
	// SetVideo swaps the texture sampled as the video. The effect does not
	// own it.
	SetVideo(tex gpu.Texture)
	// Dispose releases every resource the effect created. It is idempotent.
	Dispose()
}

// New constructs the effect for a variant.
func New(v Variant) (RenderEffect, error) {
	switch v {
	case VariantRipple:
		return NewRipple(), nil
	case VariantRippleLegacy:
		return NewLegacyRipple(), nil
	case VariantTrail:
		return NewTrail(), nil
	}
	return nil, fmt.Errorf("unknown effect variant %q", v)
}

// Defs returns the parameter set of a variant.
func Defs(v Variant) []params.Def {
	switch v {
	case VariantRippleLegacy:
		return params.LegacyRippleDefs()
	case VariantTrail:
		return params.TrailDefs()
	default:
		return params.RippleDefs()
	}
}

// DefaultTimeStep returns the time-step mode a variant was designed for.
func DefaultTimeStep(v Variant) TimeStep {
	if v == VariantRippleLegacy {
		return StepFixed
	}
	return StepWallClock
}
