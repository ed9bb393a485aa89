package effect

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinsley/godistortion/graphics"
	"github.com/richinsley/godistortion/gpu"
	"github.com/richinsley/godistortion/gpu/gputest"
	"github.com/richinsley/godistortion/input"
	"github.com/richinsley/godistortion/params"
	"github.com/richinsley/godistortion/shader"
	"github.com/richinsley/godistortion/viewport"
)

func testFrame(t *testing.T, v Variant, vp viewport.Viewport) Frame {
	t.Helper()
	snap, err := params.NewStore(Defs(v)).Snapshot()
	require.NoError(t, err)
	return Frame{
		Time:          1,
		Mouse:         input.Vec2{X: 0.25, Y: 0.75},
		PreviousMouse: input.Vec2{X: 0.2, Y: 0.7},
		Intensity:     1,
		Params:        snap,
		Viewport:      vp,
	}
}

func newVideoTexture(t *testing.T, dev gpu.Device) gpu.Texture {
	t.Helper()
	tex, err := dev.NewTexture(image.NewRGBA(image.Rect(0, 0, 4, 4)))
	require.NoError(t, err)
	return tex
}

func TestClock(t *testing.T) {
	wall := Clock{Step: StepWallClock}
	wall.Advance(0.5)
	wall.Advance(-1)
	assert.InDelta(t, 0.75, wall.Advance(0.25), 1e-9)

	fixed := Clock{Step: StepFixed}
	fixed.Advance(10)
	assert.InDelta(t, 2*FixedStep, fixed.Advance(0), 1e-9)
	assert.Equal(t, "fixed", StepFixed.String())
}

func TestDefaultTimeStep(t *testing.T) {
	assert.Equal(t, StepFixed, DefaultTimeStep(VariantRippleLegacy))
	assert.Equal(t, StepWallClock, DefaultTimeStep(VariantRipple))
	assert.Equal(t, StepWallClock, DefaultTimeStep(VariantTrail))
}

func TestNewUnknownVariant(t *testing.T) {
	_, err := New("sparkle")
	assert.Error(t, err)
}

func TestRippleFrame(t *testing.T) {
	dev := gputest.New()
	vp := viewport.New(graphics.Rect{Width: 800, Height: 400}, 1)
	fx, err := New(VariantRipple)
	require.NoError(t, err)
	require.NoError(t, fx.Init(dev, vp))

	assert.ErrorIs(t, fx.OnFrame(testFrame(t, VariantRipple, vp)), ErrNoVideo)

	video := newVideoTexture(t, dev)
	fx.SetVideo(video)
	require.NoError(t, fx.OnFrame(testFrame(t, VariantRipple, vp)))

	draws := dev.Draws()
	require.Len(t, draws, 1)
	d := draws[0]
	assert.Equal(t, shader.Ripple, d.Program)
	assert.Zero(t, d.Target, "ripple draws to the screen")
	require.NotNil(t, d.Clear)
	assert.InDelta(t, float32(0x1a)/255, d.Clear[0], 1e-3)
	assert.Equal(t, [2]float32{800, 400}, d.Uniforms["u_resolution"])
	assert.Equal(t, [2]float32{0.25, 0.75}, d.Uniforms["u_mouse"])
	assert.Equal(t, float32(0.04), d.Uniforms["u_rippleStrength"])
	assert.Equal(t, float32(1), d.Uniforms["u_rippleIntensity"])
	assert.Equal(t, video.(*gputest.Texture).ID, d.TextureID("u_videoTexture"))
}

func TestRippleIntensityFollowsIdleDecay(t *testing.T) {
	vp := viewport.New(graphics.Rect{Width: 100, Height: 100}, 1)
	for _, tc := range []struct {
		variant Variant
		want    float32
	}{
		{VariantRipple, 0.25},
		{VariantRippleLegacy, 1},
	} {
		t.Run(string(tc.variant), func(t *testing.T) {
			dev := gputest.New()
			fx, err := New(tc.variant)
			require.NoError(t, err)
			require.NoError(t, fx.Init(dev, vp))
			fx.SetVideo(newVideoTexture(t, dev))

			frame := testFrame(t, tc.variant, vp)
			frame.Intensity = 0.25
			require.NoError(t, fx.OnFrame(frame))
			assert.Equal(t, tc.want, dev.Draws()[0].Uniforms["u_rippleIntensity"])
		})
	}
}

func TestRippleResizeReplacesPlane(t *testing.T) {
	dev := gputest.New()
	fx := NewRipple()
	require.NoError(t, fx.Init(dev, viewport.New(graphics.Rect{Width: 100, Height: 100}, 1)))
	require.Equal(t, 1, dev.Live("geometry"))

	require.NoError(t, fx.OnResize(viewport.New(graphics.Rect{Width: 300, Height: 100}, 1)))
	assert.Equal(t, 1, dev.Live("geometry"))
	assert.Equal(t, float32(6), fx.plane.(*gputest.Geometry).Width)
	assert.Equal(t, RippleSegments, fx.plane.(*gputest.Geometry).SegX)

	fx.Dispose()
	fx.Dispose()
	assert.Equal(t, 0, dev.Live(""))
}

func TestRippleInitFailureReleasesResources(t *testing.T) {
	dev := gputest.New()
	dev.FailProgram = shader.Ripple
	err := NewRipple().Init(dev, viewport.New(graphics.Rect{Width: 10, Height: 10}, 1))
	require.ErrorIs(t, err, gputest.ErrInjected)
	assert.Equal(t, 0, dev.Live(""))
}

func TestTrailPassOrder(t *testing.T) {
	dev := gputest.New()
	vp := viewport.New(graphics.Rect{Width: 200, Height: 100}, 2)
	fx := NewTrail()
	require.NoError(t, fx.Init(dev, vp))
	fx.SetVideo(newVideoTexture(t, dev))
	fx.OnPointer(input.State{Active: true})

	require.NoError(t, fx.OnFrame(testFrame(t, VariantTrail, vp)))
	assert.Equal(t, []string{shader.Trail, shader.Blur, shader.Blur, shader.Composite}, dev.Programs())

	draws := dev.Draws()
	assert.Equal(t, float32(1), draws[0].Uniforms["u_isActive"])
	assert.Equal(t, true, draws[1].Uniforms["u_horizontal"])
	assert.Equal(t, false, draws[2].Uniforms["u_horizontal"])
	assert.Equal(t, [2]float32{400, 200}, draws[0].Uniforms["u_resolution"])
	assert.Zero(t, draws[3].Target, "composite draws to the screen")

	// each pass reads what the previous one wrote
	assert.Equal(t, draws[0].Target, draws[1].TextureID("u_inputTexture"))
	assert.Equal(t, draws[1].Target, draws[2].TextureID("u_inputTexture"))
	assert.Equal(t, draws[2].Target, draws[3].TextureID("u_trailTexture"))
}

func TestTrailNeverReadsItsWriteTarget(t *testing.T) {
	dev := gputest.New()
	vp := viewport.New(graphics.Rect{Width: 64, Height: 64}, 1)
	fx := NewTrail()
	require.NoError(t, fx.Init(dev, vp))
	fx.SetVideo(newVideoTexture(t, dev))

	for i := 0; i < 3; i++ {
		require.NoError(t, fx.OnFrame(testFrame(t, VariantTrail, vp)))
	}
	draws := dev.Draws()
	for _, d := range draws {
		for name := range d.Uniforms {
			if id := d.TextureID(name); id != 0 && d.Target != 0 {
				assert.NotEqual(t, d.Target, id, "%s reads its own target through %s", d.Program, name)
			}
		}
	}

	// the trail written in one frame is read by the next
	var trailDraws []gputest.Draw
	for _, d := range draws {
		if d.Program == shader.Trail {
			trailDraws = append(trailDraws, d)
		}
	}
	require.Len(t, trailDraws, 3)
	assert.Equal(t, trailDraws[0].Target, trailDraws[1].TextureID("u_previousTrail"))
	assert.Equal(t, trailDraws[1].Target, trailDraws[2].TextureID("u_previousTrail"))
	assert.Equal(t, trailDraws[0].Target, trailDraws[2].Target)
}

func TestTrailInactivePointerDepositsNothing(t *testing.T) {
	dev := gputest.New()
	vp := viewport.New(graphics.Rect{Width: 64, Height: 64}, 1)
	fx := NewTrail()
	require.NoError(t, fx.Init(dev, vp))
	fx.SetVideo(newVideoTexture(t, dev))
	fx.OnPointer(input.State{Active: false})

	require.NoError(t, fx.OnFrame(testFrame(t, VariantTrail, vp)))
	assert.Equal(t, float32(0), dev.Draws()[0].Uniforms["u_isActive"])
}

func TestTrailResizeDoesNotLeak(t *testing.T) {
	dev := gputest.New()
	fx := NewTrail()
	require.NoError(t, fx.Init(dev, viewport.New(graphics.Rect{Width: 64, Height: 64}, 1)))
	assert.Equal(t, 4, dev.Live("target"))
	assert.Equal(t, 1, dev.Live("geometry"))

	big := viewport.New(graphics.Rect{Width: 128, Height: 32}, 3)
	require.NoError(t, fx.OnResize(big))
	assert.Equal(t, 4, dev.Live("target"))
	assert.Equal(t, 1, dev.Live("geometry"))
	w, h := fx.blurV.Size()
	assert.Equal(t, 256, w)
	assert.Equal(t, 64, h)

	fx.Dispose()
	fx.Dispose()
	assert.Equal(t, 0, dev.Live(""))
}

func TestTrailResizeFailureLeavesNothingAllocated(t *testing.T) {
	dev := gputest.New()
	fx := NewTrail()
	require.NoError(t, fx.Init(dev, viewport.New(graphics.Rect{Width: 64, Height: 64}, 1)))

	dev.FailRenderTarget = true
	require.Error(t, fx.OnResize(viewport.New(graphics.Rect{Width: 32, Height: 32}, 1)))
	assert.Equal(t, 0, dev.Live("target"))

	fx.SetVideo(newVideoTexture(t, dev))
	assert.ErrorIs(t, fx.OnFrame(testFrame(t, VariantTrail, viewport.New(graphics.Rect{Width: 32, Height: 32}, 1))), gpu.ErrDisposed)
}
