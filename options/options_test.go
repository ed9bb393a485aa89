package options

import (
	"flag"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinsley/godistortion/effect"
)

func TestDefaultIsValid(t *testing.T) {
	o := Default()
	require.NoError(t, o.Validate())
	step, err := o.Step()
	require.NoError(t, err)
	assert.Equal(t, effect.StepWallClock, step)
}

func TestStepAutoFollowsVariant(t *testing.T) {
	o := Default()
	o.Variant = effect.VariantRippleLegacy
	step, err := o.Step()
	require.NoError(t, err)
	assert.Equal(t, effect.StepFixed, step)

	o.TimeStep = TimeStepWallClock
	step, err = o.Step()
	require.NoError(t, err)
	assert.Equal(t, effect.StepWallClock, step)
}

func TestValidateCollectsErrors(t *testing.T) {
	o := Default()
	o.Variant = "sparkle"
	o.TimeStep = "sometimes"
	o.Width = 0
	o.DecayDuration = 0

	err := o.Validate()
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "sparkle")
	assert.Contains(t, err.Error(), "sometimes")
	assert.Contains(t, err.Error(), "window size")
	assert.Contains(t, err.Error(), "decay")
}

func TestBind(t *testing.T) {
	o := Default()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	o.Bind(fs)
	require.NoError(t, fs.Parse([]string{
		"-variant", "trail",
		"-video", "clip.mp4",
		"-decay", "1.5s",
		"-width", "640",
	}))
	assert.Equal(t, effect.VariantTrail, o.Variant)
	assert.Equal(t, "clip.mp4", o.Video)
	assert.Equal(t, 1500*time.Millisecond, o.DecayDuration)
	assert.Equal(t, 640, o.Width)
	assert.Equal(t, 720, o.Height)
	require.NoError(t, o.Validate())
}

func TestFFmpegFlagOnlyOverridesDecoder(t *testing.T) {
	o := Default()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	o.Bind(fs)
	require.NoError(t, fs.Parse([]string{"-ffmpeg", "/opt/ffmpeg/bin/ffmpeg"}))
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", o.FFmpegPath)

	f := fs.Lookup("ffmpeg")
	require.NotNil(t, f)
	assert.Contains(t, f.Usage, "ffprobe is always taken from PATH")
}
