package options

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/richinsley/godistortion/effect"
	"github.com/richinsley/godistortion/input"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid options")

// Time-step modes.
const (
	TimeStepAuto      = "auto"
	TimeStepWallClock = "wallclock"
	TimeStepFixed     = "fixed"
)

// Options configures an engine and the viewer around it.
type Options struct {
	Variant  effect.Variant
	TimeStep string // auto, wallclock or fixed
	Video    string // media URL or path; empty renders the fallback gradient

	Width  int // initial window size in screen coordinates
	Height int

	DecayDuration time.Duration // idle decay of the ripple intensity
	FFmpegPath    string        // empty uses ffmpeg from PATH
	ParamsFile    string        // optional YAML parameter overrides, watched for edits
	LogLevel      string
	Environment   string // "development" selects the console log encoder
	GLES          bool

	// OnDiagnostic receives recoverable failures such as a video that could
	// not be loaded. It runs on the UI thread.
	OnDiagnostic func(err error)
}

// Default returns the default options.
func Default() Options {
	return Options{
		Variant:       effect.VariantRipple,
		TimeStep:      TimeStepAuto,
		Width:         1280,
		Height:        720,
		DecayDuration: input.DefaultDecayDuration,
		LogLevel:      "info",
		Environment:   "production",
	}
}

// Bind registers a flag for every command-line settable option, using the
// current values as defaults.
func (o *Options) Bind(fs *flag.FlagSet) {
	fs.Func("variant", fmt.Sprintf("Effect variant: ripple, ripple-legacy or trail (default %q)", o.Variant), func(s string) error {
		o.Variant = effect.Variant(s)
		return nil
	})
	fs.StringVar(&o.TimeStep, "timestep", o.TimeStep, "Time step: auto, wallclock or fixed")
	fs.StringVar(&o.Video, "video", o.Video, "Video file or URL (empty shows a gradient)")
	fs.IntVar(&o.Width, "width", o.Width, "Window width")
	fs.IntVar(&o.Height, "height", o.Height, "Window height")
	fs.DurationVar(&o.DecayDuration, "decay", o.DecayDuration, "Ripple idle decay duration")
	fs.StringVar(&o.FFmpegPath, "ffmpeg", o.FFmpegPath, "Path to ffmpeg executable (ffprobe is always taken from PATH)")
	fs.StringVar(&o.ParamsFile, "params", o.ParamsFile, "YAML file of effect parameters, reloaded on change")
	fs.StringVar(&o.LogLevel, "loglevel", o.LogLevel, "Log level: debug, info, warn or error")
	fs.StringVar(&o.Environment, "env", o.Environment, "Environment: development or production")
	fs.BoolVar(&o.GLES, "gles", o.GLES, "Translate shaders for OpenGL ES")
}

// Validate checks option values.
func (o Options) Validate() error {
	var errs []error
	if _, err := effect.New(o.Variant); err != nil {
		errs = append(errs, err)
	}
	if _, err := o.Step(); err != nil {
		errs = append(errs, err)
	}
	if o.Width <= 0 || o.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", o.Width, o.Height))
	}
	if o.DecayDuration <= 0 {
		errs = append(errs, fmt.Errorf("decay duration %v must be positive", o.DecayDuration))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Step resolves TimeStep, picking the variant's own mode for auto.
func (o Options) Step() (effect.TimeStep, error) {
	switch o.TimeStep {
	case TimeStepAuto, "":
		return effect.DefaultTimeStep(o.Variant), nil
	case TimeStepWallClock:
		return effect.StepWallClock, nil
	case TimeStepFixed:
		return effect.StepFixed, nil
	}
	return 0, fmt.Errorf("unknown time step %q", o.TimeStep)
}
