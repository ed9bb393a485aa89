package params

// Parameter names.
const (
	RippleStrength  = "rippleStrength"
	RippleSpeed     = "rippleSpeed"
	RippleRadius    = "rippleRadius"
	MouseSmoothing  = "mouseSmoothing"
	AutoPlay        = "autoPlay"
	ShowStats       = "showStats"
	BackgroundColor = "backgroundColor"
	TrailRadius     = "trailRadius"
	FadeSpeed       = "fadeSpeed"
	TrailIntensity  = "trailIntensity"
	BlurRadius      = "blurRadius"
	TrailBlend      = "trailBlend"
	TrailColor      = "trailColor"
)

// Snapshot is a typed, immutable view of the store at one version.
type Snapshot struct {
	RippleStrength  float64 `mapstructure:"rippleStrength"`
	RippleSpeed     float64 `mapstructure:"rippleSpeed"`
	RippleRadius    float64 `mapstructure:"rippleRadius"`
	MouseSmoothing  float64 `mapstructure:"mouseSmoothing"`
	AutoPlay        bool    `mapstructure:"autoPlay"`
	ShowStats       bool    `mapstructure:"showStats"`
	BackgroundColor string  `mapstructure:"backgroundColor"`
	TrailRadius     float64 `mapstructure:"trailRadius"`
	FadeSpeed       float64 `mapstructure:"fadeSpeed"`
	TrailIntensity  float64 `mapstructure:"trailIntensity"`
	BlurRadius      float64 `mapstructure:"blurRadius"`
	TrailBlend      float64 `mapstructure:"trailBlend"`
	TrailColor      string  `mapstructure:"trailColor"`

	Version    uint64     `mapstructure:"-"`
	Background [4]float32 `mapstructure:"-"`
	Trail      [4]float32 `mapstructure:"-"`
}

func common(smoothing float64, background string) []Def {
	return []Def{
		{Name: MouseSmoothing, Kind: Float, Default: smoothing, Min: 0.01, Max: 0.2},
		{Name: AutoPlay, Kind: Bool, Default: true},
		{Name: ShowStats, Kind: Bool, Default: false},
		{Name: BackgroundColor, Kind: Color, Default: background},
	}
}

// RippleDefs are the parameters of the single-pass ripple effect.
func RippleDefs() []Def {
	return append([]Def{
		{Name: RippleStrength, Kind: Float, Default: 0.04, Min: 0, Max: 0.3},
		{Name: RippleSpeed, Kind: Float, Default: 0.0, Min: 0, Max: 10},
		{Name: RippleRadius, Kind: Float, Default: 0.18, Min: 0.05, Max: 1},
	}, common(0.08, "#1a1a1a")...)
}

// LegacyRippleDefs are the ripple parameters of the fixed-step variant.
// Its pointer is not smoothed.
func LegacyRippleDefs() []Def {
	return append([]Def{
		{Name: RippleStrength, Kind: Float, Default: 0.1, Min: 0, Max: 0.3},
		{Name: RippleSpeed, Kind: Float, Default: 2.5, Min: 0, Max: 10},
		{Name: RippleRadius, Kind: Float, Default: 0.15, Min: 0.05, Max: 1},
	}, commonUnsmoothed("#222222")...)
}

func commonUnsmoothed(background string) []Def {
	defs := common(1, background)
	defs[0].Max = 1
	return defs
}

// TrailDefs are the parameters of the multi-pass trail effect.
func TrailDefs() []Def {
	return append([]Def{
		{Name: TrailRadius, Kind: Float, Default: 0.05, Min: 0.01, Max: 0.2},
		{Name: FadeSpeed, Kind: Float, Default: 0.02, Min: 0.005, Max: 0.1},
		{Name: TrailIntensity, Kind: Float, Default: 1.0, Min: 0.1, Max: 3},
		{Name: BlurRadius, Kind: Float, Default: 2.0, Min: 0.5, Max: 5},
		{Name: TrailBlend, Kind: Float, Default: 0.5, Min: 0, Max: 1},
		{Name: TrailColor, Kind: Color, Default: "rgb(255, 128, 0)"},
	}, common(0.08, "#222222")...)
}
