package forecast

// Default ensemble settings
const (
	DefaultHorizonDays        = 30
	DefaultMaxHorizonDays     = 365
	DefaultBacktestMultiplier = 2
	DefaultMinTrainingPoints  = 14
	DefaultMinBacktestPoints  = 7
	DefaultSeasonalWindow     = 7
	DefaultSeasonalBlend      = 0.5
	DefaultIntervalZ          = 1.96

	// naiveWindow is the number of recent points averaged by the fallback
	naiveWindow = 7
	// degradedConfidenceCap bounds the base confidence of a fallback forecast
	degradedConfidenceCap = 0.3

	minBaseConfidence = 0.05
	maxBaseConfidence = 0.99
	minDecayRate      = 0.01
	weightEpsilon     = 1e-9
)

// Options configures the ensemble
type Options struct {
	MaxHorizonDays     int
	BacktestMultiplier int
	MinTrainingPoints  int
	MinBacktestPoints  int
	SeasonalWindow     int
	SeasonalBlend      float64
	IntervalZ          float64
}

// DefaultOptions returns the default ensemble settings
func DefaultOptions() Options {
	return Options{
		MaxHorizonDays:     DefaultMaxHorizonDays,
		BacktestMultiplier: DefaultBacktestMultiplier,
		MinTrainingPoints:  DefaultMinTrainingPoints,
		MinBacktestPoints:  DefaultMinBacktestPoints,
		SeasonalWindow:     DefaultSeasonalWindow,
		SeasonalBlend:      DefaultSeasonalBlend,
		IntervalZ:          DefaultIntervalZ,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxHorizonDays <= 0 {
		o.MaxHorizonDays = d.MaxHorizonDays
	}
	if o.BacktestMultiplier <= 0 {
		o.BacktestMultiplier = d.BacktestMultiplier
	}
	if o.MinTrainingPoints <= 0 {
		o.MinTrainingPoints = d.MinTrainingPoints
	}
	if o.MinBacktestPoints <= 0 {
		o.MinBacktestPoints = d.MinBacktestPoints
	}
	if o.SeasonalWindow <= 0 {
		o.SeasonalWindow = d.SeasonalWindow
	}
	if o.SeasonalBlend <= 0 || o.SeasonalBlend > 1 {
		o.SeasonalBlend = d.SeasonalBlend
	}
	if o.IntervalZ <= 0 {
		o.IntervalZ = d.IntervalZ
	}
	return o
}

// MinHistory returns the shortest series that is back-tested rather than
// handled by the naive fallback
func (o Options) MinHistory() int {
	o = o.withDefaults()
	return o.MinTrainingPoints + o.MinBacktestPoints
}
