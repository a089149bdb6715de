package forecast

import (
	"fmt"
	"math"
	"time"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Strategy names as reported in per-model output
const (
	ModelTrend      = "trend"
	ModelSeasonal   = "seasonal"
	ModelVolatility = "volatility"
	ModelNaive      = "naive"
)

// ridgePenalty stabilises the volatility model normal equations
const ridgePenalty = 1e-6

// volatilityBand is how many training standard deviations an iterated
// volatility forecast may stray beyond the observed range
const volatilityBand = 3.0

// History is a gap-free daily series starting at Start
type History struct {
	Start  time.Time
	Values []float64
}

// Len returns the number of observations
func (h History) Len() int {
	return len(h.Values)
}

// DateAt returns the date of observation i; i may run past the end
func (h History) DateAt(i int) time.Time {
	return h.Start.AddDate(0, 0, i)
}

// Head returns the first n observations
func (h History) Head(n int) History {
	return History{Start: h.Start, Values: h.Values[:n]}
}

// Prediction is one model output with its own uncertainty
type Prediction struct {
	Value  float64
	Spread float64
}

// Model is a single forecasting strategy. Fit may be called repeatedly;
// each call replaces the previous state.
type Model interface {
	Name() string
	Fit(h History) error
	Predict(horizon int) []Prediction
}

// newModels returns fresh instances of the ensemble strategies
func newModels(opts Options) []Model {
	return []Model{
		&trendModel{},
		&seasonalModel{window: opts.SeasonalWindow, blend: opts.SeasonalBlend},
		&volatilityModel{window: opts.SeasonalWindow},
	}
}

// trendModel extrapolates a least-squares line through (day index, value)
type trendModel struct {
	n           int
	alpha, beta float64
	spread      float64
}

func (m *trendModel) Name() string { return ModelTrend }

func (m *trendModel) Fit(h History) error {
	if h.Len() < 2 {
		return fmt.Errorf("trend model needs at least 2 points, got %d: %w", h.Len(), ErrInsufficientHistory)
	}
	x := make([]float64, h.Len())
	for i := range x {
		x[i] = float64(i)
	}
	m.n = h.Len()
	m.alpha, m.beta = stat.LinearRegression(x, h.Values, nil, false)

	residuals := make([]float64, h.Len())
	for i, y := range h.Values {
		residuals[i] = y - (m.alpha + m.beta*x[i])
	}
	m.spread = sampleStdDev(residuals)
	return nil
}

func (m *trendModel) Predict(horizon int) []Prediction {
	out := make([]Prediction, horizon)
	for i := range out {
		t := float64(m.n + i)
		out[i] = Prediction{Value: m.alpha + m.beta*t, Spread: m.spread}
	}
	return out
}

// seasonalModel blends the trailing moving average with the mean of the
// same weekday: blend*trailing + (1-blend)*weekday
type seasonalModel struct {
	window   int
	blend    float64
	history  History
	trailing float64
	weekday  [7]float64
	spread   float64
}

func (m *seasonalModel) Name() string { return ModelSeasonal }

func (m *seasonalModel) Fit(h History) error {
	if h.Len() == 0 {
		return fmt.Errorf("seasonal model needs data: %w", ErrInsufficientHistory)
	}
	m.history = h

	var sums [7]float64
	var counts [7]int
	for i, v := range h.Values {
		wd := h.DateAt(i).Weekday()
		sums[wd] += v
		counts[wd]++
	}
	overall := stat.Mean(h.Values, nil)
	for wd := range m.weekday {
		if counts[wd] == 0 {
			m.weekday[wd] = overall
			continue
		}
		m.weekday[wd] = sums[wd] / float64(counts[wd])
	}

	// sma[j] averages values[j : j+window]
	sma := movingAverage(h.Values, m.window)
	if len(sma) == 0 {
		m.trailing = overall
		m.spread = sampleStdDev(h.Values)
		return nil
	}
	m.trailing = sma[len(sma)-1]

	residuals := make([]float64, 0, h.Len()-m.window)
	for i := m.window; i < h.Len(); i++ {
		pred := m.combine(sma[i-m.window], h.DateAt(i).Weekday())
		residuals = append(residuals, h.Values[i]-pred)
	}
	m.spread = sampleStdDev(residuals)
	return nil
}

func (m *seasonalModel) combine(trailing float64, wd time.Weekday) float64 {
	return m.blend*trailing + (1-m.blend)*m.weekday[wd]
}

func (m *seasonalModel) Predict(horizon int) []Prediction {
	out := make([]Prediction, horizon)
	n := m.history.Len()
	for i := range out {
		wd := m.history.DateAt(n + i).Weekday()
		out[i] = Prediction{Value: m.combine(m.trailing, wd), Spread: m.spread}
	}
	return out
}

// volatilityModel regresses each value on the previous value and the
// rolling mean and standard deviation of the preceding window. Forecasts are
// iterated, and each point's spread is the residual deviation scaled by how
// volatile the recent window is relative to the training average. Each
// iterated step is held inside the training range widened by volatilityBand
// deviations, so a lag coefficient at or above 1 cannot run away.
type volatilityModel struct {
	window      int
	coef        []float64
	tail        []float64
	residualStd float64
	avgVol      float64
	lo, hi      float64
}

func (m *volatilityModel) Name() string { return ModelVolatility }

func (m *volatilityModel) features(window []float64) []float64 {
	mean, std := stat.Mean(window, nil), sampleStdDev(window)
	return []float64{1, window[len(window)-1], mean, std}
}

func (m *volatilityModel) Fit(h History) error {
	rows := h.Len() - m.window
	const cols = 4
	if rows < cols {
		return fmt.Errorf("volatility model needs at least %d points, got %d: %w",
			m.window+cols, h.Len(), ErrInsufficientHistory)
	}

	data := make([]float64, 0, rows*cols)
	target := make([]float64, rows)
	vols := make([]float64, rows)
	for r := 0; r < rows; r++ {
		f := m.features(h.Values[r : r+m.window])
		data = append(data, f...)
		target[r] = h.Values[r+m.window]
		vols[r] = f[3]
	}

	x := mat.NewDense(rows, cols, data)
	y := mat.NewVecDense(rows, target)

	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	for i := 0; i < cols; i++ {
		xtx.Set(i, i, xtx.At(i, i)+ridgePenalty*(1+xtx.At(i, i)))
	}
	var xty mat.VecDense
	xty.MulVec(x.T(), y)

	var beta mat.VecDense
	if err := beta.SolveVec(&xtx, &xty); err != nil {
		return fmt.Errorf("solve volatility regression: %w", err)
	}
	m.coef = make([]float64, cols)
	for i := range m.coef {
		m.coef[i] = beta.AtVec(i)
		if math.IsNaN(m.coef[i]) || math.IsInf(m.coef[i], 0) {
			return fmt.Errorf("volatility regression is degenerate")
		}
	}

	var fitted mat.VecDense
	fitted.MulVec(x, &beta)
	residuals := make([]float64, rows)
	for r := range residuals {
		residuals[r] = target[r] - fitted.AtVec(r)
	}
	m.residualStd = sampleStdDev(residuals)
	m.avgVol = stat.Mean(vols, nil)
	m.tail = append([]float64(nil), h.Values[h.Len()-m.window:]...)

	band := volatilityBand * sampleStdDev(h.Values)
	m.lo = floats.Min(h.Values) - band
	m.hi = floats.Max(h.Values) + band
	return nil
}

func (m *volatilityModel) Predict(horizon int) []Prediction {
	out := make([]Prediction, horizon)
	buf := append(make([]float64, 0, len(m.tail)+horizon), m.tail...)
	for i := range out {
		f := m.features(buf[len(buf)-m.window:])
		value := 0.0
		for j, c := range m.coef {
			value += c * f[j]
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			value = f[2]
		}
		value = clamp(value, m.lo, m.hi)

		ratio := 1.0
		if m.avgVol > 0 {
			ratio = clamp(f[3]/m.avgVol, 0.5, 2)
		}
		out[i] = Prediction{Value: value, Spread: m.residualStd * ratio}
		buf = append(buf, value)
	}
	return out
}

// naiveModel is a flat line at the average of the most recent points
type naiveModel struct {
	level  float64
	spread float64
}

func (m *naiveModel) Name() string { return ModelNaive }

func (m *naiveModel) Fit(h History) error {
	if h.Len() == 0 {
		return fmt.Errorf("naive model needs data: %w", ErrInvalidInput)
	}
	recent := h.Values
	if len(recent) > naiveWindow {
		recent = recent[len(recent)-naiveWindow:]
	}
	m.level = stat.Mean(recent, nil)
	m.spread = sampleStdDev(recent)
	return nil
}

func (m *naiveModel) Predict(horizon int) []Prediction {
	out := make([]Prediction, horizon)
	for i := range out {
		out[i] = Prediction{Value: m.level, Spread: m.spread}
	}
	return out
}

// movingAverage returns the simple moving average series; it is empty when
// the input is shorter than the period
func movingAverage(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	sma := trend.NewSmaWithPeriod[float64](period)
	return helper.ChanToSlice(sma.Compute(helper.SliceToChan(values)))
}

func sampleStdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.StdDev(xs, nil)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
