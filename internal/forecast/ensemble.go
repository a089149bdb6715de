package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"retailcast/pkg/contracts/domain"
)

// Result is an ensemble forecast with its back-test diagnostics
type Result struct {
	Points         []domain.ForecastPoint
	Performance    map[string]domain.ModelPerformance
	BacktestWindow int
	Degraded       bool
	// Warnings are non-fatal conditions such as ErrInsufficientHistory
	Warnings []error
	// Excluded names the strategies dropped for failing to fit or predict
	Excluded []string
}

// Response converts the result to its boundary shape
func (r *Result) Response() domain.ForecastResponse {
	resp := domain.ForecastResponse{
		Forecast:         r.Points,
		ModelPerformance: r.Performance,
		BacktestWindow:   r.BacktestWindow,
		Degraded:         r.Degraded,
	}
	for _, w := range r.Warnings {
		resp.Warnings = append(resp.Warnings, w.Error())
	}
	return resp
}

// member is a fitted strategy taking part in the blend
type member struct {
	name  string
	perf  domain.ModelPerformance
	preds []Prediction
}

// Ensemble weights independent strategies by their back-tested accuracy.
// It holds no per-call state and is safe for concurrent use.
type Ensemble struct {
	opts   Options
	logger *slog.Logger
}

// NewEnsemble creates an ensemble with the given settings
func NewEnsemble(opts Options, logger *slog.Logger) *Ensemble {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ensemble{
		opts:   opts.withDefaults(),
		logger: logger.With(slog.String("component", "forecast_ensemble")),
	}
}

// Options returns the effective settings
func (e *Ensemble) Options() Options {
	return e.opts
}

// Forecast predicts the next horizon days of a gap-free daily series
func (e *Ensemble) Forecast(ctx context.Context, series []domain.SeriesPoint, horizon int) (*Result, error) {
	start := time.Now()
	h, err := e.validate(series, horizon)
	if err != nil {
		return nil, err
	}

	if need := e.opts.MinHistory(); h.Len() < need {
		warning := fmt.Errorf("%d points available, %d needed for back-testing: %w", h.Len(), need, ErrInsufficientHistory)
		return e.fallback(ctx, h, horizon, []error{warning})
	}

	window := BacktestWindow(h.Len(), horizon, e.opts)
	var members []member
	var warnings []error
	var excluded []string

	for _, m := range newModels(e.opts) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("forecast cancelled: %w", err)
		}

		perf, err := backtest(m, h, window)
		if err == nil {
			err = m.Fit(h)
		}
		var preds []Prediction
		if err == nil {
			preds = m.Predict(horizon)
			err = checkFinite(m.Name(), preds)
		}
		if err != nil {
			e.logger.WarnContext(ctx, "model excluded from ensemble",
				slog.String("model", m.Name()),
				slog.String("error", err.Error()),
			)
			warnings = append(warnings, fmt.Errorf("%s model excluded: %w", m.Name(), err))
			excluded = append(excluded, m.Name())
			continue
		}

		e.logger.DebugContext(ctx, "model back-tested",
			slog.String("model", m.Name()),
			slog.Float64("mae", perf.MAE),
			slog.Float64("rmse", perf.RMSE),
			slog.Float64("fit_score", perf.FitScore),
		)
		members = append(members, member{name: m.Name(), perf: perf, preds: preds})
	}

	if len(members) == 0 {
		result, err := e.fallback(ctx, h, horizon, warnings)
		if result != nil {
			result.Excluded = excluded
		}
		return result, err
	}

	perfs := make([]domain.ModelPerformance, len(members))
	for i, mb := range members {
		perfs[i] = mb.perf
	}
	weights := inverseErrorWeights(perfs)

	var fit float64
	for i, mb := range members {
		members[i].perf.Weight = weights[i]
		fit += weights[i] * mb.perf.FitScore
	}

	result := e.blend(h, members, weights, clamp(fit, minBaseConfidence, maxBaseConfidence))
	if err := checkPoints(result.Points); err != nil {
		e.logger.WarnContext(ctx, "ensemble blend discarded", slog.String("error", err.Error()))
		warnings = append(warnings, fmt.Errorf("ensemble blend discarded: %w", err))
		fallback, ferr := e.fallback(ctx, h, horizon, warnings)
		if fallback != nil {
			fallback.Excluded = excluded
		}
		return fallback, ferr
	}
	result.BacktestWindow = window
	result.Warnings = warnings
	result.Excluded = excluded

	e.logger.InfoContext(ctx, "forecast completed",
		slog.Int("history", h.Len()),
		slog.Int("horizon", horizon),
		slog.Int("backtest_window", window),
		slog.Int("models", len(members)),
		slog.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// fallback forecasts a flat line at the recent average with capped confidence
func (e *Ensemble) fallback(ctx context.Context, h History, horizon int, warnings []error) (*Result, error) {
	m := &naiveModel{}
	if err := m.Fit(h); err != nil {
		return nil, err
	}

	recent := h.Values
	if len(recent) > naiveWindow {
		recent = recent[len(recent)-naiveWindow:]
	}
	level := make([]float64, len(recent))
	for i := range level {
		level[i] = m.level
	}
	perf := Accuracy(recent, level)
	perf.Weight = 1

	base := 1.0
	if denom := math.Abs(m.level) + perf.RMSE; denom > 0 {
		base = 1 - perf.RMSE/denom
	}

	mb := member{name: m.Name(), perf: perf, preds: m.Predict(horizon)}
	result := e.blend(h, []member{mb}, []float64{1}, clamp(base, minBaseConfidence, degradedConfidenceCap))
	if err := checkPoints(result.Points); err != nil {
		return nil, fmt.Errorf("series magnitude cannot be forecast: %v: %w", err, ErrInvalidInput)
	}
	result.Degraded = true
	result.Warnings = warnings

	e.logger.WarnContext(ctx, "forecast degraded to naive model",
		slog.Int("history", h.Len()),
		slog.Int("required", e.opts.MinHistory()),
		slog.Int("horizon", horizon),
	)
	return result, nil
}

// blend combines member predictions. The interval half-width is
// z * sum(w * max(rmse, spread)) * sqrt(step). The stored width
// (upper - lower) never shrinks from one day to the next, including after
// rounding. Confidence is base * exp(-rate * step).
func (e *Ensemble) blend(h History, members []member, weights []float64, base float64) *Result {
	horizon := len(members[0].preds)
	result := &Result{
		Points:      make([]domain.ForecastPoint, horizon),
		Performance: make(map[string]domain.ModelPerformance, len(members)),
	}
	for _, mb := range members {
		result.Performance[mb.name] = mb.perf
	}

	var sigma1 float64
	for i, mb := range members {
		sigma1 += weights[i] * math.Max(mb.perf.RMSE, mb.preds[0].Spread)
	}
	rate := decayRate(sigma1, stat.Mean(h.Values, nil))

	last := h.Len() - 1
	prev, prevWidth := 0.0, 0.0
	for i := 0; i < horizon; i++ {
		step := float64(i + 1)
		perModel := make(map[string]float64, len(members))
		var pred, sigma float64
		for j, mb := range members {
			p := mb.preds[i]
			pred += weights[j] * p.Value
			sigma += weights[j] * math.Max(mb.perf.RMSE, p.Spread)
			perModel[mb.name] = p.Value
		}
		sigma *= math.Sqrt(step)
		if sigma < prev {
			sigma = prev
		}
		prev = sigma

		half := e.opts.IntervalZ * sigma
		lower, upper := widen(pred-half, pred+half, prevWidth)
		prevWidth = upper - lower
		result.Points[i] = domain.ForecastPoint{
			Date:       domain.NewDate(h.DateAt(last + i + 1)),
			Predicted:  pred,
			LowerBound: lower,
			UpperBound: upper,
			Confidence: base * math.Exp(-rate*step),
			PerModel:   perModel,
		}
	}
	return result
}

// widen nudges the bounds outward by whole ulps until upper - lower is at
// least minWidth
func widen(lower, upper, minWidth float64) (float64, float64) {
	for k := 0; upper-lower < minWidth && k < 64; k++ {
		if k%2 == 0 {
			lower = math.Nextafter(lower, math.Inf(-1))
		} else {
			upper = math.Nextafter(upper, math.Inf(1))
		}
	}
	return lower, upper
}

// decayRate is the relative one-day spread, floored so confidence always falls
func decayRate(sigma, mean float64) float64 {
	denom := math.Abs(mean) + sigma
	if denom == 0 {
		return minDecayRate
	}
	return math.Max(minDecayRate, sigma/denom)
}

// validate rejects empty, non-finite or gapped series before any fitting
func (e *Ensemble) validate(series []domain.SeriesPoint, horizon int) (History, error) {
	if len(series) == 0 {
		return History{}, fmt.Errorf("series is empty: %w", ErrInvalidInput)
	}
	if horizon < 1 || horizon > e.opts.MaxHorizonDays {
		return History{}, fmt.Errorf("horizon_days %d outside [1, %d]: %w", horizon, e.opts.MaxHorizonDays, ErrInvalidInput)
	}
	if series[0].Date.IsZero() {
		return History{}, fmt.Errorf("series point 0 has no date: %w", ErrInvalidInput)
	}

	start := domain.NewDate(series[0].Date.Time).Time
	values := make([]float64, len(series))
	for i, p := range series {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			return History{}, fmt.Errorf("series point %d (%s) is not finite: %w", i, p.Date, ErrInvalidInput)
		}
		if want := start.AddDate(0, 0, i); !domain.NewDate(p.Date.Time).Time.Equal(want) {
			return History{}, fmt.Errorf("series point %d is %s, expected %s; fill gaps before forecasting: %w",
				i, p.Date, domain.NewDate(want), ErrInvalidInput)
		}
		values[i] = p.Value
	}
	return History{Start: start, Values: values}, nil
}

// checkPoints rejects a blend with a non-finite value or with confidence that
// does not strictly fall
func checkPoints(points []domain.ForecastPoint) error {
	for i, p := range points {
		if !isFinite(p.Predicted) || !isFinite(p.LowerBound) || !isFinite(p.UpperBound) || !isFinite(p.Confidence) {
			return fmt.Errorf("non-finite forecast at step %d", i+1)
		}
		if i > 0 && p.Confidence >= points[i-1].Confidence {
			return fmt.Errorf("confidence does not fall at step %d", i+1)
		}
	}
	return nil
}

func checkFinite(name string, preds []Prediction) error {
	for i, p := range preds {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) || math.IsNaN(p.Spread) || math.IsInf(p.Spread, 0) {
			return fmt.Errorf("%s produced a non-finite value at step %d", name, i+1)
		}
	}
	return nil
}
