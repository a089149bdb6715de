package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"retailcast/pkg/contracts/domain"
)

// BacktestWindow returns the number of held-out days for a series of n
// points and the requested horizon
func BacktestWindow(n, horizon int, opts Options) int {
	opts = opts.withDefaults()
	w := opts.BacktestMultiplier * horizon
	if w < opts.MinBacktestPoints {
		w = opts.MinBacktestPoints
	}
	if maxW := n - opts.MinTrainingPoints; w > maxW {
		w = maxW
	}
	return w
}

// Accuracy compares predictions with the held-out actuals. Fit score is
// 1 - SSE/SST clamped to [0, 1]; a constant window scores 1 only when it is
// matched exactly.
func Accuracy(actual, predicted []float64) domain.ModelPerformance {
	if len(actual) == 0 || len(actual) != len(predicted) {
		return domain.ModelPerformance{}
	}
	var absSum, sse float64
	for i, a := range actual {
		diff := a - predicted[i]
		absSum += math.Abs(diff)
		sse += diff * diff
	}
	n := float64(len(actual))

	mean := stat.Mean(actual, nil)
	var sst float64
	for _, a := range actual {
		sst += (a - mean) * (a - mean)
	}

	fit := 0.0
	switch {
	case sst > 0:
		fit = clamp(1-sse/sst, 0, 1)
	case sse == 0:
		fit = 1
	}

	return domain.ModelPerformance{
		MAE:      absSum / n,
		RMSE:     math.Sqrt(sse / n),
		FitScore: fit,
	}
}

// backtest fits the model on all but the last window days and scores it on
// the held-out days
func backtest(m Model, h History, window int) (domain.ModelPerformance, error) {
	train := h.Head(h.Len() - window)
	if err := m.Fit(train); err != nil {
		return domain.ModelPerformance{}, err
	}
	preds := m.Predict(window)
	predicted := make([]float64, window)
	for i, p := range preds {
		if !isFinite(p.Value) {
			return domain.ModelPerformance{}, fmt.Errorf("%s produced a non-finite back-test value", m.Name())
		}
		predicted[i] = p.Value
	}
	perf := Accuracy(h.Values[train.Len():], predicted)
	if !isFinite(perf.MAE) || !isFinite(perf.RMSE) {
		return domain.ModelPerformance{}, fmt.Errorf("%s back-test error is not finite", m.Name())
	}
	for i, p := range preds {
		if !isFinite(p.Spread) {
			return domain.ModelPerformance{}, fmt.Errorf("%s produced a non-finite spread at back-test step %d", m.Name(), i+1)
		}
	}
	return perf, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// inverseErrorWeights assigns each model 1/(MAE+eps), normalised to sum to 1
func inverseErrorWeights(perf []domain.ModelPerformance) []float64 {
	weights := make([]float64, len(perf))
	var total float64
	for i, p := range perf {
		weights[i] = 1 / (p.MAE + weightEpsilon)
		total += weights[i]
	}
	for i := range weights {
		weights[i] /= total
	}
	return weights
}
