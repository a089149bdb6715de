// Package forecast turns sales logs into daily series and produces ensemble
// forecasts with confidence intervals.
//
// Files:
//
//   - aggregate.go: line items to a gap-free daily series
//   - trends.go: descriptive trends over a daily series
//   - models.go: trend, seasonal, volatility and naive strategies
//   - backtest.go: held-out accuracy and ensemble weights
//   - ensemble.go: weighted forecast, intervals and confidence
//
// # Ensemble
//
// Every strategy is back-tested on the most recent W days, where W is
// BacktestMultiplier times the horizon bounded by MinBacktestPoints and the
// history left after MinTrainingPoints. Weights are inverse mean absolute
// error, renormalised to sum to one. Strategies are then refit on the full
// history and blended.
//
// Interval width grows with the square root of the horizon and never
// narrows from one day to the next. Confidence decays exponentially with
// the horizon at a rate derived from the back-test residual spread, so it
// strictly decreases.
//
// Series shorter than MinTrainingPoints+MinBacktestPoints fall back to a
// flat line at the recent average. The result is marked Degraded and
// carries ErrInsufficientHistory as a warning.
//
// # Usage Example
//
//	daily, err := forecast.Aggregate(lines, forecast.Filter{})
//	if err != nil {
//	    return err
//	}
//	series, _ := daily.Metric(forecast.MetricRevenue)
//	result, err := forecast.NewEnsemble(forecast.DefaultOptions(), logger).Forecast(ctx, series, 30)
package forecast
