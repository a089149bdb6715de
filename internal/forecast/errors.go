package forecast

import "errors"

// Forecasting errors
var (
	// ErrInvalidInput marks empty, non-finite or gapped series and bad horizons.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientHistory is reported as a warning when the series is too
	// short to back-test and the naive fallback model is used instead.
	ErrInsufficientHistory = errors.New("insufficient history")
)
