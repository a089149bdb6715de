package basket

import "errors"

// Basket analysis errors
var (
	// ErrInvalidInput marks empty or malformed transactions and thresholds.
	ErrInvalidInput = errors.New("invalid input")

	// ErrResourceLimitExceeded marks a candidate space too large to mine.
	ErrResourceLimitExceeded = errors.New("resource limit exceeded")
)

// resourceGuidance is appended to every ErrResourceLimitExceeded.
const resourceGuidance = "raise min_support or lower the maximum itemset size"
