package services

import (
	"fmt"

	"retailcast/internal/basket"
	"retailcast/internal/forecast"
)

// Service errors wrap the core sentinels so the HTTP layer maps them with
// errors.Is
var (
	// ErrTooManyTransactions rejects snapshots above the configured size
	ErrTooManyTransactions = fmt.Errorf("too many transactions: %w", basket.ErrResourceLimitExceeded)

	// ErrNoSalesDates rejects time-series requests on undated line items
	ErrNoSalesDates = fmt.Errorf("sale lines carry no dates: %w", forecast.ErrInvalidInput)
)
