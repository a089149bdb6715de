// Package shared holds helpers used across the retailcast packages that do
// not belong to any single domain.
//
// # Test Utilities
//
// The testutil subpackage provides:
//
//   - BufferedSlogHandler and NewTestLogger for asserting on structured logs
//   - reference basket datasets such as BreadButterMilk
//   - SalesLog, a reproducible line-item generator for aggregation and
//     forecasting tests
//
// Example usage:
//
//	func TestAnalyze(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    svc := services.NewBasketService(cfg, logger)
//	    ...
//	    testutil.AssertNoErrors(t, logs)
//	}
package shared
